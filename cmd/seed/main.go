// Command seed loads a ledger CSV export into the store.
//
//	seed -file ledger.csv
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"

	"github.com/joho/godotenv"

	"github.com/MrJamesThe3rd/spendsight/internal/app"
	"github.com/MrJamesThe3rd/spendsight/internal/config"
	"github.com/MrJamesThe3rd/spendsight/internal/importer"
)

func main() {
	path := flag.String("file", "", "ledger CSV to import")
	format := flag.String("format", string(importer.FormatLedgerCSV), "input format")
	flag.Parse()

	if *path == "" {
		flag.Usage()
		os.Exit(2)
	}

	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()

	a, err := app.New(ctx, cfg, slog.Default(), app.WithoutAgent())
	if err != nil {
		slog.Error("failed to start", "error", err)
		os.Exit(1)
	}
	defer a.Close()

	f, err := os.Open(*path)
	if err != nil {
		slog.Error("failed to open file", "path", *path, "error", err)
		os.Exit(1)
	}
	defer f.Close()

	batch, err := a.Importer.Parse(importer.Format(*format), f)
	if err != nil {
		slog.Error("failed to parse file", "path", *path, "error", err)
		os.Exit(1)
	}

	res, err := a.Transactions.Import(ctx, batch.Accounts, batch.Transactions)
	if err != nil {
		slog.Error("failed to import", "error", err)
		os.Exit(1)
	}

	slog.Info("import complete",
		"accounts_created", res.AccountsCreated,
		"transactions", res.Imported,
	)
}
