package importer

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/MrJamesThe3rd/spendsight/internal/encoding"
	"github.com/MrJamesThe3rd/spendsight/internal/importer/ledgercsv"
	"github.com/MrJamesThe3rd/spendsight/internal/transaction"
)

type Service struct {
	importers map[Format]Importer
}

func NewService() *Service {
	return &Service{
		importers: map[Format]Importer{
			FormatLedgerCSV: ledgercsv.NewParser(),
		},
	}
}

// Parse decodes r to UTF-8 and hands it to the importer for format.
func (s *Service) Parse(format Format, r io.Reader) (*transaction.Batch, error) {
	importer, ok := s.importers[format]
	if !ok {
		return nil, fmt.Errorf("unknown format: %s", format)
	}

	decoded, err := encoding.Detect(r)
	if err != nil {
		return nil, fmt.Errorf("detect encoding: %w", err)
	}

	slog.Debug("decoded seed file", "format", format, "charset", decoded.Charset)

	return importer.Parse(decoded)
}
