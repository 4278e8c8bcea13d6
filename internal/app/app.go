// Package app wires the services shared by the server, the seeder and the TUI.
package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/MrJamesThe3rd/spendsight/internal/agent"
	"github.com/MrJamesThe3rd/spendsight/internal/audit"
	"github.com/MrJamesThe3rd/spendsight/internal/config"
	"github.com/MrJamesThe3rd/spendsight/internal/database"
	"github.com/MrJamesThe3rd/spendsight/internal/guardrail"
	"github.com/MrJamesThe3rd/spendsight/internal/importer"
	"github.com/MrJamesThe3rd/spendsight/internal/insight"
	"github.com/MrJamesThe3rd/spendsight/internal/llm"
	"github.com/MrJamesThe3rd/spendsight/internal/memory"
	"github.com/MrJamesThe3rd/spendsight/internal/summary"
	"github.com/MrJamesThe3rd/spendsight/internal/tools"
	"github.com/MrJamesThe3rd/spendsight/internal/transaction"
	txStore "github.com/MrJamesThe3rd/spendsight/internal/transaction/store"
)

// maxLocalSessions caps the in-process conversation store.
const maxLocalSessions = 1000

type App struct {
	Guard        *guardrail.Enforcer
	Transactions *transaction.Service
	Summary      *summary.Service
	Importer     *importer.Service
	// Insight is nil when built with WithoutAgent.
	Insight *insight.Service

	closers []func() error
}

type options struct {
	withAgent   bool
	auditOutput io.Writer
}

type Option func(*options)

// WithoutAgent skips the LLM provider, memory and audit wiring. The seeder
// uses it so it can run without an API key.
func WithoutAgent() Option {
	return func(o *options) { o.withAgent = false }
}

// WithAuditOutput sends the audit log to w instead of stdout.
func WithAuditOutput(w io.Writer) Option {
	return func(o *options) { o.auditOutput = w }
}

func New(ctx context.Context, cfg *config.Config, logger *slog.Logger, opts ...Option) (*App, error) {
	o := options{withAgent: true, auditOutput: os.Stdout}
	for _, opt := range opts {
		opt(&o)
	}

	db, err := database.New(cfg.ConnectionString())
	if err != nil {
		return nil, fmt.Errorf("connecting to database: %w", err)
	}

	a := &App{closers: []func() error{db.Close}}

	if err := database.Migrate(ctx, db); err != nil {
		a.Close()
		return nil, fmt.Errorf("migrating database: %w", err)
	}

	a.Guard = guardrail.New(guardrail.Limits{
		MinYear:       cfg.Guardrails.MinYear,
		MaxRangeDays:  cfg.Guardrails.MaxRangeDays,
		MaxResults:    cfg.Guardrails.MaxResults,
		MaxWords:      cfg.Guardrails.MaxWords,
		HardWordLimit: cfg.Guardrails.HardWordLimit,
	}, time.Now)

	repo := txStore.New(db)

	a.Transactions = transaction.NewService(repo, a.Guard, logger)
	a.Summary = summary.NewService(repo)
	a.Importer = importer.NewService()

	if !o.withAgent {
		return a, nil
	}

	if err := a.buildInsight(ctx, cfg, o.auditOutput, logger); err != nil {
		a.Close()
		return nil, err
	}

	return a, nil
}

func (a *App) buildInsight(ctx context.Context, cfg *config.Config, auditOutput io.Writer, logger *slog.Logger) error {
	provider, err := llm.New(ctx, llm.Options{
		Provider: cfg.LLM.Provider,
		APIKey:   cfg.LLM.APIKey,
		BaseURL:  cfg.LLM.BaseURL,
		Timeout:  cfg.LLM.Timeout,
	})
	if err != nil {
		return fmt.Errorf("creating llm provider: %w", err)
	}

	emitter := audit.Multi{audit.NewLogEmitter(auditOutput)}

	if cfg.Audit.AMQPURL != "" {
		amqpEmitter, err := audit.NewAMQPEmitter(cfg.Audit.AMQPURL, cfg.Audit.Exchange, logger)
		if err != nil {
			return fmt.Errorf("connecting audit broker: %w", err)
		}

		a.closers = append(a.closers, amqpEmitter.Close)
		emitter = append(emitter, amqpEmitter)
	}

	store, err := a.memoryStore(cfg)
	if err != nil {
		return err
	}

	registry := tools.NewRegistry(emitter,
		tools.NewMonthlyTotal(a.Guard, a.Summary),
		tools.NewTransactions(a.Transactions, emitter),
	)

	loop := agent.New(provider, registry, agent.Config{
		Model:         cfg.LLM.Model,
		Temperature:   cfg.LLM.Temperature,
		MaxTokens:     cfg.LLM.MaxTokens,
		MaxIterations: cfg.Agent.MaxIterations,
	}, emitter, logger)

	a.Insight = insight.NewService(a.Guard, loop, store, emitter, logger, cfg.Server.Timeout)

	logger.Info("insight agent ready",
		"provider", provider.Name(),
		"model", cfg.LLM.Model,
		"max_iterations", cfg.Agent.MaxIterations,
	)

	return nil
}

func (a *App) memoryStore(cfg *config.Config) (memory.Store, error) {
	if cfg.Redis.URL == "" {
		return memory.NewInMemoryStore(cfg.Agent.MemoryWindow, maxLocalSessions), nil
	}

	redisOpts, err := redis.ParseURL(cfg.Redis.URL)
	if err != nil {
		return nil, fmt.Errorf("parsing REDIS_URL: %w", err)
	}

	client := redis.NewClient(redisOpts)
	a.closers = append(a.closers, client.Close)

	return memory.NewRedisStore(client, cfg.Redis.Prefix, cfg.Agent.MemoryWindow, cfg.Redis.TTL), nil
}

// Close releases connections in reverse order of creation.
func (a *App) Close() error {
	var first error

	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil && first == nil {
			first = err
		}
	}

	return first
}
