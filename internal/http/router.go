package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/MrJamesThe3rd/spendsight/internal/http/insight"
	"github.com/MrJamesThe3rd/spendsight/internal/http/importcsv"
	apimw "github.com/MrJamesThe3rd/spendsight/internal/http/middleware"
	"github.com/MrJamesThe3rd/spendsight/internal/http/spend"
	"github.com/MrJamesThe3rd/spendsight/internal/http/transaction"
)

type Options struct {
	AllowedOrigins []string
	// JWTSecret turns on bearer auth for /api routes when set.
	JWTSecret []byte
	// RateLimiter is optional.
	RateLimiter *apimw.RateLimiter
	// Timeout bounds every /api request; zero disables it.
	Timeout time.Duration
	// Import mounts the seed upload endpoint when set.
	Import *importcsv.Handler
}

func New(
	opts Options,
	insightV1 *insight.Handler,
	spendV1 *spend.Handler,
	accountsV1 *transaction.Handler,
) http.Handler {
	router := chi.NewRouter()

	router.Use(middleware.RealIP)
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins: opts.AllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", apimw.SessionHeader},
		ExposedHeaders: []string{apimw.SessionHeader, "X-Guardrails"},
		MaxAge:         300,
	}))

	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})

	router.Route("/api/v1", func(r chi.Router) {
		if opts.Timeout > 0 {
			r.Use(middleware.Timeout(opts.Timeout))
		}

		if len(opts.JWTSecret) > 0 {
			r.Use(apimw.Auth(opts.JWTSecret))
		}

		if opts.RateLimiter != nil {
			r.Use(opts.RateLimiter.Handler)
		}

		r.Route("/spending", func(r chi.Router) {
			r.Use(apimw.Session)
			insightV1.Routes(r)
		})

		r.Route("/spend", func(r chi.Router) {
			r.Use(apimw.Session)
			r.Use(middleware.AllowContentType("application/json"))
			spendV1.Routes(r)
		})

		r.Route("/accounts", accountsV1.Routes)

		if opts.Import != nil {
			r.Route("/import", opts.Import.Routes)
		}
	})

	return router
}
