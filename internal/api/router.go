package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/folio-hq/folio/internal/chat"
	"github.com/folio-hq/folio/internal/portfolio"
)

const healthTimeout = 2 * time.Second

// Deps carries everything the HTTP handlers need.
type Deps struct {
	Portfolios *portfolio.Manager
	Relay      *chat.Relay
	// Token guards the management routes. Empty disables them.
	Token string
	// ChatPerMinute and ChatBurst configure per-client limiting of the chat
	// routes. ChatPerMinute <= 0 disables it.
	ChatPerMinute float64
	ChatBurst     int
}

// NewHandler returns the HTTP API: public chat and portfolio reads, plus the
// bearer-protected management routes.
func NewHandler(deps Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(requestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)

	limiter := newClientLimiter(deps.ChatPerMinute, deps.ChatBurst)

	r.Get("/health", handleHealth(deps))

	r.Route("/api", func(r chi.Router) {
		r.With(limiter.middleware).Post("/chat", handleChat(deps))

		r.Route("/portfolios", func(r chi.Router) {
			r.Get("/{username}", handleGetPortfolio(deps))
			r.With(limiter.middleware).Post("/{username}/chat", handlePortfolioChat(deps))

			r.Group(func(r chi.Router) {
				r.Use(BearerAuth(deps.Token))
				r.Post("/", handleInitPortfolio(deps))
				r.Patch("/{username}", handleUpdatePortfolio(deps))
				r.Put("/{username}", handleUpdatePortfolio(deps))
				r.Get("/{username}/context", handlePortfolioContext(deps))
			})
		})
	})

	return r
}

func handleHealth(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
		defer cancel()

		if err := deps.Portfolios.Ping(ctx); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "degraded", "storage": err.Error()})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "storage": "ok"})
	}
}
