package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/folio-hq/folio/internal/portfolio"
)

// InitRequest is the body of POST /api/portfolios.
type InitRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
}

// PortfolioResponse wraps a portfolio in the success envelope.
type PortfolioResponse struct {
	Success   bool                `json:"success"`
	Portfolio portfolio.Portfolio `json:"portfolio"`
	Created   bool                `json:"created,omitempty"`
	Message   string              `json:"message,omitempty"`
}

// ContextResponse is the body of GET /api/portfolios/{username}/context.
type ContextResponse struct {
	Username string `json:"username"`
	Context  string `json:"context"`
}

func handleGetPortfolio(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, err := deps.Portfolios.Public(r.Context(), chi.URLParam(r, "username"))
		if err != nil {
			portfolioError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, PortfolioResponse{Success: true, Portfolio: p})
	}
}

func handleInitPortfolio(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req InitRequest
		if err := decodeBody(w, r, &req); err != nil {
			httpError(w, http.StatusBadRequest, "Invalid request body")
			return
		}

		p, created, err := deps.Portfolios.Init(r.Context(), req.Username, req.Email)
		if err != nil {
			portfolioError(w, err)
			return
		}
		code := http.StatusOK
		if created {
			code = http.StatusCreated
		}
		writeJSON(w, code, PortfolioResponse{Success: true, Portfolio: portfolio.NormalizeForDisplay(p), Created: created})
	}
}

func handleUpdatePortfolio(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		// Identity fields are not part of Patch, so they are dropped here.
		var patch portfolio.Patch
		if err := decodeBody(w, r, &patch); err != nil {
			httpError(w, http.StatusBadRequest, "Invalid request body")
			return
		}

		p, err := deps.Portfolios.Update(r.Context(), chi.URLParam(r, "username"), patch)
		if err != nil {
			portfolioError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, PortfolioResponse{
			Success:   true,
			Portfolio: portfolio.NormalizeForDisplay(p),
			Message:   "Portfolio updated successfully",
		})
	}
}

func handlePortfolioContext(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, err := deps.Portfolios.Get(r.Context(), chi.URLParam(r, "username"))
		if err != nil {
			portfolioError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, ContextResponse{Username: p.Username, Context: deps.Relay.ContextFor(p)})
	}
}

func portfolioError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, portfolio.ErrNotFound):
		httpError(w, http.StatusNotFound, "Portfolio not found")
	case errors.Is(err, portfolio.ErrInvalid):
		httpError(w, http.StatusBadRequest, "%s", err.Error())
	default:
		slog.Error("portfolio API error", "error", err)
		httpError(w, http.StatusInternalServerError, "Internal server error")
	}
}
