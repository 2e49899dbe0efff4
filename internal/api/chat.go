package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/folio-hq/folio/internal/chat"
	"github.com/folio-hq/folio/internal/portfolio"
)

// ChatRequest is the body of POST /api/chat. The portfolio, including its
// API key, travels with the request.
type ChatRequest struct {
	Message             string               `json:"message"`
	Portfolio           *portfolio.Portfolio `json:"portfolio"`
	ConversationHistory []chat.Turn          `json:"conversationHistory"`
}

// PortfolioChatRequest is the body of POST /api/portfolios/{username}/chat.
type PortfolioChatRequest struct {
	Message             string      `json:"message"`
	ConversationHistory []chat.Turn `json:"conversationHistory"`
}

// ChatResponse is the success body of both chat routes.
type ChatResponse struct {
	Response string `json:"response"`
}

func handleChat(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req ChatRequest
		if !decodeChatBody(w, r, &req) {
			return
		}

		var p portfolio.Portfolio
		if req.Portfolio != nil {
			p = *req.Portfolio
		}
		relay(w, r, deps, chat.Request{Message: req.Message, Portfolio: p, History: req.ConversationHistory})
	}
}

func handlePortfolioChat(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req PortfolioChatRequest
		if !decodeChatBody(w, r, &req) {
			return
		}

		p, err := deps.Portfolios.Get(r.Context(), chi.URLParam(r, "username"))
		if err != nil {
			portfolioError(w, err)
			return
		}
		relay(w, r, deps, chat.Request{Message: req.Message, Portfolio: p, History: req.ConversationHistory})
	}
}

// decodeChatBody reads a chat request. An unreadable body is an internal
// error on the chat routes; only the message and key checks answer 400.
func decodeChatBody(w http.ResponseWriter, r *http.Request, v any) bool {
	err := decodeBody(w, r, v)
	if err == nil {
		return true
	}
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		httpError(w, http.StatusRequestEntityTooLarge, "Request body too large")
		return false
	}
	slog.Error("chat API error", "error", err, "request_id", r.Header.Get(requestIDHeader))
	httpError(w, http.StatusInternalServerError, "%s", chat.PublicMessage(err))
	return false
}

func relay(w http.ResponseWriter, r *http.Request, deps Deps, req chat.Request) {
	text, err := deps.Relay.Reply(r.Context(), req)
	if err != nil {
		code := chat.StatusCode(err)
		if code == http.StatusInternalServerError && !errors.Is(err, chat.ErrInvalidResponse) {
			slog.Error("chat API error", "error", err, "request_id", r.Header.Get(requestIDHeader))
		}
		httpError(w, code, "%s", chat.PublicMessage(err))
		return
	}
	writeJSON(w, http.StatusOK, ChatResponse{Response: text})
}
