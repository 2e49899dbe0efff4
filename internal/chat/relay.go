// Package chat runs one conversational turn against the completion provider
// on behalf of a portfolio.
package chat

import (
	"context"
	"errors"
	"log/slog"

	"github.com/folio-hq/folio/internal/composer"
	"github.com/folio-hq/folio/internal/portfolio"
	"github.com/folio-hq/folio/internal/proxy"
)

const (
	// DefaultModel is the completion model used when none is configured.
	DefaultModel = "deepseek/deepseek-chat-v3-0324:free"
	// HistoryLimit is how many trailing history turns are forwarded.
	HistoryLimit = 5

	temperature = 0.7
	maxTokens   = 300
	topP        = 1
)

// Completer sends a single chat completion request using apiKey.
// Implemented by *proxy.Client.
type Completer interface {
	Complete(ctx context.Context, apiKey string, req proxy.ChatRequest) (*proxy.ChatResponse, error)
}

// Turn is a prior message in the conversation.
type Turn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Request is one visitor turn.
type Request struct {
	Message   string
	Portfolio portfolio.Portfolio
	History   []Turn
}

// Relay builds the context for a portfolio and forwards the conversation to
// the completion provider. It holds no per-call state and is safe for
// concurrent use.
type Relay struct {
	completer Completer
	builder   *composer.Builder
	model     string
}

// NewRelay creates a Relay. An empty model selects DefaultModel.
func NewRelay(completer Completer, builder *composer.Builder, model string) *Relay {
	if builder == nil {
		builder = composer.New(composer.Options{})
	}
	if model == "" {
		model = DefaultModel
	}
	return &Relay{completer: completer, builder: builder, model: model}
}

// Reply validates req, sends it upstream once and returns the completion
// text. Errors are classified for StatusCode and PublicMessage.
func (r *Relay) Reply(ctx context.Context, req Request) (string, error) {
	if req.Message == "" {
		return "", ErrMessageRequired
	}
	if !req.Portfolio.HasAPIKey() {
		return "", ErrAPIKeyMissing
	}

	resp, err := r.completer.Complete(ctx, req.Portfolio.OpenRouterAPIKey, r.completionRequest(req))
	if err != nil {
		var se *proxy.StatusError
		if errors.As(err, &se) {
			slog.Error("AI service error", "status", se.StatusCode, "body", se.Body, "username", req.Portfolio.Username)
			return "", &UpstreamError{Status: se.StatusCode}
		}
		slog.Error("chat relay failed", "error", err, "username", req.Portfolio.Username)
		return "", err
	}

	if len(resp.Choices) == 0 || resp.Choices[0].Message == nil {
		slog.Error("AI service returned no choices", "username", req.Portfolio.Username)
		return "", ErrInvalidResponse
	}
	return resp.Choices[0].Message.Content, nil
}

// ContextFor returns the system prompt Reply would send for p.
func (r *Relay) ContextFor(p portfolio.Portfolio) string {
	return r.builder.Build(p)
}

func (r *Relay) completionRequest(req Request) proxy.ChatRequest {
	history := req.History
	if len(history) > HistoryLimit {
		history = history[len(history)-HistoryLimit:]
	}

	msgs := make([]proxy.Message, 0, len(history)+2)
	msgs = append(msgs, proxy.Message{Role: "system", Content: r.builder.Build(req.Portfolio)})
	for _, t := range history {
		msgs = append(msgs, proxy.Message{Role: t.Role, Content: t.Content})
	}
	msgs = append(msgs, proxy.Message{Role: "user", Content: req.Message})

	return proxy.ChatRequest{
		Model:       r.model,
		Messages:    msgs,
		Temperature: temperature,
		MaxTokens:   maxTokens,
		TopP:        topP,
	}
}
