package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/folio-hq/folio/internal/chat"
	"github.com/folio-hq/folio/internal/portfolio"
	"github.com/folio-hq/folio/internal/proxy"
	"github.com/folio-hq/folio/internal/storage"
)

// --- helpers ---

func newTestMCPDeps(t *testing.T, upstream http.HandlerFunc) MCPDeps {
	t.Helper()
	store, err := storage.OpenSQLite(":memory:")
	if err != nil {
		t.Fatalf("opening store: %v", err)
	}
	t.Cleanup(func() { store.Close(context.Background()) })

	srv := httptest.NewServer(upstream)
	t.Cleanup(srv.Close)

	mgr := portfolio.NewManager(store)
	if _, _, err := mgr.Init(context.Background(), "ada", "ada@example.com"); err != nil {
		t.Fatalf("Init: %v", err)
	}
	key := "sk-mcp"
	name := "Ada Lovelace"
	if _, err := mgr.Update(context.Background(), "ada", portfolio.Patch{FullName: &name, OpenRouterAPIKey: &key}); err != nil {
		t.Fatalf("Update: %v", err)
	}

	return MCPDeps{
		Portfolios: mgr,
		Relay:      chat.NewRelay(proxy.NewClientWithBaseURL(srv.URL), nil, ""),
	}
}

func toolText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	if len(result.Content) == 0 {
		t.Fatal("no content in result")
	}
	tc, ok := result.Content[0].(mcp.TextContent)
	if !ok {
		t.Fatalf("expected TextContent, got %T", result.Content[0])
	}
	return tc.Text
}

func makeCallToolRequest(name string, args map[string]interface{}) mcp.CallToolRequest {
	return mcp.CallToolRequest{
		Params: mcp.CallToolParams{
			Name:      name,
			Arguments: args,
		},
	}
}

// --- tests ---

func TestMCPTool_GetPortfolio(t *testing.T) {
	deps := newTestMCPDeps(t, replyWith("unused"))

	result, err := mcpGetPortfolio(deps)(context.Background(), makeCallToolRequest("get_portfolio", map[string]interface{}{
		"username": "ADA",
	}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.IsError {
		t.Fatalf("unexpected tool error: %s", toolText(t, result))
	}

	text := toolText(t, result)
	if strings.Contains(text, "sk-mcp") {
		t.Fatal("API key leaked through get_portfolio")
	}
	var p portfolio.Portfolio
	if err := json.Unmarshal([]byte(text), &p); err != nil {
		t.Fatalf("parsing portfolio: %v", err)
	}
	if p.FullName != "Ada Lovelace" {
		t.Errorf("FullName = %q, want %q", p.FullName, "Ada Lovelace")
	}
}

func TestMCPTool_GetPortfolio_NotFound(t *testing.T) {
	deps := newTestMCPDeps(t, replyWith("unused"))

	result, err := mcpGetPortfolio(deps)(context.Background(), makeCallToolRequest("get_portfolio", map[string]interface{}{
		"username": "nobody",
	}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.IsError {
		t.Fatal("expected tool error for unknown portfolio")
	}
	if !strings.Contains(toolText(t, result), "not found") {
		t.Errorf("text = %q", toolText(t, result))
	}
}

func TestMCPTool_MissingUsername(t *testing.T) {
	deps := newTestMCPDeps(t, replyWith("unused"))

	for name, h := range map[string]func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error){
		"get_portfolio":     mcpGetPortfolio(deps),
		"portfolio_context": mcpPortfolioContext(deps),
		"ask_portfolio":     mcpAskPortfolio(deps),
	} {
		result, err := h(context.Background(), makeCallToolRequest(name, map[string]interface{}{}))
		if err != nil {
			t.Fatalf("%s: unexpected error: %v", name, err)
		}
		if !result.IsError {
			t.Errorf("%s: expected tool error without username", name)
		}
	}
}

func TestMCPTool_PortfolioContext(t *testing.T) {
	deps := newTestMCPDeps(t, replyWith("unused"))

	result, err := mcpPortfolioContext(deps)(context.Background(), makeCallToolRequest("portfolio_context", map[string]interface{}{
		"username": "ada",
	}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	text := toolText(t, result)
	if !strings.HasPrefix(text, "You are a professional AI assistant for *Ada Lovelace*") {
		t.Errorf("unexpected context prefix: %.80s", text)
	}
}

func TestMCPTool_AskPortfolio(t *testing.T) {
	var gotMessages atomic.Int32
	deps := newTestMCPDeps(t, func(w http.ResponseWriter, r *http.Request) {
		var req proxy.ChatRequest
		json.NewDecoder(r.Body).Decode(&req)
		gotMessages.Store(int32(len(req.Messages)))
		fmt.Fprint(w, `{"choices":[{"message":{"role":"assistant","content":"She wrote the first program."}}]}`)
	})

	result, err := mcpAskPortfolio(deps)(context.Background(), makeCallToolRequest("ask_portfolio", map[string]interface{}{
		"username": "ada",
		"message":  "What is Ada known for?",
		"history":  `[{"role":"user","content":"hello"},{"role":"assistant","content":"hi"}]`,
	}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.IsError {
		t.Fatalf("unexpected tool error: %s", toolText(t, result))
	}
	if got := toolText(t, result); got != "She wrote the first program." {
		t.Errorf("text = %q", got)
	}
	if n := gotMessages.Load(); n != 4 {
		t.Errorf("upstream messages = %d, want 4 (system + 2 history + user)", n)
	}
}

func TestMCPTool_AskPortfolio_BadHistory(t *testing.T) {
	deps := newTestMCPDeps(t, replyWith("unused"))

	result, _ := mcpAskPortfolio(deps)(context.Background(), makeCallToolRequest("ask_portfolio", map[string]interface{}{
		"username": "ada",
		"message":  "hi",
		"history":  `not json`,
	}))
	if !result.IsError || !strings.Contains(toolText(t, result), "invalid history JSON") {
		t.Errorf("expected invalid history error, got %+v", result)
	}
}

func TestMCPTool_AskPortfolio_UpstreamError(t *testing.T) {
	deps := newTestMCPDeps(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})

	result, _ := mcpAskPortfolio(deps)(context.Background(), makeCallToolRequest("ask_portfolio", map[string]interface{}{
		"username": "ada",
		"message":  "hi",
	}))
	if !result.IsError {
		t.Fatal("expected tool error")
	}
	if got := toolText(t, result); got != "Failed to get response from AI service" {
		t.Errorf("text = %q", got)
	}
}
