package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/folio-hq/folio/internal/config"
	"github.com/folio-hq/folio/internal/portfolio"
)

type recordedRequest struct {
	Method string
	Path   string
	Body   string
	Auth   string
}

type testServer struct {
	server *httptest.Server

	mu       sync.Mutex
	requests []recordedRequest
}

func newTestServer(t *testing.T, responses map[string]string) *testServer {
	t.Helper()
	ts := &testServer{}

	ts.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body bytes.Buffer
		body.ReadFrom(r.Body)

		ts.mu.Lock()
		ts.requests = append(ts.requests, recordedRequest{
			Method: r.Method,
			Path:   r.URL.RequestURI(),
			Body:   body.String(),
			Auth:   r.Header.Get("Authorization"),
		})
		ts.mu.Unlock()

		key := r.Method + " " + r.URL.Path
		if resp, ok := responses[key]; ok {
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(resp))
			return
		}

		w.WriteHeader(404)
		w.Write([]byte(`{"error":"Portfolio not found"}`))
	}))

	t.Cleanup(ts.server.Close)
	return ts
}

func (ts *testServer) client() *apiClient {
	return &apiClient{
		baseURL:    ts.server.URL,
		token:      "test-token",
		httpClient: ts.server.Client(),
	}
}

func (ts *testServer) recorded() []recordedRequest {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	return append([]recordedRequest(nil), ts.requests...)
}

var ctx = context.Background()

func TestPortfolioInit(t *testing.T) {
	ts := newTestServer(t, map[string]string{
		"POST /api/portfolios": `{"success":true,"created":true,"portfolio":{"username":"ada","email":"ada@example.com"}}`,
	})

	result, err := initPortfolio(ctx, ts.client(), "ada", "ada@example.com")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.Created || result.Portfolio.Username != "ada" {
		t.Errorf("result = %+v", result)
	}

	reqs := ts.recorded()
	if len(reqs) != 1 {
		t.Fatalf("expected 1 request, got %d", len(reqs))
	}
	r := reqs[0]
	if r.Auth != "Bearer test-token" {
		t.Errorf("auth = %q, want Bearer test-token", r.Auth)
	}
	var body map[string]string
	if err := json.Unmarshal([]byte(r.Body), &body); err != nil {
		t.Fatalf("body parse error: %v", err)
	}
	if body["username"] != "ada" || body["email"] != "ada@example.com" {
		t.Errorf("body = %v", body)
	}
}

func TestPortfolioInit_MissingEmail(t *testing.T) {
	defer rootCmd.SetArgs(nil)

	rootCmd.SetArgs([]string{"portfolio", "init", "ada"})
	err := rootCmd.Execute()
	if err == nil {
		t.Fatal("expected error for missing --email")
	}
	if !strings.Contains(err.Error(), "required") {
		t.Errorf("error = %q, want it to mention 'required'", err.Error())
	}
}

func TestChat_MissingArgs(t *testing.T) {
	defer rootCmd.SetArgs(nil)

	rootCmd.SetArgs([]string{"chat", "ada"})
	if err := rootCmd.Execute(); err == nil {
		t.Fatal("expected error when the message is missing")
	}
}

func TestFetchPortfolio(t *testing.T) {
	ts := newTestServer(t, map[string]string{
		"GET /api/portfolios/ada": `{"success":true,"portfolio":{"username":"ada","email":"ada@example.com","fullName":"Ada Lovelace"}}`,
	})

	p, err := fetchPortfolio(ctx, ts.client(), "ada")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.FullName != "Ada Lovelace" {
		t.Errorf("FullName = %q", p.FullName)
	}
}

func TestFetchPortfolio_NotFound(t *testing.T) {
	ts := newTestServer(t, map[string]string{})

	_, err := fetchPortfolio(ctx, ts.client(), "nobody")
	if err == nil {
		t.Fatal("expected error for unknown portfolio")
	}
	if !strings.Contains(err.Error(), "404: Portfolio not found") {
		t.Errorf("error = %q", err.Error())
	}
}

func TestPortfolioPath_Escapes(t *testing.T) {
	if got := portfolioPath("a b", "chat"); got != "/api/portfolios/a%20b/chat" {
		t.Errorf("portfolioPath = %q", got)
	}
}

func TestSetKey_SendsPatch(t *testing.T) {
	ts := newTestServer(t, map[string]string{
		"PATCH /api/portfolios/ada": `{"success":true,"message":"Portfolio updated successfully","portfolio":{"username":"ada"}}`,
	})

	key := "sk-or-xyz"
	if _, err := updatePortfolio(ctx, ts.client(), "ada", portfolio.Patch{OpenRouterAPIKey: &key}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	reqs := ts.recorded()
	if len(reqs) != 1 || reqs[0].Method != "PATCH" {
		t.Fatalf("requests = %+v", reqs)
	}
	var body map[string]any
	if err := json.Unmarshal([]byte(reqs[0].Body), &body); err != nil {
		t.Fatalf("body parse error: %v", err)
	}
	if len(body) != 1 || body["openRouterApiKey"] != "sk-or-xyz" {
		t.Errorf("body = %v, want only openRouterApiKey", body)
	}
}

func TestReadPatchFile_YAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ada.yaml")
	content := `
username: ignored
fullName: Ada Lovelace
bio: First programmer
skills:
  - name: Mathematics
    confidence: 98
    top: true
experiences:
  - title: Analyst
    companyName: Analytical Engine
    startDate: "1842-01-01"
    endDate: PRESENT
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	patch, err := readPatchFile(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if patch.FullName == nil || *patch.FullName != "Ada Lovelace" {
		t.Errorf("FullName = %v", patch.FullName)
	}
	if patch.Skills == nil || len(*patch.Skills) != 1 || (*patch.Skills)[0].Confidence != 98 {
		t.Errorf("Skills = %+v", patch.Skills)
	}
	if patch.Experiences == nil || (*patch.Experiences)[0].EndDate != portfolio.Present {
		t.Errorf("Experiences = %+v", patch.Experiences)
	}
	if patch.City != nil {
		t.Errorf("City should be untouched, got %q", *patch.City)
	}
}

func TestReadPatchFile_JSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ada.json")
	if err := os.WriteFile(path, []byte(`{"city":"London","socialLinks":[{"name":"github","url":"https://github.com/ada"}]}`), 0o644); err != nil {
		t.Fatal(err)
	}

	patch, err := readPatchFile(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if patch.City == nil || *patch.City != "London" {
		t.Errorf("City = %v", patch.City)
	}
	if patch.SocialLinks == nil || (*patch.SocialLinks)[0].URL != "https://github.com/ada" {
		t.Errorf("SocialLinks = %+v", patch.SocialLinks)
	}
}

func TestReadPatchFile_Empty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.yaml")
	if err := os.WriteFile(path, []byte("username: ada\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := readPatchFile(path); err == nil {
		t.Fatal("expected error for file without updatable fields")
	}
}

func TestFetchContext(t *testing.T) {
	ts := newTestServer(t, map[string]string{
		"GET /api/portfolios/ada/context": `{"username":"ada","context":"You are a professional AI assistant for *Ada*"}`,
	})

	text, err := fetchContext(ctx, ts.client(), "ada")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.HasPrefix(text, "You are a professional AI assistant") {
		t.Errorf("context = %q", text)
	}
}

func TestSendChat(t *testing.T) {
	ts := newTestServer(t, map[string]string{
		"POST /api/portfolios/ada/chat": `{"response":"See *Engine* at #site|https://ada.dev#"}`,
	})

	reply, err := sendChat(ctx, ts.client(), "ada", "What did Ada build?")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if reply != "See *Engine* at #site|https://ada.dev#" {
		t.Errorf("reply = %q", reply)
	}

	var body map[string]any
	if err := json.Unmarshal([]byte(ts.recorded()[0].Body), &body); err != nil {
		t.Fatalf("body parse error: %v", err)
	}
	if body["message"] != "What did Ada build?" {
		t.Errorf("body.message = %v", body["message"])
	}
}

func TestSendChat_ErrorMessage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":"OpenRouter API key is not configured for this portfolio"}`))
	}))
	defer srv.Close()

	client := &apiClient{baseURL: srv.URL, httpClient: srv.Client()}
	_, err := sendChat(ctx, client, "ada", "hi")
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "API key is not configured") {
		t.Errorf("error = %q", err.Error())
	}
}

func TestRenderReply(t *testing.T) {
	old := noColor
	defer func() { noColor = old }()
	noColor = true

	got := renderReply("See *Engine* at #site|https://ada.dev#.")
	if want := "See Engine at site (https://ada.dev)."; got != want {
		t.Errorf("renderReply = %q, want %q", got, want)
	}
}

func TestCheckHealth(t *testing.T) {
	ts := newTestServer(t, map[string]string{
		"GET /health": `{"status":"ok","storage":"ok"}`,
	})

	hs, code, err := checkHealth(ctx, ts.client())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if code != 200 || hs.Status != "ok" {
		t.Errorf("health = %+v (HTTP %d)", hs, code)
	}
}

func TestCheckHealth_Degraded(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte(`{"status":"degraded","storage":"connection refused"}`))
	}))
	defer srv.Close()

	hs, code, err := checkHealth(ctx, &apiClient{baseURL: srv.URL, httpClient: srv.Client()})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if code != http.StatusServiceUnavailable || hs.Status != "degraded" {
		t.Errorf("health = %+v (HTTP %d)", hs, code)
	}
}

func TestCheckHealth_Stopped(t *testing.T) {
	ts := newTestServer(t, map[string]string{})
	ts.server.Close()

	_, code, err := checkHealth(ctx, ts.client())
	if err == nil {
		t.Fatal("expected error for stopped server")
	}
	if code != 0 {
		t.Errorf("code = %d, want 0", code)
	}
	if !strings.Contains(err.Error(), "not reachable") {
		t.Errorf("error = %q, want it to mention 'not reachable'", err.Error())
	}
}

func TestNoColorFlag(t *testing.T) {
	old := noColor
	defer func() { noColor = old }()

	noColor = true
	result := colorize(colorGreen, "test message")
	if strings.Contains(result, "\033[") {
		t.Errorf("colorize with noColor=true should not contain ANSI codes, got %q", result)
	}
	if result != "test message" {
		t.Errorf("result = %q, want %q", result, "test message")
	}

	noColor = false
	result = colorize(colorGreen, "test message")
	if !strings.Contains(result, "\033[") {
		t.Errorf("colorize with noColor=false should contain ANSI codes, got %q", result)
	}
}

func TestResolveServerURL(t *testing.T) {
	old := serverURL
	defer func() { serverURL = old }()

	cfg := config.Config{}
	cfg.Server.Port = 4000

	serverURL = ""
	if got := resolveServerURL(cfg); got != "http://127.0.0.1:4000" {
		t.Errorf("resolveServerURL = %q", got)
	}
	serverURL = "https://folio.example/"
	if got := resolveServerURL(cfg); got != "https://folio.example" {
		t.Errorf("resolveServerURL = %q", got)
	}
}

func TestConfigShowAll(t *testing.T) {
	cfg := config.Config{}
	cfg.Server.Port = 4000
	cfg.Chat.Model = "deepseek/deepseek-chat-v3-0324:free"

	keys := config.ShowAll(cfg)
	if len(keys) == 0 {
		t.Fatal("expected non-empty keys from ShowAll")
	}

	found := false
	for _, k := range keys {
		if k.Key == "server.port" && k.Value == "4000" {
			found = true
		}
	}
	if !found {
		t.Error("expected to find server.port=4000 in ShowAll output")
	}
}

func TestWritePortfolio_YAML(t *testing.T) {
	var buf bytes.Buffer
	p := portfolio.New("ada", "ada@example.com")
	p.FullName = "Ada Lovelace"

	if err := writePortfolio(&buf, p, "yaml"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(buf.String(), "fullName: Ada Lovelace") {
		t.Errorf("yaml output = %q", buf.String())
	}
	if err := writePortfolio(&buf, p, "toml"); err == nil {
		t.Error("expected error for unknown format")
	}
}
