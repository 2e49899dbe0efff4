package proxy

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func testRequest() ChatRequest {
	return ChatRequest{
		Model:       "deepseek/deepseek-chat-v3-0324:free",
		Messages:    []Message{{Role: "user", Content: "hi"}},
		Temperature: 0.7,
		MaxTokens:   300,
		TopP:        1,
	}
}

func TestComplete_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("path = %q, want /chat/completions", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"id":"gen-1","choices":[{"message":{"role":"assistant","content":"Hello!"}}]}`)
	}))
	defer srv.Close()

	c := NewClientWithBaseURL(srv.URL)
	resp, err := c.Complete(context.Background(), "test-key", testRequest())
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if len(resp.Choices) != 1 || resp.Choices[0].Message == nil {
		t.Fatalf("choices = %+v", resp.Choices)
	}
	if got := resp.Choices[0].Message.Content; got != "Hello!" {
		t.Errorf("content = %q, want %q", got, "Hello!")
	}
}

func TestComplete_Headers(t *testing.T) {
	var got http.Header
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Clone()
		fmt.Fprint(w, `{"choices":[]}`)
	}))
	defer srv.Close()

	c := NewClient(Options{BaseURL: srv.URL, Referer: "https://folio.example"})
	if _, err := c.Complete(context.Background(), "sk-or-123", testRequest()); err != nil {
		t.Fatalf("Complete: %v", err)
	}

	checks := map[string]string{
		"Authorization": "Bearer sk-or-123",
		"Content-Type":  "application/json",
		"HTTP-Referer":  "https://folio.example",
		"X-Title":       "Portfolio Assistant",
	}
	for k, want := range checks {
		if v := got.Get(k); v != want {
			t.Errorf("%s = %q, want %q", k, v, want)
		}
	}
}

func TestComplete_RequestBody(t *testing.T) {
	var body map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decoding body: %v", err)
		}
		fmt.Fprint(w, `{"choices":[]}`)
	}))
	defer srv.Close()

	if _, err := NewClientWithBaseURL(srv.URL).Complete(context.Background(), "k", testRequest()); err != nil {
		t.Fatalf("Complete: %v", err)
	}

	want := map[string]any{
		"temperature":       0.7,
		"max_tokens":        float64(300),
		"top_p":             float64(1),
		"frequency_penalty": float64(0),
		"presence_penalty":  float64(0),
	}
	for k, v := range want {
		if body[k] != v {
			t.Errorf("body[%s] = %v, want %v", k, body[k], v)
		}
	}
}

func TestComplete_StatusError_NoRetry(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusTooManyRequests)
		fmt.Fprint(w, `{"error":{"message":"slow down"}}`)
	}))
	defer srv.Close()

	_, err := NewClientWithBaseURL(srv.URL).Complete(context.Background(), "k", testRequest())
	var se *StatusError
	if !errors.As(err, &se) {
		t.Fatalf("err = %v, want *StatusError", err)
	}
	if se.StatusCode != http.StatusTooManyRequests {
		t.Errorf("StatusCode = %d, want 429", se.StatusCode)
	}
	if se.Body != `{"error":{"message":"slow down"}}` {
		t.Errorf("Body = %q", se.Body)
	}
	if n := calls.Load(); n != 1 {
		t.Errorf("calls = %d, want exactly 1", n)
	}
}

func TestComplete_Timeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	c := NewClient(Options{BaseURL: srv.URL, Timeout: 50 * time.Millisecond})
	_, err := c.Complete(context.Background(), "k", testRequest())
	var se *StatusError
	if !errors.As(err, &se) {
		t.Fatalf("err = %v, want *StatusError", err)
	}
	if se.StatusCode != http.StatusGatewayTimeout {
		t.Errorf("StatusCode = %d, want 504", se.StatusCode)
	}
}

func TestComplete_MalformedJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `not json`)
	}))
	defer srv.Close()

	_, err := NewClientWithBaseURL(srv.URL).Complete(context.Background(), "k", testRequest())
	if err == nil {
		t.Fatal("expected error for malformed body")
	}
	var se *StatusError
	if errors.As(err, &se) {
		t.Errorf("decode failure should not be a StatusError: %v", err)
	}
}

func TestComplete_ContextCancellation(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.Copy(io.Discard, r.Body)
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	_, err := NewClientWithBaseURL(srv.URL).Complete(ctx, "k", testRequest())
	if !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}
