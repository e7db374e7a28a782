package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/germanamz/agentic/pkg/engine"
	"github.com/germanamz/agentic/pkg/transcript"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDotEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("AGENTIC_DOTENV_TEST=from-file\n"), 0o600))
	t.Cleanup(func() { _ = os.Unsetenv("AGENTIC_DOTENV_TEST") })

	require.NoError(t, loadDotEnv(path))
	assert.Equal(t, "from-file", os.Getenv("AGENTIC_DOTENV_TEST"))
}

func TestLoadDotEnvKeepsExisting(t *testing.T) {
	t.Setenv("AGENTIC_DOTENV_KEEP", "from-env")

	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("AGENTIC_DOTENV_KEEP=from-file\n"), 0o600))

	require.NoError(t, loadDotEnv(path))
	assert.Equal(t, "from-env", os.Getenv("AGENTIC_DOTENV_KEEP"))
}

func TestLoadDotEnvMissingFile(t *testing.T) {
	assert.NoError(t, loadDotEnv(filepath.Join(t.TempDir(), "nope.env")))
}

func TestRenderMarkdown(t *testing.T) {
	out := renderMarkdown("# Quote\n\nThe price is **$101.25**.", 80)
	assert.Contains(t, out, "$101.25")
	assert.Contains(t, out, "Quote")
	assert.False(t, strings.HasSuffix(out, "\n"))
}

func TestNewLoggerLevels(t *testing.T) {
	var buf bytes.Buffer

	newLogger(&buf, false).Debug("hidden")
	assert.Empty(t, buf.String())

	newLogger(&buf, true).Debug("shown", "error", errors.New("boom"))
	assert.Contains(t, buf.String(), "shown")
	assert.Contains(t, buf.String(), "boom")
}

func TestAskClient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/ask", r.URL.Path)

		var req map[string]string
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "what is IBM at?", req["query"])

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"response":"IBM is at $101.25."}`))
	}))
	t.Cleanup(srv.Close)

	c := &askClient{baseURL: srv.URL + "/", http: srv.Client()}
	answer, err := c.ask(context.Background(), "what is IBM at?")
	require.NoError(t, err)
	assert.Equal(t, "IBM is at $101.25.", answer)
}

func TestAskClientError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte(`{"error":{"code":"upstream_unavailable","message":"the inference server is unavailable"}}`))
	}))
	t.Cleanup(srv.Close)

	c := &askClient{baseURL: srv.URL, http: srv.Client()}
	_, err := c.ask(context.Background(), "q")

	var ae *askError
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, http.StatusBadGateway, ae.Status)
	assert.Equal(t, "upstream_unavailable", ae.Code)
	assert.Contains(t, err.Error(), "502")
}

func TestDefaultServerURL(t *testing.T) {
	t.Setenv("AGENTIC_SERVER_URL", "")
	t.Setenv("PORT", "9000")
	assert.Equal(t, "http://localhost:9000", defaultServerURL())

	t.Setenv("AGENTIC_SERVER_URL", "http://agent:8080")
	assert.Equal(t, "http://agent:8080", defaultServerURL())
}

func TestServeShutsDownOnCancel(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())

	srv := &http.Server{
		Addr: addr,
		Handler: http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusNoContent)
		}),
		ReadHeaderTimeout: time.Second,
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- serve(ctx, srv, slog.New(slog.DiscardHandler)) }()

	require.Eventually(t, func() bool {
		resp, err := http.Get("http://" + addr)
		if err != nil {
			return false
		}
		_ = resp.Body.Close()
		return resp.StatusCode == http.StatusNoContent
	}, 2*time.Second, 20*time.Millisecond)

	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("serve did not return after cancel")
	}
}

func TestLogEvents(t *testing.T) {
	var buf bytes.Buffer
	log := newLogger(&buf, true)

	bus := engine.NewEventBus()
	sub := bus.Subscribe(8)

	bus.Publish(engine.Event{Kind: engine.EventFragment, RunID: "r1", Data: transcript.Fragment{Kind: transcript.FinalAnswer, Text: "done"}})
	bus.Publish(engine.Event{Kind: engine.EventTransition, RunID: "r1", Data: engine.Transition{From: "start", To: "awaiting_model"}})
	bus.Unsubscribe(sub)

	logEvents(log, sub)

	out := buf.String()
	assert.Equal(t, 2, strings.Count(out, "engine event"))
	assert.Contains(t, out, "awaiting_model")
	assert.Contains(t, out, "done")
}
