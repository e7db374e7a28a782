package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"
)

// askClient talks to a running server's /ask endpoint.
type askClient struct {
	baseURL string
	http    *http.Client
}

type askError struct {
	Status  int
	Code    string
	Message string
}

func (e *askError) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("server returned %d", e.Status)
	}
	return fmt.Sprintf("server returned %d (%s): %s", e.Status, e.Code, e.Message)
}

func (c *askClient) ask(ctx context.Context, query string) (string, error) {
	body, err := json.Marshal(map[string]string{"query": query})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, strings.TrimRight(c.baseURL, "/")+"/ask", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("ask: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var e struct {
			Error struct {
				Code    string `json:"code"`
				Message string `json:"message"`
			} `json:"error"`
		}
		_ = json.Unmarshal(raw, &e)
		return "", &askError{Status: resp.StatusCode, Code: e.Error.Code, Message: e.Error.Message}
	}

	var out struct {
		Response string `json:"response"`
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}

	return out.Response, nil
}

func defaultServerURL() string {
	if u := os.Getenv("AGENTIC_SERVER_URL"); u != "" {
		return u
	}
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	return "http://localhost:" + port
}

func runAsk(args []string) error {
	fs := flag.NewFlagSet("ask", flag.ExitOnError)
	envFile := fs.String("env", ".env", "path to .env file (ignored if missing)")
	server := fs.String("server", "", "server base URL (default $AGENTIC_SERVER_URL or http://localhost:$PORT)")
	raw := fs.Bool("raw", false, "print the response without markdown rendering")
	width := fs.Int("width", 100, "word wrap width for rendered output")
	timeout := fs.Duration("timeout", 6*time.Minute, "overall request timeout")
	_ = fs.Parse(args)

	query := strings.TrimSpace(strings.Join(fs.Args(), " "))
	if query == "" {
		return errors.New("ask: a query is required")
	}

	if err := loadDotEnv(*envFile); err != nil {
		return err
	}

	baseURL := *server
	if baseURL == "" {
		baseURL = defaultServerURL()
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	c := &askClient{baseURL: baseURL, http: &http.Client{Timeout: *timeout}}
	answer, err := c.ask(ctx, query)
	if err != nil {
		return err
	}

	if *raw {
		fmt.Println(answer)
		return nil
	}
	fmt.Println(renderMarkdown(answer, *width))
	return nil
}
