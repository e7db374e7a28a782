// Package stock provides the get_stock_price tool, which reports the latest
// closing price of a ticker from the Yahoo Finance chart API.
package stock

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/germanamz/agentic/pkg/tools/toolbox"
	"github.com/tidwall/gjson"
)

// Name is the tool name exposed to the model.
const Name = "get_stock_price"

// DefaultBaseURL is the Yahoo Finance API host.
const DefaultBaseURL = "https://query1.finance.yahoo.com"

const userAgent = "Mozilla/5.0 (compatible; agentic/0.1)"

// ErrNoPrice is returned when the chart response holds no closing price.
var ErrNoPrice = errors.New("no closing price in response")

// Options configures a Stock.
type Options struct {
	BaseURL string       // API host (default DefaultBaseURL).
	Client  *http.Client // HTTP client (default: 15s timeout).
}

// Stock provides the get_stock_price tool.
type Stock struct {
	baseURL string
	client  *http.Client
}

// New creates a Stock with the given options.
func New(opts Options) *Stock {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if opts.Client == nil {
		opts.Client = &http.Client{Timeout: 15 * time.Second}
	}

	return &Stock{baseURL: strings.TrimRight(opts.BaseURL, "/"), client: opts.Client}
}

// Tools returns a ToolBox containing the get_stock_price tool.
func (s *Stock) Tools() *toolbox.ToolBox {
	tb := toolbox.New()
	tb.Register(s.priceTool())

	return tb
}

type priceInput struct {
	Ticker string `json:"ticker" jsonschema_description:"Ticker symbol, e.g. AAPL or IBM"`
}

func (s *Stock) priceTool() toolbox.Tool {
	return toolbox.Tool{
		Name:        Name,
		Description: "Fetch the latest stock price for a given ticker symbol.",
		InputSchema: toolbox.SchemaFor[priceInput](),
		Handler:     s.handlePrice,
	}
}

func (s *Stock) handlePrice(ctx context.Context, input json.RawMessage) (string, error) {
	var in priceInput
	if err := json.Unmarshal(input, &in); err != nil {
		return "", fmt.Errorf("%s: invalid input: %w", Name, err)
	}

	ticker := strings.TrimSpace(in.Ticker)
	if ticker == "" {
		return "", fmt.Errorf("%s: ticker is required", Name)
	}

	price, err := s.LastClose(ctx, ticker)
	if err != nil {
		return "", fmt.Errorf("Failed to retrieve stock price for %s. Error: %w", ticker, err) //nolint:stylecheck // text is shown to the model verbatim
	}

	return fmt.Sprintf("The latest closing price of %s is **$%.2f**.", ticker, price), nil
}

// LastClose returns the most recent non-null daily close for ticker over
// the last five days, which covers weekends and market holidays.
func (s *Stock) LastClose(ctx context.Context, ticker string) (float64, error) {
	u := fmt.Sprintf("%s/v8/finance/chart/%s?range=5d&interval=1d", s.baseURL, url.PathEscape(ticker))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return 0, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return 0, fmt.Errorf("read response: %w", err)
	}

	if !gjson.ValidBytes(body) {
		return 0, fmt.Errorf("unexpected status %d: response is not JSON", resp.StatusCode)
	}

	doc := gjson.ParseBytes(body)

	if desc := doc.Get("chart.error.description"); desc.Exists() && desc.String() != "" {
		return 0, errors.New(desc.String())
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return 0, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	closes := doc.Get("chart.result.0.indicators.quote.0.close").Array()
	for i := len(closes) - 1; i >= 0; i-- {
		if closes[i].Type == gjson.Number {
			return closes[i].Float(), nil
		}
	}

	if p := doc.Get("chart.result.0.meta.regularMarketPrice"); p.Type == gjson.Number {
		return p.Float(), nil
	}

	return 0, ErrNoPrice
}
