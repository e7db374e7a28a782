package engine

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/germanamz/agentic/pkg/agent"
	"github.com/germanamz/agentic/pkg/chats/chat"
	"github.com/germanamz/agentic/pkg/chats/content"
	"github.com/germanamz/agentic/pkg/chats/message"
	"github.com/germanamz/agentic/pkg/chats/role"
	"github.com/germanamz/agentic/pkg/modeladapter"
	"github.com/germanamz/agentic/pkg/tools/mcpserver"
	"github.com/germanamz/agentic/pkg/tools/toolbox"
	"github.com/germanamz/agentic/pkg/transcript"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scriptedClient replays actions in order.
type scriptedClient struct {
	mu      sync.Mutex
	actions []modeladapter.Action
	index   int
	tools   []string
}

func (s *scriptedClient) Next(_ context.Context, _ *chat.Chat, tools []toolbox.Tool) (modeladapter.Action, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.tools = s.tools[:0]
	for _, t := range tools {
		s.tools = append(s.tools, t.Name)
	}

	if s.index >= len(s.actions) {
		return nil, errors.New("no more actions")
	}
	a := s.actions[s.index]
	s.index++
	return a, nil
}

func final(text string) modeladapter.Action {
	return modeladapter.FinalAnswer{Reply: message.NewText(role.Assistant, text), Text: text}
}

func callTool(id, name, args string) modeladapter.Action {
	tc := content.ToolCall{ID: id, Name: name, Arguments: args}
	return modeladapter.ToolRequest{Reply: message.New(role.Assistant, tc), Calls: []content.ToolCall{tc}}
}

func testConfig() Config {
	cfg := Defaults()
	cfg.Model.BaseURL = "http://inference.invalid"
	cfg.Model.Name = "granite-test"
	return cfg
}

func stockServer(t *testing.T) *httptest.Server {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasPrefix(r.URL.Path, "/v8/finance/chart/IBM"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"chart":{"result":[{"meta":{"regularMarketPrice":1},"indicators":{"quote":[{"close":[100.5,101.25]}]}}],"error":null}`))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	_, err := New(context.Background(), Defaults(), nil)
	assert.ErrorContains(t, err, "base_url is required")
}

func TestNewBuildsBuiltinRegistry(t *testing.T) {
	eng, err := New(context.Background(), testConfig(), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = eng.Close() })

	assert.Equal(t, []string{"duckduckgo_search", "python_repl", "get_stock_price"}, eng.ToolBox().Names())
	assert.Equal(t, "granite-test", eng.ModelName())
	assert.Equal(t, "granite-test", eng.Config().Model.Name)
	assert.NotNil(t, eng.MCPServer())
}

func TestNewHonoursDisabledTools(t *testing.T) {
	cfg := testConfig()
	cfg.Tools.REPL.Enabled = false
	cfg.Tools.Search.Enabled = false

	eng, err := NewWithClient(context.Background(), cfg, &scriptedClient{}, nil)
	require.NoError(t, err)

	assert.Equal(t, []string{"get_stock_price"}, eng.ToolBox().Names())
}

func TestAskFinalAnswer(t *testing.T) {
	client := &scriptedClient{actions: []modeladapter.Action{final("42")}}
	eng, err := NewWithClient(context.Background(), testConfig(), client, nil)
	require.NoError(t, err)

	res, err := eng.Ask(context.Background(), "meaning of life?", nil)
	require.NoError(t, err)
	assert.Equal(t, "42", res.Response())
	assert.Equal(t, agent.StopFinalAnswer, res.Stop)
	assert.NotEmpty(t, res.RunID)
}

func TestAskRunsStockTool(t *testing.T) {
	cfg := testConfig()
	cfg.Tools.Stock.BaseURL = stockServer(t).URL

	client := &scriptedClient{actions: []modeladapter.Action{
		callTool("c1", "get_stock_price", `{"ticker":"IBM"}`),
		final("IBM closed at $101.25."),
	}}
	eng, err := NewWithClient(context.Background(), cfg, client, nil)
	require.NoError(t, err)

	var fragments []transcript.Fragment
	res, err := eng.Ask(context.Background(), "IBM price?", func(f transcript.Fragment) {
		fragments = append(fragments, f)
	})
	require.NoError(t, err)

	require.Len(t, fragments, 2)
	assert.Equal(t, transcript.ToolCall, fragments[0].Kind)
	assert.Contains(t, fragments[0].Text, "get_stock_price")
	assert.Equal(t, transcript.FinalAnswer, fragments[1].Kind)
	assert.Equal(t, 1, res.ToolCalls)

	assert.True(t, strings.HasPrefix(res.Response(), "<tool_call>"))
	assert.True(t, strings.HasSuffix(res.Response(), "IBM closed at $101.25."))
}

func TestAskPublishesEvents(t *testing.T) {
	client := &scriptedClient{actions: []modeladapter.Action{final("done")}}
	eng, err := NewWithClient(context.Background(), testConfig(), client, nil)
	require.NoError(t, err)

	sub := eng.Events().Subscribe(64)
	defer eng.Events().Unsubscribe(sub)

	res, err := eng.Ask(context.Background(), "q", nil)
	require.NoError(t, err)

	var kinds []EventKind
	deadline := time.After(time.Second)
	for done := false; !done; {
		select {
		case ev := <-sub.C:
			assert.Equal(t, res.RunID, ev.RunID)
			kinds = append(kinds, ev.Kind)
			done = ev.Kind == EventRunEnd
		case <-deadline:
			t.Fatal("timed out waiting for run_end")
		}
	}

	assert.Equal(t, EventRunStart, kinds[0])
	assert.Contains(t, kinds, EventTransition)
	assert.Contains(t, kinds, EventFragment)
	assert.Equal(t, EventRunEnd, kinds[len(kinds)-1])
}

func TestAskPublishesErrors(t *testing.T) {
	client := modeladapter.ClientFunc(func(context.Context, *chat.Chat, []toolbox.Tool) (modeladapter.Action, error) {
		return nil, modeladapter.ErrUpstreamUnavailable
	})
	eng, err := NewWithClient(context.Background(), testConfig(), client, nil)
	require.NoError(t, err)

	sub := eng.Events().Subscribe(64)
	defer eng.Events().Unsubscribe(sub)

	_, err = eng.Ask(context.Background(), "q", nil)
	require.ErrorIs(t, err, modeladapter.ErrUpstreamUnavailable)

	var last Event
	for {
		select {
		case ev := <-sub.C:
			last = ev
			continue
		default:
		}
		break
	}
	assert.Equal(t, EventError, last.Kind)
}

func TestAskAppliesRequestTimeout(t *testing.T) {
	cfg := testConfig()
	cfg.Server.RequestTimeout = 20 * time.Millisecond

	client := modeladapter.ClientFunc(func(ctx context.Context, _ *chat.Chat, _ []toolbox.Tool) (modeladapter.Action, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	})
	eng, err := NewWithClient(context.Background(), cfg, client, nil)
	require.NoError(t, err)

	_, err = eng.Ask(context.Background(), "slow", nil)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestNewImportsMCPTools(t *testing.T) {
	served := toolbox.New()
	served.Register(toolbox.Tool{
		Name:        "weather",
		Description: "Reports the weather",
		InputSchema: json.RawMessage(`{"type":"object"}`),
		Handler: func(context.Context, json.RawMessage) (string, error) {
			return "sunny", nil
		},
	})
	srv := httptest.NewServer(mcpserver.New("upstream", "1.0.0", served).Handler())
	t.Cleanup(srv.Close)

	cfg := testConfig()
	cfg.MCPServers = []MCPServerConfig{{Name: "weather", URL: srv.URL}}

	client := &scriptedClient{actions: []modeladapter.Action{
		callTool("c1", "weather", `{}`),
		final("It is sunny."),
	}}
	eng, err := NewWithClient(context.Background(), cfg, client, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = eng.Close() })

	assert.Equal(t, []string{"duckduckgo_search", "python_repl", "get_stock_price", "weather"}, eng.ToolBox().Names())

	res, err := eng.Ask(context.Background(), "weather?", nil)
	require.NoError(t, err)
	assert.Equal(t, 1, res.ToolCalls)
	assert.Contains(t, client.tools, "weather")
}

func TestImportToolsWarnsOnReplacement(t *testing.T) {
	var logs strings.Builder
	log := slog.New(slog.NewTextHandler(&logs, nil))

	dst := toolbox.New()
	dst.Register(toolbox.Tool{Name: "get_stock_price", Description: "built-in"})

	src := toolbox.New()
	src.Register(
		toolbox.Tool{Name: "get_stock_price", Description: "remote"},
		toolbox.Tool{Name: "weather", Description: "remote"},
	)

	importTools(log, dst, "quotes", src)

	assert.Equal(t, []string{"get_stock_price", "weather"}, dst.Names())
	got, ok := dst.Get("get_stock_price")
	require.True(t, ok)
	assert.Equal(t, "remote", got.Description)

	out := logs.String()
	assert.Equal(t, 1, strings.Count(out, "mcp tool replaces registered tool"))
	assert.Contains(t, out, "server=quotes")
	assert.Contains(t, out, "tool=get_stock_price")
}

func TestNewFailsOnUnreachableMCPServer(t *testing.T) {
	cfg := testConfig()
	cfg.MCPServers = []MCPServerConfig{{Name: "missing", Command: "/no/such/mcp-server"}}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, err := NewWithClient(ctx, cfg, &scriptedClient{}, nil)
	assert.ErrorContains(t, err, `engine: mcp "missing"`)
}
