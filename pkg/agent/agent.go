// Package agent runs the tool-augmented reasoning loop: it sends the
// conversation to a model client, executes the tools the model asks for and
// feeds their results back until the model answers or a budget runs out.
//
// Each Run owns its conversation, transcript and counters. An Agent only
// holds read-only collaborators, so concurrent runs are independent.
package agent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"math/rand"
	"time"

	"github.com/germanamz/agentic/pkg/agentctx"
	"github.com/germanamz/agentic/pkg/chats/chat"
	"github.com/germanamz/agentic/pkg/chats/content"
	"github.com/germanamz/agentic/pkg/chats/message"
	"github.com/germanamz/agentic/pkg/chats/role"
	"github.com/germanamz/agentic/pkg/modeladapter"
	"github.com/germanamz/agentic/pkg/modeladapter/usage"
	"github.com/germanamz/agentic/pkg/tools/toolbox"
	"github.com/germanamz/agentic/pkg/transcript"
	"github.com/google/uuid"
)

// Defaults applied by New to zero Options fields.
const (
	DefaultMaxToolCalls   = 10
	DefaultMaxSteps       = 25
	DefaultToolTimeout    = 30 * time.Second
	DefaultRetryBaseDelay = time.Second
)

// errLoopBudgetExceeded stops a run when the tool invocation budget is spent.
// It never leaves the package; callers see StopToolBudget instead.
var errLoopBudgetExceeded = errors.New("agent: tool invocation budget exceeded")

// StopReason tells why a run ended without error.
type StopReason string

const (
	StopFinalAnswer StopReason = "final_answer"
	StopToolBudget  StopReason = "tool_budget"
	StopStepBudget  StopReason = "step_budget"
)

// Options configures an Agent.
type Options struct {
	SystemPrompt   string        // Prepended to every run when non-empty.
	MaxToolCalls   int           // Tool invocations per run (default 10).
	MaxSteps       int           // Model calls per run (default 25, at least MaxToolCalls+1).
	ToolTimeout    time.Duration // Deadline for each tool invocation (default 30s).
	MaxRetries     int           // Retries of a failed model call; only upstream errors are retried.
	RetryBaseDelay time.Duration // First retry delay, doubled per attempt (default 1s).
	Middleware     []Middleware  // Applied around Run; the first is outermost.

	// OnFragment is called synchronously for every transcript fragment as it
	// is recorded.
	OnFragment func(transcript.Fragment)
	// OnTransition is called synchronously on every state change.
	OnTransition func(from, to State)
}

// Result is the outcome of a run that ended without error.
type Result struct {
	RunID      string
	Transcript *transcript.Transcript
	Stop       StopReason
	Steps      int
	ToolCalls  int
	Usage      usage.TokenCount
}

// Response renders the transcript into the response text.
func (r Result) Response() string {
	if r.Transcript == nil {
		return ""
	}
	return r.Transcript.Render()
}

// Agent runs the loop against a model client and a tool registry.
type Agent struct {
	client  modeladapter.Client
	tools   *toolbox.ToolBox
	options Options
	log     *slog.Logger

	sleep func(ctx context.Context, d time.Duration) error
	rand  func() float64
}

// New creates an Agent. A nil tools registry means no tools; a nil logger
// discards output.
func New(client modeladapter.Client, tools *toolbox.ToolBox, opts Options, log *slog.Logger) *Agent {
	if tools == nil {
		tools = toolbox.New()
	}
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	if opts.MaxToolCalls <= 0 {
		opts.MaxToolCalls = DefaultMaxToolCalls
	}
	if opts.MaxSteps <= 0 {
		opts.MaxSteps = DefaultMaxSteps
	}
	if opts.MaxSteps <= opts.MaxToolCalls {
		opts.MaxSteps = opts.MaxToolCalls + 1
	}
	if opts.ToolTimeout <= 0 {
		opts.ToolTimeout = DefaultToolTimeout
	}
	if opts.RetryBaseDelay <= 0 {
		opts.RetryBaseDelay = DefaultRetryBaseDelay
	}
	if opts.MaxRetries < 0 {
		opts.MaxRetries = 0
	}

	return &Agent{
		client:  client,
		tools:   tools,
		options: opts,
		log:     log,
		sleep:   contextSleep,
		rand:    rand.Float64,
	}
}

// Options returns the effective options after defaults.
func (a *Agent) Options() Options { return a.options }

// ToolBox returns the registry the agent invokes.
func (a *Agent) ToolBox() *toolbox.ToolBox { return a.tools }

// Run answers query. It returns a Result with a nil error when the model
// produced a final answer or a budget stopped the loop. Upstream failures
// that survive the retry policy and context cancellation return an error
// and no transcript.
func (a *Agent) Run(ctx context.Context, query string) (Result, error) {
	runID := uuid.NewString()
	ctx = agentctx.WithRunID(ctx, runID)

	var runner Runner = RunnerFunc(a.run)

	// Apply middleware in reverse order so the first middleware is outermost.
	for i := len(a.options.Middleware) - 1; i >= 0; i-- {
		runner = a.options.Middleware[i](runner)
	}

	return runner.Run(ctx, query)
}

// run is the loop itself.
func (a *Agent) run(ctx context.Context, query string) (Result, error) {
	r := newRun(a, agentctx.RunIDFromContext(ctx))
	r.seed(query)

	tools := a.tools.Tools()

	for {
		if err := ctx.Err(); err != nil {
			return Result{}, fmt.Errorf("agent: %w", err)
		}

		if r.steps >= a.options.MaxSteps {
			return r.finish(StopStepBudget), nil
		}

		r.transition(StateAwaitingModel)

		action, err := a.next(ctx, r.chat, tools)
		if err != nil {
			return Result{}, fmt.Errorf("agent: step %d: %w", r.steps+1, err)
		}

		r.steps++
		if tc, ok := usage.FromMessage(action.Message()); ok {
			r.usage.Add(tc)
		}

		switch act := action.(type) {
		case modeladapter.FinalAnswer:
			a.log.DebugContext(ctx, "final answer", "run_id", r.id, "step", r.steps)
			r.record(transcript.FinalAnswer, act.Text)
			r.chat.Append(act.Reply)

			return r.finish(StopFinalAnswer), nil

		case modeladapter.Reasoning:
			a.log.DebugContext(ctx, "reasoning", "run_id", r.id, "step", r.steps, "text", act.Text)
			r.record(transcript.Reasoning, act.Text)
			r.chat.Append(act.Reply)

		case modeladapter.ToolRequest:
			a.log.DebugContext(ctx, "tool request", "run_id", r.id, "step", r.steps, "calls", len(act.Calls))
			if act.Thought != "" {
				r.record(transcript.Reasoning, act.Thought)
			}

			calls, reply := r.assignCallIDs(act.Calls, act.Reply)
			r.chat.Append(reply)

			if err := r.executeTools(ctx, calls); err != nil {
				if errors.Is(err, errLoopBudgetExceeded) {
					a.log.InfoContext(ctx, "tool budget reached", "run_id", r.id, "tool_calls", r.toolCalls)
					return r.finish(StopToolBudget), nil
				}
				return Result{}, err
			}

			if r.toolCalls >= a.options.MaxToolCalls {
				a.log.InfoContext(ctx, "tool budget reached", "run_id", r.id, "tool_calls", r.toolCalls)
				return r.finish(StopToolBudget), nil
			}

		default:
			return Result{}, fmt.Errorf("agent: unsupported action %T", action)
		}
	}
}

// next asks the client for the next action, retrying upstream failures.
func (a *Agent) next(ctx context.Context, c *chat.Chat, tools []toolbox.Tool) (modeladapter.Action, error) {
	for attempt := 0; ; attempt++ {
		action, err := a.client.Next(ctx, c, tools)
		if err == nil {
			return action, nil
		}

		if attempt >= a.options.MaxRetries || ctx.Err() != nil || !errors.Is(err, modeladapter.ErrUpstreamUnavailable) {
			return nil, err
		}

		delay := a.backoff(attempt, err)
		a.log.WarnContext(ctx, "model call failed, retrying",
			"run_id", agentctx.RunIDFromContext(ctx),
			"attempt", attempt+1,
			"delay", delay,
			"error", err,
		)

		if err := a.sleep(ctx, delay); err != nil {
			return nil, err
		}
	}
}

// backoff returns RetryBaseDelay * 2^attempt, or the server's Retry-After
// when larger, with ±25% jitter.
func (a *Agent) backoff(attempt int, err error) time.Duration {
	d := a.options.RetryBaseDelay * time.Duration(math.Pow(2, float64(attempt))) //nolint:mnd // exponential backoff formula

	var rle *modeladapter.RateLimitError
	if errors.As(err, &rle) {
		d = max(d, rle.RetryAfter)
	}

	factor := 0.75 + a.rand()*0.5 //nolint:mnd // jitter range: ±25%

	return time.Duration(float64(d) * factor)
}

// contextSleep sleeps for d or until ctx is cancelled.
func contextSleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// run is the state of one Run call.
type run struct {
	agent      *Agent
	id         string
	chat       *chat.Chat
	transcript *transcript.Transcript
	state      State
	steps      int
	toolCalls  int
	usage      usage.Tracker
	seenIDs    map[string]struct{}
}

func newRun(a *Agent, id string) *run {
	return &run{
		agent:      a,
		id:         id,
		chat:       chat.New(),
		transcript: transcript.New(),
		state:      StateStart,
		seenIDs:    make(map[string]struct{}),
	}
}

func (r *run) seed(query string) {
	if p := r.agent.options.SystemPrompt; p != "" {
		r.chat.Append(message.NewText(role.System, p))
	}
	r.chat.Append(message.NewText(role.User, query))
}

func (r *run) transition(to State) {
	if r.state == to {
		return
	}

	from := r.state
	r.state = to

	if fn := r.agent.options.OnTransition; fn != nil {
		fn(from, to)
	}
}

func (r *run) record(kind transcript.Kind, text string) {
	if !r.transcript.Add(kind, text) {
		return
	}

	if fn := r.agent.options.OnFragment; fn != nil {
		fn(transcript.Fragment{Kind: kind, Text: text})
	}
}

func (r *run) finish(stop StopReason) Result {
	r.transition(StateDone)
	r.transcript.Freeze()

	return Result{
		RunID:      r.id,
		Transcript: r.transcript,
		Stop:       stop,
		Steps:      r.steps,
		ToolCalls:  r.toolCalls,
		Usage:      r.usage.Total(),
	}
}

// assignCallIDs gives every call an id that is unique within the run and
// rewrites reply so the conversation carries the same ids.
func (r *run) assignCallIDs(calls []content.ToolCall, reply message.Message) ([]content.ToolCall, message.Message) {
	out := make([]content.ToolCall, len(calls))
	changed := false

	for i, tc := range calls {
		if _, dup := r.seenIDs[tc.ID]; tc.ID == "" || dup {
			tc.ID = "call_" + uuid.NewString()
			changed = true
		}
		r.seenIDs[tc.ID] = struct{}{}
		out[i] = tc
	}

	if !changed {
		return out, reply
	}

	parts := make([]content.Part, 0, len(reply.Parts))
	next := 0
	for _, p := range reply.Parts {
		if _, ok := p.(content.ToolCall); ok && next < len(out) {
			parts = append(parts, out[next])
			next++
			continue
		}
		parts = append(parts, p)
	}

	rewritten := message.New(reply.Role, parts...)
	for k, v := range reply.Metadata {
		rewritten.SetMeta(k, v)
	}

	return out, rewritten
}

// executeTools runs calls sequentially. It returns errLoopBudgetExceeded as
// soon as a call would exceed the budget; calls before it have completed and
// their results are in the conversation.
func (r *run) executeTools(ctx context.Context, calls []content.ToolCall) error {
	a := r.agent

	for _, tc := range calls {
		if r.toolCalls >= a.options.MaxToolCalls {
			return errLoopBudgetExceeded
		}

		r.record(transcript.ToolCall, transcript.FormatToolCall(tc.Name, tc.Arguments))
		r.transition(StateExecutingTool)

		start := time.Now()
		toolCtx, cancel := context.WithTimeout(ctx, a.options.ToolTimeout)
		result, err := a.tools.Invoke(toolCtx, tc)
		cancel()

		r.toolCalls++

		if errors.Is(err, toolbox.ErrUnknownTool) {
			a.log.WarnContext(ctx, "model requested unknown tool", "run_id", r.id, "tool", tc.Name)
		}

		a.log.InfoContext(ctx, "tool invoked",
			"run_id", r.id,
			"tool", tc.Name,
			"duration", time.Since(start),
			"failed", result.IsError,
		)

		r.chat.Append(message.NewToolResult(result))
	}

	return nil
}
