// Package repl provides the python_repl tool, which runs Python code in a
// local interpreter and returns what it printed.
//
// The code runs with the privileges of the service process. There is no
// sandbox; deployments that cannot trust the model should disable the tool.
package repl

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	osexec "os/exec"
	"strings"

	"github.com/germanamz/agentic/pkg/tools/toolbox"
)

// Name is the tool name exposed to the model.
const Name = "python_repl"

// DefaultInterpreter is the interpreter looked up on PATH.
const DefaultInterpreter = "python3"

// completionHint nudges the model to stop calling tools once it is done.
const completionHint = "If you have completed all tasks, respond with FINAL ANSWER."

// Options configures a REPL.
type Options struct {
	Interpreter string // Program to run (default DefaultInterpreter).
	WorkDir     string // Parent of the per-call scratch directories (default os.TempDir()).
}

// REPL provides the python_repl tool.
type REPL struct {
	interpreter string
	workDir     string
}

// New creates a REPL with the given options.
func New(opts Options) *REPL {
	if opts.Interpreter == "" {
		opts.Interpreter = DefaultInterpreter
	}

	return &REPL{interpreter: opts.Interpreter, workDir: opts.WorkDir}
}

// Tools returns a ToolBox containing the python_repl tool.
func (r *REPL) Tools() *toolbox.ToolBox {
	tb := toolbox.New()
	tb.Register(r.replTool())

	return tb
}

type replInput struct {
	Code string `json:"code" jsonschema_description:"Python source to execute. Use print() to return values."`
}

func (r *REPL) replTool() toolbox.Tool {
	return toolbox.Tool{
		Name:        Name,
		Description: "Execute Python code and return the output. Each call runs in a fresh interpreter: " +
			"variables, functions and imports from earlier calls are not kept, so include everything the code needs.",
		InputSchema: toolbox.SchemaFor[replInput](),
		Handler:     r.handleRun,
	}
}

func (r *REPL) handleRun(ctx context.Context, input json.RawMessage) (string, error) {
	var in replInput
	if err := json.Unmarshal(input, &in); err != nil {
		return "", failure(err.Error())
	}

	stdout, err := r.Run(ctx, in.Code)
	if err != nil {
		return "", failure(err.Error())
	}

	return fmt.Sprintf("Successfully executed:\n```python\n%s\n```\nStdout: %s\n\n%s", in.Code, stdout, completionHint), nil
}

// Run executes code with the interpreter reading the program from stdin in
// a fresh scratch directory and returns its standard output. A non-zero exit
// is an error carrying the interpreter's standard error.
func (r *REPL) Run(ctx context.Context, code string) (string, error) {
	dir, err := os.MkdirTemp(r.workDir, "python_repl-")
	if err != nil {
		return "", fmt.Errorf("create scratch dir: %w", err)
	}
	defer func() { _ = os.RemoveAll(dir) }()

	cmd := osexec.CommandContext(ctx, r.interpreter, "-") //nolint:gosec // interpreter comes from trusted config
	cmd.Dir = dir
	cmd.Stdin = strings.NewReader(code)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", ctxErr
		}

		msg := strings.TrimSpace(stderr.String())

		var exitErr *osexec.ExitError
		if errors.As(err, &exitErr) && msg != "" {
			return "", errors.New(msg)
		}

		if msg != "" {
			return "", fmt.Errorf("%w: %s", err, msg)
		}

		return "", err
	}

	return stdout.String(), nil
}

func failure(msg string) error {
	return errors.New("Failed to execute. Error: " + msg) //nolint:stylecheck // text is shown to the model verbatim
}
