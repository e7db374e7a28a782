package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/germanamz/agentic/pkg/engine"
	"github.com/germanamz/agentic/pkg/httpapi"
	"github.com/germanamz/agentic/pkg/transcript"
)

const shutdownTimeout = 10 * time.Second

// setup loads .env and the configuration, then builds the logger and the
// engine. Logs go to logOut.
func setup(ctx context.Context, flags commonFlags, logOut io.Writer) (*engine.Engine, *slog.Logger, error) {
	if err := loadDotEnv(flags.envFile); err != nil {
		return nil, nil, err
	}

	cfg, err := engine.Load(flags.configPath)
	if err != nil {
		return nil, nil, err
	}

	log := newLogger(logOut, cfg.Debug)

	eng, err := engine.New(ctx, cfg, log)
	if err != nil {
		return nil, nil, err
	}

	return eng, log, nil
}

func runServe(args []string) error {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	var flags commonFlags
	flags.register(fs)
	_ = fs.Parse(args)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	eng, log, err := setup(ctx, flags, os.Stderr)
	if err != nil {
		return err
	}
	defer func() { _ = eng.Close() }()

	cfg := eng.Config()
	if cfg.Debug {
		sub := eng.Events().Subscribe(256)
		defer eng.Events().Unsubscribe(sub)
		go logEvents(log, sub)
	}

	srv := &http.Server{
		Addr: cfg.Server.Addr(),
		Handler: httpapi.NewRouter(eng, httpapi.Options{
			MCP:    eng.MCPServer().Handler(),
			Logger: log,
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	return serve(ctx, srv, log)
}

// serve runs srv until ctx is done, then shuts it down gracefully.
func serve(ctx context.Context, srv *http.Server, log *slog.Logger) error {
	errCh := make(chan error, 1)
	go func() {
		log.Info("listening", "addr", srv.Addr)
		err := srv.ListenAndServe()
		if errors.Is(err, http.ErrServerClosed) {
			err = nil
		}
		errCh <- err
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server exited: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown server: %w", err)
	}

	return <-errCh
}

// logEvents writes every engine event to log at debug level until sub is
// closed.
func logEvents(log *slog.Logger, sub *engine.Subscription) {
	for ev := range sub.C {
		attrs := []any{"kind", ev.Kind, "run_id", ev.RunID}
		switch d := ev.Data.(type) {
		case transcript.Fragment:
			attrs = append(attrs, "fragment", d.Kind, "text", d.Text)
		case engine.Transition:
			attrs = append(attrs, "from", d.From, "to", d.To)
		case error:
			attrs = append(attrs, "error", d)
		}
		log.Debug("engine event", attrs...)
	}
}
