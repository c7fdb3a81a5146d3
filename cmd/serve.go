package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/fastllm/gateway/config"
	"github.com/fastllm/gateway/engine"
	"github.com/fastllm/gateway/server"
	"github.com/fastllm/gateway/template"
	"github.com/fastllm/gateway/toolcall"
)

// RunServer validates cfg, builds the engine and template, and serves
// until it receives an interrupt or termination signal. Grounded on the
// teacher's cmd.RunServer: resolve a listener address first so a bad host
// fails fast, then hand off to the server package's own Serve loop.
func RunServer(ctx context.Context, cfg config.Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	if _, _, err := net.SplitHostPort(cfg.Addr()); err != nil {
		return fmt.Errorf("invalid host %q: %w", cfg.Addr(), err)
	}
	if cfg.ModelPath == "" {
		return fmt.Errorf("--path is required: no model weights configured")
	}

	eng := engine.NewEchoEngine(cfg.MaxActive)
	defer eng.Close()

	tmpl := template.Default
	dialect := toolcall.DialectUnknown

	srv := server.New(cfg, eng, tmpl, dialect)

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	slog.Info("fastllm gateway listening", "addr", cfg.Addr(), "model", cfg.ModelName, "dev_mode", cfg.DevMode)
	return srv.Serve(ctx)
}
