// CLAUDE:SUMMARY CLI entry point: interactive single-URL recording, control server, or MCP over stdio.
// Command actrec records user interactions in a Chrome page.
//
// Usage:
//
//	actrec -url https://example.com              # record until Enter or Ctrl-C, session on stdout
//	actrec -url https://example.com -out s.json  # same, session saved as indented JSON
//	actrec -config actrec.yaml                   # control server (HTTP, optional MCP)
//	actrec -config actrec.yaml -stdio            # MCP over stdin/stdout
//
// ACTREC_* environment variables (also read from .env) override the config.
package main

import (
	"bufio"
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

	"github.com/go-chi/chi/v5"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/hazyhaar/actrec"
	"github.com/hazyhaar/actrec/internal/config"
	"github.com/hazyhaar/actrec/internal/shield"
	"github.com/hazyhaar/actrec/internal/sink"
)

const version = "0.3.0"

func main() {
	configPath := flag.String("config", "", "path to actrec.yaml config file")
	singleURL := flag.String("url", "", "record a single URL interactively")
	outPath := flag.String("out", "", "with -url: write the session to this JSON file instead of stdout")
	headless := flag.Bool("headless", false, "with -url: run Chrome without a window")
	stdio := flag.Bool("stdio", false, "serve MCP over stdin/stdout instead of HTTP")
	envFile := flag.String("env", ".env", "dotenv file loaded before the environment overrides")
	logLevel := flag.String("log-level", "info", "log level: debug, info, warn, error")
	flag.Parse()

	var level slog.Level
	switch *logLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if *singleURL == "" && *configPath == "" {
		fmt.Fprintln(os.Stderr, "usage: actrec -url <url> [-out file] | -config <file> [-stdio]")
		os.Exit(2)
	}

	cfg, err := loadConfig(*envFile, *configPath)
	if err != nil {
		logger.Error("actrec: config", "error", err)
		os.Exit(1)
	}

	if *singleURL != "" {
		err = runSingle(ctx, logger, cfg, *singleURL, *outPath, *headless, os.Stdin)
	} else if *stdio {
		err = runStdio(ctx, logger, cfg)
	} else {
		err = runServer(ctx, logger, cfg)
	}
	if err != nil {
		logger.Error("actrec: fatal", "error", err)
		os.Exit(1)
	}
}

func loadConfig(envFile, path string) (*actrec.Config, error) {
	if err := config.LoadDotEnv(envFile); err != nil {
		return nil, err
	}
	cfg := actrec.DefaultConfig()
	if path != "" {
		var err error
		if cfg, err = actrec.LoadConfigFile(path); err != nil {
			return nil, err
		}
	}
	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	return cfg, nil
}

// runSingle records url until Enter on in or a signal, then emits the
// session to stdout or outPath.
func runSingle(ctx context.Context, logger *slog.Logger, cfg *actrec.Config, url, outPath string, headless bool, in io.Reader) error {
	if headless {
		cfg.Browser.Mode = "headless"
	}

	var out sink.Sink = sink.NewStdout(nil)
	if outPath != "" {
		out = sink.NewFile(outPath)
	}
	svc := actrec.New(
		actrec.NewBrowserBackend(actrec.BrowserConfig(cfg, logger)),
		actrec.WithLogger(logger),
		actrec.WithSinks(out),
		actrec.WithEvents(cfg.EventTypes()...),
	)
	defer svc.Close(context.Background())

	info, err := svc.StartSession(ctx, actrec.StartRequest{URL: url})
	if err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "recording %s (session %s), press Enter to stop\n", info.PageURL, info.ID)

	enter := make(chan struct{})
	go func() {
		bufio.NewReader(in).ReadString('\n')
		close(enter)
	}()
	select {
	case <-enter:
	case <-ctx.Done():
	}

	sess, err := svc.StopSession(context.Background(), info.ID)
	if err != nil {
		return err
	}
	if outPath != "" {
		fmt.Fprintf(os.Stderr, "saved %d actions to %s\n", sess.ActionCount, outPath)
	}
	return nil
}

func runStdio(ctx context.Context, logger *slog.Logger, cfg *actrec.Config) error {
	svc, err := actrec.NewFromConfig(cfg, logger)
	if err != nil {
		return err
	}
	defer svc.Close(context.Background())

	srv := mcp.NewServer(&mcp.Implementation{Name: "actrec", Version: version}, nil)
	svc.RegisterMCP(srv)
	logger.Info("actrec: MCP on stdio")
	if err := srv.Run(ctx, &mcp.StdioTransport{}); err != nil && ctx.Err() == nil {
		return fmt.Errorf("mcp: %w", err)
	}
	return nil
}

func runServer(ctx context.Context, logger *slog.Logger, cfg *actrec.Config) error {
	svc, err := actrec.NewFromConfig(cfg, logger)
	if err != nil {
		return err
	}

	r := chi.NewRouter()
	for _, mw := range shield.DefaultAPIStack(logger) {
		r.Use(mw)
	}
	svc.RegisterHTTP(r)
	if cfg.Server.MCP {
		r.Handle("/mcp", svc.MCPHandler(&mcp.Implementation{Name: "actrec", Version: version}))
	}

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("actrec: server starting", "addr", cfg.Server.Addr, "mcp", cfg.Server.MCP)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			svc.Close(context.Background())
			return fmt.Errorf("listen: %w", err)
		}
	}

	logger.Info("actrec: shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("actrec: shutdown", "error", err)
	}
	// Running sessions are stopped and delivered.
	return svc.Close(shutdownCtx)
}
