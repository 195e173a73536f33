// Package app provides the shared entry point for the chatmem binary.
package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/flemzord/chatmem/internal/config"
	"github.com/flemzord/chatmem/internal/core"
	"github.com/flemzord/chatmem/internal/security"
	"github.com/flemzord/chatmem/internal/telemetry"
)

const telemetryFlushTimeout = 5 * time.Second

// RunParams configures the main application loop.
type RunParams struct {
	// ConfigPath is an explicit path to the YAML configuration file.
	// If empty, config.Find is called automatically.
	ConfigPath string

	// Version, Commit, and Date are injected at build time via ldflags.
	Version string
	Commit  string
	Date    string

	// LogOutput receives log records. Defaults to os.Stderr.
	LogOutput io.Writer
}

// ResolveConfigPath returns path when set, otherwise the first existing
// file among config.SearchPaths.
func ResolveConfigPath(path string) (string, error) {
	if path != "" {
		return path, nil
	}
	found, err := config.Find()
	if err != nil {
		return "", fmt.Errorf("%w (searched: %s)", err, strings.Join(config.SearchPaths(), ", "))
	}
	return found, nil
}

// LoadConfig resolves, loads and validates the configuration.
func LoadConfig(path string) (string, *config.Config, error) {
	cfgPath, err := ResolveConfigPath(path)
	if err != nil {
		return "", nil, err
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return "", nil, err
	}
	if err := config.Validate(cfg); err != nil {
		return "", nil, err
	}
	return cfgPath, cfg, nil
}

// NewLogger builds the process logger. Every record goes through the
// redactor before reaching the text or JSON handler.
func NewLogger(w io.Writer, cfg config.LoggingConfig, redactor *security.Redactor) *slog.Logger {
	if w == nil {
		w = os.Stderr
	}
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}

	var inner slog.Handler
	if strings.EqualFold(cfg.Format, "json") {
		inner = slog.NewJSONHandler(w, opts)
	} else {
		inner = slog.NewTextHandler(w, opts)
	}
	return slog.New(security.NewRedactingHandler(inner, redactor))
}

// Build loads every configured module and wires the router and the
// maintenance scheduler into the returned App, which is ready to Start.
func Build(cfg *config.Config, logger *slog.Logger, redactor *security.Redactor, tracer *telemetry.Provider) (*core.App, error) {
	s := newShared(cfg, tracer.Tracer(), logger)

	appCtx := core.NewAppContext(logger).
		WithModuleConfigs(cfg.Modules).
		WithSecretSink(redactor.AddLiteral)
	s.registerServices(appCtx)

	application := core.NewApp(appCtx)
	if err := application.LoadModules(config.Resolve(cfg)); err != nil {
		return nil, err
	}

	r, err := wireRouter(application, cfg, s)
	if err != nil {
		application.Stop()
		return nil, err
	}
	if _, err := wireMaintenance(application, appCtx, cfg, s, r); err != nil {
		application.Stop()
		return nil, err
	}
	return application, nil
}

// Run loads configuration, starts all modules, and blocks until SIGINT
// or SIGTERM is received.
func Run(params RunParams) error {
	cfgPath, cfg, err := LoadConfig(params.ConfigPath)
	if err != nil {
		return err
	}

	redactor := security.NewRedactor()
	logger := NewLogger(params.LogOutput, cfg.Logging, redactor)
	logger.Info("chatmem starting", "version", params.Version, "commit", params.Commit, "config", cfgPath)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	tp, err := telemetry.Setup(ctx, telemetry.Config{
		OTLPEndpoint: cfg.Telemetry.OTLPEndpoint,
		Insecure:     cfg.Telemetry.Insecure,
		ServiceName:  cfg.Telemetry.ServiceName,
		Version:      params.Version,
	})
	if err != nil {
		return err
	}

	application, err := Build(cfg, logger, redactor, tp)
	if err != nil {
		return err
	}
	if err := application.Start(); err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutdown signal received")
		application.Stop()

		flushCtx, cancel := context.WithTimeout(context.Background(), telemetryFlushTimeout)
		defer cancel()
		if err := tp.Shutdown(flushCtx); err != nil {
			return fmt.Errorf("telemetry: shutdown: %w", err)
		}
		return nil
	})

	err = g.Wait()
	logger.Info("shutdown complete")
	return err
}
