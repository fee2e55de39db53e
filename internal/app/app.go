package app

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/igralabs/nodedeck/internal/config"
	"github.com/igralabs/nodedeck/internal/logging"
	"github.com/igralabs/nodedeck/internal/metrics"
	"github.com/igralabs/nodedeck/internal/prefs"
	"github.com/igralabs/nodedeck/internal/server"
	"github.com/igralabs/nodedeck/internal/source"
	"github.com/igralabs/nodedeck/internal/tail"
	"github.com/igralabs/nodedeck/internal/ui"
)

// Options configure the nodedeck application.
type Options struct {
	ConfigPath string
	PrefsPath  string // empty uses default ~/.config/nodedeck/prefs.toml
	Headless   bool   // serve the HTTP API without the terminal UI
}

// Run boots nodedeck until the context is cancelled or the UI exits.
func Run(ctx context.Context, opts Options) error {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	userPrefs, _ := prefs.Load(opts.PrefsPath)

	logger, closeLog, err := openLogger(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = closeLog() }()

	agent, err := source.NewAgentClient(cfg.AgentBind)
	if err != nil {
		return fmt.Errorf("init agent client: %w", err)
	}
	src := source.NewMux(cfg.LogPaths(), agent)
	registry := source.NewRegistry(cfg.ServiceTypes())

	coord := tail.NewCoordinator(registry, src, metrics.DefaultTable(), tail.Options{
		Interval:       cfg.PollInterval,
		FetchLimit:     cfg.FetchLimit,
		BufferCapacity: cfg.BufferCapacity,
	}, logger)
	defer coord.Close()

	for _, id := range registry.IDs() {
		if err := coord.StartTail(id); err != nil {
			logger.Warn("autostart failed", zap.String("source", id), zap.Error(err))
		}
	}

	srv := server.New(coord, cfg.HTTPBind, logger)
	serveErr := make(chan error, 1)
	go func() { serveErr <- srv.ListenAndServe() }()
	defer func() { _ = srv.Shutdown(context.Background()) }()

	if opts.Headless {
		select {
		case <-ctx.Done():
			return nil
		case err := <-serveErr:
			return err
		}
	}

	uiOpts := ui.Options{
		Context:   ctx,
		Coord:     coord,
		ThemeName: userPrefs.Theme,
		PrefsPath: opts.PrefsPath,
		Grouped:   userPrefs.Grouped,
		Source:    userPrefs.LastSource,
	}
	return ui.Run(uiOpts)
}

func openLogger(cfg config.Config) (*zap.Logger, func() error, error) {
	level := logging.ParseLevel(cfg.LogLevel)
	if cfg.LogFile == "" {
		logger := logging.New(level)
		return logger, logger.Sync, nil
	}
	if err := os.MkdirAll(filepath.Dir(cfg.LogFile), 0o755); err != nil {
		return nil, nil, fmt.Errorf("create log dir: %w", err)
	}
	logger, closeFn, err := logging.NewFile(cfg.LogFile, level)
	if err != nil {
		return nil, nil, err
	}
	return logger, closeFn, nil
}
