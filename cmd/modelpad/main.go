package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/modelpad/modelpad/pkg/ai"
	"github.com/modelpad/modelpad/pkg/config"
	"github.com/modelpad/modelpad/pkg/events"
	"github.com/modelpad/modelpad/pkg/execution"
	"github.com/modelpad/modelpad/pkg/logging"
	"github.com/modelpad/modelpad/pkg/model"
	"github.com/modelpad/modelpad/pkg/parser"
	"github.com/modelpad/modelpad/pkg/server"
	"github.com/modelpad/modelpad/pkg/storage"
)

// Version information - set via ldflags during build
var (
	version = "1.0.0-dev"
	commit  = "unknown"
)

func main() {
	var configPath string
	var showVersion bool
	flag.StringVar(&configPath, "config", defaultConfigPath(), "path to config file")
	flag.BoolVar(&showVersion, "version", false, "print version and exit")
	flag.Parse()

	if showVersion {
		fmt.Printf("modelpad %s (%s)\n", version, commit)
		return
	}

	if err := run(configPath); err != nil {
		fmt.Fprintf(os.Stderr, "modelpad: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	logger, err := logging.NewLogger(cfg.Logging.Dir, "server")
	if err != nil {
		return fmt.Errorf("init logging: %w", err)
	}
	defer logger.Close()
	if cfg.Logging.Level != "" {
		logger.SetMinLevel(logging.Level(cfg.Logging.Level))
	}

	store, err := storage.New(cfg.Storage.Path)
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}
	defer store.Close()

	provider, err := model.FromConfig(cfg)
	if err != nil {
		// the notebook works without AI; detection degrades to tier 1
		logger.Warn(logging.CategoryGateway, "no_provider", err.Error(), nil)
		provider = nil
	}

	gateway := ai.NewGateway(provider, cfg.AI, logger)
	detector := parser.TwoTier{}
	if provider != nil {
		detector.Fallback = ai.Detector{Gateway: gateway}
	}

	hub := events.NewHub()
	defer hub.Close()

	engines := func(workspaceDir string) (execution.Engine, error) {
		return execution.NewPythonEngine(cfg.Execution.Python, workspaceDir)
	}

	srv := server.NewServer(cfg, store, gateway, detector, hub, logger, engines)
	defer srv.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := srv.Start(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	logger.Info(logging.CategoryServer, "started", "", map[string]any{
		"version": version,
		"bind":    cfg.Server.Bind,
	})
	return g.Wait()
}

func defaultConfigPath() string {
	if v := os.Getenv("MODELPAD_CONFIG"); v != "" {
		return v
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "modelpad.yaml"
	}
	return home + "/.modelpad/config.yaml"
}
