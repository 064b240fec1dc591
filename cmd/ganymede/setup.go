package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"mercator-hq/ganymede/pkg/config"
	"mercator-hq/ganymede/pkg/forge"
	"mercator-hq/ganymede/pkg/ledger"
	"mercator-hq/ganymede/pkg/policy/ast"
	"mercator-hq/ganymede/pkg/policy/source"
	"mercator-hq/ganymede/pkg/telemetry/logging"
	"mercator-hq/ganymede/pkg/telemetry/metrics"
	"mercator-hq/ganymede/pkg/triage/conditions"
	"mercator-hq/ganymede/pkg/triage/executor"
	"mercator-hq/ganymede/pkg/triage/processor"
)

// app bundles the wired engine for the run and serve commands.
type app struct {
	cfg       *config.Config
	logger    *slog.Logger
	metrics   *metrics.Metrics
	api       *forge.Client
	store     ledger.Store
	executor  *executor.Executor
	processor *processor.Processor
	source    source.Source

	mu  sync.RWMutex
	doc *ast.Document
}

// extensions is the static extension registry. Third-party actions
// register here before Execute runs.
var extensions = executor.NewRegistry()

// buildApp loads the configuration and wires the engine. The returned
// cleanup closes the ledger store.
func buildApp() (*app, func(), error) {
	cfg, err := config.LoadConfigWithEnvOverrides(cfgFile)
	if err != nil {
		return nil, nil, err
	}

	logCfg := logging.Config{
		Level:        cfg.Telemetry.Logging.Level,
		Format:       cfg.Telemetry.Logging.Format,
		AddSource:    cfg.Telemetry.Logging.AddSource,
		RedactTokens: true,
		Writer:       os.Stderr,
	}
	if verbose {
		logCfg.Level = "debug"
	}
	logger, err := logging.New(logCfg)
	if err != nil {
		return nil, nil, err
	}
	slog.SetDefault(logger)

	m := metrics.New()

	api, err := forge.NewClient(forge.ClientConfig{
		BaseURL: cfg.Forge.BaseURL,
		Token:   cfg.Forge.Token,
		Timeout: cfg.Forge.Timeout,
	}, logger)
	if err != nil {
		return nil, nil, err
	}
	api.SetMetrics(m)

	var store ledger.Store
	switch cfg.Ledger.Backend {
	case "sqlite":
		store, err = ledger.NewSQLiteStore(&ledger.SQLiteConfig{Path: cfg.Ledger.Path}, logger)
		if err != nil {
			return nil, nil, fmt.Errorf("opening ledger: %w", err)
		}
	case "memory":
		store = ledger.NewMemoryStore()
	default:
		return nil, nil, fmt.Errorf("unsupported ledger backend %q", cfg.Ledger.Backend)
	}

	exec := executor.New(api, logger, extensions, m)
	proc := processor.New(processor.Config{
		API:       api,
		Evaluator: conditions.NewEvaluator(api, logger),
		Executor:  exec,
		Ledger:    store,
		Metrics:   m,
		Logger:    logger,
		Debug:     verbose,
	})

	a := &app{
		cfg:       cfg,
		logger:    logger,
		metrics:   m,
		api:       api,
		store:     store,
		executor:  exec,
		processor: proc,
		source:    policySource(cfg, logger),
	}

	cleanup := func() {
		if err := store.Close(); err != nil {
			logger.Error("closing ledger failed", "error", err)
		}
	}
	return a, cleanup, nil
}

// policySource picks the file or git policy source per the config.
func policySource(cfg *config.Config, logger *slog.Logger) source.Source {
	if cfg.Policy.Git.URL != "" {
		return source.NewGitSource(cfg.Policy.Git, "", logger)
	}
	return source.NewFileSource(cfg.Policy.Path)
}

// reload loads the policy document and swaps it in.
func (a *app) reload(ctx context.Context) error {
	doc, err := a.source.Load(ctx)
	if err != nil {
		return err
	}

	a.mu.Lock()
	a.doc = doc
	a.mu.Unlock()

	a.logger.Info("policies loaded", "name", doc.Name, "rules", doc.RuleCount())
	return nil
}

// document returns the currently loaded policy document.
func (a *app) document() *ast.Document {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.doc
}
