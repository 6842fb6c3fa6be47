package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/specialistvlad/recipegrid/internal/catalog"
	"github.com/specialistvlad/recipegrid/internal/ctxlog"
	"github.com/specialistvlad/recipegrid/internal/dag"
	"github.com/specialistvlad/recipegrid/internal/engine"
	"github.com/specialistvlad/recipegrid/internal/history"
	"github.com/specialistvlad/recipegrid/internal/metrics"
	"github.com/specialistvlad/recipegrid/internal/registry"
	"github.com/specialistvlad/recipegrid/internal/report"
	"github.com/specialistvlad/recipegrid/internal/scheduler"
	"github.com/zclconf/go-cty/cty"
)

// ErrHistoryDisabled is returned by History when no journal is configured.
var ErrHistoryDisabled = errors.New("history journal is disabled")

// App encapsulates the application's dependencies, configuration, and lifecycle.
type App struct {
	ctx        context.Context
	outW       io.Writer
	logger     *slog.Logger
	config     *Config
	registry   *registry.Registry
	catalog    *catalog.Catalog
	engine     *engine.Engine
	prom       *prometheus.Registry
	httpServer *http.Server
}

// NewApp is the constructor for the main application. Reports go to outW and
// logs to logW. Without explicit modules the core modules are registered.
func NewApp(outW, logW io.Writer, cfg *Config, modules ...registry.Registrant) (*App, error) {
	logger := newLogger(cfg.LogLevel, cfg.LogFormat, logW)
	ctx := ctxlog.WithLogger(context.Background(), logger)
	logger.Debug("Logger configured successfully.")

	if len(modules) == 0 {
		modules = coreModules(outW)
	}
	reg := registry.New(modules...)
	logger.Debug("All Go modules registered.", "count", len(modules), "kinds", reg.Names())

	cat, err := catalog.Load(ctx, cfg.RecipesPaths...)
	if err != nil {
		return nil, fmt.Errorf("failed to load recipes: %w", err)
	}

	prom := prometheus.NewRegistry()
	prom.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	eng := engine.New(cat, reg, engine.Options{
		MaxParallel:   cfg.MaxParallel,
		ModuleTimeout: cfg.ModuleTimeout,
		Metrics:       metrics.New(prom),
	})

	return &App{
		ctx:      ctx,
		outW:     outW,
		logger:   logger,
		config:   cfg,
		registry: reg,
		catalog:  cat,
		engine:   eng,
		prom:     prom,
	}, nil
}

// Registry returns the application's registry. This is primarily for testing.
func (a *App) Registry() *registry.Registry {
	return a.registry
}

// Catalog returns the loaded recipes.
func (a *App) Catalog() *catalog.Catalog {
	return a.catalog
}

// Logger returns the application's logger.
func (a *App) Logger() *slog.Logger {
	return a.logger
}

// Run executes the named recipe, writes the report and journals the result.
// A non-nil result is returned whenever the run started, even alongside an
// internal error.
func (a *App) Run(ctx context.Context, name string, supplied map[string]cty.Value) (*scheduler.Result, error) {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	a.ctx = ctx
	a.logger.Debug("App.Run method started.", "recipe", name)

	a.healthCheckServer()
	defer func() { _ = a.closeHealthCheckServer() }()

	res, runErr := a.engine.Run(ctx, name, supplied)
	if res == nil {
		return nil, runErr
	}

	w, err := report.New(a.config.ReportFormat, a.outW)
	if err != nil {
		return res, err
	}
	if err := w.Write(res); err != nil {
		return res, fmt.Errorf("failed to write report: %w", err)
	}

	if err := a.record(context.WithoutCancel(ctx), res); err != nil {
		a.logger.Error("Failed to journal run.", "run_id", res.RunID, "error", err)
	}

	a.logger.Debug("App.Run method finished.", "verdict", res.Verdict)
	return res, runErr
}

func (a *App) record(ctx context.Context, res *scheduler.Result) error {
	if a.config.HistoryDB == "" {
		return nil
	}
	j, err := history.Open(a.config.HistoryDB)
	if err != nil {
		return err
	}
	defer j.Close()
	if err := j.Record(ctx, res); err != nil {
		return err
	}
	a.logger.Debug("Run journaled.", "run_id", res.RunID, "path", j.Path())
	return nil
}

// History returns the most recent journaled runs, newest first.
func (a *App) History(ctx context.Context, limit int) ([]*history.Run, error) {
	if a.config.HistoryDB == "" {
		return nil, ErrHistoryDisabled
	}
	j, err := history.Open(a.config.HistoryDB)
	if err != nil {
		return nil, err
	}
	defer j.Close()
	return j.Recent(ctx, limit)
}

// Graph writes the dependency graph of the named recipe as Markdown.
func (a *App) Graph(w io.Writer, name string) error {
	r, err := a.catalog.Get(name)
	if err != nil {
		return err
	}
	g, err := dag.Build(r.Modules)
	if err != nil {
		return fmt.Errorf("building graph of recipe '%s': %w", r.Name, err)
	}
	return report.WriteGraph(w, r, g)
}
