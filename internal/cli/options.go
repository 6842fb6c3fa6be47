package cli

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/specialistvlad/recipegrid/internal/app"
	"github.com/specialistvlad/recipegrid/internal/config"
	"github.com/specialistvlad/recipegrid/internal/report"
	"github.com/spf13/pflag"
)

// options are the global flags shared by every command.
type options struct {
	configPath      string
	recipesPaths    []string
	logLevel        string
	logFormat       string
	reportFormat    string
	maxParallel     int
	moduleTimeout   time.Duration
	healthcheckPort int
	historyDB       string

	flags *pflag.FlagSet
}

// bind declares the global flags on fs.
func (o *options) bind(fs *pflag.FlagSet) {
	fs.StringVar(&o.configPath, "config", "", "Path to the YAML configuration file (default "+config.DefaultPath()+").")
	fs.StringSliceVar(&o.recipesPaths, "recipes", []string{"recipes"}, "Recipe files or directories (.json, .hcl).")
	fs.StringVar(&o.logLevel, "log-level", "info", "Set the logging level. Options: 'debug', 'info', 'warn', 'error'.")
	fs.StringVar(&o.logFormat, "log-format", "text", "Log output format. Options: 'text' or 'json'.")
	fs.StringVar(&o.reportFormat, "report-format", report.FormatText, "Run report format. Options: "+strings.Join(report.Formats(), ", ")+".")
	fs.IntVar(&o.maxParallel, "max-parallel", 0, "Maximum number of concurrently running modules. 0 is unlimited.")
	fs.DurationVar(&o.moduleTimeout, "module-timeout", 0, "Default per-module timeout. 0 is none.")
	fs.IntVar(&o.healthcheckPort, "healthcheck-port", 0, "Port for the HTTP health check and metrics server. 0 is disabled.")
	fs.StringVar(&o.historyDB, "history-db", config.DefaultHistoryPath(), "Path to the run history journal. Empty disables it.")
}

// parseOptions reads the global flags out of args, ignoring everything that
// belongs to subcommands. Malformed values are reported later by cobra.
func parseOptions(args []string) *options {
	o := &options{}
	fs := pflag.NewFlagSet("recipegrid", pflag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.ParseErrorsWhitelist.UnknownFlags = true
	fs.Usage = func() {}
	o.bind(fs)
	_ = fs.Parse(args)
	o.flags = fs
	return o
}

// appConfig merges the configuration file under the flags and validates the
// result. Flags set on the command line always win.
func (o *options) appConfig() (*app.Config, error) {
	path := o.configPath
	explicit := path != ""
	if !explicit {
		path = config.DefaultPath()
	}

	file, err := config.LoadFile(path)
	switch {
	case errors.Is(err, config.ErrConfigNotFound) && !explicit:
		file = &config.File{}
	case err != nil:
		return nil, fmt.Errorf("config %s: %w", path, err)
	}

	changed := o.flags.Changed
	cfg := app.Config{
		RecipesPaths:    o.recipesPaths,
		LogLevel:        strings.ToLower(o.logLevel),
		LogFormat:       strings.ToLower(o.logFormat),
		ReportFormat:    strings.ToLower(o.reportFormat),
		MaxParallel:     o.maxParallel,
		ModuleTimeout:   o.moduleTimeout,
		HealthcheckPort: o.healthcheckPort,
		HistoryDB:       o.historyDB,
	}
	if !changed("recipes") && len(file.RecipesPaths) > 0 {
		cfg.RecipesPaths = file.RecipesPaths
	}
	if !changed("log-level") && file.LogLevel != "" {
		cfg.LogLevel = file.LogLevel
	}
	if !changed("log-format") && file.LogFormat != "" {
		cfg.LogFormat = file.LogFormat
	}
	if !changed("report-format") && file.ReportFormat != "" {
		cfg.ReportFormat = file.ReportFormat
	}
	if !changed("max-parallel") && file.MaxParallel != 0 {
		cfg.MaxParallel = file.MaxParallel
	}
	if !changed("module-timeout") && file.ModuleTimeout != 0 {
		cfg.ModuleTimeout = file.ModuleTimeout
	}
	if !changed("healthcheck-port") && file.HealthcheckPort != 0 {
		cfg.HealthcheckPort = file.HealthcheckPort
	}
	if !changed("history-db") && file.HistoryDB != "" {
		cfg.HistoryDB = file.HistoryDB
	}

	return app.NewConfig(cfg)
}
