package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"runtime/debug"
	"text/tabwriter"
	"time"

	"github.com/specialistvlad/recipegrid/internal/app"
	"github.com/specialistvlad/recipegrid/internal/recipe"
	"github.com/spf13/cobra"
	"github.com/zclconf/go-cty/cty"
)

// Version information set at build time via ldflags.
var (
	version = ""
	commit  = ""
)

// Run parses args, builds the application and executes the selected
// command. Reports and command output go to outW, logs and errors to errW.
// The returned error, if any, should be passed to AsExitError.
func Run(ctx context.Context, args []string, outW, errW io.Writer) error {
	slog.Debug("CLI parser started.")
	opts := parseOptions(args)

	cmd := &command{opts: opts, outW: outW, errW: errW}
	cfg, err := opts.appConfig()
	if err != nil {
		cmd.loadErr = usageError(err)
	} else if cmd.app, err = app.NewApp(outW, errW, cfg); err != nil {
		cmd.loadErr = err
	}

	root := cmd.root()
	root.SetArgs(args)
	return root.ExecuteContext(ctx)
}

// command holds the state shared by the cobra commands of one invocation.
type command struct {
	opts    *options
	app     *app.App
	loadErr error
	outW    io.Writer
	errW    io.Writer
}

// ready returns the application or the error that prevented building it.
func (c *command) ready() (*app.App, error) {
	if c.loadErr != nil {
		return nil, c.loadErr
	}
	return c.app, nil
}

func (c *command) root() *cobra.Command {
	root := &cobra.Command{
		Use:   "recipegrid",
		Short: "Run forensic collection recipes as dependency graphs",
		Long: `recipegrid loads recipe manifests (JSON or HCL), binds them to parameters
and runs their modules concurrently in dependency order. Collectors feed
processors, processors feed exporters, and a failure only affects the
modules that depend on it.`,
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(c.outW)
	root.SetErr(c.errW)
	c.opts.bind(root.PersistentFlags())
	root.SetFlagErrorFunc(func(_ *cobra.Command, err error) error { return usageError(err) })

	root.AddCommand(c.listCmd(), c.runCmd(), c.graphCmd(), c.historyCmd(), c.versionCmd())
	return root
}

// usageArgs marks argument validation failures as usage errors.
func usageArgs(validate cobra.PositionalArgs) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if err := validate(cmd, args); err != nil {
			return usageError(err)
		}
		return nil
	}
}

func (c *command) listCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List the available recipes",
		Args:  usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := c.ready()
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "NAME\tPARAMETERS\tDESCRIPTION")
			for _, r := range a.Catalog().All() {
				fmt.Fprintf(tw, "%s\t%s\t%s\n", r.Name, usageLine(r), summary(r))
			}
			return tw.Flush()
		},
	}
}

func (c *command) graphCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "graph RECIPE",
		Short: "Print the module dependency graph of a recipe as Markdown",
		Args:  usageArgs(cobra.ExactArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := c.ready()
			if err != nil {
				return err
			}
			return a.Graph(cmd.OutOrStdout(), args[0])
		},
	}
}

func (c *command) historyCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recently finished runs",
		Args:  usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := c.ready()
			if err != nil {
				return err
			}
			runs, err := a.History(cmd.Context(), limit)
			if errors.Is(err, app.ErrHistoryDisabled) {
				fmt.Fprintln(cmd.OutOrStdout(), "History journal is disabled.")
				return nil
			}
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "RUN\tRECIPE\tVERDICT\tSTARTED\tDURATION\tMODULES")
			for _, r := range runs {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%d\n",
					r.ID, r.Recipe, r.Verdict, r.Started.Local().Format("2006-01-02 15:04:05"),
					r.Finished.Sub(r.Started).Round(time.Millisecond), len(r.Modules))
			}
			return tw.Flush()
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Number of runs to show.")
	return cmd
}

func (c *command) versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  usageArgs(cobra.NoArgs),
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "recipegrid version %s\n", getVersion())
			fmt.Fprintf(cmd.OutOrStdout(), "  commit: %s\n", getCommit())
		},
	}
}

// getVersion returns version string.
// Priority: ldflags > debug.ReadBuildInfo > "(devel)"
func getVersion() string {
	if version != "" {
		return version
	}
	if buildInfo, ok := debug.ReadBuildInfo(); ok && buildInfo.Main.Version != "" {
		return buildInfo.Main.Version
	}
	return "(devel)"
}

// getCommit returns commit hash.
// Priority: ldflags > debug.ReadBuildInfo > "unknown"
func getCommit() string {
	if commit != "" {
		return commit
	}
	if buildInfo, ok := debug.ReadBuildInfo(); ok {
		for _, setting := range buildInfo.Settings {
			if setting.Key == "vcs.revision" {
				if len(setting.Value) > 7 {
					return setting.Value[:7]
				}
				return setting.Value
			}
		}
	}
	return "unknown"
}

func summary(r *recipe.Recipe) string {
	if r.ShortDescription != "" {
		return r.ShortDescription
	}
	if len(r.Description) > 0 {
		return r.Description[0]
	}
	return ""
}

// defaultString renders a parameter default as a flag default.
func defaultString(v cty.Value) string {
	if v.IsNull() || !v.IsKnown() {
		return ""
	}
	switch v.Type() {
	case cty.String:
		return v.AsString()
	case cty.Number:
		return v.AsBigFloat().Text('f', -1)
	case cty.Bool:
		if v.True() {
			return "true"
		}
		return "false"
	}
	return ""
}
