package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/aziis98/osf-optimize/internal/config"
	"github.com/aziis98/osf-optimize/internal/database"
	"github.com/aziis98/osf-optimize/internal/fts"
	"github.com/aziis98/osf-optimize/internal/logging"
	"github.com/aziis98/osf-optimize/internal/maintenance"
	"github.com/aziis98/osf-optimize/internal/util"
)

// errReported marks a failure that has already been logged.
var errReported = errors.New("failure already reported")

// app is the state shared by all commands of one invocation.
type app struct {
	cfg    *config.Config
	log    *logging.Logger
	stdout io.Writer
	stderr io.Writer

	configPath string
	dbPath     string
	verbose    bool
	progress   bool
}

// Execute runs the CLI with the process arguments and returns the exit code.
// This is called by main.main().
func Execute() int {
	return Run(os.Args[1:], os.Stdout, os.Stderr)
}

// Run executes the CLI with args and returns the process exit code: 0 on
// success, 1 on any failure.
func Run(args []string, stdout, stderr io.Writer) int {
	root := NewRootCmd(stdout, stderr)
	root.SetArgs(args)

	if err := root.ExecuteContext(context.Background()); err != nil {
		if !errors.Is(err, errReported) {
			fmt.Fprintf(stderr, "Error: %v\n", err)
		}
		return 1
	}
	return 0
}

// NewRootCmd builds the command tree. The root command itself runs the
// maintenance steps.
func NewRootCmd(stdout, stderr io.Writer) *cobra.Command {
	a := &app{
		cfg:    config.New(),
		log:    logging.New(stderr, false),
		stdout: stdout,
		stderr: stderr,
	}
	var flags maintenance.Flags

	rootCmd := &cobra.Command{
		Use:   "osf-optimize",
		Short: "Optimize the preprints SQLite database",
		Long: util.Dedent(`
			Run routine maintenance on the preprints database: recreate indexes,
			run ANALYZE and VACUUM, and keep the full-text search table in sync
			with preprints_ui.

			Without flags only ANALYZE runs. The full-text index is always updated.
		`),
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.optimize(cmd.Context(), maintenance.ResolvePlan(flags)); err != nil {
				a.log.Errorf("Optimization failed: %v", err)
				return errReported
			}
			return nil
		},
	}

	addPlanFlags(rootCmd, &flags)

	// Global flags
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&a.configPath, "config", "", "TOML or YAML config file")
	pf.StringVar(&a.dbPath, "db", "", "database file (default "+config.DefaultDBPath+")")
	pf.BoolVarP(&a.verbose, "verbose", "v", false, "enable verbose logging")
	pf.BoolVar(&a.progress, "progress", false, "show a progress bar while recreating indexes (default on for terminals)")

	rootCmd.SetOut(stdout)
	rootCmd.SetErr(stderr)

	rootCmd.AddCommand(
		newRebuildFtsCmd(a),
		newStatusCmd(a),
		newSearchCmd(a),
		newScheduleCmd(a),
	)

	return rootCmd
}

func addPlanFlags(cmd *cobra.Command, flags *maintenance.Flags) {
	cmd.Flags().BoolVar(&flags.Vacuum, "vacuum", false, "run VACUUM")
	cmd.Flags().BoolVar(&flags.Analyze, "analyze", false, "run ANALYZE")
	cmd.Flags().BoolVar(&flags.Reindex, "reindex", false, "recreate indexes")
	cmd.Flags().BoolVar(&flags.All, "all", false, "run all optimizations")
}

// setup loads configuration and applies the global flags on top of it.
func (a *app) setup(cmd *cobra.Command) error {
	a.log.SetVerbose(a.verbose)
	a.cfg.Verbose = a.verbose

	if a.configPath != "" {
		if err := a.cfg.Load(a.configPath); err != nil {
			return fmt.Errorf("loading configuration: %w", err)
		}
		a.log.Debugf("Loaded configuration from %s", a.configPath)
	}
	if a.dbPath != "" {
		a.cfg.DBPath = a.dbPath
	}
	if err := a.cfg.ResolveDBPath(cmd.Flags().Changed("db")); err != nil {
		return err
	}

	if !cmd.Flags().Changed("progress") {
		a.progress = !a.verbose && isTerminal(a.stderr)
	}

	a.log.Debugf("Using database at: %s", a.cfg.DBPath)
	return nil
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

func (a *app) openDB() (*database.DB, error) {
	db, err := database.Open(a.cfg.DBPath, database.Options{BusyTimeoutMs: a.cfg.BusyTimeoutMs})
	if err != nil {
		return nil, err
	}
	return db, nil
}

func (a *app) newMaintainer(db *database.DB) *fts.Maintainer {
	return fts.New(db, a.log, a.cfg.FTS.Source, a.cfg.FTS.Columns)
}

func (a *app) indexSpecs() []database.IndexSpec {
	specs := make([]database.IndexSpec, len(a.cfg.Indexes))
	for i, idx := range a.cfg.Indexes {
		specs[i] = database.IndexSpec{Table: idx.Table, Columns: idx.Columns}
	}
	return specs
}

// optimize is one complete maintenance run on its own connection.
func (a *app) optimize(ctx context.Context, plan maintenance.Plan) error {
	db, err := a.openDB()
	if err != nil {
		return maintenance.ConnectionError(err)
	}
	defer db.Close()

	specs := a.indexSpecs()
	opts := maintenance.Options{Indexes: specs}

	if a.progress && plan.Reindex {
		bar := progressbar.NewOptions(database.IndexCount(specs),
			progressbar.OptionSetWriter(a.stderr),
			progressbar.OptionSetDescription("Recreating indexes"),
			progressbar.OptionSetWidth(50),
			progressbar.OptionShowCount(),
			progressbar.OptionClearOnFinish(),
			progressbar.OptionSetTheme(progressbar.Theme{
				Saucer:        "=",
				SaucerHead:    ">",
				SaucerPadding: " ",
				BarStart:      "[",
				BarEnd:        "]",
			}))
		defer bar.Finish()
		opts.OnIndex = func(string) { bar.Add(1) }
	}

	runner := maintenance.NewRunner(db, a.newMaintainer(db), a.log, opts)
	run, err := runner.Run(ctx, plan)
	if err != nil {
		return err
	}

	a.log.Debugf("Run %s finished in %.2fs", run.ID, run.Finished.Sub(run.Started).Seconds())
	return nil
}
