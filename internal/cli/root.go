// Package cli implements the kvgraph command-line interface.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/cockroachdb/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/kvgraph/internal/logger"
	"github.com/mesh-intelligence/kvgraph/internal/metrics"
	"github.com/mesh-intelligence/kvgraph/internal/paths"
	"github.com/mesh-intelligence/kvgraph/pkg/element"
	"github.com/mesh-intelligence/kvgraph/pkg/store"
	"github.com/mesh-intelligence/kvgraph/pkg/types"
)

// Exit codes.
const (
	exitSuccess   = 0
	exitUserError = 1
	exitSysError  = 2
)

// rootFlags holds global flag values accessible to all subcommands.
type rootFlags struct {
	configDir   string
	dataDir     string
	backend     string
	verbose     bool
	metricsFile string
}

// app is the state shared by the subcommands of one invocation.
type app struct {
	flags    rootFlags
	layout   paths.Layout
	config   types.Config
	registry *element.Registry
	metrics  *prometheus.Registry
	store    types.Store
}

// NewRootCmd creates the top-level "kvgraph" command with global flags and
// all subcommands registered. The store it opens is closed by Run; callers
// executing the command directly must accept that the store stays open.
func NewRootCmd() *cobra.Command {
	root, _ := newRootCmd()
	return root
}

func newRootCmd() (*cobra.Command, *app) {
	a := &app{}
	root := &cobra.Command{
		Use:   "kvgraph",
		Short: "Typed elements, indexes and set queries over a key-value store",
		Long: "kvgraph stores typed elements in a key-value backend (memory, sqlite or redis),\n" +
			"keeps secondary indexes in sync and answers set-algebra queries over them.",
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.setup,
	}

	root.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return errors.Mark(err, errUsage)
	})

	pf := root.PersistentFlags()
	pf.StringVar(&a.flags.configDir, "config-dir", "", "configuration directory (default: platform config dir or $KVGRAPH_CONFIG_DIR)")
	pf.StringVar(&a.flags.dataDir, "data-dir", "", "data directory for the sqlite backend (default: $(CWD)/.kvgraph-db)")
	pf.StringVar(&a.flags.backend, "backend", "", "backend to use: memory, sqlite or redis (overrides config)")
	pf.BoolVarP(&a.flags.verbose, "verbose", "v", false, "log at debug level")
	pf.StringVar(&a.flags.metricsFile, "metrics-file", "", "write prometheus metrics to this file on exit")

	root.AddCommand(
		newVersionCmd(),
		newInitCmd(a),
		newGetCmd(a),
		newSetCmd(a),
		newDeleteCmd(a),
		newFindCmd(a),
		newIncrCmd(a),
		newSweepCmd(a),
	)
	return root, a
}

// Run executes one invocation with args, writing command output to out,
// and releases the store afterwards.
func Run(ctx context.Context, args []string, out io.Writer) error {
	root, a := newRootCmd()
	root.SetArgs(args)
	root.SetOut(out)
	err := root.ExecuteContext(ctx)
	return errors.CombineErrors(err, a.teardown())
}

// Execute runs the command line and exits with the appropriate code.
func Execute() {
	if err := Run(context.Background(), os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, "kvgraph:", err)
		os.Exit(exitCode(err))
	}
	os.Exit(exitSuccess)
}

// exitCode separates caller mistakes from system failures.
func exitCode(err error) int {
	switch {
	case err == nil:
		return exitSuccess
	case errors.Is(err, errUsage),
		errors.Is(err, types.ErrNotFound),
		errors.Is(err, types.ErrInvalidValue),
		errors.Is(err, types.ErrUndefinedAttribute),
		errors.Is(err, types.ErrUnsupportedFilter),
		errors.Is(err, types.ErrNotPersisted):
		return exitUserError
	default:
		return exitSysError
	}
}

var errUsage = errors.New("usage")

func usageErrorf(format string, args ...any) error {
	return errors.Mark(errors.Newf(format, args...), errUsage)
}

func (a *app) setup(cmd *cobra.Command, args []string) error {
	if cmd.Name() == "version" {
		return nil
	}
	layout, err := paths.Resolve(a.flags.configDir)
	if err != nil {
		return errors.Wrap(err, "resolve config dir")
	}
	cfg, err := loadConfig(layout)
	if err != nil {
		return err
	}
	if a.flags.backend != "" {
		cfg.Backend = a.flags.backend
	}
	if err := layout.ResolveData(a.flags.dataDir, cfg.DataDir); err != nil {
		return errors.Wrap(err, "resolve data dir")
	}
	cfg.DataDir = layout.DataDir
	a.layout = layout
	if a.flags.verbose {
		cfg.LogLevel = "debug"
	}
	if err := cfg.Validate(); err != nil {
		return errors.Mark(err, errUsage)
	}
	a.config = cfg

	logger.Init(logger.Config{Level: cfg.LogLevel, Pretty: isTerminal(os.Stderr)})

	a.metrics = prometheus.NewRegistry()
	if err := metrics.Register(a.metrics); err != nil {
		return errors.Wrap(err, "register metrics")
	}

	a.registry = element.NewRegistry()
	if err := a.registry.RegisterSpecs(cfg.Models); err != nil {
		return errors.Mark(errors.Wrap(err, "models"), errUsage)
	}
	return nil
}

func (a *app) teardown() error {
	var err error
	if a.store != nil {
		err = a.store.Close()
		a.store = nil
	}
	if a.flags.metricsFile != "" && a.metrics != nil {
		if werr := prometheus.WriteToTextfile(a.flags.metricsFile, a.metrics); werr != nil {
			err = errors.CombineErrors(err, errors.Wrap(werr, "write metrics"))
		}
	}
	return err
}

// open connects to the configured store once per invocation.
func (a *app) open(ctx context.Context) (types.Store, error) {
	if a.store != nil {
		return a.store, nil
	}
	st, err := store.Open(ctx, a.config)
	if err != nil {
		return nil, errors.Wrapf(err, "open %s store", a.config.Backend)
	}
	a.store = st
	l := logger.Component("cli")
	l.Debug().Str("backend", a.config.Backend).Str("data_dir", a.config.DataDir).Msg("store opened")
	return st, nil
}

// model looks up a configured model by name.
func (a *app) model(name string) (*element.Model, error) {
	m, ok := a.registry.Lookup(name)
	if !ok {
		return nil, usageErrorf("unknown model %q (configured: %v)", name, a.registry.Names())
	}
	return m, nil
}

func isTerminal(f *os.File) bool {
	fi, err := f.Stat()
	return err == nil && fi.Mode()&os.ModeCharDevice != 0
}
