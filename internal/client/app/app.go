// Package app implements the tgdash command line client.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"tgdash/internal/config"
	"tgdash/internal/controller"
	"tgdash/internal/logging"
	"tgdash/internal/store"
	"tgdash/internal/store/backend"
)

type Options struct {
	ConfigPath string
	Controller string
	Timeout    time.Duration
	LogLevel   string
}

// runtime is what every subcommand needs, built once flags are parsed.
type runtime struct {
	opts *Options
	cfg  *config.Config
	log  *zap.Logger
	out  io.Writer
}

func (r *runtime) init() error {
	cfg, err := config.Load(r.opts.ConfigPath)
	if err != nil {
		return err
	}
	if r.opts.Controller != "" {
		cfg.Controller.Address = r.opts.Controller
	}
	if r.opts.Timeout > 0 {
		cfg.Controller.Timeout = r.opts.Timeout
	}
	if r.opts.LogLevel != "" {
		cfg.Log.Level = r.opts.LogLevel
	}
	log, err := logging.New(cfg.Log)
	if err != nil {
		return err
	}
	r.cfg, r.log = cfg, log
	return nil
}

func (r *runtime) client() (*controller.Client, error) {
	return controller.NewClient(r.cfg.Controller.Address, r.cfg.Controller.Timeout, r.log.Named("controller"))
}

func (r *runtime) store() (store.Store, error) {
	return backend.Open(r.cfg.Storage)
}

// fail turns controller errors into the operator message; details go to the log.
func (r *runtime) fail(op string, err error) error {
	var apiErr *controller.APIError
	if errors.As(err, &apiErr) || controller.IsUnreachable(err) {
		r.log.Debug(op+" failed", zap.Error(err))
		return fmt.Errorf("%s: %s", op, controller.UserMessage(err))
	}
	return fmt.Errorf("%s: %w", op, err)
}

// NewRootCommand builds the client command tree writing results to out.
func NewRootCommand(out io.Writer) *cobra.Command {
	r := &runtime{opts: &Options{}, out: out}

	root := &cobra.Command{
		Use:   "tgdash",
		Short: "Control a traffic generator and export its results",
		Long: `tgdash talks to a traffic generator controller over its REST API.

Examples:
  # Show the aggregated statistics of test 1
  tgdash stats

  # Start the definitions stored by the dashboard
  tgdash start

  # Start a definition file and export a PDF report afterwards
  tgdash start tests.json
  tgdash export pdf -o report.pdf`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return r.init()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if r.log != nil {
				_ = r.log.Sync()
			}
		},
	}
	root.SetOut(out)

	f := root.PersistentFlags()
	f.StringVarP(&r.opts.ConfigPath, "config", "c", "tgdash.yaml", "configuration file (YAML)")
	f.StringVar(&r.opts.Controller, "controller", "", "controller base URL, overrides the configuration")
	f.DurationVar(&r.opts.Timeout, "timeout", 0, "request timeout, overrides the configuration")
	f.StringVar(&r.opts.LogLevel, "log-level", "", "debug, info, warn or error")

	root.AddCommand(
		statsCommand(r),
		portsCommand(r),
		startCommand(r),
		stopCommand(r),
		exportCommand(r),
		profileCommand(r),
		configCommand(r),
		simpleCommand(r, "reset", "Reset the controller's statistics", func(ctx context.Context, c *controller.Client) error {
			return c.Reset(ctx)
		}),
		simpleCommand(r, "restart", "Restart the controller", func(ctx context.Context, c *controller.Client) error {
			return c.Restart(ctx)
		}),
		onlineCommand(r),
		tablesCommand(r),
	)
	return root
}

// Execute runs the client with the process arguments.
func Execute() int {
	if err := NewRootCommand(os.Stdout).Execute(); err != nil {
		return 1
	}
	return 0
}
