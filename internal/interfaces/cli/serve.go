package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/turtacn/MolGraph/internal/config"
	"github.com/turtacn/MolGraph/internal/infrastructure/monitoring/logging"
)

type serveOptions struct {
	port int
}

// NewServeCmd creates the serve command.
func NewServeCmd() *cobra.Command {
	opts := &serveOptions{}
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the batch API over HTTP",
		Long: `Serve the batch API over HTTP until interrupted.

The dataset is loaded once at startup.  When the config came from a file,
the file is watched and log level changes are applied without a restart.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd, opts)
		},
	}
	cmd.Flags().IntVarP(&opts.port, "port", "p", 0, "listen port, overrides the config")
	return cmd
}

func runServe(cmd *cobra.Command, opts *serveOptions) error {
	cliCtx, err := GetCLIContext(cmd)
	if err != nil {
		return err
	}
	if opts.port > 0 {
		cliCtx.Config.Server.Port = opts.port
	}

	ctx, stop := signalContext(cmd.Context())
	defer stop()

	app, err := cliCtx.NewApp(ctx)
	if err != nil {
		return err
	}
	defer app.Close()

	watchLogLevel(cliCtx)

	srv := app.HTTPServer(Version)
	errc := make(chan error, 1)
	go func() { errc <- srv.Start() }()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}
	return srv.Stop(context.Background())
}

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}

// watchLogLevel applies log level changes of the config file at runtime.
// Other settings need a restart.
func watchLogLevel(cliCtx *CLIContext) {
	if cliCtx.ConfigPath == "" {
		return
	}
	logger := cliCtx.Logger
	err := config.Watch(cliCtx.ConfigPath, func(cfg *config.Config) {
		if logging.SetLevel(logger, cfg.Log.Level) {
			logger.Info("log level updated", logging.String("level", cfg.Log.Level))
		}
	}, func(err error) {
		logger.Warn("ignoring invalid config change", logging.Err(err))
	})
	if err != nil {
		logger.Warn("config watch disabled",
			logging.String("path", cliCtx.ConfigPath),
			logging.Err(err))
	}
}
