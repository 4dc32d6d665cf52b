package cli

import (
	"github.com/spf13/cobra"
)

// NewWorkerCmd creates the worker command.
func NewWorkerCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "worker",
		Short: "Serve batch requests from Kafka",
		Long: `Consume batch requests from the request topic and publish one result
per request to the result topic until interrupted.`,
		Args: cobra.NoArgs,
		RunE: runWorker,
	}
}

func runWorker(cmd *cobra.Command, _ []string) error {
	cliCtx, err := GetCLIContext(cmd)
	if err != nil {
		return err
	}

	ctx, stop := signalContext(cmd.Context())
	defer stop()

	app, err := cliCtx.NewApp(ctx)
	if err != nil {
		return err
	}
	defer app.Close()

	watchLogLevel(cliCtx)

	w, consumer, err := app.Worker(ctx)
	if err != nil {
		return err
	}
	return w.Run(ctx, consumer)
}
