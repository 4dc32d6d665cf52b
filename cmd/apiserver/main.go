// Command apiserver serves the MolGraph batch API over HTTP.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/turtacn/MolGraph/internal/bootstrap"
	"github.com/turtacn/MolGraph/internal/config"
	"github.com/turtacn/MolGraph/internal/infrastructure/monitoring/logging"
)

const defaultConfigPath = "configs/molgraph.yaml"

var version = "dev"

func main() {
	configPath := flag.String("config", defaultConfigPath, "path to configuration file")
	port := flag.Int("port", 0, "HTTP server port (overrides config)")
	flag.Parse()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	if *port > 0 {
		cfg.Server.Port = *port
	}

	if err := run(cfg, *configPath); err != nil {
		fmt.Fprintf(os.Stderr, "apiserver: %v\n", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, configPath string) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, cfg)
	if err != nil {
		return err
	}
	defer app.Close()
	logger := app.Logger

	if _, statErr := os.Stat(configPath); statErr == nil {
		err := config.Watch(configPath, func(c *config.Config) {
			if logging.SetLevel(logger, c.Log.Level) {
				logger.Info("log level updated", logging.String("level", c.Log.Level))
			}
		}, func(err error) {
			logger.Warn("ignoring invalid config change", logging.Err(err))
		})
		if err != nil {
			logger.Warn("config watch disabled", logging.Err(err))
		}
	}

	logger.Info("starting MolGraph API server",
		logging.String("version", version),
		logging.Int("port", cfg.Server.Port),
		logging.Float64("cutoff", cfg.Graph.Cutoff))

	srv := app.HTTPServer(version)
	errc := make(chan error, 1)
	go func() { errc <- srv.Start() }()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}
	return srv.Stop(context.Background())
}

// loadConfig reads the file when it exists and the environment otherwise.
func loadConfig(path string) (*config.Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return config.LoadFromEnv()
	}
	return config.Load(path)
}
