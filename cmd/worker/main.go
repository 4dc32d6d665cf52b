// Command worker serves MolGraph batch requests from Kafka.  Each request on
// the request topic yields exactly one result on the result topic.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/turtacn/MolGraph/internal/bootstrap"
	"github.com/turtacn/MolGraph/internal/config"
	"github.com/turtacn/MolGraph/internal/infrastructure/monitoring/logging"
)

const (
	defaultConfigPath  = "configs/molgraph.yaml"
	defaultMetricsAddr = ":9091"
)

func main() {
	configPath := flag.String("config", defaultConfigPath, "path to configuration file")
	metricsAddr := flag.String("metrics-addr", defaultMetricsAddr, "listen address for /metrics and /healthz, empty to disable")
	flag.Parse()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	if err := run(cfg, *metricsAddr); err != nil {
		fmt.Fprintf(os.Stderr, "worker: %v\n", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, metricsAddr string) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, cfg)
	if err != nil {
		return err
	}
	defer app.Close()
	logger := app.Logger

	w, consumer, err := app.Worker(ctx)
	if err != nil {
		return err
	}

	if metricsAddr != "" {
		srv := probeServer(metricsAddr, app)
		go func() {
			logger.Info("probe server listening", logging.String("addr", metricsAddr))
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Error("probe server failed", logging.Err(err))
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	return w.Run(ctx, consumer)
}

// probeServer exposes metrics and liveness for the worker, which has no API.
func probeServer(addr string, app *bootstrap.App) *http.Server {
	mux := http.NewServeMux()
	mux.Handle(app.Config.Metrics.Path, app.MetricsHandler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	return &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
}

func loadConfig(path string) (*config.Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return config.LoadFromEnv()
	}
	return config.Load(path)
}
