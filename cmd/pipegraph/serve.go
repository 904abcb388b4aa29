package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/aretw0/pipegraph/internal/cli"
	httpAdapter "github.com/aretw0/pipegraph/pkg/adapters/http"
	"github.com/aretw0/pipegraph/pkg/domain"
	"github.com/aretw0/pipegraph/pkg/observability"
	"github.com/aretw0/pipegraph/pkg/session"
)

var serveCmd = &cobra.Command{
	Use:   "serve [pipeline...]",
	Short: "Start the HTTP API",
	Long: `Serves the stored pipelines over a JSON API with live activation events
(SSE) and Prometheus metrics. Pipeline files given as arguments are stored
under their base name before the server starts.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := setup(cmd)
		if err != nil {
			return err
		}
		if cmd.Flags().Changed("port") {
			cfg.Server.Port, _ = cmd.Flags().GetInt("port")
		}

		reg := prometheus.NewRegistry()
		hooks := domain.ActivationHooks{}
		if cfg.Server.Metrics {
			reg.MustRegister(
				collectors.NewGoCollector(),
				collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
			)
			metrics, err := observability.NewMetrics(reg)
			if err != nil {
				return err
			}
			hooks = metrics.Hooks()
		}
		if debug, _ := cmd.Flags().GetBool("debug"); debug {
			hooks = hooks.Merge(observability.LogHooks(logger))
		}

		sessions, closeStore, err := cli.NewManager(cfg, logger, hooks)
		if err != nil {
			return err
		}
		defer closeStore()

		sigCtx := cli.NewSignalContext(context.Background())
		defer sigCtx.Cancel()

		if err := preload(sigCtx, sessions, args, logger); err != nil {
			return err
		}

		opts := []httpAdapter.Option{httpAdapter.WithLogger(logger)}
		if cfg.Server.Metrics {
			opts = append(opts, httpAdapter.WithMetrics(reg))
		}
		handler, err := httpAdapter.NewHandler(sessions, opts...)
		if err != nil {
			return err
		}

		srv := &http.Server{
			Addr:              ":" + strconv.Itoa(cfg.Server.Port),
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
		}

		serverErrors := make(chan error, 1)
		go func() {
			fmt.Printf("Starting pipegraph server on %s (store: %s)\n", srv.Addr, cfg.Store.Backend)
			serverErrors <- srv.ListenAndServe()
		}()

		select {
		case err := <-serverErrors:
			return fmt.Errorf("server error: %w", err)
		case <-sigCtx.Done():
			fmt.Printf("\nStart shutdown... Signal: %v\n", sigCtx.Signal())

			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := srv.Shutdown(ctx); err != nil {
				logger.Error("Graceful shutdown did not complete", "timeout", 5*time.Second, "err", err)
				if err := srv.Close(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					return err
				}
			}
			fmt.Println("pipegraph server stopped gracefully")
		}
		return nil
	},
}

// preload stores each pipeline file under its base name.
func preload(ctx context.Context, sessions *session.Manager, paths []string, logger *slog.Logger) error {
	for _, p := range paths {
		data, err := os.ReadFile(p)
		if err != nil {
			return err
		}
		name := strings.TrimSuffix(filepath.Base(p), filepath.Ext(p))
		g, err := sessions.Create(ctx, name, data)
		if err != nil {
			return fmt.Errorf("%s: %w", p, err)
		}
		logger.Info("Pipeline stored", "name", name, "nodes", len(g.Nodes()))
	}
	return nil
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().IntP("port", "p", 8080, "Port to listen on (overrides the config)")
}
