package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"mmoclient/internal/app/gateway"
	"mmoclient/internal/app/loop"
	"mmoclient/internal/pkg/logx"
)

// NewHealthCmd creates the health subcommand.
func NewHealthCmd(c *client) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check that the backend is up",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			health, err := c.gateway.HealthCheck(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %s (%s)\n", health.Status, health.Message, health.Timestamp)
			return nil
		},
	}
}

// pingOptions configures the ping subcommand.
type pingOptions struct {
	count       int
	interval    time.Duration
	metricsAddr string
}

// NewPingCmd creates the ping subcommand.
func NewPingCmd(c *client) *cobra.Command {
	opts := pingOptions{}

	cmd := &cobra.Command{
		Use:   "ping",
		Short: "Repeat health checks and report latency",
		Long: `Send a health check every --interval, --count times, without waiting for one to
finish before the next is sent. With --metrics-addr the gateway's Prometheus metrics
are served on that address while pinging.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runPing(cmd, c, opts)
		},
	}

	cmd.Flags().IntVarP(&opts.count, "count", "n", 5, "number of health checks")
	cmd.Flags().DurationVarP(&opts.interval, "interval", "i", time.Second, "delay between health checks")
	cmd.Flags().StringVar(&opts.metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address, e.g. :9102")

	return cmd
}

func runPing(cmd *cobra.Command, c *client, opts pingOptions) error {
	if opts.count < 1 {
		return fmt.Errorf("--count must be at least 1")
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	if opts.metricsAddr != "" {
		stop := serveMetrics(c, opts.metricsAddr)
		defer stop()
	}

	l := loop.New()
	async := gateway.NewAsync(c.gateway, l)
	defer async.Close()

	var (
		received int
		failed   int
	)
	out := cmd.OutOrStdout()

	for seq := 1; seq <= opts.count; seq++ {
		sent := time.Now()
		async.HealthCheck(func(_ *gateway.Health, err error) {
			received++
			if err != nil {
				failed++
				fmt.Fprintf(out, "seq=%d error: %s\n", seq, describe(err))
			} else {
				fmt.Fprintf(out, "seq=%d ok time=%s\n", seq, time.Since(sent).Round(time.Millisecond))
			}
			if received == opts.count {
				cancel()
			}
		})

		if seq < opts.count {
			select {
			case <-ctx.Done():
			case <-time.After(opts.interval):
			}
		}
		l.Drain()
	}

	runErr := l.Run(ctx)
	if !errors.Is(runErr, context.Canceled) {
		return runErr
	}

	fmt.Fprintf(out, "%d sent, %d ok, %d failed\n", opts.count, received-failed, failed)
	if failed == opts.count {
		return fmt.Errorf("backend unreachable")
	}
	return nil
}

// serveMetrics exposes the client's registry on addr and returns a stop function.
func serveMetrics(c *client, addr string) func() {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{}))

	server := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logx.Info("Serving metrics", "addr", addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logx.Error(err, "Metrics server failed", "addr", addr)
		}
	}()

	return func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}
}
