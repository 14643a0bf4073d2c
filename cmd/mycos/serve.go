package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

var (
	metricTickRounds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "mycos_tick_rounds",
		Help:    "Rounds taken per completed tick.",
		Buckets: prometheus.ExponentialBuckets(1, 2, 12),
	})
	metricTickEffectsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "mycos_tick_effects_total",
		Help: "Cumulative effects applied across all ticks.",
	})
	metricOscillatorTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "mycos_oscillator_total",
		Help: "Ticks on which an oscillator was detected and quenched.",
	})
	metricGuardTrippedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "mycos_guard_tripped_total",
		Help: "Ticks that stopped on max_rounds or max_effects instead of an empty frontier.",
	})
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run like \"run\" but keep driving ticks and export cumulative metrics over HTTP",
	RunE:  runServe,
}

func init() {
	flags := serveCmd.Flags()
	flags.String("chunks", "", "directory of chunk binaries (required)")
	flags.String("links", "", "path to a link table binary (optional)")
	flags.String("policy", "freeze_last_stable", "quench policy: freeze_last_stable, clamp_commutative, parity_quench")
	flags.Uint32("max-rounds", 0, "override the per-tick round cap (0 = engine default)")
	flags.Uint64("max-effects", 0, "override the per-tick effect cap (0 = engine default)")
	flags.String("metrics-addr", ":9090", "address to serve Prometheus metrics on")
	flags.Duration("tick-interval", time.Second, "delay between ticks")
	for _, name := range []string{"chunks", "links", "policy", "max-rounds", "max-effects", "metrics-addr", "tick-interval"} {
		_ = viper.BindPFlag(name, flags.Lookup(name))
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	engine, err := buildEngine()
	if err != nil {
		return err
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	addr := viper.GetString("metrics-addr")
	srv := &http.Server{Addr: addr, Handler: mux}

	go func() {
		logger.Info("serving metrics", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("metrics server stopped", zap.Error(err))
		}
	}()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	interval := viper.GetDuration("tick-interval")
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var tickNum uint32
	for {
		select {
		case <-ctx.Done():
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		case <-ticker.C:
			m, err := engine.Tick(nil)
			if err != nil {
				logger.Error("tick failed", zap.Error(err))
				continue
			}
			metricTickRounds.Observe(float64(m.Rounds))
			metricTickEffectsTotal.Add(float64(m.EffectsApplied))
			if m.Oscillator {
				metricOscillatorTotal.Inc()
			}
			if m.GuardTripped {
				metricGuardTrippedTotal.Inc()
			}
			logger.Debug("tick", zap.Uint32("tick", tickNum), zap.Uint32("rounds", m.Rounds))
			tickNum++
		}
	}
}
