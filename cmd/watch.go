package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/wormhole-demo/vaa-verifier/internal"
	"github.com/wormhole-demo/vaa-verifier/internal/clients"
	"github.com/wormhole-demo/vaa-verifier/internal/config"
	"github.com/wormhole-demo/vaa-verifier/internal/instruction"
	"github.com/wormhole-demo/vaa-verifier/internal/pipeline"
)

// watchCmd represents the command to verify VAAs as the spy observes them
var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Verify and record VAAs streamed from a Wormhole spy",
	Long: `Subscribes to a Wormhole spy and runs every signed VAA through verification,
payload decoding and the replay guard. Accepted transfers are logged and marked
consumed; replays and invalid VAAs are logged and dropped.`,
	PreRun: func(cmd *cobra.Command, args []string) {
		printBanner()
	},
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)

	watchCmd.Flags().String(
		"spy-rpc-host",
		config.DefaultSpyRPCHost,
		"Wormhole spy service endpoint")

	watchCmd.Flags().String(
		"metrics-addr",
		"",
		"Address to serve Prometheus metrics on (e.g. :9090); empty disables")

	viper.BindPFlag("spy_rpc_host", watchCmd.Flags().Lookup("spy-rpc-host"))
	viper.BindPFlag("metrics_addr", watchCmd.Flags().Lookup("metrics-addr"))
}

func runWatch(cmd *cobra.Command, args []string) error {
	logger := configureLogging(cmd, args)
	defer logger.Sync()
	logger.Info("Starting VAA watcher")

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	registry, err := cfg.Registry()
	if err != nil {
		return fmt.Errorf("failed to build guardian registry: %w", err)
	}
	store, err := cfg.ReplayStore(logger)
	if err != nil {
		return fmt.Errorf("failed to open replay store: %w", err)
	}

	logger.Info("Configuration",
		zap.String("spyRPC", cfg.SpyRPCHost),
		zap.Uint32s("guardianSets", registry.Indices()),
		zap.String("replayDir", cfg.Replay.Dir),
		zap.Uint16s("chainIds", cfg.EmitterChains),
		zap.String("emitterFilter", cfg.EmitterAddress),
		zap.String("metricsAddr", cfg.MetricsAddr))

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := pipeline.NewMetrics(reg)

	processor, err := pipeline.New(logger, cfg.Pipeline(registry, store), metrics)
	if err != nil {
		return err
	}
	dispatcher := instruction.NewDispatcher(logger, processor, nil, nil)

	spyClient, err := clients.NewSpyClient(logger, cfg.SpyRPCHost, spyFilters(cfg)...)
	if err != nil {
		return fmt.Errorf("failed to create spy client: %w", err)
	}
	defer spyClient.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle graceful shutdown
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-c
		logger.Info("Received shutdown signal")
		cancel()
	}()

	errGroup, ctx := errgroup.WithContext(ctx)

	if cfg.MetricsAddr != "" {
		errGroup.Go(func() error {
			srv := &http.Server{
				Addr:              cfg.MetricsAddr,
				Handler:           promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
				ReadHeaderTimeout: 5 * time.Second,
			}
			// Handle graceful shutdown
			go func() {
				<-ctx.Done()
				shutdownCtx, done := context.WithTimeout(context.Background(), 5*time.Second)
				defer done()
				_ = srv.Shutdown(shutdownCtx)
			}()

			logger.Info("Serving metrics", zap.String("addr", cfg.MetricsAddr))
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("metrics server: %w", err)
			}
			return nil
		})
	}

	watcher := internal.NewWatcher(logger, spyClient, dispatcher)
	errGroup.Go(func() error {
		defer cancel()
		if err := watcher.Start(ctx); err != nil {
			return fmt.Errorf("watcher stopped with error: %w", err)
		}
		return nil
	})

	if err := errGroup.Wait(); err != nil {
		return err
	}
	logger.Info("Shutdown complete")
	return nil
}

// spyFilters pushes the emitter filter down to the spy when both a chain and
// an address are configured. The pipeline filters again regardless.
func spyFilters(cfg *config.Config) []clients.EmitterFilter {
	emitter := pipeline.NormalizeEmitter(cfg.EmitterAddress)
	if emitter == "" {
		return nil
	}
	filters := make([]clients.EmitterFilter, 0, len(cfg.EmitterChains))
	for _, chain := range cfg.EmitterChains {
		filters = append(filters, clients.EmitterFilter{ChainID: chain, Address: emitter})
	}
	return filters
}
