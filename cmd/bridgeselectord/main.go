// Command bridgeselectord runs the bridge pool and selection core as a
// standalone process: it loads configuration, wires the registry, health
// scheduler, selector and presence consumer together, and serves the
// administrative surface (SPEC_FULL.md §4.7) until a shutdown signal
// arrives.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/jitsi-contrib/bridgepool/internal/adminsvc"
	"github.com/jitsi-contrib/bridgepool/internal/bridge"
	"github.com/jitsi-contrib/bridgepool/internal/health"
	"github.com/jitsi-contrib/bridgepool/internal/presence"
	"github.com/jitsi-contrib/bridgepool/internal/registry"
	"github.com/jitsi-contrib/bridgepool/internal/selection"
	"github.com/jitsi-contrib/bridgepool/internal/selector"
	"github.com/jitsi-contrib/bridgepool/internal/transport"
	"github.com/jitsi-contrib/bridgepool/pkg/config"
	"github.com/jitsi-contrib/bridgepool/pkg/logger"
	"github.com/jitsi-contrib/bridgepool/pkg/metrics"
	"github.com/jitsi-contrib/bridgepool/pkg/ratelimit"
	"github.com/jitsi-contrib/bridgepool/pkg/server"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.Init("error")
		logger.Log.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger.InitWithConfig(logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		FilePath:   cfg.Log.FilePath,
		MaxSize:    cfg.Log.MaxSize,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAge:     cfg.Log.MaxAge,
		Compress:   cfg.Log.Compress,
	})

	logger.Log.Info("starting bridgeselectord",
		"version", cfg.App.Version,
		"environment", cfg.App.Environment,
		"selection_strategy", cfg.BridgePool.SelectionStrategy,
	)

	metrics.InitMetrics(cfg.Metrics.Namespace, cfg.Metrics.Subsystem)

	reg := registry.New(bridgeConfig(cfg.BridgePool))

	scheduler := health.New(healthConfig(cfg.BridgePool), &unconnectedRequester{}, reg)
	reg.Subscribe(scheduler)

	_ = presence.New(reg) // real brewery subscription is outside this repository's scope

	strategy := buildStrategy(cfg.BridgePool)
	sel := selector.New(reg, strategy, selector.Config{AllowMultiBridge: cfg.BridgePool.OctoEnabled})
	_ = sel // wired in by an inbound join-request handler outside this submodule's scope

	grpcServer := server.New(cfg)

	rateLimiter, err := ratelimit.New(&ratelimit.Config{
		Requests:        cfg.RateLimit.Requests,
		Window:          cfg.RateLimit.Window,
		Strategy:        cfg.RateLimit.Strategy,
		BurstSize:       cfg.RateLimit.BurstSize,
		CleanupInterval: cfg.RateLimit.CleanupInterval,
	})
	if err != nil {
		logger.Log.Warn("failed to create admin rate limiter, continuing without it", "error", err)
		rateLimiter = nil
	}

	admin := adminsvc.New(reg, grpcServer, rateLimiter, grpcServer.GetAuditLogger())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go admin.PollHealth(ctx, cfg.BridgePool.HealthChecksInterval)

	httpServer := adminsvc.NewServer(":"+strconv.Itoa(cfg.HTTP.Port), admin.Mux(), cfg.HTTP.ReadTimeout, cfg.HTTP.WriteTimeout)
	go func() {
		logger.Log.Info("admin HTTP listener starting", "port", cfg.HTTP.Port)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Log.Error("admin HTTP listener failed", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	errCh := make(chan error, 1)
	go func() { errCh <- grpcServer.Run() }()

	select {
	case <-quit:
		logger.Log.Info("shutdown signal received")
	case err := <-errCh:
		if err != nil {
			logger.Log.Error("grpc server exited", "error", err)
		}
	}

	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Log.Warn("admin HTTP listener shutdown error", "error", err)
	}

	grpcServer.GracefulStop()
	scheduler.Shutdown()
	reg.Shutdown()
}

func bridgeConfig(bp config.BridgePoolConfig) bridge.Config {
	return bridge.Config{
		AverageParticipantStress:        bp.AverageParticipantStress,
		AverageParticipantPacketRatePps: bp.AverageParticipantPacketRatePps,
		MaxBridgePacketRatePps:          bp.MaxBridgePacketRatePps,
		StressThreshold:                 bp.StressThreshold,
		FailureResetThreshold:           bp.FailureResetThreshold,
		ParticipantRampupInterval:       bp.ParticipantRampupInterval,
	}
}

func healthConfig(bp config.BridgePoolConfig) health.Config {
	return health.Config{
		Interval:     bp.HealthChecksInterval,
		RetryDelay:   bp.HealthChecksRetryDelay,
		ReplyTimeout: bp.HealthCheckReplyTimeout,
	}
}

func buildStrategy(bp config.BridgePoolConfig) selection.Strategy {
	switch bp.SelectionStrategy {
	case "single":
		return selection.NewSingleBridge()
	case "intra-region":
		return selection.NewIntraRegion()
	case "split":
		return selection.NewSplit()
	default:
		return selection.NewRegion(selection.RegionGroups(bp.RegionGroups))
	}
}

// unconnectedRequester stands in for the real XMPP component connection a
// full focus deployment would provide (SPEC_FULL.md §6, §4.6): actual
// brewery/transport wiring is outside this repository's scope, so probes
// are skipped rather than fabricated until a real Requester is plugged in.
type unconnectedRequester struct{}

func (unconnectedRequester) Connected() bool { return false }

func (unconnectedRequester) Request(ctx context.Context, _ string, _ transport.Stanza) (transport.Reply, error) {
	<-ctx.Done()
	return transport.Reply{}, ctx.Err()
}
