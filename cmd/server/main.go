package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	grpcadapter "github.com/cardmachinequote/quote-engine/internal/adapters/grpc"
	"github.com/cardmachinequote/quote-engine/internal/adapters/httpapi"
	"github.com/cardmachinequote/quote-engine/internal/app"
	"github.com/cardmachinequote/quote-engine/internal/config"
	"github.com/cardmachinequote/quote-engine/internal/pkg/grpcserver"
	"github.com/cardmachinequote/quote-engine/internal/pkg/logger"
)

func main() {
	cfg := config.Load()
	logger.Init(cfg.LogLevel, cfg.LogFormat)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	eng, err := app.Build(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}

	// HTTP API
	limiter := rate.NewLimiter(rate.Limit(cfg.RateLimitRPS), cfg.RateLimitBurst)
	handler := httpapi.NewHandler(eng.Service, cfg.MaxUploadSizeBytes)
	httpSrv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           httpapi.NewRouter(handler, limiter),
		ReadHeaderTimeout: 10 * time.Second,
		// AI extraction can take minutes
		WriteTimeout: cfg.AITimeout + time.Minute,
	}

	// gRPC health (interface adapter)
	grpcSrv := grpcserver.New(cfg.GRPCAddr)
	grpcadapter.RegisterReflection(grpcSrv.Server)
	reporter := grpcadapter.NewHealthReporter(eng.Service, grpcSrv.Health, 0)
	if !reporter.Report(ctx) {
		log.Fatal().Msg("quote engine failed its start-up health check")
	}
	go reporter.Run(ctx)

	// Start
	go func() {
		log.Info().Str("addr", cfg.GRPCAddr).Msg("gRPC health listening")
		if err := grpcSrv.Start(); err != nil {
			log.Fatal().Err(err).Msg("gRPC serve error")
		}
	}()
	go func() {
		log.Info().Str("addr", cfg.HTTPAddr).Msg("HTTP API listening")
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("HTTP serve error")
		}
	}()

	// Graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGTERM, syscall.SIGINT)
	<-stop
	log.Info().Msg("shutting down...")
	cancel()

	shutdownCtx, done := context.WithTimeout(context.Background(), 30*time.Second)
	defer done()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP shutdown")
	}
	grpcSrv.Stop()
	if err := eng.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("telemetry shutdown")
	}
}
