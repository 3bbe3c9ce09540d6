package main

import (
	"context"
	"errors"
	"flag"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	chunkrpc "chunkstore/pkg/api/chunkrpc/v1"
	"chunkstore/pkg/app"
	"chunkstore/pkg/config"
	"chunkstore/pkg/server"
	"chunkstore/pkg/service"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

func main() {
	// 1. Load Config
	cfgFile := flag.String("config", "", "config file (default is ./config.yaml or $HOME/.chunkstore/config.yaml)")
	flag.Parse()

	cfg, err := config.Load(*cfgFile)
	if err != nil {
		logrus.Fatalf("❌ Config error: %v", err)
	}
	if err := config.SetupLogging(cfg.Log); err != nil {
		logrus.Fatalf("❌ Config error: %v", err)
	}
	log := logrus.WithField("service", "chunkd")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 2. Init Core Application
	application, err := app.NewApp(ctx, cfg, log)
	if err != nil {
		log.Fatalf("❌ Failed to initialize app: %v", err)
	}
	log.WithFields(logrus.Fields{
		"storage": cfg.Storage.Type,
		"root":    application.Store.Root(),
		"pool":    application.Pool.Size(),
	}).Info("✅ chunkstore initialized")

	// 3. Setup Network
	lis, err := net.Listen("tcp", cfg.Server.Addr)
	if err != nil {
		log.Fatalf("❌ Failed to listen on %s: %v", cfg.Server.Addr, err)
	}

	// 4. Setup gRPC Server
	grpcServer := grpc.NewServer(server.NewInterceptors(log).ServerOptions()...)
	chunkrpc.RegisterChunkServiceServer(grpcServer, service.NewChunkService(application, log))

	healthSrv := health.NewServer()
	healthSrv.SetServingStatus(chunkrpc.ServiceName, healthpb.HealthCheckResponse_SERVING)
	healthpb.RegisterHealthServer(grpcServer, healthSrv)

	// 5. Metrics
	var metricsSrv *http.Server
	if cfg.Metrics.Addr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		metricsSrv = &http.Server{Addr: cfg.Metrics.Addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
		go func() {
			log.Infof("📈 Metrics listening on %s", cfg.Metrics.Addr)
			if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.WithError(err).Error("metrics server failed")
			}
		}()
	}

	// 6. Start Server (Async)
	go func() {
		log.Infof("🚀 gRPC Server listening on %s...", cfg.Server.Addr)
		if err := grpcServer.Serve(lis); err != nil {
			log.Fatalf("❌ Failed to serve: %v", err)
		}
	}()

	// 7. Graceful Shutdown
	<-ctx.Done()
	log.Warn("⚠️  Shutting down server...")
	healthSrv.Shutdown()
	grpcServer.GracefulStop()

	if metricsSrv != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		_ = metricsSrv.Shutdown(shutdownCtx)
		cancel()
	}
	if err := application.Close(); err != nil {
		log.WithError(err).Warn("failed to release resources")
	}
	log.Info("👋 Server stopped.")
}
