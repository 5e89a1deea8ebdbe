package main

import (
	"context"
	"fmt"
	"net"

	"quote-streamer/src/config"
	"quote-streamer/src/generator"
	pb "quote-streamer/src/grpc_control"
	"quote-streamer/src/interfaces"
	"quote-streamer/src/liveness"
	"quote-streamer/src/logger"
	"quote-streamer/src/registry"
	"quote-streamer/src/server"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
)

// engine groups the running components the outer servers read from
type engine struct {
	feed     *generator.TickGenerator
	registry *registry.Registry
	liveness *liveness.Monitor
	journal  interfaces.ISessionJournal
	market   interfaces.IMarketHours
	codec    interfaces.IQuoteCodec
}

type runningServers struct {
	api    interfaces.IDataExchanger
	grpc   *grpc.Server
	health *health.Server
	logger *logger.Logger
}

// -----------------------------------------------------------------------------

// startServers orchestrates the startup of the HTTP API and the gRPC control
// server
func startServers(ctx context.Context, config *config.Config, e engine, appLogger *logger.Logger) *runningServers {
	rs := &runningServers{logger: appLogger}

	// 1. HTTP API and WebSocket streaming
	rs.api = server.NewAPIServer(config.MConfig, server.Dependencies{
		Feed:     e.feed,
		Registry: e.registry,
		Liveness: e.liveness,
		Journal:  e.journal,
		Market:   e.market,
		Codec:    e.codec,
	}, logger.NewLogger(config, "APIServer"))

	go func() {
		if err := rs.api.Start(); err != nil {
			appLogger.Error("HTTP API failed: %v", err)
		}
	}()

	// 2. gRPC Control Server
	addr := fmt.Sprintf("%s:%d", config.GrpcHost, config.GrpcPort)
	lis, err := (&net.ListenConfig{}).Listen(ctx, "tcp", addr)
	if err != nil {
		appLogger.Error("gRPC control disabled, failed to listen on %s: %v", addr, err)
		return rs
	}

	grpcLogger := logger.NewLogger(config, "ControlService")
	controlService := pb.NewControlService(config.MConfig, e.registry, e.liveness, e.feed, grpcLogger)
	rs.grpc, rs.health = pb.NewServer(controlService)

	go func() {
		appLogger.Info("Starting gRPC Control Server on %s", lis.Addr())
		if err := rs.grpc.Serve(lis); err != nil {
			appLogger.Error("gRPC server failed: %v", err)
		}
	}()

	return rs
}

// -----------------------------------------------------------------------------

func (rs *runningServers) stop(ctx context.Context) {
	if err := rs.api.Stop(ctx); err != nil {
		rs.logger.Warning("HTTP API shutdown: %v", err)
	}

	if rs.grpc == nil {
		return
	}
	rs.health.Shutdown()
	stopped := make(chan struct{})
	go func() {
		rs.grpc.GracefulStop()
		close(stopped)
	}()
	select {
	case <-stopped:
	case <-ctx.Done():
		rs.grpc.Stop()
	}
}
