// Hasher server - serves impression hashing over gRPC, HTTP and WebSocket
package main

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/RXminuS/impression-hash/internal/config"
	"github.com/RXminuS/impression-hash/internal/hasher"
	"github.com/RXminuS/impression-hash/internal/server"
)

const shutdownTimeout = 5 * time.Second

func main() {
	cfg := config.Load()

	// Setup structured logging
	slog.SetDefault(cfg.NewLogger())

	// Wait for shutdown signal
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, nil); err != nil {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}

// run serves gRPC and HTTP until ctx is done, then shuts both down.
// listening, when set, receives the bound addresses once both accept.
func run(ctx context.Context, cfg *config.Config, listening func(grpcAddr, httpAddr net.Addr)) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	svc := hasher.New(cfg)

	grpcLis, err := net.Listen("tcp", cfg.GRPCAddr)
	if err != nil {
		return err
	}
	httpLis, err := net.Listen("tcp", cfg.HTTPAddr)
	if err != nil {
		_ = grpcLis.Close()
		return err
	}

	// Start gRPC server
	grpcServer := hasher.NewServer(svc)
	go func() {
		slog.Info("grpc server starting", "addr", grpcLis.Addr().String())
		if err := grpcServer.Serve(grpcLis); err != nil {
			slog.Error("grpc server error", "error", err)
		}
	}()

	// Start HTTP server
	srv := server.New(svc, cfg)
	httpServer := &http.Server{
		Handler:     srv.Handler(),
		ReadTimeout: cfg.RequestTimeout,
	}
	go func() {
		slog.Info("http server starting", "addr", httpLis.Addr().String())
		if err := httpServer.Serve(httpLis); !errors.Is(err, http.ErrServerClosed) {
			slog.Error("http server error", "error", err)
		}
	}()

	if listening != nil {
		listening(grpcLis.Addr(), httpLis.Addr())
	}

	<-ctx.Done()
	slog.Info("shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	srv.Close()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("http shutdown error", "error", err)
	}

	stopped := make(chan struct{})
	go func() {
		grpcServer.GracefulStop()
		close(stopped)
	}()
	select {
	case <-stopped:
	case <-shutdownCtx.Done():
		grpcServer.Stop()
	}

	stats := svc.Stats()
	slog.Info("shutdown complete", "hashed", stats.Hashed, "compared", stats.Compared, "failed", stats.Failed)
	return nil
}
