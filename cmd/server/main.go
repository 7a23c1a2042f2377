// Command matchcore-server runs the matching engine: it recovers state
// from the data directory, starts the sequencer, and serves the Engine
// gRPC service until it receives SIGINT/SIGTERM, at which point it
// drains in-flight work, writes a final snapshot, and exits cleanly.
package main

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"google.golang.org/grpc"

	"matchcore/config"
	"matchcore/engine"
	"matchcore/recovery"
	"matchcore/rpc"
	"matchcore/snapshot"
)

func main() {
	var configPath string

	root := &cobra.Command{
		Use:   "matchcore-server",
		Short: "Run the matchcore matching engine and its gRPC API",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(configPath)
		},
	}
	root.Flags().StringVar(&configPath, "config", "", "path to a matchcore.yaml config file (defaults to ./matchcore.yaml if present)")

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("build logger: %w", err)
	}
	defer logger.Sync()

	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}

	engCfg := engine.Config{TradeRingSize: cfg.TradeRingSize, Logger: logger}
	result, err := recovery.Recover(cfg.DataDir, cfg.FlushPolicy(), engCfg, logger)
	if err != nil {
		return fmt.Errorf("recover: %w", err)
	}
	logger.Info("recovered engine state",
		zap.Int("records_replayed", result.RecordsReplayed),
		zap.Bool("wal_truncated", result.WALTruncated),
	)

	ctx, cancel := context.WithCancel(context.Background())
	result.Engine.Start(ctx)

	if cfg.SnapshotInterval > 0 {
		go runPeriodicSnapshots(ctx, result.Engine, cfg.DataDir, cfg.SnapshotInterval, logger)
	}

	lis, err := net.Listen("tcp", cfg.ListenAddr)
	if err != nil {
		cancel()
		return fmt.Errorf("listen on %s: %w", cfg.ListenAddr, err)
	}

	grpcServer := grpc.NewServer()
	rpc.RegisterEngineServer(grpcServer, rpc.NewServer(result.Engine))

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("serving", zap.String("addr", cfg.ListenAddr))
		serveErr <- grpcServer.Serve(lis)
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	fatal := false
	select {
	case sig := <-sigCh:
		logger.Info("shutting down", zap.String("signal", sig.String()))
	case err := <-serveErr:
		cancel()
		return fmt.Errorf("grpc server: %w", err)
	case <-result.Engine.Done():
		fatal = true
		logger.Error("engine halted during operation", zap.Error(result.Engine.Err()))
	}

	grpcServer.GracefulStop()
	cancel()
	result.Engine.Stop()

	if fatal {
		result.WAL.Close()
		return fmt.Errorf("engine fatal: %w", result.Engine.Err())
	}

	snap := result.Engine.Snapshot()
	if err := snapshot.Save(filepath.Join(cfg.DataDir, recovery.SnapshotFileName), snap); err != nil {
		logger.Error("final snapshot failed", zap.Error(err))
		result.WAL.Close()
		return fmt.Errorf("save final snapshot: %w", err)
	}
	logger.Info("final snapshot written", zap.Uint64("next_seq", snap.NextSeq), zap.Uint64("next_trade_id", snap.NextTradeID))

	if err := result.WAL.Close(); err != nil {
		return fmt.Errorf("close wal: %w", err)
	}
	return nil
}

func runPeriodicSnapshots(ctx context.Context, eng *engine.Engine, dataDir string, interval time.Duration, logger *zap.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	path := filepath.Join(dataDir, recovery.SnapshotFileName)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			snap := eng.Snapshot()
			if err := snapshot.Save(path, snap); err != nil {
				logger.Error("periodic snapshot failed", zap.Error(err))
				continue
			}
			logger.Info("periodic snapshot written", zap.Uint64("next_seq", snap.NextSeq))
		}
	}
}

func newLogger(level string) (*zap.Logger, error) {
	var zl zapcore.Level
	if err := zl.UnmarshalText([]byte(level)); err != nil {
		zl = zapcore.InfoLevel
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(zl)
	return cfg.Build()
}
