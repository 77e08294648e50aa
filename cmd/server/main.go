package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/blocklayer/voxelkeep/pkg/server"
)

const shutdownGraceFromSignal = 5 * time.Second

func newLogger(level string) *zap.Logger {
	var lvl zapcore.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = zapcore.InfoLevel
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	cfg.EncoderConfig.TimeKey = "ts"
	logger, err := cfg.Build()
	if err != nil {
		logger = zap.NewNop()
	}
	return logger
}

func main() {
	cmd := &cobra.Command{
		Use:   "server <listen> <world_dir>",
		Short: "Run a voxel world authority",
		Args:  cobra.ExactArgs(2),
		RunE:  run,
	}
	cmd.Flags().String("log-level", "info", "log level: debug, info, warn, error")
	viper.BindPFlag("log-level", cmd.Flags().Lookup("log-level"))
	viper.SetEnvPrefix("VOXELKEEP")
	viper.AutomaticEnv()

	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, args []string) error {
	listenSpec, worldDir := args[0], args[1]

	logger := newLogger(viper.GetString("log-level"))
	defer logger.Sync()

	srv, err := server.New(server.Config{ListenAddr: listenSpec, WorldDir: worldDir}, logger)
	if err != nil {
		return fmt.Errorf("opening world: %w", err)
	}
	if err := srv.Start(); err != nil {
		return fmt.Errorf("starting server: %w", err)
	}
	logger.Info("server listening", zap.String("addr", srv.Addr().String()))

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info("shutdown signal received", zap.String("signal", sig.String()))
		if !srv.Authority().TrySubmitShutdown(shutdownGraceFromSignal) {
			logger.Error("world task unresponsive, forcing exit")
			os.Exit(1)
		}
	}()

	go server.RunAdmin(srv.Authority(), srv.Addr().String(), logger)

	code := <-srv.Authority().ExitCode()
	os.Exit(code)
	return nil
}
