package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/saint0x/ggrowth/pkg/server"
)

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Run the pipeline on a cron schedule until interrupted",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithCancel(cmd.Context())
		defer cancel()

		// First signal shuts down gracefully, the second forces exit
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(sigCh)
		shuttingDown := make(chan struct{}, 1)

		go func() {
			for sig := range sigCh {
				select {
				case <-shuttingDown:
					logger.Error("Force stopping...")
					os.Exit(1)
				default:
					logger.Info("Received signal: %v", sig)
					logger.Info("Press Ctrl+C again to force stop")
					shuttingDown <- struct{}{}
					cancel()
				}
			}
		}()

		pipe, err := buildPipeline(ctx, logger, env, setup)
		if err != nil {
			return err
		}

		sched := newScheduler(logger, pipe)
		if err := sched.Start(env.Cron); err != nil {
			return err
		}

		srv, err := server.New(logger, sched)
		if err != nil {
			return fmt.Errorf("failed to create server: %w", err)
		}
		if err := srv.Start(ctx, env.Port); err != nil {
			sched.Stop()
			return fmt.Errorf("server error: %w", err)
		}

		logger.Info("Waiting for any in-flight run to finish...")
		done := sched.Stop()
		select {
		case <-done.Done():
		case <-time.After(5 * time.Minute):
			logger.Warning("Gave up waiting for in-flight run")
		}
		logger.Success("Shutdown complete")
		return nil
	},
}
