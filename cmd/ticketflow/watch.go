package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"ticketflow/internal/batch"
	"ticketflow/internal/pipeline"
)

var watchCmd = &cobra.Command{
	Use:   "watch DIRECTORY",
	Short: "Watch a directory and ingest new scans as they arrive",
	Long: `Watch a directory for new PDF or image files and run each one through the
ingestion pipeline after a short settle delay. Ctrl-C stops the watcher.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		s, err := openStore(cmd)
		if err != nil {
			return err
		}
		defer s.Close()

		p, err := pipeline.New(cfg, s, operator)
		if err != nil {
			return err
		}
		if err := p.PreloadRefdata(ctx); err != nil {
			return err
		}

		runner := batch.NewRunner(cfg, s, p, operator)
		logger.Info("watching for new files", zap.String("dir", args[0]))

		err = batch.NewWatcher(runner).Watch(ctx, args[0])
		if errors.Is(err, context.Canceled) {
			logger.Info("watcher stopped")
			return nil
		}
		return err
	},
}
