package main

import (
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"ticketflow/internal/batch"
	"ticketflow/internal/pipeline"
	"ticketflow/internal/store"
)

var processDryRun bool

// exitCode carries the process command's result through cobra back to main.
// 0 = completed, 1 = partial or failed; config and usage errors exit 2 via
// Execute.
var exitCode int

var processCmd = &cobra.Command{
	Use:   "process [file or directory...]",
	Short: "Ingest ticket scans into the database",
	Long: `Process one or more PDF or image files (or directories of them) through
OCR, extraction, validation, and duplicate detection. Every invocation is
recorded in the run ledger; page-level problems go to the review queue
instead of stopping the batch.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if processDryRun {
			files, err := batch.DiscoverFiles(args, cfg.Batch.FilePattern)
			if err != nil {
				return err
			}
			for _, f := range files {
				fmt.Println(f)
			}
			return nil
		}

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
		runner.OnProgress = func(pr batch.Progress) {
			fmt.Fprintf(os.Stderr, "\r[%d/%d] %d tickets, %d duplicates, %d review, %d errors",
				pr.FilesDone, pr.FilesTotal, pr.Created, pr.Duplicates, pr.Reviews, pr.Errors)
		}

		sum, runErr := runner.Run(ctx, args)
		fmt.Fprintln(os.Stderr)
		if sum == nil {
			return runErr
		}

		fmt.Println(renderSummary(sum))
		if runErr != nil {
			logger.Error("run finished with error",
				zap.String("request_guid", sum.RequestGUID), zap.Error(runErr))
		}

		switch sum.Status {
		case store.RunPartial, store.RunFailed:
			exitCode = 1
		}
		return nil
	},
}

var (
	summaryBox = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			Padding(0, 1)
	summaryLabel = lipgloss.NewStyle().Width(12).Faint(true)

	statusOK      = lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Bold(true)
	statusPartial = lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Bold(true)
	statusFailed  = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)
)

func renderSummary(sum *batch.Summary) string {
	status := statusOK
	switch sum.Status {
	case store.RunPartial:
		status = statusPartial
	case store.RunFailed:
		status = statusFailed
	}

	line := func(label string, value interface{}) string {
		return summaryLabel.Render(label) + fmt.Sprint(value)
	}
	lines := []string{
		line("Run", sum.RequestGUID),
		line("Status", status.Render(sum.Status)),
		line("Duration", sum.Duration.Round(time.Millisecond)),
		line("Files", fmt.Sprintf("%d processed, %d skipped, %d failed",
			sum.FilesProcessed, sum.Skipped, sum.Errors)),
		line("Pages", sum.PagesProcessed),
		line("Tickets", sum.Created),
		line("Duplicates", sum.Duplicates),
		line("Review", sum.Reviews),
	}
	if len(sum.FailedFiles) > 0 {
		lines = append(lines, line("Failed", strings.Join(sum.FailedFiles, ", ")))
	}
	return summaryBox.Render(lipgloss.JoinVertical(lipgloss.Left, lines...))
}

func init() {
	processCmd.Flags().BoolVar(&processDryRun, "dry-run", false, "discover and list files without processing")
}
