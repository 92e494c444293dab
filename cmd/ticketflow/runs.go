package main

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"ticketflow/internal/store"
)

var (
	runsStatus string
	runsLimit  int
	runsKeep   int
)

var runsCmd = &cobra.Command{
	Use:   "runs [REQUEST_GUID]",
	Short: "Show the processing run ledger",
	Long: `List recent processing runs, or show one run in full when a request GUID
is given. Use --status to filter (IN_PROGRESS, COMPLETED, PARTIAL, FAILED).`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openStore(cmd)
		if err != nil {
			return err
		}
		defer s.Close()

		if len(args) == 1 {
			run, err := s.RunByGUID(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			printRunDetail(run)
			return nil
		}

		var runs []store.ProcessingRun
		if runsStatus != "" {
			runs, err = s.RunsByStatus(cmd.Context(), runsStatus)
		} else {
			runs, err = s.RecentRuns(cmd.Context(), runsLimit)
		}
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "STARTED\tSTATUS\tFILES\tPAGES\tTICKETS\tDUPES\tREVIEW\tERRORS\tGUID")
		for _, r := range runs {
			fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%d\t%d\t%d\t%d\t%s\n",
				r.StartedAt.Local().Format("2006-01-02 15:04:05"), r.Status,
				r.FilesProcessed, r.PagesProcessed, r.TicketsCreated,
				r.DuplicatesFound, r.ReviewQueueCount, r.ErrorCount, r.RequestGUID)
		}
		return w.Flush()
	},
}

func printRunDetail(r *store.ProcessingRun) {
	fmt.Printf("Run        %s\n", r.RequestGUID)
	fmt.Printf("Status     %s\n", r.Status)
	fmt.Printf("Operator   %s\n", r.ProcessedBy)
	fmt.Printf("Started    %s\n", r.StartedAt.Local().Format(time.RFC3339))
	if r.CompletedAt != nil {
		fmt.Printf("Completed  %s\n", r.CompletedAt.Local().Format(time.RFC3339))
	}
	fmt.Printf("Files      %d\n", r.FilesProcessed)
	fmt.Printf("Pages      %d\n", r.PagesProcessed)
	fmt.Printf("Tickets    %d created, %d updated\n", r.TicketsCreated, r.TicketsUpdated)
	fmt.Printf("Duplicates %d\n", r.DuplicatesFound)
	fmt.Printf("Review     %d\n", r.ReviewQueueCount)
	fmt.Printf("Errors     %d\n", r.ErrorCount)
	fmt.Printf("Config     %s\n", r.ConfigJSON)
}

var runsCleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Delete terminal runs older than the retention window",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openStore(cmd)
		if err != nil {
			return err
		}
		defer s.Close()

		cutoff := time.Now().AddDate(0, 0, -runsKeep)
		n, err := s.CleanupOldRuns(cmd.Context(), cutoff)
		if err != nil {
			return err
		}
		fmt.Printf("Deleted %d runs older than %s\n", n, cutoff.Format("2006-01-02"))
		return nil
	},
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Aggregate statistics across all runs",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openStore(cmd)
		if err != nil {
			return err
		}
		defer s.Close()

		st, err := s.Statistics(cmd.Context())
		if err != nil {
			return err
		}
		pending, err := s.CountUnresolvedReviews(cmd.Context())
		if err != nil {
			return err
		}

		fmt.Printf("Runs        %d total (%d completed, %d partial, %d failed, %d in progress)\n",
			st.TotalRuns, st.CompletedRuns, st.PartialRuns, st.FailedRuns, st.InProgressRuns)
		fmt.Printf("Files       %d\n", st.TotalFiles)
		fmt.Printf("Pages       %d\n", st.TotalPages)
		fmt.Printf("Tickets     %d\n", st.TotalTickets)
		fmt.Printf("Duplicates  %d\n", st.TotalDuplicates)
		fmt.Printf("Review      %d queued\n", st.TotalReviews)
		fmt.Printf("Errors      %d\n", st.TotalErrors)

		var unresolved int64
		for _, n := range pending {
			unresolved += n
		}
		fmt.Printf("Unresolved  %d review entries", unresolved)
		if unresolved > 0 {
			fmt.Printf(" (%d critical, %d warning, %d info)",
				pending["CRITICAL"], pending["WARNING"], pending["INFO"])
		}
		fmt.Println()
		return nil
	},
}

func init() {
	runsCmd.Flags().StringVar(&runsStatus, "status", "", "filter by status")
	runsCmd.Flags().IntVar(&runsLimit, "limit", 20, "number of runs to show")
	runsCleanupCmd.Flags().IntVar(&runsKeep, "keep-days", 90, "retention window in days")

	runsCmd.AddCommand(runsCleanupCmd)
}
