package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"ticketflow/internal/review"
	"ticketflow/internal/store"
)

var (
	reviewSeverity string
	reviewReason   string
	reviewAll      bool
	reviewLimit    int
	reviewShow     bool
)

var reviewCmd = &cobra.Command{
	Use:   "review",
	Short: "Work the manual review queue",
	Long: `List pages that were held back for manual review, CRITICAL first. Use
"review resolve ID" after correcting or rejecting the underlying page.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openStore(cmd)
		if err != nil {
			return err
		}
		defer s.Close()

		entries, err := s.ListReviewEntries(cmd.Context(), store.ReviewFilter{
			Severity:        review.Severity(reviewSeverity),
			Reason:          review.Reason(reviewReason),
			IncludeResolved: reviewAll,
			Limit:           reviewLimit,
		})
		if err != nil {
			return err
		}
		if len(entries) == 0 {
			fmt.Println("Review queue is empty.")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tSEVERITY\tREASON\tPAGE\tCREATED")
		for _, e := range entries {
			fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\n",
				e.ID, e.Severity, e.Reason, e.PageID,
				e.CreatedAt.Local().Format("2006-01-02 15:04"))
		}
		if err := w.Flush(); err != nil {
			return err
		}

		if reviewShow {
			for _, e := range entries {
				if len(e.DetectedFields) == 0 {
					continue
				}
				b, err := json.MarshalIndent(e.DetectedFields, "  ", "  ")
				if err != nil {
					continue
				}
				fmt.Printf("\n#%d detected fields:\n  %s\n", e.ID, b)
			}
		}
		return nil
	},
}

var reviewResolveCmd = &cobra.Command{
	Use:   "resolve ID",
	Short: "Mark a review entry as handled",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("bad review id %q", args[0])
		}

		s, err := openStore(cmd)
		if err != nil {
			return err
		}
		defer s.Close()

		if err := s.ResolveReviewEntry(cmd.Context(), id, operator); err != nil {
			return err
		}
		fmt.Printf("Resolved review entry %d\n", id)
		return nil
	},
}

func init() {
	reviewCmd.Flags().StringVar(&reviewSeverity, "severity", "", "filter by severity (CRITICAL, WARNING, INFO)")
	reviewCmd.Flags().StringVar(&reviewReason, "reason", "", "filter by reason code")
	reviewCmd.Flags().BoolVar(&reviewAll, "all", false, "include resolved entries")
	reviewCmd.Flags().IntVar(&reviewLimit, "limit", 0, "maximum entries to show")
	reviewCmd.Flags().BoolVar(&reviewShow, "fields", false, "print detected fields for each entry")

	reviewCmd.AddCommand(reviewResolveCmd)
}
