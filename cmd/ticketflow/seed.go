package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"ticketflow/internal/refdata"
)

var seedFilePath string

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Load reference data into the database",
	Long: `Apply reference data (jobs, materials, sources, destinations, vendors,
ticket types) to the database. Without --file the built-in defaults are
applied. Seeding is idempotent; existing rows are never modified.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		set := refdata.DefaultSeed()
		if seedFilePath != "" {
			var err error
			set, err = refdata.LoadSeedFile(seedFilePath)
			if err != nil {
				return err
			}
		}

		s, err := openStore(cmd)
		if err != nil {
			return err
		}
		defer s.Close()

		if err := s.Seed(cmd.Context(), set); err != nil {
			return err
		}

		jobs, err := s.AllJobs(cmd.Context())
		if err != nil {
			return err
		}
		materials, err := s.AllMaterials(cmd.Context())
		if err != nil {
			return err
		}
		vendors, err := s.AllVendors(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Printf("Seeded %s: %d jobs, %d materials, %d vendors\n",
			s.Path(), len(jobs), len(materials), len(vendors))
		return nil
	},
}

func init() {
	seedCmd.Flags().StringVar(&seedFilePath, "file", "", "yaml seed file (default built-in reference data)")
}
