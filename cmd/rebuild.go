package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var rebuildInvalidate bool

// rebuildCmd represents the rebuild command
var rebuildCmd = &cobra.Command{
	Use:   "rebuild",
	Short: "Rebuild the precompiled table cache",
	Long: `Runs a full archive and directory scan, collects the curated table set and
writes a fresh precompiled cache snapshot. With --invalidate, the existing
snapshot is discarded first so the scan never takes the fast path.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runRebuild(cmd.Context())
	},
}

func init() {
	rebuildCmd.Flags().BoolVar(&rebuildInvalidate, "invalidate", false, "discard the existing snapshot before scanning")
	RootCmd.AddCommand(rebuildCmd)
}

func runRebuild(ctx context.Context) error {
	svc, logg, err := newEngine(ctx)
	if err != nil {
		return err
	}
	defer logg.Sync()

	if rebuildInvalidate {
		if err := svc.InvalidatePrecache(); err != nil {
			return err
		}
	}
	if err := svc.RebuildPrecache(ctx); err != nil {
		return err
	}
	fmt.Println("Precompiled cache rebuilt.")
	return nil
}
