package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

// moduleCmd represents the module command
var moduleCmd = &cobra.Command{
	Use:   "module [name-or-path]",
	Short: "Load a module and print its manifest",
	Long: `Activates a module package, loading its add-on packages, campaign folder
and custom string table, and prints a summary of what got installed.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runModule(cmd.Context(), args[0])
	},
}

func init() {
	RootCmd.AddCommand(moduleCmd)
}

func runModule(ctx context.Context, nameOrPath string) error {
	svc, logg, err := newEngine(ctx)
	if err != nil {
		return err
	}
	defer logg.Sync()

	mc, err := svc.ActivateModule(ctx, nameOrPath)
	if err != nil {
		return err
	}

	fmt.Println("\n--- Module ---")
	fmt.Printf("Name:         %s\n", mc.Manifest.Name)
	fmt.Printf("Entry Area:   %s\n", mc.Manifest.EntryArea)
	fmt.Printf("Campaign:     %s\n", orNone(mc.Manifest.CampaignID))
	fmt.Printf("Add-ons:      %s\n", orNone(strings.Join(mc.Manifest.Addons, ", ")))
	fmt.Printf("Resources:    %d\n", len(mc.ModuleTier))
	fmt.Printf("String Table: %v\n", mc.StringTable != nil)
	fmt.Println("--------------")
	return nil
}

func orNone(s string) string {
	if s == "" {
		return "(none)"
	}
	return s
}
