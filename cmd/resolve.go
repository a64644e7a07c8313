package cmd

import (
	"context"
	"fmt"
	"os"

	"resource-manager/core/codec"
	"resource-manager/core/config"
	"resource-manager/core/logger"
	"resource-manager/feature/resolver"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var resolveModule string

// resolveCmd represents the resolve command
var resolveCmd = &cobra.Command{
	Use:   "resolve [name]",
	Short: "Resolve a resource through the override chain",
	Long: `Resolves a named resource to its highest-priority source, parses it and
prints where it came from. With --module, the module's tiers are installed
first.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runResolve(cmd.Context(), args[0])
	},
}

func init() {
	resolveCmd.Flags().StringVar(&resolveModule, "module", "", "module name or package path to activate first")
	RootCmd.AddCommand(resolveCmd)
}

func runResolve(ctx context.Context, name string) error {
	svc, logg, err := newEngine(ctx)
	if err != nil {
		return err
	}
	defer logg.Sync()

	if resolveModule != "" {
		if _, err := svc.ActivateModule(ctx, resolveModule); err != nil {
			return err
		}
	}

	table, err := svc.Resolve(name)
	if err != nil {
		return err
	}

	fmt.Println("\n--- Resource ---")
	fmt.Printf("Name:     %s\n", name)
	fmt.Printf("Columns:  %d\n", len(table.Columns))
	fmt.Printf("Rows:     %d\n", table.RowCount())
	fmt.Println("----------------")
	return nil
}

// newEngine loads configuration, builds the engine and indexes the chain.
func newEngine(ctx context.Context) (*resolver.Service, *zap.Logger, error) {
	cfg, err := config.LoadConfig(".")
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	logg, err := logger.New(&cfg.Log)
	if err != nil {
		fmt.Printf("Failed to create logger: %v\n", err)
		os.Exit(1)
	}

	svc := resolver.NewService(cfg.Resolver, codec.NewBasicSet(), logg)
	if err := svc.Start(ctx); err != nil {
		return nil, nil, err
	}
	return svc, logg, nil
}
