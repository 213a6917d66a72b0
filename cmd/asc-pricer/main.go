package main

import (
	"fmt"
	"os"

	"github.com/playforge/asc-pricer/internal/appstore"
	"github.com/playforge/asc-pricer/internal/config"
	ierr "github.com/playforge/asc-pricer/internal/errors"
	"github.com/playforge/asc-pricer/internal/logger"
	"github.com/playforge/asc-pricer/internal/service"
	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		// errors are reported but never escalate to a non-zero exit: a run
		// is partial across products and already-submitted schedules stand
		printError(err)
	}
}

func printError(err error) {
	fmt.Fprintln(os.Stderr, err.Error())
	if hint := ierr.Hint(err); hint != "" {
		fmt.Fprintln(os.Stderr, hint)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "asc-pricer",
		Short:         "Manage App Store Connect in-app purchase prices",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := root.PersistentFlags()
	flags.String("config", "./config.json", "path to the JSON config file")
	flags.String("app-id", "", "App Store Connect app id (overrides config)")
	flags.String("base-territory", "", "base territory code, e.g. USA (overrides config)")
	flags.String("product", "", "restrict the run to a single product id")
	flags.String("prices", "", "path to the productID -> base price JSON file (overrides config)")
	flags.String("percentages", "", "path to the territory -> percentage JSON file (overrides config)")
	flags.BoolP("verbose", "v", false, "verbose output")

	root.AddCommand(newListCmd(), newRestoreCmd(), newLocalizeCmd())
	return root
}

// buildParams loads config, applies flag overrides and wires the storefront
// client behind the services.
func buildParams(cmd *cobra.Command) (service.ServiceParams, error) {
	cfgPath, _ := cmd.Flags().GetString("config")
	cfg, err := config.NewConfig(cfgPath)
	if err != nil {
		return service.ServiceParams{}, err
	}

	if v, _ := cmd.Flags().GetString("app-id"); v != "" {
		cfg.AppStore.AppID = v
	}
	if v, _ := cmd.Flags().GetString("base-territory"); v != "" {
		cfg.Pricing.BaseTerritory = v
	}
	if v, _ := cmd.Flags().GetString("product"); v != "" {
		cfg.Pricing.Product = v
	}
	if v, _ := cmd.Flags().GetString("prices"); v != "" {
		cfg.Pricing.DefaultPricesPath = v
	}
	if v, _ := cmd.Flags().GetString("percentages"); v != "" {
		cfg.Pricing.PercentagesPath = v
	}
	if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
		cfg.Logging.Level = config.LogLevelDebug
	}

	if err := cfg.Validate(); err != nil {
		return service.ServiceParams{}, err
	}

	log, err := logger.NewLogger(cfg)
	if err != nil {
		return service.ServiceParams{}, err
	}

	storefront, err := appstore.NewClient(cfg, log)
	if err != nil {
		return service.ServiceParams{}, err
	}

	return service.ServiceParams{
		Logger:     log,
		Config:     cfg,
		Storefront: storefront,
	}, nil
}

func newListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List one-time products and their prices",
		RunE: func(cmd *cobra.Command, args []string) error {
			params, err := buildParams(cmd)
			if err != nil {
				return err
			}

			includePrices, _ := cmd.Flags().GetBool("prices-column")
			includeLocal, _ := cmd.Flags().GetBool("local")

			rows, err := service.NewListService(params).List(cmd.Context(), service.ListOptions{
				IncludePrices:      includePrices || includeLocal,
				IncludeLocalPrices: includeLocal,
			})
			if err != nil {
				return err
			}
			fmt.Print(service.RenderRows(rows))
			return nil
		},
	}
	cmd.Flags().BoolP("prices-column", "p", false, "include base-territory pricing")
	cmd.Flags().BoolP("local", "l", false, "include pricing for every territory")
	return cmd
}

func newRestoreCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "restore",
		Short: "Set every configured product to its base-currency price",
		RunE: func(cmd *cobra.Command, args []string) error {
			params, err := buildParams(cmd)
			if err != nil {
				return err
			}

			if _, err := service.NewRestoreService(params).Restore(cmd.Context()); err != nil {
				return err
			}

			// echo the prices that are now in effect
			includeLocal, _ := cmd.Flags().GetBool("local")
			rows, err := service.NewListService(params).List(cmd.Context(), service.ListOptions{
				IncludePrices:      true,
				IncludeLocalPrices: includeLocal,
			})
			if err != nil {
				return err
			}
			fmt.Print(service.RenderRows(rows))
			fmt.Println()
			fmt.Println("done.")
			return nil
		},
	}
	cmd.Flags().BoolP("local", "l", false, "echo pricing for every territory afterwards")
	return cmd
}

func newLocalizeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "localize",
		Short: "Derive every territory's price from the base territory price",
		Long: "Runs a full restore first so base prices are canonical, then scales each " +
			"territory by its configured percentage and resubmits complete schedules.",
		RunE: func(cmd *cobra.Command, args []string) error {
			params, err := buildParams(cmd)
			if err != nil {
				return err
			}

			if err := service.NewLocalizeService(params).Localize(cmd.Context()); err != nil {
				return err
			}
			fmt.Println()
			fmt.Println("done.")
			return nil
		},
	}
}
