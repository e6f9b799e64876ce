package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"fleet-admin/internal/config"
)

var (
	apiURLFlag   string
	cacheDirFlag string
)

var rootCmd = &cobra.Command{
	Use:   "fleet-admin",
	Short: "Fleet rental administration: server and offline-first client",
	Long: `fleet-admin manages fleet units, drivers, trips, customer invoices and
supplier payments.

"fleet-admin serve" runs the REST server that stores the shared state.
The remaining commands work on a local cache and sync it with that server.`,
	SilenceUsage: true,
}

func Execute() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&apiURLFlag, "api-url", "", "fleet-admin server URL (overrides FLEET_API_URL)")
	rootCmd.PersistentFlags().StringVar(&cacheDirFlag, "cache-dir", "", "local cache directory (overrides FLEET_CACHE_DIR)")
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if apiURLFlag != "" {
		cfg.Client.APIURL = apiURLFlag
	}
	if cacheDirFlag != "" {
		cfg.Client.CacheDir = cacheDirFlag
	}
	return cfg, nil
}
