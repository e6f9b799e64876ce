package main

import (
	"github.com/spf13/cobra"

	"fleet-admin/internal/logger"
	"fleet-admin/internal/service"
)

var reconcileCmd = &cobra.Command{
	Use:   "reconcile",
	Short: "Create missing invoices and supplier payments in the server's stored state",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		appLogger := logger.New(cfg.Environment)

		stateRepo, closeStorage, err := openStateRepository(cfg, appLogger)
		if err != nil {
			return err
		}
		defer closeStorage()

		stateService := service.NewStateService(stateRepo, logger.WithComponent(appLogger, "state"))
		if err := stateService.Initialize(cmd.Context()); err != nil {
			return err
		}

		result, err := stateService.Reconcile(cmd.Context())
		if err != nil {
			return err
		}

		return printJSON(result)
	},
}

func init() {
	rootCmd.AddCommand(reconcileCmd)
}
