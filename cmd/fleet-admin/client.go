package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"fleet-admin/internal/client"
	"fleet-admin/internal/logger"
	"fleet-admin/internal/model"
	"fleet-admin/internal/service"
	"fleet-admin/internal/syncer"
)

type clientRuntime struct {
	fleet       *service.FleetService
	coordinator *syncer.Coordinator
	log         zerolog.Logger
}

func newClientRuntime() (*clientRuntime, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	log := logger.WithComponent(logger.NewWithWriter(cfg.Environment, os.Stderr), "sync")

	fleet := service.NewFleetService(model.DefaultSnapshot(), nil)
	coordinator := syncer.NewCoordinator(
		fleet,
		client.NewStateClient(cfg.Client.APIURL),
		syncer.NewLocalCache(cfg.Client.CacheDir),
		cfg.Client.Debounce,
		log,
	)
	coordinator.Subscribe(func(ev syncer.StatusEvent) {
		if ev.Message != "" && ev.Status != syncer.StatusConnecting {
			fmt.Fprintf(os.Stderr, "[%s] %s\n", ev.Status, ev.Message)
		}
	})

	return &clientRuntime{fleet: fleet, coordinator: coordinator, log: log}, nil
}

// finish pushes outstanding changes. A server that is unreachable is not an
// error for the command: the change is already in the local cache.
func (rt *clientRuntime) finish(ctx context.Context) {
	defer rt.coordinator.Close()
	if err := rt.coordinator.Flush(ctx); err != nil {
		rt.log.Warn().Err(err).Msg("changes saved locally and will sync later")
	}
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Sign in to the server and download its state",
	RunE: func(cmd *cobra.Command, args []string) error {
		username, _ := cmd.Flags().GetString("username")
		password, _ := cmd.Flags().GetString("password")
		if password == "" {
			password = os.Getenv("FLEET_PASSWORD")
		}
		if username == "" || password == "" {
			return fmt.Errorf("enter both username and password to continue")
		}

		rt, err := newClientRuntime()
		if err != nil {
			return err
		}
		if err := rt.coordinator.Login(cmd.Context(), username, password); err != nil {
			if errors.Is(err, client.ErrUnauthorized) {
				return fmt.Errorf("invalid username or password")
			}
			return err
		}
		rt.finish(cmd.Context())
		fmt.Printf("Signed in as %s\n", username)
		return nil
	},
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Sign out and forget the stored token",
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := newClientRuntime()
		if err != nil {
			return err
		}
		defer rt.coordinator.Close()
		return rt.coordinator.Logout(cmd.Context())
	},
}

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Pull the server state, reconcile trips and push the result",
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := newClientRuntime()
		if err != nil {
			return err
		}
		if err := rt.coordinator.RequireSignIn(); err != nil {
			return err
		}
		if err := rt.coordinator.Bootstrap(cmd.Context()); err != nil {
			return err
		}
		result := rt.fleet.ReconcileAll()
		rt.finish(cmd.Context())
		return printJSON(result)
	},
}

var dashboardCmd = &cobra.Command{
	Use:   "dashboard",
	Short: "Show trip and cash-flow metrics",
	RunE: func(cmd *cobra.Command, args []string) error {
		mode, _ := cmd.Flags().GetString("mode")
		start, _ := cmd.Flags().GetString("start")
		end, _ := cmd.Flags().GetString("end")

		rt, err := newClientRuntime()
		if err != nil {
			return err
		}
		if err := rt.coordinator.Bootstrap(cmd.Context()); err != nil {
			return err
		}

		if mode != "" {
			if err := rt.fleet.SetDashboardFilter(model.DashboardFilter{
				Mode:  model.DashboardMode(mode),
				Start: start,
				End:   end,
			}); err != nil {
				return err
			}
		}
		metrics := rt.fleet.Dashboard()
		rt.finish(cmd.Context())
		return printJSON(metrics)
	},
}

var fleetCmd = &cobra.Command{
	Use:   "fleet",
	Short: "Manage fleet units",
}

var fleetAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Add a fleet unit",
	RunE: func(cmd *cobra.Command, args []string) error {
		unit := model.FleetUnit{}
		unit.UnitID, _ = cmd.Flags().GetString("unit-id")
		unit.FleetType, _ = cmd.Flags().GetString("type")
		ownership, _ := cmd.Flags().GetString("ownership")
		unit.Ownership = model.Ownership(ownership)
		unit.Model, _ = cmd.Flags().GetString("model")
		unit.Capacity, _ = cmd.Flags().GetString("capacity")
		unit.Status, _ = cmd.Flags().GetString("status")
		unit.Supplier, _ = cmd.Flags().GetString("supplier")

		rt, err := newClientRuntime()
		if err != nil {
			return err
		}
		if err := rt.coordinator.Bootstrap(cmd.Context()); err != nil {
			return err
		}
		saved, err := rt.fleet.SaveFleetUnit(unit)
		if err != nil {
			rt.coordinator.Close()
			return err
		}
		rt.finish(cmd.Context())
		return printJSON(saved)
	},
}

var driverCmd = &cobra.Command{
	Use:   "driver",
	Short: "Manage drivers",
}

var driverAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Add a driver",
	RunE: func(cmd *cobra.Command, args []string) error {
		driver := model.Driver{}
		driver.Name, _ = cmd.Flags().GetString("name")
		driver.License, _ = cmd.Flags().GetString("license")
		driver.Phone, _ = cmd.Flags().GetString("phone")
		driver.Availability, _ = cmd.Flags().GetString("availability")
		affiliation, _ := cmd.Flags().GetString("affiliation")
		driver.Affiliation = model.Affiliation(affiliation)
		driver.Supplier, _ = cmd.Flags().GetString("supplier")

		rt, err := newClientRuntime()
		if err != nil {
			return err
		}
		if err := rt.coordinator.Bootstrap(cmd.Context()); err != nil {
			return err
		}
		saved, err := rt.fleet.SaveDriver(driver)
		if err != nil {
			rt.coordinator.Close()
			return err
		}
		rt.finish(cmd.Context())
		return printJSON(saved)
	},
}

var tripCmd = &cobra.Command{
	Use:   "trip",
	Short: "Manage trips",
}

var tripAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Add a trip; completed trips get their invoice and supplier payment",
	RunE: func(cmd *cobra.Command, args []string) error {
		trip := model.Trip{}
		trip.Date, _ = cmd.Flags().GetString("date")
		trip.Customer, _ = cmd.Flags().GetString("customer")
		trip.Vehicle, _ = cmd.Flags().GetString("vehicle")
		trip.Driver, _ = cmd.Flags().GetString("driver")
		trip.Route, _ = cmd.Flags().GetString("route")
		trip.RentalCharges, _ = cmd.Flags().GetFloat64("charges")
		trip.Status, _ = cmd.Flags().GetString("status")

		rt, err := newClientRuntime()
		if err != nil {
			return err
		}
		if err := rt.coordinator.Bootstrap(cmd.Context()); err != nil {
			return err
		}
		saved, result, err := rt.fleet.SaveTrip(trip)
		if err != nil {
			rt.coordinator.Close()
			return err
		}
		rt.finish(cmd.Context())
		return printJSON(struct {
			Trip       model.Trip              `json:"trip"`
			Automation service.ReconcileResult `json:"automation"`
		}{saved, result})
	},
}

func init() {
	loginCmd.Flags().StringP("username", "u", "", "admin username")
	loginCmd.Flags().StringP("password", "p", "", "admin password (or FLEET_PASSWORD)")

	dashboardCmd.Flags().String("mode", "", "thisMonth, lastMonth or custom (default: stored filter)")
	dashboardCmd.Flags().String("start", "", "custom range start (YYYY-MM-DD)")
	dashboardCmd.Flags().String("end", "", "custom range end (YYYY-MM-DD)")

	fleetAddCmd.Flags().String("unit-id", "", "unit id (required, unique)")
	fleetAddCmd.Flags().String("type", "", "fleet type")
	fleetAddCmd.Flags().String("ownership", string(model.OwnershipOwned), "owned or rent-in")
	fleetAddCmd.Flags().String("model", "", "model")
	fleetAddCmd.Flags().String("capacity", "", "capacity")
	fleetAddCmd.Flags().String("status", "", "status")
	fleetAddCmd.Flags().String("supplier", "", "supplier (required for rent-in)")
	fleetCmd.AddCommand(fleetAddCmd)

	driverAddCmd.Flags().String("name", "", "driver name (required)")
	driverAddCmd.Flags().String("license", "", "license number")
	driverAddCmd.Flags().String("phone", "", "phone")
	driverAddCmd.Flags().String("availability", "", "availability")
	driverAddCmd.Flags().String("affiliation", string(model.AffiliationCompany), "company or supplier")
	driverAddCmd.Flags().String("supplier", "", "supplier (required for supplier drivers)")
	driverCmd.AddCommand(driverAddCmd)

	tripAddCmd.Flags().String("date", "", "trip date (YYYY-MM-DD)")
	tripAddCmd.Flags().String("customer", "", "customer")
	tripAddCmd.Flags().String("vehicle", "", "fleet unit id")
	tripAddCmd.Flags().String("driver", "", "driver name")
	tripAddCmd.Flags().String("route", "", "route")
	tripAddCmd.Flags().Float64("charges", 0, "rental charges")
	tripAddCmd.Flags().String("status", "", "trip status; completed triggers invoicing")
	tripCmd.AddCommand(tripAddCmd)

	rootCmd.AddCommand(loginCmd, logoutCmd, syncCmd, dashboardCmd, fleetCmd, driverCmd, tripCmd)
}
