// Command foodbankctl runs admin tasks against the food bank database.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"github.com/ahmetcoskunkizilkaya/foodbank-backend/internal/apps"
	"github.com/ahmetcoskunkizilkaya/foodbank-backend/internal/apps/communities"
	"github.com/ahmetcoskunkizilkaya/foodbank-backend/internal/apps/deliveries"
	"github.com/ahmetcoskunkizilkaya/foodbank-backend/internal/config"
	"github.com/ahmetcoskunkizilkaya/foodbank-backend/internal/database"
	"github.com/ahmetcoskunkizilkaya/foodbank-backend/internal/logging"
	"github.com/ahmetcoskunkizilkaya/foodbank-backend/internal/scanguard"
	"github.com/ahmetcoskunkizilkaya/foodbank-backend/internal/tenant"
	"github.com/ahmetcoskunkizilkaya/foodbank-backend/internal/validator"
)

var Version = "dev"

var bankID string

func main() {
	rootCmd := &cobra.Command{
		Use:           "foodbankctl",
		Short:         "Admin tasks for the food bank backend",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVarP(&bankID, "bank", "b", os.Getenv("BANK_ID"), "food bank id (defaults to $BANK_ID)")

	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(templateCmd())
	rootCmd.AddCommand(scheduleCmd())
	rootCmd.AddCommand(userCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// env is what every subcommand needs: config, bank registry and database.
type env struct {
	cfg      *config.Config
	registry *tenant.Registry
	db       *gorm.DB
	validate *validator.Validator
}

func setup() (*env, error) {
	cfg := config.Load()
	logging.Setup(cfg.AppEnv)

	registry, err := tenant.LoadFromFile(cfg.BanksConfigPath)
	if err != nil {
		return nil, err
	}
	if err := database.Connect(cfg); err != nil {
		return nil, err
	}
	return &env{cfg: cfg, registry: registry, db: database.DB, validate: validator.New()}, nil
}

func (e *env) close() {
	if err := database.Close(); err != nil {
		slog.Warn("database close error", "error", err)
	}
}

// requireBank checks the --bank flag against the registry.
func (e *env) requireBank() (string, error) {
	if bankID == "" {
		return "", fmt.Errorf("--bank is required")
	}
	if !e.registry.Exists(bankID) {
		return "", fmt.Errorf("unknown bank %q", bankID)
	}
	return bankID, nil
}

func plugins(e *env) []apps.Plugin {
	return []apps.Plugin{
		communities.New(e.registry, e.validate),
		deliveries.New(e.registry, e.validate, scanguard.NewMemoryGuard(e.cfg.ScanLockTTL)),
	}
}
