package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ahmetcoskunkizilkaya/foodbank-backend/internal/database"
)

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update all tables",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := setup()
			if err != nil {
				return err
			}
			defer e.close()

			if err := database.MigrateShared(e.db); err != nil {
				return fmt.Errorf("shared migration failed: %w", err)
			}
			for _, p := range plugins(e) {
				if err := database.MigrateModels(e.db, p.Models()); err != nil {
					return fmt.Errorf("migration of %s failed: %w", p.ID(), err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "migrated %s\n", p.ID())
			}
			return nil
		},
	}
}
