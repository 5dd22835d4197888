package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ahmetcoskunkizilkaya/foodbank-backend/internal/models"
	"github.com/ahmetcoskunkizilkaya/foodbank-backend/internal/tenant"
)

func userCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Manage users",
	}
	cmd.AddCommand(userRoleCmd())
	return cmd
}

// userRoleCmd bootstraps staff and admins; the API only lets an existing
// admin change roles.
func userRoleCmd() *cobra.Command {
	return &cobra.Command{
		Use:       "role [email] [beneficiary|staff|admin]",
		Short:     "Set a user's role",
		Args:      cobra.ExactArgs(2),
		ValidArgs: []string{models.RoleBeneficiary, models.RoleStaff, models.RoleAdmin},
		RunE: func(cmd *cobra.Command, args []string) error {
			email := strings.ToLower(strings.TrimSpace(args[0]))
			role := args[1]
			switch role {
			case models.RoleBeneficiary, models.RoleStaff, models.RoleAdmin:
			default:
				return fmt.Errorf("unknown role %q", role)
			}

			e, err := setup()
			if err != nil {
				return err
			}
			defer e.close()
			bank, err := e.requireBank()
			if err != nil {
				return err
			}

			res := e.db.WithContext(cmd.Context()).Model(&models.User{}).
				Scopes(tenant.ForBank(bank)).
				Where("email = ?", email).
				Update("role", role)
			if res.Error != nil {
				return fmt.Errorf("failed to update role: %w", res.Error)
			}
			if res.RowsAffected == 0 {
				return fmt.Errorf("no user %s in %s", email, bank)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s is now %s\n", email, role)
			return nil
		},
	}
}
