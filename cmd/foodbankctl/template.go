package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ahmetcoskunkizilkaya/foodbank-backend/internal/apps/communities"
)

func templateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "template",
		Short: "Manage the standard delivery template",
	}
	cmd.AddCommand(templateImportCmd())
	cmd.AddCommand(templateShowCmd())
	return cmd
}

func templateImportCmd() *cobra.Command {
	var replace bool

	cmd := &cobra.Command{
		Use:   "import [file.yaml]",
		Short: "Load template products from a YAML file",
		Long: `Load template products from a YAML file.

The file maps product ids to products:

  products:
    rice:
      name: Arroz
      quantity: 2
      unit: kg
      category: basic_basket

Products already in the template are updated. With --replace, products
missing from the file are removed.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("failed to read template file: %w", err)
			}
			file, err := communities.ParseTemplateFile(data)
			if err != nil {
				return err
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

			svc := communities.NewService(e.db, e.registry, e.validate)
			n, err := svc.ImportTemplate(cmd.Context(), bank, file, replace)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "imported %d products into %s\n", n, bank)
			return nil
		},
	}

	cmd.Flags().BoolVar(&replace, "replace", false, "remove products missing from the file")
	return cmd
}

func templateShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the current template",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := setup()
			if err != nil {
				return err
			}
			defer e.close()
			bank, err := e.requireBank()
			if err != nil {
				return err
			}

			tpl, err := communities.NewService(e.db, e.registry, e.validate).GetTemplate(cmd.Context(), bank)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for id, p := range tpl.Products {
				fmt.Fprintf(out, "%-20s %-30s %6.1f %-8s %s\n", id, p.Name, p.Quantity, p.Unit, p.Category)
			}
			return nil
		},
	}
}
