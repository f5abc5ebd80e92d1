package main

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/aretw0/timeline/pkg/core"
)

var categoriesCmd = &cobra.Command{
	Use:   "categories",
	Short: "List the registered entity types, categories and aspects",
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, err := openService()
		if err != nil {
			return fmt.Errorf("failed to initialize timeline: %w", err)
		}
		defer svc.Close()

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ENTITY TYPE\tCATEGORY\tASPECTS")
		reg := svc.Categories()
		for _, entityType := range reg.EntityTypes() {
			for _, category := range reg.Categories(entityType) {
				aspects, err := reg.Expand(entityType, []core.Category{category})
				if err != nil {
					return err
				}
				fmt.Fprintf(w, "%s\t%s\t%s\n", entityType, category, strings.Join(aspects, ", "))
			}
		}
		return w.Flush()
	},
}

func init() {
	rootCmd.AddCommand(categoriesCmd)
}
