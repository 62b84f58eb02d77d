package main

import (
	"fmt"

	"github.com/dlkit/tableau/pkg/tableau"
	"github.com/spf13/cobra"
)

func loadCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "load",
		Short: "Load an ontology and print a summary of what was asserted",
		RunE: func(cmd *cobra.Command, args []string) error {
			applyLogLevel()
			lo, err := loadEverything()
			if err != nil {
				return err
			}
			fmt.Printf("session %s\n", lo.Session.ID())
			fmt.Printf("  concepts:    %d\n", len(lo.Concepts))
			fmt.Printf("  roles:       %d\n", len(lo.Roles))
			fmt.Printf("  individuals: %d\n", len(lo.Individuals))
			sat, err := lo.Session.IsSatisfiable(cmd.Context(), tableau.TopBP)
			if err != nil {
				return fmt.Errorf("consistency check: %w", err)
			}
			if sat {
				fmt.Println("  consistent:  yes")
			} else {
				fmt.Println("  consistent:  no")
			}
			return nil
		},
	}
}
