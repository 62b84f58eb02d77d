package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func satCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sat <concept>",
		Short: "Test whether a declared concept is satisfiable",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			applyLogLevel()
			lo, err := loadEverything()
			if err != nil {
				return err
			}
			c, ok := lo.Concepts[args[0]]
			if !ok {
				return fmt.Errorf("unknown concept %q", args[0])
			}
			sat, err := lo.Session.IsSatisfiable(cmd.Context(), c)
			if err != nil {
				return fmt.Errorf("sat(%s): %w", args[0], err)
			}
			fmt.Println(sat)
			return nil
		},
	}
}
