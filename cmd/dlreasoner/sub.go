package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func subCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sub <C> <D>",
		Short: "Test whether concept C is subsumed by concept D (C ⊑ D)",
		Args:  cobra.ExactArgs(2),
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
			d, ok := lo.Concepts[args[1]]
			if !ok {
				return fmt.Errorf("unknown concept %q", args[1])
			}
			sub, err := lo.Session.IsSubsumedBy(cmd.Context(), c, d)
			if err != nil {
				return fmt.Errorf("sub(%s, %s): %w", args[0], args[1], err)
			}
			fmt.Println(sub)
			return nil
		},
	}
}
