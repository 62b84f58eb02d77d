package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func queryCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "query <file.cq>",
		Short: "Evaluate a conjunctive query file against the loaded ontology",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			applyLogLevel()
			lo, err := loadEverything()
			if err != nil {
				return err
			}
			doc, err := loadQueryFile(args[0])
			if err != nil {
				return err
			}
			q, root, ind, err := doc.toQuery(lo)
			if err != nil {
				return err
			}
			holds, err := lo.Session.Query(cmd.Context(), q, root, ind)
			if err != nil {
				return fmt.Errorf("query: %w", err)
			}
			fmt.Println(holds)
			return nil
		},
	}
}
