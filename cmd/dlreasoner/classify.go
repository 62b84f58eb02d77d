package main

import (
	"fmt"
	"sort"

	"github.com/dlkit/tableau/pkg/tableau"
	"github.com/spf13/cobra"
)

func classifyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "classify",
		Short: "Classify every declared concept and print the resulting taxonomy",
		RunE: func(cmd *cobra.Command, args []string) error {
			applyLogLevel()
			lo, err := loadEverything()
			if err != nil {
				return err
			}
			names := make([]string, 0, len(lo.Concepts))
			for name := range lo.Concepts {
				names = append(names, name)
			}
			sort.Strings(names)
			concepts := make([]tableau.BP, 0, len(names))
			for _, n := range names {
				concepts = append(concepts, lo.Concepts[n])
			}
			workers := flags.workers
			tax, err := lo.Session.Classify(cmd.Context(), concepts, workers)
			if err != nil {
				return fmt.Errorf("classify: %w", err)
			}
			bpToName := make(map[tableau.BP]string, len(lo.Concepts))
			for n, bp := range lo.Concepts {
				bpToName[bp] = n
			}
			for _, n := range names {
				node := tax.Node(lo.Concepts[n])
				parents := make([]string, 0, len(node.Parents))
				for _, p := range node.Parents {
					parents = append(parents, bpToName[p])
				}
				sort.Strings(parents)
				if len(parents) == 0 {
					fmt.Printf("%s: (top-level)\n", n)
				} else {
					fmt.Printf("%s: %v\n", n, parents)
				}
			}
			return nil
		},
	}
}
