package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"flowcanvas/internal/generation"
	"flowcanvas/internal/registry"
	"flowcanvas/internal/ui"
)

func typesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "types",
		Short: "List the node types and their ports",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			catalog := registry.New(generation.NewSimulator(0)).Catalog()

			rows := make([][]string, 0, len(catalog))
			for _, info := range catalog {
				rows = append(rows, []string{
					string(info.Type),
					info.Label,
					ui.Ports(info.Inputs),
					ui.Ports(info.Outputs),
				})
			}
			w := cmd.OutOrStdout()
			ui.Table(w, []string{"TYPE", "LABEL", "INPUTS", "OUTPUTS"}, rows)
			fmt.Fprintln(w)
			ui.Subtle.Fprintf(w, "  %d types\n", len(catalog))
		},
	}
}
