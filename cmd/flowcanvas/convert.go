package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"flowcanvas/internal/codec"
	"flowcanvas/internal/ui"
)

func convertCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "convert <in> <out>",
		Short: "Convert a project file between JSON, YAML and TOML",
		Long:  "Convert reads a project and writes it in the format named by the output extension.",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			in, out := args[0], args[1]
			if samePath(in, out) {
				return fmt.Errorf("input and output are the same file")
			}

			p, err := readProject(in)
			if err != nil {
				return err
			}
			c, err := codec.ForPath(out)
			if err != nil {
				return err
			}

			f, err := os.Create(out)
			if err != nil {
				return err
			}
			if err := c.Export(p, f); err != nil {
				f.Close()
				return fmt.Errorf("write %s: %w", out, err)
			}
			if err := f.Close(); err != nil {
				return err
			}

			ui.Good.Fprintf(cmd.OutOrStdout(), "✓ ")
			fmt.Fprintf(cmd.OutOrStdout(), "%s → %s (%d nodes, %d edges)\n", in, out, len(p.Nodes), len(p.Edges))
			return nil
		},
	}
}
