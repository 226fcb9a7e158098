package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"onfawiki/internal/tools/linkgraph"
)

// NewGraphCmd writes the internal link graph as JSON.
func NewGraphCmd(deps *Deps) *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "graph",
		Short: "write the internal link graph between pages",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			doc, err := deps.Engine.Document(cmd.Context())
			if err != nil {
				return err
			}
			g := linkgraph.Build(doc)
			if err := linkgraph.Write(out, g); err != nil {
				return fmt.Errorf("write graph: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %d nodes, %d links, %d dangling to %s\n",
				g.Totals.Pages, g.Totals.Links, g.Totals.Dangling, out)
			return nil
		},
	}
	cmd.Flags().StringVar(&out, "out", "static/linkgraph.json", "path to write the graph JSON")
	return cmd
}
