package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"onfawiki/internal/wiki"
)

// NewImportCmd replaces the stored document with a JSON file.
func NewImportCmd(deps *Deps) *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "import",
		Short: "replace the wiki document with a JSON export",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			raw, err := readInput(cmd, file)
			if err != nil {
				return fmt.Errorf("read %s: %w", file, err)
			}
			doc, err := wiki.DecodeDocument(raw)
			if err != nil {
				return err
			}
			if err := deps.Engine.Replace(cmd.Context(), doc); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "imported %d menus and %d pages\n", len(doc.Menus), len(doc.Pages))
			return nil
		},
	}
	cmd.Flags().StringVar(&file, "file", "", "JSON file to import, - for stdin")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}
