package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
	"github.com/spf13/cobra"

	"onfawiki/internal/nav"
	"onfawiki/internal/wiki"
)

// NewExportCmd writes the document as JSON, or as one Markdown file in
// reading order.
func NewExportCmd(deps *Deps) *cobra.Command {
	var (
		out    string
		format string
	)
	cmd := &cobra.Command{
		Use:   "export",
		Short: "export the wiki document",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			doc, err := deps.Engine.Document(cmd.Context())
			if err != nil {
				return err
			}

			var body []byte
			switch format {
			case "json":
				body, err = json.MarshalIndent(doc, "", "  ")
				if err == nil {
					body = append(body, '\n')
				}
			case "markdown", "md":
				var md string
				md, err = RenderMarkdown(doc.Snapshot())
				body = []byte(md)
			default:
				return &wiki.ValidationError{Field: "format", Reason: fmt.Sprintf("unknown format %q, want json or markdown", format)}
			}
			if err != nil {
				return err
			}

			if out == "" || out == "-" {
				_, err = cmd.OutOrStdout().Write(body)
				return err
			}
			if err := os.WriteFile(out, body, 0o644); err != nil {
				return fmt.Errorf("write %s: %w", out, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "exported %d menus and %d pages to %s\n", len(doc.Menus), len(doc.Pages), out)
			return nil
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "", "output file (stdout when empty)")
	cmd.Flags().StringVarP(&format, "format", "f", "json", "json or markdown")
	return cmd
}

// RenderMarkdown converts every page to Markdown in reading order. Pages
// under a parent menu are nested beneath a heading for that menu.
func RenderMarkdown(snap wiki.Snapshot) (string, error) {
	var b strings.Builder
	headed := make(map[string]bool)
	for _, p := range nav.ReadingOrder(snap) {
		level := "#"
		if m, ok := snap.Menu(p.ParentID); ok && m.IsParent() {
			if !headed[m.ID] {
				fmt.Fprintf(&b, "# %s\n\n", m.Title)
				headed[m.ID] = true
			}
			level = "##"
		}
		md, err := htmltomarkdown.ConvertString(p.Content)
		if err != nil {
			return "", fmt.Errorf("convert page %s: %w", p.ID, err)
		}
		fmt.Fprintf(&b, "%s %s\n\n", level, p.Title)
		if p.PublishDate != "" {
			fmt.Fprintf(&b, "_%s_\n\n", p.PublishDate)
		}
		if md = strings.TrimSpace(md); md != "" {
			b.WriteString(md)
			b.WriteString("\n\n")
		}
	}
	return strings.TrimRight(b.String(), "\n") + "\n", nil
}

// readInput reads path, or stdin for "-".
func readInput(cmd *cobra.Command, path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(cmd.InOrStdin())
	}
	return os.ReadFile(path)
}
