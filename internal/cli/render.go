package cli

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/sitecraft/pkg/errors"
	"github.com/matzehuels/sitecraft/pkg/outline"
)

// Outline output formats.
const (
	formatDOT = "dot"
	formatSVG = "svg"
	formatPNG = "png"
	formatPDF = "pdf"
)

func (c *CLI) renderCommand() *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "render [slug...]",
		Short: "Render pages as static HTML",
		Long: `Render pages as static HTML with the built-in templates.

Without arguments every page is rendered. With --output, each page is
written to <dir>/<slug>.html; otherwise the HTML goes to stdout.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, closeFn, err := c.openSession(cmd.Context())
			if err != nil {
				return err
			}
			defer closeFn()

			slugs := args
			if len(slugs) == 0 {
				slugs = sess.Document().Pages()
			}
			for _, slug := range slugs {
				var buf bytes.Buffer
				rep, err := sess.RenderPage(&buf, slug)
				if err != nil {
					return err
				}
				for _, v := range rep.Missing {
					printWarning("no template for %s on /%s", v, slug)
				}
				for _, v := range rep.Failed {
					printError("%s failed to render on /%s", v, slug)
				}
				if output == "" {
					_, _ = buf.WriteTo(out)
					continue
				}
				path := filepath.Join(output, filepath.FromSlash(slug)+".html")
				if err := writeFile(path, buf.Bytes()); err != nil {
					return err
				}
				printFile(path)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "directory to write HTML files to")
	return cmd
}

func (c *CLI) outlineCommand() *cobra.Command {
	var (
		output   string
		format   string
		detailed bool
	)
	cmd := &cobra.Command{
		Use:   "outline",
		Short: "Draw the tenant's pages as a Graphviz diagram",
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, closeFn, err := c.openSession(cmd.Context())
			if err != nil {
				return err
			}
			defer closeFn()

			snap := sess.Document().Snapshot()
			dot := outline.ToDOT(snap, outline.Options{
				Detailed: detailed,
				Global:   c.families().Global(),
			})

			var data []byte
			switch strings.ToLower(format) {
			case formatDOT:
				data = []byte(dot)
			case formatSVG:
				data, err = outline.RenderSVG(cmd.Context(), dot)
			case formatPNG:
				data, err = outline.RenderPNG(cmd.Context(), dot, 2.0)
			case formatPDF:
				data, err = outline.RenderPDF(cmd.Context(), dot)
			default:
				return errors.New(errors.ErrCodeInvalidInput, "unknown format %q (dot, svg, png, pdf)", format)
			}
			if err != nil {
				return err
			}
			if output == "" {
				_, err := out.Write(data)
				return err
			}
			if err := writeFile(output, data); err != nil {
				return err
			}
			printSuccess("Outline of %s (%d pages, %d components)", c.tenant, len(snap.Pages), snap.InstanceCount())
			printFile(output)
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default stdout)")
	cmd.Flags().StringVarP(&format, "format", "f", formatSVG, "dot, svg, png or pdf")
	cmd.Flags().BoolVar(&detailed, "detailed", false, "include ids and grid layout in labels")
	return cmd
}

func writeFile(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

