package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/matzehuels/sitecraft/pkg/document"
	"github.com/matzehuels/sitecraft/pkg/editor"
	"github.com/matzehuels/sitecraft/pkg/errors"
)

// pagesCommand lists pages or shows one page.
func (c *CLI) pagesCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pages [slug]",
		Short: "List the tenant's pages, or show the instances of one page",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, closeFn, err := c.openSession(cmd.Context())
			if err != nil {
				return err
			}
			defer closeFn()

			doc := sess.Document()
			if len(args) == 0 {
				if len(doc.Pages()) == 0 {
					printInfo("Tenant %s has no pages", c.tenant)
					printNextStep("Add one with", "sitecraft component add homepage hero1")
					return nil
				}
				fmt.Fprintln(out, pagesTable(doc))
				return nil
			}
			slug := args[0]
			if !doc.Has(slug) {
				return errors.New(errors.ErrCodePageNotFound, "page %q not found", slug)
			}
			fmt.Fprintln(out, StyleTitle.Render("/"+slug))
			fmt.Fprintln(out, instancesTable(doc.Page(slug), func(t document.Type) bool {
				return sess.Live().Family(t).Global()
			}))
			return nil
		},
	}
	return cmd
}

// pageCommand groups page-level mutations.
func (c *CLI) pageCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "page",
		Short: "Modify pages",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "rm <slug>",
		Short: "Delete a page and all its components",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.run(cmd.Context(), func(sess *editor.Session) error {
				if !sess.Document().Has(args[0]) {
					return errors.New(errors.ErrCodePageNotFound, "page %q not found", args[0])
				}
				n := sess.DeletePage(args[0])
				printSuccess("Deleted /%s (%d components)", args[0], n)
				return nil
			})
		},
	})
	return cmd
}

// run applies fn through mutate and prints the save summary.
func (c *CLI) run(ctx context.Context, fn func(*editor.Session) error) error {
	res, err := c.mutate(ctx, fn)
	if err != nil {
		return err
	}
	printSaveResult(res)
	return nil
}
