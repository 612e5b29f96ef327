package cli

import (
	"github.com/spf13/cobra"

	"github.com/matzehuels/sitecraft/pkg/store"
)

func (c *CLI) exportCommand() *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the tenant's stored document as JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, closeFn, err := c.openSession(cmd.Context())
			if err != nil {
				return err
			}
			defer closeFn()

			snap := sess.Document().Snapshot()
			if output == "" {
				return store.WriteJSON(snap, out)
			}
			if err := store.ExportJSON(snap, output); err != nil {
				return err
			}
			printSuccess("Exported %s (%d pages, %d components)", c.tenant, len(snap.Pages), snap.InstanceCount())
			printFile(output)
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default stdout)")
	return cmd
}

func (c *CLI) importCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "import <file>",
		Short: "Replace the tenant's stored document with a JSON export",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			snap, err := store.ImportJSON(args[0])
			if err != nil {
				return err
			}
			gw, err := c.newGateway(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = gw.Close() }()

			cur, err := gw.Load(ctx, c.tenant)
			if err != nil && !store.IsNotFound(err) {
				return err
			}
			res, err := spin(ctx, "Importing "+c.tenant, func() (store.SaveResult, error) {
				return gw.Save(ctx, store.ReplaceRequest(c.tenant, cur, snap))
			})
			if err != nil {
				return err
			}
			printSuccess("Imported %s into %s", args[0], c.tenant)
			printSaveResult(res)
			return nil
		},
	}
}
