package cli

import (
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/sitecraft/pkg/editor"
	"github.com/matzehuels/sitecraft/pkg/errors"
)

func (c *CLI) themeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "theme",
		Short: "Show, back up and switch themes",
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, closeFn, err := c.openSession(cmd.Context())
			if err != nil {
				return err
			}
			defer closeFn()
			doc := sess.Document()
			printKeyValue("active", strconv.Itoa(doc.ActiveTheme()))
			backups := doc.ThemeBackups()
			if len(backups) == 0 {
				backups = []string{"none"}
			}
			printKeyValue("backups", strings.Join(backups, ", "))
			return nil
		},
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "backup <n>",
		Short: "Store the current pages as Theme<n>Backup",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := parseTheme(args[0])
			if err != nil {
				return err
			}
			return c.run(cmd.Context(), func(sess *editor.Session) error {
				if err := sess.BackupTheme(n); err != nil {
					return err
				}
				printSuccess("Backed up current pages as Theme%dBackup", n)
				return nil
			})
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "switch <n>",
		Short: "Switch to theme n, backing up the active one",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := parseTheme(args[0])
			if err != nil {
				return err
			}
			return c.run(cmd.Context(), func(sess *editor.Session) error {
				from := sess.Document().ActiveTheme()
				if err := sess.SwitchTheme(n); err != nil {
					return err
				}
				printSuccess("Switched from theme %d to %d", from, n)
				printDetail("%d pages", len(sess.Document().Pages()))
				return nil
			})
		},
	})
	return cmd
}

func parseTheme(s string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 {
		return 0, errors.New(errors.ErrCodeInvalidInput, "theme must be a positive number, got %q", s)
	}
	return n, nil
}
