package cli

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/matzehuels/sitecraft/pkg/document"
	"github.com/matzehuels/sitecraft/pkg/editor"
	"github.com/matzehuels/sitecraft/pkg/errors"
)

// componentCommand groups instance mutations.
func (c *CLI) componentCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "component",
		Aliases: []string{"c"},
		Short:   "Add, remove, move and configure component instances",
	}
	cmd.AddCommand(c.componentAddCommand())
	cmd.AddCommand(c.componentRmCommand())
	cmd.AddCommand(c.componentMvCommand())
	cmd.AddCommand(c.componentSetCommand())
	cmd.AddCommand(c.componentDataCommand())
	return cmd
}

func (c *CLI) componentAddCommand() *cobra.Command {
	var (
		index int
		data  string
	)
	cmd := &cobra.Command{
		Use:   "add <page> <variant>",
		Short: "Insert a component instance, e.g. add homepage hero2",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			page, variant := args[0], args[1]
			fam, ok := c.families().Lookup(variant)
			if !ok {
				return errors.New(errors.ErrCodeInvalidVariant, "unknown variant %q", variant)
			}
			inst := document.NewInstance(fam.Type, 1)
			inst.ComponentName = variant
			if data != "" {
				if err := json.Unmarshal([]byte(data), &inst.Data); err != nil {
					return errors.Wrap(errors.ErrCodeInvalidInput, err, "--data must be a JSON object")
				}
			}
			return c.run(cmd.Context(), func(sess *editor.Session) error {
				at := index
				if at < 0 {
					at = sess.Document().Len(page)
				}
				stored, err := sess.Insert(page, inst, at)
				if err != nil {
					return err
				}
				printSuccess("Added %s to /%s at %d", StyleHighlight.Render(variant), page, stored.Position)
				printDetail("id: %s", stored.ID)
				return nil
			})
		},
	}
	cmd.Flags().IntVarP(&index, "index", "i", -1, "position to insert at (default: end of page)")
	cmd.Flags().StringVar(&data, "data", "", "initial data as a JSON object")
	return cmd
}

func (c *CLI) componentRmCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "rm <page> <id>",
		Short: "Remove a component instance",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.run(cmd.Context(), func(sess *editor.Session) error {
				if err := sess.Remove(args[0], args[1]); err != nil {
					return err
				}
				printSuccess("Removed %s from /%s", args[1], args[0])
				return nil
			})
		},
	}
}

func (c *CLI) componentMvCommand() *cobra.Command {
	var toPage string
	cmd := &cobra.Command{
		Use:   "mv <page> <id> <index>",
		Short: "Move a component instance to a new position",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			index, err := strconv.Atoi(args[2])
			if err != nil {
				return errors.Wrap(errors.ErrCodeInvalidInput, err, "index must be a number")
			}
			return c.run(cmd.Context(), func(sess *editor.Session) error {
				target := args[0]
				if toPage != "" && toPage != args[0] {
					target = toPage
					err = sess.Transfer(args[0], args[1], toPage, index)
				} else {
					err = sess.Move(args[0], args[1], index)
				}
				if err != nil {
					return err
				}
				printSuccess("Moved %s to /%s at %d", args[1], target, index)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&toPage, "to", "", "move to another page")
	return cmd
}

func (c *CLI) componentSetCommand() *cobra.Command {
	var (
		variant string
		row     int
		col     int
		span    int
	)
	cmd := &cobra.Command{
		Use:   "set <page> <id>",
		Short: "Change the variant or grid layout of an instance",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			layoutChanged := cmd.Flags().Changed("row") || cmd.Flags().Changed("col") || cmd.Flags().Changed("span")
			if variant == "" && !layoutChanged {
				return errors.New(errors.ErrCodeInvalidInput, "nothing to change: pass --variant or a layout flag")
			}
			return c.run(cmd.Context(), func(sess *editor.Session) error {
				page, id := args[0], args[1]
				if variant != "" {
					if _, err := sess.SetVariant(page, id, variant); err != nil {
						return err
					}
				}
				if layoutChanged {
					inst, _, ok := sess.Document().Find(id)
					if !ok {
						return errors.New(errors.ErrCodeInstanceNotFound, "instance %s not found", id)
					}
					l := inst.Layout
					if cmd.Flags().Changed("row") {
						l.Row = row
					}
					if cmd.Flags().Changed("col") {
						l.Col = col
					}
					if cmd.Flags().Changed("span") {
						l.Span = span
					}
					if _, err := sess.SetLayout(page, id, l); err != nil {
						return err
					}
				}
				printSuccess("Updated %s", id)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&variant, "variant", "", "new variant of the same family")
	cmd.Flags().IntVar(&row, "row", 0, "grid row")
	cmd.Flags().IntVar(&col, "col", 0, "grid column")
	cmd.Flags().IntVar(&span, "span", 12, "grid column span")
	return cmd
}

func (c *CLI) componentDataCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "data <id> [path value]",
		Short: "Show the effective data of an instance, or set one path",
		Long: `Show the effective data of an instance, or set one dot-separated path.

The value is parsed as JSON when possible and used as a string otherwise:

  sitecraft component data 3f2a title "Harbour homes"
  sitecraft component data 3f2a property.price 450000`,
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) != 1 && len(args) != 3 {
				return fmt.Errorf("accepts <id> or <id> <path> <value>, received %d args", len(args))
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			id := args[0]
			if len(args) == 1 {
				sess, closeFn, err := c.openSession(cmd.Context())
				if err != nil {
					return err
				}
				defer closeFn()
				data, err := sess.EffectiveData(id, nil)
				if err != nil {
					return err
				}
				b, _ := json.MarshalIndent(data, "", "  ")
				fmt.Fprintln(out, string(b))
				return nil
			}
			value := parseValue(args[2])
			return c.run(cmd.Context(), func(sess *editor.Session) error {
				if _, err := sess.UpdateByPath(id, args[1], value); err != nil {
					return err
				}
				printSuccess("Set %s.%s", id, args[1])
				return nil
			})
		},
	}
	return cmd
}

// parseValue decodes s as JSON, falling back to the raw string.
func parseValue(s string) any {
	var v any
	if err := json.Unmarshal([]byte(s), &v); err != nil {
		return s
	}
	return v
}
