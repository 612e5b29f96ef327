package cli

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/matzehuels/sitecraft/pkg/editor"
	"github.com/matzehuels/sitecraft/pkg/errors"
)

var (
	listSelectedStyle = StyleTitle
	listNormalStyle   = StyleValue
	listDimStyle      = StyleDim
)

// arrangeModel reorders the instances of one page. Moves go straight to the
// session; nothing is persisted until the user confirms.
type arrangeModel struct {
	sess   *editor.Session
	page   string
	cursor int
	moves  int
	save   bool
	err    error
}

func newArrangeModel(sess *editor.Session, page string) arrangeModel {
	return arrangeModel{sess: sess, page: page}
}

func (m arrangeModel) Init() tea.Cmd {
	return nil
}

func (m arrangeModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}
	n := m.sess.Document().Len(m.page)
	switch key.String() {
	case "q", "ctrl+c", "esc":
		m.save = false
		return m, tea.Quit
	case "enter":
		m.save = true
		return m, tea.Quit
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < n-1 {
			m.cursor++
		}
	case "shift+up", "K":
		m.shift(-1)
	case "shift+down", "J":
		m.shift(1)
	}
	return m, nil
}

// shift moves the selected instance by delta and keeps it selected.
func (m *arrangeModel) shift(delta int) {
	insts := m.sess.Document().Page(m.page)
	to := m.cursor + delta
	if to < 0 || to >= len(insts) {
		return
	}
	if err := m.sess.Move(m.page, insts[m.cursor].ID, to); err != nil {
		m.err = err
		return
	}
	m.err = nil
	m.cursor = to
	m.moves++
}

func (m arrangeModel) View() string {
	var b strings.Builder

	b.WriteString(StyleTitle.Render("Arrange /" + m.page))
	b.WriteString("\n")
	b.WriteString(listDimStyle.Render("↑/↓ select  ⇧↑/⇧↓ move  ⏎ save  q quit"))
	b.WriteString("\n\n")

	for i, in := range m.sess.Document().Page(m.page) {
		cursor := "  "
		style := listNormalStyle
		if i == m.cursor {
			cursor = "▸ "
			style = listSelectedStyle
		}
		line := fmt.Sprintf("%s%2d  %-12s", cursor, i, in.ComponentName)
		b.WriteString(style.Render(line))
		b.WriteString(listDimStyle.Render("  " + shortID(in.ID)))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	if m.err != nil {
		b.WriteString(statusFail.style.Render(statusFail.icon + " " + errors.UserMessage(m.err)))
		b.WriteString("\n")
	}
	moves := listDimStyle
	if m.moves > 0 {
		moves = StyleSuccess
	}
	b.WriteString(moves.Render(fmt.Sprintf("  %d moves", m.moves)))
	return b.String()
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// arrangeCommand opens the reordering UI for one page.
func (c *CLI) arrangeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "arrange <page>",
		Short: "Reorder a page's components interactively",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, closeFn, err := c.openSession(cmd.Context())
			if err != nil {
				return err
			}
			defer closeFn()

			page := args[0]
			if !sess.Document().Has(page) {
				return errors.New(errors.ErrCodePageNotFound, "page %q not found", page)
			}
			final, err := tea.NewProgram(newArrangeModel(sess, page), tea.WithContext(cmd.Context())).Run()
			if err != nil {
				return fmt.Errorf("arrange: %w", err)
			}
			m := final.(arrangeModel)
			if !m.save || m.moves == 0 {
				printInfo("No changes saved")
				return nil
			}
			res, err := sess.Save(cmd.Context())
			if err != nil {
				return err
			}
			printSuccess("Saved /%s (%d moves)", page, m.moves)
			printSaveResult(res)
			return nil
		},
	}
}
