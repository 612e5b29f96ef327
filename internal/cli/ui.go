package cli

import (
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/matzehuels/sitecraft/pkg/document"
	"github.com/matzehuels/sitecraft/pkg/store"
)

// Colors adapt to light and dark terminals.
var (
	colorAccent = lipgloss.AdaptiveColor{Light: "30", Dark: "36"}
	colorGood   = lipgloss.AdaptiveColor{Light: "28", Dark: "35"}
	colorWarn   = lipgloss.AdaptiveColor{Light: "166", Dark: "220"}
	colorBad    = lipgloss.AdaptiveColor{Light: "160", Dark: "167"}
	colorGlobal = lipgloss.AdaptiveColor{Light: "25", Dark: "75"}
	colorText   = lipgloss.AdaptiveColor{Light: "235", Dark: "255"}
	colorMuted  = lipgloss.AdaptiveColor{Light: "243", Dark: "245"}
	colorFaint  = lipgloss.AdaptiveColor{Light: "248", Dark: "240"}
)

var (
	StyleTitle     = lipgloss.NewStyle().Bold(true).Foreground(colorAccent)
	StyleHighlight = lipgloss.NewStyle().Foreground(colorAccent)
	StyleDim       = lipgloss.NewStyle().Foreground(colorFaint)
	StyleValue     = lipgloss.NewStyle().Foreground(colorText)
	StyleSuccess   = lipgloss.NewStyle().Foreground(colorGood)
	StyleWarning   = lipgloss.NewStyle().Foreground(colorWarn)

	styleIconSpinner = StyleHighlight
	styleGlobal      = lipgloss.NewStyle().Foreground(colorGlobal)
	styleHeader      = lipgloss.NewStyle().Bold(true).Foreground(colorMuted)
	styleKey         = lipgloss.NewStyle().Width(12).Foreground(colorMuted)
)

// out is where command output goes. Tests replace it.
var out io.Writer = os.Stdout

type status struct {
	icon  string
	style lipgloss.Style
}

var (
	statusOK   = status{"✓", StyleSuccess}
	statusFail = status{"✗", lipgloss.NewStyle().Foreground(colorBad)}
	statusWarn = status{"!", StyleWarning}
	statusInfo = status{"›", lipgloss.NewStyle().Foreground(colorMuted)}
)

func (s status) print(text string) {
	fmt.Fprintln(out, s.style.Render(s.icon)+" "+text)
}

func printSuccess(format string, args ...any) { statusOK.print(fmt.Sprintf(format, args...)) }
func printError(format string, args ...any)   { statusFail.print(fmt.Sprintf(format, args...)) }
func printInfo(format string, args ...any)    { statusInfo.print(fmt.Sprintf(format, args...)) }
func printWarning(format string, args ...any) {
	statusWarn.print(StyleWarning.Render(fmt.Sprintf(format, args...)))
}

// printDetail prints an indented, dimmed line.
func printDetail(format string, args ...any) {
	fmt.Fprintln(out, "  "+StyleDim.Render(fmt.Sprintf(format, args...)))
}

func printFile(path string) {
	fmt.Fprintln(out, "  "+StyleDim.Render("→")+" "+StyleValue.Render(path))
}

func printKeyValue(key, value string) {
	fmt.Fprintln(out, styleKey.Render(key)+" "+StyleValue.Render(value))
}

// printNextStep suggests a follow-up command.
func printNextStep(description, cmd string) {
	fmt.Fprintln(out, StyleDim.Render(description+":")+" "+styleGlobal.Render(cmd))
}

// printSaveResult prints what a save wrote on a single line.
func printSaveResult(res store.SaveResult) {
	line := fmt.Sprintf("%d pages saved · %d deleted · %d components", res.PagesSaved, res.PagesDeleted, res.ComponentsSaved)
	fmt.Fprintln(out, "  "+StyleDim.Render(line))
}

// pagesTable renders the page listing.
func pagesTable(doc *document.Document) string {
	rows := [][]string{}
	for _, slug := range doc.Pages() {
		rows = append(rows, []string{"/" + slug, strconv.Itoa(doc.Len(slug))})
	}
	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(StyleDim).
		Headers("Page", "Components").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == -1 {
				return styleHeader
			}
			if col == 1 {
				return StyleHighlight
			}
			return lipgloss.NewStyle()
		}).
		Render()
}

// instancesTable renders the instances of one page in position order.
// Global families are highlighted.
func instancesTable(insts []document.Instance, global func(document.Type) bool) string {
	rows := [][]string{}
	for _, in := range insts {
		rows = append(rows, []string{
			strconv.Itoa(in.Position),
			in.ComponentName,
			in.ID,
			fmt.Sprintf("%d/%d/%d", in.Layout.Row, in.Layout.Col, in.Layout.Span),
		})
	}
	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(StyleDim).
		Headers("#", "Variant", "ID", "Row/Col/Span").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == -1 {
				return styleHeader
			}
			if row >= 0 && row < len(insts) && col == 1 && global(insts[row].Type) {
				return styleGlobal
			}
			if col == 2 || col == 3 {
				return StyleDim
			}
			return lipgloss.NewStyle()
		}).
		Render()
}
