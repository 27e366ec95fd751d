package prompt

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/jedib0t/go-pretty/v6/table"
	"golang.org/x/term"

	"github.com/ryabkov82/template-merger/internal/registry"
)

const (
	defaultWidth = 100
	rulerWidth   = 50
	// nameWidth caps the column-name cell of the listing.
	nameWidth = 45
)

// Styles holds the console styles.
type Styles struct {
	Title   lipgloss.Style
	Success lipgloss.Style
	Warning lipgloss.Style
	Error   lipgloss.Style
	Info    lipgloss.Style
	Muted   lipgloss.Style
}

// NewStyles builds styles for a renderer; colours are dropped when the
// renderer's output does not support them.
func NewStyles(r *lipgloss.Renderer) Styles {
	return Styles{
		Title:   r.NewStyle().Bold(true).Foreground(lipgloss.Color("12")),
		Success: r.NewStyle().Foreground(lipgloss.Color("10")),
		Warning: r.NewStyle().Foreground(lipgloss.Color("11")),
		Error:   r.NewStyle().Foreground(lipgloss.Color("9")).Bold(true),
		Info:    r.NewStyle().Foreground(lipgloss.Color("14")),
		Muted:   r.NewStyle().Foreground(lipgloss.Color("8")),
	}
}

// Console writes user-facing messages.
type Console struct {
	w      io.Writer
	styles Styles
	width  int
}

func NewConsole(w io.Writer) *Console {
	return &Console{
		w:      w,
		styles: NewStyles(lipgloss.NewRenderer(w)),
		width:  terminalWidth(w),
	}
}

// Width is the terminal width, or a default when w is not a terminal.
func (c *Console) Width() int { return c.width }

func (c *Console) Println(a ...any) { _, _ = fmt.Fprintln(c.w, a...) }

func (c *Console) Printf(format string, a ...any) { _, _ = fmt.Fprintf(c.w, format, a...) }

// Banner prints a title between rulers.
func (c *Console) Banner(title string) {
	ruler := strings.Repeat("=", rulerWidth)
	c.Println()
	c.Println(ruler)
	c.Println(c.styles.Title.Render(title))
	c.Println(ruler)
}

func (c *Console) Ruler() { c.Println(strings.Repeat("=", rulerWidth)) }

func (c *Console) Success(format string, a ...any) {
	c.Println(c.styles.Success.Render("✓ " + fmt.Sprintf(format, a...)))
}

func (c *Console) Warn(format string, a ...any) {
	c.Println(c.styles.Warning.Render("⚠ " + fmt.Sprintf(format, a...)))
}

func (c *Console) Fail(format string, a ...any) {
	c.Println(c.styles.Error.Render("✗ " + fmt.Sprintf(format, a...)))
}

func (c *Console) Note(format string, a ...any) {
	c.Println(c.styles.Info.Render("ℹ " + fmt.Sprintf(format, a...)))
}

func (c *Console) Hint(format string, a ...any) {
	c.Println(c.styles.Muted.Render(fmt.Sprintf(format, a...)))
}

// List prints items numbered from 1.
func (c *Console) List(items []string) {
	for i, it := range items {
		c.Printf("%d. %s\n", i+1, it)
	}
}

// Columns prints the unique-column listing. The "Found In" cell wraps to
// fit the terminal.
func (c *Console) Columns(rows []registry.Row) {
	t := table.NewWriter()
	t.SetOutputMirror(c.w)
	t.SetStyle(table.StyleLight)
	t.SetTitle("INPUT COLUMNS (UNIQUE LIST)")

	t.AppendHeader(table.Row{"No.", "Column Name", "Found In"})
	for _, r := range rows {
		t.AppendRow(table.Row{r.Number, r.Column, r.FoundIn})
	}
	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 2, WidthMax: nameWidth},
		{Number: 3, WidthMax: max(20, c.width-nameWidth-20)},
	})
	t.Render()
}

func terminalWidth(w io.Writer) int {
	if f, ok := w.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		if width, _, err := term.GetSize(int(f.Fd())); err == nil && width > 0 {
			return width
		}
	}
	return defaultWidth
}
