package view

import (
	"fmt"
	"io"
	"strings"

	"github.com/Dan9191/fund-advisor/internal/advisor"
	"github.com/charmbracelet/lipgloss"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

var (
	headingStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("14"))
	titleStyle   = lipgloss.NewStyle().Bold(true)
	bannerStyles = map[advisor.Level]lipgloss.Style{
		advisor.LevelInfo:    lipgloss.NewStyle().Foreground(lipgloss.Color("12")),
		advisor.LevelSuccess: lipgloss.NewStyle().Foreground(lipgloss.Color("10")),
		advisor.LevelError:   lipgloss.NewStyle().Foreground(lipgloss.Color("9")),
	}
)

// WriteText renders a page for a terminal.
func WriteText(w io.Writer, p Page) error {
	if p.ListError != "" {
		_, err := fmt.Fprintln(w, bannerStyles[advisor.LevelError].Render(p.ListError))
		return err
	}
	t := table.NewWriter()
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"ID", "Name", "Email", "Risk Tolerance", "Risk Category"})
	for _, c := range p.Cards {
		row := table.Row{c.ID, c.Name}
		for _, d := range c.Details {
			row = append(row, d.Value)
		}
		t.AppendRow(row)
	}
	_, err := fmt.Fprintln(w, t.Render())
	return err
}

// WriteCardText renders the body and banner of one card.
func WriteCardText(w io.Writer, c Card) error {
	var b strings.Builder
	switch {
	case c.Body != nil:
		writeContent(&b, c.Body)
	case c.Text != "":
		style := lipgloss.NewStyle()
		if c.Kind == advisor.ContentError.String() {
			style = bannerStyles[advisor.LevelError]
		}
		b.WriteString(style.Render(c.Text) + "\n")
	}
	if c.Banner.Text != "" {
		b.WriteString(bannerStyles[c.Banner.Level].Render(c.Banner.Text) + "\n")
	}
	_, err := io.WriteString(w, b.String())
	return err
}

func writeContent(b *strings.Builder, c *Content) {
	b.WriteString(headingStyle.Render(c.Heading) + "\n")
	for _, f := range c.Fields {
		fmt.Fprintf(b, "%s %s\n", titleStyle.Render(f.Label+":"), f.Value)
	}
	for _, tbl := range c.Tables {
		b.WriteString("\n" + titleStyle.Render(tbl.Title) + "\n")
		if tbl.Notice != "" {
			b.WriteString(tbl.Notice + "\n")
			continue
		}
		b.WriteString(renderTable(tbl) + "\n")
	}
}

func renderTable(tbl Table) string {
	t := table.NewWriter()
	t.SetStyle(table.StyleLight)
	t.AppendHeader(cells(tbl.Header))
	for _, r := range tbl.Rows {
		row := cells(r.Cells)
		if r.Strong {
			for i := range row {
				row[i] = text.Bold.Sprint(row[i])
			}
		}
		t.AppendRow(row)
	}
	if tbl.Total != nil {
		footer := make(table.Row, len(tbl.Header))
		for i := range footer {
			footer[i] = ""
		}
		if tbl.Total.Column > 0 {
			footer[tbl.Total.Column-1] = tbl.Total.Label
		}
		footer[tbl.Total.Column] = tbl.Total.Value
		t.AppendSeparator()
		t.AppendRow(footer)
	}
	return t.Render()
}

func cells(s []string) table.Row {
	row := make(table.Row, len(s))
	for i, v := range s {
		row[i] = v
	}
	return row
}
