// Package tui is the interactive terminal console: lipgloss tables and cards,
// huh forms generated from record tags and a bubbletea live-search browser.
package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/vadiminshakov/coachdesk/internal/domain"
	"github.com/vadiminshakov/coachdesk/internal/forms"
	"github.com/vadiminshakov/coachdesk/internal/resources"
)

var (
	subtle    = lipgloss.AdaptiveColor{Light: "#D9DCCF", Dark: "#383838"}
	highlight = lipgloss.AdaptiveColor{Light: "#874BFD", Dark: "#7D56F4"}
	special   = lipgloss.AdaptiveColor{Light: "#43BF6D", Dark: "#73F59F"}
	danger    = lipgloss.Color("#FF5F87")

	headerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("205")).
			Background(highlight).
			Padding(0, 2).
			Bold(true).
			MarginBottom(1)

	cellStyle     = lipgloss.NewStyle().Padding(0, 1)
	headCellStyle = cellStyle.Bold(true).Foreground(highlight)
	selectedStyle = cellStyle.Background(highlight).Foreground(lipgloss.Color("#FFFFFF"))
	cardStyle     = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(subtle).Padding(0, 1)
	mutedStyle    = lipgloss.NewStyle().Foreground(subtle)
	okStyle       = lipgloss.NewStyle().Foreground(special).Bold(true)
	errStyle      = lipgloss.NewStyle().Foreground(danger).Bold(true)
)

// Header renders a screen title.
func Header(title string) string {
	return headerStyle.Render(strings.ToUpper(title))
}

// Table renders the rows of v; selected is highlighted, -1 for none.
func Table(v resources.View, selected int) string {
	if len(v.Rows) == 0 {
		if v.Loading {
			return mutedStyle.Render("loading...")
		}
		return mutedStyle.Render("no " + strings.ToLower(v.Title))
	}
	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(subtle)).
		Headers(v.Columns...).
		Rows(v.Rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return headCellStyle
			case row == selected:
				return selectedStyle
			default:
				return cellStyle
			}
		})
	return t.String()
}

// Cards renders the totals and pagination summary of v.
func Cards(v resources.View) string {
	var cards []string
	for _, key := range v.Totals.Keys() {
		amount := v.Totals[key]
		style := okStyle
		if amount.IsNegative() {
			style = errStyle
		}
		cards = append(cards, cardStyle.Render(Humanize(key)+"\n"+style.Render(amount.StringFixed(2))))
	}
	if p := v.Pagination; p != nil {
		cards = append(cards, cardStyle.Render(fmt.Sprintf("Page\n%d / %d (%d total)", p.CurrentPage, p.TotalPages, p.TotalCount)))
	}
	if len(cards) == 0 {
		return ""
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, cards...)
}

// Status renders the loading indicator and the last error of v.
func Status(v resources.View) string {
	var parts []string
	if v.Loading {
		parts = append(parts, mutedStyle.Render("loading..."))
	}
	if v.Error != "" {
		parts = append(parts, errStyle.Render(v.Error))
	}
	return strings.Join(parts, "  ")
}

// FieldErrors renders validation messages, one per line.
func FieldErrors(fe forms.FieldErrors) string {
	lines := make([]string, 0, len(fe))
	for _, e := range fe {
		lines = append(lines, errStyle.Render("• "+e.Error))
	}
	return strings.Join(lines, "\n")
}

// Screen composes a full resource screen.
func Screen(v resources.View, selected int) string {
	parts := []string{Header(v.Title)}
	if cards := Cards(v); cards != "" {
		parts = append(parts, cards)
	}
	parts = append(parts, Table(v, selected))
	if s := Status(v); s != "" {
		parts = append(parts, s)
	}
	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

// pageOf returns the current page of p, 1 when unknown.
func pageOf(p *domain.Pagination) int {
	if p == nil || p.CurrentPage < 1 {
		return 1
	}
	return p.CurrentPage
}
