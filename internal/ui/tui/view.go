package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/felixgeelhaar/glance/internal/catalog"
	"github.com/felixgeelhaar/glance/internal/ui"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	filterStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#7D56F4"))

	infoStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#04B575"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF0000"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#626262"))

	cardStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#3C3C3C")).
			Padding(0, 1)

	selectedStyle = cardStyle.
			BorderForeground(lipgloss.Color("#7D56F4"))

	brandStyle = lipgloss.NewStyle().Bold(true)

	priceStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#04B575"))
)

// render refreshes the viewport content from the model.
func (m *Model) render() {
	if !m.Ready {
		return
	}
	if m.Detail != nil {
		m.Viewport.SetContent(m.detailView())
		return
	}
	m.Viewport.SetContent(m.grid(m.Results, m.Selected))
}

// columns is the grid width for the current terminal.
func (m Model) columns() int {
	return ui.Columns(m.Width*ui.PointsPerCell, m.tiers)
}

func (m Model) grid(products []catalog.Product, selected int) string {
	if len(products) == 0 {
		return helpStyle.Render("  no results")
	}

	cols := m.columns()
	// Border and padding take four cells per card.
	inner := m.Width/cols - 4
	if inner < 8 {
		inner = 8
	}

	var rows []string
	for start := 0; start < len(products); start += cols {
		end := start + cols
		if end > len(products) {
			end = len(products)
		}
		cards := make([]string, 0, cols)
		for i := start; i < end; i++ {
			cards = append(cards, card(products[i], inner, i == selected))
		}
		rows = append(rows, lipgloss.JoinHorizontal(lipgloss.Top, cards...))
	}
	return lipgloss.JoinVertical(lipgloss.Left, rows...)
}

func card(p catalog.Product, width int, selected bool) string {
	style := cardStyle
	if selected {
		style = selectedStyle
	}
	brand := p.BrandName
	if brand == "" {
		brand = " "
	}
	body := strings.Join([]string{
		brandStyle.Render(ui.Truncate(brand, width)),
		ui.Truncate(p.Title, width),
		priceStyle.Render(ui.Truncate(ui.Price(p), width)),
	}, "\n")
	return style.Width(width).Render(body)
}

func (m Model) detailView() string {
	d := m.Detail
	if d.Product == nil {
		return helpStyle.Render("  no product found · esc to go back")
	}
	p := d.Product

	var b strings.Builder
	if p.BrandName != "" {
		b.WriteString(brandStyle.Render(p.BrandName) + "\n")
	}
	b.WriteString(p.Title + "\n")
	b.WriteString(priceStyle.Render(ui.Price(*p)) + "\n")
	for _, v := range []string{p.VariantValue1, p.VariantValue2} {
		if v != "" {
			b.WriteString(helpStyle.Render(v) + "\n")
		}
	}
	if p.Description != "" {
		b.WriteString("\n" + lipgloss.NewStyle().Width(m.Width-2).Render(p.Description) + "\n")
	}
	if p.Link != "" {
		b.WriteString("\n" + p.Link + "\n")
	}

	b.WriteString(fmt.Sprintf("\nSimilar (%d)\n", len(d.Similar)))
	b.WriteString(m.grid(d.Similar, -1))
	return b.String()
}
