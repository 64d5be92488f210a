package tui

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/barysiuk/kenv/internal/core"
)

// Table lays out rows under headers. Cells are truncated so that the
// table fits in width cells; width <= 0 disables truncation.
func Table(headers []string, rows [][]string, width int) string {
	maxCell := 0
	if width > 0 && len(headers) > 0 {
		maxCell = max(8, width/len(headers)-2)
	}
	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderTop(false).
		BorderBottom(false).
		BorderLeft(false).
		BorderRight(false).
		BorderColumn(false).
		BorderHeader(true).
		BorderStyle(ruleStyle).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle.PaddingRight(2)
			}
			return cellStyle
		}).
		Headers(headers...)
	for _, row := range rows {
		cells := make([]string, len(row))
		for i, cell := range row {
			cells[i] = Truncate(cell, maxCell)
		}
		t.Row(cells...)
	}
	return t.String() + "\n"
}

// PackageRows converts annotated packages into table rows: name, version,
// latest and channel. Outdated packages show their latest version
// highlighted.
func PackageRows(pkgs []core.PackageStatus) [][]string {
	rows := make([][]string, 0, len(pkgs))
	for _, p := range pkgs {
		latest := upToDateStyle.Render("up to date")
		if p.Outdated() {
			latest = outdatedStyle.Render(p.Latest)
		}
		rows = append(rows, []string{p.Name, p.Version, latest, mutedStyle.Render(p.Channel)})
	}
	return rows
}
