package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/glamour/styles"

	"github.com/barysiuk/kenv/internal/core/pyenv"
)

// InfoMarkdown renders the facts about an environment as a markdown
// document: a heading followed by a two column table.
func InfoMarkdown(title string, items []pyenv.InfoItem) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", title)
	if len(items) == 0 {
		b.WriteString("_No details available._\n")
		return b.String()
	}
	b.WriteString("| | |\n|---|---|\n")
	for _, item := range items {
		fmt.Fprintf(&b, "| **%s** | `%s` |\n", escapeCell(item.Label), escapeCell(item.Value))
	}
	return b.String()
}

func escapeCell(s string) string {
	return strings.ReplaceAll(s, "|", `\|`)
}

// RenderMarkdown renders md for the terminal. Without styled, the notty
// style is used so the output stays free of escape codes.
func RenderMarkdown(md string, width int, styled bool) (string, error) {
	opts := []glamour.TermRendererOption{
		glamour.WithStandardStyle(styles.NoTTYStyle),
	}
	if styled {
		opts = []glamour.TermRendererOption{glamour.WithAutoStyle()}
	}
	if width > 0 {
		opts = append(opts, glamour.WithWordWrap(width))
	}
	r, err := glamour.NewTermRenderer(opts...)
	if err != nil {
		return "", fmt.Errorf("creating markdown renderer: %w", err)
	}
	out, err := r.Render(md)
	if err != nil {
		return "", fmt.Errorf("rendering markdown: %w", err)
	}
	return strings.TrimRight(out, "\n") + "\n", nil
}
