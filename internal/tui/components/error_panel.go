package components

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/NamanBalaji/updater/internal/tui/styles"
)

// ErrorPanel renders a failed stage with its category and the steps the user can take.
func ErrorPanel(stage, message, category string, steps []string, width int) string {
	var b strings.Builder

	title := lipgloss.NewStyle().Bold(true).Foreground(styles.Red).Render("Update failed while " + stage)
	b.WriteString(title)
	b.WriteString("\n\n")
	b.WriteString(lipgloss.NewStyle().Foreground(styles.Text).Width(max(width-8, 20)).Render(message))

	if category != "" {
		b.WriteString("\n")
		b.WriteString(styles.MutedStyle.Render("category: " + category))
	}

	if len(steps) > 0 {
		b.WriteString("\n\nWhat you can do:\n")

		for i, step := range steps {
			fmt.Fprintf(&b, "  %d. %s\n", i+1, step)
		}
	}

	return styles.ErrorPanelStyle.Render(strings.TrimRight(b.String(), "\n"))
}
