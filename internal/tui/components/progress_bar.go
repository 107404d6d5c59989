package components

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/NamanBalaji/updater/internal/status"
	"github.com/NamanBalaji/updater/internal/tui/styles"
)

var barColors = map[status.State]lipgloss.Color{
	status.Merging:   styles.Yellow,
	status.Verifying: styles.Yellow,
	status.Complete:  styles.Green,
	status.Cancelled: styles.Mauve,
	status.Failed:    styles.Red,
}

// ProgressBar renders fraction (0 to 1, clamped) as a bar width cells wide,
// colored by state. A paused bar is always peach.
func ProgressBar(width int, fraction float64, s status.State, paused bool) string {
	if width <= 0 {
		return ""
	}

	filled := int(float64(width) * min(max(fraction, 0), 1))

	color, ok := barColors[s]
	if !ok {
		color = styles.Teal
	}

	if paused {
		color = styles.Peach
	}

	return lipgloss.NewStyle().Foreground(color).Render(strings.Repeat("█", filled)) +
		styles.ProgressBarEmptyStyle.Render(strings.Repeat("░", width-filled))
}
