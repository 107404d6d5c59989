package components

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"github.com/NamanBalaji/updater/internal/progress"
	"github.com/NamanBalaji/updater/internal/status"
	"github.com/NamanBalaji/updater/internal/tui/styles"
)

// Transfer renders the running download: state, bar, sizes, speed, ETA and threads.
func Transfer(p progress.Progress, name string, width int) string {
	maxNameLen := 30
	if len(name) > maxNameLen {
		name = name[:maxNameLen-3] + "..."
	}

	fraction := p.GetPercentage() / 100
	if p.State == status.Complete {
		fraction = 1
	}

	label := stateLabel(p)
	percent := lipgloss.NewStyle().Width(8).Align(lipgloss.Right).Render(fmt.Sprintf("%.1f%%", fraction*100))

	gap := max(width-maxNameLen-lipgloss.Width(label)-lipgloss.Width(percent)-3, 2)
	line1 := fmt.Sprintf("%-*s %s%s%s", maxNameLen, name, label, strings.Repeat(" ", gap), percent)

	bar := ProgressBar(max(width-2, 10), fraction, p.State, p.Paused)
	line2 := styles.ListItemStyle.Render(bar)

	line3 := styles.ListItemStyle.Faint(true).Render(details(p))

	return lipgloss.JoinVertical(lipgloss.Left, line1, line2, line3)
}

func details(p progress.Progress) string {
	total := "unknown"
	if p.GetTotalSize() > 0 {
		total = humanize.IBytes(uint64(p.GetTotalSize()))
	}

	size := fmt.Sprintf("%s / %s", humanize.IBytes(uint64(max(p.GetDownloaded(), 0))), total)

	speed := "--/s"
	if !p.Paused && !status.IsTerminal(p.State) && p.SpeedText != "" {
		speed = p.SpeedText
	}

	eta := p.GetETA()

	switch {
	case p.State == status.Complete:
		eta = "done"
	case p.Paused || eta == "":
		eta = "--"
	}

	threads := ""
	if p.Threads > 0 {
		threads = fmt.Sprintf("  %d threads", p.Threads)
	}

	return fmt.Sprintf("%s  %s  ETA %s%s", size, speed, eta, threads)
}

func stateLabel(p progress.Progress) string {
	if p.Paused {
		return styles.StatusPaused.Render("❚❚ paused")
	}

	switch p.State {
	case status.Probing, status.SingleStreaming, status.Scheduling:
		return styles.StatusActive.Render("● " + status.String(p.State))
	case status.Merging, status.Verifying:
		return styles.StatusWorking.Render("◐ " + status.String(p.State))
	case status.Complete:
		return styles.StatusCompleted.Render("✔ complete")
	case status.Cancelled:
		return styles.StatusCancelled.Render("⊘ cancelled")
	case status.Failed:
		return styles.StatusFailed.Render("✖ failed")
	}

	return styles.MutedStyle.Render("○ " + status.String(p.State))
}
