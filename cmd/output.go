package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"github.com/NamanBalaji/updater/internal/progress"
	"github.com/NamanBalaji/updater/internal/status"
	"github.com/NamanBalaji/updater/internal/tui/components"
	"github.com/NamanBalaji/updater/internal/tui/styles"
	"github.com/NamanBalaji/updater/internal/updater"
)

var (
	successStyle = lipgloss.NewStyle().Foreground(styles.Green)
	errorStyle   = lipgloss.NewStyle().Foreground(styles.Red)
	warningStyle = lipgloss.NewStyle().Foreground(styles.Yellow)
	infoStyle    = lipgloss.NewStyle().Foreground(styles.Sapphire)
	detailStyle  = lipgloss.NewStyle().Foreground(styles.Subtext0)
)

func PrintSuccess(text string) {
	fmt.Println(successStyle.Render(text))
}

func PrintError(text string) {
	fmt.Fprintln(os.Stderr, errorStyle.Render(text))
}

func PrintWarning(text string) {
	fmt.Println(warningStyle.Render(text))
}

func PrintInfo(text string) {
	fmt.Println(infoStyle.Render(text))
}

func PrintDetail(text string) {
	fmt.Println(detailStyle.Render(text))
}

// PrintReport prints a failed stage with its remediation steps.
func PrintReport(r *updater.ErrorReport) {
	PrintError(fmt.Sprintf("update failed while %s [%s]", r.Stage, r.Category))
	PrintDetail("  " + r.Message)

	for _, step := range r.Steps {
		PrintDetail("  • " + step)
	}
}

const barWidth = 30

// progressLine redraws one status line on stderr.
type progressLine struct {
	drawn bool
}

func (l *progressLine) update(p progress.Progress) {
	fraction := p.Progress / 100
	if p.State == status.Complete {
		fraction = 1
	}

	total := "?"
	if p.TotalSize > 0 {
		total = humanize.IBytes(uint64(p.TotalSize))
	}

	var b strings.Builder

	fmt.Fprintf(&b, "\r\033[K%s %5.1f%% %s / %s", components.ProgressBar(barWidth, fraction, p.State, p.Paused), fraction*100,
		humanize.IBytes(uint64(max(p.DownloadedSize, 0))), total)

	switch {
	case p.Paused:
		b.WriteString("  paused")
	case !status.IsTerminal(p.State):
		fmt.Fprintf(&b, "  %s  ETA %s", p.SpeedText, p.ETA)
	}

	if p.Threads > 1 {
		fmt.Fprintf(&b, "  %d threads", p.Threads)
	}

	fmt.Fprintf(&b, "  %s", status.String(p.State))

	fmt.Fprint(os.Stderr, b.String())
	l.drawn = true
}

func (l *progressLine) finish() {
	if l.drawn {
		fmt.Fprintln(os.Stderr)
		l.drawn = false
	}
}
