package tui

import (
	"context"
	"errors"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/NamanBalaji/updater/internal/updater"
)

// Run shows the update dialog until the user quits or the installer starts.
// build receives the event sink the pipeline must report to.
func Run(ctx context.Context, autoConfirm bool, build func(onEvent func(updater.Event)) Pipeline) (installed bool, err error) {
	var p *tea.Program

	pipeline := build(func(e updater.Event) {
		p.Send(eventMsg(e))
	})

	m := NewModel(ctx, pipeline, autoConfirm)
	p = tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))

	_, err = p.Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		err = nil
	}

	return m.Installed(), err
}
