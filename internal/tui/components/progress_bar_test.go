package components_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/NamanBalaji/updater/internal/status"
	"github.com/NamanBalaji/updater/internal/tui/components"
)

func TestProgressBar(t *testing.T) {
	tests := []struct {
		name          string
		width         int
		fraction      float64
		state         status.State
		paused        bool
		filled, empty int
	}{
		{"empty", 20, 0, status.Scheduling, false, 0, 20},
		{"half paused", 20, 0.5, status.Scheduling, true, 10, 10},
		{"full", 20, 1, status.Complete, false, 20, 0},
		{"below zero", 10, -0.5, status.Failed, false, 0, 10},
		{"above one", 10, 1.5, status.Cancelled, false, 10, 0},
		{"rounds down", 15, 0.33, status.SingleStreaming, false, 4, 11},
		{"verifying", 8, 0.75, status.Verifying, false, 6, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bar := components.ProgressBar(tt.width, tt.fraction, tt.state, tt.paused)

			assert.Equal(t, tt.filled, strings.Count(bar, "█"))
			assert.Equal(t, tt.empty, strings.Count(bar, "░"))
		})
	}

	assert.Empty(t, components.ProgressBar(0, 0.5, status.Probing, false))
	assert.Empty(t, components.ProgressBar(-3, 0.5, status.Probing, false))
}
