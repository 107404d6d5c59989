package progress

import (
	"github.com/NamanBalaji/updater/internal/status"
)

// Progress is a point-in-time view of a download session handed to UIs.
type Progress struct {
	State          status.State
	Paused         bool
	Progress       float64 // 0-100
	DownloadedSize int64
	TotalSize      int64
	Speed          float64 // bytes per second
	SpeedText      string
	ETA            string
	Threads        int
}

// Func receives progress updates. Calls are never concurrent.
type Func func(Progress)

// Percent computes a 0-100 completion value, 0 when total is unknown.
func Percent(downloaded, total int64) float64 {
	if total <= 0 {
		return 0
	}

	if downloaded >= total {
		return 100
	}

	return float64(downloaded) / float64(total) * 100
}

func (p Progress) GetTotalSize() int64 {
	return p.TotalSize
}

func (p Progress) GetDownloaded() int64 {
	return p.DownloadedSize
}

func (p Progress) GetPercentage() float64 {
	return p.Progress
}

func (p Progress) GetSpeedBPS() int64 {
	return int64(p.Speed)
}

func (p Progress) GetETA() string {
	return p.ETA
}
