package repository

import (
	"time"

	"github.com/google/uuid"
)

// Record is the outcome of one finished download session.
type Record struct {
	ID         uuid.UUID `json:"id"`
	URL        string    `json:"url"`
	DestPath   string    `json:"destPath"`
	Version    string    `json:"version,omitempty"`
	State      string    `json:"state"`
	Error      string    `json:"error,omitempty"`
	TotalSize  int64     `json:"totalSize"`
	Threads    int       `json:"threads"`
	StartedAt  time.Time `json:"startedAt"`
	FinishedAt time.Time `json:"finishedAt"`
}

// Duration is how long the session ran.
func (r *Record) Duration() time.Duration {
	if r.FinishedAt.IsZero() || r.StartedAt.IsZero() {
		return 0
	}

	return r.FinishedAt.Sub(r.StartedAt)
}

type Repository interface {
	Save(record *Record) error
	Find(id uuid.UUID) (*Record, error)
	FindAll() ([]*Record, error)
	Delete(id uuid.UUID) error
	Prune(keep int) (int, error)
	Close() error
}
