package http

import (
	"context"
	"fmt"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/NamanBalaji/updater/internal/errors"
)

const (
	haltNone int32 = iota
	haltFailed
	haltCancelled
)

var ErrSizeMismatch = errors.New("fetched bytes do not add up to the artifact size")

// Schedule drains plan with at most plan.Threads fetchers in flight, refilling
// a slot as soon as one frees up. The first chunk failure or a stop request
// prevents any further launches; fetchers already running are left to finish.
// Results are indexed by chunk index.
func (d *Downloader) Schedule(ctx context.Context, url string, plan Plan, tempDir string, ctl Control) ([]ChunkResult, error) {
	results := make([]ChunkResult, len(plan.Chunks))

	var (
		halt     atomic.Int32
		inFlight atomic.Int32
		peak     atomic.Int32
		failure  error // written once by whoever wins the halt
	)

	stopped := func() bool {
		if halt.Load() != haltNone {
			return true
		}

		if ctx.Err() != nil || ctl.Stopped() {
			halt.CompareAndSwap(haltNone, haltCancelled)
			return true
		}

		return false
	}

	threads := max(plan.Threads, 1)

	g := new(errgroup.Group)
	g.SetLimit(threads)

	d.log.Info().Int("chunks", len(plan.Chunks)).Int("threads", threads).Int64("chunkSize", plan.ChunkSize).Msg("scheduling chunks")

	for _, task := range plan.Chunks {
		if stopped() {
			break
		}

		// Blocks until a slot is free.
		g.Go(func() error {
			if stopped() {
				return nil
			}

			n := inFlight.Add(1)
			defer inFlight.Add(-1)

			for {
				p := peak.Load()
				if n <= p || peak.CompareAndSwap(p, n) {
					break
				}
			}

			result, err := d.FetchChunk(ctx, url, task, tempDir, ctl.OnBytes)
			if err != nil {
				if errors.Is(err, errors.ErrChunkFailed) {
					if halt.CompareAndSwap(haltNone, haltFailed) {
						failure = err
					}
				} else {
					halt.CompareAndSwap(haltNone, haltCancelled)
				}

				return err
			}

			results[task.Index] = result

			return nil
		})
	}

	err := g.Wait()

	d.log.Debug().Int32("peakInFlight", peak.Load()).Msg("scheduler drained")

	switch {
	case halt.Load() == haltFailed:
		return nil, failure
	case halt.Load() == haltCancelled, ctl.Stopped():
		return nil, errors.NewContextError(errors.ErrCancelled, url)
	case err != nil:
		return nil, err
	}

	var sum int64
	for _, r := range results {
		sum += r.ByteCount
	}

	if sum != plan.TotalSize {
		return nil, errors.NewIOError(fmt.Errorf("%w: %d != %d", ErrSizeMismatch, sum, plan.TotalSize), url)
	}

	return results, nil
}
