package http

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"github.com/NamanBalaji/updater/internal/errors"
	"github.com/NamanBalaji/updater/internal/logger"
)

// sizeTolerance is how far the merged size may drift from the probed size
// before it is worth a warning. It is never an error.
const sizeTolerance = 1024

var (
	ErrMissingChunk = errors.New("chunk file missing")
	ErrEmptyChunk   = errors.New("chunk file empty")
	ErrEmptyOutput  = errors.New("merged file is empty")
)

// Merge writes the chunk files into destPath in index order, deleting each
// chunk as soon as it has been copied. Every chunk is checked before destPath
// is created, and destPath is removed again on any failure.
// expectedSize is the probed size, 0 when unknown.
func Merge(results []ChunkResult, destPath string, expectedSize int64) (string, error) {
	log := logger.With("merger")

	ordered := slices.Clone(results)
	slices.SortFunc(ordered, func(a, b ChunkResult) int { return a.Index - b.Index })

	for i, r := range ordered {
		if r.Index != i {
			return "", errors.NewMergeError(fmt.Errorf("%w: index %d", ErrMissingChunk, i), destPath)
		}

		info, err := os.Stat(r.TempFilePath)
		if err != nil {
			return "", errors.NewMergeError(fmt.Errorf("%w: %s: %w", ErrMissingChunk, r.TempFilePath, err), destPath)
		}

		if info.Size() == 0 {
			return "", errors.NewMergeError(fmt.Errorf("%w: %s", ErrEmptyChunk, r.TempFilePath), destPath)
		}
	}

	if len(ordered) == 0 {
		return "", errors.NewMergeError(ErrEmptyOutput, destPath)
	}

	if err := os.MkdirAll(filepath.Dir(destPath), 0o755); err != nil {
		return "", errors.NewMergeError(fmt.Errorf("create destination directory: %w", err), destPath)
	}

	size, err := assemble(ordered, destPath)
	if err != nil {
		_ = os.Remove(destPath)
		return "", errors.NewMergeError(err, destPath)
	}

	if size == 0 {
		_ = os.Remove(destPath)
		return "", errors.NewMergeError(ErrEmptyOutput, destPath)
	}

	if expectedSize > 0 && absDiff(size, expectedSize) > sizeTolerance {
		log.Warn().Int64("expected", expectedSize).Int64("actual", size).Str("path", destPath).Msg("merged size differs from probed size")
	}

	log.Info().Int("chunks", len(ordered)).Int64("size", size).Str("path", destPath).Msg("merge complete")

	return destPath, nil
}

// assemble holds at most one chunk in memory at a time.
func assemble(ordered []ChunkResult, destPath string) (int64, error) {
	out, err := os.OpenFile(destPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return 0, fmt.Errorf("create destination: %w", err)
	}

	for _, r := range ordered {
		data, err := os.ReadFile(r.TempFilePath)
		if err != nil {
			out.Close()
			return 0, fmt.Errorf("read chunk %d: %w", r.Index, err)
		}

		if _, err := out.Write(data); err != nil {
			out.Close()
			return 0, fmt.Errorf("write chunk %d: %w", r.Index, err)
		}

		if err := os.Remove(r.TempFilePath); err != nil {
			logger.Debugf("Failed to remove chunk file %s: %v", r.TempFilePath, err)
		}
	}

	if err := out.Sync(); err != nil {
		out.Close()
		return 0, fmt.Errorf("sync destination: %w", err)
	}

	if err := out.Close(); err != nil {
		return 0, fmt.Errorf("close destination: %w", err)
	}

	info, err := os.Stat(destPath)
	if err != nil {
		return 0, fmt.Errorf("stat destination: %w", err)
	}

	return info.Size(), nil
}

func absDiff(a, b int64) int64 {
	if a > b {
		return a - b
	}

	return b - a
}
