package http

import (
	"fmt"
	"path/filepath"
)

// ChunkTask is one inclusive byte range of the artifact. Index is the merge order.
type ChunkTask struct {
	Index int   `json:"index"`
	Start int64 `json:"start"`
	End   int64 `json:"end"`
}

// Len is the number of bytes the task covers.
func (t ChunkTask) Len() int64 {
	return t.End - t.Start + 1
}

func (t ChunkTask) rangeHeader() string {
	return fmt.Sprintf("bytes=%d-%d", t.Start, t.End)
}

// ChunkResult is a fetched chunk waiting in its temp file.
type ChunkResult struct {
	Index        int    `json:"index"`
	TempFilePath string `json:"tempFilePath"`
	ByteCount    int64  `json:"byteCount"`
}

// TempDir is where the chunks of destPath are staged.
func TempDir(destPath string) string {
	return destPath + ".tmp"
}

// PartPath is where the single stream path writes before the final rename.
func PartPath(destPath string) string {
	return destPath + ".part"
}

// ChunkPath names the temp file of a chunk. Retries overwrite the same file.
func ChunkPath(tempDir string, index int) string {
	return filepath.Join(tempDir, fmt.Sprintf("chunk_%d", index))
}
