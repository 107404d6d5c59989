package filesystem_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NamanBalaji/updater/internal/filesystem"
)

func TestCreateFile(t *testing.T) {
	fs := filesystem.NewOSFileSystem()
	filePath := filepath.Join(t.TempDir(), "subdir", "testfile.txt")

	file, err := fs.CreateFile(filePath)
	require.NoError(t, err)

	_, err = file.Write([]byte("hello world"))
	require.NoError(t, err)
	require.NoError(t, file.Close())

	exists, err := fs.FileExists(filePath)
	require.NoError(t, err)
	assert.True(t, exists)

	size, err := fs.FileSize(filePath)
	require.NoError(t, err)
	assert.Equal(t, int64(11), size)
}

func TestFileExists_Missing(t *testing.T) {
	fs := filesystem.NewOSFileSystem()

	exists, err := fs.FileExists(filepath.Join(t.TempDir(), "nope"))
	require.NoError(t, err)
	assert.False(t, exists)

	size, err := fs.FileSize(filepath.Join(t.TempDir(), "nope"))
	require.NoError(t, err)
	assert.Zero(t, size)
}

func TestRemove(t *testing.T) {
	fs := filesystem.NewOSFileSystem()
	dir := t.TempDir()

	file := filepath.Join(dir, "a.exe")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0o644))

	tmpDir := filepath.Join(dir, "a.exe.tmp")
	require.NoError(t, os.MkdirAll(tmpDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, "chunk_0"), []byte("y"), 0o644))

	require.NoError(t, fs.Remove(file, tmpDir, filepath.Join(dir, "missing"), ""))

	assert.NoFileExists(t, file)
	assert.NoDirExists(t, tmpDir)
}

func TestCopyFile(t *testing.T) {
	fs := filesystem.NewOSFileSystem()
	dir := t.TempDir()

	src := filepath.Join(dir, "app.exe")
	require.NoError(t, os.WriteFile(src, []byte("binary contents"), 0o755))

	dst := filepath.Join(dir, "backup", "app.exe")

	n, err := fs.CopyFile(src, dst)
	require.NoError(t, err)
	assert.Equal(t, int64(15), n)

	got, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Equal(t, "binary contents", string(got))
	assert.NoFileExists(t, dst+".copy")

	_, err = fs.CopyFile(filepath.Join(dir, "missing"), dst)
	assert.Error(t, err)
}
