//go:build !windows

package installer_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NamanBalaji/updater/internal/installer"
)

func TestBackup(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "app.exe")
	require.NoError(t, os.WriteFile(src, []byte("MZold"), 0o755))

	backupDir := filepath.Join(dir, "backup")

	dst, err := installer.Backup(src, backupDir)
	require.NoError(t, err)

	assert.Equal(t, backupDir, filepath.Dir(dst))
	assert.True(t, strings.HasPrefix(filepath.Base(dst), "app."))
	assert.True(t, strings.HasSuffix(dst, ".exe"))

	got, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Equal(t, "MZold", string(got))
}

func TestBackup_MissingSource(t *testing.T) {
	_, err := installer.Backup(filepath.Join(t.TempDir(), "missing.exe"), t.TempDir())
	assert.Error(t, err)
}

func TestLaunch(t *testing.T) {
	dir := t.TempDir()
	marker := filepath.Join(dir, "ran")

	script := filepath.Join(dir, "install.sh")
	require.NoError(t, os.WriteFile(script, []byte("#!/bin/sh\ntouch \"$1\"\n"), 0o755))

	exited := make(chan int, 1)
	l := installer.NewLauncher(10 * time.Millisecond)
	l.Exit = func(code int) { exited <- code }

	pid, err := l.Launch(script, marker)
	require.NoError(t, err)
	assert.Positive(t, pid)

	select {
	case code := <-exited:
		assert.Equal(t, 0, code)
	case <-time.After(5 * time.Second):
		t.Fatal("exit was not scheduled")
	}

	assert.Eventually(t, func() bool {
		_, err := os.Stat(marker)
		return err == nil
	}, 5*time.Second, 20*time.Millisecond)
}

func TestLaunch_MissingBinary(t *testing.T) {
	l := installer.NewLauncher(0)
	l.Exit = func(int) { t.Error("exit must not run when launch fails") }

	_, err := l.Launch(filepath.Join(t.TempDir(), "nope"))
	assert.Error(t, err)
}
