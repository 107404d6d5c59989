package config

import (
	"path/filepath"
	"runtime"
	"time"

	"github.com/adrg/xdg"
)

const (
	updateTimeout = 10 * time.Second

	threads      = 16
	chunkSize    = 2 * 1024 * 1024
	maxRetries   = 3
	retryDelay   = 500 * time.Millisecond
	stallTimeout = 30 * time.Second
	maxRedirects = 10

	verifyMagic = "4d5a"

	graceDelay = 2 * time.Second
)

var (
	platform    = runtime.GOOS
	downloadDir = filepath.Join(xdg.CacheHome, appName)
	backupDir   = filepath.Join(xdg.DataHome, appName, "backup")
	historyPath = filepath.Join(xdg.StateHome, appName, "history.db")
	logPath     = filepath.Join(xdg.StateHome, appName, "updater.log")
)
