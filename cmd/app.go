package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/NamanBalaji/updater/internal/config"
	engine "github.com/NamanBalaji/updater/internal/http"
	"github.com/NamanBalaji/updater/internal/installer"
	"github.com/NamanBalaji/updater/internal/logger"
	"github.com/NamanBalaji/updater/internal/repository"
	"github.com/NamanBalaji/updater/internal/session"
	"github.com/NamanBalaji/updater/internal/update"
	"github.com/NamanBalaji/updater/internal/updater"
	httpPkg "github.com/NamanBalaji/updater/pkg/http"
)

const historyKeep = 200

func engineOptions(d *config.DownloadConfig) []engine.ConfigOption {
	return []engine.ConfigOption{
		engine.WithThreads(d.Threads),
		engine.WithChunkSize(d.ChunkSize),
		engine.WithMaxRetries(d.MaxRetries),
		engine.WithRetryDelay(d.RetryDelay),
		engine.WithStallTimeout(d.StallTimeout),
		engine.WithMaxRedirects(d.MaxRedirects),
		engine.WithRateLimit(d.RateLimit),
		engine.WithAcceptFullBody(d.AcceptFullBody),
	}
}

func newDownloader() *engine.Downloader {
	return engine.New(httpPkg.NewClient(), engineOptions(cfg.Download)...)
}

// openHistory opens the history database and trims it to historyKeep records.
func openHistory() (*repository.BboltRepository, error) {
	if err := os.MkdirAll(filepath.Dir(cfg.History.Path), 0o755); err != nil {
		return nil, fmt.Errorf("create history directory: %w", err)
	}

	repo, err := repository.NewBboltRepository(cfg.History.Path)
	if err != nil {
		return nil, err
	}

	if n, err := repo.Prune(historyKeep); err != nil {
		logger.Warnf("failed to prune history: %v", err)
	} else if n > 0 {
		logger.Debugf("pruned %d history records", n)
	}

	return repo, nil
}

func newChecker() *update.Client {
	return update.NewClient(cfg.Update.Endpoint, cfg.Update.Timeout)
}

func updateQuery() update.Query {
	return update.Query{
		CurrentVersion: cfg.Update.CurrentVersion,
		Platform:       cfg.Update.Platform,
		AppID:          cfg.Update.AppID,
	}
}

func newUpdater(recorder session.Recorder, magic []byte, onEvent func(updater.Event)) *updater.Updater {
	exe, err := os.Executable()
	if err != nil {
		logger.Warnf("cannot locate running executable, skipping backup: %v", err)
		exe = ""
	}

	updCfg := updater.Config{
		Query:       updateQuery(),
		DownloadDir: cfg.Download.Dir,
		Magic:       magic,
		RequireHash: cfg.Verify.RequireHash,
		Executable:  exe,
		BackupDir:   cfg.Install.BackupDir,
		InstallArgs: cfg.Install.Args,
	}

	manager := session.NewManager(newDownloader(), recorder)

	return updater.New(updCfg, newChecker(), manager, installer.NewLauncher(cfg.Install.GraceDelay), onEvent)
}
