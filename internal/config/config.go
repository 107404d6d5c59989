package config

import (
	"os"
	"path/filepath"
	"reflect"
	"time"

	"github.com/adrg/xdg"
	"gopkg.in/yaml.v3"
)

const (
	appName        = "updater"
	configFileName = "config.yaml"
)

// Config holds the configuration options for the application.
type Config struct {
	Update   *UpdateConfig   `yaml:"update,omitempty"`
	Download *DownloadConfig `yaml:"download,omitempty"`
	Verify   *VerifyConfig   `yaml:"verify,omitempty"`
	Install  *InstallConfig  `yaml:"install,omitempty"`
	History  *HistoryConfig  `yaml:"history,omitempty"`
	Log      *LogConfig      `yaml:"log,omitempty"`
}

// UpdateConfig describes how to reach the update metadata endpoint.
type UpdateConfig struct {
	Endpoint       string        `yaml:"endpoint,omitempty"`
	AppID          string        `yaml:"appId,omitempty"`
	Platform       string        `yaml:"platform,omitempty"`
	CurrentVersion string        `yaml:"currentVersion,omitempty"`
	Timeout        time.Duration `yaml:"timeout,omitempty"`
}

// DownloadConfig holds the chunk engine settings.
type DownloadConfig struct {
	Dir            string        `yaml:"dir,omitempty"`
	Threads        int           `yaml:"threads,omitempty"`
	ChunkSize      int64         `yaml:"chunkSize,omitempty"`
	MaxRetries     int           `yaml:"maxRetries,omitempty"`
	RetryDelay     time.Duration `yaml:"retryDelay,omitempty"`
	StallTimeout   time.Duration `yaml:"stallTimeout,omitempty"`
	MaxRedirects   int           `yaml:"maxRedirects,omitempty"`
	RateLimit      int64         `yaml:"rateLimit,omitempty"`
	AcceptFullBody bool          `yaml:"acceptFullBody,omitempty"`
}

type VerifyConfig struct {
	Magic       string `yaml:"magic,omitempty"`
	RequireHash bool   `yaml:"requireHash,omitempty"`
}

type InstallConfig struct {
	BackupDir  string        `yaml:"backupDir,omitempty"`
	GraceDelay time.Duration `yaml:"graceDelay,omitempty"`
	Args       []string      `yaml:"args,omitempty"`
}

type HistoryConfig struct {
	Path string `yaml:"path,omitempty"`
}

type LogConfig struct {
	Path string `yaml:"path,omitempty"`
}

// Path returns the default location of the configuration file.
func Path() string {
	return filepath.Join(xdg.ConfigHome, appName, configFileName)
}

// GetConfig reads the configuration file at the default location.
func GetConfig() (*Config, error) {
	return Load(Path())
}

// Load reads the configuration file and returns a Config struct.
// If the configuration file does not exist, it returns the default configuration.
func Load(configFilePath string) (*Config, error) {
	defaults := DefaultConfig()

	b, err := os.ReadFile(configFilePath)
	if err != nil {
		if os.IsNotExist(err) {
			return &defaults, nil
		}

		return nil, err
	}

	if len(b) == 0 {
		return &defaults, nil
	}

	var cfg Config

	err = yaml.Unmarshal(b, &cfg)
	if err != nil {
		return nil, err
	}

	updateCfg := zeroOr(cfg.Update, defaults.Update)
	downloadCfg := zeroOr(cfg.Download, defaults.Download)
	verifyCfg := zeroOr(cfg.Verify, defaults.Verify)
	installCfg := zeroOr(cfg.Install, defaults.Install)
	historyCfg := zeroOr(cfg.History, defaults.History)
	logCfg := zeroOr(cfg.Log, defaults.Log)

	return &Config{
		Update: &UpdateConfig{
			Endpoint:       updateCfg.Endpoint,
			AppID:          updateCfg.AppID,
			Platform:       zeroOr(updateCfg.Platform, defaults.Update.Platform),
			CurrentVersion: updateCfg.CurrentVersion,
			Timeout:        zeroOr(updateCfg.Timeout, defaults.Update.Timeout),
		},
		Download: &DownloadConfig{
			Dir:            zeroOr(downloadCfg.Dir, defaults.Download.Dir),
			Threads:        zeroOr(downloadCfg.Threads, defaults.Download.Threads),
			ChunkSize:      zeroOr(downloadCfg.ChunkSize, defaults.Download.ChunkSize),
			MaxRetries:     zeroOr(downloadCfg.MaxRetries, defaults.Download.MaxRetries),
			RetryDelay:     zeroOr(downloadCfg.RetryDelay, defaults.Download.RetryDelay),
			StallTimeout:   zeroOr(downloadCfg.StallTimeout, defaults.Download.StallTimeout),
			MaxRedirects:   zeroOr(downloadCfg.MaxRedirects, defaults.Download.MaxRedirects),
			RateLimit:      downloadCfg.RateLimit,
			AcceptFullBody: downloadCfg.AcceptFullBody,
		},
		Verify: &VerifyConfig{
			Magic:       zeroOr(verifyCfg.Magic, defaults.Verify.Magic),
			RequireHash: verifyCfg.RequireHash,
		},
		Install: &InstallConfig{
			BackupDir:  zeroOr(installCfg.BackupDir, defaults.Install.BackupDir),
			GraceDelay: zeroOr(installCfg.GraceDelay, defaults.Install.GraceDelay),
			Args:       installCfg.Args,
		},
		History: &HistoryConfig{
			Path: zeroOr(historyCfg.Path, defaults.History.Path),
		},
		Log: &LogConfig{
			Path: zeroOr(logCfg.Path, defaults.Log.Path),
		},
	}, nil
}

func DefaultConfig() Config {
	return Config{
		Update: &UpdateConfig{
			Platform: platform,
			Timeout:  updateTimeout,
		},
		Download: &DownloadConfig{
			Dir:          downloadDir,
			Threads:      threads,
			ChunkSize:    chunkSize,
			MaxRetries:   maxRetries,
			RetryDelay:   retryDelay,
			StallTimeout: stallTimeout,
			MaxRedirects: maxRedirects,
		},
		Verify: &VerifyConfig{
			Magic: verifyMagic,
		},
		Install: &InstallConfig{
			BackupDir:  backupDir,
			GraceDelay: graceDelay,
		},
		History: &HistoryConfig{
			Path: historyPath,
		},
		Log: &LogConfig{
			Path: logPath,
		},
	}
}

// zeroOr returns def if v is the zero value for its type.
func zeroOr[T any](v, def T) T {
	if reflect.ValueOf(v).IsZero() {
		return def
	}

	return v
}
