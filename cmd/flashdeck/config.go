package main

import (
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"github.com/tinytelemetry/flashdeck/internal/model"
	"github.com/tinytelemetry/flashdeck/internal/socketrpc"
)

const (
	defaultBindHost            = "127.0.0.1"
	defaultAPIPort             = 3000
	defaultQueryTimeout        = model.DefaultRequestTimeout
	defaultJudgmentBatchSize   = 64
	defaultJudgmentFlush       = time.Second
	defaultJudgmentFlushQueue  = 16
	defaultJudgmentRetention   = 365 // days, 0 = disabled
	defaultBackupInterval      = 6 * time.Hour
	defaultBackupKeepLast      = 7
	defaultStdinFormat         = "csv"
	defaultStdinDeckName       = "stdin"
	defaultEnvFile             = ".env"
	defaultConfigDirName       = "flashdeck"
	defaultConfigFileName      = "config.yml"
	defaultStateDirName        = "flashdeck"
	defaultDatabaseFileName    = "flashdeck.duckdb"
	defaultJournalFileName     = "tables.journal"
	defaultBackupDirectoryName = "backups"
)

// appConfig is internal runtime configuration.
// It is package-private to keep defaults and shape local to the CLI entrypoint.
type appConfig struct {
	Host                 string        `mapstructure:"host"`
	DBPath               string        `mapstructure:"db-path"`
	APIEnabled           bool          `mapstructure:"api-enabled"`
	APIPort              int           `mapstructure:"api-port"`
	APIAddr              string        `mapstructure:"api-addr"`
	SocketPath           string        `mapstructure:"socket-path"`
	QueryTimeout         time.Duration `mapstructure:"query-timeout"`
	JudgmentBatchSize    int           `mapstructure:"judgment-batch-size"`
	JudgmentFlush        time.Duration `mapstructure:"judgment-flush-interval"`
	JudgmentFlushQueue   int           `mapstructure:"judgment-flush-queue-size"`
	JudgmentRetention    int           `mapstructure:"judgment-retention"`
	JournalEnabled       bool          `mapstructure:"journal-enabled"`
	JournalPath          string        `mapstructure:"journal-path"`
	StdinFormat          string        `mapstructure:"stdin-format"`
	StdinDeckName        string        `mapstructure:"stdin-deck-name"`
	BackupEnabled        bool          `mapstructure:"backup-enabled"`
	BackupInterval       time.Duration `mapstructure:"backup-interval"`
	BackupLocalDir       string        `mapstructure:"backup-local-dir"`
	BackupKeepLast       int           `mapstructure:"backup-keep-last"`
	BackupBucketURL      string        `mapstructure:"backup-bucket-url"`
	BackupS3Endpoint     string        `mapstructure:"backup-s3-endpoint"`
	BackupS3Region       string        `mapstructure:"backup-s3-region"`
	BackupS3AccessKey    string        `mapstructure:"backup-s3-access-key"`
	BackupS3SecretKey    string        `mapstructure:"backup-s3-secret-key"`
	BackupS3SessionToken string        `mapstructure:"backup-s3-session-token"`
	BackupS3UseSSL       bool          `mapstructure:"backup-s3-use-ssl"`
	ConfigPath           string        `mapstructure:"-"` // not from config file
}

// loadDotEnv loads KEY=VALUE pairs from path into the environment. A missing
// file is not an error; variables already set win.
func loadDotEnv(path string) error {
	if err := godotenv.Load(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("loading %s: %w", path, err)
	}
	return nil
}

func loadConfig(configPath string) (appConfig, error) {
	var cfg appConfig

	home, err := os.UserHomeDir()
	if err != nil {
		return cfg, fmt.Errorf("finding home directory: %w", err)
	}

	dataDir := filepath.Join(home, ".local", "share", defaultStateDirName)

	v := viper.New()
	v.SetEnvPrefix("FLASHDECK")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))

	v.SetDefault("host", defaultBindHost)
	v.SetDefault("db-path", filepath.Join(dataDir, defaultDatabaseFileName))
	v.SetDefault("api-enabled", true)
	v.SetDefault("api-port", defaultAPIPort)
	v.SetDefault("api-addr", "")
	v.SetDefault("socket-path", socketrpc.DefaultSocketPath())
	v.SetDefault("query-timeout", defaultQueryTimeout)
	v.SetDefault("judgment-batch-size", defaultJudgmentBatchSize)
	v.SetDefault("judgment-flush-interval", defaultJudgmentFlush)
	v.SetDefault("judgment-flush-queue-size", defaultJudgmentFlushQueue)
	v.SetDefault("judgment-retention", defaultJudgmentRetention)
	v.SetDefault("journal-enabled", true)
	v.SetDefault("journal-path", filepath.Join(dataDir, defaultJournalFileName))
	v.SetDefault("stdin-format", defaultStdinFormat)
	v.SetDefault("stdin-deck-name", defaultStdinDeckName)
	v.SetDefault("backup-enabled", false)
	v.SetDefault("backup-interval", defaultBackupInterval)
	v.SetDefault("backup-local-dir", filepath.Join(dataDir, defaultBackupDirectoryName))
	v.SetDefault("backup-keep-last", defaultBackupKeepLast)
	v.SetDefault("backup-bucket-url", "")
	v.SetDefault("backup-s3-endpoint", "")
	v.SetDefault("backup-s3-region", "")
	v.SetDefault("backup-s3-access-key", "")
	v.SetDefault("backup-s3-secret-key", "")
	v.SetDefault("backup-s3-session-token", "")
	v.SetDefault("backup-s3-use-ssl", true)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigFile(filepath.Join(home, ".config", defaultConfigDirName, defaultConfigFileName))
	}

	configFound := true
	if err := v.ReadInConfig(); err != nil {
		var configFileNotFound viper.ConfigFileNotFoundError
		if !errors.As(err, &configFileNotFound) && !os.IsNotExist(err) {
			return cfg, err
		}
		configFound = false
	}

	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, err
	}
	if configFound {
		cfg.ConfigPath = v.ConfigFileUsed()
	}

	if err := validateConfig(cfg); err != nil {
		return cfg, err
	}

	cfg.DBPath = expandHome(home, cfg.DBPath)
	cfg.JournalPath = expandHome(home, cfg.JournalPath)
	cfg.BackupLocalDir = expandHome(home, cfg.BackupLocalDir)
	cfg.SocketPath = expandHome(home, cfg.SocketPath)

	if cfg.APIAddr == "" {
		cfg.APIAddr = net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.APIPort))
	}

	return cfg, nil
}

func validateConfig(cfg appConfig) error {
	if cfg.APIPort <= 0 || cfg.APIPort > 65535 {
		return fmt.Errorf("invalid api-port: %d", cfg.APIPort)
	}
	if cfg.QueryTimeout <= 0 {
		return fmt.Errorf("invalid query-timeout: %s", cfg.QueryTimeout)
	}
	if cfg.JudgmentBatchSize <= 0 {
		return fmt.Errorf("invalid judgment-batch-size: %d", cfg.JudgmentBatchSize)
	}
	if cfg.JudgmentRetention < 0 {
		return fmt.Errorf("invalid judgment-retention: %d", cfg.JudgmentRetention)
	}
	switch strings.ToLower(cfg.StdinFormat) {
	case "csv", "tsv", "yaml", "yml":
	default:
		return fmt.Errorf("invalid stdin-format: %q", cfg.StdinFormat)
	}
	if cfg.JournalEnabled && strings.TrimSpace(cfg.JournalPath) == "" {
		return errors.New("journal-path is required when journal-enabled is true")
	}
	if !cfg.BackupEnabled {
		return nil
	}
	if cfg.BackupInterval <= 0 {
		return fmt.Errorf("invalid backup-interval: %s", cfg.BackupInterval)
	}
	if cfg.BackupKeepLast <= 0 {
		return fmt.Errorf("invalid backup-keep-last: %d", cfg.BackupKeepLast)
	}
	if cfg.BackupBucketURL != "" {
		if !strings.HasPrefix(cfg.BackupBucketURL, "s3://") {
			return fmt.Errorf("invalid backup-bucket-url: %q (want s3://bucket/prefix)", cfg.BackupBucketURL)
		}
		if cfg.BackupS3AccessKey == "" || cfg.BackupS3SecretKey == "" {
			return errors.New("backup-s3-access-key and backup-s3-secret-key are required when backup-bucket-url is set")
		}
	}
	return nil
}

func expandHome(home, path string) string {
	if path == "~" {
		return home
	}
	if strings.HasPrefix(path, "~/") {
		return filepath.Join(home, path[2:])
	}
	return path
}
