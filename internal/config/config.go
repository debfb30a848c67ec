package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	// Rate limiting
	GlobalRateLimit  time.Duration // minimum spacing between any two indexer requests
	IndexerRateLimit time.Duration // minimum spacing between requests to the same indexer
	SearchGap        time.Duration // floor between starts of consecutive logical searches

	// Background task intervals
	DownloadSyncInterval time.Duration
	RSSSyncInterval      time.Duration
	MissingSearchSpec    string // cron spec for the missing-content search
	CutoffSearchSpec     string // cron spec for the cutoff/upgrade search

	// Download handling
	RedownloadOnFailure bool
	HandleWaitTimeout   time.Duration // how long to poll a torrent client for the hash
	RSSCacheRetention   time.Duration

	// Title matching extra-word multipliers, per call site
	MatchExtraAuto        float64
	MatchExtraRSS         float64
	MatchExtraInteractive float64

	// Download clients
	QBittorrentURL      string
	QBittorrentUser     string
	QBittorrentPassword string
	SABnzbdURL          string
	SABnzbdKey          string
	DownloadCategory    string

	// Library
	LibraryPath string

	// Server
	ServerPort string

	// Paths
	DatabaseFile string

	// Logging
	LogLevel  string
	LogFormat string
}

// Load loads configuration from environment variables and .env file
func Load() (*Config, error) {
	viper.SetConfigName(".env")
	viper.SetConfigType("env")
	viper.AddConfigPath(".")
	viper.AutomaticEnv()

	// Load .env file if it exists (ignore if not found)
	_ = viper.ReadInConfig()

	viper.SetDefault("GLOBAL_RATE_LIMIT_MS", 1000)
	viper.SetDefault("INDEXER_RATE_LIMIT_MS", 3000)
	viper.SetDefault("SEARCH_GAP_MS", 2000)
	viper.SetDefault("DOWNLOAD_SYNC_SECONDS", 5)
	viper.SetDefault("RSS_SYNC_MINUTES", 15)
	viper.SetDefault("MISSING_SEARCH_CRON", "0 0 * * * *")
	viper.SetDefault("CUTOFF_SEARCH_CRON", "0 0 */6 * * *")
	viper.SetDefault("REDOWNLOAD_ON_FAILURE", true)
	viper.SetDefault("HANDLE_WAIT_SECONDS", 60)
	viper.SetDefault("RSS_CACHE_RETENTION_DAYS", 7)
	viper.SetDefault("MATCH_EXTRA_AUTO", 0.5)
	viper.SetDefault("MATCH_EXTRA_RSS", 1.0)
	viper.SetDefault("MATCH_EXTRA_INTERACTIVE", 2.0)
	viper.SetDefault("DOWNLOAD_CATEGORY", "huntarr")
	viper.SetDefault("SERVER_PORT", "8080")
	viper.SetDefault("LOG_LEVEL", "info")
	viper.SetDefault("LOG_FORMAT", "text")

	configDir := viper.GetString("CONFIG_DIR")
	if configDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get home directory: %w", err)
		}
		configDir = filepath.Join(homeDir, ".config", "huntarr")
	} else {
		absPath, err := filepath.Abs(configDir)
		if err != nil {
			return nil, fmt.Errorf("failed to get absolute path for CONFIG_DIR: %w", err)
		}
		configDir = absPath
	}

	if err := os.MkdirAll(configDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create config directory: %w", err)
	}

	config := &Config{
		GlobalRateLimit:  time.Duration(viper.GetInt("GLOBAL_RATE_LIMIT_MS")) * time.Millisecond,
		IndexerRateLimit: time.Duration(viper.GetInt("INDEXER_RATE_LIMIT_MS")) * time.Millisecond,
		SearchGap:        time.Duration(viper.GetInt("SEARCH_GAP_MS")) * time.Millisecond,

		DownloadSyncInterval: time.Duration(viper.GetInt("DOWNLOAD_SYNC_SECONDS")) * time.Second,
		RSSSyncInterval:      time.Duration(viper.GetInt("RSS_SYNC_MINUTES")) * time.Minute,
		MissingSearchSpec:    viper.GetString("MISSING_SEARCH_CRON"),
		CutoffSearchSpec:     viper.GetString("CUTOFF_SEARCH_CRON"),

		RedownloadOnFailure: viper.GetBool("REDOWNLOAD_ON_FAILURE"),
		HandleWaitTimeout:   time.Duration(viper.GetInt("HANDLE_WAIT_SECONDS")) * time.Second,
		RSSCacheRetention:   time.Duration(viper.GetInt("RSS_CACHE_RETENTION_DAYS")) * 24 * time.Hour,

		MatchExtraAuto:        viper.GetFloat64("MATCH_EXTRA_AUTO"),
		MatchExtraRSS:         viper.GetFloat64("MATCH_EXTRA_RSS"),
		MatchExtraInteractive: viper.GetFloat64("MATCH_EXTRA_INTERACTIVE"),

		QBittorrentURL:      viper.GetString("QBITTORRENT_URL"),
		QBittorrentUser:     viper.GetString("QBITTORRENT_USER"),
		QBittorrentPassword: viper.GetString("QBITTORRENT_PASSWORD"),
		SABnzbdURL:          viper.GetString("SABNZBD_URL"),
		SABnzbdKey:          viper.GetString("SABNZBD_KEY"),
		DownloadCategory:    viper.GetString("DOWNLOAD_CATEGORY"),

		LibraryPath: viper.GetString("LIBRARY_PATH"),

		ServerPort: viper.GetString("SERVER_PORT"),

		DatabaseFile: filepath.Join(configDir, "huntarr.db"),

		LogLevel:  viper.GetString("LOG_LEVEL"),
		LogFormat: viper.GetString("LOG_FORMAT"),
	}

	if config.LibraryPath == "" {
		return nil, fmt.Errorf("LIBRARY_PATH is required")
	}
	if config.QBittorrentURL == "" && config.SABnzbdURL == "" {
		return nil, fmt.Errorf("at least one download client (QBITTORRENT_URL or SABNZBD_URL) is required")
	}

	return config, nil
}
