// internal/config/config.go
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"repo-notion-sync/internal/duration"
)

// SyncConfig holds all configuration for the sync binary.
type SyncConfig struct {
	LogLevel           string        `mapstructure:"LOG_LEVEL"`
	LogFormat          string        `mapstructure:"LOG_FORMAT"`
	GithubToken        string        `mapstructure:"GITHUB_TOKEN"`
	GithubAPIURL       string        `mapstructure:"GITHUB_API_URL"`
	NotionToken        string        `mapstructure:"NOTION_TOKEN"`
	NotionDatabaseID   string        `mapstructure:"NOTION_DATABASE_ID"`
	NotionParentPageID string        `mapstructure:"NOTION_PARENT_PAGE_ID"`
	ScrapeFrequencyRaw string        `mapstructure:"SCRAPE_FREQUENCY"`
	ScrapeFrequency    time.Duration `mapstructure:"-"`
	RepoListFile       string        `mapstructure:"REPO_LIST_FILE"`
	CacheFile          string        `mapstructure:"CACHE_FILE"`
	CacheBackend       string        `mapstructure:"CACHE_BACKEND"`
	DBURL              string        `mapstructure:"DB_URL"`
}

// FinderConfig holds all configuration for the discovery binary.
type FinderConfig struct {
	LogLevel          string `mapstructure:"LOG_LEVEL"`
	LogFormat         string `mapstructure:"LOG_FORMAT"`
	GithubToken       string `mapstructure:"GITHUB_TOKEN"`
	GithubAPIURL      string `mapstructure:"GITHUB_API_URL"`
	DefaultStarCount  int    `mapstructure:"DEFAULT_STAR_COUNT"`
	DefaultForkCount  int    `mapstructure:"DEFAULT_FORK_COUNT"`
	DefaultLastCommit string `mapstructure:"DEFAULT_LAST_COMMIT"`
	DefaultLanguage   string `mapstructure:"DEFAULT_LANGUAGE"`
	DefaultMaxPages   int    `mapstructure:"DEFAULT_MAX_PAGES"`
	ListOutputFile    string `mapstructure:"LIST_OUTPUT_FILE"`
	OutputDir         string `mapstructure:"OUTPUT_DIR"`
}

var syncKeys = []string{
	"LOG_LEVEL", "LOG_FORMAT", "GITHUB_TOKEN", "GITHUB_API_URL", "NOTION_TOKEN",
	"NOTION_DATABASE_ID", "NOTION_PARENT_PAGE_ID", "SCRAPE_FREQUENCY",
	"REPO_LIST_FILE", "CACHE_FILE", "CACHE_BACKEND", "DB_URL",
}

var finderKeys = []string{
	"LOG_LEVEL", "LOG_FORMAT", "GITHUB_TOKEN", "GITHUB_API_URL",
	"DEFAULT_STAR_COUNT", "DEFAULT_FORK_COUNT", "DEFAULT_LAST_COMMIT",
	"DEFAULT_LANGUAGE", "DEFAULT_MAX_PAGES", "LIST_OUTPUT_FILE", "OUTPUT_DIR",
}

// newViper reads the optional .env file and binds the given keys to the
// environment. AutomaticEnv alone does not surface keys during Unmarshal
// unless viper already knows them, hence the explicit BindEnv.
func newViper(keys []string) (*viper.Viper, error) {
	v := viper.New()
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "console")

	// Load from .env file if it exists
	v.SetConfigName(".env")
	v.SetConfigType("env")
	v.AddConfigPath(".")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read .env: %w", err)
		}
	}

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for _, k := range keys {
		if err := v.BindEnv(k); err != nil {
			return nil, err
		}
	}
	return v, nil
}

// LoadSyncConfig reads the sync binary's configuration from .env and the environment.
func LoadSyncConfig() (*SyncConfig, error) {
	v, err := newViper(syncKeys)
	if err != nil {
		return nil, err
	}
	v.SetDefault("SCRAPE_FREQUENCY", "1d")
	v.SetDefault("REPO_LIST_FILE", "list.txt")
	v.SetDefault("CACHE_FILE", "repo_data.csv")
	v.SetDefault("CACHE_BACKEND", "csv")

	var cfg SyncConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	freq, err := duration.Parse(cfg.ScrapeFrequencyRaw)
	if err != nil {
		return nil, fmt.Errorf("SCRAPE_FREQUENCY: %w", err)
	}
	cfg.ScrapeFrequency = freq

	// Validate required fields
	if cfg.GithubToken == "" {
		return nil, errors.New("GITHUB_TOKEN is a required configuration field")
	}
	if cfg.NotionToken == "" {
		return nil, errors.New("NOTION_TOKEN is a required configuration field")
	}
	switch cfg.CacheBackend {
	case "csv", "bolt":
	case "postgres":
		if cfg.DBURL == "" {
			return nil, errors.New("DB_URL is required when CACHE_BACKEND is 'postgres'")
		}
	default:
		return nil, fmt.Errorf("CACHE_BACKEND must be 'csv', 'bolt' or 'postgres', got %q", cfg.CacheBackend)
	}

	return &cfg, nil
}

// LoadFinderConfig reads the discovery binary's configuration from .env and the environment.
func LoadFinderConfig() (*FinderConfig, error) {
	v, err := newViper(finderKeys)
	if err != nil {
		return nil, err
	}
	v.SetDefault("DEFAULT_STAR_COUNT", 50)
	v.SetDefault("DEFAULT_FORK_COUNT", 50)
	v.SetDefault("DEFAULT_LAST_COMMIT", "2023-01-01")
	v.SetDefault("DEFAULT_LANGUAGE", "")
	v.SetDefault("DEFAULT_MAX_PAGES", 5)
	v.SetDefault("LIST_OUTPUT_FILE", "lists.txt")
	v.SetDefault("OUTPUT_DIR", ".")

	var cfg FinderConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if cfg.GithubToken == "" {
		return nil, errors.New("GITHUB_TOKEN is a required configuration field")
	}
	if cfg.DefaultLastCommit != "" {
		if _, err := time.Parse(time.DateOnly, cfg.DefaultLastCommit); err != nil {
			return nil, errors.New("DEFAULT_LAST_COMMIT must be in YYYY-MM-DD format")
		}
	}
	if cfg.DefaultMaxPages < 1 {
		return nil, errors.New("DEFAULT_MAX_PAGES must be at least 1")
	}

	return &cfg, nil
}
