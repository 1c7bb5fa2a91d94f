// cmd/sync/main.go
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"

	"repo-notion-sync/internal/cache"
	"repo-notion-sync/internal/config"
	"repo-notion-sync/internal/console"
	"repo-notion-sync/internal/github"
	"repo-notion-sync/internal/notion"
	"repo-notion-sync/internal/repolist"
	"repo-notion-sync/internal/syncer"
	"repo-notion-sync/internal/tui"
)

var errCancelled = errors.New("database selection cancelled")

func main() {
	if err := run(); err != nil {
		if errors.Is(err, errCancelled) {
			slog.Info("Nothing to do", "reason", err)
			return
		}
		slog.Error("Application error", "error", err)
		os.Exit(1)
	}
}

func run() error {
	// 1. Load configuration
	cfg, err := config.LoadSyncConfig()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	// 2. Initialize structured logger
	logger := console.NewLogger(os.Stdout, cfg.LogLevel, cfg.LogFormat)
	slog.SetDefault(logger)
	logger.Info("Configuration loaded successfully", "cache_backend", cfg.CacheBackend)

	// 3. Setup context for graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// 4. Read the repository list
	repos, err := repolist.Load(cfg.RepoListFile)
	if err != nil {
		return err
	}
	logger.Info("Repository list loaded", "path", cfg.RepoListFile, "repositories", len(repos))

	// 5. Open the local cache
	store, closeStore, err := openStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	// 6. Initialize remote clients
	ghClient, err := github.NewClient(cfg.GithubToken, cfg.GithubAPIURL, logger)
	if err != nil {
		return err
	}
	gateway := notion.NewGateway(cfg.NotionToken, logger)

	databaseID, err := selectDatabase(ctx, cfg, gateway, logger)
	if err != nil {
		return err
	}

	// 7. Run one fetch and sync pass
	appSyncer, err := syncer.NewSyncer(ghClient, store, gateway, logger, repos, cfg.ScrapeFrequency, databaseID)
	if err != nil {
		return fmt.Errorf("failed to create syncer: %w", err)
	}
	if _, err := appSyncer.Run(ctx); err != nil {
		return fmt.Errorf("sync run failed: %w", err)
	}
	return nil
}

func openStore(ctx context.Context, cfg *config.SyncConfig, logger *slog.Logger) (cache.Store, func(), error) {
	switch cfg.CacheBackend {
	case "bolt":
		bs, err := cache.NewBoltStore(cfg.CacheFile)
		if err != nil {
			return nil, nil, err
		}
		return bs, func() { _ = bs.Close() }, nil

	case "postgres":
		if err := cache.Migrate(cfg.DBURL); err != nil {
			return nil, nil, fmt.Errorf("failed to run database migrations: %w", err)
		}
		logger.Info("Database migrations applied successfully")

		ps, err := cache.NewPostgresStore(ctx, cfg.DBURL)
		if err != nil {
			return nil, nil, err
		}
		logger.Info("Database connection established")
		return ps, ps.Close, nil
	}
	return cache.NewCSVStore(cfg.CacheFile), func() {}, nil
}

// selectDatabase resolves the target database. A configured ID skips the
// interactive picker; the schema is brought up to date either way unless the
// user declines it in the picker.
func selectDatabase(ctx context.Context, cfg *config.SyncConfig, gateway *notion.Gateway, logger *slog.Logger) (string, error) {
	if cfg.NotionDatabaseID != "" {
		if err := gateway.UpdateSchema(ctx, cfg.NotionDatabaseID); err != nil {
			return "", err
		}
		logger.Info("Using configured database", "database_id", cfg.NotionDatabaseID)
		return cfg.NotionDatabaseID, nil
	}

	databases, err := gateway.FindDatabases(ctx)
	if err != nil {
		return "", err
	}

	final, err := tea.NewProgram(tui.NewDatabasePicker(databases), tea.WithContext(ctx)).Run()
	if err != nil {
		return "", fmt.Errorf("database picker: %w", err)
	}
	choice := final.(tui.DatabasePicker).Choice()

	switch {
	case choice.Cancelled:
		return "", errCancelled
	case choice.CreateName != "":
		if cfg.NotionParentPageID == "" {
			return "", errors.New("NOTION_PARENT_PAGE_ID is required to create a database")
		}
		id, err := gateway.CreateDatabase(ctx, cfg.NotionParentPageID, choice.CreateName)
		if err != nil {
			return "", err
		}
		logger.Info("Database created", "name", choice.CreateName, "database_id", id)
		return id, nil
	}

	if choice.UpdateSchema {
		if err := gateway.UpdateSchema(ctx, choice.ID); err != nil {
			return "", err
		}
		logger.Info("Database schema updated", "database_id", choice.ID)
	}
	return choice.ID, nil
}
