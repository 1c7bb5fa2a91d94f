// cmd/finder/main.go
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"

	"repo-notion-sync/internal/config"
	"repo-notion-sync/internal/console"
	"repo-notion-sync/internal/discovery"
	"repo-notion-sync/internal/github"
	"repo-notion-sync/internal/tui"
)

// logFileName receives log output while the terminal UI owns stdout.
const logFileName = "repo-finder.log"

func main() {
	if err := run(); err != nil {
		slog.Error("Application error", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.LoadFinderConfig()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	logFile, err := os.OpenFile(filepath.Join(cfg.OutputDir, logFileName), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer logFile.Close()

	logger := console.NewLogger(logFile, cfg.LogLevel, cfg.LogFormat)
	logger.Info("Configuration loaded successfully", "output_dir", cfg.OutputDir)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	ghClient, err := github.NewClient(cfg.GithubToken, cfg.GithubAPIURL, logger)
	if err != nil {
		return err
	}
	finder := discovery.NewFinder(ghClient, logger)

	machine := discovery.NewMachine(discovery.Params{
		Stars:      cfg.DefaultStarCount,
		Forks:      cfg.DefaultForkCount,
		LastCommit: cfg.DefaultLastCommit,
		Language:   cfg.DefaultLanguage,
		MaxPages:   cfg.DefaultMaxPages,
	})
	model := tui.NewFinderModel(ctx, machine, finder, cfg.OutputDir, cfg.ListOutputFile)

	if _, err := tea.NewProgram(model, tea.WithContext(ctx)).Run(); err != nil {
		return fmt.Errorf("finder: %w", err)
	}
	logger.Info("Session finished", "searches", machine.Searches())
	return nil
}
