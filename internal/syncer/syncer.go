// internal/syncer/syncer.go
package syncer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"repo-notion-sync/internal/cache"
	"repo-notion-sync/internal/duration"
	custom_errors "repo-notion-sync/internal/errors"
	"repo-notion-sync/internal/model"
	"repo-notion-sync/internal/repolist"
)

// RepositoryFetcher reads one repository from the forge.
type RepositoryFetcher interface {
	GetRepository(ctx context.Context, owner, name string) (*model.Repository, error)
}

// PageGateway is the part of the Notion gateway the sync phase needs.
type PageGateway interface {
	FindPageByURL(ctx context.Context, databaseID, url string) (string, bool, error)
	CreatePage(ctx context.Context, databaseID string, rec model.Repository, scrapedAt time.Time) (string, error)
	UpdatePage(ctx context.Context, pageID string, rec model.Repository, scrapedAt time.Time) error
}

// Report counts what one Run did.
type Report struct {
	Fetched     int
	Skipped     int
	FetchFailed int
	Created     int
	Updated     int
	SyncFailed  int
}

// Syncer orchestrates the fetch and sync phases.
type Syncer struct {
	fetcher    RepositoryFetcher
	store      cache.Store
	pages      PageGateway
	logger     *slog.Logger
	repos      []repolist.Identifier
	frequency  time.Duration
	databaseID string
	now        func() time.Time
}

// NewSyncer creates a new Syncer instance.
func NewSyncer(fetcher RepositoryFetcher, store cache.Store, pages PageGateway, logger *slog.Logger, repos []repolist.Identifier, frequency time.Duration, databaseID string) (*Syncer, error) {
	if databaseID == "" {
		return nil, errors.New("a Notion database ID is required")
	}
	if frequency < 0 {
		return nil, fmt.Errorf("scrape frequency must not be negative, got %s", frequency)
	}

	return &Syncer{
		fetcher:    fetcher,
		store:      store,
		pages:      pages,
		logger:     logger,
		repos:      repos,
		frequency:  frequency,
		databaseID: databaseID,
		now:        time.Now,
	}, nil
}

// Run performs one fetch phase followed by one sync phase. Failures scoped to
// one repository or one page are logged and counted; only cache failures and
// context cancellation abort the run.
func (s *Syncer) Run(ctx context.Context) (Report, error) {
	var report Report

	// The prior run's records decide skips, so read them before truncating.
	prior, err := s.store.Load()
	if err != nil {
		return report, fmt.Errorf("load cache: %w", err)
	}
	snapshot := cache.NewSnapshot(prior)

	if err := s.store.Reset(); err != nil {
		return report, fmt.Errorf("reset cache: %w", err)
	}

	s.logger.Info("Starting fetch phase", "repositories", len(s.repos), "cached", snapshot.Len(), "frequency", duration.Format(s.frequency))
	if err := s.fetchPhase(ctx, snapshot, &report); err != nil {
		return report, err
	}

	s.logger.Info("Starting sync phase", "database_id", s.databaseID)
	if err := s.syncPhase(ctx, &report); err != nil {
		return report, err
	}

	s.logger.Info("Run finished",
		"fetched", report.Fetched, "skipped", report.Skipped, "fetch_failed", report.FetchFailed,
		"created", report.Created, "updated", report.Updated, "sync_failed", report.SyncFailed)
	return report, nil
}

func (s *Syncer) fetchPhase(ctx context.Context, snapshot *cache.Snapshot, report *Report) error {
	for _, id := range s.repos {
		if err := ctx.Err(); err != nil {
			return err
		}
		logger := s.logger.With("repo", id.String())

		if prev, ok := snapshot.Record(id); ok && s.fresh(prev) {
			// Carry the row forward so the sync phase still sees it.
			if err := s.store.Upsert(prev); err != nil {
				return fmt.Errorf("write cache: %w", err)
			}
			report.Skipped++
			logger.Warn("Skipping repository, scraped recently", "last_scraped", prev.LastScraped.Format(time.RFC3339), "frequency", duration.Format(s.frequency))
			continue
		}

		logger.Debug("Fetching repository")
		rec, err := s.fetcher.GetRepository(ctx, id.Owner, id.Name)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return err
			}
			report.FetchFailed++
			var fetchErr *custom_errors.ErrForgeFetchFailed
			if errors.As(err, &fetchErr) && fetchErr.Message != "" {
				logger.Error("Failed to fetch repository", "message", fetchErr.Message)
			} else {
				logger.Error("Failed to fetch repository", "error", err)
			}
			continue
		}

		rec.LastScraped = s.now().UTC()
		if err := s.store.Upsert(*rec); err != nil {
			return fmt.Errorf("write cache: %w", err)
		}
		report.Fetched++
		logger.Info("Cached repository", "stars", rec.Stars, "forks", rec.Forks)
	}
	return nil
}

// fresh reports whether rec was scraped less than one frequency ago.
func (s *Syncer) fresh(rec model.Repository) bool {
	if rec.LastScraped.IsZero() {
		return false
	}
	return s.now().Sub(rec.LastScraped) < s.frequency
}

func (s *Syncer) syncPhase(ctx context.Context, report *Report) error {
	records, err := s.store.Load()
	if err != nil {
		return fmt.Errorf("reload cache: %w", err)
	}

	for _, rec := range records {
		if err := ctx.Err(); err != nil {
			return err
		}
		created, err := s.syncRecord(ctx, rec)
		logger := s.logger.With("repo", rec.Name, "url", rec.URL)
		switch {
		case err != nil:
			report.SyncFailed++
			logger.Error("Failed to sync repository to Notion", "error", err)
		case created:
			report.Created++
			logger.Info("Added repository to the Notion database")
		default:
			report.Updated++
			logger.Info("Updated repository in the Notion database")
		}
	}
	return nil
}

// syncRecord creates or updates the page matching rec.URL. Last Scraped is
// re-stamped either way, so remotely it reads as "last synced".
func (s *Syncer) syncRecord(ctx context.Context, rec model.Repository) (bool, error) {
	stamp := s.now().UTC()

	pageID, found, err := s.pages.FindPageByURL(ctx, s.databaseID, rec.URL)
	if err != nil {
		return false, err
	}
	if !found {
		_, err := s.pages.CreatePage(ctx, s.databaseID, rec, stamp)
		return err == nil, err
	}
	return false, s.pages.UpdatePage(ctx, pageID, rec, stamp)
}
