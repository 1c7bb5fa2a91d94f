// internal/discovery/finder.go
package discovery

import (
	"context"
	"encoding/csv"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/crypto/sha3"

	custom_errors "repo-notion-sync/internal/errors"
	"repo-notion-sync/internal/model"
	"repo-notion-sync/internal/repolist"
)

// Forge is the part of the GitHub client discovery needs.
type Forge interface {
	// SearchCode returns the repository URLs behind one page of code search hits.
	SearchCode(ctx context.Context, query string, page int) ([]string, error)
	GetRepository(ctx context.Context, owner, name string) (*model.Repository, error)
}

// Params are the filters of one discovery search.
type Params struct {
	Query      string
	Stars      int
	Forks      int
	LastCommit string // YYYY-MM-DD
	Language   string
	MaxPages   int
}

// SearchQuery renders p as a code search query string. Code search only
// understands the language qualifier; the other filters are applied to the
// repositories afterwards by Accepts.
func (p Params) SearchQuery() string {
	parts := []string{strings.TrimSpace(p.Query), "in:file"}
	if p.Language != "" {
		parts = append(parts, "language:"+p.Language)
	}
	return strings.Join(parts, " ")
}

// filtersRepositories reports whether any filter needs repository details.
func (p Params) filtersRepositories() bool {
	return p.Stars > 0 || p.Forks > 0 || p.LastCommit != ""
}

// Accepts reports whether rec meets the star, fork and last push minimums.
func (p Params) Accepts(rec model.Repository) bool {
	if rec.Stars < p.Stars || rec.Forks < p.Forks {
		return false
	}
	if p.LastCommit != "" {
		since, err := time.Parse(time.DateOnly, p.LastCommit)
		if err == nil && rec.LastUpdated.Before(since) {
			return false
		}
	}
	return true
}

// Finder runs code searches and saves the repositories they turn up.
type Finder struct {
	forge  Forge
	logger *slog.Logger
}

// NewFinder creates a Finder backed by forge.
func NewFinder(forge Forge, logger *slog.Logger) *Finder {
	return &Finder{forge: forge, logger: logger}
}

// Search fetches up to p.MaxPages pages and returns each repository URL once,
// in first-seen order, keeping only repositories p accepts. A page the forge
// refuses ends paging early with the URLs gathered so far.
func (f *Finder) Search(ctx context.Context, p Params) ([]string, error) {
	query := p.SearchQuery()
	seen := make(map[string]struct{})
	var urls []string

	for page := 1; page <= p.MaxPages; page++ {
		hits, err := f.forge.SearchCode(ctx, query, page)
		if errors.Is(err, custom_errors.ErrPaginationTerminated) {
			f.logger.Debug("No more search pages", "page", page, "reason", err)
			break
		}
		if err != nil {
			return urls, fmt.Errorf("search page %d: %w", page, err)
		}
		for _, u := range hits {
			if u == "" {
				continue
			}
			if _, dup := seen[u]; dup {
				continue
			}
			seen[u] = struct{}{}
			urls = append(urls, u)
		}
		if len(hits) == 0 {
			break
		}
	}

	if p.filtersRepositories() {
		filtered, err := f.filter(ctx, p, urls)
		if err != nil {
			return filtered, err
		}
		f.logger.Debug("Applied repository filters", "matched", len(filtered), "dropped", len(urls)-len(filtered))
		urls = filtered
	}

	f.logger.Info("Search finished", "query", query, "unique_repositories", len(urls))
	return urls, nil
}

// filter keeps the urls whose repository p accepts. A repository that cannot
// be read is dropped.
func (f *Finder) filter(ctx context.Context, p Params, urls []string) ([]string, error) {
	var kept []string
	for _, u := range urls {
		if err := ctx.Err(); err != nil {
			return kept, err
		}
		id, err := repolist.ParseURL(u)
		if err != nil {
			f.logger.Warn("Dropping unrecognised search result", "url", u)
			continue
		}
		rec, err := f.forge.GetRepository(ctx, id.Owner, id.Name)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return kept, err
			}
			f.logger.Warn("Dropping repository, details unavailable", "repo", id.String(), "error", err)
			continue
		}
		if p.Accepts(*rec) {
			kept = append(kept, u)
		}
	}
	return kept, nil
}

// ResultFileName is the hex SHA3-224 digest of query with a .csv suffix.
func ResultFileName(query string) string {
	sum := sha3.Sum224([]byte(query))
	return hex.EncodeToString(sum[:]) + ".csv"
}

// SaveCSV writes urls under dir to the file named by ResultFileName(query)
// and returns its path.
func (f *Finder) SaveCSV(dir, query string, urls []string) (string, error) {
	path := filepath.Join(dir, ResultFileName(query))
	file, err := os.Create(path)
	if err != nil {
		return "", err
	}
	defer file.Close()

	w := csv.NewWriter(file)
	if err := w.Write([]string{"URL"}); err != nil {
		return "", err
	}
	for _, u := range urls {
		if err := w.Write([]string{u}); err != nil {
			return "", err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return "", err
	}

	f.logger.Info("Saved search results", "path", path, "unique_repositories", len(urls))
	return path, file.Close()
}

// SaveList writes urls as a repository list the sync binary can load.
func (f *Finder) SaveList(path string, urls []string) error {
	if err := repolist.Write(path, urls); err != nil {
		return err
	}
	f.logger.Info("Saved repository list", "path", path, "repositories", len(urls))
	return nil
}
