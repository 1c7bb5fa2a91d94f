// internal/cache/store.go
package cache

import (
	"strings"
	"time"

	"repo-notion-sync/internal/model"
	"repo-notion-sync/internal/repolist"
)

// Store is the local memo of fetched repositories. URL is unique within a store.
type Store interface {
	// Reset discards every record, leaving an empty store.
	Reset() error
	// Upsert replaces the record sharing rec.URL, or adds rec if there is none.
	Upsert(rec model.Repository) error
	// Load returns all records in insertion order. A store that was never
	// written yields an empty slice.
	Load() ([]model.Repository, error)
}

// Snapshot is an in-memory copy of a store taken at one point in time.
type Snapshot struct {
	byRepo   map[string]model.Repository
	unplaced map[string][]model.Repository
}

// NewSnapshot indexes records by lowercased owner/name, taken from their
// URL. Records whose URL does not name a repository are kept by name. A
// later record for the same repository wins.
func NewSnapshot(records []model.Repository) *Snapshot {
	s := &Snapshot{
		byRepo:   make(map[string]model.Repository, len(records)),
		unplaced: make(map[string][]model.Repository),
	}
	for _, r := range records {
		id, err := repolist.ParseURL(r.URL)
		if err != nil {
			name := strings.ToLower(r.Name)
			s.unplaced[name] = append(s.unplaced[name], r)
			continue
		}
		s.byRepo[repoKey(id)] = r
	}
	return s
}

// Record returns the cached record for a repository. Records kept by name
// match only when exactly one carries that name.
func (s *Snapshot) Record(id repolist.Identifier) (model.Repository, bool) {
	if r, ok := s.byRepo[repoKey(id)]; ok {
		return r, true
	}
	if rs := s.unplaced[strings.ToLower(id.Name)]; len(rs) == 1 {
		return rs[0], true
	}
	return model.Repository{}, false
}

// LastScraped returns when a repository was last fetched, if it ever was.
func (s *Snapshot) LastScraped(id repolist.Identifier) (time.Time, bool) {
	r, ok := s.Record(id)
	if !ok || r.LastScraped.IsZero() {
		return time.Time{}, false
	}
	return r.LastScraped, true
}

// Len reports the number of records in the snapshot.
func (s *Snapshot) Len() int {
	n := len(s.byRepo)
	for _, rs := range s.unplaced {
		n += len(rs)
	}
	return n
}

func repoKey(id repolist.Identifier) string {
	return strings.ToLower(id.String())
}
