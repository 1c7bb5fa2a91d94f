// internal/cache/store_test.go
package cache

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"repo-notion-sync/internal/model"
	"repo-notion-sync/internal/repolist"
)

var scrapedAt = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func widget(stars int) model.Repository {
	return model.Repository{
		Name:        "widget",
		Description: "A widget, with \"quotes\"",
		Language:    "Go",
		URL:         "https://github.com/acme/widget",
		Stars:       stars,
		Forks:       2,
		LastUpdated: time.Date(2024, 4, 30, 8, 30, 0, 0, time.UTC),
		LastScraped: scrapedAt,
	}
}

func gadget() model.Repository {
	return model.Repository{
		Name:        "gadget",
		URL:         "https://github.com/acme/gadget",
		Stars:       1,
		LastScraped: scrapedAt,
	}
}

// storeFactories runs the same behavioural checks against every backend.
func storeFactories(t *testing.T) map[string]func() Store {
	return map[string]func() Store{
		"csv": func() Store {
			return NewCSVStore(filepath.Join(t.TempDir(), "repo_data.csv"))
		},
		"bolt": func() Store {
			s, err := NewBoltStore(filepath.Join(t.TempDir(), "repo_data.db"))
			require.NoError(t, err)
			t.Cleanup(func() { _ = s.Close() })
			return s
		},
	}
}

func TestStore_Contract(t *testing.T) {
	for name, newStore := range storeFactories(t) {
		t.Run(name, func(t *testing.T) {
			runStoreContract(t, newStore)
		})
	}
}

func runStoreContract(t *testing.T, newStore func() Store) {
	t.Run("never written store loads empty", func(t *testing.T) {
		s := newStore()

		records, err := s.Load()

		require.NoError(t, err)
		assert.Empty(t, records)
		assert.NotNil(t, records)
	})

	t.Run("upsert is idempotent", func(t *testing.T) {
		s := newStore()
		require.NoError(t, s.Reset())

		require.NoError(t, s.Upsert(widget(10)))
		once, err := s.Load()
		require.NoError(t, err)

		require.NoError(t, s.Upsert(widget(10)))
		twice, err := s.Load()
		require.NoError(t, err)

		assert.Len(t, twice, 1)
		assert.Equal(t, once, twice)
	})

	t.Run("upsert replaces by url and moves the row last", func(t *testing.T) {
		s := newStore()
		require.NoError(t, s.Reset())
		require.NoError(t, s.Upsert(widget(10)))
		require.NoError(t, s.Upsert(gadget()))

		require.NoError(t, s.Upsert(widget(42)))

		records, err := s.Load()
		require.NoError(t, err)
		require.Len(t, records, 2)
		assert.Equal(t, "gadget", records[0].Name)
		assert.Equal(t, widget(42), records[1])
	})

	t.Run("reset discards records", func(t *testing.T) {
		s := newStore()
		require.NoError(t, s.Upsert(widget(10)))

		require.NoError(t, s.Reset())

		records, err := s.Load()
		require.NoError(t, err)
		assert.Empty(t, records)
	})
}

func TestSnapshot(t *testing.T) {
	unscraped := gadget()
	unscraped.LastScraped = time.Time{}
	snap := NewSnapshot([]model.Repository{widget(10), unscraped})

	got, ok := snap.LastScraped(repolist.Identifier{Owner: "ACME", Name: "Widget"})
	assert.True(t, ok, "owner and name match case-insensitively")
	assert.Equal(t, scrapedAt, got)

	_, ok = snap.LastScraped(repolist.Identifier{Owner: "acme", Name: "gadget"})
	assert.False(t, ok, "zero timestamp counts as never scraped")

	_, ok = snap.LastScraped(repolist.Identifier{Owner: "acme", Name: "missing"})
	assert.False(t, ok)

	rec, ok := snap.Record(repolist.Identifier{Owner: "acme", Name: "gadget"})
	assert.True(t, ok)
	assert.Equal(t, "https://github.com/acme/gadget", rec.URL)
	assert.Equal(t, 2, snap.Len())
}

func TestSnapshot_SameNameUnderDifferentOwners(t *testing.T) {
	a := model.Repository{Name: "utils", URL: "https://github.com/a/utils", Stars: 1}
	b := model.Repository{Name: "utils", URL: "https://github.com/b/utils", Stars: 2}
	snap := NewSnapshot([]model.Repository{a, b})

	got, ok := snap.Record(repolist.Identifier{Owner: "a", Name: "utils"})
	require.True(t, ok)
	assert.Equal(t, a, got)

	got, ok = snap.Record(repolist.Identifier{Owner: "b", Name: "utils"})
	require.True(t, ok)
	assert.Equal(t, b, got)

	_, ok = snap.Record(repolist.Identifier{Owner: "c", Name: "utils"})
	assert.False(t, ok, "a different owner is a different repository")
	assert.Equal(t, 2, snap.Len())
}

func TestSnapshot_NameFallbackForUnplacedRecords(t *testing.T) {
	loose := model.Repository{Name: "loose", URL: "not a repository url"}
	twinA := model.Repository{Name: "twin"}
	twinB := model.Repository{Name: "twin", Stars: 5}
	snap := NewSnapshot([]model.Repository{loose, twinA, twinB})

	got, ok := snap.Record(repolist.Identifier{Owner: "anyone", Name: "Loose"})
	assert.True(t, ok)
	assert.Equal(t, loose, got)

	_, ok = snap.Record(repolist.Identifier{Owner: "anyone", Name: "twin"})
	assert.False(t, ok, "an ambiguous name matches nothing")
	assert.Equal(t, 3, snap.Len())
}
