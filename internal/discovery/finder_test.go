// internal/discovery/finder_test.go
package discovery

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/sha3"

	custom_errors "repo-notion-sync/internal/errors"
	"repo-notion-sync/internal/model"
	"repo-notion-sync/internal/repolist"
)

// MockForge is a mock of the Forge interface.
type MockForge struct {
	mock.Mock
}

func (m *MockForge) SearchCode(ctx context.Context, query string, page int) ([]string, error) {
	args := m.Called(ctx, query, page)
	urls, _ := args.Get(0).([]string)
	return urls, args.Error(1)
}

func (m *MockForge) GetRepository(ctx context.Context, owner, name string) (*model.Repository, error) {
	args := m.Called(ctx, owner, name)
	rec, _ := args.Get(0).(*model.Repository)
	return rec, args.Error(1)
}

var (
	logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
	ctx    = context.Background()
)

func TestParams_SearchQuery(t *testing.T) {
	assert.Equal(t, "openai in:file", Params{Query: "openai"}.SearchQuery())
	assert.Equal(t,
		"openai,numpy in:file language:python",
		Params{Query: " openai,numpy ", Stars: 50, Forks: 10, LastCommit: "2023-01-01", Language: "python"}.SearchQuery(),
		"repository qualifiers are not sent to code search")
}

func TestParams_Accepts(t *testing.T) {
	p := Params{Stars: 50, Forks: 10, LastCommit: "2023-01-01"}
	base := model.Repository{Stars: 50, Forks: 10, LastUpdated: time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)}

	tests := []struct {
		name   string
		mutate func(r *model.Repository)
		want   bool
	}{
		{name: "exactly at every minimum", mutate: func(r *model.Repository) {}, want: true},
		{name: "too few stars", mutate: func(r *model.Repository) { r.Stars = 49 }, want: false},
		{name: "too few forks", mutate: func(r *model.Repository) { r.Forks = 9 }, want: false},
		{name: "pushed before the date", mutate: func(r *model.Repository) { r.LastUpdated = r.LastUpdated.Add(-time.Hour) }, want: false},
		{name: "never pushed", mutate: func(r *model.Repository) { r.LastUpdated = time.Time{} }, want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := base
			tt.mutate(&rec)
			assert.Equal(t, tt.want, p.Accepts(rec))
		})
	}

	assert.True(t, Params{}.Accepts(model.Repository{}), "zero filters accept everything")
}

func TestFinder_SearchFiltersRepositories(t *testing.T) {
	forge := new(MockForge)
	q := "openai in:file language:go"
	forge.On("SearchCode", ctx, q, 1).Return([]string{
		"https://github.com/a/popular",
		"https://github.com/a/tiny",
		"https://github.com/a/gone",
		"https://github.com/a/stale",
	}, nil).Once()
	forge.On("SearchCode", ctx, q, 2).Return([]string{}, nil).Once()
	pushed := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	forge.On("GetRepository", ctx, "a", "popular").Return(&model.Repository{Stars: 900, Forks: 80, LastUpdated: pushed}, nil).Once()
	forge.On("GetRepository", ctx, "a", "tiny").Return(&model.Repository{Stars: 3, Forks: 80, LastUpdated: pushed}, nil).Once()
	forge.On("GetRepository", ctx, "a", "gone").Return(nil, &custom_errors.ErrForgeFetchFailed{Repo: "a/gone", Message: "Not Found"}).Once()
	forge.On("GetRepository", ctx, "a", "stale").Return(&model.Repository{Stars: 900, Forks: 80, LastUpdated: pushed.AddDate(-3, 0, 0)}, nil).Once()
	f := NewFinder(forge, logger)

	urls, err := f.Search(ctx, Params{Query: "openai", Stars: 50, Forks: 50, LastCommit: "2023-01-01", Language: "go", MaxPages: 5})

	require.NoError(t, err)
	assert.Equal(t, []string{"https://github.com/a/popular"}, urls)
	forge.AssertExpectations(t)
}

func TestFinder_SearchDeduplicatesAcrossPages(t *testing.T) {
	forge := new(MockForge)
	q := "openai in:file"
	forge.On("SearchCode", ctx, q, 1).Return([]string{"https://github.com/a/one", "https://github.com/a/two", "https://github.com/a/one"}, nil).Once()
	forge.On("SearchCode", ctx, q, 2).Return([]string{"https://github.com/a/two", "", "https://github.com/a/three"}, nil).Once()
	forge.On("SearchCode", ctx, q, 3).Return([]string{"https://github.com/a/three"}, nil).Once()
	f := NewFinder(forge, logger)

	urls, err := f.Search(ctx, Params{Query: "openai", MaxPages: 3})

	require.NoError(t, err)
	assert.Equal(t, []string{"https://github.com/a/one", "https://github.com/a/two", "https://github.com/a/three"}, urls)
	forge.AssertExpectations(t)
}

func TestFinder_SearchStopsOnTerminatedPagination(t *testing.T) {
	forge := new(MockForge)
	q := "openai in:file"
	forge.On("SearchCode", ctx, q, 1).Return([]string{"https://github.com/a/one"}, nil).Once()
	forge.On("SearchCode", ctx, q, 2).Return(nil, fmt.Errorf("%w: 422", custom_errors.ErrPaginationTerminated)).Once()
	f := NewFinder(forge, logger)

	urls, err := f.Search(ctx, Params{Query: "openai", MaxPages: 5})

	require.NoError(t, err)
	assert.Equal(t, []string{"https://github.com/a/one"}, urls)
	forge.AssertNotCalled(t, "SearchCode", ctx, q, 3)
}

func TestFinder_SearchStopsOnEmptyPage(t *testing.T) {
	forge := new(MockForge)
	q := "openai in:file"
	forge.On("SearchCode", ctx, q, 1).Return([]string{}, nil).Once()
	f := NewFinder(forge, logger)

	urls, err := f.Search(ctx, Params{Query: "openai", MaxPages: 5})

	require.NoError(t, err)
	assert.Empty(t, urls)
	forge.AssertNumberOfCalls(t, "SearchCode", 1)
}

func TestFinder_SearchTransportError(t *testing.T) {
	forge := new(MockForge)
	forge.On("SearchCode", ctx, mock.Anything, 1).Return(nil, errors.New("connection refused")).Once()
	f := NewFinder(forge, logger)

	_, err := f.Search(ctx, Params{Query: "openai", MaxPages: 2})

	assert.ErrorContains(t, err, "connection refused")
}

func TestResultFileName(t *testing.T) {
	sum := sha3.Sum224([]byte("openai"))
	assert.Equal(t, hex.EncodeToString(sum[:])+".csv", ResultFileName("openai"))
	assert.Len(t, ResultFileName("openai"), 56+len(".csv"))
	assert.NotEqual(t, ResultFileName("openai"), ResultFileName("numpy"))
}

func TestFinder_SaveCSVAndList(t *testing.T) {
	dir := t.TempDir()
	f := NewFinder(new(MockForge), logger)
	urls := []string{"https://github.com/a/one", "https://github.com/a/two"}

	path, err := f.SaveCSV(dir, "openai", urls)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, ResultFileName("openai")), path)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "URL\nhttps://github.com/a/one\nhttps://github.com/a/two\n", string(data))

	listPath := filepath.Join(dir, "lists.txt")
	require.NoError(t, f.SaveList(listPath, urls))
	ids, err := repolist.Load(listPath)
	require.NoError(t, err)
	assert.Equal(t, []repolist.Identifier{{Owner: "a", Name: "one"}, {Owner: "a", Name: "two"}}, ids)
}
