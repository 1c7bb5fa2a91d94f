// internal/github/client_test.go
package github

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	custom_errors "repo-notion-sync/internal/errors"
)

// setupTestClient creates a httptest server and a client pointing to it.
func setupTestClient(t *testing.T, router http.Handler) *Client {
	t.Helper()
	server := httptest.NewServer(router)
	t.Cleanup(server.Close)

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
	client, err := NewClient("test-token", server.URL, logger)
	require.NoError(t, err)
	return client
}

func TestClient_GetRepository(t *testing.T) {
	t.Run("maps the repository payload", func(t *testing.T) {
		r := chi.NewRouter()
		r.Get("/repos/{owner}/{repo}", func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "acme", chi.URLParam(r, "owner"))
			assert.Equal(t, "widget", chi.URLParam(r, "repo"))
			assert.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))
			fmt.Fprintln(w, `{
				"name": "widget",
				"description": "A widget",
				"language": "Go",
				"html_url": "https://github.com/acme/widget",
				"stargazers_count": 10,
				"forks_count": 3,
				"pushed_at": "2024-03-01T10:00:00Z"
			}`)
		})
		client := setupTestClient(t, r)

		repo, err := client.GetRepository(context.Background(), "acme", "widget")

		require.NoError(t, err)
		assert.Equal(t, "widget", repo.Name)
		assert.Equal(t, "A widget", repo.Description)
		assert.Equal(t, "Go", repo.Language)
		assert.Equal(t, "https://github.com/acme/widget", repo.URL)
		assert.Equal(t, 10, repo.Stars)
		assert.Equal(t, 3, repo.Forks)
		assert.Equal(t, time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC), repo.LastUpdated.UTC())
		assert.True(t, repo.LastScraped.IsZero())
	})

	t.Run("null description and language map to empty strings", func(t *testing.T) {
		r := chi.NewRouter()
		r.Get("/repos/{owner}/{repo}", func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprintln(w, `{"name": "bare", "description": null, "language": null, "html_url": "https://github.com/acme/bare"}`)
		})
		client := setupTestClient(t, r)

		repo, err := client.GetRepository(context.Background(), "acme", "bare")

		require.NoError(t, err)
		assert.Empty(t, repo.Description)
		assert.Empty(t, repo.Language)
	})

	t.Run("reports the forge message on non-200", func(t *testing.T) {
		r := chi.NewRouter()
		r.Get("/repos/{owner}/{repo}", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
			fmt.Fprintln(w, `{"message": "Not Found"}`)
		})
		client := setupTestClient(t, r)

		_, err := client.GetRepository(context.Background(), "acme", "missing")

		var fetchErr *custom_errors.ErrForgeFetchFailed
		require.ErrorAs(t, err, &fetchErr)
		assert.Equal(t, "acme/missing", fetchErr.Repo)
		assert.Equal(t, "Not Found", fetchErr.Message)
	})

	t.Run("falls back to the status line when the body is empty", func(t *testing.T) {
		r := chi.NewRouter()
		r.Get("/repos/{owner}/{repo}", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		})
		client := setupTestClient(t, r)

		_, err := client.GetRepository(context.Background(), "acme", "widget")

		var fetchErr *custom_errors.ErrForgeFetchFailed
		require.ErrorAs(t, err, &fetchErr)
		assert.Contains(t, fetchErr.Message, "500")
	})

	t.Run("transport failure", func(t *testing.T) {
		server := httptest.NewServer(http.NotFoundHandler())
		url := server.URL
		server.Close()
		logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
		client, err := NewClient("", url, logger)
		require.NoError(t, err)

		_, err = client.GetRepository(context.Background(), "acme", "widget")

		var fetchErr *custom_errors.ErrForgeFetchFailed
		require.ErrorAs(t, err, &fetchErr)
		assert.Empty(t, fetchErr.Message)
		assert.Error(t, fetchErr.Err)
	})
}

func TestClient_SearchCode(t *testing.T) {
	t.Run("returns repository urls for the page", func(t *testing.T) {
		r := chi.NewRouter()
		r.Get("/search/code", func(w http.ResponseWriter, r *http.Request) {
			q := r.URL.Query()
			assert.Equal(t, "openai in:file", q.Get("q"))
			assert.Equal(t, "indexed", q.Get("sort"))
			assert.Equal(t, "desc", q.Get("order"))
			assert.Equal(t, "100", q.Get("per_page"))
			assert.Equal(t, "2", q.Get("page"))
			fmt.Fprintln(w, `{"total_count": 2, "items": [
				{"name": "a.py", "repository": {"html_url": "https://github.com/acme/widget"}},
				{"name": "b.py", "repository": {"html_url": "https://github.com/acme/widget"}}
			]}`)
		})
		client := setupTestClient(t, r)

		urls, err := client.SearchCode(context.Background(), "openai in:file", 2)

		require.NoError(t, err)
		assert.Equal(t, []string{"https://github.com/acme/widget", "https://github.com/acme/widget"}, urls)
	})

	t.Run("error response terminates pagination", func(t *testing.T) {
		r := chi.NewRouter()
		r.Get("/search/code", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnprocessableEntity)
			fmt.Fprintln(w, `{"message": "Only the first 1000 search results are available"}`)
		})
		client := setupTestClient(t, r)

		_, err := client.SearchCode(context.Background(), "openai in:file", 11)

		assert.ErrorIs(t, err, custom_errors.ErrPaginationTerminated)
	})
}
