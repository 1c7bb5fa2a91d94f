// internal/github/client.go
package github

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/google/go-github/v62/github"
	"golang.org/x/oauth2"

	custom_errors "repo-notion-sync/internal/errors"
	"repo-notion-sync/internal/model"
)

// searchPageSize is the maximum page size the code search endpoint allows.
const searchPageSize = 100

// Client is a wrapper around the go-github client.
type Client struct {
	gh     *github.Client
	logger *slog.Logger
}

// NewClient creates and configures a new Client instance.
// The provided token is used to create an authenticated http.Client.
// An empty baseURL keeps the public api.github.com endpoint.
func NewClient(token, baseURL string, logger *slog.Logger) (*Client, error) {
	ctx := context.Background()
	ts := oauth2.StaticTokenSource(
		&oauth2.Token{AccessToken: token},
	)
	tc := oauth2.NewClient(ctx, ts)

	gh := github.NewClient(tc)
	if baseURL != "" {
		if !strings.HasSuffix(baseURL, "/") {
			baseURL += "/"
		}
		u, err := url.Parse(baseURL)
		if err != nil {
			return nil, fmt.Errorf("parse GitHub API URL: %w", err)
		}
		gh.BaseURL = u
	}

	return &Client{
		gh:     gh,
		logger: logger,
	}, nil
}

// GetRepository fetches repository details and translates them to our internal model.
// Failures are returned as *ErrForgeFetchFailed so callers can skip the repository.
func (c *Client) GetRepository(ctx context.Context, owner, name string) (*model.Repository, error) {
	c.logger.Debug("Fetching repository", "owner", owner, "repo", name)

	repo, _, err := c.gh.Repositories.Get(ctx, owner, name)
	if err != nil {
		return nil, &custom_errors.ErrForgeFetchFailed{
			Repo:    owner + "/" + name,
			Message: forgeMessage(err),
			Err:     err,
		}
	}
	return toInternalRepository(repo), nil
}

// SearchCode fetches one page of code search results and returns the html
// URL of the repository behind each hit. Pages start at 1. An error response
// from the forge is reported as ErrPaginationTerminated.
func (c *Client) SearchCode(ctx context.Context, query string, page int) ([]string, error) {
	opts := &github.SearchOptions{
		Sort:  "indexed",
		Order: "desc",
		ListOptions: github.ListOptions{
			PerPage: searchPageSize,
			Page:    page,
		},
	}

	c.logger.Debug("Fetching code search page", "query", query, "page", page)

	result, _, err := c.gh.Search.Code(ctx, query, opts)
	if err != nil {
		if forgeMessage(err) != "" {
			return nil, fmt.Errorf("%w: page %d: %v", custom_errors.ErrPaginationTerminated, page, err)
		}
		return nil, err
	}

	urls := make([]string, 0, len(result.CodeResults))
	for _, hit := range result.CodeResults {
		urls = append(urls, hit.GetRepository().GetHTMLURL())
	}
	return urls, nil
}

// forgeMessage returns the message reported by the forge, or "" when err
// did not come from an HTTP response (transport failures, cancellation).
func forgeMessage(err error) string {
	var rateErr *github.RateLimitError
	if errors.As(err, &rateErr) {
		return rateErr.Message
	}
	var abuseErr *github.AbuseRateLimitError
	if errors.As(err, &abuseErr) {
		return abuseErr.Message
	}
	var ghErr *github.ErrorResponse
	if errors.As(err, &ghErr) {
		if ghErr.Message != "" {
			return ghErr.Message
		}
		if ghErr.Response != nil {
			return ghErr.Response.Status
		}
	}
	return ""
}

// toInternalRepository translates a github.Repository object to our internal model.Repository.
func toInternalRepository(r *github.Repository) *model.Repository {
	return &model.Repository{
		Name:        r.GetName(),
		Description: r.GetDescription(),
		Language:    r.GetLanguage(),
		URL:         r.GetHTMLURL(),
		Stars:       r.GetStargazersCount(),
		Forks:       r.GetForksCount(),
		LastUpdated: r.GetPushedAt().Time,
	}
}
