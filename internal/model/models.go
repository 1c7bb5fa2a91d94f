// internal/model/models.go
package model

import "time"

// Repository is the synchronized metadata of one tracked repository.
// URL is the natural key in both the local cache and the remote database.
type Repository struct {
	Name        string
	Description string
	Language    string
	URL         string
	Stars       int
	Forks       int
	LastUpdated time.Time
	// LastScraped is stamped locally when the record is fetched; the forge never supplies it.
	LastScraped time.Time
}
