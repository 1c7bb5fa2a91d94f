// internal/cache/csv.go
package cache

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strconv"
	"time"

	"repo-notion-sync/internal/model"
)

// Header is the first row of every cache file.
var Header = []string{"Name", "Description", "Language", "URL", "Stars", "Forks", "Last Updated", "Last Scraped"}

const urlColumn = 3

// timeLayouts are tried in order when reading timestamps; the last two
// accept files written by earlier tooling that omitted the zone.
var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05",
}

// CSVStore keeps the cache as a single CSV file. Every Upsert rewrites the
// file in full, which is fine for a few hundred repositories.
type CSVStore struct {
	path string
}

// NewCSVStore returns a store backed by the file at path. The file is not
// touched until the first call.
func NewCSVStore(path string) *CSVStore {
	return &CSVStore{path: path}
}

// Path returns the backing file.
func (s *CSVStore) Path() string { return s.path }

// Reset truncates the file and writes the header row only.
func (s *CSVStore) Reset() error {
	return s.writeAll(nil)
}

// Append adds one row to the end of the file without checking for duplicates.
func (s *CSVStore) Append(rec model.Repository) error {
	if _, err := os.Stat(s.path); errors.Is(err, fs.ErrNotExist) {
		return s.writeAll([]model.Repository{rec})
	}

	f, err := os.OpenFile(s.path, os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open cache %s: %w", s.path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(toRow(rec)); err != nil {
		return err
	}
	w.Flush()
	return w.Error()
}

// Upsert drops every row whose URL equals rec.URL, appends rec and rewrites the file.
func (s *CSVStore) Upsert(rec model.Repository) error {
	records, err := s.Load()
	if err != nil {
		return err
	}

	kept := records[:0]
	for _, r := range records {
		if r.URL != rec.URL {
			kept = append(kept, r)
		}
	}
	if len(kept) == len(records) {
		return s.Append(rec)
	}
	return s.writeAll(append(kept, rec))
}

// Load parses the whole file. A missing file yields an empty slice.
func (s *CSVStore) Load() ([]model.Repository, error) {
	f, err := os.Open(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return []model.Repository{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open cache %s: %w", s.path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = len(Header)

	records := []model.Repository{}
	line := 0
	for {
		row, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read cache %s: %w", s.path, err)
		}
		line++
		if line == 1 && row[0] == Header[0] && row[urlColumn] == Header[urlColumn] {
			continue
		}
		rec, err := fromRow(row)
		if err != nil {
			return nil, fmt.Errorf("read cache %s line %d: %w", s.path, line, err)
		}
		records = append(records, rec)
	}
	return records, nil
}

func (s *CSVStore) writeAll(records []model.Repository) error {
	f, err := os.Create(s.path)
	if err != nil {
		return fmt.Errorf("create cache %s: %w", s.path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(Header); err != nil {
		return err
	}
	for _, rec := range records {
		if err := w.Write(toRow(rec)); err != nil {
			return err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return err
	}
	return f.Close()
}

func toRow(r model.Repository) []string {
	return []string{
		r.Name,
		r.Description,
		r.Language,
		r.URL,
		strconv.Itoa(r.Stars),
		strconv.Itoa(r.Forks),
		formatTime(r.LastUpdated),
		formatTime(r.LastScraped),
	}
}

func fromRow(row []string) (model.Repository, error) {
	stars, err := strconv.Atoi(row[4])
	if err != nil {
		return model.Repository{}, fmt.Errorf("stars: %w", err)
	}
	forks, err := strconv.Atoi(row[5])
	if err != nil {
		return model.Repository{}, fmt.Errorf("forks: %w", err)
	}
	updated, err := parseTime(row[6])
	if err != nil {
		return model.Repository{}, fmt.Errorf("last updated: %w", err)
	}
	scraped, err := parseTime(row[7])
	if err != nil {
		return model.Repository{}, fmt.Errorf("last scraped: %w", err)
	}
	return model.Repository{
		Name:        row[0],
		Description: row[1],
		Language:    row[2],
		URL:         row[3],
		Stars:       stars,
		Forks:       forks,
		LastUpdated: updated,
		LastScraped: scraped,
	}, nil
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func parseTime(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	var err error
	for _, layout := range timeLayouts {
		var t time.Time
		if t, err = time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, err
}
