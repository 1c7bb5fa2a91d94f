// internal/notion/gateway.go
package notion

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"time"

	"github.com/jomei/notionapi"

	custom_errors "repo-notion-sync/internal/errors"
	"repo-notion-sync/internal/model"
)

// Property names of the repository database.
const (
	PropName        = "Name"
	PropDescription = "Description"
	PropLanguage    = "Language"
	PropURL         = "URL"
	PropStars       = "Stars"
	PropForks       = "Forks"
	PropLastUpdated = "Last Updated"
	PropLastScraped = "Last Scraped"
)

// Notion rejects rich text objects longer than this.
const maxRichTextLength = 2000

// queryPageSize is the largest page a database query returns.
const queryPageSize = 100

// The subsets of notionapi services the gateway uses.
type searchService interface {
	Do(ctx context.Context, request *notionapi.SearchRequest) (*notionapi.SearchResponse, error)
}

type databaseService interface {
	Create(ctx context.Context, request *notionapi.DatabaseCreateRequest) (*notionapi.Database, error)
	Query(ctx context.Context, id notionapi.DatabaseID, request *notionapi.DatabaseQueryRequest) (*notionapi.DatabaseQueryResponse, error)
	Update(ctx context.Context, id notionapi.DatabaseID, request *notionapi.DatabaseUpdateRequest) (*notionapi.Database, error)
}

type pageService interface {
	Create(ctx context.Context, request *notionapi.PageCreateRequest) (*notionapi.Page, error)
	Update(ctx context.Context, id notionapi.PageID, request *notionapi.PageUpdateRequest) (*notionapi.Page, error)
}

// Database is a Notion database visible to the integration.
type Database struct {
	ID    string
	Title string
}

// Gateway wraps the Notion calls the sync needs. Every error it returns is
// an *ErrRemoteAPI naming the failed operation.
type Gateway struct {
	search    searchService
	databases databaseService
	pages     pageService
	logger    *slog.Logger
}

// NewGateway creates a Gateway authenticated with an integration token.
func NewGateway(token string, logger *slog.Logger) *Gateway {
	client := notionapi.NewClient(notionapi.Token(token))
	return &Gateway{
		search:    client.Search,
		databases: client.Database,
		pages:     client.Page,
		logger:    logger,
	}
}

// FindDatabases lists every database shared with the integration.
func (g *Gateway) FindDatabases(ctx context.Context) ([]Database, error) {
	var (
		found  []Database
		cursor notionapi.Cursor
	)
	for {
		resp, err := g.search.Do(ctx, &notionapi.SearchRequest{
			Filter:      notionapi.SearchFilter{Property: "object", Value: "database"},
			StartCursor: cursor,
		})
		if err != nil {
			return nil, &custom_errors.ErrRemoteAPI{Op: "search databases", Err: err}
		}
		for _, obj := range resp.Results {
			db, ok := obj.(*notionapi.Database)
			if !ok {
				continue
			}
			found = append(found, Database{ID: db.ID.String(), Title: plainText(db.Title)})
		}
		if !resp.HasMore || resp.NextCursor == "" {
			return found, nil
		}
		cursor = resp.NextCursor
	}
}

// CreateDatabase creates a database under a parent page with the full
// repository schema and returns its ID.
func (g *Gateway) CreateDatabase(ctx context.Context, parentPageID, name string) (string, error) {
	db, err := g.databases.Create(ctx, &notionapi.DatabaseCreateRequest{
		Parent: notionapi.Parent{
			Type:   notionapi.ParentTypePageID,
			PageID: notionapi.PageID(parentPageID),
		},
		Title:      richText(name),
		Properties: schema(),
	})
	if err != nil {
		return "", &custom_errors.ErrRemoteAPI{Op: "create database", Err: err}
	}
	g.logger.Info("Created Notion database", "name", name, "database_id", db.ID.String())
	return db.ID.String(), nil
}

// UpdateSchema declares every repository property on the database. Notion
// merges the declaration with what exists, so repeated calls are safe and
// no property is ever removed.
func (g *Gateway) UpdateSchema(ctx context.Context, databaseID string) error {
	_, err := g.databases.Update(ctx, notionapi.DatabaseID(databaseID), &notionapi.DatabaseUpdateRequest{
		Properties: schema(),
	})
	if err != nil {
		return &custom_errors.ErrRemoteAPI{Op: "update schema", Err: err}
	}
	g.logger.Debug("Database schema updated", "database_id", databaseID)
	return nil
}

// FindPageByURL returns the ID of the first page whose URL property equals
// url. The query filter cannot target url properties, so it pages through
// the database and compares locally.
func (g *Gateway) FindPageByURL(ctx context.Context, databaseID, url string) (string, bool, error) {
	var cursor notionapi.Cursor
	for {
		resp, err := g.databases.Query(ctx, notionapi.DatabaseID(databaseID), &notionapi.DatabaseQueryRequest{
			StartCursor: cursor,
			PageSize:    queryPageSize,
		})
		if err != nil {
			return "", false, &custom_errors.ErrRemoteAPI{Op: "query by url", Err: err}
		}
		for _, page := range resp.Results {
			if pageURL(page) == url {
				return page.ID.String(), true, nil
			}
		}
		if !resp.HasMore || resp.NextCursor == "" {
			return "", false, nil
		}
		cursor = resp.NextCursor
	}
}

func pageURL(page notionapi.Page) string {
	if prop, ok := page.Properties[PropURL].(*notionapi.URLProperty); ok {
		return prop.URL
	}
	return ""
}

// CreatePage adds rec to the database, stamping Last Scraped with scrapedAt.
func (g *Gateway) CreatePage(ctx context.Context, databaseID string, rec model.Repository, scrapedAt time.Time) (string, error) {
	page, err := g.pages.Create(ctx, &notionapi.PageCreateRequest{
		Parent: notionapi.Parent{
			Type:       notionapi.ParentTypeDatabaseID,
			DatabaseID: notionapi.DatabaseID(databaseID),
		},
		Properties: properties(rec, scrapedAt),
	})
	if err != nil {
		return "", &custom_errors.ErrRemoteAPI{Op: "create page", Err: err}
	}
	return page.ID.String(), nil
}

// UpdatePage overwrites every tracked property of an existing page.
func (g *Gateway) UpdatePage(ctx context.Context, pageID string, rec model.Repository, scrapedAt time.Time) error {
	_, err := g.pages.Update(ctx, notionapi.PageID(pageID), &notionapi.PageUpdateRequest{
		Properties: properties(rec, scrapedAt),
	})
	if err != nil {
		return &custom_errors.ErrRemoteAPI{Op: "update page", Err: err}
	}
	return nil
}

func schema() notionapi.PropertyConfigs {
	return notionapi.PropertyConfigs{
		PropName:        &notionapi.TitlePropertyConfig{Type: notionapi.PropertyConfigTypeTitle},
		PropDescription: &notionapi.RichTextPropertyConfig{Type: notionapi.PropertyConfigTypeRichText},
		PropLanguage: &notionapi.SelectPropertyConfig{
			Type:   notionapi.PropertyConfigTypeSelect,
			Select: notionapi.Select{Options: []notionapi.Option{}},
		},
		PropURL: &notionapi.URLPropertyConfig{Type: notionapi.PropertyConfigTypeURL},
		PropStars: &notionapi.NumberPropertyConfig{
			Type:   notionapi.PropertyConfigTypeNumber,
			Number: notionapi.NumberFormat{Format: notionapi.FormatNumber},
		},
		PropForks: &notionapi.NumberPropertyConfig{
			Type:   notionapi.PropertyConfigTypeNumber,
			Number: notionapi.NumberFormat{Format: notionapi.FormatNumber},
		},
		PropLastUpdated: &notionapi.DatePropertyConfig{Type: notionapi.PropertyConfigTypeDate},
		PropLastScraped: &notionapi.DatePropertyConfig{Type: notionapi.PropertyConfigTypeDate},
	}
}

// clearedProperty writes a property as null, which empties it. Notion
// refuses a select option without a name, so this is how a select is cleared.
type clearedProperty struct {
	typ notionapi.PropertyType
}

func (p clearedProperty) GetID() string                   { return "" }
func (p clearedProperty) GetType() notionapi.PropertyType { return p.typ }

func (p clearedProperty) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]any{string(p.typ): nil})
}

// properties renders rec as page properties. Every tracked property is
// present, so an update overwrites all of them; an empty language or a zero
// last-updated time clears the stored value.
func properties(rec model.Repository, scrapedAt time.Time) notionapi.Properties {
	props := notionapi.Properties{
		PropName: &notionapi.TitleProperty{
			Type:  notionapi.PropertyTypeTitle,
			Title: richText(rec.Name),
		},
		PropDescription: &notionapi.RichTextProperty{
			Type:     notionapi.PropertyTypeRichText,
			RichText: richText(truncate(rec.Description, maxRichTextLength)),
		},
		PropURL: &notionapi.URLProperty{
			Type: notionapi.PropertyTypeURL,
			URL:  rec.URL,
		},
		PropStars: &notionapi.NumberProperty{
			Type:   notionapi.PropertyTypeNumber,
			Number: float64(rec.Stars),
		},
		PropForks: &notionapi.NumberProperty{
			Type:   notionapi.PropertyTypeNumber,
			Number: float64(rec.Forks),
		},
		PropLastScraped: &notionapi.DateProperty{
			Type: notionapi.PropertyTypeDate,
			Date: dateObject(scrapedAt),
		},
	}
	if rec.Language != "" {
		props[PropLanguage] = &notionapi.SelectProperty{
			Type:   notionapi.PropertyTypeSelect,
			Select: notionapi.Option{Name: rec.Language},
		}
	} else {
		props[PropLanguage] = clearedProperty{typ: notionapi.PropertyTypeSelect}
	}
	if !rec.LastUpdated.IsZero() {
		props[PropLastUpdated] = &notionapi.DateProperty{
			Type: notionapi.PropertyTypeDate,
			Date: dateObject(rec.LastUpdated),
		}
	} else {
		props[PropLastUpdated] = clearedProperty{typ: notionapi.PropertyTypeDate}
	}
	return props
}

func richText(s string) []notionapi.RichText {
	if s == "" {
		return []notionapi.RichText{}
	}
	return []notionapi.RichText{{
		Type: notionapi.ObjectTypeText,
		Text: &notionapi.Text{Content: s},
	}}
}

func plainText(rt []notionapi.RichText) string {
	var b strings.Builder
	for _, t := range rt {
		switch {
		case t.PlainText != "":
			b.WriteString(t.PlainText)
		case t.Text != nil:
			b.WriteString(t.Text.Content)
		}
	}
	return b.String()
}

func dateObject(t time.Time) *notionapi.DateObject {
	d := notionapi.Date(t.UTC())
	return &notionapi.DateObject{Start: &d}
}

// truncate cuts s to at most n runes.
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
