package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/pagebound/backend/models"
	"github.com/pagebound/backend/utils"
	"go.mongodb.org/mongo-driver/bson"
)

const googleBooksBase = "https://www.googleapis.com/books/v1"

// GoogleBooks is the primary catalog: richest ISBN lookup and the only
// provider in the chain that reports sale data.
type GoogleBooks struct {
	base   string
	apiKey string
	client *http.Client
}

func NewGoogleBooks(apiKey string, timeout time.Duration) *GoogleBooks {
	return &GoogleBooks{base: googleBooksBase, apiKey: apiKey, client: newHTTPClient(timeout)}
}

// NewGoogleBooksWithBase is used by tests to point the client at a fake server.
func NewGoogleBooksWithBase(base string, client *http.Client) *GoogleBooks {
	return &GoogleBooks{base: base, client: client}
}

func (g *GoogleBooks) Name() models.APISource { return models.SourceGoogle }

// googleVolume is a single item from the volumes API.
type googleVolume struct {
	ID         string `json:"id"`
	VolumeInfo struct {
		Title         string   `json:"title"`
		Subtitle      string   `json:"subtitle"`
		Authors       []string `json:"authors"`
		Publisher     string   `json:"publisher"`
		PublishedDate string   `json:"publishedDate"`
		Description   string   `json:"description"`
		PageCount     int      `json:"pageCount"`
		Categories    []string `json:"categories"`
		AverageRating float64  `json:"averageRating"`
		RatingsCount  int      `json:"ratingsCount"`
		ImageLinks    struct {
			SmallThumbnail string `json:"smallThumbnail"`
			Thumbnail      string `json:"thumbnail"`
			Small          string `json:"small"`
			Medium         string `json:"medium"`
			Large          string `json:"large"`
			ExtraLarge     string `json:"extraLarge"`
		} `json:"imageLinks"`
		IndustryIdentifiers []struct {
			Type       string `json:"type"`
			Identifier string `json:"identifier"`
		} `json:"industryIdentifiers"`
	} `json:"volumeInfo"`
	SaleInfo bson.M `json:"saleInfo"`
}

type googleVolumesResp struct {
	TotalItems int            `json:"totalItems"`
	Items      []googleVolume `json:"items"`
}

func (g *GoogleBooks) SearchByTitle(ctx context.Context, query string, page, pageSize int) (*SearchResult, error) {
	q := url.Values{}
	q.Set("q", query)
	q.Set("startIndex", strconv.Itoa(page*pageSize))
	q.Set("maxResults", strconv.Itoa(pageSize))
	if g.apiKey != "" {
		q.Set("key", g.apiKey)
	}
	var data googleVolumesResp
	if err := g.getJSON(ctx, g.base+"/volumes?"+q.Encode(), &data); err != nil {
		return nil, err
	}
	out := &SearchResult{Total: data.TotalItems}
	for _, item := range data.Items {
		if rec := g.normalize(item); rec != nil {
			out.Records = append(out.Records, *rec)
		}
	}
	return out, nil
}

func (g *GoogleBooks) GetByIdentifier(ctx context.Context, id string) (*Record, error) {
	if cleaned := utils.SanitizeISBN(id); utils.IsValidISBN(cleaned) {
		return g.getByISBN(ctx, cleaned)
	}
	q := url.Values{}
	if g.apiKey != "" {
		q.Set("key", g.apiKey)
	}
	u := g.base + "/volumes/" + url.PathEscape(id)
	if enc := q.Encode(); enc != "" {
		u += "?" + enc
	}
	var item googleVolume
	if err := g.getJSON(ctx, u, &item); err != nil {
		return nil, err
	}
	rec := g.normalize(item)
	if rec == nil {
		return nil, ErrNotFound
	}
	return rec, nil
}

func (g *GoogleBooks) getByISBN(ctx context.Context, isbn string) (*Record, error) {
	q := url.Values{}
	q.Set("q", "isbn:"+isbn)
	if g.apiKey != "" {
		q.Set("key", g.apiKey)
	}
	var data googleVolumesResp
	if err := g.getJSON(ctx, g.base+"/volumes?"+q.Encode(), &data); err != nil {
		return nil, err
	}
	if data.TotalItems == 0 || len(data.Items) == 0 {
		return nil, ErrNotFound
	}
	rec := g.normalize(data.Items[0])
	if rec == nil {
		return nil, ErrNotFound
	}
	return rec, nil
}

func (g *GoogleBooks) getJSON(ctx context.Context, u string, dst any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}
	resp, err := g.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusNotFound {
		return ErrNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("google books returned %d", resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(dst)
}

// normalize maps a volume into the canonical record. Volumes without an id or
// title are dropped rather than cached half-empty.
func (g *GoogleBooks) normalize(item googleVolume) *Record {
	vi := item.VolumeInfo
	if item.ID == "" || strings.TrimSpace(vi.Title) == "" {
		return nil
	}
	rec := &Record{
		Source:     models.SourceGoogle,
		ProviderID: item.ID,
		SaleInfo:   item.SaleInfo,
		VolumeInfo: models.VolumeInfo{
			Title:         vi.Title,
			Authors:       vi.Authors,
			Description:   strings.TrimSpace(vi.Description),
			PublishedDate: vi.PublishedDate,
			Categories:    vi.Categories,
			Publisher:     vi.Publisher,
			PageCount:     vi.PageCount,
			AverageRating: vi.AverageRating,
			RatingsCount:  vi.RatingsCount,
		},
	}
	if vi.Subtitle != "" {
		rec.VolumeInfo.Title = vi.Title + ": " + vi.Subtitle
	}
	for _, id := range vi.IndustryIdentifiers {
		switch id.Type {
		case "ISBN_10":
			rec.ISBN10 = id.Identifier
		case "ISBN_13":
			rec.ISBN13 = id.Identifier
		}
	}
	links := models.ImageLinks{
		SmallThumbnail: vi.ImageLinks.SmallThumbnail,
		Thumbnail:      vi.ImageLinks.Thumbnail,
		Small:          vi.ImageLinks.Small,
		Medium:         vi.ImageLinks.Medium,
		Large:          vi.ImageLinks.Large,
		ExtraLarge:     vi.ImageLinks.ExtraLarge,
	}
	if links != (models.ImageLinks{}) {
		rec.VolumeInfo.ImageLinks = &links
	}
	return rec
}
