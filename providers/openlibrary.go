package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/pagebound/backend/models"
)

const (
	openLibraryBase   = "https://openlibrary.org"
	openLibraryCovers = "https://covers.openlibrary.org"
)

// olIDPattern matches Open Library identifiers like OL45804W or OL7353617M.
var olIDPattern = regexp.MustCompile(`^OL\d+[A-Z]$`)

// IsOpenLibraryID reports whether id looks like an Open Library identifier.
func IsOpenLibraryID(id string) bool {
	return olIDPattern.MatchString(id)
}

// OpenLibrary is the secondary catalog, a community-run open database. It has
// no sale data and its ratings are sparse, but it covers many editions the
// primary catalog misses.
type OpenLibrary struct {
	base   string
	covers string
	client *http.Client
}

func NewOpenLibrary(timeout time.Duration) *OpenLibrary {
	return &OpenLibrary{base: openLibraryBase, covers: openLibraryCovers, client: newHTTPClient(timeout)}
}

// NewOpenLibraryWithBase is used by tests to point the client at a fake server.
func NewOpenLibraryWithBase(base string, client *http.Client) *OpenLibrary {
	return &OpenLibrary{base: base, covers: openLibraryCovers, client: client}
}

func (o *OpenLibrary) Name() models.APISource { return models.SourceOpenLibrary }

// olDoc is a single doc from search.json.
type olDoc struct {
	Key              string   `json:"key"` // "/works/OL45804W"
	Title            string   `json:"title"`
	AuthorName       []string `json:"author_name"`
	FirstPublishYear int      `json:"first_publish_year"`
	Publisher        []string `json:"publisher"`
	Subject          []string `json:"subject"`
	ISBN             []string `json:"isbn"`
	CoverID          int      `json:"cover_i"`
	NumberOfPages    int      `json:"number_of_pages_median"`
	RatingsAverage   float64  `json:"ratings_average"`
	RatingsCount     int      `json:"ratings_count"`
}

type olSearchResp struct {
	NumFound int     `json:"numFound"`
	Docs     []olDoc `json:"docs"`
}

func (o *OpenLibrary) SearchByTitle(ctx context.Context, query string, page, pageSize int) (*SearchResult, error) {
	q := url.Values{}
	q.Set("title", query)
	q.Set("page", strconv.Itoa(page+1)) // search.json pages are one-based
	q.Set("limit", strconv.Itoa(pageSize))
	var data olSearchResp
	if err := o.getJSON(ctx, o.base+"/search.json?"+q.Encode(), &data); err != nil {
		return nil, err
	}
	out := &SearchResult{Total: data.NumFound}
	for _, doc := range data.Docs {
		if rec := o.normalize(doc); rec != nil {
			out.Records = append(out.Records, *rec)
		}
	}
	return out, nil
}

// GetByIdentifier resolves an Open Library work id via a keyed search so the
// result carries author names, which the raw works endpoint only references.
func (o *OpenLibrary) GetByIdentifier(ctx context.Context, id string) (*Record, error) {
	if !IsOpenLibraryID(id) {
		return nil, ErrNotFound
	}
	q := url.Values{}
	q.Set("q", "key:/works/"+id)
	q.Set("limit", "1")
	var data olSearchResp
	if err := o.getJSON(ctx, o.base+"/search.json?"+q.Encode(), &data); err != nil {
		return nil, err
	}
	if len(data.Docs) == 0 {
		return nil, ErrNotFound
	}
	rec := o.normalize(data.Docs[0])
	if rec == nil {
		return nil, ErrNotFound
	}
	return rec, nil
}

func (o *OpenLibrary) getJSON(ctx context.Context, u string, dst any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}
	resp, err := o.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusNotFound {
		return ErrNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("open library returned %d", resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(dst)
}

func (o *OpenLibrary) normalize(doc olDoc) *Record {
	id := strings.TrimPrefix(doc.Key, "/works/")
	if id == "" || strings.TrimSpace(doc.Title) == "" {
		return nil
	}
	rec := &Record{
		Source:     models.SourceOpenLibrary,
		ProviderID: id,
		VolumeInfo: models.VolumeInfo{
			Title:         doc.Title,
			Authors:       doc.AuthorName,
			Categories:    doc.Subject,
			PageCount:     doc.NumberOfPages,
			AverageRating: doc.RatingsAverage,
			RatingsCount:  doc.RatingsCount,
		},
	}
	if doc.FirstPublishYear > 0 {
		rec.VolumeInfo.PublishedDate = strconv.Itoa(doc.FirstPublishYear)
	}
	if len(doc.Publisher) > 0 {
		rec.VolumeInfo.Publisher = doc.Publisher[0]
	}
	for _, isbn := range doc.ISBN {
		switch len(isbn) {
		case 10:
			if rec.ISBN10 == "" {
				rec.ISBN10 = isbn
			}
		case 13:
			if rec.ISBN13 == "" {
				rec.ISBN13 = isbn
			}
		}
	}
	if doc.CoverID > 0 {
		rec.VolumeInfo.ImageLinks = &models.ImageLinks{
			Thumbnail: o.coverURL(doc.CoverID, "M"),
			Large:     o.coverURL(doc.CoverID, "L"),
		}
	}
	return rec
}

// coverURL returns a direct cover image URL. Size: S, M or L. No captcha,
// unlike the primary catalog's image links.
func (o *OpenLibrary) coverURL(coverID int, size string) string {
	return o.covers + "/b/id/" + strconv.Itoa(coverID) + "-" + size + ".jpg"
}
