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
)

const isbndbBase = "https://api2.isbndb.com"

// ISBNDB is the tertiary catalog, a commercial ISBN database. It needs an API
// key; main only puts it in the chain when one is configured.
type ISBNDB struct {
	base   string
	apiKey string
	client *http.Client
}

func NewISBNDB(apiKey string, timeout time.Duration) *ISBNDB {
	return &ISBNDB{base: isbndbBase, apiKey: apiKey, client: newHTTPClient(timeout)}
}

// NewISBNDBWithBase is used by tests to point the client at a fake server.
func NewISBNDBWithBase(base, apiKey string, client *http.Client) *ISBNDB {
	return &ISBNDB{base: base, apiKey: apiKey, client: client}
}

func (i *ISBNDB) Name() models.APISource { return models.SourceISBNDB }

type isbndbBook struct {
	Title         string   `json:"title"`
	Authors       []string `json:"authors"`
	Publisher     string   `json:"publisher"`
	DatePublished string   `json:"date_published"`
	Synopsis      string   `json:"synopsis"`
	Subjects      []string `json:"subjects"`
	Pages         int      `json:"pages"`
	Image         string   `json:"image"`
	ISBN          string   `json:"isbn"`
	ISBN13        string   `json:"isbn13"`
}

type isbndbSearchResp struct {
	Total int          `json:"total"`
	Books []isbndbBook `json:"books"`
}

func (i *ISBNDB) SearchByTitle(ctx context.Context, query string, page, pageSize int) (*SearchResult, error) {
	q := url.Values{}
	q.Set("page", strconv.Itoa(page+1))
	q.Set("pageSize", strconv.Itoa(pageSize))
	var data isbndbSearchResp
	u := i.base + "/books/" + url.PathEscape(query) + "?" + q.Encode()
	if err := i.getJSON(ctx, u, &data); err != nil {
		return nil, err
	}
	out := &SearchResult{Total: data.Total}
	for _, book := range data.Books {
		if rec := i.normalize(book); rec != nil {
			out.Records = append(out.Records, *rec)
		}
	}
	return out, nil
}

func (i *ISBNDB) GetByIdentifier(ctx context.Context, id string) (*Record, error) {
	cleaned := utils.SanitizeISBN(id)
	if !utils.IsValidISBN(cleaned) {
		return nil, ErrNotFound
	}
	var data struct {
		Book isbndbBook `json:"book"`
	}
	if err := i.getJSON(ctx, i.base+"/book/"+url.PathEscape(cleaned), &data); err != nil {
		return nil, err
	}
	rec := i.normalize(data.Book)
	if rec == nil {
		return nil, ErrNotFound
	}
	return rec, nil
}

func (i *ISBNDB) getJSON(ctx context.Context, u string, dst any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", i.apiKey)
	resp, err := i.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusNotFound {
		return ErrNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("isbndb returned %d", resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(dst)
}

func (i *ISBNDB) normalize(book isbndbBook) *Record {
	if strings.TrimSpace(book.Title) == "" {
		return nil
	}
	providerID := book.ISBN13
	if providerID == "" {
		providerID = book.ISBN
	}
	if providerID == "" {
		return nil
	}
	rec := &Record{
		Source:     models.SourceISBNDB,
		ProviderID: providerID,
		ISBN10:     book.ISBN,
		ISBN13:     book.ISBN13,
		VolumeInfo: models.VolumeInfo{
			Title:         book.Title,
			Authors:       book.Authors,
			Description:   strings.TrimSpace(book.Synopsis),
			PublishedDate: book.DatePublished,
			Categories:    book.Subjects,
			Publisher:     book.Publisher,
			PageCount:     book.Pages,
		},
	}
	if book.Image != "" {
		rec.VolumeInfo.ImageLinks = &models.ImageLinks{Thumbnail: book.Image}
	}
	return rec
}
