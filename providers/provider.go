// Package providers contains one client per external book catalog. Each client
// normalizes its catalog's response into the canonical shape so the rest of
// the service never sees provider-specific JSON.
package providers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/pagebound/backend/models"
	"go.mongodb.org/mongo-driver/bson"
)

// ErrNotFound is returned when a catalog has no match for the identifier.
var ErrNotFound = errors.New("provider: no match")

// Record is a normalized provider response, ready to be upserted into the cache.
type Record struct {
	Source     models.APISource
	ProviderID string
	ISBN10     string
	ISBN13     string
	VolumeInfo models.VolumeInfo
	SaleInfo   bson.M
}

// SearchResult is a page of normalized records plus the catalog's total count.
type SearchResult struct {
	Records []Record
	Total   int
}

// Client is one external catalog in the fallback chain.
type Client interface {
	// Name returns the apiSource value records from this catalog carry.
	Name() models.APISource
	// SearchByTitle runs a free-text search. page is zero-based.
	SearchByTitle(ctx context.Context, query string, page, pageSize int) (*SearchResult, error)
	// GetByIdentifier looks up a single book by this catalog's own id or by
	// ISBN. Returns ErrNotFound when the catalog has no match.
	GetByIdentifier(ctx context.Context, id string) (*Record, error)
}

// newHTTPClient builds the client shared by the adapters. Slow or hung catalog
// responses must not hold up a request past the fallback deadline.
func newHTTPClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = 8 * time.Second
	}
	return &http.Client{Timeout: timeout}
}
