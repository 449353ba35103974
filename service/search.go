package service

import (
	"context"
	"time"

	"github.com/pagebound/backend/models"
	"github.com/pagebound/backend/providers"
	"go.uber.org/zap"
)

// Search answers free-text queries cache-first, falling through an ordered
// provider chain when the cache cannot satisfy the request on its own.
type Search struct {
	Store     Store
	Chain     []providers.Client
	Policy    StalenessPolicy
	Refresher *Refresher
	Covers    *CoverMirror
	Log       *zap.Logger
}

// Result is one served book plus provenance for the response payload.
type Result struct {
	Book      models.Book
	FromCache bool
}

// SearchResponse is what the handler renders.
type SearchResponse struct {
	TotalItems int
	Results    []Result
}

// Run executes the search state machine: cache check, sufficiency gate,
// provider fallback, serve. forceFresh skips the cache check entirely.
func (s *Search) Run(ctx context.Context, query string, maxResults, startIndex int, forceFresh bool) (*SearchResponse, error) {
	normalized := NormalizeQuery(query)

	var cached []Result
	if !forceFresh {
		cached = s.cacheCheck(ctx, normalized, maxResults, startIndex)
	}
	if len(cached) >= maxResults {
		resp := &SearchResponse{TotalItems: len(cached), Results: cached[:maxResults]}
		s.scheduleServeTasks(resp.Results)
		return resp, nil
	}

	// The cache is insufficient for this query, so the live chain takes over
	// outright. Cached partials are not merged in: mixing stale cache entries
	// with fresh provider entries gives inconsistent ordering.
	page := 0
	if maxResults > 0 {
		page = startIndex / maxResults
	}
	var lastErr error
	for _, client := range s.Chain {
		res, err := client.SearchByTitle(ctx, query, page, maxResults)
		if err != nil {
			lastErr = err
			s.Log.Warn("provider search failed",
				zap.String("provider", string(client.Name())),
				zap.String("query", query),
				zap.Error(err))
			continue
		}
		if len(res.Records) == 0 {
			continue
		}
		results := s.persist(ctx, res.Records)
		resp := &SearchResponse{TotalItems: res.Total, Results: results}
		s.scheduleServeTasks(resp.Results)
		return resp, nil
	}
	// A query no catalog can match is not an error condition; an exhausted
	// chain only surfaces when a provider actually failed.
	if lastErr != nil && len(s.Chain) > 0 {
		s.Log.Warn("all providers exhausted", zap.String("query", query), zap.Error(lastErr))
	}
	return &SearchResponse{TotalItems: 0, Results: []Result{}}, nil
}

// cacheCheck pulls up to twice the requested count from the indexed text
// search, topping up from the scored substring fallback when the index is
// missing or too strict.
func (s *Search) cacheCheck(ctx context.Context, normalized string, maxResults, startIndex int) []Result {
	limit := int64(2 * maxResults)
	seen := make(map[string]bool)
	var books []models.Book

	indexed, err := s.Store.FindByText(ctx, normalized, limit, int64(startIndex))
	if err != nil {
		// Index missing or broken: recover locally via the scored path.
		s.Log.Debug("indexed search unavailable", zap.String("query", normalized), zap.Error(err))
	}
	for _, sb := range indexed {
		books = append(books, sb.Book)
		seen[sb.Book.ID.Hex()] = true
	}

	if len(books) < maxResults {
		words := SignificantWords(normalized)
		if len(words) > 0 {
			candidates, err := s.Store.FindFuzzyCandidates(ctx, normalized, words, limit)
			if err != nil {
				s.Log.Warn("fuzzy candidate query failed", zap.String("query", normalized), zap.Error(err))
			} else {
				books = append(books, RankCandidates(candidates, normalized, words, seen)...)
			}
		}
	}

	if len(books) > maxResults {
		books = books[:maxResults]
	}
	results := make([]Result, 0, len(books))
	for _, b := range books {
		results = append(results, Result{Book: b, FromCache: true})
	}
	return results
}

// persist warms the cache with provider records. A failed write is logged and
// the record served from memory; the response never depends on the write.
func (s *Search) persist(ctx context.Context, recs []providers.Record) []Result {
	results := make([]Result, 0, len(recs))
	for _, rec := range recs {
		book, err := s.Store.UpsertFromProvider(ctx, rec)
		if err != nil {
			s.Log.Error("cache write failed",
				zap.String("provider", string(rec.Source)),
				zap.String("providerId", rec.ProviderID),
				zap.Error(err))
			book = transientBook(rec)
		} else {
			s.Covers.Schedule(s.Refresher, *book)
		}
		results = append(results, Result{Book: *book, FromCache: false})
	}
	return results
}

// transientBook shapes an unpersisted provider record for serving.
func transientBook(rec providers.Record) *models.Book {
	now := time.Now().UTC()
	book := &models.Book{
		VolumeInfo:  rec.VolumeInfo,
		SaleInfo:    rec.SaleInfo,
		APISource:   rec.Source,
		ISBN10:      rec.ISBN10,
		ISBN13:      rec.ISBN13,
		CachedAt:    now,
		LastUpdated: now,
	}
	switch rec.Source {
	case models.SourceGoogle:
		book.GoogleBooksID = rec.ProviderID
	case models.SourceOpenLibrary:
		book.OpenLibraryID = rec.ProviderID
	case models.SourceISBNDB:
		book.ISBNDBID = rec.ProviderID
	}
	return book
}

// scheduleServeTasks queues the detached per-record work for a response about
// to be served: a refresh for anything past the search staleness threshold and
// an access-stat touch for everything.
func (s *Search) scheduleServeTasks(results []Result) {
	if s.Refresher == nil {
		return
	}
	now := time.Now().UTC()
	for _, res := range results {
		if res.FromCache && s.Policy.StaleForSearch(res.Book.LastUpdated, now) {
			s.Refresher.RefreshBook(res.Book)
		}
		s.Refresher.TouchAccess(res.Book)
	}
}
