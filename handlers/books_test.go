package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/pagebound/backend/models"
	"github.com/pagebound/backend/providers"
	"github.com/pagebound/backend/service"
	"github.com/pagebound/backend/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type stubStore struct {
	saved []models.Book
	byID  map[string]*models.Book
}

func (s *stubStore) FindByID(ctx context.Context, identifier string) (*models.Book, error) {
	if b, ok := s.byID[identifier]; ok {
		return b, nil
	}
	return nil, store.ErrNotFound
}

func (s *stubStore) FindByText(ctx context.Context, query string, limit, offset int64) ([]store.ScoredBook, error) {
	out := make([]store.ScoredBook, 0, len(s.saved))
	for _, b := range s.saved {
		out = append(out, store.ScoredBook{Book: b, Score: 1})
		if int64(len(out)) == limit {
			break
		}
	}
	return out, nil
}

func (s *stubStore) FindFuzzyCandidates(ctx context.Context, query string, words []string, limit int64) ([]models.Book, error) {
	return nil, nil
}

func (s *stubStore) UpsertFromProvider(ctx context.Context, rec providers.Record) (*models.Book, error) {
	return &models.Book{ID: primitive.NewObjectID(), VolumeInfo: rec.VolumeInfo, APISource: rec.Source}, nil
}

func (s *stubStore) UpdateFromRefresh(ctx context.Context, id primitive.ObjectID, rec providers.Record) error {
	return nil
}

func (s *stubStore) TouchAccess(ctx context.Context, id primitive.ObjectID) error { return nil }

type stubProvider struct {
	name      models.APISource
	searchErr error
	records   []providers.Record
}

func (p *stubProvider) Name() models.APISource { return p.name }

func (p *stubProvider) SearchByTitle(ctx context.Context, query string, page, pageSize int) (*providers.SearchResult, error) {
	if p.searchErr != nil {
		return nil, p.searchErr
	}
	return &providers.SearchResult{Records: p.records, Total: len(p.records)}, nil
}

func (p *stubProvider) GetByIdentifier(ctx context.Context, id string) (*providers.Record, error) {
	return nil, providers.ErrNotFound
}

func newTestRouter(st *stubStore, chain ...providers.Client) http.Handler {
	policy := service.StalenessPolicy{
		SearchRefreshAfter: 7 * 24 * time.Hour,
		RecordRefreshAfter: 24 * time.Hour,
	}
	h := &BooksHandler{
		Search:   &service.Search{Store: st, Chain: chain, Policy: policy, Log: zap.NewNop()},
		Resolver: &service.Resolver{Store: st, Chain: chain, Policy: policy, Log: zap.NewNop()},
		Store:    st,
		Log:      zap.NewNop(),
	}
	r := chi.NewRouter()
	r.Get("/books/search", h.SearchBooks)
	r.Get("/books/{id}", h.GetBook)
	r.Get("/books/{id}/cover", h.Cover)
	return r
}

func TestSearchBooksMissingQuery(t *testing.T) {
	router := newTestRouter(&stubStore{})
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/books/search", nil))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "error")
}

func TestSearchBooksClampsMaxResults(t *testing.T) {
	st := &stubStore{}
	for i := 0; i < 50; i++ {
		st.saved = append(st.saved, models.Book{
			ID:          primitive.NewObjectID(),
			VolumeInfo:  models.VolumeInfo{Title: fmt.Sprintf("Book %02d", i)},
			APISource:   models.SourceGoogle,
			LastUpdated: time.Now().UTC(),
		})
	}
	router := newTestRouter(st)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/books/search?q=book&maxResults=1000", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Kind       string `json:"kind"`
		TotalItems int    `json:"totalItems"`
		Items      []struct {
			ID        string `json:"id"`
			FromCache bool   `json:"fromCache"`
		} `json:"items"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "books#volumes", resp.Kind)
	assert.Len(t, resp.Items, 40, "maxResults is clamped to 40")
	assert.True(t, resp.Items[0].FromCache)
}

func TestSearchBooksNoMatchesIsOKWithEmptyItems(t *testing.T) {
	google := &stubProvider{name: models.SourceGoogle, searchErr: errors.New("unreachable")}
	openlib := &stubProvider{name: models.SourceOpenLibrary, searchErr: errors.New("unreachable")}
	router := newTestRouter(&stubStore{}, google, openlib)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/books/search?q=nothing", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		TotalItems int               `json:"totalItems"`
		Items      []json.RawMessage `json:"items"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 0, resp.TotalItems)
	assert.NotNil(t, resp.Items)
	assert.Empty(t, resp.Items)
}

func TestGetBookFromCache(t *testing.T) {
	book := &models.Book{
		ID:            primitive.NewObjectID(),
		GoogleBooksID: "g1",
		APISource:     models.SourceGoogle,
		VolumeInfo:    models.VolumeInfo{Title: "Dune"},
		LastUpdated:   time.Now().UTC(),
	}
	st := &stubStore{byID: map[string]*models.Book{book.ID.Hex(): book}}
	router := newTestRouter(st)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/books/"+book.ID.Hex(), nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		ID         string `json:"id"`
		APISource  string `json:"apiSource"`
		FromCache  bool   `json:"fromCache"`
		VolumeInfo struct {
			Title string `json:"title"`
		} `json:"volumeInfo"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, book.ID.Hex(), resp.ID)
	assert.Equal(t, "google", resp.APISource)
	assert.Equal(t, "Dune", resp.VolumeInfo.Title)
	assert.True(t, resp.FromCache)
}

func TestGetBookNotFound(t *testing.T) {
	router := newTestRouter(&stubStore{}, &stubProvider{name: models.SourceGoogle})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/books/9780747532699", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCoverWithoutMirrorConfigured(t *testing.T) {
	router := newTestRouter(&stubStore{})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/books/507f1f77bcf86cd799439011/cover", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
