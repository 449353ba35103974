package service

import (
	"context"
	"sync"

	"github.com/pagebound/backend/models"
	"github.com/pagebound/backend/providers"
	"github.com/pagebound/backend/store"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// fakeStore is an in-memory Store. Provider upserts land in saved, so a
// second search over the same fake observes the warmed cache.
type fakeStore struct {
	mu sync.Mutex

	saved   []models.Book
	textErr error

	fuzzyResults []models.Book
	fuzzyErr     error

	byID    map[string]*models.Book
	findErr error

	upsertErr error

	upserts   []providers.Record
	refreshes []primitive.ObjectID
	touches   []primitive.ObjectID
}

func newFakeStore() *fakeStore {
	return &fakeStore{byID: make(map[string]*models.Book)}
}

func (f *fakeStore) FindByID(ctx context.Context, identifier string) (*models.Book, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.findErr != nil {
		return nil, f.findErr
	}
	if b, ok := f.byID[identifier]; ok {
		copied := *b
		return &copied, nil
	}
	return nil, store.ErrNotFound
}

func (f *fakeStore) FindByText(ctx context.Context, query string, limit, offset int64) ([]store.ScoredBook, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.textErr != nil {
		return nil, f.textErr
	}
	out := make([]store.ScoredBook, 0, len(f.saved))
	for _, b := range f.saved {
		out = append(out, store.ScoredBook{Book: b, Score: 1})
		if int64(len(out)) == limit {
			break
		}
	}
	return out, nil
}

func (f *fakeStore) FindFuzzyCandidates(ctx context.Context, query string, words []string, limit int64) ([]models.Book, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fuzzyErr != nil {
		return nil, f.fuzzyErr
	}
	return f.fuzzyResults, nil
}

func (f *fakeStore) UpsertFromProvider(ctx context.Context, rec providers.Record) (*models.Book, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.upserts = append(f.upserts, rec)
	if f.upsertErr != nil {
		return nil, f.upsertErr
	}
	// Idempotent by provider id: a repeat upsert updates in place.
	for i := range f.saved {
		if f.saved[i].APISource == rec.Source && f.saved[i].ProviderID() == rec.ProviderID {
			f.saved[i].VolumeInfo = rec.VolumeInfo
			f.saved[i].SaleInfo = rec.SaleInfo
			copied := f.saved[i]
			return &copied, nil
		}
	}
	book := models.Book{
		ID:         primitive.NewObjectID(),
		VolumeInfo: rec.VolumeInfo,
		SaleInfo:   rec.SaleInfo,
		APISource:  rec.Source,
		ISBN10:     rec.ISBN10,
		ISBN13:     rec.ISBN13,
	}
	switch rec.Source {
	case models.SourceGoogle:
		book.GoogleBooksID = rec.ProviderID
	case models.SourceOpenLibrary:
		book.OpenLibraryID = rec.ProviderID
	case models.SourceISBNDB:
		book.ISBNDBID = rec.ProviderID
	}
	f.saved = append(f.saved, book)
	copied := book
	return &copied, nil
}

func (f *fakeStore) UpdateFromRefresh(ctx context.Context, id primitive.ObjectID, rec providers.Record) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.refreshes = append(f.refreshes, id)
	return nil
}

func (f *fakeStore) TouchAccess(ctx context.Context, id primitive.ObjectID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.touches = append(f.touches, id)
	return nil
}

func (f *fakeStore) upsertCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.upserts)
}

func (f *fakeStore) refreshCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.refreshes)
}

func (f *fakeStore) touchCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.touches)
}

func (f *fakeStore) savedCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.saved)
}

// fakeProvider is a canned providers.Client.
type fakeProvider struct {
	mu sync.Mutex

	name models.APISource

	searchRecords []providers.Record
	searchTotal   int
	searchErr     error
	searchCalls   int

	getRecord *providers.Record
	getErr    error
	getCalls  int
}

func (f *fakeProvider) Name() models.APISource { return f.name }

func (f *fakeProvider) SearchByTitle(ctx context.Context, query string, page, pageSize int) (*providers.SearchResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.searchCalls++
	if f.searchErr != nil {
		return nil, f.searchErr
	}
	total := f.searchTotal
	if total == 0 {
		total = len(f.searchRecords)
	}
	return &providers.SearchResult{Records: f.searchRecords, Total: total}, nil
}

func (f *fakeProvider) GetByIdentifier(ctx context.Context, id string) (*providers.Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.getCalls++
	if f.getErr != nil {
		return nil, f.getErr
	}
	if f.getRecord == nil {
		return nil, providers.ErrNotFound
	}
	copied := *f.getRecord
	return &copied, nil
}

func (f *fakeProvider) searchCallCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.searchCalls
}

func (f *fakeProvider) getCallCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.getCalls
}

func googleRecord(id, title string) providers.Record {
	return providers.Record{
		Source:     models.SourceGoogle,
		ProviderID: id,
		VolumeInfo: models.VolumeInfo{Title: title},
	}
}
