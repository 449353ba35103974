package service

import (
	"context"

	"github.com/pagebound/backend/models"
	"github.com/pagebound/backend/providers"
	"github.com/pagebound/backend/store"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Store is the slice of the cache store the services depend on. *store.DB
// satisfies it; tests substitute fakes.
type Store interface {
	FindByID(ctx context.Context, identifier string) (*models.Book, error)
	FindByText(ctx context.Context, query string, limit, offset int64) ([]store.ScoredBook, error)
	FindFuzzyCandidates(ctx context.Context, query string, words []string, limit int64) ([]models.Book, error)
	UpsertFromProvider(ctx context.Context, rec providers.Record) (*models.Book, error)
	UpdateFromRefresh(ctx context.Context, id primitive.ObjectID, rec providers.Record) error
	TouchAccess(ctx context.Context, id primitive.ObjectID) error
}
