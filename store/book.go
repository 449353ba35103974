package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/pagebound/backend/models"
	"github.com/pagebound/backend/providers"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var (
	// ErrNotFound means no record matched the identifier.
	ErrNotFound = errors.New("store: book not found")
	// ErrNoTextIndex means the $text query could not run because the text
	// index is missing; callers fall back to the scored substring path.
	ErrNoTextIndex = errors.New("store: no text index")
)

// ScoredBook is a book plus the text-index relevance score, when the indexed
// search path produced it.
type ScoredBook struct {
	models.Book `bson:",inline"`
	Score       float64 `bson:"score" json:"-"`
}

// FindByID resolves an identifier of any supported kind. A 24-hex string is
// tried as the native primary key first; anything else is matched against the
// identifier columns.
func (db *DB) FindByID(ctx context.Context, identifier string) (*models.Book, error) {
	if oid, err := primitive.ObjectIDFromHex(identifier); err == nil {
		var book models.Book
		err := db.Books().FindOne(ctx, bson.M{"_id": oid}).Decode(&book)
		if err == nil {
			return &book, nil
		}
		if !errors.Is(err, mongo.ErrNoDocuments) {
			return nil, err
		}
		// fall through to the identifier columns
	}
	var book models.Book
	err := db.Books().FindOne(ctx, byAnyIdentifier(identifier)).Decode(&book)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &book, nil
}

// FindByText runs the indexed full-text search, best match first. Returns
// ErrNoTextIndex when the index has not been built.
func (db *DB) FindByText(ctx context.Context, query string, limit, offset int64) ([]ScoredBook, error) {
	opts := options.Find().
		SetProjection(bson.M{"score": bson.M{"$meta": "textScore"}}).
		SetSort(bson.M{"score": bson.M{"$meta": "textScore"}}).
		SetLimit(limit).
		SetSkip(offset)
	cur, err := db.Books().Find(ctx, textSearch(query), opts)
	if err != nil {
		return nil, classifyTextErr(err)
	}
	defer cur.Close(ctx)
	var books []ScoredBook
	if err := cur.All(ctx, &books); err != nil {
		return nil, classifyTextErr(err)
	}
	return books, nil
}

// classifyTextErr maps the driver's missing-index error onto ErrNoTextIndex.
func classifyTextErr(err error) error {
	if strings.Contains(err.Error(), "text index required") {
		return fmt.Errorf("%w: %v", ErrNoTextIndex, err)
	}
	return err
}

// FindFuzzyCandidates returns the candidate set for scored fallback search:
// whole query in title or authors, or any significant word in the title.
func (db *DB) FindFuzzyCandidates(ctx context.Context, query string, words []string, limit int64) ([]models.Book, error) {
	cur, err := db.Books().Find(ctx, fuzzyCandidates(query, words), options.Find().SetLimit(limit))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	var books []models.Book
	if err := cur.All(ctx, &books); err != nil {
		return nil, err
	}
	return books, nil
}

// UpsertFromProvider creates or updates a record keyed by the identifier field
// owned by the record's source. Repeated upserts with the same identifier
// update in place; apiSource and cachedAt are written only on insert.
func (db *DB) UpsertFromProvider(ctx context.Context, rec providers.Record) (*models.Book, error) {
	field, ok := identifierFields[rec.Source]
	if !ok {
		return nil, fmt.Errorf("store: unknown provider source %q", rec.Source)
	}
	if rec.ProviderID == "" {
		return nil, errors.New("store: provider record has no identifier")
	}
	now := time.Now().UTC()
	set := bson.M{
		"volumeInfo":  rec.VolumeInfo,
		"lastUpdated": now,
	}
	if rec.SaleInfo != nil {
		set["saleInfo"] = rec.SaleInfo
	}
	if rec.ISBN10 != "" {
		set["isbn10"] = rec.ISBN10
	}
	if rec.ISBN13 != "" {
		set["isbn13"] = rec.ISBN13
	}
	update := bson.M{
		"$set": set,
		"$setOnInsert": bson.M{
			"apiSource":  rec.Source,
			"cachedAt":   now,
			"usageCount": int64(0),
		},
	}
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)
	var book models.Book
	err := db.Books().FindOneAndUpdate(ctx, byIdentifier(field, rec.ProviderID), update, opts).Decode(&book)
	if err != nil {
		return nil, err
	}
	return &book, nil
}

// UpdateFromRefresh replaces the refreshable fields of an existing record and
// bumps lastUpdated. Provenance and bookkeeping counters are left alone.
func (db *DB) UpdateFromRefresh(ctx context.Context, id primitive.ObjectID, rec providers.Record) error {
	set := bson.M{
		"volumeInfo":  rec.VolumeInfo,
		"lastUpdated": time.Now().UTC(),
	}
	if rec.SaleInfo != nil {
		set["saleInfo"] = rec.SaleInfo
	}
	_, err := db.Books().UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": set})
	return err
}

// TouchAccess bumps usageCount and lastAccessed. Targeted update, never a
// read-modify-write, so it cannot clobber a concurrent refresh.
func (db *DB) TouchAccess(ctx context.Context, id primitive.ObjectID) error {
	_, err := db.Books().UpdateOne(ctx, bson.M{"_id": id}, bson.M{
		"$inc": bson.M{"usageCount": 1},
		"$set": bson.M{"lastAccessed": time.Now().UTC()},
	})
	return err
}

// SetCoverS3Key records where the mirrored cover image lives.
func (db *DB) SetCoverS3Key(ctx context.Context, id primitive.ObjectID, key string) error {
	_, err := db.Books().UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{"coverS3Key": key}})
	return err
}
