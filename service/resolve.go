package service

import (
	"context"
	"errors"
	"regexp"
	"time"

	"github.com/pagebound/backend/models"
	"github.com/pagebound/backend/providers"
	"github.com/pagebound/backend/store"
	"github.com/pagebound/backend/utils"
	"go.uber.org/zap"
)

// ErrNotFound means neither the cache nor any reachable provider could
// resolve the identifier.
var ErrNotFound = errors.New("service: book not found")

// IdentifierKind classifies the shape of a lookup identifier.
type IdentifierKind int

const (
	// KindObjectID is the storage-native 24-hex primary key.
	KindObjectID IdentifierKind = iota
	// KindISBN is exactly 10 or 13 digits.
	KindISBN
	// KindOpenLibrary matches the secondary catalog's id scheme (OL45804W).
	KindOpenLibrary
	// KindUnknown gets a best-effort scan across the identifier columns.
	KindUnknown
)

var hex24Pattern = regexp.MustCompile(`^[0-9a-fA-F]{24}$`)

// ClassifyIdentifier picks the lookup strategy from the identifier's shape.
func ClassifyIdentifier(id string) IdentifierKind {
	switch {
	case hex24Pattern.MatchString(id):
		return KindObjectID
	case isAllDigits(id) && utils.IsValidISBN(id):
		return KindISBN
	case providers.IsOpenLibraryID(id):
		return KindOpenLibrary
	default:
		return KindUnknown
	}
}

func isAllDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// Resolver answers single-identifier lookups cache-first, consulting the
// provider whose id scheme the identifier matches on a miss.
type Resolver struct {
	Store     Store
	Chain     []providers.Client
	Policy    StalenessPolicy
	Refresher *Refresher
	Covers    *CoverMirror
	Log       *zap.Logger
}

// Resolve returns the book for any supported identifier kind, or ErrNotFound
// once both the cache and the matching providers are exhausted.
func (r *Resolver) Resolve(ctx context.Context, identifier string) (*Result, error) {
	kind := ClassifyIdentifier(identifier)

	book, err := r.Store.FindByID(ctx, identifier)
	if err == nil {
		if r.Refresher != nil {
			now := time.Now().UTC()
			if r.Policy.StaleForRecord(book.LastUpdated, now) {
				r.Refresher.RefreshBook(*book)
			}
			r.Refresher.TouchAccess(*book)
		}
		return &Result{Book: *book, FromCache: true}, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}

	for _, client := range r.clientsFor(kind) {
		rec, err := client.GetByIdentifier(ctx, identifier)
		if err != nil {
			if !errors.Is(err, providers.ErrNotFound) {
				r.Log.Warn("provider lookup failed",
					zap.String("provider", string(client.Name())),
					zap.String("identifier", identifier),
					zap.Error(err))
			}
			continue
		}
		stored, err := r.Store.UpsertFromProvider(ctx, *rec)
		if err != nil {
			r.Log.Error("cache write failed",
				zap.String("provider", string(rec.Source)),
				zap.String("providerId", rec.ProviderID),
				zap.Error(err))
			stored = transientBook(*rec)
		} else {
			r.Covers.Schedule(r.Refresher, *stored)
			if r.Refresher != nil {
				r.Refresher.TouchAccess(*stored)
			}
		}
		return &Result{Book: *stored, FromCache: false}, nil
	}
	return nil, ErrNotFound
}

// clientsFor returns the providers whose id scheme can serve the identifier,
// in chain priority order. A native key or an unrecognized shape stays local:
// no provider could answer for it.
func (r *Resolver) clientsFor(kind IdentifierKind) []providers.Client {
	var out []providers.Client
	for _, client := range r.Chain {
		switch kind {
		case KindISBN:
			// The primary catalog has the richest ISBN records; the
			// commercial ISBN database backs it up when configured.
			if client.Name() == models.SourceGoogle || client.Name() == models.SourceISBNDB {
				out = append(out, client)
			}
		case KindOpenLibrary:
			if client.Name() == models.SourceOpenLibrary {
				out = append(out, client)
			}
		}
	}
	return out
}
