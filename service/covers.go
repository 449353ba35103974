package service

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/pagebound/backend/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// CoverStore is the one store operation cover mirroring needs.
type CoverStore interface {
	SetCoverS3Key(ctx context.Context, id primitive.ObjectID, key string) error
}

// CoverMirror copies a record's thumbnail into S3 the first time the record
// is cached, so the app keeps serving covers after the provider URL dies.
// Entirely optional: a nil mirror turns the feature off.
type CoverMirror struct {
	s3     *S3Service
	store  CoverStore
	client *http.Client
	log    *zap.Logger
}

func NewCoverMirror(s3 *S3Service, store CoverStore, log *zap.Logger) *CoverMirror {
	return &CoverMirror{
		s3:     s3,
		store:  store,
		client: &http.Client{Timeout: 15 * time.Second},
		log:    log,
	}
}

// Schedule queues a mirror task for the book's thumbnail. No-op when there is
// nothing to mirror or the cover is already in the bucket.
func (m *CoverMirror) Schedule(r *Refresher, book models.Book) {
	if m == nil || r == nil || book.ID.IsZero() || book.CoverS3Key != "" {
		return
	}
	url := thumbnailURL(book)
	if url == "" {
		return
	}
	id := book.ID
	r.Submit("cover", func(ctx context.Context) error {
		return m.mirror(ctx, id, url)
	})
}

func (m *CoverMirror) mirror(ctx context.Context, id primitive.ObjectID, url string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	resp, err := m.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("cover fetch returned %d", resp.StatusCode)
	}
	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "image/jpeg"
	}
	key := "covers/" + id.Hex() + ".jpg"
	if err := m.s3.Put(ctx, key, resp.Body, contentType); err != nil {
		return err
	}
	return m.store.SetCoverS3Key(ctx, id, key)
}

func thumbnailURL(book models.Book) string {
	links := book.VolumeInfo.ImageLinks
	if links == nil {
		return ""
	}
	if links.Thumbnail != "" {
		return links.Thumbnail
	}
	return links.SmallThumbnail
}
