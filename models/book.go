package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// APISource identifies which external catalog a cached book originally came from.
type APISource string

const (
	SourceGoogle      APISource = "google"
	SourceOpenLibrary APISource = "openlibrary"
	SourceISBNDB      APISource = "isbndb"
)

// ImageLinks holds the cover image URLs a provider reported. All optional.
type ImageLinks struct {
	SmallThumbnail string `bson:"smallThumbnail,omitempty" json:"smallThumbnail,omitempty"`
	Thumbnail      string `bson:"thumbnail,omitempty" json:"thumbnail,omitempty"`
	Small          string `bson:"small,omitempty" json:"small,omitempty"`
	Medium         string `bson:"medium,omitempty" json:"medium,omitempty"`
	Large          string `bson:"large,omitempty" json:"large,omitempty"`
	ExtraLarge     string `bson:"extraLarge,omitempty" json:"extraLarge,omitempty"`
}

// VolumeInfo is the descriptive metadata for a book, normalized to one shape
// regardless of which provider supplied it.
type VolumeInfo struct {
	Title         string      `bson:"title" json:"title"`
	Authors       []string    `bson:"authors,omitempty" json:"authors,omitempty"`
	Description   string      `bson:"description,omitempty" json:"description,omitempty"`
	PublishedDate string      `bson:"publishedDate,omitempty" json:"publishedDate,omitempty"`
	Categories    []string    `bson:"categories,omitempty" json:"categories,omitempty"`
	Publisher     string      `bson:"publisher,omitempty" json:"publisher,omitempty"`
	PageCount     int         `bson:"pageCount,omitempty" json:"pageCount,omitempty"`
	AverageRating float64     `bson:"averageRating,omitempty" json:"averageRating,omitempty"`
	RatingsCount  int         `bson:"ratingsCount,omitempty" json:"ratingsCount,omitempty"`
	ImageLinks    *ImageLinks `bson:"imageLinks,omitempty" json:"imageLinks,omitempty"`
}

// Book is the canonical cached record. Each provider owns exactly one of the
// identifier fields; every non-empty identifier value is unique across the
// collection (enforced by sparse unique indexes).
type Book struct {
	ID            primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	GoogleBooksID string             `bson:"googleBooksId,omitempty" json:"googleBooksId,omitempty"`
	OpenLibraryID string             `bson:"openLibraryId,omitempty" json:"openLibraryId,omitempty"`
	ISBNDBID      string             `bson:"isbndbId,omitempty" json:"isbndbId,omitempty"`
	ISBN10        string             `bson:"isbn10,omitempty" json:"isbn10,omitempty"`
	ISBN13        string             `bson:"isbn13,omitempty" json:"isbn13,omitempty"`

	VolumeInfo VolumeInfo `bson:"volumeInfo" json:"volumeInfo"`
	// SaleInfo is passed through untouched from the provider that supplied it
	// (only Google Books reports sale data).
	SaleInfo bson.M `bson:"saleInfo,omitempty" json:"saleInfo,omitempty"`

	// APISource is set when the record is created and never overwritten by a
	// refresh from a different provider.
	APISource APISource `bson:"apiSource" json:"apiSource"`

	CachedAt     time.Time `bson:"cachedAt" json:"cachedAt"`
	LastUpdated  time.Time `bson:"lastUpdated" json:"lastUpdated"`
	LastAccessed time.Time `bson:"lastAccessed,omitempty" json:"lastAccessed,omitempty"`
	UsageCount   int64     `bson:"usageCount" json:"usageCount"`

	// CoverS3Key is set when the thumbnail has been mirrored into S3.
	CoverS3Key string `bson:"coverS3Key,omitempty" json:"-"`

	// Engagement aggregates, written by the social layer, never by this core.
	RatingAverage float64 `bson:"ratingAverage,omitempty" json:"ratingAverage,omitempty"`
	RatingsCount  int64   `bson:"ratingsCount,omitempty" json:"ratingsCount,omitempty"`
	TotalReads    int64   `bson:"totalReads,omitempty" json:"totalReads,omitempty"`
	TotalLikes    int64   `bson:"totalLikes,omitempty" json:"totalLikes,omitempty"`
	TotalToBeRead int64   `bson:"totalToBeRead,omitempty" json:"totalToBeRead,omitempty"`
}

// ProviderID returns the identifier owned by the record's originating provider,
// i.e. the key a background refresh should look the book up by.
func (b *Book) ProviderID() string {
	switch b.APISource {
	case SourceGoogle:
		return b.GoogleBooksID
	case SourceOpenLibrary:
		return b.OpenLibraryID
	case SourceISBNDB:
		return b.ISBNDBID
	}
	return ""
}
