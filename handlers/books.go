package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/pagebound/backend/middleware"
	"github.com/pagebound/backend/models"
	"github.com/pagebound/backend/service"
	"go.mongodb.org/mongo-driver/bson"
	"go.uber.org/zap"
)

const (
	defaultMaxResults = 10
	maxMaxResults     = 40
)

type BooksHandler struct {
	Search   *service.Search
	Resolver *service.Resolver
	Store    service.Store
	S3       *service.S3Service // nil disables the cover mirror route
	Log      *zap.Logger
}

type searchItem struct {
	ID         string            `json:"id"`
	VolumeInfo models.VolumeInfo `json:"volumeInfo"`
	SaleInfo   bson.M            `json:"saleInfo,omitempty"`
	APISource  models.APISource  `json:"apiSource"`
	FromCache  bool              `json:"fromCache"`
}

type searchResponse struct {
	Kind       string       `json:"kind"`
	TotalItems int          `json:"totalItems"`
	Items      []searchItem `json:"items"`
}

// SearchBooks handles GET /books/search. A query with no matches anywhere is a
// 200 with an empty list, never an error.
func (h *BooksHandler) SearchBooks(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	if query == "" {
		http.Error(w, `{"error":"missing required query parameter q"}`, http.StatusBadRequest)
		return
	}
	maxResults := intParam(r, "maxResults", defaultMaxResults)
	if maxResults < 1 {
		maxResults = 1
	}
	if maxResults > maxMaxResults {
		maxResults = maxMaxResults
	}
	startIndex := intParam(r, "startIndex", 0)
	if startIndex < 0 {
		startIndex = 0
	}
	forceFresh, _ := strconv.ParseBool(r.URL.Query().Get("forceFresh"))

	resp, err := h.Search.Run(r.Context(), query, maxResults, startIndex, forceFresh)
	if err != nil {
		h.Log.Error("search failed", zap.String("query", query), zap.Error(err))
		http.Error(w, `{"error":"search failed: `+err.Error()+`"}`, http.StatusInternalServerError)
		return
	}
	items := make([]searchItem, 0, len(resp.Results))
	for _, res := range resp.Results {
		book := res.Book
		setMirroredCover(&book)
		items = append(items, searchItem{
			ID:         itemID(book),
			VolumeInfo: book.VolumeInfo,
			SaleInfo:   book.SaleInfo,
			APISource:  book.APISource,
			FromCache:  res.FromCache,
		})
	}
	h.accessLog(r, "search served",
		zap.String("query", query),
		zap.Int("items", len(items)))
	writeJSON(w, http.StatusOK, searchResponse{
		Kind:       "books#volumes",
		TotalItems: resp.TotalItems,
		Items:      items,
	})
}

type bookPayload struct {
	models.Book
	FromCache bool `json:"fromCache"`
}

// GetBook handles GET /books/{id} for any supported identifier: native key,
// ISBN-10/13 or a provider id.
func (h *BooksHandler) GetBook(w http.ResponseWriter, r *http.Request) {
	identifier := chi.URLParam(r, "id")
	res, err := h.Resolver.Resolve(r.Context(), identifier)
	if errors.Is(err, service.ErrNotFound) {
		http.Error(w, `{"error":"book not found"}`, http.StatusNotFound)
		return
	}
	if err != nil {
		h.Log.Error("lookup failed", zap.String("identifier", identifier), zap.Error(err))
		http.Error(w, `{"error":"lookup failed: `+err.Error()+`"}`, http.StatusInternalServerError)
		return
	}
	book := res.Book
	setMirroredCover(&book)
	h.accessLog(r, "book served",
		zap.String("identifier", identifier),
		zap.Bool("fromCache", res.FromCache))
	writeJSON(w, http.StatusOK, bookPayload{Book: book, FromCache: res.FromCache})
}

// Cover handles GET /books/{id}/cover, streaming the mirrored cover image.
func (h *BooksHandler) Cover(w http.ResponseWriter, r *http.Request) {
	if h.S3 == nil {
		http.Error(w, `{"error":"covers not configured"}`, http.StatusNotFound)
		return
	}
	identifier := chi.URLParam(r, "id")
	book, err := h.Store.FindByID(r.Context(), identifier)
	if err != nil || book.CoverS3Key == "" {
		http.Error(w, `{"error":"no cover"}`, http.StatusNotFound)
		return
	}
	body, contentType, err := h.S3.GetObject(r.Context(), book.CoverS3Key)
	if err != nil {
		h.Log.Error("cover fetch failed", zap.String("key", book.CoverS3Key), zap.Error(err))
		http.Error(w, `{"error":"failed to load cover"}`, http.StatusInternalServerError)
		return
	}
	defer body.Close()
	if contentType != "" {
		w.Header().Set("Content-Type", contentType)
	}
	io.Copy(w, body)
}

// itemID prefers the storage-native key; a record that could not be persisted
// is identified by its provider id instead.
func itemID(book models.Book) string {
	if !book.ID.IsZero() {
		return book.ID.Hex()
	}
	return book.ProviderID()
}

// setMirroredCover points the thumbnail at the mirror route when the cover has
// been copied into S3.
func setMirroredCover(book *models.Book) {
	if book.CoverS3Key == "" || book.ID.IsZero() {
		return
	}
	mirrored := "/books/" + book.ID.Hex() + "/cover"
	if book.VolumeInfo.ImageLinks == nil {
		book.VolumeInfo.ImageLinks = &models.ImageLinks{}
	}
	book.VolumeInfo.ImageLinks.Thumbnail = mirrored
}

// accessLog records a served read, attributed to the caller when the request
// carried a valid identity.
func (h *BooksHandler) accessLog(r *http.Request, msg string, fields ...zap.Field) {
	if userID, ok := middleware.UserIDFromContext(r.Context()); ok {
		fields = append(fields, zap.String("userId", userID.Hex()))
	}
	h.Log.Info(msg, fields...)
}

func intParam(r *http.Request, name string, fallback int) int {
	v := r.URL.Query().Get(name)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
