package providers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/pagebound/backend/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const olSearchBody = `{
	"numFound": 3,
	"docs": [
		{
			"key": "/works/OL45804W",
			"title": "Fantastic Mr Fox",
			"author_name": ["Roald Dahl"],
			"first_publish_year": 1970,
			"publisher": ["Puffin", "Viking"],
			"subject": ["Children's fiction"],
			"isbn": ["0140328726", "9780140328721"],
			"cover_i": 6498519,
			"number_of_pages_median": 96,
			"ratings_average": 4.1,
			"ratings_count": 128
		},
		{
			"key": "/works/OL99999W",
			"title": ""
		}
	]
}`

func TestOpenLibrarySearchByTitle(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/search.json", r.URL.Path)
		assert.Equal(t, "fantastic mr fox", r.URL.Query().Get("title"))
		assert.Equal(t, "1", r.URL.Query().Get("page"), "search.json pages are one-based")
		assert.Equal(t, "10", r.URL.Query().Get("limit"))
		w.Write([]byte(olSearchBody))
	}))
	defer srv.Close()

	o := NewOpenLibraryWithBase(srv.URL, srv.Client())
	res, err := o.SearchByTitle(context.Background(), "fantastic mr fox", 0, 10)
	require.NoError(t, err)

	assert.Equal(t, 3, res.Total)
	require.Len(t, res.Records, 1, "the untitled doc is dropped")

	rec := res.Records[0]
	assert.Equal(t, models.SourceOpenLibrary, rec.Source)
	assert.Equal(t, "OL45804W", rec.ProviderID)
	assert.Equal(t, "Fantastic Mr Fox", rec.VolumeInfo.Title)
	assert.Equal(t, []string{"Roald Dahl"}, rec.VolumeInfo.Authors)
	assert.Equal(t, "1970", rec.VolumeInfo.PublishedDate)
	assert.Equal(t, "Puffin", rec.VolumeInfo.Publisher)
	assert.Equal(t, "0140328726", rec.ISBN10)
	assert.Equal(t, "9780140328721", rec.ISBN13)
	assert.Nil(t, rec.SaleInfo, "the open catalog has no sale data")
	require.NotNil(t, rec.VolumeInfo.ImageLinks)
	assert.Equal(t, "https://covers.openlibrary.org/b/id/6498519-M.jpg", rec.VolumeInfo.ImageLinks.Thumbnail)
	assert.Equal(t, "https://covers.openlibrary.org/b/id/6498519-L.jpg", rec.VolumeInfo.ImageLinks.Large)
}

func TestOpenLibraryGetByIdentifier(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/search.json", r.URL.Path)
		assert.Equal(t, "key:/works/OL45804W", r.URL.Query().Get("q"))
		w.Write([]byte(olSearchBody))
	}))
	defer srv.Close()

	o := NewOpenLibraryWithBase(srv.URL, srv.Client())
	rec, err := o.GetByIdentifier(context.Background(), "OL45804W")
	require.NoError(t, err)
	assert.Equal(t, "OL45804W", rec.ProviderID)
}

func TestOpenLibraryGetRejectsForeignIDs(t *testing.T) {
	o := NewOpenLibraryWithBase("http://unused.example", http.DefaultClient)
	_, err := o.GetByIdentifier(context.Background(), "9780140328721")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestIsOpenLibraryID(t *testing.T) {
	testCases := []struct {
		input    string
		expected bool
	}{
		{input: "OL45804W", expected: true},
		{input: "OL7353617M", expected: true},
		{input: "OL123A", expected: true},
		{input: "ol45804w", expected: false},
		{input: "OL45804", expected: false},
		{input: "45804W", expected: false},
		{input: "9780747532699", expected: false},
	}
	for _, tc := range testCases {
		t.Run(tc.input, func(t *testing.T) {
			assert.Equal(t, tc.expected, IsOpenLibraryID(tc.input))
		})
	}
}
