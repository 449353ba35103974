package store

import (
	"regexp"

	"github.com/pagebound/backend/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// bson field names for the identifier columns, keyed by owning provider.
var identifierFields = map[models.APISource]string{
	models.SourceGoogle:      "googleBooksId",
	models.SourceOpenLibrary: "openLibraryId",
	models.SourceISBNDB:      "isbndbId",
}

// allIdentifierFields is the scan order for bare identifier lookups.
var allIdentifierFields = []string{"googleBooksId", "openLibraryId", "isbndbId", "isbn10", "isbn13"}

// byIdentifier matches one identifier column exactly.
func byIdentifier(field, value string) bson.M {
	return bson.M{field: value}
}

// byAnyIdentifier matches the value against every identifier column.
func byAnyIdentifier(value string) bson.M {
	or := make([]bson.M, 0, len(allIdentifierFields))
	for _, field := range allIdentifierFields {
		or = append(or, bson.M{field: value})
	}
	return bson.M{"$or": or}
}

// textSearch uses the title/authors text index.
func textSearch(text string) bson.M {
	return bson.M{"$text": bson.M{"$search": text}}
}

// byTitleContains matches the text case-insensitively inside the title or any
// author name.
func byTitleContains(text string) bson.M {
	re := containsPattern(text)
	return bson.M{"$or": []bson.M{
		{"volumeInfo.title": re},
		{"volumeInfo.authors": re},
	}}
}

// fuzzyCandidates builds the candidate filter for scored fallback search: the
// whole query against title or authors, or any single significant word against
// the title.
func fuzzyCandidates(query string, words []string) bson.M {
	or := byTitleContains(query)["$or"].([]bson.M)
	for _, w := range words {
		or = append(or, bson.M{"volumeInfo.title": containsPattern(w)})
	}
	return bson.M{"$or": or}
}

func containsPattern(text string) primitive.Regex {
	return primitive.Regex{Pattern: regexp.QuoteMeta(text), Options: "i"}
}
