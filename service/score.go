package service

import (
	"sort"
	"strings"

	"github.com/pagebound/backend/models"
)

// Relevance weights for the scored substring fallback. Preserved from long
// tuning against real queries; tunable, not load-bearing.
const (
	scoreAllWords = 10 // every significant word appears in the title
	scoreExact    = 5  // the whole normalized query is a substring of the title
	scorePerWord  = 1  // each significant word found anywhere in the title
	minFuzzyScore = 2  // candidates below this are near-random matches
)

// NormalizeQuery trims, lowercases and collapses runs of whitespace.
func NormalizeQuery(q string) string {
	return strings.Join(strings.Fields(strings.ToLower(q)), " ")
}

// SignificantWords returns the query tokens worth matching on: words longer
// than two characters, or the sole word of a single-word query regardless of
// length.
func SignificantWords(normalized string) []string {
	words := strings.Fields(normalized)
	if len(words) == 1 {
		return words
	}
	significant := make([]string, 0, len(words))
	for _, w := range words {
		if len(w) > 2 {
			significant = append(significant, w)
		}
	}
	return significant
}

// ScoreTitle computes the fallback relevance of a title for the normalized
// query. The indexed text search handles exact stems; this exists so partial
// or misordered queries like "a lord of the ring" still find
// "The Lord of the Rings".
func ScoreTitle(title, normalized string, words []string) int {
	title = strings.ToLower(title)
	score := 0
	found := 0
	for _, w := range words {
		if strings.Contains(title, w) {
			found++
		}
	}
	if len(words) > 0 && found == len(words) {
		score += scoreAllWords
	}
	if strings.Contains(title, normalized) {
		score += scoreExact
	}
	score += found * scorePerWord
	return score
}

// RankCandidates scores the candidate set, drops anything under the minimum
// threshold or already present in seen, and orders the rest by score
// descending with ties broken by title.
func RankCandidates(candidates []models.Book, normalized string, words []string, seen map[string]bool) []models.Book {
	type scored struct {
		book  models.Book
		score int
	}
	ranked := make([]scored, 0, len(candidates))
	for _, b := range candidates {
		if seen[b.ID.Hex()] {
			continue
		}
		s := ScoreTitle(b.VolumeInfo.Title, normalized, words)
		if s < minFuzzyScore {
			continue
		}
		ranked = append(ranked, scored{book: b, score: s})
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].score != ranked[j].score {
			return ranked[i].score > ranked[j].score
		}
		return strings.ToLower(ranked[i].book.VolumeInfo.Title) < strings.ToLower(ranked[j].book.VolumeInfo.Title)
	})
	out := make([]models.Book, 0, len(ranked))
	for _, r := range ranked {
		out = append(out, r.book)
	}
	return out
}
