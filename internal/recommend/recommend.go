// Package recommend implements genre-overlap recommendations.
//
// A user's taste is the set of genres of the books they rated. Every book
// they have not rated whose genre is in that set is recommended, in catalog
// order.
package recommend

import (
	"sort"

	"bookshelf/internal/models"
)

// GenreCount is the number of rated books a user has in one genre.
type GenreCount struct {
	Genre string `json:"genre"`
	Count int    `json:"count"`
}

// GenreCounts counts the genres of the books in rated. A title that appears
// on several books contributes each of their genres.
func GenreCounts(books []models.Book, rated map[string]int) map[string]int {
	counts := make(map[string]int)
	for _, book := range books {
		if _, ok := rated[book.Title]; ok {
			counts[book.Genre]++
		}
	}
	return counts
}

// Recommend returns the unrated books sharing a genre with a rated book,
// in catalog order.
func Recommend(books []models.Book, rated map[string]int) []models.Book {
	counts := GenreCounts(books, rated)

	recommended := []models.Book{}
	for _, book := range books {
		if _, ok := rated[book.Title]; ok {
			continue
		}
		if counts[book.Genre] > 0 {
			recommended = append(recommended, book)
		}
	}
	return recommended
}

// TopGenres returns the genre counts ordered by count descending, then name.
func TopGenres(counts map[string]int) []GenreCount {
	out := make([]GenreCount, 0, len(counts))
	for genre, count := range counts {
		out = append(out, GenreCount{Genre: genre, Count: count})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Genre < out[j].Genre
	})
	return out
}
