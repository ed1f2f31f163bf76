// Package models defines the catalog records shared by the store, catalog
// and server packages.
package models

import "fmt"

// MinRating and MaxRating bound a user's rating of a book.
const (
	MinRating = 1
	MaxRating = 5
)

// Book is a single catalog entry. Titles are not required to be unique.
type Book struct {
	Title  string `json:"title" validate:"required"`
	Author string `json:"author"`
	Genre  string `json:"genre"`
}

// String renders the book the way the console lists it.
func (b Book) String() string {
	return fmt.Sprintf("Title: %s, Author: %s, Genre: %s", b.Title, b.Author, b.Genre)
}

// Ratings maps a user to the ratings they gave, keyed by book title.
type Ratings map[string]map[string]int

// Library is the persisted catalog: the book list plus every user's ratings.
type Library struct {
	Books   []Book  `json:"books"`
	Ratings Ratings `json:"ratings"`
}

// NewLibrary returns an empty Library with non-nil collections.
func NewLibrary() *Library {
	return &Library{
		Books:   []Book{},
		Ratings: Ratings{},
	}
}

// Normalize replaces nil collections with empty ones, as left behind by a
// data file that omits a key.
func (l *Library) Normalize() {
	if l.Books == nil {
		l.Books = []Book{}
	}
	if l.Ratings == nil {
		l.Ratings = Ratings{}
	}
	for user, rated := range l.Ratings {
		if rated == nil {
			l.Ratings[user] = map[string]int{}
		}
	}
}

// Clone returns a deep copy of the library.
func (l *Library) Clone() *Library {
	out := &Library{
		Books:   append([]Book{}, l.Books...),
		Ratings: make(Ratings, len(l.Ratings)),
	}
	for user, rated := range l.Ratings {
		copied := make(map[string]int, len(rated))
		for title, rating := range rated {
			copied[title] = rating
		}
		out.Ratings[user] = copied
	}
	return out
}
