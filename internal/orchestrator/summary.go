package orchestrator

import (
	"fmt"
	"time"

	"bookshelf/internal/audit"
)

// Summary contains what one session changed.
type Summary struct {
	Session    audit.SessionID
	BooksAdded int
	BooksRated int
	Reloads    int
	Duration   time.Duration
}

func (s *Summary) count(events []audit.Event) {
	for _, e := range events {
		switch e.EventType {
		case audit.EventBookAdded:
			s.BooksAdded++
		case audit.EventBookRated:
			s.BooksRated++
		case audit.EventCatalogReloaded:
			s.Reloads++
		}
	}
}

// Changed reports whether the session modified the catalog.
func (s *Summary) Changed() bool {
	return s.BooksAdded > 0 || s.BooksRated > 0
}

// String formats the summary for verbose output.
func (s *Summary) String() string {
	return fmt.Sprintf("Session: %d books added, %d ratings, %d reloads in %s",
		s.BooksAdded, s.BooksRated, s.Reloads, s.Duration.Round(time.Second))
}
