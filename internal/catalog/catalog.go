// Package catalog owns the book collection, the users' ratings and the
// title search index built over them.
package catalog

import (
	"fmt"
	"strconv"
	"sync"
	"unicode/utf8"

	"bookshelf/internal/audit"
	"bookshelf/internal/logging"
	"bookshelf/internal/models"
	"bookshelf/internal/recommend"
	"bookshelf/internal/store"
	"bookshelf/internal/trie"

	"github.com/go-playground/validator/v10"
)

// rateInput is validated before a rating is recorded.
type rateInput struct {
	User   string `validate:"required"`
	Rating int    `validate:"min=1,max=5"`
}

// Option configures a Catalog.
type Option func(*Catalog)

// WithRecorder journals catalog mutations to r.
func WithRecorder(r audit.Recorder) Option {
	return func(c *Catalog) {
		c.recorder = r
	}
}

// WithSearchObserver calls observe with the number of books each Search
// returned.
func WithSearchObserver(observe func(results int)) Option {
	return func(c *Catalog) {
		c.onSearch = observe
	}
}

// Catalog is the book collection with its search index.
// Reads may run concurrently; writes are exclusive.
type Catalog struct {
	mu       sync.RWMutex
	store    *store.Store
	lib      *models.Library
	index    *trie.Index
	lastSave store.FileState
	recorder audit.Recorder
	onSearch func(results int)
	validate *validator.Validate
}

// Open loads the library from s and indexes every title.
func Open(s *store.Store, opts ...Option) (*Catalog, error) {
	c := &Catalog{
		store:    s,
		recorder: audit.NopRecorder{},
		validate: validator.New(),
	}
	for _, opt := range opts {
		opt(c)
	}

	if err := c.loadLocked(); err != nil {
		return nil, err
	}

	logging.Info().
		Str("file", s.Path()).
		Int("books", len(c.lib.Books)).
		Int("titles", c.index.Len()).
		Msg("Catalog loaded")

	return c, nil
}

// loadLocked reads the store and swaps in a freshly built index.
// The caller holds the write lock, or owns c exclusively during Open.
func (c *Catalog) loadLocked() error {
	// Stat first: an edit landing between the two calls then still shows up
	// as a change on the next check.
	state, err := c.store.Stat()
	if err != nil {
		return &Error{Type: StorageError, Err: err}
	}
	lib, err := c.store.Load()
	if err != nil {
		return &Error{Type: StorageError, Err: err}
	}

	c.lib = lib
	c.index = buildIndex(lib.Books)
	c.lastSave = state
	return nil
}

func buildIndex(books []models.Book) *trie.Index {
	idx := trie.New()
	for _, book := range books {
		idx.Insert(book.Title)
	}
	return idx
}

// AddBook validates and appends a book, persists the catalog and indexes
// the title. Nothing changes in memory if the save fails.
func (c *Catalog) AddBook(book models.Book) error {
	if err := c.validate.Struct(book); err != nil {
		return &Error{Type: ValidationError, Message: "book title is required", Err: err}
	}
	if !utf8.ValidString(book.Title) {
		return &Error{Type: ValidationError, Message: "book title must be valid UTF-8"}
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	next := c.lib.Clone()
	next.Books = append(next.Books, book)

	if err := c.saveLocked(next); err != nil {
		return err
	}
	duplicate := c.index.Contains(book.Title)
	c.index.Insert(book.Title)

	c.record(audit.Event{
		EventType: audit.EventBookAdded,
		Title:     book.Title,
		Metadata: map[string]string{
			"author": book.Author,
			"genre":  book.Genre,
		},
	})
	logging.Debug().Str("title", book.Title).Bool("duplicate", duplicate).Msg("Book added")
	return nil
}

// Books returns a copy of the book list in insertion order.
func (c *Catalog) Books() []models.Book {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]models.Book{}, c.lib.Books...)
}

// Len returns the number of books.
func (c *Catalog) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.lib.Books)
}

// Rate records user's rating of the book at the 1-based position number,
// as listed by Books. Rating the same title again replaces the old rating.
func (c *Catalog) Rate(user string, number int, rating int) (models.Book, error) {
	return c.rate(user, number, "", rating)
}

// RateListed is Rate for a caller that showed the user a listing: the book
// at number must still carry title, otherwise the selection is stale and
// nothing is recorded.
func (c *Catalog) RateListed(user string, number int, title string, rating int) (models.Book, error) {
	return c.rate(user, number, title, rating)
}

func (c *Catalog) rate(user string, number int, title string, rating int) (models.Book, error) {
	if err := c.validate.Struct(rateInput{User: user, Rating: rating}); err != nil {
		return models.Book{}, &Error{
			Type:    ValidationError,
			Message: fmt.Sprintf("username is required and rating must be between %d and %d", models.MinRating, models.MaxRating),
			Err:     err,
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if number < 1 || number > len(c.lib.Books) {
		return models.Book{}, &Error{
			Type:    InvalidSelection,
			Message: fmt.Sprintf("book number %d is out of range 1-%d", number, len(c.lib.Books)),
		}
	}
	book := c.lib.Books[number-1]
	if title != "" && book.Title != title {
		return models.Book{}, &Error{
			Type:    InvalidSelection,
			Message: fmt.Sprintf("book number %d is now %q, not %q", number, book.Title, title),
		}
	}

	next := c.lib.Clone()
	if next.Ratings[user] == nil {
		next.Ratings[user] = map[string]int{}
	}
	next.Ratings[user][book.Title] = rating

	if err := c.saveLocked(next); err != nil {
		return models.Book{}, err
	}

	c.record(audit.Event{
		EventType: audit.EventBookRated,
		Title:     book.Title,
		User:      user,
		Rating:    rating,
		Metadata:  map[string]string{"number": strconv.Itoa(number)},
	})
	return book, nil
}

// Ratings returns a copy of user's ratings keyed by title.
func (c *Catalog) Ratings(user string) map[string]int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make(map[string]int, len(c.lib.Ratings[user]))
	for title, rating := range c.lib.Ratings[user] {
		out[title] = rating
	}
	return out
}

// Recommend returns unrated books sharing a genre with the books user rated.
func (c *Catalog) Recommend(user string) ([]models.Book, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	rated, ok := c.lib.Ratings[user]
	if !ok {
		return nil, &Error{Type: NoRatings, Message: fmt.Sprintf("user %q has not rated any books", user)}
	}
	return recommend.Recommend(c.lib.Books, rated), nil
}

// FavoriteGenres returns the genres of user's rated books, most rated first.
func (c *Catalog) FavoriteGenres(user string) []recommend.GenreCount {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return recommend.TopGenres(recommend.GenreCounts(c.lib.Books, c.lib.Ratings[user]))
}

// Suggest returns the distinct titles starting with prefix, case-insensitively.
func (c *Catalog) Suggest(prefix string) []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.index.Query(prefix)
}

// Search returns every book whose title starts with prefix,
// case-insensitively, ordered by title and then catalog position.
func (c *Catalog) Search(prefix string) []models.Book {
	c.mu.RLock()
	defer c.mu.RUnlock()

	titles := c.index.Query(prefix)
	results := []models.Book{}
	for _, title := range titles {
		for _, book := range c.lib.Books {
			if book.Title == title {
				results = append(results, book)
			}
		}
	}

	logging.Debug().Str("prefix", prefix).Int("titles", len(titles)).Int("books", len(results)).Msg("Search")
	if c.onSearch != nil {
		c.onSearch(len(results))
	}
	return results
}

// Reload re-reads the data file and rebuilds the index from scratch.
func (c *Catalog) Reload() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.reloadLocked()
}

func (c *Catalog) reloadLocked() error {
	if err := c.loadLocked(); err != nil {
		return err
	}

	books := len(c.lib.Books)
	c.record(audit.Event{
		EventType: audit.EventCatalogReloaded,
		Metadata:  map[string]string{"books": strconv.Itoa(books)},
	})

	logging.Info().Str("file", c.store.Path()).Int("books", books).Msg("Catalog reloaded")
	return nil
}

// ChangedOnDisk reports whether the data file differs from the version
// this catalog last loaded or saved.
func (c *Catalog) ChangedOnDisk() (bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.changedLocked()
}

func (c *Catalog) changedLocked() (bool, error) {
	state, err := c.store.Stat()
	if err != nil {
		return false, &Error{Type: StorageError, Err: err}
	}
	return !state.ModTime.Equal(c.lastSave.ModTime) || state.Size != c.lastSave.Size, nil
}

// ReloadIfChanged reloads the catalog when the data file was modified by
// someone else. It reports whether a reload happened.
func (c *Catalog) ReloadIfChanged() (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	changed, err := c.changedLocked()
	if err != nil || !changed {
		return false, err
	}
	if err := c.reloadLocked(); err != nil {
		return false, err
	}
	return true, nil
}

// saveLocked persists next and commits it as the current library.
func (c *Catalog) saveLocked(next *models.Library) error {
	state, err := c.store.Save(next)
	if err != nil {
		return &Error{Type: StorageError, Err: err}
	}
	c.lib = next
	c.lastSave = state
	return nil
}

// record journals an event; a journal failure is logged, not returned,
// because the change it describes is already saved.
func (c *Catalog) record(event audit.Event) {
	if err := c.recorder.Record(event); err != nil {
		logging.Warn().Err(err).Str("event", string(event.EventType)).Msg("Failed to write audit event")
	}
}
