package console

import (
	"bytes"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"bookshelf/internal/audit"
	"bookshelf/internal/catalog"
	"bookshelf/internal/models"
	"bookshelf/internal/output"
	"bookshelf/internal/store"
)

type fakeHistory struct {
	events []audit.Event
	err    error
	asked  int
}

func (h *fakeHistory) Recent(n int) ([]audit.Event, error) {
	h.asked = n
	return h.events, h.err
}

func newCatalog(t *testing.T, books ...models.Book) *catalog.Catalog {
	t.Helper()
	c, err := catalog.Open(store.New(filepath.Join(t.TempDir(), "books.json")))
	if err != nil {
		t.Fatalf("failed to open catalog: %v", err)
	}
	for _, b := range books {
		if err := c.AddBook(b); err != nil {
			t.Fatalf("failed to add %q: %v", b.Title, err)
		}
	}
	return c
}

// runConsole feeds input to a fresh console and returns stdout and stderr.
func runConsole(t *testing.T, c *catalog.Catalog, history History, input string) (string, string) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	out := output.New(output.Config{Writer: &stdout, ErrWriter: &stderr})

	if err := New(strings.NewReader(input), out, c, history).Run(); err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	return stdout.String(), stderr.String()
}

var fantasy = []models.Book{
	{Title: "The Hobbit", Author: "J.R.R. Tolkien", Genre: "Fantasy"},
	{Title: "The Lord of the Rings", Author: "J.R.R. Tolkien", Genre: "Fantasy"},
	{Title: "Hobbit Tales", Author: "Various", Genre: "Fantasy"},
	{Title: "Dune", Author: "Frank Herbert", Genre: "Sci-Fi"},
}

func TestExit(t *testing.T) {
	got, _ := runConsole(t, newCatalog(t), nil, "6\n")

	if !strings.Contains(got, "1. Add Book") || !strings.Contains(got, "7. View History") {
		t.Errorf("menu not shown: %q", got)
	}
	if !strings.HasSuffix(got, "Goodbye!\n") {
		t.Errorf("expected Goodbye!, got %q", got)
	}
}

func TestEOFExits(t *testing.T) {
	got, _ := runConsole(t, newCatalog(t), nil, "")
	if strings.Contains(got, "Goodbye!") {
		t.Errorf("EOF should exit silently, got %q", got)
	}
}

func TestEOFInsideOptionExits(t *testing.T) {
	c := newCatalog(t)
	runConsole(t, c, nil, "1\nhalf a title\n")
	if c.Len() != 0 {
		t.Errorf("expected nothing added on truncated input, got %d books", c.Len())
	}
}

func TestAddBookRejectsInvalidUTF8(t *testing.T) {
	c := newCatalog(t)
	got, _ := runConsole(t, c, nil, "1\n\xffabc\nNobody\nNone\n6\n")

	if !strings.Contains(got, "Book title must be valid UTF-8 text.") {
		t.Errorf("expected encoding message, got %q", got)
	}
	if c.Len() != 0 {
		t.Errorf("expected empty catalog, got %d", c.Len())
	}
}

func TestInvalidChoice(t *testing.T) {
	got, _ := runConsole(t, newCatalog(t), nil, "9\n6\n")
	if !strings.Contains(got, "Invalid choice. Please try again.") {
		t.Errorf("expected invalid choice message, got %q", got)
	}
}

func TestAddBook(t *testing.T) {
	c := newCatalog(t)
	got, _ := runConsole(t, c, nil, "1\nDune\nFrank Herbert\nSci-Fi\n6\n")

	if !strings.Contains(got, "Book added.") {
		t.Errorf("expected confirmation, got %q", got)
	}
	books := c.Books()
	if len(books) != 1 || books[0] != (models.Book{Title: "Dune", Author: "Frank Herbert", Genre: "Sci-Fi"}) {
		t.Errorf("unexpected books %v", books)
	}
}

func TestAddBookRequiresTitle(t *testing.T) {
	c := newCatalog(t)
	got, _ := runConsole(t, c, nil, "1\n\nNobody\nNone\n6\n")

	if !strings.Contains(got, "Book title is required.") {
		t.Errorf("expected validation message, got %q", got)
	}
	if c.Len() != 0 {
		t.Errorf("expected empty catalog, got %d", c.Len())
	}
}

func TestViewBooks(t *testing.T) {
	got, _ := runConsole(t, newCatalog(t), nil, "2\n6\n")
	if !strings.Contains(got, "No books available.") {
		t.Errorf("expected empty message, got %q", got)
	}

	got, _ = runConsole(t, newCatalog(t, fantasy...), nil, "2\n6\n")
	if !strings.Contains(got, "4. Title: Dune, Author: Frank Herbert, Genre: Sci-Fi\n") {
		t.Errorf("expected numbered listing, got %q", got)
	}
}

func TestRateBook(t *testing.T) {
	c := newCatalog(t, fantasy...)
	got, _ := runConsole(t, c, nil, "3\nana\n4\n5\n6\n")

	if !strings.Contains(got, "Enter your rating for Dune (1-5): ") {
		t.Errorf("expected rating prompt naming the book, got %q", got)
	}
	if !strings.Contains(got, "Rating submitted.") {
		t.Errorf("expected confirmation, got %q", got)
	}
	if r := c.Ratings("ana"); r["Dune"] != 5 {
		t.Errorf("expected Dune rated 5, got %v", r)
	}
}

func TestRateBookRejections(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"non-numeric selection", "3\nana\nfirst\n6\n", "Invalid selection."},
		{"selection out of range", "3\nana\n9\n6\n", "Invalid selection."},
		{"non-numeric rating", "3\nana\n1\ngreat\n6\n", "Invalid selection."},
		{"rating out of range", "3\nana\n1\n7\n6\n", "Invalid rating."},
		{"missing username", "3\n\n1\n3\n6\n", "Invalid rating."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newCatalog(t, fantasy...)
			got, _ := runConsole(t, c, nil, tt.input)

			if !strings.Contains(got, tt.want) {
				t.Errorf("expected %q, got %q", tt.want, got)
			}
			if len(c.Ratings("ana")) != 0 {
				t.Errorf("expected no rating stored, got %v", c.Ratings("ana"))
			}
		})
	}
}

// lineReader hands out one line per Read and runs before ahead of line at.
type lineReader struct {
	lines  []string
	at     int
	before func()
}

func (r *lineReader) Read(p []byte) (int, error) {
	if len(r.lines) == 0 {
		return 0, io.EOF
	}
	if r.at == 0 && r.before != nil {
		r.before()
	}
	r.at--
	line := r.lines[0]
	r.lines = r.lines[1:]
	return copy(p, line), nil
}

func TestRateBookAfterReloadRejectsStaleListing(t *testing.T) {
	path := filepath.Join(t.TempDir(), "books.json")
	c, err := catalog.Open(store.New(path))
	if err != nil {
		t.Fatalf("failed to open catalog: %v", err)
	}
	for _, b := range fantasy {
		if err := c.AddBook(b); err != nil {
			t.Fatalf("failed to add %q: %v", b.Title, err)
		}
	}

	in := &lineReader{
		lines: []string{"3\n", "ana\n", "4\n", "5\n", "6\n"},
		at:    3,
		before: func() {
			edited := `{"books": [{"title": "Emma"}, {"title": "Persuasion"}, {"title": "Ulysses"}, {"title": "Walden"}], "ratings": {}}`
			if err := os.WriteFile(path, []byte(edited), 0644); err != nil {
				t.Fatal(err)
			}
			if err := c.Reload(); err != nil {
				t.Fatalf("Reload: %v", err)
			}
		},
	}

	var stdout bytes.Buffer
	out := output.New(output.Config{Writer: &stdout, ErrWriter: &bytes.Buffer{}})
	if err := New(in, out, c, nil).Run(); err != nil {
		t.Fatalf("Run returned error: %v", err)
	}

	got := stdout.String()
	if !strings.Contains(got, "Enter your rating for Dune (1-5): ") {
		t.Errorf("expected prompt for the listed book, got %q", got)
	}
	if !strings.Contains(got, "Invalid selection.") {
		t.Errorf("expected stale selection to be rejected, got %q", got)
	}
	if r := c.Ratings("ana"); len(r) != 0 {
		t.Errorf("expected no rating stored, got %v", r)
	}
}

func TestRateBookEmptyCatalog(t *testing.T) {
	got, _ := runConsole(t, newCatalog(t), nil, "3\nana\n6\n")
	if !strings.Contains(got, "No books available.") || strings.Contains(got, "Enter the number") {
		t.Errorf("expected rating to stop at empty catalog, got %q", got)
	}
}

func TestRecommendations(t *testing.T) {
	c := newCatalog(t, fantasy...)
	if _, err := c.Rate("ana", 1, 5); err != nil {
		t.Fatalf("Rate: %v", err)
	}

	got, _ := runConsole(t, c, nil, "4\nana\n6\n")
	if !strings.Contains(got, "Recommendations:\nTitle: The Lord of the Rings") {
		t.Errorf("expected recommendations, got %q", got)
	}
	if strings.Contains(got, "Dune") {
		t.Errorf("Sci-Fi book should not be recommended, got %q", got)
	}

	got, _ = runConsole(t, c, nil, "4\nbo\n6\n")
	if !strings.Contains(got, "No ratings found. Please rate books first.") {
		t.Errorf("expected no-ratings message, got %q", got)
	}
}

func TestRecommendationsExhausted(t *testing.T) {
	c := newCatalog(t, fantasy[3])
	if _, err := c.Rate("ana", 1, 4); err != nil {
		t.Fatalf("Rate: %v", err)
	}

	got, _ := runConsole(t, c, nil, "4\nana\n6\n")
	if !strings.Contains(got, "No recommendations available.") {
		t.Errorf("expected none available, got %q", got)
	}
}

func TestSearch(t *testing.T) {
	c := newCatalog(t, fantasy...)

	got, _ := runConsole(t, c, nil, "5\nTHE\n6\n")
	want := "Search Results:\n" +
		"Title: The Hobbit, Author: J.R.R. Tolkien, Genre: Fantasy\n" +
		"Title: The Lord of the Rings, Author: J.R.R. Tolkien, Genre: Fantasy\n"
	if !strings.Contains(got, want) {
		t.Errorf("expected %q in %q", want, got)
	}

	got, _ = runConsole(t, c, nil, "5\nz\n6\n")
	if !strings.Contains(got, "No matches found.") {
		t.Errorf("expected no matches, got %q", got)
	}
}

func TestHistory(t *testing.T) {
	got, _ := runConsole(t, newCatalog(t), nil, "7\n6\n")
	if !strings.Contains(got, "Activity history is disabled.") {
		t.Errorf("expected disabled message, got %q", got)
	}

	empty := &fakeHistory{}
	got, _ = runConsole(t, newCatalog(t), empty, "7\n6\n")
	if !strings.Contains(got, "No activity recorded yet.") {
		t.Errorf("expected empty message, got %q", got)
	}
	if empty.asked != HistoryLimit {
		t.Errorf("expected %d events requested, got %d", HistoryLimit, empty.asked)
	}

	full := &fakeHistory{events: []audit.Event{{EventType: audit.EventBookAdded, Title: "Dune"}}}
	got, _ = runConsole(t, newCatalog(t), full, "7\n6\n")
	if !strings.Contains(got, `Added "Dune"`) {
		t.Errorf("expected event line, got %q", got)
	}

	broken := &fakeHistory{err: errors.New("unreadable")}
	_, errOut := runConsole(t, newCatalog(t), broken, "7\n6\n")
	if !strings.Contains(errOut, "unreadable") {
		t.Errorf("expected error on stderr, got %q", errOut)
	}
}

func TestHistoryFromJournal(t *testing.T) {
	dir := t.TempDir()
	w, err := audit.NewWriter(audit.Config{Enabled: true, Directory: dir})
	if err != nil {
		t.Fatalf("NewWriter: %v", err)
	}
	defer w.Close()

	c, err := catalog.Open(store.New(filepath.Join(t.TempDir(), "books.json")), catalog.WithRecorder(w))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	got, _ := runConsole(t, c, audit.NewReader(dir), "1\nEmma\nJane Austen\nRomance\n7\n6\n")
	if !strings.Contains(got, `Added "Emma"`) {
		t.Errorf("expected journaled add in history, got %q", got)
	}
}

func TestIsInteractiveUnderTest(t *testing.T) {
	f, err := os.CreateTemp(t.TempDir(), "stdin")
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	orig := os.Stdin
	os.Stdin = f
	defer func() { os.Stdin = orig }()

	if IsInteractive() {
		t.Error("a regular file is not interactive")
	}
}
