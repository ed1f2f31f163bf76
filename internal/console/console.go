// Package console runs the interactive bookshelf menu.
package console

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"bookshelf/internal/audit"
	"bookshelf/internal/catalog"
	"bookshelf/internal/models"
	"bookshelf/internal/output"

	"golang.org/x/term"
)

// HistoryLimit is how many journal events the history option shows.
const HistoryLimit = 20

// IsInteractive reports whether stdin is a terminal.
func IsInteractive() bool {
	return term.IsTerminal(int(os.Stdin.Fd()))
}

// History supplies recent journal events for the history option.
type History interface {
	Recent(n int) ([]audit.Event, error)
}

// Console is the menu loop over a catalog.
type Console struct {
	scanner *bufio.Scanner
	out     *output.Output
	catalog *catalog.Catalog
	history History
}

// New creates a Console reading answers from reader. history may be nil
// when the journal is disabled.
func New(reader io.Reader, out *output.Output, c *catalog.Catalog, history History) *Console {
	return &Console{
		scanner: bufio.NewScanner(reader),
		out:     out,
		catalog: c,
		history: history,
	}
}

// Run shows the menu until the user exits or input ends.
func (c *Console) Run() error {
	for {
		c.out.Info("\nOptions:")
		c.out.Info("1. Add Book")
		c.out.Info("2. View Books")
		c.out.Info("3. Rate Book")
		c.out.Info("4. Get Recommendations")
		c.out.Info("5. Search Books")
		c.out.Info("6. Exit")
		c.out.Info("7. View History")

		choice, ok, err := c.ask("Choose an option: ")
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}

		switch strings.TrimSpace(choice) {
		case "1":
			err = c.addBook()
		case "2":
			c.viewBooks()
		case "3":
			err = c.rateBook()
		case "4":
			err = c.recommendBooks()
		case "5":
			err = c.searchBooks()
		case "6":
			c.out.Info("Goodbye!")
			return nil
		case "7":
			c.showHistory()
		default:
			c.out.Info("Invalid choice. Please try again.")
		}

		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
	}
}

// ask prompts and reads one line. ok is false at end of input.
func (c *Console) ask(prompt string) (string, bool, error) {
	c.out.Prompt(prompt)
	if !c.scanner.Scan() {
		if err := c.scanner.Err(); err != nil {
			return "", false, fmt.Errorf("error reading input: %w", err)
		}
		return "", false, nil
	}
	return c.scanner.Text(), true, nil
}

// answer is ask for the steps inside an option; end of input becomes io.EOF.
func (c *Console) answer(prompt string) (string, error) {
	text, ok, err := c.ask(prompt)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", io.EOF
	}
	return text, nil
}

func (c *Console) addBook() error {
	title, err := c.answer("Enter book title: ")
	if err != nil {
		return err
	}
	author, err := c.answer("Enter book author: ")
	if err != nil {
		return err
	}
	genre, err := c.answer("Enter book genre: ")
	if err != nil {
		return err
	}

	err = c.catalog.AddBook(models.Book{Title: title, Author: author, Genre: genre})
	switch {
	case catalog.IsType(err, catalog.ValidationError) && title == "":
		c.out.Info("Book title is required.")
	case catalog.IsType(err, catalog.ValidationError):
		c.out.Info("Book title must be valid UTF-8 text.")
	case err != nil:
		c.out.Error("Error: %v", err)
	default:
		c.out.Info("Book added.")
	}
	return nil
}

// viewBooks lists the catalog and returns the listing it showed.
func (c *Console) viewBooks() []models.Book {
	books := c.catalog.Books()
	if len(books) == 0 {
		c.out.Info("No books available.")
	}
	c.out.Books(books, true)
	return books
}

func (c *Console) rateBook() error {
	user, err := c.answer("Enter your username: ")
	if err != nil {
		return err
	}
	books := c.viewBooks()
	if len(books) == 0 {
		return nil
	}

	answer, err := c.answer("Enter the number of the book you want to rate: ")
	if err != nil {
		return err
	}
	number, convErr := strconv.Atoi(strings.TrimSpace(answer))
	if convErr != nil || number < 1 || number > len(books) {
		c.out.Info("Invalid selection.")
		return nil
	}

	answer, err = c.answer(fmt.Sprintf("Enter your rating for %s (%d-%d): ", books[number-1].Title, models.MinRating, models.MaxRating))
	if err != nil {
		return err
	}
	rating, convErr := strconv.Atoi(strings.TrimSpace(answer))
	if convErr != nil {
		c.out.Info("Invalid selection.")
		return nil
	}

	_, err = c.catalog.RateListed(user, number, books[number-1].Title, rating)
	switch {
	case catalog.IsType(err, catalog.InvalidSelection):
		c.out.Info("Invalid selection.")
	case catalog.IsType(err, catalog.ValidationError):
		c.out.Info("Invalid rating. Enter a username and a rating from %d to %d.", models.MinRating, models.MaxRating)
	case err != nil:
		c.out.Error("Error: %v", err)
	default:
		c.out.Info("Rating submitted.")
	}
	return nil
}

func (c *Console) recommendBooks() error {
	user, err := c.answer("Enter your username: ")
	if err != nil {
		return err
	}

	recommended, err := c.catalog.Recommend(user)
	if catalog.IsType(err, catalog.NoRatings) {
		c.out.Info("No ratings found. Please rate books first.")
		return nil
	}
	if err != nil {
		return err
	}

	if c.out.IsVerbose() {
		for _, g := range c.catalog.FavoriteGenres(user) {
			c.out.Verbose("You rated %d %s book(s)", g.Count, g.Genre)
		}
	}

	if len(recommended) == 0 {
		c.out.Info("No recommendations available.")
		return nil
	}
	c.out.Heading("Recommendations:")
	c.out.Books(recommended, false)
	return nil
}

func (c *Console) searchBooks() error {
	prefix, err := c.answer("Enter book title prefix: ")
	if err != nil {
		return err
	}

	results := c.catalog.Search(prefix)
	if len(results) == 0 {
		c.out.Info("No matches found.")
		return nil
	}
	c.out.Heading("Search Results:")
	c.out.Books(results, false)
	return nil
}

func (c *Console) showHistory() {
	if c.history == nil {
		c.out.Info("Activity history is disabled.")
		return
	}

	events, err := c.history.Recent(HistoryLimit)
	if err != nil {
		c.out.Error("Error: %v", err)
		return
	}
	if len(events) == 0 {
		c.out.Info("No activity recorded yet.")
		return
	}
	c.out.Heading("Recent Activity:")
	c.out.Events(events)
}
