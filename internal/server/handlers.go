package server

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"bookshelf/internal/catalog"
	"bookshelf/internal/models"
	"bookshelf/internal/recommend"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/goccy/go-json"
)

type addBookRequest struct {
	Title  string `json:"title" validate:"required,max=500"`
	Author string `json:"author" validate:"max=200"`
	Genre  string `json:"genre" validate:"max=100"`
}

type rateRequest struct {
	User   string `json:"user" validate:"required,max=100"`
	Number int    `json:"number" validate:"required,min=1"`
	Title  string `json:"title,omitempty" validate:"max=500"`
	Rating int    `json:"rating" validate:"required,min=1,max=5"`
}

type healthResponse struct {
	Status string `json:"status"`
	Books  int    `json:"books"`
}

type searchResponse struct {
	Query   string        `json:"query"`
	Results []models.Book `json:"results"`
}

type suggestResponse struct {
	Query  string   `json:"query"`
	Titles []string `json:"titles"`
}

type ratingsResponse struct {
	User    string         `json:"user"`
	Ratings map[string]int `json:"ratings"`
}

type recommendationsResponse struct {
	User            string                 `json:"user"`
	Genres          []recommend.GenreCount `json:"genres"`
	Recommendations []models.Book          `json:"recommendations"`
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, healthResponse{Status: "ok", Books: s.catalog.Len()})
}

func (s *Server) listBooks(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, s.catalog.Books())
}

func (s *Server) addBook(w http.ResponseWriter, r *http.Request) {
	var req addBookRequest
	if !s.decode(w, r, &req) {
		return
	}

	book := models.Book{Title: req.Title, Author: req.Author, Genre: req.Genre}
	if err := s.catalog.AddBook(book); err != nil {
		respondCatalogError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, book)
}

func (s *Server) search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	results := s.catalog.Search(q)
	respondJSON(w, http.StatusOK, searchResponse{Query: q, Results: results})
}

func (s *Server) suggest(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	respondJSON(w, http.StatusOK, suggestResponse{Query: q, Titles: s.catalog.Suggest(q)})
}

func (s *Server) rate(w http.ResponseWriter, r *http.Request) {
	var req rateRequest
	if !s.decode(w, r, &req) {
		return
	}

	if _, err := s.catalog.RateListed(req.User, req.Number, req.Title, req.Rating); err != nil {
		respondCatalogError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) userRatings(w http.ResponseWriter, r *http.Request) {
	user := chi.URLParam(r, "user")
	respondJSON(w, http.StatusOK, ratingsResponse{User: user, Ratings: s.catalog.Ratings(user)})
}

func (s *Server) recommendations(w http.ResponseWriter, r *http.Request) {
	user := chi.URLParam(r, "user")

	books, err := s.catalog.Recommend(user)
	if err != nil {
		respondCatalogError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, recommendationsResponse{
		User:            user,
		Genres:          s.catalog.FavoriteGenres(user),
		Recommendations: books,
	})
}

// decode reads and validates a JSON body into dst, responding with 400
// and returning false when it cannot.
func (s *Server) decode(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_JSON", "request body is not valid JSON", nil)
		return false
	}

	if err := s.validate.Struct(dst); err != nil {
		apiErr := APIError{Code: "VALIDATION_ERROR", Message: "request validation failed"}
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) {
			apiErr.Details = make(map[string]string, len(fieldErrs))
			for _, fe := range fieldErrs {
				apiErr.Details[strings.ToLower(fe.Field())] = describeRule(fe)
			}
		}
		respondJSON(w, http.StatusBadRequest, errorResponse{Error: apiErr})
		return false
	}
	return true
}

func describeRule(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "min":
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "max":
		return fmt.Sprintf("must be at most %s", fe.Param())
	default:
		return fmt.Sprintf("failed %s", fe.Tag())
	}
}

// respondCatalogError maps a catalog error onto an HTTP status.
func respondCatalogError(w http.ResponseWriter, err error) {
	var catErr *catalog.Error
	if !errors.As(err, &catErr) {
		respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "internal error", err)
		return
	}

	switch catErr.Type {
	case catalog.ValidationError:
		respondError(w, http.StatusBadRequest, string(catErr.Type), catErr.Message, nil)
	case catalog.InvalidSelection:
		respondError(w, http.StatusUnprocessableEntity, string(catErr.Type), catErr.Message, nil)
	case catalog.NoRatings:
		respondError(w, http.StatusNotFound, string(catErr.Type), catErr.Message, nil)
	default:
		respondError(w, http.StatusInternalServerError, string(catErr.Type), "failed to save catalog", err)
	}
}
