package http

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"librarium/internal/entities"
)

func TestBooksController_CreateBook(t *testing.T) {
	t.Run("creates a book with defaults", func(t *testing.T) {
		stack, cleanup := setupHTTPTest(t)
		defer cleanup()

		w := stack.request(t, "POST", "/api/books",
			`{"title":"Dune","author":"Frank Herbert","isbn":"978-0441013593","total_copies":3}`)

		require.Equal(t, http.StatusCreated, w.Code)

		var book entities.Book
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &book))
		assert.Equal(t, "Dune", book.Title)
		assert.Equal(t, 3, book.TotalCopies)
		assert.Equal(t, 3, book.AvailableCopies)
		assert.True(t, book.IsActive)
	})

	t.Run("rejects missing fields", func(t *testing.T) {
		stack, cleanup := setupHTTPTest(t)
		defer cleanup()

		w := stack.request(t, "POST", "/api/books", `{"title":"No Author"}`)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("rejects duplicate ISBN with 409", func(t *testing.T) {
		stack, cleanup := setupHTTPTest(t)
		defer cleanup()
		stack.addBook(t, "First", "isbn-1", 1)

		w := stack.request(t, "POST", "/api/books",
			`{"title":"Second","author":"Someone","isbn":"isbn-1"}`)

		assert.Equal(t, http.StatusConflict, w.Code)
		assert.Contains(t, w.Body.String(), "ISBN")
	})
}

func TestBooksController_GetBook(t *testing.T) {
	stack, cleanup := setupHTTPTest(t)
	defer cleanup()
	book := stack.addBook(t, "Dune", "isbn-1", 2)

	t.Run("returns the book", func(t *testing.T) {
		w := stack.request(t, "GET", "/api/books/"+uintStr(book.ID), "")

		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "Dune")
	})

	t.Run("returns 404 for unknown id", func(t *testing.T) {
		w := stack.request(t, "GET", "/api/books/9999", "")

		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestBooksController_GetAllBooks(t *testing.T) {
	stack, cleanup := setupHTTPTest(t)
	defer cleanup()
	stack.addBook(t, "One", "isbn-1", 1)
	gone := stack.addBook(t, "Two", "isbn-2", 1)
	member := stack.addMember(t, "alice")
	_, err := stack.ledger.IssueBook(member.ID, gone.ID, 14)
	require.NoError(t, err)

	t.Run("lists everything", func(t *testing.T) {
		w := stack.request(t, "GET", "/api/books", "")

		require.Equal(t, http.StatusOK, w.Code)
		var response map[string]any
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
		assert.Equal(t, float64(2), response["count"])
	})

	t.Run("available filter excludes issued-out books", func(t *testing.T) {
		w := stack.request(t, "GET", "/api/books?available=true", "")

		require.Equal(t, http.StatusOK, w.Code)
		var response map[string]any
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
		assert.Equal(t, float64(1), response["count"])
		assert.Contains(t, w.Body.String(), "One")
	})
}

func TestBooksController_SearchBooks(t *testing.T) {
	stack, cleanup := setupHTTPTest(t)
	defer cleanup()
	stack.addBook(t, "The Go Programming Language", "isbn-go", 1)
	stack.addBook(t, "Python Crash Course", "isbn-py", 1)

	t.Run("requires a query", func(t *testing.T) {
		w := stack.request(t, "GET", "/api/books/search", "")

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("matches titles", func(t *testing.T) {
		w := stack.request(t, "GET", "/api/books/search?q=go+programming", "")

		require.Equal(t, http.StatusOK, w.Code)
		var response map[string]any
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
		assert.Equal(t, float64(1), response["count"])
	})

	t.Run("exact ISBN short-circuits", func(t *testing.T) {
		w := stack.request(t, "GET", "/api/books/search?q=isbn-py", "")

		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "Python Crash Course")
	})
}

func TestBooksController_UpdateCopies(t *testing.T) {
	stack, cleanup := setupHTTPTest(t)
	defer cleanup()
	book := stack.addBook(t, "Dune", "isbn-1", 2)
	alice := stack.addMember(t, "alice")
	bob := stack.addMember(t, "bob")
	_, err := stack.ledger.IssueBook(alice.ID, book.ID, 14)
	require.NoError(t, err)
	_, err = stack.ledger.IssueBook(bob.ID, book.ID, 14)
	require.NoError(t, err)

	t.Run("grows the pool", func(t *testing.T) {
		w := stack.request(t, "PATCH", "/api/books/"+uintStr(book.ID)+"/copies",
			`{"total_copies":5}`)

		require.Equal(t, http.StatusOK, w.Code)
		var updated entities.Book
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &updated))
		assert.Equal(t, 5, updated.TotalCopies)
		// Two copies are still out on loan
		assert.Equal(t, 3, updated.AvailableCopies)
	})

	t.Run("cannot drop below issued copies", func(t *testing.T) {
		w := stack.request(t, "PATCH", "/api/books/"+uintStr(book.ID)+"/copies",
			`{"total_copies":1}`)

		assert.Equal(t, http.StatusConflict, w.Code)
	})
}

func TestBooksController_SetActive(t *testing.T) {
	stack, cleanup := setupHTTPTest(t)
	defer cleanup()
	book := stack.addBook(t, "Dune", "isbn-1", 1)

	w := stack.request(t, "PATCH", "/api/books/"+uintStr(book.ID)+"/active",
		`{"is_active":false}`)
	require.Equal(t, http.StatusOK, w.Code)

	got, err := stack.books.GetBookByID(book.ID)
	require.NoError(t, err)
	assert.False(t, got.IsActive)
}
