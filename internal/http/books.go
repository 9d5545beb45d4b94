package http

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"librarium/internal/entities"
)

// CatalogStore covers the catalog operations the controller needs.
type CatalogStore interface {
	AddBook(book *entities.Book) (*entities.Book, error)
	GetBookByID(id uint) (*entities.Book, error)
	GetBookByISBN(isbn string) (*entities.Book, error)
	ListBooks() ([]entities.Book, error)
	ListAvailable() ([]entities.Book, error)
	SearchBooks(query string) ([]entities.Book, error)
	UpdateTotalCopies(bookID uint, total int) (*entities.Book, error)
	SetActive(bookID uint, active bool) error
}

// CatalogAuditor records catalog changes. May be nil.
type CatalogAuditor interface {
	LogCatalog(memberID, bookID uint, action, description string, err error)
}

type BooksController struct {
	store   CatalogStore
	auditor CatalogAuditor
}

func NewBooksController(store CatalogStore, auditor CatalogAuditor) *BooksController {
	return &BooksController{
		store:   store,
		auditor: auditor,
	}
}

type createBookRequest struct {
	Title           string `json:"title" binding:"required"`
	Author          string `json:"author" binding:"required"`
	ISBN            string `json:"isbn" binding:"required"`
	Publisher       string `json:"publisher"`
	PublicationYear int    `json:"publication_year"`
	Category        string `json:"category"`
	Description     string `json:"description"`
	Location        string `json:"location"`
	TotalCopies     int    `json:"total_copies"`
}

func (controller *BooksController) CreateBook(c *gin.Context) {
	var req createBookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "title, author and isbn are required")
		return
	}

	book, err := controller.store.AddBook(&entities.Book{
		Title:           req.Title,
		Author:          req.Author,
		ISBN:            req.ISBN,
		Publisher:       req.Publisher,
		PublicationYear: req.PublicationYear,
		Category:        req.Category,
		Description:     req.Description,
		Location:        req.Location,
		TotalCopies:     req.TotalCopies,
	})
	if err != nil {
		respondDomainError(c, err, "create book")
		return
	}

	if controller.auditor != nil {
		controller.auditor.LogCatalog(GetMemberID(c), book.ID, "book_add",
			fmt.Sprintf("Added %q by %s (%d copies)", book.Title, book.Author, book.TotalCopies), nil)
	}

	respondCreated(c, book)
}

func (controller *BooksController) GetAllBooks(c *gin.Context) {
	if c.Query("available") == "true" {
		available, err := controller.store.ListAvailable()
		if err != nil {
			respondInternalError(c, err, "list available books")
			return
		}
		c.IndentedJSON(http.StatusOK, gin.H{"books": available, "count": len(available)})
		return
	}

	books, err := controller.store.ListBooks()
	if err != nil {
		respondInternalError(c, err, "list books")
		return
	}
	c.IndentedJSON(http.StatusOK, gin.H{"books": books, "count": len(books)})
}

func (controller *BooksController) GetBook(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	book, err := controller.store.GetBookByID(id)
	if err != nil {
		respondDomainError(c, err, "get book")
		return
	}
	c.IndentedJSON(http.StatusOK, book)
}

func (controller *BooksController) SearchBooks(c *gin.Context) {
	query := strings.TrimSpace(c.Query("q"))
	if query == "" {
		respondBadRequest(c, "q query parameter is required")
		return
	}

	// An exact ISBN lookup takes precedence over a fuzzy search
	if book, err := controller.store.GetBookByISBN(query); err == nil {
		c.IndentedJSON(http.StatusOK, gin.H{"books": []entities.Book{*book}, "count": 1})
		return
	}

	books, err := controller.store.SearchBooks(query)
	if err != nil {
		respondInternalError(c, err, "search books")
		return
	}
	c.IndentedJSON(http.StatusOK, gin.H{"books": books, "count": len(books)})
}

type updateCopiesRequest struct {
	TotalCopies int `json:"total_copies" binding:"required"`
}

func (controller *BooksController) UpdateCopies(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req updateCopiesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "total_copies is required")
		return
	}

	book, err := controller.store.UpdateTotalCopies(id, req.TotalCopies)
	if err != nil {
		respondDomainError(c, err, "update copies")
		return
	}

	if controller.auditor != nil {
		controller.auditor.LogCatalog(GetMemberID(c), book.ID, "book_copies_update",
			fmt.Sprintf("Set total copies of %q to %d", book.Title, book.TotalCopies), nil)
	}

	c.IndentedJSON(http.StatusOK, book)
}

type setActiveRequest struct {
	IsActive *bool `json:"is_active" binding:"required"`
}

func (controller *BooksController) SetActive(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req setActiveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "is_active is required")
		return
	}

	if err := controller.store.SetActive(id, *req.IsActive); err != nil {
		respondDomainError(c, err, "set book active")
		return
	}

	if controller.auditor != nil {
		action := "book_retire"
		if *req.IsActive {
			action = "book_reactivate"
		}
		controller.auditor.LogCatalog(GetMemberID(c), id, action,
			fmt.Sprintf("Set book %d active=%t", id, *req.IsActive), nil)
	}

	respondSuccess(c, "book updated")
}
