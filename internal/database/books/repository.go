// Package books provides database operations for the book catalog.
//
// AdjustAvailability is the only mutation entry point for copy counts;
// every other component goes through it so the availability invariant
// (0 <= available <= total) cannot be bypassed.
//
// # Usage
//
//	repo := books.NewRepository(db)
//	book, err := repo.AddBook(&entities.Book{Title: "...", ISBN: "..."})
package books

import (
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"librarium/internal/entities"
)

var (
	ErrBookNotFound       = errors.New("book not found")
	ErrDuplicateISBN      = errors.New("a book with this ISBN already exists")
	ErrInsufficientCopies = errors.New("adjustment would violate copy bounds")
	ErrCopiesOutstanding  = errors.New("total copies cannot drop below issued copies")
)

// Repository handles all catalog database operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new catalog repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx returns a repository bound to the given transaction. The ledger uses
// this so availability adjustments commit or roll back with the lease record.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{db: tx}
}

// AddBook creates a new catalog entry. ISBNs are unique across the catalog.
// A zero-copy entry is valid: it stays unavailable until re-stocked through
// UpdateTotalCopies.
func (r *Repository) AddBook(book *entities.Book) (*entities.Book, error) {
	isbn := strings.TrimSpace(book.ISBN)
	if isbn == "" {
		return nil, fmt.Errorf("ISBN is required")
	}
	book.ISBN = isbn

	if book.TotalCopies < 0 {
		return nil, fmt.Errorf("total copies must not be negative")
	}
	book.AvailableCopies = book.TotalCopies
	book.IsActive = true

	var existing entities.Book
	err := r.db.Where("isbn = ?", isbn).First(&existing).Error
	if err == nil {
		return nil, ErrDuplicateISBN
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to check existing ISBN: %w", err)
	}

	if err := r.db.Create(book).Error; err != nil {
		return nil, err
	}
	return book, nil
}

// AdjustAvailability changes available copies by delta in a single guarded
// statement. The WHERE clause re-checks the bounds at write time, so two
// concurrent adjustments cannot drive the count negative or past the total.
func (r *Repository) AdjustAvailability(bookID uint, delta int) error {
	res := r.db.Model(&entities.Book{}).
		Where("id = ? AND available_copies + ? >= 0 AND available_copies + ? <= total_copies",
			bookID, delta, delta).
		UpdateColumn("available_copies", gorm.Expr("available_copies + ?", delta))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		// Distinguish a missing book from a bounds violation.
		var count int64
		if err := r.db.Model(&entities.Book{}).Where("id = ?", bookID).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return ErrBookNotFound
		}
		return ErrInsufficientCopies
	}
	return nil
}

// GetBookByID retrieves a book by ID.
func (r *Repository) GetBookByID(id uint) (*entities.Book, error) {
	var book entities.Book
	err := r.db.First(&book, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrBookNotFound
		}
		return nil, err
	}
	return &book, nil
}

// GetBookByISBN retrieves a book by its ISBN.
func (r *Repository) GetBookByISBN(isbn string) (*entities.Book, error) {
	var book entities.Book
	err := r.db.Where("isbn = ?", isbn).First(&book).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrBookNotFound
		}
		return nil, err
	}
	return &book, nil
}

// ListBooks returns all catalog entries ordered by title.
func (r *Repository) ListBooks() ([]entities.Book, error) {
	var books []entities.Book
	err := r.db.Order("title ASC").Find(&books).Error
	return books, err
}

// ListAvailable returns active books with at least one available copy.
func (r *Repository) ListAvailable() ([]entities.Book, error) {
	var books []entities.Book
	err := r.db.Where("is_active = ? AND available_copies > 0", true).
		Order("title ASC").
		Find(&books).Error
	return books, err
}

// SearchBooks matches title, author or ISBN substrings, case-insensitively.
func (r *Repository) SearchBooks(query string) ([]entities.Book, error) {
	var books []entities.Book
	pattern := "%" + query + "%"
	err := r.db.
		Where("LOWER(title) LIKE LOWER(?) OR LOWER(author) LIKE LOWER(?) OR isbn LIKE ?",
			pattern, pattern, pattern).
		Order("title ASC").
		Find(&books).Error
	return books, err
}

// UpdateTotalCopies re-stocks or removes copies from the catalog. The issued
// count (total - available) is preserved, so the total can never drop below
// the number of copies currently out on loan.
func (r *Repository) UpdateTotalCopies(bookID uint, total int) (*entities.Book, error) {
	if total < 0 {
		return nil, fmt.Errorf("total copies must not be negative")
	}

	var book *entities.Book
	err := r.db.Transaction(func(tx *gorm.DB) error {
		var b entities.Book
		if err := tx.First(&b, bookID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrBookNotFound
			}
			return err
		}

		issued := b.TotalCopies - b.AvailableCopies
		if total < issued {
			return ErrCopiesOutstanding
		}

		b.TotalCopies = total
		b.AvailableCopies = total - issued
		if err := tx.Model(&entities.Book{}).Where("id = ?", bookID).
			Updates(map[string]any{
				"total_copies":     b.TotalCopies,
				"available_copies": b.AvailableCopies,
			}).Error; err != nil {
			return err
		}
		book = &b
		return nil
	})
	return book, err
}

// SetActive toggles whether the book can be issued.
func (r *Repository) SetActive(bookID uint, active bool) error {
	res := r.db.Model(&entities.Book{}).Where("id = ?", bookID).Update("is_active", active)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrBookNotFound
	}
	return nil
}
