// Package ledger implements the circulation state machine: every lease moves
// none -> issued -> returned, and returned is terminal. A new lease for the
// same (member, book) pair always starts a fresh record.
//
// Write operations run inside a single GORM transaction under a service-level
// mutex, so the eligibility check, availability adjustment and record write
// commit or fail as one unit. Volumes are small enough that one lock scope
// beats per-book locking.
package ledger

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"librarium/internal/config"
	"librarium/internal/database/books"
	"librarium/internal/database/members"
	"librarium/internal/entities"
	"librarium/internal/fines"
)

var (
	ErrTransactionNotFound = errors.New("transaction not found")
	ErrBookUnavailable     = errors.New("book is not available for issue")
	ErrDuplicateLease      = errors.New("member already has this book issued")
	ErrIneligibleMember    = errors.New("member is not eligible to issue books")
	ErrAlreadyReturned     = errors.New("transaction has already been returned")
	ErrInvalidLoanPeriod   = errors.New("loan period is out of range")
)

// Service owns transaction records and drives availability changes through
// the catalog store.
type Service struct {
	db      *gorm.DB
	books   *books.Repository
	members *members.Repository
	cfg     config.Loans

	// Serializes check-and-mutate sequences across request workers.
	mu sync.Mutex
}

// NewService creates a new ledger service.
func NewService(db *gorm.DB, booksRepo *books.Repository, membersRepo *members.Repository, cfg config.Loans) *Service {
	if cfg.DefaultLoanDays <= 0 {
		cfg.DefaultLoanDays = 14
	}
	if cfg.MaxLoanDays <= 0 {
		cfg.MaxLoanDays = 90
	}
	return &Service{
		db:      db,
		books:   booksRepo,
		members: membersRepo,
		cfg:     cfg,
	}
}

// IssueBook leases one copy of a book to a member. loanDays <= 0 falls back
// to the configured default period.
//
// The availability decrement and the record creation are one atomic unit:
// a failure at any step rolls the whole operation back.
func (s *Service) IssueBook(memberID, bookID uint, loanDays int) (*entities.Transaction, error) {
	if loanDays <= 0 {
		loanDays = s.cfg.DefaultLoanDays
	}
	if loanDays > s.cfg.MaxLoanDays {
		return nil, ErrInvalidLoanPeriod
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var record *entities.Transaction
	err := s.db.Transaction(func(tx *gorm.DB) error {
		eligible, err := s.members.WithTx(tx).IsEligible(memberID)
		if err != nil {
			return err
		}
		if !eligible {
			return ErrIneligibleMember
		}

		book, err := s.books.WithTx(tx).GetBookByID(bookID)
		if err != nil {
			return err
		}
		if !book.IsActive {
			return ErrBookUnavailable
		}

		// At most one open lease per (member, book) pair.
		var open int64
		if err := tx.Model(&entities.Transaction{}).
			Where("member_id = ? AND book_id = ? AND status = ?",
				memberID, bookID, entities.TransactionStatusIssued).
			Count(&open).Error; err != nil {
			return err
		}
		if open > 0 {
			return ErrDuplicateLease
		}

		// The catalog store is the sole mutation point for copy counts.
		if err := s.books.WithTx(tx).AdjustAvailability(bookID, -1); err != nil {
			if errors.Is(err, books.ErrInsufficientCopies) {
				return ErrBookUnavailable
			}
			return err
		}

		now := time.Now().UTC()
		record = &entities.Transaction{
			Reference: uuid.NewString(),
			MemberID:  memberID,
			BookID:    bookID,
			IssuedAt:  now,
			DueAt:     now.AddDate(0, 0, loanDays),
			Status:    entities.TransactionStatusIssued,
		}
		return tx.Create(record).Error
	})
	if err != nil {
		return nil, err
	}
	return record, nil
}

// ReturnBook closes an open lease: marks the record returned, releases the
// copy back to the catalog and assesses a fine when the return is late.
// A second return attempt fails with ErrAlreadyReturned and does not touch
// availability again.
func (s *Service) ReturnBook(transactionID uint) (*entities.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var record entities.Transaction
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&record, transactionID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrTransactionNotFound
			}
			return err
		}

		now := time.Now().UTC()

		// Guarded state transition: only an issued record can be returned.
		res := tx.Model(&entities.Transaction{}).
			Where("id = ? AND status = ?", transactionID, entities.TransactionStatusIssued).
			Updates(map[string]any{
				"status":      entities.TransactionStatusReturned,
				"returned_at": now,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrAlreadyReturned
		}

		if err := s.books.WithTx(tx).AdjustAvailability(record.BookID, 1); err != nil {
			return err
		}

		if fine := fines.Assess(record.ID, record.DueAt, now, s.cfg.DailyFineRate); fine != nil {
			if err := tx.Create(fine).Error; err != nil {
				return fmt.Errorf("failed to create fine: %w", err)
			}
		}

		return tx.Preload("Book").Preload("Member").Preload("Fine").
			First(&record, transactionID).Error
	})
	if err != nil {
		return nil, err
	}
	return &record, nil
}

// RenewLoan extends the due date of an open lease by additionalDays.
func (s *Service) RenewLoan(transactionID uint, additionalDays int) (*entities.Transaction, error) {
	if additionalDays <= 0 || additionalDays > s.cfg.MaxLoanDays {
		return nil, ErrInvalidLoanPeriod
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var record entities.Transaction
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&record, transactionID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrTransactionNotFound
			}
			return err
		}
		if record.Status == entities.TransactionStatusReturned {
			return ErrAlreadyReturned
		}

		record.DueAt = record.DueAt.AddDate(0, 0, additionalDays)
		return tx.Model(&entities.Transaction{}).
			Where("id = ?", transactionID).
			Update("due_at", record.DueAt).Error
	})
	if err != nil {
		return nil, err
	}
	return &record, nil
}

// ListOverdue returns open leases whose due date has passed as of the given
// time, strictly ordered by ascending due date (oldest overdue first).
// Reports and notifications rely on this ordering.
func (s *Service) ListOverdue(asOf time.Time) ([]entities.Transaction, error) {
	var records []entities.Transaction
	err := s.db.Preload("Book").Preload("Member").
		Where("status = ? AND due_at < ?", entities.TransactionStatusIssued, asOf).
		Order("due_at ASC").
		Find(&records).Error
	return records, err
}

// GetTransaction retrieves one transaction with its book, member and fine.
func (s *Service) GetTransaction(id uint) (*entities.Transaction, error) {
	var record entities.Transaction
	err := s.db.Preload("Book").Preload("Member").Preload("Fine").First(&record, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTransactionNotFound
		}
		return nil, err
	}
	return &record, nil
}

// GetTransactionByReference retrieves a transaction by its public reference.
func (s *Service) GetTransactionByReference(reference string) (*entities.Transaction, error) {
	var record entities.Transaction
	err := s.db.Preload("Book").Preload("Member").Preload("Fine").
		Where("reference = ?", reference).First(&record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTransactionNotFound
		}
		return nil, err
	}
	return &record, nil
}

// ListFilter narrows ListTransactions results.
type ListFilter struct {
	MemberID uint
	BookID   uint
	Status   entities.TransactionStatus
	Limit    int
	Offset   int
}

// ListTransactions returns transactions matching the filter, newest first.
func (s *Service) ListTransactions(filter ListFilter) ([]entities.Transaction, int64, error) {
	query := s.db.Model(&entities.Transaction{})
	if filter.MemberID > 0 {
		query = query.Where("member_id = ?", filter.MemberID)
	}
	if filter.BookID > 0 {
		query = query.Where("book_id = ?", filter.BookID)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}

	var records []entities.Transaction
	err := query.Preload("Book").Preload("Fine").
		Order("created_at DESC").
		Limit(limit).Offset(offset).
		Find(&records).Error
	return records, total, err
}
