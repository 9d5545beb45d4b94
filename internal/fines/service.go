package fines

import (
	"errors"
	"sync"
	"time"

	"gorm.io/gorm"

	"librarium/internal/entities"
)

var (
	ErrFineNotFound         = errors.New("fine not found")
	ErrOverPayment          = errors.New("payment exceeds outstanding balance")
	ErrInvalidPaymentAmount = errors.New("payment amount must be positive")
)

// Service tracks fine payments.
type Service struct {
	db *gorm.DB

	// Serializes payment check-and-update sequences.
	mu sync.Mutex
}

// NewService creates a new fines service.
func NewService(db *gorm.DB) *Service {
	return &Service{db: db}
}

// RecordPayment applies a payment towards a fine. The paid amount never
// exceeds the total: paying more than the outstanding balance fails with
// ErrOverPayment and leaves the fine untouched. Paying the exact remaining
// balance transitions the fine to paid and stamps the payment time.
func (s *Service) RecordPayment(fineID uint, amount float64) (*entities.Fine, error) {
	if amount <= 0 {
		return nil, ErrInvalidPaymentAmount
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var fine entities.Fine
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&fine, fineID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrFineNotFound
			}
			return err
		}

		if amount > fine.Outstanding() {
			return ErrOverPayment
		}

		fine.PaidAmount += amount
		updates := map[string]any{
			"paid_amount": fine.PaidAmount,
		}
		if fine.PaidAmount >= fine.TotalAmount {
			now := time.Now().UTC()
			fine.Status = entities.FineStatusPaid
			fine.PaidAt = &now
			updates["status"] = fine.Status
			updates["paid_at"] = now
		} else {
			fine.Status = entities.FineStatusPartiallyPaid
			updates["status"] = fine.Status
		}

		return tx.Model(&entities.Fine{}).Where("id = ?", fineID).Updates(updates).Error
	})
	if err != nil {
		return nil, err
	}
	return &fine, nil
}

// GetFine retrieves a fine by ID.
func (s *Service) GetFine(id uint) (*entities.Fine, error) {
	var fine entities.Fine
	err := s.db.First(&fine, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrFineNotFound
		}
		return nil, err
	}
	return &fine, nil
}

// GetFineByTransaction retrieves the fine attached to a transaction, if any.
func (s *Service) GetFineByTransaction(transactionID uint) (*entities.Fine, error) {
	var fine entities.Fine
	err := s.db.Where("transaction_id = ?", transactionID).First(&fine).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrFineNotFound
		}
		return nil, err
	}
	return &fine, nil
}

// ListFinesByMember returns a member's fines, newest first. memberID 0
// returns all fines.
func (s *Service) ListFinesByMember(memberID uint) ([]entities.Fine, error) {
	var fineList []entities.Fine
	query := s.db.Model(&entities.Fine{}).
		Select("fines.*").
		Joins("JOIN transactions ON transactions.id = fines.transaction_id")
	if memberID > 0 {
		query = query.Where("transactions.member_id = ?", memberID)
	}
	err := query.Order("fines.created_at DESC").Find(&fineList).Error
	return fineList, err
}

// MemberForFine resolves which member a fine belongs to through its
// transaction.
func (s *Service) MemberForFine(fineID uint) (uint, error) {
	var memberID uint
	err := s.db.Model(&entities.Fine{}).
		Joins("JOIN transactions ON transactions.id = fines.transaction_id").
		Where("fines.id = ?", fineID).
		Select("transactions.member_id").
		First(&memberID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, ErrFineNotFound
		}
		return 0, err
	}
	return memberID, nil
}

// OutstandingByMember sums the unpaid balance across a member's fines.
func (s *Service) OutstandingByMember(memberID uint) (float64, error) {
	var outstanding float64
	err := s.db.Model(&entities.Fine{}).
		Joins("JOIN transactions ON transactions.id = fines.transaction_id").
		Where("transactions.member_id = ?", memberID).
		Select("COALESCE(SUM(fines.total_amount - fines.paid_amount), 0)").
		Scan(&outstanding).Error
	return outstanding, err
}
