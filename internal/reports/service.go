// Package reports provides read-only aggregation over the catalog, members,
// ledger and fines for dashboards. Nothing here mutates state, and readers
// tolerate slight staleness relative to in-flight writes.
package reports

import (
	"time"

	"gorm.io/gorm"

	"librarium/internal/database/members"
	"librarium/internal/entities"
)

// Service runs read-only joins across the stores.
type Service struct {
	db *gorm.DB
}

// NewService creates a new reports service.
func NewService(db *gorm.DB) *Service {
	return &Service{db: db}
}

// Dashboard summarizes the library's current state.
type Dashboard struct {
	TotalBooks       int64   `json:"total_books"`
	TotalCopies      int64   `json:"total_copies"`
	AvailableCopies  int64   `json:"available_copies"`
	ActiveMembers    int64   `json:"active_members"`
	OpenLoans        int64   `json:"open_loans"`
	OverdueLoans     int64   `json:"overdue_loans"`
	OutstandingFines float64 `json:"outstanding_fines"`
}

// GetDashboard computes the dashboard counters in one snapshot.
func (s *Service) GetDashboard() (*Dashboard, error) {
	var d Dashboard

	if err := s.db.Model(&entities.Book{}).Where("is_active = ?", true).Count(&d.TotalBooks).Error; err != nil {
		return nil, err
	}

	type copyCounts struct {
		Total     int64
		Available int64
	}
	var cc copyCounts
	if err := s.db.Model(&entities.Book{}).Where("is_active = ?", true).
		Select("COALESCE(SUM(total_copies), 0) AS total, COALESCE(SUM(available_copies), 0) AS available").
		Scan(&cc).Error; err != nil {
		return nil, err
	}
	d.TotalCopies = cc.Total
	d.AvailableCopies = cc.Available

	if err := s.db.Model(&entities.Member{}).Where("is_active = ?", true).Count(&d.ActiveMembers).Error; err != nil {
		return nil, err
	}

	if err := s.db.Model(&entities.Transaction{}).
		Where("status = ?", entities.TransactionStatusIssued).
		Count(&d.OpenLoans).Error; err != nil {
		return nil, err
	}

	if err := s.db.Model(&entities.Transaction{}).
		Where("status = ? AND due_at < ?", entities.TransactionStatusIssued, time.Now().UTC()).
		Count(&d.OverdueLoans).Error; err != nil {
		return nil, err
	}

	if err := s.db.Model(&entities.Fine{}).
		Select("COALESCE(SUM(total_amount - paid_amount), 0)").
		Scan(&d.OutstandingFines).Error; err != nil {
		return nil, err
	}

	return &d, nil
}

// MemberFineTotal aggregates one member's fines.
type MemberFineTotal struct {
	MemberID    uint    `json:"member_id"`
	Username    string  `json:"username"`
	FullName    string  `json:"full_name"`
	FineCount   int64   `json:"fine_count"`
	TotalAmount float64 `json:"total_amount"`
	PaidAmount  float64 `json:"paid_amount"`
	Outstanding float64 `json:"outstanding"`
}

// FineTotalsByMember returns per-member fine aggregates, largest outstanding
// balance first. Members without fines are omitted.
func (s *Service) FineTotalsByMember() ([]MemberFineTotal, error) {
	var totals []MemberFineTotal
	err := s.db.Model(&entities.Fine{}).
		Select(`members.id AS member_id,
			members.username AS username,
			members.full_name AS full_name,
			COUNT(fines.id) AS fine_count,
			COALESCE(SUM(fines.total_amount), 0) AS total_amount,
			COALESCE(SUM(fines.paid_amount), 0) AS paid_amount,
			COALESCE(SUM(fines.total_amount - fines.paid_amount), 0) AS outstanding`).
		Joins("JOIN transactions ON transactions.id = fines.transaction_id").
		Joins("JOIN members ON members.id = transactions.member_id").
		Group("members.id, members.username, members.full_name").
		Order("outstanding DESC").
		Scan(&totals).Error
	return totals, err
}

// MemberSummary bundles a member's open loans and fines.
type MemberSummary struct {
	Member    entities.Member        `json:"member"`
	OpenLoans []entities.Transaction `json:"open_loans"`
	Fines     []entities.Fine        `json:"fines"`
}

// GetMemberSummary joins one member's open loans and fines. Fails with
// members.ErrMemberNotFound for an invalid member reference.
func (s *Service) GetMemberSummary(memberID uint) (*MemberSummary, error) {
	member, err := members.NewRepository(s.db).GetMemberByID(memberID)
	if err != nil {
		return nil, err
	}

	summary := &MemberSummary{Member: *member}

	err = s.db.Preload("Book").
		Where("member_id = ? AND status = ?", memberID, entities.TransactionStatusIssued).
		Order("due_at ASC").
		Find(&summary.OpenLoans).Error
	if err != nil {
		return nil, err
	}

	err = s.db.Model(&entities.Fine{}).
		Select("fines.*").
		Joins("JOIN transactions ON transactions.id = fines.transaction_id").
		Where("transactions.member_id = ?", memberID).
		Order("fines.created_at DESC").
		Find(&summary.Fines).Error
	if err != nil {
		return nil, err
	}

	return summary, nil
}

// AvailableBooks lists active books with at least one available copy.
func (s *Service) AvailableBooks() ([]entities.Book, error) {
	var books []entities.Book
	err := s.db.Where("is_active = ? AND available_copies > 0", true).
		Order("title ASC").
		Find(&books).Error
	return books, err
}
