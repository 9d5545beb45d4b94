package entities

import (
	"time"
)

type TransactionStatus string

const (
	TransactionStatusIssued   TransactionStatus = "issued"
	TransactionStatusReturned TransactionStatus = "returned"
)

type FineStatus string

const (
	FineStatusUnpaid        FineStatus = "unpaid"
	FineStatusPartiallyPaid FineStatus = "partially_paid"
	FineStatusPaid          FineStatus = "paid"
)

// Transaction records a single lease of one book copy by one member.
// The lifecycle is issued -> returned; returned is terminal, and a new
// lease for the same (member, book) pair starts a fresh record.
type Transaction struct {
	ID        uint   `gorm:"primaryKey" json:"id"`
	Reference string `gorm:"uniqueIndex;size:36" json:"reference"` // public UUID
	MemberID  uint   `gorm:"index;not null" json:"member_id"`
	BookID    uint   `gorm:"index;not null" json:"book_id"`

	IssuedAt   time.Time         `gorm:"not null" json:"issued_at"`
	DueAt      time.Time         `gorm:"index;not null" json:"due_at"`
	ReturnedAt *time.Time        `json:"returned_at,omitempty"` // set iff status = returned
	Status     TransactionStatus `gorm:"index;size:20;not null;default:'issued'" json:"status"`
	Notes      string            `gorm:"size:500" json:"notes,omitempty"`

	Member Member `gorm:"foreignKey:MemberID" json:"member,omitempty"`
	Book   Book   `gorm:"foreignKey:BookID" json:"book,omitempty"`
	Fine   *Fine  `gorm:"foreignKey:TransactionID" json:"fine,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// IsOverdue reports whether the lease is open and past due as of the given time.
func (t *Transaction) IsOverdue(asOf time.Time) bool {
	return t.Status == TransactionStatusIssued && t.DueAt.Before(asOf)
}

// Fine is the monetary penalty for a late return. It is created only when a
// return comes in after the due date and lives with its transaction.
type Fine struct {
	ID            uint `gorm:"primaryKey" json:"id"`
	TransactionID uint `gorm:"uniqueIndex;not null" json:"transaction_id"`

	DailyRate   float64 `gorm:"not null" json:"daily_rate"`
	DaysLate    int     `gorm:"not null" json:"days_late"`
	TotalAmount float64 `gorm:"not null" json:"total_amount"`
	PaidAmount  float64 `gorm:"not null;default:0" json:"paid_amount"`

	Status FineStatus `gorm:"size:20;not null;default:'unpaid'" json:"status"`
	PaidAt *time.Time `json:"paid_at,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Outstanding returns the unpaid balance.
func (f *Fine) Outstanding() float64 {
	return f.TotalAmount - f.PaidAmount
}
