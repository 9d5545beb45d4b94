// Package fines computes overdue penalties and tracks their payment.
//
// The day-rounding policy is explicit: any partial day past the due time
// counts as a full day late (ceiling). Returning at exactly the due instant
// is on time and produces no fine.
package fines

import (
	"math"
	"time"

	"librarium/internal/entities"
)

// DaysLate returns the number of chargeable days between due and returned.
// Returns 0 for on-time returns.
func DaysLate(due, returned time.Time) int {
	if !returned.After(due) {
		return 0
	}
	return int(math.Ceil(returned.Sub(due).Hours() / 24))
}

// Assess is a pure function of (due, returned, rate). It returns nil for
// on-time returns; fines are created lazily only when days late > 0.
func Assess(transactionID uint, due, returned time.Time, dailyRate float64) *entities.Fine {
	daysLate := DaysLate(due, returned)
	if daysLate == 0 {
		return nil
	}
	return &entities.Fine{
		TransactionID: transactionID,
		DailyRate:     dailyRate,
		DaysLate:      daysLate,
		TotalAmount:   dailyRate * float64(daysLate),
		PaidAmount:    0,
		Status:        entities.FineStatusUnpaid,
	}
}
