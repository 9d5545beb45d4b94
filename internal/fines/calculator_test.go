package fines

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"librarium/internal/entities"
)

func TestDaysLate(t *testing.T) {
	due := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		returned time.Time
		want     int
	}{
		{"returned early", due.Add(-48 * time.Hour), 0},
		{"returned at exact due time", due, 0},
		{"one second late counts as a full day", due.Add(time.Second), 1},
		{"exactly 24 hours late", due.Add(24 * time.Hour), 1},
		{"24 hours and a second rounds up", due.Add(24*time.Hour + time.Second), 2},
		{"two days late", due.Add(48 * time.Hour), 2},
		{"partial third day rounds up", due.Add(59 * time.Hour), 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DaysLate(due, tt.returned))
		})
	}
}

func TestAssess_OnTimeReturnProducesNoFine(t *testing.T) {
	due := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	assert.Nil(t, Assess(1, due, due, 1.0))
	assert.Nil(t, Assess(1, due, due.Add(-time.Hour), 1.0))
}

func TestAssess_TwoDaysLate(t *testing.T) {
	issued := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	due := issued.AddDate(0, 0, 14)
	returned := issued.AddDate(0, 0, 16)

	fine := Assess(42, due, returned, 1.0)

	require.NotNil(t, fine)
	assert.Equal(t, uint(42), fine.TransactionID)
	assert.Equal(t, 2, fine.DaysLate)
	assert.Equal(t, 2.0, fine.TotalAmount)
	assert.Equal(t, 0.0, fine.PaidAmount)
	assert.Equal(t, entities.FineStatusUnpaid, fine.Status)
}

func TestAssess_RateMultiplies(t *testing.T) {
	due := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	returned := due.AddDate(0, 0, 5)

	fine := Assess(1, due, returned, 2.5)

	require.NotNil(t, fine)
	assert.Equal(t, 5, fine.DaysLate)
	assert.Equal(t, 12.5, fine.TotalAmount)
}
