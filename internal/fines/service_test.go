package fines

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"librarium/internal/entities"
)

func setupTestDB(t *testing.T) (*Service, *gorm.DB, func()) {
	dbPath := "./test_fines_" + t.Name() + ".db"

	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	err = db.AutoMigrate(&entities.Member{}, &entities.Book{}, &entities.Transaction{}, &entities.Fine{})
	require.NoError(t, err)

	svc := NewService(db)

	cleanup := func() {
		sqlDB, _ := db.DB()
		sqlDB.Close()
		os.Remove(dbPath)
	}

	return svc, db, cleanup
}

func createFine(t *testing.T, db *gorm.DB, total float64) *entities.Fine {
	t.Helper()
	record := &entities.Transaction{
		Reference: "ref-" + t.Name(),
		MemberID:  1,
		BookID:    1,
		IssuedAt:  time.Now().AddDate(0, 0, -20),
		DueAt:     time.Now().AddDate(0, 0, -6),
		Status:    entities.TransactionStatusReturned,
	}
	require.NoError(t, db.Create(record).Error)

	fine := &entities.Fine{
		TransactionID: record.ID,
		DailyRate:     1.0,
		DaysLate:      int(total),
		TotalAmount:   total,
		Status:        entities.FineStatusUnpaid,
	}
	require.NoError(t, db.Create(fine).Error)
	return fine
}

func TestService_RecordPayment_Partial(t *testing.T) {
	svc, db, cleanup := setupTestDB(t)
	defer cleanup()

	fine := createFine(t, db, 5.0)

	paid, err := svc.RecordPayment(fine.ID, 2.0)

	require.NoError(t, err)
	assert.Equal(t, 2.0, paid.PaidAmount)
	assert.Equal(t, entities.FineStatusPartiallyPaid, paid.Status)
	assert.Nil(t, paid.PaidAt)
}

func TestService_RecordPayment_ExactBalanceSettles(t *testing.T) {
	svc, db, cleanup := setupTestDB(t)
	defer cleanup()

	fine := createFine(t, db, 5.0)

	_, err := svc.RecordPayment(fine.ID, 2.0)
	require.NoError(t, err)

	paid, err := svc.RecordPayment(fine.ID, 3.0)

	require.NoError(t, err)
	assert.Equal(t, 5.0, paid.PaidAmount)
	assert.Equal(t, entities.FineStatusPaid, paid.Status)
	require.NotNil(t, paid.PaidAt)
}

func TestService_RecordPayment_OverPayment(t *testing.T) {
	svc, db, cleanup := setupTestDB(t)
	defer cleanup()

	fine := createFine(t, db, 5.0)

	_, err := svc.RecordPayment(fine.ID, 6.0)
	assert.ErrorIs(t, err, ErrOverPayment)

	// The failed payment left no trace
	got, err := svc.GetFine(fine.ID)
	require.NoError(t, err)
	assert.Equal(t, 0.0, got.PaidAmount)
	assert.Equal(t, entities.FineStatusUnpaid, got.Status)
}

func TestService_RecordPayment_OverPaymentAfterPartial(t *testing.T) {
	svc, db, cleanup := setupTestDB(t)
	defer cleanup()

	fine := createFine(t, db, 5.0)

	_, err := svc.RecordPayment(fine.ID, 4.0)
	require.NoError(t, err)

	// Outstanding is 1.0; 1.5 would overshoot
	_, err = svc.RecordPayment(fine.ID, 1.5)
	assert.ErrorIs(t, err, ErrOverPayment)
}

func TestService_RecordPayment_InvalidAmount(t *testing.T) {
	svc, db, cleanup := setupTestDB(t)
	defer cleanup()

	fine := createFine(t, db, 5.0)

	_, err := svc.RecordPayment(fine.ID, 0)
	assert.ErrorIs(t, err, ErrInvalidPaymentAmount)

	_, err = svc.RecordPayment(fine.ID, -1.0)
	assert.ErrorIs(t, err, ErrInvalidPaymentAmount)
}

func TestService_RecordPayment_NotFound(t *testing.T) {
	svc, _, cleanup := setupTestDB(t)
	defer cleanup()

	_, err := svc.RecordPayment(999, 1.0)

	assert.ErrorIs(t, err, ErrFineNotFound)
}

func TestService_OutstandingByMember(t *testing.T) {
	svc, db, cleanup := setupTestDB(t)
	defer cleanup()

	fine := createFine(t, db, 5.0)

	_, err := svc.RecordPayment(fine.ID, 2.0)
	require.NoError(t, err)

	outstanding, err := svc.OutstandingByMember(1)
	require.NoError(t, err)
	assert.Equal(t, 3.0, outstanding)

	// Member with no fines owes nothing
	outstanding, err = svc.OutstandingByMember(2)
	require.NoError(t, err)
	assert.Equal(t, 0.0, outstanding)
}
