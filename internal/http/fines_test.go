package http

import (
	"encoding/json"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"librarium/internal/entities"
)

// lateReturn issues a copy, backdates the due date by daysLate and
// returns it, producing a fine of daysLate * daily rate.
func lateReturn(t *testing.T, stack *testStack, memberID, bookID uint, daysLate int) *entities.Transaction {
	t.Helper()

	record, err := stack.ledger.IssueBook(memberID, bookID, 14)
	require.NoError(t, err)

	require.NoError(t, stack.db.DB.Model(&entities.Transaction{}).
		Where("id = ?", record.ID).
		Update("due_at", time.Now().UTC().AddDate(0, 0, -daysLate)).Error)

	returned, err := stack.ledger.ReturnBook(record.ID)
	require.NoError(t, err)
	require.NotNil(t, returned.Fine)
	return returned
}

func TestFinesController_GetFine(t *testing.T) {
	stack, cleanup := setupHTTPTest(t)
	defer cleanup()
	book := stack.addBook(t, "Dune", "isbn-1", 1)
	member := stack.addMember(t, "alice")
	returned := lateReturn(t, stack, member.ID, book.ID, 3)

	t.Run("by fine id", func(t *testing.T) {
		w := stack.request(t, "GET", "/api/fines/"+uintStr(returned.Fine.ID), "")

		require.Equal(t, http.StatusOK, w.Code)

		var fine entities.Fine
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &fine))
		assert.Equal(t, returned.ID, fine.TransactionID)
		assert.Equal(t, entities.FineStatusUnpaid, fine.Status)
	})

	t.Run("by transaction id", func(t *testing.T) {
		w := stack.request(t, "GET", "/api/transactions/"+uintStr(returned.ID)+"/fine", "")

		require.Equal(t, http.StatusOK, w.Code)

		var fine entities.Fine
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &fine))
		assert.Equal(t, returned.Fine.ID, fine.ID)
	})

	t.Run("404 when no fine exists", func(t *testing.T) {
		w := stack.request(t, "GET", "/api/fines/9999", "")

		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestFinesController_ListMemberFines(t *testing.T) {
	stack, cleanup := setupHTTPTest(t)
	defer cleanup()
	book := stack.addBook(t, "Dune", "isbn-1", 2)
	alice := stack.addMember(t, "alice")
	bob := stack.addMember(t, "bob")
	lateReturn(t, stack, alice.ID, book.ID, 2)
	lateReturn(t, stack, alice.ID, book.ID, 4)

	t.Run("returns fines with the outstanding balance", func(t *testing.T) {
		w := stack.request(t, "GET", "/api/members/"+uintStr(alice.ID)+"/fines", "")

		require.Equal(t, http.StatusOK, w.Code)

		var response struct {
			Fines       []entities.Fine `json:"fines"`
			Count       int             `json:"count"`
			Outstanding float64         `json:"outstanding"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
		assert.Equal(t, 2, response.Count)
		assert.Greater(t, response.Outstanding, 0.0)
	})

	t.Run("a clean member has none", func(t *testing.T) {
		w := stack.request(t, "GET", "/api/members/"+uintStr(bob.ID)+"/fines", "")

		require.Equal(t, http.StatusOK, w.Code)

		var response struct {
			Count       int     `json:"count"`
			Outstanding float64 `json:"outstanding"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
		assert.Equal(t, 0, response.Count)
		assert.Equal(t, 0.0, response.Outstanding)
	})
}

func TestFinesController_RecordPayment(t *testing.T) {
	stack, cleanup := setupHTTPTest(t)
	defer cleanup()
	book := stack.addBook(t, "Dune", "isbn-1", 1)
	member := stack.addMember(t, "alice")
	returned := lateReturn(t, stack, member.ID, book.ID, 4)
	fineID := returned.Fine.ID
	total := returned.Fine.TotalAmount

	payURL := "/api/fines/" + uintStr(fineID) + "/payments"

	t.Run("partial payment", func(t *testing.T) {
		w := stack.request(t, "POST", payURL, `{"amount":1.5}`)

		require.Equal(t, http.StatusOK, w.Code)

		var fine entities.Fine
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &fine))
		assert.Equal(t, 1.5, fine.PaidAmount)
		assert.Equal(t, entities.FineStatusPartiallyPaid, fine.Status)
		assert.Nil(t, fine.PaidAt)
	})

	t.Run("overpayment is rejected", func(t *testing.T) {
		w := stack.request(t, "POST", payURL, fmt.Sprintf(`{"amount":%f}`, total))

		assert.Equal(t, http.StatusConflict, w.Code)
	})

	t.Run("negative amount is rejected", func(t *testing.T) {
		w := stack.request(t, "POST", payURL, `{"amount":-1}`)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("missing amount is rejected", func(t *testing.T) {
		w := stack.request(t, "POST", payURL, `{}`)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("settling the balance marks the fine paid", func(t *testing.T) {
		w := stack.request(t, "POST", payURL, fmt.Sprintf(`{"amount":%f}`, total-1.5))

		require.Equal(t, http.StatusOK, w.Code)

		var fine entities.Fine
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &fine))
		assert.Equal(t, entities.FineStatusPaid, fine.Status)
		assert.NotNil(t, fine.PaidAt)
		assert.Equal(t, 0.0, fine.Outstanding())
	})

	t.Run("404 for an unknown fine", func(t *testing.T) {
		w := stack.request(t, "POST", "/api/fines/9999/payments", `{"amount":1}`)

		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}
