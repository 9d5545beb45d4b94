package http

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"librarium/internal/entities"
)

func TestMembersController_CreateMember(t *testing.T) {
	t.Run("creates a member without credentials", func(t *testing.T) {
		stack, cleanup := setupHTTPTest(t)
		defer cleanup()

		w := stack.request(t, "POST", "/api/members",
			`{"username":"alice","email":"alice@example.com","full_name":"Alice Doe"}`)

		require.Equal(t, http.StatusCreated, w.Code)

		var member entities.Member
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &member))
		assert.Equal(t, "alice", member.Username)
		assert.True(t, member.IsActive)
		assert.NotContains(t, w.Body.String(), "password")
	})

	t.Run("rejects missing username", func(t *testing.T) {
		stack, cleanup := setupHTTPTest(t)
		defer cleanup()

		w := stack.request(t, "POST", "/api/members", `{"email":"alice@example.com"}`)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("duplicate username is 409", func(t *testing.T) {
		stack, cleanup := setupHTTPTest(t)
		defer cleanup()
		stack.addMember(t, "alice")

		w := stack.request(t, "POST", "/api/members",
			`{"username":"alice","email":"other@example.com"}`)

		assert.Equal(t, http.StatusConflict, w.Code)
	})
}

func TestMembersController_GetMember(t *testing.T) {
	stack, cleanup := setupHTTPTest(t)
	defer cleanup()
	member := stack.addMember(t, "alice")

	t.Run("returns the member", func(t *testing.T) {
		w := stack.request(t, "GET", "/api/members/"+uintStr(member.ID), "")

		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "alice@example.com")
	})

	t.Run("404 for unknown id", func(t *testing.T) {
		w := stack.request(t, "GET", "/api/members/9999", "")

		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestMembersController_SearchMembers(t *testing.T) {
	stack, cleanup := setupHTTPTest(t)
	defer cleanup()
	stack.addMember(t, "alice")
	stack.addMember(t, "bob")

	w := stack.request(t, "GET", "/api/members/search?q=ali", "")

	require.Equal(t, http.StatusOK, w.Code)

	var response map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Equal(t, float64(1), response["count"])
}

func TestMembersController_SetActive(t *testing.T) {
	stack, cleanup := setupHTTPTest(t)
	defer cleanup()
	member := stack.addMember(t, "alice")

	w := stack.request(t, "PATCH", "/api/members/"+uintStr(member.ID)+"/active",
		`{"is_active":false}`)
	require.Equal(t, http.StatusOK, w.Code)

	got, err := stack.members.GetMemberByID(member.ID)
	require.NoError(t, err)
	assert.False(t, got.IsActive)
}

func TestMemberSummaryEndpoint(t *testing.T) {
	stack, cleanup := setupHTTPTest(t)
	defer cleanup()
	book := stack.addBook(t, "Dune", "isbn-1", 1)
	member := stack.addMember(t, "alice")
	_, err := stack.ledger.IssueBook(member.ID, book.ID, 14)
	require.NoError(t, err)

	w := stack.request(t, "GET", "/api/members/"+uintStr(member.ID)+"/summary", "")

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "alice")
	assert.Contains(t, w.Body.String(), "isbn-1")
}
