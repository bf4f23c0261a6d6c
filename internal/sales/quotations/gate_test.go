package quotations

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/vantage-erp/vantage-erp/internal/auth"
)

func TestCanEdit(t *testing.T) {
	sales := auth.NewRoleSet("SALES")
	manager := auth.NewRoleSet("MANAGER")

	t.Run("unsaved record always editable", func(t *testing.T) {
		assert.True(t, CanEdit(false, StatusActive, sales))
		assert.True(t, CanEdit(false, StatusDraft, auth.RoleSet{}))
	})

	t.Run("persisted draft editable", func(t *testing.T) {
		assert.True(t, CanEdit(true, StatusDraft, sales))
	})

	t.Run("persisted active locked for non-managers", func(t *testing.T) {
		assert.False(t, CanEdit(true, StatusActive, sales))
		assert.False(t, CanEdit(true, StatusActive, auth.RoleSet{}))
	})

	t.Run("manager overrides active lock", func(t *testing.T) {
		assert.True(t, CanEdit(true, StatusActive, manager))
	})

	t.Run("other statuses follow persisted rule", func(t *testing.T) {
		assert.True(t, CanEdit(true, StatusCancelled, sales))
		assert.True(t, CanEdit(true, StatusExpired, sales))
		assert.True(t, CanEdit(true, StatusConverted, sales))
	})
}

func TestCanTransition(t *testing.T) {
	cases := []struct {
		from, to Status
		want     bool
	}{
		{StatusDraft, StatusActive, true},
		{StatusDraft, StatusCancelled, true},
		{StatusDraft, StatusConverted, false},
		{StatusDraft, StatusExpired, false},
		{StatusActive, StatusConverted, true},
		{StatusActive, StatusCancelled, true},
		{StatusActive, StatusExpired, true},
		{StatusActive, StatusDraft, false},
		{StatusConverted, StatusActive, false},
		{StatusCancelled, StatusDraft, false},
		{StatusExpired, StatusActive, false},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, tc.from.CanTransition(tc.to), "%s -> %s", tc.from, tc.to)
	}
}

func TestAvailableActions(t *testing.T) {
	assert.Nil(t, AvailableActions(false, StatusDraft))
	assert.Equal(t, []string{ActionSend}, AvailableActions(true, StatusDraft))
	assert.Equal(t, []string{ActionClone}, AvailableActions(true, StatusActive))
	assert.Empty(t, AvailableActions(true, StatusCancelled))
	assert.Empty(t, AvailableActions(true, StatusConverted))
	assert.Empty(t, AvailableActions(true, StatusExpired))
}
