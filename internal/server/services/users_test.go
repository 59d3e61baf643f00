package services

import (
	"context"
	"errors"
	"testing"

	"github.com/dmitrijs2005/jazzyauth/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserService(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.registerAndVerify(t, "A", "a@x.com", "pw")
	registerUnverified(t, h, "b@x.com")

	list, err := h.users.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "a@x.com", list[0].Email)
	assert.True(t, list[0].IsActive)
	assert.False(t, list[1].IsActive)

	u, err := h.users.Get(ctx, list[1].ID)
	require.NoError(t, err)
	assert.Equal(t, "b@x.com", u.Email)

	_, err = h.users.Get(ctx, 999)
	assert.ErrorIs(t, err, common.ErrorNotFound)

	u, err = h.users.Current(ctx, "a@x.com")
	require.NoError(t, err)
	assert.Equal(t, list[0].ID, u.ID)

	_, err = h.users.Current(ctx, "ghost@x.com")
	assert.ErrorIs(t, err, common.ErrorUnauthorized)

	h.store.fail["users.List"] = errors.New("boom")
	_, err = h.users.List(ctx)
	assert.ErrorIs(t, err, common.ErrorInternal)
}
