package session

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmarquina/tienda-cli/internal/api"
)

func TestStoreRoundTrip(t *testing.T) {
	store := NewStore(t.TempDir())

	assert.Empty(t, store.LoadToken())
	assert.Nil(t, store.LoadProfile())

	require.NoError(t, store.SaveToken("abc"))
	require.NoError(t, store.SaveProfile(&api.UserProfile{ID: 1, Email: "ana@tienda.test", Role: "client"}))

	assert.Equal(t, "abc", store.LoadToken())
	profile := store.LoadProfile()
	require.NotNil(t, profile)
	assert.Equal(t, int64(1), profile.ID)

	store.Clear()
	assert.Empty(t, store.LoadToken())
	assert.Nil(t, store.LoadProfile())
}

func TestStoreClearIsIdempotent(t *testing.T) {
	store := NewStore(t.TempDir())
	store.Clear()
	store.Clear()
}

func TestStoreCreatesDirectory(t *testing.T) {
	store := NewStore(t.TempDir() + "/nested/deeper")
	require.NoError(t, store.SaveToken("abc"))
	assert.Equal(t, "abc", store.LoadToken())
}
