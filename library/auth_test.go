package library

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuthenticatePlaintext(t *testing.T) {
	lib := newTestLibrary(t)

	u, ok := lib.Authenticate("Admin", "admin123")
	require.True(t, ok)
	assert.Equal(t, "A001", u.ID)

	_, ok = lib.Authenticate("Admin", "wrong")
	assert.False(t, ok)
	_, ok = lib.Authenticate("admin", "admin123")
	assert.False(t, ok, "names match exactly")
}

func TestAuthenticateHashed(t *testing.T) {
	lib := newTestLibrary(t)
	hash, err := HashSecret("s3cret")
	require.NoError(t, err)
	assert.NotEqual(t, "s3cret", hash)

	_, err = lib.AddUser(adminSession, User{ID: "U003", Name: "Grace", Secret: hash, Role: RoleUser})
	require.NoError(t, err)

	u, ok := lib.Authenticate("Grace", "s3cret")
	require.True(t, ok)
	assert.Equal(t, "U003", u.ID)
	_, ok = lib.Authenticate("Grace", hash)
	assert.False(t, ok, "the hash itself is not a valid password")
}
