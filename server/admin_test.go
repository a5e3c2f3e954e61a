package server

import (
	"testing"

	"github.com/lukextesst/user/internal/config"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestAdminSecretHash(t *testing.T) {
	t.Run("disabled", func(t *testing.T) {
		t.Setenv("ADMIN_SECRET", "")
		t.Setenv("ADMIN_SECRET_HASH", "")
		hash, err := adminSecretHash(config.New())
		require.NoError(t, err)
		require.Empty(t, hash)
	})

	t.Run("plain secret is hashed", func(t *testing.T) {
		t.Setenv("ADMIN_SECRET", "s3cret")
		t.Setenv("ADMIN_SECRET_HASH", "")
		hash, err := adminSecretHash(config.New())
		require.NoError(t, err)
		require.NoError(t, bcrypt.CompareHashAndPassword(hash, []byte("s3cret")))
	})

	t.Run("configured hash wins", func(t *testing.T) {
		configured, err := bcrypt.GenerateFromPassword([]byte("from-hash"), bcrypt.MinCost)
		require.NoError(t, err)
		t.Setenv("ADMIN_SECRET", "s3cret")
		t.Setenv("ADMIN_SECRET_HASH", string(configured))

		hash, err := adminSecretHash(config.New())
		require.NoError(t, err)
		require.Equal(t, configured, hash)
	})

	t.Run("malformed hash", func(t *testing.T) {
		t.Setenv("ADMIN_SECRET_HASH", "not-a-hash")
		_, err := adminSecretHash(config.New())
		require.Error(t, err)
	})
}
