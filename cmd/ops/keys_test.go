// AngelaMos | 2026
// keys_test.go

package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/repuestospro/backend/internal/auth"
	"github.com/repuestospro/backend/internal/config"
)

func TestKeysGenerate(t *testing.T) {
	dir := t.TempDir()
	private := filepath.Join(dir, "keys", "private.pem")
	public := filepath.Join(dir, "keys", "public.pem")

	run := func(args ...string) error {
		cmd := newRootCmd()
		cmd.SetArgs(append([]string{"keys", "generate", "--private", private, "--public", public}, args...))
		return cmd.Execute()
	}

	require.NoError(t, run())

	info, err := os.Stat(private)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	manager, err := auth.NewJWTManager(config.JWTConfig{
		PrivateKeyPath:     private,
		PublicKeyPath:      public,
		AccessTokenExpire:  15 * time.Minute,
		RefreshTokenExpire: 24 * time.Hour,
		Issuer:             "repuestospro",
		Audience:           "repuestospro-api",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, manager.GetKeyID())

	t.Run("refuses to overwrite", func(t *testing.T) {
		assert.Error(t, run())
	})

	t.Run("overwrite flag replaces keys", func(t *testing.T) {
		require.NoError(t, run("--overwrite"))
	})
}
