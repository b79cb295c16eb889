// AngelaMos | 2026
// jwt_test.go

package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/repuestospro/backend/internal/config"
	"github.com/repuestospro/backend/internal/core"
)

type keyPair struct{ private, public string }

func writeKeyPair(t *testing.T, name string) keyPair {
	t.Helper()
	dir := t.TempDir()
	kp := keyPair{
		private: filepath.Join(dir, name+"-private.pem"),
		public:  filepath.Join(dir, name+"-public.pem"),
	}
	require.NoError(t, GenerateKeyPair(kp.private, kp.public))
	return kp
}

func jwtConfig(current keyPair) config.JWTConfig {
	return config.JWTConfig{
		PrivateKeyPath:     current.private,
		PublicKeyPath:      current.public,
		AccessTokenExpire:  15 * time.Minute,
		RefreshTokenExpire: time.Hour,
		Issuer:             "repuestospro",
		Audience:           "repuestospro-api",
	}
}

func TestJWTKeyIDIsStable(t *testing.T) {
	kp := writeKeyPair(t, "a")

	first, err := NewJWTManager(jwtConfig(kp))
	require.NoError(t, err)
	second, err := NewJWTManager(jwtConfig(kp))
	require.NoError(t, err)

	assert.NotEmpty(t, first.GetKeyID())
	assert.Equal(t, first.GetKeyID(), second.GetKeyID())
}

func TestJWTRejectsMismatchedPublicKey(t *testing.T) {
	a := writeKeyPair(t, "a")
	b := writeKeyPair(t, "b")

	cfg := jwtConfig(a)
	cfg.PublicKeyPath = b.public

	_, err := NewJWTManager(cfg)
	require.ErrorIs(t, err, ErrKeyMismatch)
}

func TestJWTKeyRotation(t *testing.T) {
	oldKeys := writeKeyPair(t, "old")
	newKeys := writeKeyPair(t, "new")

	before, err := NewJWTManager(jwtConfig(oldKeys))
	require.NoError(t, err)
	issued, err := before.CreateAccessToken(AccessTokenClaims{
		UserID: "user-1", Role: "client", TokenVersion: 3,
	})
	require.NoError(t, err)

	t.Run("previous key still verifies", func(t *testing.T) {
		cfg := jwtConfig(newKeys)
		cfg.PreviousPublicKeyPath = oldKeys.public
		after, err := NewJWTManager(cfg)
		require.NoError(t, err)

		claims, err := after.VerifyAccessToken(context.Background(), issued)
		require.NoError(t, err)
		assert.Equal(t, "user-1", claims.UserID)
		assert.Equal(t, "client", claims.Role)
		assert.Equal(t, 3, claims.TokenVersion)
		assert.NotEmpty(t, claims.JTI)

		rec := httptest.NewRecorder()
		after.GetJWKSHandler()(rec, httptest.NewRequest(http.MethodGet, "/.well-known/jwks.json", nil))
		require.Equal(t, http.StatusOK, rec.Code)

		var body struct {
			Keys []struct {
				Kid string `json:"kid"`
				Alg string `json:"alg"`
				D   string `json:"d"`
			} `json:"keys"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		require.Len(t, body.Keys, 2)
		for _, k := range body.Keys {
			assert.Equal(t, "ES256", k.Alg)
			assert.Empty(t, k.D, "private material must not be published")
		}
	})

	t.Run("dropped key no longer verifies", func(t *testing.T) {
		after, err := NewJWTManager(jwtConfig(newKeys))
		require.NoError(t, err)

		_, err = after.VerifyAccessToken(context.Background(), issued)
		require.ErrorIs(t, err, core.ErrTokenInvalid)
	})
}

func TestCreateRefreshTokenKeepsFamily(t *testing.T) {
	m, err := NewJWTManager(jwtConfig(writeKeyPair(t, "a")))
	require.NoError(t, err)

	first, err := m.CreateRefreshToken("user-1", "")
	require.NoError(t, err)
	assert.NotEmpty(t, first.FamilyID)
	assert.Equal(t, core.HashToken(first.Token), first.Hash)

	next, err := m.CreateRefreshToken("user-1", first.FamilyID)
	require.NoError(t, err)
	assert.Equal(t, first.FamilyID, next.FamilyID)
	assert.NotEqual(t, first.Token, next.Token)
}
