// AngelaMos | 2026
// fakes_test.go

package auth

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/repuestospro/backend/internal/config"
	"github.com/repuestospro/backend/internal/core"
)

type memRepo struct {
	mu      sync.Mutex
	tokens  map[string]*RefreshToken
	backups map[string]*BackupCode
}

func newMemRepo() *memRepo {
	return &memRepo{
		tokens:  map[string]*RefreshToken{},
		backups: map[string]*BackupCode{},
	}
}

func (m *memRepo) Create(_ context.Context, t *RefreshToken) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	t.CreatedAt = time.Now()
	cp := *t
	m.tokens[t.ID] = &cp
	return nil
}

func (m *memRepo) FindByHash(_ context.Context, hash string) (*RefreshToken, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, t := range m.tokens {
		if t.TokenHash == hash {
			cp := *t
			return &cp, nil
		}
	}
	return nil, core.ErrNotFound
}

func (m *memRepo) FindByID(_ context.Context, id string) (*RefreshToken, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if t, ok := m.tokens[id]; ok {
		cp := *t
		return &cp, nil
	}
	return nil, core.ErrNotFound
}

func revoke(t *RefreshToken) {
	if t.RevokedAt == nil {
		now := time.Now()
		t.RevokedAt = &now
	}
}

func (m *memRepo) MarkAsUsed(_ context.Context, id, replacedBy string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tokens[id]
	if !ok || t.IsUsed {
		return core.ErrNotFound
	}
	now := time.Now()
	t.IsUsed, t.UsedAt, t.ReplacedByID = true, &now, &replacedBy
	return nil
}

func (m *memRepo) RevokeByID(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tokens[id]
	if !ok || t.RevokedAt != nil {
		return core.ErrNotFound
	}
	revoke(t)
	return nil
}

func (m *memRepo) RevokeByFamilyID(_ context.Context, familyID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, t := range m.tokens {
		if t.FamilyID == familyID {
			revoke(t)
		}
	}
	return nil
}

func (m *memRepo) RevokeAllForUser(_ context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, t := range m.tokens {
		if t.UserID == userID {
			revoke(t)
		}
	}
	return nil
}

func (m *memRepo) GetActiveSessionsForUser(_ context.Context, userID string) ([]RefreshToken, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []RefreshToken
	for _, t := range m.tokens {
		if t.UserID == userID && t.Check(time.Now()) == nil {
			out = append(out, *t)
		}
	}
	return out, nil
}

func (m *memRepo) DeleteExpired(context.Context) (int64, error) { return 0, nil }

func (m *memRepo) ReplaceBackupCodes(_ context.Context, userID string, hashes []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, bc := range m.backups {
		if bc.UserID == userID {
			delete(m.backups, id)
		}
	}
	for _, h := range hashes {
		id := uuid.New().String()
		m.backups[id] = &BackupCode{ID: id, UserID: userID, CodeHash: h}
	}
	return nil
}

func (m *memRepo) ListUnusedBackupCodes(_ context.Context, userID string) ([]BackupCode, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []BackupCode
	for _, bc := range m.backups {
		if bc.UserID == userID && bc.UsedAt == nil {
			out = append(out, *bc)
		}
	}
	return out, nil
}

func (m *memRepo) CountUnusedBackupCodes(ctx context.Context, userID string) (int, error) {
	codes, err := m.ListUnusedBackupCodes(ctx, userID)
	return len(codes), err
}

func (m *memRepo) MarkBackupCodeUsed(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	bc, ok := m.backups[id]
	if !ok || bc.UsedAt != nil {
		return core.ErrNotFound
	}
	now := time.Now()
	bc.UsedAt = &now
	return nil
}

func (m *memRepo) DeleteBackupCodes(_ context.Context, userID string) error {
	return m.ReplaceBackupCodes(context.Background(), userID, nil)
}

type memUsers struct {
	mu    sync.Mutex
	users map[string]*UserInfo
}

func newMemUsers() *memUsers {
	return &memUsers{users: map[string]*UserInfo{}}
}

func (m *memUsers) add(t *testing.T, email, password, role string) *UserInfo {
	t.Helper()
	hash, err := core.HashPassword(password)
	require.NoError(t, err)
	u := &UserInfo{ID: uuid.New().String(), Email: email, Name: "Test", PasswordHash: hash, Role: role}
	m.mu.Lock()
	m.users[u.ID] = u
	m.mu.Unlock()
	return u
}

func (m *memUsers) GetByEmail(_ context.Context, email string) (*UserInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, core.ErrNotFound
}

func (m *memUsers) GetByID(_ context.Context, id string) (*UserInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.users[id]; ok {
		cp := *u
		return &cp, nil
	}
	return nil, core.ErrNotFound
}

func (m *memUsers) Create(_ context.Context, p NewUser) (*UserInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == p.Email {
			return nil, core.ErrDuplicateKey
		}
	}
	u := &UserInfo{
		ID:           uuid.New().String(),
		Email:        p.Email,
		Name:         p.Name,
		Phone:        p.Phone,
		PasswordHash: p.PasswordHash,
		Role:         p.Role,
		CreatedAt:    time.Now(),
	}
	m.users[u.ID] = u
	cp := *u
	return &cp, nil
}

func (m *memUsers) IncrementTokenVersion(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[id].TokenVersion++
	return nil
}

func (m *memUsers) UpdatePassword(_ context.Context, id, hash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[id].PasswordHash = hash
	return nil
}

func (m *memUsers) SetTwoFactor(_ context.Context, id string, enabled bool, secret string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[id].TwoFactorEnabled = enabled
	m.users[id].TwoFactorSecret = secret
	return nil
}

type memTokens struct {
	// delay stands in for the store round trip before a reservation lands.
	delay      time.Duration
	mu         sync.Mutex
	blacklist  map[string]bool
	challenges map[string]*TwoFactorChallenge
}

func newMemTokens() *memTokens {
	return &memTokens{blacklist: map[string]bool{}, challenges: map[string]*TwoFactorChallenge{}}
}

func (m *memTokens) BlacklistJTI(_ context.Context, jti string, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.blacklist[jti] = true
	return nil
}

func (m *memTokens) IsBlacklisted(_ context.Context, jti string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.blacklist[jti], nil
}

func (m *memTokens) SaveChallenge(_ context.Context, token, userID string, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.challenges[token] = &TwoFactorChallenge{UserID: userID}
	return nil
}

func (m *memTokens) ReserveChallengeAttempt(
	_ context.Context,
	token string,
) (*TwoFactorChallenge, error) {
	time.Sleep(m.delay)
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.challenges[token]
	if !ok {
		return nil, core.ErrNotFound
	}
	c.Attempts++
	cp := *c
	return &cp, nil
}

func (m *memTokens) DeleteChallenge(_ context.Context, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.challenges, token)
	return nil
}

type fakeCodes struct {
	role     string
	err      error
	attached map[string]string
	released []string
}

func (f *fakeCodes) Redeem(_ context.Context, _, _ string) (*RedeemedCode, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &RedeemedCode{ID: "code-1", Role: f.role}, nil
}

func (f *fakeCodes) AttachUser(_ context.Context, codeID, userID string) error {
	if f.attached == nil {
		f.attached = map[string]string{}
	}
	f.attached[codeID] = userID
	return nil
}

func (f *fakeCodes) Release(_ context.Context, codeID string) error {
	f.released = append(f.released, codeID)
	return nil
}

type testEnv struct {
	svc    *Service
	repo   *memRepo
	users  *memUsers
	tokens *memTokens
	codes  *fakeCodes
	jwt    *JWTManager
}

func newTestJWT(t *testing.T) *JWTManager {
	t.Helper()
	dir := t.TempDir()
	priv := filepath.Join(dir, "private.pem")
	pub := filepath.Join(dir, "public.pem")
	require.NoError(t, GenerateKeyPair(priv, pub))

	m, err := NewJWTManager(config.JWTConfig{
		PrivateKeyPath:     priv,
		PublicKeyPath:      pub,
		AccessTokenExpire:  15 * time.Minute,
		RefreshTokenExpire: time.Hour,
		Issuer:             "repuestospro",
		Audience:           "repuestospro-api",
	})
	require.NoError(t, err)
	return m
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	env := &testEnv{
		repo:   newMemRepo(),
		users:  newMemUsers(),
		tokens: newMemTokens(),
		codes:  &fakeCodes{role: "store_manager"},
		jwt:    newTestJWT(t),
	}
	env.svc = NewService(Deps{
		Repo:   env.repo,
		JWT:    env.jwt,
		Users:  env.users,
		Tokens: env.tokens,
		Codes:  env.codes,
		TwoFactor: config.TwoFactorConfig{
			Issuer:          "RepuestosPro",
			ChallengeTTL:    5 * time.Minute,
			MaxAttempts:     3,
			BackupCodeCount: 10,
		},
	})
	return env
}
