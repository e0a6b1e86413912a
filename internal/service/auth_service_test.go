package service

import (
	"context"
	"database/sql"
	"sync"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/ecom-api/internal/models"
	appErrors "github.com/noah-isme/ecom-api/pkg/errors"
)

// mockAuthRepo is an in-memory refresh record store whose revoke is a
// real compare-and-set, so concurrency tests exercise the same
// exactly-one-winner contract the SQL store provides. Call counters let
// tests assert which store operations a path touched.
type mockAuthRepo struct {
	mu sync.Mutex

	users  map[string]*models.User
	tokens map[string]*models.RefreshToken

	findTokenCalls   int
	createTokenCalls int
	revokeCalls      int
}

func newMockAuthRepo(users ...*models.User) *mockAuthRepo {
	repo := &mockAuthRepo{
		users:  make(map[string]*models.User),
		tokens: make(map[string]*models.RefreshToken),
	}
	for _, u := range users {
		repo.users[u.ID] = u
	}
	return repo
}

func (m *mockAuthRepo) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *mockAuthRepo) FindByID(ctx context.Context, id string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.users[id]; ok {
		return u, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockAuthRepo) CreateRefreshToken(ctx context.Context, token *models.RefreshToken) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.createTokenCalls++
	copied := *token
	m.tokens[token.TokenHash] = &copied
	return nil
}

func (m *mockAuthRepo) FindRefreshTokenByHash(ctx context.Context, hash string) (*models.RefreshToken, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.findTokenCalls++
	if rt, ok := m.tokens[hash]; ok {
		copied := *rt
		return &copied, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockAuthRepo) RevokeRefreshToken(ctx context.Context, id string, revokedAt time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.revokeCalls++
	for _, rt := range m.tokens {
		if rt.ID == id {
			if rt.Revoked {
				return false, nil
			}
			rt.Revoked = true
			rt.RevokedAt = &revokedAt
			return true, nil
		}
	}
	return false, nil
}

func (m *mockAuthRepo) RevokeUserRefreshTokens(ctx context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now().UTC()
	for _, rt := range m.tokens {
		if rt.UserID == userID && !rt.Revoked {
			rt.Revoked = true
			rt.RevokedAt = &now
		}
	}
	return nil
}

func (m *mockAuthRepo) storeCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.findTokenCalls + m.createTokenCalls + m.revokeCalls
}

func (m *mockAuthRepo) recordByHash(hash string) *models.RefreshToken {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.tokens[hash]
}

func (m *mockAuthRepo) activeRecords() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	count := 0
	for _, rt := range m.tokens {
		if !rt.Revoked {
			count++
		}
	}
	return count
}

func testUser(t *testing.T) *models.User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("secret"), bcrypt.MinCost)
	require.NoError(t, err)
	return &models.User{ID: "u1", Email: "a@x.com", PasswordHash: string(hash), FullName: "A"}
}

func newTestAuthService(repo *mockAuthRepo) *AuthService {
	return NewAuthService(repo, validator.New(), zap.NewNop(), AuthConfig{
		Secret:             "test-secret",
		AccessTokenExpiry:  24 * time.Hour,
		RefreshTokenExpiry: 720 * time.Hour,
		Issuer:             "ecom-api",
	})
}

func TestLoginIssuesDecodableAccessToken(t *testing.T) {
	repo := newMockAuthRepo(testUser(t))
	svc := newTestAuthService(repo)

	pair, err := svc.Login(context.Background(), models.LoginRequest{Email: "a@x.com", Password: "secret"})
	require.NoError(t, err)
	require.NotEmpty(t, pair.AccessToken)
	require.NotEmpty(t, pair.ClientCredential)

	claims := &models.JWTClaims{}
	_, err = jwt.ParseWithClaims(pair.AccessToken, claims, func(*jwt.Token) (interface{}, error) {
		return []byte("test-secret"), nil
	})
	require.NoError(t, err)
	assert.Equal(t, "u1", claims.Subject)
	assert.Equal(t, "u1", claims.UserID)

	wantExpiry := time.Now().Add(24 * time.Hour)
	assert.WithinDuration(t, wantExpiry, claims.ExpiresAt.Time, time.Minute)
}

func TestLoginInvalidPassword(t *testing.T) {
	repo := newMockAuthRepo(testUser(t))
	svc := newTestAuthService(repo)

	_, err := svc.Login(context.Background(), models.LoginRequest{Email: "a@x.com", Password: "wrong"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidCredentials.Code, appErrors.FromError(err).Code)
	assert.Zero(t, repo.createTokenCalls)
}

func TestLoginUnknownEmailSameFailure(t *testing.T) {
	repo := newMockAuthRepo(testUser(t))
	svc := newTestAuthService(repo)

	_, err := svc.Login(context.Background(), models.LoginRequest{Email: "nobody@x.com", Password: "secret"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidCredentials.Code, appErrors.FromError(err).Code)
}

func TestRefreshRotatesExactlyOnce(t *testing.T) {
	repo := newMockAuthRepo(testUser(t))
	svc := newTestAuthService(repo)

	pair, err := svc.Login(context.Background(), models.LoginRequest{Email: "a@x.com", Password: "secret"})
	require.NoError(t, err)

	rotated, err := svc.Refresh(context.Background(), models.RefreshRequest{RefreshToken: pair.ClientCredential})
	require.NoError(t, err)
	assert.NotEqual(t, pair.AccessToken, rotated.AccessToken)
	assert.NotEqual(t, pair.ClientCredential, rotated.ClientCredential)

	// The old credential is spent; a replay fails as revoked.
	_, err = svc.Refresh(context.Background(), models.RefreshRequest{RefreshToken: pair.ClientCredential})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrTokenRevoked)
	assert.Equal(t, appErrors.ErrUnauthorized.Code, appErrors.FromError(err).Code)

	// Old record revoked, new record active.
	old := repo.recordByHash(fingerprintCredential(pair.ClientCredential))
	require.NotNil(t, old)
	assert.True(t, old.Revoked)
	assert.Equal(t, 1, repo.activeRecords())
}

func TestRefreshMalformedCredentialNeverTouchesStore(t *testing.T) {
	repo := newMockAuthRepo(testUser(t))
	svc := newTestAuthService(repo)

	for _, raw := range []string{"nodupelimiter", "|tail", "head|", "a|b|c"} {
		_, err := svc.Refresh(context.Background(), models.RefreshRequest{RefreshToken: raw})
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrCredentialMalformed)
		assert.Equal(t, appErrors.ErrMalformedCredential.Code, appErrors.FromError(err).Code)
	}

	assert.Zero(t, repo.storeCalls())
}

func TestRefreshTamperedSignatureNeverTouchesStore(t *testing.T) {
	repo := newMockAuthRepo(testUser(t))
	svc := newTestAuthService(repo)

	pair, err := svc.Login(context.Background(), models.LoginRequest{Email: "a@x.com", Password: "secret"})
	require.NoError(t, err)
	before := repo.storeCalls()

	_, err = svc.Refresh(context.Background(), models.RefreshRequest{RefreshToken: pair.ClientCredential + "x"})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrTokenInvalid)
	assert.Equal(t, before, repo.storeCalls())
}

func TestRefreshExpiredRecordWinsOverUnrevoked(t *testing.T) {
	repo := newMockAuthRepo(testUser(t))
	svc := newTestAuthService(repo)

	pair, err := svc.Login(context.Background(), models.LoginRequest{Email: "a@x.com", Password: "secret"})
	require.NoError(t, err)

	record := repo.recordByHash(fingerprintCredential(pair.ClientCredential))
	require.NotNil(t, record)
	record.ExpiresAt = time.Now().UTC().Add(-time.Hour)
	require.False(t, record.Revoked)

	revokesBefore := repo.revokeCalls
	_, err = svc.Refresh(context.Background(), models.RefreshRequest{RefreshToken: pair.ClientCredential})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrTokenExpired)
	// Expiry is terminal without mutation: the record stays unrevoked.
	assert.Equal(t, revokesBefore, repo.revokeCalls)
	assert.False(t, repo.recordByHash(fingerprintCredential(pair.ClientCredential)).Revoked)
}

func TestRefreshUnknownCredential(t *testing.T) {
	repo := newMockAuthRepo(testUser(t))
	svc := newTestAuthService(repo)

	// A well-formed credential signed with our secret but never stored.
	pair, err := svc.Login(context.Background(), models.LoginRequest{Email: "a@x.com", Password: "secret"})
	require.NoError(t, err)
	_, signed, err := splitCredential(pair.ClientCredential)
	require.NoError(t, err)

	_, err = svc.Refresh(context.Background(), models.RefreshRequest{RefreshToken: "other-opaque|" + signed})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrTokenNotFound)
	assert.Equal(t, appErrors.ErrUnauthorized.Code, appErrors.FromError(err).Code)
}

func TestConcurrentRefreshSingleWinner(t *testing.T) {
	repo := newMockAuthRepo(testUser(t))
	svc := newTestAuthService(repo)

	pair, err := svc.Login(context.Background(), models.LoginRequest{Email: "a@x.com", Password: "secret"})
	require.NoError(t, err)

	const n = 16
	var wg sync.WaitGroup
	wg.Add(n)
	results := make(chan error, n)
	for i := 0; i < n; i++ {
		go func() {
			defer wg.Done()
			_, err := svc.Refresh(context.Background(), models.RefreshRequest{RefreshToken: pair.ClientCredential})
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	success, lostRace := 0, 0
	for err := range results {
		if err == nil {
			success++
			continue
		}
		if assert.True(t, isAuthOutcome(err), "unexpected refresh error: %v", err) {
			lostRace++
		}
	}

	assert.Equal(t, 1, success)
	assert.Equal(t, n-1, lostRace)
	// Exactly one replacement record was persisted: the login record plus
	// one rotation product.
	assert.Equal(t, 2, repo.createTokenCalls)
	assert.Equal(t, 1, repo.activeRecords())
}

func isAuthOutcome(err error) bool {
	appErr := appErrors.FromError(err)
	return appErr.Code == appErrors.ErrUnauthorized.Code
}

func TestLogoutRevokesAndIsIdempotent(t *testing.T) {
	repo := newMockAuthRepo(testUser(t))
	svc := newTestAuthService(repo)

	pair, err := svc.Login(context.Background(), models.LoginRequest{Email: "a@x.com", Password: "secret"})
	require.NoError(t, err)

	revoked, err := svc.Logout(context.Background(), pair.ClientCredential)
	require.NoError(t, err)
	assert.True(t, revoked)

	revoked, err = svc.Logout(context.Background(), pair.ClientCredential)
	require.NoError(t, err)
	assert.False(t, revoked)

	// A revoked credential no longer refreshes.
	_, err = svc.Refresh(context.Background(), models.RefreshRequest{RefreshToken: pair.ClientCredential})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrTokenRevoked)
}

func TestLogoutUnknownCredential(t *testing.T) {
	repo := newMockAuthRepo(testUser(t))
	svc := newTestAuthService(repo)

	revoked, err := svc.Logout(context.Background(), "never|seen")
	require.NoError(t, err)
	assert.False(t, revoked)
}

func TestValidateTokenRejectsExpired(t *testing.T) {
	repo := newMockAuthRepo(testUser(t))
	svc := newTestAuthService(repo)

	issuedAt := time.Now().UTC().Add(-2 * time.Hour)
	claims := &models.JWTClaims{
		UserID: "u1",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "u1",
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(issuedAt.Add(time.Hour)),
		},
	}
	expired, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	require.NoError(t, err)

	_, err = svc.ValidateToken(expired)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrTokenExpired)
	assert.Equal(t, appErrors.ErrUnauthorized.Code, appErrors.FromError(err).Code)
}

func TestValidateTokenRejectsWrongSecret(t *testing.T) {
	repo := newMockAuthRepo(testUser(t))
	svc := newTestAuthService(repo)

	claims := &models.JWTClaims{UserID: "u1", RegisteredClaims: jwt.RegisteredClaims{
		Subject:   "u1",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}}
	forged, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("other-secret"))
	require.NoError(t, err)

	_, err = svc.ValidateToken(forged)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrTokenInvalid)
}
