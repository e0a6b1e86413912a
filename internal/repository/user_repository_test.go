package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/ecom-api/internal/models"
)

func newUserRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestUserRepositoryCreateAndFind(t *testing.T) {
	db, mock, cleanup := newUserRepoMock(t)
	defer cleanup()

	repo := NewUserRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO users")).
		WillReturnResult(sqlmock.NewResult(1, 1))

	user := &models.User{Email: "a@x.com", PasswordHash: "hash", FullName: "A"}
	require.NoError(t, repo.Create(context.Background(), user))
	require.NotEmpty(t, user.ID)

	rows := sqlmock.NewRows([]string{"id", "email", "password_hash", "full_name", "created_at", "updated_at"}).
		AddRow(user.ID, user.Email, user.PasswordHash, user.FullName, time.Now(), time.Now())
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, email, password_hash, full_name")).
		WithArgs(user.Email).
		WillReturnRows(rows)

	found, err := repo.FindByEmail(context.Background(), user.Email)
	require.NoError(t, err)
	require.Equal(t, user.ID, found.ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepositoryFindByEmailNoRows(t *testing.T) {
	db, mock, cleanup := newUserRepoMock(t)
	defer cleanup()

	repo := NewUserRepository(db)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, email, password_hash, full_name")).
		WithArgs("missing@x.com").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.FindByEmail(context.Background(), "missing@x.com")
	require.ErrorIs(t, err, sql.ErrNoRows)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepositoryCreateRefreshToken(t *testing.T) {
	db, mock, cleanup := newUserRepoMock(t)
	defer cleanup()

	repo := NewUserRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO refresh_tokens")).
		WillReturnResult(sqlmock.NewResult(1, 1))

	token := &models.RefreshToken{
		UserID:    "u1",
		TokenHash: "abc123",
		ExpiresAt: time.Now().Add(720 * time.Hour),
	}
	require.NoError(t, repo.CreateRefreshToken(context.Background(), token))
	require.NotEmpty(t, token.ID)
	require.False(t, token.CreatedAt.IsZero())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepositoryFindRefreshTokenByHash(t *testing.T) {
	db, mock, cleanup := newUserRepoMock(t)
	defer cleanup()

	repo := NewUserRepository(db)
	expiresAt := time.Now().Add(time.Hour)
	rows := sqlmock.NewRows([]string{"id", "user_id", "token_hash", "expires_at", "created_at", "revoked", "revoked_at", "ip_address", "user_agent"}).
		AddRow("rt-1", "u1", "abc123", expiresAt, time.Now(), false, nil, "", "")
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, user_id, token_hash, expires_at")).
		WithArgs("abc123").
		WillReturnRows(rows)

	rt, err := repo.FindRefreshTokenByHash(context.Background(), "abc123")
	require.NoError(t, err)
	require.Equal(t, "rt-1", rt.ID)
	require.Equal(t, "u1", rt.UserID)
	require.False(t, rt.Revoked)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepositoryRevokeRefreshToken(t *testing.T) {
	db, mock, cleanup := newUserRepoMock(t)
	defer cleanup()

	repo := NewUserRepository(db)
	revokedAt := time.Now().UTC()

	// First caller flips the row.
	mock.ExpectExec(regexp.QuoteMeta("UPDATE refresh_tokens SET revoked = TRUE")).
		WithArgs("rt-1", revokedAt).
		WillReturnResult(sqlmock.NewResult(0, 1))

	revoked, err := repo.RevokeRefreshToken(context.Background(), "rt-1", revokedAt)
	require.NoError(t, err)
	require.True(t, revoked)

	// A second caller finds the condition already false and affects no rows.
	mock.ExpectExec(regexp.QuoteMeta("UPDATE refresh_tokens SET revoked = TRUE")).
		WithArgs("rt-1", revokedAt).
		WillReturnResult(sqlmock.NewResult(0, 0))

	revoked, err = repo.RevokeRefreshToken(context.Background(), "rt-1", revokedAt)
	require.NoError(t, err)
	require.False(t, revoked)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepositoryRevokeUserRefreshTokens(t *testing.T) {
	db, mock, cleanup := newUserRepoMock(t)
	defer cleanup()

	repo := NewUserRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("UPDATE refresh_tokens SET revoked = TRUE")).
		WithArgs("u1", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 3))

	require.NoError(t, repo.RevokeUserRefreshTokens(context.Background(), "u1"))
	require.NoError(t, mock.ExpectationsWereMet())
}
