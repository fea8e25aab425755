package directory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	pgxmock "github.com/pashagolub/pgxmock/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lqviet45/light-novel-BE/internal/domain"
)

func strPtr(s string) *string { return &s }

func userRows() *pgxmock.Rows {
	return pgxmock.NewRows(userColumns).AddRow(
		int64(7), "a@x.com", strPtr("alice"), strPtr("Alice"), strPtr("Nguyen"), "ACTIVE",
		true, true, true, true, true, strPtr("$2a$10$hash"), nil,
	)
}

func TestPostgresDirectory_GetByEmail(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	dir := NewPostgresDirectory(mock, time.Second)

	mock.ExpectQuery(`SELECT (.+) FROM users WHERE lower\(email\) = lower\(\$1\) AND deleted_at IS NULL`).
		WithArgs("A@x.com").
		WillReturnRows(userRows())
	mock.ExpectQuery(`SELECT r\.name FROM roles r JOIN user_roles ur ON ur\.role_id = r\.id WHERE ur\.user_id = \$1`).
		WithArgs(int64(7)).
		WillReturnRows(pgxmock.NewRows([]string{"name"}).AddRow("ADMIN").AddRow("USER"))

	identity, err := dir.GetByEmail(context.Background(), "A@x.com")
	require.NoError(t, err)
	assert.EqualValues(t, 7, identity.ID)
	assert.Equal(t, "alice", identity.Username)
	assert.Equal(t, "Alice Nguyen", identity.FullName)
	assert.Equal(t, domain.UserStatusActive, identity.Status)
	assert.Equal(t, "$2a$10$hash", identity.PasswordHash)
	assert.Equal(t, []string{"ADMIN", "USER"}, identity.Roles)
	assert.True(t, identity.Active())
	assert.Nil(t, identity.LastLoginAt)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresDirectory_NotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	dir := NewPostgresDirectory(mock, time.Second)
	mock.ExpectQuery(`FROM users WHERE id = \$1`).
		WithArgs(int64(99)).
		WillReturnError(pgx.ErrNoRows)

	_, err = dir.GetByID(context.Background(), 99)
	require.ErrorIs(t, err, ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresDirectory_QueryFailureIsUnavailable(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	dir := NewPostgresDirectory(mock, time.Second)
	mock.ExpectQuery(`FROM users`).
		WithArgs("a@x.com").
		WillReturnError(errors.New("connection reset"))

	_, err = dir.GetByEmail(context.Background(), "a@x.com")
	require.ErrorIs(t, err, ErrUnavailable)
}

func TestPostgresDirectory_UpdateLastLogin(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	dir := NewPostgresDirectory(mock, time.Second)

	mock.ExpectExec(`UPDATE users SET last_login_at = \$1 WHERE id = \$2 AND deleted_at IS NULL`).
		WithArgs(pgxmock.AnyArg(), int64(7)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectExec(`UPDATE users`).
		WithArgs(pgxmock.AnyArg(), int64(8)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	require.NoError(t, dir.UpdateLastLogin(context.Background(), 7))
	require.ErrorIs(t, dir.UpdateLastLogin(context.Background(), 8), ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}
