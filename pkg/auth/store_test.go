package auth

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func userRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "organization_id", "name", "email", "password_hash",
		"access_level", "is_active", "created_at", "updated_at",
	})
}

func TestPostgresUserStore_GetByID(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(`SELECT .+ FROM users WHERE id = \$1`).
		WithArgs(int64(7)).
		WillReturnRows(userRows().AddRow(
			7, 3, "Joana Lima", "joana@exemplo.com.br", "hash",
			"admin", true, time.Now(), time.Now(),
		))

	store := NewPostgresUserStore(db)
	user, err := store.GetByID(context.Background(), 7)
	require.NoError(t, err)

	assert.Equal(t, int64(3), user.OrganizationID)
	assert.Equal(t, LevelAdmin, user.AccessLevel)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresUserStore_GetByID_NotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(`SELECT .+ FROM users WHERE id = \$1`).
		WithArgs(int64(99)).
		WillReturnRows(userRows())

	store := NewPostgresUserStore(db)
	_, err = store.GetByID(context.Background(), 99)
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestPostgresUserStore_SetActive_ScopedToOrg(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	// the org predicate must appear so another tenant's user cannot be hit
	mock.ExpectExec(`UPDATE users SET is_active = \$1, updated_at = NOW\(\)\s+WHERE id = \$2 AND organization_id = \$3`).
		WithArgs(false, int64(7), int64(3)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	store := NewPostgresUserStore(db)
	require.NoError(t, store.SetActive(context.Background(), 3, 7, false))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresUserStore_SetActive_WrongTenantIsNotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec(`UPDATE users SET is_active`).
		WithArgs(false, int64(7), int64(99)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	store := NewPostgresUserStore(db)
	err = store.SetActive(context.Background(), 99, 7, false)
	assert.ErrorIs(t, err, ErrUserNotFound)
}
