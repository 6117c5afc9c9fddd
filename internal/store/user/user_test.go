package user

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var userRowColumns = []string{"id", "email", "name", "google_connected", "created_at", "updated_at"}

// setupUserStore is a helper that builds a UserStore on a mock pool.
func setupUserStore(t *testing.T) (UserStorer, pgxmock.PgxPoolIface) {
	t.Helper()
	mockPool, err := pgxmock.NewPool()
	require.NoError(t, err)

	return NewUserStore(mockPool), mockPool
}

func TestUserStore_CreateUser(t *testing.T) {
	store, mockPool := setupUserStore(t)
	defer mockPool.Close()

	ctx := context.Background()
	id := uuid.New()
	now := time.Now()
	name := "Ada"

	mockPool.ExpectQuery("INSERT INTO users").
		WithArgs("ada@example.com", "Ada").
		WillReturnRows(pgxmock.NewRows(userRowColumns).
			AddRow(id, "ada@example.com", &name, false, now, now))

	u, err := store.CreateUser(ctx, "ada@example.com", "Ada")

	require.NoError(t, err)
	assert.Equal(t, id, u.ID)
	assert.Equal(t, "ada@example.com", u.Email)
	require.NotNil(t, u.Name)
	assert.Equal(t, "Ada", *u.Name)
	assert.False(t, u.GoogleConnected)
	assert.NoError(t, mockPool.ExpectationsWereMet())
}

func TestUserStore_CreateUser_Error(t *testing.T) {
	store, mockPool := setupUserStore(t)
	defer mockPool.Close()

	mockPool.ExpectQuery("INSERT INTO users").
		WithArgs("ada@example.com", "Ada").
		WillReturnError(errors.New("unique violation"))

	_, err := store.CreateUser(context.Background(), "ada@example.com", "Ada")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "db scan error")
	assert.NoError(t, mockPool.ExpectationsWereMet())
}

func TestUserStore_GetUserByID(t *testing.T) {
	store, mockPool := setupUserStore(t)
	defer mockPool.Close()

	id := uuid.New()
	now := time.Now()

	mockPool.ExpectQuery("SELECT (.+) FROM users WHERE id = \\$1").
		WithArgs(id).
		WillReturnRows(pgxmock.NewRows(userRowColumns).
			AddRow(id, "grace@example.com", (*string)(nil), true, now, now))

	u, err := store.GetUserByID(context.Background(), id)

	require.NoError(t, err)
	assert.Equal(t, id, u.ID)
	assert.Nil(t, u.Name)
	assert.True(t, u.GoogleConnected)
	assert.NoError(t, mockPool.ExpectationsWereMet())
}

func TestUserStore_GetUserByID_NotFound(t *testing.T) {
	store, mockPool := setupUserStore(t)
	defer mockPool.Close()

	id := uuid.New()
	mockPool.ExpectQuery("SELECT (.+) FROM users WHERE id = \\$1").
		WithArgs(id).
		WillReturnError(pgx.ErrNoRows)

	_, err := store.GetUserByID(context.Background(), id)

	assert.ErrorIs(t, err, ErrUserNotFound)
	assert.NoError(t, mockPool.ExpectationsWereMet())
}

func TestUserStore_ListUsers(t *testing.T) {
	store, mockPool := setupUserStore(t)
	defer mockPool.Close()

	now := time.Now()
	a, b := uuid.New(), uuid.New()

	mockPool.ExpectQuery("SELECT (.+) FROM users ORDER BY created_at").
		WillReturnRows(pgxmock.NewRows(userRowColumns).
			AddRow(a, "a@example.com", (*string)(nil), false, now, now).
			AddRow(b, "b@example.com", (*string)(nil), true, now, now))

	users, err := store.ListUsers(context.Background())

	require.NoError(t, err)
	require.Len(t, users, 2)
	assert.Equal(t, a, users[0].ID)
	assert.True(t, users[1].GoogleConnected)
	assert.NoError(t, mockPool.ExpectationsWereMet())
}

func TestUserStore_ListConnectedUsers(t *testing.T) {
	store, mockPool := setupUserStore(t)
	defer mockPool.Close()

	now := time.Now()
	id := uuid.New()

	mockPool.ExpectQuery("WHERE google_connected = TRUE").
		WillReturnRows(pgxmock.NewRows(userRowColumns).
			AddRow(id, "a@example.com", (*string)(nil), true, now, now))

	users, err := store.ListConnectedUsers(context.Background())

	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, id, users[0].ID)
	assert.NoError(t, mockPool.ExpectationsWereMet())
}

func TestUserStore_ListUsers_QueryError(t *testing.T) {
	store, mockPool := setupUserStore(t)
	defer mockPool.Close()

	mockPool.ExpectQuery("SELECT (.+) FROM users").
		WillReturnError(errors.New("connection reset"))

	users, err := store.ListUsers(context.Background())

	assert.Nil(t, users)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "db query error")
	assert.NoError(t, mockPool.ExpectationsWereMet())
}
