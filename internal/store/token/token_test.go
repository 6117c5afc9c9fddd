package token

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"gcal-connect-api/internal/crypto"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
)

func setupTokenStore(t *testing.T) (TokenStorer, *crypto.Box, pgxmock.PgxPoolIface) {
	t.Helper()
	mockPool, err := pgxmock.NewPool()
	require.NoError(t, err)

	box, err := crypto.NewBox([]byte("12345678901234567890123456789012"))
	require.NoError(t, err)

	return NewTokenStore(mockPool, box, zap.NewNop()), box, mockPool
}

func sealToken(t *testing.T, box *crypto.Box, tok *oauth2.Token) []byte {
	t.Helper()
	raw, err := json.Marshal(tok)
	require.NoError(t, err)
	sealed, err := box.Seal(raw)
	require.NoError(t, err)
	return sealed
}

func testToken() *oauth2.Token {
	return &oauth2.Token{
		AccessToken:  "ya29.access",
		TokenType:    "Bearer",
		RefreshToken: "1//refresh",
		Expiry:       time.Date(2030, 1, 2, 3, 4, 5, 0, time.UTC),
	}
}

func TestTokenStore_SaveGoogleToken(t *testing.T) {
	store, _, mockPool := setupTokenStore(t)
	defer mockPool.Close()

	userID := uuid.New()
	mockPool.ExpectExec("SET google_access_token = \\$1, google_connected = TRUE").
		WithArgs(pgxmock.AnyArg(), userID).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	err := store.SaveGoogleToken(context.Background(), userID, testToken())

	assert.NoError(t, err)
	assert.NoError(t, mockPool.ExpectationsWereMet())
}

func TestTokenStore_SaveGoogleToken_UnknownUser(t *testing.T) {
	store, _, mockPool := setupTokenStore(t)
	defer mockPool.Close()

	userID := uuid.New()
	mockPool.ExpectExec("UPDATE users").
		WithArgs(pgxmock.AnyArg(), userID).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err := store.SaveGoogleToken(context.Background(), userID, testToken())

	assert.ErrorIs(t, err, ErrUserNotFound)
	assert.NoError(t, mockPool.ExpectationsWereMet())
}

func TestTokenStore_SaveGoogleToken_Nil(t *testing.T) {
	store, _, mockPool := setupTokenStore(t)
	defer mockPool.Close()

	err := store.SaveGoogleToken(context.Background(), uuid.New(), nil)

	assert.Error(t, err)
	assert.NoError(t, mockPool.ExpectationsWereMet())
}

func TestTokenStore_UpdateGoogleToken(t *testing.T) {
	store, _, mockPool := setupTokenStore(t)
	defer mockPool.Close()

	userID := uuid.New()
	mockPool.ExpectExec("SET google_access_token = \\$1, updated_at = now\\(\\)").
		WithArgs(pgxmock.AnyArg(), userID).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	err := store.UpdateGoogleToken(context.Background(), userID, testToken())

	assert.NoError(t, err)
	assert.NoError(t, mockPool.ExpectationsWereMet())
}

func TestTokenStore_ClearGoogleToken(t *testing.T) {
	store, _, mockPool := setupTokenStore(t)
	defer mockPool.Close()

	userID := uuid.New()
	mockPool.ExpectExec("SET google_access_token = NULL, google_connected = FALSE").
		WithArgs(userID).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	err := store.ClearGoogleToken(context.Background(), userID)

	assert.NoError(t, err)
	assert.NoError(t, mockPool.ExpectationsWereMet())
}

func TestTokenStore_ClearGoogleToken_DBError(t *testing.T) {
	store, _, mockPool := setupTokenStore(t)
	defer mockPool.Close()

	userID := uuid.New()
	mockPool.ExpectExec("UPDATE users").
		WithArgs(userID).
		WillReturnError(errors.New("connection refused"))

	err := store.ClearGoogleToken(context.Background(), userID)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "db exec error")
	assert.NoError(t, mockPool.ExpectationsWereMet())
}

func TestTokenStore_GetGoogleToken(t *testing.T) {
	store, box, mockPool := setupTokenStore(t)
	defer mockPool.Close()

	userID := uuid.New()
	want := testToken()

	mockPool.ExpectQuery("SELECT google_connected, google_access_token FROM users").
		WithArgs(userID).
		WillReturnRows(pgxmock.NewRows([]string{"google_connected", "google_access_token"}).
			AddRow(true, sealToken(t, box, want)))

	got, err := store.GetGoogleToken(context.Background(), userID)

	require.NoError(t, err)
	assert.Equal(t, want.AccessToken, got.AccessToken)
	assert.Equal(t, want.RefreshToken, got.RefreshToken)
	assert.True(t, want.Expiry.Equal(got.Expiry))
	assert.NoError(t, mockPool.ExpectationsWereMet())
}

func TestTokenStore_GetGoogleToken_NoToken(t *testing.T) {
	testCases := []struct {
		name      string
		connected bool
		sealed    []byte
		err       error
	}{
		{name: "not connected", connected: false, sealed: []byte("x")},
		{name: "null token", connected: true, sealed: nil},
		{name: "no user", err: pgx.ErrNoRows},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			store, _, mockPool := setupTokenStore(t)
			defer mockPool.Close()

			userID := uuid.New()
			q := mockPool.ExpectQuery("SELECT google_connected, google_access_token FROM users").WithArgs(userID)
			if tc.err != nil {
				q.WillReturnError(tc.err)
			} else {
				q.WillReturnRows(pgxmock.NewRows([]string{"google_connected", "google_access_token"}).
					AddRow(tc.connected, tc.sealed))
			}

			tok, err := store.GetGoogleToken(context.Background(), userID)

			assert.Nil(t, tok)
			assert.ErrorIs(t, err, ErrNoToken)
			assert.NoError(t, mockPool.ExpectationsWereMet())
		})
	}
}

func TestTokenStore_ListConnectedTokens(t *testing.T) {
	store, box, mockPool := setupTokenStore(t)
	defer mockPool.Close()

	good, bad := uuid.New(), uuid.New()
	mockPool.ExpectQuery("SELECT id, google_access_token").
		WillReturnRows(pgxmock.NewRows([]string{"id", "google_access_token"}).
			AddRow(good, sealToken(t, box, testToken())).
			AddRow(bad, []byte("garbage-that-is-long-enough-to-hold-a-nonce")))

	tokens, err := store.ListConnectedTokens(context.Background())

	require.NoError(t, err)
	require.Len(t, tokens, 1)
	assert.Equal(t, good, tokens[0].UserID)
	assert.Equal(t, "ya29.access", tokens[0].Token.AccessToken)
	assert.NoError(t, mockPool.ExpectationsWereMet())
}
