package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mediavault/internal/config"
	"mediavault/internal/model"
)

func testManager() *Manager {
	return NewManager(config.AuthConfig{
		AccessSecret:  "access-secret",
		RefreshSecret: "refresh-secret",
		AccessTTL:     15 * time.Minute,
		RefreshTTL:    7 * 24 * time.Hour,
	})
}

func TestManager_IssueAndVerify(t *testing.T) {
	m := testManager()
	id := Identity{ID: 42, Email: "a@x.io", Role: model.RoleAdmin}

	pair, err := m.Issue(id)
	require.NoError(t, err)
	assert.NotEqual(t, pair.Access, pair.Refresh)
	assert.WithinDuration(t, time.Now().Add(15*time.Minute), pair.AccessExpiresAt, time.Minute)
	assert.WithinDuration(t, time.Now().Add(7*24*time.Hour), pair.RefreshExpiresAt, time.Minute)

	got, err := m.VerifyAccess(pair.Access)
	require.NoError(t, err)
	assert.Equal(t, id, *got)
	assert.True(t, got.IsAdmin())

	got, err = m.VerifyRefresh(pair.Refresh)
	require.NoError(t, err)
	assert.Equal(t, int64(42), got.ID)
}

func TestManager_TokensAreNotInterchangeable(t *testing.T) {
	m := testManager()
	pair, err := m.Issue(Identity{ID: 1})
	require.NoError(t, err)

	_, err = m.VerifyAccess(pair.Refresh)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = m.VerifyRefresh(pair.Access)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestManager_Verify(t *testing.T) {
	m := testManager()
	pair, err := m.Issue(Identity{ID: 7, Role: model.RoleUser})
	require.NoError(t, err)

	tests := []struct {
		name    string
		token   string
		now     time.Time
		wantErr error
	}{
		{name: "missing", token: "", now: time.Now(), wantErr: ErrMissingToken},
		{name: "garbage", token: "not-a-jwt", now: time.Now(), wantErr: ErrInvalidToken},
		{name: "tampered", token: pair.Access + "x", now: time.Now(), wantErr: ErrInvalidToken},
		{name: "expired", token: pair.Access, now: time.Now().Add(16 * time.Minute), wantErr: ErrExpiredToken},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			now := tt.now
			m.now = func() time.Time { return now }
			defer func() { m.now = time.Now }()

			got, err := m.VerifyAccess(tt.token)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Nil(t, got)
		})
	}
}

func TestManager_RejectsOtherAlgorithms(t *testing.T) {
	m := testManager()
	tok := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{
		UserID:           1,
		RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour))},
	})
	s, err := tok.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = m.VerifyAccess(s)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestPassword(t *testing.T) {
	hash, err := HashPassword("s3cret")
	require.NoError(t, err)
	assert.NotEqual(t, "s3cret", hash)

	assert.True(t, CheckPassword(hash, "s3cret"))
	assert.False(t, CheckPassword(hash, "wrong"))
	assert.False(t, CheckPassword("not-a-hash", "s3cret"))
}
