package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"imageAnnotation/internal/testutil"
)

func TestAuthenticate(t *testing.T) {
	ix := testutil.BuildIndexes(t, testutil.SampleUsers())
	iss, err := NewIssuer(ix.Users, testSecret, time.Hour)
	require.NoError(t, err)

	ctx := context.Background()
	tok, u, err := iss.Authenticate(ctx, "user2", "user2")
	require.NoError(t, err)
	assert.Equal(t, "user2", u.Username)
	assert.Equal(t, []string{"batch2"}, u.Batches)

	p, err := ParseToken(tok, testSecret)
	require.NoError(t, err)
	assert.Equal(t, "user2", p.Username)
	assert.Equal(t, "annotator", p.Role)
	assert.False(t, p.IsAdmin)
	assert.WithinDuration(t, time.Now().Add(time.Hour), p.ExpiresAt, time.Minute)

	_, _, err = iss.Authenticate(ctx, "user2", "nope")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, _, err = iss.Authenticate(ctx, "ghost", "x")
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestAuthenticate_AdminClaims(t *testing.T) {
	ix := testutil.BuildIndexes(t, testutil.SampleUsers())
	iss, err := NewIssuer(ix.Users, testSecret, time.Hour)
	require.NoError(t, err)

	tok, u, err := iss.Authenticate(context.Background(), "admin", "admin")
	require.NoError(t, err)
	assert.True(t, u.IsAdmin)
	assert.Empty(t, u.Batches)

	p, err := ParseToken(tok, testSecret)
	require.NoError(t, err)
	assert.True(t, p.IsAdmin)
	assert.Equal(t, "admin", p.Role)
}

func TestIssue_ExpiredByClock(t *testing.T) {
	ix := testutil.BuildIndexes(t, testutil.SampleUsers())
	iss, err := NewIssuer(ix.Users, testSecret, time.Hour)
	require.NoError(t, err)
	iss.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }

	u, err := ix.Users.GetByUsername(context.Background(), "user1")
	require.NoError(t, err)
	tok, err := iss.Issue(u)
	require.NoError(t, err)

	_, err = ParseToken(tok, testSecret)
	assert.True(t, errors.Is(err, ErrTokenExpired), "got %v", err)
}

func TestNewIssuer_Validation(t *testing.T) {
	ix := testutil.BuildIndexes(t, testutil.SampleUsers())
	_, err := NewIssuer(nil, testSecret, time.Hour)
	assert.Error(t, err)
	_, err = NewIssuer(ix.Users, "", time.Hour)
	assert.Error(t, err)
	_, err = NewIssuer(ix.Users, testSecret, 0)
	assert.Error(t, err)
}
