package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestIssuer() *Issuer {
	return NewIssuer("test-key", "marketplace-test", time.Minute, time.Hour, []string{"root"})
}

func TestIssueAndParse(t *testing.T) {
	iss := newTestIssuer()
	pair, err := iss.Issue("fp-123", RoleStudent)
	require.NoError(t, err)

	claims, err := iss.Parse(pair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "fp-123", claims.Subject)
	assert.Equal(t, RoleStudent, claims.Role)

	_, err = iss.Parse(pair.RefreshToken)
	assert.ErrorIs(t, err, ErrInvalidToken, "refresh token is not an access token")
}

func TestIssue_AdminAllowList(t *testing.T) {
	iss := newTestIssuer()

	_, err := iss.Issue("mallory", RoleAdmin)
	assert.ErrorIs(t, err, ErrNotAdmin)

	pair, err := iss.Issue("root", RoleAdmin)
	require.NoError(t, err)
	claims, err := iss.Parse(pair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, RoleAdmin, claims.Role)

	_, err = iss.Issue("x", Role("superuser"))
	assert.ErrorIs(t, err, ErrUnknownRole)
}

func TestParse_RejectsForeignAndExpiredTokens(t *testing.T) {
	iss := newTestIssuer()
	other := NewIssuer("other-key", "marketplace-test", time.Minute, time.Hour, nil)

	pair, err := other.Issue("v1", RoleVendor)
	require.NoError(t, err)
	_, err = iss.Parse(pair.AccessToken)
	assert.ErrorIs(t, err, ErrInvalidToken)

	pair, err = iss.Issue("v1", RoleVendor)
	require.NoError(t, err)
	iss.now = func() time.Time { return time.Now().Add(2 * time.Minute) }
	_, err = iss.Parse(pair.AccessToken)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestRefresh(t *testing.T) {
	iss := newTestIssuer()
	pair, err := iss.Issue("v1", RoleVendor)
	require.NoError(t, err)

	next, err := iss.Refresh(pair.RefreshToken)
	require.NoError(t, err)
	claims, err := iss.Parse(next.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "v1", claims.Subject)

	_, err = iss.Refresh(pair.AccessToken)
	assert.ErrorIs(t, err, ErrInvalidToken)
}
