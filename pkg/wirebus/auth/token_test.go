package auth_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/randalmurphal/wirebus/pkg/wirebus/auth"
)

var testSecret = []byte("test-signing-secret")

func TestCapabilitySet(t *testing.T) {
	s := auth.NewCapabilitySet(auth.CapPublish, auth.CapSubscribe)

	assert.True(t, s.Has(auth.CapPublish))
	assert.True(t, s.Has(auth.CapSubscribe))
	assert.False(t, s.Has(auth.CapAdmin))

	s = s.Add(auth.CapAdmin)
	assert.True(t, s.Has(auth.CapAdmin))

	assert.Equal(t, "publish,subscribe,admin", s.String())
	assert.Equal(t, "none", auth.NewCapabilitySet().String())
}

func TestIssueAndVerify(t *testing.T) {
	caps := auth.NewCapabilitySet(auth.CapPublish)
	tok, err := auth.Issue(caps, time.Hour, testSecret, "order-service")
	require.NoError(t, err)
	assert.NotEmpty(t, tok.ID)
	assert.NotEmpty(t, tok.Raw)

	got, err := auth.Verify(tok.Raw, testSecret)
	require.NoError(t, err)
	assert.Equal(t, tok.ID, got.ID)
	assert.Equal(t, "order-service", got.Subject)
	assert.Equal(t, caps, got.Caps)
	assert.True(t, got.Has(auth.CapPublish))
	assert.False(t, got.Has(auth.CapSubscribe))
	assert.WithinDuration(t, tok.ExpiresAt, got.ExpiresAt, time.Second)
}

func TestVerifyExpired(t *testing.T) {
	tok, err := auth.Issue(auth.NewCapabilitySet(auth.CapPublish), -time.Minute, testSecret, "svc")
	require.NoError(t, err)

	_, err = auth.Verify(tok.Raw, testSecret)
	assert.ErrorIs(t, err, auth.ErrTokenExpired)
}

func TestVerifyWrongSecret(t *testing.T) {
	tok, err := auth.Issue(auth.NewCapabilitySet(auth.CapPublish), time.Hour, testSecret, "svc")
	require.NoError(t, err)

	_, err = auth.Verify(tok.Raw, []byte("a-different-secret"))
	assert.ErrorIs(t, err, auth.ErrInvalidSignature)
}

func TestVerifyMalformed(t *testing.T) {
	_, err := auth.Verify("not.a.token", testSecret)
	assert.ErrorIs(t, err, auth.ErrMalformedToken)

	_, err = auth.Verify("", testSecret)
	assert.ErrorIs(t, err, auth.ErrMalformedToken)
}

func TestTokenHash(t *testing.T) {
	tok, err := auth.Issue(auth.NewCapabilitySet(auth.CapPublish), time.Hour, testSecret, "svc")
	require.NoError(t, err)

	h := tok.Hash()
	assert.Len(t, h, 64, "hex sha-256")
	assert.Equal(t, auth.HashToken(tok.Raw), h)
	assert.NotEqual(t, h, auth.HashToken(tok.Raw+"x"))
}
