package auth

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/dmitrijs2005/tokenkeeper/internal/common"
	"github.com/dmitrijs2005/tokenkeeper/internal/timex"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var epoch = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func newTestCodec(t *testing.T, secret, alg string) (*Codec, *timex.ManualClock) {
	t.Helper()
	clock := timex.NewManualClock(epoch)
	c, err := NewCodec([]byte(secret), alg, clock, 30*time.Second)
	require.NoError(t, err)
	return c, clock
}

func TestNewCodec_Rejects(t *testing.T) {
	t.Parallel()

	_, err := NewCodec(nil, "HS256", nil, 0)
	require.Error(t, err)

	for _, alg := range []string{"", "none", "RS256", "ES256", "EdDSA"} {
		_, err := NewCodec([]byte("k"), alg, nil, 0)
		require.Error(t, err, "algorithm %q must be rejected", alg)
	}

	c, err := NewCodec([]byte("k"), "hs512", nil, 0)
	require.NoError(t, err)
	assert.Equal(t, "HS512", c.Algorithm())
}

func TestAccess_RoundTrip(t *testing.T) {
	t.Parallel()
	c, _ := newTestCodec(t, "super-secret", "HS256")

	want := AccessClaims{Subject: "a@x.com", ExpiresAt: epoch.Add(15 * time.Minute)}
	tok, err := c.EncodeAccess(want)
	require.NoError(t, err)

	got, err := c.DecodeAccess(tok)
	require.NoError(t, err)
	assert.Empty(t, cmp.Diff(want, got))
}

func TestRefresh_RoundTrip(t *testing.T) {
	t.Parallel()
	c, _ := newTestCodec(t, "super-secret", "HS384")

	want := RefreshClaims{Subject: "a@x.com", ExpiresAt: epoch.Add(72 * time.Hour), TokenID: "3f0c6a9e-1b2d-4c5e-8f70-112233445566"}
	tok, err := c.EncodeRefresh(want)
	require.NoError(t, err)

	got, err := c.DecodeRefresh(tok)
	require.NoError(t, err)
	assert.Empty(t, cmp.Diff(want, got))
}

func TestEncodeRefresh_RequiresTokenID(t *testing.T) {
	t.Parallel()
	c, _ := newTestCodec(t, "k", "HS256")

	_, err := c.EncodeRefresh(RefreshClaims{Subject: "s", ExpiresAt: epoch.Add(time.Hour)})
	require.Error(t, err)
}

func TestDecode_Expired(t *testing.T) {
	t.Parallel()
	c, clock := newTestCodec(t, "secret", "HS256")

	tok, err := c.EncodeAccess(AccessClaims{Subject: "u1", ExpiresAt: epoch.Add(time.Minute)})
	require.NoError(t, err)

	clock.Advance(59 * time.Second)
	_, err = c.DecodeAccess(tok)
	require.NoError(t, err)

	clock.Advance(time.Second)
	_, err = c.DecodeAccess(tok)
	require.ErrorIs(t, err, ErrExpired)
	require.ErrorIs(t, err, common.ErrTokenExpired)
	require.NotErrorIs(t, err, common.ErrInvalidToken)
}

func TestDecode_WrongSecret(t *testing.T) {
	t.Parallel()
	right, _ := newTestCodec(t, "right-secret", "HS256")
	wrong, _ := newTestCodec(t, "wrong-secret", "HS256")

	tok, err := right.EncodeRefresh(RefreshClaims{Subject: "u2", ExpiresAt: epoch.Add(time.Hour), TokenID: "id"})
	require.NoError(t, err)

	_, err = wrong.DecodeRefresh(tok)
	require.ErrorIs(t, err, ErrInvalidSignature)
	require.ErrorIs(t, err, common.ErrInvalidToken)
}

func TestDecodeRefreshIgnoreExpiry(t *testing.T) {
	t.Parallel()
	c, clock := newTestCodec(t, "secret", "HS256")
	forger, _ := NewCodec([]byte("other"), "HS256", clock, 0)

	want := RefreshClaims{Subject: "u1", ExpiresAt: epoch.Add(time.Minute), TokenID: "jti-1"}
	tok, err := c.EncodeRefresh(want)
	require.NoError(t, err)
	forged, err := forger.EncodeRefresh(want)
	require.NoError(t, err)

	clock.Advance(time.Hour)
	_, err = c.DecodeRefresh(tok)
	require.ErrorIs(t, err, ErrExpired)

	got, err := c.DecodeRefreshIgnoreExpiry(tok)
	require.NoError(t, err)
	assert.Empty(t, cmp.Diff(want, got))

	_, err = c.DecodeRefreshIgnoreExpiry(forged)
	require.ErrorIs(t, err, common.ErrInvalidToken)

	access, err := c.EncodeAccess(AccessClaims{Subject: "u1", ExpiresAt: epoch.Add(2 * time.Hour)})
	require.NoError(t, err)
	_, err = c.DecodeRefreshIgnoreExpiry(access)
	require.ErrorIs(t, err, ErrMalformed)
}

func TestDecode_WrongSecretBeatsExpiry(t *testing.T) {
	t.Parallel()
	right, clock := newTestCodec(t, "right-secret", "HS256")
	wrong, _ := NewCodec([]byte("wrong-secret"), "HS256", clock, 0)

	tok, err := right.EncodeAccess(AccessClaims{Subject: "u", ExpiresAt: epoch.Add(time.Second)})
	require.NoError(t, err)
	clock.Advance(time.Hour)

	_, err = wrong.DecodeAccess(tok)
	require.ErrorIs(t, err, common.ErrInvalidToken, "a forged token must never be reported as merely expired")
	require.NotErrorIs(t, err, common.ErrTokenExpired)
}

func TestDecode_OtherAlgorithmSameSecret(t *testing.T) {
	t.Parallel()
	hs256, _ := newTestCodec(t, "shared", "HS256")
	hs512, _ := newTestCodec(t, "shared", "HS512")

	tok, err := hs512.EncodeAccess(AccessClaims{Subject: "u", ExpiresAt: epoch.Add(time.Hour)})
	require.NoError(t, err)

	_, err = hs256.DecodeAccess(tok)
	require.ErrorIs(t, err, common.ErrInvalidToken)
}

func TestDecode_NoneAlgorithm(t *testing.T) {
	t.Parallel()
	c, _ := newTestCodec(t, "k", "HS256")

	unsigned := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: "admin", ExpiresAt: jwt.NewNumericDate(epoch.Add(time.Hour))},
		Type:             typeAccess,
	})
	tok, err := unsigned.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = c.DecodeAccess(tok)
	require.ErrorIs(t, err, common.ErrInvalidToken)
}

func TestDecode_MissingExpiry(t *testing.T) {
	t.Parallel()
	c, _ := newTestCodec(t, "k", "HS256")

	tok, err := c.sign(Claims{RegisteredClaims: jwt.RegisteredClaims{Subject: "u"}, Type: typeAccess})
	require.NoError(t, err)

	_, err = c.DecodeAccess(tok)
	require.ErrorIs(t, err, common.ErrInvalidToken)
}

func TestDecode_TypeConfusion(t *testing.T) {
	t.Parallel()
	c, _ := newTestCodec(t, "k", "HS256")

	access, err := c.EncodeAccess(AccessClaims{Subject: "u", ExpiresAt: epoch.Add(time.Hour)})
	require.NoError(t, err)
	refresh, err := c.EncodeRefresh(RefreshClaims{Subject: "u", ExpiresAt: epoch.Add(time.Hour), TokenID: "id"})
	require.NoError(t, err)

	_, err = c.DecodeRefresh(access)
	require.ErrorIs(t, err, ErrMalformed)
	_, err = c.DecodeAccess(refresh)
	require.ErrorIs(t, err, ErrMalformed)
}

func TestDecode_IssuedInFuture(t *testing.T) {
	t.Parallel()
	c, clock := newTestCodec(t, "k", "HS256")

	clock.Advance(10 * time.Minute)
	tok, err := c.EncodeAccess(AccessClaims{Subject: "u", ExpiresAt: epoch.Add(time.Hour)})
	require.NoError(t, err)

	clock.Set(epoch)
	_, err = c.DecodeAccess(tok)
	require.ErrorIs(t, err, common.ErrClockSkewSuspected)
	require.ErrorIs(t, err, common.ErrInvalidToken)

	// within leeway
	clock.Set(epoch.Add(10*time.Minute - 20*time.Second))
	_, err = c.DecodeAccess(tok)
	require.NoError(t, err)
}

func TestDecode_MalformedInputs(t *testing.T) {
	t.Parallel()
	c, _ := newTestCodec(t, "k", "HS256")

	good, err := c.EncodeAccess(AccessClaims{Subject: "u", ExpiresAt: epoch.Add(time.Hour)})
	require.NoError(t, err)
	parts := strings.Split(good, ".")

	inputs := []string{
		"",
		"not.a.jwt",
		"Bearer",
		"abc",
		parts[0] + "." + parts[1],
		parts[0] + ".e30." + parts[2],
		good + "x",
	}
	for _, in := range inputs {
		_, err := c.DecodeAccess(in)
		require.Error(t, err, "input %q", in)
		require.True(t, errors.Is(err, common.ErrInvalidToken), "input %q: got %v", in, err)
	}
}

func TestDecode_AcceptsSloppyBearer(t *testing.T) {
	t.Parallel()
	c, _ := newTestCodec(t, "k", "HS256")

	tok, err := c.EncodeAccess(AccessClaims{Subject: "a@x.com", ExpiresAt: epoch.Add(time.Hour)})
	require.NoError(t, err)
	require.False(t, strings.ContainsAny(tok, " \t\n"), "encoded form must stay canonical")

	for _, in := range []string{"  " + tok + "\n", "Bearer " + tok, "bearer " + tok, "BEARER\t" + tok + " "} {
		got, err := c.DecodeAccess(in)
		require.NoError(t, err, "input %q", in)
		assert.Equal(t, "a@x.com", got.Subject)
	}
}

func TestNormalize(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		"abc":             "abc",
		"  abc  ":         "abc",
		"Bearer abc":      "abc",
		"bEaReR   abc":    "abc",
		"Bearer":          "",
		"eyJhbGciOi.x.y ": "eyJhbGciOi.x.y",
	}
	for in, want := range tests {
		assert.Equal(t, want, Normalize(in), "Normalize(%q)", in)
	}
}
