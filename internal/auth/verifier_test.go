package auth

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/rsa"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testIdentityProvider serves a JWKS endpoint and signs tokens with
// keys the endpoint publishes.
type testIdentityProvider struct {
	server  *httptest.Server
	rsaKey  *rsa.PrivateKey
	ecKey   *ecdsa.PrivateKey
	fetches atomic.Int32
}

func newTestIdentityProvider(t *testing.T) *testIdentityProvider {
	t.Helper()

	rsaKey, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	ecKey, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)

	p := &testIdentityProvider{rsaKey: rsaKey, ecKey: ecKey}

	p.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p.fetches.Add(1)
		set := KeySet{Keys: []JWK{
			rsaJWK(t, "rsa-key", &rsaKey.PublicKey),
			ecJWK(t, "ec-key", &ecKey.PublicKey),
		}}
		_ = json.NewEncoder(w).Encode(set)
	}))
	t.Cleanup(p.server.Close)

	return p
}

func (p *testIdentityProvider) verifier() *Verifier {
	return NewVerifier(NewKeySetCache(p.server.URL, p.server.Client()))
}

// signRSA issues an RS256 token with the given kid and claims.
func (p *testIdentityProvider) signRSA(t *testing.T, kid string, claims jwt.MapClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	token.Header["kid"] = kid
	signed, err := token.SignedString(p.rsaKey)
	require.NoError(t, err)
	return signed
}

func (p *testIdentityProvider) signES(t *testing.T, kid string, claims jwt.MapClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodES256, claims)
	token.Header["kid"] = kid
	signed, err := token.SignedString(p.ecKey)
	require.NoError(t, err)
	return signed
}

func validClaims(sub string) jwt.MapClaims {
	return jwt.MapClaims{
		"sub": sub,
		"exp": time.Now().Add(time.Hour).Unix(),
		"iat": time.Now().Unix(),
	}
}

func TestVerifier_ValidRSAToken(t *testing.T) {
	idp := newTestIdentityProvider(t)
	v := idp.verifier()

	token := idp.signRSA(t, "rsa-key", validClaims("user-123"))

	identity, err := v.Verify(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, "user-123", identity.UserID)
	assert.Equal(t, "user-123", identity.Claims["sub"])
}

func TestVerifier_ValidECToken(t *testing.T) {
	idp := newTestIdentityProvider(t)
	v := idp.verifier()

	token := idp.signES(t, "ec-key", validClaims("user-456"))

	identity, err := v.Verify(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, "user-456", identity.UserID)
}

func TestVerifier_UnknownKey(t *testing.T) {
	idp := newTestIdentityProvider(t)
	v := idp.verifier()

	// Signature is valid for the signing key; the kid is just not in
	// the published set.
	token := idp.signRSA(t, "rotated-away", validClaims("user-123"))

	_, err := v.Verify(context.Background(), token)
	assert.ErrorIs(t, err, ErrUnknownKey)
}

func TestVerifier_MalformedToken(t *testing.T) {
	idp := newTestIdentityProvider(t)
	v := idp.verifier()

	_, err := v.Verify(context.Background(), "not.a.token")
	assert.ErrorIs(t, err, ErrMalformedToken)
}

func TestVerifier_ExpiredToken(t *testing.T) {
	idp := newTestIdentityProvider(t)
	v := idp.verifier()

	claims := jwt.MapClaims{
		"sub": "user-123",
		"exp": time.Now().Add(-time.Hour).Unix(),
	}
	token := idp.signRSA(t, "rsa-key", claims)

	_, err := v.Verify(context.Background(), token)
	require.ErrorIs(t, err, ErrInvalidToken)
	// Library-reported failures carry their reason string.
	assert.Contains(t, err.Error(), "expired")
}

func TestVerifier_WrongSignature(t *testing.T) {
	idp := newTestIdentityProvider(t)
	other := newTestIdentityProvider(t)
	v := idp.verifier()

	// Signed with a different key pair but claiming a published kid.
	token := other.signRSA(t, "rsa-key", validClaims("user-123"))

	_, err := v.Verify(context.Background(), token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifier_MissingSubject(t *testing.T) {
	idp := newTestIdentityProvider(t)
	v := idp.verifier()

	for name, claims := range map[string]jwt.MapClaims{
		"absent": {"exp": time.Now().Add(time.Hour).Unix()},
		"empty":  {"sub": "", "exp": time.Now().Add(time.Hour).Unix()},
	} {
		t.Run(name, func(t *testing.T) {
			token := idp.signRSA(t, "rsa-key", claims)
			_, err := v.Verify(context.Background(), token)
			assert.ErrorIs(t, err, ErrInvalidClaims)
		})
	}
}

func TestVerifier_AudienceNotValidated(t *testing.T) {
	idp := newTestIdentityProvider(t)
	v := idp.verifier()

	claims := validClaims("user-123")
	claims["aud"] = "some-other-service"
	token := idp.signRSA(t, "rsa-key", claims)

	identity, err := v.Verify(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, "user-123", identity.UserID)
}

func TestVerifier_KeySetFetchedOnce(t *testing.T) {
	idp := newTestIdentityProvider(t)
	v := idp.verifier()

	for i := 0; i < 4; i++ {
		token := idp.signRSA(t, "rsa-key", validClaims("user-123"))
		_, err := v.Verify(context.Background(), token)
		require.NoError(t, err)
	}

	assert.Equal(t, int32(1), idp.fetches.Load())
}

func TestVerifier_KeySetUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	idp := newTestIdentityProvider(t)
	v := NewVerifier(NewKeySetCache(srv.URL, srv.Client()))

	token := idp.signRSA(t, "rsa-key", validClaims("user-123"))

	_, err := v.Verify(context.Background(), token)
	assert.ErrorIs(t, err, ErrKeySetUnavailable)
}
