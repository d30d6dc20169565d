package auth

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeySetCache_FetchesOnce(t *testing.T) {
	var fetches atomic.Int32

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fetches.Add(1)
		_ = json.NewEncoder(w).Encode(KeySet{Keys: []JWK{{Kid: "k1", Kty: "oct", K: "c2VjcmV0"}}})
	}))
	defer srv.Close()

	cache := NewKeySetCache(srv.URL, srv.Client())

	for i := 0; i < 5; i++ {
		set, err := cache.Get(context.Background())
		require.NoError(t, err)
		require.NotNil(t, set.Find("k1"))
	}

	assert.Equal(t, int32(1), fetches.Load(), "key set should be fetched at most once")
}

func TestKeySetCache_DoesNotCacheFailures(t *testing.T) {
	var fetches atomic.Int32

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if fetches.Add(1) == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		_ = json.NewEncoder(w).Encode(KeySet{Keys: []JWK{{Kid: "k1"}}})
	}))
	defer srv.Close()

	cache := NewKeySetCache(srv.URL, srv.Client())

	_, err := cache.Get(context.Background())
	require.ErrorIs(t, err, ErrKeySetUnavailable)

	set, err := cache.Get(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, set.Find("k1"))
	assert.Equal(t, int32(2), fetches.Load())
}

func TestKeySetCache_MalformedBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("not json"))
	}))
	defer srv.Close()

	cache := NewKeySetCache(srv.URL, srv.Client())

	_, err := cache.Get(context.Background())
	assert.ErrorIs(t, err, ErrKeySetUnavailable)
}

func TestJWK_Key_RSA(t *testing.T) {
	priv, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	jwk := rsaJWK(t, "k1", &priv.PublicKey)

	key, err := jwk.Key()
	require.NoError(t, err)

	pub, ok := key.(*rsa.PublicKey)
	require.True(t, ok)
	assert.Equal(t, 0, pub.N.Cmp(priv.PublicKey.N))
	assert.Equal(t, priv.PublicKey.E, pub.E)
}

func TestJWK_Key_EC(t *testing.T) {
	priv, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)

	jwk := ecJWK(t, "k1", &priv.PublicKey)

	key, err := jwk.Key()
	require.NoError(t, err)

	pub, ok := key.(*ecdsa.PublicKey)
	require.True(t, ok)
	assert.Equal(t, 0, pub.X.Cmp(priv.PublicKey.X))
	assert.Equal(t, 0, pub.Y.Cmp(priv.PublicKey.Y))
}

func TestJWK_Key_Unsupported(t *testing.T) {
	jwk := JWK{Kty: "OKP", Kid: "k1"}
	_, err := jwk.Key()
	assert.Error(t, err)
}

// rsaJWK builds the JWKS representation of an RSA public key.
func rsaJWK(t *testing.T, kid string, pub *rsa.PublicKey) JWK {
	t.Helper()
	return JWK{
		Kty: "RSA",
		Kid: kid,
		Alg: "RS256",
		Use: "sig",
		N:   base64.RawURLEncoding.EncodeToString(pub.N.Bytes()),
		E:   "AQAB",
	}
}

// ecJWK builds the JWKS representation of a P-256 public key.
func ecJWK(t *testing.T, kid string, pub *ecdsa.PublicKey) JWK {
	t.Helper()
	size := (pub.Curve.Params().BitSize + 7) / 8
	return JWK{
		Kty: "EC",
		Kid: kid,
		Alg: "ES256",
		Use: "sig",
		Crv: "P-256",
		X:   base64.RawURLEncoding.EncodeToString(pub.X.FillBytes(make([]byte, size))),
		Y:   base64.RawURLEncoding.EncodeToString(pub.Y.FillBytes(make([]byte, size))),
	}
}
