// Package auth verifies bearer tokens against the identity provider's
// published key set and exposes the verified identity to handlers.
package auth

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"sync"
	"time"
)

// ErrKeySetUnavailable indicates the key set could not be fetched from
// the identity provider. Callers should treat this as a server-side
// failure, not an authentication failure.
var ErrKeySetUnavailable = errors.New("authentication keys unavailable")

// JWK is a single public key from the provider's key set.
type JWK struct {
	Kty string `json:"kty"`
	Kid string `json:"kid"`
	Alg string `json:"alg"`
	Use string `json:"use"`

	// RSA material
	N string `json:"n"`
	E string `json:"e"`

	// EC material
	Crv string `json:"crv"`
	X   string `json:"x"`
	Y   string `json:"y"`

	// Symmetric material
	K string `json:"k"`
}

// Key converts the JWK into material usable for signature verification.
// The returned type depends on kty: *rsa.PublicKey, *ecdsa.PublicKey,
// or []byte for symmetric keys.
func (k *JWK) Key() (any, error) {
	switch k.Kty {
	case "RSA":
		n, err := base64URLDecode(k.N)
		if err != nil {
			return nil, fmt.Errorf("invalid RSA modulus: %w", err)
		}
		e, err := base64URLDecode(k.E)
		if err != nil {
			return nil, fmt.Errorf("invalid RSA exponent: %w", err)
		}
		exp := 0
		for _, b := range e {
			exp = exp<<8 + int(b)
		}
		return &rsa.PublicKey{N: new(big.Int).SetBytes(n), E: exp}, nil

	case "EC":
		var curve elliptic.Curve
		switch k.Crv {
		case "P-256":
			curve = elliptic.P256()
		case "P-384":
			curve = elliptic.P384()
		case "P-521":
			curve = elliptic.P521()
		default:
			return nil, fmt.Errorf("unsupported EC curve %q", k.Crv)
		}
		x, err := base64URLDecode(k.X)
		if err != nil {
			return nil, fmt.Errorf("invalid EC x coordinate: %w", err)
		}
		y, err := base64URLDecode(k.Y)
		if err != nil {
			return nil, fmt.Errorf("invalid EC y coordinate: %w", err)
		}
		return &ecdsa.PublicKey{
			Curve: curve,
			X:     new(big.Int).SetBytes(x),
			Y:     new(big.Int).SetBytes(y),
		}, nil

	case "oct":
		secret, err := base64URLDecode(k.K)
		if err != nil {
			return nil, fmt.Errorf("invalid symmetric key: %w", err)
		}
		return secret, nil

	default:
		return nil, fmt.Errorf("unsupported key type %q", k.Kty)
	}
}

// KeySet is the provider's published key collection.
type KeySet struct {
	Keys []JWK `json:"keys"`
}

// Find returns the key with the given identifier, or nil.
func (s *KeySet) Find(kid string) *JWK {
	for i := range s.Keys {
		if s.Keys[i].Kid == kid {
			return &s.Keys[i]
		}
	}
	return nil
}

// KeySetCache fetches the identity provider's key set once and serves
// it from memory for the remainder of the process. There is no TTL and
// no background refresh; a key rotated upstream after the first fetch
// is invisible until restart. Failed fetches are not cached, so a later
// request retries.
type KeySetCache struct {
	url        string
	httpClient *http.Client

	mu     sync.Mutex
	cached *KeySet
}

// NewKeySetCache creates a cache for the given JWKS endpoint.
func NewKeySetCache(url string, client *http.Client) *KeySetCache {
	if client == nil {
		client = &http.Client{Timeout: 5 * time.Second}
	}
	return &KeySetCache{
		url:        url,
		httpClient: client,
	}
}

// Get returns the cached key set, fetching it on first use. Concurrent
// first-time callers serialize on the fetch so at most one request is
// in flight.
func (c *KeySetCache) Get(ctx context.Context) (*KeySet, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cached != nil {
		return c.cached, nil
	}

	set, err := c.fetch(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrKeySetUnavailable, err)
	}

	c.cached = set
	return set, nil
}

func (c *KeySetCache) fetch(ctx context.Context) (*KeySet, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, http.NoBody)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("key-set endpoint returned status %d", resp.StatusCode)
	}

	var set KeySet
	if err := json.NewDecoder(resp.Body).Decode(&set); err != nil {
		return nil, fmt.Errorf("failed to decode key set: %w", err)
	}

	return &set, nil
}

// base64URLDecode decodes a base64url string, tolerating missing padding.
func base64URLDecode(s string) ([]byte, error) {
	switch len(s) % 4 {
	case 2:
		s += "=="
	case 3:
		s += "="
	}
	return base64.URLEncoding.DecodeString(s)
}
