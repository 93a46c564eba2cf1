package google

import (
	"context"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/big"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// DefaultCertsURL serves Google's OAuth2 signing keys in JWK format.
const DefaultCertsURL = "https://www.googleapis.com/oauth2/v3/certs"

const (
	defaultKeyTTL         = time.Hour
	defaultMinRefresh     = time.Minute
	maxJWKSResponseBytes  = 1 << 20
	defaultHTTPTimeout    = 10 * time.Second
	refreshSingleflightID = "jwks"
)

var (
	ErrKeyNotFound = errors.New("signing key not found")
	ErrKeyFetch    = errors.New("failed to fetch signing keys")
)

type jwkSet struct {
	Keys []jwk `json:"keys"`
}

type jwk struct {
	Kty string `json:"kty"`
	Alg string `json:"alg"`
	Use string `json:"use"`
	Kid string `json:"kid"`
	N   string `json:"n"`
	E   string `json:"e"`
}

// KeyCache is a read-through cache of Google's public signing keys. Reads are
// concurrent; at most one refresh is in flight at a time. Keys are never served
// past the expiry announced by the key endpoint's Cache-Control max-age.
type KeyCache struct {
	url        string
	client     *http.Client
	logger     *slog.Logger
	now        func() time.Time
	minRefresh time.Duration

	mu        sync.RWMutex
	keys      map[string]*rsa.PublicKey
	expiresAt time.Time
	fetchedAt time.Time

	group singleflight.Group
}

// NewKeyCache creates a KeyCache for the JWKS endpoint at url. A nil client
// gets a default client with a timeout.
func NewKeyCache(url string, client *http.Client, logger *slog.Logger) *KeyCache {
	if client == nil {
		client = &http.Client{Timeout: defaultHTTPTimeout}
	}
	return &KeyCache{
		url:        url,
		client:     client,
		logger:     logger,
		now:        time.Now,
		minRefresh: defaultMinRefresh,
		keys:       make(map[string]*rsa.PublicKey),
	}
}

// Key returns the public key identified by kid. The key set is refreshed when
// it has expired, or when kid is unknown and the last fetch is older than the
// minimum refresh interval (Google rotates keys without notice).
func (c *KeyCache) Key(ctx context.Context, kid string) (*rsa.PublicKey, error) {
	key, fresh, canRefresh := c.lookup(kid)
	if key != nil && fresh {
		return key, nil
	}
	if fresh && !canRefresh {
		return nil, fmt.Errorf("%w: kid %q", ErrKeyNotFound, kid)
	}

	if err := c.refresh(ctx, kid); err != nil {
		return nil, err
	}

	key, _, _ = c.lookup(kid)
	if key == nil {
		return nil, fmt.Errorf("%w: kid %q", ErrKeyNotFound, kid)
	}
	return key, nil
}

func (c *KeyCache) lookup(kid string) (key *rsa.PublicKey, fresh, canRefresh bool) {
	now := c.now()

	c.mu.RLock()
	defer c.mu.RUnlock()

	fresh = now.Before(c.expiresAt)
	canRefresh = now.Sub(c.fetchedAt) >= c.minRefresh
	if fresh {
		key = c.keys[kid]
	}
	return key, fresh, canRefresh
}

func (c *KeyCache) refresh(ctx context.Context, kid string) error {
	ch := c.group.DoChan(refreshSingleflightID, func() (interface{}, error) {
		// A refresh that completed while this caller was queued may already
		// have brought the key in.
		if key, fresh, _ := c.lookup(kid); key != nil && fresh {
			return nil, nil
		}

		// The fetch is shared by every waiting caller, so it must not be
		// cancelled when the caller that started it goes away.
		fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), defaultHTTPTimeout)
		defer cancel()

		keys, ttl, err := c.fetch(fetchCtx)
		if err != nil {
			return nil, err
		}

		now := c.now()
		c.mu.Lock()
		c.keys = keys
		c.fetchedAt = now
		c.expiresAt = now.Add(ttl)
		c.mu.Unlock()

		c.logger.Debug("google signing keys refreshed", "count", len(keys), "ttl", ttl)
		return nil, nil
	})

	select {
	case <-ctx.Done():
		return ctx.Err()
	case res := <-ch:
		return res.Err
	}
}

func (c *KeyCache) fetch(ctx context.Context) (map[string]*rsa.PublicKey, time.Duration, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %v", ErrKeyFetch, err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %v", ErrKeyFetch, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, 0, fmt.Errorf("%w: unexpected status %d", ErrKeyFetch, resp.StatusCode)
	}

	var set jwkSet
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxJWKSResponseBytes)).Decode(&set); err != nil {
		return nil, 0, fmt.Errorf("%w: decoding key set: %v", ErrKeyFetch, err)
	}

	keys := make(map[string]*rsa.PublicKey, len(set.Keys))
	for _, k := range set.Keys {
		if k.Kty != "RSA" || k.Kid == "" {
			continue
		}
		if k.Use != "" && k.Use != "sig" {
			continue
		}
		pub, err := k.rsaPublicKey()
		if err != nil {
			c.logger.Warn("skipping malformed google signing key", "kid", k.Kid, "error", err)
			continue
		}
		keys[k.Kid] = pub
	}
	if len(keys) == 0 {
		return nil, 0, fmt.Errorf("%w: key set contains no usable RSA keys", ErrKeyFetch)
	}

	return keys, maxAge(resp.Header.Get("Cache-Control")), nil
}

func (k jwk) rsaPublicKey() (*rsa.PublicKey, error) {
	nb, err := base64.RawURLEncoding.DecodeString(k.N)
	if err != nil {
		return nil, fmt.Errorf("decoding modulus: %w", err)
	}
	eb, err := base64.RawURLEncoding.DecodeString(k.E)
	if err != nil {
		return nil, fmt.Errorf("decoding exponent: %w", err)
	}
	if len(nb) == 0 || len(eb) == 0 || len(eb) > 4 {
		return nil, errors.New("invalid key parameters")
	}

	e := 0
	for _, b := range eb {
		e = e<<8 | int(b)
	}

	return &rsa.PublicKey{N: new(big.Int).SetBytes(nb), E: e}, nil
}

// maxAge extracts max-age from a Cache-Control header, falling back to defaultKeyTTL.
func maxAge(cacheControl string) time.Duration {
	for _, directive := range strings.Split(cacheControl, ",") {
		directive = strings.TrimSpace(directive)
		value, ok := strings.CutPrefix(strings.ToLower(directive), "max-age=")
		if !ok {
			continue
		}
		seconds, err := strconv.Atoi(value)
		if err != nil || seconds <= 0 {
			return defaultKeyTTL
		}
		return time.Duration(seconds) * time.Second
	}
	return defaultKeyTTL
}
