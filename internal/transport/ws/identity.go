// Package ws is the websocket transport: connection lifecycle, group
// broadcast, and dispatch of client events into the match engine.
package ws

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Identity is the verified caller of a websocket connection. Guests carry
// only an alias.
type Identity struct {
	UserID        string
	Alias         string
	Authenticated bool
}

// Verifier signs and checks identity tokens with HMAC-SHA256. Tokens are
// opaque to clients: base64(payload).base64(signature).
type Verifier struct {
	secret []byte
	now    func() time.Time
}

// LoadOrCreateSecret reads the signing key from dir, generating and
// persisting a fresh 32-byte key on first run.
func LoadOrCreateSecret(dir string) ([]byte, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("ws: cannot create key directory: %w", err)
	}
	p := filepath.Join(dir, "token.key")

	b, err := os.ReadFile(p)
	if err == nil && len(b) >= 32 {
		return b, nil
	}

	nb := make([]byte, 32)
	if _, err := rand.Read(nb); err != nil {
		return nil, fmt.Errorf("ws: cannot generate key: %w", err)
	}
	if err := os.WriteFile(p, nb, 0o600); err != nil {
		return nil, fmt.Errorf("ws: cannot persist key: %w", err)
	}
	return nb, nil
}

func NewVerifier(secret []byte) *Verifier {
	return &Verifier{secret: secret, now: time.Now}
}

// IssueToken signs an identity valid for ttl.
func (v *Verifier) IssueToken(userID, alias string, ttl time.Duration) string {
	payload := strings.Join([]string{
		"v1",
		userID,
		alias,
		strconv.FormatInt(v.now().Add(ttl).Unix(), 10),
	}, "|")

	m := hmac.New(sha256.New, v.secret)
	m.Write([]byte(payload))
	sig := m.Sum(nil)

	return base64.RawURLEncoding.EncodeToString([]byte(payload)) + "." + base64.RawURLEncoding.EncodeToString(sig)
}

// Verify validates the signature and expiry and returns the identity.
func (v *Verifier) Verify(token string) (Identity, error) {
	parts := strings.Split(token, ".")
	if len(parts) != 2 {
		return Identity{}, errors.New("bad token")
	}

	raw, err := base64.RawURLEncoding.DecodeString(parts[0])
	if err != nil {
		return Identity{}, err
	}
	sig, err := base64.RawURLEncoding.DecodeString(parts[1])
	if err != nil {
		return Identity{}, err
	}

	m := hmac.New(sha256.New, v.secret)
	m.Write(raw)
	if !hmac.Equal(m.Sum(nil), sig) {
		return Identity{}, errors.New("bad signature")
	}

	fs := strings.Split(string(raw), "|")
	if len(fs) != 4 || fs[0] != "v1" {
		return Identity{}, errors.New("bad payload")
	}
	ux, err := strconv.ParseInt(fs[3], 10, 64)
	if err != nil {
		return Identity{}, err
	}
	if v.now().After(time.Unix(ux, 0)) {
		return Identity{}, errors.New("token expired")
	}

	return Identity{UserID: fs[1], Alias: fs[2], Authenticated: fs[1] != ""}, nil
}

// Guest builds an unauthenticated identity from a client-chosen alias,
// falling back to a generic name.
func Guest(alias string) Identity {
	if alias == "" {
		alias = "guest"
	}
	return Identity{Alias: alias}
}
