package utils // package utils provides helper functions for session tokens, hashing and logging

import (
	"crypto/sha256" // SHA‑256 hashing for session ids
	"encoding/hex"  // hex encoding of digests
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5" // JWT library for creating signed tokens
	"github.com/google/uuid"
)

// ErrInvalidSession is returned when a session token fails signature,
// expiry or claim checks.
var ErrInvalidSession = errors.New("invalid session token")

// SessionToken represents a signed session JWT.  ID is the jti claim; only
// its hash is persisted.  Exp is the UTC expiration time.
type SessionToken struct {
	Token string
	ID    string
	Exp   time.Time
}

// SessionClaims are the claims carried by a session cookie.
type SessionClaims struct {
	Email string
	ID    string
	Exp   time.Time
}

// NewSessionToken builds and signs an HS256 JWT whose subject is the
// user's email.  A fresh jti identifies the session server side so that
// logout can revoke it before exp.
func NewSessionToken(secret, email string, ttl time.Duration) (SessionToken, error) {
	now := time.Now().UTC()
	exp := now.Add(ttl)
	jti := uuid.NewString()
	claims := jwt.MapClaims{
		"sub": email,
		"jti": jti,
		"iat": now.Unix(),
		"exp": exp.Unix(),
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := t.SignedString([]byte(secret))
	if err != nil {
		return SessionToken{}, err
	}
	return SessionToken{Token: signed, ID: jti, Exp: exp}, nil
}

// ParseSessionToken verifies the signature (HS256 only) and expiry and
// returns the subject and jti.
func ParseSessionToken(secret, raw string) (SessionClaims, error) {
	tok, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil || !tok.Valid {
		return SessionClaims{}, fmt.Errorf("%w: %v", ErrInvalidSession, err)
	}
	mc, ok := tok.Claims.(jwt.MapClaims)
	if !ok {
		return SessionClaims{}, ErrInvalidSession
	}
	sub, _ := mc["sub"].(string)
	jti, _ := mc["jti"].(string)
	if sub == "" || jti == "" {
		return SessionClaims{}, ErrInvalidSession
	}
	var exp time.Time
	if e, err := mc.GetExpirationTime(); err == nil && e != nil {
		exp = e.Time.UTC()
	}
	return SessionClaims{Email: sub, ID: jti, Exp: exp}, nil
}

// HashSessionID returns the SHA‑256 hash of a session id as a hex string.
// Only the hash is stored in access_tokens.
func HashSessionID(id string) string {
	sum := sha256.Sum256([]byte(id))
	return hex.EncodeToString(sum[:])
}
