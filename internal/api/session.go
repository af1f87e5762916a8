package api

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Visitor sessions are anonymous: a signed token whose subject is a random
// UUID, used only to deduplicate votes per visitor. No accounts, no
// passwords.

const sessionTTL = 30 * 24 * time.Hour

var (
	sessionSecretOnce sync.Once
	sessionSecret     []byte
)

// sessionSigningKey returns the HMAC key: SESSION_SECRET from the
// environment, or a random per-process key (tokens then die with the
// process, which is fine for a single-instance deployment).
func sessionSigningKey() []byte {
	sessionSecretOnce.Do(func() {
		if s := os.Getenv("SESSION_SECRET"); s != "" {
			sessionSecret = []byte(s)
			return
		}
		buf := make([]byte, 32)
		if _, err := rand.Read(buf); err == nil {
			sessionSecret = []byte(base64.StdEncoding.EncodeToString(buf))
		}
	})
	return sessionSecret
}

// issueSession mints a new visitor session token.
func issueSession() (token string, sessionID uuid.UUID, err error) {
	sessionID = uuid.New()
	now := time.Now()

	claims := jwt.RegisteredClaims{
		Subject:   sessionID.String(),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(sessionTTL)),
	}

	token, err = jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(sessionSigningKey())
	if err != nil {
		return "", uuid.Nil, fmt.Errorf("sign session token: %w", err)
	}
	return token, sessionID, nil
}

// parseSession validates a token and returns its session ID.
func parseSession(token string) (uuid.UUID, error) {
	parsed, err := jwt.ParseWithClaims(token, &jwt.RegisteredClaims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return sessionSigningKey(), nil
	})
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid session token: %w", err)
	}

	claims, ok := parsed.Claims.(*jwt.RegisteredClaims)
	if !ok || claims.Subject == "" {
		return uuid.Nil, fmt.Errorf("session token missing subject")
	}

	sessionID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return uuid.Nil, fmt.Errorf("session token subject is not a UUID: %w", err)
	}
	return sessionID, nil
}
