package chathub

import (
	"crypto/sha256"
	"encoding/hex"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"natalk/server/internal/config"
)

// OwnerIdentity derives the stable identity for a room owner from their
// email. The same email always yields the same identity, which is what makes
// profile continuity and the single-active-owner check possible. Knowing the
// email string is owner login; there is no verification step beyond that.
func OwnerIdentity(email string) string {
	sum := sha256.Sum256([]byte(email))
	return hex.EncodeToString(sum[:])
}

// GuestIdentity returns a fresh identity for a guest connection. Guests only
// keep an identity across reconnects by presenting their session token.
func GuestIdentity() string {
	return uuid.NewString()
}

// TokenIssuer mints and verifies session tokens. A token is an opaque blob to
// the client; server-side it is a signed claim of (identity, roomId).
type TokenIssuer struct {
	secret []byte
}

func NewTokenIssuer(secret string) *TokenIssuer {
	return &TokenIssuer{secret: []byte(secret)}
}

// Issue creates a session token for an admitted connection.
func (t *TokenIssuer) Issue(identity, roomID string) (string, error) {
	claims := jwt.MapClaims{
		"uid":  identity,
		"room": roomID,
		"exp":  time.Now().Add(config.SessionTokenTTL).Unix(),
		"iss":  "natalk-server",
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(t.secret)
}

// Parse restores the (identity, roomId) pair from a session token. Any
// failure maps to ErrInvalidSession.
func (t *TokenIssuer) Parse(tokenString string) (identity, roomID string, err error) {
	token, err := jwt.Parse(tokenString, func(tok *jwt.Token) (any, error) {
		if _, ok := tok.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidSession
		}
		return t.secret, nil
	})
	if err != nil || !token.Valid {
		return "", "", ErrInvalidSession
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", "", ErrInvalidSession
	}
	identity, _ = claims["uid"].(string)
	roomID, _ = claims["room"].(string)
	if identity == "" || roomID == "" {
		return "", "", ErrInvalidSession
	}
	return identity, roomID, nil
}
