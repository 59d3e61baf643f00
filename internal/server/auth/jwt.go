// Package auth holds the credential primitives: the HS256 token codec,
// the bcrypt password hasher and bearer header parsing.
package auth

import (
	"errors"
	"strings"
	"time"

	"github.com/dmitrijs2005/jazzyauth/internal/common"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// TokenType is carried in the "typ" claim so a refresh token can never be
// used where an access token is expected.
type TokenType string

const (
	TokenAccess  TokenType = "access"
	TokenRefresh TokenType = "refresh"
	TokenClient  TokenType = "client"
)

// Claims are the registered claims plus the token type. Subject is the
// user email, or "client:<client_id>" for client-credential tokens.
type Claims struct {
	jwt.RegisteredClaims
	Type TokenType `json:"typ"`
}

// TokenCodec signs and verifies HS256 tokens with a shared secret.
type TokenCodec struct {
	secret []byte
	now    func() time.Time
}

func NewTokenCodec(secretKey string) *TokenCodec {
	return &TokenCodec{secret: []byte(secretKey), now: time.Now}
}

// WithClock returns a copy of the codec using now as its time source.
func (c *TokenCodec) WithClock(now func() time.Time) *TokenCodec {
	return &TokenCodec{secret: c.secret, now: now}
}

// Issue signs a token for subject valid for ttl and returns it with its
// absolute expiry. Every token gets a fresh jti, so two tokens issued in the
// same second never collide in the blacklist.
func (c *TokenCodec) Issue(subject string, typ TokenType, ttl time.Duration) (string, time.Time, error) {
	now := c.now()
	expiresAt := now.Add(ttl)

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
			ID:        uuid.NewString(),
		},
		Type: typ,
	})

	tokenString, err := token.SignedString(c.secret)
	if err != nil {
		return "", time.Time{}, err
	}

	return tokenString, expiresAt, nil
}

// Parse verifies signature and expiry. Expired tokens yield
// common.ErrTokenExpired, anything else wrong yields common.ErrInvalidToken.
func (c *TokenCodec) Parse(tokenString string) (*Claims, error) {
	claims := &Claims{}

	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(c.now),
	)
	token, err := parser.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return c.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, common.ErrTokenExpired
		}
		return nil, common.ErrInvalidToken
	}

	if !token.Valid || claims.Subject == "" {
		return nil, common.ErrInvalidToken
	}

	return claims, nil
}

// ParseBearer extracts the token from an "Authorization: Bearer <token>"
// header value. The scheme is matched case-insensitively.
func ParseBearer(header string) (string, error) {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, common.BearerScheme) {
		return "", common.ErrorInvalidAuthheaderFormat
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return "", common.ErrorInvalidAuthheaderFormat
	}
	return token, nil
}
