package identity

import (
	"fmt"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/jrsteele09/go-content-admin/users"
)

// accessClaims are the claims carried by an access token
type accessClaims struct {
	Email     string `json:"email"`
	SessionID string `json:"sid"` // Server side session the token belongs to
	jwtlib.RegisteredClaims
}

// tokenSigner creates and verifies HS256 access tokens
type tokenSigner struct {
	secret  []byte
	issuer  string
	nowTime func() time.Time
}

func (t *tokenSigner) sign(user *users.User, sessionID string, expiry time.Duration) (string, time.Time, error) {
	now := t.nowTime()
	expiresAt := now.Add(expiry).Truncate(time.Second).UTC()
	claims := accessClaims{
		Email:     user.Email,
		SessionID: sessionID,
		RegisteredClaims: jwtlib.RegisteredClaims{
			Issuer:    t.issuer,
			Subject:   user.ID,
			IssuedAt:  jwtlib.NewNumericDate(now),
			ExpiresAt: jwtlib.NewNumericDate(expiresAt),
			ID:        uuid.New().String(), // jti
		},
	}

	signed, err := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, claims).SignedString(t.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign JWT token: %w", err)
	}
	return signed, expiresAt, nil
}

// parse verifies the signature and issuer. Expiry is only checked when validateExpiry is set,
// so sign-out still works with an expired token.
func (t *tokenSigner) parse(raw string, validateExpiry bool) (*accessClaims, error) {
	opts := []jwtlib.ParserOption{
		jwtlib.WithValidMethods([]string{jwtlib.SigningMethodHS256.Alg()}),
		jwtlib.WithIssuer(t.issuer),
		jwtlib.WithTimeFunc(t.nowTime),
	}
	if !validateExpiry {
		opts = append(opts, jwtlib.WithoutClaimsValidation())
	}

	claims := &accessClaims{}
	token, err := jwtlib.ParseWithClaims(raw, claims, func(*jwtlib.Token) (any, error) {
		return t.secret, nil
	}, opts...)
	if err != nil {
		return nil, err
	}
	if !token.Valid || claims.SessionID == "" {
		return nil, jwtlib.ErrTokenInvalidClaims
	}
	return claims, nil
}
