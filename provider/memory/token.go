package memory

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
)

// Claims are the session token claims, shaped like the REST identity
// provider's tokens.
type Claims struct {
	jwt.RegisteredClaims
	UserID string `json:"user_id"`
	Email  string `json:"email,omitempty"`
}

type tokenIssuer struct {
	signingKey []byte
	issuer     string
	ttl        time.Duration
}

func (t tokenIssuer) sign(userID, email string, now time.Time) (string, time.Time, error) {
	expiresAt := now.Add(t.ttl)
	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    t.issuer,
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		UserID: userID,
		Email:  email,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(t.signingKey)
	if err != nil {
		return "", time.Time{}, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to sign session token")
	}
	return signed, expiresAt, nil
}

func (t tokenIssuer) parse(tokenString string, now time.Time) (*Claims, error) {
	opts := []jwt.ParserOption{jwt.WithTimeFunc(func() time.Time { return now })}
	if t.issuer != "" {
		opts = append(opts, jwt.WithIssuer(t.issuer))
	}

	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(tok *jwt.Token) (any, error) {
		if _, ok := tok.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", tok.Header["alg"])
		}
		return t.signingKey, nil
	}, opts...)
	if err != nil {
		if goerrors.Is(err, jwt.ErrTokenExpired) {
			return nil, goerrors.New("session token expired", goerrors.CategoryAuth).
				WithTextCode("TOKEN_EXPIRED").
				WithCode(goerrors.CodeUnauthorized)
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryAuth, "malformed session token").
			WithTextCode("TOKEN_MALFORMED")
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, goerrors.New("unable to decode session token", goerrors.CategoryAuth)
	}
	return claims, nil
}
