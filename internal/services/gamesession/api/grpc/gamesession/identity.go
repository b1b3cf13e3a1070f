package gamesession

import (
	"context"
	"errors"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	apperrors "github.com/louisbranch/gamesession/internal/platform/errors"
	grpcmeta "github.com/louisbranch/gamesession/internal/services/gamesession/api/grpc/metadata"
)

// Identity resolves the calling user for each request.
//
// With an HMAC key, callers must present an HS256 bearer token whose subject
// is the user. Without a key the user id header is trusted as is.
type Identity struct {
	hmacKey []byte
}

// NewIdentity builds an identity resolver. An empty key trusts the header.
func NewIdentity(hmacKey string) *Identity {
	key := strings.TrimSpace(hmacKey)
	if key == "" {
		return &Identity{}
	}
	return &Identity{hmacKey: []byte(key)}
}

// Caller returns the user making the request.
func (i *Identity) Caller(ctx context.Context) (string, error) {
	if i == nil || len(i.hmacKey) == 0 {
		user := strings.TrimSpace(grpcmeta.UserIDFromContext(ctx))
		if user == "" {
			return "", apperrors.New(apperrors.CodeUnauthenticated, "user id header is required")
		}
		return user, nil
	}

	token := grpcmeta.BearerTokenFromContext(ctx)
	if token == "" {
		return "", apperrors.New(apperrors.CodeUnauthenticated, "bearer token is required")
	}
	var claims jwt.RegisteredClaims
	_, err := jwt.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
		return i.hmacKey, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
	)
	if err != nil {
		return "", apperrors.Wrap(apperrors.CodeUnauthenticated, tokenErrorMessage(err), err)
	}
	subject := strings.TrimSpace(claims.Subject)
	if subject == "" {
		return "", apperrors.New(apperrors.CodeUnauthenticated, "token subject is required")
	}
	return subject, nil
}

func tokenErrorMessage(err error) string {
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return "token expired"
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return "token signature invalid"
	default:
		return "token invalid"
	}
}

// SignToken issues an HS256 token for user. Intended for operators and tests.
func SignToken(hmacKey, user string, claims jwt.RegisteredClaims) (string, error) {
	claims.Subject = user
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(strings.TrimSpace(hmacKey)))
}
