package interceptors

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"connectrpc.com/connect"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	errMissingToken   = errors.New("missing bearer token")
	errInvalidToken   = errors.New("invalid or expired token")
	errInvalidSubject = errors.New("token subject is not a valid user id")
)

// NewAuthInterceptor verifies HMAC-signed bearer tokens and stores the token
// subject as the owner id. Procedures listed as public skip verification.
func NewAuthInterceptor(secret []byte, publicProcedures ...string) connect.UnaryInterceptorFunc {
	public := make(map[string]struct{}, len(publicProcedures))
	for _, p := range publicProcedures {
		public[p] = struct{}{}
	}

	return func(next connect.UnaryFunc) connect.UnaryFunc {
		return func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
			if _, ok := public[req.Spec().Procedure]; ok {
				return next(ctx, req)
			}

			token, ok := bearerToken(req.Header().Get("Authorization"))
			if !ok {
				return nil, connect.NewError(connect.CodeUnauthenticated, errMissingToken)
			}

			userID, err := ParseSubject(token, secret)
			if err != nil {
				return nil, connect.NewError(connect.CodeUnauthenticated, err)
			}

			return next(context.WithValue(ctx, UserIDKey, userID), req)
		}
	}
}

// ParseSubject validates the token and returns its subject, which must be a UUID.
func ParseSubject(tokenString string, secret []byte) (string, error) {
	if len(secret) == 0 {
		return "", errInvalidToken
	}

	claims := &jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims,
		func(*jwt.Token) (any, error) { return secret, nil },
		jwt.WithValidMethods([]string{"HS256", "HS384", "HS512"}),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return "", fmt.Errorf("%w: %w", errInvalidToken, err)
	}
	if !token.Valid {
		return "", errInvalidToken
	}

	if _, err := uuid.Parse(claims.Subject); err != nil {
		return "", errInvalidSubject
	}
	return claims.Subject, nil
}

func bearerToken(header string) (string, bool) {
	scheme, token, found := strings.Cut(strings.TrimSpace(header), " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}
