package auth

import (
	"context"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

// JWTResolver はHS256署名のJWTをローカルで検証する。
type JWTResolver struct {
	secret  []byte
	claim   string
	options []jwt.ParserOption
}

// NewJWTResolver はJWTResolverを生成する。
// issuer、audienceが空の場合はそれぞれの検証を行わない。
func NewJWTResolver(secret, issuer, audience, claim string) (*JWTResolver, error) {
	if len(secret) < MinJWTSecretLength {
		return nil, fmt.Errorf("auth: JWT secret must be at least %d characters", MinJWTSecretLength)
	}

	options := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	}
	if issuer != "" {
		options = append(options, jwt.WithIssuer(issuer))
	}
	if audience != "" {
		options = append(options, jwt.WithAudience(audience))
	}

	return &JWTResolver{secret: []byte(secret), claim: claim, options: options}, nil
}

// Resolve はJWTの署名と有効期限を検証し、subjectクレームを返す。
func (r *JWTResolver) Resolve(ctx context.Context, token string) (string, error) {
	claims := jwt.MapClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		return r.secret, nil
	}, r.options...)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	if !parsed.Valid {
		return "", ErrInvalidToken
	}

	return subjectFromClaims(claims, r.claim)
}
