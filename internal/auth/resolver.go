// Package auth はBearerトークンから利用者のsubjectを解決する機能を提供する。
package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"
)

// ErrInvalidToken はトークンが無効であることを表す。
var ErrInvalidToken = errors.New("invalid token")

// 認証モード
const (
	ModeNone          = "none"
	ModeUserInfo      = "userinfo"
	ModeIntrospection = "introspection"
	ModeJWT           = "jwt"
)

// DefaultSubjectClaim はsubjectを読み取るデフォルトのクレーム名。
const DefaultSubjectClaim = "sub"

// MinJWTSecretLength はJWT署名鍵の最小長。
const MinJWTSecretLength = 16

// Resolver はBearerトークンを検証し、subjectを返すインターフェース。
type Resolver interface {
	// Resolve はトークンのsubjectを返す。
	// トークンが無効な場合はErrInvalidTokenをラップしたエラーを返す。
	Resolve(ctx context.Context, token string) (string, error)
}

// Config はResolverの生成設定。
type Config struct {
	Mode string

	UserInfoURL      string
	IntrospectionURL string
	ClientID         string
	ClientSecret     string
	SubjectClaim     string
	Timeout          time.Duration

	JWTSecret   string
	JWTIssuer   string
	JWTAudience string

	// テスト用にオーバーライド可能なHTTPクライアント
	HTTPClient *http.Client
}

// NewResolver は設定のモードに応じたResolverを生成する。
func NewResolver(cfg Config) (Resolver, error) {
	claim := cfg.SubjectClaim
	if claim == "" {
		claim = DefaultSubjectClaim
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}

	switch cfg.Mode {
	case "", ModeNone:
		return NoneResolver{}, nil
	case ModeUserInfo:
		if cfg.UserInfoURL == "" {
			return nil, errors.New("auth: userinfo URL is required")
		}
		return NewUserInfoResolver(cfg.UserInfoURL, claim, httpClient), nil
	case ModeIntrospection:
		if cfg.IntrospectionURL == "" || cfg.ClientID == "" || cfg.ClientSecret == "" {
			return nil, errors.New("auth: introspection URL, client ID and client secret are required")
		}
		return NewIntrospectionResolver(cfg.IntrospectionURL, cfg.ClientID, cfg.ClientSecret, claim, httpClient), nil
	case ModeJWT:
		return NewJWTResolver(cfg.JWTSecret, cfg.JWTIssuer, cfg.JWTAudience, claim)
	default:
		return nil, fmt.Errorf("auth: unsupported mode %q", cfg.Mode)
	}
}

// NoneResolver はすべてのトークンを拒否する。
type NoneResolver struct{}

// Resolve は常にErrInvalidTokenを返す。
func (NoneResolver) Resolve(ctx context.Context, token string) (string, error) {
	return "", ErrInvalidToken
}

// subjectFromClaims はクレームから空でない文字列のsubjectを取り出す。
func subjectFromClaims(claims map[string]any, claim string) (string, error) {
	v, ok := claims[claim]
	if !ok {
		return "", fmt.Errorf("%w: claim %q is missing", ErrInvalidToken, claim)
	}
	s, ok := v.(string)
	if !ok || s == "" {
		return "", fmt.Errorf("%w: claim %q is empty or not a string", ErrInvalidToken, claim)
	}
	return s, nil
}
