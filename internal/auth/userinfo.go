package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"golang.org/x/oauth2"
)

// UserInfoResolver はOIDCのuserinfoエンドポイントでトークンを検証する。
type UserInfoResolver struct {
	url        string
	claim      string
	httpClient *http.Client
}

// NewUserInfoResolver はUserInfoResolverを生成する。
func NewUserInfoResolver(url, claim string, httpClient *http.Client) *UserInfoResolver {
	return &UserInfoResolver{url: url, claim: claim, httpClient: httpClient}
}

// Resolve はトークンでuserinfoを取得し、subjectクレームを返す。
// プロバイダーが401または403を返した場合はトークン無効とする。
func (r *UserInfoResolver) Resolve(ctx context.Context, token string) (string, error) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, r.httpClient)
	client := oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{
		AccessToken: token,
		TokenType:   "Bearer",
	}))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.url, nil)
	if err != nil {
		return "", fmt.Errorf("auth: creating userinfo request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("auth: calling userinfo endpoint: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusUnauthorized, http.StatusForbidden:
		return "", fmt.Errorf("%w: userinfo returned status %d", ErrInvalidToken, resp.StatusCode)
	default:
		return "", fmt.Errorf("auth: userinfo returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("auth: reading userinfo response: %w", err)
	}

	var claims map[string]any
	if err := json.Unmarshal(body, &claims); err != nil {
		return "", fmt.Errorf("auth: decoding userinfo response: %w", err)
	}

	return subjectFromClaims(claims, r.claim)
}
