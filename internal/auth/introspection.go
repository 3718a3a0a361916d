package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

// IntrospectionResolver はRFC 7662のトークンイントロスペクションでトークンを検証する。
type IntrospectionResolver struct {
	url          string
	clientID     string
	clientSecret string
	claim        string
	httpClient   *http.Client
}

// NewIntrospectionResolver はIntrospectionResolverを生成する。
func NewIntrospectionResolver(endpoint, clientID, clientSecret, claim string, httpClient *http.Client) *IntrospectionResolver {
	return &IntrospectionResolver{
		url:          endpoint,
		clientID:     clientID,
		clientSecret: clientSecret,
		claim:        claim,
		httpClient:   httpClient,
	}
}

// Resolve はトークンをイントロスペクションし、activeであればsubjectを返す。
func (r *IntrospectionResolver) Resolve(ctx context.Context, token string) (string, error) {
	form := url.Values{}
	form.Set("token", token)
	form.Set("token_type_hint", "access_token")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.url, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("auth: creating introspection request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")
	req.SetBasicAuth(url.QueryEscape(r.clientID), url.QueryEscape(r.clientSecret))

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("auth: calling introspection endpoint: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("auth: introspection returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("auth: reading introspection response: %w", err)
	}

	var claims map[string]any
	if err := json.Unmarshal(body, &claims); err != nil {
		return "", fmt.Errorf("auth: decoding introspection response: %w", err)
	}

	if active, _ := claims["active"].(bool); !active {
		return "", fmt.Errorf("%w: token is not active", ErrInvalidToken)
	}

	return subjectFromClaims(claims, r.claim)
}
