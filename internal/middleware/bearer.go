// Package middleware はHTTPミドルウェアを提供する。
package middleware

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/hitoshi/homefav/internal/auth"
	"github.com/hitoshi/homefav/internal/model"
)

// contextKey はコンテキストに値を格納するための型安全なキー。
type contextKey string

// subjectContextKey はリクエストコンテキストにトークンのsubjectを格納するためのキー。
var subjectContextKey = contextKey("subject")

var errMalformedAuthorization = errors.New("malformed Authorization header")

// errUnusableSubject はsubjectが空、または前後に空白を含むことを表す。
// subjectはそのままemailとして照合するため、正規化せずに拒否する。
var errUnusableSubject = fmt.Errorf("%w: subject is empty or has surrounding whitespace", auth.ErrInvalidToken)

// TokenResolver はBearerトークンからsubjectを解決するインターフェース。
// auth.Resolverの部分集合として定義する。
type TokenResolver interface {
	Resolve(ctx context.Context, token string) (string, error)
}

// NewBearerAuthMiddleware はAuthorizationヘッダーのBearerトークンを検証し、
// subjectをリクエストコンテキストに注入するミドルウェアを返す。
// トークンがない、または無効なリクエストには401 Unauthorizedを返す。
func NewBearerAuthMiddleware(resolver TokenResolver) func(next http.Handler) http.Handler {
	return bearerAuth(resolver, true)
}

// NewOptionalBearerAuthMiddleware はAuthorizationヘッダーがある場合のみ検証するミドルウェアを返す。
// ヘッダーがなければそのまま次に渡し、ヘッダーがあって無効な場合は401を返す。
func NewOptionalBearerAuthMiddleware(resolver TokenResolver) func(next http.Handler) http.Handler {
	return bearerAuth(resolver, false)
}

func bearerAuth(resolver TokenResolver, required bool) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, err := bearerToken(r)
			if err != nil {
				WriteErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
				return
			}
			if token == "" {
				if required {
					WriteErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
					return
				}
				next.ServeHTTP(w, r)
				return
			}

			subject, err := resolver.Resolve(r.Context(), token)
			if err == nil && (subject == "" || strings.TrimSpace(subject) != subject) {
				err = errUnusableSubject
			}
			if err != nil {
				// 無効なトークンは通常の拒否、それ以外はIdPとの通信失敗
				level := slog.LevelDebug
				if !errors.Is(err, auth.ErrInvalidToken) {
					level = slog.LevelWarn
				}
				slog.Log(r.Context(), level, "bearer token rejected",
					slog.String("request_id", RequestIDFromContext(r.Context())),
					slog.String("error", err.Error()),
				)
				WriteErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
				return
			}

			next.ServeHTTP(w, r.WithContext(ContextWithSubject(r.Context(), subject)))
		})
	}
}

// bearerToken はAuthorizationヘッダーからトークンを取り出す。
// ヘッダーがない場合は空文字列を、形式が不正な場合はエラーを返す。
func bearerToken(r *http.Request) (string, error) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", nil
	}

	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", errMalformedAuthorization
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return "", errMalformedAuthorization
	}
	return token, nil
}

// SubjectFromContext はリクエストコンテキストからトークンのsubjectを取得する。
// Bearer認証ミドルウェアを通過し、トークンが検証されたリクエストでのみ有効。
func SubjectFromContext(ctx context.Context) (string, bool) {
	subject, ok := ctx.Value(subjectContextKey).(string)
	if !ok || subject == "" {
		return "", false
	}
	return subject, true
}

// ContextWithSubject はコンテキストにsubjectを注入する。
// テストやミドルウェア以外のコンテキスト生成で使用する。
func ContextWithSubject(ctx context.Context, subject string) context.Context {
	captureSubject(ctx, subject)
	return context.WithValue(ctx, subjectContextKey, subject)
}
