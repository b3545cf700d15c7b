// Package middleware はHTTPミドルウェアを提供する。
package middleware

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/hitoshi/citary/internal/model"
	"github.com/hitoshi/citary/internal/token"
)

// contextKey はコンテキストに値を格納するための型安全なキー。
type contextKey string

// claimsContextKey はリクエストコンテキストにトークンのクレームを格納するためのキー。
var claimsContextKey = contextKey("claims")

// Authenticator はベアラートークンの検証に必要なインターフェース。
// auth.Serviceの部分集合として定義する。
type Authenticator interface {
	Authenticate(tokenString string) (token.Claims, error)
}

// NewBearerAuthMiddleware はAuthorizationヘッダーのベアラートークンを検証し、
// クレームをリクエストコンテキストに注入するミドルウェアを返す。
// トークンがない場合や無効な場合は401を返す。
func NewBearerAuthMiddleware(auth Authenticator) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw, ok := bearerToken(r)
			if !ok {
				WriteError(w, r, model.NewUnauthorizedError("認証が必要です。"))
				return
			}

			claims, err := auth.Authenticate(raw)
			if err != nil {
				WriteError(w, r, err)
				return
			}

			next.ServeHTTP(w, r.WithContext(ContextWithClaims(r.Context(), claims)))
		})
	}
}

// NewRequireRoleMiddleware はクレームのroleが指定されたいずれかでない場合に403を返す。
// NewBearerAuthMiddlewareの後に配置する。
func NewRequireRoleMiddleware(roles ...string) func(next http.Handler) http.Handler {
	allowed := make(map[string]struct{}, len(roles))
	for _, r := range roles {
		allowed[r] = struct{}{}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			role, err := RoleFromContext(r.Context())
			if err != nil {
				WriteError(w, r, model.NewUnauthorizedError("認証が必要です。"))
				return
			}
			if _, ok := allowed[role]; !ok {
				WriteError(w, r, model.NewForbiddenError("この操作を行う権限がありません。"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// bearerToken は"Authorization: Bearer <token>"からトークンを取り出す。
func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	scheme, value, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	value = strings.TrimSpace(value)
	return value, value != ""
}

// ContextWithClaims はコンテキストにクレームを注入する。
// ログミドルウェアの内側で呼ばれた場合は、ログにも主体を記録する。
func ContextWithClaims(ctx context.Context, claims token.Claims) context.Context {
	ctx = context.WithValue(ctx, claimsContextKey, claims)
	if id, err := UserIDFromContext(ctx); err == nil {
		role, _ := RoleFromContext(ctx)
		recordSubject(ctx, id, role)
	}
	return ctx
}

// ClaimsFromContext はリクエストコンテキストからクレームを取得する。
// 認証ミドルウェアを通過したリクエストでのみ有効。
func ClaimsFromContext(ctx context.Context) (token.Claims, bool) {
	claims, ok := ctx.Value(claimsContextKey).(token.Claims)
	return claims, ok && claims != nil
}

// UserIDFromContext はクレームのidを返す。
func UserIDFromContext(ctx context.Context) (string, error) {
	return claimString(ctx, "id")
}

// RoleFromContext はクレームのroleを返す。
func RoleFromContext(ctx context.Context) (string, error) {
	return claimString(ctx, "role")
}

func claimString(ctx context.Context, key string) (string, error) {
	claims, ok := ClaimsFromContext(ctx)
	if !ok {
		return "", fmt.Errorf("claims not found in context")
	}
	v, ok := claims[key].(string)
	if !ok || v == "" {
		return "", fmt.Errorf("claim %q not found", key)
	}
	return v, nil
}
