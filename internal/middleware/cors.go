package middleware

import (
	"net/http"
	"strings"
)

// NewCORSMiddleware はカンマ区切りで指定されたオリジンに対するCORSミドルウェアを返す。
// リクエストのOriginが許可リストにあればその値を返し、なければAllow-Originを付けない。
// Originヘッダーのないリクエストには、許可オリジンが1つだけの場合その値を返す。
// 認証はAuthorizationヘッダーで行うためCookieは送信させない。
func NewCORSMiddleware(allowedOrigins string) func(next http.Handler) http.Handler {
	allowed := make(map[string]struct{})
	var single string
	for _, o := range strings.Split(allowedOrigins, ",") {
		if o = strings.TrimRight(strings.TrimSpace(o), "/"); o != "" {
			allowed[o] = struct{}{}
			single = o
		}
	}
	if len(allowed) != 1 {
		single = ""
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := w.Header()
			origin := r.Header.Get("Origin")
			switch _, ok := allowed[origin]; {
			case origin != "" && ok:
				h.Set("Access-Control-Allow-Origin", origin)
			case origin == "" && single != "":
				h.Set("Access-Control-Allow-Origin", single)
			}
			h.Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
			h.Set("Access-Control-Allow-Headers", "Authorization, Content-Type")
			h.Add("Vary", "Origin")
			h.Set("Access-Control-Max-Age", "86400")

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
