package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	chimiddleware "github.com/go-chi/chi/v5/middleware"
)

// statusRecorder はhttp.ResponseWriterをラップし、ステータスコードを記録する。
type statusRecorder struct {
	http.ResponseWriter
	statusCode int
	written    bool
}

func (sr *statusRecorder) WriteHeader(code int) {
	if !sr.written {
		sr.statusCode = code
		sr.written = true
	}
	sr.ResponseWriter.WriteHeader(code)
}

// Write はWriteHeaderが未呼び出しの場合に200を記録してから書き込む。
func (sr *statusRecorder) Write(b []byte) (int, error) {
	if !sr.written {
		sr.statusCode = http.StatusOK
		sr.written = true
	}
	return sr.ResponseWriter.Write(b)
}

// requestSubject は内側のミドルウェアで認証された主体を外側のログへ伝える。
// 認証はルートグループごとに行われるため、ログ側のコンテキストには直接届かない。
type requestSubject struct {
	userID string
	role   string
}

type subjectKey struct{}

// recordSubject はログ用の主体情報を更新する。ログミドルウェアの外では何もしない。
func recordSubject(ctx context.Context, userID, role string) {
	if s, ok := ctx.Value(subjectKey{}).(*requestSubject); ok {
		s.userID = userID
		s.role = role
	}
}

// NewLoggingMiddleware はリクエストのJSON構造化ログを出力するミドルウェアを返す。
// 認証済みのリクエストにはuser_idとroleを付与する。
// 5xxはError、4xxはWarn、それ以外はInfoで出力する。
func NewLoggingMiddleware(logger *slog.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			subject := &requestSubject{}
			if id, err := UserIDFromContext(r.Context()); err == nil {
				subject.userID = id
				subject.role, _ = RoleFromContext(r.Context())
			}
			r = r.WithContext(context.WithValue(r.Context(), subjectKey{}, subject))

			rec := &statusRecorder{ResponseWriter: w, statusCode: http.StatusOK}
			next.ServeHTTP(rec, r)

			attrs := []any{
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status", rec.statusCode),
				slog.Float64("duration_ms", float64(time.Since(start).Nanoseconds())/float64(time.Millisecond)),
				slog.String("remote_addr", r.RemoteAddr),
			}
			if reqID := chimiddleware.GetReqID(r.Context()); reqID != "" {
				attrs = append(attrs, slog.String("request_id", reqID))
			}
			if subject.userID != "" {
				attrs = append(attrs,
					slog.String("user_id", subject.userID),
					slog.String("role", subject.role),
				)
			}

			level := slog.LevelInfo
			switch {
			case rec.statusCode >= 500:
				level = slog.LevelError
			case rec.statusCode >= 400:
				level = slog.LevelWarn
			}

			logger.Log(r.Context(), level, "http_request", attrs...)
		})
	}
}
