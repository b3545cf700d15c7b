// Package handler はHTTPハンドラーを提供する。
package handler

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/hitoshi/citary/internal/auth"
	"github.com/hitoshi/citary/internal/metrics"
	"github.com/hitoshi/citary/internal/middleware"
	"github.com/hitoshi/citary/internal/model"
	"github.com/hitoshi/citary/internal/schema"
	"github.com/hitoshi/citary/internal/token"
)

const oauthStateCookie = "oauth_state"

// 認証方式のメトリクスラベル
const (
	methodPassword    = "password"
	methodGoogle      = "google"
	methodRenew       = "renew"
	methodVerifyEmail = "verify_email"
)

// AuthServiceInterface は認証ハンドラーが必要とするサービスインターフェース。
type AuthServiceInterface interface {
	AuthorizationURL(state string) string
	CheckToken(ctx context.Context, in schema.Input) (*model.User, error)
	VerifyEmail(ctx context.Context, in schema.Input) (*model.User, error)
	Signup(ctx context.Context, in schema.Input) (*model.User, error)
	Login(ctx context.Context, in schema.Input) (*auth.LoginResult, error)
	GoogleLogin(ctx context.Context, in schema.Input) (*auth.LoginResult, error)
	RenewToken(ctx context.Context, claims token.Claims) (*auth.LoginResult, error)
	CurrentUser(ctx context.Context, claims token.Claims) (*model.User, error)
}

// AuthMetrics は認証ハンドラーが記録するメトリクス。
type AuthMetrics interface {
	RecordAuthAttempt(method, outcome string)
	RecordTokenIssued(method string)
}

// AuthHandlerConfig は認証ハンドラーの設定。
type AuthHandlerConfig struct {
	// FrontendURL はGoogleログイン完了後のリダイレクト先。
	FrontendURL  string
	CookieSecure bool
}

// AuthHandler は認証関連のHTTPハンドラー。
type AuthHandler struct {
	service AuthServiceInterface
	metrics AuthMetrics
	config  AuthHandlerConfig
}

// NewAuthHandler はAuthHandlerを生成する。metricsがnilの場合は記録しない。
func NewAuthHandler(service AuthServiceInterface, m AuthMetrics, config AuthHandlerConfig) *AuthHandler {
	if m == nil {
		m = metrics.NopCollector{}
	}
	return &AuthHandler{
		service: service,
		metrics: m,
		config:  config,
	}
}

// tokenResponse はトークン発行系エンドポイントのレスポンス。
type tokenResponse struct {
	Token string       `json:"token"`
	User  userResponse `json:"user"`
}

// GoogleRedirect はGoogle OAuthフローを開始する。
// GET /auth/google/login
func (h *AuthHandler) GoogleRedirect(w http.ResponseWriter, r *http.Request) {
	state, err := generateState()
	if err != nil {
		slog.Error("failed to generate oauth state", slog.String("error", err.Error()))
		middleware.WriteInternalServerError(w)
		return
	}

	// stateをCookieに保存（CSRF対策）
	http.SetCookie(w, &http.Cookie{
		Name:     oauthStateCookie,
		Value:    state,
		Path:     "/auth/google",
		MaxAge:   600, // 10分
		HttpOnly: true,
		Secure:   h.config.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})

	http.Redirect(w, r, h.service.AuthorizationURL(state), http.StatusTemporaryRedirect)
}

// GoogleCallback はOAuthコールバックを処理し、トークンを付けてフロントエンドにリダイレクトする。
// GET /auth/google/callback?code=xxx&state=yyy
func (h *AuthHandler) GoogleCallback(w http.ResponseWriter, r *http.Request) {
	state := r.URL.Query().Get("state")
	stateCookie, err := r.Cookie(oauthStateCookie)
	if err != nil || state == "" || stateCookie.Value != state {
		slog.Warn("oauth state mismatch")
		middleware.WriteError(w, r, model.NewBadRequestError("stateパラメータが不正です。"))
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     oauthStateCookie,
		Value:    "",
		Path:     "/auth/google",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.config.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})

	// IdP側でユーザーが同意を拒否した場合
	if errParam := r.URL.Query().Get("error"); errParam != "" {
		h.metrics.RecordAuthAttempt(methodGoogle, metrics.OutcomeFailure)
		middleware.WriteError(w, r, model.NewUnauthorizedError("Googleでの認証が拒否されました。"))
		return
	}

	result, err := h.service.GoogleLogin(r.Context(), schema.Input{"code": r.URL.Query().Get("code")})
	if err != nil {
		h.metrics.RecordAuthAttempt(methodGoogle, metrics.OutcomeFailure)
		middleware.WriteError(w, r, err)
		return
	}
	h.metrics.RecordAuthAttempt(methodGoogle, metrics.OutcomeSuccess)
	h.metrics.RecordTokenIssued(methodGoogle)

	// トークンはクエリではなくURLフラグメントで渡す
	target := strings.TrimRight(h.config.FrontendURL, "/") + "/auth/callback#token=" + url.QueryEscape(result.Token)
	http.Redirect(w, r, target, http.StatusSeeOther)
}

// GoogleLogin はフロントエンドが取得した認可コードでログインする。
// POST /auth/google {"code": "..."}
func (h *AuthHandler) GoogleLogin(w http.ResponseWriter, r *http.Request) {
	h.login(w, r, methodGoogle, h.service.GoogleLogin)
}

// Login はメールアドレスとパスワードでログインする。
// POST /auth/login {"email": "...", "password": "..."}
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	h.login(w, r, methodPassword, h.service.Login)
}

func (h *AuthHandler) login(
	w http.ResponseWriter,
	r *http.Request,
	method string,
	fn func(context.Context, schema.Input) (*auth.LoginResult, error),
) {
	in, err := decodeInput(w, r)
	if err != nil {
		middleware.WriteError(w, r, err)
		return
	}

	result, err := fn(r.Context(), in)
	if err != nil {
		h.metrics.RecordAuthAttempt(method, metrics.OutcomeFailure)
		middleware.WriteError(w, r, err)
		return
	}
	h.metrics.RecordAuthAttempt(method, metrics.OutcomeSuccess)
	h.metrics.RecordTokenIssued(method)

	writeJSON(w, http.StatusOK, tokenResponse{Token: result.Token, User: toUserResponse(result.User)})
}

// Signup はユーザーを登録する。
// POST /auth/signup
func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	in, err := decodeInput(w, r)
	if err != nil {
		middleware.WriteError(w, r, err)
		return
	}

	user, err := h.service.Signup(r.Context(), in)
	if err != nil {
		middleware.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, toUserResponse(user))
}

// CheckToken はメール確認トークンに紐づくユーザーを返す。
// POST /auth/check-token {"token": "..."}
func (h *AuthHandler) CheckToken(w http.ResponseWriter, r *http.Request) {
	in, err := decodeInput(w, r)
	if err != nil {
		middleware.WriteError(w, r, err)
		return
	}

	user, err := h.service.CheckToken(r.Context(), in)
	if err != nil {
		middleware.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, toUserResponse(user))
}

// VerifyEmail はメールアドレスを確認済みにする。
// POST /auth/verify-email {"token": "..."}
func (h *AuthHandler) VerifyEmail(w http.ResponseWriter, r *http.Request) {
	in, err := decodeInput(w, r)
	if err != nil {
		middleware.WriteError(w, r, err)
		return
	}

	user, err := h.service.VerifyEmail(r.Context(), in)
	if err != nil {
		h.metrics.RecordAuthAttempt(methodVerifyEmail, metrics.OutcomeFailure)
		middleware.WriteError(w, r, err)
		return
	}
	h.metrics.RecordAuthAttempt(methodVerifyEmail, metrics.OutcomeSuccess)

	writeJSON(w, http.StatusOK, toUserResponse(user))
}

// Renew は現在のトークンのユーザーに新しいトークンを発行する。
// GET /auth/renew（要認証）
func (h *AuthHandler) Renew(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		middleware.WriteError(w, r, model.NewUnauthorizedError("認証が必要です。"))
		return
	}

	result, err := h.service.RenewToken(r.Context(), claims)
	if err != nil {
		middleware.WriteError(w, r, err)
		return
	}
	h.metrics.RecordTokenIssued(methodRenew)

	writeJSON(w, http.StatusOK, tokenResponse{Token: result.Token, User: toUserResponse(result.User)})
}

// Me は現在のログインユーザー情報を返す。
// GET /auth/me（要認証）
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		middleware.WriteError(w, r, model.NewUnauthorizedError("認証が必要です。"))
		return
	}

	user, err := h.service.CurrentUser(r.Context(), claims)
	if err != nil {
		middleware.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, toUserResponse(user))
}

// generateState はCSRF対策用のランダムなstate値を生成する。
func generateState() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
