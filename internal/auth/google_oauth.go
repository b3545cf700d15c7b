package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/oauth2"
)

// ProviderGoogle はidentitiesテーブルに保存するプロバイダー名。
const ProviderGoogle = "google"

const (
	defaultGoogleAuthURL     = "https://accounts.google.com/o/oauth2/auth"
	defaultGoogleTokenURL    = "https://oauth2.googleapis.com/token"
	defaultGoogleUserInfoURL = "https://www.googleapis.com/oauth2/v2/userinfo"

	// DefaultOAuthTimeout はコード交換とユーザー情報取得をあわせた上限時間。
	DefaultOAuthTimeout = 10 * time.Second

	// userInfoMaxBytes はユーザー情報レスポンスの読み込み上限。
	userInfoMaxBytes = 1 << 20
)

var googleScopes = []string{
	"https://www.googleapis.com/auth/userinfo.profile",
	"https://www.googleapis.com/auth/userinfo.email",
}

// ExternalProfile は外部IdPから取得したユーザー情報。永続化はしない。
type ExternalProfile struct {
	Provider       string
	ProviderUserID string
	Email          string
	EmailVerified  bool
	FirstName      string
	LastName       string
	Picture        string
}

// ProviderErrorReason は外部IdPとの通信失敗の分類。
type ProviderErrorReason string

const (
	// ReasonCodeRejected はトークンエンドポイントが認可コードを拒否したことを示す
	// （invalid_grantなど4xx応答）。使用済み・期限切れのコードが該当する。
	ReasonCodeRejected ProviderErrorReason = "code_rejected"
	// ReasonTimeout は上限時間内に応答がなかったことを示す。
	ReasonTimeout ProviderErrorReason = "timeout"
	// ReasonTransport はネットワークエラー、5xx応答、不正なレスポンスを示す。
	ReasonTransport ProviderErrorReason = "transport"
	// ReasonMisconfigured はクライアントIDやシークレットなど、サーバー側の設定をIdPが拒否したことを示す。
	ReasonMisconfigured ProviderErrorReason = "misconfigured"
)

// ProviderError は外部IdPとの通信エラー。
type ProviderError struct {
	Reason ProviderErrorReason
	Op     string
	Err    error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("oauth %s failed (%s): %v", e.Op, e.Reason, e.Err)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// GoogleOAuthConfig はGoogle OAuthプロバイダーの設定。
type GoogleOAuthConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string

	// HTTPClient は外部通信に使うクライアント。本番ではSSRF対策済みのものを渡す。
	// nilの場合はhttp.DefaultClient。
	HTTPClient *http.Client
	// Timeout は1回のExchangeCodeの上限時間。0の場合はDefaultOAuthTimeout。
	Timeout time.Duration

	// テスト用にオーバーライド可能なURL
	AuthURL     string
	TokenURL    string
	UserInfoURL string
}

// GoogleOAuthProvider はGoogle OAuth 2.0による認証を提供する。
type GoogleOAuthProvider struct {
	oauth       *oauth2.Config
	userInfoURL string
	client      *http.Client
	timeout     time.Duration
}

// NewGoogleOAuthProvider はGoogleOAuthProviderを生成する。
func NewGoogleOAuthProvider(config GoogleOAuthConfig) *GoogleOAuthProvider {
	if config.AuthURL == "" {
		config.AuthURL = defaultGoogleAuthURL
	}
	if config.TokenURL == "" {
		config.TokenURL = defaultGoogleTokenURL
	}
	if config.UserInfoURL == "" {
		config.UserInfoURL = defaultGoogleUserInfoURL
	}
	if config.HTTPClient == nil {
		config.HTTPClient = http.DefaultClient
	}
	if config.Timeout <= 0 {
		config.Timeout = DefaultOAuthTimeout
	}

	return &GoogleOAuthProvider{
		oauth: &oauth2.Config{
			ClientID:     config.ClientID,
			ClientSecret: config.ClientSecret,
			RedirectURL:  config.RedirectURL,
			Scopes:       googleScopes,
			Endpoint: oauth2.Endpoint{
				AuthURL:   config.AuthURL,
				TokenURL:  config.TokenURL,
				AuthStyle: oauth2.AuthStyleInParams,
			},
		},
		userInfoURL: config.UserInfoURL,
		client:      config.HTTPClient,
		timeout:     config.Timeout,
	}
}

// AuthorizationURL は同意画面のURLを生成する。
// リフレッシュトークンを毎回取得できるよう、オフラインアクセスと同意の再表示を要求する。
func (p *GoogleOAuthProvider) AuthorizationURL(state string) string {
	return p.oauth.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.ApprovalForce)
}

// googleUserInfo はv2ユーザー情報エンドポイントのレスポンス。
type googleUserInfo struct {
	ID            string `json:"id"`
	Email         string `json:"email"`
	VerifiedEmail bool   `json:"verified_email"`
	GivenName     string `json:"given_name"`
	FamilyName    string `json:"family_name"`
	Picture       string `json:"picture"`
}

// ExchangeCode は認可コードをアクセストークンに交換し、ユーザー情報を取得する。
// 失敗時は*ProviderErrorを返す。ctxがキャンセルされた場合は通信を中断する。
func (p *GoogleOAuthProvider) ExchangeCode(ctx context.Context, code string) (*ExternalProfile, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()
	ctx = context.WithValue(ctx, oauth2.HTTPClient, p.client)

	tok, err := p.oauth.Exchange(ctx, code)
	if err != nil {
		return nil, classifyProviderError(ctx, "code exchange", err)
	}

	info, err := p.fetchUserInfo(ctx, tok)
	if err != nil {
		return nil, classifyProviderError(ctx, "userinfo", err)
	}

	return &ExternalProfile{
		Provider:       ProviderGoogle,
		ProviderUserID: info.ID,
		Email:          info.Email,
		EmailVerified:  info.VerifiedEmail,
		FirstName:      info.GivenName,
		LastName:       info.FamilyName,
		Picture:        info.Picture,
	}, nil
}

// fetchUserInfo はアクセストークンでユーザー情報を取得する。
func (p *GoogleOAuthProvider) fetchUserInfo(ctx context.Context, tok *oauth2.Token) (*googleUserInfo, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.userInfoURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create user info request: %w", err)
	}

	resp, err := p.oauth.Client(ctx, tok).Do(req)
	if err != nil {
		return nil, fmt.Errorf("user info request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, userInfoMaxBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read user info response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("user info fetch failed with status %d", resp.StatusCode)
	}

	var info googleUserInfo
	if err := json.Unmarshal(body, &info); err != nil {
		return nil, fmt.Errorf("failed to parse user info response: %w", err)
	}
	if info.ID == "" {
		return nil, errors.New("empty id in user info response")
	}
	return &info, nil
}

// classifyProviderError は通信エラーを理由ごとに分類する。
func classifyProviderError(ctx context.Context, op string, err error) *ProviderError {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) || errors.Is(err, context.DeadlineExceeded) {
		return &ProviderError{Reason: ReasonTimeout, Op: op, Err: err}
	}

	var retrieveErr *oauth2.RetrieveError
	if errors.As(err, &retrieveErr) {
		status := 0
		if retrieveErr.Response != nil {
			status = retrieveErr.Response.StatusCode
		}
		switch {
		case retrieveErr.ErrorCode == "invalid_grant", retrieveErr.ErrorCode == "invalid_request":
			return &ProviderError{Reason: ReasonCodeRejected, Op: op, Err: err}
		case retrieveErr.ErrorCode == "" && status == http.StatusBadRequest:
			return &ProviderError{Reason: ReasonCodeRejected, Op: op, Err: err}
		case status >= 400 && status < 500:
			// invalid_client、unauthorized_clientなど
			return &ProviderError{Reason: ReasonMisconfigured, Op: op, Err: err}
		}
	}

	return &ProviderError{Reason: ReasonTransport, Op: op, Err: err}
}

// compile-time interface check
var _ IdentityProvider = (*GoogleOAuthProvider)(nil)
