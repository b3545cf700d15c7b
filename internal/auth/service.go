// Package auth は認証に関するユースケースを提供する。
//
// すべてのユースケースは入力検証、解決、判定の順に処理する。
// ベアラートークンの検証はトークンサービスのみが行い、
// メール確認トークンの照合はリポジトリの検索のみで行う。
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/citary/internal/model"
	"github.com/hitoshi/citary/internal/repository"
	"github.com/hitoshi/citary/internal/schema"
	"github.com/hitoshi/citary/internal/token"
)

// DefaultVerificationTTL はメール確認トークンの有効期間。
const DefaultVerificationTTL = 24 * time.Hour

// IdentityProvider は外部IdPとの認可コード交換を抽象化する。
type IdentityProvider interface {
	// AuthorizationURL は同意画面のURLを生成する。
	AuthorizationURL(state string) string
	// ExchangeCode は認可コードをユーザー情報に交換する。失敗時は*ProviderError。
	ExchangeCode(ctx context.Context, code string) (*ExternalProfile, error)
}

// TokenService は署名付きトークンの発行と検証を行う。
type TokenService interface {
	Issue(payload token.Claims, ttl time.Duration) (string, bool)
	Verify(tokenString string) (token.Claims, bool)
}

// VerificationMailer はメール確認用のメールを送信する。
type VerificationMailer interface {
	SendVerification(ctx context.Context, user *model.User, verifyURL string) error
}

// ServiceConfig は認証サービスの設定。
type ServiceConfig struct {
	// TokenTTL は発行するベアラートークンの有効期間。0の場合はトークンサービスの既定値。
	TokenTTL time.Duration
	// VerificationTTL はメール確認トークンの有効期間。0の場合はDefaultVerificationTTL。
	VerificationTTL time.Duration
	// VerifyEmailURL はメール確認リンクのURL。末尾にトークンを連結する。
	VerifyEmailURL string
	// Now は現在時刻を返す。nilの場合はtime.Now。
	Now func() time.Time
}

// LoginResult はログイン系ユースケースの結果。
type LoginResult struct {
	User  *model.User
	Token string
}

// Service は認証に関するユースケースを提供する。
type Service struct {
	idp        IdentityProvider
	tokens     TokenService
	users      repository.UserRepository
	identities repository.IdentityRepository
	roles      repository.RoleRepository
	mailer     VerificationMailer
	config     ServiceConfig
}

// NewService はServiceを生成する。
func NewService(
	idp IdentityProvider,
	tokens TokenService,
	users repository.UserRepository,
	identities repository.IdentityRepository,
	roles repository.RoleRepository,
	mailer VerificationMailer,
	config ServiceConfig,
) *Service {
	if config.VerificationTTL <= 0 {
		config.VerificationTTL = DefaultVerificationTTL
	}
	if config.Now == nil {
		config.Now = time.Now
	}
	return &Service{
		idp:        idp,
		tokens:     tokens,
		users:      users,
		identities: identities,
		roles:      roles,
		mailer:     mailer,
		config:     config,
	}
}

// AuthorizationURL は外部IdPの同意画面のURLを返す。
func (s *Service) AuthorizationURL(state string) string {
	return s.idp.AuthorizationURL(state)
}

// CheckToken はメール確認トークンに紐づくユーザーを返す。
// 紐づくユーザーがいない場合はKindNotFound。
func (s *Service) CheckToken(ctx context.Context, in schema.Input) (*model.User, error) {
	values, err := checkTokenSchema.Parse(in)
	if err != nil {
		return nil, err
	}

	user, err := s.users.FindByVerificationToken(ctx, values.String("token"))
	if err != nil {
		return nil, err
	}
	return user, nil
}

// VerifyEmail はメール確認トークンを検証し、ユーザーのメールアドレスを確認済みにする。
func (s *Service) VerifyEmail(ctx context.Context, in schema.Input) (*model.User, error) {
	user, err := s.CheckToken(ctx, in)
	if err != nil {
		return nil, err
	}

	if err := s.users.MarkEmailVerified(ctx, user.ID); err != nil {
		return nil, err
	}

	user.EmailVerified = true
	user.VerificationToken = ""
	user.VerificationTokenExpiresAt = nil

	slog.Info("email verified", slog.String("user_id", user.ID))
	return user, nil
}

// Signup はメールアドレスとパスワードでユーザーを登録し、確認メールを送信する。
// 確認メールの送信失敗は登録を失敗させない。
func (s *Service) Signup(ctx context.Context, in schema.Input) (*model.User, error) {
	values, err := signupSchema.Parse(in)
	if err != nil {
		return nil, err
	}
	email := values.String("email")

	if _, err := s.users.FindByEmail(ctx, email); err == nil {
		return nil, model.NewUserAlreadyExistsError()
	} else if !model.IsKind(err, model.KindNotFound) {
		return nil, err
	}

	role, err := s.defaultRole(ctx)
	if err != nil {
		return nil, err
	}

	hash, err := HashPassword(values.String("password"))
	if model.IsKind(err, model.KindBadRequest) {
		return nil, err
	}
	if err != nil {
		return nil, model.NewInternalError(err)
	}
	verificationToken, err := generateVerificationToken()
	if err != nil {
		return nil, model.NewInternalError(err)
	}

	now := s.config.Now()
	expiresAt := now.Add(s.config.VerificationTTL)
	user := &model.User{
		ID:                         uuid.New().String(),
		RoleID:                     role.ID,
		RoleCode:                   role.Code,
		Email:                      email,
		FirstName:                  values.String("first_name"),
		LastName:                   values.String("last_name"),
		PasswordHash:               hash,
		VerificationToken:          verificationToken,
		VerificationTokenExpiresAt: &expiresAt,
		RecordStatus:               model.RecordStatusActive,
		CreatedAt:                  now,
		UpdatedAt:                  now,
	}

	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}

	slog.Info("user signed up",
		slog.String("user_id", user.ID),
		slog.String("role", role.Code),
	)

	if s.mailer != nil {
		if err := s.mailer.SendVerification(ctx, user, s.config.VerifyEmailURL+verificationToken); err != nil {
			slog.Warn("failed to send verification email",
				slog.String("user_id", user.ID),
				slog.String("error", err.Error()),
			)
		}
	}

	return user, nil
}

// Login はメールアドレスとパスワードで認証し、ベアラートークンを発行する。
// 未登録・パスワード不一致・無効ユーザーは区別せずKindUnauthorizedを返す。
// メールアドレス未確認の場合はKindForbidden。
func (s *Service) Login(ctx context.Context, in schema.Input) (*LoginResult, error) {
	values, err := loginSchema.Parse(in)
	if err != nil {
		return nil, err
	}

	user, err := s.users.FindByEmail(ctx, values.String("email"))
	if err != nil {
		if model.IsKind(err, model.KindNotFound) {
			return nil, model.NewInvalidCredentialsError()
		}
		return nil, err
	}

	if !user.IsActive() || !CheckPassword(user.PasswordHash, values.String("password")) {
		return nil, model.NewInvalidCredentialsError()
	}
	if !user.EmailVerified {
		return nil, model.NewEmailNotVerifiedError()
	}

	return s.completeLogin(ctx, user)
}

// GoogleLogin は外部IdPの認可コードでログインする。
// 初回ログインの場合はユーザーとidentityを作成する。
func (s *Service) GoogleLogin(ctx context.Context, in schema.Input) (*LoginResult, error) {
	values, err := googleLoginSchema.Parse(in)
	if err != nil {
		return nil, err
	}

	profile, err := s.idp.ExchangeCode(ctx, values.String("code"))
	if err != nil {
		return nil, classifyExchangeError(err)
	}
	// メールスコープが拒否された場合など、確認済みのメールアドレスがないプロフィールは受け付けない
	if strings.TrimSpace(profile.Email) == "" || !profile.EmailVerified {
		slog.Warn("provider profile has no verified email",
			slog.String("provider", profile.Provider),
			slog.Bool("email_present", strings.TrimSpace(profile.Email) != ""),
		)
		return nil, model.NewProviderRejectedError(errors.New("provider returned no verified email"))
	}

	user, err := s.resolveExternalUser(ctx, profile)
	if err != nil {
		return nil, err
	}
	if !user.IsActive() {
		return nil, model.NewInvalidCredentialsError()
	}

	return s.completeLogin(ctx, user)
}

// resolveExternalUser はidentityに紐づくユーザーを返す。紐付けがなければ新規作成する。
func (s *Service) resolveExternalUser(ctx context.Context, profile *ExternalProfile) (*model.User, error) {
	existing, err := s.identities.FindUserByIdentity(ctx, profile.Provider, profile.ProviderUserID)
	if err == nil {
		slog.Info("existing user logged in",
			slog.String("user_id", existing.ID),
			slog.String("provider", profile.Provider),
		)
		return existing, nil
	}
	if !model.IsKind(err, model.KindNotFound) {
		return nil, err
	}

	// パスワードで登録済みのアカウントへの自動紐付けは行わない
	if _, err := s.users.FindByEmail(ctx, profile.Email); err == nil {
		return nil, model.NewUserAlreadyExistsError()
	} else if !model.IsKind(err, model.KindNotFound) {
		return nil, err
	}

	role, err := s.defaultRole(ctx)
	if err != nil {
		return nil, err
	}

	now := s.config.Now()
	user := &model.User{
		ID:            uuid.New().String(),
		RoleID:        role.ID,
		RoleCode:      role.Code,
		Email:         normalizeEmail(profile.Email),
		FirstName:     cleanName(profile.FirstName),
		LastName:      cleanName(profile.LastName),
		EmailVerified: profile.EmailVerified,
		RecordStatus:  model.RecordStatusActive,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	identity := &model.Identity{
		ID:             uuid.New().String(),
		UserID:         user.ID,
		Provider:       profile.Provider,
		ProviderUserID: profile.ProviderUserID,
		CreatedAt:      now,
	}

	if err := s.users.CreateWithIdentity(ctx, user, identity); err != nil {
		return nil, err
	}

	slog.Info("new user created",
		slog.String("user_id", user.ID),
		slog.String("provider", profile.Provider),
	)
	return user, nil
}

// RenewToken はトークンのクレームからユーザーを再取得し、新しいトークンを発行する。
func (s *Service) RenewToken(ctx context.Context, claims token.Claims) (*LoginResult, error) {
	user, err := s.CurrentUser(ctx, claims)
	if err != nil {
		return nil, err
	}

	signed, err := s.issueToken(user)
	if err != nil {
		return nil, err
	}
	return &LoginResult{User: user, Token: signed}, nil
}

// CurrentUser はトークンのクレームに含まれるユーザーIDからユーザーを取得する。
// 削除・無効化されたユーザーのトークンはKindUnauthorizedとして扱う。
func (s *Service) CurrentUser(ctx context.Context, claims token.Claims) (*model.User, error) {
	id, ok := claims["id"].(string)
	if !ok || id == "" {
		return nil, model.NewInvalidCredentialsError()
	}

	user, err := s.users.FindByID(ctx, id)
	if err != nil {
		if model.IsKind(err, model.KindNotFound) {
			return nil, model.NewInvalidCredentialsError()
		}
		return nil, err
	}
	if !user.IsActive() {
		return nil, model.NewInvalidCredentialsError()
	}
	return user, nil
}

// Authenticate はベアラートークンを検証し、クレームを返す。
// 失敗理由は区別せずKindUnauthorizedを返す。
func (s *Service) Authenticate(tokenString string) (token.Claims, error) {
	claims, ok := s.tokens.Verify(tokenString)
	if !ok {
		return nil, model.NewInvalidCredentialsError()
	}
	return claims, nil
}

// completeLogin はトークンを発行し、最終ログイン日時を記録する。
func (s *Service) completeLogin(ctx context.Context, user *model.User) (*LoginResult, error) {
	signed, err := s.issueToken(user)
	if err != nil {
		return nil, err
	}

	now := s.config.Now()
	if err := s.users.UpdateLastLogin(ctx, user.ID, now); err != nil {
		slog.Warn("failed to record last login",
			slog.String("user_id", user.ID),
			slog.String("error", err.Error()),
		)
	} else {
		user.LastLoginAt = &now
	}

	slog.Info("user logged in", slog.String("user_id", user.ID), slog.String("role", user.RoleCode))
	return &LoginResult{User: user, Token: signed}, nil
}

func (s *Service) issueToken(user *model.User) (string, error) {
	signed, ok := s.tokens.Issue(token.Claims{"id": user.ID, "role": user.RoleCode}, s.config.TokenTTL)
	if !ok {
		return "", model.NewInternalError(errors.New("failed to issue token"))
	}
	return signed, nil
}

// defaultRole は新規ユーザーに割り当てるロールを取得する。
// 存在しないか無効な場合は設定不備としてKindInternalServerを返す。
func (s *Service) defaultRole(ctx context.Context) (*model.Role, error) {
	role, err := s.roles.FindByCode(ctx, model.DefaultRoleCode)
	if err != nil {
		if model.IsKind(err, model.KindNotFound) {
			return nil, model.NewInternalError(fmt.Errorf("default role %q not found", model.DefaultRoleCode))
		}
		return nil, err
	}
	if !role.IsActive() {
		return nil, model.NewInternalError(fmt.Errorf("default role %q is inactive", model.DefaultRoleCode))
	}
	return role, nil
}

// classifyExchangeError は外部IdPのエラーを分類済みエラーに変換する。
// 認可コードの拒否はKindUnauthorized、それ以外はKindInternalServer。
func classifyExchangeError(err error) error {
	var perr *ProviderError
	if errors.As(err, &perr) && perr.Reason == ReasonCodeRejected {
		return model.NewProviderRejectedError(err)
	}
	return model.NewInternalError(err)
}
