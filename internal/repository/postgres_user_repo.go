package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/hitoshi/citary/internal/model"
)

// PostgresUserRepo はPostgreSQLを使用したユーザーリポジトリ。
type PostgresUserRepo struct {
	db *sql.DB
}

// NewPostgresUserRepo はPostgresUserRepoを生成する。
func NewPostgresUserRepo(db *sql.DB) *PostgresUserRepo {
	return &PostgresUserRepo{db: db}
}

const selectUser = `
	SELECT u.id, u.role_id, r.code, u.email, u.first_name, u.last_name,
	       COALESCE(u.password_hash, ''), u.email_verified,
	       COALESCE(u.verification_token, ''), u.verification_token_expires_at,
	       u.last_login_at, u.record_status, u.created_at, u.updated_at
	FROM users u
	JOIN roles r ON r.id = u.role_id`

// rowScanner は*sql.Rowと*sql.Rowsの共通インターフェース。
type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*model.User, error) {
	user := &model.User{}
	var tokenExpiresAt, lastLoginAt sql.NullTime
	err := row.Scan(
		&user.ID, &user.RoleID, &user.RoleCode, &user.Email, &user.FirstName, &user.LastName,
		&user.PasswordHash, &user.EmailVerified,
		&user.VerificationToken, &tokenExpiresAt,
		&lastLoginAt, &user.RecordStatus, &user.CreatedAt, &user.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if tokenExpiresAt.Valid {
		user.VerificationTokenExpiresAt = &tokenExpiresAt.Time
	}
	if lastLoginAt.Valid {
		user.LastLoginAt = &lastLoginAt.Time
	}
	return user, nil
}

// FindByID は指定IDのユーザーを取得する。
func (r *PostgresUserRepo) FindByID(ctx context.Context, id string) (*model.User, error) {
	user, err := scanUser(r.db.QueryRowContext(ctx, selectUser+` WHERE u.id = $1`, id))
	if err != nil {
		return nil, classify(fmt.Errorf("failed to find user by ID: %w", err), model.NewUserNotFoundError, nil)
	}
	return user, nil
}

// FindByEmail はメールアドレスでユーザーを取得する。
func (r *PostgresUserRepo) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	user, err := scanUser(r.db.QueryRowContext(ctx,
		selectUser+` WHERE LOWER(u.email) = $1`,
		strings.ToLower(email),
	))
	if err != nil {
		return nil, classify(fmt.Errorf("failed to find user by email: %w", err), model.NewUserNotFoundError, nil)
	}
	return user, nil
}

// FindByVerificationToken はメール確認トークンに紐づくユーザーを取得する。
func (r *PostgresUserRepo) FindByVerificationToken(ctx context.Context, token string) (*model.User, error) {
	user, err := scanUser(r.db.QueryRowContext(ctx,
		selectUser+`
		WHERE u.verification_token = $1
		  AND (u.verification_token_expires_at IS NULL OR u.verification_token_expires_at > NOW())`,
		token,
	))
	if err != nil {
		return nil, classify(fmt.Errorf("failed to find user by verification token: %w", err), model.NewTokenNotFoundError, nil)
	}
	return user, nil
}

// Create はユーザーを作成する。
func (r *PostgresUserRepo) Create(ctx context.Context, user *model.User) error {
	if err := insertUser(ctx, r.db, user); err != nil {
		return classify(err, nil, model.NewUserAlreadyExistsError)
	}
	return nil
}

// CreateWithIdentity はユーザーとidentityを同一トランザクションで作成する。
func (r *PostgresUserRepo) CreateWithIdentity(ctx context.Context, user *model.User, identity *model.Identity) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return model.NewInternalError(fmt.Errorf("failed to begin transaction: %w", err))
	}
	defer tx.Rollback()

	if err := insertUser(ctx, tx, user); err != nil {
		return classify(err, nil, model.NewUserAlreadyExistsError)
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO identities (id, user_id, provider, provider_user_id, created_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		identity.ID, identity.UserID, identity.Provider, identity.ProviderUserID, identity.CreatedAt,
	)
	if err != nil {
		return classify(fmt.Errorf("failed to insert identity: %w", err), nil,
			func() *model.APIError { return model.NewConflictError("この外部アカウントはすでに登録されています。") })
	}

	if err := tx.Commit(); err != nil {
		return model.NewInternalError(fmt.Errorf("failed to commit transaction: %w", err))
	}
	return nil
}

// execer は*sql.DBと*sql.Txの共通インターフェース。
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func insertUser(ctx context.Context, db execer, user *model.User) error {
	_, err := db.ExecContext(ctx,
		`INSERT INTO users (id, role_id, email, first_name, last_name, password_hash,
		                    email_verified, verification_token, verification_token_expires_at,
		                    record_status, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, NULLIF($6, ''), $7, NULLIF($8, ''), $9, $10, $11, $12)`,
		user.ID, user.RoleID, user.Email, user.FirstName, user.LastName, user.PasswordHash,
		user.EmailVerified, user.VerificationToken, user.VerificationTokenExpiresAt,
		user.RecordStatus, user.CreatedAt, user.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert user: %w", err)
	}
	return nil
}

// MarkEmailVerified はメールアドレスを確認済みにし、確認トークンを破棄する。
func (r *PostgresUserRepo) MarkEmailVerified(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE users
		 SET email_verified = TRUE,
		     verification_token = NULL,
		     verification_token_expires_at = NULL,
		     updated_at = NOW()
		 WHERE id = $1`,
		id,
	)
	if err != nil {
		return model.NewInternalError(fmt.Errorf("failed to mark email verified: %w", err))
	}
	return requireAffected(result, model.NewUserNotFoundError)
}

// UpdateLastLogin は最終ログイン日時を記録する。
func (r *PostgresUserRepo) UpdateLastLogin(ctx context.Context, id string, at time.Time) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE users SET last_login_at = $2, updated_at = NOW() WHERE id = $1`,
		id, at,
	)
	if err != nil {
		return model.NewInternalError(fmt.Errorf("failed to update last login: %w", err))
	}
	return requireAffected(result, model.NewUserNotFoundError)
}

// ClearExpiredVerificationTokens は期限切れの確認トークンを破棄し、件数を返す。
func (r *PostgresUserRepo) ClearExpiredVerificationTokens(ctx context.Context, now time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx,
		`UPDATE users
		 SET verification_token = NULL, verification_token_expires_at = NULL
		 WHERE verification_token IS NOT NULL
		   AND verification_token_expires_at < $1`,
		now,
	)
	if err != nil {
		return 0, model.NewInternalError(fmt.Errorf("failed to clear expired verification tokens: %w", err))
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, model.NewInternalError(fmt.Errorf("failed to get rows affected: %w", err))
	}
	return n, nil
}

// requireAffected は更新対象が存在しなかった場合にnotFoundを返す。
func requireAffected(result sql.Result, notFound func() *model.APIError) error {
	n, err := result.RowsAffected()
	if err != nil {
		return model.NewInternalError(fmt.Errorf("failed to get rows affected: %w", err))
	}
	if n == 0 {
		return notFound()
	}
	return nil
}

// compile-time interface check
var _ UserRepository = (*PostgresUserRepo)(nil)
