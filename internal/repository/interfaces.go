// Package repository はデータ永続化のインターフェースとPostgreSQL実装を定義する。
//
// すべての検索メソッドは対象を返すか、KindNotFoundの*model.APIErrorを返す。
// nilとnilの組み合わせは返さない。
package repository

import (
	"context"
	"time"

	"github.com/hitoshi/citary/internal/model"
)

// UserRepository はユーザーデータの永続化インターフェース。
type UserRepository interface {
	// FindByID は指定IDのユーザーを取得する。
	FindByID(ctx context.Context, id string) (*model.User, error)

	// FindByEmail はメールアドレスでユーザーを取得する。大文字小文字は区別しない。
	FindByEmail(ctx context.Context, email string) (*model.User, error)

	// FindByVerificationToken はメール確認トークンに紐づくユーザーを取得する。
	// 期限切れのトークンは存在しないものとして扱う。
	FindByVerificationToken(ctx context.Context, token string) (*model.User, error)

	// Create はユーザーを作成する。メールアドレスが重複する場合はKindConflict。
	Create(ctx context.Context, user *model.User) error

	// CreateWithIdentity はユーザーとidentityを同一トランザクションで作成する。
	CreateWithIdentity(ctx context.Context, user *model.User, identity *model.Identity) error

	// MarkEmailVerified はメールアドレスを確認済みにし、確認トークンを破棄する。
	MarkEmailVerified(ctx context.Context, id string) error

	// UpdateLastLogin は最終ログイン日時を記録する。
	UpdateLastLogin(ctx context.Context, id string, at time.Time) error

	// ClearExpiredVerificationTokens は期限切れの確認トークンを破棄し、件数を返す。
	ClearExpiredVerificationTokens(ctx context.Context, now time.Time) (int64, error)
}

// IdentityRepository は外部IdP紐付け情報の永続化インターフェース。
type IdentityRepository interface {
	// FindUserByIdentity は外部IdPのアカウントに紐づくユーザーを返す。
	// 紐付けがない場合はKindNotFound。
	FindUserByIdentity(ctx context.Context, provider, providerUserID string) (*model.User, error)
}

// RoleRepository はロールデータの永続化インターフェース。
type RoleRepository interface {
	FindByID(ctx context.Context, id int) (*model.Role, error)
	FindByName(ctx context.Context, name string) (*model.Role, error)
	FindByCode(ctx context.Context, code string) (*model.Role, error)

	// FindByNameExcludingID は指定ID以外で同名のロールを検索する。更新時の重複チェック用。
	FindByNameExcludingID(ctx context.Context, id int, name string) (*model.Role, error)

	// FindByIDs は指定IDのうち存在する有効なロールを返す。1件もない場合は空スライス。
	FindByIDs(ctx context.Context, ids []int) ([]*model.Role, error)

	// List は有効なロールを名前順に返す。
	List(ctx context.Context, filter model.RoleFilter) ([]*model.Role, error)

	Create(ctx context.Context, role *model.Role) error
	Update(ctx context.Context, role *model.Role) error

	// Delete はロールを論理削除する（record_statusを無効にする）。
	Delete(ctx context.Context, id int) (*model.Role, error)
}
