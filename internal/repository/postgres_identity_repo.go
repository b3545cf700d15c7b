package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/citary/internal/model"
)

// PostgresIdentityRepo は外部IdPアカウントとユーザーの紐付けを参照する。
// 紐付けの作成はユーザー作成と同一トランザクションで行うため、PostgresUserRepo.CreateWithIdentityが担う。
type PostgresIdentityRepo struct {
	db *sql.DB
}

// NewPostgresIdentityRepo はPostgresIdentityRepoを生成する。
func NewPostgresIdentityRepo(db *sql.DB) *PostgresIdentityRepo {
	return &PostgresIdentityRepo{db: db}
}

// FindUserByIdentity はproviderとproviderUserIDに紐づくユーザーをロールコード付きで取得する。
// 紐付けがない場合はKindNotFound。
func (r *PostgresIdentityRepo) FindUserByIdentity(ctx context.Context, provider, providerUserID string) (*model.User, error) {
	user, err := scanUser(r.db.QueryRowContext(ctx,
		selectUser+`
		JOIN identities i ON i.user_id = u.id
		WHERE i.provider = $1 AND i.provider_user_id = $2`,
		provider, providerUserID,
	))
	if err != nil {
		return nil, classify(fmt.Errorf("failed to find user by identity (provider=%s): %w", provider, err),
			func() *model.APIError { return model.NewNotFoundError("外部アカウントの紐付けが見つかりません。") }, nil)
	}
	return user, nil
}

var _ IdentityRepository = (*PostgresIdentityRepo)(nil)
