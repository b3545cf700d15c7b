package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"

	"github.com/hitoshi/citary/internal/model"
)

// PostgresRoleRepo はPostgreSQLを使用したロールリポジトリ。
type PostgresRoleRepo struct {
	db *sql.DB
}

// NewPostgresRoleRepo はPostgresRoleRepoを生成する。
func NewPostgresRoleRepo(db *sql.DB) *PostgresRoleRepo {
	return &PostgresRoleRepo{db: db}
}

const selectRole = `
	SELECT id, name, code, COALESCE(description, ''), record_status, created_at, updated_at
	FROM roles`

func scanRole(row rowScanner) (*model.Role, error) {
	role := &model.Role{}
	if err := row.Scan(&role.ID, &role.Name, &role.Code, &role.Description,
		&role.RecordStatus, &role.CreatedAt, &role.UpdatedAt); err != nil {
		return nil, err
	}
	return role, nil
}

func (r *PostgresRoleRepo) findOne(ctx context.Context, op, where string, args ...any) (*model.Role, error) {
	role, err := scanRole(r.db.QueryRowContext(ctx, selectRole+" WHERE "+where, args...))
	if err != nil {
		return nil, classify(fmt.Errorf("failed to find role by %s: %w", op, err), model.NewRoleNotFoundError, nil)
	}
	return role, nil
}

// FindByID は指定IDのロールを取得する。論理削除済みのロールも返す。
func (r *PostgresRoleRepo) FindByID(ctx context.Context, id int) (*model.Role, error) {
	return r.findOne(ctx, "ID", "id = $1", id)
}

// FindByName は名前でロールを取得する。
func (r *PostgresRoleRepo) FindByName(ctx context.Context, name string) (*model.Role, error) {
	return r.findOne(ctx, "name", "name = $1", name)
}

// FindByCode はコードでロールを取得する。
func (r *PostgresRoleRepo) FindByCode(ctx context.Context, code string) (*model.Role, error) {
	return r.findOne(ctx, "code", "code = $1", code)
}

// FindByNameExcludingID は指定ID以外で同名のロールを検索する。
func (r *PostgresRoleRepo) FindByNameExcludingID(ctx context.Context, id int, name string) (*model.Role, error) {
	return r.findOne(ctx, "name excluding ID", "name = $1 AND id <> $2", name, id)
}

// FindByIDs は指定IDのうち存在する有効なロールを返す。
func (r *PostgresRoleRepo) FindByIDs(ctx context.Context, ids []int) ([]*model.Role, error) {
	if len(ids) == 0 {
		return []*model.Role{}, nil
	}

	arr := make([]int64, len(ids))
	for i, id := range ids {
		arr[i] = int64(id)
	}

	rows, err := r.db.QueryContext(ctx,
		selectRole+` WHERE id = ANY($1) AND record_status = $2 ORDER BY id`,
		pq.Array(arr), model.RecordStatusActive,
	)
	if err != nil {
		return nil, model.NewInternalError(fmt.Errorf("failed to find roles by IDs: %w", err))
	}
	return collectRoles(rows)
}

// List は有効なロールを名前順に返す。Searchが指定された場合は名前の部分一致で絞り込む。
func (r *PostgresRoleRepo) List(ctx context.Context, filter model.RoleFilter) ([]*model.Role, error) {
	rows, err := r.db.QueryContext(ctx,
		selectRole+`
		WHERE record_status = $1
		  AND ($2 = '' OR name ILIKE '%' || $2 || '%')
		ORDER BY name
		LIMIT $3 OFFSET $4`,
		model.RecordStatusActive, filter.Search, filter.Limit, filter.Offset(),
	)
	if err != nil {
		return nil, model.NewInternalError(fmt.Errorf("failed to list roles: %w", err))
	}
	return collectRoles(rows)
}

func collectRoles(rows *sql.Rows) ([]*model.Role, error) {
	defer rows.Close()

	roles := []*model.Role{}
	for rows.Next() {
		role, err := scanRole(rows)
		if err != nil {
			return nil, model.NewInternalError(fmt.Errorf("failed to scan role: %w", err))
		}
		roles = append(roles, role)
	}
	if err := rows.Err(); err != nil {
		return nil, model.NewInternalError(fmt.Errorf("failed to iterate roles: %w", err))
	}
	return roles, nil
}

// Create はロールを作成し、採番されたIDと日時をroleに設定する。
func (r *PostgresRoleRepo) Create(ctx context.Context, role *model.Role) error {
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO roles (name, code, description, record_status)
		 VALUES ($1, $2, NULLIF($3, ''), $4)
		 RETURNING id, created_at, updated_at`,
		role.Name, role.Code, role.Description, role.RecordStatus,
	).Scan(&role.ID, &role.CreatedAt, &role.UpdatedAt)
	if err != nil {
		return classify(fmt.Errorf("failed to insert role: %w", err), nil,
			func() *model.APIError { return model.NewRoleAlreadyExistsError(role.Name) })
	}
	return nil
}

// Update はロールの名前・コード・説明を更新する。
func (r *PostgresRoleRepo) Update(ctx context.Context, role *model.Role) error {
	err := r.db.QueryRowContext(ctx,
		`UPDATE roles
		 SET name = $2, code = $3, description = NULLIF($4, ''), updated_at = NOW()
		 WHERE id = $1
		 RETURNING record_status, created_at, updated_at`,
		role.ID, role.Name, role.Code, role.Description,
	).Scan(&role.RecordStatus, &role.CreatedAt, &role.UpdatedAt)
	if err != nil {
		return classify(fmt.Errorf("failed to update role: %w", err), model.NewRoleNotFoundError,
			func() *model.APIError { return model.NewRoleAlreadyExistsError(role.Name) })
	}
	return nil
}

// Delete はロールを論理削除し、削除後のロールを返す。
func (r *PostgresRoleRepo) Delete(ctx context.Context, id int) (*model.Role, error) {
	role, err := scanRole(r.db.QueryRowContext(ctx,
		`UPDATE roles SET record_status = $2, updated_at = NOW()
		 WHERE id = $1
		 RETURNING id, name, code, COALESCE(description, ''), record_status, created_at, updated_at`,
		id, model.RecordStatusInactive,
	))
	if err != nil {
		return nil, classify(fmt.Errorf("failed to delete role: %w", err), model.NewRoleNotFoundError, nil)
	}
	return role, nil
}

// compile-time interface check
var _ RoleRepository = (*PostgresRoleRepo)(nil)
