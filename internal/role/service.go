// Package role はロールの管理に関するユースケースを提供する。
package role

import (
	"context"
	"log/slog"
	"strconv"
	"strings"

	"github.com/hitoshi/citary/internal/model"
	"github.com/hitoshi/citary/internal/repository"
	"github.com/hitoshi/citary/internal/schema"
	"github.com/hitoshi/citary/internal/security"
)

// 一覧取得の既定値
const (
	DefaultPage  = 1
	DefaultLimit = 20
	maxIDsPerGet = 100
)

func idField() *schema.Field {
	return schema.Int("id", "required,min=1,max=2147483647").
		Message("required", "ロールIDは必須です。").
		Message("min", "ロールIDは1以上の整数で指定してください。").
		Message("int", "ロールIDは整数で指定してください。").
		TypeMessage("ロールIDは数値で指定してください。")
}

func nameField() *schema.Field {
	return schema.String("name", "required,max=50").
		Message("required", "ロール名は必須です。").
		Message("max", "ロール名は50文字以内で入力してください。").
		Transform(strings.TrimSpace).
		Transform(strings.ToLower)
}

func codeField() *schema.Field {
	return schema.String("code", "required,max=50").
		Message("required", "ロールコードは必須です。").
		Message("max", "ロールコードは50文字以内で入力してください。").
		Transform(strings.TrimSpace).
		Transform(strings.ToLower)
}

func descriptionField() *schema.Field {
	return schema.String("description", "max=255").
		Message("max", "説明は255文字以内で入力してください。").
		Transform(security.SanitizeText)
}

var (
	createSchema = schema.New(nameField(), codeField(), descriptionField())
	updateSchema = schema.New(idField(), nameField(), codeField(), descriptionField())
	idSchema     = schema.New(idField())
	listSchema   = schema.New(
		schema.Int("page", "min=1,max=10000").
			Message("min", "pageは1以上で指定してください。").
			Message("max", "pageは10000以下で指定してください。"),
		schema.Int("limit", "min=1,max=100").
			Message("min", "limitは1以上で指定してください。").
			Message("max", "limitは100以下で指定してください。"),
		schema.String("search", "max=50").Transform(strings.TrimSpace),
	)
)

// Service はロールのCRUDを提供する。
type Service struct {
	repo repository.RoleRepository
}

// NewService はServiceを生成する。
func NewService(repo repository.RoleRepository) *Service {
	return &Service{repo: repo}
}

// Create はロールを作成する。同名のロールが存在する場合はKindConflict。
func (s *Service) Create(ctx context.Context, in schema.Input) (*model.Role, error) {
	values, err := createSchema.Parse(in)
	if err != nil {
		return nil, err
	}
	name := values.String("name")

	_, err = s.repo.FindByName(ctx, name)
	if err := nameAvailable(name, err); err != nil {
		return nil, err
	}

	role := &model.Role{
		Name:         name,
		Code:         values.String("code"),
		Description:  values.String("description"),
		RecordStatus: model.RecordStatusActive,
	}
	if err := s.repo.Create(ctx, role); err != nil {
		return nil, err
	}

	slog.Info("role created", slog.Int("role_id", role.ID), slog.String("name", role.Name))
	return role, nil
}

// Update はロールを更新する。論理削除済みのロールはKindNotFound。
func (s *Service) Update(ctx context.Context, in schema.Input) (*model.Role, error) {
	values, err := updateSchema.Parse(in)
	if err != nil {
		return nil, err
	}
	id := values.Int("id")
	name := values.String("name")

	role, err := s.findActive(ctx, id)
	if err != nil {
		return nil, err
	}

	_, err = s.repo.FindByNameExcludingID(ctx, id, name)
	if err := nameAvailable(name, err); err != nil {
		return nil, err
	}

	role.Name = name
	role.Code = values.String("code")
	role.Description = values.String("description")
	if err := s.repo.Update(ctx, role); err != nil {
		return nil, err
	}

	slog.Info("role updated", slog.Int("role_id", role.ID))
	return role, nil
}

// Get は有効なロールを1件取得する。
func (s *Service) Get(ctx context.Context, in schema.Input) (*model.Role, error) {
	values, err := idSchema.Parse(in)
	if err != nil {
		return nil, err
	}
	return s.findActive(ctx, values.Int("id"))
}

// List は有効なロールを名前順に返す。
func (s *Service) List(ctx context.Context, in schema.Input) ([]*model.Role, error) {
	values, err := listSchema.Parse(in)
	if err != nil {
		return nil, err
	}

	filter := model.RoleFilter{
		Search: values.String("search"),
		Page:   DefaultPage,
		Limit:  DefaultLimit,
	}
	if values.Has("page") {
		filter.Page = values.Int("page")
	}
	if values.Has("limit") {
		filter.Limit = values.Int("limit")
	}

	return s.repo.List(ctx, filter)
}

// GetByIDs はカンマ区切りのIDに該当する有効なロールを返す。
// 存在しないIDは結果に含まれない。
func (s *Service) GetByIDs(ctx context.Context, rawIDs string) ([]*model.Role, error) {
	parts := strings.Split(rawIDs, ",")
	if len(parts) > maxIDsPerGet {
		return nil, model.NewBadRequestError("ロールIDは100件以内で指定してください。")
	}

	ids := make([]int, 0, len(parts))
	for _, p := range parts {
		var raw any = strings.TrimSpace(p)
		if n, err := strconv.Atoi(strings.TrimSpace(p)); err == nil {
			raw = n
		}
		values, err := idSchema.Parse(schema.Input{"id": raw})
		if err != nil {
			return nil, err
		}
		ids = append(ids, values.Int("id"))
	}

	return s.repo.FindByIDs(ctx, ids)
}

// Delete はロールを論理削除し、削除後のロールを返す。
func (s *Service) Delete(ctx context.Context, in schema.Input) (*model.Role, error) {
	values, err := idSchema.Parse(in)
	if err != nil {
		return nil, err
	}
	id := values.Int("id")

	if _, err := s.findActive(ctx, id); err != nil {
		return nil, err
	}

	role, err := s.repo.Delete(ctx, id)
	if err != nil {
		return nil, err
	}

	slog.Info("role deleted", slog.Int("role_id", id))
	return role, nil
}

// findActive は有効なロールを取得する。論理削除済みの場合はKindNotFound。
func (s *Service) findActive(ctx context.Context, id int) (*model.Role, error) {
	role, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !role.IsActive() {
		return nil, model.NewRoleNotFoundError()
	}
	return role, nil
}

// nameAvailable は同名ロールの検索結果から重複の有無を判定する。
func nameAvailable(name string, lookupErr error) error {
	switch err := lookupErr; {
	case err == nil:
		return model.NewRoleAlreadyExistsError(name)
	case model.IsKind(err, model.KindNotFound):
		return nil
	default:
		return err
	}
}
