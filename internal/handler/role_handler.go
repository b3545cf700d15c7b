package handler

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/citary/internal/middleware"
	"github.com/hitoshi/citary/internal/model"
	"github.com/hitoshi/citary/internal/schema"
)

// RoleServiceInterface はロールハンドラーが必要とするサービスインターフェース。
type RoleServiceInterface interface {
	Create(ctx context.Context, in schema.Input) (*model.Role, error)
	Update(ctx context.Context, in schema.Input) (*model.Role, error)
	Get(ctx context.Context, in schema.Input) (*model.Role, error)
	List(ctx context.Context, in schema.Input) ([]*model.Role, error)
	GetByIDs(ctx context.Context, rawIDs string) ([]*model.Role, error)
	Delete(ctx context.Context, in schema.Input) (*model.Role, error)
}

// RoleHandler はロール管理のHTTPハンドラー。
type RoleHandler struct {
	service RoleServiceInterface
}

// NewRoleHandler はRoleHandlerを生成する。
func NewRoleHandler(service RoleServiceInterface) *RoleHandler {
	return &RoleHandler{service: service}
}

// roleResponse はロール情報のAPIレスポンス。
type roleResponse struct {
	ID          int       `json:"id"`
	Name        string    `json:"name"`
	Code        string    `json:"code"`
	Description string    `json:"description"`
	Active      bool      `json:"active"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func toRoleResponse(r *model.Role) roleResponse {
	return roleResponse{
		ID:          r.ID,
		Name:        r.Name,
		Code:        r.Code,
		Description: r.Description,
		Active:      r.IsActive(),
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}
}

func toRoleResponses(roles []*model.Role) []roleResponse {
	out := make([]roleResponse, 0, len(roles))
	for _, r := range roles {
		out = append(out, toRoleResponse(r))
	}
	return out
}

// List はロール一覧を返す。
// GET /api/roles?page=1&limit=20&search=doc
func (h *RoleHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	in := schema.Input{}
	for _, key := range []string{"page", "limit"} {
		if q.Has(key) {
			in[key] = numericParam(q.Get(key))
		}
	}
	if q.Has("search") {
		in["search"] = q.Get("search")
	}

	roles, err := h.service.List(r.Context(), in)
	if err != nil {
		middleware.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"roles": toRoleResponses(roles)})
}

// GetByIDs はカンマ区切りのIDに該当するロールを返す。
// GET /api/roles/by-ids?ids=1,2,3
func (h *RoleHandler) GetByIDs(w http.ResponseWriter, r *http.Request) {
	roles, err := h.service.GetByIDs(r.Context(), r.URL.Query().Get("ids"))
	if err != nil {
		middleware.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"roles": toRoleResponses(roles)})
}

// Get はロールを1件返す。
// GET /api/roles/{id}
func (h *RoleHandler) Get(w http.ResponseWriter, r *http.Request) {
	role, err := h.service.Get(r.Context(), schema.Input{"id": numericParam(chi.URLParam(r, "id"))})
	if err != nil {
		middleware.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, toRoleResponse(role))
}

// Create はロールを作成する。
// POST /api/roles
func (h *RoleHandler) Create(w http.ResponseWriter, r *http.Request) {
	in, err := decodeInput(w, r)
	if err != nil {
		middleware.WriteError(w, r, err)
		return
	}

	role, err := h.service.Create(r.Context(), in)
	if err != nil {
		middleware.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, toRoleResponse(role))
}

// Update はロールを更新する。IDはパスパラメータが優先される。
// PUT /api/roles/{id}
func (h *RoleHandler) Update(w http.ResponseWriter, r *http.Request) {
	in, err := decodeInput(w, r)
	if err != nil {
		middleware.WriteError(w, r, err)
		return
	}
	in["id"] = numericParam(chi.URLParam(r, "id"))

	role, err := h.service.Update(r.Context(), in)
	if err != nil {
		middleware.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, toRoleResponse(role))
}

// Delete はロールを論理削除し、削除後のロールを返す。
// DELETE /api/roles/{id}
func (h *RoleHandler) Delete(w http.ResponseWriter, r *http.Request) {
	role, err := h.service.Delete(r.Context(), schema.Input{"id": numericParam(chi.URLParam(r, "id"))})
	if err != nil {
		middleware.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, toRoleResponse(role))
}

// numericParam はパス・クエリの値を整数に変換する。
// 変換できない値は文字列のまま渡し、型エラーはスキーマで報告する。
func numericParam(raw string) any {
	if n, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return n
	}
	return raw
}
