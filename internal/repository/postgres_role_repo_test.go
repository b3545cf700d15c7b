package repository

import (
	"context"
	"testing"

	"github.com/hitoshi/citary/internal/model"
)

func TestPostgresRoleRepo_ImplementsInterface(t *testing.T) {
	var _ RoleRepository = (*PostgresRoleRepo)(nil)
}

func TestPostgresRoleRepo_CRUD(t *testing.T) {
	db := setupRepoDB(t)
	repo := NewPostgresRoleRepo(db)
	ctx := context.Background()

	role := &model.Role{Name: "nurse", Code: "nurse", Description: "看護師", RecordStatus: model.RecordStatusActive}
	if err := repo.Create(ctx, role); err != nil {
		t.Fatalf("Create returned error: %v", err)
	}
	if role.ID == 0 {
		t.Fatal("expected ID to be assigned")
	}

	got, err := repo.FindByName(ctx, "nurse")
	if err != nil {
		t.Fatalf("FindByName returned error: %v", err)
	}
	if got.ID != role.ID || got.Description != "看護師" {
		t.Errorf("unexpected role: %+v", got)
	}

	// 同名ロールの作成は競合
	err = repo.Create(ctx, &model.Role{Name: "nurse", Code: "nurse2", RecordStatus: model.RecordStatusActive})
	if !model.IsKind(err, model.KindConflict) {
		t.Errorf("duplicate create: error kind = %v, want Conflict", model.KindOf(err))
	}

	// 自分自身は重複チェックの対象外
	if _, err := repo.FindByNameExcludingID(ctx, role.ID, "nurse"); !model.IsKind(err, model.KindNotFound) {
		t.Errorf("FindByNameExcludingID: error kind = %v, want NotFound", model.KindOf(err))
	}

	role.Name = "head nurse"
	role.Description = ""
	if err := repo.Update(ctx, role); err != nil {
		t.Fatalf("Update returned error: %v", err)
	}

	deleted, err := repo.Delete(ctx, role.ID)
	if err != nil {
		t.Fatalf("Delete returned error: %v", err)
	}
	if deleted.IsActive() {
		t.Error("expected deleted role to be inactive")
	}

	// 論理削除されたロールは一覧に含まれない
	roles, err := repo.List(ctx, model.RoleFilter{Search: "nurse", Page: 1, Limit: 10})
	if err != nil {
		t.Fatalf("List returned error: %v", err)
	}
	if len(roles) != 0 {
		t.Errorf("List returned %d roles, want 0", len(roles))
	}
}

func TestPostgresRoleRepo_ListAndFindByIDs(t *testing.T) {
	db := setupRepoDB(t)
	repo := NewPostgresRoleRepo(db)
	ctx := context.Background()

	roles, err := repo.List(ctx, model.RoleFilter{Page: 1, Limit: 2})
	if err != nil {
		t.Fatalf("List returned error: %v", err)
	}
	if len(roles) != 2 {
		t.Fatalf("List returned %d roles, want 2", len(roles))
	}
	if roles[0].Name > roles[1].Name {
		t.Errorf("roles not ordered by name: %q, %q", roles[0].Name, roles[1].Name)
	}

	found, err := repo.FindByIDs(ctx, []int{roles[0].ID, roles[1].ID, 999999})
	if err != nil {
		t.Fatalf("FindByIDs returned error: %v", err)
	}
	if len(found) != 2 {
		t.Errorf("FindByIDs returned %d roles, want 2", len(found))
	}

	empty, err := repo.FindByIDs(ctx, nil)
	if err != nil || len(empty) != 0 {
		t.Errorf("FindByIDs(nil) = %v, %v", empty, err)
	}
}

func TestPostgresRoleRepo_NotFound(t *testing.T) {
	db := setupRepoDB(t)
	repo := NewPostgresRoleRepo(db)
	ctx := context.Background()

	if _, err := repo.FindByID(ctx, 999999); !model.IsKind(err, model.KindNotFound) {
		t.Errorf("FindByID: error kind = %v, want NotFound", model.KindOf(err))
	}
	if _, err := repo.Delete(ctx, 999999); !model.IsKind(err, model.KindNotFound) {
		t.Errorf("Delete: error kind = %v, want NotFound", model.KindOf(err))
	}
	err := repo.Update(ctx, &model.Role{ID: 999999, Name: "x", Code: "x"})
	if !model.IsKind(err, model.KindNotFound) {
		t.Errorf("Update: error kind = %v, want NotFound", model.KindOf(err))
	}
}
