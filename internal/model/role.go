package model

import "time"

// Role はユーザーに割り当てるロールを表す。
type Role struct {
	ID           int
	Name         string
	Code         string
	Description  string
	RecordStatus string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// IsActive はロールが有効かどうかを返す。
func (r *Role) IsActive() bool {
	return r.RecordStatus == RecordStatusActive
}

// RoleFilter はロール一覧取得の条件。
type RoleFilter struct {
	Search string // 名前の部分一致
	Page   int    // 1始まり
	Limit  int
}

// Offset はページ番号からOFFSET値を計算する。
func (f RoleFilter) Offset() int {
	if f.Page < 1 {
		return 0
	}
	return (f.Page - 1) * f.Limit
}
