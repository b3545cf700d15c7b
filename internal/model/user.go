// Package model はドメインモデルを定義する。
package model

import (
	"strings"
	"time"
)

// レコード状態
const (
	RecordStatusActive   = "0"
	RecordStatusInactive = "9"
)

// ロールコード
const (
	RoleCodeSuperAdmin = "super_admin"
	RoleCodeAdmin      = "admin"
	RoleCodeStaff      = "staff"
	RoleCodeDoctor     = "doctor"
	RoleCodePatient    = "patient"

	// DefaultRoleCode は新規ユーザーに割り当てるロール。
	DefaultRoleCode = RoleCodePatient
)

// User はサービス利用ユーザーを表す。
type User struct {
	ID            string
	RoleID        int
	RoleCode      string
	Email         string
	FirstName     string
	LastName      string
	PasswordHash  string
	EmailVerified bool

	// VerificationToken はメールアドレス確認用の不透明なトークン。
	// 署名付きトークンとは別物で、DBに保存された値との一致のみで照合する。
	VerificationToken          string
	VerificationTokenExpiresAt *time.Time

	LastLoginAt  *time.Time
	RecordStatus string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// FullName は姓名を結合した表示名を返す。
func (u *User) FullName() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

// IsActive はユーザーが有効かどうかを返す。
func (u *User) IsActive() bool {
	return u.RecordStatus == RecordStatusActive
}

// Identity は外部IdPとの紐付け情報を表す。
type Identity struct {
	ID             string
	UserID         string
	Provider       string
	ProviderUserID string
	CreatedAt      time.Time
}
