package auth

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"github.com/hitoshi/citary/internal/model"
)

// bcryptCost はパスワードハッシュのコスト。テストでは下げる。
var bcryptCost = bcrypt.DefaultCost

// HashPassword はパスワードをbcryptでハッシュ化する。
// 72バイトを超えるパスワードはKindBadRequest。
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if errors.Is(err, bcrypt.ErrPasswordTooLong) {
		return "", model.NewBadRequestError("パスワードは72バイト以内で入力してください。")
	}
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hash), nil
}

// CheckPassword はパスワードがハッシュと一致するかを返す。
// ハッシュが空（外部IdPのみで登録したユーザー）の場合は常にfalse。
func CheckPassword(hash, password string) bool {
	if hash == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// generateVerificationToken はメール確認用の不透明なトークンを生成する。
// 32バイトの乱数を16進数で表した64文字の文字列。
func generateVerificationToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate verification token: %w", err)
	}
	return hex.EncodeToString(b), nil
}
