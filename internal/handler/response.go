package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/hitoshi/citary/internal/model"
	"github.com/hitoshi/citary/internal/schema"
)

// maxBodyBytes はJSONリクエストボディの上限サイズ。
const maxBodyBytes = 1 << 20

// userResponse はユーザー情報のAPIレスポンス。
// パスワードハッシュと確認トークンは含めない。
type userResponse struct {
	ID            string     `json:"id"`
	RoleID        int        `json:"role_id"`
	Role          string     `json:"role"`
	Email         string     `json:"email"`
	FirstName     string     `json:"first_name"`
	LastName      string     `json:"last_name"`
	EmailVerified bool       `json:"email_verified"`
	LastLoginAt   *time.Time `json:"last_login_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
}

func toUserResponse(u *model.User) userResponse {
	return userResponse{
		ID:            u.ID,
		RoleID:        u.RoleID,
		Role:          u.RoleCode,
		Email:         u.Email,
		FirstName:     u.FirstName,
		LastName:      u.LastName,
		EmailVerified: u.EmailVerified,
		LastLoginAt:   u.LastLoginAt,
		CreatedAt:     u.CreatedAt,
	}
}

// writeJSON はJSONレスポンスを書き込む。
func writeJSON(w http.ResponseWriter, statusCode int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(v)
}

// decodeInput はJSONボディをスキーマ入力として読み込む。
// 空ボディは空の入力として扱い、必須チェックはスキーマに委ねる。
func decodeInput(w http.ResponseWriter, r *http.Request) (schema.Input, error) {
	in := schema.Input{}

	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.UseNumber()
	if err := dec.Decode(&in); err != nil {
		if errors.Is(err, io.EOF) {
			return schema.Input{}, nil
		}
		return nil, model.NewBadRequestError("リクエストボディのJSONが不正です。")
	}
	if in == nil {
		in = schema.Input{}
	}
	return in, nil
}
