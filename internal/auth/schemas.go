package auth

import (
	"strings"

	"github.com/hitoshi/citary/internal/schema"
	"github.com/hitoshi/citary/internal/security"
)

func normalizeEmail(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func cleanName(s string) string {
	return security.SanitizeText(strings.TrimSpace(s))
}

var checkTokenSchema = schema.New(
	schema.String("token", "required,max=255").
		Message("required", "トークンは必須です。").
		TypeMessage("トークンは文字列で指定してください。"),
)

var signupSchema = schema.New(
	schema.String("email", "required,email,max=255").
		Message("required", "メールアドレスは必須です。").
		Message("email", "メールアドレスの形式が正しくありません。").
		Transform(normalizeEmail),
	schema.String("password", "required,min=8,maxbytes=72,haslower,hasupper,hasdigit,hassymbol").
		Message("required", "パスワードは必須です。").
		Message("min", "パスワードは8文字以上で入力してください。").
		Message("maxbytes", "パスワードは72バイト以内で入力してください（全角文字は1文字3バイト）。").
		Message("haslower", "パスワードには英小文字を1文字以上含めてください。").
		Message("hasupper", "パスワードには英大文字を1文字以上含めてください。").
		Message("hasdigit", "パスワードには数字を1文字以上含めてください。").
		Message("hassymbol", "パスワードには記号を1文字以上含めてください。"),
	schema.String("first_name", "required,max=100").
		Message("required", "名は必須です。").
		Message("max", "名は100文字以内で入力してください。").
		Transform(cleanName),
	schema.String("last_name", "required,max=100").
		Message("required", "姓は必須です。").
		Message("max", "姓は100文字以内で入力してください。").
		Transform(cleanName),
)

var loginSchema = schema.New(
	schema.String("email", "required,email,max=255").
		Message("required", "メールアドレスは必須です。").
		Message("email", "メールアドレスの形式が正しくありません。").
		Transform(normalizeEmail),
	schema.String("password", "required,maxbytes=72").
		Message("required", "パスワードは必須です。"),
)

var googleLoginSchema = schema.New(
	schema.String("code", "required,max=2048").
		Message("required", "認可コードは必須です。"),
)
