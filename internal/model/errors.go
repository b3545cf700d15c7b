// Package model はドメインモデルを定義する。
package model

import (
	"errors"
	"fmt"
)

// ErrorKind はエラーの分類を表す。
// HTTP層はKindのみを見てステータスコードを決定する。
type ErrorKind string

// エラー分類
const (
	KindBadRequest     ErrorKind = "BadRequest"
	KindUnauthorized   ErrorKind = "Unauthorized"
	KindForbidden      ErrorKind = "Forbidden"
	KindNotFound       ErrorKind = "NotFound"
	KindConflict       ErrorKind = "Conflict"
	KindInternalServer ErrorKind = "InternalServer"
)

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
// Errは原因となったエラーでログ出力専用。レスポンスには含めない。
type APIError struct {
	Kind     ErrorKind // エラー分類
	Code     string    // エラーコード
	Message  string    // エラーメッセージ
	Category string    // カテゴリ: auth, validation, role, system
	Action   string    // ユーザー向け対処方法
	Err      error
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap は原因エラーを返す。
func (e *APIError) Unwrap() error {
	return e.Err
}

// KindOf はエラーの分類を返す。
// APIErrorでないエラーはすべてKindInternalServerとして扱う。
func KindOf(err error) ErrorKind {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Kind
	}
	return KindInternalServer
}

// IsKind はエラーが指定した分類かどうかを返す。
func IsKind(err error, kind ErrorKind) bool {
	return err != nil && KindOf(err) == kind
}

// 定義済みエラーコード
const (
	ErrCodeValidation         = "VALIDATION_ERROR"
	ErrCodeUnauthorized       = "UNAUTHORIZED"
	ErrCodeInvalidCredentials = "INVALID_CREDENTIALS"
	ErrCodeForbidden          = "FORBIDDEN"
	ErrCodeEmailNotVerified   = "EMAIL_NOT_VERIFIED"
	ErrCodeNotFound           = "NOT_FOUND"
	ErrCodeUserNotFound       = "USER_NOT_FOUND"
	ErrCodeTokenNotFound      = "TOKEN_NOT_FOUND"
	ErrCodeRoleNotFound       = "ROLE_NOT_FOUND"
	ErrCodeConflict           = "CONFLICT"
	ErrCodeUserAlreadyExists  = "USER_ALREADY_EXISTS"
	ErrCodeRoleAlreadyExists  = "ROLE_ALREADY_EXISTS"
	ErrCodeProviderRejected   = "PROVIDER_REJECTED"
	ErrCodeInternal           = "INTERNAL_ERROR"
)

// NewBadRequestError は入力値エラーを生成する。
// messageには最初に失敗したフィールドのメッセージのみを渡す。
func NewBadRequestError(message string) *APIError {
	if message == "" {
		message = "リクエストが不正です。"
	}
	return &APIError{
		Kind:     KindBadRequest,
		Code:     ErrCodeValidation,
		Message:  message,
		Category: "validation",
		Action:   "入力内容を確認してください。",
	}
}

// NewUnauthorizedError は認証エラーを生成する。
func NewUnauthorizedError(message string) *APIError {
	if message == "" {
		message = "認証が必要です。"
	}
	return &APIError{
		Kind:     KindUnauthorized,
		Code:     ErrCodeUnauthorized,
		Message:  message,
		Category: "auth",
		Action:   "ログインしてください。",
	}
}

// NewInvalidCredentialsError は資格情報が無効な場合のエラーを生成する。
// 失敗理由（形式不正・期限切れ・改ざん・パスワード不一致）は区別しない。
func NewInvalidCredentialsError() *APIError {
	return &APIError{
		Kind:     KindUnauthorized,
		Code:     ErrCodeInvalidCredentials,
		Message:  "認証情報が無効です。",
		Category: "auth",
		Action:   "ログインし直してください。",
	}
}

// NewProviderRejectedError は外部IdPが認可コードを拒否した場合のエラーを生成する。
func NewProviderRejectedError(err error) *APIError {
	return &APIError{
		Kind:     KindUnauthorized,
		Code:     ErrCodeProviderRejected,
		Message:  "外部サービスでの認証に失敗しました。",
		Category: "auth",
		Action:   "もう一度ログインをやり直してください。",
		Err:      err,
	}
}

// NewForbiddenError は権限不足エラーを生成する。
func NewForbiddenError(message string) *APIError {
	if message == "" {
		message = "この操作を行う権限がありません。"
	}
	return &APIError{
		Kind:     KindForbidden,
		Code:     ErrCodeForbidden,
		Message:  message,
		Category: "auth",
		Action:   "管理者に問い合わせてください。",
	}
}

// NewEmailNotVerifiedError はメールアドレス未確認ユーザーのログインエラーを生成する。
func NewEmailNotVerifiedError() *APIError {
	return &APIError{
		Kind:     KindForbidden,
		Code:     ErrCodeEmailNotVerified,
		Message:  "メールアドレスの確認が完了していません。",
		Category: "auth",
		Action:   "確認メールのリンクからメールアドレスを確認してください。",
	}
}

// NewNotFoundError は汎用の未検出エラーを生成する。
func NewNotFoundError(message string) *APIError {
	if message == "" {
		message = "指定されたデータが見つかりません。"
	}
	return &APIError{
		Kind:     KindNotFound,
		Code:     ErrCodeNotFound,
		Message:  message,
		Category: "system",
		Action:   "指定内容を確認してください。",
	}
}

// NewUserNotFoundError はユーザーが見つからない場合のエラーを生成する。
func NewUserNotFoundError() *APIError {
	return &APIError{
		Kind:     KindNotFound,
		Code:     ErrCodeUserNotFound,
		Message:  "ユーザーが見つかりません。",
		Category: "auth",
		Action:   "ログインし直してください。",
	}
}

// NewTokenNotFoundError はトークンに紐づくユーザーが存在しない場合のエラーを生成する。
func NewTokenNotFoundError() *APIError {
	return &APIError{
		Kind:     KindNotFound,
		Code:     ErrCodeTokenNotFound,
		Message:  "このトークンに紐づくユーザーが見つかりません。",
		Category: "auth",
		Action:   "確認メールを再送信してください。",
	}
}

// NewRoleNotFoundError はロールが見つからない場合のエラーを生成する。
func NewRoleNotFoundError() *APIError {
	return &APIError{
		Kind:     KindNotFound,
		Code:     ErrCodeRoleNotFound,
		Message:  "指定されたロールが見つかりません。",
		Category: "role",
		Action:   "ロールIDを確認してください。",
	}
}

// NewConflictError は一意制約違反などの競合エラーを生成する。
func NewConflictError(message string) *APIError {
	if message == "" {
		message = "すでに登録されています。"
	}
	return &APIError{
		Kind:     KindConflict,
		Code:     ErrCodeConflict,
		Message:  message,
		Category: "validation",
		Action:   "入力内容を変更してください。",
	}
}

// NewUserAlreadyExistsError はメールアドレスが登録済みの場合のエラーを生成する。
func NewUserAlreadyExistsError() *APIError {
	return &APIError{
		Kind:     KindConflict,
		Code:     ErrCodeUserAlreadyExists,
		Message:  "このメールアドレスはすでに登録されています。",
		Category: "auth",
		Action:   "ログインするか、別のメールアドレスを使用してください。",
	}
}

// NewRoleAlreadyExistsError はロール名が重複している場合のエラーを生成する。
func NewRoleAlreadyExistsError(name string) *APIError {
	return &APIError{
		Kind:     KindConflict,
		Code:     ErrCodeRoleAlreadyExists,
		Message:  fmt.Sprintf("ロール名はすでに使用されています: %s", name),
		Category: "role",
		Action:   "別のロール名を指定してください。",
	}
}

// NewInternalError は内部エラーを生成する。
// errは詳細としてログにのみ出力され、ユーザーには一般的なメッセージを返す。
func NewInternalError(err error) *APIError {
	return &APIError{
		Kind:     KindInternalServer,
		Code:     ErrCodeInternal,
		Message:  "内部エラーが発生しました。",
		Category: "system",
		Action:   "しばらく待ってから再度お試しください。",
		Err:      err,
	}
}
