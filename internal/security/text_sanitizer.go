// Package security はアプリケーションのセキュリティ機能を提供する。
package security

import (
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// textPolicy はすべてのタグを除去するポリシー。
// bluemondayのPolicyはSanitize呼び出しに対してスレッドセーフ。
var textPolicy = bluemonday.StrictPolicy()

// SanitizeText はプレーンテキスト項目からHTMLタグを除去する。
// ロールの説明文など、利用者が自由入力する項目の保存前に使用する。
// タグは除去され、&や<などの文字はエスケープされた状態で返される。
func SanitizeText(s string) string {
	if s == "" {
		return ""
	}
	return strings.TrimSpace(textPolicy.Sanitize(s))
}
