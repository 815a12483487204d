package security

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// TextSanitizer は登録フォームの自由記述からマークアップを除去する。
type TextSanitizer interface {
	// Clean は全てのHTMLタグを除去し、前後の空白を取り除いたプレーンテキストを返す。
	// 結果はHTMLエスケープされていないため、表示側でエスケープすること。
	Clean(raw string) string
}

// angleBrackets はエンティティ復元後に残った山括弧を除去する。
var angleBrackets = strings.NewReplacer("<", "", ">", "")

// textSanitizer はbluemondayのStrictPolicyによるTextSanitizerの実装。
// Policyはスレッドセーフで、ハンドラー間で共有できる。
type textSanitizer struct {
	policy *bluemonday.Policy
}

// NewTextSanitizer はTextSanitizerの新しいインスタンスを生成する。
func NewTextSanitizer() *textSanitizer {
	return &textSanitizer{policy: bluemonday.StrictPolicy()}
}

// Clean はマークアップを除去したプレーンテキストを返す。
// 空文字列の入力には空文字列を返す。
func (s *textSanitizer) Clean(raw string) string {
	if raw == "" {
		return ""
	}
	stripped := s.policy.Sanitize(raw)
	return strings.TrimSpace(angleBrackets.Replace(html.UnescapeString(stripped)))
}
