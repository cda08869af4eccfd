// Package security はアプリケーションのセキュリティ機能を提供する。
//
// TextSanitizer はユーザーやGitHubから受け取った自由記述テキストからHTMLを取り除く。
// 説明文・表示名・PRタイトルはプレーンテキストとして保存し、表示側でエスケープする。
package security

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// TextSanitizer は自由記述テキストのサニタイズ機能のインターフェースを定義する。
type TextSanitizer interface {
	// Sanitize はHTMLタグをすべて除去し、前後の空白を取り除いたプレーンテキストを返す。
	// script, styleなどの要素は内容ごと除去される。
	// 文字参照でエスケープされたタグも除去され、出力を再度渡しても変化しない（冪等）。
	Sanitize(raw string) string
}

// maxSanitizePasses はエスケープが多重に重なった入力に対する反復の上限。
const maxSanitizePasses = 8

// textSanitizer はTextSanitizerの実装。
// bluemondayのStrictPolicyを保持し、スレッドセーフにサニタイズ処理を行う。
type textSanitizer struct {
	policy *bluemonday.Policy
}

// NewTextSanitizer はTextSanitizerの新しいインスタンスを生成する。
func NewTextSanitizer() *textSanitizer {
	return &textSanitizer{
		policy: bluemonday.StrictPolicy(),
	}
}

// Sanitize はHTMLタグをすべて除去したプレーンテキストを返す。
// StrictPolicyは文字参照をエスケープして返すため、プレーンテキストに戻す。
// 戻した結果にタグが現れることがあるため、出力が変化しなくなるまで繰り返す。
func (s *textSanitizer) Sanitize(raw string) string {
	cur := strings.TrimSpace(raw)
	for i := 0; i < maxSanitizePasses && cur != ""; i++ {
		next := strings.TrimSpace(html.UnescapeString(s.policy.Sanitize(cur)))
		if next == cur {
			return cur
		}
		cur = next
	}
	if cur == "" {
		return ""
	}
	// 上限に達した場合はエスケープ済みの形で返す。タグとしては解釈されない。
	return strings.TrimSpace(s.policy.Sanitize(cur))
}

// compile-time interface check
var _ TextSanitizer = (*textSanitizer)(nil)
