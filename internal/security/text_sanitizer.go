// Package security はアプリケーションのセキュリティ機能を提供する。
//
// TextSanitizer はサーバー由来のタイトル・説明文からHTMLを取り除き、
// UIがプレーンテキストとしてそのまま表示できる文字列にする。
// URLGuard は共有されたURLの静的検証と、リモートAPI用のSSRF防止付きHTTPクライアントを提供する。
package security

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// TextSanitizer はbluemondayのStrictPolicyでタグを全て除去する。
// ポリシーはスレッドセーフなため、1つのインスタンスを共有してよい。
type TextSanitizer struct {
	policy *bluemonday.Policy
}

// NewTextSanitizer はTextSanitizerの新しいインスタンスを生成する。
func NewTextSanitizer() *TextSanitizer {
	return &TextSanitizer{policy: bluemonday.StrictPolicy()}
}

// SanitizeText はタグと属性を除去し、エンティティを戻したプレーンテキストを返す。
// 連続する空白は1つにまとめる。
func (s *TextSanitizer) SanitizeText(raw string) string {
	if raw == "" {
		return ""
	}
	stripped := html.UnescapeString(s.policy.Sanitize(raw))
	return strings.Join(strings.Fields(stripped), " ")
}
