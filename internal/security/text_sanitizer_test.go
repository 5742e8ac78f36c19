package security

import (
	"strings"
	"testing"
)

// TestSanitizeText はタグの除去と空白の正規化を検証する。
func TestSanitizeText(t *testing.T) {
	sanitizer := NewTextSanitizer()

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "プレーンテキストはそのまま", input: "いいねされた記事", want: "いいねされた記事"},
		{name: "空文字列", input: "", want: ""},
		{name: "タグを除去", input: "<p>段落<strong>太字</strong></p>", want: "段落太字"},
		{name: "エンティティを戻す", input: "A &amp; B", want: "A & B"},
		{name: "空白をまとめる", input: "  行1\n\n  行2\t", want: "行1 行2"},
		{name: "scriptは中身ごと除去", input: "前<script>alert('xss')</script>後", want: "前後"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := sanitizer.SanitizeText(tt.input); got != tt.want {
				t.Errorf("SanitizeText(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

// TestSanitizeText_XSSPayloads は典型的なXSSペイロードからタグと属性が残らないことを検証する。
func TestSanitizeText_XSSPayloads(t *testing.T) {
	sanitizer := NewTextSanitizer()

	inputs := []string{
		`<svg onload="alert('xss')">`,
		`<img src="x" onerror="alert('xss')">`,
		`<a href="javascript:alert('xss')">クリック</a>`,
		`<p OnClick="alert('xss')">テスト</p>`,
	}

	for _, input := range inputs {
		got := sanitizer.SanitizeText(input)
		for _, absent := range []string{"<", "onload", "onerror", "javascript:", "onclick"} {
			if strings.Contains(strings.ToLower(got), absent) {
				t.Errorf("SanitizeText(%q) = %q, should NOT contain %q", input, got, absent)
			}
		}
	}
}
