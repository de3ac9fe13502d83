// Package security はアプリケーションのセキュリティ機能を提供する。
//
// DescriptionSanitizerService はタスク説明文のHTMLをサニタイズし、
// ボード画面でのXSS攻撃からユーザーを保護する。
// bluemondayライブラリを使用した許可リストベースのポリシーで、
// 安全なタグと属性のみを通過させる。
package security

import (
	"github.com/microcosm-cc/bluemonday"
)

// DescriptionSanitizerService はタスク入力のサニタイズ機能のインターフェースを定義する。
// タスクの作成・更新時、説明文の保存前に使用される。
type DescriptionSanitizerService interface {
	// Sanitize はHTML説明文をサニタイズして安全なHTMLを返す。
	// 許可タグ（p, br, a, ul, ol, li, blockquote, pre, code, strong, em）のみを通過させ、
	// script, iframe, styleタグおよびon*イベント属性を除去する。
	// aタグにはtarget="_blank"とrel="noopener noreferrer"が自動付与される。
	// 空文字列の入力には空文字列を返す。
	// 同一入力に対して常に同一出力を返す（冪等）。
	Sanitize(rawHTML string) string

	// StripTags は全てのHTMLタグを除去し、テキストのみを返す。
	// タイトルなどプレーンテキストとして扱うフィールドに使用する。
	StripTags(raw string) string
}

// descriptionSanitizer はDescriptionSanitizerServiceの実装。
// bluemondayのポリシーを保持し、スレッドセーフにサニタイズ処理を行う。
type descriptionSanitizer struct {
	policy      *bluemonday.Policy
	strictPlain *bluemonday.Policy
}

// NewDescriptionSanitizer はDescriptionSanitizerServiceの新しいインスタンスを生成する。
// 初期化時にbluemondayのカスタムポリシーを構築する。
// ポリシーの内容:
//   - 許可タグ: p, br, a, ul, ol, li, blockquote, pre, code, strong, em
//   - 禁止タグ: script, iframe, style および全てのon*イベント属性
//   - aタグ: target="_blank" と rel="noopener noreferrer" を自動付与
func NewDescriptionSanitizer() *descriptionSanitizer {
	p := bluemonday.NewPolicy()

	// 許可タグの設定（属性なしのシンプルなタグ）
	// script, iframe, style等は許可リストに含めないことで自動的に除去される
	// on*イベント属性はbluemondayのデフォルトで許可されないため除去される
	p.AllowElements(
		"p", "br", "ul", "ol", "li",
		"blockquote", "pre", "code",
		"strong", "em",
	)

	// aタグの設定:
	// - href属性を許可（http/httpsのみ）
	// - target="_blank"を全リンクに強制付与
	// - rel="noreferrer noopener"を強制付与
	p.AllowAttrs("href").OnElements("a")
	p.AllowRelativeURLs(false)
	p.AllowURLSchemes("http", "https")
	p.RequireNoFollowOnLinks(false)
	p.AddTargetBlankToFullyQualifiedLinks(true)

	return &descriptionSanitizer{
		policy:      p,
		strictPlain: bluemonday.StrictPolicy(),
	}
}

// Sanitize はHTML説明文をサニタイズして安全なHTMLを返す。
func (s *descriptionSanitizer) Sanitize(rawHTML string) string {
	if rawHTML == "" {
		return ""
	}
	return s.policy.Sanitize(rawHTML)
}

// StripTags は全てのHTMLタグを除去し、テキストのみを返す。
func (s *descriptionSanitizer) StripTags(raw string) string {
	if raw == "" {
		return ""
	}
	return s.strictPlain.Sanitize(raw)
}

// compile-time interface check
var _ DescriptionSanitizerService = (*descriptionSanitizer)(nil)
