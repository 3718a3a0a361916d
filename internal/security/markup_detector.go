// Package security はアプリケーションのセキュリティ機能を提供する。
//
// MarkupDetector は利用者が送信した文字列フィールドにHTMLマークアップが
// 含まれていないかを判定する。物件情報やメールアドレスはそのまま保存・返却されるため、
// 保存前にマークアップを含む値を拒否する。
package security

import (
	"html"

	"github.com/microcosm-cc/bluemonday"
)

// MarkupDetector は文字列がHTMLマークアップを含むかどうかを判定する。
type MarkupDetector interface {
	// ContainsMarkup はsにタグやHTMLエンティティが含まれる場合にtrueを返す。
	// 空文字列や通常のテキスト（&, <, ' などの単独文字を含む）はfalseとなる。
	ContainsMarkup(s string) bool
}

// markupDetector はMarkupDetectorの実装。
// bluemondayのStrictPolicyで全タグを除去した結果と入力を比較する。
type markupDetector struct {
	policy *bluemonday.Policy
}

// NewMarkupDetector はMarkupDetectorの新しいインスタンスを生成する。
func NewMarkupDetector() *markupDetector {
	return &markupDetector{
		policy: bluemonday.StrictPolicy(),
	}
}

// ContainsMarkup はsにHTMLマークアップが含まれるかを判定する。
// StrictPolicyはテキストをエスケープして返すため、アンエスケープした結果が
// 入力と一致しない場合はタグが除去されたか、エンティティが含まれていたことになる。
func (d *markupDetector) ContainsMarkup(s string) bool {
	if s == "" {
		return false
	}
	return html.UnescapeString(d.policy.Sanitize(s)) != s
}
