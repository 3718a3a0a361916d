// Package model はドメインモデルを定義する。
package model

// User はサービス利用ユーザーを表す。
// Emailは外部IdPのsubjectと対応するユーザー識別キーでもある。
type User struct {
	ID    int64
	Email string
}
