// Package model はドメインモデルを定義する。
package model

// House はお気に入り登録された物件を表す。
// PropertyIDは外部リスティングの識別子で、全行で一意。
type House struct {
	ID         int64
	PropertyID string
	Price      int64
	City       string
	StateCode  string // 2文字の州コード
	Beds       int
	Baths      int
	PropType   string
	Thumbnail  string
}
