package favorite

import (
	"fmt"
	"math"
	"unicode/utf8"

	"github.com/hitoshi/homefav/internal/model"
	"github.com/hitoshi/homefav/internal/security"
)

// MaxTextLength は物件の文字列フィールドの最大文字数。
const MaxTextLength = 200

// StateCodeLength はstate_codeの文字数。
const StateCodeLength = 2

// MaxRoomCount はbeds、bathsの上限。カラムがINTEGER（32bit）であることに合わせる。
const MaxRoomCount = math.MaxInt32

// HouseInput は物件追加リクエストの入力。
// 未指定のキーを検出するため全フィールドをポインタで保持する。
type HouseInput struct {
	PropertyID *string `json:"property_id"`
	Price      *int64  `json:"price"`
	City       *string `json:"city"`
	StateCode  *string `json:"state_code"`
	Beds       *int    `json:"beds"`
	Baths      *int    `json:"baths"`
	PropType   *string `json:"prop_type"`
	Thumbnail  *string `json:"thumbnail"`
}

// missingFields は未指定のキーを固定順で返す。
func (in HouseInput) missingFields() []string {
	var missing []string
	if in.PropertyID == nil {
		missing = append(missing, "property_id")
	}
	if in.Price == nil {
		missing = append(missing, "price")
	}
	if in.City == nil {
		missing = append(missing, "city")
	}
	if in.StateCode == nil {
		missing = append(missing, "state_code")
	}
	if in.Beds == nil {
		missing = append(missing, "beds")
	}
	if in.Baths == nil {
		missing = append(missing, "baths")
	}
	if in.PropType == nil {
		missing = append(missing, "prop_type")
	}
	if in.Thumbnail == nil {
		missing = append(missing, "thumbnail")
	}
	return missing
}

// Validate は入力を検証する。
// 欠落キーがあればMISSING_FIELD、値が不正であればINVALID_FIELDを返す。
func (in HouseInput) Validate(detector security.MarkupDetector) error {
	if missing := in.missingFields(); len(missing) > 0 {
		return model.NewMissingFieldError(missing...)
	}

	if *in.PropertyID == "" {
		return model.NewInvalidFieldError("property_id", "空にはできません")
	}
	if utf8.RuneCountInString(*in.StateCode) != StateCodeLength {
		return model.NewInvalidFieldError("state_code", fmt.Sprintf("%d文字で指定してください", StateCodeLength))
	}
	if *in.Price < 0 {
		return model.NewInvalidFieldError("price", "0以上で指定してください")
	}
	rooms := []struct {
		field string
		value int
	}{
		{"beds", *in.Beds},
		{"baths", *in.Baths},
	}
	for _, room := range rooms {
		if room.value < 0 || room.value > MaxRoomCount {
			return model.NewInvalidFieldError(room.field, fmt.Sprintf("0以上%d以下で指定してください", MaxRoomCount))
		}
	}

	texts := []struct {
		field string
		value string
	}{
		{"property_id", *in.PropertyID},
		{"city", *in.City},
		{"state_code", *in.StateCode},
		{"prop_type", *in.PropType},
		{"thumbnail", *in.Thumbnail},
	}
	for _, text := range texts {
		if utf8.RuneCountInString(text.value) > MaxTextLength {
			return model.NewInvalidFieldError(text.field, fmt.Sprintf("%d文字以内で指定してください", MaxTextLength))
		}
		if detector != nil && detector.ContainsMarkup(text.value) {
			return model.NewInvalidFieldError(text.field, "HTMLを含めることはできません")
		}
	}

	return nil
}

// House は検証済みの入力から物件を構築する。Validateの成功後にのみ呼び出すこと。
func (in HouseInput) House() *model.House {
	return &model.House{
		PropertyID: *in.PropertyID,
		Price:      *in.Price,
		City:       *in.City,
		StateCode:  *in.StateCode,
		Beds:       *in.Beds,
		Baths:      *in.Baths,
		PropType:   *in.PropType,
		Thumbnail:  *in.Thumbnail,
	}
}
