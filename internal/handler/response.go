// Package handler はHTTPハンドラーとルーティングを提供する。
package handler

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/hitoshi/homefav/internal/middleware"
	"github.com/hitoshi/homefav/internal/model"
)

// maxRequestBodyBytes はリクエストボディの最大サイズ。
const maxRequestBodyBytes = 1 << 20

// userResponse はユーザー登録のAPIレスポンス。
type userResponse struct {
	ID    int64  `json:"id"`
	Email string `json:"email"`
}

// houseSummary は物件一覧の要素。property_idを含まない。
type houseSummary struct {
	ID        int64  `json:"id"`
	Price     int64  `json:"price"`
	City      string `json:"city"`
	StateCode string `json:"state_code"`
	Beds      int    `json:"beds"`
	Baths     int    `json:"baths"`
	PropType  string `json:"prop_type"`
	Thumbnail string `json:"thumbnail"`
}

// houseResponse は物件追加のAPIレスポンス。
type houseResponse struct {
	ID         int64  `json:"id"`
	PropertyID string `json:"property_id"`
	Price      int64  `json:"price"`
	City       string `json:"city"`
	StateCode  string `json:"state_code"`
	Beds       int    `json:"beds"`
	Baths      int    `json:"baths"`
	PropType   string `json:"prop_type"`
	Thumbnail  string `json:"thumbnail"`
}

func toUserResponse(u *model.User) userResponse {
	return userResponse{ID: u.ID, Email: u.Email}
}

// toHouseSummaries は物件一覧をレスポンス形式に変換する。0件でも空配列を返す。
func toHouseSummaries(houses []*model.House) []houseSummary {
	results := make([]houseSummary, 0, len(houses))
	for _, h := range houses {
		results = append(results, houseSummary{
			ID:        h.ID,
			Price:     h.Price,
			City:      h.City,
			StateCode: h.StateCode,
			Beds:      h.Beds,
			Baths:     h.Baths,
			PropType:  h.PropType,
			Thumbnail: h.Thumbnail,
		})
	}
	return results
}

func toHouseResponse(h *model.House) houseResponse {
	return houseResponse{
		ID:         h.ID,
		PropertyID: h.PropertyID,
		Price:      h.Price,
		City:       h.City,
		StateCode:  h.StateCode,
		Beds:       h.Beds,
		Baths:      h.Baths,
		PropType:   h.PropType,
		Thumbnail:  h.Thumbnail,
	}
}

// writeJSON はJSONレスポンスを書き込む。
func writeJSON(w http.ResponseWriter, statusCode int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(v)
}

// errTrailingData はJSON値の後に余分なデータがあることを表す。
var errTrailingData = errors.New("request body must contain a single JSON value")

// decodeJSON はリクエストボディをデコードする。
// ボディはmaxRequestBodyBytesまでに制限し、JSON値は1つだけ受け付ける。
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBodyBytes))
	if err := dec.Decode(v); err != nil {
		return err
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return errTrailingData
	}
	return nil
}

// handleServiceError はサービス層から返されたエラーを適切なHTTPステータスコードに変換する。
func handleServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var apiErr *model.APIError
	if errors.As(err, &apiErr) {
		middleware.WriteErrorResponse(w, mapAPIErrorToHTTPStatus(apiErr), apiErr)
		return
	}

	// APIError以外のエラーは内部サーバーエラーとして扱う
	slog.Error("internal server error",
		slog.String("error", err.Error()),
		slog.String("request_id", middleware.RequestIDFromContext(r.Context())),
	)
	middleware.WriteInternalServerError(w)
}

// mapAPIErrorToHTTPStatus はAPIErrorコードからHTTPステータスコードにマッピングする。
func mapAPIErrorToHTTPStatus(apiErr *model.APIError) int {
	switch apiErr.Code {
	case model.ErrCodeInvalidRequest, model.ErrCodeMissingField, model.ErrCodeInvalidField:
		return http.StatusBadRequest
	case model.ErrCodeUserNotFound:
		return http.StatusNotFound
	case model.ErrCodeDuplicateEmail, model.ErrCodeDuplicateProperty:
		return http.StatusConflict
	case model.ErrCodeUnauthorized:
		return http.StatusUnauthorized
	case model.ErrCodeRateLimited:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}
