package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/homefav/internal/favorite"
	"github.com/hitoshi/homefav/internal/middleware"
	"github.com/hitoshi/homefav/internal/model"
	"github.com/hitoshi/homefav/internal/user"
)

// FavoriteServiceInterface はお気に入りハンドラーが必要とするサービスインターフェース。
type FavoriteServiceInterface interface {
	// ListFavorites はユーザーのお気に入り物件一覧を返す。
	ListFavorites(ctx context.Context, ref user.Ref) ([]*model.House, error)
	// AddFavorite は物件を作成しユーザーのお気に入りに追加する。
	AddFavorite(ctx context.Context, ref user.Ref, input favorite.HouseInput) (*model.House, error)
	// ListHouses は全物件を返す。
	ListHouses(ctx context.Context) ([]*model.House, error)
}

// FavoriteHandler はお気に入りと物件のHTTPハンドラー。
type FavoriteHandler struct {
	service FavoriteServiceInterface
}

// NewFavoriteHandler はFavoriteHandlerを生成する。
func NewFavoriteHandler(service FavoriteServiceInterface) *FavoriteHandler {
	return &FavoriteHandler{service: service}
}

// ListMine は認証済みユーザーのお気に入り一覧を返す。
// GET /favorites
func (h *FavoriteHandler) ListMine(w http.ResponseWriter, r *http.Request) {
	subject, ok := middleware.SubjectFromContext(r.Context())
	if !ok {
		middleware.WriteErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}
	h.list(w, r, user.RefFromEmail(subject))
}

// ListByIdentifier はパスで指定されたユーザーのお気に入り一覧を返す。
// GET /user/{id}
// idは数字であればユーザーID、それ以外はemailとして解決する。
func (h *FavoriteHandler) ListByIdentifier(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, user.RefFromIdentifier(chi.URLParam(r, "id")))
}

func (h *FavoriteHandler) list(w http.ResponseWriter, r *http.Request, ref user.Ref) {
	houses, err := h.service.ListFavorites(r.Context(), ref)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toHouseSummaries(houses))
}

// AddMine は認証済みユーザーのお気に入りに物件を追加する。
// POST /favorite
func (h *FavoriteHandler) AddMine(w http.ResponseWriter, r *http.Request) {
	subject, ok := middleware.SubjectFromContext(r.Context())
	if !ok {
		middleware.WriteErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}
	h.add(w, r, user.RefFromEmail(subject))
}

// AddForUser はパスで指定されたユーザーのお気に入りに物件を追加する。
// POST /favorite/{user_id}
func (h *FavoriteHandler) AddForUser(w http.ResponseWriter, r *http.Request) {
	h.add(w, r, user.RefFromIdentifier(chi.URLParam(r, "user_id")))
}

func (h *FavoriteHandler) add(w http.ResponseWriter, r *http.Request, ref user.Ref) {
	var input favorite.HouseInput
	if err := decodeJSON(w, r, &input); err != nil {
		middleware.WriteErrorResponse(w, http.StatusBadRequest, model.NewInvalidRequestError())
		return
	}

	house, err := h.service.AddFavorite(r.Context(), ref, input)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, toHouseResponse(house))
}

// ListHouses は全物件を返す。デバッグ用。
// GET /houses
func (h *FavoriteHandler) ListHouses(w http.ResponseWriter, r *http.Request) {
	houses, err := h.service.ListHouses(r.Context())
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toHouseSummaries(houses))
}
