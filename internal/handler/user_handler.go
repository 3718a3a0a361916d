package handler

import (
	"context"
	"net/http"

	"github.com/hitoshi/homefav/internal/middleware"
	"github.com/hitoshi/homefav/internal/model"
)

// UserServiceInterface はユーザーハンドラーが必要とするサービスインターフェース。
type UserServiceInterface interface {
	// Register はemailでユーザーを登録する。
	Register(ctx context.Context, email string) (*model.User, error)
}

// UserHandler はユーザー管理のHTTPハンドラー。
type UserHandler struct {
	service     UserServiceInterface
	allowLegacy bool
}

// NewUserHandler はUserHandlerを生成する。
// allowLegacyがtrueの場合、トークンなしのリクエストボディによる登録を受け付ける。
func NewUserHandler(service UserServiceInterface, allowLegacy bool) *UserHandler {
	return &UserHandler{
		service:     service,
		allowLegacy: allowLegacy,
	}
}

// registerUserRequest はユーザー登録リクエストのボディ。
type registerUserRequest struct {
	Email *string `json:"email"`
}

// Register はユーザー登録を処理する。
// POST /user
// トークンが検証済みであればsubjectをemailとして登録し、ボディは読まない。
func (h *UserHandler) Register(w http.ResponseWriter, r *http.Request) {
	email, ok := middleware.SubjectFromContext(r.Context())
	if !ok {
		if !h.allowLegacy {
			middleware.WriteErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
			return
		}

		var req registerUserRequest
		if err := decodeJSON(w, r, &req); err != nil {
			middleware.WriteErrorResponse(w, http.StatusBadRequest, model.NewInvalidRequestError())
			return
		}
		if req.Email == nil {
			middleware.WriteErrorResponse(w, http.StatusBadRequest, model.NewMissingFieldError("email"))
			return
		}
		email = *req.Email
	}

	u, err := h.service.Register(r.Context(), email)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, toUserResponse(u))
}
