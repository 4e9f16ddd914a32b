package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/isofit/internal/auth"
	"github.com/hitoshi/isofit/internal/model"
)

// UserServiceInterface はユーザーハンドラーが必要とするサービスインターフェース。
type UserServiceInterface interface {
	Edit(ctx context.Context, principal auth.Principal, userID string, patch model.UserPatch) (*model.User, error)
	// Delete はユーザーを削除する。ロール・プログラム・日誌もあわせて削除される。
	Delete(ctx context.Context, principal auth.Principal, userID string) error
}

// UserHandler はユーザー管理のHTTPハンドラー。
type UserHandler struct {
	service UserServiceInterface
}

// NewUserHandler はUserHandlerを生成する。
func NewUserHandler(service UserServiceInterface) *UserHandler {
	return &UserHandler{
		service: service,
	}
}

// editUserRequest はプロフィール編集のリクエストボディ。
// 空文字列のフィールドは変更しない。
type editUserRequest struct {
	Firstname            string `json:"firstname"`
	Lastname             string `json:"lastname"`
	DateOfBirth          string `json:"dateOfBirth"`
	Address              string `json:"address"`
	PhoneNumber          string `json:"phoneNumber"`
	Gender               string `json:"gender"`
	Height               string `json:"height"`
	Weight               string `json:"weight"`
	RestingBloodPressure string `json:"restingBloodPressure"`
}

// Edit はユーザーのプロフィールを部分更新する。
// PUT /api/users/{userId}
func (h *UserHandler) Edit(w http.ResponseWriter, r *http.Request) {
	principal, ok := requirePrincipal(w, r)
	if !ok {
		return
	}

	var req editUserRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	_, err := h.service.Edit(r.Context(), principal, chi.URLParam(r, "userId"), model.UserPatch{
		Firstname:            req.Firstname,
		Lastname:             req.Lastname,
		DateOfBirth:          req.DateOfBirth,
		Address:              req.Address,
		PhoneNumber:          req.PhoneNumber,
		Gender:               req.Gender,
		Height:               req.Height,
		Weight:               req.Weight,
		RestingBloodPressure: req.RestingBloodPressure,
	})
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, messageResponse{Message: "User updated successfully"})
}

// Delete はユーザーを削除する。
// DELETE /api/users/{userId}
func (h *UserHandler) Delete(w http.ResponseWriter, r *http.Request) {
	principal, ok := requirePrincipal(w, r)
	if !ok {
		return
	}

	if err := h.service.Delete(r.Context(), principal, chi.URLParam(r, "userId")); err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, messageResponse{Message: "User deleted successfully"})
}
