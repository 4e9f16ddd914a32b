// Package handler はHTTPハンドラーを提供する。
package handler

import (
	"context"
	"net/http"

	"github.com/hitoshi/isofit/internal/auth"
	"github.com/hitoshi/isofit/internal/model"
)

// AuthServiceInterface は認証ハンドラーが必要とするサービスインターフェース。
type AuthServiceInterface interface {
	Register(ctx context.Context, in auth.RegisterInput) (*auth.AuthResult, error)
	Login(ctx context.Context, email, password string) (*auth.AuthResult, error)
}

// AuthHandler はユーザー登録・ログインのHTTPハンドラー。
type AuthHandler struct {
	service AuthServiceInterface
}

// NewAuthHandler はAuthHandlerを生成する。
func NewAuthHandler(service AuthServiceInterface) *AuthHandler {
	return &AuthHandler{service: service}
}

// registerResponse はユーザー登録のレスポンス。
type registerResponse struct {
	UserID string     `json:"userId"`
	Token  string     `json:"token"`
	Role   model.Role `json:"role"`
}

// loginRequest はログインのリクエストボディ。
type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// loginResponse はログインのレスポンス。プロフィールとトークンを含む。
type loginResponse struct {
	UserID    string     `json:"userId"`
	Firstname string     `json:"firstname"`
	Lastname  string     `json:"lastname"`
	Age       int        `json:"age"`
	Gender    string     `json:"gender"`
	Address   string     `json:"address"`
	Height    string     `json:"height"`
	Weight    string     `json:"weight"`
	Email     string     `json:"email"`
	Token     string     `json:"token"`
	Role      model.Role `json:"role"`
}

// Register は新規ユーザーを登録する。
// POST /api/register
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var in auth.RegisterInput
	if !decodeJSON(w, r, &in) {
		return
	}

	result, err := h.service.Register(r.Context(), in)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, registerResponse{
		UserID: result.User.ID,
		Token:  result.Token,
		Role:   result.Role,
	})
}

// Login はメールアドレスとパスワードで認証し、アクセストークンを返す。
// POST /api/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	result, err := h.service.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	u := result.User
	writeJSON(w, http.StatusOK, loginResponse{
		UserID:    u.ID,
		Firstname: u.Firstname,
		Lastname:  u.Lastname,
		Age:       u.Age,
		Gender:    u.Gender,
		Address:   u.Address,
		Height:    u.Height,
		Weight:    u.Weight,
		Email:     u.Email,
		Token:     result.Token,
		Role:      result.Role,
	})
}
