package handler

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/hitoshi/isofit/internal/auth"
	"github.com/hitoshi/isofit/internal/model"
)

func TestUserHandler_Edit_Success(t *testing.T) {
	var gotID string
	var gotPatch model.UserPatch
	svc := &mockUserService{
		editFn: func(ctx context.Context, principal auth.Principal, userID string, patch model.UserPatch) (*model.User, error) {
			if principal.UserID != testUser.UserID {
				t.Errorf("principal = %+v", principal)
			}
			gotID, gotPatch = userID, patch
			return &model.User{ID: userID}, nil
		},
	}
	h := NewUserHandler(svc)

	req := httptest.NewRequest(http.MethodPut, "/api/users/"+testUser.UserID, strings.NewReader(`{"address":"Osaka","weight":"70"}`))
	req = withURLParams(withPrincipal(req, testUser), "userId", testUser.UserID)
	w := httptest.NewRecorder()

	h.Edit(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	if gotID != testUser.UserID {
		t.Errorf("userID = %q", gotID)
	}
	if gotPatch.Address != "Osaka" || gotPatch.Weight != "70" || gotPatch.Firstname != "" {
		t.Errorf("patch = %+v", gotPatch)
	}
}

func TestUserHandler_Edit_NoPrincipal(t *testing.T) {
	h := NewUserHandler(&mockUserService{})

	req := httptest.NewRequest(http.MethodPut, "/api/users/x", strings.NewReader(`{}`))
	w := httptest.NewRecorder()

	h.Edit(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", w.Code, http.StatusUnauthorized)
	}
}

func TestUserHandler_Edit_Forbidden(t *testing.T) {
	svc := &mockUserService{
		editFn: func(ctx context.Context, principal auth.Principal, userID string, patch model.UserPatch) (*model.User, error) {
			return nil, model.NewForbiddenError("他のユーザーです")
		},
	}
	h := NewUserHandler(svc)

	req := httptest.NewRequest(http.MethodPut, "/api/users/other", strings.NewReader(`{"address":"x"}`))
	req = withURLParams(withPrincipal(req, testUser), "userId", "other")
	w := httptest.NewRecorder()

	h.Edit(w, req)

	if w.Code != http.StatusForbidden {
		t.Errorf("status = %d, want %d", w.Code, http.StatusForbidden)
	}
}

func TestUserHandler_Delete(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{"success", nil, http.StatusOK},
		{"not found", model.NewUserNotFoundError(), http.StatusNotFound},
		{"storage", model.NewStorageError("delete user", errors.New("down")), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &mockUserService{
				deleteFn: func(ctx context.Context, principal auth.Principal, userID string) error {
					return tt.err
				},
			}
			h := NewUserHandler(svc)

			req := httptest.NewRequest(http.MethodDelete, "/api/users/"+testUser.UserID, nil)
			req = withURLParams(withPrincipal(req, testUser), "userId", testUser.UserID)
			w := httptest.NewRecorder()

			h.Delete(w, req)

			if w.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", w.Code, tt.wantStatus)
			}
		})
	}
}
