package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/isofit/internal/auth"
	"github.com/hitoshi/isofit/internal/diary"
	"github.com/hitoshi/isofit/internal/exercise"
	"github.com/hitoshi/isofit/internal/media"
	"github.com/hitoshi/isofit/internal/middleware"
	"github.com/hitoshi/isofit/internal/model"
)

// --- モック定義 ---

type mockAuthService struct {
	registerFn func(ctx context.Context, in auth.RegisterInput) (*auth.AuthResult, error)
	loginFn    func(ctx context.Context, email, password string) (*auth.AuthResult, error)
}

func (m *mockAuthService) Register(ctx context.Context, in auth.RegisterInput) (*auth.AuthResult, error) {
	if m.registerFn != nil {
		return m.registerFn(ctx, in)
	}
	return nil, nil
}

func (m *mockAuthService) Login(ctx context.Context, email, password string) (*auth.AuthResult, error) {
	if m.loginFn != nil {
		return m.loginFn(ctx, email, password)
	}
	return nil, nil
}

type mockUserService struct {
	editFn   func(ctx context.Context, principal auth.Principal, userID string, patch model.UserPatch) (*model.User, error)
	deleteFn func(ctx context.Context, principal auth.Principal, userID string) error
}

func (m *mockUserService) Edit(ctx context.Context, principal auth.Principal, userID string, patch model.UserPatch) (*model.User, error) {
	if m.editFn != nil {
		return m.editFn(ctx, principal, userID, patch)
	}
	return &model.User{ID: userID}, nil
}

func (m *mockUserService) Delete(ctx context.Context, principal auth.Principal, userID string) error {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, principal, userID)
	}
	return nil
}

type mockExerciseService struct {
	createFn func(ctx context.Context, actor auth.Principal, in exercise.Input, images, videos []media.Upload) (*model.Exercise, error)
	getFn    func(ctx context.Context, id string) (*model.Exercise, error)
	listFn   func(ctx context.Context) ([]*model.Exercise, error)
	updateFn func(ctx context.Context, actor auth.Principal, id string, in exercise.Input, images, videos []media.Upload) (*model.Exercise, error)
	deleteFn func(ctx context.Context, actor auth.Principal, id string) error
}

func (m *mockExerciseService) Create(ctx context.Context, actor auth.Principal, in exercise.Input, images, videos []media.Upload) (*model.Exercise, error) {
	if m.createFn != nil {
		return m.createFn(ctx, actor, in, images, videos)
	}
	return &model.Exercise{ID: "exercise-1"}, nil
}

func (m *mockExerciseService) Get(ctx context.Context, id string) (*model.Exercise, error) {
	if m.getFn != nil {
		return m.getFn(ctx, id)
	}
	return &model.Exercise{ID: id}, nil
}

func (m *mockExerciseService) List(ctx context.Context) ([]*model.Exercise, error) {
	if m.listFn != nil {
		return m.listFn(ctx)
	}
	return []*model.Exercise{}, nil
}

func (m *mockExerciseService) Update(ctx context.Context, actor auth.Principal, id string, in exercise.Input, images, videos []media.Upload) (*model.Exercise, error) {
	if m.updateFn != nil {
		return m.updateFn(ctx, actor, id, in, images, videos)
	}
	return &model.Exercise{ID: id}, nil
}

func (m *mockExerciseService) Delete(ctx context.Context, actor auth.Principal, id string) error {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, actor, id)
	}
	return nil
}

type mockTrainingService struct {
	createFn func(ctx context.Context, userID string, sessionNumber int, notes string) (*model.Program, error)
	updateFn func(ctx context.Context, principal auth.Principal, programID string, week, sessionNumber int, notes string) (*model.Program, error)
	listFn   func(ctx context.Context, userID string) ([]*model.Program, error)
}

func (m *mockTrainingService) CreateFirstSession(ctx context.Context, userID string, sessionNumber int, notes string) (*model.Program, error) {
	if m.createFn != nil {
		return m.createFn(ctx, userID, sessionNumber, notes)
	}
	return nil, nil
}

func (m *mockTrainingService) UpdateSession(ctx context.Context, principal auth.Principal, programID string, week, sessionNumber int, notes string) (*model.Program, error) {
	if m.updateFn != nil {
		return m.updateFn(ctx, principal, programID, week, sessionNumber, notes)
	}
	return nil, nil
}

func (m *mockTrainingService) ListPrograms(ctx context.Context, userID string) ([]*model.Program, error) {
	if m.listFn != nil {
		return m.listFn(ctx, userID)
	}
	return nil, nil
}

type mockDiaryService struct {
	createFn     func(ctx context.Context, userID string) (*model.Diary, error)
	updateSlotFn func(ctx context.Context, principal auth.Principal, diaryID string, index int, in diary.SlotInput) (*model.Diary, error)
	listFn       func(ctx context.Context, userID string) ([]*model.Diary, error)
}

func (m *mockDiaryService) Create(ctx context.Context, userID string) (*model.Diary, error) {
	if m.createFn != nil {
		return m.createFn(ctx, userID)
	}
	return nil, nil
}

func (m *mockDiaryService) UpdateSlot(ctx context.Context, principal auth.Principal, diaryID string, index int, in diary.SlotInput) (*model.Diary, error) {
	if m.updateSlotFn != nil {
		return m.updateSlotFn(ctx, principal, diaryID, index, in)
	}
	return nil, nil
}

func (m *mockDiaryService) ListForUser(ctx context.Context, userID string) ([]*model.Diary, error) {
	if m.listFn != nil {
		return m.listFn(ctx, userID)
	}
	return nil, nil
}

type mockMediaService struct {
	openFn func(ctx context.Context, key string) (*model.MediaObject, error)
}

func (m *mockMediaService) Open(ctx context.Context, key string) (*model.MediaObject, error) {
	if m.openFn != nil {
		return m.openFn(ctx, key)
	}
	return nil, model.NewMediaNotFoundError(key)
}

// --- テストヘルパー ---

// withPrincipal はリクエストのコンテキストに認証済み主体を注入する。
func withPrincipal(r *http.Request, p auth.Principal) *http.Request {
	return r.WithContext(middleware.ContextWithPrincipal(r.Context(), p))
}

// withURLParams はchiのURLパラメータを注入する。
func withURLParams(r *http.Request, kv ...string) *http.Request {
	rctx := chi.NewRouteContext()
	for i := 0; i+1 < len(kv); i += 2 {
		rctx.URLParams.Add(kv[i], kv[i+1])
	}
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

// decodeError はエラーレスポンスのボディを読み込む。
func decodeError(t *testing.T, w *httptest.ResponseRecorder) middleware.ErrorResponseBody {
	t.Helper()
	var body middleware.ErrorResponseBody
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode error body: %v", err)
	}
	return body
}

var (
	testUser  = auth.Principal{UserID: "11111111-1111-1111-1111-111111111111", Email: "user@example.com", Role: model.RoleUser}
	testAdmin = auth.Principal{UserID: "22222222-2222-2222-2222-222222222222", Email: "admin@example.com", Role: model.RoleAdmin}
)
