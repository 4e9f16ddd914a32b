package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/hitoshi/isofit/internal/auth"
	"github.com/hitoshi/isofit/internal/exercise"
	"github.com/hitoshi/isofit/internal/media"
	"github.com/hitoshi/isofit/internal/model"
)

type testFile struct {
	field, name string
	data        []byte
}

// newMultipartRequest はフォーム値とファイルを含むマルチパートリクエストを生成する。
func newMultipartRequest(t *testing.T, method, target string, fields map[string]string, files []testFile) *http.Request {
	t.Helper()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			t.Fatalf("write field: %v", err)
		}
	}
	for _, f := range files {
		fw, err := mw.CreateFormFile(f.field, f.name)
		if err != nil {
			t.Fatalf("create form file: %v", err)
		}
		fw.Write(f.data)
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}

	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestExerciseHandler_Create_Multipart(t *testing.T) {
	var gotIn exercise.Input
	var gotImages, gotVideos []media.Upload
	svc := &mockExerciseService{
		createFn: func(ctx context.Context, actor auth.Principal, in exercise.Input, images, videos []media.Upload) (*model.Exercise, error) {
			if !actor.IsAdmin() {
				t.Errorf("actor = %+v", actor)
			}
			gotIn, gotImages, gotVideos = in, images, videos
			return &model.Exercise{ID: "exercise-42"}, nil
		},
	}
	h := NewExerciseHandler(svc, 1<<20)

	req := newMultipartRequest(t, http.MethodPost, "/api/exercises",
		map[string]string{"name": "Wall sit", "description": "<b>hold</b>"},
		[]testFile{
			{"images", "front.png", []byte("png-1")},
			{"images", "side.png", []byte("png-2")},
			{"videos", "demo.mp4", []byte("mp4")},
		})
	req = withPrincipal(req, testAdmin)
	w := httptest.NewRecorder()

	h.Create(w, req)

	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, want %d: %s", w.Code, http.StatusCreated, w.Body.String())
	}
	var resp map[string]string
	json.NewDecoder(w.Body).Decode(&resp)
	if resp["exerciseId"] != "exercise-42" {
		t.Errorf("exerciseId = %q", resp["exerciseId"])
	}
	if gotIn.Name != "Wall sit" || gotIn.Description != "<b>hold</b>" {
		t.Errorf("input = %+v", gotIn)
	}
	if len(gotImages) != 2 || gotImages[1].Filename != "side.png" || string(gotImages[0].Data) != "png-1" {
		t.Errorf("images = %+v", gotImages)
	}
	if len(gotVideos) != 1 || gotVideos[0].Filename != "demo.mp4" {
		t.Errorf("videos = %+v", gotVideos)
	}
}

func TestExerciseHandler_Create_PayloadTooLarge(t *testing.T) {
	called := false
	svc := &mockExerciseService{
		createFn: func(ctx context.Context, actor auth.Principal, in exercise.Input, images, videos []media.Upload) (*model.Exercise, error) {
			called = true
			return &model.Exercise{ID: "x"}, nil
		},
	}
	h := NewExerciseHandler(svc, 128)

	req := newMultipartRequest(t, http.MethodPost, "/api/exercises",
		map[string]string{"name": "Plank"},
		[]testFile{{"images", "big.png", bytes.Repeat([]byte("a"), 4096)}})
	req = withPrincipal(req, testAdmin)
	w := httptest.NewRecorder()

	h.Create(w, req)

	if w.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusRequestEntityTooLarge)
	}
	if body := decodeError(t, w); body.Code != model.ErrCodePayloadTooLarge {
		t.Errorf("code = %q", body.Code)
	}
	if called {
		t.Error("service should not be called when the body is too large")
	}
}

func TestExerciseHandler_Create_JSONWithoutFiles(t *testing.T) {
	svc := &mockExerciseService{
		createFn: func(ctx context.Context, actor auth.Principal, in exercise.Input, images, videos []media.Upload) (*model.Exercise, error) {
			if in.Name != "Plank" || len(images) != 0 || len(videos) != 0 {
				t.Errorf("in = %+v images = %d videos = %d", in, len(images), len(videos))
			}
			return nil, model.NewNoFilesError()
		},
	}
	h := NewExerciseHandler(svc, 1<<20)

	req := httptest.NewRequest(http.MethodPost, "/api/exercises", strings.NewReader(`{"name":"Plank"}`))
	req.Header.Set("Content-Type", "application/json")
	req = withPrincipal(req, testAdmin)
	w := httptest.NewRecorder()

	h.Create(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}
	if body := decodeError(t, w); body.Code != model.ErrCodeNoFiles {
		t.Errorf("code = %q", body.Code)
	}
}

func TestExerciseHandler_Create_Forbidden(t *testing.T) {
	svc := &mockExerciseService{
		createFn: func(ctx context.Context, actor auth.Principal, in exercise.Input, images, videos []media.Upload) (*model.Exercise, error) {
			return nil, model.NewForbiddenError("管理者のみ")
		},
	}
	h := NewExerciseHandler(svc, 1<<20)

	req := newMultipartRequest(t, http.MethodPost, "/api/exercises", map[string]string{"name": "x"},
		[]testFile{{"images", "a.png", []byte("a")}})
	req = withPrincipal(req, testUser)
	w := httptest.NewRecorder()

	h.Create(w, req)

	if w.Code != http.StatusForbidden {
		t.Errorf("status = %d, want %d", w.Code, http.StatusForbidden)
	}
}

func TestExerciseHandler_Get(t *testing.T) {
	created := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	svc := &mockExerciseService{
		getFn: func(ctx context.Context, id string) (*model.Exercise, error) {
			if id == "missing" {
				return nil, model.NewExerciseNotFoundError(id)
			}
			return &model.Exercise{ID: id, Name: "Wall sit", Images: []string{"https://cdn/x.png"}, CreatedBy: "admin-1", CreatedAt: created}, nil
		},
	}
	h := NewExerciseHandler(svc, 1<<20)

	t.Run("found", func(t *testing.T) {
		req := withURLParams(httptest.NewRequest(http.MethodGet, "/api/exercises/e-1", nil), "id", "e-1")
		w := httptest.NewRecorder()
		h.Get(w, req)

		if w.Code != http.StatusOK {
			t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
		}
		var resp exerciseResponse
		json.NewDecoder(w.Body).Decode(&resp)
		if resp.ExerciseID != "e-1" || resp.Name != "Wall sit" || len(resp.Images) != 1 || resp.Videos == nil {
			t.Errorf("response = %+v", resp)
		}
		if !resp.CreatedAt.Equal(created) {
			t.Errorf("createdAt = %v", resp.CreatedAt)
		}
	})

	t.Run("not found", func(t *testing.T) {
		req := withURLParams(httptest.NewRequest(http.MethodGet, "/api/exercises/missing", nil), "id", "missing")
		w := httptest.NewRecorder()
		h.Get(w, req)

		if w.Code != http.StatusNotFound {
			t.Errorf("status = %d, want %d", w.Code, http.StatusNotFound)
		}
	})
}

func TestExerciseHandler_List_Empty(t *testing.T) {
	h := NewExerciseHandler(&mockExerciseService{}, 1<<20)

	req := httptest.NewRequest(http.MethodGet, "/api/exercises", nil)
	w := httptest.NewRecorder()
	h.List(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if got := strings.TrimSpace(w.Body.String()); got != "[]" {
		t.Errorf("body = %s, want []", got)
	}
}

func TestExerciseHandler_Update(t *testing.T) {
	var gotID string
	var gotImages []media.Upload
	svc := &mockExerciseService{
		updateFn: func(ctx context.Context, actor auth.Principal, id string, in exercise.Input, images, videos []media.Upload) (*model.Exercise, error) {
			gotID, gotImages = id, images
			if videos == nil || len(videos) != 0 {
				t.Errorf("videos = %v, want empty", videos)
			}
			return &model.Exercise{ID: id}, nil
		},
	}
	h := NewExerciseHandler(svc, 1<<20)

	req := newMultipartRequest(t, http.MethodPut, "/api/exercises/e-1", map[string]string{"description": "new"},
		[]testFile{{"images", "new.png", []byte("n")}})
	req = withURLParams(withPrincipal(req, testAdmin), "id", "e-1")
	w := httptest.NewRecorder()

	h.Update(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	if gotID != "e-1" || len(gotImages) != 1 {
		t.Errorf("id = %q images = %+v", gotID, gotImages)
	}
}

func TestExerciseHandler_Delete(t *testing.T) {
	svc := &mockExerciseService{
		deleteFn: func(ctx context.Context, actor auth.Principal, id string) error {
			if id != "e-1" {
				return model.NewExerciseNotFoundError(id)
			}
			return nil
		},
	}
	h := NewExerciseHandler(svc, 1<<20)

	req := withURLParams(withPrincipal(httptest.NewRequest(http.MethodDelete, "/api/exercises/e-1", nil), testAdmin), "id", "e-1")
	w := httptest.NewRecorder()
	h.Delete(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", w.Code, http.StatusOK)
	}

	req = withURLParams(withPrincipal(httptest.NewRequest(http.MethodDelete, "/api/exercises/e-2", nil), testAdmin), "id", "e-2")
	w = httptest.NewRecorder()
	h.Delete(w, req)
	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want %d", w.Code, http.StatusNotFound)
	}
}
