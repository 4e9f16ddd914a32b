package handler

import (
	"context"
	"errors"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/isofit/internal/auth"
	"github.com/hitoshi/isofit/internal/exercise"
	"github.com/hitoshi/isofit/internal/media"
	"github.com/hitoshi/isofit/internal/model"
)

// multipartMemory はマルチパート解析時にメモリに保持する上限。超過分は一時ファイルに書き出される。
const multipartMemory = 32 << 20

// ExerciseServiceInterface はエクササイズハンドラーが必要とするサービスインターフェース。
type ExerciseServiceInterface interface {
	Create(ctx context.Context, actor auth.Principal, in exercise.Input, images, videos []media.Upload) (*model.Exercise, error)
	Get(ctx context.Context, id string) (*model.Exercise, error)
	List(ctx context.Context) ([]*model.Exercise, error)
	Update(ctx context.Context, actor auth.Principal, id string, in exercise.Input, images, videos []media.Upload) (*model.Exercise, error)
	Delete(ctx context.Context, actor auth.Principal, id string) error
}

// ExerciseHandler はエクササイズカタログのHTTPハンドラー。
type ExerciseHandler struct {
	service        ExerciseServiceInterface
	uploadMaxBytes int64
}

// NewExerciseHandler はExerciseHandlerを生成する。
// uploadMaxBytes はリクエストボディ全体の上限バイト数。
func NewExerciseHandler(service ExerciseServiceInterface, uploadMaxBytes int64) *ExerciseHandler {
	return &ExerciseHandler{
		service:        service,
		uploadMaxBytes: uploadMaxBytes,
	}
}

// exerciseResponse はエクササイズのレスポンス。
type exerciseResponse struct {
	ExerciseID  string    `json:"exerciseId"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Images      []string  `json:"images"`
	Videos      []string  `json:"videos"`
	CreatedBy   string    `json:"userId"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

func toExerciseResponse(e *model.Exercise) exerciseResponse {
	images, videos := e.Images, e.Videos
	if images == nil {
		images = []string{}
	}
	if videos == nil {
		videos = []string{}
	}
	return exerciseResponse{
		ExerciseID:  e.ID,
		Name:        e.Name,
		Description: e.Description,
		Images:      images,
		Videos:      videos,
		CreatedBy:   e.CreatedBy,
		CreatedAt:   e.CreatedAt,
		UpdatedAt:   e.UpdatedAt,
	}
}

// Create はエクササイズを作成する。画像・動画はマルチパートの images / videos フィールドで受け取る。
// POST /api/exercises
func (h *ExerciseHandler) Create(w http.ResponseWriter, r *http.Request) {
	principal, ok := requirePrincipal(w, r)
	if !ok {
		return
	}

	in, images, videos, ok := h.parseForm(w, r)
	if !ok {
		return
	}

	created, err := h.service.Create(r.Context(), principal, in, images, videos)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]string{"exerciseId": created.ID})
}

// Get はエクササイズを1件返す。
// GET /api/exercises/{id}
func (h *ExerciseHandler) Get(w http.ResponseWriter, r *http.Request) {
	e, err := h.service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toExerciseResponse(e))
}

// List はエクササイズ一覧を返す。
// GET /api/exercises
func (h *ExerciseHandler) List(w http.ResponseWriter, r *http.Request) {
	list, err := h.service.List(r.Context())
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	resp := make([]exerciseResponse, 0, len(list))
	for _, e := range list {
		resp = append(resp, toExerciseResponse(e))
	}
	writeJSON(w, http.StatusOK, resp)
}

// Update はエクササイズを更新する。ファイルが添付されたフィールドのみURL一覧を置き換える。
// PUT /api/exercises/{id}
func (h *ExerciseHandler) Update(w http.ResponseWriter, r *http.Request) {
	principal, ok := requirePrincipal(w, r)
	if !ok {
		return
	}

	in, images, videos, ok := h.parseForm(w, r)
	if !ok {
		return
	}

	if _, err := h.service.Update(r.Context(), principal, chi.URLParam(r, "id"), in, images, videos); err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, messageResponse{Message: "Exercise updated successfully"})
}

// Delete はエクササイズを削除する。
// DELETE /api/exercises/{id}
func (h *ExerciseHandler) Delete(w http.ResponseWriter, r *http.Request) {
	principal, ok := requirePrincipal(w, r)
	if !ok {
		return
	}

	if err := h.service.Delete(r.Context(), principal, chi.URLParam(r, "id")); err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, messageResponse{Message: "Exercise deleted successfully"})
}

// parseForm はリクエストから名前・説明とアップロードファイルを取り出す。
// マルチパート以外のボディはJSONとして解釈し、ファイルなしとして扱う。
func (h *ExerciseHandler) parseForm(w http.ResponseWriter, r *http.Request) (exercise.Input, []media.Upload, []media.Upload, bool) {
	if h.uploadMaxBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.uploadMaxBytes)
	}

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType != "multipart/form-data" {
		var in exercise.Input
		if err := decodeBody(r, &in); err != nil {
			h.writeBodyError(w, err)
			return exercise.Input{}, nil, nil, false
		}
		return in, nil, nil, true
	}

	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		h.writeBodyError(w, err)
		return exercise.Input{}, nil, nil, false
	}
	defer r.MultipartForm.RemoveAll()

	in := exercise.Input{
		Name:        r.FormValue("name"),
		Description: r.FormValue("description"),
	}

	images, err := readUploads(r.MultipartForm.File["images"])
	if err != nil {
		h.writeBodyError(w, err)
		return exercise.Input{}, nil, nil, false
	}
	videos, err := readUploads(r.MultipartForm.File["videos"])
	if err != nil {
		h.writeBodyError(w, err)
		return exercise.Input{}, nil, nil, false
	}
	return in, images, videos, true
}

// writeBodyError はボディ読み込み失敗をサイズ超過と形式不正に振り分けて書き込む。
func (h *ExerciseHandler) writeBodyError(w http.ResponseWriter, err error) {
	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		writeAPIErrorResponse(w, http.StatusRequestEntityTooLarge, model.NewPayloadTooLargeError(maxErr.Limit))
		return
	}
	writeAPIErrorResponse(w, http.StatusBadRequest, model.NewInvalidRequestError())
}

func readUploads(headers []*multipart.FileHeader) ([]media.Upload, error) {
	uploads := make([]media.Upload, 0, len(headers))
	for _, fh := range headers {
		f, err := fh.Open()
		if err != nil {
			return nil, err
		}
		data, err := io.ReadAll(f)
		f.Close()
		if err != nil {
			return nil, err
		}
		uploads = append(uploads, media.Upload{Filename: fh.Filename, Data: data})
	}
	return uploads, nil
}
