package handler

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/isofit/internal/auth"
	"github.com/hitoshi/isofit/internal/diary"
	"github.com/hitoshi/isofit/internal/model"
)

// DiaryServiceInterface は血圧日誌ハンドラーが必要とするサービスインターフェース。
type DiaryServiceInterface interface {
	Create(ctx context.Context, userID string) (*model.Diary, error)
	UpdateSlot(ctx context.Context, principal auth.Principal, diaryID string, index int, in diary.SlotInput) (*model.Diary, error)
	ListForUser(ctx context.Context, userID string) ([]*model.Diary, error)
}

// DiaryHandler は血圧日誌のHTTPハンドラー。
type DiaryHandler struct {
	service DiaryServiceInterface
}

// NewDiaryHandler はDiaryHandlerを生成する。
func NewDiaryHandler(service DiaryServiceInterface) *DiaryHandler {
	return &DiaryHandler{service: service}
}

type diaryResponse struct {
	DiaryID   string           `json:"bloodPressureDiaryId"`
	UserID    string           `json:"userId"`
	Date      time.Time        `json:"date"`
	TimeSlots []model.TimeSlot `json:"timeSlots"`
}

func toDiaryResponse(d *model.Diary) diaryResponse {
	return diaryResponse{
		DiaryID:   d.ID,
		UserID:    d.UserID,
		Date:      d.Date,
		TimeSlots: d.TimeSlots,
	}
}

// Create は41コマの空スロットを持つ日誌を作成する。
// POST /api/bloodPressureDiary
func (h *DiaryHandler) Create(w http.ResponseWriter, r *http.Request) {
	principal, ok := requirePrincipal(w, r)
	if !ok {
		return
	}

	d, err := h.service.Create(r.Context(), principal.UserID)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, toDiaryResponse(d))
}

// UpdateSlot は日誌の1コマを更新する。
// PUT /api/bloodPressureDiary/{diaryId}/timeSlot/{index}
func (h *DiaryHandler) UpdateSlot(w http.ResponseWriter, r *http.Request) {
	principal, ok := requirePrincipal(w, r)
	if !ok {
		return
	}

	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewValidationError("タイムスロット番号は整数で指定してください"))
		return
	}

	var in diary.SlotInput
	if !decodeJSON(w, r, &in) {
		return
	}

	d, err := h.service.UpdateSlot(r.Context(), principal, chi.URLParam(r, "diaryId"), index, in)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, toDiaryResponse(d))
}

// List は呼び出し元ユーザーの日誌一覧を返す。
// GET /api/bloodPressureDiaries
func (h *DiaryHandler) List(w http.ResponseWriter, r *http.Request) {
	principal, ok := requirePrincipal(w, r)
	if !ok {
		return
	}

	diaries, err := h.service.ListForUser(r.Context(), principal.UserID)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	resp := make([]diaryResponse, 0, len(diaries))
	for _, d := range diaries {
		resp = append(resp, toDiaryResponse(d))
	}
	writeJSON(w, http.StatusOK, resp)
}
