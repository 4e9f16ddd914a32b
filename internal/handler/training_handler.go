package handler

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/isofit/internal/auth"
	"github.com/hitoshi/isofit/internal/model"
)

// TrainingServiceInterface はトレーニングセッションハンドラーが必要とするサービスインターフェース。
type TrainingServiceInterface interface {
	CreateFirstSession(ctx context.Context, userID string, sessionNumber int, notes string) (*model.Program, error)
	UpdateSession(ctx context.Context, principal auth.Principal, programID string, week, sessionNumber int, notes string) (*model.Program, error)
	ListPrograms(ctx context.Context, userID string) ([]*model.Program, error)
}

// TrainingHandler はトレーニングセッションのHTTPハンドラー。
type TrainingHandler struct {
	service TrainingServiceInterface
}

// NewTrainingHandler はTrainingHandlerを生成する。
func NewTrainingHandler(service TrainingServiceInterface) *TrainingHandler {
	return &TrainingHandler{service: service}
}

// sessionRequest はセッション書き込みのリクエストボディ。
type sessionRequest struct {
	SessionNumber int    `json:"sessionNumber"`
	Notes         string `json:"notes"`
}

// programDocument はプログラムをweek01〜week10をキーに持つドキュメントとして返す。
func programDocument(p *model.Program) map[string]any {
	doc := map[string]any{
		"sessionId":        p.ID,
		"userId":           p.UserID,
		"dateStarted":      p.StartDate.Format(time.RFC3339),
		"dateOfCompletion": p.CompletionDate.Format(time.RFC3339),
	}
	for k, v := range p.WeekDocument() {
		doc[k] = v
	}
	return doc
}

// Create はユーザーの最初のトレーニングセッションを作成する。
// POST /api/trainingSessions
func (h *TrainingHandler) Create(w http.ResponseWriter, r *http.Request) {
	principal, ok := requirePrincipal(w, r)
	if !ok {
		return
	}

	var req sessionRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	p, err := h.service.CreateFirstSession(r.Context(), principal.UserID, req.SessionNumber, req.Notes)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, programDocument(p))
}

// Update は指定週のセッションを追加または更新する。
// PUT /api/trainingSessions/{sessionId}/{weekNumber}
func (h *TrainingHandler) Update(w http.ResponseWriter, r *http.Request) {
	principal, ok := requirePrincipal(w, r)
	if !ok {
		return
	}

	week, err := strconv.Atoi(chi.URLParam(r, "weekNumber"))
	if err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewValidationError("weekNumber は整数で指定してください"))
		return
	}

	var req sessionRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	p, err := h.service.UpdateSession(r.Context(), principal, chi.URLParam(r, "sessionId"), week, req.SessionNumber, req.Notes)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, programDocument(p))
}

// List は呼び出し元ユーザーのプログラム一覧を返す。
// GET /api/trainingSessions
func (h *TrainingHandler) List(w http.ResponseWriter, r *http.Request) {
	principal, ok := requirePrincipal(w, r)
	if !ok {
		return
	}

	programs, err := h.service.ListPrograms(r.Context(), principal.UserID)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	resp := make([]map[string]any, 0, len(programs))
	for _, p := range programs {
		resp = append(resp, programDocument(p))
	}
	writeJSON(w, http.StatusOK, resp)
}
