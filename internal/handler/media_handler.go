package handler

import (
	"bytes"
	"context"
	"net/http"
	"path"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/isofit/internal/model"
)

// MediaServiceInterface はメディア配信ハンドラーが必要とするサービスインターフェース。
type MediaServiceInterface interface {
	Open(ctx context.Context, key string) (*model.MediaObject, error)
}

// MediaHandler はアップロード済みメディアを配信するHTTPハンドラー。
type MediaHandler struct {
	service MediaServiceInterface
}

// NewMediaHandler はMediaHandlerを生成する。
func NewMediaHandler(service MediaServiceInterface) *MediaHandler {
	return &MediaHandler{service: service}
}

// Serve はキーに対応するメディアを返す。キーにはUUIDが含まれ内容は変化しない。
// GET /media/*
func (h *MediaHandler) Serve(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "*")
	if key == "" {
		writeAPIErrorResponse(w, http.StatusNotFound, model.NewMediaNotFoundError(key))
		return
	}

	obj, err := h.service.Open(r.Context(), key)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	if obj.ContentType != "" {
		w.Header().Set("Content-Type", obj.ContentType)
	}
	w.Header().Set("Cache-Control", "public, max-age=31536000, immutable")
	http.ServeContent(w, r, path.Base(obj.Key), obj.CreatedAt, bytes.NewReader(obj.Data))
}
