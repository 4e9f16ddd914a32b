// Package exercise はエクササイズカタログのドメインロジックを提供する。
package exercise

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/isofit/internal/auth"
	"github.com/hitoshi/isofit/internal/media"
	"github.com/hitoshi/isofit/internal/model"
	"github.com/hitoshi/isofit/internal/repository"
	"github.com/hitoshi/isofit/internal/security"
)

// MaxFilesPerField は1リクエストあたりの画像・動画それぞれの上限数。
const MaxFilesPerField = 10

// MediaUploader はメディアの保存インターフェース。
type MediaUploader interface {
	Upload(ctx context.Context, folder string, up media.Upload) (string, error)
}

// Input はエクササイズ作成・更新のテキスト入力。
type Input struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// Service はエクササイズカタログのサービス層。書き込みは管理者のみ。
type Service struct {
	repo      repository.ExerciseRepository
	uploader  MediaUploader
	sanitizer security.ContentSanitizerService
	now       func() time.Time
	newID     func() string
}

// NewService はServiceを生成する。
func NewService(
	repo repository.ExerciseRepository,
	uploader MediaUploader,
	sanitizer security.ContentSanitizerService,
) *Service {
	return &Service{
		repo:      repo,
		uploader:  uploader,
		sanitizer: sanitizer,
		now:       time.Now,
		newID:     func() string { return uuid.New().String() },
	}
}

// Create はメディアをアップロードしてエクササイズを作成する。
// 画像・動画が1件もない場合はNO_FILESを返す。
func (s *Service) Create(ctx context.Context, actor auth.Principal, in Input, images, videos []media.Upload) (*model.Exercise, error) {
	if err := auth.Authorize(actor, auth.Resource{}, auth.AdminOnly, "エクササイズの作成は管理者のみ可能です"); err != nil {
		return nil, err
	}
	if len(images) == 0 && len(videos) == 0 {
		return nil, model.NewNoFilesError()
	}
	if err := validateFileCounts(images, videos); err != nil {
		return nil, err
	}

	imageURLs, err := s.uploadAll(ctx, media.FolderImages, images)
	if err != nil {
		return nil, err
	}
	videoURLs, err := s.uploadAll(ctx, media.FolderVideos, videos)
	if err != nil {
		return nil, err
	}

	now := s.now()
	e := &model.Exercise{
		ID:          s.newID(),
		Name:        s.sanitizer.SanitizeText(in.Name),
		Description: s.sanitizer.Sanitize(in.Description),
		Images:      imageURLs,
		Videos:      videoURLs,
		CreatedBy:   actor.UserID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.repo.Create(ctx, e); err != nil {
		return nil, model.NewStorageError("create exercise", err)
	}

	slog.Info("exercise created",
		slog.String("exercise_id", e.ID),
		slog.String("created_by", actor.UserID),
		slog.Int("images", len(imageURLs)),
		slog.Int("videos", len(videoURLs)),
	)
	return e, nil
}

// Get は指定IDのエクササイズを返す。
func (s *Service) Get(ctx context.Context, id string) (*model.Exercise, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, model.NewExerciseNotFoundError(id)
	}
	e, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, model.NewStorageError("find exercise", err)
	}
	if e == nil {
		return nil, model.NewExerciseNotFoundError(id)
	}
	return e, nil
}

// List は全エクササイズを返す。
func (s *Service) List(ctx context.Context) ([]*model.Exercise, error) {
	exercises, err := s.repo.List(ctx)
	if err != nil {
		return nil, model.NewStorageError("list exercises", err)
	}
	if exercises == nil {
		exercises = []*model.Exercise{}
	}
	return exercises, nil
}

// Update はエクササイズを部分更新する。
// 名前・説明は空でない場合のみ、画像・動画はアップロードがあった場合のみ一覧ごと置き換える。
func (s *Service) Update(ctx context.Context, actor auth.Principal, id string, in Input, images, videos []media.Upload) (*model.Exercise, error) {
	if err := auth.Authorize(actor, auth.Resource{}, auth.AdminOnly, "エクササイズの更新は管理者のみ可能です"); err != nil {
		return nil, err
	}
	if err := validateFileCounts(images, videos); err != nil {
		return nil, err
	}

	e, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	patch := model.ExercisePatch{
		Name:        s.sanitizer.SanitizeText(in.Name),
		Description: s.sanitizer.Sanitize(in.Description),
	}
	if len(images) > 0 {
		if patch.Images, err = s.uploadAll(ctx, media.FolderImages, images); err != nil {
			return nil, err
		}
	}
	if len(videos) > 0 {
		if patch.Videos, err = s.uploadAll(ctx, media.FolderVideos, videos); err != nil {
			return nil, err
		}
	}

	applyPatch(e, patch)
	e.UpdatedAt = s.now()

	if err := s.repo.Update(ctx, e); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, model.NewExerciseNotFoundError(id)
		}
		return nil, model.NewStorageError("update exercise", err)
	}

	slog.Info("exercise updated",
		slog.String("exercise_id", id),
		slog.String("updated_by", actor.UserID),
	)
	return e, nil
}

// Delete はエクササイズを削除する。メディアはクリーンアップジョブが回収する。
func (s *Service) Delete(ctx context.Context, actor auth.Principal, id string) error {
	if err := auth.Authorize(actor, auth.Resource{}, auth.AdminOnly, "エクササイズの削除は管理者のみ可能です"); err != nil {
		return err
	}
	if _, err := uuid.Parse(id); err != nil {
		return model.NewExerciseNotFoundError(id)
	}

	if err := s.repo.DeleteByID(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return model.NewExerciseNotFoundError(id)
		}
		return model.NewStorageError("delete exercise", err)
	}

	slog.Info("exercise deleted",
		slog.String("exercise_id", id),
		slog.String("deleted_by", actor.UserID),
	)
	return nil
}

func (s *Service) uploadAll(ctx context.Context, folder string, uploads []media.Upload) ([]string, error) {
	urls := make([]string, 0, len(uploads))
	for _, up := range uploads {
		url, err := s.uploader.Upload(ctx, folder, up)
		if err != nil {
			return nil, err
		}
		urls = append(urls, url)
	}
	return urls, nil
}

func validateFileCounts(images, videos []media.Upload) error {
	if len(images) > MaxFilesPerField {
		return model.NewValidationError(fmt.Sprintf("images は%d件まで", MaxFilesPerField))
	}
	if len(videos) > MaxFilesPerField {
		return model.NewValidationError(fmt.Sprintf("videos は%d件まで", MaxFilesPerField))
	}
	return nil
}

// applyPatch は空でないフィールドのみeに反映する。
func applyPatch(e *model.Exercise, p model.ExercisePatch) {
	if strings.TrimSpace(p.Name) != "" {
		e.Name = p.Name
	}
	if p.Description != "" {
		e.Description = p.Description
	}
	if p.Images != nil {
		e.Images = p.Images
	}
	if p.Videos != nil {
		e.Videos = p.Videos
	}
}
