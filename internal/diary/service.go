// Package diary は血圧日誌のドメインロジックを提供する。
package diary

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/isofit/internal/auth"
	"github.com/hitoshi/isofit/internal/metrics"
	"github.com/hitoshi/isofit/internal/model"
	"github.com/hitoshi/isofit/internal/repository"
	"github.com/hitoshi/isofit/internal/security"
)

// SlotInput はタイムスロット更新の入力。
// timeはスロット固有の値のため更新対象外。
type SlotInput struct {
	Activity string `json:"activity"`
	Event    string `json:"event"`
	Notes    string `json:"notes"`
}

// Service は血圧日誌のサービス層。
type Service struct {
	repo      repository.DiaryRepository
	sanitizer security.ContentSanitizerService
	metrics   metrics.MetricsCollector
	now       func() time.Time
	newID     func() string
}

// NewService はServiceを生成する。
func NewService(
	repo repository.DiaryRepository,
	sanitizer security.ContentSanitizerService,
	collector metrics.MetricsCollector,
) *Service {
	return &Service{
		repo:      repo,
		sanitizer: sanitizer,
		metrics:   collector,
		now:       time.Now,
		newID:     func() string { return uuid.New().String() },
	}
}

// Create は41コマの空スロットを持つ日誌を作成する。日付はサーバー時刻。
func (s *Service) Create(ctx context.Context, userID string) (*model.Diary, error) {
	now := s.now()
	d := &model.Diary{
		ID:        s.newID(),
		UserID:    userID,
		Date:      now,
		TimeSlots: model.NewTimeSlots(),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.Create(ctx, d); err != nil {
		return nil, model.NewStorageError("create diary", err)
	}

	slog.Info("blood pressure diary created",
		slog.String("user_id", userID),
		slog.String("diary_id", d.ID),
	)
	return d, nil
}

// UpdateSlot は指定日誌のindex番目のスロットを更新する。
// 所有者の確認とインデックスの範囲確認は行ロック取得後に行う。
func (s *Service) UpdateSlot(ctx context.Context, principal auth.Principal, diaryID string, index int, in SlotInput) (*model.Diary, error) {
	if _, err := uuid.Parse(diaryID); err != nil {
		return nil, model.NewDiaryNotFoundError(diaryID)
	}
	if index < 0 || index >= len(model.DiaryTimes) {
		return nil, model.NewIndexOutOfRangeError(index, len(model.DiaryTimes))
	}

	activity := s.sanitizer.SanitizeText(in.Activity)
	event := s.sanitizer.SanitizeText(in.Event)
	notes := s.sanitizer.SanitizeText(in.Notes)
	now := s.now()

	d, err := s.repo.UpdateByID(ctx, diaryID, func(d *model.Diary) error {
		if err := auth.Authorize(principal, auth.Resource{OwnerID: d.UserID}, auth.Owner, "他のユーザーの血圧日誌です"); err != nil {
			return err
		}
		// 保存済みドキュメントのスロット数が不足している場合に備える
		if index >= len(d.TimeSlots) {
			return model.NewIndexOutOfRangeError(index, len(d.TimeSlots))
		}
		slot := &d.TimeSlots[index]
		slot.Activity = activity
		slot.Event = event
		slot.Notes = notes
		d.UpdatedAt = now
		return nil
	})
	if err != nil {
		var apiErr *model.APIError
		if errors.As(err, &apiErr) {
			return nil, apiErr
		}
		if errors.Is(err, repository.ErrNotFound) {
			return nil, model.NewDiaryNotFoundError(diaryID)
		}
		return nil, model.NewStorageError("update diary slot", err)
	}

	s.metrics.RecordDiarySlotUpdated()
	slog.Info("diary slot updated",
		slog.String("user_id", principal.UserID),
		slog.String("diary_id", diaryID),
		slog.Int("index", index),
	)
	return d, nil
}

// ListForUser はユーザーの日誌一覧を返す。0件の場合は空スライス。
func (s *Service) ListForUser(ctx context.Context, userID string) ([]*model.Diary, error) {
	diaries, err := s.repo.ListByUserID(ctx, userID)
	if err != nil {
		return nil, model.NewStorageError("list diaries", err)
	}
	if diaries == nil {
		diaries = []*model.Diary{}
	}
	return diaries, nil
}
