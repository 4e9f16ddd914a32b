// Package user はユーザープロフィール管理のドメインロジックを提供する。
package user

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/isofit/internal/auth"
	"github.com/hitoshi/isofit/internal/model"
	"github.com/hitoshi/isofit/internal/repository"
	"github.com/hitoshi/isofit/internal/security"
)

// Service はユーザー管理のサービス層。
// プロフィール編集と退会処理を提供する。
type Service struct {
	userRepo  repository.UserRepository
	sanitizer security.ContentSanitizerService
	now       func() time.Time
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(userRepo repository.UserRepository, sanitizer security.ContentSanitizerService) *Service {
	return &Service{
		userRepo:  userRepo,
		sanitizer: sanitizer,
		now:       time.Now,
	}
}

// Edit はプロフィールを部分更新する。本人または管理者のみ実行できる。
// 空のフィールドは変更しない。生年月日が変わった場合は年齢を再計算する。
func (s *Service) Edit(ctx context.Context, principal auth.Principal, userID string, patch model.UserPatch) (*model.User, error) {
	if err := auth.Authorize(principal, auth.Resource{OwnerID: userID}, auth.SelfOrAdmin, "他のユーザーのプロフィールです"); err != nil {
		return nil, err
	}

	u, err := s.find(ctx, userID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	if patch.DateOfBirth != "" {
		age, err := model.CalculateAge(patch.DateOfBirth, now)
		if err != nil {
			return nil, model.NewValidationError("dateOfBirth (YYYY-MM-DD)")
		}
		u.DateOfBirth = patch.DateOfBirth
		u.Age = age
	}
	setIfPresent(&u.Firstname, s.sanitizer.SanitizeText(patch.Firstname))
	setIfPresent(&u.Lastname, s.sanitizer.SanitizeText(patch.Lastname))
	setIfPresent(&u.Address, s.sanitizer.SanitizeText(patch.Address))
	setIfPresent(&u.PhoneNumber, s.sanitizer.SanitizeText(patch.PhoneNumber))
	setIfPresent(&u.Gender, s.sanitizer.SanitizeText(patch.Gender))
	setIfPresent(&u.Height, s.sanitizer.SanitizeText(patch.Height))
	setIfPresent(&u.Weight, s.sanitizer.SanitizeText(patch.Weight))
	setIfPresent(&u.RestingBloodPressure, s.sanitizer.SanitizeText(patch.RestingBloodPressure))
	u.UpdatedAt = now

	if err := s.userRepo.Update(ctx, u); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, model.NewUserNotFoundError()
		}
		return nil, model.NewStorageError("update user", err)
	}

	slog.Info("user profile updated",
		slog.String("user_id", userID),
		slog.String("actor_id", principal.UserID),
	)
	return u, nil
}

// Delete はユーザーを削除する。本人または管理者のみ実行できる。
// ロール、トレーニングプログラム、血圧日誌はCASCADE削除される。
func (s *Service) Delete(ctx context.Context, principal auth.Principal, userID string) error {
	if err := auth.Authorize(principal, auth.Resource{OwnerID: userID}, auth.SelfOrAdmin, "他のユーザーのアカウントです"); err != nil {
		return err
	}
	if _, err := s.find(ctx, userID); err != nil {
		return err
	}

	if err := s.userRepo.DeleteByID(ctx, userID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return model.NewUserNotFoundError()
		}
		return model.NewStorageError("delete user", err)
	}

	slog.Info("user deleted",
		slog.String("user_id", userID),
		slog.String("actor_id", principal.UserID),
	)
	return nil
}

func (s *Service) find(ctx context.Context, userID string) (*model.User, error) {
	if _, err := uuid.Parse(userID); err != nil {
		return nil, model.NewUserNotFoundError()
	}
	u, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, model.NewStorageError("find user", err)
	}
	if u == nil {
		return nil, model.NewUserNotFoundError()
	}
	return u, nil
}

func setIfPresent(dst *string, v string) {
	if strings.TrimSpace(v) != "" {
		*dst = v
	}
}
