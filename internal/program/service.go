package program

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

// Service はトレーニングプログラムに関するビジネスロジックを提供する。
// セッションの書き込みはすべてリポジトリの行ロック付きトランザクション内で行う。
type Service struct {
	repo      repository.ProgramRepository
	sanitizer security.ContentSanitizerService
	metrics   metrics.MetricsCollector
	now       func() time.Time
	newID     func() string
}

// NewService はServiceを生成する。
func NewService(
	repo repository.ProgramRepository,
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

// ResolveStartDate はユーザーのプログラム開始日時を返す。
// プログラムが未作成の場合は現在時刻を返す。
func (s *Service) ResolveStartDate(ctx context.Context, userID string) (time.Time, error) {
	start, _, err := s.resolveStart(ctx, userID)
	return start, err
}

// resolveStart は開始日時と、プログラムが既に存在するかを返す。
func (s *Service) resolveStart(ctx context.Context, userID string) (time.Time, bool, error) {
	existing, err := s.repo.FindByUserID(ctx, userID)
	if err != nil {
		return time.Time{}, false, model.NewStorageError("find program", err)
	}
	if existing != nil {
		return existing.StartDate, true, nil
	}
	return s.now(), false, nil
}

// UpsertSession はユーザーのプログラムの指定週にセッションを書き込む。
// プログラムが未作成の場合は現在時刻を開始日時として初期化する。
// 読み込み・上限判定・書き込みは1つのトランザクションで行う。
func (s *Service) UpsertSession(ctx context.Context, userID string, week, sessionNumber int, notes string) (*model.Program, error) {
	if err := validateWeek(week); err != nil {
		return nil, err
	}
	if err := validateSessionNumber(sessionNumber); err != nil {
		return nil, err
	}
	notes = s.sanitizer.SanitizeText(notes)

	now := s.now()
	init := model.NewProgram(s.newID(), userID, now)

	p, err := s.repo.UpdateByUserID(ctx, userID, init, func(p *model.Program) error {
		if err := ApplySession(p, week, sessionNumber, notes); err != nil {
			return err
		}
		p.UpdatedAt = now
		return nil
	})
	if err != nil {
		return nil, s.mapError(err, "upsert session", "")
	}

	s.recordUpsert(userID, p.ID, week, sessionNumber)
	return p, nil
}

// CreateFirstSession はユーザーの最初のセッションを作成する。
// 既にプログラムが存在する場合はPROGRAM_EXISTSを返す。
// 週番号はサーバー側で開始日時から算出する（新規作成時は第1週）。
func (s *Service) CreateFirstSession(ctx context.Context, userID string, sessionNumber int, notes string) (*model.Program, error) {
	if err := validateSessionNumber(sessionNumber); err != nil {
		return nil, err
	}
	notes = s.sanitizer.SanitizeText(notes)

	start, exists, err := s.resolveStart(ctx, userID)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, model.NewProgramExistsError()
	}
	week := CurrentWeek(start, s.now())

	p := model.NewProgram(s.newID(), userID, start)
	if err := ApplySession(p, week, sessionNumber, notes); err != nil {
		return nil, err
	}

	created, err := s.repo.CreateIfAbsent(ctx, p)
	if err != nil {
		return nil, model.NewStorageError("create program", err)
	}
	// 同時に作成された場合は後着側を拒否する
	if !created {
		return nil, model.NewProgramExistsError()
	}

	slog.Info("training program created",
		slog.String("user_id", userID),
		slog.String("program_id", p.ID),
	)
	s.recordUpsert(userID, p.ID, week, sessionNumber)
	return p, nil
}

// UpdateSession は指定プログラムの指定週にセッションを書き込む。
// プログラムが存在しない場合はPROGRAM_NOT_FOUND、本人以外の場合はFORBIDDENを返す。
// 所有者の確認は行ロック取得後に同じトランザクション内で行う。
func (s *Service) UpdateSession(ctx context.Context, principal auth.Principal, programID string, week, sessionNumber int, notes string) (*model.Program, error) {
	if _, err := uuid.Parse(programID); err != nil {
		return nil, model.NewProgramNotFoundError(programID)
	}
	if err := validateWeek(week); err != nil {
		return nil, err
	}
	if err := validateSessionNumber(sessionNumber); err != nil {
		return nil, err
	}
	notes = s.sanitizer.SanitizeText(notes)

	now := s.now()
	p, err := s.repo.UpdateByID(ctx, programID, func(p *model.Program) error {
		if err := auth.Authorize(principal, auth.Resource{OwnerID: p.UserID}, auth.Owner, "他のユーザーのトレーニングセッションです"); err != nil {
			return err
		}
		if err := ApplySession(p, week, sessionNumber, notes); err != nil {
			return err
		}
		p.UpdatedAt = now
		return nil
	})
	if err != nil {
		return nil, s.mapError(err, "update session", programID)
	}

	s.recordUpsert(principal.UserID, p.ID, week, sessionNumber)
	return p, nil
}

// ListPrograms はユーザーのプログラム一覧を返す。
func (s *Service) ListPrograms(ctx context.Context, userID string) ([]*model.Program, error) {
	programs, err := s.repo.ListByUserID(ctx, userID)
	if err != nil {
		return nil, model.NewStorageError("list programs", err)
	}
	return programs, nil
}

func (s *Service) recordUpsert(userID, programID string, week, sessionNumber int) {
	s.metrics.RecordSessionUpserted(week)
	slog.Info("training session upserted",
		slog.String("user_id", userID),
		slog.String("program_id", programID),
		slog.Int("week", week),
		slog.Int("session_number", sessionNumber),
	)
}

// mapError はリポジトリ層のエラーをAPIエラーに変換する。
func (s *Service) mapError(err error, op, programID string) error {
	var apiErr *model.APIError
	if errors.As(err, &apiErr) {
		if apiErr.Code == model.ErrCodeCapacityExceeded {
			s.metrics.RecordCapacityRejected()
		}
		return apiErr
	}
	if errors.Is(err, repository.ErrNotFound) {
		return model.NewProgramNotFoundError(programID)
	}
	return model.NewStorageError(op, err)
}
