package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/hitoshi/isofit/internal/model"
)

const diaryColumns = `id, user_id, date, time_slots, created_at, updated_at`

// PostgresDiaryRepo はPostgreSQLを使用した血圧日誌リポジトリ。
// タイムスロットはJSONB配列として格納する。
type PostgresDiaryRepo struct {
	db *sql.DB
}

// NewPostgresDiaryRepo はPostgresDiaryRepoを生成する。
func NewPostgresDiaryRepo(db *sql.DB) *PostgresDiaryRepo {
	return &PostgresDiaryRepo{db: db}
}

// Create は血圧日誌を作成する。
func (r *PostgresDiaryRepo) Create(ctx context.Context, d *model.Diary) error {
	slots, err := json.Marshal(d.TimeSlots)
	if err != nil {
		return fmt.Errorf("failed to marshal time slots: %w", err)
	}
	_, err = r.db.ExecContext(ctx,
		`INSERT INTO blood_pressure_diaries (`+diaryColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		d.ID, d.UserID, d.Date, slots, d.CreatedAt, d.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert diary: %w", err)
	}
	return nil
}

// ListByUserID はユーザーの血圧日誌を日付の昇順で返す。
func (r *PostgresDiaryRepo) ListByUserID(ctx context.Context, userID string) ([]*model.Diary, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+diaryColumns+` FROM blood_pressure_diaries WHERE user_id = $1 ORDER BY date ASC, id ASC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list diaries: %w", err)
	}
	defer rows.Close()

	diaries := []*model.Diary{}
	for rows.Next() {
		d, err := scanDiary(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan diary: %w", err)
		}
		diaries = append(diaries, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate diaries: %w", err)
	}
	return diaries, nil
}

// UpdateByID は指定IDの日誌をSELECT ... FOR UPDATEでロックし、fnを適用して保存する。
func (r *PostgresDiaryRepo) UpdateByID(ctx context.Context, diaryID string, fn DiaryMutator) (*model.Diary, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	d, err := scanDiary(tx.QueryRowContext(ctx,
		`SELECT `+diaryColumns+` FROM blood_pressure_diaries WHERE id = $1 FOR UPDATE`,
		diaryID,
	))
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to lock diary: %w", err)
	}

	if err := fn(d); err != nil {
		return nil, err
	}

	slots, err := json.Marshal(d.TimeSlots)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal time slots: %w", err)
	}
	_, err = tx.ExecContext(ctx,
		`UPDATE blood_pressure_diaries SET time_slots = $2, updated_at = $3 WHERE id = $1`,
		d.ID, slots, d.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to update diary: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return d, nil
}

func scanDiary(row rowScanner) (*model.Diary, error) {
	d := &model.Diary{}
	var slots []byte
	if err := row.Scan(&d.ID, &d.UserID, &d.Date, &slots, &d.CreatedAt, &d.UpdatedAt); err != nil {
		return nil, err
	}
	d.TimeSlots = []model.TimeSlot{}
	if len(slots) > 0 {
		if err := json.Unmarshal(slots, &d.TimeSlots); err != nil {
			return nil, fmt.Errorf("failed to unmarshal time slots: %w", err)
		}
	}
	return d, nil
}

// compile-time interface check
var _ DiaryRepository = (*PostgresDiaryRepo)(nil)
