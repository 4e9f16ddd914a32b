package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/hitoshi/isofit/internal/model"
)

const programColumns = `id, user_id, start_date, completion_date, weeks, created_at, updated_at`

// PostgresProgramRepo はPostgreSQLを使用したトレーニングプログラムリポジトリ。
// 週ごとのセッション一覧はweek01〜week10をキーとするJSONBドキュメントとして格納する。
type PostgresProgramRepo struct {
	db *sql.DB
}

// NewPostgresProgramRepo はPostgresProgramRepoを生成する。
func NewPostgresProgramRepo(db *sql.DB) *PostgresProgramRepo {
	return &PostgresProgramRepo{db: db}
}

// FindByUserID はユーザーのプログラムを取得する。見つからない場合はnilを返す。
func (r *PostgresProgramRepo) FindByUserID(ctx context.Context, userID string) (*model.Program, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+programColumns+` FROM training_programs WHERE user_id = $1`,
		userID,
	)
	p, err := scanProgram(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find program by user ID: %w", err)
	}
	return p, nil
}

// ListByUserID はユーザーのプログラム一覧を返す。
func (r *PostgresProgramRepo) ListByUserID(ctx context.Context, userID string) ([]*model.Program, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+programColumns+` FROM training_programs WHERE user_id = $1 ORDER BY start_date ASC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list programs: %w", err)
	}
	defer rows.Close()

	programs := []*model.Program{}
	for rows.Next() {
		p, err := scanProgram(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan program: %w", err)
		}
		programs = append(programs, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate programs: %w", err)
	}
	return programs, nil
}

// CreateIfAbsent はユーザーにプログラムが存在しない場合のみ作成する。
// user_idの一意制約で競合を検出し、既存の場合はfalseを返す。
func (r *PostgresProgramRepo) CreateIfAbsent(ctx context.Context, p *model.Program) (bool, error) {
	weeks, err := json.Marshal(p.WeekDocument())
	if err != nil {
		return false, fmt.Errorf("failed to marshal weeks: %w", err)
	}

	var id string
	err = r.db.QueryRowContext(ctx,
		`INSERT INTO training_programs (`+programColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 ON CONFLICT (user_id) DO NOTHING
		 RETURNING id`,
		p.ID, p.UserID, p.StartDate, p.CompletionDate, weeks, p.CreatedAt, p.UpdatedAt,
	).Scan(&id)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to insert program: %w", err)
	}
	return true, nil
}

// UpdateByUserID はユーザーのプログラムをSELECT ... FOR UPDATEでロックし、fnを適用して保存する。
// initが非nilの場合は先にON CONFLICT DO NOTHINGで初期化を試みる。
func (r *PostgresProgramRepo) UpdateByUserID(ctx context.Context, userID string, init *model.Program, fn ProgramMutator) (*model.Program, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if init != nil {
		weeks, err := json.Marshal(init.WeekDocument())
		if err != nil {
			return nil, fmt.Errorf("failed to marshal weeks: %w", err)
		}
		_, err = tx.ExecContext(ctx,
			`INSERT INTO training_programs (`+programColumns+`)
			 VALUES ($1, $2, $3, $4, $5, $6, $7)
			 ON CONFLICT (user_id) DO NOTHING`,
			init.ID, init.UserID, init.StartDate, init.CompletionDate, weeks, init.CreatedAt, init.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize program: %w", err)
		}
	}

	row := tx.QueryRowContext(ctx,
		`SELECT `+programColumns+` FROM training_programs WHERE user_id = $1 FOR UPDATE`,
		userID,
	)
	return r.applyAndSave(ctx, tx, row, fn)
}

// UpdateByID は指定IDのプログラムをSELECT ... FOR UPDATEでロックし、fnを適用して保存する。
func (r *PostgresProgramRepo) UpdateByID(ctx context.Context, programID string, fn ProgramMutator) (*model.Program, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	row := tx.QueryRowContext(ctx,
		`SELECT `+programColumns+` FROM training_programs WHERE id = $1 FOR UPDATE`,
		programID,
	)
	return r.applyAndSave(ctx, tx, row, fn)
}

// applyAndSave はロック済みの行を読み込み、fnを適用してweeksを書き戻しコミットする。
func (r *PostgresProgramRepo) applyAndSave(ctx context.Context, tx *sql.Tx, row *sql.Row, fn ProgramMutator) (*model.Program, error) {
	p, err := scanProgram(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to lock program: %w", err)
	}

	if err := fn(p); err != nil {
		return nil, err
	}

	weeks, err := json.Marshal(p.WeekDocument())
	if err != nil {
		return nil, fmt.Errorf("failed to marshal weeks: %w", err)
	}
	_, err = tx.ExecContext(ctx,
		`UPDATE training_programs SET weeks = $2, updated_at = $3 WHERE id = $1`,
		p.ID, weeks, p.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to update program: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return p, nil
}

func scanProgram(row rowScanner) (*model.Program, error) {
	p := &model.Program{}
	var weeks []byte
	if err := row.Scan(&p.ID, &p.UserID, &p.StartDate, &p.CompletionDate, &weeks, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}
	doc := map[string][]model.Session{}
	if len(weeks) > 0 {
		if err := json.Unmarshal(weeks, &doc); err != nil {
			return nil, fmt.Errorf("failed to unmarshal weeks: %w", err)
		}
	}
	p.Weeks = model.WeeksFromDocument(doc)
	return p, nil
}

// compile-time interface check
var _ ProgramRepository = (*PostgresProgramRepo)(nil)
