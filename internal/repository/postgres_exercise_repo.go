package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"

	"github.com/hitoshi/isofit/internal/model"
)

const exerciseColumns = `id, name, description, images, videos, created_by, created_at, updated_at`

// PostgresExerciseRepo はPostgreSQLを使用したエクササイズリポジトリ。
// 画像・動画URLはTEXT[]カラムに格納する。
type PostgresExerciseRepo struct {
	db *sql.DB
}

// NewPostgresExerciseRepo はPostgresExerciseRepoを生成する。
func NewPostgresExerciseRepo(db *sql.DB) *PostgresExerciseRepo {
	return &PostgresExerciseRepo{db: db}
}

// FindByID は指定IDのエクササイズを取得する。見つからない場合はnilを返す。
func (r *PostgresExerciseRepo) FindByID(ctx context.Context, id string) (*model.Exercise, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+exerciseColumns+` FROM exercises WHERE id = $1`,
		id,
	)
	e, err := scanExercise(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find exercise by ID: %w", err)
	}
	return e, nil
}

// List は全エクササイズを作成日時の昇順で返す。
func (r *PostgresExerciseRepo) List(ctx context.Context) ([]*model.Exercise, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+exerciseColumns+` FROM exercises ORDER BY created_at ASC, id ASC`,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list exercises: %w", err)
	}
	defer rows.Close()

	exercises := []*model.Exercise{}
	for rows.Next() {
		e, err := scanExercise(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan exercise: %w", err)
		}
		exercises = append(exercises, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate exercises: %w", err)
	}
	return exercises, nil
}

// Create はエクササイズを作成する。
func (r *PostgresExerciseRepo) Create(ctx context.Context, e *model.Exercise) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO exercises (`+exerciseColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		e.ID, e.Name, e.Description, pq.Array(nonNil(e.Images)), pq.Array(nonNil(e.Videos)),
		nullString(e.CreatedBy), e.CreatedAt, e.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert exercise: %w", err)
	}
	return nil
}

// Update はエクササイズを上書き更新する。存在しない場合はErrNotFoundを返す。
func (r *PostgresExerciseRepo) Update(ctx context.Context, e *model.Exercise) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE exercises SET name = $2, description = $3, images = $4, videos = $5, updated_at = $6
		 WHERE id = $1`,
		e.ID, e.Name, e.Description, pq.Array(nonNil(e.Images)), pq.Array(nonNil(e.Videos)), e.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update exercise: %w", err)
	}
	return expectAffected(result)
}

// DeleteByID は指定IDのエクササイズを削除する。存在しない場合はErrNotFoundを返す。
// 参照されなくなったメディアはクリーンアップジョブが削除する。
func (r *PostgresExerciseRepo) DeleteByID(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM exercises WHERE id = $1`,
		id,
	)
	if err != nil {
		return fmt.Errorf("failed to delete exercise: %w", err)
	}
	return expectAffected(result)
}

func scanExercise(row rowScanner) (*model.Exercise, error) {
	e := &model.Exercise{}
	var createdBy sql.NullString
	var images, videos pq.StringArray
	if err := row.Scan(&e.ID, &e.Name, &e.Description, &images, &videos, &createdBy, &e.CreatedAt, &e.UpdatedAt); err != nil {
		return nil, err
	}
	e.Images = nonNil(images)
	e.Videos = nonNil(videos)
	e.CreatedBy = createdBy.String
	return e, nil
}

func nonNil(ss []string) []string {
	if ss == nil {
		return []string{}
	}
	return ss
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// compile-time interface check
var _ ExerciseRepository = (*PostgresExerciseRepo)(nil)
