package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/hitoshi/isofit/internal/model"
)

// PostgresMediaRepo はmedia_objectsテーブルをBlobストアとして扱うリポジトリ。
type PostgresMediaRepo struct {
	db *sql.DB
}

// NewPostgresMediaRepo はPostgresMediaRepoを生成する。
func NewPostgresMediaRepo(db *sql.DB) *PostgresMediaRepo {
	return &PostgresMediaRepo{db: db}
}

// Put はオブジェクトを保存する。同一キーが存在する場合は上書きする。
func (r *PostgresMediaRepo) Put(ctx context.Context, obj *model.MediaObject) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO media_objects (key, content_type, size, data, created_at)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (key) DO UPDATE SET
			content_type = EXCLUDED.content_type,
			size = EXCLUDED.size,
			data = EXCLUDED.data,
			created_at = EXCLUDED.created_at`,
		obj.Key, obj.ContentType, obj.Size, obj.Data, obj.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to put media object: %w", err)
	}
	return nil
}

// Get は指定キーのオブジェクトを取得する。見つからない場合はnilを返す。
func (r *PostgresMediaRepo) Get(ctx context.Context, key string) (*model.MediaObject, error) {
	obj := &model.MediaObject{}
	err := r.db.QueryRowContext(ctx,
		`SELECT key, content_type, size, data, created_at FROM media_objects WHERE key = $1`,
		key,
	).Scan(&obj.Key, &obj.ContentType, &obj.Size, &obj.Data, &obj.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get media object: %w", err)
	}
	return obj, nil
}

// DeleteOrphans はolderThanより前に作成され、どのエクササイズの
// images/videosからも参照されていないオブジェクトを削除する。
func (r *PostgresMediaRepo) DeleteOrphans(ctx context.Context, urlPrefix string, olderThan time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM media_objects m
		 WHERE m.created_at < $2
			AND NOT EXISTS (
				SELECT 1 FROM exercises e
				WHERE ($1 || m.key) = ANY(e.images) OR ($1 || m.key) = ANY(e.videos)
			)`,
		urlPrefix, olderThan,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to delete orphaned media: %w", err)
	}
	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return deleted, nil
}

// compile-time interface check
var _ MediaRepository = (*PostgresMediaRepo)(nil)
