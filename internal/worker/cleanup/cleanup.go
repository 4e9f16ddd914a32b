// Package cleanup は参照されなくなったメディアの自動削除ジョブを提供する。
// エクササイズの画像・動画の差し替えや削除で孤立したmedia_objectsを、
// 猶予期間の経過後に定期バッチで削除する。
package cleanup

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/hitoshi/isofit/internal/metrics"
)

// DefaultRetention はアップロードから削除対象になるまでの猶予期間のデフォルト値。
// エクササイズ保存前のアップロード直後のオブジェクトは猶予期間内のため削除されない。
const DefaultRetention = 24 * time.Hour

// OrphanDeleter は孤立メディアの削除インターフェース。
type OrphanDeleter interface {
	DeleteOrphans(ctx context.Context, urlPrefix string, olderThan time.Time) (int64, error)
}

// CleanupJob は孤立メディアの自動削除ジョブ。
// 冪等であり、削除対象がない場合もエラーにならない。
type CleanupJob struct {
	repo      OrphanDeleter
	urlPrefix string
	metrics   metrics.MetricsCollector
	logger    *slog.Logger
	now       func() time.Time

	Retention time.Duration
}

// NewCleanupJob は新しいCleanupJobを生成する。
// urlPrefix はメディアキーをダウンロードURLに変換する接頭辞（<BASE_URL>/media/）。
// retention が0以下の場合はDefaultRetentionを使う。
func NewCleanupJob(repo OrphanDeleter, urlPrefix string, retention time.Duration, collector metrics.MetricsCollector, logger *slog.Logger) *CleanupJob {
	if retention <= 0 {
		retention = DefaultRetention
	}
	if collector == nil {
		collector = metrics.Nop{}
	}
	return &CleanupJob{
		repo:      repo,
		urlPrefix: urlPrefix,
		metrics:   collector,
		logger:    logger,
		now:       time.Now,
		Retention: retention,
	}
}

// Run は猶予期間を超過し、どのエクササイズからも参照されていないメディアを削除する。
func (j *CleanupJob) Run(ctx context.Context) error {
	start := j.now()
	olderThan := start.Add(-j.Retention)

	deleted, err := j.repo.DeleteOrphans(ctx, j.urlPrefix, olderThan)
	if err != nil {
		j.logger.Error("メディアクリーンアップジョブの実行に失敗しました",
			slog.String("error", err.Error()),
			slog.Duration("retention", j.Retention),
		)
		return fmt.Errorf("メディアクリーンアップの実行に失敗: %w", err)
	}

	j.metrics.RecordMediaCleaned(deleted)
	j.logger.Info("メディアクリーンアップジョブが完了しました",
		slog.Int64("deleted_count", deleted),
		slog.Duration("retention", j.Retention),
		slog.Float64("duration_ms", float64(time.Since(start).Milliseconds())),
	)
	return nil
}
