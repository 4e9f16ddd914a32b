// Package media はエクササイズ画像・動画のBlobストアを提供する。
//
// オブジェクトは media_objects テーブルに格納し、
// BASE_URL/media/<key> の公開URLでダウンロードできる。
package media

import (
	"context"
	"log/slog"
	"path"
	"regexp"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"

	"github.com/hitoshi/isofit/internal/metrics"
	"github.com/hitoshi/isofit/internal/model"
	"github.com/hitoshi/isofit/internal/repository"
)

// フォルダ名。キーの接頭辞とメトリクスの種別ラベルを兼ねる。
const (
	FolderImages = "images"
	FolderVideos = "videos"
)

// RoutePrefix はダウンロードルートのパス接頭辞。
const RoutePrefix = "/media/"

// Upload はアップロードされた1ファイル分の入力。
type Upload struct {
	Filename string
	Data     []byte
}

var unsafeNameChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// Service はメディアの保存と取得を行う。
type Service struct {
	repo    repository.MediaRepository
	baseURL string
	metrics metrics.MetricsCollector
	now     func() time.Time
	newID   func() string
}

// NewService はServiceを生成する。baseURLは末尾のスラッシュを除いて扱う。
func NewService(repo repository.MediaRepository, baseURL string, collector metrics.MetricsCollector) *Service {
	return &Service{
		repo:    repo,
		baseURL: strings.TrimRight(baseURL, "/"),
		metrics: collector,
		now:     time.Now,
		newID:   func() string { return uuid.New().String() },
	}
}

// Upload はファイルを exercises/<folder>/<uuid>-<YYYY-MM-DD>-<name> に保存し、
// ダウンロードURLを返す。Content-Typeは内容から判定する。
func (s *Service) Upload(ctx context.Context, folder string, up Upload) (string, error) {
	now := s.now()
	key := path.Join("exercises", folder,
		s.newID()+"-"+now.Format(model.DateLayout)+"-"+safeName(up.Filename))

	obj := &model.MediaObject{
		Key:         key,
		ContentType: mimetype.Detect(up.Data).String(),
		Size:        int64(len(up.Data)),
		Data:        up.Data,
		CreatedAt:   now,
	}
	if err := s.repo.Put(ctx, obj); err != nil {
		return "", model.NewStorageError("put media", err)
	}

	s.metrics.RecordUploadBytes(folder, obj.Size)
	slog.Info("media uploaded",
		slog.String("key", key),
		slog.String("content_type", obj.ContentType),
		slog.Int64("size", obj.Size),
	)
	return s.URL(key), nil
}

// Open は指定キーのオブジェクトを返す。存在しない場合はMEDIA_NOT_FOUND。
func (s *Service) Open(ctx context.Context, key string) (*model.MediaObject, error) {
	obj, err := s.repo.Get(ctx, key)
	if err != nil {
		return nil, model.NewStorageError("get media", err)
	}
	if obj == nil {
		return nil, model.NewMediaNotFoundError(key)
	}
	return obj, nil
}

// URL はキーに対応するダウンロードURLを返す。
func (s *Service) URL(key string) string {
	return s.URLPrefix() + key
}

// URLPrefix はダウンロードURLのキーより前の部分を返す。
func (s *Service) URLPrefix() string {
	return s.baseURL + RoutePrefix
}

// safeName はファイル名からディレクトリ部分と安全でない文字を取り除く。
func safeName(name string) string {
	name = path.Base(strings.ReplaceAll(name, `\`, "/"))
	name = unsafeNameChars.ReplaceAllString(name, "_")
	name = strings.Trim(name, "._")
	if name == "" {
		return "file"
	}
	return name
}
