// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"
	"errors"
	"time"

	"github.com/hitoshi/isofit/internal/model"
)

// ErrNotFound は更新・削除対象のレコードが存在しない場合に返す。
var ErrNotFound = errors.New("record not found")

// ErrDuplicateEmail はメールアドレスの一意制約違反時に返す。
var ErrDuplicateEmail = errors.New("email already registered")

// UserRepository はユーザーデータの永続化インターフェース。
type UserRepository interface {
	// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.User, error)

	// FindByEmail はメールアドレス（大文字小文字を区別しない）でユーザーを検索する。
	// 見つからない場合はnilを返す。
	FindByEmail(ctx context.Context, email string) (*model.User, error)

	// CreateWithRole はユーザーとロールを同一トランザクションで作成する。
	// メールアドレスが重複する場合はErrDuplicateEmailを返す。
	CreateWithRole(ctx context.Context, user *model.User, role model.Role) error

	// Update はプロフィール項目を上書き更新する。
	Update(ctx context.Context, user *model.User) error

	// DeleteByID は指定IDのユーザーを削除する。
	// 関連するuser_roles、training_programs、blood_pressure_diariesはCASCADE削除される。
	DeleteByID(ctx context.Context, id string) error

	// FindRole はユーザーのロールを取得する。ロールが未登録の場合は空文字を返す。
	FindRole(ctx context.Context, userID string) (model.Role, error)

	// SetRole はユーザーのロールをUPSERTする。
	SetRole(ctx context.Context, userID string, role model.Role) error
}

// ExerciseRepository はエクササイズカタログの永続化インターフェース。
type ExerciseRepository interface {
	// FindByID は指定IDのエクササイズを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Exercise, error)

	// List は全エクササイズを作成日時順に返す。
	List(ctx context.Context) ([]*model.Exercise, error)

	// Create はエクササイズを作成する。
	Create(ctx context.Context, exercise *model.Exercise) error

	// Update はエクササイズを上書き更新する。存在しない場合はErrNotFoundを返す。
	Update(ctx context.Context, exercise *model.Exercise) error

	// DeleteByID は指定IDのエクササイズを削除する。存在しない場合はErrNotFoundを返す。
	DeleteByID(ctx context.Context, id string) error
}

// ProgramMutator はロック取得済みのプログラムを書き換える関数。
// エラーを返した場合はトランザクションをロールバックする。
type ProgramMutator func(p *model.Program) error

// ProgramRepository はトレーニングプログラムの永続化インターフェース。
// 書き込みはすべて行ロックを取得したトランザクション内で行う。
type ProgramRepository interface {
	// FindByUserID はユーザーのプログラムを取得する。見つからない場合はnilを返す。
	FindByUserID(ctx context.Context, userID string) (*model.Program, error)

	// ListByUserID はユーザーのプログラム一覧を返す（0件または1件）。
	ListByUserID(ctx context.Context, userID string) ([]*model.Program, error)

	// CreateIfAbsent はユーザーにプログラムが存在しない場合のみ作成する。
	// 既に存在する場合はfalseを返し、何も書き込まない。
	CreateIfAbsent(ctx context.Context, program *model.Program) (bool, error)

	// UpdateByUserID はユーザーのプログラムを行ロック付きで読み込み、fnを適用して保存する。
	// initが非nilの場合、プログラムが未作成ならinitで初期化してから適用する。
	// initがnilでプログラムが存在しない場合はErrNotFoundを返す。
	UpdateByUserID(ctx context.Context, userID string, init *model.Program, fn ProgramMutator) (*model.Program, error)

	// UpdateByID は指定IDのプログラムを行ロック付きで読み込み、fnを適用して保存する。
	// 存在しない場合はErrNotFoundを返す。
	UpdateByID(ctx context.Context, programID string, fn ProgramMutator) (*model.Program, error)
}

// DiaryMutator はロック取得済みの血圧日誌を書き換える関数。
type DiaryMutator func(d *model.Diary) error

// DiaryRepository は血圧日誌の永続化インターフェース。
type DiaryRepository interface {
	// Create は血圧日誌を作成する。
	Create(ctx context.Context, diary *model.Diary) error

	// ListByUserID はユーザーの血圧日誌を日付順に返す。
	ListByUserID(ctx context.Context, userID string) ([]*model.Diary, error)

	// UpdateByID は指定IDの日誌を行ロック付きで読み込み、fnを適用して保存する。
	// 存在しない場合はErrNotFoundを返す。
	UpdateByID(ctx context.Context, diaryID string, fn DiaryMutator) (*model.Diary, error)
}

// MediaRepository はBlobストア（media_objects）の永続化インターフェース。
type MediaRepository interface {
	// Put はオブジェクトを保存する。同一キーが存在する場合は上書きする。
	Put(ctx context.Context, obj *model.MediaObject) error

	// Get は指定キーのオブジェクトを取得する。見つからない場合はnilを返す。
	Get(ctx context.Context, key string) (*model.MediaObject, error)

	// DeleteOrphans はolderThanより前に作成され、どのエクササイズからも
	// 参照されていないオブジェクトを削除し、削除件数を返す。
	// urlPrefixはキーをダウンロードURLに変換する接頭辞。
	DeleteOrphans(ctx context.Context, urlPrefix string, olderThan time.Time) (int64, error)
}
