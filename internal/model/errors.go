// Package model はドメインモデルを定義する。
package model

import "fmt"

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: auth, validation, training, diary, exercise, system
	Action   string // ユーザー向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeValidation             = "VALIDATION_ERROR"
	ErrCodeInvalidRequest         = "INVALID_REQUEST"
	ErrCodeNoFiles                = "NO_FILES"
	ErrCodeEmailAlreadyRegistered = "EMAIL_ALREADY_REGISTERED"
	ErrCodeIndexOutOfRange        = "INDEX_OUT_OF_RANGE"
	ErrCodeUnauthenticated        = "UNAUTHENTICATED"
	ErrCodeForbidden              = "FORBIDDEN"
	ErrCodeCapacityExceeded       = "CAPACITY_EXCEEDED"
	ErrCodeProgramExists          = "PROGRAM_EXISTS"
	ErrCodeUserNotFound           = "USER_NOT_FOUND"
	ErrCodeExerciseNotFound       = "EXERCISE_NOT_FOUND"
	ErrCodeProgramNotFound        = "PROGRAM_NOT_FOUND"
	ErrCodeDiaryNotFound          = "DIARY_NOT_FOUND"
	ErrCodeMediaNotFound          = "MEDIA_NOT_FOUND"
	ErrCodePayloadTooLarge        = "PAYLOAD_TOO_LARGE"
	ErrCodeRateLimited            = "RATE_LIMIT_EXCEEDED"
	ErrCodeStorage                = "STORAGE_ERROR"
	ErrCodeInternal               = "INTERNAL_ERROR"
)

// NewValidationError は入力値の検証エラーを生成する。
func NewValidationError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeValidation,
		Message:  fmt.Sprintf("入力内容が正しくありません: %s", reason),
		Category: "validation",
		Action:   "入力内容を確認してください。",
	}
}

// NewInvalidRequestError はリクエストボディの解析失敗エラーを生成する。
func NewInvalidRequestError() *APIError {
	return &APIError{
		Code:     ErrCodeInvalidRequest,
		Message:  "リクエストボディの解析に失敗しました。",
		Category: "validation",
		Action:   "正しいJSON形式でリクエストしてください。",
	}
}

// NewNoFilesError はエクササイズ作成時にメディアが1件も添付されていない場合のエラーを生成する。
func NewNoFilesError() *APIError {
	return &APIError{
		Code:     ErrCodeNoFiles,
		Message:  "ファイルが添付されていません。",
		Category: "validation",
		Action:   "images または videos フィールドに1件以上のファイルを添付してください。",
	}
}

// NewEmailAlreadyRegisteredError はメールアドレス重複エラーを生成する。
func NewEmailAlreadyRegisteredError() *APIError {
	return &APIError{
		Code:     ErrCodeEmailAlreadyRegistered,
		Message:  "このメールアドレスは既に登録されています。",
		Category: "validation",
		Action:   "別のメールアドレスを使用するか、ログインしてください。",
	}
}

// NewIndexOutOfRangeError はタイムスロット番号が範囲外の場合のエラーを生成する。
func NewIndexOutOfRangeError(index, size int) *APIError {
	return &APIError{
		Code:     ErrCodeIndexOutOfRange,
		Message:  fmt.Sprintf("無効なタイムスロット番号です: %d", index),
		Category: "validation",
		Action:   fmt.Sprintf("タイムスロット番号は0から%dの範囲で指定してください。", size-1),
	}
}

// NewUnauthenticatedError は認証エラーを生成する。
func NewUnauthenticatedError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeUnauthenticated,
		Message:  reason,
		Category: "auth",
		Action:   "ログインしてください。",
	}
}

// NewForbiddenError は権限不足エラーを生成する。
func NewForbiddenError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeForbidden,
		Message:  fmt.Sprintf("この操作を行う権限がありません: %s", reason),
		Category: "auth",
		Action:   "管理者または本人のアカウントで操作してください。",
	}
}

// NewCapacityExceededError は週あたりのセッション上限エラーを生成する。
func NewCapacityExceededError(week, limit int) *APIError {
	return &APIError{
		Code:     ErrCodeCapacityExceeded,
		Message:  fmt.Sprintf("第%d週のセッション数が上限（%d件）に達しています。", week, limit),
		Category: "training",
		Action:   "既存のセッション番号を指定してメモを更新してください。",
	}
}

// NewProgramExistsError はトレーニングプログラムが既に存在する場合のエラーを生成する。
func NewProgramExistsError() *APIError {
	return &APIError{
		Code:     ErrCodeProgramExists,
		Message:  "既にトレーニングセッションが存在します。",
		Category: "training",
		Action:   "新規作成ではなく既存のセッションを更新してください。",
	}
}

// NewUserNotFoundError はユーザーが見つからない場合のエラーを生成する。
func NewUserNotFoundError() *APIError {
	return &APIError{
		Code:     ErrCodeUserNotFound,
		Message:  "ユーザーが見つかりません。",
		Category: "auth",
		Action:   "ユーザーIDを確認してください。",
	}
}

// NewExerciseNotFoundError はエクササイズが見つからない場合のエラーを生成する。
func NewExerciseNotFoundError(exerciseID string) *APIError {
	return &APIError{
		Code:     ErrCodeExerciseNotFound,
		Message:  fmt.Sprintf("指定されたエクササイズが見つかりません: %s", exerciseID),
		Category: "exercise",
		Action:   "エクササイズIDを確認してください。",
	}
}

// NewProgramNotFoundError はトレーニングプログラムが見つからない場合のエラーを生成する。
func NewProgramNotFoundError(programID string) *APIError {
	return &APIError{
		Code:     ErrCodeProgramNotFound,
		Message:  fmt.Sprintf("指定されたトレーニングセッションが見つかりません: %s", programID),
		Category: "training",
		Action:   "セッションIDを確認してください。",
	}
}

// NewDiaryNotFoundError は血圧日誌が見つからない場合のエラーを生成する。
func NewDiaryNotFoundError(diaryID string) *APIError {
	return &APIError{
		Code:     ErrCodeDiaryNotFound,
		Message:  fmt.Sprintf("指定された血圧日誌が見つかりません: %s", diaryID),
		Category: "diary",
		Action:   "日誌IDを確認してください。",
	}
}

// NewMediaNotFoundError はメディアオブジェクトが見つからない場合のエラーを生成する。
func NewMediaNotFoundError(key string) *APIError {
	return &APIError{
		Code:     ErrCodeMediaNotFound,
		Message:  fmt.Sprintf("指定されたファイルが見つかりません: %s", key),
		Category: "exercise",
		Action:   "URLを確認してください。",
	}
}

// NewPayloadTooLargeError はアップロードサイズ超過エラーを生成する。
func NewPayloadTooLargeError(limit int64) *APIError {
	return &APIError{
		Code:     ErrCodePayloadTooLarge,
		Message:  fmt.Sprintf("アップロードサイズが上限（%dバイト）を超えています。", limit),
		Category: "validation",
		Action:   "ファイルサイズを小さくするか、複数回に分けてアップロードしてください。",
	}
}

// StorageError はデータストアの操作失敗を表す。
// 一時的な障害を含むため、クライアントは再試行してよい。
type StorageError struct {
	Op  string
	Err error
}

// NewStorageError はStorageErrorを生成する。
func NewStorageError(op string, err error) *StorageError {
	return &StorageError{Op: op, Err: err}
}

// Error はerrorインターフェースを実装する。
func (e *StorageError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

// Unwrap は元のエラーを返す。
func (e *StorageError) Unwrap() error {
	return e.Err
}
