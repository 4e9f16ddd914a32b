package model

import "time"

// Exercise はエクササイズカタログの1件を表す。
// Images, Videos はBlobストアのダウンロードURL。
type Exercise struct {
	ID          string
	Name        string
	Description string
	Images      []string
	Videos      []string
	CreatedBy   string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// ExercisePatch はエクササイズ部分更新の入力。
// 空文字列・nilのフィールドは変更しない。
type ExercisePatch struct {
	Name        string
	Description string
	Images      []string
	Videos      []string
}

// MediaObject はBlobストアに格納されたバイナリオブジェクトを表す。
type MediaObject struct {
	Key         string
	ContentType string
	Size        int64
	Data        []byte
	CreatedAt   time.Time
}
