package model

import "time"

// Role はユーザーの権限ロールを表す。
type Role string

const (
	// RoleUser は一般ユーザー。
	RoleUser Role = "ROLE_USER"
	// RoleAdmin は管理者。エクササイズの作成・更新・削除を行える。
	RoleAdmin Role = "ROLE_ADMIN"
)

// User はサービス利用ユーザーを表す。
type User struct {
	ID                   string
	Firstname            string
	Lastname             string
	Email                string
	PasswordHash         string
	DateOfBirth          string // YYYY-MM-DD
	Age                  int
	Address              string
	PhoneNumber          string
	Gender               string
	Height               string
	Weight               string
	RestingBloodPressure string
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

// UserPatch はプロフィール部分更新の入力。
// 空文字列のフィールドは変更しない。
type UserPatch struct {
	Firstname            string
	Lastname             string
	DateOfBirth          string
	Address              string
	PhoneNumber          string
	Gender               string
	Height               string
	Weight               string
	RestingBloodPressure string
}

// DateLayout は生年月日の日付フォーマット。
const DateLayout = "2006-01-02"

// CalculateAge は生年月日から基準日時点の満年齢を計算する。
func CalculateAge(dateOfBirth string, now time.Time) (int, error) {
	dob, err := time.Parse(DateLayout, dateOfBirth)
	if err != nil {
		return 0, err
	}

	age := now.Year() - dob.Year()
	if now.Month() < dob.Month() || (now.Month() == dob.Month() && now.Day() < dob.Day()) {
		age--
	}
	if age < 0 {
		age = 0
	}
	return age, nil
}
