package model

import "time"

// TimeSlot は血圧日誌の1コマ分の記録を表す。
type TimeSlot struct {
	Time     string `json:"time"`
	Activity string `json:"activity"`
	Event    string `json:"event"`
	Notes    string `json:"notes"`
}

// Diary はユーザーの血圧日誌を表す。
// TimeSlots は固定の41コマ（06:00から翌05:00まで）。
type Diary struct {
	ID        string
	UserID    string
	Date      time.Time
	TimeSlots []TimeSlot
	CreatedAt time.Time
	UpdatedAt time.Time
}

// DiaryTimes は血圧日誌のタイムスロット時刻一覧。
// 06:00〜23:00は30分刻み、以降は翌05:00まで1時間刻み。
var DiaryTimes = []string{
	"06:00", "06:30", "07:00", "07:30", "08:00", "08:30", "09:00", "09:30",
	"10:00", "10:30", "11:00", "11:30", "12:00", "12:30", "13:00", "13:30",
	"14:00", "14:30", "15:00", "15:30", "16:00", "16:30", "17:00", "17:30",
	"18:00", "18:30", "19:00", "19:30", "20:00", "20:30", "21:00", "21:30",
	"22:00", "22:30", "23:00", "00:00", "01:00", "02:00", "03:00", "04:00", "05:00",
}

// NewTimeSlots は全コマを空で初期化したタイムスロット一覧を返す。
func NewTimeSlots() []TimeSlot {
	slots := make([]TimeSlot, len(DiaryTimes))
	for i, t := range DiaryTimes {
		slots[i] = TimeSlot{Time: t}
	}
	return slots
}
