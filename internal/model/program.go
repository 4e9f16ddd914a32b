package model

import (
	"fmt"
	"time"
)

const (
	// ProgramWeeks はトレーニングプログラムの週数。
	ProgramWeeks = 10
	// MaxSessionsPerWeek は1週あたりのセッション上限。
	MaxSessionsPerWeek = 3
	// Week は1週間の長さ。
	Week = 7 * 24 * time.Hour
	// ProgramLength はプログラム全体の期間（10週間 = 70日）。
	ProgramLength = ProgramWeeks * Week
)

// Session は週内の1回分のトレーニング記録を表す。
// SessionNumber は週内で一意。
type Session struct {
	SessionNumber int    `json:"sessionNumber"`
	Notes         string `json:"notes"`
}

// Program はユーザーごとの10週間トレーニングプログラムを表す。
// 最初のセッション書き込み時に遅延生成され、StartDateは以後変更されない。
// Weeks[i] は第i+1週のセッション一覧。
type Program struct {
	ID             string
	UserID         string
	StartDate      time.Time
	CompletionDate time.Time
	Weeks          [][]Session
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// NewProgram は全10週のスロットを空で初期化したプログラムを生成する。
// CompletionDate は StartDate + 70日。
func NewProgram(id, userID string, startDate time.Time) *Program {
	weeks := make([][]Session, ProgramWeeks)
	for i := range weeks {
		weeks[i] = []Session{}
	}
	return &Program{
		ID:             id,
		UserID:         userID,
		StartDate:      startDate,
		CompletionDate: startDate.Add(ProgramLength),
		Weeks:          weeks,
		CreatedAt:      startDate,
		UpdatedAt:      startDate,
	}
}

// EnsureWeeks は欠けている週スロットを空リストで補完する。
// 保存済みドキュメントの週数が不足していても10週分を保証する。
func (p *Program) EnsureWeeks() {
	for len(p.Weeks) < ProgramWeeks {
		p.Weeks = append(p.Weeks, []Session{})
	}
	for i := range p.Weeks {
		if p.Weeks[i] == nil {
			p.Weeks[i] = []Session{}
		}
	}
}

// Clone はWeeksを含めたディープコピーを返す。
func (p *Program) Clone() *Program {
	c := *p
	c.Weeks = make([][]Session, len(p.Weeks))
	for i, w := range p.Weeks {
		c.Weeks[i] = append([]Session{}, w...)
	}
	return &c
}

// WeekKey は週番号（1始まり）をドキュメントのキー（week01〜week10）に変換する。
func WeekKey(week int) string {
	return fmt.Sprintf("week%02d", week)
}

// WeekDocument はWeeksをweek01〜week10をキーとするマップに変換する。
func (p *Program) WeekDocument() map[string][]Session {
	doc := make(map[string][]Session, len(p.Weeks))
	for i, w := range p.Weeks {
		if w == nil {
			w = []Session{}
		}
		doc[WeekKey(i+1)] = w
	}
	return doc
}

// WeeksFromDocument はweek01〜week10をキーとするマップをWeeksに変換する。
// 欠けている週は空リストで補完する。
func WeeksFromDocument(doc map[string][]Session) [][]Session {
	weeks := make([][]Session, ProgramWeeks)
	for i := range weeks {
		if w, ok := doc[WeekKey(i+1)]; ok && w != nil {
			weeks[i] = w
		} else {
			weeks[i] = []Session{}
		}
	}
	return weeks
}
