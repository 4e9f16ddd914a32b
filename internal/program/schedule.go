// Package program は10週間トレーニングプログラムのスケジューリングを提供する。
//
// 週番号の算出、週あたりのセッション上限の適用、セッションのUPSERTを
// 1つの原子的な操作として扱う。
package program

import (
	"fmt"
	"time"

	"github.com/hitoshi/isofit/internal/model"
)

// ComputeWeekNumber は開始日時から対象日時までの経過週数を切り上げで返す。
// ちょうど7日後は1、14日後は2。範囲へのクランプは行わないため、
// 開始日時以前は0以下、70日超は11以上になり得る。
func ComputeWeekNumber(startDate, eventDate time.Time) int {
	diff := eventDate.Sub(startDate)
	weeks := int(diff / model.Week)
	if diff%model.Week > 0 {
		weeks++
	}
	return weeks
}

// CurrentWeek は現在が何週目かを返す。
// 開始直後から最初の7日間は第1週として扱う。
func CurrentWeek(startDate, now time.Time) int {
	week := ComputeWeekNumber(startDate, now)
	if week < 1 {
		return 1
	}
	return week
}

// ApplySession はプログラムの指定週にセッションを書き込む。
// 同じセッション番号が既にあればメモのみ置き換え、なければ追加する。
// 週が上限に達している場合はCAPACITY_EXCEEDEDを返し、週の内容は変更しない。
func ApplySession(p *model.Program, week, sessionNumber int, notes string) error {
	if err := validateWeek(week); err != nil {
		return err
	}
	if err := validateSessionNumber(sessionNumber); err != nil {
		return err
	}
	p.EnsureWeeks()

	sessions := p.Weeks[week-1]
	for i := range sessions {
		if sessions[i].SessionNumber == sessionNumber {
			sessions[i].Notes = notes
			return nil
		}
	}

	if len(sessions) >= model.MaxSessionsPerWeek {
		return model.NewCapacityExceededError(week, model.MaxSessionsPerWeek)
	}
	p.Weeks[week-1] = append(sessions, model.Session{SessionNumber: sessionNumber, Notes: notes})
	return nil
}

func validateWeek(week int) error {
	if week < 1 || week > model.ProgramWeeks {
		return model.NewValidationError(fmt.Sprintf("weekNumber は1から%dの範囲で指定してください", model.ProgramWeeks))
	}
	return nil
}

func validateSessionNumber(n int) error {
	if n < 1 {
		return model.NewValidationError("sessionNumber は1以上で指定してください")
	}
	return nil
}
