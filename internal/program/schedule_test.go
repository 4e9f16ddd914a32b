package program

import (
	"errors"
	"testing"
	"time"

	"github.com/hitoshi/isofit/internal/model"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestComputeWeekNumber(t *testing.T) {
	start := date(2024, 1, 1)

	tests := []struct {
		name  string
		event time.Time
		want  int
	}{
		{"同時刻は0", start, 0},
		{"1時間後は1", start.Add(time.Hour), 1},
		{"ちょうど7日後は1", date(2024, 1, 8), 1},
		{"7日と1秒後は2", date(2024, 1, 8).Add(time.Second), 2},
		{"ちょうど14日後は2", date(2024, 1, 15), 2},
		{"70日後は10", start.Add(model.ProgramLength), 10},
		{"71日後は11（クランプしない）", start.Add(model.ProgramLength + 24*time.Hour), 11},
		{"開始前は0以下", date(2023, 12, 20), -1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ComputeWeekNumber(start, tt.event); got != tt.want {
				t.Errorf("ComputeWeekNumber(%v, %v) = %d, want %d", start, tt.event, got, tt.want)
			}
		})
	}
}

func TestComputeWeekNumber_Monotonic(t *testing.T) {
	start := date(2024, 1, 1)
	prev := ComputeWeekNumber(start, start.Add(-10*24*time.Hour))
	for h := -240; h <= 24*80; h += 7 {
		got := ComputeWeekNumber(start, start.Add(time.Duration(h)*time.Hour))
		if got < prev {
			t.Fatalf("not monotonic at +%dh: %d < %d", h, got, prev)
		}
		prev = got
	}
}

func TestCurrentWeek_FirstDaysAreWeekOne(t *testing.T) {
	start := date(2024, 1, 1)
	if got := CurrentWeek(start, start); got != 1 {
		t.Errorf("CurrentWeek(start, start) = %d, want 1", got)
	}
	if got := CurrentWeek(start, start.Add(-time.Hour)); got != 1 {
		t.Errorf("CurrentWeek before start = %d, want 1", got)
	}
	if got := CurrentWeek(start, date(2024, 1, 10)); got != 2 {
		t.Errorf("CurrentWeek day 9 = %d, want 2", got)
	}
}

func TestApplySession_SameNumberReplacesNotes(t *testing.T) {
	p := model.NewProgram("p1", "u1", date(2024, 1, 1))

	if err := ApplySession(p, 1, 1, "A"); err != nil {
		t.Fatalf("first apply: %v", err)
	}
	if err := ApplySession(p, 1, 1, "B"); err != nil {
		t.Fatalf("second apply: %v", err)
	}

	if len(p.Weeks[0]) != 1 {
		t.Fatalf("week 1 has %d sessions, want 1", len(p.Weeks[0]))
	}
	if p.Weeks[0][0] != (model.Session{SessionNumber: 1, Notes: "B"}) {
		t.Errorf("week 1 = %+v, want [{1 B}]", p.Weeks[0])
	}
}

func TestApplySession_FourthSessionExceedsCapacity(t *testing.T) {
	p := model.NewProgram("p1", "u1", date(2024, 1, 1))
	for n := 1; n <= 3; n++ {
		if err := ApplySession(p, 2, n, "ok"); err != nil {
			t.Fatalf("session %d: %v", n, err)
		}
	}

	before := append([]model.Session{}, p.Weeks[1]...)
	err := ApplySession(p, 2, 4, "too many")

	var apiErr *model.APIError
	if !errors.As(err, &apiErr) || apiErr.Code != model.ErrCodeCapacityExceeded {
		t.Fatalf("expected CAPACITY_EXCEEDED, got %v", err)
	}
	if len(p.Weeks[1]) != 3 {
		t.Errorf("week 2 has %d sessions, want 3", len(p.Weeks[1]))
	}
	for i := range before {
		if p.Weeks[1][i] != before[i] {
			t.Errorf("week 2 changed: %+v -> %+v", before, p.Weeks[1])
		}
	}
}

func TestApplySession_FullWeekRejectsNewNumber(t *testing.T) {
	// 上限判定は番号ではなく件数で行う
	p := model.NewProgram("p1", "u1", date(2024, 1, 1))
	p.Weeks[1] = []model.Session{{SessionNumber: 1}, {SessionNumber: 5}, {SessionNumber: 7}}

	err := ApplySession(p, 2, 2, "new")
	var apiErr *model.APIError
	if !errors.As(err, &apiErr) || apiErr.Code != model.ErrCodeCapacityExceeded {
		t.Fatalf("expected CAPACITY_EXCEEDED, got %v", err)
	}
	if len(p.Weeks[1]) != 3 {
		t.Errorf("week 2 has %d sessions, want 3", len(p.Weeks[1]))
	}
}

func TestApplySession_FullWeekStillUpdatesExistingNumber(t *testing.T) {
	p := model.NewProgram("p1", "u1", date(2024, 1, 1))
	for n := 1; n <= 3; n++ {
		_ = ApplySession(p, 3, n, "")
	}

	if err := ApplySession(p, 3, 2, "updated"); err != nil {
		t.Fatalf("update in full week: %v", err)
	}
	if p.Weeks[2][1].Notes != "updated" {
		t.Errorf("notes = %q, want %q", p.Weeks[2][1].Notes, "updated")
	}
}

func TestApplySession_RangeValidation(t *testing.T) {
	tests := []struct {
		name          string
		week, session int
	}{
		{"week 0", 0, 1},
		{"week 11", 11, 1},
		{"session 0", 1, 0},
		{"session -1", 1, -1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := model.NewProgram("p1", "u1", date(2024, 1, 1))
			err := ApplySession(p, tt.week, tt.session, "x")
			var apiErr *model.APIError
			if !errors.As(err, &apiErr) || apiErr.Code != model.ErrCodeValidation {
				t.Fatalf("expected VALIDATION_ERROR, got %v", err)
			}
		})
	}
}

func TestApplySession_RepairsMissingWeeks(t *testing.T) {
	p := &model.Program{ID: "p1", UserID: "u1", Weeks: [][]model.Session{{}}}

	if err := ApplySession(p, 10, 1, "late"); err != nil {
		t.Fatalf("apply: %v", err)
	}
	if len(p.Weeks) != model.ProgramWeeks {
		t.Fatalf("weeks = %d, want %d", len(p.Weeks), model.ProgramWeeks)
	}
	if len(p.Weeks[9]) != 1 {
		t.Errorf("week 10 = %+v", p.Weeks[9])
	}
}
