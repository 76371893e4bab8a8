package database

import (
	"context"
	"math"
	"testing"

	"behavior-fit/pkg/models"
)

// rec is shorthand for building fixture rows.
func rec(user int64, reg, day int, active float64, dailyPayers, newPayers, payer int) models.ActivityRecord {
	return models.ActivityRecord{
		UserID:          user,
		RegistrationDay: reg,
		CohortDay:       day,
		ActiveTime:      active,
		DailyPayers:     dailyPayers,
		NewPayers:       newPayers,
		Payer:           payer,
	}
}

func testStore(t *testing.T, records []models.ActivityRecord) *Store {
	t.Helper()
	s, err := Open(":memory:")
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	if err := s.Stage(context.Background(), records); err != nil {
		t.Fatalf("stage records: %v", err)
	}
	return s
}

func fixture() []models.ActivityRecord {
	return []models.ActivityRecord{
		// cohorte 0 : trois utilisateurs, user 1 paie au jour 1
		rec(1, 0, 0, 10, 0, 0, 0),
		rec(1, 0, 1, 5, 1, 1, 1),
		rec(1, 0, 2, 99, 0, 0, 1),
		rec(2, 0, 0, 2, 0, 0, 0),
		rec(2, 0, 1, 2, 0, 0, 0),
		rec(3, 0, 0, 7, 0, 0, 0),
		// cohorte 1 : un utilisateur, jamais payeur
		rec(4, 1, 0, 4, 0, 0, 0),
		rec(4, 1, 1, 4, 0, 0, 0),
	}
}

func TestRecords_OrderedByUserAndDay(t *testing.T) {
	s := testStore(t, fixture())
	got, err := s.Records(context.Background())
	if err != nil {
		t.Fatalf("records: %v", err)
	}
	if len(got) != 8 {
		t.Fatalf("got %d records, want 8", len(got))
	}
	for i := 1; i < len(got); i++ {
		prev, cur := got[i-1], got[i]
		if cur.UserID < prev.UserID || (cur.UserID == prev.UserID && cur.CohortDay <= prev.CohortDay) {
			t.Fatalf("records out of order at %d: %+v then %+v", i, prev, cur)
		}
	}
}

func TestActivityWindow_FiltersByDays(t *testing.T) {
	s := testStore(t, fixture())
	got, err := s.ActivityWindow(context.Background(), 1)
	if err != nil {
		t.Fatalf("activity window: %v", err)
	}
	// user 1: 10 + 5, day 2 excluded by the window
	if got[1] != 15 {
		t.Fatalf("user 1 active time = %v, want 15", got[1])
	}
	if got[2] != 4 || got[3] != 7 || got[4] != 8 {
		t.Fatalf("unexpected window sums: %v", got)
	}
}

func TestGroupStats(t *testing.T) {
	s := testStore(t, fixture())
	got, err := s.GroupStats(context.Background())
	if err != nil {
		t.Fatalf("group stats: %v", err)
	}
	g := got[models.GroupKey{RegistrationDay: 0, CohortDay: 1}]
	if g.Size != 2 {
		t.Fatalf("group (0,1) size = %d, want 2", g.Size)
	}
	if math.Abs(g.PurchaseRate-0.5) > 1e-12 {
		t.Fatalf("group (0,1) purchase rate = %v, want 0.5", g.PurchaseRate)
	}
	if g0 := got[models.GroupKey{RegistrationDay: 0, CohortDay: 0}]; g0.Size != 3 || g0.PurchaseRate != 0 {
		t.Fatalf("unexpected group (0,0): %+v", g0)
	}
}

func TestCohortSizes_Day0Only(t *testing.T) {
	s := testStore(t, fixture())
	got, err := s.CohortSizes(context.Background())
	if err != nil {
		t.Fatalf("cohort sizes: %v", err)
	}
	if got[0] != 3 || got[1] != 1 {
		t.Fatalf("cohort sizes = %v, want {0:3 1:1}", got)
	}
}

func TestCumulativePayers_WindowedSum(t *testing.T) {
	s := testStore(t, fixture())
	got, err := s.CumulativePayers(context.Background())
	if err != nil {
		t.Fatalf("cumulative payers: %v", err)
	}
	want := map[models.GroupKey]float64{
		{RegistrationDay: 0, CohortDay: 0}: 0,
		{RegistrationDay: 0, CohortDay: 1}: 1,
		{RegistrationDay: 0, CohortDay: 2}: 1,
		{RegistrationDay: 1, CohortDay: 0}: 0,
		{RegistrationDay: 1, CohortDay: 1}: 0,
	}
	for k, w := range want {
		if got[k] != w {
			t.Fatalf("cumulative payers %+v = %v, want %v", k, got[k], w)
		}
	}
}
