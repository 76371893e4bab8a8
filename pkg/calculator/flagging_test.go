package calculator

import (
	"math"
	"math/rand"
	"testing"

	"behavior-fit/pkg/models"
)

// singleDay builds one registration cohort with a single cohort day where
// `payers` of the `users` members pay.
func singleDay(users, payers int) []models.ActivityRecord {
	out := make([]models.ActivityRecord, 0, users)
	for u := 1; u <= users; u++ {
		pay := 0
		if u <= payers {
			pay = 1
		}
		out = append(out, rec(int64(u), 0, 0, float64(u), pay, pay, pay))
	}
	return out
}

// The rescaled draw must reproduce the group's real purchase rate in
// expectation, concentrated on the eligible pool.
func TestFlagging_RateCalibration(t *testing.T) {
	const (
		users  = 400
		payers = 100 // real rate 0.25
		trials = 200
		cutoff = 0.5
	)
	f := testFrame(t, singleDay(users, payers), 60)

	sum := 0.0
	for trial := 0; trial < trials; trial++ {
		rng := rand.New(rand.NewSource(int64(trial) + 1))
		prop := PropensityScores(f.Engagement, 0, rng)
		fl := f.flagRecords(prop, cutoff, rng)
		flagged := 0.0
		for _, v := range fl.daily {
			flagged += v
		}
		sum += flagged / users
	}
	got := sum / trials
	if math.Abs(got-0.25) > 0.02 {
		t.Fatalf("mean flagged rate = %v, want 0.25 +/- 0.02", got)
	}
}

func TestFlagging_OnlyPoolMembersFlagged(t *testing.T) {
	f := testFrame(t, singleDay(20, 10), 60)
	rng := rand.New(rand.NewSource(3))
	prop := PropensityScores(f.Engagement, 0, rng)
	fl := f.flagRecords(prop, 0.5, rng)
	for i, r := range f.Records {
		if fl.daily[i] == 1 && prop[r.UserID] < 0.5 {
			t.Fatalf("user %d flagged below cutoff (propensity %v)", r.UserID, prop[r.UserID])
		}
	}
}

func TestFlagging_EmptyPoolFlagsNobody(t *testing.T) {
	f := testFrame(t, singleDay(20, 10), 60)
	rng := rand.New(rand.NewSource(4))
	prop := PropensityScores(f.Engagement, 0, rng)
	// cutoff above every possible propensity: empty pool, zero flags
	fl := f.flagRecords(prop, 1.5, rng)
	for i, v := range fl.daily {
		if v != 0 {
			t.Fatalf("record %d flagged with empty pool", i)
		}
	}
}

func TestFlagging_DerivedColumnsMonotone(t *testing.T) {
	records := allPayers(10, 5)
	f := testFrame(t, records, 60)
	rng := rand.New(rand.NewSource(5))
	prop := PropensityScores(f.Engagement, 0.5, rng)
	fl := f.flagRecords(prop, 0.3, rng)

	for _, sp := range f.spans {
		prev := 0.0
		firstSeen := false
		for i := sp.start; i < sp.end; i++ {
			if fl.ever[i] < prev {
				t.Fatalf("ever flag decreased for user %d", f.Records[i].UserID)
			}
			if fl.first[i] == 1 {
				if firstSeen {
					t.Fatalf("new_flagged fired twice for user %d", f.Records[i].UserID)
				}
				firstSeen = true
			}
			prev = fl.ever[i]
		}
	}
}
