package database

import (
	"strings"
	"testing"
)

const sampleCSV = `user_id,registration_day,cohort_day,active_time,daily_payers,new_payers,payer,extra
1,0,0,12.5,0,0,0,x
1,0,1,3.0,1,1,1,y
2,0,0,8.0,0,0,0,z
`

func TestReadCSV_HeaderMapping(t *testing.T) {
	got, err := readCSV(strings.NewReader(sampleCSV))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("got %d records, want 3", len(got))
	}
	r := got[1]
	if r.UserID != 1 || r.CohortDay != 1 || r.ActiveTime != 3.0 || r.NewPayers != 1 || r.Payer != 1 {
		t.Fatalf("unexpected record: %+v", r)
	}
}

func TestReadCSV_MissingColumn(t *testing.T) {
	_, err := readCSV(strings.NewReader("user_id,cohort_day\n1,0\n"))
	if err == nil {
		t.Fatal("expected error for missing column, got nil")
	}
}

func TestReadCSV_BadValue(t *testing.T) {
	bad := "user_id,registration_day,cohort_day,active_time,daily_payers,new_payers,payer\n1,0,zero,1.0,0,0,0\n"
	_, err := readCSV(strings.NewReader(bad))
	if err == nil {
		t.Fatal("expected error for bad cohort_day, got nil")
	}
}
