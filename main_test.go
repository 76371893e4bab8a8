package main

import "testing"

func TestParseRange_Valid(t *testing.T) {
	got, err := parseRange("0.2, 0.8")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got[0] != 0.2 || got[1] != 0.8 {
		t.Fatalf("got %v, want [0.2 0.8]", got)
	}
}

func TestParseRange_WrongArity(t *testing.T) {
	if _, err := parseRange("0.5"); err == nil {
		t.Fatal("expected error for single bound, got nil")
	}
	if _, err := parseRange("0,1,2"); err == nil {
		t.Fatal("expected error for three bounds, got nil")
	}
}

func TestParseRange_BadNumber(t *testing.T) {
	if _, err := parseRange("zero,1"); err == nil {
		t.Fatal("expected error for non-numeric bound, got nil")
	}
}
