package domain

import (
	"testing"
	"time"
)

func TestEffectiveDeadline_DerivedFromPrioritySLA(t *testing.T) {
	created := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	cases := []struct {
		priority Priority
		wantDays int
	}{
		{PriorityHigh, 5},
		{PriorityMedium, 10},
		{PriorityLow, 15},
	}

	for _, tc := range cases {
		c := &Complaint{Priority: tc.priority, CreatedAt: created}
		want := created.Add(time.Duration(tc.wantDays) * 24 * time.Hour)
		if got := c.EffectiveDeadline(); !got.Equal(want) {
			t.Fatalf("priority %s: expected deadline %v, got %v", tc.priority, want, got)
		}
	}
}

func TestEffectiveDeadline_StoredDeadlineWins(t *testing.T) {
	created := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	stored := created.Add(48 * time.Hour)

	c := &Complaint{Priority: PriorityLow, CreatedAt: created, Deadline: &stored}
	if got := c.EffectiveDeadline(); !got.Equal(stored) {
		t.Fatalf("expected stored deadline %v, got %v", stored, got)
	}
}

func TestEffectiveDeadline_UnknownPriorityFallsBackToMedium(t *testing.T) {
	created := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	c := &Complaint{Priority: Priority("urgent"), CreatedAt: created}
	want := created.Add(10 * 24 * time.Hour)
	if got := c.EffectiveDeadline(); !got.Equal(want) {
		t.Fatalf("expected medium fallback %v, got %v", want, got)
	}
}

func TestPastCeiling(t *testing.T) {
	created := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	newComplaint := &Complaint{Status: StatusNew, CreatedAt: created}
	if newComplaint.PastCeiling(created.Add(5 * 24 * time.Hour)) {
		t.Fatal("new complaint at exactly 5 days should not be past ceiling")
	}
	if !newComplaint.PastCeiling(created.Add(5*24*time.Hour + time.Second)) {
		t.Fatal("new complaint past 5 days should be past ceiling")
	}

	inProgress := &Complaint{Status: StatusInProgress, CreatedAt: created}
	if inProgress.PastCeiling(created.Add(14 * 24 * time.Hour)) {
		t.Fatal("in_progress complaint at 14 days should not be past ceiling")
	}
	if !inProgress.PastCeiling(created.Add(15*24*time.Hour + time.Second)) {
		t.Fatal("in_progress complaint past 15 days should be past ceiling")
	}

	completed := &Complaint{Status: StatusCompleted, CreatedAt: created}
	if completed.PastCeiling(created.Add(100 * 24 * time.Hour)) {
		t.Fatal("completed complaints have no ceiling")
	}
}

func TestStatusAndPriorityValidation(t *testing.T) {
	for _, s := range []Status{StatusNew, StatusInProgress, StatusCompleted, StatusOverdue} {
		if !s.Valid() {
			t.Fatalf("status %q should be valid", s)
		}
	}
	if Status("rejected").Valid() {
		t.Fatal("unknown status should be invalid")
	}

	for _, p := range []Priority{PriorityLow, PriorityMedium, PriorityHigh} {
		if !p.Valid() {
			t.Fatalf("priority %q should be valid", p)
		}
	}
	if Priority("urgent").Valid() {
		t.Fatal("unknown priority should be invalid")
	}
}
