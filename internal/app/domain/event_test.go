package domain

import (
	"testing"
	"time"
)

func TestSortEventsOrdersByDateThenTime(t *testing.T) {
	events := []Event{
		{ID: "c", Date: "2025-03-02", Time: "09:00"},
		{ID: "a", Date: "2025-03-01", Time: TimeUnspecified},
		{ID: "b", Date: "2025-03-01", Time: "19:30"},
		{ID: "d", Date: "2025-03-01", Time: "00:00"},
		{ID: "e", Date: "2025-03-01", Time: "19:30"},
	}

	SortEvents(events)

	want := []string{"d", "b", "e", "a", "c"}
	for i, id := range want {
		if events[i].ID != id {
			t.Fatalf("position %d: got %q want %q (all=%v)", i, events[i].ID, id, events)
		}
	}
	for i := 1; i < len(events); i++ {
		if events[i].Before(events[i-1]) {
			t.Fatalf("ordering violated at %d: %+v before %+v", i, events[i-1], events[i])
		}
	}
}

func TestIsPastTreatsUnspecifiedTimeAsEndOfDay(t *testing.T) {
	loc := time.UTC
	event := Event{Date: "2025-03-01", Time: TimeUnspecified}

	if event.IsPast(time.Date(2025, 3, 1, 23, 59, 0, 0, loc)) {
		t.Fatal("expected same-day event without time to stay current")
	}
	if !event.IsPast(time.Date(2025, 3, 2, 0, 0, 0, 0, loc)) {
		t.Fatal("expected event to be past on the next day")
	}

	timed := Event{Date: "2025-03-01", Time: "19:30"}
	if timed.IsPast(time.Date(2025, 3, 1, 19, 0, 0, 0, loc)) {
		t.Fatal("expected timed event to be upcoming before its start")
	}
	if !timed.IsPast(time.Date(2025, 3, 1, 20, 0, 0, 0, loc)) {
		t.Fatal("expected timed event to be past after its start")
	}
}

func TestApplyKeepsIDAndUntouchedFields(t *testing.T) {
	name := "  Late Show "
	base := Event{ID: "evt-1", Name: "Show", Date: "2025-03-01", Organizer: "Venue"}

	updated := base.Apply(Patch{Name: &name})

	if updated.ID != "evt-1" {
		t.Fatalf("id changed: %q", updated.ID)
	}
	if updated.Name != "Late Show" {
		t.Fatalf("unexpected name %q", updated.Name)
	}
	if updated.Organizer != "Venue" || updated.Date != "2025-03-01" {
		t.Fatalf("untouched fields changed: %+v", updated)
	}
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name  string
		event Event
		ok    bool
	}{
		{name: "complete", event: Event{ID: "1", Name: "Show", Date: "2025-03-01", Time: "19:30", TicketsURL: "https://tickets.example.com/1"}, ok: true},
		{name: "no time", event: Event{ID: "1", Name: "Show", Date: "2025-03-01"}, ok: true},
		{name: "missing name", event: Event{ID: "1", Date: "2025-03-01"}, ok: false},
		{name: "missing date", event: Event{ID: "1", Name: "Show"}, ok: false},
		{name: "impossible date", event: Event{ID: "1", Name: "Show", Date: "2025-02-30"}, ok: false},
		{name: "bad time", event: Event{ID: "1", Name: "Show", Date: "2025-03-01", Time: "25:00"}, ok: false},
		{name: "bad tickets url", event: Event{ID: "1", Name: "Show", Date: "2025-03-01", TicketsURL: "not a url"}, ok: false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := Validate(tc.event)
			if tc.ok && err != nil {
				t.Fatalf("expected valid, got %v", err)
			}
			if !tc.ok && err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}

func TestNewDateRejectsImpossibleDates(t *testing.T) {
	if _, ok := NewDate(2025, time.February, 29); ok {
		t.Fatal("expected 2025-02-29 to be rejected")
	}
	if d, ok := NewDate(2024, time.February, 29); !ok || d != "2024-02-29" {
		t.Fatalf("expected leap day, got %q ok=%v", d, ok)
	}
}

func TestMaterializeAndApplyStoreCanonicalDateAndTime(t *testing.T) {
	e := Draft{Name: "Early", Date: " 2025-03-01 ", Time: "9:30"}.Materialize("a")
	if e.Date != "2025-03-01" || e.Time != "09:30" {
		t.Fatalf("draft not canonicalized: date=%q time=%q", e.Date, e.Time)
	}

	late := Event{ID: "b", Name: "Late", Date: "2025-03-01", Time: "19:00"}
	if !e.Before(late) {
		t.Fatalf("09:30 must order before 19:00")
	}

	date, clock := Date("2025-03-02\n"), Clock(" 7:05")
	patched := late.Apply(Patch{Date: &date, Time: &clock})
	if patched.Date != "2025-03-02" || patched.Time != "07:05" {
		t.Fatalf("patch not canonicalized: date=%q time=%q", patched.Date, patched.Time)
	}

	bad := Clock("25:99")
	if err := Validate(late.Apply(Patch{Time: &bad})); err == nil {
		t.Fatal("invalid clock must still fail validation")
	}
}
