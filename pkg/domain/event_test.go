package domain

import (
	"errors"
	"testing"
)

func TestValidate(t *testing.T) {
	valid := Event{Date: "2026-01-05", EventType: EventThawing, CreatedBy: "jsmith"}
	if err := valid.Validate(); err != nil {
		t.Fatalf("valid event rejected: %v", err)
	}

	cases := []struct {
		name  string
		event Event
		field string
	}{
		{"missing date", Event{EventType: EventSplit, CreatedBy: "u"}, "date"},
		{"malformed date", Event{Date: "05/01/2026", EventType: EventSplit, CreatedBy: "u"}, "date"},
		{"missing type", Event{Date: "2026-01-05", CreatedBy: "u"}, "event_type"},
		{"missing creator", Event{Date: "2026-01-05", EventType: EventSplit}, "created_by"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.event.Validate()
			var verr ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("expected ValidationError, got %v", err)
			}
			if verr.Field != tc.field {
				t.Fatalf("expected field %s, got %s", tc.field, verr.Field)
			}
		})
	}
}

func TestParsedDate(t *testing.T) {
	event := Event{Date: "2026-01-05"}
	day, ok := event.ParsedDate()
	if !ok {
		t.Fatalf("expected parseable date")
	}
	if day.Format(DateLayout) != "2026-01-05" {
		t.Fatalf("unexpected date %v", day)
	}

	for _, bad := range []string{"", "garbage", "2026-1-5", "2026-01-05T00:00:00Z"} {
		if _, ok := (Event{Date: bad}).ParsedDate(); ok {
			t.Fatalf("expected %q to fail parsing", bad)
		}
	}
}

func TestStoreErrorUnwrap(t *testing.T) {
	cause := errors.New("disk full")
	err := StoreError{Op: "insert", Err: cause}
	if !errors.Is(err, cause) {
		t.Fatalf("expected unwrap to reach cause")
	}
}
