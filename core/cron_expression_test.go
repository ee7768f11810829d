package core

import (
	"testing"
	"time"
)

func mustParse(t *testing.T, expr string) *CronExpression {
	t.Helper()
	ce, err := ParseCronExpression(expr)
	if err != nil {
		t.Fatalf("ParseCronExpression(%q): %v", expr, err)
	}
	return ce
}

func TestCronExpressionEverySecond(t *testing.T) {
	ce := mustParse(t, "* * * * * ?")
	after := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	next, ok := ce.NextFireTime(after)
	if !ok {
		t.Fatal("expected a next fire time")
	}
	want := after.Add(time.Second)
	if !next.Equal(want) {
		t.Fatalf("got %v, want %v", next, want)
	}
}

func TestCronExpressionTopOfEveryHour(t *testing.T) {
	ce := mustParse(t, "0 0 * * * ?")
	after := time.Date(2026, 3, 15, 10, 30, 0, 0, time.UTC)
	next, ok := ce.NextFireTime(after)
	if !ok {
		t.Fatal("expected a next fire time")
	}
	want := time.Date(2026, 3, 15, 11, 0, 0, 0, time.UTC)
	if !next.Equal(want) {
		t.Fatalf("got %v, want %v", next, want)
	}
}

func TestCronExpressionWeekdaysAt9(t *testing.T) {
	// Every weekday at 09:00:00.
	ce := mustParse(t, "0 0 9 ? * MON-FRI")
	// Saturday 2026-01-03 -> next should be Monday 2026-01-05 09:00.
	after := time.Date(2026, 1, 3, 12, 0, 0, 0, time.UTC)
	next, ok := ce.NextFireTime(after)
	if !ok {
		t.Fatal("expected a next fire time")
	}
	want := time.Date(2026, 1, 5, 9, 0, 0, 0, time.UTC)
	if !next.Equal(want) {
		t.Fatalf("got %v, want %v", next, want)
	}
}

func TestCronExpressionLastFridayOfMonth(t *testing.T) {
	// "6" = Friday in Quartz's 1=SUN..7=SAT numbering.
	ce := mustParse(t, "0 0 18 ? * 6L")
	after := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	next, ok := ce.NextFireTime(after)
	if !ok {
		t.Fatal("expected a next fire time")
	}
	// February 2026: last Friday is the 27th.
	want := time.Date(2026, 2, 27, 18, 0, 0, 0, time.UTC)
	if !next.Equal(want) {
		t.Fatalf("got %v, want %v", next, want)
	}
}

func TestCronExpressionThirdFridayOfMonth(t *testing.T) {
	ce := mustParse(t, "0 0 12 ? * 6#3")
	after := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	next, ok := ce.NextFireTime(after)
	if !ok {
		t.Fatal("expected a next fire time")
	}
	// February 2026 Fridays: 6, 13, 20, 27 -> 3rd is the 20th.
	want := time.Date(2026, 2, 20, 12, 0, 0, 0, time.UTC)
	if !next.Equal(want) {
		t.Fatalf("got %v, want %v", next, want)
	}
}

func TestCronExpressionLastDayOfMonth(t *testing.T) {
	ce := mustParse(t, "0 0 0 L * ?")
	after := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)
	next, ok := ce.NextFireTime(after)
	if !ok {
		t.Fatal("expected a next fire time")
	}
	want := time.Date(2026, 4, 30, 0, 0, 0, 0, time.UTC)
	if !next.Equal(want) {
		t.Fatalf("got %v, want %v", next, want)
	}
}

func TestCronExpressionNearestWeekdayToThe15th(t *testing.T) {
	ce := mustParse(t, "0 0 0 15W * ?")
	// 2026-08-15 is a Saturday, nearest weekday is Friday the 14th.
	after := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	next, ok := ce.NextFireTime(after)
	if !ok {
		t.Fatal("expected a next fire time")
	}
	want := time.Date(2026, 8, 14, 0, 0, 0, 0, time.UTC)
	if !next.Equal(want) {
		t.Fatalf("got %v, want %v", next, want)
	}
}

func TestCronExpressionDomDowIntersect(t *testing.T) {
	// Both fields concretely restrict: the 1st AND a Monday (spec's
	// intersect resolution of the dom/dow ambiguity).
	ce := mustParse(t, "0 0 0 1 * MON")
	after := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	next, ok := ce.NextFireTime(after)
	if !ok {
		t.Fatal("expected a next fire time")
	}
	if next.Day() != 1 || next.Weekday() != time.Monday {
		t.Fatalf("expected a day-1 Monday, got %v (%v)", next, next.Weekday())
	}
}

func TestCronExpressionYearField(t *testing.T) {
	ce := mustParse(t, "0 0 0 1 1 ? 2030")
	after := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	next, ok := ce.NextFireTime(after)
	if !ok {
		t.Fatal("expected a next fire time")
	}
	want := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)
	if !next.Equal(want) {
		t.Fatalf("got %v, want %v", next, want)
	}

	_, ok = ce.NextFireTime(want)
	if ok {
		t.Fatal("expected no further fire time past the only allowed year")
	}
}

func TestCronExpressionRejectsMalformedField(t *testing.T) {
	_, err := ParseCronExpression("bogus * * * * ?")
	if err == nil {
		t.Fatal("expected a parse error")
	}
	var perr *CronParseError
	if !asCronParseError(err, &perr) {
		t.Fatalf("expected *CronParseError, got %T: %v", err, err)
	}
}

func asCronParseError(err error, target **CronParseError) bool {
	if e, ok := err.(*CronParseError); ok {
		*target = e
		return true
	}
	return false
}

func TestCronExpressionWrongFieldCount(t *testing.T) {
	_, err := ParseCronExpression("* * *")
	if err == nil {
		t.Fatal("expected an error for too few fields")
	}
}
