package core

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// CronExpression parses and evaluates a Quartz-style 7-field cron
// expression: seconds minutes hours day-of-month month day-of-week [year]
// (spec.md §3 "CronExpression"). Unlike the 5-field Unix crontab format,
// seconds are mandatory and an optional year field may follow
// day-of-week.
//
// When both day-of-month and day-of-week carry a real restriction (neither
// is "*" nor "?"), a candidate day must satisfy both: the two fields
// intersect rather than union (spec.md §9, resolving the dom/dow ambiguity
// open question in favor of intersection since both being concretely
// specified is itself the signal the caller wants both honored).
type CronExpression struct {
	raw      string
	Location *time.Location

	seconds *simpleField
	minutes *simpleField
	hours   *simpleField
	months  *simpleField
	dom     *domField
	dow     *dowField
	years   *yearField
}

// maxNextFireSearchDays bounds how many calendar days NextFireTime will
// scan looking for a match, so an expression that (given its year bound)
// can never again be satisfied returns ok=false instead of scanning
// forever (spec.md §9 "must terminate").
const maxNextFireSearchDays = 8 * 366

// Expression returns the original textual expression the CronExpression
// was parsed from.
func (c *CronExpression) Expression() string { return c.raw }

// ParseCronExpression parses a 6- or 7-field Quartz cron expression.
func ParseCronExpression(expr string) (*CronExpression, error) {
	raw := strings.TrimSpace(expr)
	fields := strings.Fields(raw)
	if len(fields) < 6 || len(fields) > 7 {
		return nil, &CronParseError{Position: 0, Message: fmt.Sprintf("expected 6 or 7 fields, got %d", len(fields))}
	}

	sec, err := parseSimpleField(fields[0], 0, 59, secondsAliases)
	if err != nil {
		return nil, fieldErr(0, err)
	}
	min, err := parseSimpleField(fields[1], 0, 59, secondsAliases)
	if err != nil {
		return nil, fieldErr(1, err)
	}
	hour, err := parseSimpleField(fields[2], 0, 23, nil)
	if err != nil {
		return nil, fieldErr(2, err)
	}
	dom, err := parseDomField(fields[3])
	if err != nil {
		return nil, fieldErr(3, err)
	}
	month, err := parseSimpleField(fields[4], 1, 12, monthAliases)
	if err != nil {
		return nil, fieldErr(4, err)
	}
	dow, err := parseDowField(fields[5])
	if err != nil {
		return nil, fieldErr(5, err)
	}

	var year *yearField
	if len(fields) == 7 {
		year, err = parseYearField(fields[6])
		if err != nil {
			return nil, fieldErr(6, err)
		}
	}

	return &CronExpression{
		raw:      raw,
		Location: time.UTC,
		seconds:  sec,
		minutes:  min,
		hours:    hour,
		months:   month,
		dom:      dom,
		dow:      dow,
		years:    year,
	}, nil
}

func fieldErr(pos int, err error) error {
	return &CronParseError{Position: pos, Message: err.Error()}
}

// NextFireTime returns the earliest instant strictly after "after" that
// satisfies the expression, or ok=false if none is found within
// maxNextFireSearchDays (a year-bounded expression legitimately exhausts;
// an unbounded one that still returns false has a field combination that
// can never be satisfied, e.g. Feb 30).
func (c *CronExpression) NextFireTime(after time.Time) (time.Time, bool) {
	loc := c.Location
	if loc == nil {
		loc = time.UTC
	}
	candidateBase := after.In(loc).Truncate(time.Second).Add(time.Second)

	y, mo, da := candidateBase.Date()
	sameDay := true
	thresholdSec := candidateBase.Hour()*3600 + candidateBase.Minute()*60 + candidateBase.Second()

	d := time.Date(y, mo, da, 0, 0, 0, 0, loc)

	for i := 0; i < maxNextFireSearchDays; i++ {
		yy, mm, dd := d.Date()

		if c.years != nil && !c.years.allows(yy) {
			next := c.years.nextAllowed(yy)
			if next < 0 {
				return time.Time{}, false
			}
			d = time.Date(next, time.January, 1, 0, 0, 0, 0, loc)
			sameDay = false
			continue
		}

		if !c.months.allows(int(mm)) {
			d = time.Date(yy, mm+1, 1, 0, 0, 0, 0, loc)
			sameDay = false
			continue
		}

		if !c.dayAllowed(yy, mm, dd, d) {
			d = d.AddDate(0, 0, 1)
			sameDay = false
			continue
		}

		threshold := -1
		if sameDay {
			threshold = thresholdSec
		}
		h, m, s, ok := c.timeOfDayAfter(threshold)
		if ok {
			return time.Date(yy, mm, dd, h, m, s, 0, loc), true
		}

		d = d.AddDate(0, 0, 1)
		sameDay = false
	}

	return time.Time{}, false
}

// dayAllowed applies intersection semantics between day-of-month and
// day-of-week when both carry a real restriction.
func (c *CronExpression) dayAllowed(y int, mo time.Month, day int, date time.Time) bool {
	domOK := c.dom.noRestriction || c.dom.allows(y, mo, day)
	dowOK := c.dow.noRestriction || c.dow.allows(y, mo, day, date.Weekday())
	if c.dom.noRestriction {
		return dowOK
	}
	if c.dow.noRestriction {
		return domOK
	}
	return domOK && dowOK
}

// timeOfDayAfter returns the earliest allowed (hour,minute,second) with
// total seconds-since-midnight >= thresholdSec (thresholdSec<0 means "any
// time of day is acceptable").
func (c *CronExpression) timeOfDayAfter(thresholdSec int) (int, int, int, bool) {
	for _, h := range c.hours.sorted {
		for _, m := range c.minutes.sorted {
			for _, s := range c.seconds.sorted {
				total := h*3600 + m*60 + s
				if thresholdSec < 0 || total >= thresholdSec {
					return h, m, s, true
				}
			}
		}
	}
	return 0, 0, 0, false
}

// --- simple numeric field (seconds, minutes, hours, months) ---

type simpleField struct {
	allowed  map[int]bool
	sorted   []int
	wildcard bool
}

func (f *simpleField) allows(v int) bool { return f.allowed[v] }

var secondsAliases map[string]int

var monthAliases = map[string]int{
	"JAN": 1, "FEB": 2, "MAR": 3, "APR": 4, "MAY": 5, "JUN": 6,
	"JUL": 7, "AUG": 8, "SEP": 9, "OCT": 10, "NOV": 11, "DEC": 12,
}

var dowAliases = map[string]int{
	"SUN": 1, "MON": 2, "TUE": 3, "WED": 4, "THU": 5, "FRI": 6, "SAT": 7,
}

func parseSimpleField(tok string, lo, hi int, aliases map[string]int) (*simpleField, error) {
	f := &simpleField{allowed: make(map[int]bool)}
	for _, part := range strings.Split(tok, ",") {
		if err := parseRangePart(part, lo, hi, aliases, f.allowed); err != nil {
			return nil, err
		}
	}
	if strings.TrimSpace(tok) == "*" {
		f.wildcard = true
	}
	for v := range f.allowed {
		f.sorted = append(f.sorted, v)
	}
	sortInts(f.sorted)
	if len(f.sorted) == 0 {
		return nil, fmt.Errorf("field %q matches no values", tok)
	}
	return f, nil
}

// parseRangePart parses one comma-separated segment: "*", "*/n", "a",
// "a-b", "a/n", or "a-b/n", writing matched values into out.
func parseRangePart(part string, lo, hi int, aliases map[string]int, out map[int]bool) error {
	part = strings.TrimSpace(part)
	if part == "" {
		return fmt.Errorf("empty field segment")
	}

	step := 1
	base := part
	if idx := strings.IndexByte(part, '/'); idx >= 0 {
		base = part[:idx]
		n, err := strconv.Atoi(part[idx+1:])
		if err != nil || n <= 0 {
			return fmt.Errorf("invalid step in %q", part)
		}
		step = n
	}

	var start, end int
	switch {
	case base == "*":
		start, end = lo, hi
	case strings.Contains(base, "-"):
		segs := strings.SplitN(base, "-", 2)
		s, err := resolveValue(segs[0], aliases)
		if err != nil {
			return err
		}
		e, err := resolveValue(segs[1], aliases)
		if err != nil {
			return err
		}
		start, end = s, e
	default:
		v, err := resolveValue(base, aliases)
		if err != nil {
			return err
		}
		start = v
		if strings.Contains(part, "/") {
			end = hi
		} else {
			end = v
		}
	}

	if start > end {
		// wrap-around range, e.g. 22-2 for hours: split into two spans
		for v := start; v <= hi; v += step {
			if v >= lo && v <= hi {
				out[v] = true
			}
		}
		for v := lo; v <= end; v += step {
			out[v] = true
		}
		return nil
	}

	for v := start; v <= end; v += step {
		if v < lo || v > hi {
			return fmt.Errorf("value %d out of range [%d,%d]", v, lo, hi)
		}
		out[v] = true
	}
	return nil
}

func resolveValue(tok string, aliases map[string]int) (int, error) {
	tok = strings.ToUpper(strings.TrimSpace(tok))
	if aliases != nil {
		if v, ok := aliases[tok]; ok {
			return v, nil
		}
	}
	v, err := strconv.Atoi(tok)
	if err != nil {
		return 0, fmt.Errorf("invalid token %q", tok)
	}
	return v, nil
}

func sortInts(s []int) {
	for i := 1; i < len(s); i++ {
		for j := i; j > 0 && s[j-1] > s[j]; j-- {
			s[j-1], s[j] = s[j], s[j-1]
		}
	}
}

// --- day-of-month field: supports numbers/ranges/steps, '?', L, L-n, nW, LW ---

type domField struct {
	noRestriction bool
	values        map[int]bool

	isLast       bool
	lastOffset   int
	isNearestWD  bool
	nearestDay   int
	isLastNearestWD bool
}

func parseDomField(tok string) (*domField, error) {
	tok = strings.TrimSpace(tok)
	f := &domField{}

	switch {
	case tok == "?" || tok == "*":
		f.noRestriction = true
		return f, nil
	case tok == "L":
		f.isLast = true
		return f, nil
	case tok == "LW":
		f.isLastNearestWD = true
		return f, nil
	case strings.HasPrefix(tok, "L-"):
		n, err := strconv.Atoi(tok[2:])
		if err != nil || n < 0 {
			return nil, fmt.Errorf("invalid L-n day-of-month %q", tok)
		}
		f.isLast = true
		f.lastOffset = n
		return f, nil
	case strings.HasSuffix(tok, "W"):
		n, err := strconv.Atoi(strings.TrimSuffix(tok, "W"))
		if err != nil || n < 1 || n > 31 {
			return nil, fmt.Errorf("invalid nW day-of-month %q", tok)
		}
		f.isNearestWD = true
		f.nearestDay = n
		return f, nil
	}

	f.values = make(map[int]bool)
	for _, part := range strings.Split(tok, ",") {
		if err := parseRangePart(part, 1, 31, nil, f.values); err != nil {
			return nil, err
		}
	}
	return f, nil
}

func (f *domField) allows(y int, mo time.Month, day int) bool {
	switch {
	case f.isLast:
		return day == lastDayOfMonth(y, mo)-f.lastOffset
	case f.isLastNearestWD:
		return day == nearestWeekday(y, mo, lastDayOfMonth(y, mo))
	case f.isNearestWD:
		return day == nearestWeekday(y, mo, f.nearestDay)
	default:
		return f.values[day]
	}
}

func lastDayOfMonth(y int, mo time.Month) int {
	return time.Date(y, mo+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// nearestWeekday returns the nearest Monday-Friday to day "target" within
// the same month (spec.md "W" semantics): if target falls on a weekend it
// moves to the closest weekday without crossing into the next/previous
// month.
func nearestWeekday(y int, mo time.Month, target int) int {
	last := lastDayOfMonth(y, mo)
	if target < 1 {
		target = 1
	}
	if target > last {
		target = last
	}
	d := time.Date(y, mo, target, 0, 0, 0, 0, time.UTC)
	switch d.Weekday() {
	case time.Saturday:
		if target == 1 {
			return target + 2
		}
		return target - 1
	case time.Sunday:
		if target == last {
			return target - 2
		}
		return target + 1
	default:
		return target
	}
}

// --- day-of-week field: numbers/names/ranges/steps, '?', N#M, NL ---

type dowField struct {
	noRestriction bool
	values        map[int]bool // 1=Sun .. 7=Sat

	hasNth    bool
	nthWeekday int
	nthOccurrence int

	hasLast    bool
	lastWeekday int
}

func parseDowField(tok string) (*dowField, error) {
	tok = strings.TrimSpace(tok)
	f := &dowField{}

	if tok == "?" || tok == "*" {
		f.noRestriction = true
		return f, nil
	}
	upper := strings.ToUpper(tok)
	if idx := strings.IndexByte(upper, '#'); idx >= 0 {
		wd, err := resolveValue(upper[:idx], dowAliases)
		if err != nil {
			return nil, err
		}
		n, err := strconv.Atoi(upper[idx+1:])
		if err != nil || n < 1 || n > 5 {
			return nil, fmt.Errorf("invalid N#M day-of-week %q", tok)
		}
		f.hasNth = true
		f.nthWeekday = normalizeDow(wd)
		f.nthOccurrence = n
		return f, nil
	}
	if strings.HasSuffix(upper, "L") && upper != "L" {
		wd, err := resolveValue(strings.TrimSuffix(upper, "L"), dowAliases)
		if err != nil {
			return nil, err
		}
		f.hasLast = true
		f.lastWeekday = normalizeDow(wd)
		return f, nil
	}

	f.values = make(map[int]bool)
	for _, part := range strings.Split(tok, ",") {
		raw := make(map[int]bool)
		if err := parseRangePart(part, 1, 7, dowAliases, raw); err != nil {
			return nil, err
		}
		for v := range raw {
			f.values[normalizeDow(v)] = true
		}
	}
	return f, nil
}

// normalizeDow maps a parsed 1-7 value onto Quartz's 1=SUN..7=SAT
// convention, also accepting the crontab habit of 0 for Sunday; 7 stays
// Saturday.
func normalizeDow(v int) int {
	if v == 0 {
		return 1
	}
	return v
}

func (f *dowField) allows(y int, mo time.Month, day int, wd time.Weekday) bool {
	quartzDow := int(wd) + 1 // time.Sunday==0 -> 1

	switch {
	case f.hasNth:
		if quartzDow != f.nthWeekday {
			return false
		}
		return (day-1)/7+1 == f.nthOccurrence
	case f.hasLast:
		if quartzDow != f.lastWeekday {
			return false
		}
		return day+7 > lastDayOfMonth(y, mo)
	default:
		return f.values[quartzDow]
	}
}

// --- year field: optional 7th field ---

type yearField struct {
	allowed map[int]bool
	sorted  []int
}

func parseYearField(tok string) (*yearField, error) {
	tok = strings.TrimSpace(tok)
	f := &yearField{allowed: make(map[int]bool)}
	if tok == "*" {
		return f, nil // empty allowed map + wildcard semantics handled by allows()
	}
	for _, part := range strings.Split(tok, ",") {
		if err := parseRangePart(part, 1970, 2199, nil, f.allowed); err != nil {
			return nil, err
		}
	}
	for v := range f.allowed {
		f.sorted = append(f.sorted, v)
	}
	sortInts(f.sorted)
	return f, nil
}

func (f *yearField) allows(y int) bool {
	if len(f.sorted) == 0 {
		return true // "*"
	}
	return f.allowed[y]
}

// nextAllowed returns the smallest allowed year > y, or -1 if none.
func (f *yearField) nextAllowed(y int) int {
	for _, v := range f.sorted {
		if v > y {
			return v
		}
	}
	return -1
}
