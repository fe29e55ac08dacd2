package etl

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Placeholder is the literal the source uses for an unknown value.
const Placeholder = "?"

var (
	rawDateRe = regexp.MustCompile(`^(\d{1,2})-([A-Za-z]{3})-(\d{2})$`)
	isoDateRe = regexp.MustCompile(`^(\d{4})-(\d{2})-(\d{2})$`)

	circaRe     = regexp.MustCompile(`^[cC]\s*`)
	clockTimeRe = regexp.MustCompile(`^(\d{1,2}):(\d{2})$`)
	bareTimeRe  = regexp.MustCompile(`^\d{3,4}$`)

	totalRe       = regexp.MustCompile(`^(\d+|\?)$`)
	passengersRe  = regexp.MustCompile(`(?i)\bpassengers\s*:\s*(\d+|\?)`)
	passengersTag = regexp.MustCompile(`(?i)\bpassengers\s*:`)
	crewRe        = regexp.MustCompile(`(?i)\bcrew\s*:\s*(\d+|\?)`)
	crewTag       = regexp.MustCompile(`(?i)\bcrew\s*:`)
)

const totalSeparators = " \t▸"

var months = map[string]time.Month{
	"jan": time.January, "feb": time.February, "mar": time.March,
	"apr": time.April, "may": time.May, "jun": time.June,
	"jul": time.July, "aug": time.August, "sep": time.September,
	"oct": time.October, "nov": time.November, "dec": time.December,
}

// Counts is the decomposition of an aboard or fatalities field.
type Counts struct {
	Total      *int64
	Passengers *int64
	Crew       *int64
}

func isPlaceholder(v string) bool {
	return v == "" || v == Placeholder
}

// NormalizeText trims the value and maps the "?" placeholder and empty
// strings to NULL.
func NormalizeText(raw *string) *string {
	if raw == nil {
		return nil
	}
	v := strings.TrimSpace(*raw)
	if isPlaceholder(v) {
		return nil
	}
	return &v
}

// NormalizeDate parses "DD-Mon-YY" into an ISO date. Two-digit years are
// read as 20YY and moved back a century when that lands after cutoffYear.
// ISO dates are accepted unchanged.
func NormalizeDate(raw *string, cutoffYear int) (*string, error) {
	if raw == nil {
		return nil, nil
	}
	v := strings.TrimSpace(*raw)
	if isPlaceholder(v) {
		return nil, nil
	}

	var year, day int
	var month time.Month
	if m := rawDateRe.FindStringSubmatch(v); m != nil {
		mon, ok := months[strings.ToLower(m[2])]
		if !ok {
			return nil, &FormatError{Value: v, Reason: fmt.Sprintf("unknown month %q", m[2])}
		}
		day, _ = strconv.Atoi(m[1])
		yy, _ := strconv.Atoi(m[3])
		year, month = 2000+yy, mon
		if year > cutoffYear {
			year -= 100
		}
	} else if m := isoDateRe.FindStringSubmatch(v); m != nil {
		year, _ = strconv.Atoi(m[1])
		mon, _ := strconv.Atoi(m[2])
		day, _ = strconv.Atoi(m[3])
		month = time.Month(mon)
	} else {
		return nil, &FormatError{Value: v, Reason: "expected DD-Mon-YY"}
	}

	t := time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
	if t.Year() != year || t.Month() != month || t.Day() != day {
		return nil, &FormatError{Value: v, Reason: "no such calendar day"}
	}
	iso := t.Format("2006-01-02")
	return &iso, nil
}

// NormalizeTime converts the time field to "HH:MM". A leading "c" (circa)
// marker is dropped. Unparseable values become NULL with an error.
func NormalizeTime(raw *string) (*string, error) {
	if raw == nil {
		return nil, nil
	}
	orig := strings.TrimSpace(*raw)
	if isPlaceholder(orig) {
		return nil, nil
	}
	v := strings.TrimSpace(circaRe.ReplaceAllString(orig, ""))
	if isPlaceholder(v) {
		return nil, nil
	}

	var hh, mm int
	switch {
	case clockTimeRe.MatchString(v):
		m := clockTimeRe.FindStringSubmatch(v)
		hh, _ = strconv.Atoi(m[1])
		mm, _ = strconv.Atoi(m[2])
	case bareTimeRe.MatchString(v):
		digits := strings.Repeat("0", 4-len(v)) + v
		hh, _ = strconv.Atoi(digits[:2])
		mm, _ = strconv.Atoi(digits[2:])
	default:
		return nil, &FormatError{Value: orig, Reason: "expected HHMM or HH:MM"}
	}

	if hh > 23 || mm > 59 {
		return nil, &FormatError{Value: orig, Reason: "hour or minute out of range"}
	}
	t := fmt.Sprintf("%02d:%02d", hh, mm)
	return &t, nil
}

// NormalizeInt parses a non-negative integer. "?" and empty map to NULL.
func NormalizeInt(raw *string) (*int64, error) {
	if raw == nil {
		return nil, nil
	}
	v := strings.TrimSpace(*raw)
	if isPlaceholder(v) {
		return nil, nil
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return nil, &FormatError{Value: v, Reason: "not an integer"}
	}
	if n < 0 {
		return nil, &FormatError{Value: v, Reason: "negative count"}
	}
	return &n, nil
}

// NormalizeCounts splits "N (passengers:X crew:Y)" into its parts. Each part
// is optional and parsed on its own; parts that fail to parse are NULL while
// the others are kept, and the failure is reported in the error.
func NormalizeCounts(raw *string) (Counts, error) {
	var c Counts
	if raw == nil {
		return c, nil
	}
	v := strings.TrimSpace(*raw)
	if isPlaceholder(v) {
		return c, nil
	}

	var problems []string
	matched := false

	// The total is everything before the breakdown, minus the "▸" separator.
	prefix := strings.TrimRight(strings.TrimSpace(v[:breakdownStart(v)]), totalSeparators)
	switch {
	case prefix == "":
	case totalRe.MatchString(prefix):
		matched = true
		if prefix != Placeholder {
			n, err := strconv.ParseInt(prefix, 10, 64)
			if err != nil {
				problems = append(problems, "total out of range")
			} else {
				c.Total = &n
			}
		}
	default:
		problems = append(problems, fmt.Sprintf("unparseable total %q", prefix))
	}

	parts := []struct {
		name  string
		value *regexp.Regexp
		tag   *regexp.Regexp
		dst   **int64
	}{
		{"passengers", passengersRe, passengersTag, &c.Passengers},
		{"crew", crewRe, crewTag, &c.Crew},
	}
	for _, p := range parts {
		m := p.value.FindStringSubmatch(v)
		if m == nil {
			if p.tag.MatchString(v) {
				problems = append(problems, "unparseable "+p.name+" count")
			}
			continue
		}
		matched = true
		if m[1] == Placeholder {
			continue
		}
		n, err := strconv.ParseInt(m[1], 10, 64)
		if err != nil {
			problems = append(problems, p.name+" count out of range")
			continue
		}
		*p.dst = &n
	}

	if !matched && len(problems) == 0 {
		problems = append(problems, "no total or passengers/crew breakdown")
	}
	if len(problems) > 0 {
		return c, &FormatError{Value: v, Reason: strings.Join(problems, "; ")}
	}
	return c, nil
}

// breakdownStart returns the index where the parenthesised breakdown or the
// first tag begins, or len(v).
func breakdownStart(v string) int {
	end := len(v)
	if i := strings.IndexByte(v, '('); i >= 0 && i < end {
		end = i
	}
	for _, re := range []*regexp.Regexp{passengersTag, crewTag} {
		if loc := re.FindStringIndex(v); loc != nil && loc[0] < end {
			end = loc[0]
		}
	}
	return end
}
