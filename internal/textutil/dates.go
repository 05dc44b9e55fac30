package textutil

import (
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"
)

// DateLayout is the canonical date rendering
const DateLayout = "2006-01-02"

const monthPattern = `(jan(?:uary)?|feb(?:ruary)?|mar(?:ch)?|apr(?:il)?|may|june?|july?|aug(?:ust)?|sep(?:t(?:ember)?)?|oct(?:ober)?|nov(?:ember)?|dec(?:ember)?)`

var (
	isoDate      = regexp.MustCompile(`\b(\d{4})-(\d{1,2})-(\d{1,2})\b`)
	slashDate    = regexp.MustCompile(`\b(\d{1,2})/(\d{1,2})/(\d{4}|\d{2})\b`)
	monthDayDate = regexp.MustCompile(`(?i)\b` + monthPattern + `\.?\s+(\d{1,2})(?:st|nd|rd|th)?\b(?:,?\s+(\d{4})\b)?`)
	dayMonthDate = regexp.MustCompile(`(?i)\b(\d{1,2})(?:st|nd|rd|th)?\s+(?:of\s+)?` + monthPattern + `\b(?:,?\s+(\d{4})\b)?`)
)

var months = map[string]time.Month{
	"jan": time.January, "feb": time.February, "mar": time.March, "apr": time.April,
	"may": time.May, "jun": time.June, "jul": time.July, "aug": time.August,
	"sep": time.September, "oct": time.October, "nov": time.November, "dec": time.December,
}

// DateMatch is a date found inside a text
type DateMatch struct {
	Text  string    // Matched substring
	Start int       // Byte offset of the match
	Date  time.Time // UTC midnight
}

// Canonical renders the date as YYYY-MM-DD
func (d DateMatch) Canonical() string {
	return d.Date.Format(DateLayout)
}

// FindDates returns every date in text, in order of appearance.
// Dates without a year take refYear.
func FindDates(text string, refYear int) []DateMatch {
	type span struct{ start, end int }
	var found []DateMatch
	var taken []span

	overlaps := func(s, e int) bool {
		for _, t := range taken {
			if s < t.end && e > t.start {
				return true
			}
		}
		return false
	}
	add := func(loc []int, d time.Time, ok bool) {
		if !ok || overlaps(loc[0], loc[1]) {
			return
		}
		taken = append(taken, span{loc[0], loc[1]})
		found = append(found, DateMatch{Text: text[loc[0]:loc[1]], Start: loc[0], Date: d})
	}
	group := func(loc []int, i int) string {
		if loc[2*i] < 0 {
			return ""
		}
		return text[loc[2*i]:loc[2*i+1]]
	}

	for _, loc := range isoDate.FindAllStringSubmatchIndex(text, -1) {
		d, ok := buildDate(group(loc, 1), monthFromNumber(group(loc, 2)), group(loc, 3), refYear)
		add(loc, d, ok)
	}
	for _, loc := range slashDate.FindAllStringSubmatchIndex(text, -1) {
		year := group(loc, 3)
		if len(year) == 2 {
			year = "20" + year
		}
		d, ok := buildDate(year, monthFromNumber(group(loc, 1)), group(loc, 2), refYear)
		add(loc, d, ok)
	}
	for _, loc := range monthDayDate.FindAllStringSubmatchIndex(text, -1) {
		if modalMay(group(loc, 1), group(loc, 3)) {
			continue
		}
		d, ok := buildDate(group(loc, 3), monthFromName(group(loc, 1)), group(loc, 2), refYear)
		add(loc, d, ok)
	}
	for _, loc := range dayMonthDate.FindAllStringSubmatchIndex(text, -1) {
		if modalMay(group(loc, 2), group(loc, 3)) {
			continue
		}
		d, ok := buildDate(group(loc, 3), monthFromName(group(loc, 2)), group(loc, 1), refYear)
		add(loc, d, ok)
	}

	sort.SliceStable(found, func(i, j int) bool { return found[i].Start < found[j].Start })
	return found
}

// modalMay reports whether a "may" month match is more likely the verb:
// lower case and without a year
func modalMay(month, year string) bool {
	return month == "may" && year == ""
}

// ParseDate canonicalizes a free-form date string. It accepts everything
// FindDates recognizes plus RFC 3339 timestamps.
func ParseDate(s string, refYear int) (string, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", false
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC().Format(DateLayout), true
	}
	if m := FindDates(s, refYear); len(m) > 0 {
		return m[0].Canonical(), true
	}
	return "", false
}

// DaysBetween returns the absolute number of days between two canonical dates
func DaysBetween(a, b string) (int, bool) {
	ta, err := time.Parse(DateLayout, a)
	if err != nil {
		return 0, false
	}
	tb, err := time.Parse(DateLayout, b)
	if err != nil {
		return 0, false
	}
	d := int(tb.Sub(ta).Hours() / 24)
	if d < 0 {
		d = -d
	}
	return d, true
}

func monthFromName(name string) time.Month {
	name = strings.ToLower(name)
	if len(name) < 3 {
		return 0
	}
	return months[name[:3]]
}

func monthFromNumber(s string) time.Month {
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 || n > 12 {
		return 0
	}
	return time.Month(n)
}

func buildDate(year string, month time.Month, day string, refYear int) (time.Time, bool) {
	if month == 0 {
		return time.Time{}, false
	}
	y := refYear
	if year != "" {
		n, err := strconv.Atoi(year)
		if err != nil {
			return time.Time{}, false
		}
		y = n
	}
	d, err := strconv.Atoi(day)
	if err != nil || d < 1 || d > 31 {
		return time.Time{}, false
	}
	t := time.Date(y, month, d, 0, 0, 0, 0, time.UTC)
	// Reject rollovers such as February 30
	if t.Day() != d || t.Month() != month {
		return time.Time{}, false
	}
	return t, true
}
