package corpus

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// DateLayout is the short date format used in message tables and by callers.
const DateLayout = "02/01/06"

var (
	minDate = time.Date(1, time.January, 1, 0, 0, 0, 0, time.UTC)
	maxDate = time.Date(9999, time.December, 31, 0, 0, 0, 0, time.UTC)
)

// DateRange is an inclusive range of calendar dates.
type DateRange struct {
	Start time.Time
	End   time.Time
}

// OpenRange matches every dated record.
func OpenRange() DateRange {
	return DateRange{Start: minDate, End: maxDate}
}

// Contains reports whether the calendar date of t lies within the range.
func (r DateRange) Contains(t time.Time) bool {
	d := dateOf(t)
	return !d.Before(dateOf(r.Start)) && !d.After(dateOf(r.End))
}

func (r DateRange) String() string {
	return fmt.Sprintf("%s..%s", r.Start.Format("2006-01-02"), r.End.Format("2006-01-02"))
}

// ParseDate parses dd/mm/yyyy or dd/mm/yy. Two-digit years 69-99 map to the
// 1900s and 00-68 to the 2000s. When the day does not exist in the given
// month the last day of that month is used, so "31/02/23" is 2023-02-28.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range []string{"02/01/2006", DateLayout} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}

	parts := strings.Split(s, "/")
	if len(parts) != 3 {
		return time.Time{}, fmt.Errorf("unparseable date %q", s)
	}

	day, errD := strconv.Atoi(parts[0])
	month, errM := strconv.Atoi(parts[1])
	year, errY := strconv.Atoi(parts[2])
	if errD != nil || errM != nil || errY != nil || year < 0 {
		return time.Time{}, fmt.Errorf("unparseable date %q", s)
	}
	if month < 1 || month > 12 {
		return time.Time{}, fmt.Errorf("invalid month in date %q", s)
	}
	if len(parts[2]) <= 2 {
		if year >= 69 {
			year += 1900
		} else {
			year += 2000
		}
	}

	last := daysIn(time.Month(month), year)
	if day < 1 || day > last {
		day = last
	}

	return time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC), nil
}

// ParseDateRange builds an inclusive range from two optional bounds. An empty
// bound is open. Errors wrap ErrInvalidDateRange.
func ParseDateRange(start, end string) (DateRange, error) {
	r := OpenRange()

	if strings.TrimSpace(start) != "" {
		t, err := ParseDate(start)
		if err != nil {
			return DateRange{}, fmt.Errorf("%w: start: %w", ErrInvalidDateRange, err)
		}
		r.Start = t
	}
	if strings.TrimSpace(end) != "" {
		t, err := ParseDate(end)
		if err != nil {
			return DateRange{}, fmt.Errorf("%w: end: %w", ErrInvalidDateRange, err)
		}
		r.End = t
	}

	if dateOf(r.Start).After(dateOf(r.End)) {
		return DateRange{}, fmt.Errorf("%w: start %s is after end %s", ErrInvalidDateRange,
			r.Start.Format(DateLayout), r.End.Format(DateLayout))
	}

	return r, nil
}

// FilterByDate returns the records whose date lies within r, preserving
// order. Records without a date are dropped.
func FilterByDate(records []MessageRecord, r DateRange) []MessageRecord {
	out := make([]MessageRecord, 0, len(records))
	for _, rec := range records {
		if rec.HasTimestamp() && r.Contains(rec.Timestamp) {
			out = append(out, rec)
		}
	}
	return out
}

// FilterBySender returns the records sent by senderID, preserving order.
func FilterBySender(records []MessageRecord, senderID string) []MessageRecord {
	out := make([]MessageRecord, 0)
	for _, rec := range records {
		if rec.SenderID == senderID {
			out = append(out, rec)
		}
	}
	return out
}

// Sender is a distinct group member seen in a table.
type Sender struct {
	ID       string
	Name     string
	Messages int
}

// Senders lists the distinct senders of records in first-seen order. The
// name is the first non-empty name seen for the id.
func Senders(records []MessageRecord) []Sender {
	index := make(map[string]int)
	var out []Sender
	for _, rec := range records {
		if rec.SenderID == "" {
			continue
		}
		i, ok := index[rec.SenderID]
		if !ok {
			index[rec.SenderID] = len(out)
			out = append(out, Sender{ID: rec.SenderID, Name: rec.SenderName, Messages: 1})
			continue
		}
		out[i].Messages++
		if out[i].Name == "" {
			out[i].Name = rec.SenderName
		}
	}
	return out
}

func dateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func daysIn(m time.Month, year int) int {
	return time.Date(year, m+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
