package calendar

import (
	"time"

	"github.com/dmcallister/volunteer-scheduler-api/pkg/models"
)

// MonthKey is the layout for year-month keys used throughout the schedule.
const MonthKey = "2006-01"

// DateKey is the layout for schedule dates.
const DateKey = "2006-01-02"

// Occurrence is one Sunday a service happens on.
type Occurrence struct {
	Date  time.Time           `json:"date"`
	Week  models.WeekPosition `json:"week"`
	Month string              `json:"month"` // "2006-01"
}

// AddMonths advances a date by whole calendar months, clamping to the last
// day of the destination month (Jan 31 + 1 month = Feb 28/29). Go's AddDate
// normalizes overflow instead, which would push a month-end report boundary
// into the following month.
func AddMonths(t time.Time, months int) time.Time {
	year, month, day := t.Date()
	firstOfTarget := time.Date(year, month+time.Month(months), 1, 0, 0, 0, 0, t.Location())
	lastDay := firstOfTarget.AddDate(0, 1, -1).Day()
	if day > lastDay {
		day = lastDay
	}
	return time.Date(firstOfTarget.Year(), firstOfTarget.Month(), day, 0, 0, 0, 0, t.Location())
}

// Sundays generates every Sunday from start through start + months
// (calendar month arithmetic, both bounds inclusive) in chronological
// order, classified by week-of-month. The result depends only on the
// inputs; calling it twice yields an identical sequence.
func Sundays(start time.Time, months int) []Occurrence {
	first := time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, start.Location())
	end := AddMonths(first, months)

	if wd := int(first.Weekday()); wd != int(time.Sunday) {
		first = first.AddDate(0, 0, (7-wd)%7)
	}

	var occurrences []Occurrence
	for d := first; !d.After(end); d = d.AddDate(0, 0, 7) {
		occurrences = append(occurrences, Occurrence{
			Date:  d,
			Week:  models.WeekOfMonth(d.Day()),
			Month: d.Format(MonthKey),
		})
	}
	return occurrences
}

// Months returns the distinct month keys covered by a generated sequence,
// in chronological order.
func Months(occurrences []Occurrence) []string {
	var months []string
	seen := make(map[string]bool)
	for _, occ := range occurrences {
		if !seen[occ.Month] {
			seen[occ.Month] = true
			months = append(months, occ.Month)
		}
	}
	return months
}

// MonthName renders a month key as a display name, e.g. "January 2024".
// Unparseable keys come back unchanged.
func MonthName(key string) string {
	t, err := time.Parse(MonthKey, key)
	if err != nil {
		return key
	}
	return t.Format("January 2006")
}
