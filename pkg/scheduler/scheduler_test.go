package scheduler

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmcallister/volunteer-scheduler-api/pkg/calendar"
	"github.com/dmcallister/volunteer-scheduler-api/pkg/models"
)

func vol(name string, weeks []models.WeekPosition, times []models.ServiceTime, blackouts ...string) models.Volunteer {
	v := models.Volunteer{
		Name:      name,
		Weeks:     make(map[models.WeekPosition]bool),
		Times:     make(map[models.ServiceTime]bool),
		Blackouts: make(map[string]bool),
	}
	for _, w := range weeks {
		v.Weeks[w] = true
	}
	for _, st := range times {
		v.Times[st] = true
	}
	for _, d := range blackouts {
		v.Blackouts[d] = true
	}
	return v
}

func allWeeks() []models.WeekPosition { return models.WeekPositions }

func occurrenceOn(y int, m time.Month, d int) calendar.Occurrence {
	date := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return calendar.Occurrence{
		Date:  date,
		Week:  models.WeekOfMonth(d),
		Month: date.Format(calendar.MonthKey),
	}
}

func TestAssignPrefersEarlierRosterEntries(t *testing.T) {
	roster := []models.Volunteer{
		vol("Carol", allWeeks(), models.ServiceTimes),
		vol("Alice", allWeeks(), models.ServiceTimes),
		vol("Bob", allWeeks(), models.ServiceTimes),
	}
	e := NewEngine(roster, DefaultOptions())

	records := e.Assign(occurrenceOn(2024, time.January, 7), models.ServiceEarly)
	require.Len(t, records, 2)
	assert.Equal(t, "Carol", records[0].Volunteer)
	assert.Equal(t, "Alice", records[1].Volunteer)
}

func TestAssignSentinelFillsRemainingSlots(t *testing.T) {
	roster := []models.Volunteer{
		vol("Alice", allWeeks(), []models.ServiceTime{models.ServiceEarly}),
	}
	e := NewEngine(roster, DefaultOptions())

	records := e.Assign(occurrenceOn(2024, time.January, 7), models.ServiceEarly)
	require.Len(t, records, 2)
	assert.Equal(t, "Alice", records[0].Volunteer)
	assert.Equal(t, models.VolunteerNeeded, records[1].Volunteer)

	// Slot indices 1..N are each present exactly once.
	assert.Equal(t, 1, records[0].Slot)
	assert.Equal(t, 2, records[1].Slot)
}

func TestAssignNobodyEligible(t *testing.T) {
	roster := []models.Volunteer{
		vol("Alice", []models.WeekPosition{models.WeekSecond}, models.ServiceTimes),
	}
	e := NewEngine(roster, DefaultOptions())

	records := e.Assign(occurrenceOn(2024, time.January, 7), models.ServiceEarly)
	require.Len(t, records, 2)
	for _, rec := range records {
		assert.True(t, rec.Unfilled())
	}
}

func TestBlackoutExcludesVolunteerOnThatDateOnly(t *testing.T) {
	roster := []models.Volunteer{
		vol("Alice", allWeeks(), models.ServiceTimes, "2024-01-07"),
	}
	e := NewEngine(roster, DefaultOptions())
	schedule := e.Run(calendar.Sundays(time.Date(2024, time.January, 7, 0, 0, 0, 0, time.UTC), 1))

	for _, rec := range schedule {
		if rec.Date == "2024-01-07" {
			assert.NotEqual(t, "Alice", rec.Volunteer)
		}
	}

	assigned := false
	for _, rec := range schedule {
		if rec.Volunteer == "Alice" {
			assigned = true
			assert.NotEqual(t, "2024-01-07", rec.Date)
		}
	}
	assert.True(t, assigned, "Alice should still serve on non-blackout dates")
}

func TestMonthlyCapNeverExceeded(t *testing.T) {
	roster := []models.Volunteer{
		vol("Alice", allWeeks(), models.ServiceTimes),
		vol("Bob", allWeeks(), models.ServiceTimes),
		vol("Carol", allWeeks(), models.ServiceTimes),
	}
	opts := DefaultOptions()
	e := NewEngine(roster, opts)

	occurrences := calendar.Sundays(time.Date(2024, time.January, 7, 0, 0, 0, 0, time.UTC), 3)
	e.Run(occurrences)

	for _, v := range roster {
		for _, month := range calendar.Months(occurrences) {
			assert.LessOrEqual(t, e.Tracker.Count(v.Name, month), opts.MonthlyCap,
				"%s exceeded the cap in %s", v.Name, month)
		}
	}
}

func TestCapSharedAcrossServiceTimes(t *testing.T) {
	// One volunteer, every slot open: the cap of 2 is exhausted by the
	// first occurrence's first two service times for the whole month.
	roster := []models.Volunteer{
		vol("Alice", allWeeks(), models.ServiceTimes),
	}
	e := NewEngine(roster, DefaultOptions())
	schedule := e.Run(calendar.Sundays(time.Date(2024, time.January, 7, 0, 0, 0, 0, time.UTC), 1))

	var filled []models.AssignmentRecord
	for _, rec := range schedule {
		if !rec.Unfilled() {
			filled = append(filled, rec)
		}
	}

	// Two January slots plus two February slots (Feb 4 is in range).
	require.Len(t, filled, 4)
	assert.Equal(t, "2024-01-07", filled[0].Date)
	assert.Equal(t, "8 AM", filled[0].ServiceTime)
	assert.Equal(t, "2024-01-07", filled[1].Date)
	assert.Equal(t, "930 AM", filled[1].ServiceTime)
	assert.Equal(t, "2024-02-04", filled[2].Date)
	assert.Equal(t, "2024-02-04", filled[3].Date)
}

func TestRunIterationOrder(t *testing.T) {
	e := NewEngine(nil, DefaultOptions())
	schedule := e.Run(calendar.Sundays(time.Date(2024, time.January, 7, 0, 0, 0, 0, time.UTC), 1))

	// 5 Sundays x 3 service times x 2 slots.
	require.Len(t, schedule, 30)

	// Within one date: service times in fixed order, slot 1 before slot 2.
	first := schedule[:6]
	wantTimes := []string{"8 AM", "8 AM", "930 AM", "930 AM", "11 AM", "11 AM"}
	for i, rec := range first {
		assert.Equal(t, "2024-01-07", rec.Date)
		assert.Equal(t, wantTimes[i], rec.ServiceTime)
		assert.Equal(t, i%2+1, rec.Slot)
	}

	// Dates never move backward.
	for i := 1; i < len(schedule); i++ {
		assert.GreaterOrEqual(t, schedule[i].Date, schedule[i-1].Date)
	}
}

func TestSummarizeIncludesZeroMonths(t *testing.T) {
	roster := []models.Volunteer{
		vol("Alice", allWeeks(), models.ServiceTimes),
		vol("Idle", nil, nil), // never eligible
	}
	e := NewEngine(roster, DefaultOptions())

	occurrences := calendar.Sundays(time.Date(2024, time.January, 7, 0, 0, 0, 0, time.UTC), 1)
	e.Run(occurrences)
	months := calendar.Months(occurrences)

	summary, flagged := e.Summarize(months)

	require.Len(t, summary, 2)
	assert.Equal(t, "Alice", summary[0].Volunteer)
	assert.Equal(t, "Idle", summary[1].Volunteer)
	for _, row := range summary {
		for _, month := range months {
			_, ok := row.Counts[month]
			assert.True(t, ok, "month %s missing for %s", month, row.Volunteer)
		}
	}

	// Idle is flagged for every month, grouped by volunteer then month.
	require.Len(t, flagged, 2)
	assert.Equal(t, models.ComplianceEntry{Volunteer: "Idle", Month: "2024-01"}, flagged[0])
	assert.Equal(t, models.ComplianceEntry{Volunteer: "Idle", Month: "2024-02"}, flagged[1])
}

func TestQuotaTrackerDefaultsToZero(t *testing.T) {
	tr := NewQuotaTracker()
	assert.Equal(t, 0, tr.Count("nobody", "2024-01"))

	tr.Increment("Alice", "2024-01")
	tr.Increment("Alice", "2024-01")
	assert.Equal(t, 2, tr.Count("Alice", "2024-01"))
	assert.Equal(t, 0, tr.Count("Alice", "2024-02"))
}

func TestEndToEndScenario(t *testing.T) {
	// Alice: first and third Sundays, early service, no blackouts.
	// Bob: first Sundays, early service, blacked out on Jan 7.
	roster := []models.Volunteer{
		vol("Alice", []models.WeekPosition{models.WeekFirst, models.WeekThird}, []models.ServiceTime{models.ServiceEarly}),
		vol("Bob", []models.WeekPosition{models.WeekFirst}, []models.ServiceTime{models.ServiceEarly}, "2024-01-07"),
	}
	e := NewEngine(roster, DefaultOptions())

	records := e.Assign(occurrenceOn(2024, time.January, 7), models.ServiceEarly)
	require.Len(t, records, 2)
	assert.Equal(t, "Alice", records[0].Volunteer)
	assert.Equal(t, models.VolunteerNeeded, records[1].Volunteer)
	assert.Equal(t, 1, e.Tracker.Count("Alice", "2024-01"))
	assert.Equal(t, 0, e.Tracker.Count("Bob", "2024-01"))
}

func TestGroupByMonth(t *testing.T) {
	e := NewEngine([]models.Volunteer{vol("Alice", allWeeks(), models.ServiceTimes)}, DefaultOptions())
	schedule := e.Run(calendar.Sundays(time.Date(2024, time.January, 7, 0, 0, 0, 0, time.UTC), 1))

	groups := GroupByMonth(schedule)
	require.Len(t, groups, 2)
	assert.Equal(t, "2024-01", groups[0].Key)
	assert.Equal(t, "January 2024", groups[0].Name)
	assert.Equal(t, "2024-02", groups[1].Key)
	assert.Equal(t, "February 2024", groups[1].Name)

	total := 0
	for _, g := range groups {
		total += len(g.Assignments)
	}
	assert.Equal(t, len(schedule), total)
}

func TestCountUnfilled(t *testing.T) {
	e := NewEngine(nil, DefaultOptions())
	schedule := e.Run(calendar.Sundays(time.Date(2024, time.January, 7, 0, 0, 0, 0, time.UTC), 1))
	assert.Equal(t, len(schedule), CountUnfilled(schedule))
}
