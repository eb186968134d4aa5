package scheduler

import (
	"github.com/dmcallister/volunteer-scheduler-api/pkg/calendar"
	"github.com/dmcallister/volunteer-scheduler-api/pkg/models"
)

// Options holds the scheduling knobs. All three are fixed policy in the
// current scope; they are parameters so tests can exercise the edges.
type Options struct {
	SlotsPerOccurrence int // volunteers needed per service
	MonthlyCap         int // max assignments per volunteer per month
	MinimumPerMonth    int // compliance floor
}

// DefaultOptions returns the production policy: two slots per service, at
// most two assignments per volunteer per month, at least one expected.
func DefaultOptions() Options {
	return Options{
		SlotsPerOccurrence: 2,
		MonthlyCap:         2,
		MinimumPerMonth:    1,
	}
}

// QuotaTracker counts assignments per (volunteer, month). It is owned by
// exactly one engine run and discarded afterward; concurrent runs each get
// their own tracker, so no locking is involved. Counts only ever go up.
type QuotaTracker struct {
	counts map[string]map[string]int
}

// NewQuotaTracker returns an empty tracker.
func NewQuotaTracker() *QuotaTracker {
	return &QuotaTracker{counts: make(map[string]map[string]int)}
}

// Increment raises the count for a volunteer in a month by one. The cap is
// the caller's business; the tracker just counts.
func (t *QuotaTracker) Increment(name, month string) {
	byMonth, ok := t.counts[name]
	if !ok {
		byMonth = make(map[string]int)
		t.counts[name] = byMonth
	}
	byMonth[month]++
}

// Count returns the current count for a volunteer in a month, zero for
// keys never incremented.
func (t *QuotaTracker) Count(name, month string) int {
	return t.counts[name][month]
}

// Engine assigns volunteers to service slots. It holds the roster in its
// original input order, which is the priority order: when two volunteers
// are both eligible, the one listed first wins the slot.
type Engine struct {
	Roster  []models.Volunteer
	Tracker *QuotaTracker
	Opts    Options
}

// NewEngine creates an engine with a fresh quota tracker.
func NewEngine(roster []models.Volunteer, opts Options) *Engine {
	return &Engine{
		Roster:  roster,
		Tracker: NewQuotaTracker(),
		Opts:    opts,
	}
}

// Assign fills the slots of one occurrence at one service time. Eligible
// volunteers are taken first-fit from the front of the roster; each
// assignment increments the tracker immediately, so later calls in the
// same run see the updated counts. Slots with nobody eligible get the
// sentinel; understaffing is never an error. Exactly SlotsPerOccurrence
// records come back, slot indices 1..N each once.
func (e *Engine) Assign(occ calendar.Occurrence, svcTime models.ServiceTime) []models.AssignmentRecord {
	dateStr := occ.Date.Format(calendar.DateKey)

	var eligible []string
	for _, vol := range e.Roster {
		if vol.Weeks[occ.Week] &&
			vol.Times[svcTime] &&
			!vol.Blackouts[dateStr] &&
			e.Tracker.Count(vol.Name, occ.Month) < e.Opts.MonthlyCap {
			eligible = append(eligible, vol.Name)
		}
	}
	if len(eligible) > e.Opts.SlotsPerOccurrence {
		eligible = eligible[:e.Opts.SlotsPerOccurrence]
	}

	records := make([]models.AssignmentRecord, 0, e.Opts.SlotsPerOccurrence)
	for slot := 1; slot <= e.Opts.SlotsPerOccurrence; slot++ {
		name := models.VolunteerNeeded
		if len(eligible) > 0 {
			name = eligible[0]
			eligible = eligible[1:]
			e.Tracker.Increment(name, occ.Month)
		}
		records = append(records, models.AssignmentRecord{
			Date:        dateStr,
			Week:        occ.Week.Token(),
			ServiceTime: svcTime.Display(),
			Slot:        slot,
			Volunteer:   name,
		})
	}
	return records
}

// Run walks the whole horizon: every occurrence in chronological order,
// every service time in the fixed order, slot 1 before slot 2. This
// nesting is a contract, not an implementation detail: it decides which
// services get first pick of a volunteer's shared monthly quota.
func (e *Engine) Run(occurrences []calendar.Occurrence) []models.AssignmentRecord {
	var schedule []models.AssignmentRecord
	for _, occ := range occurrences {
		for _, svcTime := range models.ServiceTimes {
			schedule = append(schedule, e.Assign(occ, svcTime)...)
		}
	}
	return schedule
}

// Summarize builds the volunteer-by-month count grid and flags every
// (volunteer, month) pair under the monthly minimum. Every roster
// volunteer appears for every month, zero-assignment months included.
// Output order is roster order, then chronological months.
func (e *Engine) Summarize(months []string) ([]models.VolunteerSummary, []models.ComplianceEntry) {
	summaries := make([]models.VolunteerSummary, 0, len(e.Roster))
	var flagged []models.ComplianceEntry

	for _, vol := range e.Roster {
		counts := make(map[string]int, len(months))
		for _, month := range months {
			n := e.Tracker.Count(vol.Name, month)
			counts[month] = n
			if n < e.Opts.MinimumPerMonth {
				flagged = append(flagged, models.ComplianceEntry{
					Volunteer: vol.Name,
					Month:     month,
				})
			}
		}
		summaries = append(summaries, models.VolunteerSummary{
			Volunteer: vol.Name,
			Counts:    counts,
		})
	}
	return summaries, flagged
}

// GroupByMonth splits a schedule into per-month groups, chronological,
// preserving record order within each month. Export-friendly: one group
// per sheet or table.
func GroupByMonth(records []models.AssignmentRecord) []models.MonthGroup {
	var groups []models.MonthGroup
	index := make(map[string]int)
	for _, rec := range records {
		key := rec.Date
		if len(key) >= 7 {
			key = key[:7]
		}
		i, ok := index[key]
		if !ok {
			i = len(groups)
			index[key] = i
			groups = append(groups, models.MonthGroup{
				Key:  key,
				Name: calendar.MonthName(key),
			})
		}
		groups[i].Assignments = append(groups[i].Assignments, rec)
	}
	return groups
}

// CountUnfilled reports how many slots carry the sentinel.
func CountUnfilled(records []models.AssignmentRecord) int {
	n := 0
	for _, rec := range records {
		if rec.Unfilled() {
			n++
		}
	}
	return n
}
