package models

// VolunteerNeeded is the placeholder written into any slot the engine
// could not fill. It is ordinary output data, never an error.
const VolunteerNeeded = "Volunteer Needed"

// WeekPosition is the ordinal rank of a Sunday within its calendar month.
type WeekPosition int

const (
	WeekFirst WeekPosition = iota + 1
	WeekSecond
	WeekThird
	WeekFourth
	WeekFifth
)

var weekTokens = map[WeekPosition]string{
	WeekFirst:  "1stsunday",
	WeekSecond: "2ndsunday",
	WeekThird:  "3rdsunday",
	WeekFourth: "4thsunday",
	WeekFifth:  "5thsunday",
}

// WeekPositions lists every position in ordinal order.
var WeekPositions = []WeekPosition{WeekFirst, WeekSecond, WeekThird, WeekFourth, WeekFifth}

// WeekOfMonth classifies a day-of-month as a week position. Anything past
// the fifth week clamps to WeekFifth; a sixth Sunday cannot occur, so the
// clamp is purely defensive.
func WeekOfMonth(dayOfMonth int) WeekPosition {
	pos := ((dayOfMonth - 1) / 7) + 1
	if pos > 5 {
		pos = 5
	}
	return WeekPosition(pos)
}

// Token returns the normalized form matched against availability text,
// e.g. "1stsunday". It doubles as the display label in schedule rows.
func (w WeekPosition) Token() string {
	return weekTokens[w]
}

func (w WeekPosition) String() string {
	return weekTokens[w]
}

// ServiceTime is one of the three fixed Sunday service times.
type ServiceTime int

const (
	ServiceEarly ServiceTime = iota // 8am
	ServiceMid                      // 9:30am
	ServiceLate                     // 11am
)

// ServiceTimes is the fixed iteration order for filling slots. Earlier
// times in a month get first pick of shared monthly quota, so this order
// is part of the assignment contract.
var ServiceTimes = []ServiceTime{ServiceEarly, ServiceMid, ServiceLate}

var serviceTokens = map[ServiceTime]string{
	ServiceEarly: "8am",
	ServiceMid:   "930am",
	ServiceLate:  "11am",
}

var serviceDisplay = map[ServiceTime]string{
	ServiceEarly: "8 AM",
	ServiceMid:   "930 AM",
	ServiceLate:  "11 AM",
}

// Token returns the normalized form matched against availability text.
func (s ServiceTime) Token() string {
	return serviceTokens[s]
}

// Display returns the label used in schedule rows, e.g. "8 AM".
func (s ServiceTime) Display() string {
	return serviceDisplay[s]
}

func (s ServiceTime) String() string {
	return serviceTokens[s]
}

// Volunteer is a normalized availability record. Blank availability fields
// parse to empty sets, never to an error. Names are not deduplicated;
// duplicate names collapse into the same quota counters.
type Volunteer struct {
	Name      string                `json:"name"`
	Weeks     map[WeekPosition]bool `json:"weeks"`
	Times     map[ServiceTime]bool  `json:"times"`
	Blackouts map[string]bool       `json:"blackouts"` // "2006-01-02" date strings
}

// RawVolunteer is the ingestion wire shape: four free-text fields exactly
// as they arrive from a signup sheet row.
type RawVolunteer struct {
	Name          string `json:"name"`
	ServiceWeeks  string `json:"service_weeks"`
	ServiceTimes  string `json:"service_times"`
	BlackoutDates string `json:"blackout_dates"`
}

// AssignmentRecord is one filled (or unfilled) slot. Records are produced
// append-only and never mutated after creation.
type AssignmentRecord struct {
	Date        string `json:"date"` // "2006-01-02"
	Week        string `json:"week"`
	ServiceTime string `json:"service_time"`
	Slot        int    `json:"slot"` // 1-based
	Volunteer   string `json:"volunteer"`
}

// Unfilled reports whether the slot carries the sentinel.
func (r AssignmentRecord) Unfilled() bool {
	return r.Volunteer == VolunteerNeeded
}

// VolunteerSummary is one row of the volunteer-by-month count grid.
type VolunteerSummary struct {
	Volunteer string         `json:"volunteer"`
	Counts    map[string]int `json:"counts"` // month key -> assignments
}

// ComplianceEntry flags a volunteer who fell below the monthly minimum.
type ComplianceEntry struct {
	Volunteer string `json:"volunteer"`
	Month     string `json:"month"` // "2006-01"
}

// MonthGroup bundles the schedule rows of a single month so an exporter
// can emit one table (or sheet) per month without any further grouping.
type MonthGroup struct {
	Key         string             `json:"key"`  // "2006-01"
	Name        string             `json:"name"` // "January 2006"
	Assignments []AssignmentRecord `json:"assignments"`
}

// ScheduleRequest is the data structure for the scheduling endpoint.
type ScheduleRequest struct {
	Volunteers  []RawVolunteer `json:"volunteers"`
	StartDate   string         `json:"start_date"` // "2006-01-02", defaults to today
	RangeMonths int            `json:"range_months"`
}

// ScheduleResponse is the data structure for the scheduling result.
type ScheduleResponse struct {
	RunID         string             `json:"run_id"`
	StartDate     string             `json:"start_date"`
	RangeMonths   int                `json:"range_months"`
	Months        []string           `json:"months"`
	Assignments   []AssignmentRecord `json:"assignments"`
	ByMonth       []MonthGroup       `json:"by_month"`
	Summary       []VolunteerSummary `json:"summary"`
	Compliance    []ComplianceEntry  `json:"compliance"`
	UnfilledSlots int                `json:"unfilled_slots"`
}
