package roster

import (
	"encoding/csv"
	"io"
	"strings"

	"github.com/dmcallister/volunteer-scheduler-api/pkg/models"
)

// Column aliases map the headers seen on real signup sheets to the four
// canonical fields. Headers are lowercased and trimmed before lookup.
var columnAliases = map[string]string{
	"name":                    "name",
	"full name":               "name",
	"service weeks":           "weeks",
	"service week available":  "weeks",
	"service times":           "times",
	"service times available": "times",
	"service times avaliable": "times", // common sheet typo
	"blackout dates":          "blackout",
	"black out dates":         "blackout",
}

// FromRaw normalizes raw signup rows into availability records. Rows with
// a blank name are dropped silently; blank availability fields yield empty
// sets. Roster order is preserved exactly: it is the priority order the
// assignment engine fills slots in.
func FromRaw(rows []models.RawVolunteer) []models.Volunteer {
	volunteers := make([]models.Volunteer, 0, len(rows))
	for _, row := range rows {
		name := strings.TrimSpace(row.Name)
		if name == "" {
			continue
		}
		volunteers = append(volunteers, models.Volunteer{
			Name:      name,
			Weeks:     ParseWeeks(row.ServiceWeeks),
			Times:     ParseTimes(row.ServiceTimes),
			Blackouts: ParseBlackouts(row.BlackoutDates),
		})
	}
	return volunteers
}

// ParseWeeks matches week-position tokens ("1stsunday".."5thsunday")
// anywhere in the cleaned text. The match is substring containment, not
// exact tokenization; that looseness is inherited from the signup sheets
// this grew up on and is left as-is.
func ParseWeeks(text string) map[models.WeekPosition]bool {
	cleaned := strings.ReplaceAll(strings.ToLower(text), " ", "")
	weeks := make(map[models.WeekPosition]bool)
	for _, pos := range models.WeekPositions {
		if strings.Contains(cleaned, pos.Token()) {
			weeks[pos] = true
		}
	}
	return weeks
}

// ParseTimes matches service-time tokens ("8am", "930am", "11am") in the
// cleaned text, with spaces and colons stripped so "9:30 AM" matches.
func ParseTimes(text string) map[models.ServiceTime]bool {
	cleaned := strings.ToLower(text)
	cleaned = strings.ReplaceAll(cleaned, " ", "")
	cleaned = strings.ReplaceAll(cleaned, ":", "")
	times := make(map[models.ServiceTime]bool)
	for _, st := range models.ServiceTimes {
		if strings.Contains(cleaned, st.Token()) {
			times[st] = true
		}
	}
	return times
}

// ParseBlackouts splits comma-separated date tokens. An empty value or the
// literal missing-value marker "nan" yields an empty set. Tokens are kept
// as trimmed strings and compared against "2006-01-02" schedule dates.
func ParseBlackouts(text string) map[string]bool {
	blackouts := make(map[string]bool)
	raw := strings.TrimSpace(text)
	if raw == "" || strings.EqualFold(raw, "nan") {
		return blackouts
	}
	for _, tok := range strings.Split(raw, ",") {
		if tok = strings.TrimSpace(tok); tok != "" {
			blackouts[tok] = true
		}
	}
	return blackouts
}

// LoadCSV reads signup rows from a CSV stream. The header row is
// normalized and aliased; columns missing from the file default to empty
// strings for every row rather than failing the load.
func LoadCSV(r io.Reader) ([]models.RawVolunteer, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		if err == io.EOF {
			return nil, nil
		}
		return nil, err
	}

	cols := make(map[string]int)
	for i, h := range header {
		if field, ok := columnAliases[strings.ToLower(strings.TrimSpace(h))]; ok {
			cols[field] = i
		}
	}

	field := func(record []string, name string) string {
		idx, ok := cols[name]
		if !ok || idx >= len(record) {
			return ""
		}
		return record[idx]
	}

	var rows []models.RawVolunteer
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			continue
		}
		rows = append(rows, models.RawVolunteer{
			Name:          field(record, "name"),
			ServiceWeeks:  field(record, "weeks"),
			ServiceTimes:  field(record, "times"),
			BlackoutDates: field(record, "blackout"),
		})
	}
	return rows, nil
}
