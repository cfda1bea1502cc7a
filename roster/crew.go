package roster

import (
	"sort"

	"github.com/warp/roster-engine/generic"
)

// =============================================================================
// CREW COMPLETENESS
// =============================================================================

type CrewStatus string

const (
	CrewGreen  CrewStatus = "green"
	CrewYellow CrewStatus = "yellow"
	CrewRed    CrewStatus = "red"
)

// CrewResult explains a status.
type CrewResult struct {
	Date       generic.Date `json:"date"`
	DayType    DayType      `json:"day_type"`
	Status     CrewStatus   `json:"status"`
	Expected   []string     `json:"expected"`
	Missing    []string     `json:"missing,omitempty"`
	Duplicates []string     `json:"duplicates,omitempty"`
}

// HasDuplicateCriticalCode reports whether any critical code is planned twice.
func (r CrewResult) HasDuplicateCriticalCode() bool { return len(r.Duplicates) > 0 }

// CrewCompleteness compares the critical codes expected on d with the codes
// planned on d. rows may contain other dates; they are ignored.
func CrewCompleteness(d generic.Date, book *CodeBook, rows []PlanningRow) CrewResult {
	dt := book.Calendar().DayType(d)
	expected := book.CriticalCodes(dt)
	res := CrewResult{Date: d, DayType: dt, Status: CrewGreen, Expected: expected}

	want := make(map[string]bool, len(expected))
	for _, c := range expected {
		want[c] = true
	}
	counts := make(map[string]int)
	for _, r := range rows {
		if r.Date.Equal(d) && want[r.Code] {
			counts[r.Code]++
		}
	}
	for _, c := range expected {
		switch n := counts[c]; {
		case n == 0:
			res.Missing = append(res.Missing, c)
		case n > 1:
			res.Duplicates = append(res.Duplicates, c)
		}
	}
	sort.Strings(res.Missing)
	sort.Strings(res.Duplicates)

	switch {
	case len(res.Missing) > 0:
		res.Status = CrewRed
	case len(res.Duplicates) > 0:
		res.Status = CrewYellow
	}
	return res
}
