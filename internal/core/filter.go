package core

import (
	"sort"
	"strings"
)

// Filter narrows a transaction listing. Absent fields impose no constraint;
// supplied fields compose with logical AND.
type Filter struct {
	Type      string // exact match against the type name, case-insensitive
	Category  string // exact match, case-insensitive; rows without a category never match
	StartDate Date   // inclusive lower bound
	EndDate   Date   // inclusive upper bound
}

// Matches reports whether t satisfies every supplied predicate. A transaction
// without a date is rejected unconditionally, even by an empty filter, so
// dateless rows never leak into filtered output.
func (f Filter) Matches(t Transaction) bool {
	if t.Date.IsEmpty() {
		return false
	}
	if f.Type != "" && !strings.EqualFold(string(t.Type), f.Type) {
		return false
	}
	if f.Category != "" {
		if t.Category == "" || !strings.EqualFold(t.Category, f.Category) {
			return false
		}
	}
	if !f.StartDate.IsEmpty() && t.Date.Before(f.StartDate) {
		return false
	}
	if !f.EndDate.IsEmpty() && t.Date.After(f.EndDate) {
		return false
	}
	return true
}

// Apply filters ts and returns the matches ordered by date descending.
// The sort is stable, so transactions sharing a date keep the order the
// store returned them in (ascending id). The input slice is not modified.
func (f Filter) Apply(ts []Transaction) []Transaction {
	out := make([]Transaction, 0, len(ts))
	for _, t := range ts {
		if f.Matches(t) {
			out = append(out, t)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Date.After(out[j].Date)
	})
	return out
}
