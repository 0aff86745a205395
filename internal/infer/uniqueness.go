package infer

import "strings"

// preferredKeyNames are field names that usually identify a product record.
var preferredKeyNames = []string{"sku", "id", "url"}

// Uniqueness describes how well a field identifies records.
type Uniqueness struct {
	Field    string  `json:"field"`
	Present  int     `json:"present"`
	Distinct int     `json:"distinct"`
	Percent  float64 `json:"percent"`
	Complex  bool    `json:"complex"`
	// Candidate is true when every record has a distinct, non-null scalar value.
	Candidate bool `json:"candidate"`
}

// UniquenessReport returns one entry per profile, in profile order.
// total is the number of records the profiles were built from.
func UniquenessReport(profiles []*FieldProfile, total int) []Uniqueness {
	out := make([]Uniqueness, 0, len(profiles))
	for _, p := range profiles {
		u := Uniqueness{
			Field:    p.Name,
			Present:  p.Present,
			Distinct: p.Distinct,
			Complex:  p.Complex(),
		}
		if p.Present > 0 {
			u.Percent = float64(p.Distinct) / float64(p.Present) * 100
		}
		u.Candidate = !u.Complex && total > 0 && p.Present == total && p.Distinct == total
		out = append(out, u)
	}
	return out
}

// SuggestPrimaryKey picks a primary key candidate. Fields named sku, id or
// url win in that order; otherwise the first candidate in field order is
// returned. It returns "" when no field qualifies.
func SuggestPrimaryKey(profiles []*FieldProfile, total int) string {
	report := UniquenessReport(profiles, total)

	for _, preferred := range preferredKeyNames {
		for _, u := range report {
			if u.Candidate && strings.EqualFold(u.Field, preferred) {
				return u.Field
			}
		}
	}
	for _, u := range report {
		if u.Candidate {
			return u.Field
		}
	}
	return ""
}
