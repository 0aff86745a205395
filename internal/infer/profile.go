package infer

import (
	"math"
	"sort"
	"unicode/utf8"

	"phoenix/internal/core"
)

// FieldProfile aggregates every observation of one field across all records.
type FieldProfile struct {
	Name string

	// Kinds counts non-null observations per JSON kind.
	Kinds map[core.Kind]int

	Present int // records with a non-null value
	Nulls   int // records holding an explicit null
	Missing int // records without the field

	// MaxLength is the longest string value, in characters.
	MaxLength int

	AllIntegral  bool // every number fits int64
	AllInt32     bool // every number fits int32
	AllTimestamp bool // every string parses as an ISO-8601 timestamp

	// Distinct counts distinct non-null values by their key text.
	Distinct int
}

// Nullable reports whether any record lacks the field or holds null.
func (p *FieldProfile) Nullable() bool {
	return p.Nulls > 0 || p.Missing > 0
}

// Complex reports whether any value was an object or an array.
func (p *FieldProfile) Complex() bool {
	return p.Kinds[core.KindObject] > 0 || p.Kinds[core.KindArray] > 0
}

// KindsSeen returns the observed kinds in a stable order.
func (p *FieldProfile) KindsSeen() []core.Kind {
	kinds := make([]core.Kind, 0, len(p.Kinds))
	for k := range p.Kinds {
		kinds = append(kinds, k)
	}
	sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })
	return kinds
}

func (p *FieldProfile) only(kinds ...core.Kind) bool {
	n := 0
	for _, k := range kinds {
		n += p.Kinds[k]
	}
	return p.Present > 0 && n == p.Present
}

// Profile builds one FieldProfile per field name, in the order given.
func Profile(records []core.Record, fields []string) []*FieldProfile {
	profiles := make([]*FieldProfile, len(fields))
	for i, name := range fields {
		profiles[i] = profileField(records, name)
	}
	return profiles
}

func profileField(records []core.Record, name string) *FieldProfile {
	p := &FieldProfile{
		Name:         name,
		Kinds:        make(map[core.Kind]int),
		AllIntegral:  true,
		AllInt32:     true,
		AllTimestamp: true,
	}
	distinct := make(map[string]struct{})

	for _, rec := range records {
		v, ok := rec.Get(name)
		if !ok {
			p.Missing++
			continue
		}
		if v.IsNull() {
			p.Nulls++
			continue
		}

		p.Present++
		p.Kinds[v.Kind()]++
		distinct[v.KeyText()] = struct{}{}

		switch v.Kind() {
		case core.KindNumber:
			n, ok := v.Int64()
			if !ok {
				p.AllIntegral = false
				p.AllInt32 = false
			} else if n < math.MinInt32 || n > math.MaxInt32 {
				p.AllInt32 = false
			}
		case core.KindString:
			s := v.Literal()
			if l := utf8.RuneCountInString(s); l > p.MaxLength {
				p.MaxLength = l
			}
			if p.AllTimestamp {
				if _, ok := core.ParseTimestamp(s); !ok {
					p.AllTimestamp = false
				}
			}
		}
	}

	p.Distinct = len(distinct)
	return p
}
