package importer

import (
	"fmt"
	"strings"

	"phoenix/internal/core"
)

// CleanCurrency rewrites string values carrying one of the currency suffixes
// as numbers: "28,50 EUR" becomes 28.50. Values that still do not read as a
// plain decimal are kept as strings, with one warning per field.
func CleanCurrency(records []core.Record, suffixes []string) ([]core.Record, []core.Warning) {
	if len(suffixes) == 0 {
		return records, nil
	}

	var warnings []core.Warning
	warned := make(map[string]bool)

	out := make([]core.Record, len(records))
	for i, rec := range records {
		fields := rec.Fields()
		cleaned := make([]core.Member, len(fields))
		for j, m := range fields {
			cleaned[j] = m
			if m.Value.Kind() != core.KindString {
				continue
			}
			amount, matched := stripCurrency(m.Value.Literal(), suffixes)
			if !matched {
				continue
			}
			number, ok := normalizeDecimal(amount)
			if !ok {
				if !warned[m.Key] {
					warned[m.Key] = true
					warnings = append(warnings, core.Warning{
						Kind:    core.WarnValueCleanup,
						Field:   m.Key,
						Message: fmt.Sprintf("record %d: %q is not an amount; kept as text", i, m.Value.Literal()),
					})
				}
				continue
			}
			cleaned[j].Value = core.Number(number)
		}
		out[i] = core.NewRecord(cleaned...)
	}
	return out, warnings
}

// stripCurrency removes the first matching suffix, case-insensitively, and
// turns a decimal comma into a point.
func stripCurrency(s string, suffixes []string) (string, bool) {
	t := strings.TrimSpace(s)
	for _, suffix := range suffixes {
		suffix = strings.TrimSpace(suffix)
		if suffix == "" || len(t) < len(suffix) || !strings.EqualFold(t[len(t)-len(suffix):], suffix) {
			continue
		}
		amount := strings.TrimSpace(t[:len(t)-len(suffix)])
		amount = strings.TrimPrefix(amount, "+")
		return strings.ReplaceAll(amount, ",", "."), true
	}
	return "", false
}

// normalizeDecimal accepts an optional minus sign, digits and at most one
// decimal point with digits on both sides. Leading zeros are dropped so the
// result is also a valid JSON number.
func normalizeDecimal(s string) (string, bool) {
	sign := ""
	if rest, ok := strings.CutPrefix(s, "-"); ok {
		sign, s = "-", rest
	}
	intPart, frac, hasPoint := strings.Cut(s, ".")
	if !allDigits(intPart) || (hasPoint && !allDigits(frac)) {
		return "", false
	}
	intPart = strings.TrimLeft(intPart, "0")
	if intPart == "" {
		intPart = "0"
	}
	if hasPoint {
		return sign + intPart + "." + frac, true
	}
	return sign + intPart, true
}

func allDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
