// Package anomaly implements the multi-method anomaly scoring engine:
// isolation-based outlier scoring, density-based outlier clustering and
// rule-based statistical checks, fused into a single risk score per record.
package anomaly

import "sort"

// UnknownCategory is the fallback bucket for values absent from an encoding
// table.
const UnknownCategory = "Unknown"

// EncodingTable maps categorical values to integer codes. Tables are built
// fresh per run and passed by value; unseen values encode to the Unknown
// bucket instead of mutating shared state.
type EncodingTable struct {
	codes map[string]int
}

// BuildEncodingTable assigns codes to the sorted distinct values, always
// including the Unknown bucket.
func BuildEncodingTable(values []string) EncodingTable {
	distinct := map[string]struct{}{UnknownCategory: {}}
	for _, v := range values {
		distinct[v] = struct{}{}
	}

	sorted := make([]string, 0, len(distinct))
	for v := range distinct {
		sorted = append(sorted, v)
	}
	sort.Strings(sorted)

	codes := make(map[string]int, len(sorted))
	for i, v := range sorted {
		codes[v] = i
	}
	return EncodingTable{codes: codes}
}

// Encode returns the code for value, falling back to the Unknown bucket.
func (t EncodingTable) Encode(value string) int {
	if code, ok := t.codes[value]; ok {
		return code
	}
	return t.codes[UnknownCategory]
}

// Size returns the number of known categories including Unknown.
func (t EncodingTable) Size() int {
	return len(t.codes)
}
