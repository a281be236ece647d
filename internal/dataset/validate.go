package dataset

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
)

// Strict dotted-quad IPv4. No ranges, no IPv6.
var ipv4Pattern = regexp.MustCompile(
	`^(?:(?:25[0-5]|2[0-4][0-9]|[01]?[0-9][0-9]?)\.){3}(?:25[0-5]|2[0-4][0-9]|[01]?[0-9][0-9]?)$`)

// ValidIPv4 reports whether s is a syntactically valid dotted-quad IPv4 address.
func ValidIPv4(s string) bool {
	return ipv4Pattern.MatchString(s)
}

// Validate checks a raw dataset and returns every problem found as a
// human-readable message. It never stops at the first error: missing columns
// are reported together, malformed IPs as a count, nulls per column. An empty
// slice means the dataset is valid.
func (d *RawDataset) Validate() []string {
	var problems []string

	have := make(map[string]bool, len(d.Columns))
	for _, col := range d.Columns {
		have[col] = true
	}
	var missing []string
	for _, col := range RequiredColumns {
		if !have[col] {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		problems = append(problems,
			fmt.Sprintf("Missing required columns: %s", strings.Join(missing, ", ")))
		return problems
	}

	if len(d.Rows) == 0 {
		problems = append(problems, "Dataset is empty")
	}

	badTimestamps := 0
	for _, row := range d.Rows {
		if row.Timestamp == "" {
			continue // reported as a null below
		}
		if _, err := ParseTimestamp(row.Timestamp); err != nil {
			badTimestamps++
		}
	}
	if badTimestamps > 0 {
		problems = append(problems,
			"Invalid timestamp format. Use YYYY-MM-DD HH:MM:SS or similar")
	}

	invalidIPs := 0
	for _, row := range d.Rows {
		if row.IPAddress != "" && !ValidIPv4(row.IPAddress) {
			invalidIPs++
		}
	}
	if invalidIPs > 0 {
		problems = append(problems,
			fmt.Sprintf("Found %d invalid IP addresses", invalidIPs))
	}

	nulls := map[string]int{}
	for _, row := range d.Rows {
		if row.Timestamp == "" {
			nulls["timestamp"]++
		}
		if row.UserID == "" {
			nulls["user_id"]++
		}
		if row.IPAddress == "" {
			nulls["ip_address"]++
		}
		if row.UserAgent == "" {
			nulls["user_agent"]++
		}
	}
	if len(nulls) > 0 {
		cols := make([]string, 0, len(nulls))
		for col := range nulls {
			cols = append(cols, col)
		}
		sort.Strings(cols)
		parts := make([]string, 0, len(cols))
		for _, col := range cols {
			parts = append(parts, fmt.Sprintf("%s: %d", col, nulls[col]))
		}
		problems = append(problems,
			fmt.Sprintf("Missing values found: {%s}", strings.Join(parts, ", ")))
	}

	return problems
}

// Clean sorts records ascending by timestamp and removes exact duplicates,
// returning the cleaned copy and the number of duplicates removed. The input
// slice is not mutated. Ordering among equal timestamps is stable so repeated
// runs produce identical output.
func Clean(records []Record) ([]Record, int) {
	cleaned := make([]Record, len(records))
	copy(cleaned, records)

	sort.SliceStable(cleaned, func(i, j int) bool {
		return cleaned[i].Timestamp.Before(cleaned[j].Timestamp)
	})

	seen := make(map[Record]struct{}, len(cleaned))
	out := cleaned[:0]
	for _, r := range cleaned {
		if _, dup := seen[r]; dup {
			continue
		}
		seen[r] = struct{}{}
		out = append(out, r)
	}

	removed := len(cleaned) - len(out)
	return out, removed
}
