// Package dataset handles login record ingestion, validation, cleaning and
// feature engineering for the anomaly analysis pipeline.
package dataset

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"
	"time"
)

// Required input columns, in template order.
var RequiredColumns = []string{"timestamp", "user_id", "ip_address", "user_agent"}

// RawRecord is a login record as ingested, before type validation.
// Timestamp stays a string until Validate has confirmed it parses.
type RawRecord struct {
	Timestamp string `json:"timestamp"`
	UserID    string `json:"user_id"`
	IPAddress string `json:"ip_address"`
	UserAgent string `json:"user_agent"`
}

// Record is a validated login record with a normalized timestamp.
type Record struct {
	Timestamp time.Time `json:"timestamp"`
	UserID    string    `json:"user_id"`
	IPAddress string    `json:"ip_address"`
	UserAgent string    `json:"user_agent"`
}

// RawDataset holds ingested rows plus the header actually seen, so that
// validation can report every missing column at once.
type RawDataset struct {
	Columns []string
	Rows    []RawRecord
}

// Accepted timestamp layouts. ISO 8601 first, then the template format,
// then slash-delimited variants.
var timestampLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
	"2006/01/02 15:04:05",
	"2006/01/02",
	"01/02/2006 15:04:05",
	"01/02/2006",
}

// ParseTimestamp normalizes a timestamp string to UTC, trying each accepted
// layout in order.
func ParseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp format: %q", s)
}

// DecodeCSV reads a login dataset from CSV. The header row is required;
// column order is free. Unknown columns are ignored.
func DecodeCSV(r io.Reader) (*RawDataset, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err == io.EOF {
		return &RawDataset{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV header: %w", err)
	}

	index := make(map[string]int, len(header))
	for i, col := range header {
		index[strings.TrimSpace(strings.ToLower(col))] = i
	}

	ds := &RawDataset{}
	for col := range index {
		ds.Columns = append(ds.Columns, col)
	}

	field := func(row []string, col string) string {
		i, ok := index[col]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read CSV row: %w", err)
		}
		ds.Rows = append(ds.Rows, RawRecord{
			Timestamp: field(row, "timestamp"),
			UserID:    field(row, "user_id"),
			IPAddress: field(row, "ip_address"),
			UserAgent: field(row, "user_agent"),
		})
	}

	return ds, nil
}

// FromRaw converts raw rows into typed records. Callers must run Validate
// first; an unparsable timestamp here is returned as an error.
func FromRaw(rows []RawRecord) ([]Record, error) {
	records := make([]Record, 0, len(rows))
	for _, row := range rows {
		ts, err := ParseTimestamp(row.Timestamp)
		if err != nil {
			return nil, err
		}
		records = append(records, Record{
			Timestamp: ts,
			UserID:    row.UserID,
			IPAddress: row.IPAddress,
			UserAgent: row.UserAgent,
		})
	}
	return records, nil
}

// SampleRecords returns the shipped 5-row template dataset: three distinct
// users, IPs spanning private and public ranges.
func SampleRecords() []Record {
	mustParse := func(s string) time.Time {
		t, _ := ParseTimestamp(s)
		return t
	}
	return []Record{
		{mustParse("2024-01-15 09:30:45"), "user001", "192.168.1.100",
			"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36"},
		{mustParse("2024-01-15 10:15:22"), "user002", "10.0.0.45",
			"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36"},
		{mustParse("2024-01-15 11:45:10"), "user001", "203.0.113.195",
			"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36"},
		{mustParse("2024-01-15 14:20:33"), "user003", "198.51.100.78",
			"Mozilla/5.0 (iPhone; CPU iPhone OS 14_7_1 like Mac OS X) AppleWebKit/605.1.15"},
		{mustParse("2024-01-15 16:55:17"), "user002", "192.168.1.100",
			"Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:91.0) Gecko/20100101"},
	}
}

// SampleCSV renders the template dataset as CSV for download.
func SampleCSV() string {
	var b strings.Builder
	w := csv.NewWriter(&b)
	w.Write(RequiredColumns)
	for _, r := range SampleRecords() {
		w.Write([]string{
			r.Timestamp.Format("2006-01-02 15:04:05"),
			r.UserID,
			r.IPAddress,
			r.UserAgent,
		})
	}
	w.Flush()
	return b.String()
}
