package dataset

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTimestampFormats(t *testing.T) {
	tests := []struct {
		in   string
		want time.Time
	}{
		{"2024-01-15 09:30:45", time.Date(2024, 1, 15, 9, 30, 45, 0, time.UTC)},
		{"2024-01-15T09:30:45", time.Date(2024, 1, 15, 9, 30, 45, 0, time.UTC)},
		{"2024-01-15T09:30:45Z", time.Date(2024, 1, 15, 9, 30, 45, 0, time.UTC)},
		{"2024/01/15 09:30:45", time.Date(2024, 1, 15, 9, 30, 45, 0, time.UTC)},
		{"01/15/2024 09:30:45", time.Date(2024, 1, 15, 9, 30, 45, 0, time.UTC)},
		{"2024-01-15", time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseTimestamp(tt.in)
			require.NoError(t, err)
			assert.True(t, got.Equal(tt.want), "got %v want %v", got, tt.want)
		})
	}

	_, err := ParseTimestamp("yesterday at noon")
	assert.Error(t, err)
}

func TestDecodeCSV(t *testing.T) {
	csvData := `timestamp,user_id,ip_address,user_agent
2024-01-15 09:30:45,user001,192.168.1.100,Mozilla/5.0 (Windows NT 10.0)
2024-01-15 10:15:22,user002,10.0.0.45,Mozilla/5.0 (Macintosh)
`
	ds, err := DecodeCSV(strings.NewReader(csvData))
	require.NoError(t, err)
	require.Len(t, ds.Rows, 2)
	assert.Equal(t, "user001", ds.Rows[0].UserID)
	assert.Equal(t, "10.0.0.45", ds.Rows[1].IPAddress)
	assert.Empty(t, ds.Validate())
}

func TestValidateReportsAllMissingColumns(t *testing.T) {
	ds := &RawDataset{Columns: []string{"timestamp"}}
	problems := ds.Validate()
	require.Len(t, problems, 1)
	assert.Contains(t, problems[0], "user_id")
	assert.Contains(t, problems[0], "ip_address")
	assert.Contains(t, problems[0], "user_agent")
}

func TestValidateContent(t *testing.T) {
	ds := &RawDataset{
		Columns: RequiredColumns,
		Rows: []RawRecord{
			{Timestamp: "2024-01-15 09:30:45", UserID: "u1", IPAddress: "1.2.3.4", UserAgent: "ua"},
			{Timestamp: "not-a-date", UserID: "u2", IPAddress: "999.1.1.1", UserAgent: "ua"},
			{Timestamp: "2024-01-15 10:00:00", UserID: "", IPAddress: "10.0.0.1/24", UserAgent: ""},
		},
	}
	problems := ds.Validate()

	joined := strings.Join(problems, "\n")
	assert.Contains(t, joined, "Invalid timestamp format")
	assert.Contains(t, joined, "Found 2 invalid IP addresses")
	assert.Contains(t, joined, "user_id: 1")
	assert.Contains(t, joined, "user_agent: 1")
}

func TestValidateEmptyDataset(t *testing.T) {
	ds := &RawDataset{Columns: RequiredColumns}
	problems := ds.Validate()
	require.NotEmpty(t, problems)
	assert.Contains(t, problems[0], "empty")
}

func TestValidIPv4(t *testing.T) {
	valid := []string{"0.0.0.0", "255.255.255.255", "192.168.1.1", "8.8.8.8"}
	invalid := []string{"256.1.1.1", "1.2.3", "1.2.3.4.5", "::1", "1.2.3.4/24", "a.b.c.d"}
	for _, ip := range valid {
		assert.True(t, ValidIPv4(ip), ip)
	}
	for _, ip := range invalid {
		assert.False(t, ValidIPv4(ip), ip)
	}
}

func TestCleanSortsAndDeduplicates(t *testing.T) {
	t2 := time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC)
	t1 := time.Date(2024, 1, 15, 9, 0, 0, 0, time.UTC)
	records := []Record{
		{t2, "u1", "1.2.3.4", "ua"},
		{t1, "u2", "1.2.3.5", "ua"},
		{t2, "u1", "1.2.3.4", "ua"}, // exact duplicate
	}

	cleaned, removed := Clean(records)
	assert.Equal(t, 1, removed)
	require.Len(t, cleaned, 2)
	assert.Equal(t, "u2", cleaned[0].UserID)
	assert.Equal(t, "u1", cleaned[1].UserID)

	// Original slice untouched
	assert.Len(t, records, 3)
}

func TestCleanDeterministic(t *testing.T) {
	records := SampleRecords()
	a, _ := Clean(records)
	b, _ := Clean(records)
	assert.Equal(t, a, b)
}

func TestSampleCSVRoundTrip(t *testing.T) {
	ds, err := DecodeCSV(strings.NewReader(SampleCSV()))
	require.NoError(t, err)
	assert.Empty(t, ds.Validate())

	records, err := FromRaw(ds.Rows)
	require.NoError(t, err)
	assert.Equal(t, SampleRecords(), records)
}
