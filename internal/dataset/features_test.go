package dataset

import (
	"fmt"
	"testing"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractBrowser(t *testing.T) {
	tests := []struct {
		ua   string
		want string
	}{
		{"Mozilla/5.0 (Windows NT 10.0) Chrome/120.0 Safari/537.36", "Chrome"}, // chrome wins over safari
		{"Mozilla/5.0 (X11; Linux) Gecko/20100101 Firefox/115.0", "Firefox"},
		{"Mozilla/5.0 (Macintosh) AppleWebKit/605.1.15 Version/16.1 Safari/605.1.15", "Safari"},
		{"Mozilla/5.0 (Windows NT 10.0) Edge/18.0", "Edge"},
		{"Opera/9.80 (Windows NT 6.0) Presto/2.12", "Opera"},
		{"curl/8.0.1", "Other"},
		{"", "Unknown"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ExtractBrowser(tt.ua), tt.ua)
	}
}

func TestExtractOS(t *testing.T) {
	tests := []struct {
		ua   string
		want string
	}{
		{"Mozilla/5.0 (Windows NT 10.0; Win64; x64)", "Windows"},
		{"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7)", "macOS"},
		{"Mozilla/5.0 (X11; Linux x86_64)", "Linux"},
		{"Mozilla/5.0 (Android 13; Mobile)", "Android"},
		{"Mozilla/5.0 (iPhone; CPU iPhone OS 14_7_1 like Mac OS X)", "macOS"}, // "mac" matches first
		{"SomeBot/1.0", "Other"},
		{"", "Unknown"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ExtractOS(tt.ua), tt.ua)
	}
}

func TestExtractDeviceType(t *testing.T) {
	assert.Equal(t, "Mobile", ExtractDeviceType("Mozilla/5.0 (iPhone)"))
	assert.Equal(t, "Mobile", ExtractDeviceType("Mozilla/5.0 (Android 13; Mobile)"))
	assert.Equal(t, "Tablet", ExtractDeviceType("Mozilla/5.0 (iPad; CPU OS 14_7)"))
	assert.Equal(t, "Desktop", ExtractDeviceType("Mozilla/5.0 (Windows NT 10.0)"))
	assert.Equal(t, "Unknown", ExtractDeviceType(""))
}

func TestExtractFeaturesTemporal(t *testing.T) {
	// 2024-01-13 is a Saturday
	records := []Record{
		{time.Date(2024, 1, 13, 3, 0, 0, 0, time.UTC), "u1", "1.2.3.4", "ua"},
		{time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC), "u1", "1.2.3.4", "ua"}, // Monday
	}
	features := ExtractFeatures(records)
	require.Len(t, features, 2)

	sat := features[0]
	assert.Equal(t, 3, sat.Hour)
	assert.Equal(t, 5, sat.DayOfWeek)
	assert.True(t, sat.Weekend)
	assert.False(t, sat.BusinessHours)

	mon := features[1]
	assert.Equal(t, 0, mon.DayOfWeek)
	assert.False(t, mon.Weekend)
	assert.True(t, mon.BusinessHours)
}

func TestUserStats(t *testing.T) {
	day1 := time.Date(2024, 1, 15, 9, 0, 0, 0, time.UTC)
	day3 := time.Date(2024, 1, 17, 15, 0, 0, 0, time.UTC)
	records := []Record{
		{day1, "u1", "1.2.3.4", "Chrome on Windows NT"},
		{day3, "u1", "5.6.7.8", "Firefox on Linux"},
		{day1, "u2", "9.9.9.9", "Safari Macintosh"},
	}
	features := ExtractFeatures(records)

	var u1, u2 FeatureRecord
	for _, f := range features {
		switch f.UserID {
		case "u1":
			u1 = f
		case "u2":
			u2 = f
		}
	}

	assert.Equal(t, 2, u1.LoginCount)
	assert.Equal(t, 2, u1.UniqueIPs)
	assert.Equal(t, 2, u1.UniqueBrowsers)
	assert.Equal(t, 2, u1.UniqueOS)
	assert.Equal(t, 3, u1.DaysActive)
	assert.InDelta(t, 2.0/3.0, u1.LoginFrequency, 1e-9)
	// hours 9 and 15, sample std = sqrt(18) ~ 4.2426
	assert.InDelta(t, 4.2426, u1.HourStd, 1e-3)

	// Single login: no defined spread, one-day span
	assert.Equal(t, 1, u2.LoginCount)
	assert.Equal(t, 0.0, u2.HourStd)
	assert.Equal(t, 1, u2.DaysActive)
	assert.Equal(t, 1.0, u2.LoginFrequency)
}

func TestExtractFeaturesIdempotent(t *testing.T) {
	records := SampleRecords()
	first := ExtractFeatures(records)
	second := ExtractFeatures(records)
	assert.Equal(t, first, second)

	for _, f := range first {
		assert.Equal(t, f.Browser, ExtractBrowser(f.UserAgent))
		assert.Equal(t, f.OS, ExtractOS(f.UserAgent))
		assert.Equal(t, f.DeviceType, ExtractDeviceType(f.UserAgent))
	}
}

func TestSummarize(t *testing.T) {
	features := ExtractFeatures(SampleRecords())
	s := Summarize(features)

	assert.Equal(t, 5, s.TotalRecords)
	assert.Equal(t, 3, s.UniqueUsers)
	assert.Equal(t, 4, s.UniqueIPs)
	assert.Equal(t, 1, s.DateRange.Days)
	assert.Equal(t, 2, s.OSes["Windows"])
}

func TestSummarizeSyntheticDataset(t *testing.T) {
	faker := gofakeit.New(7)
	base := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

	var records []Record
	for i := 0; i < 200; i++ {
		records = append(records, Record{
			Timestamp: base.Add(time.Duration(faker.IntRange(0, 14*24)) * time.Hour),
			UserID:    fmt.Sprintf("user%03d", faker.IntRange(1, 20)),
			IPAddress: faker.IPv4Address(),
			UserAgent: faker.UserAgent(),
		})
	}

	cleaned, _ := Clean(records)
	features := ExtractFeatures(cleaned)
	s := Summarize(features)

	assert.Equal(t, len(cleaned), s.TotalRecords)
	assert.LessOrEqual(t, s.UniqueUsers, 20)
	assert.GreaterOrEqual(t, s.DateRange.Days, 1)
	for _, f := range features {
		assert.GreaterOrEqual(t, f.LoginFrequency, 0.0)
		assert.GreaterOrEqual(t, f.DaysActive, 1)
	}
}
