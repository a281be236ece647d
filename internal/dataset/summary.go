package dataset

import "time"

// Summary describes a cleaned dataset at a glance.
type Summary struct {
	TotalRecords int            `json:"total_records"`
	UniqueUsers  int            `json:"unique_users"`
	UniqueIPs    int            `json:"unique_ips"`
	DateRange    DateRange      `json:"date_range"`
	Browsers     map[string]int `json:"browsers,omitempty"`
	OSes         map[string]int `json:"operating_systems,omitempty"`
	DeviceTypes  map[string]int `json:"device_types,omitempty"`
}

// DateRange is the inclusive timestamp span of a dataset.
type DateRange struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
	Days  int       `json:"days"`
}

// Summarize computes dataset-level statistics over featured records.
func Summarize(features []FeatureRecord) Summary {
	s := Summary{
		TotalRecords: len(features),
		Browsers:     map[string]int{},
		OSes:         map[string]int{},
		DeviceTypes:  map[string]int{},
	}
	if len(features) == 0 {
		return s
	}

	users := map[string]struct{}{}
	ips := map[string]struct{}{}
	start, end := features[0].Timestamp, features[0].Timestamp
	for _, f := range features {
		users[f.UserID] = struct{}{}
		ips[f.IPAddress] = struct{}{}
		if f.Timestamp.Before(start) {
			start = f.Timestamp
		}
		if f.Timestamp.After(end) {
			end = f.Timestamp
		}
		s.Browsers[f.Browser]++
		s.OSes[f.OS]++
		s.DeviceTypes[f.DeviceType]++
	}

	s.UniqueUsers = len(users)
	s.UniqueIPs = len(ips)
	s.DateRange = DateRange{
		Start: start,
		End:   end,
		Days:  int(end.Sub(start).Hours()/24) + 1,
	}
	return s
}
