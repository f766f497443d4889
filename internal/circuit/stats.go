package circuit

import "time"

// MarshalText renders states as their string form in JSON payloads.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText parses the string form back via ParseState.
func (s *State) UnmarshalText(text []byte) error {
	*s = ParseState(string(text))
	return nil
}

// ConfigView is the serializable subset of Config reported by Stats.
type ConfigView struct {
	FailureThresholdPct float64 `json:"failure_threshold_pct"`
	SuccessThreshold    int     `json:"success_threshold"`
	OpenTimeoutMs       int64   `json:"open_timeout_ms"`
	WindowSize          int     `json:"window_size"`
	VolumeThreshold     int     `json:"volume_threshold"`
	SingleProbe         bool    `json:"single_probe"`
	HasFallback         bool    `json:"has_fallback"`
}

func (c Config) view() ConfigView {
	return ConfigView{
		FailureThresholdPct: c.FailureThresholdPct,
		SuccessThreshold:    c.SuccessThreshold,
		OpenTimeoutMs:       c.OpenTimeout.Milliseconds(),
		WindowSize:          c.WindowSize,
		VolumeThreshold:     c.VolumeThreshold,
		SingleProbe:         c.SingleProbe,
		HasFallback:         c.Fallback != nil,
	}
}

// Stats is a live, side-effect-free snapshot of one breaker. Failures and
// Successes are the half-open trial counters; Total and FailureRate come
// from the sliding window.
type Stats struct {
	Name        string     `json:"name"`
	State       State      `json:"state"`
	FailureRate float64    `json:"failure_rate"`
	Failures    int64      `json:"failures"`
	Successes   int64      `json:"successes"`
	Total       int        `json:"total"`
	OpenedAt    *time.Time `json:"opened_at,omitempty"`
	Config      ConfigView `json:"config"`
}
