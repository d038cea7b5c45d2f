package model

import "time"

// ScreenKind identifies which screen owns a ScreenState.
type ScreenKind string

const (
	ScreenList   ScreenKind = "list"
	ScreenDetail ScreenKind = "detail"
)

// ScreenState is the data one mounted screen displays.
type ScreenState struct {
	ScreenID    string                   `json:"screenId"`
	Kind        ScreenKind               `json:"kind"`
	TickCount   int                      `json:"tickCount"`
	Snapshots   map[string]PriceSnapshot `json:"snapshots"`
	Loading     bool                     `json:"loading"`
	LastError   string                   `json:"lastError,omitempty"`
	Selected    string                   `json:"selected,omitempty"`
	LastUpdated time.Time                `json:"lastUpdated"`
	Interval    time.Duration            `json:"refreshInterval"`
}

// Clone returns a deep copy so callers never share the snapshot map.
func (s ScreenState) Clone() ScreenState {
	out := s
	out.Snapshots = make(map[string]PriceSnapshot, len(s.Snapshots))
	for k, v := range s.Snapshots {
		out.Snapshots[k] = v
	}
	return out
}
