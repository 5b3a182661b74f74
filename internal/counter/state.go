package counter

import (
	"encoding/json"
	"log"
)

// State is the persisted counter state, stored as counters.json on the
// sync branch. Both fields are monotonically non-decreasing across the
// branch's history; no value is ever issued twice.
type State struct {
	SpecNumber           uint64 `json:"spec_number"`
	StandaloneTaskNumber uint64 `json:"standalone_task_number"`
}

// DecodeState parses a counters.json blob. Nil data (absent file) and
// corrupt JSON both decode to the zero state; corruption is logged as a
// warning, never raised to the caller.
func DecodeState(data []byte, logger *log.Logger) State {
	if len(data) == 0 {
		return State{}
	}

	var s State
	if err := json.Unmarshal(data, &s); err != nil {
		if logger != nil {
			logger.Printf("WARNING: corrupt counters.json, treating as empty: %v", err)
		}
		return State{}
	}
	return s
}

// Encode serializes the state as the counters.json blob content.
func (s State) Encode() []byte {
	data, _ := json.MarshalIndent(s, "", "  ")
	return append(data, '\n')
}

// Merge returns the field-wise maximum of two states. Used when two
// branches of history are reconciled; taking the maximum preserves
// monotonicity and guarantees no issued value is reissued.
func (s State) Merge(other State) State {
	merged := s
	if other.SpecNumber > merged.SpecNumber {
		merged.SpecNumber = other.SpecNumber
	}
	if other.StandaloneTaskNumber > merged.StandaloneTaskNumber {
		merged.StandaloneTaskNumber = other.StandaloneTaskNumber
	}
	return merged
}
