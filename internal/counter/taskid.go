package counter

import (
	"fmt"
	"strconv"
	"strings"
)

// TaskID is a parsed, structured task identifier. The variant is decided
// once at parse time; consumers switch exhaustively on the concrete type
// instead of probing string shapes at each use site.
type TaskID interface {
	fmt.Stringer

	taskID()
}

// SpecTaskID identifies a task that belongs to a spec: "<spec>-<seq>",
// e.g. "12-3" is the third task of spec 12.
type SpecTaskID struct {
	Spec uint64
	Seq  uint64
}

func (id SpecTaskID) String() string {
	return fmt.Sprintf("%d-%d", id.Spec, id.Seq)
}

func (SpecTaskID) taskID() {}

// StandaloneTaskID identifies a task outside any spec: "T<number>",
// e.g. "T7".
type StandaloneTaskID struct {
	Number uint64
}

func (id StandaloneTaskID) String() string {
	return fmt.Sprintf("T%d", id.Number)
}

func (StandaloneTaskID) taskID() {}

// ParseTaskID parses a task identifier into its structured variant.
// Foreign or unparseable identifiers return (nil, false); callers such as
// counter seeding simply ignore them.
func ParseTaskID(raw string) (TaskID, bool) {
	if raw == "" {
		return nil, false
	}

	if rest, ok := strings.CutPrefix(raw, "T"); ok {
		n, err := strconv.ParseUint(rest, 10, 64)
		if err != nil {
			return nil, false
		}
		return StandaloneTaskID{Number: n}, true
	}

	specPart, seqPart, ok := strings.Cut(raw, "-")
	if !ok {
		return nil, false
	}
	spec, err := strconv.ParseUint(specPart, 10, 64)
	if err != nil {
		return nil, false
	}
	seq, err := strconv.ParseUint(seqPart, 10, 64)
	if err != nil {
		return nil, false
	}
	return SpecTaskID{Spec: spec, Seq: seq}, true
}
