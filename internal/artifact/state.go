package artifact

import (
	"encoding/json"
	"time"

	"github.com/stride-dev/stride/internal/errors"
)

// SchemaVersion is the current on-disk version of the state document.
// Version 1 documents encode one of nine legacy fine-grained steps and are
// migrated on parse.
const SchemaVersion = 2

// Step is one of the four workflow steps a project moves through.
type Step string

const (
	StepDesign    Step = "design"
	StepAnalyze   Step = "analyze"
	StepImplement Step = "implement"
	StepVerify    Step = "verify"
)

// StepStatus describes progress within the current step.
type StepStatus string

const (
	StatusPending    StepStatus = "pending"
	StatusInProgress StepStatus = "in_progress"
	StatusBlocked    StepStatus = "blocked"
	StatusComplete   StepStatus = "complete"
)

// stepOrder fixes the monotonic ordering of steps.
var stepOrder = map[Step]int{
	StepDesign:    0,
	StepAnalyze:   1,
	StepImplement: 2,
	StepVerify:    3,
}

// ValidStep reports whether s is one of the four current steps.
func ValidStep(s Step) bool {
	_, ok := stepOrder[s]
	return ok
}

// NextStep returns the step after s, and false when s is the last step.
func NextStep(s Step) (Step, bool) {
	switch s {
	case StepDesign:
		return StepAnalyze, true
	case StepAnalyze:
		return StepImplement, true
	case StepImplement:
		return StepVerify, true
	default:
		return s, false
	}
}

// StepIndex returns the ordinal position of a step, or -1 if unknown.
func StepIndex(s Step) int {
	if i, ok := stepOrder[s]; ok {
		return i
	}
	return -1
}

// OrchestrationState is the structured state document for one project.
// It is mutated only by the decision loop or an explicit override, and
// persisted via atomic replace.
type OrchestrationState struct {
	Version int        `json:"version"`
	Step    Step       `json:"step"`
	Status  StepStatus `json:"status"`
	Health  string     `json:"health,omitempty"`
	Updated time.Time  `json:"updated"`
}

// legacyState is the version-1 encoding, which tracked one of nine
// fine-grained steps by index.
type legacyState struct {
	Version   int        `json:"version"`
	StepIndex *int       `json:"step_index"`
	Status    StepStatus `json:"status"`
	Health    string     `json:"health,omitempty"`
	Updated   time.Time  `json:"updated"`
}

// legacySteps maps the nine legacy fine-grained step indices onto the four
// current steps. The mapping is deterministic and frozen: changing it would
// silently move migrated projects to a different step.
var legacySteps = [9]Step{
	0: StepDesign,    // discovery
	1: StepDesign,    // requirements
	2: StepDesign,    // architecture
	3: StepAnalyze,   // plan_review
	4: StepAnalyze,   // task_breakdown
	5: StepImplement, // scaffold
	6: StepDesign,    // checklist
	7: StepImplement, // implementation
	8: StepVerify,    // validation
}

// MigrateLegacyStep maps a legacy fine-grained step index to one of the
// four current steps. Out-of-range indices collapse to design, the safest
// restart point.
func MigrateLegacyStep(index int) Step {
	if index < 0 || index >= len(legacySteps) {
		return StepDesign
	}
	return legacySteps[index]
}

// NewState returns the initial state for a freshly registered project.
func NewState(now time.Time) *OrchestrationState {
	return &OrchestrationState{
		Version: SchemaVersion,
		Step:    StepDesign,
		Status:  StatusPending,
		Updated: now.UTC(),
	}
}

// ParseState decodes a state document. Version-1 documents are migrated to
// the current schema before being returned, so callers never observe a
// legacy step encoding.
func ParseState(data []byte) (*OrchestrationState, error) {
	var probe struct {
		Version int `json:"version"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return nil, errors.NewParseError("state document is not valid JSON", err)
	}

	if probe.Version < SchemaVersion {
		var legacy legacyState
		if err := json.Unmarshal(data, &legacy); err != nil {
			return nil, errors.NewParseError("legacy state document is not valid JSON", err)
		}
		index := -1
		if legacy.StepIndex != nil {
			index = *legacy.StepIndex
		}
		migrated := &OrchestrationState{
			Version: SchemaVersion,
			Step:    MigrateLegacyStep(index),
			Status:  legacy.Status,
			Health:  legacy.Health,
			Updated: legacy.Updated,
		}
		if migrated.Status == "" {
			migrated.Status = StatusPending
		}
		return migrated, nil
	}

	var state OrchestrationState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, errors.NewParseError("state document is not valid JSON", err)
	}
	if !ValidStep(state.Step) {
		return nil, errors.NewParseError("state document has unknown step", nil)
	}
	return &state, nil
}

// EncodeState produces the canonical byte encoding of a state document.
// Encoding is stable: parsing and re-encoding an unchanged document yields
// byte-identical output.
func EncodeState(state *OrchestrationState) ([]byte, error) {
	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}
