package artifact

import (
	"bytes"
	"fmt"
	"testing"
	"time"

	"github.com/stride-dev/stride/internal/errors"
)

func TestParseState_RoundTrip(t *testing.T) {
	state := &OrchestrationState{
		Version: SchemaVersion,
		Step:    StepImplement,
		Status:  StatusInProgress,
		Health:  "ok",
		Updated: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}

	encoded, err := EncodeState(state)
	if err != nil {
		t.Fatalf("EncodeState failed: %v", err)
	}

	parsed, err := ParseState(encoded)
	if err != nil {
		t.Fatalf("ParseState failed: %v", err)
	}

	reencoded, err := EncodeState(parsed)
	if err != nil {
		t.Fatalf("re-encode failed: %v", err)
	}

	if !bytes.Equal(encoded, reencoded) {
		t.Errorf("round trip not byte-identical:\n%s\nvs\n%s", encoded, reencoded)
	}
}

func TestParseState_Invalid(t *testing.T) {
	cases := []struct {
		name string
		data string
	}{
		{"not json", "{{"},
		{"unknown step", `{"version": 2, "step": "ship_it", "status": "pending", "updated": "2026-01-01T00:00:00Z"}`},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ParseState([]byte(tc.data))
			if err == nil {
				t.Fatal("expected error")
			}
			if !errors.IsParse(err) {
				t.Errorf("expected ParseError, got %v", err)
			}
		})
	}
}

func TestParseState_LegacyMigration(t *testing.T) {
	// Every one of the nine legacy fine-grained steps must map
	// deterministically onto one of the four current steps.
	want := []Step{
		0: StepDesign,
		1: StepDesign,
		2: StepDesign,
		3: StepAnalyze,
		4: StepAnalyze,
		5: StepImplement,
		6: StepDesign, // "checklist"
		7: StepImplement,
		8: StepVerify,
	}

	for index, expected := range want {
		t.Run(fmt.Sprintf("index_%d", index), func(t *testing.T) {
			doc := fmt.Sprintf(`{"version": 1, "step_index": %d, "status": "in_progress", "updated": "2025-06-01T00:00:00Z"}`, index)
			state, err := ParseState([]byte(doc))
			if err != nil {
				t.Fatalf("ParseState failed: %v", err)
			}
			if state.Step != expected {
				t.Errorf("legacy index %d: got step %q, want %q", index, state.Step, expected)
			}
			if state.Version != SchemaVersion {
				t.Errorf("migrated state should carry version %d, got %d", SchemaVersion, state.Version)
			}
			if state.Status != StatusInProgress {
				t.Errorf("status should survive migration, got %q", state.Status)
			}
		})
	}
}

func TestMigrateLegacyStep_OutOfRange(t *testing.T) {
	if MigrateLegacyStep(-1) != StepDesign || MigrateLegacyStep(9) != StepDesign {
		t.Error("out-of-range legacy indices should collapse to design")
	}
}

func TestNextStep(t *testing.T) {
	cases := []struct {
		from Step
		to   Step
		ok   bool
	}{
		{StepDesign, StepAnalyze, true},
		{StepAnalyze, StepImplement, true},
		{StepImplement, StepVerify, true},
		{StepVerify, StepVerify, false},
	}

	for _, tc := range cases {
		got, ok := NextStep(tc.from)
		if got != tc.to || ok != tc.ok {
			t.Errorf("NextStep(%s) = (%s, %v), want (%s, %v)", tc.from, got, ok, tc.to, tc.ok)
		}
	}
}
