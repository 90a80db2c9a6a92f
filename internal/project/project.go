// Package project ties the pipeline together for one registered project:
// handle derivation, artifact path layout, and the assembly of watcher,
// normalizer, decision loop, and execution manager around the shared hub.
package project

import (
	"os"
	"path/filepath"

	"github.com/stride-dev/stride/internal/errors"
)

// Artifact file names inside a project root.
const (
	StateFileName   = "state.json"
	TaskFileName    = "TASKS.md"
	RoadmapFileName = "ROADMAP.md"
)

// stateDirName is the per-project operational state directory.
const stateDirName = ".state"

// Handle identifies a project root and its derived operational storage
// location. A handle is created on registration and never mutated.
type Handle struct {
	// Name is the project's short name, the base of its root path.
	Name string
	// Root is the absolute project root path.
	Root string
}

// NewHandle creates a handle for a project root. The root must exist and
// be a directory.
func NewHandle(root string) (Handle, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return Handle{}, errors.Wrap(err, "resolving project root")
	}

	info, err := os.Stat(abs)
	if err != nil {
		return Handle{}, errors.Wrap(err, "project root")
	}
	if !info.IsDir() {
		return Handle{}, errors.Newf("project root %s is not a directory", abs)
	}

	return Handle{Name: filepath.Base(abs), Root: abs}, nil
}

// StateDir returns the project's operational state directory,
// <root>/.state/workflows/.
func (h Handle) StateDir() string {
	return filepath.Join(h.Root, stateDirName, "workflows")
}

// StatePath returns the orchestration state document path.
func (h Handle) StatePath() string {
	return filepath.Join(h.Root, StateFileName)
}

// TaskListPath returns the task list document path.
func (h Handle) TaskListPath() string {
	return filepath.Join(h.Root, TaskFileName)
}

// RoadmapPath returns the roadmap document path.
func (h Handle) RoadmapPath() string {
	return filepath.Join(h.Root, RoadmapFileName)
}

// TranscriptDir returns the directory where the external agent writes
// session transcripts for this project.
func (h Handle) TranscriptDir() string {
	return filepath.Join(h.Root, stateDirName, "transcripts")
}

// TranscriptPath returns the transcript file path for a session id.
// Transcript files are named after their session id.
func (h Handle) TranscriptPath(sessionID string) string {
	return filepath.Join(h.TranscriptDir(), sessionID+".jsonl")
}
