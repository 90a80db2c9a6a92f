package artifact

import (
	"regexp"
	"strings"
)

// TaskStatus is the completion state of a single task.
type TaskStatus string

const (
	TaskTodo       TaskStatus = "todo"
	TaskInProgress TaskStatus = "in_progress"
	TaskDone       TaskStatus = "done"
)

// TaskRecord is one parsed task-list line.
type TaskRecord struct {
	ID          string     `json:"id"`
	Description string     `json:"description"`
	Status      TaskStatus `json:"status"`
	Phase       string     `json:"phase,omitempty"`
	DependsOn   []string   `json:"depends_on,omitempty"`
}

// TaskList is the parsed view of the task-list artifact. It is always
// recomputed from file content, never hand-constructed or mutated.
type TaskList struct {
	Tasks []TaskRecord `json:"tasks"`
}

// taskLine matches the constrained task-line grammar:
//
//	- [ ] T1 free text | deps: T2, T3 | phase: core
//
// The checkbox holds ' ' (todo), '~' (in progress), or 'x'/'X' (done).
// The identifier is the first whitespace-delimited token after the box.
var taskLine = regexp.MustCompile(`^\s*[-*]\s+\[([ ~xX])\]\s+(\S+)\s*(.*)$`)

// sectionLine matches a Markdown heading, which sets the phase label for
// tasks that follow without an explicit phase annotation.
var sectionLine = regexp.MustCompile(`^#{1,6}\s+(.+?)\s*$`)

// ParseTaskList parses the task-list artifact. Lines that do not match the
// task grammar (prose, blank lines, malformed entries) are skipped; the
// parse itself never fails on content.
func ParseTaskList(data []byte) *TaskList {
	list := &TaskList{}
	section := ""

	for _, line := range strings.Split(string(data), "\n") {
		if m := sectionLine.FindStringSubmatch(line); m != nil {
			section = strings.TrimSpace(m[1])
			continue
		}

		m := taskLine.FindStringSubmatch(line)
		if m == nil {
			continue
		}

		record := TaskRecord{
			ID:     m[2],
			Status: boxStatus(m[1]),
			Phase:  section,
		}

		// Annotations are pipe-separated suffixes on the free text.
		parts := strings.Split(m[3], "|")
		record.Description = strings.TrimSpace(parts[0])
		for _, part := range parts[1:] {
			key, value, ok := strings.Cut(strings.TrimSpace(part), ":")
			if !ok {
				continue
			}
			value = strings.TrimSpace(value)
			switch strings.ToLower(strings.TrimSpace(key)) {
			case "deps", "depends", "depends_on":
				for _, dep := range strings.Split(value, ",") {
					if dep = strings.TrimSpace(dep); dep != "" {
						record.DependsOn = append(record.DependsOn, dep)
					}
				}
			case "phase":
				record.Phase = value
			}
		}

		list.Tasks = append(list.Tasks, record)
	}

	return list
}

func boxStatus(box string) TaskStatus {
	switch box {
	case "x", "X":
		return TaskDone
	case "~":
		return TaskInProgress
	default:
		return TaskTodo
	}
}

// Counts returns the number of done tasks and the total task count.
func (l *TaskList) Counts() (completed, total int) {
	for _, t := range l.Tasks {
		if t.Status == TaskDone {
			completed++
		}
	}
	return completed, len(l.Tasks)
}

// AllDone reports whether every task in the list is done. An empty list is
// not considered done: no tasks means the breakdown has not happened yet.
func (l *TaskList) AllDone() bool {
	if len(l.Tasks) == 0 {
		return false
	}
	completed, total := l.Counts()
	return completed == total
}

// Get returns the task with the given id, or nil.
func (l *TaskList) Get(id string) *TaskRecord {
	for i := range l.Tasks {
		if l.Tasks[i].ID == id {
			return &l.Tasks[i]
		}
	}
	return nil
}

// NextActionable returns the first task, in file order, that is not done
// and whose dependencies are all done. A task with unmet dependencies is
// never actionable, even if it appears earlier in the file. Returns nil
// when nothing is actionable.
func (l *TaskList) NextActionable() *TaskRecord {
	for i := range l.Tasks {
		t := &l.Tasks[i]
		if t.Status == TaskDone {
			continue
		}
		if l.depsMet(t) {
			return t
		}
	}
	return nil
}

func (l *TaskList) depsMet(t *TaskRecord) bool {
	for _, dep := range t.DependsOn {
		d := l.Get(dep)
		// Unknown dependency ids are treated as unmet: reporting the task
		// actionable on a typo would hide the broken reference.
		if d == nil || d.Status != TaskDone {
			return false
		}
	}
	return true
}
