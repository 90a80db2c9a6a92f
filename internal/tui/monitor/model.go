// Package monitor is the live dashboard: a hub subscriber rendered with
// Bubble Tea. It carries no orchestration logic; everything shown is
// derived from the snapshot received at subscribe time plus the
// incremental events that follow it.
package monitor

import (
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/stride-dev/stride/internal/event"
	"github.com/stride-dev/stride/internal/hub"
)

// Panel represents which panel is active
type Panel int

const (
	PanelProjects Panel = iota
	PanelActivity
	PanelHistory
)

// MinWidth is the minimum terminal width for proper display
const MinWidth = 40

// MinHeight is the minimum terminal height for proper display
const MinHeight = 12

// ProjectRow is the per-project summary shown in the projects panel.
type ProjectRow struct {
	Name          string
	Step          string
	Status        string
	TasksDone     int
	TasksTotal    int
	RoadmapDone   int
	RoadmapTotal  int
	ActiveSession string
}

// ActivityItem is one line in the activity panel.
type ActivityItem struct {
	Timestamp time.Time
	Project   string
	SessionID string
	Kind      string // "msg", "ask", "end", "exec", "phase"
	Text      string
}

// HistoryRow is one execution summary in the history panel.
type HistoryRow struct {
	Project     string
	ExecutionID string
	SessionID   string
	Skill       string
	Status      string
	Updated     time.Time
	CostUSD     float64
}

// eventMsg wraps one hub event for the Bubble Tea update loop.
type eventMsg struct {
	ev event.Event
	ok bool
}

// Model is the main Bubble Tea model for the monitor TUI
type Model struct {
	h   *hub.Hub
	sub *hub.Subscriber

	// Window dimensions
	Width  int
	Height int

	// Panel data
	Projects []ProjectRow
	Activity []ActivityItem
	History  []HistoryRow

	// UI state
	ActivePanel  Panel
	ScrollOffset map[Panel]int
	ShowHelp     bool
	LastEvent    time.Time
	Resyncs      int
	Spinner      spinner.Model

	// MaxActivity bounds the retained activity lines.
	MaxActivity int
}

// NewModel subscribes to the hub and seeds the panels from the snapshot.
func NewModel(h *hub.Hub, maxActivity int) Model {
	if maxActivity <= 0 {
		maxActivity = 50
	}
	sp := spinner.New()
	sp.Spinner = spinner.Dot

	m := Model{
		h:            h,
		sub:          h.Subscribe(),
		ScrollOffset: make(map[Panel]int),
		ActivePanel:  PanelProjects,
		Spinner:      sp,
		MaxActivity:  maxActivity,
	}
	m.applySnapshot(m.sub.Snapshot())
	return m
}

// Init implements tea.Model
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.waitForEvent(), m.Spinner.Tick)
}

// Update implements tea.Model
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.Width = msg.Width
		m.Height = msg.Height
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.Spinner, cmd = m.Spinner.Update(msg)
		return m, cmd

	case eventMsg:
		if !msg.ok {
			// Dropped for falling behind: resubscribe and resync from a
			// fresh snapshot.
			m.sub = m.h.Subscribe()
			m.Resyncs++
			m.applySnapshot(m.sub.Snapshot())
			return m, m.waitForEvent()
		}
		m.applyEvent(msg.ev)
		return m, m.waitForEvent()
	}

	return m, nil
}

// handleKey processes key input
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		m.h.Unsubscribe(m.sub)
		return m, tea.Quit

	case "tab":
		m.ActivePanel = (m.ActivePanel + 1) % 3
		return m, nil

	case "shift+tab":
		m.ActivePanel = (m.ActivePanel + 2) % 3
		return m, nil

	case "1":
		m.ActivePanel = PanelProjects
		return m, nil

	case "2":
		m.ActivePanel = PanelActivity
		return m, nil

	case "3":
		m.ActivePanel = PanelHistory
		return m, nil

	case "j", "down":
		m.ScrollOffset[m.ActivePanel]++
		return m, nil

	case "k", "up":
		if m.ScrollOffset[m.ActivePanel] > 0 {
			m.ScrollOffset[m.ActivePanel]--
		}
		return m, nil

	case "?":
		m.ShowHelp = !m.ShowHelp
		return m, nil
	}

	return m, nil
}

// View implements tea.Model
func (m Model) View() string {
	return m.renderView()
}

// waitForEvent blocks on the subscriber's stream and feeds the next event
// into the update loop.
func (m Model) waitForEvent() tea.Cmd {
	sub := m.sub
	return func() tea.Msg {
		ev, ok := <-sub.Events()
		return eventMsg{ev: ev, ok: ok}
	}
}

// applySnapshot rebuilds all panel data from a full snapshot.
func (m *Model) applySnapshot(snap hub.Snapshot) {
	m.Projects = m.Projects[:0]
	m.History = m.History[:0]

	for _, p := range snap.Projects {
		row := ProjectRow{Name: p.Project}
		if p.State != nil {
			row.Step = string(p.State.Step)
			row.Status = string(p.State.Status)
		}
		if p.Tasks != nil {
			row.TasksDone, row.TasksTotal = p.Tasks.Counts()
		}
		if p.Roadmap != nil {
			row.RoadmapDone, row.RoadmapTotal = p.Roadmap.ItemCounts()
		}
		if p.Transcript != nil && !p.Transcript.Ended {
			row.ActiveSession = p.Transcript.SessionID
		}
		m.Projects = append(m.Projects, row)

		if p.Index != nil {
			for _, entry := range p.Index.Entries {
				m.History = append(m.History, HistoryRow{
					Project:     p.Project,
					ExecutionID: entry.ExecutionID,
					SessionID:   entry.SessionID,
					Skill:       entry.Skill,
					Status:      entry.Status,
					Updated:     entry.Updated,
					CostUSD:     entry.CostUSD,
				})
			}
		}
	}
	m.LastEvent = snap.Generated
}

// applyEvent folds one incremental event into the panel data.
func (m *Model) applyEvent(ev event.Event) {
	m.LastEvent = ev.Timestamp()

	switch e := ev.(type) {
	case event.TaskProgressChangedEvent:
		row := m.projectRow(e.Project)
		row.TasksDone, row.TasksTotal = e.Completed, e.Total

	case event.RoadmapProgressChangedEvent:
		row := m.projectRow(e.Project)
		row.RoadmapDone, row.RoadmapTotal = e.Done, e.Total

	case event.PhaseStatusChangedEvent:
		row := m.projectRow(e.Project)
		row.Step, row.Status = e.Step, e.Status
		m.addActivity(ActivityItem{
			Timestamp: e.Timestamp(), Project: e.Project,
			Kind: "phase", Text: e.Step + " → " + e.Status,
		})

	case event.SessionMessageAppendedEvent:
		row := m.projectRow(e.Project)
		row.ActiveSession = e.SessionID
		m.addActivity(ActivityItem{
			Timestamp: e.Timestamp(), Project: e.Project, SessionID: e.SessionID,
			Kind: "msg", Text: e.Text,
		})

	case event.SessionQuestionDetectedEvent:
		m.addActivity(ActivityItem{
			Timestamp: e.Timestamp(), Project: e.Project, SessionID: e.SessionID,
			Kind: "ask", Text: e.Question,
		})

	case event.SessionEndedEvent:
		row := m.projectRow(e.Project)
		if row.ActiveSession == e.SessionID {
			row.ActiveSession = ""
		}
		m.addActivity(ActivityItem{
			Timestamp: e.Timestamp(), Project: e.Project, SessionID: e.SessionID,
			Kind: "end", Text: "session ended",
		})

	case event.ExecutionStatusChangedEvent:
		m.applyExecution(e)
	}
}

func (m *Model) applyExecution(e event.ExecutionStatusChangedEvent) {
	m.addActivity(ActivityItem{
		Timestamp: e.Timestamp(), Project: e.Project, SessionID: e.SessionID,
		Kind: "exec", Text: e.Status,
	})

	for i := range m.History {
		if m.History[i].ExecutionID == e.ExecutionID {
			m.History[i].Status = e.Status
			m.History[i].SessionID = e.SessionID
			m.History[i].Updated = e.Timestamp()
			return
		}
	}
	m.History = append([]HistoryRow{{
		Project:     e.Project,
		ExecutionID: e.ExecutionID,
		SessionID:   e.SessionID,
		Status:      e.Status,
		Updated:     e.Timestamp(),
	}}, m.History...)
}

// projectRow finds or creates the row for a project.
func (m *Model) projectRow(name string) *ProjectRow {
	for i := range m.Projects {
		if m.Projects[i].Name == name {
			return &m.Projects[i]
		}
	}
	m.Projects = append(m.Projects, ProjectRow{Name: name})
	return &m.Projects[len(m.Projects)-1]
}

func (m *Model) addActivity(item ActivityItem) {
	m.Activity = append([]ActivityItem{item}, m.Activity...)
	if len(m.Activity) > m.MaxActivity {
		m.Activity = m.Activity[:m.MaxActivity]
	}
}
