package tui

import (
	"context"
	"sort"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/existflow/tasksync/internal/logger"
	"github.com/existflow/tasksync/internal/model"
	"github.com/existflow/tasksync/internal/sync"
)

// doneDelay keeps a just-completed task in place before it sinks
const doneDelay = 10 * time.Second

// Mode represents the current UI mode
type Mode int

const (
	ModeNormal Mode = iota
	ModeAddTask
	ModeEditTask
	ModeHelp
)

// Tasks is the local write path the view edits through
type Tasks interface {
	Create(ctx context.Context, title, description string) (model.Task, error)
	Update(ctx context.Context, id, title, description string, completed bool) (model.Task, error)
	Toggle(ctx context.Context, id string) (model.Task, error)
	Delete(ctx context.Context, id string) error
}

// Trigger requests a sync cycle without waiting for it
type Trigger interface {
	TriggerSync()
}

// Options wires the view to the running client
type Options struct {
	Tasks    Tasks
	Trigger  Trigger             // Nil disables manual sync
	TaskFeed <-chan []model.Task // Store snapshots
	SyncFeed <-chan sync.State   // Engine state changes
	LastSync func() time.Time    // May be nil
	Online   func() bool         // May be nil
	User     func() string       // Logged in email, may be nil
}

// Model is the main TUI model
type Model struct {
	opts Options

	tasks     []model.Task
	syncState sync.State

	// UI state
	width  int
	height int
	mode   Mode
	cursor int

	// Input
	input   textinput.Model
	spinner spinner.Model

	// Sorting state
	recentlyDone map[string]time.Time

	message string
}

// NewModel creates a new TUI model
func NewModel(opts Options) Model {
	logger.Info("Initializing TUI model")

	ti := textinput.New()
	ti.Placeholder = "Enter task..."
	ti.CharLimit = 256
	ti.Width = 50

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = GetPhaseStyle(sync.PhaseSyncing)

	return Model{
		opts:         opts,
		mode:         ModeNormal,
		input:        ti,
		spinner:      sp,
		recentlyDone: make(map[string]time.Time),
	}
}

// setTasks replaces the visible list with a store snapshot
func (m *Model) setTasks(tasks []model.Task) {
	var selected string
	if t := m.currentTask(); t != nil {
		selected = t.ID
	}

	m.tasks = append([]model.Task(nil), tasks...)
	m.sortTasks()

	m.cursor = 0
	for i, t := range m.tasks {
		if t.ID == selected {
			m.cursor = i
			break
		}
	}
}

// sortTasks puts open tasks first. A task completed within doneDelay still
// counts as open so it does not jump away from the cursor.
func (m *Model) sortTasks() {
	now := time.Now()
	isDone := func(t model.Task) bool {
		if !t.Completed {
			return false
		}
		if at, ok := m.recentlyDone[t.ID]; ok && now.Sub(at) < doneDelay {
			return false
		}
		return true
	}

	sort.SliceStable(m.tasks, func(i, j int) bool {
		d1, d2 := isDone(m.tasks[i]), isDone(m.tasks[j])
		if d1 != d2 {
			return !d1
		}
		return false
	})
}

func (m *Model) currentTask() *model.Task {
	if m.cursor >= 0 && m.cursor < len(m.tasks) {
		return &m.tasks[m.cursor]
	}
	return nil
}

// unsynced counts tasks the server has not acknowledged yet
func (m Model) unsynced() int {
	n := 0
	for _, t := range m.tasks {
		if !t.SyncStatus.Settled() {
			n++
		}
	}
	return n
}

func (m Model) user() string {
	if m.opts.User == nil {
		return ""
	}
	return m.opts.User()
}

func (m Model) online() bool {
	if m.opts.Online == nil {
		return true
	}
	return m.opts.Online()
}
