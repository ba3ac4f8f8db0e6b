package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/existflow/tasksync/internal/model"
	"github.com/existflow/tasksync/internal/sync"
)

// tickMsg is sent every second for time updates
type tickMsg time.Time

// tasksMsg carries a store snapshot
type tasksMsg []model.Task

// syncStateMsg carries an engine state change
type syncStateMsg sync.State

// feedClosedMsg is sent when a feed channel closes
type feedClosedMsg struct{}

// Init starts the clock and both feeds
func (m Model) Init() tea.Cmd {
	return tea.Batch(tickCmd(), m.waitForTasks(), m.waitForSyncState(), m.spinner.Tick)
}

func tickCmd() tea.Cmd {
	return tea.Every(time.Second, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// waitForTasks blocks on the next store snapshot
func (m Model) waitForTasks() tea.Cmd {
	if m.opts.TaskFeed == nil {
		return nil
	}
	feed := m.opts.TaskFeed
	return func() tea.Msg {
		tasks, ok := <-feed
		if !ok {
			return feedClosedMsg{}
		}
		return tasksMsg(tasks)
	}
}

// waitForSyncState blocks on the next engine state
func (m Model) waitForSyncState() tea.Cmd {
	if m.opts.SyncFeed == nil {
		return nil
	}
	feed := m.opts.SyncFeed
	return func() tea.Msg {
		state, ok := <-feed
		if !ok {
			return feedClosedMsg{}
		}
		return syncStateMsg(state)
	}
}

// Update handles messages
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tickMsg:
		// Let recently completed tasks sink
		resort := false
		for id, at := range m.recentlyDone {
			if time.Since(at) >= doneDelay {
				delete(m.recentlyDone, id)
				resort = true
			}
		}
		if resort {
			m.setTasks(m.tasks)
		}
		return m, tickCmd()

	case tasksMsg:
		m.setTasks(msg)
		return m, m.waitForTasks()

	case syncStateMsg:
		m.syncState = sync.State(msg)
		if m.syncState.Phase == sync.PhaseError {
			m.message = "Sync failed: " + m.syncState.Message
		}
		return m, m.waitForSyncState()

	case feedClosedMsg:
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tea.KeyMsg:
		switch m.mode {
		case ModeAddTask, ModeEditTask:
			return m.updateInput(msg)
		case ModeHelp:
			m.mode = ModeNormal
			return m, nil
		}
		return m.handleNormalKeys(msg)
	}

	return m, nil
}

// handleNormalKeys handles key presses in normal mode
func (m Model) handleNormalKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, keys.Up):
		if m.cursor > 0 {
			m.cursor--
		}

	case key.Matches(msg, keys.Down):
		if m.cursor < len(m.tasks)-1 {
			m.cursor++
		}

	case key.Matches(msg, keys.Top):
		m.cursor = 0

	case key.Matches(msg, keys.Bottom):
		if len(m.tasks) > 0 {
			m.cursor = len(m.tasks) - 1
		}

	case key.Matches(msg, keys.Add):
		return m.startAddTask()

	case key.Matches(msg, keys.Edit):
		return m.startEditTask()

	case key.Matches(msg, keys.Done), key.Matches(msg, keys.Enter):
		m.handleToggleDone()

	case key.Matches(msg, keys.Delete):
		m.handleDelete()

	case key.Matches(msg, keys.Help):
		m.mode = ModeHelp

	case key.Matches(msg, keys.Refresh):
		m.handleRefresh()
	}

	return m, nil
}

func (m Model) startAddTask() (tea.Model, tea.Cmd) {
	m.mode = ModeAddTask
	m.input.SetValue("")
	m.input.Placeholder = "Enter task..."
	m.input.Focus()
	return m, textinput.Blink
}

func (m Model) startEditTask() (tea.Model, tea.Cmd) {
	task := m.currentTask()
	if task == nil {
		return m, nil
	}
	m.mode = ModeEditTask
	m.input.SetValue(task.Title)
	m.input.Placeholder = "Edit task..."
	m.input.Focus()
	m.input.CursorEnd()
	return m, textinput.Blink
}

func (m *Model) handleToggleDone() {
	task := m.currentTask()
	if task == nil {
		return
	}

	updated, err := m.opts.Tasks.Toggle(context.Background(), task.ID)
	if err != nil {
		m.message = fmt.Sprintf("Error: %v", err)
		return
	}
	if updated.Completed {
		m.recentlyDone[updated.ID] = time.Now()
		m.message = fmt.Sprintf("Completed: %s", updated.Title)
	} else {
		delete(m.recentlyDone, updated.ID)
		m.message = fmt.Sprintf("Reopened: %s", updated.Title)
	}
}

func (m *Model) handleDelete() {
	task := m.currentTask()
	if task == nil {
		return
	}

	if err := m.opts.Tasks.Delete(context.Background(), task.ID); err != nil {
		m.message = fmt.Sprintf("Error: %v", err)
		return
	}
	m.message = fmt.Sprintf("Deleted: %s", task.Title)
}

func (m *Model) handleRefresh() {
	if m.opts.Trigger == nil {
		m.message = "Sync is disabled"
		return
	}
	if !m.online() {
		m.message = "Offline - changes will sync when the server is reachable"
		return
	}
	m.opts.Trigger.TriggerSync()
	m.message = "Sync requested"
}

func (m Model) updateInput(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, keys.Escape):
		m.mode = ModeNormal
		m.input.Blur()
		return m, nil

	case key.Matches(msg, keys.Enter):
		value := strings.TrimSpace(m.input.Value())
		mode := m.mode
		m.mode = ModeNormal
		m.input.Blur()
		if value == "" {
			return m, nil
		}

		ctx := context.Background()
		switch mode {
		case ModeAddTask:
			if _, err := m.opts.Tasks.Create(ctx, value, ""); err != nil {
				m.message = fmt.Sprintf("Error adding task: %v", err)
			} else {
				m.message = fmt.Sprintf("Added: %s", value)
			}
		case ModeEditTask:
			task := m.currentTask()
			if task == nil {
				return m, nil
			}
			if _, err := m.opts.Tasks.Update(ctx, task.ID, value, task.Description, task.Completed); err != nil {
				m.message = fmt.Sprintf("Error updating task: %v", err)
			} else {
				m.message = fmt.Sprintf("Updated: %s", value)
			}
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}
