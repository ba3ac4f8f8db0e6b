package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/existflow/tasksync/internal/sync"
)

// View renders the UI
func (m Model) View() string {
	if m.width == 0 {
		return "Loading..."
	}

	header := m.renderHeader()
	taskList := m.renderTaskList()
	statusBar := m.renderStatusBar()

	mainContent := taskList
	if m.mode == ModeAddTask || m.mode == ModeEditTask {
		mainContent = lipgloss.Place(
			m.width, m.height-4,
			lipgloss.Center, lipgloss.Center,
			m.renderModal(),
			lipgloss.WithWhitespaceChars(" "),
		)
	}
	if m.mode == ModeHelp {
		mainContent = m.renderHelp()
	}

	return lipgloss.JoinVertical(lipgloss.Left, header, mainContent, statusBar)
}

func (m Model) renderHeader() string {
	title := HeaderStyle.Render("TaskSync")
	right := time.Now().Format("15:04:05")
	if user := m.user(); user != "" {
		right = user + "  " + right
	} else {
		right = "not logged in  " + right
	}
	right = HelpStyle.Render(right)

	gap := m.width - lipgloss.Width(title) - lipgloss.Width(right) - 1
	if gap < 1 {
		gap = 1
	}
	return title + strings.Repeat(" ", gap) + right
}

func (m Model) renderTaskList() string {
	width := m.width
	var s strings.Builder

	open := 0
	for _, t := range m.tasks {
		if !t.Completed {
			open++
		}
	}
	header := fmt.Sprintf("Tasks (%d open, %d unsynced)", open, m.unsynced())
	s.WriteString(lipgloss.NewStyle().Bold(true).Foreground(Primary).Render(header) + "\n")
	s.WriteString(lipgloss.NewStyle().Foreground(Border).Render(strings.Repeat("─", max(width-6, 1))) + "\n\n")

	if len(m.tasks) == 0 {
		s.WriteString(HelpStyle.Render("  No tasks. Press 'a' to add one."))
	}

	for i, t := range m.tasks {
		cursor := "  "
		style := TaskItemStyle
		if i == m.cursor {
			cursor = "❯ "
			style = TaskItemSelectedStyle
		}

		icon := "[ ]"
		if t.Completed {
			icon = "[x]"
			style = TaskDoneStyle
		}

		title := truncate(t.Title, max(width-24, 10))
		line := style.Render(fmt.Sprintf("%s%s %-*s", cursor, icon, max(width-24, 10), title))
		s.WriteString(line + " " + FormatSyncStatus(t.SyncStatus) + "\n")

		if i == m.cursor && t.Description != "" {
			s.WriteString(DescriptionStyle.Render(truncate(t.Description, max(width-16, 10))) + "\n")
		}
	}

	return TaskListStyle.Width(width).Height(max(m.height-4, 1)).Render(s.String())
}

func (m Model) renderStatusBar() string {
	help := "a:add  e:edit  x:done  d:del  r:sync  ?:help  q:quit"
	if m.message != "" {
		help = m.message
	}

	syncMsg := m.syncSummary()
	avail := m.width - lipgloss.Width(help) - lipgloss.Width(syncMsg) - 4
	if avail > 0 {
		help += strings.Repeat(" ", avail) + syncMsg
	} else {
		help += " " + syncMsg
	}

	return StatusBarStyle.Width(m.width).Render(help)
}

// syncSummary describes connectivity and the engine state
func (m Model) syncSummary() string {
	if m.opts.Trigger == nil {
		return lipgloss.NewStyle().Foreground(Offline).Render("Sync disabled")
	}
	if !m.online() {
		return lipgloss.NewStyle().Foreground(Offline).Render("Offline")
	}

	style := GetPhaseStyle(m.syncState.Phase)
	switch m.syncState.Phase {
	case sync.PhaseSyncing:
		return m.spinner.View() + style.Render(" Syncing...")
	case sync.PhaseError:
		return style.Render("Sync Error!")
	}

	if n := m.unsynced(); n > 0 {
		return lipgloss.NewStyle().Foreground(SyncPending).Render(fmt.Sprintf("%d pending", n))
	}

	var last time.Time
	if m.opts.LastSync != nil {
		last = m.opts.LastSync()
	}
	if last.IsZero() {
		return style.Render("Never synced")
	}
	return style.Render("Synced " + formatAgo(time.Since(last)))
}

func (m Model) renderModal() string {
	title := "Add Task"
	if m.mode == ModeEditTask {
		title = "Edit Task"
	}

	content := lipgloss.NewStyle().Bold(true).Render(title) + "\n\n"
	content += m.input.View() + "\n\n"
	content += HelpStyle.Render("Enter:save  Esc:cancel")

	return ModalStyle.Render(content)
}

func (m Model) renderHelp() string {
	help := `
╭─── Keyboard Shortcuts ───╮
│                          │
│  Navigation              │
│  ──────────              │
│  j/↓     Move down       │
│  k/↑     Move up         │
│  g/G     Top/bottom      │
│                          │
│  Actions                 │
│  ───────                 │
│  a       Add task        │
│  e       Edit title      │
│  x/Enter Toggle done     │
│  d       Delete          │
│  r       Sync now        │
│                          │
│  Other                   │
│  ─────                   │
│  ?       Toggle help     │
│  q       Quit            │
│                          │
╰──────────────────────────╯

     Press any key to close
`
	return lipgloss.Place(m.width, max(m.height-4, 1), lipgloss.Center, lipgloss.Center, help)
}
