package tui

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/existflow/tasksync/internal/model"
	"github.com/existflow/tasksync/internal/sync"
)

// Color palette
var (
	// Status colors
	Completed   = lipgloss.Color("#95E1A3") // Green
	SyncOK      = lipgloss.Color("#95E1A3") // Green
	SyncPending = lipgloss.Color("#FFE66D") // Yellow
	SyncActive  = lipgloss.Color("#4ECDC4") // Blue
	SyncError   = lipgloss.Color("#FF6B6B") // Red
	Offline     = lipgloss.Color("#6C757D") // Gray

	// UI colors
	Primary   = lipgloss.Color("#4ECDC4")
	Surface   = lipgloss.Color("#16213e")
	TextMuted = lipgloss.Color("#888888")
	Border    = lipgloss.Color("#333333")
)

// Styles
var (
	// Header
	HeaderStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(Primary).
			Padding(0, 1)

	// Task list
	TaskListStyle = lipgloss.NewStyle().
			Padding(1, 2)

	// Task item
	TaskItemStyle = lipgloss.NewStyle().
			Padding(0, 1)

	TaskItemSelectedStyle = lipgloss.NewStyle().
				Padding(0, 1).
				Background(Surface).
				Bold(true)

	TaskDoneStyle = lipgloss.NewStyle().
			Foreground(TextMuted).
			Strikethrough(true).
			Padding(0, 1)

	DescriptionStyle = lipgloss.NewStyle().
				Foreground(TextMuted).
				PaddingLeft(8)

	// Status bar
	StatusBarStyle = lipgloss.NewStyle().
			Foreground(TextMuted).
			Padding(0, 1).
			BorderStyle(lipgloss.NormalBorder()).
			BorderTop(true).
			BorderForeground(Border)

	// Input modal
	ModalStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(Primary).
			Padding(1, 2)

	// Help text
	HelpStyle = lipgloss.NewStyle().
			Foreground(TextMuted)
)

// FormatSyncStatus renders the per-task sync badge
func FormatSyncStatus(status model.SyncStatus) string {
	switch status {
	case model.StatusPending:
		return lipgloss.NewStyle().Foreground(SyncPending).Render("●")
	case model.StatusSyncing:
		return lipgloss.NewStyle().Foreground(SyncActive).Render("↻")
	case model.StatusConflict:
		return lipgloss.NewStyle().Foreground(SyncError).Render("!")
	default:
		return lipgloss.NewStyle().Foreground(SyncOK).Render("✓")
	}
}

// GetPhaseStyle returns the style for an engine phase
func GetPhaseStyle(phase sync.Phase) lipgloss.Style {
	switch phase {
	case sync.PhaseSyncing:
		return lipgloss.NewStyle().Foreground(SyncActive)
	case sync.PhaseSuccess:
		return lipgloss.NewStyle().Foreground(SyncOK)
	case sync.PhaseError:
		return lipgloss.NewStyle().Foreground(SyncError).Bold(true)
	default:
		return lipgloss.NewStyle().Foreground(TextMuted)
	}
}
