// Package conflict decides between a local and a remote version of the same
// task using last-writer-wins on UpdatedAt.
package conflict

import "github.com/existflow/tasksync/internal/model"

// Winner names the side a resolution keeps
type Winner int

const (
	KeepLocal Winner = iota
	KeepRemote
)

func (w Winner) String() string {
	if w == KeepRemote {
		return "remote"
	}
	return "local"
}

// Resolution is the outcome of Resolve
type Resolution struct {
	Winner Winner
	Task   model.Task
}

// HasConflict reports whether both versions were edited independently: their
// timestamps differ and so does at least one user-visible field.
func HasConflict(local, remote model.Task) bool {
	if local.UpdatedAt.Equal(remote.UpdatedAt) {
		return false
	}
	return !local.SameContent(remote)
}

// Resolve keeps the version with the strictly later UpdatedAt. Ties keep
// local.
func Resolve(local, remote model.Task) Resolution {
	if remote.UpdatedAt.After(local.UpdatedAt) {
		return Resolution{Winner: KeepRemote, Task: remote}
	}
	return Resolution{Winner: KeepLocal, Task: local}
}
