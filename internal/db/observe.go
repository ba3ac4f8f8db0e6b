package db

import (
	"context"

	"github.com/existflow/tasksync/internal/logger"
	"github.com/existflow/tasksync/internal/model"
)

// Observe returns a live view of all tasks in GetAll order. The channel
// receives the current snapshot immediately and a fresh one after every
// insert, update or delete. Slow readers skip straight to the latest
// snapshot. Call the returned function to stop delivery.
func (db *DB) Observe(ctx context.Context) (<-chan []model.Task, func(), error) {
	db.notifyMu.Lock()
	defer db.notifyMu.Unlock()

	tasks, err := db.GetAll(ctx)
	if err != nil {
		return nil, nil, err
	}
	db.tasks.Publish(tasks)

	ch, cancel := db.tasks.Subscribe()
	return ch, cancel, nil
}

// notify publishes a fresh snapshot when anyone is observing
func (db *DB) notify(ctx context.Context) {
	db.notifyMu.Lock()
	defer db.notifyMu.Unlock()

	if db.tasks.Subscribers() == 0 {
		return
	}

	// The mutation already committed; a canceled caller must not starve observers
	tasks, err := db.GetAll(context.WithoutCancel(ctx))
	if err != nil {
		logger.Warn("Failed to refresh task snapshot", logger.F("error", err))
		return
	}
	db.tasks.Publish(tasks)
}
