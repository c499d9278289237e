// Package posttrade decouples follow-on side effects (exit rules, alerts)
// from the execution hot path with a durable on-disk task queue.
package posttrade

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"

	"solana-strategy-engine/internal/domain"
	"solana-strategy-engine/internal/observability"
)

// Action executes one named post-trade side effect.
type Action interface {
	Execute(ctx context.Context, task *domain.PostTradeTask) error
}

// Queue is a durable FIFO of post-trade tasks. Enqueue persists the full
// task list before returning; ProcessAll drains a snapshot in enqueue
// order. Tasks survive restarts by reload from disk on Open.
//
// Delivery is at-least-once with a known gap: the in-memory list is
// cleared and persisted before the drained tasks execute, so a crash
// mid-drain loses the not-yet-executed remainder of that snapshot.
type Queue struct {
	path    string
	actions map[string]Action

	mu    sync.Mutex
	tasks []*domain.PostTradeTask
}

// queueDocument is the on-disk representation.
type queueDocument struct {
	Tasks []*domain.PostTradeTask `json:"tasks"`
}

// Open loads the queue from path, restoring any tasks persisted but not
// drained before a prior shutdown. A missing file starts an empty queue.
func Open(path string, actions map[string]Action) (*Queue, error) {
	q := &Queue{
		path:    path,
		actions: actions,
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return q, nil
		}
		return nil, fmt.Errorf("read queue %s: %w", path, err)
	}

	var doc queueDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse queue %s: %w", path, err)
	}
	q.tasks = doc.Tasks

	if len(q.tasks) > 0 {
		log.Printf("[posttrade] restored %d pending tasks from %s", len(q.tasks), path)
	}
	return q, nil
}

// Enqueue appends the task and durably persists the full list before
// returning.
func (q *Queue) Enqueue(_ context.Context, task *domain.PostTradeTask) error {
	if task == nil || task.TaskID == "" {
		return fmt.Errorf("task requires an ID")
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	q.tasks = append(q.tasks, task)
	if err := q.persistLocked(); err != nil {
		q.tasks = q.tasks[:len(q.tasks)-1]
		return fmt.Errorf("persist queue: %w", err)
	}

	observability.RecordPostChainQueued()
	return nil
}

// Len returns the number of pending tasks.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.tasks)
}

// ProcessAll takes the current task list, clears and persists it, then
// executes each task's action chain in enqueue order. Per-action failures
// are logged and swallowed; unknown action names are skipped.
func (q *Queue) ProcessAll(ctx context.Context) {
	q.mu.Lock()
	snapshot := q.tasks
	q.tasks = nil
	if err := q.persistLocked(); err != nil {
		// Keep the tasks; the next drain retries persistence.
		q.tasks = snapshot
		q.mu.Unlock()
		log.Printf("[posttrade] persist before drain failed: %v", err)
		return
	}
	q.mu.Unlock()

	for _, task := range snapshot {
		for _, name := range task.Chain {
			action, ok := q.actions[name]
			if !ok {
				continue
			}
			if err := action.Execute(ctx, task); err != nil {
				log.Printf("[posttrade] action %s failed task=%s: %v", name, task.TaskID, err)
				continue
			}
			observability.RecordPostChainExec()
		}
	}
}

// persistLocked writes the full list with tmp-file + fsync + rename so a
// crash never leaves a torn document. Caller holds q.mu.
func (q *Queue) persistLocked() error {
	data, err := json.Marshal(queueDocument{Tasks: q.tasks})
	if err != nil {
		return err
	}
	return writeFileAtomic(q.path, data, 0o600)
}

// writeFileAtomic writes data to path atomically (tmp file + fsync +
// rename), fsyncing the parent directory to harden the rename durability.
func writeFileAtomic(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if err := tmp.Chmod(perm); err != nil {
		tmp.Close()
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}

	if err := os.Rename(tmpPath, path); err != nil {
		return err
	}

	if d, err := os.Open(dir); err == nil {
		_ = d.Sync()
		_ = d.Close()
	}
	return nil
}
