package posttrade

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"solana-strategy-engine/internal/domain"
	"solana-strategy-engine/internal/storage/memory"
)

// recordingAction remembers execution order.
type recordingAction struct {
	mu       sync.Mutex
	executed []string
	err      error
}

func (a *recordingAction) Execute(_ context.Context, task *domain.PostTradeTask) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.executed = append(a.executed, task.TaskID)
	return a.err
}

func task(id string, chain ...string) *domain.PostTradeTask {
	if len(chain) == 0 {
		chain = []string{domain.ActionAlerts}
	}
	return &domain.PostTradeTask{
		TaskID:   id,
		Chain:    chain,
		Mint:     "MintTestAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA",
		UserID:   "u1",
		WalletID: "w1",
	}
}

func TestQueue_EnqueuePersists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "queue.json")
	ctx := context.Background()

	q, err := Open(path, nil)
	require.NoError(t, err)
	require.NoError(t, q.Enqueue(ctx, task("t1")))
	require.NoError(t, q.Enqueue(ctx, task("t2")))
	assert.Equal(t, 2, q.Len())

	// A fresh queue over the same file sees both tasks.
	reloaded, err := Open(path, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, reloaded.Len())
}

func TestQueue_ProcessAllInOrderExactlyOnce(t *testing.T) {
	path := filepath.Join(t.TempDir(), "queue.json")
	ctx := context.Background()

	action := &recordingAction{}
	q, err := Open(path, map[string]Action{domain.ActionAlerts: action})
	require.NoError(t, err)

	require.NoError(t, q.Enqueue(ctx, task("t1")))
	require.NoError(t, q.Enqueue(ctx, task("t2")))
	require.NoError(t, q.Enqueue(ctx, task("t3")))

	q.ProcessAll(ctx)
	assert.Equal(t, []string{"t1", "t2", "t3"}, action.executed)
	assert.Equal(t, 0, q.Len())

	// A second drain finds nothing.
	q.ProcessAll(ctx)
	assert.Len(t, action.executed, 3)

	// The cleared list was persisted before execution.
	reloaded, err := Open(path, nil)
	require.NoError(t, err)
	assert.Equal(t, 0, reloaded.Len())
}

func TestQueue_RestoredTasksAreDrained(t *testing.T) {
	path := filepath.Join(t.TempDir(), "queue.json")
	ctx := context.Background()

	q, err := Open(path, nil)
	require.NoError(t, err)
	require.NoError(t, q.Enqueue(ctx, task("t1")))

	// Simulated restart: reopen with handlers attached.
	action := &recordingAction{}
	reloaded, err := Open(path, map[string]Action{domain.ActionAlerts: action})
	require.NoError(t, err)

	reloaded.ProcessAll(ctx)
	assert.Equal(t, []string{"t1"}, action.executed)
}

func TestQueue_ActionFailureDoesNotAbortDrain(t *testing.T) {
	path := filepath.Join(t.TempDir(), "queue.json")
	ctx := context.Background()

	failing := &recordingAction{err: errors.New("store down")}
	ok := &recordingAction{}
	q, err := Open(path, map[string]Action{
		"tp":     failing,
		"alerts": ok,
	})
	require.NoError(t, err)

	require.NoError(t, q.Enqueue(ctx, task("t1", "tp", "alerts")))
	require.NoError(t, q.Enqueue(ctx, task("t2", "alerts")))

	q.ProcessAll(ctx)

	assert.Equal(t, []string{"t1"}, failing.executed)
	assert.Equal(t, []string{"t1", "t2"}, ok.executed, "later actions and tasks still run")
}

func TestQueue_UnknownActionSkipped(t *testing.T) {
	path := filepath.Join(t.TempDir(), "queue.json")
	ctx := context.Background()

	action := &recordingAction{}
	q, err := Open(path, map[string]Action{domain.ActionAlerts: action})
	require.NoError(t, err)

	require.NoError(t, q.Enqueue(ctx, task("t1", "mystery", domain.ActionAlerts)))
	q.ProcessAll(ctx)

	assert.Equal(t, []string{"t1"}, action.executed)
}

func TestQueue_RejectsTaskWithoutID(t *testing.T) {
	q, err := Open(filepath.Join(t.TempDir(), "queue.json"), nil)
	require.NoError(t, err)
	assert.Error(t, q.Enqueue(context.Background(), &domain.PostTradeTask{}))
}

func TestTPLadderAction(t *testing.T) {
	rules := memory.NewExitRuleStore()
	action := NewTPLadderAction(rules)

	tk := task("t1", domain.ActionTPLadder)
	tk.Metadata = map[string]string{
		MetaTPLadder: `[{"gainPct":0.5,"sellPct":0.5},{"gainPct":1.0,"sellPct":1.0}]`,
	}

	require.NoError(t, action.Execute(context.Background(), tk))

	got, err := rules.GetByWalletMint(context.Background(), "u1", "w1", tk.Mint)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, domain.RuleKindTPLadder, got[0].Kind)
	assert.Equal(t, 0.5, got[0].GainPct)
	assert.Equal(t, 1.0, got[1].GainPct)
}

func TestTPLadderAction_MissingMetadata(t *testing.T) {
	action := NewTPLadderAction(memory.NewExitRuleStore())
	assert.Error(t, action.Execute(context.Background(), task("t1", domain.ActionTPLadder)))
}

func TestTrailingStopAction(t *testing.T) {
	rules := memory.NewExitRuleStore()
	action := NewTrailingStopAction(rules)

	tk := task("t1", domain.ActionTrailingStop)
	tk.Metadata = map[string]string{MetaTrailingStopPct: "0.15"}

	require.NoError(t, action.Execute(context.Background(), tk))

	got, err := rules.GetByWalletMint(context.Background(), "u1", "w1", tk.Mint)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, domain.RuleKindTrailingStop, got[0].Kind)
	assert.Equal(t, 0.15, got[0].TrailPct)
}

type recordingNotifier struct {
	notified []string
}

func (n *recordingNotifier) Notify(_ context.Context, task *domain.PostTradeTask) error {
	n.notified = append(n.notified, task.TaskID)
	return nil
}

func TestAlertsAction(t *testing.T) {
	notifier := &recordingNotifier{}
	action := NewAlertsAction(notifier)

	require.NoError(t, action.Execute(context.Background(), task("t1")))
	assert.Equal(t, []string{"t1"}, notifier.notified)

	// Nil notifier is a no-op, not an error.
	assert.NoError(t, NewAlertsAction(nil).Execute(context.Background(), task("t2")))
}
