package relay

import (
	"context"
	"encoding/json"
	"errors"
	"math/big"
	"sync"
	"testing"
	"time"

	"AgentKit-EVM/internal/journal"
	"AgentKit-EVM/internal/toolkit"

	"github.com/ethereum/go-ethereum/common"
)

type fakeExecutor struct {
	mu       sync.Mutex
	executed []string
	err      error
}

func (f *fakeExecutor) ExecuteIntent(_ context.Context, intent *toolkit.Intent) (*toolkit.Intent, error) {
	f.mu.Lock()
	f.executed = append(f.executed, intent.ID)
	f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	return intent, nil
}

func (f *fakeExecutor) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.executed)
}

func saveIntent(t *testing.T, store journal.Store, id string) {
	t.Helper()
	ops, err := json.Marshal(toolkit.Operations{
		toolkit.Call{To: common.Address{}, Value: big.NewInt(1)},
	})
	if err != nil {
		t.Fatalf("marshal ops: %v", err)
	}
	if err := store.SaveRequested(context.Background(), &journal.Record{
		ID:          id,
		Description: "transfer",
		ChainID:     1,
		Ops:         ops,
	}); err != nil {
		t.Fatalf("save record: %v", err)
	}
}

func TestWorkerExecutesRequestedIntent(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	store := journal.NewMemoryStore()
	queue := NewMemoryQueue(16)
	executor := &fakeExecutor{}
	worker := NewWorker(executor, store, queue)

	go func() {
		if err := worker.Start(ctx); err != nil && !errors.Is(err, context.Canceled) &&
			!errors.Is(err, context.DeadlineExceeded) {
			t.Errorf("worker exited: %v", err)
		}
	}()

	saveIntent(t, store, "i1")
	if err := queue.Publish(ctx, NewMessage("i1", 1)); err != nil {
		t.Fatalf("publish: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for executor.count() == 0 {
		if time.Now().After(deadline) {
			t.Fatalf("意图未被执行")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

// 非 requested 状态的意图直接跳过，保证重复投递安全。
func TestWorkerSkipsFinishedIntent(t *testing.T) {
	t.Parallel()
	store := journal.NewMemoryStore()
	executor := &fakeExecutor{}
	worker := NewWorker(executor, store, NewMemoryQueue(1))

	saveIntent(t, store, "done")
	if err := store.MarkCompleted(context.Background(), "done", "0xhash", nil); err != nil {
		t.Fatalf("mark completed: %v", err)
	}

	if err := worker.handle(context.Background(), NewMessage("done", 1)); err != nil {
		t.Fatalf("handle: %v", err)
	}
	if executor.count() != 0 {
		t.Fatalf("completed 意图不应被再次执行")
	}
}

// 消息与流水的目标链不一致时，以流水为准继续执行。
func TestWorkerTrustsJournalChain(t *testing.T) {
	t.Parallel()
	store := journal.NewMemoryStore()
	executor := &fakeExecutor{}
	worker := NewWorker(executor, store, NewMemoryQueue(1))

	saveIntent(t, store, "stale")
	if err := worker.handle(context.Background(), NewMessage("stale", 999)); err != nil {
		t.Fatalf("handle: %v", err)
	}
	if executor.count() != 1 {
		t.Fatalf("链不一致只告警，不应阻止执行")
	}
}

// 操作序列损坏时流水转为 failed。
func TestWorkerMarksCorruptIntentFailed(t *testing.T) {
	t.Parallel()
	store := journal.NewMemoryStore()
	executor := &fakeExecutor{}
	worker := NewWorker(executor, store, NewMemoryQueue(1))

	if err := store.SaveRequested(context.Background(), &journal.Record{
		ID:      "bad",
		ChainID: 1,
		Ops:     json.RawMessage(`not json`),
	}); err != nil {
		t.Fatalf("save: %v", err)
	}

	if err := worker.handle(context.Background(), NewMessage("bad", 1)); err == nil {
		t.Fatalf("损坏的意图应报错")
	}
	record, err := store.Get(context.Background(), "bad")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if record.Status != journal.StatusFailed {
		t.Fatalf("损坏的意图应标记为 failed: %s", record.Status)
	}
	if executor.count() != 0 {
		t.Fatalf("损坏的意图不应进入执行器")
	}
}

func TestWorkerUnknownIntent(t *testing.T) {
	t.Parallel()
	worker := NewWorker(&fakeExecutor{}, journal.NewMemoryStore(), NewMemoryQueue(1))
	if err := worker.handle(context.Background(), NewMessage("ghost", 1)); err == nil {
		t.Fatalf("不存在的意图应报错")
	}
}
