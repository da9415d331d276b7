package journal

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	xerrors "AgentKit-EVM/internal/errors"
)

func requested(id string) *Record {
	return &Record{
		ID:          id,
		Description: "transfer",
		ChainID:     1,
		Ops:         json.RawMessage(`[]`),
	}
}

func TestMemoryStoreLifecycle(t *testing.T) {
	t.Parallel()
	store := NewMemoryStore()
	ctx := context.Background()

	if err := store.SaveRequested(ctx, requested("i1")); err != nil {
		t.Fatalf("save: %v", err)
	}

	record, err := store.Get(ctx, "i1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if record.Status != StatusRequested {
		t.Fatalf("新流水状态应为 requested: %s", record.Status)
	}
	if record.CreatedAt == 0 || record.UpdatedAt == 0 {
		t.Fatalf("时间戳应被填充: %+v", record)
	}

	if err := store.MarkCompleted(ctx, "i1", "0xhash", []string{"0xsig"}); err != nil {
		t.Fatalf("mark completed: %v", err)
	}
	record, _ = store.Get(ctx, "i1")
	if record.Status != StatusCompleted || record.Hash != "0xhash" || len(record.Signatures) != 1 {
		t.Fatalf("completed 流水不符: %+v", record)
	}

	if err := store.MarkFailed(ctx, "i1", "boom"); err != nil {
		t.Fatalf("mark failed: %v", err)
	}
	record, _ = store.Get(ctx, "i1")
	if record.Status != StatusFailed || record.LastError != "boom" {
		t.Fatalf("failed 流水不符: %+v", record)
	}
}

func TestMemoryStoreMissingRecord(t *testing.T) {
	t.Parallel()
	store := NewMemoryStore()
	ctx := context.Background()

	if _, err := store.Get(ctx, "nope"); !xerrors.HasCode(err, xerrors.CodeStorageFailure) {
		t.Fatalf("expected STORAGE_FAILURE, got %v", err)
	}
	if err := store.MarkCompleted(ctx, "nope", "", nil); err == nil {
		t.Fatalf("更新不存在的流水应报错")
	}
	if err := store.SaveRequested(ctx, &Record{}); !xerrors.HasCode(err, xerrors.CodeInvalidArgument) {
		t.Fatalf("缺少 ID 应报 INVALID_ARGUMENT, got %v", err)
	}
}

func TestMemoryStoreListLatest(t *testing.T) {
	t.Parallel()
	store := NewMemoryStore()
	ctx := context.Background()

	for _, id := range []string{"a", "b", "c"} {
		if err := store.SaveRequested(ctx, requested(id)); err != nil {
			t.Fatalf("save %s: %v", id, err)
		}
	}

	base := time.Now().Unix()
	store.mu.Lock()
	store.records["a"].UpdatedAt = base - 30
	store.records["b"].UpdatedAt = base - 10
	store.records["c"].UpdatedAt = base - 20
	store.mu.Unlock()

	latest, err := store.ListLatest(ctx, 2)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(latest) != 2 {
		t.Fatalf("expected 2 records, got %d", len(latest))
	}
	if latest[0].ID != "b" || latest[1].ID != "c" {
		t.Fatalf("应按更新时间倒序: %s, %s", latest[0].ID, latest[1].ID)
	}
}

// 返回的记录是副本，调用方修改不应污染存储。
func TestMemoryStoreReturnsClones(t *testing.T) {
	t.Parallel()
	store := NewMemoryStore()
	ctx := context.Background()

	if err := store.SaveRequested(ctx, requested("i1")); err != nil {
		t.Fatalf("save: %v", err)
	}
	record, _ := store.Get(ctx, "i1")
	record.Description = "mutated"

	fresh, _ := store.Get(ctx, "i1")
	if fresh.Description != "transfer" {
		t.Fatalf("存储内部状态被外部修改污染")
	}
}
