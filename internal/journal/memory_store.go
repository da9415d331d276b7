package journal

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	xerrors "AgentKit-EVM/internal/errors"
)

// MemoryStore 把意图流水保存在内存中，主要用于测试与无持久化部署。
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]*Record
}

// NewMemoryStore 创建内存流水存储。
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[string]*Record)}
}

// SaveRequested 写入一条 requested 状态的流水。
func (s *MemoryStore) SaveRequested(_ context.Context, record *Record) error {
	if record == nil || strings.TrimSpace(record.ID) == "" {
		return xerrors.New(xerrors.CodeInvalidArgument, "流水缺少 ID")
	}
	now := time.Now().Unix()

	s.mu.Lock()
	defer s.mu.Unlock()
	clone := *record
	clone.Status = StatusRequested
	if clone.CreatedAt == 0 {
		clone.CreatedAt = now
	}
	clone.UpdatedAt = now
	s.records[clone.ID] = &clone
	return nil
}

// MarkCompleted 把流水置为 completed。
func (s *MemoryStore) MarkCompleted(_ context.Context, id, hash string, signatures []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	record, ok := s.records[id]
	if !ok {
		return xerrors.Newf(xerrors.CodeStorageFailure, "流水 %s 不存在", id)
	}
	record.Status = StatusCompleted
	record.Hash = hash
	record.Signatures = append([]string(nil), signatures...)
	record.LastError = ""
	record.UpdatedAt = time.Now().Unix()
	return nil
}

// MarkFailed 把流水置为 failed。
func (s *MemoryStore) MarkFailed(_ context.Context, id, reason string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	record, ok := s.records[id]
	if !ok {
		return xerrors.Newf(xerrors.CodeStorageFailure, "流水 %s 不存在", id)
	}
	record.Status = StatusFailed
	record.LastError = reason
	record.UpdatedAt = time.Now().Unix()
	return nil
}

// Get 按 ID 查询流水。
func (s *MemoryStore) Get(_ context.Context, id string) (*Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	record, ok := s.records[id]
	if !ok {
		return nil, xerrors.Newf(xerrors.CodeStorageFailure, "流水 %s 不存在", id)
	}
	clone := *record
	return &clone, nil
}

// ListLatest 按更新时间倒序返回最近的流水。
func (s *MemoryStore) ListLatest(_ context.Context, limit int) ([]*Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*Record, 0, len(s.records))
	for _, record := range s.records {
		clone := *record
		out = append(out, &clone)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].UpdatedAt != out[j].UpdatedAt {
			return out[i].UpdatedAt > out[j].UpdatedAt
		}
		return out[i].ID < out[j].ID
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Close 实现 Store 接口，内存存储无需清理。
func (s *MemoryStore) Close() error {
	return nil
}

var _ Store = (*MemoryStore)(nil)
