package journal

import (
	"context"
	"encoding/json"
)

// Status 表示意图流水的状态。
type Status string

const (
	// StatusRequested 表示意图已构造但尚未执行。
	StatusRequested Status = "requested"
	// StatusCompleted 表示意图的全部操作已执行完成。
	StatusCompleted Status = "completed"
	// StatusFailed 表示执行过程中失败。
	StatusFailed Status = "failed"
)

// Record 是一条意图流水。Ops 保存操作序列的 JSON 编码，结构由
// toolkit 包定义。
type Record struct {
	ID          string          `json:"id"`
	Description string          `json:"description"`
	ChainID     uint64          `json:"chain_id"`
	Ops         json.RawMessage `json:"ops"`
	Status      Status          `json:"status"`
	Hash        string          `json:"hash,omitempty"`
	Signatures  []string        `json:"signatures,omitempty"`
	LastError   string          `json:"last_error,omitempty"`
	CreatedAt   int64           `json:"created_at"`
	UpdatedAt   int64           `json:"updated_at"`
}

// Store 定义意图流水的持久化接口。核心库在未注入 Store 时不落任何
// 持久状态。
type Store interface {
	// SaveRequested 写入一条 requested 状态的流水。
	SaveRequested(ctx context.Context, record *Record) error
	// MarkCompleted 把流水置为 completed 并记录哈希与签名。
	MarkCompleted(ctx context.Context, id, hash string, signatures []string) error
	// MarkFailed 把流水置为 failed 并记录失败原因。
	MarkFailed(ctx context.Context, id, reason string) error
	// Get 按 ID 查询流水。
	Get(ctx context.Context, id string) (*Record, error)
	// ListLatest 按更新时间倒序返回最近的流水。
	ListLatest(ctx context.Context, limit int) ([]*Record, error)
	// Close 释放底层资源。
	Close() error
}
