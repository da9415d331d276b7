package toolkit

import (
	"time"

	xerrors "AgentKit-EVM/internal/errors"

	"github.com/google/uuid"
)

// Intent 是返回给调用方的意图单元：一段人类可读的描述、目标链与有序的
// 操作序列。未执行时（没有写客户端）hash 与 signatures 为空，称为
// requested；执行完成后带上交易哈希或签名，称为 completed。
type Intent struct {
	ID          string     `json:"id"`
	Description string     `json:"intent"`
	ChainID     uint64     `json:"chain"`
	Ops         Operations `json:"ops"`
	Hash        string     `json:"hash,omitempty"`
	Signatures  []string   `json:"signatures,omitempty"`
	CreatedAt   int64      `json:"created_at"`
}

// NewIntent 创建一个 requested 状态的意图。操作序列不允许为空。
func NewIntent(description string, chainID uint64, ops []Operation) (*Intent, error) {
	if len(ops) == 0 {
		return nil, xerrors.New(xerrors.CodeInvalidArgument, "意图的操作序列不能为空")
	}
	if chainID == 0 {
		return nil, xerrors.New(xerrors.CodeInvalidArgument, "意图缺少目标链")
	}
	return &Intent{
		ID:          uuid.NewString(),
		Description: description,
		ChainID:     chainID,
		Ops:         Operations(ops),
		CreatedAt:   time.Now().Unix(),
	}, nil
}

// Completed 判断意图是否已经执行完成。
func (i *Intent) Completed() bool {
	if i == nil {
		return false
	}
	return i.Hash != "" || len(i.Signatures) > 0
}
