package toolkit

import (
	"context"
	"encoding/json"
	"fmt"
	"math/big"
	"strings"
	"sync"

	"AgentKit-EVM/internal/chain"
	xerrors "AgentKit-EVM/internal/errors"
	"AgentKit-EVM/internal/journal"
	"AgentKit-EVM/pkg/logger"
)

// ProbeFunc 对单条候选链做可行性探测：读取决定操作能否成功所需的链上
// 状态（余额、精度、授权额度等），可行时返回该链上的操作序列。返回
// 错误表示"这条链不可行"，不会中断整体选择。
type ProbeFunc func(ctx context.Context, client *Client, desc chain.Descriptor) ([]Operation, error)

// BuildRequest 描述一次意图构造。
type BuildRequest struct {
	// Description 是面向用户的意图描述。
	Description string
	// ChainID 限定目标链，为 0 时在全部候选链中选择。
	ChainID uint64
	// SupportedChains 是发起工具声明的支持链，为空表示全链。
	SupportedChains []chain.Descriptor
	// Probe 探测单条链的可行性并构造操作。
	Probe ProbeFunc
}

// probeOutcome 把每条候选链的探测结果表达为显式的值而不是异常：
// 要么带着操作序列成功，要么带着原因失败。
type probeOutcome struct {
	desc chain.Descriptor
	ops  []Operation
	gas  *big.Int
	err  error
}

// CreateIntent 实现"最便宜的可行链"选择算法：
//
//  1. 候选链 = 配置链 ∩ 工具支持链 ∩（可选的）请求链；
//  2. 并发探测每条候选链的可行性，单链失败只淘汰该链；
//  3. 并发查询可行链的 gas 价格，选择最便宜的一条，平价时取链 ID 小者；
//  4. 在选中链上构造操作序列；
//  5. 没有写客户端时返回 requested 意图，否则顺序执行并返回 completed
//     意图。
//
// 所有候选链都不可行时返回 NoViableChain，错误信息逐条列出每条链的
// 失败原因。
func (c *Client) CreateIntent(ctx context.Context, req BuildRequest) (*Intent, error) {
	if req.Probe == nil {
		return nil, xerrors.New(xerrors.CodeInvalidArgument, "意图构造缺少探测函数")
	}

	candidates, err := c.pool.FilterSupportedChains(req.SupportedChains, req.ChainID)
	if err != nil {
		return nil, err
	}

	// 阶段一：并发探测。探测之间没有顺序约定，但选择必须等全部结束。
	outcomes := make([]probeOutcome, len(candidates))
	var wg sync.WaitGroup
	for i, desc := range candidates {
		wg.Add(1)
		go func(i int, desc chain.Descriptor) {
			defer wg.Done()
			probeCtx, cancel := context.WithTimeout(ctx, c.callTimeout)
			defer cancel()
			ops, err := req.Probe(probeCtx, c, desc)
			outcomes[i] = probeOutcome{desc: desc, ops: ops, err: err}
			if err == nil && len(ops) == 0 {
				outcomes[i].err = fmt.Errorf("探测未产生任何操作")
			}
		}(i, desc)
	}
	wg.Wait()

	viable := outcomes[:0:0]
	for _, outcome := range outcomes {
		if outcome.err == nil {
			viable = append(viable, outcome)
		}
	}
	if len(viable) == 0 {
		return nil, noViableChainError(req.Description, outcomes)
	}

	// 阶段二：并发获取可行链的 gas 价格。查询失败同样按不可行处理。
	wg = sync.WaitGroup{}
	for i := range viable {
		wg.Add(1)
		go func(outcome *probeOutcome) {
			defer wg.Done()
			gasCtx, cancel := context.WithTimeout(ctx, c.callTimeout)
			defer cancel()
			read, err := c.pool.Get(outcome.desc.ID)
			if err != nil {
				outcome.err = err
				return
			}
			gas, err := read.SuggestGasPrice(gasCtx)
			if err != nil {
				outcome.err = fmt.Errorf("查询 gas 价格失败: %w", err)
				return
			}
			outcome.gas = gas
		}(&viable[i])
	}
	wg.Wait()

	// 归约：gas 最低者胜出，平价时取链 ID 小的，保证选择结果确定。
	var selected *probeOutcome
	for i := range viable {
		outcome := &viable[i]
		if outcome.err != nil {
			continue
		}
		switch {
		case selected == nil:
			selected = outcome
		case outcome.gas.Cmp(selected.gas) < 0:
			selected = outcome
		case outcome.gas.Cmp(selected.gas) == 0 && outcome.desc.ID < selected.desc.ID:
			selected = outcome
		}
	}
	if selected == nil {
		return nil, noViableChainError(req.Description, viable)
	}

	intent, err := NewIntent(req.Description, selected.desc.ID, selected.ops)
	if err != nil {
		return nil, err
	}

	c.recordRequested(ctx, intent)

	// 没有写客户端：只返回构造好的意图，由调用方决定后续。
	if _, ok := c.pool.GetWrite(selected.desc.ID); !ok {
		c.log.Info("构造意图（未执行）",
			"intent", intent.ID, "chain", selected.desc.Label(), "ops", len(intent.Ops))
		return intent, nil
	}

	return c.ExecuteIntent(ctx, intent)
}

// ExecuteIntent 在意图的目标链上顺序执行全部操作，并回填哈希与签名。
func (c *Client) ExecuteIntent(ctx context.Context, intent *Intent) (*Intent, error) {
	if intent == nil || len(intent.Ops) == 0 {
		return nil, xerrors.New(xerrors.CodeInvalidArgument, "没有可执行的意图")
	}

	result, err := c.ExecuteOperations(ctx, intent.Ops, intent.ChainID)
	if err != nil {
		c.recordFailed(ctx, intent, err)
		return nil, err
	}
	intent.Hash = result.Hash
	intent.Signatures = result.Signatures

	c.recordCompleted(ctx, intent)
	c.log.Info("意图执行完成",
		"intent", intent.ID, "chain", intent.ChainID, "hash", intent.Hash)
	logger.Audit().Info("intent executed",
		"intent", intent.ID,
		"chain", intent.ChainID,
		"description", intent.Description,
		"hash", intent.Hash,
		"signatures", len(intent.Signatures),
	)
	return intent, nil
}

func noViableChainError(description string, outcomes []probeOutcome) error {
	reasons := make([]string, 0, len(outcomes))
	for _, outcome := range outcomes {
		reason := "不可行"
		if outcome.err != nil {
			reason = outcome.err.Error()
		}
		reasons = append(reasons, outcome.desc.Label()+": "+reason)
	}
	return xerrors.Newf(xerrors.CodeNoViableChain,
		"没有可以执行 %q 的链，已尝试 %s", description, strings.Join(reasons, "; "))
}

// journalRecord 把意图转成流水记录，操作序列以 JSON 形式落库。
func journalRecord(intent *Intent) *journal.Record {
	ops, err := json.Marshal(intent.Ops)
	if err != nil {
		ops = []byte("[]")
	}
	return &journal.Record{
		ID:          intent.ID,
		Description: intent.Description,
		ChainID:     intent.ChainID,
		Ops:         ops,
		Status:      journal.StatusRequested,
		CreatedAt:   intent.CreatedAt,
	}
}

func (c *Client) recordRequested(ctx context.Context, intent *Intent) {
	if c.journal == nil {
		return
	}
	if err := c.journal.SaveRequested(ctx, journalRecord(intent)); err != nil {
		c.log.Warn("记录意图失败", "intent", intent.ID, "err", err)
	}
}

func (c *Client) recordCompleted(ctx context.Context, intent *Intent) {
	if c.journal == nil {
		return
	}
	if err := c.journal.MarkCompleted(ctx, intent.ID, intent.Hash, intent.Signatures); err != nil {
		c.log.Warn("更新意图流水失败", "intent", intent.ID, "err", err)
	}
}

func (c *Client) recordFailed(ctx context.Context, intent *Intent, cause error) {
	if c.journal == nil {
		return
	}
	if err := c.journal.MarkFailed(ctx, intent.ID, cause.Error()); err != nil {
		c.log.Warn("更新意图流水失败", "intent", intent.ID, "err", err)
	}
}
