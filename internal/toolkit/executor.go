package toolkit

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	xerrors "AgentKit-EVM/internal/errors"
	"AgentKit-EVM/internal/evm"

	gethcore "github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	coretypes "github.com/ethereum/go-ethereum/core/types"
)

// ExecutionResult 汇总一次执行的产物：交易哈希（多笔时用分号连接）与
// 按请求顺序排列的签名。对应类别没有操作时字段为零值。
type ExecutionResult struct {
	Hash       string   `json:"hash,omitempty"`
	Signatures []string `json:"signatures,omitempty"`
}

// ExecuteOps 在指定链上严格顺序执行交易操作：前一笔交易确认上链之前
// 绝不提交下一笔，因为后续操作可能依赖前序操作的状态变更（比如先
// approve 再 transferFrom）。任何一步失败即中止剩余序列并向上传播，
// 已上链的操作不回滚。
func (c *Client) ExecuteOps(ctx context.Context, calls []Call, chainID uint64) (string, error) {
	write, ok := c.pool.GetWrite(chainID)
	if !ok {
		return "", xerrors.Newf(xerrors.CodeNoWalletClient, "链 %d 没有可用的签名客户端", chainID)
	}
	read, err := c.pool.Get(chainID)
	if err != nil {
		return "", xerrors.Wrap(xerrors.CodeNoPublicClient, err, "缺少确认交易所需的读客户端")
	}

	hashes := make([]string, 0, len(calls))
	for i, call := range calls {
		to := call.To
		hash, err := write.SendCall(ctx, &to, call.Value, call.Data)
		if err != nil {
			return "", xerrors.Wrap(xerrors.CodeExecutionFailure, err,
				"第 "+strconv.Itoa(i+1)+" 步操作提交失败")
		}
		if err := c.waitForReceipt(ctx, read, hash); err != nil {
			return "", err
		}
		hashes = append(hashes, hash.Hex())
	}

	return strings.Join(hashes, ";"), nil
}

// ExecuteSigns 按请求顺序处理签名操作，不涉及链上提交与确认。
func (c *Client) ExecuteSigns(ctx context.Context, signs []Operation, chainID uint64) ([]string, error) {
	write, ok := c.pool.GetWrite(chainID)
	if !ok {
		return nil, xerrors.Newf(xerrors.CodeNoWalletClient, "链 %d 没有可用的签名客户端", chainID)
	}

	signatures := make([]string, 0, len(signs))
	for _, op := range signs {
		var (
			sig []byte
			err error
		)
		switch v := op.(type) {
		case SignMessage:
			sig, err = write.SignMessage(ctx, []byte(v.Message))
		case SignTypedData:
			sig, err = write.SignTypedData(ctx, v.TypedData)
		default:
			return nil, xerrors.Newf(xerrors.CodeInvalidArgument, "操作 %T 不是签名请求", op)
		}
		if err != nil {
			return nil, xerrors.Wrap(xerrors.CodeExecutionFailure, err, "签名失败")
		}
		signatures = append(signatures, hexutil.Encode(sig))
	}
	return signatures, nil
}

// ExecuteOperations 把混合的操作序列拆分为交易与签名两类，分别交给
// 对应的执行器，返回各自的结果（某一类为空则对应字段缺省）。
func (c *Client) ExecuteOperations(ctx context.Context, ops []Operation, chainID uint64) (*ExecutionResult, error) {
	var calls []Call
	var signs []Operation
	for _, op := range ops {
		switch v := op.(type) {
		case Call:
			calls = append(calls, v)
		case SignMessage, SignTypedData:
			signs = append(signs, v)
		default:
			return nil, xerrors.Newf(xerrors.CodeInvalidArgument, "未知的操作类型 %T", op)
		}
	}

	result := &ExecutionResult{}
	if len(calls) > 0 {
		hash, err := c.ExecuteOps(ctx, calls, chainID)
		if err != nil {
			return nil, err
		}
		result.Hash = hash
	}
	if len(signs) > 0 {
		sigs, err := c.ExecuteSigns(ctx, signs, chainID)
		if err != nil {
			return nil, err
		}
		result.Signatures = sigs
	}
	return result, nil
}

// waitForReceipt 轮询回执直到交易上链。回执显示交易回滚时同样按失败
// 处理，避免后续操作建立在无效状态上。
func (c *Client) waitForReceipt(ctx context.Context, read evm.ReadClient, hash common.Hash) error {
	waitCtx, cancel := context.WithTimeout(ctx, c.confirmTimeout)
	defer cancel()

	ticker := time.NewTicker(c.confirmPoll)
	defer ticker.Stop()

	for {
		receipt, err := read.TransactionReceipt(waitCtx, hash)
		if err == nil && receipt != nil {
			if receipt.Status == coretypes.ReceiptStatusFailed {
				return xerrors.Newf(xerrors.CodeExecutionFailure, "交易 %s 已上链但执行回滚", hash.Hex())
			}
			return nil
		}
		if err != nil && !errors.Is(err, gethcore.NotFound) {
			return xerrors.Wrap(xerrors.CodeExecutionFailure, err, "查询交易 "+hash.Hex()+" 回执失败")
		}

		select {
		case <-waitCtx.Done():
			if errors.Is(waitCtx.Err(), context.DeadlineExceeded) {
				return xerrors.Newf(xerrors.CodeTimeout, "等待交易 %s 上链超时", hash.Hex())
			}
			return waitCtx.Err()
		case <-ticker.C:
		}
	}
}
