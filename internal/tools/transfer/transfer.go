// Package transfer 提供资产转移类工具：原生币转账、ERC-20 转账与授权。
// 每个工具都把调用翻译成一次意图构造，由调度器在候选链中选择 gas 最
// 便宜的可行链执行。
package transfer

import (
	"context"
	"fmt"
	"math/big"

	"AgentKit-EVM/internal/chain"
	"AgentKit-EVM/internal/evm"
	"AgentKit-EVM/internal/toolkit"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/math"
	"github.com/google/jsonschema-go/jsonschema"
)

// Tools 返回资产转移工具集。
func Tools() []toolkit.Tool {
	return []toolkit.Tool{
		nativeTransferTool(),
		erc20TransferTool(),
		erc20ApproveTool(),
	}
}

func nativeTransferTool() toolkit.Tool {
	return toolkit.Tool{
		Name:        "transfer_native",
		Description: "Transfer native currency (e.g. ETH) to a recipient. The recipient can be a hex address or an ENS name. Amount is a decimal string; \"max\" sends the full balance.",
		Schema: &jsonschema.Schema{
			Type: "object",
			Properties: map[string]*jsonschema.Schema{
				"to":      {Type: "string", Description: "Recipient address or ENS name"},
				"amount":  {Type: "string", Description: "Decimal amount in native units, or \"max\""},
				"chainId": {Type: "integer", Description: "Optional chain id to pin the transfer to"},
			},
			Required: []string{"to", "amount"},
		},
		Execute: executeNativeTransfer,
	}
}

func executeNativeTransfer(ctx context.Context, client *toolkit.Client, args toolkit.Args) (any, error) {
	to, _ := args.String("to")
	amount, _ := args.String("amount")
	sender := client.GetAddress()

	probe := func(ctx context.Context, client *toolkit.Client, desc chain.Descriptor) ([]toolkit.Operation, error) {
		read, err := client.Get(desc.ID)
		if err != nil {
			return nil, err
		}
		recipient, err := evm.ResolveName(ctx, read, to)
		if err != nil {
			return nil, err
		}
		balance, err := read.BalanceAt(ctx, sender, nil)
		if err != nil {
			return nil, fmt.Errorf("查询余额失败: %w", err)
		}

		value, err := evm.ParseAmount(amount, evm.NativeDecimals)
		if err != nil {
			return nil, err
		}
		// 原生币的 "max" 解释为当前全部余额，gas 从中扣除由节点估算时
		// 自然失败，这里不做预留。
		if value.Cmp(math.MaxBig256) == 0 {
			value = new(big.Int).Set(balance)
		}
		if balance.Cmp(value) < 0 {
			return nil, fmt.Errorf("余额不足: 持有 %s，需要 %s",
				evm.FormatAmount(balance, evm.NativeDecimals), evm.FormatAmount(value, evm.NativeDecimals))
		}
		if value.Sign() <= 0 {
			return nil, fmt.Errorf("转账金额必须大于 0")
		}

		return []toolkit.Operation{
			toolkit.Call{To: recipient, Value: value},
		}, nil
	}

	return client.CreateIntent(ctx, toolkit.BuildRequest{
		Description: fmt.Sprintf("transfer %s native to %s", amount, to),
		ChainID:     args.ChainID(),
		Probe:       probe,
	})
}

func erc20TransferTool() toolkit.Tool {
	return toolkit.Tool{
		Name:        "transfer_token",
		Description: "Transfer an ERC-20 token to a recipient. The token is a contract address; the recipient can be a hex address or an ENS name. Amount is a decimal string in token units; \"max\" sends the full balance.",
		Schema: &jsonschema.Schema{
			Type: "object",
			Properties: map[string]*jsonschema.Schema{
				"token":   {Type: "string", Description: "ERC-20 token contract address"},
				"to":      {Type: "string", Description: "Recipient address or ENS name"},
				"amount":  {Type: "string", Description: "Decimal amount in token units, or \"max\""},
				"chainId": {Type: "integer", Description: "Optional chain id to pin the transfer to"},
			},
			Required: []string{"token", "to", "amount"},
		},
		Execute: executeTokenTransfer,
	}
}

func executeTokenTransfer(ctx context.Context, client *toolkit.Client, args toolkit.Args) (any, error) {
	tokenArg, _ := args.String("token")
	to, _ := args.String("to")
	amount, _ := args.String("amount")
	sender := client.GetAddress()

	if !evm.IsAddress(tokenArg) {
		return nil, fmt.Errorf("token 参数不是合法的合约地址: %s", tokenArg)
	}
	token := common.HexToAddress(tokenArg)

	probe := func(ctx context.Context, client *toolkit.Client, desc chain.Descriptor) ([]toolkit.Operation, error) {
		read, err := client.Get(desc.ID)
		if err != nil {
			return nil, err
		}
		recipient, err := evm.ResolveName(ctx, read, to)
		if err != nil {
			return nil, err
		}
		decimals, err := evm.TokenDecimals(ctx, read, token)
		if err != nil {
			return nil, err
		}
		balance, err := evm.TokenBalance(ctx, read, token, sender)
		if err != nil {
			return nil, err
		}

		value, err := evm.ParseAmount(amount, decimals)
		if err != nil {
			return nil, err
		}
		if value.Cmp(math.MaxBig256) == 0 {
			value = new(big.Int).Set(balance)
		}
		if balance.Cmp(value) < 0 {
			return nil, fmt.Errorf("代币余额不足: 持有 %s，需要 %s",
				evm.FormatAmount(balance, decimals), evm.FormatAmount(value, decimals))
		}
		if value.Sign() <= 0 {
			return nil, fmt.Errorf("转账金额必须大于 0")
		}

		return []toolkit.Operation{
			toolkit.Call{To: token, Value: big.NewInt(0), Data: evm.PackTransfer(recipient, value)},
		}, nil
	}

	return client.CreateIntent(ctx, toolkit.BuildRequest{
		Description: fmt.Sprintf("transfer %s of token %s to %s", amount, tokenArg, to),
		ChainID:     args.ChainID(),
		Probe:       probe,
	})
}

func erc20ApproveTool() toolkit.Tool {
	return toolkit.Tool{
		Name:        "approve_token",
		Description: "Approve a spender to spend an ERC-20 token on behalf of the caller. Amount is a decimal string in token units; \"max\" grants an unlimited allowance.",
		Schema: &jsonschema.Schema{
			Type: "object",
			Properties: map[string]*jsonschema.Schema{
				"token":   {Type: "string", Description: "ERC-20 token contract address"},
				"spender": {Type: "string", Description: "Spender address or ENS name"},
				"amount":  {Type: "string", Description: "Decimal amount in token units, or \"max\" for unlimited"},
				"chainId": {Type: "integer", Description: "Optional chain id to pin the approval to"},
			},
			Required: []string{"token", "spender", "amount"},
		},
		Execute: executeTokenApprove,
	}
}

func executeTokenApprove(ctx context.Context, client *toolkit.Client, args toolkit.Args) (any, error) {
	tokenArg, _ := args.String("token")
	spenderArg, _ := args.String("spender")
	amount, _ := args.String("amount")

	if !evm.IsAddress(tokenArg) {
		return nil, fmt.Errorf("token 参数不是合法的合约地址: %s", tokenArg)
	}
	token := common.HexToAddress(tokenArg)

	probe := func(ctx context.Context, client *toolkit.Client, desc chain.Descriptor) ([]toolkit.Operation, error) {
		read, err := client.Get(desc.ID)
		if err != nil {
			return nil, err
		}
		spender, err := evm.ResolveName(ctx, read, spenderArg)
		if err != nil {
			return nil, err
		}
		decimals, err := evm.TokenDecimals(ctx, read, token)
		if err != nil {
			return nil, err
		}
		// approve 不要求持仓，"max" 直接授权 uint256 上限。
		value, err := evm.ParseAmount(amount, decimals)
		if err != nil {
			return nil, err
		}
		if value.Sign() <= 0 {
			return nil, fmt.Errorf("授权额度必须大于 0")
		}

		return []toolkit.Operation{
			toolkit.Call{To: token, Value: big.NewInt(0), Data: evm.PackApprove(spender, value)},
		}, nil
	}

	return client.CreateIntent(ctx, toolkit.BuildRequest{
		Description: fmt.Sprintf("approve %s to spend %s of token %s", spenderArg, amount, tokenArg),
		ChainID:     args.ChainID(),
		Probe:       probe,
	})
}
