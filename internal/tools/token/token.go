// Package token 提供只读的资产查询工具：原生币余额、ERC-20 余额、授权
// 额度与代币元数据。decimals 与 symbol 在链上不可变，查询结果写入缓存
// 以减少重复的 RPC 调用。
package token

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"AgentKit-EVM/internal/evm"
	"AgentKit-EVM/internal/toolkit"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/jsonschema-go/jsonschema"
)

// metadataTTL 是代币元数据的缓存时长。
const metadataTTL = 10 * time.Minute

// Tools 返回资产查询工具集。
func Tools() []toolkit.Tool {
	return []toolkit.Tool{
		nativeBalanceTool(),
		tokenBalanceTool(),
		allowanceTool(),
		metadataTool(),
	}
}

func nativeBalanceTool() toolkit.Tool {
	return toolkit.Tool{
		Name:        "get_balance",
		Description: "Get the native currency balance of an address on a chain. The address can be a hex address or an ENS name; omit it to use the caller's own address.",
		Schema: &jsonschema.Schema{
			Type: "object",
			Properties: map[string]*jsonschema.Schema{
				"address": {Type: "string", Description: "Address or ENS name; defaults to the caller"},
				"chainId": {Type: "integer", Description: "Chain id to query; defaults to the first configured chain"},
			},
		},
		Execute: executeNativeBalance,
	}
}

func executeNativeBalance(ctx context.Context, client *toolkit.Client, args toolkit.Args) (any, error) {
	read, err := client.Get(args.ChainID())
	if err != nil {
		return nil, err
	}

	owner := client.GetAddress()
	if raw, ok := args.String("address"); ok && raw != "" {
		owner, err = evm.ResolveName(ctx, read, raw)
		if err != nil {
			return nil, err
		}
	}

	balance, err := read.BalanceAt(ctx, owner, nil)
	if err != nil {
		return nil, fmt.Errorf("查询余额失败: %w", err)
	}
	return map[string]any{
		"address": owner.Hex(),
		"balance": evm.FormatAmount(balance, evm.NativeDecimals),
		"wei":     balance.String(),
	}, nil
}

func tokenBalanceTool() toolkit.Tool {
	return toolkit.Tool{
		Name:        "get_token_balance",
		Description: "Get the ERC-20 token balance of an address, rendered in token units.",
		Schema: &jsonschema.Schema{
			Type: "object",
			Properties: map[string]*jsonschema.Schema{
				"token":   {Type: "string", Description: "ERC-20 token contract address"},
				"address": {Type: "string", Description: "Owner address or ENS name; defaults to the caller"},
				"chainId": {Type: "integer", Description: "Chain id to query; defaults to the first configured chain"},
			},
			Required: []string{"token"},
		},
		Execute: executeTokenBalance,
	}
}

func executeTokenBalance(ctx context.Context, client *toolkit.Client, args toolkit.Args) (any, error) {
	read, err := client.Get(args.ChainID())
	if err != nil {
		return nil, err
	}
	token, err := tokenAddress(args)
	if err != nil {
		return nil, err
	}

	owner := client.GetAddress()
	if raw, ok := args.String("address"); ok && raw != "" {
		owner, err = evm.ResolveName(ctx, read, raw)
		if err != nil {
			return nil, err
		}
	}

	balance, err := evm.TokenBalance(ctx, read, token, owner)
	if err != nil {
		return nil, err
	}
	decimals, err := cachedDecimals(ctx, client, args.ChainID(), token)
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"token":   token.Hex(),
		"address": owner.Hex(),
		"balance": evm.FormatAmount(balance, decimals),
		"raw":     balance.String(),
	}, nil
}

func allowanceTool() toolkit.Tool {
	return toolkit.Tool{
		Name:        "get_allowance",
		Description: "Get the ERC-20 allowance an owner has granted to a spender, rendered in token units.",
		Schema: &jsonschema.Schema{
			Type: "object",
			Properties: map[string]*jsonschema.Schema{
				"token":   {Type: "string", Description: "ERC-20 token contract address"},
				"owner":   {Type: "string", Description: "Owner address or ENS name; defaults to the caller"},
				"spender": {Type: "string", Description: "Spender address or ENS name"},
				"chainId": {Type: "integer", Description: "Chain id to query; defaults to the first configured chain"},
			},
			Required: []string{"token", "spender"},
		},
		Execute: executeAllowance,
	}
}

func executeAllowance(ctx context.Context, client *toolkit.Client, args toolkit.Args) (any, error) {
	read, err := client.Get(args.ChainID())
	if err != nil {
		return nil, err
	}
	token, err := tokenAddress(args)
	if err != nil {
		return nil, err
	}

	owner := client.GetAddress()
	if raw, ok := args.String("owner"); ok && raw != "" {
		owner, err = evm.ResolveName(ctx, read, raw)
		if err != nil {
			return nil, err
		}
	}
	spenderArg, _ := args.String("spender")
	spender, err := evm.ResolveName(ctx, read, spenderArg)
	if err != nil {
		return nil, err
	}

	allowance, err := evm.TokenAllowance(ctx, read, token, owner, spender)
	if err != nil {
		return nil, err
	}
	decimals, err := cachedDecimals(ctx, client, args.ChainID(), token)
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"token":     token.Hex(),
		"owner":     owner.Hex(),
		"spender":   spender.Hex(),
		"allowance": evm.FormatAmount(allowance, decimals),
		"raw":       allowance.String(),
	}, nil
}

func metadataTool() toolkit.Tool {
	return toolkit.Tool{
		Name:        "get_token_metadata",
		Description: "Get the symbol and decimals of an ERC-20 token.",
		Schema: &jsonschema.Schema{
			Type: "object",
			Properties: map[string]*jsonschema.Schema{
				"token":   {Type: "string", Description: "ERC-20 token contract address"},
				"chainId": {Type: "integer", Description: "Chain id to query; defaults to the first configured chain"},
			},
			Required: []string{"token"},
		},
		Execute: executeMetadata,
	}
}

func executeMetadata(ctx context.Context, client *toolkit.Client, args toolkit.Args) (any, error) {
	token, err := tokenAddress(args)
	if err != nil {
		return nil, err
	}
	decimals, err := cachedDecimals(ctx, client, args.ChainID(), token)
	if err != nil {
		return nil, err
	}
	symbol, err := cachedSymbol(ctx, client, args.ChainID(), token)
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"token":    token.Hex(),
		"symbol":   symbol,
		"decimals": decimals,
	}, nil
}

func tokenAddress(args toolkit.Args) (common.Address, error) {
	raw, _ := args.String("token")
	if !evm.IsAddress(raw) {
		return common.Address{}, fmt.Errorf("token 参数不是合法的合约地址: %s", raw)
	}
	return common.HexToAddress(raw), nil
}

// cachedDecimals 优先读缓存，未命中时回源并写入。缓存故障只降级为
// 直接回源，不影响查询结果。
func cachedDecimals(ctx context.Context, client *toolkit.Client, chainID uint64, token common.Address) (uint8, error) {
	key := cacheKey(chainID, token, "decimals")
	if c := client.Cache(); c != nil {
		if value, ok, err := c.Get(ctx, key); err == nil && ok {
			if parsed, err := strconv.ParseUint(value, 10, 8); err == nil {
				return uint8(parsed), nil
			}
		}
	}

	read, err := client.Get(chainID)
	if err != nil {
		return 0, err
	}
	decimals, err := evm.TokenDecimals(ctx, read, token)
	if err != nil {
		return 0, err
	}
	if c := client.Cache(); c != nil {
		_ = c.Set(ctx, key, strconv.FormatUint(uint64(decimals), 10), metadataTTL)
	}
	return decimals, nil
}

func cachedSymbol(ctx context.Context, client *toolkit.Client, chainID uint64, token common.Address) (string, error) {
	key := cacheKey(chainID, token, "symbol")
	if c := client.Cache(); c != nil {
		if value, ok, err := c.Get(ctx, key); err == nil && ok {
			return value, nil
		}
	}

	read, err := client.Get(chainID)
	if err != nil {
		return "", err
	}
	symbol, err := evm.TokenSymbol(ctx, read, token)
	if err != nil {
		return "", err
	}
	if c := client.Cache(); c != nil {
		_ = c.Set(ctx, key, symbol, metadataTTL)
	}
	return symbol, nil
}

func cacheKey(chainID uint64, token common.Address, field string) string {
	return "token:" + strconv.FormatUint(chainID, 10) + ":" + token.Hex() + ":" + field
}
