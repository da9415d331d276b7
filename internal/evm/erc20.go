package evm

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	gethcore "github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

const erc20ABIJSON = `[
	{"constant":true,"inputs":[],"name":"decimals","outputs":[{"name":"","type":"uint8"}],"type":"function"},
	{"constant":true,"inputs":[],"name":"symbol","outputs":[{"name":"","type":"string"}],"type":"function"},
	{"constant":true,"inputs":[{"name":"owner","type":"address"}],"name":"balanceOf","outputs":[{"name":"","type":"uint256"}],"type":"function"},
	{"constant":true,"inputs":[{"name":"owner","type":"address"},{"name":"spender","type":"address"}],"name":"allowance","outputs":[{"name":"","type":"uint256"}],"type":"function"},
	{"constant":false,"inputs":[{"name":"to","type":"address"},{"name":"amount","type":"uint256"}],"name":"transfer","outputs":[{"name":"","type":"bool"}],"type":"function"},
	{"constant":false,"inputs":[{"name":"spender","type":"address"},{"name":"amount","type":"uint256"}],"name":"approve","outputs":[{"name":"","type":"bool"}],"type":"function"},
	{"constant":false,"inputs":[{"name":"from","type":"address"},{"name":"to","type":"address"},{"name":"amount","type":"uint256"}],"name":"transferFrom","outputs":[{"name":"","type":"bool"}],"type":"function"}
]`

var erc20ABI = mustParseABI(erc20ABIJSON)

func mustParseABI(definition string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(definition))
	if err != nil {
		panic(fmt.Sprintf("parse ABI: %v", err))
	}
	return parsed
}

// PackTransfer encodes an ERC-20 transfer(to, amount) call.
func PackTransfer(to common.Address, amount *big.Int) []byte {
	data, err := erc20ABI.Pack("transfer", to, amount)
	if err != nil {
		panic(err)
	}
	return data
}

// PackApprove encodes an ERC-20 approve(spender, amount) call.
func PackApprove(spender common.Address, amount *big.Int) []byte {
	data, err := erc20ABI.Pack("approve", spender, amount)
	if err != nil {
		panic(err)
	}
	return data
}

// PackTransferFrom encodes an ERC-20 transferFrom(from, to, amount) call.
func PackTransferFrom(from, to common.Address, amount *big.Int) []byte {
	data, err := erc20ABI.Pack("transferFrom", from, to, amount)
	if err != nil {
		panic(err)
	}
	return data
}

// TokenDecimals reads the decimals of an ERC-20 token.
func TokenDecimals(ctx context.Context, client ReadClient, token common.Address) (uint8, error) {
	out, err := callToken(ctx, client, token, "decimals")
	if err != nil {
		return 0, err
	}
	decimals, ok := out[0].(uint8)
	if !ok {
		return 0, fmt.Errorf("代币 %s 返回了异常的 decimals", token.Hex())
	}
	return decimals, nil
}

// TokenSymbol reads the symbol of an ERC-20 token.
func TokenSymbol(ctx context.Context, client ReadClient, token common.Address) (string, error) {
	out, err := callToken(ctx, client, token, "symbol")
	if err != nil {
		return "", err
	}
	symbol, ok := out[0].(string)
	if !ok {
		return "", fmt.Errorf("代币 %s 返回了异常的 symbol", token.Hex())
	}
	return symbol, nil
}

// TokenBalance reads the ERC-20 balance of owner.
func TokenBalance(ctx context.Context, client ReadClient, token, owner common.Address) (*big.Int, error) {
	out, err := callToken(ctx, client, token, "balanceOf", owner)
	if err != nil {
		return nil, err
	}
	balance, ok := out[0].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("代币 %s 返回了异常的余额", token.Hex())
	}
	return balance, nil
}

// TokenAllowance reads the ERC-20 allowance granted by owner to spender.
func TokenAllowance(ctx context.Context, client ReadClient, token, owner, spender common.Address) (*big.Int, error) {
	out, err := callToken(ctx, client, token, "allowance", owner, spender)
	if err != nil {
		return nil, err
	}
	allowance, ok := out[0].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("代币 %s 返回了异常的授权额度", token.Hex())
	}
	return allowance, nil
}

func callToken(ctx context.Context, client ReadClient, token common.Address, method string, args ...any) ([]any, error) {
	data, err := erc20ABI.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("编码 %s 调用失败: %w", method, err)
	}
	raw, err := client.CallContract(ctx, gethcore.CallMsg{To: &token, Data: data}, nil)
	if err != nil {
		return nil, fmt.Errorf("调用代币 %s 的 %s 失败: %w", token.Hex(), method, err)
	}
	out, err := erc20ABI.Unpack(method, raw)
	if err != nil {
		return nil, fmt.Errorf("解码 %s 返回值失败: %w", method, err)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("代币 %s 的 %s 没有返回值", token.Hex(), method)
	}
	return out, nil
}
