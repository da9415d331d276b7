package evm

import (
	"context"
	"fmt"
	"strings"

	gethcore "github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// ensRegistry is the ENS registry deployed at the same address on mainnet and
// the major testnets.
var ensRegistry = common.HexToAddress("0x00000000000C2E074eC69A0dFb2997BA6C7d2e1e")

var (
	selectorResolver = crypto.Keccak256([]byte("resolver(bytes32)"))[:4]
	selectorAddr     = crypto.Keccak256([]byte("addr(bytes32)"))[:4]
)

// IsAddress reports whether s is a literal hex address.
func IsAddress(s string) bool {
	return common.IsHexAddress(s)
}

// ResolveName resolves an ENS name to an address via the registry on the
// given chain. Literal hex addresses pass through unchanged.
func ResolveName(ctx context.Context, client ReadClient, name string) (common.Address, error) {
	name = strings.TrimSpace(name)
	if common.IsHexAddress(name) {
		return common.HexToAddress(name), nil
	}
	if name == "" {
		return common.Address{}, fmt.Errorf("地址不能为空")
	}

	node := Namehash(name)

	resolverOut, err := staticCall(ctx, client, ensRegistry, selectorResolver, node)
	if err != nil {
		return common.Address{}, fmt.Errorf("查询 %s 的 resolver 失败: %w", name, err)
	}
	resolver := common.BytesToAddress(resolverOut)
	if resolver == (common.Address{}) {
		return common.Address{}, fmt.Errorf("名称 %s 没有配置 resolver", name)
	}

	addrOut, err := staticCall(ctx, client, resolver, selectorAddr, node)
	if err != nil {
		return common.Address{}, fmt.Errorf("解析名称 %s 失败: %w", name, err)
	}
	addr := common.BytesToAddress(addrOut)
	if addr == (common.Address{}) {
		return common.Address{}, fmt.Errorf("名称 %s 未解析到地址", name)
	}
	return addr, nil
}

// Namehash implements the EIP-137 recursive name hash.
func Namehash(name string) common.Hash {
	node := common.Hash{}
	if name == "" {
		return node
	}
	labels := strings.Split(strings.ToLower(name), ".")
	for i := len(labels) - 1; i >= 0; i-- {
		labelHash := crypto.Keccak256([]byte(labels[i]))
		node = common.BytesToHash(crypto.Keccak256(node.Bytes(), labelHash))
	}
	return node
}

func staticCall(ctx context.Context, client ReadClient, to common.Address, selector []byte, node common.Hash) ([]byte, error) {
	data := make([]byte, 0, 36)
	data = append(data, selector...)
	data = append(data, node.Bytes()...)
	out, err := client.CallContract(ctx, gethcore.CallMsg{To: &to, Data: data}, nil)
	if err != nil {
		return nil, err
	}
	if len(out) < 32 {
		return nil, fmt.Errorf("合约返回了长度异常的数据 (%d 字节)", len(out))
	}
	return out[:32], nil
}
