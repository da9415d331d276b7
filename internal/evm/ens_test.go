package evm

import (
	"context"
	"testing"

	"github.com/ethereum/go-ethereum/common"
)

// EIP-137 的参考向量。
func TestNamehash(t *testing.T) {
	t.Parallel()
	cases := []struct {
		name string
		want string
	}{
		{"", "0x0000000000000000000000000000000000000000000000000000000000000000"},
		{"eth", "0x93cdeb708b7545dc668eb9280176169d1c33cfd8ed6f04690a0bcc88a93fc4ae"},
		{"foo.eth", "0xde9b09fd7c5f901e23a3f19fecc54828e9c848539801e86591bd9801b019f84f"},
	}
	for _, tc := range cases {
		if got := Namehash(tc.name).Hex(); got != tc.want {
			t.Fatalf("Namehash(%q) = %s, want %s", tc.name, got, tc.want)
		}
	}

	// 大小写不敏感。
	if Namehash("Foo.ETH") != Namehash("foo.eth") {
		t.Fatalf("Namehash 应对名称做小写归一化")
	}
}

func TestResolveNamePassesThroughHexAddress(t *testing.T) {
	t.Parallel()
	addr := "0x00000000000000000000000000000000000000aa"
	// 字面地址不需要任何链上调用，客户端传 nil 也能工作。
	got, err := ResolveName(context.Background(), nil, addr)
	if err != nil {
		t.Fatalf("ResolveName: %v", err)
	}
	if got != common.HexToAddress(addr) {
		t.Fatalf("ResolveName(%s) = %s", addr, got.Hex())
	}
}

func TestResolveNameRejectsEmpty(t *testing.T) {
	t.Parallel()
	if _, err := ResolveName(context.Background(), nil, "   "); err == nil {
		t.Fatalf("空名称应报错")
	}
}

func TestIsAddress(t *testing.T) {
	t.Parallel()
	if !IsAddress("0x00000000000000000000000000000000000000aa") {
		t.Fatalf("合法地址被拒绝")
	}
	if IsAddress("vitalik.eth") {
		t.Fatalf("ENS 名称不是字面地址")
	}
}
