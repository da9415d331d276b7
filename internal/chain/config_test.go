package chain

import (
	"os"
	"path/filepath"
	"testing"
)

func writeChainsFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "chains.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write chains file: %v", err)
	}
	return path
}

func TestLoadDefinitions(t *testing.T) {
	t.Parallel()
	path := writeChainsFile(t, `
chains:
  base:
    chain_id: 8453
    rpc_url: https://mainnet.base.org
  mainnet:
    chain_id: 1
    rpc_url: https://eth.example.org
    currency: ETH
  polygon:
    chain_id: 137
    rpc_url: https://polygon.example.org
    currency: POL
`)

	defs, err := LoadDefinitions(path)
	if err != nil {
		t.Fatalf("LoadDefinitions: %v", err)
	}
	descs, urls, err := defs.Descriptors()
	if err != nil {
		t.Fatalf("Descriptors: %v", err)
	}
	if len(descs) != 3 || len(urls) != 3 {
		t.Fatalf("expected 3 chains, got %d/%d", len(descs), len(urls))
	}

	// 按链 ID 升序，URL 与描述符索引对齐。
	if descs[0].ID != 1 || descs[1].ID != 137 || descs[2].ID != 8453 {
		t.Fatalf("chains not ordered by id: %+v", descs)
	}
	if urls[2] != "https://mainnet.base.org" {
		t.Fatalf("url alignment broken: %v", urls)
	}

	// 未填 currency 时默认 ETH。
	if descs[2].Currency != "ETH" {
		t.Fatalf("base 应默认 ETH，实际 %s", descs[2].Currency)
	}
}

func TestLoadDefinitionsMissingChainID(t *testing.T) {
	t.Parallel()
	path := writeChainsFile(t, `
chains:
  broken:
    rpc_url: https://example.org
`)
	defs, err := LoadDefinitions(path)
	if err != nil {
		t.Fatalf("LoadDefinitions: %v", err)
	}
	if _, _, err := defs.Descriptors(); err == nil {
		t.Fatalf("缺少 chain_id 应报错")
	}
}

func TestLoadDefinitionsEmptyPath(t *testing.T) {
	t.Parallel()
	defs, err := LoadDefinitions("")
	if err != nil {
		t.Fatalf("空路径应返回空定义: %v", err)
	}
	if len(defs.Chains) != 0 {
		t.Fatalf("expected no chains, got %d", len(defs.Chains))
	}
}

func TestLoadDefinitionsBadYAML(t *testing.T) {
	t.Parallel()
	path := writeChainsFile(t, "chains: [not a map")
	if _, err := LoadDefinitions(path); err == nil {
		t.Fatalf("非法 YAML 应报错")
	}
}
