package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "agentkit.json")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("写入配置失败: %v", err)
	}
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	t.Parallel()
	path := writeConfig(t, `{}`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	baseDir := filepath.Dir(path)
	if cfg.Chains.File != filepath.Join(baseDir, "chains.yaml") {
		t.Fatalf("链定义默认路径不符: %s", cfg.Chains.File)
	}
	if cfg.Signer.PrivateKeyEnv != "AGENTKIT_PRIVATE_KEY" {
		t.Fatalf("默认私钥环境变量不符: %s", cfg.Signer.PrivateKeyEnv)
	}
	if cfg.Cache.Driver != "memory" || cfg.Journal.Driver != "memory" || cfg.Relay.Driver != "memory" {
		t.Fatalf("默认驱动应为 memory: %+v", cfg)
	}
	if cfg.Relay.Workers != 1 {
		t.Fatalf("默认 worker 数应为 1: %d", cfg.Relay.Workers)
	}
	if cfg.Log.Level != "info" || cfg.Log.Format != "json" {
		t.Fatalf("日志默认值不符: %+v", cfg.Log)
	}
	if cfg.Log.AuditDir != filepath.Join(baseDir, "logs") {
		t.Fatalf("审计目录默认值不符: %s", cfg.Log.AuditDir)
	}
}

func TestLoadResolvesRelativePaths(t *testing.T) {
	t.Parallel()
	path := writeConfig(t, `{
		"chains": {"file": "networks/chains.yaml"},
		"log": {"audit_dir": "audit"}
	}`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	baseDir := filepath.Dir(path)
	if cfg.Chains.File != filepath.Join(baseDir, "networks", "chains.yaml") {
		t.Fatalf("相对路径应以配置目录为基准: %s", cfg.Chains.File)
	}
	if cfg.Log.AuditDir != filepath.Join(baseDir, "audit") {
		t.Fatalf("审计目录相对路径不符: %s", cfg.Log.AuditDir)
	}
}

func TestLoadKeepsAbsolutePaths(t *testing.T) {
	t.Parallel()
	path := writeConfig(t, `{"chains": {"file": "/etc/agentkit/chains.yaml"}}`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Chains.File != "/etc/agentkit/chains.yaml" {
		t.Fatalf("绝对路径不应被改写: %s", cfg.Chains.File)
	}
}

func TestLoadErrors(t *testing.T) {
	t.Parallel()
	if _, err := Load(""); err == nil {
		t.Fatalf("空路径应报错")
	}
	if _, err := Load(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Fatalf("不存在的文件应报错")
	}
	if _, err := Load(writeConfig(t, `{not json`)); err == nil {
		t.Fatalf("非法 JSON 应报错")
	}
}
