package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"AgentKit-EVM/internal/cache"
	"AgentKit-EVM/internal/relay"
)

// Config 描述了守护进程在启动阶段需要加载的核心配置。
type Config struct {
	Chains  ChainsConfig  `json:"chains"`
	Signer  SignerConfig  `json:"signer"`
	Cache   CacheConfig   `json:"cache"`
	Journal JournalConfig `json:"journal"`
	Relay   RelayConfig   `json:"relay"`
	Log     LogConfig     `json:"log"`
}

// ChainsConfig 指向链定义文件。
type ChainsConfig struct {
	// File 是 YAML 链定义文件的路径，相对路径以配置文件所在目录为基准。
	File string `json:"file"`
}

// SignerConfig 描述签名身份。PrivateKeyEnv 指定保存私钥十六进制串的
// 环境变量名，避免把私钥写进配置文件；为空时进程只读，Address 仅作为
// 身份标识。
type SignerConfig struct {
	PrivateKeyEnv string `json:"private_key_env"`
	Address       string `json:"address"`
}

// CacheConfig 选择缓存驱动。
type CacheConfig struct {
	Driver string            `json:"driver"`
	Redis  cache.RedisConfig `json:"redis"`
}

// JournalConfig 选择意图流水的持久化驱动。
type JournalConfig struct {
	Driver string `json:"driver"`
	DSN    string `json:"dsn"`
}

// RelayConfig 控制异步执行队列。Enabled 为 false 时意图在请求内同步
// 执行。
type RelayConfig struct {
	Enabled  bool                 `json:"enabled"`
	Driver   string               `json:"driver"`
	Workers  int                  `json:"workers"`
	RabbitMQ relay.RabbitMQConfig `json:"rabbitmq"`
}

// LogConfig 控制日志输出。
type LogConfig struct {
	Level    string `json:"level"`
	Format   string `json:"format"`
	AuditDir string `json:"audit_dir"`
}

// Load 负责解析指定路径的 JSON 配置文件。
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("配置文件路径为空")
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("打开配置文件失败: %w", err)
	}
	defer file.Close()

	content, err := io.ReadAll(file)
	if err != nil {
		return nil, fmt.Errorf("读取配置文件失败: %w", err)
	}

	var cfg Config
	if err := json.Unmarshal(content, &cfg); err != nil {
		return nil, fmt.Errorf("解析配置失败: %w", err)
	}

	cfg.applyDefaults(filepath.Dir(path))

	return &cfg, nil
}

// applyDefaults 在用户未填写部分字段时设置合理的默认值。
func (c *Config) applyDefaults(baseDir string) {
	if c.Chains.File == "" {
		c.Chains.File = "chains.yaml"
	}
	if !filepath.IsAbs(c.Chains.File) {
		c.Chains.File = filepath.Join(baseDir, c.Chains.File)
	}

	if c.Signer.PrivateKeyEnv == "" {
		c.Signer.PrivateKeyEnv = "AGENTKIT_PRIVATE_KEY"
	}

	if c.Cache.Driver == "" {
		c.Cache.Driver = "memory"
	}
	if c.Journal.Driver == "" {
		c.Journal.Driver = "memory"
	}

	if c.Relay.Driver == "" {
		c.Relay.Driver = "memory"
	}
	if c.Relay.Workers <= 0 {
		c.Relay.Workers = 1
	}

	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "json"
	}
	if c.Log.AuditDir == "" {
		c.Log.AuditDir = filepath.Join(baseDir, "logs")
	} else if !filepath.IsAbs(c.Log.AuditDir) {
		c.Log.AuditDir = filepath.Join(baseDir, c.Log.AuditDir)
	}
}
