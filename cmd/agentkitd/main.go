package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"AgentKit-EVM/internal/cache"
	"AgentKit-EVM/internal/chain"
	"AgentKit-EVM/internal/config"
	"AgentKit-EVM/internal/evm"
	"AgentKit-EVM/internal/journal"
	"AgentKit-EVM/internal/relay"
	"AgentKit-EVM/internal/toolkit"
	"AgentKit-EVM/internal/tools/token"
	"AgentKit-EVM/internal/tools/transfer"
	"AgentKit-EVM/pkg/logger"

	"github.com/ethereum/go-ethereum/common"
)

// main 是 agentkitd 守护进程的入口。
func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		log.Fatalf("agentkitd 运行失败: %v", err)
	}
}

func run(ctx context.Context) error {
	configPath := os.Getenv("AGENTKIT_CONFIG")
	if configPath == "" {
		configPath = filepath.Join("configs", "agentkit.json")
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	if err := logger.Init(logger.Config{
		Level:    cfg.Log.Level,
		Format:   cfg.Log.Format,
		AuditDir: cfg.Log.AuditDir,
	}); err != nil {
		return err
	}
	defer func() {
		_ = logger.Sync()
	}()

	defs, err := chain.LoadDefinitions(cfg.Chains.File)
	if err != nil {
		return err
	}
	descs, urls, err := defs.Descriptors()
	if err != nil {
		return err
	}
	if len(descs) == 0 {
		return errors.New("链配置文件中没有定义任何链")
	}
	transports := make([]evm.Transport, len(urls))
	for i, url := range urls {
		transports[i] = evm.RPCTransport{URL: url}
	}

	cred, address, err := loadSigner(cfg.Signer)
	if err != nil {
		return err
	}

	dataCache, err := createCache(cfg.Cache)
	if err != nil {
		return err
	}
	defer dataCache.Close()

	intentJournal, err := createJournal(cfg.Journal)
	if err != nil {
		return err
	}
	defer intentJournal.Close()

	client, err := toolkit.NewClient(ctx, toolkit.Config{
		Chains:     descs,
		Transports: transports,
		Credential: cred,
		Address:    address,
	},
		toolkit.WithCache(dataCache),
		toolkit.WithJournal(intentJournal),
	)
	if err != nil {
		return err
	}
	defer client.Close()

	client.AddTools(transfer.Tools()...)
	client.AddTools(token.Tools()...)

	// 启用中继时，requested 意图通过队列异步执行。
	if cfg.Relay.Enabled {
		queue, err := createQueue(cfg.Relay)
		if err != nil {
			return err
		}
		defer queue.Close()

		worker := relay.NewWorker(client, intentJournal, queue,
			relay.WithWorkerCount(cfg.Relay.Workers),
		)
		workerCtx, workerCancel := context.WithCancel(ctx)
		defer workerCancel()
		go func() {
			if err := worker.Start(workerCtx); err != nil && !errors.Is(err, context.Canceled) {
				logger.L().Error("意图中继异常退出", "err", err)
			}
		}()
	}

	logger.L().Info("agentkitd 启动",
		"chains", len(descs),
		"read_only", client.ReadOnly(),
		"address", client.GetAddress().Hex(),
	)
	return serveMCP(ctx, client)
}

// loadSigner 从环境变量读取签名私钥。变量未设置时进程只读运行。
func loadSigner(cfg config.SignerConfig) (*evm.Credential, common.Address, error) {
	raw := strings.TrimSpace(os.Getenv(cfg.PrivateKeyEnv))
	if raw == "" {
		if cfg.Address == "" {
			return nil, common.Address{}, nil
		}
		if !evm.IsAddress(cfg.Address) {
			return nil, common.Address{}, fmt.Errorf("signer.address 不是合法地址: %s", cfg.Address)
		}
		return nil, common.HexToAddress(cfg.Address), nil
	}
	cred, err := evm.CredentialFromHex(raw)
	if err != nil {
		return nil, common.Address{}, fmt.Errorf("解析 %s 中的私钥失败: %w", cfg.PrivateKeyEnv, err)
	}
	return cred, common.Address{}, nil
}

func createCache(cfg config.CacheConfig) (cache.Cache, error) {
	switch cfg.Driver {
	case "", "memory":
		return cache.NewMemoryCache(), nil
	case "redis":
		return cache.NewRedisCache(cfg.Redis)
	default:
		return nil, fmt.Errorf("未知的缓存驱动: %s", cfg.Driver)
	}
}

func createJournal(cfg config.JournalConfig) (journal.Store, error) {
	switch cfg.Driver {
	case "", "memory":
		return journal.NewMemoryStore(), nil
	case "mysql":
		return journal.NewMySQLStore(cfg.DSN)
	default:
		return nil, fmt.Errorf("未知的流水驱动: %s", cfg.Driver)
	}
}

func createQueue(cfg config.RelayConfig) (relay.Queue, error) {
	switch cfg.Driver {
	case "", "memory":
		return relay.NewMemoryQueue(1024), nil
	case "rabbitmq":
		return relay.NewRabbitMQQueue(cfg.RabbitMQ)
	default:
		return nil, fmt.Errorf("未知的队列驱动: %s", cfg.Driver)
	}
}
