package toolkit

import (
	"context"
	"log/slog"
	"time"

	"AgentKit-EVM/internal/cache"
	"AgentKit-EVM/internal/chain"
	xerrors "AgentKit-EVM/internal/errors"
	"AgentKit-EVM/internal/evm"
	"AgentKit-EVM/internal/journal"
	"AgentKit-EVM/pkg/logger"

	"github.com/ethereum/go-ethereum/common"
)

// Client 是工具调度器：校验工具调用的参数与链约束，再把自身作为能力
// 句柄传给工具执行体，工具通过它访问连接池。
type Client struct {
	pool     *Pool
	registry *Registry
	cred     *evm.Credential
	address  common.Address
	cache    cache.Cache
	journal  journal.Store
	log      *slog.Logger

	// 每次链上读操作（探测、gas 查询）的超时上限。
	callTimeout time.Duration
	// 等待交易上链的超时上限。
	confirmTimeout time.Duration
	// 轮询回执的间隔。
	confirmPoll time.Duration
}

// Config 描述 Client 的构造参数。Credential 与 Address 二选一：
// 提供 Credential 时全部链启用写客户端，否则 Client 只读，Address
// 仅作为身份标识。
type Config struct {
	Chains     []chain.Descriptor
	Transports []evm.Transport
	Credential *evm.Credential
	Address    common.Address
}

// ClientOption 定义可选配置。
type ClientOption func(*Client)

// WithCache 注入外部数据缓存，供工具查询代币元数据等使用。
func WithCache(c cache.Cache) ClientOption {
	return func(client *Client) {
		client.cache = c
	}
}

// WithJournal 注入意图流水存储。
func WithJournal(store journal.Store) ClientOption {
	return func(client *Client) {
		client.journal = store
	}
}

// WithLogger 覆盖默认日志器。
func WithLogger(log *slog.Logger) ClientOption {
	return func(client *Client) {
		client.log = log
	}
}

// WithCallTimeout 设置单次链上读操作的超时。
func WithCallTimeout(timeout time.Duration) ClientOption {
	return func(client *Client) {
		if timeout > 0 {
			client.callTimeout = timeout
		}
	}
}

// WithConfirmTimeout 设置等待交易上链的超时。
func WithConfirmTimeout(timeout time.Duration) ClientOption {
	return func(client *Client) {
		if timeout > 0 {
			client.confirmTimeout = timeout
		}
	}
}

// NewClient 建立全部链连接并返回调度器。
func NewClient(ctx context.Context, cfg Config, opts ...ClientOption) (*Client, error) {
	pool, err := NewPool(ctx, cfg.Chains, cfg.Transports, cfg.Credential)
	if err != nil {
		return nil, err
	}

	client := &Client{
		pool:           pool,
		registry:       NewRegistry(),
		cred:           cfg.Credential,
		address:        cfg.Address,
		log:            logger.Named("toolkit"),
		callTimeout:    30 * time.Second,
		confirmTimeout: 2 * time.Minute,
		confirmPoll:    2 * time.Second,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(client)
		}
	}
	return client, nil
}

// AddTools 合并一批工具，同名覆盖，支持调用方增量组装工具集。
func (c *Client) AddTools(tools ...Tool) {
	c.registry.Add(tools...)
}

// Tools 返回已注册的全部工具。
func (c *Client) Tools() []Tool {
	return c.registry.List()
}

// GetAddress 返回调度器的签名身份：有凭证时返回凭证推导的地址，
// 只读模式下返回构造时提供的地址。
func (c *Client) GetAddress() common.Address {
	if c.cred != nil {
		return c.cred.Address()
	}
	return c.address
}

// ReadOnly 判断调度器是否处于只读模式。
func (c *Client) ReadOnly() bool {
	return c.cred == nil
}

// Get 返回指定链的读客户端，chainID 为 0 时取第一条配置链。
func (c *Client) Get(chainID uint64) (evm.ReadClient, error) {
	return c.pool.Get(chainID)
}

// GetWrite 返回指定链的写客户端；只读模式下返回 false。
func (c *Client) GetWrite(chainID uint64) (evm.WriteClient, bool) {
	return c.pool.GetWrite(chainID)
}

// AllChains 返回调度器配置的全部链。
func (c *Client) AllChains() []chain.Descriptor {
	return c.pool.AllChains()
}

// FilterSupportedChains 求配置链与工具支持链的交集。
func (c *Client) FilterSupportedChains(supported []chain.Descriptor, chainID uint64) ([]chain.Descriptor, error) {
	return c.pool.FilterSupportedChains(supported, chainID)
}

// Cache 返回注入的缓存，未配置时为 nil。
func (c *Client) Cache() cache.Cache {
	return c.cache
}

// Close 释放全部链连接。
func (c *Client) Close() {
	c.pool.Close()
}

// Execute 按名称执行工具。校验顺序固定为：工具存在 → 链支持 → 参数
// schema，全部通过后才会进入工具执行体，因此工具内部可以假定参数
// 已经是良构的。校验失败发生在任何网络调用之前。
func (c *Client) Execute(ctx context.Context, name string, rawArgs map[string]any) (any, error) {
	tool, ok := c.registry.Get(name)
	if !ok {
		return nil, xerrors.Newf(xerrors.CodeToolNotFound, "未注册的工具: %s", name)
	}

	args := Args(rawArgs)
	if args == nil {
		args = Args{}
	}

	if chainID := args.ChainID(); chainID != 0 && tool.SupportedChains != nil {
		if !chain.Contains(tool.SupportedChains, chainID) {
			return nil, xerrors.Newf(xerrors.CodeUnsupportedChain,
				"工具 %s 不支持链 %d，支持的链: %v", name, chainID, chain.Names(tool.SupportedChains))
		}
	}

	if tool.Schema != nil {
		resolved, err := tool.Schema.Resolve(nil)
		if err != nil {
			return nil, xerrors.Wrap(xerrors.CodeValidation, err, "工具 "+name+" 的参数 schema 非法")
		}
		if err := resolved.Validate(map[string]any(args)); err != nil {
			return nil, xerrors.Wrap(xerrors.CodeValidation, err, "工具 "+name+" 的参数校验失败")
		}
	}

	c.log.Debug("执行工具", "tool", name)
	result, err := tool.Execute(ctx, c, args)
	if err != nil {
		c.log.Warn("工具执行失败", "tool", name, "err", err)
		return nil, err
	}
	return result, nil
}
