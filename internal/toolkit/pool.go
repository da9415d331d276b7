package toolkit

import (
	"context"
	"strings"

	"AgentKit-EVM/internal/chain"
	xerrors "AgentKit-EVM/internal/errors"
	"AgentKit-EVM/internal/evm"
)

// Pool 维护每条链的读客户端，以及（配置了签名凭证时）写客户端。
// 连接在构造时建立一次，随 Client 一起销毁，不做断线重连。
// 客户端由 Pool 独占持有，工具只是借用引用。
type Pool struct {
	chains []chain.Descriptor
	reads  map[uint64]evm.ReadClient
	writes map[uint64]evm.WriteClient
}

// NewPool 按 chains 与 transports 的索引对应关系建立连接。transports
// 数量少于 chains 时，第一个 transport 复用到余下的链。cred 非空时为每
// 条链创建写客户端。
func NewPool(ctx context.Context, chains []chain.Descriptor, transports []evm.Transport, cred *evm.Credential) (*Pool, error) {
	if len(chains) == 0 {
		return nil, xerrors.New(xerrors.CodeInitializationFailure, "至少需要配置一条链")
	}
	if len(transports) == 0 {
		return nil, xerrors.Wrap(xerrors.CodeInitializationFailure, evm.ErrNoTransport, "至少需要配置一个 transport")
	}

	pool := &Pool{
		chains: append([]chain.Descriptor(nil), chains...),
		reads:  make(map[uint64]evm.ReadClient, len(chains)),
		writes: make(map[uint64]evm.WriteClient),
	}

	for i, desc := range chains {
		transport := transports[0]
		if i < len(transports) {
			transport = transports[i]
		}
		read, err := transport.Dial(ctx, desc)
		if err != nil {
			pool.Close()
			return nil, xerrors.Wrap(xerrors.CodeInitializationFailure, err, "建立链 "+desc.Label()+" 的连接失败")
		}
		pool.reads[desc.ID] = read

		if cred != nil {
			wallet, err := evm.NewWallet(cred, read, desc.ID)
			if err != nil {
				pool.Close()
				return nil, xerrors.Wrap(xerrors.CodeInitializationFailure, err, "创建链 "+desc.Label()+" 的写客户端失败")
			}
			pool.writes[desc.ID] = wallet
		}
	}
	return pool, nil
}

// Get 返回指定链的读客户端；chainID 为 0 时返回配置顺序中的第一条链。
func (p *Pool) Get(chainID uint64) (evm.ReadClient, error) {
	if chainID == 0 {
		if len(p.chains) == 0 {
			return nil, xerrors.New(xerrors.CodeChainNotConfigured, "没有配置任何链")
		}
		chainID = p.chains[0].ID
	}
	client, ok := p.reads[chainID]
	if !ok {
		return nil, xerrors.Newf(xerrors.CodeChainNotConfigured, "链 %d 未配置连接", chainID)
	}
	return client, nil
}

// GetWrite 返回指定链的写客户端。没有签名凭证时合法地返回 false，
// 工具以此判断是只描述意图还是立即执行。
func (p *Pool) GetWrite(chainID uint64) (evm.WriteClient, bool) {
	if chainID == 0 {
		if len(p.chains) == 0 {
			return nil, false
		}
		chainID = p.chains[0].ID
	}
	client, ok := p.writes[chainID]
	return client, ok
}

// AllChains 返回 Client 配置的全部链描述符（不是某个工具的支持子集）。
func (p *Pool) AllChains() []chain.Descriptor {
	return append([]chain.Descriptor(nil), p.chains...)
}

// FilterSupportedChains 求已配置链与工具声明支持链的交集；指定了
// chainID 且不在交集内时返回 UnsupportedChain。
func (p *Pool) FilterSupportedChains(supported []chain.Descriptor, chainID uint64) ([]chain.Descriptor, error) {
	candidates := make([]chain.Descriptor, 0, len(p.chains))
	for _, desc := range p.chains {
		if supported == nil || chain.Contains(supported, desc.ID) {
			candidates = append(candidates, desc)
		}
	}

	if chainID != 0 {
		for _, desc := range candidates {
			if desc.ID == chainID {
				return []chain.Descriptor{desc}, nil
			}
		}
		return nil, xerrors.Newf(xerrors.CodeUnsupportedChain,
			"链 %d 不在支持范围内，可用链: %s", chainID, strings.Join(chain.Names(candidates), ", "))
	}

	if len(candidates) == 0 {
		return nil, xerrors.New(xerrors.CodeUnsupportedChain, "没有同时被配置与工具支持的链")
	}
	return candidates, nil
}

// Close 释放所有连接。
func (p *Pool) Close() {
	for id, client := range p.reads {
		if client != nil {
			client.Close()
		}
		delete(p.reads, id)
	}
	p.writes = map[uint64]evm.WriteClient{}
}
