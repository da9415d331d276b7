package evm

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"AgentKit-EVM/internal/chain"

	gethcore "github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	coretypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	gethrpc "github.com/ethereum/go-ethereum/rpc"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"
)

// ReadClient is the subset of chain-state queries the toolkit needs. The
// production implementation is *ethclient.Client; tests substitute fakes.
type ReadClient interface {
	ChainID(ctx context.Context) (*big.Int, error)
	BlockNumber(ctx context.Context) (uint64, error)
	BalanceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (*big.Int, error)
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
	CallContract(ctx context.Context, msg gethcore.CallMsg, blockNumber *big.Int) ([]byte, error)
	EstimateGas(ctx context.Context, msg gethcore.CallMsg) (uint64, error)
	SuggestGasPrice(ctx context.Context) (*big.Int, error)
	SuggestGasTipCap(ctx context.Context) (*big.Int, error)
	HeaderByNumber(ctx context.Context, number *big.Int) (*coretypes.Header, error)
	SendTransaction(ctx context.Context, tx *coretypes.Transaction) error
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*coretypes.Receipt, error)
	Close()
}

// WriteClient submits value-transferring calls and answers signing requests
// for exactly one chain. It only exists when the toolkit was constructed with
// a signing credential.
type WriteClient interface {
	Address() common.Address
	ChainID() uint64
	SendCall(ctx context.Context, to *common.Address, value *big.Int, data []byte) (common.Hash, error)
	SignMessage(ctx context.Context, message []byte) ([]byte, error)
	SignTypedData(ctx context.Context, typed apitypes.TypedData) ([]byte, error)
}

// Transport produces the read client for one chain. Implementations decide
// how the connection is established; DialContext happens here so the pool
// itself never touches the network.
type Transport interface {
	Dial(ctx context.Context, desc chain.Descriptor) (ReadClient, error)
}

// RPCTransport dials a JSON-RPC endpoint with go-ethereum's rpc client.
type RPCTransport struct {
	URL string
}

// Dial connects to the configured endpoint.
func (t RPCTransport) Dial(ctx context.Context, desc chain.Descriptor) (ReadClient, error) {
	url := strings.TrimSpace(t.URL)
	if url == "" {
		return nil, fmt.Errorf("链 %s 未配置 RPC 地址", desc.Label())
	}
	rpcClient, err := gethrpc.DialContext(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("连接链 %s 节点失败: %w", desc.Label(), err)
	}
	return ethclient.NewClient(rpcClient), nil
}

var _ ReadClient = (*ethclient.Client)(nil)

// ErrNoTransport is returned when client construction receives chains but no
// transports at all.
var ErrNoTransport = errors.New("没有可用的链 transport")
