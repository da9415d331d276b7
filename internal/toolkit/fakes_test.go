package toolkit

import (
	"context"
	"fmt"
	"math/big"
	"sync"
	"testing"
	"time"

	"AgentKit-EVM/internal/chain"
	"AgentKit-EVM/internal/evm"

	gethcore "github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	coretypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"
)

var (
	chainA = chain.Descriptor{ID: 1, Name: "alpha", Currency: "ETH"}
	chainB = chain.Descriptor{ID: 137, Name: "beta", Currency: "POL"}
)

// fakeRead is an in-memory ReadClient with scriptable balances, gas prices
// and receipts.
type fakeRead struct {
	mu       sync.Mutex
	chainID  uint64
	balance  *big.Int
	gasPrice *big.Int
	gasErr   error
	nonce    uint64

	// receipts maps a tx hash to the remaining number of polls that still
	// return NotFound before the receipt appears.
	receipts map[common.Hash]*scriptedReceipt

	events *eventLog
}

type scriptedReceipt struct {
	delayPolls int
	status     uint64
}

// eventLog records the interleaving of sends and confirmations so tests can
// assert strict sequencing.
type eventLog struct {
	mu      sync.Mutex
	entries []string
}

func (l *eventLog) add(entry string) {
	if l == nil {
		return
	}
	l.mu.Lock()
	l.entries = append(l.entries, entry)
	l.mu.Unlock()
}

func (l *eventLog) snapshot() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.entries...)
}

func newFakeRead(chainID uint64, gasPrice int64) *fakeRead {
	return &fakeRead{
		chainID:  chainID,
		balance:  big.NewInt(0),
		gasPrice: big.NewInt(gasPrice),
		receipts: make(map[common.Hash]*scriptedReceipt),
	}
}

func (f *fakeRead) ChainID(context.Context) (*big.Int, error) {
	return new(big.Int).SetUint64(f.chainID), nil
}

func (f *fakeRead) BlockNumber(context.Context) (uint64, error) { return 100, nil }

func (f *fakeRead) BalanceAt(_ context.Context, _ common.Address, _ *big.Int) (*big.Int, error) {
	return new(big.Int).Set(f.balance), nil
}

func (f *fakeRead) PendingNonceAt(context.Context, common.Address) (uint64, error) {
	return f.nonce, nil
}

func (f *fakeRead) CallContract(context.Context, gethcore.CallMsg, *big.Int) ([]byte, error) {
	return nil, fmt.Errorf("fakeRead: CallContract not scripted")
}

func (f *fakeRead) EstimateGas(context.Context, gethcore.CallMsg) (uint64, error) {
	return 21000, nil
}

func (f *fakeRead) SuggestGasPrice(context.Context) (*big.Int, error) {
	if f.gasErr != nil {
		return nil, f.gasErr
	}
	return new(big.Int).Set(f.gasPrice), nil
}

func (f *fakeRead) SuggestGasTipCap(context.Context) (*big.Int, error) {
	return big.NewInt(1), nil
}

func (f *fakeRead) HeaderByNumber(context.Context, *big.Int) (*coretypes.Header, error) {
	return &coretypes.Header{BaseFee: big.NewInt(10)}, nil
}

func (f *fakeRead) SendTransaction(context.Context, *coretypes.Transaction) error {
	return nil
}

func (f *fakeRead) TransactionReceipt(_ context.Context, hash common.Hash) (*coretypes.Receipt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	scripted, ok := f.receipts[hash]
	if !ok || scripted.delayPolls > 0 {
		if ok {
			scripted.delayPolls--
		}
		return nil, gethcore.NotFound
	}
	f.events.add("receipt:" + hash.Hex())
	return &coretypes.Receipt{Status: scripted.status, TxHash: hash}, nil
}

func (f *fakeRead) Close() {}

var _ evm.ReadClient = (*fakeRead)(nil)

// fakeTransport hands out pre-built read clients keyed by chain id.
type fakeTransport struct {
	mu      sync.Mutex
	clients map[uint64]evm.ReadClient
	dials   int
}

func (t *fakeTransport) Dial(_ context.Context, desc chain.Descriptor) (evm.ReadClient, error) {
	t.mu.Lock()
	t.dials++
	t.mu.Unlock()
	client, ok := t.clients[desc.ID]
	if !ok {
		return nil, fmt.Errorf("没有链 %d 的 fake 客户端", desc.ID)
	}
	return client, nil
}

// fakeWrite is a WriteClient that issues deterministic hashes and logs every
// submission into the shared event log.
type fakeWrite struct {
	mu      sync.Mutex
	chainID uint64
	sent    int
	read    *fakeRead
	events  *eventLog

	// delayPolls controls how many receipt polls each tx needs before it
	// confirms.
	delayPolls int
	// failStatus, when set, makes every receipt report a revert.
	failStatus bool
	sendErr    error
}

func (w *fakeWrite) Address() common.Address { return common.HexToAddress("0xabc0000000000000000000000000000000000001") }

func (w *fakeWrite) ChainID() uint64 { return w.chainID }

func (w *fakeWrite) SendCall(_ context.Context, _ *common.Address, _ *big.Int, _ []byte) (common.Hash, error) {
	if w.sendErr != nil {
		return common.Hash{}, w.sendErr
	}
	w.mu.Lock()
	w.sent++
	hash := common.BigToHash(big.NewInt(int64(w.sent)))
	w.mu.Unlock()

	w.events.add("send:" + hash.Hex())

	status := coretypes.ReceiptStatusSuccessful
	if w.failStatus {
		status = coretypes.ReceiptStatusFailed
	}
	w.read.mu.Lock()
	w.read.receipts[hash] = &scriptedReceipt{delayPolls: w.delayPolls, status: status}
	w.read.mu.Unlock()
	return hash, nil
}

func (w *fakeWrite) SignMessage(_ context.Context, message []byte) ([]byte, error) {
	return append([]byte("sig:"), message...), nil
}

func (w *fakeWrite) SignTypedData(context.Context, apitypes.TypedData) ([]byte, error) {
	return []byte("typed-sig"), nil
}

var _ evm.WriteClient = (*fakeWrite)(nil)

// newTestClient builds a Client backed by the given fake reads, one chain per
// entry, without any write clients.
func newTestClient(t *testing.T, reads map[uint64]*fakeRead, chains []chain.Descriptor, opts ...ClientOption) *Client {
	t.Helper()
	clients := make(map[uint64]evm.ReadClient, len(reads))
	for id, read := range reads {
		clients[id] = read
	}
	transports := make([]evm.Transport, len(chains))
	for i := range chains {
		transports[i] = &fakeTransport{clients: clients}
	}
	client, err := NewClient(context.Background(), Config{
		Chains:     chains,
		Transports: transports,
	}, opts...)
	if err != nil {
		t.Fatalf("构造测试 Client 失败: %v", err)
	}
	t.Cleanup(client.Close)

	client.callTimeout = time.Second
	client.confirmTimeout = time.Second
	client.confirmPoll = time.Millisecond
	return client
}

// attachWrite wires a fakeWrite for one chain into the pool.
func attachWrite(client *Client, chainID uint64, read *fakeRead, events *eventLog) *fakeWrite {
	write := &fakeWrite{chainID: chainID, read: read, events: events}
	read.events = events
	client.pool.writes[chainID] = write
	return write
}
