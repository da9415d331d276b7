package toolkit

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"testing"

	"AgentKit-EVM/internal/chain"
	xerrors "AgentKit-EVM/internal/errors"
	"AgentKit-EVM/internal/journal"

	"github.com/ethereum/go-ethereum/common"
)

func callOp() Operation {
	return Call{
		To:    common.HexToAddress("0x00000000000000000000000000000000000000aa"),
		Value: big.NewInt(1),
	}
}

// 探测只在 B 链可行：无论 gas 贵贱都必须选 B。
func TestCreateIntentSkipsInfeasibleChain(t *testing.T) {
	t.Parallel()
	reads := map[uint64]*fakeRead{
		chainA.ID: newFakeRead(chainA.ID, 1),
		chainB.ID: newFakeRead(chainB.ID, 100),
	}
	client := newTestClient(t, reads, []chain.Descriptor{chainA, chainB})

	intent, err := client.CreateIntent(context.Background(), BuildRequest{
		Description: "transfer",
		Probe: func(_ context.Context, _ *Client, desc chain.Descriptor) ([]Operation, error) {
			if desc.ID == chainA.ID {
				return nil, fmt.Errorf("余额不足")
			}
			return []Operation{callOp()}, nil
		},
	})
	if err != nil {
		t.Fatalf("CreateIntent: %v", err)
	}
	if intent.ChainID != chainB.ID {
		t.Fatalf("应选择唯一可行的链 %d，实际 %d", chainB.ID, intent.ChainID)
	}
}

// 两条链都可行时选 gas 低的。
func TestCreateIntentPicksCheapestChain(t *testing.T) {
	t.Parallel()
	reads := map[uint64]*fakeRead{
		chainA.ID: newFakeRead(chainA.ID, 50),
		chainB.ID: newFakeRead(chainB.ID, 2),
	}
	client := newTestClient(t, reads, []chain.Descriptor{chainA, chainB})

	intent, err := client.CreateIntent(context.Background(), BuildRequest{
		Description: "transfer",
		Probe: func(context.Context, *Client, chain.Descriptor) ([]Operation, error) {
			return []Operation{callOp()}, nil
		},
	})
	if err != nil {
		t.Fatalf("CreateIntent: %v", err)
	}
	if intent.ChainID != chainB.ID {
		t.Fatalf("应选择 gas 更低的链 %d，实际 %d", chainB.ID, intent.ChainID)
	}
}

// gas 平价时取链 ID 小者，保证结果确定。
func TestCreateIntentTieBreaksOnChainID(t *testing.T) {
	t.Parallel()
	reads := map[uint64]*fakeRead{
		chainA.ID: newFakeRead(chainA.ID, 7),
		chainB.ID: newFakeRead(chainB.ID, 7),
	}
	client := newTestClient(t, reads, []chain.Descriptor{chainA, chainB})

	intent, err := client.CreateIntent(context.Background(), BuildRequest{
		Description: "transfer",
		Probe: func(context.Context, *Client, chain.Descriptor) ([]Operation, error) {
			return []Operation{callOp()}, nil
		},
	})
	if err != nil {
		t.Fatalf("CreateIntent: %v", err)
	}
	if intent.ChainID != chainA.ID {
		t.Fatalf("gas 平价时应选链 ID 较小的 %d，实际 %d", chainA.ID, intent.ChainID)
	}
}

// 所有链都不可行：错误必须逐条说明每条链失败的原因。
func TestCreateIntentNoViableChain(t *testing.T) {
	t.Parallel()
	reads := map[uint64]*fakeRead{
		chainA.ID: newFakeRead(chainA.ID, 5),
		chainB.ID: newFakeRead(chainB.ID, 5),
	}
	client := newTestClient(t, reads, []chain.Descriptor{chainA, chainB})

	_, err := client.CreateIntent(context.Background(), BuildRequest{
		Description: "transfer",
		Probe: func(_ context.Context, _ *Client, desc chain.Descriptor) ([]Operation, error) {
			return nil, fmt.Errorf("链 %s 余额不足", desc.Name)
		},
	})
	if !xerrors.HasCode(err, xerrors.CodeNoViableChain) {
		t.Fatalf("expected NO_VIABLE_CHAIN, got %v", err)
	}
	msg := err.Error()
	for _, want := range []string{chainA.Label(), chainB.Label(), "余额不足"} {
		if !strings.Contains(msg, want) {
			t.Fatalf("错误信息缺少 %q: %s", want, msg)
		}
	}
}

// 没有写客户端：返回 requested 意图并写入流水，不执行。
func TestCreateIntentReadOnlyReturnsRequested(t *testing.T) {
	t.Parallel()
	reads := map[uint64]*fakeRead{chainA.ID: newFakeRead(chainA.ID, 5)}
	store := journal.NewMemoryStore()
	client := newTestClient(t, reads, []chain.Descriptor{chainA}, WithJournal(store))

	intent, err := client.CreateIntent(context.Background(), BuildRequest{
		Description: "transfer",
		Probe: func(context.Context, *Client, chain.Descriptor) ([]Operation, error) {
			return []Operation{callOp()}, nil
		},
	})
	if err != nil {
		t.Fatalf("CreateIntent: %v", err)
	}
	if intent.Completed() {
		t.Fatalf("只读模式下意图不应被执行: %+v", intent)
	}
	if intent.Hash != "" || len(intent.Signatures) != 0 {
		t.Fatalf("requested 意图不应携带哈希或签名")
	}

	record, err := store.Get(context.Background(), intent.ID)
	if err != nil {
		t.Fatalf("journal get: %v", err)
	}
	if record.Status != journal.StatusRequested {
		t.Fatalf("流水状态应为 requested，实际 %s", record.Status)
	}
	if record.ChainID != chainA.ID {
		t.Fatalf("流水链 ID 不符: %d", record.ChainID)
	}
}

// 有写客户端：同一调用内执行完成并回填哈希。
func TestCreateIntentExecutesWithWallet(t *testing.T) {
	t.Parallel()
	read := newFakeRead(chainA.ID, 5)
	store := journal.NewMemoryStore()
	client := newTestClient(t, map[uint64]*fakeRead{chainA.ID: read},
		[]chain.Descriptor{chainA}, WithJournal(store))

	events := &eventLog{}
	attachWrite(client, chainA.ID, read, events)

	intent, err := client.CreateIntent(context.Background(), BuildRequest{
		Description: "transfer",
		Probe: func(context.Context, *Client, chain.Descriptor) ([]Operation, error) {
			return []Operation{callOp()}, nil
		},
	})
	if err != nil {
		t.Fatalf("CreateIntent: %v", err)
	}
	if !intent.Completed() {
		t.Fatalf("有写客户端时意图应被执行")
	}
	if intent.Hash == "" {
		t.Fatalf("completed 意图缺少交易哈希")
	}

	record, err := store.Get(context.Background(), intent.ID)
	if err != nil {
		t.Fatalf("journal get: %v", err)
	}
	if record.Status != journal.StatusCompleted {
		t.Fatalf("流水状态应为 completed，实际 %s", record.Status)
	}
	if record.Hash != intent.Hash {
		t.Fatalf("流水哈希不符: %s != %s", record.Hash, intent.Hash)
	}
}

// 指定链不可行时不回退到其他链。
func TestCreateIntentPinnedChainFails(t *testing.T) {
	t.Parallel()
	reads := map[uint64]*fakeRead{
		chainA.ID: newFakeRead(chainA.ID, 5),
		chainB.ID: newFakeRead(chainB.ID, 5),
	}
	client := newTestClient(t, reads, []chain.Descriptor{chainA, chainB})

	_, err := client.CreateIntent(context.Background(), BuildRequest{
		Description: "transfer",
		ChainID:     chainA.ID,
		Probe: func(_ context.Context, _ *Client, desc chain.Descriptor) ([]Operation, error) {
			if desc.ID == chainA.ID {
				return nil, fmt.Errorf("余额不足")
			}
			return []Operation{callOp()}, nil
		},
	})
	if !xerrors.HasCode(err, xerrors.CodeNoViableChain) {
		t.Fatalf("限定链不可行时应报 NO_VIABLE_CHAIN，got %v", err)
	}
}

func TestCreateIntentWithoutProbe(t *testing.T) {
	t.Parallel()
	client := newTestClient(t, map[uint64]*fakeRead{chainA.ID: newFakeRead(chainA.ID, 5)},
		[]chain.Descriptor{chainA})

	_, err := client.CreateIntent(context.Background(), BuildRequest{Description: "x"})
	if !xerrors.HasCode(err, xerrors.CodeInvalidArgument) {
		t.Fatalf("expected INVALID_ARGUMENT, got %v", err)
	}
}
