package evm

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"sync"

	gethcore "github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	coretypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"
)

// Credential holds the private key the toolkit signs with. Constructing a
// toolkit client with a Credential enables write clients on every configured
// chain; constructing it with a bare address keeps the toolkit read-only.
type Credential struct {
	key *ecdsa.PrivateKey
}

// NewCredential wraps an existing private key.
func NewCredential(key *ecdsa.PrivateKey) (*Credential, error) {
	if key == nil {
		return nil, errors.New("私钥不能为空")
	}
	return &Credential{key: key}, nil
}

// CredentialFromHex parses a hex encoded private key, with or without the
// 0x prefix.
func CredentialFromHex(hexKey string) (*Credential, error) {
	hexKey = strings.TrimPrefix(strings.TrimSpace(hexKey), "0x")
	if hexKey == "" {
		return nil, errors.New("私钥不能为空")
	}
	key, err := crypto.HexToECDSA(hexKey)
	if err != nil {
		return nil, fmt.Errorf("解析私钥失败: %w", err)
	}
	return &Credential{key: key}, nil
}

// Address derives the account address of the credential.
func (c *Credential) Address() common.Address {
	if c == nil || c.key == nil {
		return common.Address{}
	}
	return crypto.PubkeyToAddress(c.key.PublicKey)
}

// Wallet is the write client for a single chain. Submissions are serialized
// per wallet so concurrent tool invocations cannot race on the account nonce.
type Wallet struct {
	cred    *Credential
	read    ReadClient
	chainID *big.Int
	mu      sync.Mutex
}

// NewWallet binds a credential to a chain's read client. The read client is
// borrowed for nonce, gas and broadcast; the wallet does not own it.
func NewWallet(cred *Credential, read ReadClient, chainID uint64) (*Wallet, error) {
	if cred == nil || cred.key == nil {
		return nil, errors.New("未提供签名凭证")
	}
	if read == nil {
		return nil, errors.New("未提供链读取客户端")
	}
	if chainID == 0 {
		return nil, errors.New("链 ID 不能为 0")
	}
	return &Wallet{cred: cred, read: read, chainID: new(big.Int).SetUint64(chainID)}, nil
}

// Address returns the signing account.
func (w *Wallet) Address() common.Address {
	return w.cred.Address()
}

// ChainID returns the chain the wallet submits to.
func (w *Wallet) ChainID() uint64 {
	return w.chainID.Uint64()
}

// SendCall signs and broadcasts a dynamic-fee transaction, returning the
// transaction hash. Inclusion is not awaited here; the executor polls for the
// receipt so sequencing stays in one place.
func (w *Wallet) SendCall(ctx context.Context, to *common.Address, value *big.Int, data []byte) (common.Hash, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	from := w.cred.Address()
	nonce, err := w.read.PendingNonceAt(ctx, from)
	if err != nil {
		return common.Hash{}, fmt.Errorf("查询账户 nonce 失败: %w", err)
	}

	gasTipCap, err := w.read.SuggestGasTipCap(ctx)
	if err != nil {
		// Some endpoints reject eth_maxPriorityFeePerGas; fall back to the
		// legacy gas price as the tip.
		gasTipCap, err = w.read.SuggestGasPrice(ctx)
		if err != nil {
			return common.Hash{}, fmt.Errorf("查询 gas 价格失败: %w", err)
		}
	}
	head, err := w.read.HeaderByNumber(ctx, nil)
	if err != nil {
		return common.Hash{}, fmt.Errorf("查询最新区块头失败: %w", err)
	}
	gasFeeCap := new(big.Int).Set(gasTipCap)
	if head.BaseFee != nil {
		gasFeeCap = new(big.Int).Add(new(big.Int).Mul(head.BaseFee, big.NewInt(2)), gasTipCap)
	}

	if value == nil {
		value = new(big.Int)
	}
	gasLimit, err := w.read.EstimateGas(ctx, gethcore.CallMsg{
		From:  from,
		To:    to,
		Value: value,
		Data:  data,
	})
	if err != nil {
		return common.Hash{}, fmt.Errorf("估算 gas 失败: %w", err)
	}

	tx := coretypes.NewTx(&coretypes.DynamicFeeTx{
		ChainID:   w.chainID,
		Nonce:     nonce,
		GasTipCap: gasTipCap,
		GasFeeCap: gasFeeCap,
		Gas:       gasLimit,
		To:        to,
		Value:     value,
		Data:      data,
	})
	signed, err := coretypes.SignTx(tx, coretypes.LatestSignerForChainID(w.chainID), w.cred.key)
	if err != nil {
		return common.Hash{}, fmt.Errorf("签名交易失败: %w", err)
	}
	if err := w.read.SendTransaction(ctx, signed); err != nil {
		return common.Hash{}, fmt.Errorf("广播交易失败: %w", err)
	}
	return signed.Hash(), nil
}

// SignMessage signs a personal message per EIP-191.
func (w *Wallet) SignMessage(_ context.Context, message []byte) ([]byte, error) {
	hash := crypto.Keccak256(
		[]byte(fmt.Sprintf("\x19Ethereum Signed Message:\n%d", len(message))),
		message,
	)
	sig, err := crypto.Sign(hash, w.cred.key)
	if err != nil {
		return nil, fmt.Errorf("签名消息失败: %w", err)
	}
	sig[crypto.RecoveryIDOffset] += 27
	return sig, nil
}

// SignTypedData signs EIP-712 structured data.
func (w *Wallet) SignTypedData(_ context.Context, typed apitypes.TypedData) ([]byte, error) {
	hash, _, err := apitypes.TypedDataAndHash(typed)
	if err != nil {
		return nil, fmt.Errorf("计算 EIP-712 摘要失败: %w", err)
	}
	sig, err := crypto.Sign(hash, w.cred.key)
	if err != nil {
		return nil, fmt.Errorf("签名结构化数据失败: %w", err)
	}
	sig[crypto.RecoveryIDOffset] += 27
	return sig, nil
}

var _ WriteClient = (*Wallet)(nil)
