// Package evm wraps go-ethereum for native and ERC20 balances and signed
// contract calls on an EVM chain.
package evm

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/sirupsen/logrus"

	"post-sniper/internal/observability"
)

// Default configuration values.
const (
	DefaultConfirmTimeout = 2 * time.Minute
	// gasBufferPct is added on top of EstimateGas.
	gasBufferPct = 20
)

var (
	// ErrNoSigner is returned by write operations on a read-only client.
	ErrNoSigner = errors.New("client has no signing key")
	// ErrReverted is returned when a mined transaction has a failed status.
	ErrReverted = errors.New("transaction reverted")
)

// Backend is the subset of *ethclient.Client used by Client.
type Backend interface {
	BalanceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (*big.Int, error)
	CallContract(ctx context.Context, call ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
	SuggestGasTipCap(ctx context.Context) (*big.Int, error)
	HeaderByNumber(ctx context.Context, number *big.Int) (*types.Header, error)
	EstimateGas(ctx context.Context, call ethereum.CallMsg) (uint64, error)
	SendTransaction(ctx context.Context, tx *types.Transaction) error
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error)
	CodeAt(ctx context.Context, account common.Address, blockNumber *big.Int) ([]byte, error)
}

var _ Backend = (*ethclient.Client)(nil)

// Client signs and sends transactions for a single account.
type Client struct {
	backend        Backend
	chainID        *big.Int
	key            *ecdsa.PrivateKey
	from           common.Address
	confirmTimeout time.Duration
	logger         *logrus.Entry
	closer         func()
}

// Options configures Client.
type Options struct {
	ChainID        int64
	PrivateKeyHex  string // empty for a read-only client
	ConfirmTimeout time.Duration
	Logger         *logrus.Entry
}

// Dial connects to rpcURL and returns a Client for opts.
func Dial(ctx context.Context, rpcURL string, opts Options) (*Client, error) {
	ec, err := ethclient.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, fmt.Errorf("dial evm rpc: %w", err)
	}
	c, err := NewClient(ec, opts)
	if err != nil {
		ec.Close()
		return nil, err
	}
	c.closer = ec.Close
	return c, nil
}

// NewClient creates a Client over an existing backend.
func NewClient(backend Backend, opts Options) (*Client, error) {
	if opts.ChainID <= 0 {
		return nil, fmt.Errorf("chain id must be positive, got %d", opts.ChainID)
	}
	if opts.ConfirmTimeout <= 0 {
		opts.ConfirmTimeout = DefaultConfirmTimeout
	}
	logger := opts.Logger
	if logger == nil {
		logger = logrus.NewEntry(logrus.StandardLogger())
	}

	c := &Client{
		backend:        backend,
		chainID:        big.NewInt(opts.ChainID),
		confirmTimeout: opts.ConfirmTimeout,
		logger:         logger,
	}

	if opts.PrivateKeyHex != "" {
		key, err := crypto.HexToECDSA(strings.TrimPrefix(opts.PrivateKeyHex, "0x"))
		if err != nil {
			return nil, fmt.Errorf("parse private key: %w", err)
		}
		c.key = key
		c.from = crypto.PubkeyToAddress(key.PublicKey)
	}
	return c, nil
}

// Close releases the underlying connection when the client was dialed.
func (c *Client) Close() {
	if c.closer != nil {
		c.closer()
	}
}

// Address returns the signing account, zero for a read-only client.
func (c *Client) Address() common.Address {
	return c.from
}

// ChainID returns the configured chain id.
func (c *Client) ChainID() *big.Int {
	return new(big.Int).Set(c.chainID)
}

// NativeBalance returns the account balance in wei at the latest block.
func (c *Client) NativeBalance(ctx context.Context) (*big.Int, error) {
	start := time.Now()
	defer observe("eth_getBalance", start)

	bal, err := c.backend.BalanceAt(ctx, c.from, nil)
	if err != nil {
		return nil, fmt.Errorf("balance of %s: %w", c.from.Hex(), err)
	}
	return bal, nil
}

// Call performs an eth_call and unpacks the named method outputs.
func (c *Client) Call(ctx context.Context, contractABI abi.ABI, to common.Address, method string, args ...interface{}) ([]interface{}, error) {
	data, err := contractABI.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("pack %s: %w", method, err)
	}

	start := time.Now()
	out, err := c.backend.CallContract(ctx, ethereum.CallMsg{From: c.from, To: &to, Data: data}, nil)
	observe("eth_call", start)
	if err != nil {
		return nil, fmt.Errorf("call %s on %s: %w", method, to.Hex(), err)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("call %s on %s: empty result", method, to.Hex())
	}
	return contractABI.Unpack(method, out)
}

// TokenBalance returns the ERC20 balance of owner in base units.
func (c *Client) TokenBalance(ctx context.Context, token, owner common.Address) (*big.Int, error) {
	vals, err := c.Call(ctx, ERC20ABI, token, "balanceOf", owner)
	if err != nil {
		return nil, err
	}
	return firstBig(vals, "balanceOf")
}

// TokenDecimals returns the ERC20 decimals of token.
func (c *Client) TokenDecimals(ctx context.Context, token common.Address) (uint8, error) {
	vals, err := c.Call(ctx, ERC20ABI, token, "decimals")
	if err != nil {
		return 0, err
	}
	if len(vals) != 1 {
		return 0, fmt.Errorf("decimals: unexpected result len %d", len(vals))
	}
	d, ok := vals[0].(uint8)
	if !ok {
		return 0, fmt.Errorf("decimals: unexpected type %T", vals[0])
	}
	return d, nil
}

// Allowance returns the ERC20 allowance granted by the client account to spender.
func (c *Client) Allowance(ctx context.Context, token, spender common.Address) (*big.Int, error) {
	vals, err := c.Call(ctx, ERC20ABI, token, "allowance", c.from, spender)
	if err != nil {
		return nil, err
	}
	return firstBig(vals, "allowance")
}

// EnsureAllowance approves spender for amount unless the current allowance covers it.
func (c *Client) EnsureAllowance(ctx context.Context, token, spender common.Address, amount *big.Int) error {
	current, err := c.Allowance(ctx, token, spender)
	if err != nil {
		return err
	}
	if current.Cmp(amount) >= 0 {
		return nil
	}

	data, err := ERC20ABI.Pack("approve", spender, amount)
	if err != nil {
		return fmt.Errorf("pack approve: %w", err)
	}
	if _, err := c.Transact(ctx, token, nil, data); err != nil {
		return fmt.Errorf("approve %s: %w", spender.Hex(), err)
	}
	return nil
}

// Transact signs an EIP-1559 transaction calling to with data and value, sends
// it and waits until it is mined. A reverted transaction returns ErrReverted
// together with its receipt.
func (c *Client) Transact(ctx context.Context, to common.Address, value *big.Int, data []byte) (*types.Receipt, error) {
	if c.key == nil {
		return nil, ErrNoSigner
	}
	if value == nil {
		value = new(big.Int)
	}

	nonce, err := c.backend.PendingNonceAt(ctx, c.from)
	if err != nil {
		return nil, fmt.Errorf("pending nonce: %w", err)
	}
	tip, err := c.backend.SuggestGasTipCap(ctx)
	if err != nil {
		return nil, fmt.Errorf("suggest gas tip: %w", err)
	}
	head, err := c.backend.HeaderByNumber(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("latest header: %w", err)
	}
	baseFee := head.BaseFee
	if baseFee == nil {
		baseFee = new(big.Int)
	}
	feeCap := new(big.Int).Add(new(big.Int).Mul(baseFee, big.NewInt(2)), tip)

	gas, err := c.backend.EstimateGas(ctx, ethereum.CallMsg{From: c.from, To: &to, Value: value, Data: data})
	if err != nil {
		return nil, fmt.Errorf("estimate gas: %w", err)
	}
	gas += gas * gasBufferPct / 100

	tx := types.NewTx(&types.DynamicFeeTx{
		ChainID:   c.chainID,
		Nonce:     nonce,
		GasTipCap: tip,
		GasFeeCap: feeCap,
		Gas:       gas,
		To:        &to,
		Value:     value,
		Data:      data,
	})
	signed, err := types.SignTx(tx, types.LatestSignerForChainID(c.chainID), c.key)
	if err != nil {
		return nil, fmt.Errorf("sign tx: %w", err)
	}

	if err := c.backend.SendTransaction(ctx, signed); err != nil {
		return nil, fmt.Errorf("send tx: %w", err)
	}
	c.logger.WithFields(logrus.Fields{
		"tx":    signed.Hash().Hex(),
		"to":    to.Hex(),
		"nonce": nonce,
	}).Info("transaction sent")

	waitCtx, cancel := context.WithTimeout(ctx, c.confirmTimeout)
	defer cancel()
	receipt, err := bind.WaitMined(waitCtx, c.backend, signed)
	if err != nil {
		return nil, fmt.Errorf("wait mined %s: %w", signed.Hash().Hex(), err)
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return receipt, fmt.Errorf("%w: %s", ErrReverted, signed.Hash().Hex())
	}
	return receipt, nil
}

func firstBig(vals []interface{}, method string) (*big.Int, error) {
	if len(vals) != 1 {
		return nil, fmt.Errorf("%s: unexpected result len %d", method, len(vals))
	}
	n, ok := vals[0].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("%s: unexpected type %T", method, vals[0])
	}
	return n, nil
}

func observe(method string, start time.Time) {
	observability.RecordRPCLatency("base", method, time.Since(start).Seconds())
}
