package evm

import (
	"bytes"
	"context"
	"errors"
	"math/big"
	"sync"
	"testing"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testKeyHex = "4c0883a69102937d6231471b5dbb6204fe5129617082792ae468d01a3f362318"

// fakeBackend answers ERC20 calls from maps and records sent transactions.
type fakeBackend struct {
	mu         sync.Mutex
	balance    *big.Int
	tokenBal   map[common.Address]*big.Int
	allowance  *big.Int
	decimals   uint8
	sent       []*types.Transaction
	status     uint64
	estimate   uint64
	estimateFn func(msg ethereum.CallMsg) (uint64, error)
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		balance:   big.NewInt(0),
		tokenBal:  make(map[common.Address]*big.Int),
		allowance: big.NewInt(0),
		decimals:  18,
		status:    types.ReceiptStatusSuccessful,
		estimate:  100000,
	}
}

func (f *fakeBackend) BalanceAt(context.Context, common.Address, *big.Int) (*big.Int, error) {
	return f.balance, nil
}

func (f *fakeBackend) CallContract(_ context.Context, msg ethereum.CallMsg, _ *big.Int) ([]byte, error) {
	sel := msg.Data[:4]
	switch {
	case bytes.Equal(sel, ERC20ABI.Methods["balanceOf"].ID):
		bal, ok := f.tokenBal[*msg.To]
		if !ok {
			bal = big.NewInt(0)
		}
		return ERC20ABI.Methods["balanceOf"].Outputs.Pack(bal)
	case bytes.Equal(sel, ERC20ABI.Methods["decimals"].ID):
		return ERC20ABI.Methods["decimals"].Outputs.Pack(f.decimals)
	case bytes.Equal(sel, ERC20ABI.Methods["allowance"].ID):
		return ERC20ABI.Methods["allowance"].Outputs.Pack(f.allowance)
	}
	return nil, errors.New("unexpected call")
}

func (f *fakeBackend) PendingNonceAt(context.Context, common.Address) (uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return uint64(len(f.sent)), nil
}

func (f *fakeBackend) SuggestGasTipCap(context.Context) (*big.Int, error) {
	return big.NewInt(1_000_000), nil
}

func (f *fakeBackend) HeaderByNumber(context.Context, *big.Int) (*types.Header, error) {
	return &types.Header{BaseFee: big.NewInt(10_000_000)}, nil
}

func (f *fakeBackend) EstimateGas(_ context.Context, msg ethereum.CallMsg) (uint64, error) {
	if f.estimateFn != nil {
		return f.estimateFn(msg)
	}
	return f.estimate, nil
}

func (f *fakeBackend) SendTransaction(_ context.Context, tx *types.Transaction) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, tx)
	return nil
}

func (f *fakeBackend) TransactionReceipt(_ context.Context, hash common.Hash) (*types.Receipt, error) {
	return &types.Receipt{Status: f.status, TxHash: hash}, nil
}

func (f *fakeBackend) CodeAt(context.Context, common.Address, *big.Int) ([]byte, error) {
	return []byte{0x1}, nil
}

func newTestClient(t *testing.T, b *fakeBackend) *Client {
	t.Helper()
	c, err := NewClient(b, Options{ChainID: 8453, PrivateKeyHex: testKeyHex})
	require.NoError(t, err)
	return c
}

func TestNewClient_Validation(t *testing.T) {
	_, err := NewClient(newFakeBackend(), Options{ChainID: 0})
	assert.Error(t, err)

	_, err = NewClient(newFakeBackend(), Options{ChainID: 8453, PrivateKeyHex: "zz"})
	assert.Error(t, err)

	ro, err := NewClient(newFakeBackend(), Options{ChainID: 8453})
	require.NoError(t, err)
	assert.Equal(t, common.Address{}, ro.Address())
}

func TestClient_NativeBalance(t *testing.T) {
	b := newFakeBackend()
	b.balance = new(big.Int).Mul(big.NewInt(37), big.NewInt(1e17)) // 3.7 ETH
	c := newTestClient(t, b)

	wei, err := c.NativeBalance(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "3.7", WeiToEther(wei).String())
}

func TestClient_TokenBalanceAndDecimals(t *testing.T) {
	b := newFakeBackend()
	token := common.HexToAddress("0x00000000000000000000000000000000000000aa")
	b.tokenBal[token] = big.NewInt(123456)
	b.decimals = 6
	c := newTestClient(t, b)

	bal, err := c.TokenBalance(context.Background(), token, c.Address())
	require.NoError(t, err)
	assert.Equal(t, int64(123456), bal.Int64())

	dec, err := c.TokenDecimals(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, uint8(6), dec)
	assert.Equal(t, "0.123456", FromBaseUnits(bal, dec).String())
}

func TestClient_TransactSignsForChain(t *testing.T) {
	b := newFakeBackend()
	c := newTestClient(t, b)
	to := common.HexToAddress("0x00000000000000000000000000000000000000bb")

	receipt, err := c.Transact(context.Background(), to, big.NewInt(5), []byte{0x01, 0x02})
	require.NoError(t, err)
	require.NotNil(t, receipt)
	require.Len(t, b.sent, 1)

	tx := b.sent[0]
	assert.Equal(t, int64(8453), tx.ChainId().Int64())
	assert.Equal(t, uint64(120000), tx.Gas())
	assert.Equal(t, int64(21_000_000), tx.GasFeeCap().Int64())
	assert.Equal(t, int64(5), tx.Value().Int64())

	sender, err := types.Sender(types.LatestSignerForChainID(big.NewInt(8453)), tx)
	require.NoError(t, err)
	assert.Equal(t, c.Address(), sender)
}

func TestClient_TransactReverted(t *testing.T) {
	b := newFakeBackend()
	b.status = types.ReceiptStatusFailed
	c := newTestClient(t, b)

	_, err := c.Transact(context.Background(), common.HexToAddress("0x01"), nil, nil)
	assert.ErrorIs(t, err, ErrReverted)
}

func TestClient_TransactReadOnly(t *testing.T) {
	c, err := NewClient(newFakeBackend(), Options{ChainID: 8453})
	require.NoError(t, err)

	_, err = c.Transact(context.Background(), common.HexToAddress("0x01"), nil, nil)
	assert.ErrorIs(t, err, ErrNoSigner)
}

func TestClient_EnsureAllowance(t *testing.T) {
	b := newFakeBackend()
	c := newTestClient(t, b)
	token := common.HexToAddress("0x00000000000000000000000000000000000000aa")
	spender := common.HexToAddress("0x00000000000000000000000000000000000000cc")

	// Sufficient allowance: nothing sent
	b.allowance = big.NewInt(1000)
	require.NoError(t, c.EnsureAllowance(context.Background(), token, spender, big.NewInt(500)))
	assert.Empty(t, b.sent)

	// Insufficient: one approve sent to the token
	require.NoError(t, c.EnsureAllowance(context.Background(), token, spender, big.NewInt(5000)))
	require.Len(t, b.sent, 1)
	assert.Equal(t, token, *b.sent[0].To())
	assert.Equal(t, ERC20ABI.Methods["approve"].ID, b.sent[0].Data()[:4])
}

func TestParseAddress(t *testing.T) {
	addr, err := ParseAddress("0x833589fCD6eDb6E08f4c7C32D4f71b54bdA02913")
	require.NoError(t, err)
	assert.Equal(t, common.HexToAddress("0x833589fCD6eDb6E08f4c7C32D4f71b54bdA02913"), addr)

	for _, bad := range []string{"", "833589fCD6eDb6E08f4c7C32D4f71b54bdA02913", "0x1234", "0xZZ3589fCD6eDb6E08f4c7C32D4f71b54bdA02913"} {
		_, err := ParseAddress(bad)
		assert.ErrorIs(t, err, ErrInvalidAddress, bad)
	}
}

func TestUnits(t *testing.T) {
	wei := EtherToWei(mustDecimal(t, "1.5"))
	assert.Equal(t, "1500000000000000000", wei.String())

	// Truncates precision beyond the token decimals
	assert.Equal(t, "1", ToBaseUnits(mustDecimal(t, "0.0000019"), 6).String())
}
