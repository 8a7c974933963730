package testutil

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/yolodolo42/clawroyale/internal/chain"
)

// TestChain is the chain name FakeChain answers for.
const TestChain = "localhost"

var ErrNoHandler = errors.New("fake chain: no handler for call")

// CallHandler answers an eth_call. data includes the 4-byte selector.
type CallHandler func(to common.Address, data []byte) ([]byte, error)

// FakeChain is an in-memory stand-in for chain.Client. eth_call responses are
// routed by (contract, selector); every sent transaction is mined immediately
// with the receipt built by ReceiptFor.
type FakeChain struct {
	mu       sync.Mutex
	config   *chain.ChainConfig
	handlers map[string]CallHandler
	nonce    map[common.Address]uint64
	sent     []*types.Transaction
	receipts map[common.Hash]*types.Receipt
	code     map[common.Address][]byte
	balances map[common.Address]*big.Int
	reverts  map[string]error

	// LegacyFees makes BaseFee report no base fee, as on pre-London chains.
	LegacyFees bool

	// ReceiptFor builds the receipt for a sent transaction. nil means
	// status 1 with no logs.
	ReceiptFor func(tx *types.Transaction) *types.Receipt
	// SendErr, when set, is returned by SendTransaction.
	SendErr error
	// WaitErr, when set, is returned by WaitMined.
	WaitErr error
}

func NewFakeChain() *FakeChain {
	return &FakeChain{
		config: &chain.ChainConfig{
			Name:           TestChain,
			ChainID:        big.NewInt(31337),
			ChainIDInt:     31337,
			RPCURLs:        []string{"http://127.0.0.1:8545"},
			NativeCurrency: "ETH",
			IsTestnet:      true,
		},
		handlers: make(map[string]CallHandler),
		nonce:    make(map[common.Address]uint64),
		receipts: make(map[common.Hash]*types.Receipt),
		code:     make(map[common.Address][]byte),
		balances: make(map[common.Address]*big.Int),
		reverts:  make(map[string]error),
	}
}

func handlerKey(to common.Address, selector []byte) string {
	return to.Hex() + ":" + hexutil.Encode(selector)
}

// Handle registers h for calls to `to` whose selector equals selector.
func (f *FakeChain) Handle(to common.Address, selector []byte, h CallHandler) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.handlers[handlerKey(to, selector)] = h
}

// Return registers a fixed response for (to, selector).
func (f *FakeChain) Return(to common.Address, selector []byte, out []byte) {
	f.Handle(to, selector, func(common.Address, []byte) ([]byte, error) { return out, nil })
}

// RevertOn makes the pre-send simulation of (to, selector) fail with err.
func (f *FakeChain) RevertOn(to common.Address, selector []byte, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reverts[handlerKey(to, selector)] = err
}

func (f *FakeChain) SetCode(addr common.Address, code []byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.code[addr] = code
}

func (f *FakeChain) SetBalance(addr common.Address, wei *big.Int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.balances[addr] = wei
}

// Sent returns the transactions broadcast so far.
func (f *FakeChain) Sent() []*types.Transaction {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]*types.Transaction, len(f.sent))
	copy(out, f.sent)
	return out
}

// SentSelectors returns the 4-byte selector of every sent transaction.
func (f *FakeChain) SentSelectors() [][]byte {
	var out [][]byte
	for _, tx := range f.Sent() {
		if len(tx.Data()) >= 4 {
			out = append(out, tx.Data()[:4])
		} else {
			out = append(out, nil)
		}
	}
	return out
}

func (f *FakeChain) GetChainConfig(chainName string) (*chain.ChainConfig, error) {
	if chainName != TestChain {
		return nil, fmt.Errorf("unknown chain: %s", chainName)
	}
	return f.config, nil
}

func (f *FakeChain) GetNonce(_ context.Context, _ string, address common.Address) (uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.nonce[address], nil
}

func (f *FakeChain) SuggestGasTipCap(context.Context, string) (*big.Int, error) {
	return big.NewInt(1_000_000), nil
}

// SuggestGasPrice reports the base fee plus tip, as nodes do.
func (f *FakeChain) SuggestGasPrice(context.Context, string) (*big.Int, error) {
	return big.NewInt(11_000_000), nil
}

func (f *FakeChain) BaseFee(context.Context, string) (*big.Int, error) {
	if f.LegacyFees {
		return nil, nil
	}
	return big.NewInt(10_000_000), nil
}

func (f *FakeChain) EstimateGas(context.Context, string, ethereum.CallMsg) (uint64, error) {
	return 100_000, nil
}

// CallContract answers registered selectors. Calls carrying gas are the
// pre-send simulation and only fail for selectors registered with RevertOn.
func (f *FakeChain) CallContract(_ context.Context, _ string, msg ethereum.CallMsg) ([]byte, error) {
	if msg.To == nil || len(msg.Data) < 4 {
		return nil, ErrNoHandler
	}
	key := handlerKey(*msg.To, msg.Data[:4])
	f.mu.Lock()
	h, ok := f.handlers[key]
	revert := f.reverts[key]
	f.mu.Unlock()
	if msg.Gas > 0 {
		return nil, revert
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s %x", ErrNoHandler, msg.To.Hex(), msg.Data[:4])
	}
	return h(*msg.To, msg.Data)
}

func (f *FakeChain) SendTransaction(_ context.Context, _ string, tx *types.Transaction) error {
	if f.SendErr != nil {
		return f.SendErr
	}
	from, err := types.Sender(types.LatestSignerForChainID(tx.ChainId()), tx)
	if err != nil {
		return err
	}

	var receipt *types.Receipt
	if f.ReceiptFor != nil {
		receipt = f.ReceiptFor(tx)
	}
	if receipt == nil {
		receipt = &types.Receipt{Status: types.ReceiptStatusSuccessful}
	}
	receipt.TxHash = tx.Hash()
	if receipt.GasUsed == 0 {
		receipt.GasUsed = 50_000
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.nonce[from]++
	f.sent = append(f.sent, tx)
	receipt.BlockNumber = big.NewInt(int64(len(f.sent)))
	f.receipts[tx.Hash()] = receipt
	return nil
}

func (f *FakeChain) WaitMined(ctx context.Context, _ string, txHash common.Hash) (*types.Receipt, error) {
	if f.WaitErr != nil {
		return nil, f.WaitErr
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.receipts[txHash]
	if !ok {
		return nil, fmt.Errorf("fake chain: unknown tx %s", txHash.Hex())
	}
	return r, nil
}

func (f *FakeChain) GetCode(_ context.Context, _ string, address common.Address) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.code[address], nil
}

func (f *FakeChain) GetBalance(_ context.Context, _ string, address common.Address) (*big.Int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if b, ok := f.balances[address]; ok {
		return new(big.Int).Set(b), nil
	}
	return new(big.Int), nil
}

// ReturnUint registers a single uint256 response for (to, selector).
func (f *FakeChain) ReturnUint(to common.Address, selector []byte, v *big.Int) {
	f.Return(to, selector, common.LeftPadBytes(v.Bytes(), 32))
}

// ReturnBool registers a single bool response for (to, selector).
func (f *FakeChain) ReturnBool(to common.Address, selector []byte, v bool) {
	out := make([]byte, 32)
	if v {
		out[31] = 1
	}
	f.Return(to, selector, out)
}
