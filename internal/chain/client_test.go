package chain

import (
	"context"
	"math/big"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ethAPI answers the handful of eth_ methods the client uses.
type ethAPI struct {
	chainID int64
	code    hexutil.Bytes
	balance *big.Int
	baseFee *big.Int

	mu           sync.Mutex
	pendingPolls int
	receiptPolls int
}

func (e *ethAPI) ChainId() *hexutil.Big { return (*hexutil.Big)(big.NewInt(e.chainID)) }

func (e *ethAPI) GetCode(common.Address, string) hexutil.Bytes { return e.code }

func (e *ethAPI) GetBalance(common.Address, string) *hexutil.Big { return (*hexutil.Big)(e.balance) }

func (e *ethAPI) GetBlockByNumber(string, bool) *types.Header {
	return &types.Header{
		Number:     big.NewInt(7),
		Difficulty: new(big.Int),
		BaseFee:    e.baseFee,
	}
}

func (e *ethAPI) GetTransactionReceipt(hash common.Hash) (*types.Receipt, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.receiptPolls++
	if e.receiptPolls <= e.pendingPolls {
		return nil, nil
	}
	return &types.Receipt{
		Type:        types.DynamicFeeTxType,
		Status:      types.ReceiptStatusSuccessful,
		GasUsed:     51_234,
		TxHash:      hash,
		Logs:        []*types.Log{},
		BlockNumber: big.NewInt(7),
	}, nil
}

func (e *ethAPI) polls() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.receiptPolls
}

func serveEth(t *testing.T, api *ethAPI) string {
	t.Helper()
	srv := rpc.NewServer()
	require.NoError(t, srv.RegisterName("eth", api))
	ts := httptest.NewServer(srv)
	t.Cleanup(func() {
		ts.Close()
		srv.Stop()
	})
	return ts.URL
}

func devChain(id int64, urls ...string) *ChainConfig {
	return &ChainConfig{
		Name:           "dev",
		ChainID:        big.NewInt(id),
		ChainIDInt:     id,
		RPCURLs:        urls,
		NativeCurrency: "ETH",
	}
}

func TestClient_Dial(t *testing.T) {
	api := &ethAPI{chainID: 31337, code: hexutil.Bytes{0x60, 0x80}, balance: big.NewInt(42)}
	url := serveEth(t, api)
	ctx := context.Background()

	t.Run("reads through a verified connection", func(t *testing.T) {
		c := NewClient()
		defer c.Close()
		c.AddChain("dev", devChain(31337, url))

		code, err := c.GetCode(ctx, "dev", common.Address{1})
		require.NoError(t, err)
		assert.Equal(t, []byte{0x60, 0x80}, code)

		bal, err := c.GetBalance(ctx, "dev", common.Address{1})
		require.NoError(t, err)
		assert.Equal(t, int64(42), bal.Int64())
	})

	t.Run("reads the latest base fee", func(t *testing.T) {
		api := &ethAPI{chainID: 31337, baseFee: big.NewInt(1_500_000)}
		c := NewClient()
		defer c.Close()
		c.AddChain("dev", devChain(31337, serveEth(t, api)))

		fee, err := c.BaseFee(ctx, "dev")
		require.NoError(t, err)
		assert.Equal(t, int64(1_500_000), fee.Int64())
	})

	t.Run("falls over to the next rpc url", func(t *testing.T) {
		c := NewClient()
		defer c.Close()
		c.AddChain("dev", devChain(31337, "http://127.0.0.1:1", url))

		_, err := c.GetBalance(ctx, "dev", common.Address{1})
		require.NoError(t, err)
	})

	t.Run("rejects a node on another chain", func(t *testing.T) {
		c := NewClient()
		defer c.Close()
		c.AddChain("dev", devChain(84532, url))

		_, err := c.GetCode(ctx, "dev", common.Address{1})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "chain ID mismatch")
	})

	t.Run("unknown chain", func(t *testing.T) {
		_, err := NewClient().GetBalance(ctx, "nope", common.Address{})
		assert.ErrorContains(t, err, "unknown chain")
	})
}

func TestClient_WaitMined(t *testing.T) {
	t.Run("polls until the receipt appears", func(t *testing.T) {
		api := &ethAPI{chainID: 31337, pendingPolls: 2}
		c := NewClient(WithReceiptPollInterval(5 * time.Millisecond))
		defer c.Close()
		c.AddChain("dev", devChain(31337, serveEth(t, api)))

		hash := common.HexToHash("0xabc")
		receipt, err := c.WaitMined(context.Background(), "dev", hash)
		require.NoError(t, err)
		assert.Equal(t, hash, receipt.TxHash)
		assert.Equal(t, uint64(51_234), receipt.GasUsed)
		assert.Equal(t, 3, api.polls())
	})

	t.Run("gives up when the context ends", func(t *testing.T) {
		api := &ethAPI{chainID: 31337, pendingPolls: 1 << 30}
		c := NewClient(WithReceiptPollInterval(5 * time.Millisecond))
		defer c.Close()
		c.AddChain("dev", devChain(31337, serveEth(t, api)))

		ctx, cancel := context.WithTimeout(context.Background(), 40*time.Millisecond)
		defer cancel()
		_, err := c.WaitMined(ctx, "dev", common.HexToHash("0xabc"))
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	})
}
