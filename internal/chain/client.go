package chain

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
)

const (
	// DefaultReceiptPollInterval is how often WaitMined asks for a receipt.
	DefaultReceiptPollInterval = 2 * time.Second

	dialTimeout    = 10 * time.Second
	chainIDTimeout = 5 * time.Second
)

// Client is the JSON-RPC side of the tournament: one ethclient per chain,
// dialed lazily and kept for the life of the process.
type Client struct {
	mu           sync.RWMutex
	chains       map[string]*ChainConfig
	conns        map[string]*ethclient.Client
	pollInterval time.Duration
}

type Option func(*Client)

// WithReceiptPollInterval changes the WaitMined polling cadence.
func WithReceiptPollInterval(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.pollInterval = d
		}
	}
}

func NewClient(opts ...Option) *Client {
	c := &Client{
		chains:       DefaultChains(),
		conns:        make(map[string]*ethclient.Client),
		pollInterval: DefaultReceiptPollInterval,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// AddChain adds or replaces a chain. An open connection to the old
// endpoints is closed.
func (c *Client) AddChain(name string, config *ChainConfig) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.chains[name] = config
	if conn, ok := c.conns[name]; ok {
		conn.Close()
		delete(c.conns, name)
	}
}

func (c *Client) GetChainConfig(chainName string) (*ChainConfig, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	config, ok := c.chains[chainName]
	if !ok {
		return nil, fmt.Errorf("unknown chain: %s", chainName)
	}
	return config, nil
}

// conn returns the cached connection for chainName, dialing the configured
// RPC URLs in order until one answers with the expected chain ID. The write
// lock is held while dialing so concurrent callers share one connection.
func (c *Client) conn(chainName string) (*ethclient.Client, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	config, ok := c.chains[chainName]
	if !ok {
		return nil, fmt.Errorf("unknown chain: %s", chainName)
	}
	if conn, ok := c.conns[chainName]; ok {
		return conn, nil
	}

	var errs []error
	for _, url := range config.RPCURLs {
		conn, err := dialChecked(url, config.ChainID)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", url, err))
			continue
		}
		c.conns[chainName] = conn
		return conn, nil
	}
	return nil, fmt.Errorf("failed to connect to %s: %w", chainName, errors.Join(errs...))
}

func dialChecked(url string, want *big.Int) (*ethclient.Client, error) {
	ctx, cancel := context.WithTimeout(context.Background(), dialTimeout)
	defer cancel()
	conn, err := ethclient.DialContext(ctx, url)
	if err != nil {
		return nil, err
	}

	ctx, cancel = context.WithTimeout(context.Background(), chainIDTimeout)
	defer cancel()
	got, err := conn.ChainID(ctx)
	if err != nil {
		conn.Close()
		return nil, err
	}
	if got.Cmp(want) != 0 {
		conn.Close()
		return nil, fmt.Errorf("chain ID mismatch: expected %s, got %s", want, got)
	}
	return conn, nil
}

// with runs fn against the connection for chainName.
func with[T any](c *Client, chainName string, fn func(*ethclient.Client) (T, error)) (T, error) {
	conn, err := c.conn(chainName)
	if err != nil {
		var zero T
		return zero, err
	}
	return fn(conn)
}

func (c *Client) GetBalance(ctx context.Context, chainName string, address common.Address) (*big.Int, error) {
	return with(c, chainName, func(conn *ethclient.Client) (*big.Int, error) {
		return conn.BalanceAt(ctx, address, nil)
	})
}

// GetNonce returns the pending nonce so back-to-back approve and call
// transactions get consecutive nonces.
func (c *Client) GetNonce(ctx context.Context, chainName string, address common.Address) (uint64, error) {
	return with(c, chainName, func(conn *ethclient.Client) (uint64, error) {
		return conn.PendingNonceAt(ctx, address)
	})
}

func (c *Client) EstimateGas(ctx context.Context, chainName string, msg ethereum.CallMsg) (uint64, error) {
	return with(c, chainName, func(conn *ethclient.Client) (uint64, error) {
		return conn.EstimateGas(ctx, msg)
	})
}

func (c *Client) SuggestGasPrice(ctx context.Context, chainName string) (*big.Int, error) {
	return with(c, chainName, func(conn *ethclient.Client) (*big.Int, error) {
		return conn.SuggestGasPrice(ctx)
	})
}

// BaseFee returns the latest block's base fee, nil on chains without
// EIP-1559.
func (c *Client) BaseFee(ctx context.Context, chainName string) (*big.Int, error) {
	return with(c, chainName, func(conn *ethclient.Client) (*big.Int, error) {
		head, err := conn.HeaderByNumber(ctx, nil)
		if err != nil {
			return nil, err
		}
		return head.BaseFee, nil
	})
}

func (c *Client) SuggestGasTipCap(ctx context.Context, chainName string) (*big.Int, error) {
	return with(c, chainName, func(conn *ethclient.Client) (*big.Int, error) {
		return conn.SuggestGasTipCap(ctx)
	})
}

func (c *Client) SendTransaction(ctx context.Context, chainName string, tx *types.Transaction) error {
	_, err := with(c, chainName, func(conn *ethclient.Client) (struct{}, error) {
		return struct{}{}, conn.SendTransaction(ctx, tx)
	})
	return err
}

// GetCode returns the deployed bytecode at address, empty for an EOA or an
// address nothing was deployed to.
func (c *Client) GetCode(ctx context.Context, chainName string, address common.Address) ([]byte, error) {
	return with(c, chainName, func(conn *ethclient.Client) ([]byte, error) {
		return conn.CodeAt(ctx, address, nil)
	})
}

// CallContract runs an eth_call against the latest block.
func (c *Client) CallContract(ctx context.Context, chainName string, msg ethereum.CallMsg) ([]byte, error) {
	return with(c, chainName, func(conn *ethclient.Client) ([]byte, error) {
		return conn.CallContract(ctx, msg, nil)
	})
}

// WaitMined polls for the receipt of txHash until it exists or ctx ends.
// The receipt is returned whatever its status; callers check for reverts.
// RPC errors other than not-found are retried and reported if ctx ends
// first.
func (c *Client) WaitMined(ctx context.Context, chainName string, txHash common.Hash) (*types.Receipt, error) {
	conn, err := c.conn(chainName)
	if err != nil {
		return nil, err
	}

	c.mu.RLock()
	interval := c.pollInterval
	c.mu.RUnlock()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var lastErr error
	for {
		receipt, err := conn.TransactionReceipt(ctx, txHash)
		switch {
		case err == nil:
			return receipt, nil
		case !errors.Is(err, ethereum.NotFound):
			lastErr = err
		}

		select {
		case <-ctx.Done():
			if lastErr != nil {
				return nil, fmt.Errorf("waiting for %s: %w (last rpc error: %v)", txHash.Hex(), ctx.Err(), lastErr)
			}
			return nil, fmt.Errorf("waiting for %s: %w", txHash.Hex(), ctx.Err())
		case <-ticker.C:
		}
	}
}

// Close drops every open connection.
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	for name, conn := range c.conns {
		conn.Close()
		delete(c.conns, name)
	}
}
