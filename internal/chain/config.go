package chain

import "math/big"

// DefaultChainName is the network the tournament contracts are deployed on.
const DefaultChainName = "base-sepolia"

// ChainConfig holds configuration for an EVM chain.
// Invariant: ChainID and ChainIDInt must always represent the same value.
// ChainIDInt exists for YAML serialization (big.Int doesn't serialize cleanly).
// ChainID is used at runtime for RPC calls and transaction signing.
type ChainConfig struct {
	Name           string   `yaml:"name"`
	ChainID        *big.Int `yaml:"-"`        // Runtime use (signing, RPC validation)
	ChainIDInt     int64    `yaml:"chain_id"` // YAML serialization
	RPCURLs        []string `yaml:"rpc_urls"`
	ExplorerURL    string   `yaml:"explorer_url"`
	NativeCurrency string   `yaml:"native_currency"`
	IsTestnet      bool     `yaml:"is_testnet"`
}

// WithRPCURL returns a copy of the config that dials only rpcURL.
func (c *ChainConfig) WithRPCURL(rpcURL string) *ChainConfig {
	cp := *c
	cp.ChainID = new(big.Int).Set(c.ChainID)
	cp.RPCURLs = []string{rpcURL}
	return &cp
}

// TxURL returns the explorer link for a transaction hash, or "" when the
// chain has no explorer.
func (c *ChainConfig) TxURL(txHash string) string {
	if c.ExplorerURL == "" {
		return ""
	}
	return c.ExplorerURL + "/tx/" + txHash
}

// DefaultChains returns the chains the tournament can run on
func DefaultChains() map[string]*ChainConfig {
	return map[string]*ChainConfig{
		"base-sepolia": {
			Name:           "Base Sepolia Testnet",
			ChainID:        big.NewInt(84532),
			ChainIDInt:     84532,
			RPCURLs:        []string{"https://sepolia.base.org"},
			ExplorerURL:    "https://sepolia.basescan.org",
			NativeCurrency: "ETH",
			IsTestnet:      true,
		},
		"base": {
			Name:           "Base",
			ChainID:        big.NewInt(8453),
			ChainIDInt:     8453,
			RPCURLs:        []string{"https://mainnet.base.org", "https://base.llamarpc.com"},
			ExplorerURL:    "https://basescan.org",
			NativeCurrency: "ETH",
			IsTestnet:      false,
		},
		"sepolia": {
			Name:           "Sepolia Testnet",
			ChainID:        big.NewInt(11155111),
			ChainIDInt:     11155111,
			RPCURLs:        []string{"https://rpc.sepolia.org", "https://sepolia.drpc.org"},
			ExplorerURL:    "https://sepolia.etherscan.io",
			NativeCurrency: "ETH",
			IsTestnet:      true,
		},
		// Local hardhat node used by the contract test suite.
		"localhost": {
			Name:           "Hardhat Local",
			ChainID:        big.NewInt(31337),
			ChainIDInt:     31337,
			RPCURLs:        []string{"http://127.0.0.1:8545"},
			NativeCurrency: "ETH",
			IsTestnet:      true,
		},
	}
}
