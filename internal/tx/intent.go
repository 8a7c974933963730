package tx

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/yolodolo42/clawroyale/internal/chain"
)

var (
	ErrValueMissing     = errors.New("value missing")
	ErrNotAllowlisted   = errors.New("destination not in allowlist")
	ErrTokenAmountLimit = errors.New("token amount exceeds max per tx limit")
)

// Backend is the part of chain.Client that building and sending needs.
type Backend interface {
	GetChainConfig(chainName string) (*chain.ChainConfig, error)
	GetNonce(ctx context.Context, chainName string, address common.Address) (uint64, error)
	SuggestGasTipCap(ctx context.Context, chainName string) (*big.Int, error)
	BaseFee(ctx context.Context, chainName string) (*big.Int, error)
	SuggestGasPrice(ctx context.Context, chainName string) (*big.Int, error)
	EstimateGas(ctx context.Context, chainName string, msg ethereum.CallMsg) (uint64, error)
	CallContract(ctx context.Context, chainName string, msg ethereum.CallMsg) ([]byte, error)
	SendTransaction(ctx context.Context, chainName string, tx *types.Transaction) error
	WaitMined(ctx context.Context, chainName string, txHash common.Hash) (*types.Receipt, error)
}

var _ Backend = (*chain.Client)(nil)

// Intent captures a state-changing contract call.
type Intent struct {
	Chain       string         // chain name (e.g., "base-sepolia")
	From        common.Address // signer address
	To          common.Address // contract
	ValueWei    *big.Int       // native value, usually zero
	Data        []byte         // calldata
	TokenAmount *big.Int       // USDC moved or approved by the call, for policy
	Nonce       *uint64        // optional override
	GasLimit    *uint64        // optional override
	MaxFeePerG  *big.Int       // optional override
	MaxPriority *big.Int       // optional override
}

// Policy enforces safety constraints before signing.
type Policy struct {
	MaxTokenAmount *big.Int
	// AllowTo, when set, restricts destinations to these contracts.
	AllowTo []common.Address
}

// SuggestedFees carries gas estimates so the caller can render them.
type SuggestedFees struct {
	GasLimit         uint64
	MaxFeePerGas     *big.Int
	MaxPriorityFee   *big.Int
	EstimatedCostWei *big.Int
}

// Validate applies the destination allowlist and the token amount cap.
func Validate(intent Intent, policy Policy) error {
	if intent.ValueWei == nil {
		return ErrValueMissing
	}

	if len(policy.AllowTo) > 0 {
		allowed := false
		for _, a := range policy.AllowTo {
			if a == intent.To {
				allowed = true
				break
			}
		}
		if !allowed {
			return fmt.Errorf("%w: %s", ErrNotAllowlisted, intent.To.Hex())
		}
	}
	if policy.MaxTokenAmount != nil && intent.TokenAmount != nil && intent.TokenAmount.Cmp(policy.MaxTokenAmount) > 0 {
		return fmt.Errorf("%w: %s > %s", ErrTokenAmountLimit,
			chain.FormatUSDC(intent.TokenAmount), chain.FormatUSDC(policy.MaxTokenAmount))
	}
	return nil
}

// baseFee reads the pending base fee, falling back to the legacy gas price on
// chains whose headers carry none.
func baseFee(ctx context.Context, b Backend, chainName string) (*big.Int, error) {
	base, err := b.BaseFee(ctx, chainName)
	if err != nil {
		return nil, fmt.Errorf("base fee: %w", err)
	}
	if base != nil {
		return base, nil
	}
	price, err := b.SuggestGasPrice(ctx, chainName)
	if err != nil {
		return nil, fmt.Errorf("gas price: %w", err)
	}
	return price, nil
}

// BuildUnsignedTx simulates and prepares an unsigned EIP-1559 transaction.
// The eth_call simulation surfaces contract reverts before anything is signed.
func BuildUnsignedTx(ctx context.Context, b Backend, intent Intent) (*types.Transaction, SuggestedFees, error) {
	if intent.ValueWei == nil {
		return nil, SuggestedFees{}, ErrValueMissing
	}

	cfg, err := b.GetChainConfig(intent.Chain)
	if err != nil {
		return nil, SuggestedFees{}, err
	}

	// Nonce
	nonce := uint64(0)
	if intent.Nonce != nil {
		nonce = *intent.Nonce
	} else {
		n, err := b.GetNonce(ctx, intent.Chain, intent.From)
		if err != nil {
			return nil, SuggestedFees{}, fmt.Errorf("nonce: %w", err)
		}
		nonce = n
	}

	// Fees
	maxFee := intent.MaxFeePerG
	maxPrio := intent.MaxPriority
	if maxFee == nil || maxPrio == nil {
		tip, err := b.SuggestGasTipCap(ctx, intent.Chain)
		if err != nil {
			return nil, SuggestedFees{}, fmt.Errorf("tip cap: %w", err)
		}
		if maxPrio == nil {
			maxPrio = tip
		}
		if maxFee == nil {
			base, err := baseFee(ctx, b, intent.Chain)
			if err != nil {
				return nil, SuggestedFees{}, err
			}
			// Leave headroom for one base fee doubling.
			maxFee = new(big.Int).Add(new(big.Int).Mul(base, big.NewInt(2)), maxPrio)
		}
	}

	call := ethereum.CallMsg{
		From:      intent.From,
		To:        &intent.To,
		GasFeeCap: maxFee,
		GasTipCap: maxPrio,
		Value:     intent.ValueWei,
		Data:      intent.Data,
	}

	// Gas limit
	gasLimit := uint64(0)
	if intent.GasLimit != nil {
		gasLimit = *intent.GasLimit
	} else {
		gl, err := b.EstimateGas(ctx, intent.Chain, call)
		if err != nil {
			return nil, SuggestedFees{}, fmt.Errorf("estimate gas: %w", err)
		}
		gasLimit = gl
	}

	call.Gas = gasLimit
	if _, err := b.CallContract(ctx, intent.Chain, call); err != nil {
		return nil, SuggestedFees{}, fmt.Errorf("simulation failed: %w", err)
	}

	tx := types.NewTx(&types.DynamicFeeTx{
		ChainID:   cfg.ChainID,
		Nonce:     nonce,
		GasTipCap: maxPrio,
		GasFeeCap: maxFee,
		Gas:       gasLimit,
		To:        &intent.To,
		Value:     intent.ValueWei,
		Data:      intent.Data,
	})

	total := new(big.Int).Mul(maxFee, new(big.Int).SetUint64(gasLimit))
	total.Add(total, intent.ValueWei)

	return tx, SuggestedFees{
		GasLimit:         gasLimit,
		MaxFeePerGas:     maxFee,
		MaxPriorityFee:   maxPrio,
		EstimatedCostWei: total,
	}, nil
}
