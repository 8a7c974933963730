package tx

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/yolodolo42/clawroyale/internal/wallet"
)

const (
	DefaultSendTimeout = 20 * time.Second
	DefaultWaitTimeout = 2 * time.Minute
)

// ErrReverted is returned for a mined transaction whose receipt status is 0.
var ErrReverted = errors.New("transaction reverted")

// Sender signs, submits and waits for single transactions on one chain.
type Sender struct {
	backend     Backend
	signer      wallet.Signer
	chain       string
	policy      Policy
	sendTimeout time.Duration
	waitTimeout time.Duration
}

// SenderOption configures a Sender.
type SenderOption func(*Sender)

func WithPolicy(p Policy) SenderOption {
	return func(s *Sender) { s.policy = p }
}

func WithSendTimeout(d time.Duration) SenderOption {
	return func(s *Sender) {
		if d > 0 {
			s.sendTimeout = d
		}
	}
}

func WithWaitTimeout(d time.Duration) SenderOption {
	return func(s *Sender) {
		if d > 0 {
			s.waitTimeout = d
		}
	}
}

func NewSender(backend Backend, signer wallet.Signer, chainName string, opts ...SenderOption) *Sender {
	s := &Sender{
		backend:     backend,
		signer:      signer,
		chain:       chainName,
		sendTimeout: DefaultSendTimeout,
		waitTimeout: DefaultWaitTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Sender) From() common.Address { return s.signer.Address() }

func (s *Sender) Chain() string { return s.chain }

func (s *Sender) Backend() Backend { return s.backend }

// Submit validates, builds, signs and broadcasts a call without waiting.
func (s *Sender) Submit(ctx context.Context, to common.Address, data []byte, tokenAmount *big.Int) (*types.Transaction, error) {
	intent := Intent{
		Chain:       s.chain,
		From:        s.signer.Address(),
		To:          to,
		ValueWei:    new(big.Int),
		Data:        data,
		TokenAmount: tokenAmount,
	}
	if err := Validate(intent, s.policy); err != nil {
		return nil, err
	}

	unsigned, _, err := BuildUnsignedTx(ctx, s.backend, intent)
	if err != nil {
		return nil, err
	}

	signed, err := s.signer.SignTransaction(unsigned, unsigned.ChainId())
	if err != nil {
		return nil, fmt.Errorf("failed to sign tx: %w", err)
	}

	sendCtx, cancel := context.WithTimeout(ctx, s.sendTimeout)
	defer cancel()
	if err := s.backend.SendTransaction(sendCtx, s.chain, signed); err != nil {
		return nil, fmt.Errorf("failed to send tx: %w", err)
	}
	return signed, nil
}

// Wait blocks until txHash is mined or the wait timeout elapses. A receipt
// with status 0 is returned together with ErrReverted.
func (s *Sender) Wait(ctx context.Context, txHash common.Hash) (*types.Receipt, error) {
	waitCtx, cancel := context.WithTimeout(ctx, s.waitTimeout)
	defer cancel()

	receipt, err := s.backend.WaitMined(waitCtx, s.chain, txHash)
	if err != nil {
		return nil, fmt.Errorf("waiting for %s: %w", txHash.Hex(), err)
	}
	if receipt == nil {
		return nil, fmt.Errorf("waiting for %s: no receipt", txHash.Hex())
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return receipt, fmt.Errorf("%w: %s", ErrReverted, txHash.Hex())
	}
	return receipt, nil
}

// Send submits a call and waits for its receipt.
func (s *Sender) Send(ctx context.Context, to common.Address, data []byte, tokenAmount *big.Int) (*types.Transaction, *types.Receipt, error) {
	signed, err := s.Submit(ctx, to, data, tokenAmount)
	if err != nil {
		return nil, nil, err
	}
	receipt, err := s.Wait(ctx, signed.Hash())
	return signed, receipt, err
}
