// Package tournament drives the ClawRoyale, ClawRoyaleSmart and BettingPool
// contracts: public reads through eth_call and wallet writes through the
// transaction sequencer.
package tournament

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/yolodolo42/clawroyale/internal/contracts"
	"github.com/yolodolo42/clawroyale/internal/tx"
)

var (
	ErrInsufficientBalance = tx.ErrInsufficientBalance
	ErrNotCompleted        = errors.New("tournament not completed yet")
	ErrNotRegistered       = errors.New("not registered in tournament")
	ErrAlreadyClaimed      = errors.New("prize already claimed")
	ErrNoPrize             = errors.New("eliminated without referral, no prize to claim")
	ErrInvalidAmount       = errors.New("amount must be greater than zero")
	ErrInvalidDuration     = errors.New("duration must be greater than zero")
	ErrReadOnly            = errors.New("no wallet configured")
	ErrNoContract          = errors.New("contract address not configured")
)

// Reader is the read side of chain.Client.
type Reader interface {
	CallContract(ctx context.Context, chainName string, msg ethereum.CallMsg) ([]byte, error)
	GetCode(ctx context.Context, chainName string, address common.Address) ([]byte, error)
	GetBalance(ctx context.Context, chainName string, address common.Address) (*big.Int, error)
}

// Service is the tournament operator for one chain and one set of
// deployed contracts. Writes require a sequencer.
type Service struct {
	reader Reader
	chain  string
	addrs  contracts.Addresses
	seq    *tx.Sequencer
}

func NewService(reader Reader, chainName string, addrs contracts.Addresses, seq *tx.Sequencer) *Service {
	return &Service{reader: reader, chain: chainName, addrs: addrs, seq: seq}
}

func (s *Service) Addresses() contracts.Addresses { return s.addrs }

func (s *Service) Chain() string { return s.chain }

// Account is the wallet address writes are sent from.
func (s *Service) Account() (common.Address, error) {
	if s.seq == nil {
		return common.Address{}, ErrReadOnly
	}
	return s.seq.Sender().From(), nil
}

func (s *Service) call(ctx context.Context, to common.Address, data []byte) ([]byte, error) {
	if to == (common.Address{}) {
		return nil, ErrNoContract
	}
	return s.reader.CallContract(ctx, s.chain, ethereum.CallMsg{To: &to, Data: data})
}

func (s *Service) readUint(ctx context.Context, a abi.ABI, to common.Address, method string, args ...interface{}) (*big.Int, error) {
	data, err := a.Pack(method, args...)
	if err != nil {
		return nil, err
	}
	out, err := s.call(ctx, to, data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", method, err)
	}
	return contracts.UnpackUint(a, method, out)
}

func (s *Service) readBool(ctx context.Context, a abi.ABI, to common.Address, method string, args ...interface{}) (bool, error) {
	data, err := a.Pack(method, args...)
	if err != nil {
		return false, err
	}
	out, err := s.call(ctx, to, data)
	if err != nil {
		return false, fmt.Errorf("%s: %w", method, err)
	}
	return contracts.UnpackBool(a, method, out)
}

func (s *Service) readAddress(ctx context.Context, a abi.ABI, to common.Address, method string, args ...interface{}) (common.Address, error) {
	data, err := a.Pack(method, args...)
	if err != nil {
		return common.Address{}, err
	}
	out, err := s.call(ctx, to, data)
	if err != nil {
		return common.Address{}, fmt.Errorf("%s: %w", method, err)
	}
	return contracts.UnpackAddress(a, method, out)
}

// TxResult is the outcome of a write.
type TxResult struct {
	OpID           string
	TxHash         common.Hash
	ApproveHash    common.Hash
	ApproveSkipped bool
	GasUsed        uint64
	BlockNumber    uint64
}

func (s *Service) run(ctx context.Context, c tx.Call) (*tx.Result, TxResult, error) {
	if s.seq == nil {
		return nil, TxResult{}, ErrReadOnly
	}
	if c.To == (common.Address{}) {
		return nil, TxResult{}, fmt.Errorf("%s: %w", c.Op, ErrNoContract)
	}
	res, err := s.seq.Run(ctx, c)
	if err != nil {
		return res, TxResult{}, err
	}
	out := TxResult{
		OpID:           res.OpID,
		TxHash:         res.Receipt.TxHash,
		ApproveHash:    res.ApproveHash,
		ApproveSkipped: res.ApproveSkipped,
		GasUsed:        res.Receipt.GasUsed,
	}
	if res.Receipt.BlockNumber != nil {
		out.BlockNumber = res.Receipt.BlockNumber.Uint64()
	}
	return res, out, nil
}
