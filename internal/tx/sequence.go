package tx

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/google/uuid"
	"github.com/yolodolo42/clawroyale/internal/chain"
	"github.com/yolodolo42/clawroyale/internal/contracts"
)

// ErrInsufficientBalance is returned before any transaction is sent when the
// signer cannot cover the token amount of a sequence.
var ErrInsufficientBalance = errors.New("insufficient token balance")

type Step string

const (
	StepApprove Step = "approve"
	StepCall    Step = "call"
	StepRevoke  Step = "revoke"
)

type StepStatus string

const (
	StatusPending   StepStatus = "pending"
	StatusSubmitted StepStatus = "submitted"
	StatusMined     StepStatus = "mined"
	StatusSkipped   StepStatus = "skipped"
	StatusFailed    StepStatus = "failed"
)

// StepEvent reports progress of one step.
type StepEvent struct {
	OpID    string
	Op      string
	Step    Step
	Status  StepStatus
	TxHash  common.Hash
	GasUsed uint64
	Err     error
}

// Journal persists operations and their steps.
type Journal interface {
	BeginOperation(id, op, chain, from string, args map[string]string) error
	RecordStep(opID string, step, status, txHash string, gasUsed uint64, errMsg string) error
	FinishOperation(opID, status, errMsg string) error
	UpsertReceipt(chain string, r *types.Receipt) error
}

// Observer receives per-step timings, e.g. for metrics.
type Observer interface {
	ObserveStep(op, step, status string, elapsed time.Duration)
}

// Call describes an optional ERC-20 approve followed by a contract call.
// When Token is the zero address or Amount is zero no approve is attempted.
type Call struct {
	Op      string
	Token   common.Address
	Spender common.Address
	Amount  *big.Int
	To      common.Address
	Data    []byte
	Args    map[string]string
}

func (c Call) needsApproval() bool {
	return c.Token != (common.Address{}) && c.Amount != nil && c.Amount.Sign() > 0
}

// Result of a completed sequence.
type Result struct {
	OpID           string
	ApproveHash    common.Hash
	ApproveSkipped bool
	Tx             *types.Transaction
	Receipt        *types.Receipt
}

// SequenceError reports a sequence that stopped at Step. ApproveHash is set
// when a fresh approve was mined before the failure.
type SequenceError struct {
	OpID        string
	Op          string
	Step        Step
	ApproveHash common.Hash
	Revoked     bool
	Err         error
}

func (e *SequenceError) Error() string {
	msg := fmt.Sprintf("%s: %s step failed: %v", e.Op, e.Step, e.Err)
	if e.AllowanceOutstanding() {
		msg += fmt.Sprintf(" (allowance from %s still outstanding)", e.ApproveHash.Hex())
	}
	return msg
}

func (e *SequenceError) Unwrap() error { return e.Err }

// AllowanceOutstanding reports whether an approve succeeded and was not revoked.
func (e *SequenceError) AllowanceOutstanding() bool {
	return e.ApproveHash != (common.Hash{}) && !e.Revoked
}

// Sequencer runs approve→call sequences one transaction at a time.
type Sequencer struct {
	sender          *Sender
	journal         Journal
	observer        Observer
	onStep          func(StepEvent)
	revokeOnFailure bool
}

type SequencerOption func(*Sequencer)

func WithJournal(j Journal) SequencerOption {
	return func(s *Sequencer) { s.journal = j }
}

func WithObserver(o Observer) SequencerOption {
	return func(s *Sequencer) { s.observer = o }
}

// WithProgress registers a callback invoked on every step transition.
func WithProgress(fn func(StepEvent)) SequencerOption {
	return func(s *Sequencer) { s.onStep = fn }
}

// WithRevokeOnFailure sends approve(spender, 0) when the call step fails
// after a fresh approve.
func WithRevokeOnFailure(v bool) SequencerOption {
	return func(s *Sequencer) { s.revokeOnFailure = v }
}

func NewSequencer(sender *Sender, opts ...SequencerOption) *Sequencer {
	s := &Sequencer{sender: sender}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Sequencer) Sender() *Sender { return s.sender }

// Run executes c. Token reads happen first so no transaction is sent when the
// balance is short.
func (s *Sequencer) Run(ctx context.Context, c Call) (*Result, error) {
	res := &Result{OpID: uuid.NewString()}
	from := s.sender.From()

	if s.journal != nil {
		if err := s.journal.BeginOperation(res.OpID, c.Op, s.sender.Chain(), from.Hex(), c.Args); err != nil {
			return nil, fmt.Errorf("journal: %w", err)
		}
	}

	fail := func(step Step, err error) (*Result, error) {
		seqErr := &SequenceError{OpID: res.OpID, Op: c.Op, Step: step, ApproveHash: res.ApproveHash, Err: err}
		if step == StepCall && s.revokeOnFailure && res.ApproveHash != (common.Hash{}) {
			seqErr.Revoked = s.revoke(ctx, res.OpID, c)
		}
		s.finish(res.OpID, "failed", seqErr.Error())
		return res, seqErr
	}

	if c.needsApproval() {
		balance, err := s.readUint(ctx, c.Token, "balanceOf", func() ([]byte, error) {
			return contracts.PackBalanceOf(from)
		})
		if err != nil {
			return fail(StepApprove, err)
		}
		if balance.Cmp(c.Amount) < 0 {
			return fail(StepApprove, fmt.Errorf("%w: have %s USDC, need %s USDC",
				ErrInsufficientBalance, chain.FormatUSDC(balance), chain.FormatUSDC(c.Amount)))
		}

		allowance, err := s.readUint(ctx, c.Token, "allowance", func() ([]byte, error) {
			return contracts.PackAllowance(from, c.Spender)
		})
		if err != nil {
			return fail(StepApprove, err)
		}

		if allowance.Cmp(c.Amount) >= 0 {
			res.ApproveSkipped = true
			s.step(StepEvent{OpID: res.OpID, Op: c.Op, Step: StepApprove, Status: StatusSkipped})
		} else {
			data, err := contracts.PackApprove(c.Spender, c.Amount)
			if err != nil {
				return fail(StepApprove, err)
			}
			_, receipt, err := s.sendStep(ctx, res.OpID, c.Op, StepApprove, c.Token, data, c.Amount)
			if err != nil {
				return fail(StepApprove, err)
			}
			res.ApproveHash = receipt.TxHash
		}
	}

	signed, receipt, err := s.sendStep(ctx, res.OpID, c.Op, StepCall, c.To, c.Data, c.Amount)
	if err != nil {
		return fail(StepCall, err)
	}
	res.Tx = signed
	res.Receipt = receipt
	s.finish(res.OpID, "completed", "")
	return res, nil
}

func (s *Sequencer) sendStep(ctx context.Context, opID, op string, step Step, to common.Address, data []byte, amount *big.Int) (*types.Transaction, *types.Receipt, error) {
	start := time.Now()
	s.step(StepEvent{OpID: opID, Op: op, Step: step, Status: StatusPending})

	signed, err := s.sender.Submit(ctx, to, data, amount)
	if err != nil {
		s.step(StepEvent{OpID: opID, Op: op, Step: step, Status: StatusFailed, Err: err})
		s.observe(op, step, StatusFailed, start)
		return nil, nil, err
	}
	s.step(StepEvent{OpID: opID, Op: op, Step: step, Status: StatusSubmitted, TxHash: signed.Hash()})

	receipt, err := s.sender.Wait(ctx, signed.Hash())
	if receipt != nil && s.journal != nil {
		_ = s.journal.UpsertReceipt(s.sender.Chain(), receipt)
	}
	if err != nil {
		ev := StepEvent{OpID: opID, Op: op, Step: step, Status: StatusFailed, TxHash: signed.Hash(), Err: err}
		if receipt != nil {
			ev.GasUsed = receipt.GasUsed
		}
		s.step(ev)
		s.observe(op, step, StatusFailed, start)
		return signed, receipt, err
	}

	s.step(StepEvent{OpID: opID, Op: op, Step: step, Status: StatusMined, TxHash: signed.Hash(), GasUsed: receipt.GasUsed})
	s.observe(op, step, StatusMined, start)
	return signed, receipt, nil
}

// revoke is best effort: the call failure is what gets reported.
func (s *Sequencer) revoke(ctx context.Context, opID string, c Call) bool {
	data, err := contracts.PackApprove(c.Spender, new(big.Int))
	if err != nil {
		return false
	}
	_, _, err = s.sendStep(ctx, opID, c.Op, StepRevoke, c.Token, data, nil)
	return err == nil
}

func (s *Sequencer) readUint(ctx context.Context, token common.Address, method string, pack func() ([]byte, error)) (*big.Int, error) {
	data, err := pack()
	if err != nil {
		return nil, err
	}
	out, err := s.sender.Backend().CallContract(ctx, s.sender.Chain(), ethereum.CallMsg{To: &token, Data: data})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", method, err)
	}
	return contracts.UnpackUint(contracts.USDCABI, method, out)
}

func (s *Sequencer) step(ev StepEvent) {
	if s.journal != nil {
		hash := ""
		if ev.TxHash != (common.Hash{}) {
			hash = ev.TxHash.Hex()
		}
		errMsg := ""
		if ev.Err != nil {
			errMsg = ev.Err.Error()
		}
		_ = s.journal.RecordStep(ev.OpID, string(ev.Step), string(ev.Status), hash, ev.GasUsed, errMsg)
	}
	if s.onStep != nil {
		s.onStep(ev)
	}
}

func (s *Sequencer) observe(op string, step Step, status StepStatus, start time.Time) {
	if s.observer != nil {
		s.observer.ObserveStep(op, string(step), string(status), time.Since(start))
	}
}

func (s *Sequencer) finish(opID, status, errMsg string) {
	if s.journal != nil {
		_ = s.journal.FinishOperation(opID, status, errMsg)
	}
}
