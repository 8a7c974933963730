package tx

import (
	"context"
	"errors"
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yolodolo42/clawroyale/internal/contracts"
	"github.com/yolodolo42/clawroyale/internal/testutil"
	"github.com/yolodolo42/clawroyale/internal/wallet"
)

const hardhatKey = "ac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80"

var (
	usdc        = common.HexToAddress("0x036CbD53842c5426634e7929541eC2318f3dCF7e")
	selBalance  = contracts.USDCABI.Methods["balanceOf"].ID
	selAllow    = contracts.USDCABI.Methods["allowance"].ID
	selApprove  = contracts.USDCABI.Methods["approve"].ID
	selRegister = contracts.ClawRoyaleABI.Methods["register"].ID
)

type memJournal struct {
	mu       sync.Mutex
	ops      map[string]string
	steps    []string
	receipts int
}

func newMemJournal() *memJournal {
	return &memJournal{ops: make(map[string]string)}
}

func (j *memJournal) BeginOperation(id, op, chain, from string, args map[string]string) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.ops[id] = "running"
	return nil
}

func (j *memJournal) RecordStep(opID string, step, status, txHash string, gasUsed uint64, errMsg string) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.steps = append(j.steps, step+":"+status)
	return nil
}

func (j *memJournal) FinishOperation(opID, status, errMsg string) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.ops[opID] = status
	return nil
}

func (j *memJournal) UpsertReceipt(chain string, r *types.Receipt) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.receipts++
	return nil
}

type countingObserver struct {
	mu    sync.Mutex
	calls map[string]int
}

func (o *countingObserver) ObserveStep(op, step, status string, _ time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.calls == nil {
		o.calls = make(map[string]int)
	}
	o.calls[op+"/"+step+"/"+status]++
}

func newSequencer(t *testing.T, fc *testutil.FakeChain, opts ...SequencerOption) *Sequencer {
	t.Helper()
	signer, err := wallet.NewKeySigner(hardhatKey)
	require.NoError(t, err)
	return NewSequencer(NewSender(fc, signer, testutil.TestChain), opts...)
}

func registerCall(t *testing.T, fee int64) Call {
	t.Helper()
	data, err := contracts.PackRegister(contracts.AgentIDFromName("agent1"), common.Address{})
	require.NoError(t, err)
	return Call{
		Op:      "register",
		Token:   usdc,
		Spender: claw,
		Amount:  big.NewInt(fee),
		To:      claw,
		Data:    data,
	}
}

func TestSequencer_ApproveThenCall(t *testing.T) {
	fc := testutil.NewFakeChain()
	fc.ReturnUint(usdc, selBalance, big.NewInt(10_000_000))
	fc.ReturnUint(usdc, selAllow, big.NewInt(0))

	j := newMemJournal()
	obs := &countingObserver{}
	var events []StepEvent
	seq := newSequencer(t, fc, WithJournal(j), WithObserver(obs), WithProgress(func(ev StepEvent) {
		events = append(events, ev)
	}))

	res, err := seq.Run(context.Background(), registerCall(t, 5_000_000))
	require.NoError(t, err)

	sel := fc.SentSelectors()
	require.Len(t, sel, 2)
	assert.Equal(t, selApprove, sel[0])
	assert.Equal(t, selRegister, sel[1])

	sent := fc.Sent()
	assert.Equal(t, uint64(0), sent[0].Nonce())
	assert.Equal(t, uint64(1), sent[1].Nonce())
	assert.Equal(t, usdc, *sent[0].To())

	assert.False(t, res.ApproveSkipped)
	assert.Equal(t, sent[0].Hash(), res.ApproveHash)
	assert.Equal(t, sent[1].Hash(), res.Receipt.TxHash)
	assert.NotEmpty(t, res.OpID)

	assert.Equal(t, "completed", j.ops[res.OpID])
	assert.Equal(t, 2, j.receipts)
	assert.Equal(t, []string{
		"approve:pending", "approve:submitted", "approve:mined",
		"call:pending", "call:submitted", "call:mined",
	}, j.steps)
	assert.Len(t, events, 6)
	assert.Equal(t, 1, obs.calls["register/approve/mined"])
	assert.Equal(t, 1, obs.calls["register/call/mined"])
}

func TestSequencer_ReusesAllowance(t *testing.T) {
	fc := testutil.NewFakeChain()
	fc.ReturnUint(usdc, selBalance, big.NewInt(10_000_000))
	fc.ReturnUint(usdc, selAllow, big.NewInt(5_000_000))

	seq := newSequencer(t, fc)
	res, err := seq.Run(context.Background(), registerCall(t, 5_000_000))
	require.NoError(t, err)

	assert.True(t, res.ApproveSkipped)
	assert.Equal(t, common.Hash{}, res.ApproveHash)
	sel := fc.SentSelectors()
	require.Len(t, sel, 1)
	assert.Equal(t, selRegister, sel[0])
}

func TestSequencer_NoApprovalForZeroAmount(t *testing.T) {
	fc := testutil.NewFakeChain()
	seq := newSequencer(t, fc)

	res, err := seq.Run(context.Background(), registerCall(t, 0))
	require.NoError(t, err)
	assert.False(t, res.ApproveSkipped)
	assert.Len(t, fc.Sent(), 1)
}

func TestSequencer_InsufficientBalance(t *testing.T) {
	fc := testutil.NewFakeChain()
	fc.ReturnUint(usdc, selBalance, big.NewInt(1_000_000))
	fc.ReturnUint(usdc, selAllow, big.NewInt(0))

	seq := newSequencer(t, fc)
	_, err := seq.Run(context.Background(), registerCall(t, 5_000_000))
	require.ErrorIs(t, err, ErrInsufficientBalance)
	assert.Contains(t, err.Error(), "have 1.000000 USDC, need 5.000000 USDC")
	assert.Empty(t, fc.Sent(), "nothing may be sent when the balance is short")
}

func TestSequencer_RevertedCall(t *testing.T) {
	fc := testutil.NewFakeChain()
	fc.ReturnUint(usdc, selBalance, big.NewInt(10_000_000))
	fc.ReturnUint(usdc, selAllow, big.NewInt(0))
	fc.ReceiptFor = func(tx *types.Transaction) *types.Receipt {
		if len(tx.Data()) >= 4 && string(tx.Data()[:4]) == string(selRegister) {
			return &types.Receipt{Status: types.ReceiptStatusFailed}
		}
		return nil
	}

	j := newMemJournal()
	seq := newSequencer(t, fc, WithJournal(j))
	res, err := seq.Run(context.Background(), registerCall(t, 5_000_000))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrReverted)

	var seqErr *SequenceError
	require.True(t, errors.As(err, &seqErr))
	assert.Equal(t, StepCall, seqErr.Step)
	assert.Equal(t, "register", seqErr.Op)
	assert.Equal(t, fc.Sent()[0].Hash(), seqErr.ApproveHash)
	assert.True(t, seqErr.AllowanceOutstanding())
	assert.Contains(t, err.Error(), "still outstanding")
	assert.Equal(t, "failed", j.ops[res.OpID])
}

func TestSequencer_RevokeOnFailure(t *testing.T) {
	fc := testutil.NewFakeChain()
	fc.ReturnUint(usdc, selBalance, big.NewInt(10_000_000))
	fc.ReturnUint(usdc, selAllow, big.NewInt(0))
	fc.ReceiptFor = func(tx *types.Transaction) *types.Receipt {
		if string(tx.Data()[:4]) == string(selRegister) {
			return &types.Receipt{Status: types.ReceiptStatusFailed}
		}
		return nil
	}

	seq := newSequencer(t, fc, WithRevokeOnFailure(true))
	_, err := seq.Run(context.Background(), registerCall(t, 5_000_000))

	var seqErr *SequenceError
	require.True(t, errors.As(err, &seqErr))
	assert.True(t, seqErr.Revoked)
	assert.False(t, seqErr.AllowanceOutstanding())

	sent := fc.Sent()
	require.Len(t, sent, 3)
	assert.Equal(t, selApprove, sent[2].Data()[:4])

	args, err := contracts.USDCABI.Methods["approve"].Inputs.Unpack(sent[2].Data()[4:])
	require.NoError(t, err)
	assert.Equal(t, claw, args[0])
	assert.Equal(t, 0, args[1].(*big.Int).Sign())
}

func TestSequencer_NoRevokeWhenAllowanceReused(t *testing.T) {
	fc := testutil.NewFakeChain()
	fc.ReturnUint(usdc, selBalance, big.NewInt(10_000_000))
	fc.ReturnUint(usdc, selAllow, big.NewInt(10_000_000))
	fc.ReceiptFor = func(*types.Transaction) *types.Receipt {
		return &types.Receipt{Status: types.ReceiptStatusFailed}
	}

	seq := newSequencer(t, fc, WithRevokeOnFailure(true))
	_, err := seq.Run(context.Background(), registerCall(t, 5_000_000))

	var seqErr *SequenceError
	require.True(t, errors.As(err, &seqErr))
	assert.False(t, seqErr.Revoked)
	assert.Len(t, fc.Sent(), 1)
}

func TestSequencer_SendFailure(t *testing.T) {
	fc := testutil.NewFakeChain()
	fc.SendErr = errors.New("nonce too low")

	seq := newSequencer(t, fc)
	_, err := seq.Run(context.Background(), registerCall(t, 0))

	var seqErr *SequenceError
	require.True(t, errors.As(err, &seqErr))
	assert.Equal(t, StepCall, seqErr.Step)
	assert.False(t, seqErr.AllowanceOutstanding())
	assert.Contains(t, err.Error(), "nonce too low")
}

func TestSender_WaitTimeout(t *testing.T) {
	fc := testutil.NewFakeChain()
	fc.WaitErr = context.DeadlineExceeded

	signer, err := wallet.NewKeySigner(hardhatKey)
	require.NoError(t, err)
	s := NewSender(fc, signer, testutil.TestChain, WithWaitTimeout(time.Millisecond))

	_, _, err = s.Send(context.Background(), claw, []byte{1, 2, 3, 4}, nil)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestSender_PolicyBlocksBeforeSigning(t *testing.T) {
	fc := testutil.NewFakeChain()
	signer, err := wallet.NewKeySigner(hardhatKey)
	require.NoError(t, err)
	s := NewSender(fc, signer, testutil.TestChain, WithPolicy(Policy{MaxTokenAmount: big.NewInt(1)}))

	_, err = s.Submit(context.Background(), claw, []byte{1, 2, 3, 4}, big.NewInt(2))
	assert.ErrorIs(t, err, ErrTokenAmountLimit)
	assert.Empty(t, fc.Sent())
}

func TestSender_AllowlistBlocksOtherContracts(t *testing.T) {
	fc := testutil.NewFakeChain()
	signer, err := wallet.NewKeySigner(hardhatKey)
	require.NoError(t, err)
	s := NewSender(fc, signer, testutil.TestChain, WithPolicy(Policy{AllowTo: []common.Address{claw}}))

	stranger := common.HexToAddress("0x000000000000000000000000000000000000dead")
	_, err = s.Submit(context.Background(), stranger, []byte{1, 2, 3, 4}, nil)
	assert.ErrorIs(t, err, ErrNotAllowlisted)
	assert.Empty(t, fc.Sent())

	_, err = s.Submit(context.Background(), claw, []byte{1, 2, 3, 4}, nil)
	require.NoError(t, err)
	assert.Len(t, fc.Sent(), 1)
}
