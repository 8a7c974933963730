package tournament

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yolodolo42/clawroyale/internal/contracts"
	"github.com/yolodolo42/clawroyale/internal/testutil"
	"github.com/yolodolo42/clawroyale/internal/tx"
	"github.com/yolodolo42/clawroyale/internal/wallet"
)

const hardhatKey = "ac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80"

var (
	addrs   = contracts.BaseSepolia()
	me      = common.HexToAddress("0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266")
	alice   = common.HexToAddress("0x00000000000000000000000000000000000a11ce")
	bob     = common.HexToAddress("0x0000000000000000000000000000000000000b0b")
	agentID = contracts.AgentIDFromName("clawdywithmeatballs")
)

func method(name string) []byte { return contracts.ClawRoyaleABI.Methods[name].ID }

func poolMethod(name string) []byte { return contracts.BettingPoolABI.Methods[name].ID }

func usdcMethod(name string) []byte { return contracts.USDCABI.Methods[name].ID }

func packOut(t *testing.T, name string, vals ...interface{}) []byte {
	t.Helper()
	out, err := contracts.ClawRoyaleABI.Methods[name].Outputs.Pack(vals...)
	require.NoError(t, err)
	return out
}

type fixture struct {
	fc  *testutil.FakeChain
	svc *Service
}

func newFixture(t *testing.T, opts ...tx.SequencerOption) *fixture {
	t.Helper()
	fc := testutil.NewFakeChain()
	signer, err := wallet.NewKeySigner(hardhatKey)
	require.NoError(t, err)
	seq := tx.NewSequencer(tx.NewSender(fc, signer, testutil.TestChain), opts...)
	return &fixture{fc: fc, svc: NewService(fc, testutil.TestChain, addrs, seq)}
}

func (f *fixture) state(t *testing.T, status contracts.TournamentStatus, pool, fee, players int64) {
	t.Helper()
	c := addrs.ClawRoyale
	f.fc.Return(c, method("status"), packOut(t, "status", uint8(status)))
	f.fc.ReturnUint(c, method("prizePool"), big.NewInt(pool))
	f.fc.ReturnUint(c, method("entryFee"), big.NewInt(fee))
	f.fc.ReturnUint(c, method("getPlayerCount"), big.NewInt(players))
}

func (f *fixture) player(t *testing.T, p contracts.Player) {
	t.Helper()
	f.fc.Return(addrs.ClawRoyale, method("players"), packOut(t, "players",
		p.AgentId, p.EthAddress, p.Score, p.Eliminated, p.Registered, p.Referrer, p.ClaimedPrize))
}

func (f *fixture) usdc(balance, allowance int64) {
	f.fc.ReturnUint(addrs.USDC, usdcMethod("balanceOf"), big.NewInt(balance))
	f.fc.ReturnUint(addrs.USDC, usdcMethod("allowance"), big.NewInt(allowance))
}

func TestSnapshot(t *testing.T) {
	f := newFixture(t)
	f.state(t, contracts.StatusActive, 49_500_000, 5_000_000, 3)

	st, err := f.svc.Snapshot(context.Background())
	require.NoError(t, err)
	assert.Equal(t, contracts.StatusActive, st.Status)
	assert.Equal(t, big.NewInt(49_500_000), st.PrizePool)
	assert.Equal(t, big.NewInt(5_000_000), st.EntryFee)
	assert.Equal(t, big.NewInt(3), st.PlayerCount)
	assert.Equal(t, big.NewInt(16_500_000), st.EstimatedPayout())
	assert.False(t, st.FetchedAt.IsZero())
}

func TestSnapshot_NoContract(t *testing.T) {
	fc := testutil.NewFakeChain()
	svc := NewService(fc, testutil.TestChain, contracts.Addresses{}, nil)
	_, err := svc.Snapshot(context.Background())
	assert.ErrorIs(t, err, ErrNoContract)
}

func TestEstimatedPayout(t *testing.T) {
	assert.Equal(t, int64(0), EstimatedPayout(big.NewInt(100), big.NewInt(0)).Int64())
	assert.Equal(t, int64(0), EstimatedPayout(nil, big.NewInt(2)).Int64())
	assert.Equal(t, int64(33), EstimatedPayout(big.NewInt(100), big.NewInt(3)).Int64())
}

func TestPlayers_SortedByScore(t *testing.T) {
	f := newFixture(t)
	c := addrs.ClawRoyale
	f.fc.ReturnUint(c, method("getPlayerCount"), big.NewInt(3))

	list := []common.Address{alice, bob, me}
	scores := map[common.Address]int64{alice: 2, bob: 9, me: 2}

	f.fc.Handle(c, method("playerList"), func(_ common.Address, data []byte) ([]byte, error) {
		i := new(big.Int).SetBytes(data[4:36]).Int64()
		return packOut(t, "playerList", list[i]), nil
	})
	f.fc.Handle(c, method("players"), func(_ common.Address, data []byte) ([]byte, error) {
		addr := common.BytesToAddress(data[4:36])
		return packOut(t, "players", [32]byte{}, addr, big.NewInt(scores[addr]), false, true, common.Address{}, false), nil
	})

	players, err := f.svc.Players(context.Background())
	require.NoError(t, err)
	require.Len(t, players, 3)
	assert.Equal(t, bob, players[0].EthAddress)
	assert.Equal(t, alice, players[1].EthAddress, "ties keep registration order")
	assert.Equal(t, me, players[2].EthAddress)
}

func TestRegister(t *testing.T) {
	f := newFixture(t)
	f.state(t, contracts.StatusPending, 0, 5_000_000, 0)
	f.usdc(10_000_000, 0)

	ev := contracts.ClawRoyaleABI.Events["PlayerRegistered"]
	f.fc.ReceiptFor = func(tr *types.Transaction) *types.Receipt {
		if *tr.To() != addrs.ClawRoyale {
			return nil
		}
		return &types.Receipt{Status: 1, Logs: []*types.Log{{
			Address: addrs.ClawRoyale,
			Topics:  []common.Hash{ev.ID, agentID, common.BytesToHash(me.Bytes()), {}},
		}}}
	}

	res, err := f.svc.Register(context.Background(), agentID, common.Address{})
	require.NoError(t, err)

	sent := f.fc.Sent()
	require.Len(t, sent, 2)
	assert.Equal(t, addrs.USDC, *sent[0].To())
	assert.Equal(t, addrs.ClawRoyale, *sent[1].To())
	assert.Equal(t, sent[1].Hash(), res.TxHash)
	assert.Equal(t, sent[0].Hash(), res.ApproveHash)
	assert.Equal(t, big.NewInt(5_000_000), res.EntryFee)
	require.NotNil(t, res.Event)
	assert.Equal(t, me, res.Event.EthAddress)
	assert.Equal(t, [32]byte(agentID), res.Event.AgentID)
}

func TestRegister_InsufficientBalance(t *testing.T) {
	f := newFixture(t)
	f.state(t, contracts.StatusPending, 0, 5_000_000, 0)
	f.usdc(4_999_999, 0)

	_, err := f.svc.Register(context.Background(), agentID, common.Address{})
	assert.ErrorIs(t, err, ErrInsufficientBalance)
	assert.Empty(t, f.fc.Sent())
}

// smartRegisteredLog builds ClawRoyaleSmart's PlayerRegistered for account.
func smartRegisteredLog(t *testing.T, account common.Address, amount int64) *types.Log {
	t.Helper()
	ev := contracts.ClawRoyaleSmartABI.Events["PlayerRegistered"]
	data, err := ev.Inputs.NonIndexed().Pack(big.NewInt(amount))
	require.NoError(t, err)
	return &types.Log{
		Address: addrs.ClawRoyaleSmart,
		Topics:  []common.Hash{ev.ID, common.BytesToHash(account.Bytes())},
		Data:    data,
	}
}

// logsOnCall attaches logs to the receipt of the first tx sent to to with
// the given selector.
func (f *fixture) logsOnCall(to common.Address, selector []byte, logs ...*types.Log) {
	f.fc.ReceiptFor = func(tx *types.Transaction) *types.Receipt {
		r := &types.Receipt{Status: types.ReceiptStatusSuccessful}
		if tx.To() != nil && *tx.To() == to && len(tx.Data()) >= 4 && string(tx.Data()[:4]) == string(selector) {
			r.Logs = logs
		}
		return r
	}
}

func TestRegisterSmart(t *testing.T) {
	f := newFixture(t)
	smart := addrs.ClawRoyaleSmart
	f.fc.ReturnUint(smart, method("entryFee"), big.NewInt(1_000_000))
	f.fc.ReturnUint(smart, method("getPlayerCount"), big.NewInt(4))
	f.fc.ReturnBool(smart, method("isSmartAccount"), true)
	f.usdc(10_000_000, 1_000_000)
	f.logsOnCall(smart, method("registerSmart"), smartRegisteredLog(t, me, 1_000_000))

	res, err := f.svc.RegisterSmart(context.Background(), agentID, alice)
	require.NoError(t, err)
	assert.True(t, res.ApproveSkipped)
	assert.Equal(t, big.NewInt(4), res.PlayerCount)
	assert.True(t, res.SmartAccount)
	require.NotNil(t, res.SmartEvent)
	assert.Equal(t, me, res.SmartEvent.SmartAccount)
	assert.Equal(t, big.NewInt(1_000_000), res.SmartEvent.Amount)
	assert.Nil(t, res.Event)

	sent := f.fc.Sent()
	require.Len(t, sent, 1)
	assert.Equal(t, smart, *sent[0].To())
	assert.Equal(t, method("registerSmart"), sent[0].Data()[:4])
}

func TestRegisterAndBet(t *testing.T) {
	smart := addrs.ClawRoyaleSmart
	registerAndBet := contracts.ClawRoyaleSmartABI.Methods["registerAndBet"].ID

	t.Run("approves fee plus bet", func(t *testing.T) {
		f := newFixture(t)
		f.fc.ReturnUint(smart, method("entryFee"), big.NewInt(5_000_000))
		f.fc.ReturnUint(smart, method("getPlayerCount"), big.NewInt(2))
		f.fc.ReturnBool(smart, method("isSmartAccount"), false)
		f.usdc(10_000_000, 5_000_000)
		f.logsOnCall(smart, registerAndBet, smartRegisteredLog(t, me, 7_000_000))

		res, err := f.svc.RegisterAndBet(context.Background(), agentID, big.NewInt(2_000_000), bob)
		require.NoError(t, err)
		assert.False(t, res.ApproveSkipped, "an allowance covering only the fee is not enough")
		assert.Equal(t, big.NewInt(5_000_000), res.EntryFee)
		assert.Equal(t, big.NewInt(2_000_000), res.Bet)
		require.NotNil(t, res.SmartEvent)
		assert.Equal(t, big.NewInt(7_000_000), res.SmartEvent.Amount)

		sent := f.fc.Sent()
		require.Len(t, sent, 2)
		approve, err := contracts.PackApprove(smart, big.NewInt(7_000_000))
		require.NoError(t, err)
		assert.Equal(t, addrs.USDC, *sent[0].To())
		assert.Equal(t, approve, sent[0].Data())

		want, err := contracts.PackRegisterAndBet(agentID, big.NewInt(2_000_000), bob)
		require.NoError(t, err)
		assert.Equal(t, smart, *sent[1].To())
		assert.Equal(t, want, sent[1].Data())
	})

	t.Run("balance must cover fee plus bet", func(t *testing.T) {
		f := newFixture(t)
		f.fc.ReturnUint(smart, method("entryFee"), big.NewInt(5_000_000))
		f.usdc(6_000_000, 0)

		_, err := f.svc.RegisterAndBet(context.Background(), agentID, big.NewInt(2_000_000), common.Address{})
		assert.ErrorIs(t, err, ErrInsufficientBalance)
		assert.Empty(t, f.fc.Sent())
	})

	t.Run("rejects a zero bet", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.svc.RegisterAndBet(context.Background(), agentID, big.NewInt(0), common.Address{})
		assert.ErrorIs(t, err, ErrInvalidAmount)
	})
}

func TestRegisterWithX402_NoApprove(t *testing.T) {
	f := newFixture(t)
	paymentID := contracts.AgentIDFromName("payment-1")

	_, err := f.svc.RegisterWithX402(context.Background(), agentID, paymentID, common.Address{})
	require.NoError(t, err)
	sent := f.fc.Sent()
	require.Len(t, sent, 1)
	assert.Equal(t, method("registerWithX402"), sent[0].Data()[:4])
}

func TestFundPrizePool(t *testing.T) {
	t.Run("rejects non-positive amount", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.svc.FundPrizePool(context.Background(), big.NewInt(0))
		assert.ErrorIs(t, err, ErrInvalidAmount)
		_, err = f.svc.FundPrizePool(context.Background(), nil)
		assert.ErrorIs(t, err, ErrInvalidAmount)
	})

	t.Run("reports pool before and after", func(t *testing.T) {
		f := newFixture(t)
		f.usdc(100_000_000, 0)
		reads := 0
		f.fc.Handle(addrs.ClawRoyale, method("prizePool"), func(common.Address, []byte) ([]byte, error) {
			reads++
			if reads == 1 {
				return packOut(t, "prizePool", big.NewInt(10_000_000)), nil
			}
			return packOut(t, "prizePool", big.NewInt(60_000_000)), nil
		})

		res, err := f.svc.FundPrizePool(context.Background(), big.NewInt(50_000_000))
		require.NoError(t, err)
		assert.Equal(t, big.NewInt(10_000_000), res.PoolBefore)
		assert.Equal(t, big.NewInt(60_000_000), res.PoolAfter)
		assert.Len(t, f.fc.Sent(), 2)
	})
}

func TestClaimPrize_Checks(t *testing.T) {
	cases := []struct {
		name   string
		status contracts.TournamentStatus
		player contracts.Player
		want   error
	}{
		{"tournament still active", contracts.StatusActive, contracts.Player{Registered: true}, ErrNotCompleted},
		{"not registered", contracts.StatusCompleted, contracts.Player{}, ErrNotRegistered},
		{"already claimed", contracts.StatusCompleted, contracts.Player{Registered: true, ClaimedPrize: true, Eliminated: true}, ErrAlreadyClaimed},
		{"eliminated without referral", contracts.StatusCompleted, contracts.Player{Registered: true, Eliminated: true}, ErrNoPrize},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t)
			f.state(t, tc.status, 100_000_000, 0, 4)
			p := tc.player
			p.EthAddress = me
			p.Score = big.NewInt(0)
			f.player(t, p)

			_, err := f.svc.ClaimPrize(context.Background())
			assert.ErrorIs(t, err, tc.want)
			assert.Empty(t, f.fc.Sent())
		})
	}
}

func TestClaimPrize(t *testing.T) {
	f := newFixture(t)
	f.state(t, contracts.StatusCompleted, 100_000_000, 0, 4)
	f.player(t, contracts.Player{EthAddress: me, Score: big.NewInt(3), Registered: true, Eliminated: true, Referrer: alice})

	ev := contracts.ClawRoyaleABI.Events["PrizeClaimed"]
	data, err := ev.Inputs.NonIndexed().Pack(big.NewInt(30_000_000))
	require.NoError(t, err)
	f.fc.ReceiptFor = func(*types.Transaction) *types.Receipt {
		return &types.Receipt{Status: 1, Logs: []*types.Log{{
			Address: addrs.ClawRoyale,
			Topics:  []common.Hash{ev.ID, common.BytesToHash(me.Bytes())},
			Data:    data,
		}}}
	}

	res, err := f.svc.ClaimPrize(context.Background())
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(25_000_000), res.Estimated)
	assert.Equal(t, big.NewInt(30_000_000), res.Claimed)
	sent := f.fc.Sent()
	require.Len(t, sent, 1)
	assert.Equal(t, method("claimPrize"), sent[0].Data()[:4])
}

func TestClaimPrize_Reverted(t *testing.T) {
	f := newFixture(t)
	f.state(t, contracts.StatusCompleted, 100_000_000, 0, 4)
	f.player(t, contracts.Player{EthAddress: me, Score: big.NewInt(3), Registered: true})
	f.fc.ReceiptFor = func(*types.Transaction) *types.Receipt {
		return &types.Receipt{Status: types.ReceiptStatusFailed}
	}

	_, err := f.svc.ClaimPrize(context.Background())
	assert.ErrorIs(t, err, tx.ErrReverted)
	var seqErr *tx.SequenceError
	require.True(t, errors.As(err, &seqErr))
	assert.False(t, seqErr.AllowanceOutstanding())
}

func TestConfigureDelegation(t *testing.T) {
	t.Run("validates inputs", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.svc.ConfigureDelegation(context.Background(), big.NewInt(0), big.NewInt(60))
		assert.ErrorIs(t, err, ErrInvalidAmount)
		_, err = f.svc.ConfigureDelegation(context.Background(), big.NewInt(1), big.NewInt(0))
		assert.ErrorIs(t, err, ErrInvalidDuration)
	})

	t.Run("reads delegation back", func(t *testing.T) {
		f := newFixture(t)
		smart := addrs.ClawRoyaleSmart
		f.fc.ReturnBool(smart, method("hasValidDelegation"), true)
		f.fc.ReturnUint(smart, method("getDelegationLimit"), big.NewInt(50_000_000))
		ev := contracts.ClawRoyaleSmartABI.Events["DelegationConfigured"]
		data, err := ev.Inputs.NonIndexed().Pack(big.NewInt(50_000_000), big.NewInt(1_800_086_400))
		require.NoError(t, err)
		f.logsOnCall(smart, method("configureDelegation"), &types.Log{
			Address: smart,
			Topics:  []common.Hash{ev.ID, common.BytesToHash(me.Bytes())},
			Data:    data,
		})

		res, err := f.svc.ConfigureDelegation(context.Background(), big.NewInt(50_000_000), big.NewInt(86400))
		require.NoError(t, err)
		require.NotNil(t, res.Event)
		assert.Equal(t, me, res.Event.Account)
		assert.Equal(t, big.NewInt(50_000_000), res.Event.MaxBet)
		assert.Equal(t, big.NewInt(1_800_086_400), res.Event.Expiry)
		assert.True(t, res.Delegation.Valid)
		assert.Equal(t, big.NewInt(50_000_000), res.Delegation.Limit)
		assert.Equal(t, me, res.Delegation.Account)

		sent := f.fc.Sent()
		require.Len(t, sent, 1)
		assert.Equal(t, smart, *sent[0].To())
	})
}

func TestPlaceBet(t *testing.T) {
	f := newFixture(t)
	f.usdc(10_000_000, 0)

	_, err := f.svc.PlaceBet(context.Background(), big.NewInt(7), big.NewInt(0), true)
	assert.ErrorIs(t, err, ErrInvalidAmount)

	res, err := f.svc.PlaceBet(context.Background(), big.NewInt(7), big.NewInt(2_000_000), true)
	require.NoError(t, err)

	sent := f.fc.Sent()
	require.Len(t, sent, 2)
	args, err := contracts.USDCABI.Methods["approve"].Inputs.Unpack(sent[0].Data()[4:])
	require.NoError(t, err)
	assert.Equal(t, addrs.BettingPool, args[0])
	assert.Equal(t, poolMethod("placeBet"), sent[1].Data()[:4])
	assert.Equal(t, sent[1].Hash(), res.TxHash)
}

func TestOwnerCalls(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.StartTournament(ctx)
	require.NoError(t, err)
	_, err = f.svc.SubmitResult(ctx, big.NewInt(1), big.NewInt(3), big.NewInt(1))
	require.NoError(t, err)
	_, err = f.svc.CompleteTournament(ctx)
	require.NoError(t, err)
	_, err = f.svc.ClaimBet(ctx, big.NewInt(1))
	require.NoError(t, err)

	got := f.fc.SentSelectors()
	require.Len(t, got, 4)
	assert.Equal(t, method("startTournament"), got[0])
	assert.Equal(t, method("submitResult"), got[1])
	assert.Equal(t, method("completeTournament"), got[2])
	assert.Equal(t, poolMethod("claim"), got[3])
}

func TestReadOnlyService(t *testing.T) {
	fc := testutil.NewFakeChain()
	svc := NewService(fc, testutil.TestChain, addrs, nil)

	_, err := svc.Account()
	assert.ErrorIs(t, err, ErrReadOnly)
	_, err = svc.ClaimPrize(context.Background())
	assert.ErrorIs(t, err, ErrReadOnly)
	_, err = svc.StartTournament(context.Background())
	assert.ErrorIs(t, err, ErrReadOnly)
}

func TestCheckContract(t *testing.T) {
	f := newFixture(t)
	c := addrs.ClawRoyale
	f.fc.SetCode(c, []byte{0x60, 0x80, 0x60, 0x40})
	f.fc.Return(c, method("owner"), packOut(t, "owner", alice))
	f.fc.SetBalance(c, big.NewInt(1e15))

	rep, err := f.svc.CheckContract(context.Background(), c)
	require.NoError(t, err)
	assert.True(t, rep.Deployed)
	assert.Equal(t, 4, rep.CodeSize)
	assert.Equal(t, alice, rep.Owner)
	assert.NoError(t, rep.OwnerErr)
	assert.Equal(t, big.NewInt(1e15), rep.Balance)

	t.Run("no code", func(t *testing.T) {
		rep, err := f.svc.CheckContract(context.Background(), bob)
		require.NoError(t, err)
		assert.False(t, rep.Deployed)
		assert.Equal(t, common.Address{}, rep.Owner)
		assert.Equal(t, int64(0), rep.Balance.Int64())
	})
}

func TestDelegationAndPools(t *testing.T) {
	f := newFixture(t)
	f.fc.ReturnUint(addrs.BettingPool, poolMethod("totalPoolP1"), big.NewInt(3))
	f.fc.ReturnUint(addrs.BettingPool, poolMethod("totalPoolP2"), big.NewInt(5))
	bet, err := contracts.BettingPoolABI.Methods["bets"].Outputs.Pack(me, big.NewInt(2), big.NewInt(7), false, false)
	require.NoError(t, err)
	f.fc.Return(addrs.BettingPool, poolMethod("bets"), bet)

	p1, p2, err := f.svc.MatchPools(context.Background(), big.NewInt(7))
	require.NoError(t, err)
	assert.Equal(t, int64(3), p1.Int64())
	assert.Equal(t, int64(5), p2.Int64())

	b, err := f.svc.BetOf(context.Background(), big.NewInt(7), me)
	require.NoError(t, err)
	assert.Equal(t, me, b.Player)
	assert.False(t, b.ForPlayer1)
}

func TestParseUSDC(t *testing.T) {
	v, err := ParseUSDC("5.0")
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(5_000_000), v)

	v, err = ParseUSDC("5000000")
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(5_000_000), v)

	_, err = ParseUSDC("0")
	assert.ErrorIs(t, err, ErrInvalidAmount)
	_, err = ParseUSDC("1.1234567")
	assert.Error(t, err)
}

func TestFunds(t *testing.T) {
	f := newFixture(t)
	f.usdc(12_000_000, 5_000_000)
	f.fc.SetBalance(me, big.NewInt(1e18))

	funds, err := f.svc.Funds(context.Background(), me)
	require.NoError(t, err)
	assert.Equal(t, me, funds.Account)
	assert.Equal(t, int64(1e18), funds.ETH.Int64())
	assert.Equal(t, int64(12_000_000), funds.USDC.Int64())
	assert.Equal(t, int64(5_000_000), funds.RoyaleAllowance.Int64())
	assert.Equal(t, int64(5_000_000), funds.BettingAllowance.Int64())
}
