package tournament

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/yolodolo42/clawroyale/internal/chain"
	"github.com/yolodolo42/clawroyale/internal/contracts"
	"github.com/yolodolo42/clawroyale/internal/tx"
)

type RegisterResult struct {
	TxResult
	EntryFee *big.Int
	// Bet is set for RegisterAndBet.
	Bet   *big.Int
	Event *contracts.PlayerRegistered
	// SmartEvent is ClawRoyaleSmart's PlayerRegistered.
	SmartEvent   *contracts.SmartPlayerRegistered
	PlayerCount  *big.Int
	SmartAccount bool
}

// Register pays the entry fee and registers agentID on ClawRoyale.
func (s *Service) Register(ctx context.Context, agentID [32]byte, referrer common.Address) (*RegisterResult, error) {
	c := s.addrs.ClawRoyale
	fee, err := s.readUint(ctx, contracts.ClawRoyaleABI, c, "entryFee")
	if err != nil {
		return nil, err
	}
	data, err := contracts.PackRegister(agentID, referrer)
	if err != nil {
		return nil, err
	}

	res, out, err := s.run(ctx, tx.Call{
		Op:      "register",
		Token:   s.addrs.USDC,
		Spender: c,
		Amount:  fee,
		To:      c,
		Data:    data,
		Args:    registerArgs(agentID, referrer),
	})
	if err != nil {
		return nil, err
	}

	ev, _ := contracts.FindPlayerRegistered(res.Receipt.Logs, c)
	return &RegisterResult{TxResult: out, EntryFee: fee, Event: ev}, nil
}

// RegisterSmart registers through ClawRoyaleSmart with empty user-op data and
// reports the new player count and smart-account flag.
func (s *Service) RegisterSmart(ctx context.Context, agentID [32]byte, referrer common.Address) (*RegisterResult, error) {
	c := s.addrs.ClawRoyaleSmart
	fee, err := s.readUint(ctx, contracts.ClawRoyaleABI, c, "entryFee")
	if err != nil {
		return nil, err
	}
	data, err := contracts.PackRegisterSmart(agentID, referrer, nil)
	if err != nil {
		return nil, err
	}
	return s.registerSmart(ctx, tx.Call{
		Op:      "register-smart",
		Token:   s.addrs.USDC,
		Spender: c,
		Amount:  fee,
		To:      c,
		Data:    data,
		Args:    registerArgs(agentID, referrer),
	}, &RegisterResult{EntryFee: fee})
}

// RegisterAndBet registers on ClawRoyaleSmart and places an opening bet in
// one call. A single approve covers entry fee plus bet.
func (s *Service) RegisterAndBet(ctx context.Context, agentID [32]byte, bet *big.Int, referrer common.Address) (*RegisterResult, error) {
	if bet == nil || bet.Sign() <= 0 {
		return nil, ErrInvalidAmount
	}
	c := s.addrs.ClawRoyaleSmart
	fee, err := s.readUint(ctx, contracts.ClawRoyaleABI, c, "entryFee")
	if err != nil {
		return nil, err
	}
	data, err := contracts.PackRegisterAndBet(agentID, bet, referrer)
	if err != nil {
		return nil, err
	}
	args := registerArgs(agentID, referrer)
	args["bet"] = bet.String()

	return s.registerSmart(ctx, tx.Call{
		Op:      "register-bet",
		Token:   s.addrs.USDC,
		Spender: c,
		Amount:  new(big.Int).Add(fee, bet),
		To:      c,
		Data:    data,
		Args:    args,
	}, &RegisterResult{EntryFee: fee, Bet: bet})
}

// registerSmart runs c against ClawRoyaleSmart and fills result with the
// emitted event, the player count and the smart-account flag.
func (s *Service) registerSmart(ctx context.Context, c tx.Call, result *RegisterResult) (*RegisterResult, error) {
	res, out, err := s.run(ctx, c)
	if err != nil {
		return nil, err
	}
	result.TxResult = out
	result.SmartEvent, _ = contracts.FindSmartPlayerRegistered(res.Receipt.Logs, c.To)

	if result.PlayerCount, err = s.readUint(ctx, contracts.ClawRoyaleABI, c.To, "getPlayerCount"); err != nil {
		return result, err
	}
	from := s.seq.Sender().From()
	if result.SmartAccount, err = s.readBool(ctx, contracts.ClawRoyaleABI, c.To, "isSmartAccount", from); err != nil {
		return result, err
	}
	return result, nil
}

// RegisterWithX402 registers against a settled x402 payment; no approve is
// needed since the fee moved off-band.
func (s *Service) RegisterWithX402(ctx context.Context, agentID, paymentID [32]byte, referrer common.Address) (*RegisterResult, error) {
	c := s.addrs.ClawRoyale
	data, err := contracts.PackRegisterWithX402(agentID, paymentID, referrer)
	if err != nil {
		return nil, err
	}
	args := registerArgs(agentID, referrer)
	args["payment_id"] = hexutil.Encode(paymentID[:])

	res, out, err := s.run(ctx, tx.Call{Op: "register-x402", To: c, Data: data, Args: args})
	if err != nil {
		return nil, err
	}
	ev, _ := contracts.FindPlayerRegistered(res.Receipt.Logs, c)
	return &RegisterResult{TxResult: out, Event: ev}, nil
}

func registerArgs(agentID [32]byte, referrer common.Address) map[string]string {
	return map[string]string{
		"agent_id": hexutil.Encode(agentID[:]),
		"referrer": referrer.Hex(),
	}
}

type FundResult struct {
	TxResult
	Amount     *big.Int
	PoolBefore *big.Int
	PoolAfter  *big.Int
}

// FundPrizePool approves and transfers amount into the prize pool.
func (s *Service) FundPrizePool(ctx context.Context, amount *big.Int) (*FundResult, error) {
	if amount == nil || amount.Sign() <= 0 {
		return nil, ErrInvalidAmount
	}
	c := s.addrs.ClawRoyale
	before, err := s.readUint(ctx, contracts.ClawRoyaleABI, c, "prizePool")
	if err != nil {
		return nil, err
	}
	data, err := contracts.PackFundPrizePool(amount)
	if err != nil {
		return nil, err
	}

	_, out, err := s.run(ctx, tx.Call{
		Op:      "fund",
		Token:   s.addrs.USDC,
		Spender: c,
		Amount:  amount,
		To:      c,
		Data:    data,
		Args:    map[string]string{"amount": amount.String()},
	})
	if err != nil {
		return nil, err
	}

	result := &FundResult{TxResult: out, Amount: amount, PoolBefore: before}
	result.PoolAfter, err = s.readUint(ctx, contracts.ClawRoyaleABI, c, "prizePool")
	return result, err
}

type ClaimResult struct {
	TxResult
	Player    contracts.Player
	Estimated *big.Int
	// Claimed is the amount from the PrizeClaimed event, nil when absent.
	Claimed *big.Int
}

// CheckClaim runs the claim eligibility checks in order: tournament completed,
// caller registered, not yet claimed, and not eliminated without a referral.
func (s *Service) CheckClaim(ctx context.Context, account common.Address) (contracts.Player, *State, error) {
	st, err := s.Snapshot(ctx)
	if err != nil {
		return contracts.Player{}, nil, err
	}
	if st.Status != contracts.StatusCompleted {
		return contracts.Player{}, st, ErrNotCompleted
	}
	p, err := s.Player(ctx, account)
	if err != nil {
		return p, st, err
	}
	switch {
	case !p.Registered:
		return p, st, ErrNotRegistered
	case p.ClaimedPrize:
		return p, st, ErrAlreadyClaimed
	case !p.HasPrize():
		return p, st, ErrNoPrize
	}
	return p, st, nil
}

// ClaimPrize claims the caller's share after the eligibility checks pass.
func (s *Service) ClaimPrize(ctx context.Context) (*ClaimResult, error) {
	from, err := s.Account()
	if err != nil {
		return nil, err
	}
	p, st, err := s.CheckClaim(ctx, from)
	if err != nil {
		return nil, err
	}
	data, err := contracts.PackNoArgs(contracts.ClawRoyaleABI, "claimPrize")
	if err != nil {
		return nil, err
	}

	res, out, err := s.run(ctx, tx.Call{Op: "claim", To: s.addrs.ClawRoyale, Data: data})
	if err != nil {
		return nil, err
	}

	result := &ClaimResult{TxResult: out, Player: p, Estimated: st.EstimatedPayout()}
	if ev, ok := contracts.FindPrizeClaimed(res.Receipt.Logs, s.addrs.ClawRoyale); ok {
		result.Claimed = ev.Amount
	}
	return result, nil
}

type DelegationResult struct {
	TxResult
	Event      *contracts.DelegationConfigured
	Delegation *Delegation
}

// ConfigureDelegation lets ClawRoyaleSmart bet on the caller's behalf up to
// maxBet base units for duration seconds.
func (s *Service) ConfigureDelegation(ctx context.Context, maxBet, duration *big.Int) (*DelegationResult, error) {
	if maxBet == nil || maxBet.Sign() <= 0 {
		return nil, ErrInvalidAmount
	}
	if duration == nil || duration.Sign() <= 0 {
		return nil, ErrInvalidDuration
	}
	data, err := contracts.PackConfigureDelegation(maxBet, duration)
	if err != nil {
		return nil, err
	}

	c := s.addrs.ClawRoyaleSmart
	res, out, err := s.run(ctx, tx.Call{
		Op:   "configure-delegation",
		To:   c,
		Data: data,
		Args: map[string]string{"max_bet": maxBet.String(), "duration": duration.String()},
	})
	if err != nil {
		return nil, err
	}

	result := &DelegationResult{TxResult: out}
	result.Event, _ = contracts.FindDelegationConfigured(res.Receipt.Logs, c)
	result.Delegation, err = s.Delegation(ctx, s.seq.Sender().From())
	return result, err
}

// PlaceBet approves amount to the BettingPool and bets on one side of a match.
func (s *Service) PlaceBet(ctx context.Context, matchID, amount *big.Int, forPlayer1 bool) (*TxResult, error) {
	if amount == nil || amount.Sign() <= 0 {
		return nil, ErrInvalidAmount
	}
	data, err := contracts.PackPlaceBet(matchID, amount, forPlayer1)
	if err != nil {
		return nil, err
	}
	side := "player2"
	if forPlayer1 {
		side = "player1"
	}

	_, out, err := s.run(ctx, tx.Call{
		Op:      "bet",
		Token:   s.addrs.USDC,
		Spender: s.addrs.BettingPool,
		Amount:  amount,
		To:      s.addrs.BettingPool,
		Data:    data,
		Args:    map[string]string{"match_id": matchID.String(), "amount": amount.String(), "side": side},
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// ClaimBet claims winnings for a settled match.
func (s *Service) ClaimBet(ctx context.Context, matchID *big.Int) (*TxResult, error) {
	data, err := contracts.PackClaimBet(matchID)
	if err != nil {
		return nil, err
	}
	_, out, err := s.run(ctx, tx.Call{
		Op:   "claim-bet",
		To:   s.addrs.BettingPool,
		Data: data,
		Args: map[string]string{"match_id": matchID.String()},
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// Owner-only operations.

func (s *Service) StartTournament(ctx context.Context) (*TxResult, error) {
	return s.ownerCall(ctx, "start", "startTournament")
}

func (s *Service) CompleteTournament(ctx context.Context) (*TxResult, error) {
	return s.ownerCall(ctx, "complete", "completeTournament")
}

func (s *Service) SubmitResult(ctx context.Context, matchID, p1Score, p2Score *big.Int) (*TxResult, error) {
	data, err := contracts.PackSubmitResult(matchID, p1Score, p2Score)
	if err != nil {
		return nil, err
	}
	_, out, err := s.run(ctx, tx.Call{
		Op:   "submit-result",
		To:   s.addrs.ClawRoyale,
		Data: data,
		Args: map[string]string{"match_id": matchID.String(), "p1_score": p1Score.String(), "p2_score": p2Score.String()},
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *Service) ownerCall(ctx context.Context, op, method string) (*TxResult, error) {
	data, err := contracts.PackNoArgs(contracts.ClawRoyaleABI, method)
	if err != nil {
		return nil, err
	}
	_, out, err := s.run(ctx, tx.Call{Op: op, To: s.addrs.ClawRoyale, Data: data})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// ParseUSDC accepts raw base units or a decimal USDC amount.
func ParseUSDC(value string) (*big.Int, error) {
	v, err := chain.ParseAmount(value, chain.USDCDecimals)
	if err != nil {
		return nil, err
	}
	if v.Sign() <= 0 {
		return nil, ErrInvalidAmount
	}
	return v, nil
}
