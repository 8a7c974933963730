package tournament

import (
	"context"
	"fmt"
	"math/big"
	"sort"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/yolodolo42/clawroyale/internal/contracts"
)

// State is a point-in-time view of the tournament contract.
type State struct {
	Status      contracts.TournamentStatus
	PrizePool   *big.Int
	EntryFee    *big.Int
	PlayerCount *big.Int
	FetchedAt   time.Time
}

// EstimatedPayout is the even split of the pool across players.
func (st State) EstimatedPayout() *big.Int {
	return EstimatedPayout(st.PrizePool, st.PlayerCount)
}

// EstimatedPayout returns pool / players, or zero when there are no players.
func EstimatedPayout(pool, players *big.Int) *big.Int {
	if pool == nil || players == nil || players.Sign() <= 0 {
		return new(big.Int)
	}
	return new(big.Int).Quo(pool, players)
}

// Snapshot reads status, prize pool, entry fee and player count.
func (s *Service) Snapshot(ctx context.Context) (*State, error) {
	c := s.addrs.ClawRoyale

	data, err := contracts.PackNoArgs(contracts.ClawRoyaleABI, "status")
	if err != nil {
		return nil, err
	}
	out, err := s.call(ctx, c, data)
	if err != nil {
		return nil, fmt.Errorf("status: %w", err)
	}
	status, err := contracts.UnpackStatus(out)
	if err != nil {
		return nil, err
	}

	pool, err := s.readUint(ctx, contracts.ClawRoyaleABI, c, "prizePool")
	if err != nil {
		return nil, err
	}
	fee, err := s.readUint(ctx, contracts.ClawRoyaleABI, c, "entryFee")
	if err != nil {
		return nil, err
	}
	count, err := s.readUint(ctx, contracts.ClawRoyaleABI, c, "getPlayerCount")
	if err != nil {
		return nil, err
	}

	return &State{
		Status:      status,
		PrizePool:   pool,
		EntryFee:    fee,
		PlayerCount: count,
		FetchedAt:   time.Now().UTC(),
	}, nil
}

// Player reads the players(address) record.
func (s *Service) Player(ctx context.Context, account common.Address) (contracts.Player, error) {
	data, err := contracts.PackPlayers(account)
	if err != nil {
		return contracts.Player{}, err
	}
	out, err := s.call(ctx, s.addrs.ClawRoyale, data)
	if err != nil {
		return contracts.Player{}, fmt.Errorf("players: %w", err)
	}
	return contracts.UnpackPlayer(out)
}

// Players walks playerList and returns every record sorted by score,
// highest first. Ties keep registration order.
func (s *Service) Players(ctx context.Context) ([]contracts.Player, error) {
	count, err := s.readUint(ctx, contracts.ClawRoyaleABI, s.addrs.ClawRoyale, "getPlayerCount")
	if err != nil {
		return nil, err
	}
	if !count.IsInt64() {
		return nil, fmt.Errorf("player count out of range: %s", count)
	}

	n := count.Int64()
	players := make([]contracts.Player, 0, n)
	for i := int64(0); i < n; i++ {
		addr, err := s.readAddress(ctx, contracts.ClawRoyaleABI, s.addrs.ClawRoyale, "playerList", big.NewInt(i))
		if err != nil {
			return nil, err
		}
		p, err := s.Player(ctx, addr)
		if err != nil {
			return nil, err
		}
		players = append(players, p)
	}

	sort.SliceStable(players, func(i, j int) bool {
		return scoreOf(players[i]).Cmp(scoreOf(players[j])) > 0
	})
	return players, nil
}

func scoreOf(p contracts.Player) *big.Int {
	if p.Score == nil {
		return new(big.Int)
	}
	return p.Score
}

// Delegation is the smart-account betting delegation of one account.
type Delegation struct {
	Account common.Address
	Valid   bool
	Limit   *big.Int
}

func (s *Service) Delegation(ctx context.Context, account common.Address) (*Delegation, error) {
	c := s.addrs.ClawRoyaleSmart
	valid, err := s.readBool(ctx, contracts.ClawRoyaleABI, c, "hasValidDelegation", account)
	if err != nil {
		return nil, err
	}
	limit, err := s.readUint(ctx, contracts.ClawRoyaleABI, c, "getDelegationLimit", account)
	if err != nil {
		return nil, err
	}
	return &Delegation{Account: account, Valid: valid, Limit: limit}, nil
}

// MatchPools returns the BettingPool totals staked on each side of a match.
func (s *Service) MatchPools(ctx context.Context, matchID *big.Int) (p1, p2 *big.Int, err error) {
	p1, err = s.readUint(ctx, contracts.BettingPoolABI, s.addrs.BettingPool, "totalPoolP1", matchID)
	if err != nil {
		return nil, nil, err
	}
	p2, err = s.readUint(ctx, contracts.BettingPoolABI, s.addrs.BettingPool, "totalPoolP2", matchID)
	if err != nil {
		return nil, nil, err
	}
	return p1, p2, nil
}

// BetOf reads the bet an account placed on a match.
func (s *Service) BetOf(ctx context.Context, matchID *big.Int, account common.Address) (contracts.Bet, error) {
	data, err := contracts.PackBets(matchID, account)
	if err != nil {
		return contracts.Bet{}, err
	}
	out, err := s.call(ctx, s.addrs.BettingPool, data)
	if err != nil {
		return contracts.Bet{}, fmt.Errorf("bets: %w", err)
	}
	return contracts.UnpackBet(out)
}

// ContractReport describes a deployed contract.
type ContractReport struct {
	Address  common.Address
	Deployed bool
	CodeSize int
	Owner    common.Address
	OwnerErr error
	Balance  *big.Int
}

// CheckContract reports code presence, owner() and the ETH balance of addr.
// A contract without owner() is still reported with OwnerErr set.
func (s *Service) CheckContract(ctx context.Context, addr common.Address) (*ContractReport, error) {
	code, err := s.reader.GetCode(ctx, s.chain, addr)
	if err != nil {
		return nil, fmt.Errorf("get code: %w", err)
	}
	rep := &ContractReport{Address: addr, Deployed: len(code) > 0, CodeSize: len(code)}

	if rep.Deployed {
		rep.Owner, rep.OwnerErr = s.readAddress(ctx, contracts.ClawRoyaleABI, addr, "owner")
	}

	rep.Balance, err = s.reader.GetBalance(ctx, s.chain, addr)
	if err != nil {
		return nil, fmt.Errorf("get balance: %w", err)
	}
	return rep, nil
}

// Funds is what an account can spend on entry fees and bets.
type Funds struct {
	Account common.Address
	ETH     *big.Int
	USDC    *big.Int
	// Allowances already granted to ClawRoyale and the BettingPool.
	RoyaleAllowance  *big.Int
	BettingAllowance *big.Int
}

func (s *Service) Funds(ctx context.Context, account common.Address) (*Funds, error) {
	eth, err := s.reader.GetBalance(ctx, s.chain, account)
	if err != nil {
		return nil, fmt.Errorf("get balance: %w", err)
	}
	f := &Funds{Account: account, ETH: eth}
	if f.USDC, err = s.readUint(ctx, contracts.USDCABI, s.addrs.USDC, "balanceOf", account); err != nil {
		return nil, err
	}
	if f.RoyaleAllowance, err = s.readUint(ctx, contracts.USDCABI, s.addrs.USDC, "allowance", account, s.addrs.ClawRoyale); err != nil {
		return nil, err
	}
	f.BettingAllowance = new(big.Int)
	if s.addrs.BettingPool != (common.Address{}) {
		if f.BettingAllowance, err = s.readUint(ctx, contracts.USDCABI, s.addrs.USDC, "allowance", account, s.addrs.BettingPool); err != nil {
			return nil, err
		}
	}
	return f, nil
}
