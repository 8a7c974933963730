package contracts

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// TournamentStatus mirrors the on-chain status enum.
type TournamentStatus uint8

const (
	StatusPending TournamentStatus = iota
	StatusActive
	StatusCompleted
)

func (s TournamentStatus) String() string {
	switch s {
	case StatusPending:
		return "Pending"
	case StatusActive:
		return "Active"
	case StatusCompleted:
		return "Completed"
	default:
		return fmt.Sprintf("Unknown(%d)", uint8(s))
	}
}

// APIName is the lowercase label the HTTP status route reports.
func (s TournamentStatus) APIName() string {
	switch s {
	case StatusActive:
		return "active"
	case StatusCompleted:
		return "closed"
	default:
		return "open"
	}
}

// Player is one row of the players(address) mapping.
type Player struct {
	AgentId      [32]byte
	EthAddress   common.Address
	Score        *big.Int
	Eliminated   bool
	Registered   bool
	Referrer     common.Address
	ClaimedPrize bool
}

// HasPrize reports whether the player may still claim something. Eliminated
// players keep a share only through a referral.
func (p Player) HasPrize() bool {
	return !p.Eliminated || p.Referrer != (common.Address{})
}

// Bet is one row of the BettingPool bets(matchId, address) mapping.
type Bet struct {
	Player     common.Address
	Amount     *big.Int
	MatchId    *big.Int
	Claimed    bool
	ForPlayer1 bool
}

// PlayerRegistered is emitted by register and its variants.
type PlayerRegistered struct {
	AgentID    [32]byte
	EthAddress common.Address
	Referrer   common.Address
}

// SmartPlayerRegistered is ClawRoyaleSmart's registration event. Amount is
// what the contract pulled: the entry fee, plus the bet for registerAndBet.
type SmartPlayerRegistered struct {
	SmartAccount common.Address
	Amount       *big.Int
}

// DelegationConfigured is emitted by configureDelegation. Expiry is a unix
// timestamp.
type DelegationConfigured struct {
	Account common.Address
	MaxBet  *big.Int
	Expiry  *big.Int
}

// PrizeClaimed is emitted by claimPrize.
type PrizeClaimed struct {
	Player common.Address
	Amount *big.Int
}
