package contracts

import (
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
)

var (
	ErrInvalidAgentID = errors.New("invalid agent id")
	ErrEmptyResult    = errors.New("empty call result")
)

// ParseAgentID decodes a 0x-prefixed 32-byte hex agent id (ERC-8004 bytes32).
func ParseAgentID(s string) ([32]byte, error) {
	var out [32]byte
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "0x") && !strings.HasPrefix(s, "0X") {
		return out, fmt.Errorf("%w: %q must be 0x-prefixed", ErrInvalidAgentID, s)
	}
	raw, err := hexutil.Decode(s)
	if err != nil {
		return out, fmt.Errorf("%w: %v", ErrInvalidAgentID, err)
	}
	if len(raw) != 32 {
		return out, fmt.Errorf("%w: want 32 bytes, got %d", ErrInvalidAgentID, len(raw))
	}
	copy(out[:], raw)
	return out, nil
}

// AgentIDFromName hashes a human-readable agent name into a bytes32 id the
// same way the contract tests derive ids (keccak256 of the UTF-8 name).
func AgentIDFromName(name string) [32]byte {
	return crypto.Keccak256Hash([]byte(name))
}

// ERC-20

func PackApprove(spender common.Address, amount *big.Int) ([]byte, error) {
	return USDCABI.Pack("approve", spender, amount)
}

func PackBalanceOf(account common.Address) ([]byte, error) {
	return USDCABI.Pack("balanceOf", account)
}

func PackAllowance(owner, spender common.Address) ([]byte, error) {
	return USDCABI.Pack("allowance", owner, spender)
}

// ClawRoyale

func PackRegister(agentID [32]byte, referrer common.Address) ([]byte, error) {
	return ClawRoyaleABI.Pack("register", agentID, referrer)
}

func PackRegisterWithX402(agentID, paymentID [32]byte, referrer common.Address) ([]byte, error) {
	return ClawRoyaleABI.Pack("registerWithX402", agentID, paymentID, referrer)
}

func PackRegisterSmart(agentID [32]byte, referrer common.Address, userOpData []byte) ([]byte, error) {
	if userOpData == nil {
		userOpData = []byte{}
	}
	return ClawRoyaleABI.Pack("registerSmart", agentID, referrer, userOpData)
}

// PackRegisterAndBet encodes ClawRoyaleSmart.registerAndBet. The caller must
// have approved entry fee plus bet.
func PackRegisterAndBet(agentID [32]byte, bet *big.Int, referrer common.Address) ([]byte, error) {
	return ClawRoyaleSmartABI.Pack("registerAndBet", agentID, bet, referrer)
}

func PackFundPrizePool(amount *big.Int) ([]byte, error) {
	return ClawRoyaleABI.Pack("fundPrizePool", amount)
}

func PackConfigureDelegation(maxBet, duration *big.Int) ([]byte, error) {
	return ClawRoyaleABI.Pack("configureDelegation", maxBet, duration)
}

func PackSubmitResult(matchID, p1Score, p2Score *big.Int) ([]byte, error) {
	return ClawRoyaleABI.Pack("submitResult", matchID, p1Score, p2Score)
}

// PackNoArgs encodes a call to a method that takes no arguments
// (claimPrize, startTournament, prizePool, ...).
func PackNoArgs(a abi.ABI, method string) ([]byte, error) {
	return a.Pack(method)
}

func PackPlayers(account common.Address) ([]byte, error) {
	return ClawRoyaleABI.Pack("players", account)
}

// BettingPool

func PackPlaceBet(matchID, amount *big.Int, forPlayer1 bool) ([]byte, error) {
	return BettingPoolABI.Pack("placeBet", matchID, amount, forPlayer1)
}

func PackClaimBet(matchID *big.Int) ([]byte, error) {
	return BettingPoolABI.Pack("claim", matchID)
}

func PackBets(matchID *big.Int, account common.Address) ([]byte, error) {
	return BettingPoolABI.Pack("bets", matchID, account)
}

// Decoding

func unpackOne(a abi.ABI, method string, data []byte) (interface{}, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%s: %w", method, ErrEmptyResult)
	}
	out, err := a.Unpack(method, data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", method, err)
	}
	if len(out) != 1 {
		return nil, fmt.Errorf("%s: expected 1 output, got %d", method, len(out))
	}
	return out[0], nil
}

// UnpackUint decodes a single uint256 return value.
func UnpackUint(a abi.ABI, method string, data []byte) (*big.Int, error) {
	v, err := unpackOne(a, method, data)
	if err != nil {
		return nil, err
	}
	n, ok := v.(*big.Int)
	if !ok {
		return nil, fmt.Errorf("%s: unexpected output type %T", method, v)
	}
	return n, nil
}

// UnpackBool decodes a single bool return value.
func UnpackBool(a abi.ABI, method string, data []byte) (bool, error) {
	v, err := unpackOne(a, method, data)
	if err != nil {
		return false, err
	}
	b, ok := v.(bool)
	if !ok {
		return false, fmt.Errorf("%s: unexpected output type %T", method, v)
	}
	return b, nil
}

// UnpackAddress decodes a single address return value.
func UnpackAddress(a abi.ABI, method string, data []byte) (common.Address, error) {
	v, err := unpackOne(a, method, data)
	if err != nil {
		return common.Address{}, err
	}
	addr, ok := v.(common.Address)
	if !ok {
		return common.Address{}, fmt.Errorf("%s: unexpected output type %T", method, v)
	}
	return addr, nil
}

// UnpackStatus decodes the status() enum.
func UnpackStatus(data []byte) (TournamentStatus, error) {
	v, err := unpackOne(ClawRoyaleABI, "status", data)
	if err != nil {
		return 0, err
	}
	s, ok := v.(uint8)
	if !ok {
		return 0, fmt.Errorf("status: unexpected output type %T", v)
	}
	return TournamentStatus(s), nil
}

func UnpackPlayer(data []byte) (Player, error) {
	var p Player
	if len(data) == 0 {
		return p, fmt.Errorf("players: %w", ErrEmptyResult)
	}
	if err := ClawRoyaleABI.UnpackIntoInterface(&p, "players", data); err != nil {
		return p, fmt.Errorf("players: %w", err)
	}
	return p, nil
}

func UnpackBet(data []byte) (Bet, error) {
	var b Bet
	if len(data) == 0 {
		return b, fmt.Errorf("bets: %w", ErrEmptyResult)
	}
	if err := BettingPoolABI.UnpackIntoInterface(&b, "bets", data); err != nil {
		return b, fmt.Errorf("bets: %w", err)
	}
	return b, nil
}

// Events

// FindPrizeClaimed returns the first PrizeClaimed event emitted by contract.
func FindPrizeClaimed(logs []*types.Log, contract common.Address) (*PrizeClaimed, bool) {
	ev := ClawRoyaleABI.Events["PrizeClaimed"]
	for _, lg := range logs {
		if lg == nil || lg.Address != contract || len(lg.Topics) < 2 || lg.Topics[0] != ev.ID {
			continue
		}
		vals, err := ClawRoyaleABI.Unpack("PrizeClaimed", lg.Data)
		if err != nil || len(vals) != 1 {
			continue
		}
		amount, ok := vals[0].(*big.Int)
		if !ok {
			continue
		}
		return &PrizeClaimed{
			Player: common.BytesToAddress(lg.Topics[1].Bytes()),
			Amount: amount,
		}, true
	}
	return nil, false
}

// FindPlayerRegistered returns the first PlayerRegistered event emitted by contract.
func FindPlayerRegistered(logs []*types.Log, contract common.Address) (*PlayerRegistered, bool) {
	ev := ClawRoyaleABI.Events["PlayerRegistered"]
	for _, lg := range logs {
		if lg == nil || lg.Address != contract || len(lg.Topics) < 4 || lg.Topics[0] != ev.ID {
			continue
		}
		return &PlayerRegistered{
			AgentID:    lg.Topics[1],
			EthAddress: common.BytesToAddress(lg.Topics[2].Bytes()),
			Referrer:   common.BytesToAddress(lg.Topics[3].Bytes()),
		}, true
	}
	return nil, false
}

// FindSmartPlayerRegistered returns the first ClawRoyaleSmart
// PlayerRegistered event emitted by contract.
func FindSmartPlayerRegistered(logs []*types.Log, contract common.Address) (*SmartPlayerRegistered, bool) {
	for _, lg := range eventLogs(logs, contract, ClawRoyaleSmartABI.Events["PlayerRegistered"].ID, 2) {
		vals, err := ClawRoyaleSmartABI.Unpack("PlayerRegistered", lg.Data)
		if err != nil || len(vals) != 1 {
			continue
		}
		amount, ok := vals[0].(*big.Int)
		if !ok {
			continue
		}
		return &SmartPlayerRegistered{
			SmartAccount: common.BytesToAddress(lg.Topics[1].Bytes()),
			Amount:       amount,
		}, true
	}
	return nil, false
}

// FindDelegationConfigured returns the first DelegationConfigured event
// emitted by contract.
func FindDelegationConfigured(logs []*types.Log, contract common.Address) (*DelegationConfigured, bool) {
	for _, lg := range eventLogs(logs, contract, ClawRoyaleSmartABI.Events["DelegationConfigured"].ID, 2) {
		vals, err := ClawRoyaleSmartABI.Unpack("DelegationConfigured", lg.Data)
		if err != nil || len(vals) != 2 {
			continue
		}
		maxBet, ok1 := vals[0].(*big.Int)
		expiry, ok2 := vals[1].(*big.Int)
		if !ok1 || !ok2 {
			continue
		}
		return &DelegationConfigured{
			Account: common.BytesToAddress(lg.Topics[1].Bytes()),
			MaxBet:  maxBet,
			Expiry:  expiry,
		}, true
	}
	return nil, false
}

// eventLogs filters logs from contract whose topic0 is id and that carry at
// least topics topics.
func eventLogs(logs []*types.Log, contract common.Address, id common.Hash, topics int) []*types.Log {
	var out []*types.Log
	for _, lg := range logs {
		if lg == nil || lg.Address != contract || len(lg.Topics) < topics || lg.Topics[0] != id {
			continue
		}
		out = append(out, lg)
	}
	return out
}
