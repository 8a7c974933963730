// Package contracts holds the ABIs of the deployed tournament contracts and
// typed helpers to encode calls and decode results and events.
package contracts

import (
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

// USDCABIJSON is the subset of the ERC-20 interface the tournament uses.
const USDCABIJSON = `[
{"inputs":[{"name":"spender","type":"address"},{"name":"amount","type":"uint256"}],"name":"approve","outputs":[{"name":"","type":"bool"}],"stateMutability":"nonpayable","type":"function"},
{"inputs":[{"name":"account","type":"address"}],"name":"balanceOf","outputs":[{"name":"","type":"uint256"}],"stateMutability":"view","type":"function"},
{"inputs":[{"name":"owner","type":"address"},{"name":"spender","type":"address"}],"name":"allowance","outputs":[{"name":"","type":"uint256"}],"stateMutability":"view","type":"function"},
{"inputs":[],"name":"decimals","outputs":[{"name":"","type":"uint8"}],"stateMutability":"view","type":"function"},
{"inputs":[],"name":"symbol","outputs":[{"name":"","type":"string"}],"stateMutability":"view","type":"function"}
]`

// ClawRoyaleABIJSON covers both ClawRoyale and ClawRoyaleSmart. The smart
// variant adds account-abstraction registration and bet delegation on top of
// the base tournament interface.
const ClawRoyaleABIJSON = `[
{"inputs":[{"name":"_agentId","type":"bytes32"},{"name":"_referrer","type":"address"}],"name":"register","outputs":[],"stateMutability":"nonpayable","type":"function"},
{"inputs":[{"name":"_agentId","type":"bytes32"},{"name":"_paymentId","type":"bytes32"},{"name":"_referrer","type":"address"}],"name":"registerWithX402","outputs":[],"stateMutability":"nonpayable","type":"function"},
{"inputs":[{"name":"_agentId","type":"bytes32"},{"name":"_referrer","type":"address"},{"name":"_userOpData","type":"bytes"}],"name":"registerSmart","outputs":[],"stateMutability":"nonpayable","type":"function"},
{"inputs":[],"name":"claimPrize","outputs":[],"stateMutability":"nonpayable","type":"function"},
{"inputs":[],"name":"startTournament","outputs":[],"stateMutability":"nonpayable","type":"function"},
{"inputs":[],"name":"completeTournament","outputs":[],"stateMutability":"nonpayable","type":"function"},
{"inputs":[{"name":"_amount","type":"uint256"}],"name":"fundPrizePool","outputs":[],"stateMutability":"nonpayable","type":"function"},
{"inputs":[{"name":"_matchId","type":"uint256"},{"name":"_p1Score","type":"uint256"},{"name":"_p2Score","type":"uint256"}],"name":"submitResult","outputs":[],"stateMutability":"nonpayable","type":"function"},
{"inputs":[{"name":"_maxBetAmount","type":"uint256"},{"name":"_duration","type":"uint256"}],"name":"configureDelegation","outputs":[],"stateMutability":"nonpayable","type":"function"},
{"inputs":[{"name":"","type":"address"}],"name":"players","outputs":[{"name":"agentId","type":"bytes32"},{"name":"ethAddress","type":"address"},{"name":"score","type":"uint256"},{"name":"eliminated","type":"bool"},{"name":"registered","type":"bool"},{"name":"referrer","type":"address"},{"name":"claimedPrize","type":"bool"}],"stateMutability":"view","type":"function"},
{"inputs":[{"name":"","type":"uint256"}],"name":"playerList","outputs":[{"name":"","type":"address"}],"stateMutability":"view","type":"function"},
{"inputs":[],"name":"prizePool","outputs":[{"name":"","type":"uint256"}],"stateMutability":"view","type":"function"},
{"inputs":[],"name":"entryFee","outputs":[{"name":"","type":"uint256"}],"stateMutability":"view","type":"function"},
{"inputs":[],"name":"status","outputs":[{"name":"","type":"uint8"}],"stateMutability":"view","type":"function"},
{"inputs":[],"name":"getPlayerCount","outputs":[{"name":"","type":"uint256"}],"stateMutability":"view","type":"function"},
{"inputs":[],"name":"owner","outputs":[{"name":"","type":"address"}],"stateMutability":"view","type":"function"},
{"inputs":[{"name":"_account","type":"address"}],"name":"isSmartAccount","outputs":[{"name":"","type":"bool"}],"stateMutability":"view","type":"function"},
{"inputs":[{"name":"_account","type":"address"}],"name":"hasValidDelegation","outputs":[{"name":"","type":"bool"}],"stateMutability":"view","type":"function"},
{"inputs":[{"name":"_account","type":"address"}],"name":"getDelegationLimit","outputs":[{"name":"","type":"uint256"}],"stateMutability":"view","type":"function"},
{"anonymous":false,"inputs":[{"indexed":true,"name":"agentId","type":"bytes32"},{"indexed":true,"name":"ethAddress","type":"address"},{"indexed":true,"name":"referrer","type":"address"}],"name":"PlayerRegistered","type":"event"},
{"anonymous":false,"inputs":[{"indexed":true,"name":"player","type":"address"},{"indexed":false,"name":"amount","type":"uint256"}],"name":"PrizeClaimed","type":"event"}
]`

// ClawRoyaleSmartABIJSON holds what ClawRoyaleSmart adds beyond the shared
// tournament interface. Its PlayerRegistered has a different signature from
// the base contract's, so the two cannot share one ABI.
const ClawRoyaleSmartABIJSON = `[
{"inputs":[{"name":"_agentId","type":"bytes32"},{"name":"_betAmount","type":"uint256"},{"name":"_referrer","type":"address"}],"name":"registerAndBet","outputs":[],"stateMutability":"nonpayable","type":"function"},
{"anonymous":false,"inputs":[{"indexed":true,"name":"smartAccount","type":"address"},{"indexed":false,"name":"amount","type":"uint256"}],"name":"PlayerRegistered","type":"event"},
{"anonymous":false,"inputs":[{"indexed":true,"name":"account","type":"address"},{"indexed":false,"name":"maxBet","type":"uint256"},{"indexed":false,"name":"expiry","type":"uint256"}],"name":"DelegationConfigured","type":"event"}
]`

// BettingPoolABIJSON is the spectator betting contract interface.
const BettingPoolABIJSON = `[
{"inputs":[{"name":"_matchId","type":"uint256"},{"name":"_amount","type":"uint256"},{"name":"_forPlayer1","type":"bool"}],"name":"placeBet","outputs":[],"stateMutability":"nonpayable","type":"function"},
{"inputs":[{"name":"_matchId","type":"uint256"}],"name":"claim","outputs":[],"stateMutability":"nonpayable","type":"function"},
{"inputs":[{"name":"","type":"uint256"}],"name":"totalPoolP1","outputs":[{"name":"","type":"uint256"}],"stateMutability":"view","type":"function"},
{"inputs":[{"name":"","type":"uint256"}],"name":"totalPoolP2","outputs":[{"name":"","type":"uint256"}],"stateMutability":"view","type":"function"},
{"inputs":[{"name":"_matchId","type":"uint256"},{"name":"","type":"address"}],"name":"bets","outputs":[{"name":"player","type":"address"},{"name":"amount","type":"uint256"},{"name":"matchId","type":"uint256"},{"name":"claimed","type":"bool"},{"name":"forPlayer1","type":"bool"}],"stateMutability":"view","type":"function"},
{"inputs":[],"name":"resultSet","outputs":[{"name":"","type":"bool"}],"stateMutability":"view","type":"function"},
{"inputs":[],"name":"matchResult","outputs":[{"name":"","type":"uint256"}],"stateMutability":"view","type":"function"}
]`

var (
	USDCABI            = mustParse(USDCABIJSON)
	ClawRoyaleABI      = mustParse(ClawRoyaleABIJSON)
	ClawRoyaleSmartABI = mustParse(ClawRoyaleSmartABIJSON)
	BettingPoolABI     = mustParse(BettingPoolABIJSON)
)

// mustParse panics on a malformed ABI constant.
func mustParse(raw string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(raw))
	if err != nil {
		panic("contracts: invalid ABI: " + err.Error())
	}
	return parsed
}
