package server

import (
	"encoding/json"
	"math"
	"math/big"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/yolodolo42/clawroyale/internal/chain"
	"github.com/yolodolo42/clawroyale/internal/contracts"
	"github.com/yolodolo42/clawroyale/internal/store"
	"github.com/yolodolo42/clawroyale/internal/tournament"
)

const (
	defaultLeaderboardLimit = 10
	maxLeaderboardLimit     = 100
	maxBodyBytes            = 1 << 20
)

type contractsResponse struct {
	ClawRoyale  string `json:"clawRoyale"`
	BettingPool string `json:"bettingPool"`
	USDC        string `json:"usdc"`
}

func (s *Server) contracts() contractsResponse {
	a := s.cfg.Contracts
	return contractsResponse{
		ClawRoyale:  a.ClawRoyale.Hex(),
		BettingPool: a.BettingPool.Hex(),
		USDC:        a.USDC.Hex(),
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type registerInfoResponse struct {
	Contracts     contractsResponse `json:"contracts"`
	Version       string            `json:"version"`
	Network       string            `json:"network"`
	Registrations int               `json:"registrations"`
}

func (s *Server) handleRegisterInfo(w http.ResponseWriter, _ *http.Request) {
	n, err := s.store.CountRegistrations()
	if err != nil {
		s.logger.Warn("count registrations", "err", err)
	}
	writeJSON(w, http.StatusOK, registerInfoResponse{
		Contracts:     s.contracts(),
		Version:       APIVersion,
		Network:       s.cfg.Network,
		Registrations: n,
	})
}

type registerRequest struct {
	AgentID   any `json:"agent_id"`
	AgentName any `json:"agent_name"`
	Signature any `json:"signature"`
}

type registerResponse struct {
	Success      bool                `json:"success"`
	Registration *store.Registration `json:"registration"`
	Message      string              `json:"message"`
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	const failed = "Registration failed"

	var req registerRequest
	if err := decodeBody(w, r, &req); err != nil {
		s.logger.Error("registration error", "err", err)
		writeError(w, http.StatusInternalServerError, failed)
		return
	}
	if !truthy(req.AgentID) || !truthy(req.AgentName) {
		writeError(w, http.StatusBadRequest, "Missing required fields: agent_id, agent_name")
		return
	}

	var signature string
	if truthy(req.Signature) {
		signature = jsString(req.Signature)
	}
	reg, err := s.store.SaveRegistration(jsString(req.AgentID), jsString(req.AgentName), signature)
	if err != nil {
		s.logger.Error("registration error", "err", err)
		writeError(w, http.StatusInternalServerError, failed)
		return
	}
	if s.metrics != nil {
		s.metrics.RecordRegistration()
	}
	s.logger.Info("agent registered", "agent_id", reg.AgentID, "agent_name", reg.AgentName)

	writeJSON(w, http.StatusOK, registerResponse{
		Success:      true,
		Registration: reg,
		Message:      "Agent registered successfully! Waiting for battle to start.",
	})
}

type betRequest struct {
	BattleID   any `json:"battle_id"`
	AmountUSDC any `json:"amount_usdc"`
	AgentID    any `json:"agent_id"`
}

type betResponse struct {
	Success bool       `json:"success"`
	Bet     *store.Bet `json:"bet"`
	Message string     `json:"message"`
}

func (s *Server) handleBet(w http.ResponseWriter, r *http.Request) {
	const failed = "Bet placement failed"

	var req betRequest
	if err := decodeBody(w, r, &req); err != nil {
		s.logger.Error("bet error", "err", err)
		writeError(w, http.StatusInternalServerError, failed)
		return
	}
	if !truthy(req.BattleID) || !truthy(req.AmountUSDC) || !truthy(req.AgentID) {
		writeError(w, http.StatusBadRequest, "Missing required fields: battle_id, amount_usdc, agent_id")
		return
	}
	amount := parseFloat(req.AmountUSDC)
	if math.IsNaN(amount) || math.IsInf(amount, 0) || amount <= 0 {
		writeError(w, http.StatusBadRequest, "Invalid bet amount")
		return
	}

	bet, err := s.store.SaveBet(jsString(req.BattleID), jsString(req.AgentID), amount)
	if err != nil {
		s.logger.Error("bet error", "err", err)
		writeError(w, http.StatusInternalServerError, failed)
		return
	}
	if s.metrics != nil {
		s.metrics.RecordBet()
	}
	s.logger.Info("bet accepted", "bet_id", bet.ID, "battle_id", bet.BattleID, "amount_usdc", bet.AmountUSDC)

	writeJSON(w, http.StatusOK, betResponse{
		Success: true,
		Bet:     bet,
		Message: "Bet placed successfully! Settlement after battle concludes.",
	})
}

type statusResponse struct {
	Tournament tournamentResponse `json:"tournament"`
	Rules      rulesResponse      `json:"rules"`
	Contracts  contractsResponse  `json:"contracts"`
}

type tournamentResponse struct {
	Status        string  `json:"status"`
	Players       int64   `json:"players"`
	PrizePoolUSDC float64 `json:"prizePoolUSDC"`
	CurrentBattle *string `json:"currentBattle"`
	StartTime     *string `json:"startTime"`
	UpdatedAt     *string `json:"updatedAt"`
}

type rulesResponse struct {
	MinPlayers        int               `json:"minPlayers"`
	MaxPlayers        int               `json:"maxPlayers"`
	EntryFeeUSDC      float64           `json:"entryFeeUSDC"`
	PrizeDistribution prizeDistribution `json:"prizeDistribution"`
}

type prizeDistribution struct {
	First  float64 `json:"first"`
	Second float64 `json:"second"`
	Third  float64 `json:"third"`
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.statusBody(s.latest()))
}

// latest returns the poller snapshot, nil before the first good refresh.
func (s *Server) latest() *tournament.State {
	if s.state == nil {
		return nil
	}
	st, err := s.state.Latest()
	if err != nil {
		s.logger.Warn("tournament snapshot stale", "err", err)
	}
	return st
}

// statusBody renders st, or the pending defaults when st is nil.
func (s *Server) statusBody(st *tournament.State) statusResponse {
	resp := statusResponse{
		Tournament: tournamentResponse{Status: contracts.StatusPending.APIName()},
		Rules: rulesResponse{
			MinPlayers:        2,
			MaxPlayers:        32,
			PrizeDistribution: prizeDistribution{First: 0.50, Second: 0.30, Third: 0.20},
		},
		Contracts: s.contracts(),
	}

	if st != nil {
		resp.Tournament.Status = st.Status.APIName()
		if st.PlayerCount != nil {
			resp.Tournament.Players = st.PlayerCount.Int64()
		}
		resp.Tournament.PrizePoolUSDC = usdcFloat(st.PrizePool)
		resp.Rules.EntryFeeUSDC = usdcFloat(st.EntryFee)
		updated := st.FetchedAt.UTC().Format(time.RFC3339)
		resp.Tournament.UpdatedAt = &updated
	}
	return resp
}

type leaderboardResponse struct {
	Leaderboard []store.LeaderboardEntry `json:"leaderboard"`
}

func (s *Server) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	limit := defaultLeaderboardLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "Invalid limit")
			return
		}
		limit = min(n, maxLeaderboardLimit)
	}
	entries, err := s.store.Leaderboard(limit)
	if err != nil {
		s.logger.Error("leaderboard error", "err", err)
		writeError(w, http.StatusInternalServerError, "Leaderboard unavailable")
		return
	}
	if entries == nil {
		entries = []store.LeaderboardEntry{}
	}
	writeJSON(w, http.StatusOK, leaderboardResponse{Leaderboard: entries})
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	return json.NewDecoder(r.Body).Decode(v)
}

// truthy reports whether a decoded JSON value would pass a JavaScript
// truthiness test.
func truthy(v any) bool {
	switch x := v.(type) {
	case nil:
		return false
	case bool:
		return x
	case float64:
		return x != 0 && !math.IsNaN(x)
	case string:
		return x != ""
	default:
		return true
	}
}

func jsString(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(x)
	case nil:
		return ""
	default:
		b, _ := json.Marshal(x)
		return string(b)
	}
}

var leadingFloat = regexp.MustCompile(`^[+-]?(\d+\.?\d*|\.\d+)([eE][+-]?\d+)?`)

// parseFloat follows JavaScript parseFloat: a leading numeric prefix is
// accepted and anything else is NaN.
func parseFloat(v any) float64 {
	switch x := v.(type) {
	case float64:
		return x
	case string:
		m := leadingFloat.FindString(strings.TrimSpace(x))
		if m == "" {
			return math.NaN()
		}
		f, err := strconv.ParseFloat(m, 64)
		if err != nil {
			return math.NaN()
		}
		return f
	default:
		return math.NaN()
	}
}

func usdcFloat(v *big.Int) float64 {
	if v == nil {
		return 0
	}
	f, err := strconv.ParseFloat(chain.FormatUSDC(v), 64)
	if err != nil {
		return 0
	}
	return f
}
