package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Registration is an agent sign-up accepted by the HTTP API.
type Registration struct {
	AgentID      string  `json:"agent_id"`
	AgentName    string  `json:"agent_name"`
	RegisteredAt string  `json:"registered_at"`
	BattleID     *string `json:"battle_id"`
	Status       string  `json:"status"`
	Signature    string  `json:"-"`
}

// Bet is a wager accepted by the HTTP API before on-chain settlement.
type Bet struct {
	ID         string  `json:"id"`
	BattleID   string  `json:"battle_id"`
	AgentID    string  `json:"agent_id"`
	AmountUSDC float64 `json:"amount_usdc"`
	TxHash     *string `json:"tx_hash"`
	Status     string  `json:"status"`
	Timestamp  string  `json:"timestamp"`
}

const (
	RegistrationRegistered = "registered"
	BetPending             = "pending"
	BetPlaced              = "placed"
)

// isoTime matches JavaScript's Date.toISOString.
func isoTime(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05.000Z")
}

// SaveRegistration inserts or refreshes an agent registration. Re-registering
// an agent id keeps the original timestamp.
func (s *Store) SaveRegistration(agentID, agentName, signature string) (*Registration, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	if agentID == "" || agentName == "" {
		return nil, fmt.Errorf("agent id and name are required")
	}
	_, err := s.db.Exec(`
INSERT INTO registrations (agent_id, agent_name, signature, status, registered_at)
VALUES (?, ?, NULLIF(?, ''), ?, ?)
ON CONFLICT(agent_id) DO UPDATE SET
	agent_name=excluded.agent_name,
	signature=COALESCE(excluded.signature, registrations.signature)
`, agentID, agentName, signature, RegistrationRegistered, isoTime(s.timestamp()))
	if err != nil {
		return nil, fmt.Errorf("save registration: %w", err)
	}
	return s.GetRegistration(agentID)
}

func (s *Store) GetRegistration(agentID string) (*Registration, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	var (
		r        Registration
		battleID sql.NullString
	)
	err := s.db.QueryRow(`
SELECT agent_id, agent_name, COALESCE(signature, ''), status, battle_id, registered_at
FROM registrations WHERE agent_id = ?`, agentID).
		Scan(&r.AgentID, &r.AgentName, &r.Signature, &r.Status, &battleID, &r.RegisteredAt)
	if err != nil {
		return nil, notFound(err)
	}
	if battleID.Valid {
		r.BattleID = &battleID.String
	}
	return &r, nil
}

func (s *Store) CountRegistrations() (int, error) {
	if err := s.ready(); err != nil {
		return 0, err
	}
	var n int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM registrations`).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

// SaveBet records a pending bet and returns it with its id and timestamp.
func (s *Store) SaveBet(battleID, agentID string, amountUSDC float64) (*Bet, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	if battleID == "" || agentID == "" {
		return nil, fmt.Errorf("battle id and agent id are required")
	}
	if amountUSDC <= 0 {
		return nil, fmt.Errorf("amount must be positive")
	}
	b := &Bet{
		ID:         uuid.NewString(),
		BattleID:   battleID,
		AgentID:    agentID,
		AmountUSDC: amountUSDC,
		Status:     BetPending,
		Timestamp:  isoTime(s.timestamp()),
	}
	_, err := s.db.Exec(`
INSERT INTO bets (id, battle_id, agent_id, amount_usdc, status, created_at)
VALUES (?, ?, ?, ?, ?, ?)`, b.ID, b.BattleID, b.AgentID, b.AmountUSDC, b.Status, b.Timestamp)
	if err != nil {
		return nil, fmt.Errorf("save bet: %w", err)
	}
	return b, nil
}

// MarkBetPlaced attaches the on-chain transaction hash to a pending bet.
func (s *Store) MarkBetPlaced(id, txHash string) error {
	if err := s.ready(); err != nil {
		return err
	}
	res, err := s.db.Exec(`UPDATE bets SET tx_hash = ?, status = ? WHERE id = ?`, txHash, BetPlaced, id)
	if err != nil {
		return fmt.Errorf("mark bet: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("bet %s: %w", id, ErrNotFound)
	}
	return nil
}

// ListBets returns bets for a battle, or all bets when battleID is empty,
// oldest first.
func (s *Store) ListBets(battleID string) ([]Bet, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	query := `SELECT id, battle_id, agent_id, amount_usdc, tx_hash, status, created_at FROM bets`
	var args []any
	if battleID != "" {
		query += ` WHERE battle_id = ?`
		args = append(args, battleID)
	}
	query += ` ORDER BY rowid`

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("list bets: %w", err)
	}
	defer rows.Close()

	var out []Bet
	for rows.Next() {
		var (
			b  Bet
			tx sql.NullString
		)
		if err := rows.Scan(&b.ID, &b.BattleID, &b.AgentID, &b.AmountUSDC, &tx, &b.Status, &b.Timestamp); err != nil {
			return nil, err
		}
		if tx.Valid {
			b.TxHash = &tx.String
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// IsNotFound reports whether err is a missing-row error from this package.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
