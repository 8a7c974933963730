package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Operation is one journaled sequence (register, fund, claim, ...).
type Operation struct {
	ID        string
	Op        string
	Chain     string
	From      string
	Args      map[string]string
	Status    string
	Error     string
	CreatedAt time.Time
	UpdatedAt time.Time
	Steps     []StepRecord
}

type StepRecord struct {
	Step      string
	Status    string
	TxHash    string
	GasUsed   uint64
	Error     string
	UpdatedAt time.Time
}

func notFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

func (s *Store) BeginOperation(id, op, chain, from string, args map[string]string) error {
	if err := s.ready(); err != nil {
		return err
	}
	if id == "" || op == "" {
		return fmt.Errorf("operation id and name are required")
	}
	raw, err := json.Marshal(RedactArgs(args))
	if err != nil {
		return fmt.Errorf("marshal args: %w", err)
	}
	now := s.timestamp().Unix()
	_, err = s.db.Exec(`
INSERT INTO operations (id, op, chain, from_addr, args, status, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, 'running', ?, ?)`,
		id, op, chain, from, string(raw), now, now)
	if err != nil {
		return fmt.Errorf("begin operation: %w", err)
	}
	return nil
}

// RecordStep stores the latest status of one step of an operation.
func (s *Store) RecordStep(opID string, step, status, txHash string, gasUsed uint64, errMsg string) error {
	if err := s.ready(); err != nil {
		return err
	}
	now := s.timestamp().Unix()
	_, err := s.db.Exec(`
INSERT INTO steps (op_id, step, status, tx_hash, gas_used, error, updated_at)
VALUES (?, ?, ?, NULLIF(?, ''), ?, NULLIF(?, ''), ?)
ON CONFLICT(op_id, step) DO UPDATE SET
	status=excluded.status,
	tx_hash=COALESCE(excluded.tx_hash, steps.tx_hash),
	gas_used=CASE WHEN excluded.gas_used > 0 THEN excluded.gas_used ELSE steps.gas_used END,
	error=excluded.error,
	updated_at=excluded.updated_at
`, opID, step, status, txHash, gasUsed, errMsg, now)
	if err != nil {
		return fmt.Errorf("record step: %w", err)
	}
	_, err = s.db.Exec(`UPDATE operations SET updated_at = ? WHERE id = ?`, now, opID)
	return err
}

func (s *Store) FinishOperation(opID, status, errMsg string) error {
	if err := s.ready(); err != nil {
		return err
	}
	res, err := s.db.Exec(`UPDATE operations SET status = ?, error = NULLIF(?, ''), updated_at = ? WHERE id = ?`,
		status, errMsg, s.timestamp().Unix(), opID)
	if err != nil {
		return fmt.Errorf("finish operation: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("finish operation %s: %w", opID, ErrNotFound)
	}
	return nil
}

// GetOperation returns an operation with its steps.
func (s *Store) GetOperation(id string) (*Operation, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	row := s.db.QueryRow(`
SELECT id, op, chain, from_addr, COALESCE(args, ''), status, COALESCE(error, ''), created_at, updated_at
FROM operations WHERE id = ?`, id)
	op, err := scanOperation(row)
	if err != nil {
		return nil, notFound(err)
	}
	if op.Steps, err = s.steps(op.ID); err != nil {
		return nil, err
	}
	return op, nil
}

// ListOperations returns the most recent operations first, with steps.
func (s *Store) ListOperations(limit int) ([]*Operation, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.Query(`
SELECT id, op, chain, from_addr, COALESCE(args, ''), status, COALESCE(error, ''), created_at, updated_at
FROM operations ORDER BY created_at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list operations: %w", err)
	}
	var ops []*Operation
	for rows.Next() {
		op, err := scanOperation(rows)
		if err != nil {
			_ = rows.Close()
			return nil, err
		}
		ops = append(ops, op)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for _, op := range ops {
		if op.Steps, err = s.steps(op.ID); err != nil {
			return nil, err
		}
	}
	return ops, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanOperation(row scanner) (*Operation, error) {
	var (
		op               Operation
		args             string
		created, updated int64
	)
	if err := row.Scan(&op.ID, &op.Op, &op.Chain, &op.From, &args, &op.Status, &op.Error, &created, &updated); err != nil {
		return nil, err
	}
	if args != "" && args != "null" {
		if err := json.Unmarshal([]byte(args), &op.Args); err != nil {
			return nil, fmt.Errorf("decode args: %w", err)
		}
	}
	op.CreatedAt = time.Unix(created, 0).UTC()
	op.UpdatedAt = time.Unix(updated, 0).UTC()
	return &op, nil
}

func (s *Store) steps(opID string) ([]StepRecord, error) {
	rows, err := s.db.Query(`
SELECT step, status, COALESCE(tx_hash, ''), COALESCE(gas_used, 0), COALESCE(error, ''), updated_at
FROM steps WHERE op_id = ? ORDER BY rowid`, opID)
	if err != nil {
		return nil, fmt.Errorf("list steps: %w", err)
	}
	defer rows.Close()

	var out []StepRecord
	for rows.Next() {
		var st StepRecord
		var updated int64
		if err := rows.Scan(&st.Step, &st.Status, &st.TxHash, &st.GasUsed, &st.Error, &updated); err != nil {
			return nil, err
		}
		st.UpdatedAt = time.Unix(updated, 0).UTC()
		out = append(out, st)
	}
	return out, rows.Err()
}
