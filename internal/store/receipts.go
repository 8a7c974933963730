package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/core/types"
)

type StoredReceipt struct {
	Chain       string
	TxHash      string
	Status      uint64
	GasUsed     uint64
	BlockNumber uint64
	RawJSON     string
	CreatedAt   time.Time
}

func (s *Store) UpsertReceipt(chain string, receipt *types.Receipt) error {
	if err := s.ready(); err != nil {
		return err
	}
	if chain == "" {
		return fmt.Errorf("chain is required")
	}
	if receipt == nil {
		return fmt.Errorf("receipt is required")
	}

	raw, err := json.Marshal(receipt)
	if err != nil {
		return fmt.Errorf("marshal receipt: %w", err)
	}

	var block uint64
	if receipt.BlockNumber != nil {
		block = receipt.BlockNumber.Uint64()
	}

	_, err = s.db.Exec(`
INSERT INTO receipts (chain, tx_hash, status, gas_used, block_number, raw_json, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(chain, tx_hash) DO UPDATE SET
	status=excluded.status,
	gas_used=excluded.gas_used,
	block_number=excluded.block_number,
	raw_json=excluded.raw_json
`, chain, receipt.TxHash.Hex(), receipt.Status, receipt.GasUsed, block, string(raw), s.timestamp().Unix())
	if err != nil {
		return fmt.Errorf("persist receipt: %w", err)
	}
	return nil
}

// ErrNotFound is returned by lookups that match no row.
var ErrNotFound = errors.New("not found")

func (s *Store) GetReceipt(chain, txHash string) (*StoredReceipt, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	if chain == "" || txHash == "" {
		return nil, fmt.Errorf("chain and tx hash are required")
	}

	var out StoredReceipt
	var created int64
	row := s.db.QueryRow(
		`SELECT chain, tx_hash, COALESCE(status, 0), COALESCE(gas_used, 0), COALESCE(block_number, 0), COALESCE(raw_json, ''), created_at
		 FROM receipts WHERE chain = ? AND tx_hash = ?`,
		chain, txHash,
	)
	if err := row.Scan(&out.Chain, &out.TxHash, &out.Status, &out.GasUsed, &out.BlockNumber, &out.RawJSON, &created); err != nil {
		return nil, notFound(err)
	}
	out.CreatedAt = time.Unix(created, 0).UTC()
	return &out, nil
}
