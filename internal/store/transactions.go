package store

import (
	"context"
	"database/sql"
	"time"
)

type Transaction struct {
	ID              int64     `json:"id"`
	Signature       string    `json:"signature"`
	TransactionType string    `json:"transaction_type"`
	Amount          float64   `json:"amount"`
	FromAddress     string    `json:"from_address,omitempty"`
	ToAddress       string    `json:"to_address,omitempty"`
	GameID          string    `json:"game_id,omitempty"`
	Status          string    `json:"status"`
	BlockTime       int64     `json:"block_time,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
}

// SaveTransaction upserts on signature so a pending row can later flip to
// confirmed or failed.
func (s *Store) SaveTransaction(ctx context.Context, t Transaction) error {
	_, err := s.DB.ExecContext(ctx, `
		INSERT INTO transactions (
			signature, transaction_type, amount, from_address, to_address,
			game_id, status, block_time
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
		ON CONFLICT (signature) DO UPDATE SET
			status = EXCLUDED.status,
			block_time = EXCLUDED.block_time`,
		t.Signature, t.TransactionType, t.Amount, nullable(t.FromAddress),
		nullable(t.ToAddress), nullable(t.GameID), t.Status,
		nullableInt(t.BlockTime))
	return err
}

// UserTransactions returns the wallet's most recent transfers, either side.
func (s *Store) UserTransactions(ctx context.Context, addr string) ([]Transaction, error) {
	rows, err := s.DB.QueryContext(ctx, `
		SELECT id, signature, transaction_type, amount, from_address,
		       to_address, game_id, status, block_time, created_at
		FROM transactions
		WHERE from_address = $1 OR to_address = $1
		ORDER BY created_at DESC
		LIMIT 100`, addr)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Transaction{}
	for rows.Next() {
		var t Transaction
		var from, to, gameID sql.NullString
		var blockTime sql.NullInt64
		if err := rows.Scan(&t.ID, &t.Signature, &t.TransactionType, &t.Amount,
			&from, &to, &gameID, &t.Status, &blockTime, &t.CreatedAt); err != nil {
			return nil, err
		}
		t.FromAddress = from.String
		t.ToAddress = to.String
		t.GameID = gameID.String
		t.BlockTime = blockTime.Int64
		out = append(out, t)
	}
	return out, rows.Err()
}
