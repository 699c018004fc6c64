package store

import "context"

// EnsureSchema creates the four tables if they are missing. Idempotent, ran
// once at boot; the schema mirrors the deployed one column for column.
func (s *Store) EnsureSchema(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS user_profiles (
			id SERIAL PRIMARY KEY,
			wallet_address TEXT NOT NULL UNIQUE,
			username TEXT NOT NULL UNIQUE,
			profile_picture_url TEXT,
			created_at TIMESTAMP DEFAULT NOW(),
			updated_at TIMESTAMP DEFAULT NOW()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_wallet_address ON user_profiles(wallet_address)`,
		`CREATE INDEX IF NOT EXISTS idx_username ON user_profiles(username)`,
		`CREATE TABLE IF NOT EXISTS games (
			id VARCHAR(50) PRIMARY KEY,
			name VARCHAR(255) DEFAULT '',
			creator_address VARCHAR(255) NOT NULL,
			buy_in_amount DECIMAL(10, 8) NOT NULL,
			max_players INTEGER NOT NULL,
			min_players INTEGER NOT NULL,
			total_pot DECIMAL(10, 8) DEFAULT 0,
			house_fee_collected DECIMAL(10, 8) DEFAULT 0,
			game_status VARCHAR(20) DEFAULT 'waiting',
			winner_addresses TEXT,
			loser_address VARCHAR(255),
			escrow_public_key VARCHAR(255),
			escrow_secret_key TEXT,
			created_at BIGINT NOT NULL,
			finished_at BIGINT,
			distribution_signature VARCHAR(255)
		)`,
		`CREATE TABLE IF NOT EXISTS game_players (
			id SERIAL PRIMARY KEY,
			game_id VARCHAR(50) NOT NULL,
			player_address VARCHAR(255) NOT NULL,
			buy_in_amount DECIMAL(10, 8) NOT NULL,
			transaction_signature VARCHAR(255),
			payment_confirmed BOOLEAN DEFAULT false,
			joined_at BIGINT NOT NULL,
			UNIQUE(game_id, player_address)
		)`,
		`CREATE TABLE IF NOT EXISTS transactions (
			id SERIAL PRIMARY KEY,
			signature VARCHAR(255) UNIQUE NOT NULL,
			transaction_type VARCHAR(20) NOT NULL,
			amount DECIMAL(10, 8) NOT NULL,
			from_address VARCHAR(255),
			to_address VARCHAR(255),
			game_id VARCHAR(50),
			status VARCHAR(20) DEFAULT 'pending',
			block_time BIGINT,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,
	}
	for _, stmt := range stmts {
		if _, err := s.DB.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}
