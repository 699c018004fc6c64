package store

import (
	"context"
	"database/sql"
	"encoding/json"

	"hot-potato/internal/chain"
	"hot-potato/internal/game"
)

// SaveGame upserts a game row. Mutable columns only on conflict; buy-in and
// seat limits are fixed at creation.
func (s *Store) SaveGame(ctx context.Context, g game.Game) error {
	var winners any
	if g.Winners != nil {
		b, err := json.Marshal(g.Winners)
		if err != nil {
			return err
		}
		winners = string(b)
	}
	_, err := s.DB.ExecContext(ctx, `
		INSERT INTO games (
			id, name, creator_address, buy_in_amount, max_players, min_players,
			total_pot, house_fee_collected, game_status, winner_addresses,
			loser_address, escrow_public_key, escrow_secret_key, created_at,
			finished_at, distribution_signature
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			total_pot = EXCLUDED.total_pot,
			house_fee_collected = EXCLUDED.house_fee_collected,
			game_status = EXCLUDED.game_status,
			winner_addresses = EXCLUDED.winner_addresses,
			loser_address = EXCLUDED.loser_address,
			finished_at = EXCLUDED.finished_at,
			distribution_signature = EXCLUDED.distribution_signature`,
		g.ID, g.Name, g.CreatedBy, g.BuyInAmount, g.MaxPlayers, g.MinPlayers,
		g.TotalPot, g.HouseFeeCollected, string(g.Status), winners,
		nullable(g.Loser), nullable(g.EscrowPublicKey),
		secretOrNil(g.EscrowSecret), g.CreatedAt,
		nullableInt(g.FinishedAt), nullable(g.DistributionSignature))
	return err
}

func (s *Store) DeleteGame(ctx context.Context, id string) error {
	if _, err := s.DB.ExecContext(ctx, `DELETE FROM game_players WHERE game_id = $1`, id); err != nil {
		return err
	}
	_, err := s.DB.ExecContext(ctx, `DELETE FROM games WHERE id = $1`, id)
	return err
}

func (s *Store) SaveGamePlayer(ctx context.Context, gameID string, p game.Player) error {
	_, err := s.DB.ExecContext(ctx, `
		INSERT INTO game_players (
			game_id, player_address, buy_in_amount, transaction_signature,
			payment_confirmed, joined_at
		) VALUES ($1,$2,$3,$4,$5,$6)
		ON CONFLICT (game_id, player_address) DO UPDATE SET
			transaction_signature = EXCLUDED.transaction_signature,
			payment_confirmed = EXCLUDED.payment_confirmed`,
		gameID, p.PublicKey, p.BuyIn, nullable(p.TransactionSignature),
		p.PaymentConfirmed, p.JoinedAt)
	return err
}

func (s *Store) RemovePlayer(ctx context.Context, gameID, playerAddress string) error {
	_, err := s.DB.ExecContext(ctx,
		`DELETE FROM game_players WHERE game_id = $1 AND player_address = $2`,
		gameID, playerAddress)
	return err
}

// LoadActiveGames returns every unfinished game with its confirmed players,
// newest first. Used to rehydrate the manager at boot and to serve the
// lobby list.
func (s *Store) LoadActiveGames(ctx context.Context) ([]game.Game, error) {
	return s.queryGames(ctx, `
		SELECT `+gameColumns+` FROM games g
		WHERE g.game_status IN ('waiting', 'full', 'playing')
		ORDER BY g.created_at DESC`)
}

// LoadJoinableGames returns waiting games; with a wallet given, games that
// wallet already sits in are excluded.
func (s *Store) LoadJoinableGames(ctx context.Context, excludeAddr string) ([]game.Game, error) {
	if excludeAddr == "" {
		return s.queryGames(ctx, `
			SELECT `+gameColumns+` FROM games g
			WHERE g.game_status = 'waiting'
			ORDER BY g.created_at DESC`)
	}
	return s.queryGames(ctx, `
		SELECT `+gameColumns+` FROM games g
		WHERE g.game_status = 'waiting'
		  AND g.id NOT IN (
			SELECT gp.game_id FROM game_players gp
			WHERE gp.player_address = $1 AND gp.payment_confirmed = true
		  )
		ORDER BY g.created_at DESC`, excludeAddr)
}

// LoadUserGames returns games the wallet created or joined, any status.
func (s *Store) LoadUserGames(ctx context.Context, addr string) ([]game.Game, error) {
	return s.queryGames(ctx, `
		SELECT DISTINCT `+gameColumns+` FROM games g
		LEFT JOIN game_players gp ON g.id = gp.game_id
		WHERE g.creator_address = $1
		   OR (gp.player_address = $1 AND gp.payment_confirmed = true)
		ORDER BY g.created_at DESC`, addr)
}

const gameColumns = `g.id, g.name, g.creator_address, g.buy_in_amount,
	g.max_players, g.min_players, g.total_pot, g.house_fee_collected,
	g.game_status, g.winner_addresses, g.loser_address,
	g.escrow_public_key, g.escrow_secret_key, g.created_at, g.finished_at,
	g.distribution_signature`

func (s *Store) queryGames(ctx context.Context, query string, args ...any) ([]game.Game, error) {
	rows, err := s.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []game.Game{}
	for rows.Next() {
		g, err := scanGame(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, g)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i := range out {
		players, err := s.loadPlayers(ctx, out[i].ID)
		if err != nil {
			return nil, err
		}
		out[i].Players = players
	}
	return out, nil
}

func (s *Store) loadPlayers(ctx context.Context, gameID string) ([]game.Player, error) {
	rows, err := s.DB.QueryContext(ctx, `
		SELECT player_address, buy_in_amount, transaction_signature,
		       payment_confirmed, joined_at
		FROM game_players
		WHERE game_id = $1 AND payment_confirmed = true
		ORDER BY joined_at ASC`, gameID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []game.Player{}
	for rows.Next() {
		var p game.Player
		var sig sql.NullString
		if err := rows.Scan(&p.PublicKey, &p.BuyIn, &sig, &p.PaymentConfirmed, &p.JoinedAt); err != nil {
			return nil, err
		}
		p.TransactionSignature = sig.String
		out = append(out, p)
	}
	return out, rows.Err()
}

func scanGame(rows *sql.Rows) (game.Game, error) {
	var g game.Game
	var status string
	var winners, loser, escrowPub, escrowSecret, distSig sql.NullString
	var finishedAt sql.NullInt64
	err := rows.Scan(&g.ID, &g.Name, &g.CreatedBy, &g.BuyInAmount,
		&g.MaxPlayers, &g.MinPlayers, &g.TotalPot, &g.HouseFeeCollected,
		&status, &winners, &loser, &escrowPub, &escrowSecret,
		&g.CreatedAt, &finishedAt, &distSig)
	if err != nil {
		return game.Game{}, err
	}
	g.Status = game.Status(status)
	g.Loser = loser.String
	g.EscrowPublicKey = escrowPub.String
	g.FinishedAt = finishedAt.Int64
	g.DistributionSignature = distSig.String
	if g.Name == "" {
		g.Name = "Game #" + g.ID
	}
	if winners.Valid {
		if err := json.Unmarshal([]byte(winners.String), &g.Winners); err != nil {
			return game.Game{}, err
		}
	}
	if escrowSecret.Valid {
		secret, err := chain.UnmarshalSecret(escrowSecret.String)
		if err != nil {
			return game.Game{}, err
		}
		g.EscrowSecret = secret
	}
	return g, nil
}

func secretOrNil(secret []byte) any {
	if len(secret) == 0 {
		return nil
	}
	return chain.MarshalSecret(secret)
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func nullableInt(n int64) any {
	if n == 0 {
		return nil
	}
	return n
}
