package store

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

type UserProfile struct {
	ID                int64     `json:"id"`
	WalletAddress     string    `json:"wallet_address"`
	Username          string    `json:"username"`
	ProfilePictureURL string    `json:"profile_picture_url,omitempty"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

func (s *Store) GetUserByWallet(ctx context.Context, walletAddress string) (*UserProfile, error) {
	row := s.DB.QueryRowContext(ctx, `
		SELECT id, wallet_address, username, profile_picture_url, created_at, updated_at
		FROM user_profiles WHERE wallet_address = $1 LIMIT 1`, walletAddress)
	return scanUser(row)
}

func (s *Store) GetUserByUsername(ctx context.Context, username string) (*UserProfile, error) {
	row := s.DB.QueryRowContext(ctx, `
		SELECT id, wallet_address, username, profile_picture_url, created_at, updated_at
		FROM user_profiles WHERE username = $1 LIMIT 1`, username)
	return scanUser(row)
}

func (s *Store) CreateUser(ctx context.Context, walletAddress, username, pictureURL string) (*UserProfile, error) {
	row := s.DB.QueryRowContext(ctx, `
		INSERT INTO user_profiles (wallet_address, username, profile_picture_url)
		VALUES ($1, $2, $3)
		RETURNING id, wallet_address, username, profile_picture_url, created_at, updated_at`,
		walletAddress, username, nullable(pictureURL))
	return scanUser(row)
}

// UpdateUser patches only the provided fields.
func (s *Store) UpdateUser(ctx context.Context, walletAddress string, username, pictureURL *string) (*UserProfile, error) {
	row := s.DB.QueryRowContext(ctx, `
		UPDATE user_profiles SET
			username = COALESCE($2, username),
			profile_picture_url = COALESCE($3, profile_picture_url),
			updated_at = NOW()
		WHERE wallet_address = $1
		RETURNING id, wallet_address, username, profile_picture_url, created_at, updated_at`,
		walletAddress, username, pictureURL)
	return scanUser(row)
}

// IsUsernameAvailable reports whether the name is free, optionally ignoring
// the wallet that already owns it (for self-renames).
func (s *Store) IsUsernameAvailable(ctx context.Context, username, excludeWallet string) (bool, error) {
	var query string
	var args []any
	if excludeWallet != "" {
		query = `SELECT 1 FROM user_profiles WHERE username = $1 AND wallet_address != $2 LIMIT 1`
		args = []any{username, excludeWallet}
	} else {
		query = `SELECT 1 FROM user_profiles WHERE username = $1 LIMIT 1`
		args = []any{username}
	}
	var one int
	err := s.DB.QueryRowContext(ctx, query, args...).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return true, nil
	}
	if err != nil {
		return false, err
	}
	return false, nil
}

func scanUser(row *sql.Row) (*UserProfile, error) {
	var u UserProfile
	var pic sql.NullString
	err := row.Scan(&u.ID, &u.WalletAddress, &u.Username, &pic, &u.CreatedAt, &u.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	u.ProfilePictureURL = pic.String
	return &u, nil
}
