package users

import (
	"context"
	"errors"
	"regexp"

	"hot-potato/internal/store"
)

var (
	ErrNotFound        = errors.New("user not found")
	ErrWalletExists    = errors.New("wallet already has a profile")
	ErrUsernameTaken   = errors.New("username taken")
	ErrInvalidUsername = errors.New("username must be 3-20 characters: letters, numbers, _ or -")
	ErrUnavailable     = errors.New("user profiles unavailable without a database")
)

var usernameRe = regexp.MustCompile(`^[a-zA-Z0-9_-]{3,20}$`)

// Store is the profile persistence surface. Nil means the server runs
// without a database; reads act as empty and writes fail with
// ErrUnavailable.
type Store interface {
	GetUserByWallet(ctx context.Context, walletAddress string) (*store.UserProfile, error)
	GetUserByUsername(ctx context.Context, username string) (*store.UserProfile, error)
	CreateUser(ctx context.Context, walletAddress, username, pictureURL string) (*store.UserProfile, error)
	UpdateUser(ctx context.Context, walletAddress string, username, pictureURL *string) (*store.UserProfile, error)
	IsUsernameAvailable(ctx context.Context, username, excludeWallet string) (bool, error)
}

type Service struct {
	st Store
}

func NewService(st Store) *Service {
	return &Service{st: st}
}

func (s *Service) Get(ctx context.Context, walletAddress string) (*store.UserProfile, error) {
	if s.st == nil {
		return nil, ErrNotFound
	}
	return s.st.GetUserByWallet(ctx, walletAddress)
}

func (s *Service) GetByUsername(ctx context.Context, username string) (*store.UserProfile, error) {
	if s.st == nil {
		return nil, ErrNotFound
	}
	return s.st.GetUserByUsername(ctx, username)
}

func (s *Service) Create(ctx context.Context, walletAddress, username, pictureURL string) (*store.UserProfile, error) {
	if !usernameRe.MatchString(username) {
		return nil, ErrInvalidUsername
	}
	if s.st == nil {
		return nil, ErrUnavailable
	}
	if _, err := s.st.GetUserByWallet(ctx, walletAddress); err == nil {
		return nil, ErrWalletExists
	} else if !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}
	free, err := s.st.IsUsernameAvailable(ctx, username, "")
	if err != nil {
		return nil, err
	}
	if !free {
		return nil, ErrUsernameTaken
	}
	return s.st.CreateUser(ctx, walletAddress, username, pictureURL)
}

// Update patches the provided fields only. A nil username keeps the current
// one; renames are checked against every other wallet.
func (s *Service) Update(ctx context.Context, walletAddress string, username, pictureURL *string) (*store.UserProfile, error) {
	if username != nil {
		if !usernameRe.MatchString(*username) {
			return nil, ErrInvalidUsername
		}
	}
	if s.st == nil {
		return nil, ErrUnavailable
	}
	if username != nil {
		free, err := s.st.IsUsernameAvailable(ctx, *username, walletAddress)
		if err != nil {
			return nil, err
		}
		if !free {
			return nil, ErrUsernameTaken
		}
	}
	u, err := s.st.UpdateUser(ctx, walletAddress, username, pictureURL)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrNotFound
	}
	return u, err
}

// CheckUsername validates the format and reports availability. Without a
// database every well-formed name is available.
func (s *Service) CheckUsername(ctx context.Context, username, excludeWallet string) (bool, error) {
	if !usernameRe.MatchString(username) {
		return false, ErrInvalidUsername
	}
	if s.st == nil {
		return true, nil
	}
	return s.st.IsUsernameAvailable(ctx, username, excludeWallet)
}
