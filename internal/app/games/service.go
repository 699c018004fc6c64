package games

import (
	"context"
	"math"
	"time"

	"github.com/rs/zerolog/log"

	"hot-potato/internal/chain"
	"hot-potato/internal/game"
	"hot-potato/internal/store"
)

// Store is the persistence surface the service writes through. A nil Store
// is valid: the game runs in memory only and every persistence call is
// skipped with a warning. Store failures never roll back in-memory state.
type Store interface {
	SaveGame(ctx context.Context, g game.Game) error
	DeleteGame(ctx context.Context, id string) error
	SaveGamePlayer(ctx context.Context, gameID string, p game.Player) error
	RemovePlayer(ctx context.Context, gameID, playerAddress string) error
	SaveTransaction(ctx context.Context, t store.Transaction) error
	LoadActiveGames(ctx context.Context) ([]game.Game, error)
	LoadUserGames(ctx context.Context, addr string) ([]game.Game, error)
	UserTransactions(ctx context.Context, addr string) ([]store.Transaction, error)
}

// Settler moves escrow funds; see internal/settlement.
type Settler interface {
	Settle(ctx context.Context, g game.Game) (string, error)
	Refund(ctx context.Context, g game.Game, p game.Player) (string, error)
}

// Broadcaster feeds the lobby websocket. Nil disables it.
type Broadcaster interface {
	Broadcast(kind string, g game.Game)
}

type Service struct {
	mgr     *game.Manager
	sched   *game.Scheduler
	settler Settler
	st      Store
	hub     Broadcaster
}

func NewService(mgr *game.Manager, sched *game.Scheduler, settler Settler, st Store, hub Broadcaster) *Service {
	svc := &Service{mgr: mgr, sched: sched, settler: settler, st: st, hub: hub}
	sched.OnFinish(svc.handleFinished)
	sched.OnEvent(svc.broadcast)
	return svc
}

type CreateParams struct {
	Name        string
	CreatedBy   string
	BuyInAmount float64
	MaxPlayers  int
}

// Create registers a new waiting game with a fresh escrow keypair. The
// minimum seat count follows the original rule: 60% of max, floor of 3.
func (s *Service) Create(ctx context.Context, p CreateParams) game.Game {
	escrow := chain.NewEscrow()
	id := store.NewID()
	name := p.Name
	if name == "" {
		name = "Game #" + id
	}
	g := s.mgr.Add(game.Game{
		ID:              id,
		Name:            name,
		CreatedBy:       p.CreatedBy,
		CreatedAt:       time.Now().UnixMilli(),
		BuyInAmount:     p.BuyInAmount,
		MaxPlayers:      p.MaxPlayers,
		MinPlayers:      max(3, int(math.Ceil(float64(p.MaxPlayers)*0.6))),
		Status:          game.StatusWaiting,
		EscrowPublicKey: escrow.PublicKey().String(),
		EscrowSecret:    escrow.Secret(),
	})
	s.persistGame(ctx, g)
	s.broadcast("game_created", g)
	log.Info().Str("game_id", g.ID).Float64("buy_in", g.BuyInAmount).
		Int("max_players", g.MaxPlayers).Msg("game created")
	return g
}

type JoinParams struct {
	PublicKey            string
	BuyIn                float64
	TransactionSignature string
}

// Join seats a player. A rejection mirrors the original silent no-op: the
// caller gets the unchanged game back and decides whether to report it.
func (s *Service) Join(ctx context.Context, gameID string, p JoinParams) (game.Game, game.Rejection) {
	player := game.Player{
		PublicKey:            p.PublicKey,
		BuyIn:                p.BuyIn,
		TransactionSignature: p.TransactionSignature,
		PaymentConfirmed:     p.TransactionSignature != "",
		JoinedAt:             time.Now().UnixMilli(),
	}
	g, rej := s.mgr.Join(gameID, player)
	if rej.Rejected() {
		log.Debug().Str("game_id", gameID).Str("player", p.PublicKey).
			Str("reject", string(rej)).Msg("join rejected")
		return g, rej
	}

	s.persistPlayer(ctx, gameID, player)
	s.persistGame(ctx, g)
	if p.TransactionSignature != "" {
		s.persistTransaction(ctx, store.Transaction{
			Signature:       p.TransactionSignature,
			TransactionType: "buy_in",
			Amount:          p.BuyIn,
			FromAddress:     p.PublicKey,
			ToAddress:       g.EscrowPublicKey,
			GameID:          gameID,
			Status:          "confirmed",
			BlockTime:       time.Now().Unix(),
		})
	}
	s.broadcast("player_joined", g)
	if g.Status == game.StatusFull {
		log.Info().Str("game_id", gameID).Msg("game full, start scheduled")
		s.sched.GameFull(gameID)
		s.broadcast("game_full", g)
	}
	return g, ""
}

// Leave refunds the player's gross buy-in from escrow and removes them. A
// sole remaining player takes the whole game with them.
func (s *Service) Leave(ctx context.Context, gameID, publicKey string) (game.Game, bool, game.Rejection, error) {
	before, ok := s.mgr.Get(gameID)
	if !ok {
		return game.Game{}, false, game.RejectNotFound, nil
	}
	removed, g, deleted, rej := s.mgr.Leave(gameID, publicKey)
	if rej.Rejected() {
		return g, false, rej, nil
	}

	var refundErr error
	if removed.PaymentConfirmed {
		if _, err := s.settler.Refund(ctx, before, removed); err != nil {
			// State already changed; surface the payment failure anyway.
			log.Error().Err(err).Str("game_id", gameID).Str("player", publicKey).
				Msg("refund failed")
			refundErr = err
		}
	}

	if deleted {
		s.sched.Cancel(gameID)
		if s.st != nil {
			if err := s.st.DeleteGame(ctx, gameID); err != nil {
				log.Warn().Err(err).Str("game_id", gameID).Msg("game not deleted from store")
			}
		}
		s.broadcast("game_deleted", before)
		log.Info().Str("game_id", gameID).Msg("last player left, game deleted")
		return game.Game{}, true, "", refundErr
	}

	if s.st != nil {
		if err := s.st.RemovePlayer(ctx, gameID, publicKey); err != nil {
			log.Warn().Err(err).Str("game_id", gameID).Msg("player not removed from store")
		}
	}
	s.persistGame(ctx, g)
	s.broadcast("player_left", g)
	return g, false, "", refundErr
}

// RecordTransaction stores a client-reported transfer. A confirmed buy-in
// also flips the player's payment flag.
func (s *Service) RecordTransaction(ctx context.Context, t store.Transaction) {
	if t.TransactionType == "buy_in" && t.GameID != "" && t.FromAddress != "" {
		if g, rej := s.mgr.ConfirmPayment(t.GameID, t.FromAddress, t.Signature); !rej.Rejected() {
			for _, p := range g.Players {
				if p.PublicKey == t.FromAddress {
					s.persistPlayer(ctx, t.GameID, p)
					break
				}
			}
		}
	}
	s.persistTransaction(ctx, t)
}

// Get and the lobby views below serve straight from memory; the manager is
// authoritative once hydrated.
func (s *Service) Get(id string) (game.Game, bool)       { return s.mgr.Get(id) }
func (s *Service) Active() []game.Game                   { return s.mgr.Active() }
func (s *Service) Joinable(publicKey string) []game.Game { return s.mgr.Joinable(publicKey) }
func (s *Service) ForPlayer(publicKey string) []game.Game {
	return s.mgr.ForPlayer(publicKey)
}

// History includes finished games, so it needs the store.
func (s *Service) History(ctx context.Context, addr string) ([]game.Game, error) {
	if s.st == nil {
		return s.mgr.ForPlayer(addr), nil
	}
	return s.st.LoadUserGames(ctx, addr)
}

func (s *Service) Transactions(ctx context.Context, addr string) ([]store.Transaction, error) {
	if s.st == nil {
		return []store.Transaction{}, nil
	}
	return s.st.UserTransactions(ctx, addr)
}

// Hydrate loads unfinished games from the store into the manager and
// re-arms their timers. Called once at boot; without a store it is a no-op.
func (s *Service) Hydrate(ctx context.Context) error {
	if s.st == nil {
		return nil
	}
	loaded, err := s.st.LoadActiveGames(ctx)
	if err != nil {
		return err
	}
	for _, g := range loaded {
		s.mgr.Add(g)
		s.sched.Resume(g)
	}
	log.Info().Int("games", len(loaded)).Msg("games hydrated from store")
	return nil
}

// handleFinished is the scheduler's settlement hook.
func (s *Service) handleFinished(ctx context.Context, g game.Game) {
	s.persistGame(ctx, g)
	if _, err := s.settler.Settle(ctx, g); err != nil {
		// Already logged by the settler; the finished state stands.
		return
	}
	if settled, ok := s.mgr.Get(g.ID); ok {
		s.persistGame(ctx, settled)
		s.broadcast("game_settled", settled)
	}
}

func (s *Service) broadcast(kind string, g game.Game) {
	if s.hub != nil {
		s.hub.Broadcast(kind, g)
	}
}

func (s *Service) persistGame(ctx context.Context, g game.Game) {
	if s.st == nil {
		return
	}
	if err := s.st.SaveGame(ctx, g); err != nil {
		log.Warn().Err(err).Str("game_id", g.ID).Msg("game not persisted")
	}
}

func (s *Service) persistPlayer(ctx context.Context, gameID string, p game.Player) {
	if s.st == nil {
		return
	}
	if err := s.st.SaveGamePlayer(ctx, gameID, p); err != nil {
		log.Warn().Err(err).Str("game_id", gameID).Str("player", p.PublicKey).
			Msg("player not persisted")
	}
}

func (s *Service) persistTransaction(ctx context.Context, t store.Transaction) {
	if s.st == nil {
		return
	}
	if err := s.st.SaveTransaction(context.WithoutCancel(ctx), t); err != nil {
		log.Warn().Err(err).Str("signature", t.Signature).Msg("transaction not persisted")
	}
}
