package settlement

import (
	"context"
	"fmt"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/rs/zerolog/log"

	"hot-potato/internal/chain"
	"hot-potato/internal/game"
	"hot-potato/internal/store"
)

// Persister is the slice of the store settlement writes through. Nil means
// the server is running without persistence.
type Persister interface {
	SaveGame(ctx context.Context, g game.Game) error
	SaveTransaction(ctx context.Context, t store.Transaction) error
}

// Settler moves escrowed funds out: to winners and the house at game end,
// or back to a leaving player. A settlement failure is surfaced but never
// rewinds the game state; the finished/winner/loser fields stay set even
// when the funds did not move.
type Settler struct {
	client  chain.Client
	mgr     *game.Manager
	persist Persister
	house   solana.PublicKey
}

func New(client chain.Client, mgr *game.Manager, persist Persister, house solana.PublicKey) *Settler {
	return &Settler{client: client, mgr: mgr, persist: persist, house: house}
}

// Settle distributes a finished game's escrow: one transfer per winner plus
// the house fee, signed by the escrow itself. Returns the distribution
// signature once the cluster confirms it.
func (s *Settler) Settle(ctx context.Context, g game.Game) (string, error) {
	if g.Status != game.StatusFinished {
		return "", fmt.Errorf("settle %s: game is %s, not finished", g.ID, g.Status)
	}
	if len(g.Winners) == 0 {
		return "", fmt.Errorf("settle %s: no winners", g.ID)
	}
	escrow, err := chain.EscrowFromSecret(g.EscrowSecret)
	if err != nil {
		return "", fmt.Errorf("settle %s: %w", g.ID, err)
	}
	winners := make([]solana.PublicKey, 0, len(g.Winners))
	for _, w := range g.Winners {
		pk, err := solana.PublicKeyFromBase58(w)
		if err != nil {
			return "", fmt.Errorf("settle %s: winner %q: %w", g.ID, w, err)
		}
		winners = append(winners, pk)
	}

	payouts := game.CalculatePayouts(g.BuyInAmount, len(g.Players), s.mgr.FeePct())

	blockhash, err := s.client.LatestBlockhash(ctx)
	if err != nil {
		return "", s.fail(ctx, g, "", err)
	}
	tx, err := chain.BuildDistribution(escrow, winners,
		chain.SolToLamports(payouts.AmountPerWinner),
		s.house, chain.SolToLamports(payouts.HouseFeeTotal), blockhash)
	if err != nil {
		return "", s.fail(ctx, g, "", err)
	}
	sig, err := s.client.Send(ctx, tx)
	if err != nil {
		return "", s.fail(ctx, g, "", err)
	}
	if err := s.client.Confirm(ctx, sig); err != nil {
		return "", s.fail(ctx, g, sig.String(), err)
	}

	s.mgr.SetDistributionSignature(g.ID, sig.String())
	g.DistributionSignature = sig.String()
	log.Info().Str("game_id", g.ID).Str("signature", sig.String()).
		Float64("per_winner", payouts.AmountPerWinner).
		Float64("house_fee", payouts.HouseFeeTotal).
		Msg("game settled")

	s.record(ctx, store.Transaction{
		Signature:       sig.String(),
		TransactionType: "distribution",
		Amount:          payouts.TotalPot,
		FromAddress:     g.EscrowPublicKey,
		ToAddress:       s.house.String(),
		GameID:          g.ID,
		Status:          "confirmed",
		BlockTime:       time.Now().Unix(),
	})
	if s.persist != nil {
		if err := s.persist.SaveGame(ctx, g); err != nil {
			log.Warn().Err(err).Str("game_id", g.ID).Msg("settled game not persisted")
		}
	}
	return sig.String(), nil
}

// Refund returns a leaving player's gross buy-in from the escrow.
func (s *Settler) Refund(ctx context.Context, g game.Game, p game.Player) (string, error) {
	escrow, err := chain.EscrowFromSecret(g.EscrowSecret)
	if err != nil {
		return "", fmt.Errorf("refund %s: %w", g.ID, err)
	}
	to, err := solana.PublicKeyFromBase58(p.PublicKey)
	if err != nil {
		return "", fmt.Errorf("refund %s: player %q: %w", g.ID, p.PublicKey, err)
	}
	blockhash, err := s.client.LatestBlockhash(ctx)
	if err != nil {
		return "", err
	}
	tx, err := chain.BuildRefund(escrow, to, chain.SolToLamports(p.BuyIn), blockhash)
	if err != nil {
		return "", err
	}
	sig, err := s.client.Send(ctx, tx)
	if err != nil {
		return "", err
	}
	if err := s.client.Confirm(ctx, sig); err != nil {
		return "", err
	}

	log.Info().Str("game_id", g.ID).Str("player", p.PublicKey).
		Str("signature", sig.String()).Msg("buy-in refunded")
	s.record(ctx, store.Transaction{
		Signature:       sig.String(),
		TransactionType: "refund",
		Amount:          p.BuyIn,
		FromAddress:     g.EscrowPublicKey,
		ToAddress:       p.PublicKey,
		GameID:          g.ID,
		Status:          "confirmed",
		BlockTime:       time.Now().Unix(),
	})
	return sig.String(), nil
}

// fail logs the broken settlement and records what it can. The game keeps
// its finished state; there is no retry or compensation.
func (s *Settler) fail(ctx context.Context, g game.Game, sig string, err error) error {
	log.Error().Err(err).Str("game_id", g.ID).Msg("settlement failed; game state left as finished")
	if sig != "" {
		s.record(ctx, store.Transaction{
			Signature:       sig,
			TransactionType: "distribution",
			Amount:          g.TotalPot,
			FromAddress:     g.EscrowPublicKey,
			GameID:          g.ID,
			Status:          "failed",
		})
	}
	return fmt.Errorf("settle %s: %w", g.ID, err)
}

func (s *Settler) record(ctx context.Context, t store.Transaction) {
	if s.persist == nil {
		return
	}
	if err := s.persist.SaveTransaction(ctx, t); err != nil {
		log.Warn().Err(err).Str("signature", t.Signature).Msg("transaction not persisted")
	}
}
