package store

import (
	"testing"
	"time"

	"hot-potato/internal/chain"
	"hot-potato/internal/game"
)

func sampleGame(id string) game.Game {
	escrow := chain.NewEscrow()
	return game.Game{
		ID:              id,
		Name:            "Game #" + id,
		CreatedBy:       "creator-wallet",
		CreatedAt:       time.Now().UnixMilli(),
		BuyInAmount:     1.0,
		MaxPlayers:      3,
		MinPlayers:      3,
		Status:          game.StatusWaiting,
		EscrowPublicKey: escrow.PublicKey().String(),
		EscrowSecret:    escrow.Secret(),
	}
}

func TestSaveGameRoundTrip(t *testing.T) {
	st, ctx := openStore(t)

	g := sampleGame("g1")
	if err := st.SaveGame(ctx, g); err != nil {
		t.Fatalf("save game: %v", err)
	}
	p := game.Player{PublicKey: "alice", BuyIn: 1.0, PaymentConfirmed: true, JoinedAt: g.CreatedAt}
	if err := st.SaveGamePlayer(ctx, g.ID, p); err != nil {
		t.Fatalf("save player: %v", err)
	}

	games, err := st.LoadActiveGames(ctx)
	if err != nil {
		t.Fatalf("load active: %v", err)
	}
	if len(games) != 1 {
		t.Fatalf("active games = %d, want 1", len(games))
	}
	got := games[0]
	if got.ID != "g1" || got.Status != game.StatusWaiting {
		t.Fatalf("game = %+v", got)
	}
	if len(got.Players) != 1 || got.Players[0].PublicKey != "alice" {
		t.Fatalf("players = %+v, want alice", got.Players)
	}
	if got.EscrowPublicKey != g.EscrowPublicKey {
		t.Fatalf("escrow pub = %q, want %q", got.EscrowPublicKey, g.EscrowPublicKey)
	}
	restored, err := chain.EscrowFromSecret(got.EscrowSecret)
	if err != nil {
		t.Fatalf("escrow from secret: %v", err)
	}
	if restored.PublicKey().String() != g.EscrowPublicKey {
		t.Fatal("escrow secret round trip lost the keypair")
	}
}

func TestSaveGameUpsertsMutableColumns(t *testing.T) {
	st, ctx := openStore(t)

	g := sampleGame("g1")
	if err := st.SaveGame(ctx, g); err != nil {
		t.Fatalf("save game: %v", err)
	}
	g.Status = game.StatusFinished
	g.Winners = []string{"alice", "bob"}
	g.Loser = "carol"
	g.FinishedAt = time.Now().UnixMilli()
	g.DistributionSignature = "sig123"
	if err := st.SaveGame(ctx, g); err != nil {
		t.Fatalf("update game: %v", err)
	}

	games, err := st.LoadUserGames(ctx, "creator-wallet")
	if err != nil {
		t.Fatalf("load user games: %v", err)
	}
	if len(games) != 1 {
		t.Fatalf("user games = %d, want 1", len(games))
	}
	got := games[0]
	if got.Status != game.StatusFinished || got.Loser != "carol" {
		t.Fatalf("game = %+v", got)
	}
	if len(got.Winners) != 2 {
		t.Fatalf("winners = %v", got.Winners)
	}
	if got.DistributionSignature != "sig123" {
		t.Fatalf("distribution signature = %q", got.DistributionSignature)
	}
}

func TestUnconfirmedPlayersInvisible(t *testing.T) {
	st, ctx := openStore(t)

	g := sampleGame("g1")
	if err := st.SaveGame(ctx, g); err != nil {
		t.Fatalf("save game: %v", err)
	}
	p := game.Player{PublicKey: "alice", BuyIn: 1.0, PaymentConfirmed: false, JoinedAt: 1}
	if err := st.SaveGamePlayer(ctx, g.ID, p); err != nil {
		t.Fatalf("save player: %v", err)
	}

	games, _ := st.LoadActiveGames(ctx)
	if len(games[0].Players) != 0 {
		t.Fatal("unconfirmed player should not load")
	}

	// Confirming is an upsert on the same (game, player) key.
	p.PaymentConfirmed = true
	p.TransactionSignature = "deposit-sig"
	if err := st.SaveGamePlayer(ctx, g.ID, p); err != nil {
		t.Fatalf("confirm player: %v", err)
	}
	games, _ = st.LoadActiveGames(ctx)
	if len(games[0].Players) != 1 || games[0].Players[0].TransactionSignature != "deposit-sig" {
		t.Fatalf("players = %+v", games[0].Players)
	}
}

func TestLoadJoinableGamesExcludesJoined(t *testing.T) {
	st, ctx := openStore(t)

	g1, g2 := sampleGame("g1"), sampleGame("g2")
	if err := st.SaveGame(ctx, g1); err != nil {
		t.Fatalf("save g1: %v", err)
	}
	if err := st.SaveGame(ctx, g2); err != nil {
		t.Fatalf("save g2: %v", err)
	}
	p := game.Player{PublicKey: "alice", BuyIn: 1.0, PaymentConfirmed: true, JoinedAt: 1}
	if err := st.SaveGamePlayer(ctx, "g1", p); err != nil {
		t.Fatalf("save player: %v", err)
	}

	joinable, err := st.LoadJoinableGames(ctx, "alice")
	if err != nil {
		t.Fatalf("load joinable: %v", err)
	}
	if len(joinable) != 1 || joinable[0].ID != "g2" {
		t.Fatalf("joinable = %+v, want only g2", joinable)
	}

	all, err := st.LoadJoinableGames(ctx, "")
	if err != nil {
		t.Fatalf("load joinable all: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("joinable (anonymous) = %d, want 2", len(all))
	}
}

func TestDeleteGameRemovesPlayers(t *testing.T) {
	st, ctx := openStore(t)

	g := sampleGame("g1")
	if err := st.SaveGame(ctx, g); err != nil {
		t.Fatalf("save game: %v", err)
	}
	p := game.Player{PublicKey: "alice", BuyIn: 1.0, PaymentConfirmed: true, JoinedAt: 1}
	if err := st.SaveGamePlayer(ctx, g.ID, p); err != nil {
		t.Fatalf("save player: %v", err)
	}

	if err := st.DeleteGame(ctx, "g1"); err != nil {
		t.Fatalf("delete game: %v", err)
	}
	games, err := st.LoadActiveGames(ctx)
	if err != nil {
		t.Fatalf("load active: %v", err)
	}
	if len(games) != 0 {
		t.Fatalf("active games = %d, want 0", len(games))
	}
}

func TestTransactionsUpsertAndHistory(t *testing.T) {
	st, ctx := openStore(t)

	tx := Transaction{
		Signature:       "sig1",
		TransactionType: "buy_in",
		Amount:          1.0,
		FromAddress:     "alice",
		ToAddress:       "escrow",
		GameID:          "g1",
		Status:          "pending",
	}
	if err := st.SaveTransaction(ctx, tx); err != nil {
		t.Fatalf("save tx: %v", err)
	}
	tx.Status = "confirmed"
	tx.BlockTime = 12345
	if err := st.SaveTransaction(ctx, tx); err != nil {
		t.Fatalf("update tx: %v", err)
	}

	history, err := st.UserTransactions(ctx, "alice")
	if err != nil {
		t.Fatalf("user transactions: %v", err)
	}
	if len(history) != 1 {
		t.Fatalf("history = %d rows, want 1 (upsert)", len(history))
	}
	if history[0].Status != "confirmed" || history[0].BlockTime != 12345 {
		t.Fatalf("tx = %+v", history[0])
	}

	if other, _ := st.UserTransactions(ctx, "nobody"); len(other) != 0 {
		t.Fatal("unrelated wallet sees transactions")
	}
}
