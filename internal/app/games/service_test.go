package games

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/coder/quartz"
	"github.com/stretchr/testify/require"

	"hot-potato/internal/game"
	"hot-potato/internal/store"
)

type memStore struct {
	mu      sync.Mutex
	games   map[string]game.Game
	deleted []string
	txs     []store.Transaction
}

func newMemStore() *memStore {
	return &memStore{games: map[string]game.Game{}}
}

func (m *memStore) SaveGame(_ context.Context, g game.Game) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.games[g.ID] = g
	return nil
}

func (m *memStore) DeleteGame(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.games, id)
	m.deleted = append(m.deleted, id)
	return nil
}

func (m *memStore) SaveGamePlayer(context.Context, string, game.Player) error { return nil }
func (m *memStore) RemovePlayer(context.Context, string, string) error        { return nil }

func (m *memStore) SaveTransaction(_ context.Context, t store.Transaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.txs = append(m.txs, t)
	return nil
}

func (m *memStore) LoadActiveGames(context.Context) ([]game.Game, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []game.Game{}
	for _, g := range m.games {
		if g.Status != game.StatusFinished {
			out = append(out, g)
		}
	}
	return out, nil
}

func (m *memStore) LoadUserGames(context.Context, string) ([]game.Game, error) {
	return nil, nil
}

func (m *memStore) UserTransactions(context.Context, string) ([]store.Transaction, error) {
	return nil, nil
}

func (m *memStore) saved(id string) (game.Game, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	g, ok := m.games[id]
	return g, ok
}

type fakeSettler struct {
	mu       sync.Mutex
	settled  []string
	refunded []game.Player
}

func (f *fakeSettler) Settle(_ context.Context, g game.Game) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.settled = append(f.settled, g.ID)
	return "settle-sig", nil
}

func (f *fakeSettler) Refund(_ context.Context, _ game.Game, p game.Player) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.refunded = append(f.refunded, p)
	return "refund-sig", nil
}

type eventLog struct {
	mu    sync.Mutex
	kinds []string
}

func (e *eventLog) Broadcast(kind string, _ game.Game) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.kinds = append(e.kinds, kind)
}

func (e *eventLog) seen() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]string(nil), e.kinds...)
}

func newTestService(t *testing.T) (*Service, *memStore, *fakeSettler, *eventLog, *quartz.Mock) {
	t.Helper()
	mgr := game.NewManager(0.03)
	mock := quartz.NewMock(t)
	sched := game.NewScheduler(mgr, mock, 2*time.Second, 5*time.Second)
	st := newMemStore()
	settler := &fakeSettler{}
	events := &eventLog{}
	return NewService(mgr, sched, settler, st, events), st, settler, events, mock
}

func TestCreatePersistsAndBroadcasts(t *testing.T) {
	svc, st, _, events, _ := newTestService(t)

	g := svc.Create(context.Background(), CreateParams{
		CreatedBy:   "creator",
		BuyInAmount: 1.5,
		MaxPlayers:  5,
	})
	require.NotEmpty(t, g.ID)
	require.Equal(t, game.StatusWaiting, g.Status)
	require.Equal(t, 3, g.MinPlayers)
	require.NotEmpty(t, g.EscrowPublicKey)
	require.Equal(t, "Game #"+g.ID, g.Name)

	saved, ok := st.saved(g.ID)
	require.True(t, ok)
	require.Equal(t, g.EscrowPublicKey, saved.EscrowPublicKey)
	require.Contains(t, events.seen(), "game_created")
}

func TestMinPlayersScalesWithMax(t *testing.T) {
	svc, _, _, _, _ := newTestService(t)

	g := svc.Create(context.Background(), CreateParams{BuyInAmount: 1, MaxPlayers: 10})
	require.Equal(t, 6, g.MinPlayers)

	g = svc.Create(context.Background(), CreateParams{BuyInAmount: 1, MaxPlayers: 3})
	require.Equal(t, 3, g.MinPlayers)
}

func TestFullGameRunsToSettlement(t *testing.T) {
	svc, st, settler, events, mock := newTestService(t)
	ctx := context.Background()

	g := svc.Create(ctx, CreateParams{BuyInAmount: 1, MaxPlayers: 3})
	for _, pk := range []string{"p1", "p2", "p3"} {
		got, rej := svc.Join(ctx, g.ID, JoinParams{PublicKey: pk, BuyIn: 1, TransactionSignature: "sig-" + pk})
		require.False(t, rej.Rejected())
		require.Len(t, got.Players, map[string]int{"p1": 1, "p2": 2, "p3": 3}[pk])
	}
	require.Contains(t, events.seen(), "game_full")

	mock.Advance(2 * time.Second).MustWait(ctx)
	require.Contains(t, events.seen(), "game_started")

	mock.Advance(5 * time.Second).MustWait(ctx)
	require.Contains(t, events.seen(), "game_finished")
	require.Equal(t, []string{g.ID}, settler.settled)
	require.Contains(t, events.seen(), "game_settled")

	saved, ok := st.saved(g.ID)
	require.True(t, ok)
	require.Equal(t, game.StatusFinished, saved.Status)
	require.NotEmpty(t, saved.Loser)
	require.Len(t, saved.Winners, 2)
}

func TestJoinRecordsBuyInTransaction(t *testing.T) {
	svc, st, _, _, _ := newTestService(t)
	ctx := context.Background()

	g := svc.Create(ctx, CreateParams{BuyInAmount: 2, MaxPlayers: 4})
	_, rej := svc.Join(ctx, g.ID, JoinParams{PublicKey: "p1", BuyIn: 2, TransactionSignature: "deposit-sig"})
	require.False(t, rej.Rejected())

	require.Len(t, st.txs, 1)
	require.Equal(t, "buy_in", st.txs[0].TransactionType)
	require.Equal(t, "deposit-sig", st.txs[0].Signature)
	require.Equal(t, g.EscrowPublicKey, st.txs[0].ToAddress)
}

func TestJoinUnknownGameRejected(t *testing.T) {
	svc, _, _, _, _ := newTestService(t)

	_, rej := svc.Join(context.Background(), "missing", JoinParams{PublicKey: "p1", BuyIn: 1})
	require.Equal(t, game.RejectNotFound, rej)
}

func TestLeaveRefundsConfirmedPlayer(t *testing.T) {
	svc, _, settler, events, _ := newTestService(t)
	ctx := context.Background()

	g := svc.Create(ctx, CreateParams{BuyInAmount: 1, MaxPlayers: 4})
	_, rej := svc.Join(ctx, g.ID, JoinParams{PublicKey: "p1", BuyIn: 1, TransactionSignature: "s1"})
	require.False(t, rej.Rejected())
	_, rej = svc.Join(ctx, g.ID, JoinParams{PublicKey: "p2", BuyIn: 1, TransactionSignature: "s2"})
	require.False(t, rej.Rejected())

	got, deleted, rej, err := svc.Leave(ctx, g.ID, "p1")
	require.NoError(t, err)
	require.False(t, rej.Rejected())
	require.False(t, deleted)
	require.Len(t, got.Players, 1)

	require.Len(t, settler.refunded, 1)
	require.Equal(t, "p1", settler.refunded[0].PublicKey)
	require.Equal(t, 1.0, settler.refunded[0].BuyIn)
	require.Contains(t, events.seen(), "player_left")
}

func TestLastLeaverDeletesGame(t *testing.T) {
	svc, st, _, events, _ := newTestService(t)
	ctx := context.Background()

	g := svc.Create(ctx, CreateParams{BuyInAmount: 1, MaxPlayers: 4})
	_, rej := svc.Join(ctx, g.ID, JoinParams{PublicKey: "p1", BuyIn: 1, TransactionSignature: "s1"})
	require.False(t, rej.Rejected())

	_, deleted, rej, err := svc.Leave(ctx, g.ID, "p1")
	require.NoError(t, err)
	require.False(t, rej.Rejected())
	require.True(t, deleted)

	require.Empty(t, svc.Active())
	require.Equal(t, []string{g.ID}, st.deleted)
	require.Contains(t, events.seen(), "game_deleted")
}

func TestRecordTransactionConfirmsPayment(t *testing.T) {
	svc, st, _, _, _ := newTestService(t)
	ctx := context.Background()

	g := svc.Create(ctx, CreateParams{BuyInAmount: 1, MaxPlayers: 4})
	_, rej := svc.Join(ctx, g.ID, JoinParams{PublicKey: "p1", BuyIn: 1})
	require.False(t, rej.Rejected())

	svc.RecordTransaction(ctx, store.Transaction{
		Signature:       "late-sig",
		TransactionType: "buy_in",
		Amount:          1,
		FromAddress:     "p1",
		GameID:          g.ID,
		Status:          "confirmed",
	})

	games := svc.ForPlayer("p1")
	require.Len(t, games, 1)
	require.True(t, games[0].Players[0].PaymentConfirmed)
	require.Equal(t, "late-sig", games[0].Players[0].TransactionSignature)
	require.Len(t, st.txs, 1)
}

func TestHydrateResumesTimers(t *testing.T) {
	mgr := game.NewManager(0.03)
	mock := quartz.NewMock(t)
	sched := game.NewScheduler(mgr, mock, 2*time.Second, 5*time.Second)
	st := newMemStore()
	settler := &fakeSettler{}
	events := &eventLog{}
	ctx := context.Background()

	st.games["g1"] = game.Game{
		ID:          "g1",
		BuyInAmount: 1,
		MaxPlayers:  3,
		MinPlayers:  3,
		Status:      game.StatusFull,
		Players: []game.Player{
			{PublicKey: "p1", BuyIn: 1, PaymentConfirmed: true},
			{PublicKey: "p2", BuyIn: 1, PaymentConfirmed: true},
			{PublicKey: "p3", BuyIn: 1, PaymentConfirmed: true},
		},
	}

	svc := NewService(mgr, sched, settler, st, events)
	require.NoError(t, svc.Hydrate(ctx))
	require.Len(t, svc.Active(), 1)

	mock.Advance(2 * time.Second).MustWait(ctx)
	mock.Advance(5 * time.Second).MustWait(ctx)
	require.Equal(t, []string{"g1"}, settler.settled)
}

func TestNilStoreStillPlays(t *testing.T) {
	mgr := game.NewManager(0.03)
	mock := quartz.NewMock(t)
	sched := game.NewScheduler(mgr, mock, 2*time.Second, 5*time.Second)
	svc := NewService(mgr, sched, &fakeSettler{}, nil, nil)
	ctx := context.Background()

	g := svc.Create(ctx, CreateParams{BuyInAmount: 1, MaxPlayers: 3})
	_, rej := svc.Join(ctx, g.ID, JoinParams{PublicKey: "p1", BuyIn: 1, TransactionSignature: "s1"})
	require.False(t, rej.Rejected())
	require.NoError(t, svc.Hydrate(ctx))

	history, err := svc.History(ctx, "p1")
	require.NoError(t, err)
	require.Len(t, history, 1)

	txs, err := svc.Transactions(ctx, "p1")
	require.NoError(t, err)
	require.Empty(t, txs)
}
