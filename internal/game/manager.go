package game

import (
	"sort"
	"sync"
	"time"
)

// Manager owns the authoritative in-memory game set. All transitions go
// through it; persistence happens after the fact and its failure never
// rolls the in-memory state back.
type Manager struct {
	mu     sync.Mutex
	feePct float64
	games  map[string]*Game
}

func NewManager(feePct float64) *Manager {
	return &Manager{
		feePct: feePct,
		games:  map[string]*Game{},
	}
}

func (m *Manager) FeePct() float64 { return m.feePct }

// Add registers a game, typically fresh from Create or hydrated from the
// store at boot. The manager keeps its own copy.
func (m *Manager) Add(g Game) Game {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := g.clone()
	m.games[cp.ID] = &cp
	return cp.clone()
}

func (m *Manager) Get(id string) (Game, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	g, ok := m.games[id]
	if !ok {
		return Game{}, false
	}
	return g.clone(), true
}

// Join seats a player in a waiting game, moving the net contribution into
// the pot and the fee into the house tally. The game flips to full exactly
// when the last seat fills.
func (m *Manager) Join(id string, p Player) (Game, Rejection) {
	m.mu.Lock()
	defer m.mu.Unlock()
	g, ok := m.games[id]
	if !ok {
		return Game{}, RejectNotFound
	}
	if g.Status != StatusWaiting {
		return g.clone(), RejectNotWaiting
	}
	if g.HasPlayer(p.PublicKey) {
		return g.clone(), RejectAlreadyJoined
	}

	fee := p.BuyIn * m.feePct
	g.Players = append(g.Players, p)
	g.TotalPot += p.BuyIn - fee
	g.HouseFeeCollected += fee
	if len(g.Players) >= g.MaxPlayers {
		g.Status = StatusFull
	}
	return g.clone(), ""
}

// Leave removes a player from a waiting game and reverses their pot and fee
// contribution. When the last player leaves the game is deleted outright.
func (m *Manager) Leave(id, publicKey string) (Player, Game, bool, Rejection) {
	m.mu.Lock()
	defer m.mu.Unlock()
	g, ok := m.games[id]
	if !ok {
		return Player{}, Game{}, false, RejectNotFound
	}
	if g.Status != StatusWaiting {
		return Player{}, g.clone(), false, RejectNotWaiting
	}
	idx := -1
	for i, p := range g.Players {
		if p.PublicKey == publicKey {
			idx = i
			break
		}
	}
	if idx < 0 {
		return Player{}, g.clone(), false, RejectNotMember
	}

	removed := g.Players[idx]
	g.Players = append(g.Players[:idx], g.Players[idx+1:]...)
	if len(g.Players) == 0 {
		delete(m.games, id)
		return removed, Game{}, true, ""
	}
	fee := removed.BuyIn * m.feePct
	g.TotalPot -= removed.BuyIn - fee
	g.HouseFeeCollected -= fee
	return removed, g.clone(), false, ""
}

// Start moves a full game to playing.
func (m *Manager) Start(id string) (Game, Rejection) {
	m.mu.Lock()
	defer m.mu.Unlock()
	g, ok := m.games[id]
	if !ok {
		return Game{}, RejectNotFound
	}
	if g.Status != StatusFull {
		return g.clone(), RejectNotFull
	}
	g.Status = StatusPlaying
	return g.clone(), ""
}

// Finish marks the loser, makes everyone else a winner and moves the game
// to finished. Settlement is the caller's side effect.
func (m *Manager) Finish(id, loser string) (Game, Rejection) {
	m.mu.Lock()
	defer m.mu.Unlock()
	g, ok := m.games[id]
	if !ok {
		return Game{}, RejectNotFound
	}
	if g.Status != StatusPlaying {
		return g.clone(), RejectNotPlaying
	}
	if !g.HasPlayer(loser) {
		return g.clone(), RejectNotMember
	}

	winners := make([]string, 0, len(g.Players)-1)
	for _, p := range g.Players {
		if p.PublicKey != loser {
			winners = append(winners, p.PublicKey)
		}
	}
	g.Status = StatusFinished
	g.Loser = loser
	g.Winners = winners
	g.FinishedAt = time.Now().UnixMilli()
	return g.clone(), ""
}

// ConfirmPayment records the deposit signature for a seated player.
func (m *Manager) ConfirmPayment(id, publicKey, signature string) (Game, Rejection) {
	m.mu.Lock()
	defer m.mu.Unlock()
	g, ok := m.games[id]
	if !ok {
		return Game{}, RejectNotFound
	}
	for i := range g.Players {
		if g.Players[i].PublicKey == publicKey {
			g.Players[i].TransactionSignature = signature
			g.Players[i].PaymentConfirmed = true
			return g.clone(), ""
		}
	}
	return g.clone(), RejectNotMember
}

// SetDistributionSignature records the settlement transaction on a finished
// game.
func (m *Manager) SetDistributionSignature(id, signature string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if g, ok := m.games[id]; ok {
		g.DistributionSignature = signature
	}
}

// Active returns every game that has not finished, newest first.
func (m *Manager) Active() []Game {
	return m.filter(func(g *Game) bool { return g.Status != StatusFinished })
}

// Joinable returns waiting games the given wallet has not joined. An empty
// wallet returns all waiting games.
func (m *Manager) Joinable(publicKey string) []Game {
	return m.filter(func(g *Game) bool {
		if g.Status != StatusWaiting {
			return false
		}
		return publicKey == "" || !g.HasPlayer(publicKey)
	})
}

// ForPlayer returns games the wallet created or sits in.
func (m *Manager) ForPlayer(publicKey string) []Game {
	return m.filter(func(g *Game) bool {
		return g.CreatedBy == publicKey || g.HasPlayer(publicKey)
	})
}

func (m *Manager) filter(keep func(*Game) bool) []Game {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []Game{}
	for _, g := range m.games {
		if keep(g) {
			out = append(out, g.clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt > out[j].CreatedAt })
	return out
}
