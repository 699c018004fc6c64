package game

type Status string

const (
	StatusWaiting  Status = "waiting"
	StatusFull     Status = "full"
	StatusPlaying  Status = "playing"
	StatusFinished Status = "finished"
)

type Player struct {
	PublicKey            string  `json:"publicKey"`
	BuyIn                float64 `json:"buyIn"`
	TransactionSignature string  `json:"transactionSignature,omitempty"`
	PaymentConfirmed     bool    `json:"paymentConfirmed"`
	JoinedAt             int64   `json:"joinedAt"`
}

type Game struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	CreatedBy   string   `json:"createdBy"`
	CreatedAt   int64    `json:"createdAt"`
	BuyInAmount float64  `json:"buyInAmount"`
	MaxPlayers  int      `json:"maxPlayers"`
	MinPlayers  int      `json:"minPlayers"`
	Players     []Player `json:"players"`

	// TotalPot accumulates net (post-fee) contributions while waiting;
	// HouseFeeCollected accumulates the withheld fees.
	TotalPot          float64 `json:"totalPot"`
	HouseFeeCollected float64 `json:"houseFeeCollected"`

	Status  Status   `json:"gameStatus"`
	Winners []string `json:"winner,omitempty"`
	Loser   string   `json:"loser,omitempty"`

	EscrowPublicKey string `json:"escrowPublicKey,omitempty"`
	EscrowSecret    []byte `json:"-"`

	FinishedAt            int64  `json:"finishedAt,omitempty"`
	DistributionSignature string `json:"distributionSignature,omitempty"`
}

// HasPlayer reports whether the wallet already holds a seat.
func (g *Game) HasPlayer(publicKey string) bool {
	for _, p := range g.Players {
		if p.PublicKey == publicKey {
			return true
		}
	}
	return false
}

func (g *Game) clone() Game {
	out := *g
	out.Players = append([]Player(nil), g.Players...)
	out.Winners = append([]string(nil), g.Winners...)
	out.EscrowSecret = append([]byte(nil), g.EscrowSecret...)
	return out
}

// Rejection explains why a transition did not happen. Callers that want the
// original silent-no-op behavior just drop it.
type Rejection string

const (
	RejectNotFound      Rejection = "not_found"
	RejectAlreadyJoined Rejection = "already_joined"
	RejectNotWaiting    Rejection = "not_waiting"
	RejectNotFull       Rejection = "not_full"
	RejectNotPlaying    Rejection = "not_playing"
	RejectNotMember     Rejection = "not_member"
)

func (r Rejection) Rejected() bool { return r != "" }
