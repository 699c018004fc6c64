package httptransport

import (
	"encoding/json"
	"net/http"

	"github.com/gagliardetto/solana-go"
	"github.com/go-chi/chi/v5"

	appgames "hot-potato/internal/app/games"
	"hot-potato/internal/chain"
	"hot-potato/internal/game"
	"hot-potato/internal/store"
)

type GameHandlers struct {
	svc    *appgames.Service
	client chain.Client
}

func NewGameHandlers(svc *appgames.Service, client chain.Client) *GameHandlers {
	return &GameHandlers{svc: svc, client: client}
}

// List always answers 200: the lobby must render even when a filtered view
// cannot be served, so failures come back as an empty list plus an error
// field.
func (h *GameHandlers) List() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		publicKey := r.URL.Query().Get("publicKey")
		var games []game.Game
		switch r.URL.Query().Get("filter") {
		case "joinable":
			games = h.svc.Joinable(publicKey)
		case "mine":
			games = h.svc.ForPlayer(publicKey)
		case "history":
			var err error
			games, err = h.svc.History(r.Context(), publicKey)
			if err != nil {
				writeJSON(w, http.StatusOK, map[string]any{
					"games": []game.Game{},
					"error": "history_unavailable",
				})
				return
			}
		default:
			games = h.svc.Active()
		}
		writeJSON(w, http.StatusOK, map[string]any{"games": games})
	}
}

func (h *GameHandlers) Get() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		g, ok := h.svc.Get(chi.URLParam(r, "id"))
		if !ok {
			WriteHTTPError(w, http.StatusNotFound, "game_not_found")
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"game": g})
	}
}

// PrepareDeposit builds the unsigned buy-in transfer for the player's wallet
// to sign: player -> escrow for the game's buy-in, player pays the fee.
func (h *GameHandlers) PrepareDeposit() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		g, ok := h.svc.Get(chi.URLParam(r, "id"))
		if !ok {
			WriteHTTPError(w, http.StatusNotFound, "game_not_found")
			return
		}
		player, err := solana.PublicKeyFromBase58(r.URL.Query().Get("publicKey"))
		if err != nil {
			WriteHTTPError(w, http.StatusBadRequest, "invalid_wallet")
			return
		}
		escrow, err := solana.PublicKeyFromBase58(g.EscrowPublicKey)
		if err != nil {
			WriteHTTPError(w, http.StatusInternalServerError, "internal_error")
			return
		}
		blockhash, err := h.client.LatestBlockhash(r.Context())
		if err != nil {
			WriteHTTPError(w, http.StatusBadGateway, "rpc_unavailable")
			return
		}
		lamports := chain.SolToLamports(g.BuyInAmount)
		tx, err := chain.BuildDeposit(player, escrow, lamports, blockhash)
		if err != nil {
			WriteHTTPError(w, http.StatusInternalServerError, "internal_error")
			return
		}
		b64, err := tx.ToBase64()
		if err != nil {
			WriteHTTPError(w, http.StatusInternalServerError, "internal_error")
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"transaction": b64,
			"lamports":    lamports,
			"escrow":      g.EscrowPublicKey,
		})
	}
}

// gameAction is the action-discriminated POST /api/games body.
type gameAction struct {
	Action string `json:"action"`

	// create_game
	Name        string  `json:"name,omitempty"`
	BuyInAmount float64 `json:"buyInAmount,omitempty"`
	MaxPlayers  int     `json:"maxPlayers,omitempty"`

	// join_game / leave_game
	GameID               string  `json:"gameId,omitempty"`
	PublicKey            string  `json:"publicKey,omitempty"`
	BuyIn                float64 `json:"buyIn,omitempty"`
	TransactionSignature string  `json:"transactionSignature,omitempty"`

	// save_transaction
	Transaction *store.Transaction `json:"transaction,omitempty"`
}

func (h *GameHandlers) Mutate() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req gameAction
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			WriteHTTPError(w, http.StatusBadRequest, "invalid_json")
			return
		}
		switch req.Action {
		case "create_game":
			h.create(w, r, req)
		case "join_game":
			h.join(w, r, req)
		case "leave_game":
			h.leave(w, r, req)
		case "save_transaction":
			h.saveTransaction(w, r, req)
		default:
			WriteHTTPError(w, http.StatusBadRequest, "unknown_action")
		}
	}
}

func (h *GameHandlers) create(w http.ResponseWriter, r *http.Request, req gameAction) {
	if req.PublicKey == "" || req.BuyInAmount <= 0 || req.MaxPlayers < 3 {
		WriteHTTPError(w, http.StatusBadRequest, "invalid_request")
		return
	}
	g := h.svc.Create(r.Context(), appgames.CreateParams{
		Name:        req.Name,
		CreatedBy:   req.PublicKey,
		BuyInAmount: req.BuyInAmount,
		MaxPlayers:  req.MaxPlayers,
	})
	writeJSON(w, http.StatusCreated, map[string]any{"success": true, "game": g})
}

func (h *GameHandlers) join(w http.ResponseWriter, r *http.Request, req gameAction) {
	if req.GameID == "" || req.PublicKey == "" {
		WriteHTTPError(w, http.StatusBadRequest, "invalid_request")
		return
	}
	g, rej := h.svc.Join(r.Context(), req.GameID, appgames.JoinParams{
		PublicKey:            req.PublicKey,
		BuyIn:                req.BuyIn,
		TransactionSignature: req.TransactionSignature,
	})
	if rej.Rejected() {
		// A stale lobby click, not a client bug; still a 200.
		writeJSON(w, http.StatusOK, map[string]any{"success": false, "error": string(rej), "game": g})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "game": g})
}

func (h *GameHandlers) leave(w http.ResponseWriter, r *http.Request, req gameAction) {
	if req.GameID == "" || req.PublicKey == "" {
		WriteHTTPError(w, http.StatusBadRequest, "invalid_request")
		return
	}
	g, deleted, rej, err := h.svc.Leave(r.Context(), req.GameID, req.PublicKey)
	if rej.Rejected() {
		writeJSON(w, http.StatusOK, map[string]any{"success": false, "error": string(rej)})
		return
	}
	if err != nil {
		WriteHTTPError(w, http.StatusInternalServerError, "refund_failed")
		return
	}
	resp := map[string]any{"success": true, "deleted": deleted}
	if !deleted {
		resp["game"] = g
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *GameHandlers) saveTransaction(w http.ResponseWriter, r *http.Request, req gameAction) {
	if req.Transaction == nil || req.Transaction.Signature == "" {
		WriteHTTPError(w, http.StatusBadRequest, "invalid_request")
		return
	}
	h.svc.RecordTransaction(r.Context(), *req.Transaction)
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

func (h *GameHandlers) Transactions() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		wallet := r.URL.Query().Get("wallet")
		if wallet == "" {
			WriteHTTPError(w, http.StatusBadRequest, "wallet_required")
			return
		}
		txs, err := h.svc.Transactions(r.Context(), wallet)
		if err != nil {
			WriteHTTPError(w, http.StatusInternalServerError, "internal_error")
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"transactions": txs})
	}
}

func (h *GameHandlers) Balance() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		wallet := r.URL.Query().Get("wallet")
		pk, err := solana.PublicKeyFromBase58(wallet)
		if err != nil {
			WriteHTTPError(w, http.StatusBadRequest, "invalid_wallet")
			return
		}
		lamports, err := h.client.Balance(r.Context(), pk)
		if err != nil {
			WriteHTTPError(w, http.StatusBadGateway, "rpc_unavailable")
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"wallet":   wallet,
			"lamports": lamports,
			"sol":      chain.LamportsToSol(lamports),
		})
	}
}
