package httptransport

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	appusers "hot-potato/internal/app/users"
	"hot-potato/internal/store"
)

type UserHandlers struct {
	svc *appusers.Service
}

func NewUserHandlers(svc *appusers.Service) *UserHandlers {
	return &UserHandlers{svc: svc}
}

// Lookup resolves a profile by wallet or username query.
func (h *UserHandlers) Lookup() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var (
			u   *store.UserProfile
			err error
		)
		switch {
		case r.URL.Query().Get("wallet") != "":
			u, err = h.svc.Get(r.Context(), r.URL.Query().Get("wallet"))
		case r.URL.Query().Get("username") != "":
			u, err = h.svc.GetByUsername(r.Context(), r.URL.Query().Get("username"))
		default:
			WriteHTTPError(w, http.StatusBadRequest, "wallet_or_username_required")
			return
		}
		h.writeUser(w, u, err)
	}
}

func (h *UserHandlers) Get() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		u, err := h.svc.Get(r.Context(), chi.URLParam(r, "wallet"))
		h.writeUser(w, u, err)
	}
}

type createUserRequest struct {
	WalletAddress     string `json:"walletAddress"`
	Username          string `json:"username"`
	ProfilePictureURL string `json:"profilePictureUrl,omitempty"`
}

func (h *UserHandlers) Create() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req createUserRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			WriteHTTPError(w, http.StatusBadRequest, "invalid_json")
			return
		}
		if req.WalletAddress == "" {
			WriteHTTPError(w, http.StatusBadRequest, "wallet_required")
			return
		}
		u, err := h.svc.Create(r.Context(), req.WalletAddress, req.Username, req.ProfilePictureURL)
		if err != nil {
			switch {
			case errors.Is(err, appusers.ErrInvalidUsername):
				WriteHTTPError(w, http.StatusBadRequest, "invalid_username")
			case errors.Is(err, appusers.ErrWalletExists):
				WriteHTTPError(w, http.StatusConflict, "wallet_exists")
			case errors.Is(err, appusers.ErrUsernameTaken):
				WriteHTTPError(w, http.StatusConflict, "username_taken")
			case errors.Is(err, appusers.ErrUnavailable):
				WriteHTTPError(w, http.StatusServiceUnavailable, "profiles_unavailable")
			default:
				WriteHTTPError(w, http.StatusInternalServerError, "internal_error")
			}
			return
		}
		writeJSON(w, http.StatusCreated, map[string]any{"user": u})
	}
}

type updateUserRequest struct {
	Username          *string `json:"username,omitempty"`
	ProfilePictureURL *string `json:"profilePictureUrl,omitempty"`
}

func (h *UserHandlers) Update() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req updateUserRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			WriteHTTPError(w, http.StatusBadRequest, "invalid_json")
			return
		}
		u, err := h.svc.Update(r.Context(), chi.URLParam(r, "wallet"), req.Username, req.ProfilePictureURL)
		if err != nil {
			switch {
			case errors.Is(err, appusers.ErrInvalidUsername):
				WriteHTTPError(w, http.StatusBadRequest, "invalid_username")
			case errors.Is(err, appusers.ErrUsernameTaken):
				WriteHTTPError(w, http.StatusConflict, "username_taken")
			case errors.Is(err, appusers.ErrNotFound):
				WriteHTTPError(w, http.StatusNotFound, "user_not_found")
			case errors.Is(err, appusers.ErrUnavailable):
				WriteHTTPError(w, http.StatusServiceUnavailable, "profiles_unavailable")
			default:
				WriteHTTPError(w, http.StatusInternalServerError, "internal_error")
			}
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"user": u})
	}
}

func (h *UserHandlers) CheckUsername() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		username := r.URL.Query().Get("username")
		exclude := r.URL.Query().Get("exclude")
		free, err := h.svc.CheckUsername(r.Context(), username, exclude)
		if err != nil {
			if errors.Is(err, appusers.ErrInvalidUsername) {
				writeJSON(w, http.StatusOK, map[string]any{
					"available": false,
					"error":     "invalid_username",
				})
				return
			}
			WriteHTTPError(w, http.StatusInternalServerError, "internal_error")
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"available": free})
	}
}

func (h *UserHandlers) writeUser(w http.ResponseWriter, u *store.UserProfile, err error) {
	if err != nil {
		if errors.Is(err, appusers.ErrNotFound) || errors.Is(err, store.ErrNotFound) {
			WriteHTTPError(w, http.StatusNotFound, "user_not_found")
			return
		}
		WriteHTTPError(w, http.StatusInternalServerError, "internal_error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"user": u})
}
