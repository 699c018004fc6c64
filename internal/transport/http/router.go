package httptransport

import (
	"fmt"
	"net/http"
	"sort"
	"strings"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"

	appgames "hot-potato/internal/app/games"
	appusers "hot-potato/internal/app/users"
	"hot-potato/internal/chain"
	"hot-potato/internal/store"
	"hot-potato/internal/ws"
)

func NewRouter(gamesSvc *appgames.Service, usersSvc *appusers.Service, client chain.Client, st *store.Store, hub *ws.Hub) *chi.Mux {
	gameHandlers := NewGameHandlers(gamesSvc, client)
	userHandlers := NewUserHandlers(usersSvc)

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.Recoverer)
	r.Use(chimw.RealIP)

	r.With(APILogMiddleware()).Get("/healthz", healthHandler(st))

	r.Route("/api", func(r chi.Router) {
		r.Use(APILogMiddleware())
		r.Get("/games", gameHandlers.List())
		r.Post("/games", gameHandlers.Mutate())
		r.Get("/games/{id}", gameHandlers.Get())
		r.Get("/games/{id}/deposit", gameHandlers.PrepareDeposit())
		r.Get("/transactions", gameHandlers.Transactions())
		r.Get("/balance", gameHandlers.Balance())

		r.Get("/users", userHandlers.Lookup())
		r.Post("/users", userHandlers.Create())
		r.Get("/users/check-username", userHandlers.CheckUsername())
		r.Get("/users/{wallet}", userHandlers.Get())
		r.Put("/users/{wallet}", userHandlers.Update())
	})

	r.Get("/ws", hub.HandleWS)

	return r
}

func healthHandler(st *store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp := map[string]any{"status": "ok", "database": false}
		if st != nil {
			if err := st.Ping(r.Context()); err == nil {
				resp["database"] = true
			}
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func LogRoutes(r chi.Router) {
	type routeDef struct {
		Method string
		Path   string
	}
	routes := make([]routeDef, 0, 16)
	err := chi.Walk(r, func(method string, route string, _ http.Handler, _ ...func(http.Handler) http.Handler) error {
		routes = append(routes, routeDef{Method: method, Path: route})
		return nil
	})
	if err != nil {
		log.Error().Err(err).Msg("walk routes failed")
		return
	}
	sort.Slice(routes, func(i, j int) bool {
		if routes[i].Path == routes[j].Path {
			return routes[i].Method < routes[j].Method
		}
		return routes[i].Path < routes[j].Path
	})
	var b strings.Builder
	b.WriteString(fmt.Sprintf("Registered routes (%d):\n", len(routes)))
	for _, rt := range routes {
		b.WriteString(fmt.Sprintf("  %-6s %s\n", rt.Method, rt.Path))
	}
	fmt.Print(b.String())
}
