package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/rs/zerolog/log"

	appgames "hot-potato/internal/app/games"
	appusers "hot-potato/internal/app/users"
	"hot-potato/internal/chain"
	"hot-potato/internal/config"
	"hot-potato/internal/game"
	"hot-potato/internal/logging"
	"hot-potato/internal/settlement"
	"hot-potato/internal/store"
	httptransport "hot-potato/internal/transport/http"
	"hot-potato/internal/ws"

	"github.com/coder/quartz"
	"golang.org/x/sync/errgroup"
)

func main() {
	cfg, err := config.LoadApp()
	if err != nil {
		panic(err)
	}
	logging.Init(cfg.Log)

	house, err := solana.PublicKeyFromBase58(cfg.Chain.HouseWalletAddress)
	if err != nil {
		log.Fatal().Err(err).Str("address", cfg.Chain.HouseWalletAddress).
			Msg("invalid house wallet address")
	}

	// The database is optional: without it the server still runs games, it
	// just forgets them on restart.
	st := openStore(cfg.Server.PostgresDSN)

	client := chain.NewClient(cfg.Chain)
	mgr := game.NewManager(cfg.Chain.HouseFeePercentage)
	sched := game.NewScheduler(mgr, quartz.NewReal(), cfg.Chain.StartDelay, cfg.Chain.PlayDelay)

	var persist settlement.Persister
	var gameStore appgames.Store
	var userStore appusers.Store
	if st != nil {
		persist = st
		gameStore = st
		userStore = st
	}
	settler := settlement.New(client, mgr, persist, house)

	hub := ws.NewHub()
	gamesSvc := appgames.NewService(mgr, sched, settler, gameStore, hub)
	usersSvc := appusers.NewService(userStore)

	if err := gamesSvc.Hydrate(context.Background()); err != nil {
		log.Warn().Err(err).Msg("game hydration failed; starting empty")
	}

	r := httptransport.NewRouter(gamesSvc, usersSvc, client, st, hub)
	httptransport.LogRoutes(r)

	server := &http.Server{
		Addr:              cfg.Server.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	log.Info().Str("addr", cfg.Server.HTTPAddr).
		Str("network", cfg.Chain.Network).
		Float64("house_fee", cfg.Chain.HouseFeePercentage).
		Msg("http listening")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	eg, ctx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	eg.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})
	if err := eg.Wait(); err != nil {
		log.Fatal().Err(err).Msg("server stopped")
	}
	if st != nil {
		st.Close()
	}
	log.Info().Msg("server stopped")
}

func openStore(dsn string) *store.Store {
	if dsn == "" {
		log.Warn().Msg("POSTGRES_DSN not set; running without persistence")
		return nil
	}
	st, err := store.New(dsn)
	if err != nil {
		log.Warn().Err(err).Msg("store init failed; running without persistence")
		return nil
	}
	ctx := context.Background()
	if err := st.Ping(ctx); err != nil {
		log.Warn().Err(err).Msg("db unreachable; running without persistence")
		st.Close()
		return nil
	}
	if err := st.EnsureSchema(ctx); err != nil {
		log.Fatal().Err(err).Msg("ensure schema failed")
	}
	return st
}
