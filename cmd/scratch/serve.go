package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"seeker-scratch/internal/address"
	"seeker-scratch/internal/handlers"
	"seeker-scratch/internal/ledger"
	"seeker-scratch/internal/services"
)

const shutdownTimeout = 10 * time.Second

func newServeCmd() *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the local bridge the scratch UI connects to",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if addr != "" {
				current.cfg.BridgeAddr = addr
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return serve(ctx, current)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "bridge listen address (overrides BRIDGE_ADDR)")
	return cmd
}

func serve(ctx context.Context, a *app) error {
	cfg := a.cfg
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	if cfg.JWTSecret == "" {
		cfg.JWTSecret = uuid.NewString()
		log.Warn("JWT_SECRET not set, bridge tokens are valid for this run only")
	}
	jwtService := services.NewJWTService(cfg)

	hub := handlers.NewWebSocketHub()
	transactor, state, device := a.core(hub)

	settings := services.NewSettings(a.store, device, a.wallet())
	settings.Load()

	reveal := services.NewRevealMachine(device, hub)
	settler := services.NewSettlementOrchestrator(a.catalog, a.ledger, a.program, transactor, state, device, services.SettlementOptions{
		DustLamports:     cfg.PrizeDustLamports,
		LeaderboardDelay: cfg.LeaderboardPostPurchaseDelay,
		RateLimiter:      a.limiter,
	})
	defer settler.Close()
	actions := services.NewAccountActions(a.ledger, a.program, transactor, state)

	state.WarmLeaderboard()
	if err := state.Refresh(ctx); err != nil {
		log.WithError(err).Warn("Initial ledger refresh failed")
	}

	pollers := services.NewStatePollers(state, cfg.TreasuryRefreshInterval, cfg.LeaderboardRefreshInterval)
	pollers.Start(ctx)
	defer pollers.Stop()

	router := handlers.NewRouter(jwtService, a.limiter,
		handlers.NewGameHandler(a.catalog, settler, reveal, state),
		handlers.NewUserHandler(state, actions, settings),
		handlers.NewWebSocketHandler(hub, state, reveal),
	)

	var owner address.PublicKey
	if a.owner != nil {
		owner = *a.owner
	}
	token, err := jwtService.GenerateToken(owner)
	if err != nil {
		return fmt.Errorf("failed to mint bridge token: %w", err)
	}
	fmt.Printf("Bridge token: %s\n", token)

	server := &http.Server{
		Addr:              cfg.BridgeAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		hub.Run(ctx)
		return nil
	})

	if a.signer != nil {
		monitor := services.NewReferralMonitor(ledger.NewLogStream(cfg.WSURL, a.program.ID()), actions)
		g.Go(func() error {
			monitor.Run(ctx)
			return nil
		})
	}

	g.Go(func() error {
		log.Infof("Bridge listening on %s", cfg.BridgeAddr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("bridge server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		log.Info("Shutting down bridge")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
