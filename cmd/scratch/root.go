package main

import (
	"fmt"
	"io"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"seeker-scratch/internal/address"
	"seeker-scratch/internal/config"
	"seeker-scratch/internal/ledger"
	"seeker-scratch/internal/logging"
	"seeker-scratch/internal/models"
	"seeker-scratch/internal/services"
)

// store is the persistence surface the client needs. Redis serves all of it;
// MemoryStore serves it when redis is unreachable.
type store interface {
	services.PreferenceStore
	services.LeaderboardCache
}

// app holds the wiring shared by every subcommand.
type app struct {
	cfg     *config.Config
	logs    io.Closer
	catalog *models.Catalog
	ledger  *ledger.Client
	program *ledger.Program

	signer  services.Signer
	owner   *address.PublicKey
	store   store
	limiter services.RateLimiter
	redis   *services.RedisService
}

func (a *app) Close() {
	if a.redis != nil {
		a.redis.Close()
	}
	if a.logs != nil {
		a.logs.Close()
	}
}

// requireSigner fails commands that submit transactions in read-only mode.
func (a *app) requireSigner() (address.PublicKey, error) {
	if a.owner == nil {
		return address.PublicKey{}, fmt.Errorf("no keypair configured (set KEYPAIR_PATH or --keypair)")
	}
	return *a.owner, nil
}

var (
	flagKeypair string
	flagRPC     string
	flagCatalog string

	current *app
)

func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "scratch",
		Short:         "Scratch-card client for the on-chain scratch program",
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			a, err := setup()
			if err != nil {
				return err
			}
			current = a
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, _ []string) {
			if current != nil {
				current.Close()
			}
		},
	}

	rootCmd.PersistentFlags().StringVar(&flagKeypair, "keypair", "", "path to the wallet keypair file (overrides KEYPAIR_PATH)")
	rootCmd.PersistentFlags().StringVar(&flagRPC, "rpc", "", "ledger RPC endpoint (overrides RPC_URL)")
	rootCmd.PersistentFlags().StringVar(&flagCatalog, "catalog", "", "card catalog YAML (overrides CATALOG_PATH)")

	rootCmd.AddCommand(
		newServeCmd(),
		newBuyCmd(),
		newProfileCmd(),
		newLeaderboardCmd(),
		newDeriveCmd(),
	)
	return rootCmd
}

func setup() (*app, error) {
	if err := godotenv.Load(); err != nil {
		log.Debug("No .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if flagKeypair != "" {
		cfg.KeypairPath = flagKeypair
	}
	if flagRPC != "" {
		cfg.RPCURL = flagRPC
		cfg.WSURL = config.WebsocketURL(flagRPC)
	}
	if flagCatalog != "" {
		cfg.CatalogPath = flagCatalog
	}

	a := &app{cfg: cfg, logs: logging.Setup(cfg)}

	a.catalog, err = models.LoadCatalog(cfg.CatalogPath)
	if err != nil {
		a.Close()
		return nil, err
	}

	programID, err := address.ParsePublicKey(cfg.ProgramID)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("invalid PROGRAM_ID: %w", err)
	}
	a.program = ledger.NewProgram(address.NewDeriver(programID))
	a.ledger = ledger.NewClient(cfg.RPCURL, cfg.RPCTimeout, ledger.WithPollInterval(cfg.ConfirmPollInterval))

	if cfg.KeypairPath != "" {
		kp, err := services.LoadKeypair(cfg.KeypairPath)
		if err != nil {
			a.Close()
			return nil, err
		}
		owner := kp.PublicKey()
		a.signer = kp
		a.owner = &owner
		log.WithField("wallet", owner.String()).Info("Wallet loaded")
	} else {
		log.Warn("No keypair configured, running read-only")
	}

	redisService, err := services.NewRedisService(cfg)
	if err != nil {
		log.WithError(err).Warn("Redis unavailable, using in-memory store")
		a.store = services.NewMemoryStore()
	} else {
		a.redis = redisService
		a.store = redisService
		a.limiter = redisService
	}
	return a, nil
}

// core builds the ledger-facing services shared by serve and buy.
func (a *app) core(sink services.Broadcaster) (*services.Transactor, *services.LedgerState, *services.FeedbackDevice) {
	transactor := services.NewTransactor(a.ledger, a.signer, a.cfg.ConfirmTimeout)
	state := services.NewLedgerState(a.ledger, a.program, a.owner, a.store, sink)
	device := services.NewFeedbackDevice(sink, models.DefaultPreferences())
	return transactor, state, device
}

func (a *app) wallet() string {
	if a.owner == nil {
		return ""
	}
	return a.owner.String()
}
