package api

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math/big"
	"net/http"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/labstack/echo/v4"
	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog/log"
	"github/chapool/yield-vault/internal/chain"
	"github/chapool/yield-vault/internal/config"
	"github/chapool/yield-vault/internal/events"
	"github/chapool/yield-vault/internal/i18n"
	"github/chapool/yield-vault/internal/metrics"
	"github/chapool/yield-vault/internal/txlog"
	"github/chapool/yield-vault/internal/util"
	"github/chapool/yield-vault/internal/vault"
	"github/chapool/yield-vault/internal/vault/orchestrator"
	"github/chapool/yield-vault/internal/vault/reader"
	"github/chapool/yield-vault/internal/vault/workflow"
)

// ChainClient is the read side of the connected chain.
type ChainClient interface {
	LatestBlock(ctx context.Context) (uint64, error)
	ReadBatch(ctx context.Context, block uint64, calls []chain.Call) ([]any, error)
	ChainID(ctx context.Context) (*big.Int, error)
	TransactionReceipt(ctx context.Context, hash common.Hash) (*types.Receipt, error)
}

type Router struct {
	Routes     []*echo.Route
	Root       *echo.Group
	Management *echo.Group
	APIV1Vault *echo.Group
}

// Server is a central struct keeping all the dependencies.
// It is initialized with wire, which handles making the new instances of the components
// in the right order. To add a new component, 3 steps are required:
// - declaring it in this struct
// - adding a provider function in providers.go
// - adding the provider's function name to the arguments of wire.Build() in wire.go
//
// Components labeled as `wire:"-"` will be skipped and have to be initialized after the InitNewServer* call.
// For more information about wire refer to https://pkg.go.dev/github.com/google/wire
type Server struct {
	// skip wire:
	// -> initialized with router.Init(s) function
	Echo   *echo.Echo `wire:"-"`
	Router *Router    `wire:"-"`

	// -> optional sinks, initialized with InitSinks(ctx)
	DB     *sql.DB           `wire:"-"`
	Ledger *txlog.Ledger     `wire:"-"`
	NATS   *nats.Conn        `wire:"-"`
	Events *events.Publisher `wire:"-"`

	Config       config.Server
	Chain        ChainClient
	Submitter    orchestrator.WriteSubmitter
	ChainContext vault.ChainContext
	Contracts    vault.Contracts
	Sink         *vault.Fanout
	Metrics      *metrics.Service
	I18n         *i18n.Service
	Reader       *reader.Service
	Workflows    *workflow.Registry
}

// newServerWithComponents is used by wire to initialize the server components.
// Components not listed here won't be handled by wire and should be initialized separately.
// Components which shouldn't be handled must be labeled `wire:"-"` in Server struct.
func newServerWithComponents(
	cfg config.Server,
	chainClient ChainClient,
	submitter orchestrator.WriteSubmitter,
	chainCtx vault.ChainContext,
	contracts vault.Contracts,
	sink *vault.Fanout,
	metrics *metrics.Service,
	i18n *i18n.Service,
	reader *reader.Service,
	workflows *workflow.Registry,
) *Server {
	return &Server{
		Config:       cfg,
		Chain:        chainClient,
		Submitter:    submitter,
		ChainContext: chainCtx,
		Contracts:    contracts,
		Sink:         sink,
		Metrics:      metrics,
		I18n:         i18n,
		Reader:       reader,
		Workflows:    workflows,
	}
}

func NewServer(config config.Server) *Server {
	s := &Server{
		Config: config,
	}

	return s
}

func (s *Server) Ready() bool {
	if err := util.IsStructInitialized(s); err != nil {
		log.Debug().Err(err).Msg("Server is not fully initialized")
		return false
	}

	return true
}

// InitSinks connects the optional transaction ledger and NATS publisher and
// adds them to the event fanout.
func (s *Server) InitSinks(ctx context.Context) error {
	if s.Config.Database.Enabled {
		db, err := txlog.Open(ctx, s.Config.Database)
		if err != nil {
			return err
		}
		s.DB = db

		if err := txlog.RegisterStats(s.Metrics.Registry, s.Config.Database.Database, db); err != nil {
			return err
		}

		s.Ledger = txlog.NewLedger(db)
		s.Sink.Add(s.Ledger)
		log.Info().Str("database", s.Config.Database.Database).Msg("Transaction ledger enabled")
	}

	if s.Config.NATS.Enabled {
		conn, err := events.Connect(s.Config.NATS)
		if err != nil {
			return err
		}
		s.NATS = conn

		s.Events = events.NewPublisher(conn, s.Config.NATS.SubjectPrefix)
		s.Sink.Add(s.Events)
		log.Info().Str("url", s.Config.NATS.URL).Msg("NATS event publishing enabled")
	}

	return nil
}

// StartWatch refreshes the snapshot once and keeps polling in the background
// when watch mode is enabled. The loop ends with ctx.
func (s *Server) StartWatch(ctx context.Context) {
	if _, err := s.Reader.Refresh(ctx); err != nil {
		log.Warn().Err(err).Msg("Initial snapshot read failed")
	}

	if !s.Config.Workflow.WatchEnabled {
		log.Info().Msg("Watch mode disabled, snapshots refresh only after confirmations")
		return
	}

	go s.Reader.Watch(ctx, s.Config.Workflow.WatchInterval)
}

func (s *Server) Start() error {
	if !s.Ready() {
		return errors.New("server is not ready")
	}

	if err := s.Echo.Start(s.Config.Echo.ListenAddress); err != nil {
		return fmt.Errorf("failed to start echo server: %w", err)
	}

	return nil
}

func (s *Server) Shutdown(ctx context.Context) []error {
	log.Warn().Msg("Shutting down server")

	var errs []error

	if s.Workflows != nil {
		log.Debug().Msg("Stopping workflows")
		s.Workflows.Stop()
	}

	if s.NATS != nil {
		log.Debug().Msg("Draining NATS connection")

		if err := s.NATS.Drain(); err != nil && !errors.Is(err, nats.ErrConnectionClosed) {
			log.Error().Err(err).Msg("Failed to drain NATS connection")
			errs = append(errs, err)
		}
	}

	if s.DB != nil {
		log.Debug().Msg("Closing database connection")

		if err := s.DB.Close(); err != nil && !errors.Is(err, sql.ErrConnDone) {
			log.Error().Err(err).Msg("Failed to close database connection")
			errs = append(errs, err)
		}
	}

	if closer, ok := s.Chain.(interface{ Close() }); ok {
		log.Debug().Msg("Closing chain RPC connections")
		closer.Close()
	}

	if s.Echo != nil {
		log.Debug().Msg("Shutting down echo server")

		if err := s.Echo.Shutdown(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("Failed to shutdown echo server")
			errs = append(errs, err)
		}
	}

	return errs
}
