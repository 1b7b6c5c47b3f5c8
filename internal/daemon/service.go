// Package daemon wires the simulated platform, the SCMI server, the
// doorbell transport and the admin surface into one process.
package daemon

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"sync/atomic"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/danmuck/scmictl/internal/admin"
	"github.com/danmuck/scmictl/internal/auth"
	"github.com/danmuck/scmictl/internal/config"
	"github.com/danmuck/scmictl/internal/doorbell"
	"github.com/danmuck/scmictl/internal/observability"
	"github.com/danmuck/scmictl/internal/platform"
	"github.com/danmuck/scmictl/internal/platform/sim"
	"github.com/danmuck/scmictl/internal/scmi"
)

// ServiceConfig is the daemon runtime configuration.
type ServiceConfig struct {
	Name string
	// BoardPath is a board TOML; empty selects the built-in stm32mp15 board.
	BoardPath string
	// AckPolls is how many polls a simulated reset line needs to settle.
	AckPolls      int
	DoorbellAddr  string
	DoorbellToken string
	Doorbell      doorbell.Config
	AdminEnabled  bool
	AdminAddr     string
	AdminToken    string
	CORSOrigins   []string
}

func DefaultServiceConfig() ServiceConfig {
	return ServiceConfig{
		Name:         "scmid",
		AckPolls:     2,
		DoorbellAddr: "127.0.0.1:9310",
		Doorbell:     doorbell.DefaultConfig(),
		AdminEnabled: true,
		AdminAddr:    "127.0.0.1:9300",
		CORSOrigins:  []string{"http://localhost:3000"},
	}
}

// Service owns every runtime component of the daemon.
type Service struct {
	cfg      ServiceConfig
	board    config.Board
	platform *platform.Platform
	scmi     *scmi.Server
	bell     *doorbell.Server
	admin    *admin.Server
	log      zerolog.Logger
	ready    atomic.Bool
}

// NewService loads the board and brings the platform up.
func NewService(cfg ServiceConfig) (*Service, error) {
	if strings.TrimSpace(cfg.Name) == "" {
		cfg.Name = DefaultServiceConfig().Name
	}
	board := config.DefaultBoard()
	if path := strings.TrimSpace(cfg.BoardPath); path != "" {
		loaded, err := config.LoadBoard(path)
		if err != nil {
			return nil, err
		}
		board = loaded
	}
	return newService(cfg, board)
}

func newService(cfg ServiceConfig, board config.Board) (*Service, error) {
	logger := log.Logger.With().Str("service", cfg.Name).Logger()

	hw := sim.FromBoard(board, cfg.AckPolls)
	p, err := platform.New(board, platform.Backends{
		Clocks: hw.Clocks,
		Resets: hw.Resets,
		PWR:    hw.PWR,
		PMIC:   hw.PMIC,
	}, platform.WithLogger(logger))
	if err != nil {
		return nil, err
	}
	metrics := observability.Metrics{}
	server := scmi.NewServer(p, scmi.WithLogger(logger), scmi.WithObserver(metrics))

	agents := make([]uint32, 0, len(board.Agents))
	for _, a := range board.Agents {
		agents = append(agents, a.ID)
	}
	opts := []doorbell.ServerOption{
		doorbell.WithFrameObserver(metrics),
		doorbell.WithServerLogger(logger.With().Str("component", "doorbell").Logger()),
	}
	if cfg.DoorbellToken != "" {
		opts = append(opts, doorbell.WithValidator(auth.StaticToken{Token: cfg.DoorbellToken}))
	}
	bell, err := doorbell.NewServer(cfg.Doorbell, server, agents, opts...)
	if err != nil {
		return nil, err
	}

	s := &Service{
		cfg:      cfg,
		board:    board,
		platform: p,
		scmi:     server,
		bell:     bell,
		log:      logger,
	}
	if cfg.AdminEnabled {
		s.admin = admin.New(admin.Config{
			ID:          cfg.Name,
			Addr:        cfg.AdminAddr,
			Token:       cfg.AdminToken,
			CORSOrigins: cfg.CORSOrigins,
		}, p, bell, s.ready.Load)
	}
	return s, nil
}

func (s *Service) Platform() *platform.Platform { return s.platform }

func (s *Service) Doorbell() *doorbell.Server { return s.bell }

// Ready reports whether the doorbell listener is accepting agents.
func (s *Service) Ready() bool { return s.ready.Load() }

// Run serves the doorbell and, when enabled, the admin surface until ctx
// is done or one of them fails.
func (s *Service) Run(ctx context.Context) error {
	ln, err := s.bell.Listen(s.cfg.DoorbellAddr)
	if err != nil {
		return fmt.Errorf("daemon: doorbell listen: %w", err)
	}
	return s.Serve(ctx, ln)
}

// Serve is Run on an existing doorbell listener.
func (s *Service) Serve(ctx context.Context, ln net.Listener) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	s.ready.Store(true)
	defer s.ready.Store(false)

	errCh := make(chan error, 2)
	go func() { errCh <- s.bell.Serve(ctx, ln) }()
	running := 1
	if s.admin != nil {
		running++
		go func() { errCh <- s.admin.Serve(ctx) }()
	}

	s.log.Info().
		Str("board", s.board.Name).
		Int("agents", s.platform.AgentCount()).
		Str("doorbell", ln.Addr().String()).
		Str("admin", s.cfg.AdminAddr).
		Bool("admin_enabled", s.admin != nil).
		Msg("scmi platform up")

	var first error
	for ; running > 0; running-- {
		err := <-errCh
		if err != nil && !errors.Is(err, context.Canceled) && first == nil {
			first = err
		}
		cancel()
	}
	return first
}
