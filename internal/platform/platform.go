package platform

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/danmuck/scmictl/internal/config"
	"github.com/danmuck/scmictl/internal/scmi"
	"github.com/danmuck/scmictl/internal/scmi/nospec"
)

var (
	ErrMissingBackend = errors.New("platform: board needs a missing back-end")
	ErrBringUp        = errors.New("platform: bring-up failed")
)

type clock struct {
	name    string
	hw      string
	enabled bool
	secure  bool
}

type resetDomain struct {
	name     string
	hw       string
	holdBoot bool
	secure   bool
	timeout  time.Duration
}

type voltageDomain struct {
	name      string
	regulator string
	kind      string
	secure    bool
}

type agent struct {
	id        uint32
	name      string
	secure    bool
	protocols []scmi.ProtocolID
	clocks    []*clock
	resets    []*resetDomain
	voltages  []*voltageDomain
}

var noAgent = &agent{}

// Platform serves every provider interface the dispatcher needs.
type Platform struct {
	board         config.Board
	hw            Backends
	agents        []*agent
	protocolCount int
	log           zerolog.Logger

	// guards the clock enable cache
	mu sync.Mutex
}

type Option func(*Platform)

func WithLogger(logger zerolog.Logger) Option {
	return func(p *Platform) {
		p.log = logger
	}
}

// New validates the board, builds the per-agent resource sets and syncs
// clock gates with their initial state. Any failure is fatal to bring-up.
func New(board config.Board, hw Backends, opts ...Option) (*Platform, error) {
	if err := config.ValidateBoard(board); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBringUp, err)
	}
	p := &Platform{
		board: board,
		hw:    hw,
		log:   log.Logger.With().Str("component", "platform").Logger(),
	}
	for _, opt := range opts {
		opt(p)
	}

	kinds := make(map[string]string, len(board.Regulators))
	for _, r := range board.Regulators {
		kinds[r.Name] = r.Kind
	}
	for _, a := range board.Agents {
		built, err := p.buildAgent(a, kinds)
		if err != nil {
			return nil, fmt.Errorf("%w: agent %d: %w", ErrBringUp, a.ID, err)
		}
		p.agents = append(p.agents, built)
	}
	p.protocolCount = countProtocols(p.agents)

	if err := p.syncClocks(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBringUp, err)
	}
	p.log.Info().
		Str("board", board.Name).
		Int("agents", len(p.agents)).
		Int("protocols", p.protocolCount).
		Msg("platform ready")
	return p, nil
}

func (p *Platform) buildAgent(cfg config.AgentConfig, kinds map[string]string) (*agent, error) {
	a := &agent{id: cfg.ID, name: cfg.Name, secure: cfg.Secure}
	if len(cfg.Clocks) > 0 && p.hw.Clocks == nil {
		return nil, fmt.Errorf("%w: clocks", ErrMissingBackend)
	}
	if len(cfg.Resets) > 0 && p.hw.Resets == nil {
		return nil, fmt.Errorf("%w: resets", ErrMissingBackend)
	}
	for _, c := range cfg.Clocks {
		a.clocks = append(a.clocks, &clock{name: c.Name, hw: hwOr(c.HW, c.Name), enabled: c.Enabled, secure: c.Secure})
	}
	for _, r := range cfg.Resets {
		timeout := time.Duration(r.TimeoutUS) * time.Microsecond
		if timeout == 0 {
			timeout = config.DefaultResetTimeoutUS * time.Microsecond
		}
		a.resets = append(a.resets, &resetDomain{
			name:     r.Name,
			hw:       hwOr(r.HW, r.Name),
			holdBoot: r.MCUHoldBoot,
			secure:   r.Secure,
			timeout:  timeout,
		})
	}
	for _, v := range cfg.Voltages {
		kind := kinds[v.Regulator]
		switch {
		case kind == config.RegulatorPWR && p.hw.PWR == nil:
			return nil, fmt.Errorf("%w: pwr", ErrMissingBackend)
		case kind == config.RegulatorPMIC && p.hw.PMIC == nil:
			return nil, fmt.Errorf("%w: pmic", ErrMissingBackend)
		}
		a.voltages = append(a.voltages, &voltageDomain{
			name:      v.Name,
			regulator: v.Regulator,
			kind:      kind,
			secure:    v.Secure,
		})
	}

	if len(cfg.Protocols) > 0 {
		for _, name := range cfg.Protocols {
			a.protocols = append(a.protocols, protocolByName(name))
		}
	} else {
		if len(a.clocks) > 0 {
			a.protocols = append(a.protocols, scmi.ProtocolClock)
		}
		if len(a.resets) > 0 {
			a.protocols = append(a.protocols, scmi.ProtocolResetDomain)
		}
		if len(a.voltages) > 0 {
			a.protocols = append(a.protocols, scmi.ProtocolVoltageDomain)
		}
	}
	return a, nil
}

// syncClocks gates on every clock whose initial state is enabled and that
// its agent may access.
func (p *Platform) syncClocks() error {
	for _, a := range p.agents {
		for _, c := range a.clocks {
			if _, err := p.hw.Clocks.Rate(c.hw); err != nil {
				return err
			}
			if !c.enabled || !a.allowed(c.secure) {
				continue
			}
			if err := p.hw.Clocks.Enable(c.hw); err != nil {
				return fmt.Errorf("enable %s: %w", c.name, err)
			}
		}
	}
	return nil
}

func countProtocols(agents []*agent) int {
	seen := map[scmi.ProtocolID]bool{}
	for _, a := range agents {
		for _, id := range a.protocols {
			seen[id] = true
		}
	}
	return len(seen)
}

func protocolByName(name string) scmi.ProtocolID {
	switch strings.ToLower(name) {
	case "clock":
		return scmi.ProtocolClock
	case "reset":
		return scmi.ProtocolResetDomain
	default:
		return scmi.ProtocolVoltageDomain
	}
}

func hwOr(hw, name string) string {
	if hw != "" {
		return hw
	}
	return name
}

// agent resolves an untrusted agent ID; unknown agents own nothing.
func (p *Platform) agent(agentID uint32) *agent {
	a, ok := nospec.Load(p.agents, agentID, noAgent)
	if !ok || a == nil {
		return noAgent
	}
	return a
}

// allowed applies the access policy: secure resources are reserved to
// secure agents.
func (a *agent) allowed(secure bool) bool {
	return !secure || a.secure
}

func (p *Platform) Board() config.Board { return p.board }

func (p *Platform) VendorName() string { return p.board.Vendor }

func (p *Platform) SubVendorName() string { return p.board.SubVendor }

func (p *Platform) ImplementationVersion() uint32 { return p.board.ImplementationVersion }

func (p *Platform) ProtocolCount() int { return p.protocolCount }

func (p *Platform) Protocols(agentID uint32) []scmi.ProtocolID {
	return p.agent(agentID).protocols
}

// AgentCount is the number of agents on the board.
func (p *Platform) AgentCount() int { return len(p.agents) }
