package doorbell

import (
	"bufio"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/xid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/danmuck/scmictl/internal/auth"
	"github.com/danmuck/scmictl/internal/scmi"
	"github.com/danmuck/scmictl/internal/smt"
	"github.com/danmuck/scmictl/internal/tee"
)

var (
	ErrUnknownAgent    = tee.ErrUnknownAgent
	ErrUnexpectedKind  = errors.New("doorbell: unexpected frame kind")
	ErrSlotSizeInvalid = errors.New("doorbell: slot image does not match slot size")
	ErrAgentForbidden  = errors.New("doorbell: peer may not act as agent")
)

// FrameObserver receives one call per frame handled by the server.
type FrameObserver interface {
	ObserveFrame(agentID uint32, kind Kind, result string)
}

type ServerOption func(*Server)

// WithValidator requires every request frame to carry a token accepted by v.
func WithValidator(v auth.Validator) ServerOption {
	return func(s *Server) { s.validator = v }
}

func WithFrameObserver(o FrameObserver) ServerOption {
	return func(s *Server) { s.observer = o }
}

func WithServerLogger(logger zerolog.Logger) ServerOption {
	return func(s *Server) { s.log = logger }
}

// Server binds one SMT channel per agent on a tee.Router and rings it for
// every request frame received from that agent, the way the secure monitor
// does for an SMC.
type Server struct {
	cfg       Config
	router    *tee.Router
	validator auth.Validator
	observer  FrameObserver
	log       zerolog.Logger

	connsMu sync.Mutex
	conns   map[net.Conn]struct{}
	active  atomic.Int64
}

// NewServer allocates a slot of cfg.SlotSize bytes for each agent.
func NewServer(cfg Config, d smt.Dispatcher, agents []uint32, opts ...ServerOption) (*Server, error) {
	if cfg.SlotSize == 0 {
		cfg.SlotSize = smt.DefaultSlotSize
	}
	if cfg.Limits == (Limits{}) {
		cfg.Limits = DefaultLimits()
	}
	if uint64(cfg.SlotSize) > uint64(cfg.Limits.MaxPayloadBytes) {
		return nil, fmt.Errorf("%w: slot %d exceeds frame limit %d", ErrPayloadTooLarge, cfg.SlotSize, cfg.Limits.MaxPayloadBytes)
	}
	s := &Server{
		cfg:    cfg,
		router: tee.NewRouter(d),
		log:    log.Logger.With().Str("component", "doorbell").Logger(),
		conns:  make(map[net.Conn]struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	for _, id := range agents {
		if _, err := s.router.Bind(id, make([]byte, cfg.SlotSize)); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// Agents lists the agents with a channel, in ascending order.
func (s *Server) Agents() []uint32 { return s.router.Agents() }

// Channel returns the channel of an agent.
func (s *Server) Channel(agentID uint32) (*smt.Channel, bool) {
	return s.router.Channel(agentID)
}

// Ring processes whatever the agent left in its slot, as the SMC entry
// would.
func (s *Server) Ring(agentID uint32) (bool, error) {
	return s.router.Ring(agentID)
}

// exchange copies an agent's slot image in, rings the channel and returns
// the updated image.
func (s *Server) exchange(agentID uint32, image []byte) ([]byte, error) {
	if len(image) != s.cfg.SlotSize {
		return nil, fmt.Errorf("%w: %d != %d", ErrSlotSizeInvalid, len(image), s.cfg.SlotSize)
	}
	out, err := s.router.Exchange(agentID, image)
	if err != nil {
		if out == nil {
			return nil, err
		}
		// The slot now carries ERROR; the agent reads it from the image.
		s.log.Debug().Uint32("agent", agentID).Err(err).Msg("malformed slot")
	}
	return out, nil
}

// Inject runs one message through an agent's channel as if the agent had
// posted it, and returns the response payload, status word first.
func (s *Server) Inject(agentID uint32, h scmi.Header, payload []byte) ([]byte, error) {
	image := make(smt.Slot, s.cfg.SlotSize)
	if err := image.WriteRequest(h.Pack(), payload, false); err != nil {
		return nil, err
	}
	out, err := s.exchange(agentID, image)
	if err != nil {
		return nil, err
	}
	_, resp, err := smt.Slot(out).ReadResponse()
	if err != nil {
		return nil, err
	}
	return append([]byte(nil), resp...), nil
}

// Listen opens the doorbell listener, TLS when configured.
func (s *Server) Listen(addr string) (net.Listener, error) {
	if err := s.cfg.ValidateServerTransport(); err != nil {
		return nil, err
	}
	if !s.cfg.TLS.Enabled {
		return net.Listen("tcp", addr)
	}
	tlsCfg, err := s.cfg.ServerTLSConfig()
	if err != nil {
		return nil, err
	}
	return tls.Listen("tcp", addr, tlsCfg)
}

// Serve accepts agent connections until ctx is done.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	if err := s.cfg.ValidateServerTransport(); err != nil {
		return err
	}
	defer ln.Close()
	go func() {
		<-ctx.Done()
		s.closeAllConns()
		_ = ln.Close()
	}()

	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return nil
			}
			return err
		}
		s.trackConn(conn)
		go s.handleConn(conn)
	}
}

func (s *Server) handleConn(conn net.Conn) {
	defer conn.Close()
	defer s.untrackConn(conn)

	logger := s.log.With().
		Str("conn", xid.New().String()).
		Str("remote", conn.RemoteAddr().String()).
		Logger()
	logger.Info().Int64("active", s.active.Add(1)).Msg("agent connected")
	defer func() {
		logger.Info().Int64("active", s.active.Add(-1)).Msg("agent disconnected")
	}()

	var peer string
	if tlsConn, ok := conn.(*tls.Conn); ok {
		_ = tlsConn.SetDeadline(time.Now().Add(s.cfg.HandshakeTimeout))
		if err := tlsConn.Handshake(); err != nil {
			logger.Warn().Err(err).Msg("tls handshake failed")
			return
		}
		_ = conn.SetDeadline(time.Time{})
		if certs := tlsConn.ConnectionState().PeerCertificates; len(certs) > 0 {
			peer = certs[0].Subject.CommonName
			logger = logger.With().Str("peer", peer).Logger()
		}
	}

	reader := bufio.NewReader(conn)
	for {
		if s.cfg.ReadTimeout > 0 {
			_ = conn.SetReadDeadline(time.Now().Add(s.cfg.ReadTimeout))
		}
		fr, err := ReadFrame(reader, s.cfg.Limits)
		if err != nil {
			if !errors.Is(err, io.EOF) && !errors.Is(err, net.ErrClosed) {
				logger.Debug().Err(err).Msg("read frame")
			}
			return
		}

		reply := s.handleFrame(fr, peer, logger)
		if s.cfg.WriteTimeout > 0 {
			_ = conn.SetWriteDeadline(time.Now().Add(s.cfg.WriteTimeout))
		}
		if err := WriteFrame(conn, reply, s.cfg.Limits); err != nil {
			logger.Warn().Err(err).Msg("write frame")
			return
		}
	}
}

func (s *Server) handleFrame(fr Frame, peer string, logger zerolog.Logger) Frame {
	agentID := fr.Header.AgentID
	fail := func(result string, err error) Frame {
		logger.Debug().Uint32("agent", agentID).Err(err).Msg("request rejected")
		s.observe(agentID, fr.Header.Kind, result)
		return errorFrame(agentID, err)
	}

	if fr.Header.Kind != KindRequest {
		return fail("bad_kind", fmt.Errorf("%w: %s", ErrUnexpectedKind, fr.Header.Kind))
	}
	if s.validator != nil {
		if err := s.validator.Validate(string(fr.Auth)); err != nil {
			return fail("unauthorized", err)
		}
	}
	if err := s.cfg.authorizePeer(peer, agentID); err != nil {
		return fail("forbidden", err)
	}
	image, err := s.exchange(agentID, fr.Payload)
	if err != nil {
		return fail("error", err)
	}
	s.observe(agentID, fr.Header.Kind, "ok")
	return Frame{
		Header:  Header{Kind: KindResponse, AgentID: agentID},
		Payload: image,
	}
}

func (s *Server) observe(agentID uint32, kind Kind, result string) {
	if s.observer != nil {
		s.observer.ObserveFrame(agentID, kind, result)
	}
}

func errorFrame(agentID uint32, err error) Frame {
	return Frame{
		Header:  Header{Kind: KindError, AgentID: agentID},
		Payload: []byte(err.Error()),
	}
}

func (s *Server) trackConn(conn net.Conn) {
	s.connsMu.Lock()
	s.conns[conn] = struct{}{}
	s.connsMu.Unlock()
}

func (s *Server) untrackConn(conn net.Conn) {
	s.connsMu.Lock()
	delete(s.conns, conn)
	s.connsMu.Unlock()
}

func (s *Server) closeAllConns() {
	s.connsMu.Lock()
	defer s.connsMu.Unlock()
	for conn := range s.conns {
		_ = conn.Close()
	}
}
