package scmi

import (
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Observer receives one callback per dispatched message.
type Observer interface {
	ObserveDispatch(agentID uint32, protocol ProtocolID, messageID uint8, status Status, elapsed time.Duration)
}

// Server routes messages to protocol handlers on top of a Platform.
type Server struct {
	platform Platform
	log      zerolog.Logger
	observer Observer
}

type Option func(*Server)

func WithLogger(logger zerolog.Logger) Option {
	return func(s *Server) {
		s.log = logger
	}
}

func WithObserver(o Observer) Option {
	return func(s *Server) {
		s.observer = o
	}
}

func NewServer(p Platform, opts ...Option) *Server {
	s := &Server{
		platform: p,
		log:      log.Logger.With().Str("component", "scmi").Logger(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Server) Platform() Platform { return s.platform }

// Dispatch answers msg exactly once. The response is left in msg.Out with
// msg.OutSize() valid bytes, status word first.
func (s *Server) Dispatch(msg *Message) {
	if msg == nil || len(msg.Out) < statusSize {
		s.log.Error().Msg("dispatch without room for a status word")
		return
	}
	start := time.Now()
	msg.reset()

	s.route(msg)
	if !msg.answered {
		s.log.Error().
			Uint32("agent", msg.AgentID).
			Stringer("protocol", msg.ProtocolID).
			Uint8("message", msg.MessageID).
			Msg("handler returned without a response")
		msg.forceStatus(StatusGenericError)
	}

	st := msg.Status()
	if st != StatusSuccess {
		s.log.Debug().
			Uint32("agent", msg.AgentID).
			Stringer("protocol", msg.ProtocolID).
			Uint8("message", msg.MessageID).
			Stringer("status", st).
			Msg("request rejected")
	}
	if s.observer != nil {
		s.observer.ObserveDispatch(msg.AgentID, msg.ProtocolID, msg.MessageID, st, time.Since(start))
	}
}

func (s *Server) route(msg *Message) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Error().
				Uint32("agent", msg.AgentID).
				Stringer("protocol", msg.ProtocolID).
				Uint8("message", msg.MessageID).
				Interface("panic", r).
				Msg("handler panicked")
			msg.forceStatus(StatusGenericError)
		}
	}()

	switch msg.ProtocolID {
	case ProtocolBase:
		s.callHandler(msg, baseTable)
	case ProtocolClock:
		s.callHandler(msg, clockTable)
	case ProtocolResetDomain:
		s.callHandler(msg, resetTable)
	case ProtocolVoltageDomain:
		s.callHandler(msg, voltageTable)
	default:
		msg.statusResponse(StatusNotSupported)
	}
}

// callHandler gates on handler presence and exact payload size before any
// typed decoding happens.
func (s *Server) callHandler(msg *Message, t *protocolTable) {
	h, size, ok := t.lookup(uint32(msg.MessageID))
	if !ok {
		msg.statusResponse(StatusNotSupported)
		return
	}
	if uint64(len(msg.In)) != uint64(size) {
		msg.statusResponse(StatusProtocolError)
		return
	}
	h(s, msg)
}
