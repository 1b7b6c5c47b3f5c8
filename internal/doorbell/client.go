package doorbell

import (
	"bufio"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"math/rand"
	"net"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/danmuck/scmictl/internal/scmi"
	"github.com/danmuck/scmictl/internal/smt"
)

var (
	ErrRemote         = errors.New("doorbell: remote error")
	ErrClosed         = errors.New("doorbell: client closed")
	ErrHeaderMismatch = errors.New("doorbell: response header does not match request")
)

// Client is the agent side of a doorbell connection. It keeps a private
// slot image and implements client.Transport.
type Client struct {
	cfg     Config
	addr    string
	agentID uint32
	token   string
	rng     *rand.Rand
	log     zerolog.Logger

	mu     sync.Mutex
	conn   net.Conn
	reader *bufio.Reader
	slot   smt.Slot
	closed bool
}

type ClientOption func(*Client)

// WithToken attaches an auth token to every request frame.
func WithToken(token string) ClientOption {
	return func(c *Client) { c.token = token }
}

func WithClientLogger(logger zerolog.Logger) ClientOption {
	return func(c *Client) { c.log = logger }
}

// Dial connects to a doorbell server as agentID, retrying with backoff.
func Dial(ctx context.Context, addr string, agentID uint32, cfg Config, opts ...ClientOption) (*Client, error) {
	if err := cfg.ValidateClientTransport(); err != nil {
		return nil, err
	}
	if cfg.SlotSize == 0 {
		cfg.SlotSize = smt.DefaultSlotSize
	}
	if cfg.Limits == (Limits{}) {
		cfg.Limits = DefaultLimits()
	}
	if cfg.SlotSize < smt.MinSlotSize {
		return nil, smt.ErrSlotTooSmall
	}
	c := &Client{
		cfg:     cfg,
		addr:    addr,
		agentID: agentID,
		rng:     rand.New(rand.NewSource(time.Now().UnixNano())),
		log:     log.Logger.With().Str("component", "doorbell.client").Uint32("agent", agentID).Logger(),
		slot:    make(smt.Slot, cfg.SlotSize),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.connect(ctx); err != nil {
		return nil, err
	}
	return c, nil
}

// connect dials until it succeeds, attempts run out or ctx is done.
func (c *Client) connect(ctx context.Context) error {
	var attempt int
	for {
		attempt++
		conn, err := c.dial(ctx)
		if err == nil {
			c.conn = conn
			c.reader = bufio.NewReader(conn)
			return nil
		}
		c.log.Warn().Int("attempt", attempt).Str("addr", c.addr).Err(err).Msg("dial failed")
		if !c.shouldRetry(attempt) {
			return err
		}
		if err := c.sleepBackoff(ctx, attempt); err != nil {
			return err
		}
	}
}

func (c *Client) dial(ctx context.Context) (net.Conn, error) {
	dialer := net.Dialer{Timeout: c.cfg.ConnectTimeout}
	rawConn, err := dialer.DialContext(ctx, "tcp", c.addr)
	if err != nil {
		return nil, err
	}
	if !c.cfg.TLS.Enabled {
		return rawConn, nil
	}

	tlsCfg, err := c.cfg.ClientTLSConfig(c.addr)
	if err != nil {
		_ = rawConn.Close()
		return nil, err
	}
	conn := tls.Client(rawConn, tlsCfg)
	handshakeCtx, cancel := context.WithTimeout(ctx, c.cfg.HandshakeTimeout)
	defer cancel()
	if err := conn.HandshakeContext(handshakeCtx); err != nil {
		_ = rawConn.Close()
		return nil, err
	}
	return conn, nil
}

func (c *Client) shouldRetry(attempt int) bool {
	if c.cfg.MaxConnectAttempts <= 0 {
		return true
	}
	return attempt < c.cfg.MaxConnectAttempts
}

func (c *Client) sleepBackoff(ctx context.Context, attempt int) error {
	delay := NextBackoffDelay(c.cfg.Backoff, attempt, c.rng)
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Exchange posts one message through the slot image and waits for the
// platform's reply. A broken connection is redialed on the next call.
func (c *Client) Exchange(ctx context.Context, h scmi.Header, payload []byte) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil, ErrClosed
	}
	if c.conn == nil {
		if err := c.connect(ctx); err != nil {
			return nil, err
		}
	}

	header := h.Pack()
	clear(c.slot)
	if err := c.slot.WriteRequest(header, payload, false); err != nil {
		return nil, err
	}
	reply, err := c.roundTrip(ctx, Frame{
		Header:  Header{Kind: KindRequest, AgentID: c.agentID},
		Auth:    []byte(c.token),
		Payload: c.slot,
	})
	if err != nil {
		c.drop()
		return nil, err
	}
	switch reply.Header.Kind {
	case KindResponse:
	case KindError:
		return nil, fmt.Errorf("%w: %s", ErrRemote, reply.Payload)
	default:
		c.drop()
		return nil, fmt.Errorf("%w: %s", ErrUnexpectedKind, reply.Header.Kind)
	}
	if len(reply.Payload) != len(c.slot) {
		return nil, fmt.Errorf("%w: %d != %d", ErrSlotSizeInvalid, len(reply.Payload), len(c.slot))
	}

	copy(c.slot, reply.Payload)
	got, resp, err := c.slot.ReadResponse()
	if err != nil {
		return nil, err
	}
	if got != header {
		return nil, fmt.Errorf("%w: %#x != %#x", ErrHeaderMismatch, got, header)
	}
	return append([]byte(nil), resp...), nil
}

func (c *Client) roundTrip(ctx context.Context, req Frame) (Frame, error) {
	deadline := time.Time{}
	if c.cfg.ReadTimeout > 0 {
		deadline = time.Now().Add(c.cfg.ReadTimeout)
	}
	if d, ok := ctx.Deadline(); ok && (deadline.IsZero() || d.Before(deadline)) {
		deadline = d
	}
	_ = c.conn.SetDeadline(deadline)

	stop := context.AfterFunc(ctx, func() {
		_ = c.conn.SetDeadline(time.Unix(1, 0))
	})
	defer stop()

	if err := WriteFrame(c.conn, req, c.cfg.Limits); err != nil {
		return Frame{}, c.ctxErr(ctx, err)
	}
	fr, err := ReadFrame(c.reader, c.cfg.Limits)
	if err != nil {
		return Frame{}, c.ctxErr(ctx, err)
	}
	return fr, nil
}

func (c *Client) ctxErr(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	return err
}

func (c *Client) drop() {
	if c.conn != nil {
		_ = c.conn.Close()
	}
	c.conn = nil
	c.reader = nil
}

// Close releases the connection; later calls fail with ErrClosed.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	if c.conn == nil {
		return nil
	}
	err := c.conn.Close()
	c.conn = nil
	c.reader = nil
	return err
}
