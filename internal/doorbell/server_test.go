package doorbell

import (
	"context"
	"encoding/binary"
	"errors"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/danmuck/scmictl/internal/auth"
	"github.com/danmuck/scmictl/internal/config"
	"github.com/danmuck/scmictl/internal/platform"
	"github.com/danmuck/scmictl/internal/platform/sim"
	"github.com/danmuck/scmictl/internal/scmi"
	"github.com/danmuck/scmictl/internal/scmi/client"
	"github.com/danmuck/scmictl/internal/smt"
	"github.com/danmuck/scmictl/internal/testutil/testlog"
	"github.com/danmuck/scmictl/internal/testutil/tlstest"
)

type recordingObserver struct {
	mu      sync.Mutex
	results []string
}

func (o *recordingObserver) ObserveFrame(agentID uint32, kind Kind, result string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.results = append(o.results, result)
}

func (o *recordingObserver) snapshot() []string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]string(nil), o.results...)
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.MaxConnectAttempts = 1
	cfg.ReadTimeout = 5 * time.Second
	cfg.WriteTimeout = 5 * time.Second
	return cfg
}

func newDispatcher(t *testing.T) *scmi.Server {
	t.Helper()
	b := config.DefaultBoard()
	hw := sim.FromBoard(b, 0)
	p, err := platform.New(b, platform.Backends{Clocks: hw.Clocks, Resets: hw.Resets, PWR: hw.PWR, PMIC: hw.PMIC})
	if err != nil {
		t.Fatalf("platform: %v", err)
	}
	return scmi.NewServer(p)
}

// startServer serves on a loopback listener until the test ends.
func startServer(t *testing.T, cfg Config, opts ...ServerOption) (*Server, string) {
	t.Helper()
	srv, err := NewServer(cfg, newDispatcher(t), []uint32{0, 1, 2}, opts...)
	if err != nil {
		t.Fatalf("new server: %v", err)
	}
	ln, err := srv.Listen("127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx, ln) }()
	t.Cleanup(func() {
		cancel()
		if err := <-done; err != nil {
			t.Errorf("serve: %v", err)
		}
	})
	return srv, ln.Addr().String()
}

func dialAgent(t *testing.T, addr string, agentID uint32, cfg Config, opts ...ClientOption) *Client {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	c, err := Dial(ctx, addr, agentID, cfg, opts...)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestDoorbellRoundTrip(t *testing.T) {
	testlog.Start(t)

	obs := &recordingObserver{}
	_, addr := startServer(t, testConfig(), WithFrameObserver(obs))
	ctx := context.Background()

	linux, err := client.New(dialAgent(t, addr, 0, testConfig()))
	if err != nil {
		t.Fatalf("client: %v", err)
	}
	info, err := linux.DiscoverBase(ctx)
	if err != nil {
		t.Fatalf("discover: %v", err)
	}
	if info.Vendor != "ST" || info.Version != scmi.VersionBase {
		t.Fatalf("expected ST base 0x%x, got %+v", scmi.VersionBase, info)
	}

	mcu, err := client.New(dialAgent(t, addr, 1, testConfig()))
	if err != nil {
		t.Fatalf("client: %v", err)
	}
	rate, err := mcu.ClockRate(ctx, 0)
	if err != nil {
		t.Fatalf("clock rate: %v", err)
	}
	if rate != 196608000 {
		t.Fatalf("expected pll3_q at 196608000, got %d", rate)
	}
	if _, err := mcu.ClockRate(ctx, 40); !client.IsStatus(err, scmi.StatusInvalidParameters) {
		t.Fatalf("expected invalid parameters for out of range clock, got %v", err)
	}

	for _, r := range obs.snapshot() {
		if r != "ok" {
			t.Fatalf("expected only ok frames, got %v", obs.snapshot())
		}
	}
}

func TestDoorbellUnknownAgent(t *testing.T) {
	testlog.Start(t)

	_, addr := startServer(t, testConfig())
	c := dialAgent(t, addr, 9, testConfig())
	h := scmi.Header{ProtocolID: scmi.ProtocolBase, MessageID: scmi.MsgProtocolVersion}
	if _, err := c.Exchange(context.Background(), h, nil); !errors.Is(err, ErrRemote) {
		t.Fatalf("expected remote error, got %v", err)
	}
}

func TestDoorbellRequiresToken(t *testing.T) {
	testlog.Start(t)

	obs := &recordingObserver{}
	_, addr := startServer(t, testConfig(), WithValidator(auth.StaticToken{Token: "s3cret"}), WithFrameObserver(obs))
	h := scmi.Header{ProtocolID: scmi.ProtocolBase, MessageID: scmi.MsgProtocolVersion}

	anon := dialAgent(t, addr, 0, testConfig())
	if _, err := anon.Exchange(context.Background(), h, nil); !errors.Is(err, ErrRemote) {
		t.Fatalf("expected rejection without token, got %v", err)
	}

	authed := dialAgent(t, addr, 0, testConfig(), WithToken("s3cret"))
	resp, err := authed.Exchange(context.Background(), h, nil)
	if err != nil {
		t.Fatalf("exchange: %v", err)
	}
	if len(resp) != 8 {
		t.Fatalf("expected status and version, got %d bytes", len(resp))
	}
	got := obs.snapshot()
	if len(got) != 2 || got[0] != "unauthorized" || got[1] != "ok" {
		t.Fatalf("expected unauthorized then ok, got %v", got)
	}
}

func TestDoorbellMalformedSlotReturnsError(t *testing.T) {
	testlog.Start(t)

	srv, err := NewServer(testConfig(), newDispatcher(t), []uint32{0})
	if err != nil {
		t.Fatalf("new server: %v", err)
	}
	image := make([]byte, smt.DefaultSlotSize)
	if err := smt.Slot(image).WriteRequest(0, nil, false); err != nil {
		t.Fatalf("write request: %v", err)
	}
	// Length larger than the slot.
	image[20] = 0xff

	out, err := srv.exchange(0, image)
	if err != nil {
		t.Fatalf("exchange: %v", err)
	}
	if _, _, err := smt.Slot(out).ReadResponse(); !errors.Is(err, smt.ErrChannelFailed) {
		t.Fatalf("expected channel error, got %v", err)
	}

	if _, err := srv.exchange(0, image[:64]); !errors.Is(err, ErrSlotSizeInvalid) {
		t.Fatalf("expected slot size error, got %v", err)
	}
	idle := make([]byte, smt.DefaultSlotSize)
	smt.Slot(idle).SetChannelStatus(smt.StatusFree)
	if _, err := srv.exchange(0, idle); !errors.Is(err, smt.ErrChannelIdle) {
		t.Fatalf("expected idle channel, got %v", err)
	}
}

func TestRingProcessesSharedSlot(t *testing.T) {
	testlog.Start(t)

	srv, err := NewServer(testConfig(), newDispatcher(t), []uint32{0, 1})
	if err != nil {
		t.Fatalf("new server: %v", err)
	}
	if got := srv.Agents(); len(got) != 2 || got[0] != 0 || got[1] != 1 {
		t.Fatalf("expected agents [0 1], got %v", got)
	}
	ch, ok := srv.Channel(1)
	if !ok {
		t.Fatalf("expected channel for agent 1")
	}
	h := scmi.Header{ProtocolID: scmi.ProtocolClock, MessageID: scmi.MsgProtocolAttributes}
	if err := ch.Slot().WriteRequest(h.Pack(), nil, true); err != nil {
		t.Fatalf("write request: %v", err)
	}
	interrupt, err := srv.Ring(1)
	if err != nil {
		t.Fatalf("ring: %v", err)
	}
	if !interrupt {
		t.Fatalf("expected completion interrupt request")
	}
	_, resp, err := ch.Slot().ReadResponse()
	if err != nil {
		t.Fatalf("read response: %v", err)
	}
	if len(resp) != 8 || resp[4] != 3 {
		t.Fatalf("expected 3 clocks for agent 1, got %v", resp)
	}
	if _, err := srv.Ring(7); !errors.Is(err, ErrUnknownAgent) {
		t.Fatalf("expected unknown agent, got %v", err)
	}
}

func TestDialGivesUpAfterAttempts(t *testing.T) {
	testlog.Start(t)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	addr := ln.Addr().String()
	_ = ln.Close()

	cfg := testConfig()
	cfg.MaxConnectAttempts = 2
	cfg.Backoff = BackoffConfig{InitialDelay: time.Millisecond}
	if _, err := Dial(context.Background(), addr, 0, cfg); err == nil {
		t.Fatalf("expected dial failure")
	}
}

func TestDoorbellMutualTLS(t *testing.T) {
	testlog.Start(t)

	ca := tlstest.NewAuthority(t, "scmi-test-ca")
	serverPair := ca.ServerPair(t, "scmid")
	agentPair := ca.ClientPair(t, "agent-0")

	serverCfg := testConfig()
	serverCfg.SecurityMode = SecurityModeProduction
	serverCfg.TLS = TLSConfig{
		Enabled:  true,
		Mutual:   true,
		CAFile:   ca.CAFile(),
		CertFile: serverPair.CertFile,
		KeyFile:  serverPair.KeyFile,
	}
	serverCfg.AgentIdentities = map[string]uint32{"agent-0": 0}
	obs := &recordingObserver{}
	_, addr := startServer(t, serverCfg, WithFrameObserver(obs))

	clientCfg := testConfig()
	clientCfg.SecurityMode = SecurityModeProduction
	clientCfg.TLS = TLSConfig{
		Enabled:  true,
		Mutual:   true,
		CAFile:   ca.CAFile(),
		CertFile: agentPair.CertFile,
		KeyFile:  agentPair.KeyFile,
	}
	c, err := client.New(dialAgent(t, addr, 0, clientCfg))
	if err != nil {
		t.Fatalf("client: %v", err)
	}
	version, err := c.ProtocolVersion(context.Background(), scmi.ProtocolVoltageDomain)
	if err != nil {
		t.Fatalf("protocol version: %v", err)
	}
	if version != scmi.VersionVoltageDomain {
		t.Fatalf("expected voltage version 0x%x, got 0x%x", scmi.VersionVoltageDomain, version)
	}

	// The agent-0 certificate cannot speak for the pmic agent.
	spoof := dialAgent(t, addr, 2, clientCfg)
	h := scmi.Header{ProtocolID: scmi.ProtocolVoltageDomain, MessageID: scmi.MsgProtocolVersion}
	if _, err := spoof.Exchange(context.Background(), h, nil); !errors.Is(err, ErrRemote) {
		t.Fatalf("expected agent 2 rejected for agent-0 certificate, got %v", err)
	}
	got := obs.snapshot()
	if len(got) != 2 || got[0] != "ok" || got[1] != "forbidden" {
		t.Fatalf("expected ok then forbidden, got %v", got)
	}
}

func TestInjectUsesAgentChannel(t *testing.T) {
	testlog.Start(t)

	srv, err := NewServer(testConfig(), newDispatcher(t), []uint32{0, 1})
	if err != nil {
		t.Fatalf("new server: %v", err)
	}
	h := scmi.Header{ProtocolID: scmi.ProtocolClock, MessageID: scmi.MsgClockRateGet, Token: 5}
	resp, err := srv.Inject(1, h, []byte{1, 0, 0, 0})
	if err != nil {
		t.Fatalf("inject: %v", err)
	}
	if len(resp) != 12 || binary.LittleEndian.Uint32(resp[4:]) != 74250000 {
		t.Fatalf("expected pll3_r rate 74250000, got %v", resp)
	}
	if _, err := srv.Inject(4, h, nil); !errors.Is(err, ErrUnknownAgent) {
		t.Fatalf("expected unknown agent, got %v", err)
	}
}
