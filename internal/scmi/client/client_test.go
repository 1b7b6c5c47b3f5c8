package client

import (
	"context"
	"errors"
	"slices"
	"testing"

	"github.com/danmuck/scmictl/internal/config"
	"github.com/danmuck/scmictl/internal/platform"
	"github.com/danmuck/scmictl/internal/platform/sim"
	"github.com/danmuck/scmictl/internal/scmi"
	"github.com/danmuck/scmictl/internal/testutil/testlog"
)

func newLocalClient(t *testing.T, agent uint32) *Client {
	t.Helper()
	b := config.DefaultBoard()
	hw := sim.FromBoard(b, 1)
	p, err := platform.New(b, platform.Backends{Clocks: hw.Clocks, Resets: hw.Resets, PWR: hw.PWR, PMIC: hw.PMIC})
	if err != nil {
		t.Fatalf("platform: %v", err)
	}
	c, err := New(&Local{Server: scmi.NewServer(p), AgentID: agent})
	if err != nil {
		t.Fatalf("client: %v", err)
	}
	return c
}

func TestDiscoverBase(t *testing.T) {
	testlog.Start(t)
	c := newLocalClient(t, 0)
	info, err := c.DiscoverBase(context.Background())
	if err != nil {
		t.Fatalf("discover: %v", err)
	}
	if info.Vendor != "ST" || info.SubVendor != "" || info.ProtocolCount != 3 {
		t.Fatalf("unexpected base info %+v", info)
	}
	want := []scmi.ProtocolID{scmi.ProtocolClock, scmi.ProtocolResetDomain, scmi.ProtocolVoltageDomain}
	if !slices.Equal(info.Protocols, want) {
		t.Fatalf("expected protocols %v, got %v", want, info.Protocols)
	}
}

func TestClockCalls(t *testing.T) {
	testlog.Start(t)
	c := newLocalClient(t, 0)
	ctx := context.Background()

	rate, err := c.ClockRate(ctx, 0)
	if err != nil || rate != 24000000 {
		t.Fatalf("expected 24000000, got %d (%v)", rate, err)
	}
	rates, err := c.ClockRates(ctx, 1)
	if err != nil || !slices.Equal(rates, []uint64{64000000}) {
		t.Fatalf("expected single rate 64000000, got %v (%v)", rates, err)
	}
	if err := c.SetClockState(ctx, 12, true); err != nil {
		t.Fatalf("enable hash1: %v", err)
	}
	info, err := c.ClockAttributes(ctx, 12)
	if err != nil || info.Name != "hash1" || !info.Enabled {
		t.Fatalf("expected hash1 enabled, got %+v (%v)", info, err)
	}
	if err := c.SetClockRate(ctx, 0, 12000000); !IsStatus(err, scmi.StatusNotSupported) {
		t.Fatalf("expected NOT_SUPPORTED rate set, got %v", err)
	}
	_, err = c.ClockAttributes(ctx, 21)
	var se *StatusError
	if !errors.As(err, &se) || se.Status != scmi.StatusNotFound {
		t.Fatalf("expected NOT_FOUND status error, got %v", err)
	}
}

func TestResetCalls(t *testing.T) {
	testlog.Start(t)
	c := newLocalClient(t, 0)
	ctx := context.Background()

	n, err := c.ResetDomainCount(ctx)
	if err != nil || n != 12 {
		t.Fatalf("expected 12 reset domains, got %d (%v)", n, err)
	}
	if err := c.CycleReset(ctx, 3); err != nil {
		t.Fatalf("cycle usart1: %v", err)
	}
	if err := c.CycleReset(ctx, 11); !IsStatus(err, scmi.StatusNotSupported) {
		t.Fatalf("expected NOT_SUPPORTED on hold boot cycle, got %v", err)
	}
	if err := c.SetResetState(ctx, 11, true); err != nil {
		t.Fatalf("hold boot: %v", err)
	}
	if err := c.Reset(ctx, 12, scmi.ResetFlagExplicit, 0); !IsStatus(err, scmi.StatusInvalidParameters) {
		t.Fatalf("expected INVALID_PARAMETERS one past the count, got %v", err)
	}
}

func TestVoltageCalls(t *testing.T) {
	testlog.Start(t)
	ctx := context.Background()

	linux := newLocalClient(t, 0)
	levels, err := linux.DescribeLevels(ctx, 0)
	if err != nil || levels.Range == nil || *levels.Range != (scmi.LevelRange{Min: 1100000, Max: 1100000}) {
		t.Fatalf("expected fixed 1100000 triplet, got %+v (%v)", levels, err)
	}

	pmic := newLocalClient(t, 2)
	levels, err = pmic.DescribeLevels(ctx, 0)
	if err != nil || len(levels.Levels) != 32 || levels.Range != nil {
		t.Fatalf("expected 32 paginated buck1 levels, got %d (%v)", len(levels.Levels), err)
	}
	if levels.Levels[0] != 725000 || levels.Levels[31] != 1500000 {
		t.Fatalf("expected 725000..1500000, got %d..%d", levels.Levels[0], levels.Levels[31])
	}
	if err := pmic.SetVoltageLevel(ctx, 0, 1100000); err != nil {
		t.Fatalf("set level: %v", err)
	}
	if uv, err := pmic.VoltageLevel(ctx, 0); err != nil || uv != 1100000 {
		t.Fatalf("expected 1100000, got %d (%v)", uv, err)
	}
	if err := pmic.SetVoltageConfig(ctx, 9, scmi.VoltageConfigArchOn); err != nil {
		t.Fatalf("enable ldo6: %v", err)
	}
	if cfg, err := pmic.VoltageConfig(ctx, 9); err != nil || cfg != scmi.VoltageConfigArchOn {
		t.Fatalf("expected ldo6 on, got %#x (%v)", cfg, err)
	}
}

func TestMessageSupported(t *testing.T) {
	testlog.Start(t)
	c := newLocalClient(t, 1)
	ok, err := c.MessageSupported(context.Background(), scmi.ProtocolClock, uint32(scmi.MsgClockConfigSet))
	if err != nil || !ok {
		t.Fatalf("expected CLOCK_CONFIG_SET supported, got %v (%v)", ok, err)
	}
	ok, err = c.MessageSupported(context.Background(), scmi.ProtocolClock, 0x20)
	if err != nil || ok {
		t.Fatalf("expected message 0x20 unsupported, got %v (%v)", ok, err)
	}
}

func TestLocalHonorsCanceledContext(t *testing.T) {
	c := newLocalClient(t, 0)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := c.ClockRate(ctx, 0); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestNewRejectsNilTransport(t *testing.T) {
	if _, err := New(nil); !errors.Is(err, ErrNilTransport) {
		t.Fatalf("expected ErrNilTransport, got %v", err)
	}
}
