package daemon

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/danmuck/scmictl/internal/config"
	"github.com/danmuck/scmictl/internal/doorbell"
	"github.com/danmuck/scmictl/internal/scmi"
	"github.com/danmuck/scmictl/internal/scmi/client"
	"github.com/danmuck/scmictl/internal/testutil/testlog"
)

func TestServiceServesAgentsOverDoorbell(t *testing.T) {
	testlog.Start(t)

	cfg := DefaultServiceConfig()
	cfg.AdminEnabled = false
	cfg.DoorbellToken = "bell"
	svc, err := NewService(cfg)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- svc.Serve(ctx, ln) }()
	defer func() {
		cancel()
		if err := <-done; err != nil {
			t.Fatalf("serve: %v", err)
		}
		if svc.Ready() {
			t.Fatalf("expected not ready after shutdown")
		}
	}()

	dcfg := doorbell.DefaultConfig()
	dcfg.MaxConnectAttempts = 3
	dialCtx, dialCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer dialCancel()
	bell, err := doorbell.Dial(dialCtx, ln.Addr().String(), 2, dcfg, doorbell.WithToken("bell"))
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer bell.Close()

	pmic, err := client.New(bell)
	if err != nil {
		t.Fatalf("client: %v", err)
	}
	count, err := pmic.VoltageDomainCount(dialCtx)
	if err != nil {
		t.Fatalf("voltage count: %v", err)
	}
	if count != 14 {
		t.Fatalf("expected 14 pmic domains, got %d", count)
	}
	protocols, err := pmic.ListProtocols(dialCtx)
	if err != nil {
		t.Fatalf("list protocols: %v", err)
	}
	if len(protocols) != 1 || protocols[0] != scmi.ProtocolVoltageDomain {
		t.Fatalf("expected voltage only, got %v", protocols)
	}
	if !svc.Ready() {
		t.Fatalf("expected ready while serving")
	}
}

func TestNewServiceRejectsMissingBoard(t *testing.T) {
	cfg := DefaultServiceConfig()
	cfg.BoardPath = t.TempDir() + "/missing.toml"
	if _, err := NewService(cfg); err == nil {
		t.Fatalf("expected missing board error")
	}
}

func TestNewServiceRejectsInvalidBoard(t *testing.T) {
	b := config.DefaultBoard()
	b.Agents[1].ID = 7
	if _, err := newService(DefaultServiceConfig(), b); err == nil {
		t.Fatalf("expected sparse agent ids rejected")
	}
}
