package observability

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/danmuck/scmictl/internal/doorbell"
	"github.com/danmuck/scmictl/internal/scmi"
	"github.com/danmuck/scmictl/internal/testutil/testlog"
)

func TestRegisterMetricsAndRecordersAreSafe(t *testing.T) {
	testlog.Start(t)

	RegisterMetrics()
	RegisterMetrics()

	RecordHTTPRequest("scmid", "GET", "/health", 200, 12*time.Millisecond)
	m := Metrics{}
	m.ObserveDispatch(0, scmi.ProtocolClock, scmi.MsgClockRateGet, scmi.StatusSuccess, 3*time.Microsecond)
	m.ObserveFrame(1, doorbell.KindRequest, "ok")
}

func TestDispatchCounterLabels(t *testing.T) {
	testlog.Start(t)

	m := Metrics{}
	c := dispatchMessages.WithLabelValues("7", "reset", "4", "DENIED")
	before := testutil.ToFloat64(c)
	m.ObserveDispatch(7, scmi.ProtocolResetDomain, scmi.MsgResetDomainRequest, scmi.StatusDenied, time.Microsecond)
	m.ObserveDispatch(7, scmi.ProtocolResetDomain, scmi.MsgResetDomainRequest, scmi.StatusDenied, time.Microsecond)
	if got := testutil.ToFloat64(c) - before; got != 2 {
		t.Fatalf("expected 2 increments, got %v", got)
	}

	f := doorbellFrames.WithLabelValues("3", "request", "unauthorized")
	before = testutil.ToFloat64(f)
	m.ObserveFrame(3, doorbell.KindRequest, "unauthorized")
	if got := testutil.ToFloat64(f) - before; got != 1 {
		t.Fatalf("expected 1 frame, got %v", got)
	}
}
