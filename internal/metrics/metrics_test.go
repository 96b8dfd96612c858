package metrics

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRegisterIdempotentAndCountersWork(t *testing.T) {
	regOK.Store(false)
	reg := prometheus.NewRegistry()
	if err := Register(reg); err != nil {
		t.Fatalf("first register: %v", err)
	}
	// idempotent: calling again should be no-op
	if err := Register(reg); err != nil {
		t.Fatalf("second register: %v", err)
	}

	IncStart(false)
	IncStart(true)
	IncExpired()
	IncAction("snooze")
	IncAction("stop")
	ObserveWait(2)
	IncTermination(true)
	IncTermination(false)
	IncReaped(2)
	IncReaped(0)
	IncSinkError("start")

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	wantNames := map[string]bool{
		"bgtimer_timer_starts_total":         false,
		"bgtimer_timer_expirations_total":    false,
		"bgtimer_timer_actions_total":        false,
		"bgtimer_timer_wait_seconds":         false,
		"bgtimer_monitor_terminations_total": false,
		"bgtimer_monitor_reaped_total":       false,
		"bgtimer_history_sink_errors_total":  false,
	}
	for _, mf := range mfs {
		n := mf.GetName()
		if _, ok := wantNames[n]; ok {
			wantNames[n] = true
			if len(mf.GetMetric()) == 0 {
				t.Fatalf("metric %s has no samples", n)
			}
		}
	}
	for n, ok := range wantNames {
		if !ok {
			t.Fatalf("expected to find metric %s", n)
		}
	}
}

func TestActiveGauge(t *testing.T) {
	reg := prometheus.NewRegistry()
	n := 3.0
	if err := RegisterActiveGauge(reg, func() float64 { return n }); err != nil {
		t.Fatalf("register gauge: %v", err)
	}
	want := `
# HELP bgtimer_registry_active_timers Timers currently present in the registry.
# TYPE bgtimer_registry_active_timers gauge
bgtimer_registry_active_timers 3
`
	if err := testutil.GatherAndCompare(reg, strings.NewReader(want), "bgtimer_registry_active_timers"); err != nil {
		t.Fatal(err)
	}
	// a second gauge with the same name is tolerated
	if err := RegisterActiveGauge(reg, func() float64 { return 0 }); err != nil {
		t.Fatalf("re-register gauge: %v", err)
	}
}

func TestHandlerServesMetrics(t *testing.T) {
	// Reset regOK gate to allow registration in this test regardless of previous tests.
	regOK.Store(false)
	if err := Register(prometheus.DefaultRegisterer); err != nil {
		t.Fatal(err)
	}

	srv := httptest.NewServer(Handler())
	defer srv.Close()

	IncExpired()

	resp, err := http.Get(srv.URL)
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != 200 {
		t.Fatalf("status: %d", resp.StatusCode)
	}
	b, _ := io.ReadAll(resp.Body)
	s := string(b)
	if !strings.Contains(s, "bgtimer_timer_expirations_total") {
		t.Fatalf("metrics output missing expirations_total: %s", s[:min(200, len(s))])
	}
}

func TestConcurrentIncrements(t *testing.T) {
	regOK.Store(false)
	reg := prometheus.NewRegistry()
	if err := Register(reg); err != nil {
		t.Fatal(err)
	}
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			IncStart(false)
			IncAction("restart")
			IncTermination(true)
		}()
	}
	wg.Wait()
	if _, err := reg.Gather(); err != nil {
		t.Fatalf("gather: %v", err)
	}
}

func TestMetricsBeforeRegister(t *testing.T) {
	originalState := regOK.Load()
	regOK.Store(false)
	defer regOK.Store(originalState)

	// These should be no-ops and not panic when called before Register
	IncStart(true)
	IncExpired()
	IncAction("stop")
	ObserveWait(1)
	IncTermination(false)
	IncReaped(1)
	IncSinkError("stop")
}

func TestRegisterError(t *testing.T) {
	originalState := regOK.Load()
	regOK.Store(false)
	defer regOK.Store(originalState)

	err := Register(&errorRegisterer{shouldError: true})
	if err == nil {
		t.Fatal("Register should return error from failing registerer")
	}
	if err.Error() != "test registration error" {
		t.Fatalf("unexpected error: %v", err)
	}
	if regOK.Load() {
		t.Fatal("failed registration must leave helpers disabled")
	}
}

// Custom registerer for testing error handling
type errorRegisterer struct {
	shouldError bool
}

func (e *errorRegisterer) Register(prometheus.Collector) error {
	if e.shouldError {
		return errors.New("test registration error")
	}
	return nil
}

func (e *errorRegisterer) MustRegister(...prometheus.Collector) {}
func (e *errorRegisterer) Unregister(prometheus.Collector) bool { return false }
