package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/hazyhaar/actrec/action"
)

func TestCounters(t *testing.T) {
	m := New()

	m.ObserveAction(action.Action{Type: action.Click})
	m.ObserveAction(action.Action{Type: action.Click})
	m.ObserveAction(action.Action{Type: action.Scroll})
	m.SessionStarted()
	m.SessionStarted()
	m.SessionStopped(3 * time.Second)
	m.SinkFailed()

	if got := testutil.ToFloat64(m.ActionsCaptured.WithLabelValues("click")); got != 2 {
		t.Errorf("click: got %v", got)
	}
	if got := testutil.ToFloat64(m.ActionsCaptured.WithLabelValues("scroll")); got != 1 {
		t.Errorf("scroll: got %v", got)
	}
	if got := testutil.ToFloat64(m.SessionsActive); got != 1 {
		t.Errorf("active: got %v", got)
	}
	if got := testutil.ToFloat64(m.SessionsStopped); got != 1 {
		t.Errorf("stopped: got %v", got)
	}
	if got := testutil.ToFloat64(m.SinkFailures); got != 1 {
		t.Errorf("sink failures: got %v", got)
	}
}

func TestInstancesIndependent(t *testing.T) {
	a, b := New(), New()
	a.SessionStarted()
	if got := testutil.ToFloat64(b.SessionsStarted); got != 0 {
		t.Errorf("instances share state: %v", got)
	}
}

func TestHandler(t *testing.T) {
	m := New()
	m.ObserveAction(action.Action{Type: action.Keydown})

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, _ := io.ReadAll(rec.Body)
	if !strings.Contains(string(body), `actrec_actions_captured_total{type="keydown"} 1`) {
		t.Errorf("exposition missing counter:\n%s", body)
	}
}
