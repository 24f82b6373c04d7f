package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func getCounterVecValue(cv *prometheus.CounterVec, labels ...string) float64 {
	m := &dto.Metric{}
	if err := cv.WithLabelValues(labels...).Write(m); err != nil {
		return 0
	}
	return m.GetCounter().GetValue()
}

func getCounterValue(c prometheus.Counter) float64 {
	m := &dto.Metric{}
	if err := c.Write(m); err != nil {
		return 0
	}
	return m.GetCounter().GetValue()
}

func getHistogramCount(h prometheus.Histogram) uint64 {
	m := &dto.Metric{}
	if err := h.Write(m); err != nil {
		return 0
	}
	return m.GetHistogram().GetSampleCount()
}

func TestRecordLogin(t *testing.T) {
	before := getCounterVecValue(LoginsTotal, OutcomeFailure)
	RecordLogin(OutcomeFailure)
	RecordLogin(OutcomeFailure)

	if got := getCounterVecValue(LoginsTotal, OutcomeFailure); got != before+2 {
		t.Errorf("LoginsTotal{failure} = %f, want %f", got, before+2)
	}
}

func TestRecordValidation(t *testing.T) {
	before := getCounterVecValue(SessionValidationsTotal, OutcomeExpired)
	RecordValidation(OutcomeExpired)

	if got := getCounterVecValue(SessionValidationsTotal, OutcomeExpired); got != before+1 {
		t.Errorf("SessionValidationsTotal{expired} = %f, want %f", got, before+1)
	}
}

func TestRecordRevokedAndSwept(t *testing.T) {
	revoked := getCounterValue(SessionsRevokedTotal)
	swept := getCounterValue(SessionsSweptTotal)

	RecordRevoked(3)
	RecordRevoked(0)
	RecordSwept(2)
	RecordSwept(-1)

	if got := getCounterValue(SessionsRevokedTotal); got != revoked+3 {
		t.Errorf("SessionsRevokedTotal = %f, want %f", got, revoked+3)
	}
	if got := getCounterValue(SessionsSweptTotal); got != swept+2 {
		t.Errorf("SessionsSweptTotal = %f, want %f", got, swept+2)
	}
}

func TestObservePasswordHash(t *testing.T) {
	before := getHistogramCount(PasswordHashSeconds)
	ObservePasswordHash(time.Now().Add(-50 * time.Millisecond))

	if got := getHistogramCount(PasswordHashSeconds); got != before+1 {
		t.Errorf("PasswordHashSeconds count = %d, want %d", got, before+1)
	}
}

func TestHandler(t *testing.T) {
	RecordLogin(OutcomeSuccess)

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, _ := io.ReadAll(rec.Body) //nolint:errcheck // recorder body
	for _, name := range []string{"cse362_logins_total", "go_goroutines"} {
		if !strings.Contains(string(body), name) {
			t.Errorf("exposition missing %s", name)
		}
	}
}
