package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserveDelivery(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.ObserveDelivery("message_edit", time.Now(), nil)
	m.ObserveDelivery("message_edit", time.Now(), errors.New("missing access"))
	m.ObserveDelivery("message_edit", time.Now(), nil)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.Delivered.WithLabelValues("message_edit")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.DeliveryFailures.WithLabelValues("message_edit")))
}

func TestObserveCorrelation(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.ObserveCorrelation(true)
	m.ObserveCorrelation(false)
	m.ObserveCorrelation(false)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.Correlations.WithLabelValues("hit")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.Correlations.WithLabelValues("miss")))
}

func TestRouter(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)
	m.IncrementHandled("user_join")

	server := httptest.NewServer(NewRouter(reg))
	defer server.Close()

	resp, err := http.Get(server.URL + "/healthz")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	recorder := httptest.NewRecorder()
	NewRouter(reg).ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, recorder.Code)
	assert.True(t, strings.Contains(recorder.Body.String(), `spice_modlog_events_handled_total{kind="user_join"} 1`))
}
