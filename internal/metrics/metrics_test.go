package metrics

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogin(t *testing.T) {
	m := New(nil)

	m.Login(MethodPassword, nil)
	m.Login(MethodPassword, errors.New("bad password"))
	m.Login(MethodXYSSO, nil)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.LoginsTotal.WithLabelValues(MethodPassword, ResultSuccess)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.LoginsTotal.WithLabelValues(MethodPassword, ResultFailure)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.TokensIssuedTotal.WithLabelValues(MethodPassword)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.TokensIssuedTotal.WithLabelValues(MethodXYSSO)))
}

func TestLogin_NilMetrics(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() { m.Login(MethodPassword, nil) })
}

func TestHandler(t *testing.T) {
	m := New(nil)
	m.HTTPRequestsTotal.WithLabelValues("GET", "/health", "200").Inc()

	srv := httptest.NewServer(m.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `qual_http_requests_total{method="GET",path="/health",status="200"} 1`)
	assert.Contains(t, string(body), "go_goroutines")
}
