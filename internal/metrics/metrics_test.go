package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrometheusSink(t *testing.T) {
	reg := prometheus.NewRegistry()
	p := New(reg, reg)

	p.IncESICalls()
	p.IncESICalls()
	p.IncDiscordCalls()
	p.SetScoutData(12)
	p.SetScoutData(3)

	assert.Equal(t, 2.0, testutil.ToFloat64(p.esiCalls))
	assert.Equal(t, 1.0, testutil.ToFloat64(p.discordCalls))
	assert.Equal(t, 3.0, testutil.ToFloat64(p.scoutData), "gauge is overwritten, not accumulated")
}

func TestPrometheusHandler(t *testing.T) {
	reg := prometheus.NewRegistry()
	p := New(reg, reg)
	p.IncESICalls()
	p.SetScoutData(7)

	srv := httptest.NewServer(p.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "esi_calls_total 1")
	assert.Contains(t, string(body), "discord_calls_total 0")
	assert.Contains(t, string(body), "scout_data 7")
}
