package metrics

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Sink receives the process-wide counters. Components get it injected.
type Sink interface {
	IncESICalls()
	IncDiscordCalls()
	SetScoutData(n int)
}

// Nop discards every update.
type Nop struct{}

func (Nop) IncESICalls()     {}
func (Nop) IncDiscordCalls() {}
func (Nop) SetScoutData(int) {}

// Prometheus is the Sink backed by client_golang instruments.
type Prometheus struct {
	esiCalls     prometheus.Counter
	discordCalls prometheus.Counter
	scoutData    prometheus.Gauge

	gatherer prometheus.Gatherer
}

// Init registers the instruments on the global registry.
func Init() *Prometheus {
	return New(prometheus.DefaultRegisterer, prometheus.DefaultGatherer)
}

// New registers the instruments on reg; g is what the /metrics handler serves.
func New(reg prometheus.Registerer, g prometheus.Gatherer) *Prometheus {
	p := &Prometheus{
		esiCalls: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "esi_calls_total",
			Help: "Calls to the ESI API server.",
		}),
		discordCalls: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "discord_calls_total",
			Help: "Notifications dispatched to the Discord webhook.",
		}),
		scoutData: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "scout_data",
			Help: "Entries in the last EVE-Scout snapshot.",
		}),
		gatherer: g,
	}
	reg.MustRegister(p.esiCalls, p.discordCalls, p.scoutData)
	return p
}

func (p *Prometheus) IncESICalls()     { p.esiCalls.Inc() }
func (p *Prometheus) IncDiscordCalls() { p.discordCalls.Inc() }
func (p *Prometheus) SetScoutData(n int) {
	p.scoutData.Set(float64(n))
}

// Handler serves the registry in the Prometheus exposition format.
func (p *Prometheus) Handler() http.Handler {
	return promhttp.HandlerFor(p.gatherer, promhttp.HandlerOpts{})
}

// StartHTTPServer serves /metrics on addr (e.g. ":8000") in the background.
func (p *Prometheus) StartHTTPServer(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", p.Handler())

	srv := &http.Server{
		Addr:    addr,
		Handler: mux,
	}

	go func() {
		slog.Info("starting Prometheus metrics server", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("metrics server failed", "addr", addr, "err", err)
		}
	}()

	return srv
}
