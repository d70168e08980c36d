package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	DispatchesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "clburn_dispatches_total",
		Help: "The total number of completed kernel dispatches per device",
	}, []string{"device"})

	WorkersRunning = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "clburn_workers_running",
		Help: "Number of device workers currently generating load",
	})
)

// Serve exposes the Prometheus endpoint on addr and blocks.
func Serve(addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	return http.ListenAndServe(addr, mux)
}
