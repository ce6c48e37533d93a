package minismtp

import (
	"context"
	"net/http"

	"blitiri.com.ar/go/log"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/net/trace"
)

// monitoringServer is the optional HTTP endpoint started when
// Config.MonitoringAddr is set. Grounded on chasquid's monitoring.go,
// trimmed to the handlers an embeddable library can usefully expose
// without also owning the embedder's flag/config surface: live traces and
// event logs of in-flight sessions (/debug/requests and /debug/events from
// golang.org/x/net/trace, the same package internal/trace already wraps
// for per-connection tracing) and Prometheus metrics (/metrics).
type monitoringServer struct {
	httpSrv *http.Server
}

func startMonitoringServer(addr string) *monitoringServer {
	mux := http.NewServeMux()
	mux.HandleFunc("/debug/requests", trace.Traces)
	mux.HandleFunc("/debug/events", trace.Events)
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{Addr: addr, Handler: mux}
	ms := &monitoringServer{httpSrv: srv}

	go func() {
		log.Infof("minismtp: monitoring HTTP server listening on %s", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Errorf("minismtp: monitoring server failed: %v", err)
		}
	}()

	return ms
}

func (m *monitoringServer) Close() {
	_ = m.httpSrv.Shutdown(context.Background())
}
