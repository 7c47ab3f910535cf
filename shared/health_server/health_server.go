package health_server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tp-distribuidos-2c2025/measurements/shared/middleware"
)

const component = "HealthServer"

// HealthServer exposes /health and the Prometheus /metrics endpoint while a
// run is in progress
type HealthServer struct {
	addr     string
	server   *http.Server
	listener net.Listener
	logger   *middleware.Logger
	wg       sync.WaitGroup
}

func NewHealthServer(addr string, gatherer prometheus.Gatherer, logger *middleware.Logger) *HealthServer {
	if logger == nil {
		logger = middleware.NopLogger()
	}
	hs := &HealthServer{addr: addr, logger: logger}

	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		fmt.Fprintln(w, "OK")
	})
	mux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	hs.server = &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 2 * time.Second,
	}
	return hs
}

// Handler returns the HTTP handler serving both endpoints
func (hs *HealthServer) Handler() http.Handler {
	return hs.server.Handler
}

func (hs *HealthServer) Start() error {
	listener, err := net.Listen("tcp", hs.addr)
	if err != nil {
		return fmt.Errorf("failed to start health server on %s: %w", hs.addr, err)
	}

	hs.listener = listener
	hs.logger.LogInfo(component, "Listening on %s", listener.Addr())

	hs.wg.Add(1)
	go func() {
		defer hs.wg.Done()
		if err := hs.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			hs.logger.LogError(component, "Serve failed: %v", err)
		}
	}()

	return nil
}

// Addr returns the bound address, or the configured one before Start
func (hs *HealthServer) Addr() string {
	if hs.listener != nil {
		return hs.listener.Addr().String()
	}
	return hs.addr
}

func (hs *HealthServer) Stop() {
	if hs.listener == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := hs.server.Shutdown(ctx); err != nil {
		hs.logger.LogWarn(component, "Shutdown: %v", err)
	}

	hs.wg.Wait()
	hs.logger.LogInfo(component, "Stopped")
}
