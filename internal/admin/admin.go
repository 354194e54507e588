// Package admin serves a small HTTP surface alongside the TCP listener:
// /healthz (process and host statistics, in the spirit of the teacher's
// INFO command) and /metrics (Prometheus).
package admin

import (
	"encoding/json"
	"net/http"
	"os"
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shirou/gopsutil/v4/mem"

	"github.com/kdurus/durusd/internal/dlog"
	"github.com/kdurus/durusd/internal/registry"
)

// Health is the /healthz response body.
type Health struct {
	Status       string    `json:"status"`
	PID          int       `json:"pid"`
	StartedAt    time.Time `json:"started_at"`
	UptimeSecs   float64   `json:"uptime_seconds"`
	Goroutines   int       `json:"goroutines"`
	HostMemTotal uint64    `json:"host_mem_total_bytes"`
	HostMemUsed  uint64    `json:"host_mem_used_bytes"`
	OpenDBs      []string  `json:"open_databases"`
}

// Server is the admin HTTP server.
type Server struct {
	reg       *registry.Registry
	startedAt time.Time
	http      *http.Server
}

// New builds an admin server bound to addr, reporting on reg.
func New(addr string, reg *registry.Registry) *Server {
	s := &Server{reg: reg, startedAt: time.Now()}
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", s.handleHealthz)
	mux.Handle("/metrics", promhttp.Handler())
	s.http = &http.Server{Addr: addr, Handler: mux}
	return s
}

// ListenAndServe blocks serving the admin endpoints until Close.
func (s *Server) ListenAndServe() error {
	log := dlog.WithComponent("admin")
	log.Info().Str("addr", s.http.Addr).Msg("admin http listening")
	err := s.http.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Close shuts down the admin HTTP server.
func (s *Server) Close() error {
	return s.http.Close()
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	h := Health{
		Status:     "ok",
		PID:        os.Getpid(),
		StartedAt:  s.startedAt,
		UptimeSecs: time.Since(s.startedAt).Seconds(),
		Goroutines: runtime.NumGoroutine(),
		OpenDBs:    s.reg.NamesOpen(),
	}
	if vm, err := mem.VirtualMemory(); err == nil {
		h.HostMemTotal = vm.Total
		h.HostMemUsed = vm.Used
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(h)
}
