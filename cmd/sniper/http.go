package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"post-sniper/internal/domain"
	"post-sniper/internal/monitor"
	"post-sniper/internal/observability"
	"post-sniper/internal/reporting"
	"post-sniper/internal/storage"
)

// httpAPI serves the read-only operator endpoints.
type httpAPI struct {
	started   time.Time
	status    func() monitor.Status
	positions func() []domain.Position
	reports   *reporting.Generator
	trades    storage.TradeRecordStore
	checks    []healthCheck
	logger    *logrus.Entry
}

// healthCheckTimeout bounds each dependency check behind /health.
const healthCheckTimeout = 3 * time.Second

// healthCheck is a named liveness check of an upstream dependency.
type healthCheck struct {
	name  string
	check func(ctx context.Context) error
}

// StatusResponse is the JSON response for /status.
type StatusResponse struct {
	Status        string         `json:"status"`
	Uptime        string         `json:"uptime"`
	Started       time.Time      `json:"started"`
	Monitor       monitor.Status `json:"monitor"`
	OpenPositions int            `json:"open_positions"`
}

func newHTTPServer(port int, a *app) *http.Server {
	api := &httpAPI{
		started:   time.Now(),
		status:    a.scheduler.Status,
		positions: a.tracker.Positions,
		reports:   a.reports,
		trades:    a.stores.trades,
		logger:    a.log.WithField("component", "http"),
	}
	if a.chains != nil {
		api.checks = a.chains.checks
	}
	return &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           api.routes(),
		ReadHeaderTimeout: 5 * time.Second,
	}
}

func (h *httpAPI) routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", h.handleHealth)
	mux.Handle("/metrics", observability.Handler())
	mux.HandleFunc("/status", h.handleStatus)
	mux.HandleFunc("/positions", h.handlePositions)
	mux.HandleFunc("/report", h.handleReport)
	mux.HandleFunc("/trades.csv", h.handleTradesCSV)
	return mux
}

// handleHealth runs every dependency check and answers 503 naming the failures.
func (h *httpAPI) handleHealth(w http.ResponseWriter, r *http.Request) {
	var failed []string
	for _, c := range h.checks {
		ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
		err := c.check(ctx)
		cancel()
		if err != nil {
			h.logger.WithError(err).WithField("check", c.name).Warn("health check failed")
			failed = append(failed, c.name+": "+err.Error())
		}
	}
	if len(failed) > 0 {
		http.Error(w, "unhealthy\n"+strings.Join(failed, "\n"), http.StatusServiceUnavailable)
		return
	}
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

func (h *httpAPI) handleStatus(w http.ResponseWriter, r *http.Request) {
	st := h.status()
	resp := StatusResponse{
		Status:        string(st.State),
		Uptime:        time.Since(h.started).Truncate(time.Second).String(),
		Started:       h.started,
		Monitor:       st,
		OpenPositions: len(h.positions()),
	}
	writeJSON(w, resp)
}

func (h *httpAPI) handlePositions(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, reporting.BuildPortfolio(h.positions()))
}

func (h *httpAPI) handleReport(w http.ResponseWriter, r *http.Request) {
	rep, err := h.reports.Generate(r.Context())
	if err != nil {
		h.fail(w, "generate report", err)
		return
	}
	w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
	w.Write([]byte(reporting.RenderMarkdown(rep)))
}

func (h *httpAPI) handleTradesCSV(w http.ResponseWriter, r *http.Request) {
	trades, err := h.trades.List(r.Context(), 0)
	if err != nil {
		h.fail(w, "list trades", err)
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Write([]byte(reporting.RenderTradesCSV(trades)))
}

func (h *httpAPI) fail(w http.ResponseWriter, what string, err error) {
	h.logger.WithError(err).Warn(what + " failed")
	http.Error(w, what+": "+err.Error(), http.StatusInternalServerError)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}
