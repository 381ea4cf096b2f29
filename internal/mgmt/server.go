// Package mgmt exposes the runtime control surface of the monitoring
// engine: inspecting cluster tables, tuning thresholds, resetting
// measurement periods and scraping metrics.
package mgmt

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"

	"NetFocus/internal/engine/impl/ratemon"
	"NetFocus/internal/metrics"
	"NetFocus/internal/model"

	"github.com/gorilla/mux"
)

// APIHandler holds the dependencies for the management API handlers.
type APIHandler struct {
	monitors map[string]model.Monitor
	order    []string
	metrics  *metrics.Metrics
}

// NewAPIHandler creates a handler set over the given monitors. Listing
// endpoints report monitors in the given order.
func NewAPIHandler(monitors []model.Monitor, mts *metrics.Metrics) *APIHandler {
	byName := make(map[string]model.Monitor, len(monitors))
	order := make([]string, 0, len(monitors))
	for _, m := range monitors {
		byName[m.Name()] = m
		order = append(order, m.Name())
	}
	return &APIHandler{monitors: byName, order: order, metrics: mts}
}

// Router builds the management route table.
func (h *APIHandler) Router() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/api/v1/monitors", h.listMonitorsHandler).Methods("GET")
	r.HandleFunc("/api/v1/monitors/{name}/look", h.lookHandler).Methods("GET")
	r.HandleFunc("/api/v1/monitors/{name}/thresh", h.getThreshHandler).Methods("GET")
	r.HandleFunc("/api/v1/monitors/{name}/thresh", h.setThreshHandler).Methods("PUT")
	r.HandleFunc("/api/v1/monitors/{name}/reset", h.resetHandler).Methods("POST")
	r.HandleFunc("/api/v1/monitors/{name}/since", h.sinceHandler).Methods("GET")
	if h.metrics != nil {
		r.Handle("/metrics", h.metrics.Handler()).Methods("GET")
	}
	return r
}

func (h *APIHandler) monitor(w http.ResponseWriter, r *http.Request) (model.Monitor, bool) {
	name := mux.Vars(r)["name"]
	m, ok := h.monitors[name]
	if !ok {
		http.Error(w, fmt.Sprintf("unknown monitor %q", name), http.StatusNotFound)
		return nil, false
	}
	return m, true
}

type monitorSummary struct {
	Name         string  `json:"name"`
	Threshold    int32   `json:"threshold"`
	SinceSeconds float64 `json:"since_seconds"`
}

// listMonitorsHandler reports every monitor with its current threshold and
// measurement period age.
func (h *APIHandler) listMonitorsHandler(w http.ResponseWriter, r *http.Request) {
	summaries := make([]monitorSummary, 0, len(h.order))
	for _, name := range h.order {
		m := h.monitors[name]
		summaries = append(summaries, monitorSummary{
			Name:         m.Name(),
			Threshold:    m.Threshold(),
			SinceSeconds: m.SinceReset().Seconds(),
		})
	}
	writeJSON(w, summaries)
}

// lookHandler dumps the cluster table as plain text, one line per leaf
// cluster.
func (h *APIHandler) lookHandler(w http.ResponseWriter, r *http.Request) {
	m, ok := h.monitor(w, r)
	if !ok {
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	io.WriteString(w, m.Inspect())
}

type threshPayload struct {
	Threshold int32 `json:"threshold"`
}

func (h *APIHandler) getThreshHandler(w http.ResponseWriter, r *http.Request) {
	m, ok := h.monitor(w, r)
	if !ok {
		return
	}
	writeJSON(w, threshPayload{Threshold: m.Threshold()})
}

func (h *APIHandler) setThreshHandler(w http.ResponseWriter, r *http.Request) {
	m, ok := h.monitor(w, r)
	if !ok {
		return
	}

	var req threshPayload
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, fmt.Sprintf("failed to decode request: %v", err), http.StatusBadRequest)
		return
	}
	if req.Threshold < 0 {
		http.Error(w, fmt.Sprintf("threshold must not be negative, got %d", req.Threshold), http.StatusBadRequest)
		return
	}

	m.SetThreshold(req.Threshold)
	log.Printf("Monitor '%s' threshold set to %d", m.Name(), req.Threshold)
	writeJSON(w, threshPayload{Threshold: m.Threshold()})
}

type resetPayload struct {
	Baseline int64 `json:"baseline"`
}

// resetHandler starts a new measurement period. The optional body selects a
// non-zero baseline every cluster is rewound to.
func (h *APIHandler) resetHandler(w http.ResponseWriter, r *http.Request) {
	m, ok := h.monitor(w, r)
	if !ok {
		return
	}

	var req resetPayload
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && err != io.EOF {
		http.Error(w, fmt.Sprintf("failed to decode request: %v", err), http.StatusBadRequest)
		return
	}

	if err := m.Reset(req.Baseline); err != nil {
		var inputErr *ratemon.InputError
		if errors.As(err, &inputErr) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	log.Printf("Monitor '%s' reset to baseline %d", m.Name(), req.Baseline)
	writeJSON(w, resetPayload{Baseline: req.Baseline})
}

type sincePayload struct {
	SinceSeconds float64 `json:"since_seconds"`
}

func (h *APIHandler) sinceHandler(w http.ResponseWriter, r *http.Request) {
	m, ok := h.monitor(w, r)
	if !ok {
		return
	}
	writeJSON(w, sincePayload{SinceSeconds: m.SinceReset().Seconds()})
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("Error encoding response: %v", err)
	}
}
