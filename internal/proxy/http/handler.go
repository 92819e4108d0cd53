package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/JulianoL13/proxy-rotator/internal/common/logs"
	"github.com/JulianoL13/proxy-rotator/internal/proxy"
	"github.com/go-chi/chi/v5"
)

// Service is what the handler needs from the proxy manager.
type Service interface {
	Current() (*proxy.Proxy, bool)
	Rotate() (*proxy.Proxy, bool)
	Snapshot(filter proxy.FilterOptions) []*proxy.Proxy
	PoolSize() int
	Report(ctx context.Context, address string, success bool) error
	State() proxy.State
}

type Handler struct {
	service Service
	logger  logs.Logger
}

func NewHandler(service Service, logger logs.Logger) *Handler {
	return &Handler{
		service: service,
		logger:  logger,
	}
}

// ProxyResponse is the JSON representation of a proxy
type ProxyResponse struct {
	Address   string  `json:"address"`
	Protocol  string  `json:"protocol"`
	Anonymity string  `json:"anonymity"`
	Country   string  `json:"country,omitempty"`
	LatencyMS *int64  `json:"latency_ms"`
	Uptime    float64 `json:"uptime"`
	Source    string  `json:"source"`
}

type HealthResponse struct {
	Status   string `json:"status"`
	State    string `json:"state"`
	PoolSize int    `json:"pool_size"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func toResponse(p *proxy.Proxy) ProxyResponse {
	resp := ProxyResponse{
		Address:   p.Address(),
		Protocol:  string(p.Protocol),
		Anonymity: string(p.Anonymity),
		Country:   p.Country,
		Uptime:    p.Uptime(),
		Source:    p.Source,
	}
	if latency, ok := p.Latency(); ok {
		ms := latency.Milliseconds()
		resp.LatencyMS = &ms
	}
	return resp
}

func parseFilters(r *http.Request) (proxy.FilterOptions, error) {
	f := proxy.FilterOptions{}
	q := r.URL.Query()

	if v := q.Get("protocol"); v != "" {
		f.Protocol = string(proxy.ProtocolFromString(v))
	}
	if v := q.Get("anonymity"); v != "" {
		f.Anonymity = string(proxy.AnonymityLevelFromString(v))
	}

	if ms := q.Get("max_latency_ms"); ms != "" {
		val, err := strconv.ParseInt(ms, 10, 64)
		if err != nil || val < 0 {
			return f, errors.New("max_latency_ms must be a non-negative integer")
		}
		f.MaxLatency = time.Duration(val) * time.Millisecond
	}

	return f, nil
}

func (h *Handler) requestLogger(r *http.Request) logs.Logger {
	if l := LoggerFromContext(r.Context()); l != nil {
		return l
	}
	return h.logger
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

// Health returns service health status
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{
		Status:   "ok",
		State:    h.service.State().String(),
		PoolSize: h.service.PoolSize(),
	})
}

// GetProxies returns the validated pool.
// Query params: protocol, anonymity, max_latency_ms
func (h *Handler) GetProxies(w http.ResponseWriter, r *http.Request) {
	filters, err := parseFilters(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	proxies := h.service.Snapshot(filters)

	response := make([]ProxyResponse, len(proxies))
	for i, p := range proxies {
		response[i] = toResponse(p)
	}

	writeJSON(w, http.StatusOK, response)
}

// GetCurrent returns the proxy callers should use right now.
func (h *Handler) GetCurrent(w http.ResponseWriter, r *http.Request) {
	p, ok := h.service.Current()
	if !ok {
		writeError(w, http.StatusNotFound, proxy.ErrPoolEmpty.Error())
		return
	}
	writeJSON(w, http.StatusOK, toResponse(p))
}

// Rotate picks a new current proxy.
func (h *Handler) Rotate(w http.ResponseWriter, r *http.Request) {
	p, ok := h.service.Rotate()
	if !ok {
		writeError(w, http.StatusNotFound, proxy.ErrPoolEmpty.Error())
		return
	}
	writeJSON(w, http.StatusOK, toResponse(p))
}

// ReportOutcome records a caller-observed success or failure.
// Query params: success (bool, required)
func (h *Handler) ReportOutcome(w http.ResponseWriter, r *http.Request) {
	address := chi.URLParam(r, "address")

	success, err := strconv.ParseBool(r.URL.Query().Get("success"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "success must be a boolean")
		return
	}

	if err := h.service.Report(r.Context(), address, success); err != nil {
		if errors.Is(err, proxy.ErrNotFound) {
			writeError(w, http.StatusNotFound, "proxy not found")
			return
		}
		h.requestLogger(r).Error("failed to record outcome", "address", address, "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
