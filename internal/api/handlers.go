package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"genealogy-compensation-go/internal/metrics"
	"genealogy-compensation-go/internal/store"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Handler serves the read-only JSON query API
type Handler struct {
	service *CompensationService
}

func NewHandler(service *CompensationService) *Handler {
	return &Handler{service: service}
}

// NewRouter returns a router with every query route. /metrics is mounted
// when enableMetrics is set.
func (h *Handler) NewRouter(enableMetrics bool) *mux.Router {
	r := mux.NewRouter()
	r.Use(instrument)

	r.HandleFunc("/healthz", h.HandleHealth).Methods(http.MethodGet)

	r.HandleFunc("/api/accounts/{id}", h.HandleAccount).Methods(http.MethodGet)
	r.HandleFunc("/api/accounts/{id}/children", h.HandleChildren).Methods(http.MethodGet)
	r.HandleFunc("/api/accounts/{id}/earnings", h.HandleEarnings).Methods(http.MethodGet)
	r.HandleFunc("/api/accounts/{id}/income", h.HandleIncome).Methods(http.MethodGet)
	r.HandleFunc("/api/accounts/{id}/pairings", h.HandlePairings).Methods(http.MethodGet)
	r.HandleFunc("/api/accounts/{id}/commissions", h.HandleCommissions).Methods(http.MethodGet)
	r.HandleFunc("/api/accounts/{id}/maintenance", h.HandleMaintenance).Methods(http.MethodGet)
	r.HandleFunc("/api/purchases/{id}/commissions", h.HandlePurchaseCommissions).Methods(http.MethodGet)

	if enableMetrics {
		r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)
	}

	return r
}

func (h *Handler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	if err := h.service.HealthCheck(r.Context()); err != nil {
		zap.L().Error("Health check failed", zap.Error(err))
		writeError(w, http.StatusServiceUnavailable, "unhealthy")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) HandleAccount(w http.ResponseWriter, r *http.Request) {
	view, err := h.service.GetAccount(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (h *Handler) HandleChildren(w http.ResponseWriter, r *http.Request) {
	children, err := h.service.GetChildren(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, children)
}

func (h *Handler) HandleEarnings(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	accountId := mux.Vars(r)["id"]

	// unknown accounts are a 404, not an empty summary
	if _, err := h.service.GetAccount(ctx, accountId); err != nil {
		writeServiceError(w, err)
		return
	}

	view, err := h.service.GetEarnings(ctx, accountId)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (h *Handler) HandleIncome(w http.ResponseWriter, r *http.Request) {
	limit, offset, err := parsePage(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	entries, err := h.service.GetIncomeHistory(r.Context(), mux.Vars(r)["id"], limit, offset)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

func (h *Handler) HandlePairings(w http.ResponseWriter, r *http.Request) {
	limit, offset, err := parsePage(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	entries, err := h.service.GetPairingHistory(r.Context(), mux.Vars(r)["id"], limit, offset)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

func (h *Handler) HandleCommissions(w http.ResponseWriter, r *http.Request) {
	limit, offset, err := parsePage(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	entries, err := h.service.GetCommissions(r.Context(), mux.Vars(r)["id"], limit, offset)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

func (h *Handler) HandleMaintenance(w http.ResponseWriter, r *http.Request) {
	status, err := h.service.GetMaintenance(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, status)
}

func (h *Handler) HandlePurchaseCommissions(w http.ResponseWriter, r *http.Request) {
	entries, err := h.service.GetPurchaseCommissions(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

func parsePage(r *http.Request) (int, int, error) {
	q := r.URL.Query()
	limit, offset := 0, 0
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return 0, 0, errors.New("limit must be an integer")
		}
		limit = n
	}
	if v := q.Get("offset"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return 0, 0, errors.New("offset must be an integer")
		}
		offset = n
	}
	return limit, offset, nil
}

// writeJSON writes a JSON response
func writeJSON(w http.ResponseWriter, statusCode int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(data)
}

// writeError writes an error response
func writeError(w http.ResponseWriter, statusCode int, message string) {
	writeJSON(w, statusCode, map[string]string{"error": message})
}

func writeServiceError(w http.ResponseWriter, err error) {
	if errors.Is(err, store.ErrAccountNotFound) {
		writeError(w, http.StatusNotFound, "account not found")
		return
	}
	zap.L().Error("Query failed", zap.Error(err))
	writeError(w, http.StatusInternalServerError, "internal error")
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// instrument records request counts and latencies labelled by route template
func instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		route := r.URL.Path
		if current := mux.CurrentRoute(r); current != nil {
			if tpl, err := current.GetPathTemplate(); err == nil {
				route = tpl
			}
		}

		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		metrics.HttpRequestsTotal.WithLabelValues(r.Method, route, strconv.Itoa(rec.status)).Inc()
		metrics.ResponseTimeHistogram.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}
