package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/azure/reddit-mentions-listener/internal/export"
	"github.com/azure/reddit-mentions-listener/internal/monitoring"
	"github.com/azure/reddit-mentions-listener/internal/sources"
	"github.com/azure/reddit-mentions-listener/internal/storage"
)

const dateLayout = "2006-01-02"

// mentionService is the part of monitoring.Service the HTTP API uses
type mentionService interface {
	RunQuery(ctx context.Context, req monitoring.QueryRequest) (*monitoring.QueryResult, error)
	RunAllWatches(ctx context.Context) error
	ListReports(watchName string) ([]string, error)
	GetReport(name string) ([]byte, error)
	GetMetrics() string
}

// newRouter builds the HTTP API. Manual watch runs started through /trigger
// live as long as ctx.
func newRouter(ctx context.Context, svc mentionService) *mux.Router {
	router := mux.NewRouter()
	trigger := &watchTrigger{ctx: ctx, svc: svc}

	router.HandleFunc("/health", healthCheckHandler).Methods("GET")
	router.HandleFunc("/metrics", metricsHandler(svc)).Methods("GET")
	router.HandleFunc("/api/mentions", mentionsHandler(svc)).Methods("GET")
	router.HandleFunc("/api/mentions.csv", mentionsCSVHandler(svc)).Methods("GET")
	router.HandleFunc("/api/reports", reportsHandler(svc)).Methods("GET")
	router.HandleFunc("/api/reports/{name:.+}", reportHandler(svc)).Methods("GET")
	router.HandleFunc("/trigger", trigger.ServeHTTP).Methods("POST")

	return router
}

func healthCheckHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"healthy","timestamp":"` + time.Now().Format(time.RFC3339) + `"}`))
}

func metricsHandler(svc mentionService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(svc.GetMetrics()))
	}
}

func mentionsHandler(svc mentionService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		result, ok := runQuery(w, r, svc)
		if !ok {
			return
		}
		writeJSON(w, http.StatusOK, result)
	}
}

func mentionsCSVHandler(svc mentionService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		result, ok := runQuery(w, r, svc)
		if !ok {
			return
		}

		data, err := export.CSVBytes(result.Mentions)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "export", err)
			return
		}

		w.Header().Set("Content-Type", "text/csv; charset=utf-8")
		w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, export.Filename(result.Criteria, result.GeneratedAt)))
		w.Header().Set("X-Query-Status", result.Status)
		w.WriteHeader(http.StatusOK)
		w.Write(data)
	}
}

func reportsHandler(svc mentionService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		names, err := svc.ListReports(r.URL.Query().Get("watch"))
		if err != nil {
			status, kind := reportErrorStatus(err)
			writeError(w, status, kind, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string][]string{"reports": names})
	}
}

func reportHandler(svc mentionService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		name := "reports/" + mux.Vars(r)["name"]
		data, err := svc.GetReport(name)
		if err != nil {
			status, kind := reportErrorStatus(err)
			writeError(w, status, kind, err)
			return
		}

		w.Header().Set("Content-Type", storage.ContentType(name))
		w.WriteHeader(http.StatusOK)
		w.Write(data)
	}
}

func reportErrorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, monitoring.ErrInvalidQuery):
		return http.StatusBadRequest, "invalid_request"
	case errors.Is(err, storage.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, monitoring.ErrNoStorage):
		return http.StatusServiceUnavailable, "no_storage"
	default:
		return http.StatusInternalServerError, "internal"
	}
}

// watchTrigger runs all watches on demand, one run at a time
type watchTrigger struct {
	ctx     context.Context
	svc     mentionService
	running atomic.Bool
}

func (t *watchTrigger) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if !t.running.CompareAndSwap(false, true) {
		writeJSON(w, http.StatusConflict, map[string]string{"message": "Watch run already in progress"})
		return
	}

	go func() {
		defer t.running.Store(false)
		if err := t.svc.RunAllWatches(t.ctx); err != nil {
			logrus.WithError(err).Error("Manual watch trigger failed")
		}
	}()

	writeJSON(w, http.StatusAccepted, map[string]string{"message": "Watch run triggered"})
}

// runQuery parses the request, runs it and writes the error response on
// failure
func runQuery(w http.ResponseWriter, r *http.Request, svc mentionService) (*monitoring.QueryResult, bool) {
	req, err := parseQueryRequest(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", err)
		return nil, false
	}

	result, err := svc.RunQuery(r.Context(), req)
	if err != nil {
		status, kind := errorStatus(err)
		writeError(w, status, kind, err)
		return nil, false
	}
	return result, true
}

func parseQueryRequest(r *http.Request) (monitoring.QueryRequest, error) {
	q := r.URL.Query()
	req := monitoring.QueryRequest{
		Phrase:    q.Get("phrase"),
		Subreddit: q.Get("subreddit"),
	}

	var err error
	if req.Start, err = parseDate(q.Get("start")); err != nil {
		return req, fmt.Errorf("start: %w", err)
	}
	if req.End, err = parseDate(q.Get("end")); err != nil {
		return req, fmt.Errorf("end: %w", err)
	}
	if req.End.IsZero() {
		req.End = req.Start
	}

	if limit := q.Get("limit"); limit != "" {
		if req.MaxItems, err = strconv.Atoi(limit); err != nil {
			return req, fmt.Errorf("limit must be an integer")
		}
	}
	return req, nil
}

func parseDate(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(dateLayout, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("expected YYYY-MM-DD, got %q", value)
	}
	return t, nil
}

// errorStatus maps a query error to its HTTP status and error kind
func errorStatus(err error) (int, string) {
	if errors.Is(err, monitoring.ErrInvalidQuery) {
		return http.StatusBadRequest, "invalid_request"
	}
	// a cancelled request surfaces as a network fetch error too
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return http.StatusGatewayTimeout, "timeout"
	}

	switch kind := sources.KindOf(err); kind {
	case sources.KindRateLimit:
		return http.StatusServiceUnavailable, string(kind)
	case sources.KindNetwork, sources.KindMalformed, sources.KindAuth:
		return http.StatusBadGateway, string(kind)
	}
	return http.StatusInternalServerError, "internal"
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logrus.WithError(err).Error("Failed to encode response")
	}
}

func writeError(w http.ResponseWriter, status int, kind string, err error) {
	if status >= http.StatusInternalServerError {
		logrus.WithError(err).WithField("kind", kind).Error("Query failed")
	}
	writeJSON(w, status, map[string]string{"error": err.Error(), "kind": kind})
}
