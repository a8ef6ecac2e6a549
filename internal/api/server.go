// Package api serves the analytics over a small JSON HTTP API.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/11r0n/MAJI-NDOGO-PROJECT/internal/analyze"
	"github.com/11r0n/MAJI-NDOGO-PROJECT/internal/models"
	"github.com/11r0n/MAJI-NDOGO-PROJECT/internal/store"
	"github.com/11r0n/MAJI-NDOGO-PROJECT/internal/weather"
)

type Server struct {
	store  *store.Store
	port   string
	logger *zap.Logger
}

func NewServer(st *store.Store, port string, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{store: st, port: port, logger: logger}
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/summaries", s.handleSummaries)
	mux.HandleFunc("/api/compare", s.handleCompare)
	mux.HandleFunc("/api/outliers", s.handleOutliers)
	mux.HandleFunc("/api/stations", s.handleStations)
	mux.HandleFunc("/api/station-means", s.handleStationMeans)
	mux.HandleFunc("/health", s.handleHealth)
	mux.Handle("/metrics", promhttp.Handler())
	return mux
}

func (s *Server) Run(ctx context.Context) error {
	server := &http.Server{
		Addr:    ":" + s.port,
		Handler: s.Handler(),
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		server.Shutdown(shutdownCtx)
	}()

	s.logger.Info("server listening", zap.String("port", s.port))
	if err := server.ListenAndServe(); err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("write response", zap.Error(err))
	}
}

func (s *Server) handleSummaries(w http.ResponseWriter, r *http.Request) {
	field, err := models.ParseField(queryDefault(r, "field", string(models.FieldYield)))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	groupBy, err := analyze.ParseGroupBy(queryDefault(r, "group_by", "crop"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	ds, err := s.store.GetCleanedDataset()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	s.writeJSON(w, analyze.Summarize(ds, field, groupBy))
}

func (s *Server) handleCompare(w http.ResponseWriter, r *http.Request) {
	groupA := r.URL.Query().Get("a")
	groupB := r.URL.Query().Get("b")
	if groupA == "" || groupB == "" {
		http.Error(w, "query parameters a and b are required", http.StatusBadRequest)
		return
	}
	field, err := models.ParseField(queryDefault(r, "field", string(models.FieldYield)))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	groupBy, err := analyze.ParseGroupBy(queryDefault(r, "group_by", "crop"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	alpha := analyze.DefaultAlpha
	if raw := r.URL.Query().Get("alpha"); raw != "" {
		alpha, err = strconv.ParseFloat(raw, 64)
		if err != nil || alpha <= 0 || alpha >= 1 {
			http.Error(w, "alpha must be in (0, 1)", http.StatusBadRequest)
			return
		}
	}

	ds, err := s.store.GetCleanedDataset()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	result, err := analyze.CompareGroups(ds, field, groupBy, groupA, groupB, alpha)
	if err != nil {
		var insufficient *analyze.InsufficientDataError
		if errors.As(err, &insufficient) {
			http.Error(w, err.Error(), http.StatusUnprocessableEntity)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	s.writeJSON(w, result)
}

func (s *Server) handleOutliers(w http.ResponseWriter, r *http.Request) {
	field, err := models.ParseField(queryDefault(r, "field", string(models.FieldPollution)))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	dir, err := analyze.ParseDirection(queryDefault(r, "direction", string(analyze.Above)))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	threshold, err := strconv.ParseFloat(r.URL.Query().Get("threshold"), 64)
	if err != nil {
		http.Error(w, "threshold must be a number", http.StatusBadRequest)
		return
	}

	ds, err := s.store.GetCleanedDataset()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	records := make([]models.Record, 0)
	for rec := range analyze.Outliers(ds, field, threshold, dir) {
		records = append(records, rec)
	}
	s.writeJSON(w, records)
}

func (s *Server) handleStations(w http.ResponseWriter, r *http.Request) {
	stations, err := s.store.GetActiveStations()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	s.writeJSON(w, stations)
}

func (s *Server) handleStationMeans(w http.ResponseWriter, r *http.Request) {
	msgs, err := s.store.GetWeatherMessages()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	s.writeJSON(w, weather.Means(msgs))
}

type HealthStatus struct {
	Status         string `json:"status"`
	CleanedRecords int    `json:"cleaned_records"`
	RawRecords     int    `json:"raw_records"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	health := HealthStatus{Status: "ok"}

	raw, err := s.store.GetFieldRecords()
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		s.writeJSON(w, map[string]string{"status": "error", "error": err.Error()})
		return
	}
	health.RawRecords = len(raw)

	ds, err := s.store.GetCleanedDataset()
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		s.writeJSON(w, map[string]string{"status": "error", "error": err.Error()})
		return
	}
	health.CleanedRecords = ds.Len()

	if health.CleanedRecords == 0 {
		health.Status = "degraded"
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	s.writeJSON(w, health)
}

func queryDefault(r *http.Request, key, fallback string) string {
	if v := r.URL.Query().Get(key); v != "" {
		return v
	}
	return fallback
}
