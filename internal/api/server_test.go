package api

import (
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	_ "modernc.org/sqlite"

	"github.com/11r0n/MAJI-NDOGO-PROJECT/internal/models"
	"github.com/11r0n/MAJI-NDOGO-PROJECT/internal/store"
	"github.com/11r0n/MAJI-NDOGO-PROJECT/internal/weather"
)

func newTestServer(t *testing.T) (*Server, *store.Store) {
	t.Helper()

	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("open database: %v", err)
	}
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	st := store.New(db)
	if err := st.Migrate(); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return NewServer(st, "0", nil), st
}

func seedCleaned(t *testing.T, st *store.Store) {
	t.Helper()

	records := []models.Record{
		{FieldID: 1, CropType: "maize", Elevation: 400, Yield: 10, StationID: "0"},
		{FieldID: 2, CropType: "maize", Elevation: 420, Yield: 12, StationID: "0"},
		{FieldID: 3, CropType: "maize", Elevation: 440, Yield: 11, StationID: "1"},
		{FieldID: 4, CropType: "tea", Elevation: 1300, Yield: 20, StationID: "4"},
		{FieldID: 5, CropType: "tea", Elevation: 1350, Yield: 22, StationID: "4"},
		{FieldID: 6, CropType: "tea", Elevation: 1400, Yield: 19, PollutionLevel: 0.9, StationID: "4"},
	}
	if err := st.ReplaceCleanedRecords(models.NewDataset(records)); err != nil {
		t.Fatalf("seed cleaned records: %v", err)
	}
}

func get(t *testing.T, h http.Handler, url string) *httptest.ResponseRecorder {
	t.Helper()
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, url, nil))
	return rr
}

func TestSummariesEndpoint(t *testing.T) {
	srv, st := newTestServer(t)
	seedCleaned(t, st)

	rr := get(t, srv.Handler(), "/api/summaries?field=yield&group_by=crop")
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rr.Code, rr.Body)
	}

	var summaries []models.GroupSummary
	if err := json.NewDecoder(rr.Body).Decode(&summaries); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(summaries) != 2 {
		t.Fatalf("got %d groups, want 2", len(summaries))
	}
	if summaries[0].Key != "maize" || summaries[0].Count != 3 {
		t.Errorf("first group = %+v, want maize count 3", summaries[0])
	}

	if rr := get(t, srv.Handler(), "/api/summaries?field=soil_moisture"); rr.Code != http.StatusBadRequest {
		t.Errorf("unknown field: status = %d, want 400", rr.Code)
	}
}

func TestCompareEndpoint(t *testing.T) {
	srv, st := newTestServer(t)
	seedCleaned(t, st)
	h := srv.Handler()

	rr := get(t, h, "/api/compare?a=maize&b=tea&field=yield")
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rr.Code, rr.Body)
	}

	var result models.ComparisonResult
	if err := json.NewDecoder(rr.Body).Decode(&result); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if result.NA != 3 || result.NB != 3 || !result.Significant {
		t.Errorf("result = %+v, want significant with n=3 each", result)
	}

	if rr := get(t, h, "/api/compare?a=maize"); rr.Code != http.StatusBadRequest {
		t.Errorf("missing b: status = %d, want 400", rr.Code)
	}
	if rr := get(t, h, "/api/compare?a=maize&b=tea&alpha=2"); rr.Code != http.StatusBadRequest {
		t.Errorf("bad alpha: status = %d, want 400", rr.Code)
	}
	if rr := get(t, h, "/api/compare?a=maize&b=sorghum"); rr.Code != http.StatusUnprocessableEntity {
		t.Errorf("empty group: status = %d, want 422", rr.Code)
	}
}

func TestOutliersEndpoint(t *testing.T) {
	srv, st := newTestServer(t)
	seedCleaned(t, st)
	h := srv.Handler()

	rr := get(t, h, "/api/outliers?field=pollution_level&threshold=0.5")
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rr.Code, rr.Body)
	}

	var records []models.Record
	if err := json.NewDecoder(rr.Body).Decode(&records); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(records) != 1 || records[0].FieldID != 6 {
		t.Errorf("outliers = %+v, want only field 6", records)
	}

	if rr := get(t, h, "/api/outliers?field=pollution_level"); rr.Code != http.StatusBadRequest {
		t.Errorf("missing threshold: status = %d, want 400", rr.Code)
	}
}

func TestStationMeansEndpoint(t *testing.T) {
	srv, st := newTestServer(t)

	msgs := []models.WeatherMessage{
		{StationID: "0", Message: "Temperature recorded: 20 C",
			Measurement: sql.NullString{String: weather.MeasurementTemperature, Valid: true},
			Value:       sql.NullFloat64{Float64: 20, Valid: true}},
		{StationID: "0", Message: "Temperature recorded: 24 C",
			Measurement: sql.NullString{String: weather.MeasurementTemperature, Valid: true},
			Value:       sql.NullFloat64{Float64: 24, Valid: true}},
	}
	if _, err := st.InsertWeatherMessages(msgs); err != nil {
		t.Fatalf("seed messages: %v", err)
	}

	rr := get(t, srv.Handler(), "/api/station-means")
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rr.Code, rr.Body)
	}

	var means []models.StationMean
	if err := json.NewDecoder(rr.Body).Decode(&means); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(means) != 1 || means[0].Mean != 22 || means[0].Count != 2 {
		t.Errorf("means = %+v, want one mean of 22 over 2", means)
	}
}

func TestHealthEndpoint(t *testing.T) {
	srv, st := newTestServer(t)
	h := srv.Handler()

	rr := get(t, h, "/health")
	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("empty database: status = %d, want 503", rr.Code)
	}
	var health HealthStatus
	if err := json.NewDecoder(rr.Body).Decode(&health); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if health.Status != "degraded" {
		t.Errorf("status = %q, want degraded", health.Status)
	}

	seedCleaned(t, st)
	rr = get(t, h, "/health")
	if rr.Code != http.StatusOK {
		t.Fatalf("seeded: status = %d, want 200: %s", rr.Code, rr.Body)
	}
}
