package cleaner

import (
	"database/sql"
	"errors"
	"math"
	"testing"

	"github.com/11r0n/MAJI-NDOGO-PROJECT/internal/models"
)

func nf(v float64) sql.NullFloat64 {
	return sql.NullFloat64{Float64: v, Valid: true}
}

func ns(s string) sql.NullString {
	return sql.NullString{String: s, Valid: true}
}

// fullRecord builds a raw record with every numeric field present.
func fullRecord(id int64, crop string, elevation, temperature, rainfall, ph, pollution, yield float64) models.FieldRecord {
	return models.FieldRecord{
		FieldID:        id,
		CropType:       ns(crop),
		Elevation:      nf(elevation),
		Temperature:    nf(temperature),
		Rainfall:       nf(rainfall),
		PH:             nf(ph),
		PollutionLevel: nf(pollution),
		Yield:          nf(yield),
	}
}

func TestCleanClipsPH(t *testing.T) {
	raw := []models.FieldRecord{
		fullRecord(1, "maize", 600, 22, 100, 5.5, 0.1, 1.5),
		fullRecord(2, "maize", 600, 22, 100, 14.2, 0.1, 1.5),
		fullRecord(3, "maize", 600, 22, 100, 7.0, 0.1, 1.5),
	}

	ds, err := New(DefaultConfig(), nil).Clean(raw)
	if err != nil {
		t.Fatalf("Clean: %v", err)
	}
	if ds.Len() != 3 {
		t.Fatalf("got %d records, want 3", ds.Len())
	}

	want := []float64{5.5, 14.0, 7.0}
	for i, w := range want {
		if got := ds.At(i).PH; got != w {
			t.Errorf("record %d: ph = %v, want %v", i, got, w)
		}
	}

	if flags := ds.At(1).QualityFlags; len(flags) != 1 || flags[0] != ClipFlag(models.FieldPH) {
		t.Errorf("record 1 flags = %v, want [%s]", flags, ClipFlag(models.FieldPH))
	}
	if flags := ds.At(0).QualityFlags; len(flags) != 0 {
		t.Errorf("record 0 flags = %v, want none", flags)
	}
}

func TestCleanIdempotent(t *testing.T) {
	raw := []models.FieldRecord{
		fullRecord(1, "Cassaval", -820, 60, 140, 14.6, 0.3, 2.1),
		fullRecord(2, "maize", 450, 21, 90, 6.4, 0.1, 1.8),
	}

	c := New(DefaultConfig(), nil)
	first, err := c.Clean(raw)
	if err != nil {
		t.Fatalf("first Clean: %v", err)
	}

	again := make([]models.FieldRecord, 0, first.Len())
	for _, r := range first.Records() {
		again = append(again, fullRecord(r.FieldID, r.CropType, r.Elevation, r.Temperature, r.Rainfall, r.PH, r.PollutionLevel, r.Yield))
	}

	second, err := c.Clean(again)
	if err != nil {
		t.Fatalf("second Clean: %v", err)
	}
	if second.Len() != first.Len() {
		t.Fatalf("second pass kept %d records, first kept %d", second.Len(), first.Len())
	}

	for i := 0; i < first.Len(); i++ {
		a, b := first.At(i), second.At(i)
		if a.CropType != b.CropType {
			t.Errorf("record %d: crop %q changed to %q", i, a.CropType, b.CropType)
		}
		for _, f := range models.Fields() {
			if a.Value(f) != b.Value(f) {
				t.Errorf("record %d: %s = %v changed to %v", i, f, a.Value(f), b.Value(f))
			}
		}
	}
}

func TestCleanCropCorrections(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		flagged bool
	}{
		{"cassaval", "cassava", true},
		{"  Wheatn ", "wheat", true},
		{"TEAA", "tea", true},
		{"Maize", "maize", false},
	}

	for _, tt := range tests {
		raw := []models.FieldRecord{fullRecord(1, tt.in, 600, 22, 100, 6.5, 0.1, 1.5)}
		ds, err := New(DefaultConfig(), nil).Clean(raw)
		if err != nil {
			t.Fatalf("Clean(%q): %v", tt.in, err)
		}
		r := ds.At(0)
		if r.CropType != tt.want {
			t.Errorf("crop %q normalized to %q, want %q", tt.in, r.CropType, tt.want)
		}
		flagged := len(r.QualityFlags) == 1 && r.QualityFlags[0] == FlagCropCorrected
		if flagged != tt.flagged {
			t.Errorf("crop %q: flags = %v, corrected flag wanted: %v", tt.in, r.QualityFlags, tt.flagged)
		}
	}
}

func TestCleanNegativeElevation(t *testing.T) {
	raw := []models.FieldRecord{fullRecord(1, "tea", -850, 18, 120, 6.0, 0.1, 1.2)}

	ds, err := New(DefaultConfig(), nil).Clean(raw)
	if err != nil {
		t.Fatalf("Clean: %v", err)
	}
	r := ds.At(0)
	if r.Elevation != 850 {
		t.Errorf("elevation = %v, want 850", r.Elevation)
	}
	if len(r.QualityFlags) != 1 || r.QualityFlags[0] != FlagElevationNegative {
		t.Errorf("flags = %v, want [%s]", r.QualityFlags, FlagElevationNegative)
	}
}

func TestCleanDropPolicy(t *testing.T) {
	raw := []models.FieldRecord{
		fullRecord(1, "maize", 600, 22, 100, 6.5, 0.1, 1.5),
		fullRecord(2, "maize", 600, 80, 100, 6.5, 0.1, 1.5), // temperature out of range
		fullRecord(3, "maize", 600, 22, 100, 6.5, 0.1, 1.5),
	}

	cfg := DefaultConfig()
	cfg.OutOfRange = PolicyDrop
	ds, err := New(cfg, nil).Clean(raw)
	if err != nil {
		t.Fatalf("Clean: %v", err)
	}
	if ds.Len() != 2 {
		t.Fatalf("got %d records, want 2", ds.Len())
	}
	if ds.At(0).FieldID != 1 || ds.At(1).FieldID != 3 {
		t.Errorf("kept field IDs %d, %d; want 1, 3", ds.At(0).FieldID, ds.At(1).FieldID)
	}
}

func TestCleanErrorPolicy(t *testing.T) {
	raw := []models.FieldRecord{
		fullRecord(1, "maize", 600, 22, 100, 6.5, 0.1, 1.5),
		fullRecord(2, "maize", 600, 22, 100, 15.1, 0.1, 1.5),
	}

	cfg := DefaultConfig()
	cfg.OutOfRange = PolicyError
	_, err := New(cfg, nil).Clean(raw)

	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("Clean error = %v, want *ValidationError", err)
	}
	if verr.Row != 1 || verr.Field != string(models.FieldPH) {
		t.Errorf("ValidationError = row %d field %s, want row 1 field ph", verr.Row, verr.Field)
	}
}

func TestCleanImputesFromGroupMean(t *testing.T) {
	missing := fullRecord(2, "cassava", 600, 22, 100, 6.5, 0.1, 0)
	missing.Yield = sql.NullFloat64{}

	raw := []models.FieldRecord{
		fullRecord(1, "cassava", 600, 22, 100, 6.5, 0.1, 2.0),
		missing,
		fullRecord(3, "cassava", 600, 22, 100, 6.5, 0.1, 4.0),
		fullRecord(4, "wheat", 600, 22, 100, 6.5, 0.1, 9.0),
	}

	ds, err := New(DefaultConfig(), nil).Clean(raw)
	if err != nil {
		t.Fatalf("Clean: %v", err)
	}
	if ds.Len() != 4 {
		t.Fatalf("got %d records, want 4", ds.Len())
	}

	r := ds.At(1)
	if math.Abs(r.Yield-3.0) > 1e-9 {
		t.Errorf("imputed yield = %v, want 3.0 (cassava group mean)", r.Yield)
	}
	if len(r.QualityFlags) != 1 || r.QualityFlags[0] != ImputeFlag(models.FieldYield) {
		t.Errorf("flags = %v, want [%s]", r.QualityFlags, ImputeFlag(models.FieldYield))
	}
}

func TestCleanImputesFromOverallMeanWhenGroupEmpty(t *testing.T) {
	missing := fullRecord(2, "sorghum", 600, 22, 100, 6.5, 0.1, 0)
	missing.Yield = sql.NullFloat64{}

	raw := []models.FieldRecord{
		fullRecord(1, "maize", 600, 22, 100, 6.5, 0.1, 2.0),
		missing,
		fullRecord(3, "wheat", 600, 22, 100, 6.5, 0.1, 6.0),
	}

	ds, err := New(DefaultConfig(), nil).Clean(raw)
	if err != nil {
		t.Fatalf("Clean: %v", err)
	}
	if got := ds.At(1).Yield; math.Abs(got-4.0) > 1e-9 {
		t.Errorf("imputed yield = %v, want 4.0 (overall mean)", got)
	}
}

func TestCleanDropsWhenNothingToImputeFrom(t *testing.T) {
	only := fullRecord(1, "maize", 600, 22, 100, 6.5, 0.1, 0)
	only.Yield = sql.NullFloat64{}

	ds, err := New(DefaultConfig(), nil).Clean([]models.FieldRecord{only})
	if err != nil {
		t.Fatalf("Clean: %v", err)
	}
	if ds.Len() != 0 {
		t.Errorf("got %d records, want 0", ds.Len())
	}
}

func TestCleanMissingDropPolicy(t *testing.T) {
	missing := fullRecord(2, "maize", 600, 22, 100, 6.5, 0.1, 0)
	missing.Rainfall = sql.NullFloat64{}

	raw := []models.FieldRecord{
		fullRecord(1, "maize", 600, 22, 100, 6.5, 0.1, 1.5),
		missing,
	}

	cfg := DefaultConfig()
	cfg.Missing = MissingDrop
	ds, err := New(cfg, nil).Clean(raw)
	if err != nil {
		t.Fatalf("Clean: %v", err)
	}
	if ds.Len() != 1 || ds.At(0).FieldID != 1 {
		t.Fatalf("got %d records, want only field 1", ds.Len())
	}
}

func TestCleanDroppedRowDoesNotSkewImputation(t *testing.T) {
	missing := fullRecord(3, "maize", 600, 22, 100, 6.5, 0.1, 0)
	missing.Yield = sql.NullFloat64{}

	raw := []models.FieldRecord{
		fullRecord(1, "maize", 600, 22, 100, 6.5, 0.1, 2.0),
		fullRecord(2, "maize", 600, 80, 100, 6.5, 0.1, 100.0), // dropped: temperature out of range
		missing,
	}

	cfg := DefaultConfig()
	cfg.OutOfRange = PolicyDrop
	ds, err := New(cfg, nil).Clean(raw)
	if err != nil {
		t.Fatalf("Clean: %v", err)
	}
	if ds.Len() != 2 {
		t.Fatalf("got %d records, want 2", ds.Len())
	}
	if got := ds.At(1).Yield; math.Abs(got-2.0) > 1e-9 {
		t.Errorf("imputed yield = %v, want 2.0 (dropped row must not count)", got)
	}
}

func TestCleanMissingCropType(t *testing.T) {
	raw := []models.FieldRecord{
		{FieldID: 1, Elevation: nf(600), Temperature: nf(22), Rainfall: nf(100), PH: nf(6.5), PollutionLevel: nf(0.1), Yield: nf(1.5)},
		fullRecord(2, "maize", 600, 22, 100, 6.5, 0.1, 1.5),
	}

	ds, err := New(DefaultConfig(), nil).Clean(raw)
	if err != nil {
		t.Fatalf("Clean: %v", err)
	}
	if ds.Len() != 1 || ds.At(0).FieldID != 2 {
		t.Fatalf("got %d records, want only field 2", ds.Len())
	}

	cfg := DefaultConfig()
	cfg.OutOfRange = PolicyError
	_, err = New(cfg, nil).Clean(raw)
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("Clean error = %v, want *ValidationError", err)
	}
}

func TestQualityFlagsJSONRoundTrip(t *testing.T) {
	if got := QualityFlagsToJSON(nil); got != "" {
		t.Errorf("QualityFlagsToJSON(nil) = %q, want empty", got)
	}
	if got := QualityFlagsFromJSON(""); got != nil {
		t.Errorf("QualityFlagsFromJSON(\"\") = %v, want nil", got)
	}

	flags := []string{FlagCropCorrected, ClipFlag(models.FieldPH)}
	back := QualityFlagsFromJSON(QualityFlagsToJSON(flags))
	if len(back) != 2 || back[0] != flags[0] || back[1] != flags[1] {
		t.Errorf("round trip = %v, want %v", back, flags)
	}
}
