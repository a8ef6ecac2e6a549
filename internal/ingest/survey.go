// Package ingest loads raw field records from the survey database and
// weather station CSVs from remote sources.
package ingest

import (
	"database/sql"
	"fmt"

	"go.uber.org/zap"

	"github.com/11r0n/MAJI-NDOGO-PROJECT/internal/models"
)

// DefaultSurveyQuery joins the survey feature tables on field_id into the
// raw record shape.
const DefaultSurveyQuery = `
SELECT g.field_id,
       s.crop_type,
       g.elevation,
       w.temperature,
       w.rainfall,
       s.ph,
       w.pollution_level,
       s.annual_yield
FROM geographic_features g
JOIN weather_features w ON w.field_id = g.field_id
JOIN soil_and_crop_features s ON s.field_id = g.field_id
ORDER BY g.field_id
`

// SurveySource reads raw field records out of an external survey SQLite
// database.
type SurveySource struct {
	db     *sql.DB
	query  string
	logger *zap.Logger
}

func OpenSurvey(path, query string, logger *zap.Logger) (*SurveySource, error) {
	if query == "" {
		query = DefaultSurveyQuery
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open survey database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("connect survey database: %w", err)
	}

	logger.Info("survey database opened", zap.String("path", path))
	return &SurveySource{db: db, query: query, logger: logger}, nil
}

func (s *SurveySource) Close() error {
	return s.db.Close()
}

// LoadFieldRecords runs the survey join query. An empty result set is an
// error: it means the query or database is wrong, not that there are no
// farms.
func (s *SurveySource) LoadFieldRecords() ([]models.FieldRecord, error) {
	rows, err := s.db.Query(s.query)
	if err != nil {
		return nil, fmt.Errorf("survey query: %w", err)
	}
	defer rows.Close()

	var records []models.FieldRecord
	for rows.Next() {
		var fr models.FieldRecord
		if err := rows.Scan(&fr.FieldID, &fr.CropType, &fr.Elevation, &fr.Temperature, &fr.Rainfall, &fr.PH, &fr.PollutionLevel, &fr.Yield); err != nil {
			return nil, fmt.Errorf("scan survey row: %w", err)
		}
		records = append(records, fr)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("survey query returned no rows")
	}

	s.logger.Info("survey data loaded", zap.Int("records", len(records)))
	return records, nil
}
