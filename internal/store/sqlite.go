package store

import (
	"database/sql"
	"fmt"

	"github.com/11r0n/MAJI-NDOGO-PROJECT/internal/cleaner"
	"github.com/11r0n/MAJI-NDOGO-PROJECT/internal/models"
)

type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

func (s *Store) UpsertStation(st models.Station) error {
	_, err := s.db.Exec(`
		INSERT INTO stations (station_id, name, latitude, longitude, elevation, elevation_tier, active)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(station_id) DO UPDATE SET
			name = excluded.name,
			latitude = excluded.latitude,
			longitude = excluded.longitude,
			elevation = excluded.elevation,
			elevation_tier = excluded.elevation_tier,
			active = excluded.active
	`, st.StationID, st.Name, st.Latitude, st.Longitude, st.Elevation, st.ElevationTier, st.Active)
	return err
}

func (s *Store) GetActiveStations() ([]models.Station, error) {
	rows, err := s.db.Query(`SELECT station_id, name, latitude, longitude, elevation, elevation_tier, active FROM stations WHERE active = TRUE`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var stations []models.Station
	for rows.Next() {
		var st models.Station
		if err := rows.Scan(&st.StationID, &st.Name, &st.Latitude, &st.Longitude, &st.Elevation, &st.ElevationTier, &st.Active); err != nil {
			return nil, err
		}
		stations = append(stations, st)
	}
	return stations, rows.Err()
}

func (s *Store) UpsertFieldRecord(fr models.FieldRecord) error {
	_, err := s.db.Exec(`
		INSERT INTO field_records (field_id, crop_type, elevation, temperature, rainfall, ph, pollution_level, yield, station_id)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(field_id) DO UPDATE SET
			crop_type = excluded.crop_type,
			elevation = excluded.elevation,
			temperature = excluded.temperature,
			rainfall = excluded.rainfall,
			ph = excluded.ph,
			pollution_level = excluded.pollution_level,
			yield = excluded.yield,
			station_id = excluded.station_id
	`, fr.FieldID, fr.CropType, fr.Elevation, fr.Temperature, fr.Rainfall, fr.PH, fr.PollutionLevel, fr.Yield, fr.StationID)
	return err
}

func (s *Store) GetFieldRecords() ([]models.FieldRecord, error) {
	rows, err := s.db.Query(`
		SELECT field_id, crop_type, elevation, temperature, rainfall, ph, pollution_level, yield, station_id, created_at
		FROM field_records
		ORDER BY field_id ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []models.FieldRecord
	for rows.Next() {
		var fr models.FieldRecord
		if err := rows.Scan(&fr.FieldID, &fr.CropType, &fr.Elevation, &fr.Temperature, &fr.Rainfall, &fr.PH, &fr.PollutionLevel, &fr.Yield, &fr.StationID, &fr.CreatedAt); err != nil {
			return nil, err
		}
		records = append(records, fr)
	}
	return records, rows.Err()
}

// SetStationMapping attaches weather station IDs to field records by
// field ID. Returns how many rows were updated.
func (s *Store) SetStationMapping(mapping map[int64]string) (int64, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return 0, err
	}

	var updated int64
	for fieldID, stationID := range mapping {
		res, err := tx.Exec(`UPDATE field_records SET station_id = ? WHERE field_id = ?`, stationID, fieldID)
		if err != nil {
			tx.Rollback()
			return 0, fmt.Errorf("map field %d: %w", fieldID, err)
		}
		n, _ := res.RowsAffected()
		updated += n
	}

	return updated, tx.Commit()
}

// ReplaceCleanedRecords atomically replaces the cleaned dataset with the
// output of a clean run, preserving record order.
func (s *Store) ReplaceCleanedRecords(ds models.Dataset) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}

	if _, err := tx.Exec(`DELETE FROM cleaned_records`); err != nil {
		tx.Rollback()
		return fmt.Errorf("clear cleaned records: %w", err)
	}

	stmt, err := tx.Prepare(`
		INSERT INTO cleaned_records (field_id, crop_type, elevation, temperature, rainfall, ph, pollution_level, yield, station_id, quality_flags, position)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		tx.Rollback()
		return err
	}
	defer stmt.Close()

	pos := 0
	for r := range ds.All() {
		if _, err := stmt.Exec(
			r.FieldID, r.CropType, r.Elevation, r.Temperature, r.Rainfall,
			r.PH, r.PollutionLevel, r.Yield, r.StationID,
			cleaner.QualityFlagsToJSON(r.QualityFlags), pos,
		); err != nil {
			tx.Rollback()
			return fmt.Errorf("insert cleaned record %d: %w", r.FieldID, err)
		}
		pos++
	}

	return tx.Commit()
}

func (s *Store) GetCleanedDataset() (models.Dataset, error) {
	rows, err := s.db.Query(`
		SELECT field_id, crop_type, elevation, temperature, rainfall, ph, pollution_level, yield, station_id, quality_flags
		FROM cleaned_records
		ORDER BY position ASC
	`)
	if err != nil {
		return models.Dataset{}, err
	}
	defer rows.Close()

	var records []models.Record
	for rows.Next() {
		var r models.Record
		var stationID sql.NullString
		var flags sql.NullString
		if err := rows.Scan(&r.FieldID, &r.CropType, &r.Elevation, &r.Temperature, &r.Rainfall, &r.PH, &r.PollutionLevel, &r.Yield, &stationID, &flags); err != nil {
			return models.Dataset{}, err
		}
		r.StationID = stationID.String
		r.QualityFlags = cleaner.QualityFlagsFromJSON(flags.String)
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return models.Dataset{}, err
	}
	return models.NewDataset(records), nil
}

func (s *Store) InsertWeatherMessages(msgs []models.WeatherMessage) (int64, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return 0, err
	}

	stmt, err := tx.Prepare(`
		INSERT INTO weather_messages (station_id, message, measurement, value)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(station_id, message) DO UPDATE SET
			measurement = excluded.measurement,
			value = excluded.value
	`)
	if err != nil {
		tx.Rollback()
		return 0, err
	}
	defer stmt.Close()

	var inserted int64
	for _, m := range msgs {
		if _, err := stmt.Exec(m.StationID, m.Message, m.Measurement, m.Value); err != nil {
			tx.Rollback()
			return 0, fmt.Errorf("insert message for %s: %w", m.StationID, err)
		}
		inserted++
	}

	return inserted, tx.Commit()
}

func (s *Store) GetWeatherMessages() ([]models.WeatherMessage, error) {
	rows, err := s.db.Query(`
		SELECT id, station_id, message, measurement, value, created_at
		FROM weather_messages
		ORDER BY id ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var msgs []models.WeatherMessage
	for rows.Next() {
		var m models.WeatherMessage
		if err := rows.Scan(&m.ID, &m.StationID, &m.Message, &m.Measurement, &m.Value, &m.CreatedAt); err != nil {
			return nil, err
		}
		msgs = append(msgs, m)
	}
	return msgs, rows.Err()
}
