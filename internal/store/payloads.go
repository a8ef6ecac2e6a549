package store

import (
	"bytes"
	"compress/gzip"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"fmt"
	"io"
	"time"
)

// RawPayload is a fetched CSV body kept for replay and dedup.
type RawPayload struct {
	ID                int64
	FetchedAt         time.Time
	Source            string
	URL               string
	PayloadCompressed []byte
	PayloadHash       string
	SchemaVersion     int
}

// StoreRawPayload archives a fetched CSV body gzip-compressed. Returns the
// payload ID, or 0 when an identical body (same hash) is already stored.
func (s *Store) StoreRawPayload(source, url string, payload []byte) (int64, error) {
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	if _, err := gz.Write(payload); err != nil {
		return 0, fmt.Errorf("compress payload: %w", err)
	}
	if err := gz.Close(); err != nil {
		return 0, fmt.Errorf("close gzip: %w", err)
	}

	hash := sha256.Sum256(payload)
	hashHex := hex.EncodeToString(hash[:])

	result, err := s.db.Exec(`
		INSERT INTO raw_payloads (fetched_at, source, url, payload_compressed, payload_hash, schema_version)
		VALUES (?, ?, ?, ?, ?, 1)
		ON CONFLICT(payload_hash) DO NOTHING
	`, time.Now().UTC(), source, url, buf.Bytes(), hashHex)
	if err != nil {
		return 0, fmt.Errorf("insert raw payload: %w", err)
	}

	return result.LastInsertId()
}

// GetRawPayload retrieves and decompresses a stored body by ID.
func (s *Store) GetRawPayload(id int64) ([]byte, error) {
	var compressed []byte
	err := s.db.QueryRow(`SELECT payload_compressed FROM raw_payloads WHERE id = ?`, id).
		Scan(&compressed)
	if err != nil {
		return nil, err
	}

	gz, err := gzip.NewReader(bytes.NewReader(compressed))
	if err != nil {
		return nil, fmt.Errorf("create gzip reader: %w", err)
	}
	defer gz.Close()

	return io.ReadAll(gz)
}

// GetLatestRawPayload retrieves the most recent stored body for a source.
func (s *Store) GetLatestRawPayload(source string) (*RawPayload, []byte, error) {
	row := s.db.QueryRow(`
		SELECT id, fetched_at, source, url, payload_compressed, payload_hash, schema_version
		FROM raw_payloads
		WHERE source = ?
		ORDER BY fetched_at DESC, id DESC
		LIMIT 1
	`, source)

	var p RawPayload
	err := row.Scan(&p.ID, &p.FetchedAt, &p.Source, &p.URL, &p.PayloadCompressed, &p.PayloadHash, &p.SchemaVersion)
	if err == sql.ErrNoRows {
		return nil, nil, nil
	}
	if err != nil {
		return nil, nil, err
	}

	gz, err := gzip.NewReader(bytes.NewReader(p.PayloadCompressed))
	if err != nil {
		return nil, nil, fmt.Errorf("create gzip reader: %w", err)
	}
	defer gz.Close()

	body, err := io.ReadAll(gz)
	if err != nil {
		return nil, nil, err
	}
	return &p, body, nil
}
