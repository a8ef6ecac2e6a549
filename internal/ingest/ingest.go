package ingest

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/11r0n/MAJI-NDOGO-PROJECT/internal/metrics"
	"github.com/11r0n/MAJI-NDOGO-PROJECT/internal/store"
	"github.com/11r0n/MAJI-NDOGO-PROJECT/internal/weather"
)

// Payload archive source labels.
const (
	SourceStationMapping  = "station_mapping"
	SourceWeatherMessages = "weather_messages"
)

// Ingestor moves raw data into the working database: survey field records,
// the station-mapping merge, and weather station messages.
type Ingestor struct {
	store     *store.Store
	fetcher   *CSVFetcher
	extractor *weather.Extractor
	logger    *zap.Logger
}

func NewIngestor(st *store.Store, fetcher *CSVFetcher, extractor *weather.Extractor, logger *zap.Logger) *Ingestor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Ingestor{store: st, fetcher: fetcher, extractor: extractor, logger: logger}
}

// IngestFields loads raw field records from the survey database into the
// working database.
func (in *Ingestor) IngestFields(survey *SurveySource) (int, error) {
	records, err := survey.LoadFieldRecords()
	if err != nil {
		return 0, err
	}

	for _, fr := range records {
		if err := in.store.UpsertFieldRecord(fr); err != nil {
			return 0, fmt.Errorf("store field %d: %w", fr.FieldID, err)
		}
		metrics.FieldRecordsIngested.Inc()
	}

	in.logger.Info("field records ingested", zap.Int("records", len(records)))
	return len(records), nil
}

// IngestStationMapping fetches the station-mapping CSV and attaches
// station IDs to field records.
func (in *Ingestor) IngestStationMapping(url string) (int64, error) {
	body, err := in.fetcher.Fetch(SourceStationMapping, url)
	if err != nil {
		return 0, err
	}
	if _, err := in.store.StoreRawPayload(SourceStationMapping, url, body); err != nil {
		in.logger.Warn("archive mapping payload", zap.Error(err))
	}

	mapping, err := ParseStationMapping(body)
	if err != nil {
		return 0, err
	}

	updated, err := in.store.SetStationMapping(mapping)
	if err != nil {
		return 0, err
	}

	in.logger.Info("station mapping applied",
		zap.Int("mappings", len(mapping)),
		zap.Int64("fields_updated", updated))
	return updated, nil
}

// IngestWeatherMessages fetches the weather-message CSV, extracts
// measurements from the message text, and stores the annotated messages.
func (in *Ingestor) IngestWeatherMessages(url string) (int, error) {
	body, err := in.fetcher.Fetch(SourceWeatherMessages, url)
	if err != nil {
		return 0, err
	}
	if _, err := in.store.StoreRawPayload(SourceWeatherMessages, url, body); err != nil {
		in.logger.Warn("archive messages payload", zap.Error(err))
	}

	msgs, err := ParseWeatherMessages(body)
	if err != nil {
		return 0, err
	}

	matched := in.extractor.ProcessMessages(msgs)

	if _, err := in.store.InsertWeatherMessages(msgs); err != nil {
		return 0, err
	}
	for _, m := range msgs {
		metrics.WeatherMessagesIngested.WithLabelValues(m.StationID).Inc()
	}

	in.logger.Info("weather messages ingested",
		zap.Int("messages", len(msgs)),
		zap.Int("matched", matched))
	return len(msgs), nil
}
