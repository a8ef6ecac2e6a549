package ingest

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/go-gota/gota/dataframe"
	"github.com/jlaffaye/ftp"
	"go.uber.org/zap"

	"github.com/11r0n/MAJI-NDOGO-PROJECT/internal/metrics"
	"github.com/11r0n/MAJI-NDOGO-PROJECT/internal/models"
)

// Column names of the remote CSVs.
const (
	mappingFieldIDCol = "Field_ID"
	mappingStationCol = "Weather_station"
	messageStationCol = "Weather_station_ID"
	messageTextCol    = "Message"
)

// CSVFetcher retrieves CSV bodies over HTTP(S) with retry, or over FTP for
// ftp:// URLs.
type CSVFetcher struct {
	client *http.Client
	logger *zap.Logger
}

func NewCSVFetcher(logger *zap.Logger) *CSVFetcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CSVFetcher{
		client: &http.Client{Timeout: 30 * time.Second},
		logger: logger,
	}
}

// Fetch retrieves the body at rawURL. source labels the fetch in metrics.
func (f *CSVFetcher) Fetch(source, rawURL string) ([]byte, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parse url: %w", err)
	}

	start := time.Now()
	var body []byte
	switch u.Scheme {
	case "http", "https":
		body, err = f.fetchHTTP(rawURL)
	case "ftp":
		body, err = f.fetchFTP(u)
	default:
		return nil, fmt.Errorf("unsupported scheme %q", u.Scheme)
	}

	status := "ok"
	if err != nil {
		status = "error"
	}
	metrics.CSVFetchesTotal.WithLabelValues(source, status).Inc()
	metrics.CSVFetchLatency.WithLabelValues(source).Observe(time.Since(start).Seconds())

	if err != nil {
		return nil, err
	}
	f.logger.Info("csv fetched", zap.String("source", source), zap.Int("bytes", len(body)))
	return body, nil
}

func (f *CSVFetcher) fetchHTTP(rawURL string) ([]byte, error) {
	var body []byte
	operation := func() error {
		resp, err := f.client.Get(rawURL)
		if err != nil {
			return backoff.Permanent(fmt.Errorf("fetch csv: %w", err))
		}
		defer resp.Body.Close()

		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= http.StatusInternalServerError {
			return fmt.Errorf("transient: status %d", resp.StatusCode)
		}
		if resp.StatusCode != http.StatusOK {
			b, _ := io.ReadAll(resp.Body)
			return backoff.Permanent(fmt.Errorf("fetch csv: status %d: %s", resp.StatusCode, string(b)))
		}

		body, err = io.ReadAll(resp.Body)
		if err != nil {
			return backoff.Permanent(fmt.Errorf("read body: %w", err))
		}
		return nil
	}

	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = 2 * time.Minute
	if err := backoff.Retry(operation, bo); err != nil {
		return nil, err
	}
	return body, nil
}

func (f *CSVFetcher) fetchFTP(u *url.URL) ([]byte, error) {
	host := u.Host
	if u.Port() == "" {
		host += ":21"
	}

	conn, err := ftp.Dial(host, ftp.DialWithTimeout(30*time.Second))
	if err != nil {
		return nil, fmt.Errorf("ftp dial: %w", err)
	}
	defer conn.Quit()

	user, pass := "anonymous", "anonymous"
	if u.User != nil {
		user = u.User.Username()
		if p, ok := u.User.Password(); ok {
			pass = p
		}
	}
	if err := conn.Login(user, pass); err != nil {
		return nil, fmt.Errorf("ftp login: %w", err)
	}

	resp, err := conn.Retr(u.Path)
	if err != nil {
		return nil, fmt.Errorf("ftp retr: %w", err)
	}
	defer resp.Close()

	return io.ReadAll(resp)
}

// ParseStationMapping parses the station-mapping CSV into field-to-station
// assignments.
func ParseStationMapping(data []byte) (map[int64]string, error) {
	df := dataframe.ReadCSV(bytes.NewReader(data))
	if df.Err != nil {
		return nil, fmt.Errorf("parse mapping csv: %w", df.Err)
	}

	fieldIDs := df.Col(mappingFieldIDCol)
	if fieldIDs.Err != nil {
		return nil, fmt.Errorf("mapping csv: %w", fieldIDs.Err)
	}
	stations := df.Col(mappingStationCol)
	if stations.Err != nil {
		return nil, fmt.Errorf("mapping csv: %w", stations.Err)
	}

	mapping := make(map[int64]string, df.Nrow())
	for i := 0; i < df.Nrow(); i++ {
		id, err := fieldIDs.Elem(i).Int()
		if err != nil {
			return nil, fmt.Errorf("mapping csv row %d: bad field id: %w", i, err)
		}
		mapping[int64(id)] = stations.Elem(i).String()
	}
	return mapping, nil
}

// ParseWeatherMessages parses the weather-message CSV into raw messages,
// preserving row order.
func ParseWeatherMessages(data []byte) ([]models.WeatherMessage, error) {
	df := dataframe.ReadCSV(bytes.NewReader(data))
	if df.Err != nil {
		return nil, fmt.Errorf("parse messages csv: %w", df.Err)
	}

	stations := df.Col(messageStationCol)
	if stations.Err != nil {
		return nil, fmt.Errorf("messages csv: %w", stations.Err)
	}
	texts := df.Col(messageTextCol)
	if texts.Err != nil {
		return nil, fmt.Errorf("messages csv: %w", texts.Err)
	}

	msgs := make([]models.WeatherMessage, 0, df.Nrow())
	for i := 0; i < df.Nrow(); i++ {
		msgs = append(msgs, models.WeatherMessage{
			StationID: stations.Elem(i).String(),
			Message:   texts.Elem(i).String(),
		})
	}
	return msgs, nil
}
