package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"
	kongdotenv "github.com/titusjaka/kong-dotenv-go"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	_ "modernc.org/sqlite"

	"github.com/11r0n/MAJI-NDOGO-PROJECT/internal/analyze"
	"github.com/11r0n/MAJI-NDOGO-PROJECT/internal/api"
	"github.com/11r0n/MAJI-NDOGO-PROJECT/internal/cleaner"
	"github.com/11r0n/MAJI-NDOGO-PROJECT/internal/ingest"
	"github.com/11r0n/MAJI-NDOGO-PROJECT/internal/models"
	"github.com/11r0n/MAJI-NDOGO-PROJECT/internal/store"
	"github.com/11r0n/MAJI-NDOGO-PROJECT/internal/weather"
)

var defaultStations = []models.Station{
	{StationID: "0", Name: "Akatsi Lowlands", Latitude: -4.12, Longitude: 33.58, Elevation: 412, ElevationTier: models.TierValleyFloor, Active: true},
	{StationID: "1", Name: "Sokoto Plains", Latitude: -3.87, Longitude: 33.91, Elevation: 486, ElevationTier: models.TierValleyFloor, Active: true},
	{StationID: "2", Name: "Hawassa Ridge", Latitude: -4.05, Longitude: 34.22, Elevation: 734, ElevationTier: models.TierMidSlope, Active: true},
	{StationID: "3", Name: "Amanzi Terraces", Latitude: -4.31, Longitude: 34.07, Elevation: 1048, ElevationTier: models.TierMidSlope, Active: true},
	{StationID: "4", Name: "Kilimani Highlands", Latitude: -4.47, Longitude: 34.39, Elevation: 1367, ElevationTier: models.TierUpper, Active: true},
}

// Context carries the shared dependencies into command Run methods.
type Context struct {
	Store  *store.Store
	Logger *zap.Logger
}

type CLI struct {
	DB       string `help:"Path to the working SQLite database." default:"data/majindogo.db" env:"MAJINDOGO_DB"`
	LogLevel string `help:"Log level." enum:"debug,info,warn,error,none" default:"info" env:"MAJINDOGO_LOG_LEVEL"`

	Ingest    IngestCmd    `cmd:"" help:"Load raw survey and weather data."`
	Clean     CleanCmd     `cmd:"" help:"Normalize raw field records into the cleaned dataset."`
	Summarize SummarizeCmd `cmd:"" help:"Descriptive statistics of one field per group."`
	Compare   CompareCmd   `cmd:"" help:"Welch's t-test between two groups."`
	Outliers  OutliersCmd  `cmd:"" help:"List records beyond a threshold."`
	Serve     ServeCmd     `cmd:"" help:"Serve the JSON API."`
}

type IngestCmd struct {
	Fields  IngestFieldsCmd  `cmd:"" help:"Load field records from the survey database."`
	Weather IngestWeatherCmd `cmd:"" help:"Fetch the station mapping and weather message CSVs."`
}

type IngestFieldsCmd struct {
	SurveyDB string `help:"Path to the survey SQLite database." required:"" env:"MAJINDOGO_SURVEY_DB"`
	Query    string `help:"Override the survey join query."`
}

func (c *IngestFieldsCmd) Run(ctx *Context) error {
	survey, err := ingest.OpenSurvey(c.SurveyDB, c.Query, ctx.Logger)
	if err != nil {
		return err
	}
	defer survey.Close()

	ingestor := ingest.NewIngestor(ctx.Store, nil, nil, ctx.Logger)
	n, err := ingestor.IngestFields(survey)
	if err != nil {
		return err
	}
	fmt.Printf("ingested %d field records\n", n)
	return nil
}

type IngestWeatherCmd struct {
	MappingURL  string `help:"URL of the station-mapping CSV (http, https, or ftp)." required:"" env:"MAJINDOGO_MAPPING_URL"`
	MessagesURL string `help:"URL of the weather-message CSV (http, https, or ftp)." required:"" env:"MAJINDOGO_MESSAGES_URL"`
}

func (c *IngestWeatherCmd) Run(ctx *Context) error {
	fetcher := ingest.NewCSVFetcher(ctx.Logger)
	extractor := weather.NewExtractor(nil, ctx.Logger)
	ingestor := ingest.NewIngestor(ctx.Store, fetcher, extractor, ctx.Logger)

	mapped, err := ingestor.IngestStationMapping(c.MappingURL)
	if err != nil {
		return fmt.Errorf("station mapping: %w", err)
	}

	messages, err := ingestor.IngestWeatherMessages(c.MessagesURL)
	if err != nil {
		return fmt.Errorf("weather messages: %w", err)
	}

	fmt.Printf("mapped %d fields, ingested %d weather messages\n", mapped, messages)
	return nil
}

type CleanCmd struct {
	OutOfRange string `help:"Out-of-range value policy." enum:"clip,drop,error" default:"clip"`
	Missing    string `help:"Missing value policy." enum:"impute,drop" default:"impute"`
}

func (c *CleanCmd) Run(ctx *Context) error {
	raw, err := ctx.Store.GetFieldRecords()
	if err != nil {
		return err
	}

	cfg := cleaner.DefaultConfig()
	cfg.OutOfRange = cleaner.Policy(c.OutOfRange)
	cfg.Missing = cleaner.MissingPolicy(c.Missing)

	ds, err := cleaner.New(cfg, ctx.Logger).Clean(raw)
	if err != nil {
		return err
	}

	if err := ctx.Store.ReplaceCleanedRecords(ds); err != nil {
		return err
	}
	fmt.Printf("cleaned %d of %d records\n", ds.Len(), len(raw))
	return nil
}

type SummarizeCmd struct {
	GroupBy string `help:"Grouping attribute." enum:"crop,elevation,station" default:"crop"`
	Field   string `help:"Field to summarize." default:"yield"`
}

func (c *SummarizeCmd) Run(ctx *Context) error {
	field, err := models.ParseField(c.Field)
	if err != nil {
		return err
	}
	groupBy, err := analyze.ParseGroupBy(c.GroupBy)
	if err != nil {
		return err
	}

	ds, err := ctx.Store.GetCleanedDataset()
	if err != nil {
		return err
	}

	return writeJSON(analyze.Summarize(ds, field, groupBy))
}

type CompareCmd struct {
	A       string  `help:"First group key." required:""`
	B       string  `help:"Second group key." required:""`
	GroupBy string  `help:"Grouping attribute." enum:"crop,elevation,station" default:"crop"`
	Field   string  `help:"Field to compare." default:"yield"`
	Alpha   float64 `help:"Significance level." default:"0.05"`
}

func (c *CompareCmd) Run(ctx *Context) error {
	field, err := models.ParseField(c.Field)
	if err != nil {
		return err
	}
	groupBy, err := analyze.ParseGroupBy(c.GroupBy)
	if err != nil {
		return err
	}

	ds, err := ctx.Store.GetCleanedDataset()
	if err != nil {
		return err
	}

	result, err := analyze.CompareGroups(ds, field, groupBy, c.A, c.B, c.Alpha)
	if err != nil {
		return err
	}
	return writeJSON(result)
}

type OutliersCmd struct {
	Field     string  `help:"Field to threshold." default:"pollution_level"`
	Threshold float64 `help:"Threshold value." required:""`
	Direction string  `help:"Outlier direction." enum:"above,below" default:"above"`
}

func (c *OutliersCmd) Run(ctx *Context) error {
	field, err := models.ParseField(c.Field)
	if err != nil {
		return err
	}
	dir, err := analyze.ParseDirection(c.Direction)
	if err != nil {
		return err
	}

	ds, err := ctx.Store.GetCleanedDataset()
	if err != nil {
		return err
	}

	records := make([]models.Record, 0)
	for r := range analyze.Outliers(ds, field, c.Threshold, dir) {
		records = append(records, r)
	}
	return writeJSON(records)
}

type ServeCmd struct {
	Port string `help:"HTTP server port." default:"8080" env:"MAJINDOGO_PORT"`
}

func (c *ServeCmd) Run(ctx *Context) error {
	runCtx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	server := api.NewServer(ctx.Store, c.Port, ctx.Logger)
	return server.Run(runCtx)
}

func newLogger(level string) (*zap.Logger, error) {
	if level == "none" {
		return zap.NewNop(), nil
	}
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, err
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	return cfg.Build()
}

func writeJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func main() {
	var cli CLI
	kctx := kong.Parse(&cli,
		kong.Name("majindogo"),
		kong.Description("Maji Ndogo agricultural survey analytics pipeline."),
		kong.Configuration(kongdotenv.ENVFileReader, ".env"),
	)

	logger, err := newLogger(cli.LogLevel)
	kctx.FatalIfErrorf(err)
	defer logger.Sync()

	db, err := sql.Open("sqlite", cli.DB)
	kctx.FatalIfErrorf(err)
	defer db.Close()

	db.Exec("PRAGMA journal_mode=WAL")
	db.Exec("PRAGMA busy_timeout=5000")

	st := store.New(db)
	kctx.FatalIfErrorf(st.Migrate())

	for _, station := range defaultStations {
		kctx.FatalIfErrorf(st.UpsertStation(station))
	}

	err = kctx.Run(&Context{Store: st, Logger: logger})
	kctx.FatalIfErrorf(err)
}
