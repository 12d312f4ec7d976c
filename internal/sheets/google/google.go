package google

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"lifedash/internal/core"
	"lifedash/internal/log"
	"lifedash/internal/sheets"
)

// Client reads the month seed from two ranges of one spreadsheet.
type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	habitsRange   string
	mentalRange   string
	logger        *log.Logger
}

var _ sheets.SeedReader = (*Client)(nil)

// Config locates the seed inside a spreadsheet.
type Config struct {
	SpreadsheetID string
	// HabitsRange holds (name, goal) rows, e.g. "Habits!A2:B".
	HabitsRange string
	// MentalRange holds one metric name per row, e.g. "Mental!A2:A".
	MentalRange string
}

// Credentials name a service account key, inline or on disk.
// GOOGLE_APPLICATION_CREDENTIALS is consulted when both are empty.
type Credentials struct {
	JSON string
	File string
}

func (c Credentials) load() ([]byte, error) {
	inline := strings.TrimSpace(c.JSON)
	file := strings.TrimSpace(c.File)
	if inline == "" && file == "" {
		file = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}

	switch {
	case inline != "":
		return []byte(inline), nil
	case file != "":
		data, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		return data, nil
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}
}

// NewFromCredentials creates a read-only Sheets client authenticated as a
// service account.
func NewFromCredentials(ctx context.Context, cfg Config, creds Credentials, logger *log.Logger) (*Client, error) {
	data, err := creds.load()
	if err != nil {
		return nil, err
	}
	return New(ctx, cfg, logger,
		goption.WithCredentialsJSON(data),
		goption.WithScopes(gsheet.SpreadsheetsReadonlyScope))
}

// New creates a client with explicit client options.
func New(ctx context.Context, cfg Config, logger *log.Logger, opts ...goption.ClientOption) (*Client, error) {
	cfg.SpreadsheetID = strings.TrimSpace(cfg.SpreadsheetID)
	if cfg.SpreadsheetID == "" {
		return nil, errors.New("missing spreadsheet id")
	}
	if strings.TrimSpace(cfg.HabitsRange) == "" || strings.TrimSpace(cfg.MentalRange) == "" {
		return nil, errors.New("missing seed ranges")
	}
	svc, err := gsheet.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &Client{
		svc:           svc,
		spreadsheetID: cfg.SpreadsheetID,
		habitsRange:   cfg.HabitsRange,
		mentalRange:   cfg.MentalRange,
		logger:        logger.WithComponent(log.ComponentSheets),
	}, nil
}

// ReadSeed fetches both ranges in one request and parses them.
func (c *Client) ReadSeed(ctx context.Context) (core.Seed, error) {
	if c.svc == nil {
		return core.Seed{}, errors.New("sheets service not initialized")
	}

	resp, err := c.svc.Spreadsheets.Values.BatchGet(c.spreadsheetID).
		Ranges(c.habitsRange, c.mentalRange).
		ValueRenderOption("UNFORMATTED_VALUE").
		Context(ctx).Do()
	if err != nil {
		return core.Seed{}, fmt.Errorf("read seed ranges: %w", err)
	}
	if len(resp.ValueRanges) != 2 {
		return core.Seed{}, fmt.Errorf("read seed ranges: got %d ranges, want 2", len(resp.ValueRanges))
	}

	seed, err := sheets.ParseSeed(resp.ValueRanges[0].Values, resp.ValueRanges[1].Values)
	if err != nil {
		return core.Seed{}, err
	}
	c.logger.InfoContext(ctx, "Loaded month seed from spreadsheet",
		"habits", len(seed.Habits),
		"metrics", len(seed.Mental))
	return seed, nil
}
