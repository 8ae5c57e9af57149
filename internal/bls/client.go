package bls

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/oews-ingest/internal/metrics"
	"github.com/JakeFAU/oews-ingest/internal/oews"
	"github.com/JakeFAU/oews-ingest/internal/record"
	"github.com/JakeFAU/oews-ingest/internal/schema"
)

// MaxBatch is the upstream cap on identifiers per timeseries request.
const MaxBatch = 50

const (
	timeseriesPath = "/timeseries/data/"
	industriesPath = "/surveys/OEWS/industries/"
	maxErrorBody   = 512
)

// Limiter paces outgoing requests.
type Limiter interface {
	Wait(ctx context.Context, rawURL string) error
}

// Config configures a Client.
type Config struct {
	BaseURL   string
	APIKey    string
	BatchSize int
	// Timeout bounds each HTTP request.
	Timeout   time.Duration
	UserAgent string
}

// Client talks to the BLS API. Safe for concurrent use.
type Client struct {
	cfg     Config
	http    *http.Client
	limiter Limiter
	logger  *zap.Logger
}

// New validates cfg and builds a Client. httpClient and limiter may be nil.
func New(cfg Config, httpClient *http.Client, limiter Limiter, logger *zap.Logger) (*Client, error) {
	if cfg.BatchSize <= 0 || cfg.BatchSize > MaxBatch {
		return nil, fmt.Errorf("bls: batch size %d outside 1..%d: %w", cfg.BatchSize, MaxBatch, oews.ErrConfiguration)
	}
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("bls: base url is required: %w", oews.ErrConfiguration)
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{cfg: cfg, http: httpClient, limiter: limiter, logger: logger}, nil
}

// BatchSize returns the configured identifiers per request.
func (c *Client) BatchSize() int {
	return c.cfg.BatchSize
}

// ResolveBatch fetches observations for ids. The result holds an entry for
// every found identifier; absent identifiers were not found. Requests are
// sent sequentially and any failure aborts the whole call.
func (c *Client) ResolveBatch(ctx context.Context, ids []oews.SeriesID, years oews.YearRange) (map[oews.SeriesID][]oews.Observation, error) {
	if err := years.Validate(); err != nil {
		return nil, fmt.Errorf("resolve batch: %w", err)
	}
	unique := make([]oews.SeriesID, 0, len(ids))
	seen := make(map[oews.SeriesID]struct{}, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		unique = append(unique, id)
	}

	out := make(map[oews.SeriesID][]oews.Observation)
	for start := 0; start < len(unique); start += c.cfg.BatchSize {
		chunk := unique[start:min(start+c.cfg.BatchSize, len(unique))]
		found, err := c.fetch(ctx, chunk, years)
		if err != nil {
			return nil, err
		}
		for id, obs := range found {
			out[id] = obs
		}
	}
	return out, nil
}

func (c *Client) fetch(ctx context.Context, ids []oews.SeriesID, years oews.YearRange) (map[oews.SeriesID][]oews.Observation, error) {
	endpoint := c.cfg.BaseURL + timeseriesPath
	label := fmt.Sprintf("timeseries response for %d series %d-%d", len(ids), years.Start, years.End)

	req := timeseriesRequest{
		SeriesID:        make([]string, len(ids)),
		StartYear:       strconv.Itoa(years.Start),
		EndYear:         strconv.Itoa(years.End),
		RegistrationKey: c.cfg.APIKey,
	}
	for i, id := range ids {
		req.SeriesID[i] = string(id)
	}
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("encode timeseries request: %w", err)
	}

	start := time.Now()
	var resp timeseriesResponse
	if err := c.do(ctx, http.MethodPost, endpoint, body, &resp); err != nil {
		metrics.ObserveAPIRequest("error", len(ids), time.Since(start))
		return nil, err
	}
	if resp.Status != StatusSucceeded {
		metrics.ObserveAPIRequest("failed", len(ids), time.Since(start))
		return nil, fmt.Errorf("%s: %w", label, &StatusError{Status: resp.Status, Messages: resp.Message})
	}
	if err := schema.Validate(label, &resp); err != nil {
		metrics.ObserveAPIRequest("invalid", len(ids), time.Since(start))
		return nil, err
	}
	metrics.ObserveAPIRequest("ok", len(ids), time.Since(start))

	requested := make(map[oews.SeriesID]struct{}, len(ids))
	for _, id := range ids {
		requested[id] = struct{}{}
	}
	found := make(map[oews.SeriesID][]oews.Observation)
	for _, s := range resp.Results.Series {
		id := oews.SeriesID(s.SeriesID)
		if _, ok := requested[id]; !ok {
			c.logger.Debug("ignoring unrequested series", zap.String("series_id", s.SeriesID))
			continue
		}
		if len(s.Data) == 0 {
			continue
		}
		obs, err := observations(id, s.Data)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", label, err)
		}
		found[id] = append(found[id], obs...)
	}
	c.logger.Debug("timeseries batch resolved",
		zap.Int("requested", len(ids)),
		zap.Int("found", len(found)),
		zap.Int("messages", len(resp.Message)),
	)
	return found, nil
}

func observations(id oews.SeriesID, data []dataPoint) ([]oews.Observation, error) {
	out := make([]oews.Observation, 0, len(data))
	for _, d := range data {
		year, err := record.ParseYear("year", d.Year)
		if err != nil {
			return nil, fmt.Errorf("series %s: %w", id, err)
		}
		value, err := record.ParseValue("value", d.Value)
		if err != nil {
			return nil, fmt.Errorf("series %s year %d: %w", id, year, err)
		}
		codes := make([]string, 0, len(d.Footnotes))
		for _, f := range d.Footnotes {
			if f.Code != "" {
				codes = append(codes, f.Code)
			}
		}
		out = append(out, oews.Observation{
			SeriesID:  id,
			Year:      year,
			Period:    d.Period,
			Value:     value,
			Footnotes: strings.Join(codes, ","),
		})
	}
	return out, nil
}

// FetchIndustries lists the OEWS industry catalog as hierarchy nodes. Codes
// outside levels 2 to 6 are dropped.
func (c *Client) FetchIndustries(ctx context.Context) ([]oews.Node, error) {
	var resp industriesResponse
	if err := c.do(ctx, http.MethodGet, c.cfg.BaseURL+industriesPath, nil, &resp); err != nil {
		return nil, err
	}
	if err := schema.Validate("industries response", &resp); err != nil {
		return nil, err
	}
	nodes := make([]oews.Node, 0, len(resp.Industries))
	for _, ind := range resp.Industries {
		n, err := oews.NewNode(ind.Code, ind.Text)
		if err != nil {
			c.logger.Debug("skipping industry", zap.String("code", ind.Code), zap.Error(err))
			continue
		}
		nodes = append(nodes, n)
	}
	return nodes, nil
}

// do sends one request after waiting on the limiter and decodes a 2xx JSON body into out.
func (c *Client) do(ctx context.Context, method, endpoint string, body []byte, out any) error {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx, endpoint); err != nil {
			return fmt.Errorf("rate limit %s: %w", endpoint, err)
		}
	}
	if c.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.cfg.Timeout)
		defer cancel()
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return fmt.Errorf("build request %s: %w", endpoint, err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if c.cfg.UserAgent != "" {
		req.Header.Set("User-Agent", c.cfg.UserAgent)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return &TransportError{Op: method, URL: endpoint, Err: err}
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &TransportError{Op: method, URL: endpoint, StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(snippet))}
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w: %w", endpoint, err, oews.ErrValidation)
	}
	return nil
}
