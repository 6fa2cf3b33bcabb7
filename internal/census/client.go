// Package census retrieves Zip Code Business Patterns records from the
// Census Bureau statistics API, one request per zip code.
package census

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"

	"github.com/NOAA-OCM/LocalMarineEconomy/internal/config"
	apperrors "github.com/NOAA-OCM/LocalMarineEconomy/internal/errors"
	"github.com/NOAA-OCM/LocalMarineEconomy/pkg/contracts"
	"github.com/NOAA-OCM/LocalMarineEconomy/pkg/contracts/domain"
)

const maxResponseBytes = 32 << 20

// Client issues rate-limited, retried requests against the ZBP endpoint.
// It is safe for concurrent use.
type Client struct {
	cfg     config.CensusConfig
	http    *http.Client
	limiter *rate.Limiter
	logger  *slog.Logger
	tracer  trace.Tracer
}

// NewClient creates a client. A nil logger uses slog.Default().
func NewClient(cfg config.CensusConfig, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	burst := cfg.Burst
	if burst < 1 {
		burst = 1
	}
	return &Client{
		cfg:     cfg,
		http:    &http.Client{Timeout: cfg.Timeout},
		limiter: rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), burst),
		logger:  logger.With(slog.String("component", "census")),
		tracer:  otel.Tracer("github.com/NOAA-OCM/LocalMarineEconomy/internal/census"),
	}
}

// FetchZip retrieves every record for one zip code. The first response row
// is consumed as the header. A response that is empty, not JSON, or missing
// an expected column is a *FetchError; a header with no data rows is a
// successful empty table.
func (c *Client) FetchZip(ctx context.Context, zip, year, wildcard string) (domain.RawTable, error) {
	table, _, err := c.fetchZip(ctx, zip, year, wildcard)
	return table, err
}

func (c *Client) fetchZip(ctx context.Context, zip, year, wildcard string) (domain.RawTable, int, error) {
	ctx, span := c.tracer.Start(ctx, "census.FetchZip",
		trace.WithAttributes(
			attribute.String("census.zip", zip),
			attribute.String("census.year", year),
		))
	defer span.End()

	v := vintageFor(year)
	reqURL, err := c.buildURL(zip, year, wildcard, v)
	if err != nil {
		return nil, 0, &FetchError{Zip: zip, Cause: err}
	}

	var (
		attempts int
		table    domain.RawTable
	)
	operation := func() error {
		attempts++
		if err := c.limiter.Wait(ctx); err != nil {
			return backoff.Permanent(err)
		}
		t, err := c.get(ctx, reqURL, zip, v)
		if err != nil {
			return err
		}
		table = t
		return nil
	}

	policy := backoff.WithContext(backoff.WithMaxRetries(c.newBackOff(), c.cfg.MaxRetries), ctx)
	err = backoff.RetryNotify(operation, policy, func(err error, d time.Duration) {
		c.logger.WarnContext(ctx, "zip code fetch failed, retrying",
			slog.String("zip", zip),
			slog.Int("attempt", attempts),
			slog.Duration("delay", d),
			slog.String("error", err.Error()))
	})
	span.SetAttributes(attribute.Int("census.attempts", attempts))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, attempts, &FetchError{Zip: zip, Attempts: attempts, Cause: err}
	}

	span.SetAttributes(attribute.Int("census.rows", len(table)))
	return table, attempts, nil
}

func (c *Client) newBackOff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.cfg.InitialBackoff
	b.MaxInterval = c.cfg.MaxBackoff
	// WithMaxRetries bounds the attempts.
	b.MaxElapsedTime = 0
	b.Reset()
	return b
}

// buildURL renders {base}/{year}/{dataset}?get=...&for=zipcode:{zip}&{code var}={wildcard}
func (c *Client) buildURL(zip, year, wildcard string, v vintage) (string, error) {
	u, err := url.Parse(c.cfg.BaseURL)
	if err != nil {
		return "", apperrors.NewConfigError("invalid census base URL", err)
	}
	u = u.JoinPath(year, c.cfg.Dataset)

	q := url.Values{}
	q.Set("get", strings.Join(v.getVariables(), ","))
	q.Set("for", geographyZipcode+":"+zip)
	q.Set(v.Code, wildcard)
	if c.cfg.APIKey != "" {
		q.Set("key", c.cfg.APIKey)
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// statusError is a non-200 upstream answer.
type statusError struct {
	Code int
	Body string
}

func (e *statusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("census API returned %d %s", e.Code, http.StatusText(e.Code))
	}
	return fmt.Sprintf("census API returned %d %s: %s", e.Code, http.StatusText(e.Code), e.Body)
}

func retryable(code int) bool {
	return code == http.StatusTooManyRequests || code >= http.StatusInternalServerError
}

// get performs one attempt. Errors worth retrying are returned as-is,
// everything else is wrapped with backoff.Permanent.
func (c *Client) get(ctx context.Context, reqURL, zip string, v vintage) (domain.RawTable, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, backoff.Permanent(err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", contracts.UserAgent())

	resp, err := c.http.Do(req)
	if err != nil {
		// url.Error carries the query string, which may hold the API key.
		var uerr *url.Error
		if errors.As(err, &uerr) {
			err = fmt.Errorf("%s request: %w", uerr.Op, uerr.Err)
		}
		if ctx.Err() != nil {
			return nil, backoff.Permanent(err)
		}
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusOK:
	case resp.StatusCode == http.StatusNoContent:
		return nil, backoff.Permanent(apperrors.NewParsingError("census API returned no content", nil))
	case retryable(resp.StatusCode):
		return nil, &statusError{Code: resp.StatusCode, Body: snippet(body)}
	default:
		return nil, backoff.Permanent(&statusError{Code: resp.StatusCode, Body: snippet(body)})
	}

	table, err := decodeTable(body, zip, v)
	if err != nil {
		return nil, backoff.Permanent(err)
	}
	return table, nil
}

func snippet(b []byte) string {
	s := strings.TrimSpace(string(b))
	if len(s) > 200 {
		s = s[:200] + "..."
	}
	return s
}

// decodeTable turns the array-of-arrays payload into records, mapping the
// header labels onto the stable column vocabulary.
func decodeTable(body []byte, zip string, v vintage) (domain.RawTable, error) {
	var rows [][]*string
	if err := json.Unmarshal(body, &rows); err != nil {
		return nil, apperrors.NewParsingError("response is not a JSON array of string rows", err)
	}
	if len(rows) == 0 {
		return nil, apperrors.NewParsingError("response has no header row", nil)
	}

	cols, err := mapHeader(rows[0], v)
	if err != nil {
		return nil, err
	}

	table := make(domain.RawTable, 0, len(rows)-1)
	for i, row := range rows[1:] {
		if len(row) != len(rows[0]) {
			return nil, apperrors.NewParsingError(
				fmt.Sprintf("row %d has %d fields, header has %d", i+1, len(row), len(rows[0])), nil)
		}
		rec := domain.EstablishmentRecord{
			Zipcode:        value(row[cols.zip]),
			GeoName:        value(row[cols.geo]),
			Year:           value(row[cols.year]),
			NAICS:          value(row[cols.code]),
			IndustryName:   value(row[cols.title]),
			Establishments: value(row[cols.estab]),
			SizeClassCode:  value(row[cols.sizeCode]),
			SizeClass:      value(row[cols.sizeTitle]),
		}
		if rec.Zipcode != zip {
			return nil, apperrors.NewParsingError(
				fmt.Sprintf("row %d is for zip code %q", i+1, rec.Zipcode), nil)
		}
		table = append(table, rec)
	}
	return table, nil
}

type columnIndex struct {
	zip, geo, year, code, title, estab, sizeCode, sizeTitle int
}

func mapHeader(header []*string, v vintage) (columnIndex, error) {
	pos := make(map[string]int, len(header))
	for i, h := range header {
		pos[value(h)] = i
	}

	var missing []string
	lookup := func(labels ...string) int {
		for _, l := range labels {
			if i, ok := pos[l]; ok {
				return i
			}
		}
		missing = append(missing, labels[0])
		return -1
	}

	idx := columnIndex{
		zip:       lookup(zipHeaderLabels...),
		geo:       lookup(varGeoTitle),
		year:      lookup(varYear),
		code:      lookup(v.Code),
		title:     lookup(v.Title),
		estab:     lookup(varEstablishments),
		sizeCode:  lookup(varSizeClass),
		sizeTitle: lookup(varSizeClassTitle),
	}
	if len(missing) > 0 {
		return columnIndex{}, apperrors.NewParsingError(
			"response header is missing columns: "+strings.Join(missing, ", "), nil)
	}
	return idx, nil
}

func value(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
