package census

import (
	"context"
	"errors"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/NOAA-OCM/LocalMarineEconomy/internal/config"
	apperrors "github.com/NOAA-OCM/LocalMarineEconomy/internal/errors"
	"github.com/NOAA-OCM/LocalMarineEconomy/pkg/contracts/domain"
)

// FetchAll retrieves every zip code through a bounded worker pool and
// concatenates the results in the order the zip codes were given.
//
// Under the abort policy the first failure cancels outstanding requests and
// an error is returned. Under the skip policy failed zip codes are left out
// of the table and listed in the report; the call still fails when no zip
// code succeeded.
func (c *Client) FetchAll(ctx context.Context, zips []string, year, wildcard string) (domain.RawTable, *FetchReport, error) {
	report := &FetchReport{Requested: append([]string(nil), zips...)}

	results := make([]domain.RawTable, len(zips))
	done := make([]bool, len(zips))
	failures := make([]*FetchError, len(zips))
	attempts := make([]int, len(zips))

	abort := c.cfg.FailurePolicy != config.FailurePolicySkip

	g, gctx := errgroup.WithContext(ctx)
	limit := c.cfg.Concurrency
	if limit < 1 {
		limit = 1
	}
	g.SetLimit(limit)

	for i, zip := range zips {
		g.Go(func() error {
			c.logger.InfoContext(gctx, "fetching zip code", slog.String("zip", zip), slog.String("year", year))
			table, n, err := c.fetchZip(gctx, zip, year, wildcard)
			attempts[i] = n
			if err != nil {
				var fe *FetchError
				if !errors.As(err, &fe) {
					fe = &FetchError{Zip: zip, Attempts: n, Cause: err}
				}
				failures[i] = fe
				if abort {
					return fe
				}
				return nil
			}
			results[i] = table
			done[i] = true
			return nil
		})
	}
	groupErr := g.Wait()

	var table domain.RawTable
	for i, zip := range zips {
		report.Attempts += attempts[i]
		switch {
		case done[i]:
			report.Succeeded = append(report.Succeeded, zip)
			table = append(table, results[i]...)
		case failures[i] != nil:
			// Requests cancelled because another zip failed first are not
			// failures of their own.
			if abort && groupErr != nil && failures[i] != groupErr && ctx.Err() == nil &&
				errors.Is(failures[i], context.Canceled) {
				continue
			}
			report.Failed = append(report.Failed, failures[i])
		}
	}
	report.Rows = len(table)

	if ctx.Err() != nil {
		return nil, report, apperrors.NewFetchError("fetch cancelled", ctx.Err())
	}
	if len(report.Failed) > 0 {
		for _, f := range report.Failed {
			c.logger.ErrorContext(ctx, "zip code fetch failed",
				slog.String("zip", f.Zip),
				slog.Int("attempts", f.Attempts),
				slog.String("error", f.Cause.Error()))
		}
		if abort || report.AllFailed() {
			return nil, report, report.Err()
		}
		c.logger.WarnContext(ctx, "continuing without failed zip codes",
			slog.Any("failed_zips", report.FailedZips()))
	}

	if table == nil {
		table = domain.RawTable{}
	}
	c.logger.InfoContext(ctx, "all zip codes accessed",
		slog.Int("zip_codes", len(report.Succeeded)),
		slog.Int("rows", report.Rows))
	return table, report, nil
}
