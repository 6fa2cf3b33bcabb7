package census

import (
	"fmt"
	"strings"

	apperrors "github.com/NOAA-OCM/LocalMarineEconomy/internal/errors"
)

// FetchError reports that the records for one zip code could not be
// retrieved. It is distinct from a successful response with no data rows.
type FetchError struct {
	Zip      string
	Attempts int
	Cause    error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch zip code %s failed after %d attempt(s): %v", e.Zip, e.Attempts, e.Cause)
}

func (e *FetchError) Unwrap() error {
	return e.Cause
}

// FetchReport summarizes a multi-zip retrieval.
type FetchReport struct {
	Requested []string
	Succeeded []string
	Failed    []*FetchError
	Rows      int
	Attempts  int
}

// FailedZips returns the failed zip codes in request order.
func (r *FetchReport) FailedZips() []string {
	out := make([]string, 0, len(r.Failed))
	for _, f := range r.Failed {
		out = append(out, f.Zip)
	}
	return out
}

// AllFailed reports whether no zip code was retrieved.
func (r *FetchReport) AllFailed() bool {
	return len(r.Requested) > 0 && len(r.Succeeded) == 0
}

// Err folds the per-zip failures into a single FETCH application error,
// or returns nil when every zip succeeded.
func (r *FetchReport) Err() error {
	if len(r.Failed) == 0 {
		return nil
	}
	msgs := make([]string, 0, len(r.Failed))
	for _, f := range r.Failed {
		msgs = append(msgs, f.Error())
	}
	return apperrors.NewFetchError(
		fmt.Sprintf("%d of %d zip codes failed", len(r.Failed), len(r.Requested)),
		r.Failed[0],
	).WithContext("failed_zips", r.FailedZips()).
		WithContext("details", strings.Join(msgs, "; "))
}
