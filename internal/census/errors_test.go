package census

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	apperrors "github.com/NOAA-OCM/LocalMarineEconomy/internal/errors"
)

func TestFetchReport(t *testing.T) {
	cause := errors.New("connection reset")
	report := &FetchReport{
		Requested: []string{"54880", "55807", "55811"},
		Succeeded: []string{"55807"},
		Failed: []*FetchError{
			{Zip: "54880", Attempts: 4, Cause: cause},
			{Zip: "55811", Attempts: 1, Cause: cause},
		},
	}

	assert.Equal(t, []string{"54880", "55811"}, report.FailedZips())
	assert.False(t, report.AllFailed())

	err := report.Err()
	assert.True(t, apperrors.IsFetchError(err))
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "2 of 3 zip codes failed")

	var appErr *apperrors.AppError
	assert.ErrorAs(t, err, &appErr)
	assert.Equal(t, []string{"54880", "55811"}, appErr.Context["failed_zips"])

	assert.NoError(t, (&FetchReport{Requested: []string{"54880"}, Succeeded: []string{"54880"}}).Err())
	assert.True(t, (&FetchReport{Requested: []string{"54880"}}).AllFailed())
}

func TestFetchError(t *testing.T) {
	cause := errors.New("boom")
	err := &FetchError{Zip: "55616", Attempts: 2, Cause: cause}
	assert.Equal(t, "fetch zip code 55616 failed after 2 attempt(s): boom", err.Error())
	assert.ErrorIs(t, err, cause)
}

func TestVintageFor(t *testing.T) {
	tests := []struct {
		year string
		want vintage
	}{
		{"2012", naics2012},
		{"2016", naics2012},
		{"2017", naics2017},
		{"2018", naics2017},
		{"bad", naics2012},
	}
	for _, tt := range tests {
		t.Run(tt.year, func(t *testing.T) {
			assert.Equal(t, tt.want, vintageFor(tt.year))
		})
	}
}
