package census

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NOAA-OCM/LocalMarineEconomy/internal/config"
	apperrors "github.com/NOAA-OCM/LocalMarineEconomy/internal/errors"
	"github.com/NOAA-OCM/LocalMarineEconomy/pkg/contracts"
)

var header2012 = []string{"GEO_TTL", "YEAR", "NAICS2012_TTL", "EMPSZES", "EMPSZES_TTL", "ESTAB", "NAICS2012", "zipcode"}

func zbpRows(zip string, rows ...[]string) [][]string {
	out := [][]string{header2012}
	for _, r := range rows {
		out = append(out, append(append([]string(nil), r...), zip))
	}
	return out
}

func writeJSON(t *testing.T, w http.ResponseWriter, v interface{}) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	require.NoError(t, json.NewEncoder(w).Encode(v))
}

func testConfig(baseURL string) config.CensusConfig {
	cfg := config.Default().Census
	cfg.BaseURL = baseURL
	cfg.Timeout = 2 * time.Second
	cfg.MaxRetries = 2
	cfg.InitialBackoff = time.Millisecond
	cfg.MaxBackoff = 5 * time.Millisecond
	cfg.RequestsPerSecond = 1000
	cfg.Burst = 10
	return cfg
}

func zipOf(r *http.Request) string {
	return strings.TrimPrefix(r.URL.Query().Get("for"), "zipcode:")
}

func TestFetchZip_Success(t *testing.T) {
	var gotPath, gotGet, gotCode, gotKey, gotAgent string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAgent = r.UserAgent()
		q := r.URL.Query()
		gotGet, gotCode, gotKey = q.Get("get"), q.Get("NAICS2012"), q.Get("key")
		writeJSON(t, w, zbpRows(zipOf(r),
			[]string{"ZIP 54880 (Superior, WI)", "2016", "Finfish farming", "212", "1 to 4", "3", "112511"},
			[]string{"ZIP 54880 (Superior, WI)", "2016", "Total for all sectors", "001", "All establishments", "900", "00"},
		))
	}))
	defer srv.Close()

	cfg := testConfig(srv.URL)
	cfg.APIKey = "secret"
	c := NewClient(cfg, nil)

	table, err := c.FetchZip(context.Background(), "54880", "2016", "*")
	require.NoError(t, err)
	require.Len(t, table, 2)

	assert.Equal(t, "/2016/zbp", gotPath)
	assert.Equal(t, "GEO_TTL,YEAR,NAICS2012_TTL,EMPSZES,EMPSZES_TTL,ESTAB", gotGet)
	assert.Equal(t, "*", gotCode)
	assert.Equal(t, "secret", gotKey)
	assert.Equal(t, contracts.UserAgent(), gotAgent)

	rec := table[0]
	assert.Equal(t, "54880", rec.Zipcode)
	assert.Equal(t, "ZIP 54880 (Superior, WI)", rec.GeoName)
	assert.Equal(t, "2016", rec.Year)
	assert.Equal(t, "112511", rec.NAICS)
	assert.Equal(t, "Finfish farming", rec.IndustryName)
	assert.Equal(t, "3", rec.Establishments)
	assert.Equal(t, "212", rec.SizeClassCode)
	assert.Equal(t, "1 to 4", rec.SizeClass)
	assert.Equal(t, "001", table[1].SizeClassCode)
}

func TestFetchZip_Vintage2017(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "*", q.Get("NAICS2017"))
		assert.Contains(t, q.Get("get"), "NAICS2017_TTL")
		writeJSON(t, w, [][]string{
			{"GEO_TTL", "YEAR", "NAICS2017_TTL", "EMPSZES", "EMPSZES_TTL", "ESTAB", "NAICS2017", "zip code"},
			{"ZIP 55807", "2018", "Marinas", "220", "5 to 9", "2", "713930", zipOf(r)},
		})
	}))
	defer srv.Close()

	table, err := NewClient(testConfig(srv.URL), nil).FetchZip(context.Background(), "55807", "2018", "*")
	require.NoError(t, err)
	require.Len(t, table, 1)
	assert.Equal(t, "713930", table[0].NAICS)
	assert.Equal(t, "Marinas", table[0].IndustryName)
}

func TestFetchZip_HeaderOnlyIsEmptySuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, [][]string{header2012})
	}))
	defer srv.Close()

	table, err := NewClient(testConfig(srv.URL), nil).FetchZip(context.Background(), "55616", "2016", "*")
	require.NoError(t, err)
	assert.NotNil(t, table)
	assert.Empty(t, table)
}

func TestFetchZip_Failures(t *testing.T) {
	tests := []struct {
		name         string
		handler      func(w http.ResponseWriter, r *http.Request)
		wantAttempts int
		wantParsing  bool
	}{
		{
			name:         "no content",
			handler:      func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusNoContent) },
			wantAttempts: 1,
			wantParsing:  true,
		},
		{
			name:         "empty body",
			handler:      func(w http.ResponseWriter, r *http.Request) {},
			wantAttempts: 1,
			wantParsing:  true,
		},
		{
			name: "not json",
			handler: func(w http.ResponseWriter, r *http.Request) {
				fmt.Fprint(w, "error: unknown variable 'NAICS2012_TTL'")
			},
			wantAttempts: 1,
			wantParsing:  true,
		},
		{
			name: "missing column",
			handler: func(w http.ResponseWriter, r *http.Request) {
				fmt.Fprint(w, `[["GEO_TTL","YEAR","zipcode"],["ZIP","2016","54880"]]`)
			},
			wantAttempts: 1,
			wantParsing:  true,
		},
		{
			name: "short row",
			handler: func(w http.ResponseWriter, r *http.Request) {
				fmt.Fprint(w, `[["GEO_TTL","YEAR","NAICS2012_TTL","EMPSZES","EMPSZES_TTL","ESTAB","NAICS2012","zipcode"],["ZIP","2016"]]`)
			},
			wantAttempts: 1,
			wantParsing:  true,
		},
		{
			name:         "bad request is not retried",
			handler:      func(w http.ResponseWriter, r *http.Request) { http.Error(w, "bad", http.StatusBadRequest) },
			wantAttempts: 1,
		},
		{
			name:         "server error exhausts retries",
			handler:      func(w http.ResponseWriter, r *http.Request) { http.Error(w, "down", http.StatusServiceUnavailable) },
			wantAttempts: 3,
		},
		{
			name:         "rate limited exhausts retries",
			handler:      func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusTooManyRequests) },
			wantAttempts: 3,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls int32
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				atomic.AddInt32(&calls, 1)
				tt.handler(w, r)
			}))
			defer srv.Close()

			_, err := NewClient(testConfig(srv.URL), nil).FetchZip(context.Background(), "54880", "2016", "*")
			require.Error(t, err)

			var fe *FetchError
			require.ErrorAs(t, err, &fe)
			assert.Equal(t, "54880", fe.Zip)
			assert.Equal(t, tt.wantAttempts, fe.Attempts)
			assert.Equal(t, int32(tt.wantAttempts), atomic.LoadInt32(&calls))
			if tt.wantParsing {
				assert.Equal(t, apperrors.ErrTypeParsing, apperrors.TypeOf(err))
			}
		})
	}
}

func TestFetchZip_RetriesThenSucceeds(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		writeJSON(t, w, zbpRows(zipOf(r), []string{"ZIP", "2016", "Marinas", "212", "1 to 4", "1", "713930"}))
	}))
	defer srv.Close()

	table, err := NewClient(testConfig(srv.URL), nil).FetchZip(context.Background(), "55806", "2016", "*")
	require.NoError(t, err)
	assert.Len(t, table, 1)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestFetchZip_APIKeyNotInError(t *testing.T) {
	cfg := testConfig("http://127.0.0.1:1")
	cfg.APIKey = "do-not-leak"
	cfg.MaxRetries = 0

	_, err := NewClient(cfg, nil).FetchZip(context.Background(), "54880", "2016", "*")
	require.Error(t, err)
	assert.NotContains(t, err.Error(), "do-not-leak")
}

func TestFetchZip_WrongZipInResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, zbpRows("99999", []string{"ZIP", "2016", "Marinas", "212", "1 to 4", "1", "713930"}))
	}))
	defer srv.Close()

	_, err := NewClient(testConfig(srv.URL), nil).FetchZip(context.Background(), "54880", "2016", "*")
	var fe *FetchError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, 1, fe.Attempts)
	assert.Equal(t, apperrors.ErrTypeParsing, apperrors.TypeOf(err))
}
