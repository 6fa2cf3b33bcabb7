package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NOAA-OCM/LocalMarineEconomy/internal/config"
	apperrors "github.com/NOAA-OCM/LocalMarineEconomy/internal/errors"
)

func TestParseFlags_Overrides(t *testing.T) {
	f, err := parseFlags([]string{
		"-zips", " 04401, 55807 ,",
		"-year", "2015",
		"-out", "reports",
		"-prefix", "Duluth",
		"-csv", "reports/csv",
		"-failure-policy", "skip",
		"-log-level", "debug",
	}, &bytes.Buffer{})
	require.NoError(t, err)

	cfg := config.Default()
	for _, opt := range f.options() {
		opt(cfg)
	}
	assert.Equal(t, []string{"04401", "55807"}, cfg.Study.ZipCodes)
	assert.Equal(t, "2015", cfg.Study.Year)
	assert.Equal(t, "reports", cfg.Report.OutputDir)
	assert.Equal(t, "Duluth", cfg.Report.FilePrefix)
	assert.Equal(t, "reports/csv", cfg.Report.CSVDir)
	assert.Equal(t, config.FailurePolicySkip, cfg.Census.FailurePolicy)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestParseFlags_NoOverrides(t *testing.T) {
	f, err := parseFlags(nil, &bytes.Buffer{})
	require.NoError(t, err)
	assert.Empty(t, f.options())
}

func TestParseFlags_Errors(t *testing.T) {
	_, err := parseFlags([]string{"-unknown"}, &bytes.Buffer{})
	assert.Error(t, err)

	_, err = parseFlags([]string{"extra"}, &bytes.Buffer{})
	assert.ErrorContains(t, err, "unexpected arguments")

	_, err = parseFlags([]string{"-h"}, &bytes.Buffer{})
	assert.True(t, errors.Is(err, flag.ErrHelp))
}

func TestRun_Version(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, run(context.Background(), []string{"-version"}, &out))
	assert.Contains(t, out.String(), "Local Marine Economy v")
}

func TestRun_InvalidZipCode(t *testing.T) {
	t.Chdir(t.TempDir())

	err := run(context.Background(), []string{"-zips", "5488A", "-out", t.TempDir()}, &bytes.Buffer{})
	require.Error(t, err)
	assert.True(t, apperrors.IsConfigError(err))
}

// zbpServer answers like the statistics API for the 2012 industry vintage.
func zbpServer(t *testing.T) *httptest.Server {
	t.Helper()
	header := []string{"GEO_TTL", "YEAR", "NAICS2012_TTL", "EMPSZES", "EMPSZES_TTL", "ESTAB", "NAICS2012", "zipcode"}
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		zip := strings.TrimPrefix(r.URL.Query().Get("for"), "zipcode:")
		geo := fmt.Sprintf("ZIP %s", zip)
		rows := [][]string{
			header,
			{geo, "2016", "All establishments", "001", "All establishments", "9", "483111", zip},
			{geo, "2016", "Deep sea freight transportation", "212", "1 to 4", "4", "483111", zip},
			{geo, "2016", "Offices of lawyers", "220", "5 to 9", "2", "541110", zip},
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(rows)
	}))
}

func TestRun_EndToEnd(t *testing.T) {
	srv := zbpServer(t)
	defer srv.Close()

	dir := t.TempDir()
	outDir := filepath.Join(dir, "out")
	require.NoError(t, os.MkdirAll(outDir, 0755))

	configPath := filepath.Join(dir, "marine-economy.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte(fmt.Sprintf(`
study:
  zip_codes: ["54880", "55807"]
  year: "2016"
census:
  base_url: %q
  requests_per_second: 1000
  burst: 10
report:
  output_dir: %q
  file_prefix: Test
`, srv.URL, outDir)), 0644))

	var out bytes.Buffer
	err := run(context.Background(), []string{"-config", configPath, "-csv", filepath.Join(dir, "csv")}, &out)
	require.NoError(t, err)

	workbook := filepath.Join(outDir, "Test_MarineEconomy.xlsx")
	assert.FileExists(t, workbook)
	assert.FileExists(t, filepath.Join(dir, "csv", "Test_Table1_Analysis.csv"))

	text := out.String()
	assert.Regexp(t, `Status\s+completed\n`, text)
	assert.Regexp(t, `Rows fetched\s+6\n`, text)
	assert.Regexp(t, `Total economy rows\s+4\n`, text)
	assert.Regexp(t, `Marine economy rows\s+2\n`, text)
	assert.Contains(t, text, workbook)
}
