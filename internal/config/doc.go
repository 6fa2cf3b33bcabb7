// Package config provides configuration management for the marine economy
// report. It loads configuration from multiple sources, validates it, and
// exposes a typed Config to the rest of the application.
//
// # Configuration Sources
//
// Configuration is assembled from the following sources, lowest precedence first:
//
//  1. Built-in defaults (Default)
//  2. A YAML file (marine-economy.yaml or configs/marine-economy.yaml, or -config)
//  3. Environment variables prefixed MARINE_
//  4. Options supplied by the caller (command-line flags)
//
// # Environment Variables
//
//	MARINE_STUDY_ZIP_CODES=54880,55807
//	MARINE_STUDY_YEAR=2016
//	MARINE_CENSUS_API_KEY=...
//	MARINE_CENSUS_FAILURE_POLICY=skip
//	MARINE_REPORT_OUTPUT_DIR=/data/reports
//	MARINE_LOGGING_LEVEL=debug
//
// # Validation
//
// Load rejects configurations before any network call when:
//
//   - a zip code is not exactly five digits (zip codes are never parsed as integers)
//   - the year is not in Census.SupportedYears
//   - the midpoint list does not hold nine non-negative numbers
//   - the output directory cannot be created or written
package config
