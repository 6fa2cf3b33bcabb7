package config

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	apperrors "github.com/NOAA-OCM/LocalMarineEconomy/internal/errors"
	"github.com/NOAA-OCM/LocalMarineEconomy/internal/files"
)

var zipCodePattern = regexp.MustCompile(`^[0-9]{5}$`)

// newValidator returns a validator with the domain tags registered:
// zipcode (exactly five digits) and midpoint (finite, non-negative decimal).
func newValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("zipcode", isZipCode)
	_ = v.RegisterValidation("midpoint", isMidpoint)
	v.RegisterStructValidation(validateStudyYear, Config{})
	return v
}

func isZipCode(fl validator.FieldLevel) bool {
	return zipCodePattern.MatchString(fl.Field().String())
}

func isMidpoint(fl validator.FieldLevel) bool {
	f, err := strconv.ParseFloat(strings.TrimSpace(fl.Field().String()), 64)
	if err != nil {
		return false
	}
	return !math.IsNaN(f) && !math.IsInf(f, 0) && f >= 0
}

// validateStudyYear checks the study year against the supported set.
func validateStudyYear(sl validator.StructLevel) {
	cfg := sl.Current().Interface().(Config)
	for _, y := range cfg.Census.SupportedYears {
		if y == cfg.Study.Year {
			return
		}
	}
	sl.ReportError(cfg.Study.Year, "Study.Year", "Year", "census_year", strings.Join(cfg.Census.SupportedYears, " "))
}

// Validate checks every field and the output directory. All problems are
// reported together as one CONFIG error.
func (c *Config) Validate() error {
	var problems []string

	if err := newValidator().Struct(c); err != nil {
		verrs, ok := err.(validator.ValidationErrors)
		if !ok {
			return apperrors.NewConfigError("config validation failed", err)
		}
		for _, fe := range verrs {
			problems = append(problems, describe(fe))
		}
	}

	if dup := firstDuplicate(c.Study.ZipCodes); dup != "" {
		problems = append(problems, fmt.Sprintf("zip code %s is listed more than once", dup))
	}

	if len(problems) > 0 {
		return apperrors.NewConfigError("config validation failed: "+strings.Join(problems, "; "), nil).
			WithContext("problems", problems)
	}

	if err := c.ValidatePaths(); err != nil {
		return err
	}

	return nil
}

// ValidatePaths ensures the output directory exists and is writable, so an
// unwritable destination fails before any network call.
func (c *Config) ValidatePaths() error {
	dirs := []string{c.Report.OutputDir}
	if c.Report.CSVDir != "" {
		dirs = append(dirs, c.Report.CSVDir)
	}
	for _, dir := range dirs {
		if err := files.CheckWritable(dir); err != nil {
			return apperrors.NewConfigError("output directory is not writable", err).
				WithContext("path", dir)
		}
	}
	return nil
}

func describe(fe validator.FieldError) string {
	field := strings.TrimPrefix(fe.Namespace(), "Config.")
	switch fe.Tag() {
	case "zipcode":
		return fmt.Sprintf("%s: %q is not a 5-digit zip code", field, fe.Value())
	case "midpoint":
		return fmt.Sprintf("%s: %q is not a non-negative number", field, fe.Value())
	case "census_year":
		return fmt.Sprintf("%s: %v is not a supported year (%s)", field, fe.Value(), fe.Param())
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "len":
		return fmt.Sprintf("%s must have length %s", field, fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s], got %v", field, fe.Param(), fe.Value())
	default:
		return fmt.Sprintf("%s failed %s=%s (value %v)", field, fe.Tag(), fe.Param(), fe.Value())
	}
}

func firstDuplicate(values []string) string {
	seen := make(map[string]struct{}, len(values))
	for _, v := range values {
		if _, ok := seen[v]; ok {
			return v
		}
		seen[v] = struct{}{}
	}
	return ""
}
