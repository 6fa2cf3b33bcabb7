// Command marine-economy builds the local marine economy workbook for a
// set of zip codes from the ZIP Code Business Patterns dataset.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"os"
	"os/signal"
	"slices"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/NOAA-OCM/LocalMarineEconomy/internal/config"
	"github.com/NOAA-OCM/LocalMarineEconomy/internal/infrastructure"
	"github.com/NOAA-OCM/LocalMarineEconomy/internal/operations"
	"github.com/NOAA-OCM/LocalMarineEconomy/pkg/contracts"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		slog.Error("Run failed", "error", err)
		stop()
		os.Exit(1)
	}
}

// flags are the command line overrides. Empty values leave the
// configuration untouched.
type flags struct {
	configPath    string
	zips          string
	year          string
	outDir        string
	prefix        string
	csvDir        string
	failurePolicy string
	logLevel      string
	showVersion   bool
}

func parseFlags(args []string, output io.Writer) (*flags, error) {
	f := &flags{}
	fs := flag.NewFlagSet("marine-economy", flag.ContinueOnError)
	fs.SetOutput(output)
	fs.StringVar(&f.configPath, "config", "", "path to the YAML config file (defaults to marine-economy.yaml or configs/marine-economy.yaml)")
	fs.StringVar(&f.zips, "zips", "", "comma separated study zip codes")
	fs.StringVar(&f.year, "year", "", "dataset year")
	fs.StringVar(&f.outDir, "out", "", "output directory for the workbook")
	fs.StringVar(&f.prefix, "prefix", "", "workbook file name prefix")
	fs.StringVar(&f.csvDir, "csv", "", "also write the analysis tables as CSV files to this directory")
	fs.StringVar(&f.failurePolicy, "failure-policy", "", "what to do when a zip code cannot be fetched: abort or skip")
	fs.StringVar(&f.logLevel, "log-level", "", "log level: debug, info, warn or error")
	fs.BoolVar(&f.showVersion, "version", false, "print version information and exit")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if fs.NArg() > 0 {
		return nil, fmt.Errorf("unexpected arguments: %s", strings.Join(fs.Args(), " "))
	}
	return f, nil
}

// options turns the flags into config overrides applied after the file
// and the environment.
func (f *flags) options() []config.Option {
	var opts []config.Option
	if f.zips != "" {
		zips := splitList(f.zips)
		opts = append(opts, func(c *config.Config) { c.Study.ZipCodes = zips })
	}
	if f.year != "" {
		opts = append(opts, func(c *config.Config) { c.Study.Year = f.year })
	}
	if f.outDir != "" {
		opts = append(opts, func(c *config.Config) { c.Report.OutputDir = f.outDir })
	}
	if f.prefix != "" {
		opts = append(opts, func(c *config.Config) { c.Report.FilePrefix = f.prefix })
	}
	if f.csvDir != "" {
		opts = append(opts, func(c *config.Config) { c.Report.CSVDir = f.csvDir })
	}
	if f.failurePolicy != "" {
		opts = append(opts, func(c *config.Config) { c.Census.FailurePolicy = f.failurePolicy })
	}
	if f.logLevel != "" {
		opts = append(opts, func(c *config.Config) { c.Logging.Level = f.logLevel })
	}
	return opts
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func run(ctx context.Context, args []string, stdout io.Writer) error {
	f, err := parseFlags(args, stdout)
	if err != nil {
		return err
	}
	if f.showVersion {
		fmt.Fprintln(stdout, contracts.ReadBuildInfo())
		return nil
	}

	cfg, err := config.Load(f.configPath, f.options()...)
	if err != nil {
		return err
	}

	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer infrastructure.CloseLogFile()

	tel, err := infrastructure.InitializeTelemetry(cfg.Telemetry, contracts.Version, logger)
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := tel.Shutdown(shutdownCtx); err != nil {
			logger.Error("Telemetry shutdown failed", slog.String("error", err.Error()))
		}
	}()

	deps, err := operations.NewDeps(cfg, tel, logger)
	if err != nil {
		return err
	}
	manager, err := operations.NewManager(cfg, deps, logger)
	if err != nil {
		return err
	}

	summary, err := manager.Run(ctx)
	if summary != nil {
		printSummary(stdout, summary)
	}
	return err
}

func printSummary(w io.Writer, s *operations.Summary) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	defer tw.Flush()

	fmt.Fprintf(tw, "Run\t%s\n", s.RunID)
	fmt.Fprintf(tw, "Status\t%s\n", s.Status)
	fmt.Fprintf(tw, "Started\t%s\n", s.StartTime.Format(time.RFC3339))
	fmt.Fprintf(tw, "Finished\t%s\n", s.EndTime.Format(time.RFC3339))
	fmt.Fprintf(tw, "Run time\t%s\n", s.Duration.Round(time.Millisecond))
	fmt.Fprintf(tw, "Year\t%s\n", s.Year)
	fmt.Fprintf(tw, "Zip codes\t%s\n", strings.Join(s.ZipCodes, ", "))
	if len(s.FailedZips) > 0 {
		fmt.Fprintf(tw, "Failed zip codes\t%s\n", strings.Join(s.FailedZips, ", "))
	}
	fmt.Fprintf(tw, "Rows fetched\t%d\n", s.RowsFetched)
	fmt.Fprintf(tw, "Rows kept\t%d\n", s.Clean.Kept)
	fmt.Fprintf(tw, "Total economy rows\t%d\n", s.TotalRows)
	fmt.Fprintf(tw, "Marine economy rows\t%d\n", s.MarineRows)
	fmt.Fprintf(tw, "Crosswalk\t%s\n", s.ReferenceVersion)

	counts := s.IssueCounts()
	for _, kind := range slices.Sorted(maps.Keys(counts)) {
		fmt.Fprintf(tw, "Issues: %s\t%d\n", kind, counts[kind])
	}

	if s.OutputPath != "" {
		fmt.Fprintf(tw, "Output\t%s\n", s.OutputPath)
	}
	for _, p := range s.CSVPaths {
		fmt.Fprintf(tw, "CSV\t%s\n", p)
	}
}
