// Command lasinfo decodes LAS files and prints their header, records, extra
// fields and point statistics. It can catalogue each file in a sqlite
// database and render chart reports.
package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"math"
	"os"
	"time"

	"github.com/Silvaye/FSCT-dockerized/internal/config"
	"github.com/Silvaye/FSCT-dockerized/internal/fsutil"
	"github.com/Silvaye/FSCT-dockerized/internal/las"
	"github.com/Silvaye/FSCT-dockerized/internal/lasdb"
	"github.com/Silvaye/FSCT-dockerized/internal/lasreport"
	"github.com/Silvaye/FSCT-dockerized/internal/lasstats"
	"github.com/Silvaye/FSCT-dockerized/internal/monitoring"
	"github.com/Silvaye/FSCT-dockerized/internal/security"
	"github.com/Silvaye/FSCT-dockerized/internal/timeutil"
	"github.com/Silvaye/FSCT-dockerized/internal/units"
	"github.com/Silvaye/FSCT-dockerized/internal/version"
)

func main() {
	if err := run(os.Args[1:], os.Stdout, os.Stderr, fsutil.OSFileSystem{}); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(2)
		}
		log.Fatalf("lasinfo: %v", err)
	}
}

type options struct {
	configPath  string
	dbPath      string
	reportDir   string
	jsonOut     bool
	workers     int
	timezone    string
	debug       bool
	showVersion bool
	files       []string
}

func parseFlags(args []string, stderr io.Writer) (*options, error) {
	fs := flag.NewFlagSet("lasinfo", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "usage: lasinfo [flags] file.las...\n")
		fs.PrintDefaults()
	}

	o := &options{}
	fs.StringVar(&o.configPath, "config", "", "decoder config file (.json, .yaml)")
	fs.StringVar(&o.dbPath, "db", "", "sqlite catalog to record decoded files in")
	fs.StringVar(&o.reportDir, "report-dir", "", "directory for chart reports")
	fs.BoolVar(&o.jsonOut, "json", false, "print results as JSON")
	fs.IntVar(&o.workers, "workers", -1, "decode workers (0 = one per CPU, overrides config)")
	fs.StringVar(&o.timezone, "tz", "UTC", "timezone for creation dates and GPS times")
	fs.BoolVar(&o.debug, "debug", false, "enable debug logging")
	fs.BoolVar(&o.showVersion, "version", false, "print version and exit")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if o.timezone != "" && !units.IsTimezoneValid(o.timezone) {
		return nil, fmt.Errorf("invalid -tz %q: not in the tz database", o.timezone)
	}
	o.files = fs.Args()
	return o, nil
}

func loadConfig(fsys fsutil.FileSystem, o *options) (*config.DecoderConfig, error) {
	cfg := config.EmptyDecoderConfig()
	if o.configPath != "" {
		var err error
		if cfg, err = config.LoadDecoderConfig(fsys, o.configPath); err != nil {
			return nil, err
		}
	}
	if o.workers >= 0 {
		cfg.SetWorkers(o.workers)
	}
	return cfg, nil
}

// fileResult is what lasinfo reports for one input.
type fileResult struct {
	File        string           `json:"file"`
	Version     string           `json:"version"`
	PointFormat uint8            `json:"point_format"`
	Family      string           `json:"family"`
	RecordLen   uint16           `json:"record_length"`
	Software    string           `json:"software,omitempty"`
	SystemID    string           `json:"system_id,omitempty"`
	Points      uint64           `json:"points"`
	Created     string           `json:"created,omitempty"`
	GPSTimeKind string           `json:"gps_time_kind"`
	GPSStart    string           `json:"gps_start,omitempty"`
	GPSEnd      string           `json:"gps_end,omitempty"`
	Records     []recordInfo     `json:"records,omitempty"`
	ExtraFields []extraInfo      `json:"extra_fields,omitempty"`
	Skipped     []string         `json:"skipped_descriptors,omitempty"`
	Columns     []string         `json:"columns"`
	Summary     lasstats.Summary `json:"summary"`
	BoundsDrift *float64         `json:"bounds_drift,omitempty"`
	CatalogID   string           `json:"catalog_id,omitempty"`
	Reports     []string         `json:"reports,omitempty"`
	DecodeMs    float64          `json:"decode_ms"`
}

type recordInfo struct {
	Extended    bool   `json:"extended"`
	UserID      string `json:"user_id"`
	RecordID    uint16 `json:"record_id"`
	Description string `json:"description,omitempty"`
	Length      int    `json:"length"`
	Offset      int64  `json:"offset"`
}

type extraInfo struct {
	Name   string `json:"name"`
	Type   string `json:"type"`
	Offset int    `json:"offset"`
	Scaled bool   `json:"scaled"`
}

func run(args []string, stdout, stderr io.Writer, fsys fsutil.FileSystem) error {
	o, err := parseFlags(args, stderr)
	if err != nil {
		return err
	}
	if o.showVersion {
		fmt.Fprintln(stdout, version.String("lasinfo"))
		return nil
	}
	if len(o.files) == 0 {
		return errors.New("no input files")
	}

	cfg, err := loadConfig(fsys, o)
	if err != nil {
		return err
	}
	monitoring.SetDebug(o.debug || cfg.GetDebug())

	loc, err := units.LoadTimezone(o.timezone)
	if err != nil {
		return err
	}

	if o.reportDir != "" {
		if err := security.ValidateExportPath(o.reportDir); err != nil {
			return fmt.Errorf("invalid report directory: %w", err)
		}
	}

	var catalog *lasdb.Catalog
	if o.dbPath != "" {
		if catalog, err = lasdb.Open(o.dbPath); err != nil {
			return fmt.Errorf("open catalog: %w", err)
		}
		defer catalog.Close()
	}

	dec := las.NewDecoder(cfg.DecoderOptions()...)
	results := make([]*fileResult, 0, len(o.files))
	failed := 0
	for _, path := range o.files {
		res, err := processFile(fsys, dec, catalog, cfg, loc, o.reportDir, path)
		if err != nil {
			monitoring.Logf("lasinfo: %s: %v", path, err)
			failed++
			continue
		}
		results = append(results, res)
		if !o.jsonOut {
			printText(stdout, res)
		}
	}

	if o.jsonOut {
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(results); err != nil {
			return fmt.Errorf("encode results: %w", err)
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d files failed", failed, len(o.files))
	}
	return nil
}

func processFile(fsys fsutil.FileSystem, dec *las.Decoder, catalog *lasdb.Catalog, cfg *config.DecoderConfig, loc *time.Location, reportDir, path string) (*fileResult, error) {
	buf, err := fsutil.ReadLimited(fsys, path, cfg.GetMaxInputBytes())
	if err != nil {
		return nil, fmt.Errorf("read: %w", err)
	}

	sw := timeutil.StartStopwatch(timeutil.RealClock{})
	ds, err := dec.Decode(buf)
	if err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	elapsed := sw.Elapsed()

	res := newResult(path, ds, lasstats.Summarize(ds), loc)
	res.DecodeMs = float64(elapsed.Microseconds()) / 1000
	monitoring.Debugf("lasinfo: %s: %d points decoded in %v", path, ds.Len(), elapsed)

	if catalog != nil {
		id, created, err := catalog.RecordDataset(path, buf, ds, res.Summary)
		if err != nil {
			return nil, fmt.Errorf("catalog: %w", err)
		}
		if !created {
			monitoring.Debugf("lasinfo: %s already catalogued as %s", path, id)
		}
		res.CatalogID = id
	}

	if reportDir != "" {
		paths, err := lasreport.WriteReports(fsys, reportDir, path, ds, res.Summary, lasreport.Options{
			HistogramBins:    cfg.GetHistogramBins(),
			ScatterMaxPoints: cfg.GetScatterMaxPoints(),
		})
		if err != nil {
			return nil, fmt.Errorf("report: %w", err)
		}
		res.Reports = paths
	}
	return res, nil
}

func newResult(path string, ds *las.Dataset, sum lasstats.Summary, loc *time.Location) *fileResult {
	h := ds.Header
	res := &fileResult{
		File:        path,
		Version:     fmt.Sprintf("%d.%d", h.VersionMajor, h.VersionMinor),
		PointFormat: h.PointDataFormat,
		Family:      ds.Layout.Family.String(),
		RecordLen:   h.PointDataRecordLength,
		Software:    h.GeneratingSoftware,
		SystemID:    h.SystemIdentifier,
		Points:      h.NumberOfPoints,
		Columns:     ds.ColumnNames(),
		Summary:     sum,
	}
	if d, ok := units.CreationDate(h.FileCreationYear, h.FileCreationDay); ok {
		res.Created = d.Format(time.DateOnly)
	}
	if sum.Count > 0 {
		drift := lasstats.CheckBounds(h, sum.Bounds)
		if !math.IsNaN(drift) && !math.IsInf(drift, 0) {
			res.BoundsDrift = &drift
			if tol := max(h.XScaleFactor, h.YScaleFactor, h.ZScaleFactor); drift > tol {
				monitoring.Logf("lasinfo: %s: header bounds differ from the decoded points by %g", path, drift)
			}
		}
	}
	kind := units.GPSTimeKindOf(h.GlobalEncoding)
	res.GPSTimeKind = kind.String()
	if r := sum.GPSTime; r != nil {
		res.GPSStart = units.FormatGPSTime(r.Min, kind, loc)
		res.GPSEnd = units.FormatGPSTime(r.Max, kind, loc)
	}
	for _, rs := range [][]las.Record{ds.VLRs, ds.EVLRs} {
		for _, r := range rs {
			res.Records = append(res.Records, recordInfo{
				Extended:    r.Extended,
				UserID:      r.UserID,
				RecordID:    r.RecordID,
				Description: r.Description,
				Length:      len(r.Data),
				Offset:      r.Offset,
			})
		}
	}
	for _, e := range ds.ExtraFields {
		res.ExtraFields = append(res.ExtraFields, extraInfo{
			Name:   e.Name,
			Type:   e.Type.String(),
			Offset: e.Offset,
			Scaled: e.Transform != nil,
		})
	}
	for _, s := range ds.Skipped {
		res.Skipped = append(res.Skipped, s.Error())
	}
	return res
}
