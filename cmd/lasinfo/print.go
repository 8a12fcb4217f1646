package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
)

func printText(w io.Writer, r *fileResult) {
	fmt.Fprintf(w, "%s\n", r.File)
	fmt.Fprintf(w, "  LAS %s, point format %d (%s), record length %d\n", r.Version, r.PointFormat, r.Family, r.RecordLen)
	if r.Software != "" || r.SystemID != "" {
		fmt.Fprintf(w, "  software %q, system %q\n", r.Software, r.SystemID)
	}
	fmt.Fprintf(w, "  points %d, decoded in %.3fms\n", r.Points, r.DecodeMs)
	if r.Created != "" {
		fmt.Fprintf(w, "  created %s\n", r.Created)
	}
	if r.GPSStart != "" {
		fmt.Fprintf(w, "  %s %s .. %s\n", r.GPSTimeKind, r.GPSStart, r.GPSEnd)
	}

	if len(r.Records) > 0 {
		fmt.Fprintf(w, "  records:\n")
		tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
		for _, rec := range r.Records {
			kind := "VLR"
			if rec.Extended {
				kind = "EVLR"
			}
			fmt.Fprintf(tw, "    %s\t%s\t%d\t%d bytes\t%s\n", kind, rec.UserID, rec.RecordID, rec.Length, rec.Description)
		}
		tw.Flush()
	}
	if len(r.ExtraFields) > 0 {
		fmt.Fprintf(w, "  extra fields:\n")
		for _, e := range r.ExtraFields {
			scaled := ""
			if e.Scaled {
				scaled = " scaled"
			}
			fmt.Fprintf(w, "    %s %s @%d%s\n", e.Name, e.Type, e.Offset, scaled)
		}
	}
	for _, s := range r.Skipped {
		fmt.Fprintf(w, "  skipped: %s\n", s)
	}
	fmt.Fprintf(w, "  columns: %s\n", strings.Join(r.Columns, ", "))

	s := r.Summary
	if s.Count > 0 {
		b := s.Bounds
		fmt.Fprintf(w, "  bounds x [%.3f, %.3f] y [%.3f, %.3f] z [%.3f, %.3f]\n", b.MinX, b.MaxX, b.MinY, b.MaxY, b.MinZ, b.MaxZ)
		fmt.Fprintf(w, "  z mean %.3f stddev %.3f\n", s.MeanZ, s.StdDevZ)
		if r.BoundsDrift != nil {
			fmt.Fprintf(w, "  header bounds drift %g\n", *r.BoundsDrift)
		}
		for _, c := range s.Classification {
			fmt.Fprintf(w, "  class %3d %-26s %d\n", c.Class, c.Name, c.Count)
		}
	}
	if r.CatalogID != "" {
		fmt.Fprintf(w, "  catalog id %s\n", r.CatalogID)
	}
	for _, p := range r.Reports {
		fmt.Fprintf(w, "  wrote %s\n", p)
	}
}
