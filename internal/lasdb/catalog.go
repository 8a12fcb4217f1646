// Package lasdb is a SQLite catalog of decoded LAS files: header facts,
// summary statistics, variable length records and Extra Bytes fields.
// Files are keyed by a content digest so re-cataloguing the same bytes is a
// no-op.
package lasdb

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/Silvaye/FSCT-dockerized/internal/las"
	"github.com/Silvaye/FSCT-dockerized/internal/lasstats"
	"github.com/Silvaye/FSCT-dockerized/internal/timeutil"
)

// ErrNotFound is returned when a file id or digest is not catalogued.
var ErrNotFound = errors.New("lasdb: file not found")

var pragmas = []string{
	"PRAGMA journal_mode=WAL",
	"PRAGMA busy_timeout=5000",
	"PRAGMA synchronous=NORMAL",
	"PRAGMA foreign_keys=ON",
}

// Catalog stores decoded file metadata.
type Catalog struct {
	db    *sql.DB
	clock timeutil.Clock
	newID func() string
}

// Option configures a Catalog.
type Option func(*Catalog)

// WithClock sets the clock used for created_at timestamps.
func WithClock(c timeutil.Clock) Option {
	return func(cat *Catalog) { cat.clock = c }
}

// WithIDGenerator replaces the UUID generator.
func WithIDGenerator(f func() string) Option {
	return func(cat *Catalog) { cat.newID = f }
}

// Open opens (creating if needed) the catalog at path and migrates it to the
// latest schema. Use ":memory:" for a private in-memory catalog.
func Open(path string, opts ...Option) (*Catalog, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open catalog: %w", err)
	}
	// PRAGMAs are per connection; a single connection keeps them in force
	// and serialises writers.
	db.SetMaxOpenConns(1)
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to apply %q: %w", p, err)
		}
	}

	c := &Catalog{
		db:    db,
		clock: timeutil.RealClock{},
		newID: func() string { return uuid.New().String() },
	}
	for _, o := range opts {
		o(c)
	}
	if err := c.MigrateUp(); err != nil {
		db.Close()
		return nil, err
	}
	return c, nil
}

// Close closes the database.
func (c *Catalog) Close() error { return c.db.Close() }

// File is one catalogued LAS file.
type File struct {
	FileID       string  `json:"file_id"`
	Name         string  `json:"name"`
	Digest       string  `json:"digest"`
	SizeBytes    int64   `json:"size_bytes"`
	VersionMajor uint8   `json:"version_major"`
	VersionMinor uint8   `json:"version_minor"`
	PointFormat  uint8   `json:"point_format"`
	RecordLength uint16  `json:"record_length"`
	PointCount   uint64  `json:"point_count"`
	SystemID     string  `json:"system_id,omitempty"`
	Software     string  `json:"software,omitempty"`
	MinX         float64 `json:"min_x"`
	MaxX         float64 `json:"max_x"`
	MinY         float64 `json:"min_y"`
	MaxY         float64 `json:"max_y"`
	MinZ         float64 `json:"min_z"`
	MaxZ         float64 `json:"max_z"`
	MeanZ        float64 `json:"mean_z"`
	StdDevZ      float64 `json:"stddev_z"`
	CreatedAtNs  int64   `json:"created_at_ns"`
}

// StoredRecord is a VLR or EVLR with its payload restored.
type StoredRecord struct {
	Extended    bool   `json:"extended"`
	Seq         int    `json:"seq"`
	UserID      string `json:"user_id"`
	RecordID    uint16 `json:"record_id"`
	Description string `json:"description,omitempty"`
	Offset      int64  `json:"offset"`
	Payload     []byte `json:"-"`
}

// StoredExtraField is a catalogued Extra Bytes field.
type StoredExtraField struct {
	Descriptor  int      `json:"descriptor"`
	Name        string   `json:"name"`
	DataType    string   `json:"data_type"`
	Offset      int      `json:"offset"`
	Description string   `json:"description,omitempty"`
	Scale       *float64 `json:"scale,omitempty"`
	ValueOffset *float64 `json:"value_offset,omitempty"`
}

// RecordDataset catalogues a decoded file. buf is the file content the
// dataset was decoded from. When the same bytes are already catalogued the
// existing id is returned with created false.
func (c *Catalog) RecordDataset(name string, buf []byte, ds *las.Dataset, sum lasstats.Summary) (id string, created bool, err error) {
	digest := Digest(buf)
	if f, err := c.FindByDigest(digest); err == nil {
		return f.FileID, false, nil
	} else if !errors.Is(err, ErrNotFound) {
		return "", false, err
	}

	tx, err := c.db.Begin()
	if err != nil {
		return "", false, fmt.Errorf("begin catalog transaction: %w", err)
	}
	defer tx.Rollback()

	id = c.newID()
	h := ds.Header
	b := sum.Bounds
	_, err = tx.Exec(`
		INSERT INTO las_files (
			file_id, name, digest, size_bytes, version_major, version_minor,
			point_format, record_length, point_count, system_id, software,
			min_x, max_x, min_y, max_y, min_z, max_z, mean_z, stddev_z, created_at_ns
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		id, name, digest, len(buf), h.VersionMajor, h.VersionMinor,
		h.PointDataFormat, h.PointDataRecordLength, int64(h.NumberOfPoints),
		nullString(h.SystemIdentifier), nullString(h.GeneratingSoftware),
		b.MinX, b.MaxX, b.MinY, b.MaxY, b.MinZ, b.MaxZ, sum.MeanZ, sum.StdDevZ,
		c.clock.Now().UnixNano(),
	)
	if err != nil {
		return "", false, fmt.Errorf("insert las file: %w", err)
	}

	if err := insertRecords(tx, id, ds.VLRs); err != nil {
		return "", false, err
	}
	if err := insertRecords(tx, id, ds.EVLRs); err != nil {
		return "", false, err
	}

	for _, f := range ds.ExtraFields {
		var scale, offset *float64
		if f.Transform != nil {
			scale, offset = &f.Transform.Scale, &f.Transform.Offset
		}
		_, err := tx.Exec(`
			INSERT INTO las_extra_fields (file_id, descriptor, name, data_type, byte_offset, description, scale, value_offset)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		`, id, f.Index, f.Name, f.Type.String(), f.Offset, nullString(f.Description), nullFloat64(scale), nullFloat64(offset))
		if err != nil {
			return "", false, fmt.Errorf("insert extra field %s: %w", f.Name, err)
		}
	}

	for _, cc := range sum.Classification {
		_, err := tx.Exec(`INSERT INTO las_class_counts (file_id, class, point_count) VALUES (?, ?, ?)`, id, cc.Class, cc.Count)
		if err != nil {
			return "", false, fmt.Errorf("insert class count: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", false, fmt.Errorf("commit catalog transaction: %w", err)
	}
	return id, true, nil
}

func insertRecords(tx *sql.Tx, fileID string, records []las.Record) error {
	for seq, r := range records {
		_, err := tx.Exec(`
			INSERT INTO las_records (file_id, extended, seq, user_id, record_id, description, byte_offset, payload_length, payload_zstd)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, fileID, r.Extended, seq, r.UserID, r.RecordID, nullString(r.Description), r.Offset, len(r.Data), compressPayload(r.Data))
		if err != nil {
			return fmt.Errorf("insert record %s/%d: %w", r.UserID, r.RecordID, err)
		}
	}
	return nil
}

const fileColumns = `
	file_id, name, digest, size_bytes, version_major, version_minor,
	point_format, record_length, point_count, system_id, software,
	min_x, max_x, min_y, max_y, min_z, max_z, mean_z, stddev_z, created_at_ns`

type scanner interface {
	Scan(dest ...any) error
}

func scanFile(row scanner) (*File, error) {
	f := &File{}
	var systemID, software sql.NullString
	var pointCount int64
	err := row.Scan(
		&f.FileID, &f.Name, &f.Digest, &f.SizeBytes, &f.VersionMajor, &f.VersionMinor,
		&f.PointFormat, &f.RecordLength, &pointCount, &systemID, &software,
		&f.MinX, &f.MaxX, &f.MinY, &f.MaxY, &f.MinZ, &f.MaxZ, &f.MeanZ, &f.StdDevZ, &f.CreatedAtNs,
	)
	if err != nil {
		return nil, err
	}
	f.PointCount = uint64(pointCount)
	f.SystemID = systemID.String
	f.Software = software.String
	return f, nil
}

func (c *Catalog) getFile(where string, arg any) (*File, error) {
	f, err := scanFile(c.db.QueryRow(`SELECT `+fileColumns+` FROM las_files WHERE `+where+` = ?`, arg))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get las file: %w", err)
	}
	return f, nil
}

// GetFile returns a catalogued file by id.
func (c *Catalog) GetFile(id string) (*File, error) {
	return c.getFile("file_id", id)
}

// FindByDigest returns the file whose content digest matches.
func (c *Catalog) FindByDigest(digest string) (*File, error) {
	return c.getFile("digest", digest)
}

// ListFiles returns every catalogued file, oldest first.
func (c *Catalog) ListFiles() ([]*File, error) {
	rows, err := c.db.Query(`SELECT ` + fileColumns + ` FROM las_files ORDER BY created_at_ns, name`)
	if err != nil {
		return nil, fmt.Errorf("list las files: %w", err)
	}
	defer rows.Close()

	var files []*File
	for rows.Next() {
		f, err := scanFile(rows)
		if err != nil {
			return nil, fmt.Errorf("scan las file: %w", err)
		}
		files = append(files, f)
	}
	return files, rows.Err()
}

// ListRecords returns the VLRs then EVLRs of a file with payloads
// decompressed.
func (c *Catalog) ListRecords(id string) ([]StoredRecord, error) {
	rows, err := c.db.Query(`
		SELECT extended, seq, user_id, record_id, description, byte_offset, payload_length, payload_zstd
		FROM las_records
		WHERE file_id = ?
		ORDER BY extended, seq
	`, id)
	if err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}
	defer rows.Close()

	var records []StoredRecord
	for rows.Next() {
		var r StoredRecord
		var description sql.NullString
		var length int
		var compressed []byte
		if err := rows.Scan(&r.Extended, &r.Seq, &r.UserID, &r.RecordID, &description, &r.Offset, &length, &compressed); err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		r.Description = description.String
		if r.Payload, err = decompressPayload(compressed, length); err != nil {
			return nil, fmt.Errorf("record %s/%d: %w", r.UserID, r.RecordID, err)
		}
		records = append(records, r)
	}
	return records, rows.Err()
}

// ListExtraFields returns the Extra Bytes fields of a file in descriptor
// order.
func (c *Catalog) ListExtraFields(id string) ([]StoredExtraField, error) {
	rows, err := c.db.Query(`
		SELECT descriptor, name, data_type, byte_offset, description, scale, value_offset
		FROM las_extra_fields
		WHERE file_id = ?
		ORDER BY descriptor
	`, id)
	if err != nil {
		return nil, fmt.Errorf("list extra fields: %w", err)
	}
	defer rows.Close()

	var fields []StoredExtraField
	for rows.Next() {
		var f StoredExtraField
		var description sql.NullString
		var scale, offset sql.NullFloat64
		if err := rows.Scan(&f.Descriptor, &f.Name, &f.DataType, &f.Offset, &description, &scale, &offset); err != nil {
			return nil, fmt.Errorf("scan extra field: %w", err)
		}
		f.Description = description.String
		if scale.Valid {
			f.Scale = &scale.Float64
		}
		if offset.Valid {
			f.ValueOffset = &offset.Float64
		}
		fields = append(fields, f)
	}
	return fields, rows.Err()
}

// ListClassCounts returns the stored classification histogram of a file.
func (c *Catalog) ListClassCounts(id string) ([]lasstats.ClassCount, error) {
	rows, err := c.db.Query(`SELECT class, point_count FROM las_class_counts WHERE file_id = ? ORDER BY class`, id)
	if err != nil {
		return nil, fmt.Errorf("list class counts: %w", err)
	}
	defer rows.Close()

	var counts []lasstats.ClassCount
	for rows.Next() {
		var cc lasstats.ClassCount
		if err := rows.Scan(&cc.Class, &cc.Count); err != nil {
			return nil, fmt.Errorf("scan class count: %w", err)
		}
		cc.Name = lasstats.ClassName(cc.Class)
		counts = append(counts, cc)
	}
	return counts, rows.Err()
}

// DeleteFile removes a file and everything recorded with it.
func (c *Catalog) DeleteFile(id string) error {
	res, err := c.db.Exec(`DELETE FROM las_files WHERE file_id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete las file: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete las file: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullFloat64(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}
