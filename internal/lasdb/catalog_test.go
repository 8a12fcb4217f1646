package lasdb

import (
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Silvaye/FSCT-dockerized/internal/las"
	"github.com/Silvaye/FSCT-dockerized/internal/lasstats"
	"github.com/Silvaye/FSCT-dockerized/internal/testutil"
	"github.com/Silvaye/FSCT-dockerized/internal/timeutil"
)

var epoch = time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

func openTestCatalog(t *testing.T) (*Catalog, *timeutil.MockClock) {
	t.Helper()
	clock := timeutil.NewMockClock(epoch)
	clock.SetAutoStep(time.Second)
	n := 0
	cat, err := Open(filepath.Join(t.TempDir(), "catalog.db"),
		WithClock(clock),
		WithIDGenerator(func() string { n++; return fmt.Sprintf("file-%d", n) }),
	)
	require.NoError(t, err)
	t.Cleanup(func() { cat.Close() })
	return cat, clock
}

func sampleFile(t *testing.T, seed int32) ([]byte, *las.Dataset, lasstats.Summary) {
	t.Helper()
	b := testutil.NewLASBuilder(1)
	b.RecordLength = 30
	b.SystemID = "survey"
	b.AddVLR(testutil.Record{UserID: "LASF_Projection", RecordID: 2112, Description: "wkt", Data: []byte("PROJCS[\"local\"]")})
	b.AddVLR(testutil.ExtraBytesRecord(
		testutil.Descriptor{Type: 3, Name: "amplitude", Description: "pulse amplitude"},
	))
	b.AddEVLR(testutil.Record{UserID: "notes", RecordID: 1, Data: make([]byte, 4096)})
	for i := int32(0); i < 4; i++ {
		b.AddPoint(testutil.NewPointRecord(30).XYZ(seed+i, i, 10*i).U8(15, uint8(2+i%2)).U16(28, uint16(i)))
	}
	buf := b.Bytes()
	ds, err := las.Decode(buf)
	require.NoError(t, err)
	return buf, ds, lasstats.Summarize(ds)
}

func TestOpen_MigratesToLatest(t *testing.T) {
	cat, _ := openTestCatalog(t)

	version, dirty, err := cat.MigrateVersion()
	require.NoError(t, err)
	assert.Equal(t, uint(SCHEMA_VERSION), version)
	assert.False(t, dirty)

	// Running again is a no-op.
	require.NoError(t, cat.MigrateUp())
}

func TestMigrateDown(t *testing.T) {
	cat, _ := openTestCatalog(t)

	require.NoError(t, cat.MigrateDown())
	version, _, err := cat.MigrateVersion()
	require.NoError(t, err)
	assert.Equal(t, uint(1), version)

	require.NoError(t, cat.MigrateUp())
	version, _, err = cat.MigrateVersion()
	require.NoError(t, err)
	assert.Equal(t, uint(SCHEMA_VERSION), version)
}

func TestRecordDataset(t *testing.T) {
	cat, _ := openTestCatalog(t)
	buf, ds, sum := sampleFile(t, 100)

	id, created, err := cat.RecordDataset("tile.las", buf, ds, sum)
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, "file-1", id)

	f, err := cat.GetFile(id)
	require.NoError(t, err)
	assert.Equal(t, "tile.las", f.Name)
	assert.Equal(t, Digest(buf), f.Digest)
	assert.Equal(t, int64(len(buf)), f.SizeBytes)
	assert.Equal(t, uint8(1), f.VersionMajor)
	assert.Equal(t, uint8(4), f.VersionMinor)
	assert.Equal(t, uint8(1), f.PointFormat)
	assert.Equal(t, uint16(30), f.RecordLength)
	assert.Equal(t, uint64(4), f.PointCount)
	assert.Equal(t, "survey", f.SystemID)
	assert.Equal(t, 100.0, f.MinX)
	assert.Equal(t, 103.0, f.MaxX)
	assert.Equal(t, 30.0, f.MaxZ)
	assert.Equal(t, epoch.UnixNano(), f.CreatedAtNs)

	byDigest, err := cat.FindByDigest(f.Digest)
	require.NoError(t, err)
	assert.Equal(t, id, byDigest.FileID)
}

func TestRecordDataset_DedupesByDigest(t *testing.T) {
	cat, _ := openTestCatalog(t)
	buf, ds, sum := sampleFile(t, 0)

	first, created, err := cat.RecordDataset("a.las", buf, ds, sum)
	require.NoError(t, err)
	require.True(t, created)

	second, created, err := cat.RecordDataset("copy-of-a.las", buf, ds, sum)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first, second)

	files, err := cat.ListFiles()
	require.NoError(t, err)
	assert.Len(t, files, 1)
}

func TestListRecords_RestoresPayloads(t *testing.T) {
	cat, _ := openTestCatalog(t)
	buf, ds, sum := sampleFile(t, 0)
	id, _, err := cat.RecordDataset("a.las", buf, ds, sum)
	require.NoError(t, err)

	records, err := cat.ListRecords(id)
	require.NoError(t, err)
	require.Len(t, records, 3)

	assert.False(t, records[0].Extended)
	assert.Equal(t, "LASF_Projection", records[0].UserID)
	assert.Equal(t, uint16(2112), records[0].RecordID)
	assert.Equal(t, "wkt", records[0].Description)
	assert.Equal(t, `PROJCS["local"]`, string(records[0].Payload))
	assert.Equal(t, ds.VLRs[0].Offset, records[0].Offset)

	assert.Equal(t, "LASF_Spec", records[1].UserID)
	assert.Equal(t, ds.VLRs[1].Data, records[1].Payload)

	assert.True(t, records[2].Extended)
	assert.Equal(t, make([]byte, 4096), records[2].Payload)
}

func TestListExtraFieldsAndClassCounts(t *testing.T) {
	cat, _ := openTestCatalog(t)
	buf, ds, sum := sampleFile(t, 0)
	id, _, err := cat.RecordDataset("a.las", buf, ds, sum)
	require.NoError(t, err)

	fields, err := cat.ListExtraFields(id)
	require.NoError(t, err)
	require.Len(t, fields, 1)
	assert.Equal(t, StoredExtraField{
		Descriptor:  0,
		Name:        "amplitude",
		DataType:    "uint16",
		Offset:      28,
		Description: "pulse amplitude",
	}, fields[0])

	counts, err := cat.ListClassCounts(id)
	require.NoError(t, err)
	assert.Equal(t, []lasstats.ClassCount{
		{Class: 2, Name: "Ground", Count: 2},
		{Class: 3, Name: "Low vegetation", Count: 2},
	}, counts)
}

func TestListFiles_Ordered(t *testing.T) {
	cat, _ := openTestCatalog(t)
	for i, name := range []string{"b.las", "a.las", "c.las"} {
		buf, ds, sum := sampleFile(t, int32(1000*i))
		_, _, err := cat.RecordDataset(name, buf, ds, sum)
		require.NoError(t, err)
	}

	files, err := cat.ListFiles()
	require.NoError(t, err)
	require.Len(t, files, 3)
	assert.Equal(t, "b.las", files[0].Name)
	assert.Equal(t, "a.las", files[1].Name)
	assert.Equal(t, "c.las", files[2].Name)
	assert.Less(t, files[0].CreatedAtNs, files[1].CreatedAtNs)
}

func TestDeleteFile_Cascades(t *testing.T) {
	cat, _ := openTestCatalog(t)
	buf, ds, sum := sampleFile(t, 0)
	id, _, err := cat.RecordDataset("a.las", buf, ds, sum)
	require.NoError(t, err)

	require.NoError(t, cat.DeleteFile(id))

	_, err = cat.GetFile(id)
	assert.ErrorIs(t, err, ErrNotFound)
	records, err := cat.ListRecords(id)
	require.NoError(t, err)
	assert.Empty(t, records)
	fields, err := cat.ListExtraFields(id)
	require.NoError(t, err)
	assert.Empty(t, fields)

	assert.ErrorIs(t, cat.DeleteFile(id), ErrNotFound)
}

func TestNotFound(t *testing.T) {
	cat, _ := openTestCatalog(t)

	_, err := cat.GetFile("missing")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = cat.FindByDigest(Digest([]byte("nothing")))
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestOpen_Persists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "persist.db")
	buf, ds, sum := sampleFile(t, 0)

	cat, err := Open(path)
	require.NoError(t, err)
	id, _, err := cat.RecordDataset("a.las", buf, ds, sum)
	require.NoError(t, err)
	require.NoError(t, cat.Close())

	reopened, err := Open(path)
	require.NoError(t, err)
	defer reopened.Close()
	f, err := reopened.GetFile(id)
	require.NoError(t, err)
	assert.Equal(t, "a.las", f.Name)
}

func TestDigestAndCompression(t *testing.T) {
	a, b := Digest([]byte("LASF")), Digest([]byte("LASF"))
	assert.Equal(t, a, b)
	assert.Len(t, a, 64)
	assert.NotEqual(t, a, Digest([]byte("LASG")))

	payload := []byte("repeated repeated repeated repeated repeated")
	out, err := decompressPayload(compressPayload(payload), len(payload))
	require.NoError(t, err)
	assert.Equal(t, payload, out)

	_, err = decompressPayload(compressPayload(payload), len(payload)+1)
	assert.Error(t, err)
	_, err = decompressPayload([]byte("not zstd"), 3)
	assert.Error(t, err)
}
