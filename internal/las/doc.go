// Package las decodes ASPRS LAS 1.4 point-cloud buffers into column-oriented
// point datasets.
/*
LAS Decoder Architecture

The decoder takes a fully-read byte buffer and produces a Dataset: the
Public Header, the VLR/EVLR lists, the resolved Extra Bytes fields and one
dense column per point field. It performs no I/O; callers read the file.

FILE STRUCTURE (all multi-byte values little-endian):
├── Public Header Block (HeaderSize bytes, 375 for LAS 1.4)
├── VLRs (NumberOfVLRs records, starting at HeaderSize)
│   └── Each: 54-byte record header + payload (u16 length, max 64 KiB)
├── Point Data Records (NumberOfPoints × PointDataRecordLength, at OffsetToPointData)
│   └── Each: standard PDRF fields + tightly packed Extra Bytes fields
└── EVLRs (NumberOfEVLRs records, starting at EVLROffset)
    └── Each: 60-byte record header + payload (u64 length)

DECODE PIPELINE (strictly forward, any failure aborts with no partial result):
1. Header Reader      - ReadHeader: signature check, fixed-offset scalars
2. Record Reader      - ReadRecords: variable-stride VLR and EVLR walks
3. Format Resolver    - ResolveLayout: PDRF table + Extra Bytes descriptors
4. Point Decoder      - Decoder.Decode: one pass over the point array

POINT DECODING:
- The whole point array span is bounds-checked before any column is allocated
- Columns are pre-sized to NumberOfPoints; float64 when a scale/offset applies
- Each field is bound to its destination column once, before the walk, so the
  per-point loop does no name lookups and no allocation
- Large arrays are split into contiguous index ranges across workers; each
  worker writes a disjoint range of every column

ERRORS:
- *FormatError: fatal (bad signature, unsupported PDRF, truncation, malformed
  record chain, record length shorter than the layout)
- DataTypeError: recoverable, an Extra Bytes descriptor that was skipped
*/
package las
