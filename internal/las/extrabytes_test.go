package las

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Silvaye/FSCT-dockerized/internal/testutil"
)

func TestParseExtraBytes_PackedAfterBase(t *testing.T) {
	t.Parallel()

	payload := testutil.ExtraBytes(
		testutil.Descriptor{Type: 6, Name: "UserScore", Description: "operator score"},
		testutil.Descriptor{Type: 1, Name: "flag"},
		testutil.Descriptor{Type: 10, Name: "height"},
	)
	fields, skipped := ParseExtraBytes(payload, StandardRecordLength[0])
	assert.Empty(t, skipped)
	require.Len(t, fields, 3)

	assert.Equal(t, "UserScore", fields[0].Name)
	assert.Equal(t, TypeInt32, fields[0].Type)
	assert.Equal(t, 20, fields[0].Offset)
	assert.Equal(t, 4, fields[0].Type.Size())
	assert.Equal(t, "operator score", fields[0].Description)
	assert.Nil(t, fields[0].Transform)

	assert.Equal(t, 24, fields[1].Offset)
	assert.Equal(t, 25, fields[2].Offset)
	assert.Equal(t, 2, fields[2].Index)
	assert.Equal(t, 33, Span([]Field{fields[2].Field()}))
}

func TestParseExtraBytes_SkipsUnsupported(t *testing.T) {
	t.Parallel()

	payload := testutil.ExtraBytes(
		testutil.Descriptor{Type: 0, Name: "opaque"},
		testutil.Descriptor{Type: 3, Name: "keep1"},
		testutil.Descriptor{Type: 7, Name: "uint64"},
		testutil.Descriptor{Type: 4, Name: ""},
		testutil.Descriptor{Type: 25, Name: "array"},
		testutil.Descriptor{Type: 9, Name: "keep2"},
	)
	fields, skipped := ParseExtraBytes(payload, 30)

	require.Len(t, fields, 2)
	assert.Equal(t, "keep1", fields[0].Name)
	assert.Equal(t, 30, fields[0].Offset)
	assert.Equal(t, "keep2", fields[1].Name)
	assert.Equal(t, 32, fields[1].Offset, "skipped descriptors take no bytes")

	require.Len(t, skipped, 4)
	assert.Equal(t, 0, skipped[0].Index)
	assert.Equal(t, uint8(7), skipped[1].Code)
	assert.Equal(t, "empty name", skipped[2].Reason)
	assert.Equal(t, 4, skipped[3].Index)
	assert.Contains(t, skipped[3].Error(), "array")
}

func TestParseExtraBytes_ScaleOffset(t *testing.T) {
	t.Parallel()

	payload := testutil.ExtraBytes(
		testutil.Descriptor{Type: 3, Options: EB_OPTION_SCALE | EB_OPTION_OFFSET, Name: "both", Scale: 0.5, Offset: 10},
		testutil.Descriptor{Type: 3, Options: EB_OPTION_SCALE, Name: "scale", Scale: 0.25, Offset: 99},
		testutil.Descriptor{Type: 3, Options: EB_OPTION_OFFSET, Name: "offset", Scale: 99, Offset: -1},
	)
	fields, skipped := ParseExtraBytes(payload, 0)
	require.Empty(t, skipped)
	require.Len(t, fields, 3)

	assert.Equal(t, &Transform{Scale: 0.5, Offset: 10}, fields[0].Transform)
	assert.Equal(t, &Transform{Scale: 0.25, Offset: 0}, fields[1].Transform)
	assert.Equal(t, &Transform{Scale: 1, Offset: -1}, fields[2].Transform)
}

func TestParseExtraBytes_TrailingPartialDescriptor(t *testing.T) {
	t.Parallel()

	payload := append(testutil.ExtraBytes(testutil.Descriptor{Type: 1, Name: "a"}), make([]byte, 50)...)
	fields, skipped := ParseExtraBytes(payload, 20)
	assert.Len(t, fields, 1)
	require.Len(t, skipped, 1)
	assert.Equal(t, 1, skipped[0].Index)
	assert.Contains(t, skipped[0].Reason, "trailing 50 bytes")
}

func TestParseExtraBytes_Empty(t *testing.T) {
	t.Parallel()

	fields, skipped := ParseExtraBytes(nil, 20)
	assert.Empty(t, fields)
	assert.Empty(t, skipped)
}
