package config

import (
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Silvaye/FSCT-dockerized/internal/fsutil"
	"github.com/Silvaye/FSCT-dockerized/internal/las"
)

func TestEmptyDecoderConfig_Defaults(t *testing.T) {
	cfg := EmptyDecoderConfig()

	assert.Equal(t, runtime.NumCPU(), cfg.GetWorkers())
	assert.Equal(t, 65536, cfg.GetParallelThreshold())
	assert.Equal(t, int64(4<<30), cfg.GetMaxInputBytes())
	assert.False(t, cfg.GetDebug())
	assert.Equal(t, 50, cfg.GetHistogramBins())
	assert.Equal(t, 5000, cfg.GetScatterMaxPoints())
	assert.NoError(t, cfg.Validate())
}

func TestLoadDecoderConfig_JSON(t *testing.T) {
	mfs := fsutil.NewMemoryFileSystem()
	require.NoError(t, mfs.WriteFile("/etc/lasinfo.json", []byte(`{
  "workers": 3,
  "parallel_threshold": 1000,
  "debug": true
}`), 0o644))

	cfg, err := LoadDecoderConfig(mfs, "/etc/lasinfo.json")
	require.NoError(t, err)
	assert.Equal(t, 3, cfg.GetWorkers())
	assert.Equal(t, 1000, cfg.GetParallelThreshold())
	assert.True(t, cfg.GetDebug())
	assert.Equal(t, DEFAULT_MAX_INPUT_BYTES, cfg.GetMaxInputBytes(), "absent key keeps default")
}

func TestLoadDecoderConfig_YAML(t *testing.T) {
	mfs := fsutil.NewMemoryFileSystem()
	require.NoError(t, mfs.WriteFile("/etc/lasinfo.yml", []byte(`
workers: 0
max_input_bytes: 1048576
histogram_bins: 20
scatter_max_points: 100
`), 0o644))

	cfg, err := LoadDecoderConfig(mfs, "/etc/lasinfo.yml")
	require.NoError(t, err)
	assert.Equal(t, runtime.NumCPU(), cfg.GetWorkers())
	assert.Equal(t, int64(1<<20), cfg.GetMaxInputBytes())
	assert.Equal(t, 20, cfg.GetHistogramBins())
	assert.Equal(t, 100, cfg.GetScatterMaxPoints())
}

func TestLoadDecoderConfig_Errors(t *testing.T) {
	mfs := fsutil.NewMemoryFileSystem()
	require.NoError(t, mfs.WriteFile("/c/bad.json", []byte(`{"workers": "many"}`), 0o644))
	require.NoError(t, mfs.WriteFile("/c/bad.yaml", []byte("workers: [1, 2"), 0o644))
	require.NoError(t, mfs.WriteFile("/c/range.json", []byte(`{"parallel_threshold": 0}`), 0o644))
	require.NoError(t, mfs.WriteFile("/c/big.json", make([]byte, MAX_CONFIG_FILE_SIZE+1), 0o644))
	require.NoError(t, mfs.WriteFile("/c/conf.toml", []byte(`workers = 1`), 0o644))

	tests := []struct {
		name string
		path string
		msg  string
	}{
		{"wrong extension", "/c/conf.toml", "extension"},
		{"missing", "/c/missing.json", "failed to load config"},
		{"bad json", "/c/bad.json", "parse config JSON"},
		{"bad yaml", "/c/bad.yaml", "parse config YAML"},
		{"out of range", "/c/range.json", "parallel_threshold"},
		{"too large", "/c/big.json", "max"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := LoadDecoderConfig(mfs, tt.path)
			assert.Nil(t, cfg)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.msg)
		})
	}
}

func TestValidate(t *testing.T) {
	neg := -1
	big := 20000
	var negBytes int64 = -5

	assert.Error(t, (&DecoderConfig{Workers: &neg}).Validate())
	assert.Error(t, (&DecoderConfig{MaxInputBytes: &negBytes}).Validate())
	assert.Error(t, (&DecoderConfig{HistogramBins: &big}).Validate())
	assert.Error(t, (&DecoderConfig{ScatterMaxPoints: &neg}).Validate())
}

func TestDecoderOptions(t *testing.T) {
	cfg := EmptyDecoderConfig()
	cfg.SetWorkers(2)
	assert.Equal(t, 2, cfg.GetWorkers())

	opts := cfg.DecoderOptions()
	assert.Len(t, opts, 2)

	// The options must produce a working decoder.
	_, err := las.NewDecoder(opts...).Decode([]byte("nope"))
	assert.ErrorIs(t, err, las.ErrSignature)
}
