package profiling

import (
	"testing"

	"github.com/grafana/pyroscope-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseProfileTypes_Default(t *testing.T) {
	got, err := parseProfileTypes("")
	require.NoError(t, err)
	assert.Equal(t, defaultProfileTypes, got)
}

func TestParseProfileTypes_Custom(t *testing.T) {
	got, err := parseProfileTypes("cpu, alloc_space,mutex")
	require.NoError(t, err)

	assert.Equal(t, []pyroscope.ProfileType{
		pyroscope.ProfileCPU,
		pyroscope.ProfileAllocSpace,
		pyroscope.ProfileMutexCount,
		pyroscope.ProfileMutexDuration,
	}, got)
}

func TestParseProfileTypes_Invalid(t *testing.T) {
	_, err := parseProfileTypes("cpu,unknown")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported O11Y_PROFILING_SAMPLE_TYPES")
}

func TestBuildApplicationName(t *testing.T) {
	got := buildApplicationName("pantry-api", Labels{
		ServiceName: "pantry-api",
		Namespace:   "pantrykit",
		Environment: "production",
		Version:     "2.0.0",
		InstanceID:  "inst-1",
	})
	assert.Equal(t, "pantry-api{service_name=pantry-api,namespace=pantrykit,environment=production,service_version=2.0.0,instance=inst-1}", got)
}

func TestBuildApplicationName_DefaultsAndNoInstance(t *testing.T) {
	got := buildApplicationName("  ", Labels{ServiceName: "pantry-api", Namespace: "dev", Environment: "development", Version: "0.1.0"})
	assert.Equal(t, "pantry-api{service_name=pantry-api,namespace=dev,environment=development,service_version=0.1.0}", got)
}

func TestInitProfiler_Disabled(t *testing.T) {
	stop, err := InitProfiler(Config{Enabled: false}, Labels{})
	require.NoError(t, err)
	stop()
}

func TestInitProfiler_EnabledWithoutEndpoint(t *testing.T) {
	_, err := InitProfiler(Config{Enabled: true, Endpoint: "  "}, Labels{})
	require.Error(t, err)
}
