package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitialize_InvalidLevel(t *testing.T) {
	err := Initialize(Config{Level: "loud", Environment: "test"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid log level")
}

func TestInitialize_Development(t *testing.T) {
	require.NoError(t, Initialize(Config{Level: "debug", Environment: "development"}))
	assert.NotNil(t, Log)
	Info("logger ready")
}

func TestInitialize_ProductionWritesToLogDir(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, Initialize(Config{Level: "info", Environment: "production", LogDir: dir, ServiceName: "pantry-api"}))
	Info("hello")
	Sync()
}

func TestMaskEmail(t *testing.T) {
	assert.Equal(t, "a***@example.com", MaskEmail("alice@example.com"))
	assert.Equal(t, "***", MaskEmail("no-at-sign"))
	assert.Equal(t, "***", MaskEmail("@example.com"))
}
