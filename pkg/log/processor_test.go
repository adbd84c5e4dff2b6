package log

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLoggerTagProcessor_CanProcess(t *testing.T) {
	ltp := NewLoggerTagProcessor()

	assert.True(t, ltp.CanProcess("logger"))
	assert.True(t, ltp.CanProcess("Logger:loader"))
	assert.False(t, ltp.CanProcess("inject"))
	assert.False(t, ltp.CanProcess("loggers:x"))
}

func TestLoggerName(t *testing.T) {
	name, ok := loggerName("logger: storage ")
	assert.True(t, ok)
	assert.Equal(t, "storage", name)

	name, ok = loggerName("LOGGER")
	assert.True(t, ok)
	assert.Empty(t, name)
}
