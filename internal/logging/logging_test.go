package logging

import (
	"bytes"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(&buf, "debug")
	require.NoError(t, err)

	assert.Equal(t, logrus.DebugLevel, logger.GetLevel())

	logger.WithField("component", "test").Debug("hello")
	out := buf.String()
	assert.Contains(t, out, `msg=hello`)
	assert.Contains(t, out, `component=test`)
	assert.Contains(t, out, `func=logging.TestNew`)
	assert.NotContains(t, out, "logging_test.go")
}

func TestNew_FiltersBelowLevel(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(&buf, "warning")
	require.NoError(t, err)

	logger.Info("quiet")
	assert.Empty(t, buf.String())
}

func TestNew_BadLevel(t *testing.T) {
	_, err := New(&bytes.Buffer{}, "chatty")
	assert.Error(t, err)
}
