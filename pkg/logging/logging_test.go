package logging

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestNew_RejectsUnknownLevel(t *testing.T) {
	_, _, err := New(Options{Level: "loud"})
	require.Error(t, err)
}

func TestNew_BuildsLogger(t *testing.T) {
	logger, flush, err := New(Options{AppName: "camellia", Level: "info", Pretty: true})
	require.NoError(t, err)
	require.NotNil(t, logger)
	require.NotNil(t, flush)
}

func TestFromZap_WritesThroughZap(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	logger := FromZap(zap.New(core), "camellia")

	logger.WithContext(context.Background()).WithFields(map[string]any{
		"source":     "radiokorea",
		"source_uid": "42",
	}).Warn("record skipped")

	entries := logs.All()
	require.Len(t, entries, 1)
	assert.Equal(t, zapcore.WarnLevel, entries[0].Level)
	assert.Contains(t, entries[0].Message, "record skipped")
	assert.Equal(t, "camellia", entries[0].ContextMap()["app"])
}
