package logger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/noah-isme/sma-timetable-api/pkg/config"
	"github.com/noah-isme/sma-timetable-api/pkg/middleware/requestid"
)

func TestNewFallsBackOnInvalidLevel(t *testing.T) {
	l, err := New(&config.Config{Env: config.EnvDevelopment, Log: config.LogConfig{Level: "loud", Format: "console"}})
	require.NoError(t, err)
	assert.True(t, l.Core().Enabled(zap.InfoLevel))
}

func TestWithContextAddsRequestID(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	ctx := requestid.WithValue(context.Background(), "req-7")

	WithContext(ctx, zap.New(core)).Info("validated")

	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "req-7", logs.All()[0].ContextMap()["request_id"])
	assert.NotNil(t, WithContext(context.Background(), nil))
}
