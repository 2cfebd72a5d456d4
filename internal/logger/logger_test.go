package logger

import (
	"context"
	"testing"

	"github.com/deppfellow/instrument-relay/internal/config"
	"github.com/jackc/pgx/v5/tracelog"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLoggerService_DisabledWithoutLicense(t *testing.T) {
	svc := NewLoggerService(config.DefaultObservabilityConfig())
	require.NotNil(t, svc)
	assert.Nil(t, svc.GetApplication())

	// Nothing to flush, must not panic.
	svc.Shutdown()

	var nilSvc *LoggerService
	assert.Nil(t, nilSvc.GetApplication())
	nilSvc.Shutdown()
}

func TestNewLoggerWithService_Level(t *testing.T) {
	cfg := config.DefaultObservabilityConfig()
	cfg.Logging.Level = "warn"

	l := NewLoggerWithService(cfg, nil)
	assert.Equal(t, zerolog.WarnLevel, l.GetLevel())

	cfg.Logging.Level = "nonsense"
	l = NewLogger(cfg)
	assert.Equal(t, zerolog.InfoLevel, l.GetLevel())
}

func TestGetPgxTraceLogLevel(t *testing.T) {
	tests := []struct {
		in   zerolog.Level
		want tracelog.LogLevel
	}{
		{zerolog.TraceLevel, tracelog.LogLevelTrace},
		{zerolog.DebugLevel, tracelog.LogLevelDebug},
		{zerolog.InfoLevel, tracelog.LogLevelInfo},
		{zerolog.WarnLevel, tracelog.LogLevelWarn},
		{zerolog.ErrorLevel, tracelog.LogLevelError},
		{zerolog.Disabled, tracelog.LogLevelNone},
	}
	for _, tt := range tests {
		assert.Equal(t, int(tt.want), GetPgxTraceLogLevel(tt.in), tt.in.String())
	}
}

func TestWithTraceContext_NilTransaction(t *testing.T) {
	l := zerolog.Nop()
	assert.Equal(t, l, WithTraceContext(l, nil))
}

type ctxKey struct{}

func TestFromContext(t *testing.T) {
	fallback := zerolog.Nop()
	stored := zerolog.New(nil).With().Str("request_id", "abc").Logger()

	ctx := context.WithValue(context.Background(), ctxKey{}, &stored)
	assert.Same(t, &stored, FromContext(ctx, ctxKey{}, &fallback))
	assert.Same(t, &fallback, FromContext(context.Background(), ctxKey{}, &fallback))
}
