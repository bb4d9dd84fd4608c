package godb

import "go.uber.org/zap"

// zapLogger is a thin wrapper around *zap.Logger scoped to one package
// component, mirroring the component-scoped logger pattern used for
// transaction-manager logging: a logger built once per owning object and
// threaded through as a field, never a fresh global lookup per call.
type zapLogger struct {
	z *zap.Logger
}

var baseLogger = mustBuildLogger()

func mustBuildLogger() *zap.Logger {
	cfg := zap.NewProductionConfig()
	cfg.Encoding = "console"
	l, err := cfg.Build()
	if err != nil {
		// Fall back to a no-op logger rather than panic: logging must
		// never be the reason storage operations fail.
		return zap.NewNop()
	}
	return l
}

func newZapLogger(component string) *zapLogger {
	return &zapLogger{z: baseLogger.With(zap.String("component", component))}
}

func (l *zapLogger) With(fields ...zap.Field) *zapLogger {
	return &zapLogger{z: l.z.With(fields...)}
}

func (l *zapLogger) Debug(msg string, fields ...zap.Field) { l.z.Debug(msg, fields...) }
func (l *zapLogger) Info(msg string, fields ...zap.Field)  { l.z.Info(msg, fields...) }
func (l *zapLogger) Warn(msg string, fields ...zap.Field)  { l.z.Warn(msg, fields...) }
func (l *zapLogger) Error(msg string, fields ...zap.Field) { l.z.Error(msg, fields...) }

func zapString(key, val string) zap.Field { return zap.String(key, val) }
func zapInt(key string, val int) zap.Field { return zap.Int(key, val) }
func zapInt64(key string, val int64) zap.Field { return zap.Int64(key, val) }
