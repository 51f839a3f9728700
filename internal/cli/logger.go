package cli

import "go.uber.org/zap"

// debugLogger wraps zap for verbose progress output with target context.
type debugLogger struct {
	sugared *zap.SugaredLogger
	pid     int
}

func newDebugLogger(globals *Globals, pid int) *debugLogger {
	if globals == nil || !globals.Verbose {
		return &debugLogger{}
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	cfg.Encoding = "json"
	logger, _ := cfg.Build()
	return &debugLogger{
		sugared: logger.Sugar(),
		pid:     pid,
	}
}

func (l *debugLogger) Debug(format string, args ...interface{}) {
	if l.sugared == nil {
		return
	}
	l.sugared.With("pid", l.pid).Debugf(format, args...)
}
