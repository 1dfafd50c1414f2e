// Package obslog is the engine's single logging surface, a thin wrapper
// around go.uber.org/zap the way the teacher's HTTP server uses zap
// (internal/metrics, internal/api), but threaded explicitly through
// constructors instead of read from package globals, since the engine has
// no process-wide singleton the way an HTTP server's logger does.
package obslog

import "go.uber.org/zap"

// Logger is the interface every engine component logs through.
type Logger interface {
	Infof(format string, args ...any)
	Errorf(format string, args ...any)
	Debugf(format string, args ...any)
	Sync() error
}

type zapLogger struct {
	s *zap.SugaredLogger
}

// New builds a production JSON logger, matching the teacher's cmd/server
// zap.NewProduction() setup.
func New() (Logger, error) {
	z, err := zap.NewProduction()
	if err != nil {
		return nil, err
	}
	return &zapLogger{s: z.Sugar()}, nil
}

// NewNop returns a logger that discards everything, for tests and for
// zero-value structs that never had a logger injected.
func NewNop() Logger {
	return &zapLogger{s: zap.NewNop().Sugar()}
}

func (l *zapLogger) Infof(format string, args ...any)  { l.s.Infof(format, args...) }
func (l *zapLogger) Errorf(format string, args ...any) { l.s.Errorf(format, args...) }
func (l *zapLogger) Debugf(format string, args ...any) { l.s.Debugf(format, args...) }
func (l *zapLogger) Sync() error                       { return l.s.Sync() }
