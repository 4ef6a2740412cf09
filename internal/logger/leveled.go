package logger

import "go.uber.org/zap"

// Leveled adapts a zap logger to the key/value LeveledLogger contract used by
// hashicorp/go-retryablehttp, so retry attempts land in the same JSON sink.
type Leveled struct {
	s *zap.SugaredLogger
}

// NewLeveled wraps l under the given logger name.  A nil l uses the global
// logger as installed when NewLeveled runs.
func NewLeveled(l *zap.Logger, name string) *Leveled {
	if l == nil {
		l = zap.L()
	}
	return &Leveled{s: l.Named(name).Sugar()}
}

func (l *Leveled) Error(msg string, kv ...interface{}) { l.s.Errorw(msg, kv...) }
func (l *Leveled) Info(msg string, kv ...interface{})  { l.s.Infow(msg, kv...) }
func (l *Leveled) Debug(msg string, kv ...interface{}) { l.s.Debugw(msg, kv...) }
func (l *Leveled) Warn(msg string, kv ...interface{})  { l.s.Warnw(msg, kv...) }
