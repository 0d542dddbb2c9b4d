package daemon

import (
	"log"
	"os"
)

// Logger is the minimal logging surface the daemon depends on. No repo
// in the reference corpus imports a structured logging library (zap,
// zerolog, logrus) — this is the one ambient concern left on the
// standard library for that reason; see DESIGN.md.
type Logger interface {
	Infof(format string, args ...any)
	Errorf(format string, args ...any)
}

// StdLogger wraps the standard library's log.Logger.
type StdLogger struct {
	l *log.Logger
}

// NewStdLogger builds a Logger writing to stderr with a daemon prefix.
func NewStdLogger() *StdLogger {
	return &StdLogger{l: log.New(os.Stderr, "serverino: ", log.LstdFlags|log.Lmicroseconds)}
}

func (s *StdLogger) Infof(format string, args ...any) {
	s.l.Printf("INFO "+format, args...)
}

func (s *StdLogger) Errorf(format string, args ...any) {
	s.l.Printf("ERROR "+format, args...)
}
