// Package logging builds the component loggers used across cub.
//
// Each component gets a stdlib *log.Logger with a bracketed prefix.
// When a log file is configured, output goes to both stderr and a
// size-rotated file.
package logging

import (
	"io"
	"log"
	"os"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Sink is a destination for component log output.
type Sink struct {
	w      io.Writer
	closer io.Closer
}

// NewStderrSink returns a sink writing to stderr only.
func NewStderrSink() *Sink {
	return &Sink{w: os.Stderr}
}

// NewFileSink returns a sink writing to stderr and a rotating file at path.
// Rotation keeps a handful of small files so the log never grows unbounded.
func NewFileSink(path string) *Sink {
	rotator := &lumberjack.Logger{
		Filename:   path,
		MaxSize:    5, // megabytes
		MaxBackups: 3,
		MaxAge:     28, // days
	}
	return &Sink{
		w:      io.MultiWriter(os.Stderr, rotator),
		closer: rotator,
	}
}

// Component returns a logger with the conventional "[name] " prefix.
func (s *Sink) Component(name string) *log.Logger {
	return log.New(s.w, "["+name+"] ", log.LstdFlags)
}

// Close releases the underlying file, if any.
func (s *Sink) Close() error {
	if s.closer == nil {
		return nil
	}
	return s.closer.Close()
}
