package portal

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
)

// LogSet owns the per-component log files for one run. Each component
// gets its own append-only file named <component>_<timestamp>.log plus a
// console echo. The files are observability sinks only; nothing in the
// tool parses them back.
type LogSet struct {
	dir   string
	stamp string
	level zerolog.Level
	files []*os.File
}

// NewLogSet creates the log directory and parses the configured level.
func NewLogSet(dir, level string) (*LogSet, error) {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create log dir: %w", err)
	}
	return &LogSet{
		dir:   dir,
		stamp: time.Now().Format("20060102_150405"),
		level: lvl,
	}, nil
}

// Component returns a logger writing to this component's own file for the
// current run. If the file cannot be opened the logger falls back to
// console only; logging must never stop a run.
func (s *LogSet) Component(name string) zerolog.Logger {
	console := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"}

	var w io.Writer = console
	path := filepath.Join(s.dir, fmt.Sprintf("%s_%s.log", name, s.stamp))
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err == nil {
		s.files = append(s.files, f)
		w = zerolog.MultiLevelWriter(console, f)
	}

	return zerolog.New(w).Level(s.level).With().
		Timestamp().
		Str("component", name).
		Logger()
}

// Close closes every log file opened by Component.
func (s *LogSet) Close() error {
	var first error
	for _, f := range s.files {
		if err := f.Close(); err != nil && first == nil {
			first = err
		}
	}
	s.files = nil
	return first
}
