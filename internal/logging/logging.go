// Package logging sets up the application logger: human readable output on
// a terminal, JSON otherwise, plus an optional daily JSON log file.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/term"
)

// FileName is the base name of the daily log files
const FileName = "app.log"

// Setup builds the root logger. When dir is not empty, every record is
// also written as JSON to dir/app.log.YYYY-MM-DD. quiet drops console
// output, for when the terminal is owned by the display. The returned
// closer closes the log file.
func Setup(level, dir string, quiet bool) (zerolog.Logger, io.Closer, error) {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		return zerolog.Nop(), nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}
	zerolog.TimeFieldFormat = time.RFC3339

	var console io.Writer = os.Stderr
	switch {
	case quiet:
		console = io.Discard
	case term.IsTerminal(int(os.Stderr.Fd())):
		console = zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}
	}

	if dir == "" {
		return zerolog.New(console).Level(lvl).With().Timestamp().Logger(), nopCloser{}, nil
	}

	file, err := NewDailyFile(dir)
	if err != nil {
		return zerolog.Nop(), nil, err
	}
	out := zerolog.MultiLevelWriter(console, file)
	return zerolog.New(out).Level(lvl).With().Timestamp().Logger(), file, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// DailyFile is an io.WriteCloser that starts a new file each day
type DailyFile struct {
	mu   sync.Mutex
	dir  string
	day  string
	file *os.File
	now  func() time.Time
}

// NewDailyFile creates dir if needed and opens today's log file
func NewDailyFile(dir string) (*DailyFile, error) {
	return newDailyFile(dir, time.Now)
}

func newDailyFile(dir string, now func() time.Time) (*DailyFile, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}
	d := &DailyFile{dir: dir, now: now}
	if err := d.rotate(now().Format(time.DateOnly)); err != nil {
		return nil, err
	}
	return d, nil
}

// Path returns the file currently written to
func (d *DailyFile) Path() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.path(d.day)
}

func (d *DailyFile) path(day string) string {
	return filepath.Join(d.dir, FileName+"."+day)
}

// rotate must be called with mu held
func (d *DailyFile) rotate(day string) error {
	f, err := os.OpenFile(d.path(day), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	if d.file != nil {
		d.file.Close()
	}
	d.file = f
	d.day = day
	return nil
}

// Write appends p to the current day's file
func (d *DailyFile) Write(p []byte) (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.file == nil {
		return 0, os.ErrClosed
	}
	if day := d.now().Format(time.DateOnly); day != d.day {
		if err := d.rotate(day); err != nil {
			return 0, err
		}
	}
	return d.file.Write(p)
}

// Close closes the current file
func (d *DailyFile) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.file == nil {
		return nil
	}
	err := d.file.Close()
	d.file = nil
	return err
}
