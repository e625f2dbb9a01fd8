// Package logrotate names and opens timestamped trace-log files for
// internal/hostlog, the same strftime-pattern log naming the teacher
// uses for its own output files (src/kissutil.go, src/beacon.go,
// src/tq.go all format a timestamp into a file or line prefix via
// github.com/lestrrat-go/strftime).
package logrotate

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/lestrrat-go/strftime"
)

// DefaultPattern produces one log file per day, named after the date.
const DefaultPattern = "nbplink-%Y%m%d.log"

// Name formats pattern (an strftime format string) against now.
func Name(pattern string, now time.Time) (string, error) {
	f, err := strftime.New(pattern)
	if err != nil {
		return "", fmt.Errorf("logrotate: bad pattern %q: %w", pattern, err)
	}

	return f.FormatString(now), nil
}

// Open creates (or appends to) the log file named by formatting pattern
// against now inside dir, creating dir if needed.
func Open(dir, pattern string, now time.Time) (*os.File, error) {
	name, err := Name(pattern, now)
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("logrotate: create %s: %w", dir, err)
	}

	path := filepath.Join(dir, name)

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("logrotate: open %s: %w", path, err)
	}

	return f, nil
}
