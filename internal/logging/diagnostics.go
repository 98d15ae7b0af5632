package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
)

// Diagnostics prints operator-facing lines and mirrors them into the JSONL log.
// A nil *Diagnostics is valid and discards everything.
type Diagnostics struct {
	mu     sync.Mutex
	out    io.Writer
	logger *slog.Logger
}

// NewDiagnostics writes to out and mirrors to logger; either may be nil.
func NewDiagnostics(out io.Writer, logger *slog.Logger) *Diagnostics {
	if out == nil {
		out = io.Discard
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Diagnostics{out: out, logger: logger}
}

// Info reports progress.
func (d *Diagnostics) Info(message string) {
	d.emit(slog.LevelInfo, "info", message)
}

// Warn reports a recoverable problem.
func (d *Diagnostics) Warn(message string) {
	d.emit(slog.LevelWarn, "warning", message)
}

// Error reports a failed operation.
func (d *Diagnostics) Error(message string) {
	d.emit(slog.LevelError, "error", message)
}

func (d *Diagnostics) emit(level slog.Level, prefix string, message string) {
	if d == nil {
		return
	}
	d.logger.Log(context.Background(), level, "diagnostic", "message", message)

	d.mu.Lock()
	defer d.mu.Unlock()
	_, _ = fmt.Fprintf(d.out, "%s: %s\n", prefix, message)
}
