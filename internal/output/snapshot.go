// Package output delivers snapshot images to a file or the clipboard.
package output

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/renameio/v2"

	"github.com/rbright/autojs-host/internal/config"
)

// ErrEmptyImage is returned when the device sent no image bytes.
var ErrEmptyImage = errors.New("snapshot image is empty")

// Sink writes snapshot images.
type Sink struct {
	config config.Config
	logger *slog.Logger
	now    func() time.Time
}

// NewSink constructs a sink from runtime config.
func NewSink(cfg config.Config, logger *slog.Logger) *Sink {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Sink{config: cfg, logger: logger, now: time.Now}
}

// DefaultPath is a timestamped PNG path under the configured snapshot dir.
func (s *Sink) DefaultPath() string {
	return filepath.Join(s.config.Snapshot.Dir, fmt.Sprintf("snapshot-%d.png", s.now().UnixMilli()))
}

// Save atomically writes image to path, or to DefaultPath when path is empty.
// It returns the path written.
func (s *Sink) Save(path string, image []byte) (string, error) {
	if len(image) == 0 {
		return "", ErrEmptyImage
	}
	if strings.TrimSpace(path) == "" {
		path = s.DefaultPath()
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("create snapshot dir: %w", err)
	}
	if err := renameio.WriteFile(path, image, 0o644); err != nil {
		return "", fmt.Errorf("write snapshot %q: %w", path, err)
	}

	s.logger.Info("snapshot saved", "path", path, "bytes", len(image))
	return path, nil
}

// Copy pipes image into the configured clipboard command.
func (s *Sink) Copy(ctx context.Context, image []byte) error {
	if len(image) == 0 {
		return ErrEmptyImage
	}

	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := runCommandWithInput(ctx, s.config.Clipboard.Argv, image); err != nil {
		return fmt.Errorf("set clipboard: %w", err)
	}

	s.logger.Info("snapshot copied to clipboard", "bytes", len(image))
	return nil
}

// runCommandWithInput executes argv with input on stdin.
func runCommandWithInput(ctx context.Context, argv []string, input []byte) error {
	if len(argv) == 0 {
		return fmt.Errorf("command argv cannot be empty")
	}

	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("open stdin for %s: %w", argv[0], err)
	}

	if err := cmd.Start(); err != nil {
		_ = stdin.Close()
		return fmt.Errorf("start command %s: %w", argv[0], err)
	}

	if _, err := stdin.Write(input); err != nil {
		_ = stdin.Close()
		_ = cmd.Wait()
		return fmt.Errorf("write stdin for %s: %w", argv[0], err)
	}
	_ = stdin.Close()

	if err := cmd.Wait(); err != nil {
		return fmt.Errorf("wait for %s: %w", argv[0], err)
	}
	return nil
}
