package keysource

import (
	"bufio"
	"context"
	"io"
	"log/slog"
	"strings"

	"github.com/jmylchreest/keyclack/internal/model"
)

// LineSource reads one key per line: a decimal key code, a key name such as
// "enter", or a single character. Blank lines and lines starting with # are
// ignored. It lets an external capture tool feed keyclackd through a pipe.
type LineSource struct {
	r      io.Reader
	logger *slog.Logger
}

// NewLineSource creates a LineSource reading from r.
func NewLineSource(r io.Reader, logger *slog.Logger) *LineSource {
	if logger == nil {
		logger = slog.Default()
	}
	return &LineSource{r: r, logger: logger}
}

// Run reads until EOF or ctx is cancelled. EOF is not an error.
func (s *LineSource) Run(ctx context.Context, emit func(uint16)) error {
	lines := make(chan string)
	errCh := make(chan error, 1)

	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(s.r)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
		errCh <- scanner.Err()
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case line, ok := <-lines:
			if !ok {
				select {
				case err := <-errCh:
					return err
				default:
					return nil
				}
			}
			line = strings.TrimSpace(line)
			if line == "" || strings.HasPrefix(line, "#") {
				continue
			}
			code, err := model.ParseKeyCode(line)
			if err != nil {
				s.logger.Debug("ignoring input line", "line", line, "error", err)
				continue
			}
			emit(code)
		}
	}
}
