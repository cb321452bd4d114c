package logging

import (
	"io"
	"log/slog"
	"os"

	"github.com/oluwafemi02/sportsfeed-core/internal/config"
)

// Setup builds the process logger from configuration. Output is stdout,
// stderr, or a file path (rotated by size). The returned closer is non-nil
// only for file output; callers should close it on shutdown.
func Setup(cfg config.LoggingConfig) (*slog.Logger, io.Closer, error) {
	var (
		out    io.Writer
		closer io.Closer
	)
	switch cfg.Output {
	case "stdout", "":
		out = os.Stdout
	case "stderr":
		out = os.Stderr
	default:
		rw, err := NewRotatingWriter(cfg.Output, cfg.MaxSizeMB, cfg.MaxBackups)
		if err != nil {
			return nil, nil, err
		}
		out = rw
		closer = rw
	}

	logger := slog.New(slog.NewJSONHandler(out, &slog.HandlerOptions{Level: parseLevel(cfg.Level)}))
	return logger, closer, nil
}

func parseLevel(s string) slog.Level {
	switch s {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
