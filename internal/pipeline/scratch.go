package pipeline

import (
	"errors"
	"log/slog"
	"os"

	"tubecast/internal/logging"
)

// scratch tracks the intermediate files a run produces so every exit path
// removes them.
type scratch struct {
	paths []string
}

func (s *scratch) track(path string) string {
	if path != "" {
		s.paths = append(s.paths, path)
	}
	return path
}

func (s *scratch) cleanup(logger *slog.Logger) {
	for _, path := range s.paths {
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			logger.Warn("failed to remove scratch file",
				logging.String("path", path),
				logging.Error(err),
			)
		}
	}
	s.paths = nil
}
