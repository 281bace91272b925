package seedstore

import (
	"os"
	"strings"

	"go.uber.org/zap"

	"github.com/BaSui01/voiceloop/types"
)

// FileSource reads a conversation seed from a local text file. The file is
// read once at worker start; its whole contents, trimmed of surrounding
// whitespace, become the seed text. Unlike the store, a file seed is not
// consumed: every session started from the same source sees the same seed
// until the file changes on disk and the worker restarts.
type FileSource struct {
	path   string
	logger *zap.Logger
}

// NewFileSource creates a file seed source for the given path.
func NewFileSource(path string, logger *zap.Logger) *FileSource {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FileSource{
		path:   path,
		logger: logger.With(zap.String("component", "seed_file")),
	}
}

// Read returns the trimmed file contents. A missing or unreadable file is
// never fatal: it logs a warning and reports no seed with a nil error, so
// the session proceeds unseeded.
func (f *FileSource) Read() (string, bool) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		readErr := types.NewError(types.ErrSeedSourceRead, "seed file unavailable").WithCause(err)
		f.logger.Warn("proceeding without file seed",
			zap.String("path", f.path),
			zap.Error(readErr),
		)
		return "", false
	}

	seed := strings.TrimSpace(string(data))
	if seed == "" {
		f.logger.Warn("seed file is empty", zap.String("path", f.path))
		return "", false
	}
	return seed, true
}
