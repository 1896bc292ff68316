package answers

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// Sink receives the finished output document exactly once per run.
type Sink interface {
	WriteDocument(ctx context.Context, doc []byte) error
	// Location names where the document ends up, for logging.
	Location() string
}

const (
	outputFilePerm = 0o644
	outputDirPerm  = 0o755
)

// FileSink writes the document to Path by replacing it atomically: the
// target either keeps its old content or holds the complete new document.
type FileSink struct {
	Path string
}

func (s FileSink) Location() string {
	return s.Path
}

func (s FileSink) WriteDocument(ctx context.Context, doc []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	dir := filepath.Dir(s.Path)
	if err := os.MkdirAll(dir, outputDirPerm); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".answergen-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()

	fail := func(err error) error {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return err
	}

	if err := tmp.Chmod(outputFilePerm); err != nil {
		return fail(fmt.Errorf("chmod temp file: %w", err))
	}
	if _, err := tmp.Write(doc); err != nil {
		return fail(fmt.Errorf("write %s: %w", tmpPath, err))
	}
	if err := tmp.Sync(); err != nil {
		return fail(fmt.Errorf("sync %s: %w", tmpPath, err))
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("close %s: %w", tmpPath, err)
	}
	if err := os.Rename(tmpPath, s.Path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("replace %s: %w", s.Path, err)
	}

	// Best effort: persist the rename itself.
	_ = syncDir(dir)
	return nil
}

func syncDir(dir string) error {
	f, err := os.Open(dir)
	if err != nil {
		return err
	}
	defer f.Close()
	return f.Sync()
}
