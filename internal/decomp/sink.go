package decomp

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
)

// FileSink buffers output in a temporary file next to the target and moves
// it into place on Commit. Until then the target is left untouched.
type FileSink struct {
	path      string
	tmp       *os.File
	w         *bufio.Writer
	committed bool
	closed    bool
}

// OpenFileSink creates the temporary file for path
func OpenFileSink(path string) (*FileSink, error) {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return nil, fmt.Errorf("failed to create output file: %w", err)
	}
	return &FileSink{path: path, tmp: tmp, w: bufio.NewWriter(tmp)}, nil
}

func (s *FileSink) Write(p []byte) (int, error) {
	if s.closed {
		return 0, fmt.Errorf("write to closed sink %s", s.path)
	}
	return s.w.Write(p)
}

// Path returns the final output path
func (s *FileSink) Path() string {
	return s.path
}

// Commit flushes, closes and renames the temporary file onto the target
func (s *FileSink) Commit() error {
	if s.closed {
		return fmt.Errorf("sink %s already closed", s.path)
	}
	s.closed = true

	if err := s.w.Flush(); err != nil {
		s.discard()
		return fmt.Errorf("failed to write %s: %w", s.path, err)
	}
	if err := s.tmp.Close(); err != nil {
		os.Remove(s.tmp.Name())
		return fmt.Errorf("failed to close %s: %w", s.path, err)
	}
	if err := os.Chmod(s.tmp.Name(), 0644); err != nil {
		os.Remove(s.tmp.Name())
		return err
	}
	if err := os.Rename(s.tmp.Name(), s.path); err != nil {
		os.Remove(s.tmp.Name())
		return fmt.Errorf("failed to move output into place: %w", err)
	}
	s.committed = true
	return nil
}

// Close removes the temporary file unless Commit succeeded. It is safe to
// defer right after OpenFileSink.
func (s *FileSink) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	return s.discard()
}

func (s *FileSink) discard() error {
	s.tmp.Close()
	return os.Remove(s.tmp.Name())
}
