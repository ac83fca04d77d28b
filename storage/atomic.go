package storage

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

const tempPattern = ".playlist2podcast-*.tmp"

// ReplaceFile writes path by streaming write into a sibling temp file and
// renaming it over the target once everything is flushed to disk. Readers see
// either the old content or the new, never a mix.
func ReplaceFile(path string, perm os.FileMode, write func(io.Writer) error) error {
	w, err := NewAtomicWriter(path, perm)
	if err != nil {
		return err
	}
	defer w.Abort()

	buf := bufio.NewWriter(w)
	if err := write(buf); err != nil {
		return err
	}
	if err := buf.Flush(); err != nil {
		return fmt.Errorf("flush %s: %w", w.tmp.Name(), err)
	}
	return w.Commit()
}

// AtomicWriter collects the new content of a file in a temp file next to it.
// Nothing is visible at the target path until Commit.
type AtomicWriter struct {
	target string
	perm   os.FileMode
	tmp    *os.File
	done   bool
}

// NewAtomicWriter creates the directory of path if needed and opens the temp
// file. perm applies to the committed file.
func NewAtomicWriter(path string, perm os.FileMode) (*AtomicWriter, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("mkdir %s: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, tempPattern)
	if err != nil {
		return nil, fmt.Errorf("temp file in %s: %w", dir, err)
	}
	return &AtomicWriter{target: path, perm: perm, tmp: tmp}, nil
}

func (w *AtomicWriter) Write(p []byte) (int, error) {
	return w.tmp.Write(p)
}

// Commit fsyncs the temp file and moves it onto the target.
func (w *AtomicWriter) Commit() error {
	if w.done {
		return fmt.Errorf("commit %s: writer already finished", w.target)
	}
	w.done = true

	name := w.tmp.Name()
	err := w.tmp.Chmod(w.perm)
	if err == nil {
		err = w.tmp.Sync()
	}
	if cerr := w.tmp.Close(); err == nil {
		err = cerr
	}
	if err == nil {
		err = os.Rename(name, w.target)
	}
	if err != nil {
		os.Remove(name)
		return fmt.Errorf("replace %s: %w", w.target, err)
	}
	return nil
}

// Abort drops the temp file. It is a no-op after Commit, so it can be
// deferred.
func (w *AtomicWriter) Abort() error {
	if w.done {
		return nil
	}
	w.done = true
	w.tmp.Close()
	return os.Remove(w.tmp.Name())
}
