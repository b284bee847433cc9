package output

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/matthieugras/czds-client/internal/logging"
)

// ProgressCallback is called periodically with the number of bytes written so far
type ProgressCallback func(bytesWritten int64)

// progressInterval is how often (in bytes) the progress callback fires
const progressInterval = 1024 * 1024

// ZoneWriter writes a zone file to a temporary file next to its final path.
// Commit renames it into place; Abort removes it. A partially written zone
// file is never visible under its final name.
type ZoneWriter struct {
	file      *os.File
	writer    *bufio.Writer
	finalPath string
	mu        sync.Mutex

	written  int64
	lastCall int64
	callback ProgressCallback
	closed   bool
}

func newZoneWriter(finalPath string, callback ProgressCallback) (*ZoneWriter, error) {
	dir := filepath.Dir(finalPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	file, err := os.CreateTemp(dir, "."+filepath.Base(finalPath)+".*.part")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp file: %w", err)
	}

	return &ZoneWriter{
		file:      file,
		writer:    bufio.NewWriterSize(file, 64*1024), // 64KB buffer
		finalPath: finalPath,
		callback:  callback,
	}, nil
}

// Write implements io.Writer
func (w *ZoneWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return 0, errors.New("writer is closed")
	}

	n, err := w.writer.Write(p)
	w.written += int64(n)

	if w.callback != nil && w.written-w.lastCall >= progressInterval {
		w.callback(w.written)
		w.lastCall = w.written
	}
	return n, err
}

// Count returns the number of bytes written
func (w *ZoneWriter) Count() int64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.written
}

// Path returns the path the file will have after Commit
func (w *ZoneWriter) Path() string {
	return w.finalPath
}

// Commit flushes, syncs and renames the temp file to its final path
func (w *ZoneWriter) Commit() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return errors.New("writer is closed")
	}
	w.closed = true

	tmp := w.file.Name()
	if err := w.writer.Flush(); err != nil {
		w.discard()
		return fmt.Errorf("failed to flush buffer: %w", err)
	}
	if err := w.file.Sync(); err != nil {
		w.discard()
		return fmt.Errorf("failed to sync %s: %w", tmp, err)
	}
	if err := w.file.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to close %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, w.finalPath); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to move %s into place: %w", w.finalPath, err)
	}

	if w.callback != nil && w.written != w.lastCall {
		w.callback(w.written)
	}
	logging.Debug("Wrote %s (%d bytes)", w.finalPath, w.written)
	return nil
}

// Abort discards the temp file. Safe to call after Commit.
func (w *ZoneWriter) Abort() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return
	}
	w.closed = true
	w.discard()
}

func (w *ZoneWriter) discard() {
	name := w.file.Name()
	w.file.Close()
	if err := os.Remove(name); err != nil && !os.IsNotExist(err) {
		logging.Warn("Failed to remove temp file %s: %v", name, err)
	}
}
