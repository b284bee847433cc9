package output

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// FileManager manages zone files in the output directory
type FileManager struct {
	outputDir string
}

// NewFileManager creates a new file manager
func NewFileManager(outputDir string) (*FileManager, error) {
	// Ensure output directory exists
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	return &FileManager{outputDir: outputDir}, nil
}

// OutputDir returns the output directory
func (fm *FileManager) OutputDir() string {
	return fm.outputDir
}

// PathFor returns the final path for a file name. Directory components
// in name are dropped so a server-supplied name cannot escape the output directory.
func (fm *FileManager) PathFor(name string) string {
	return filepath.Join(fm.outputDir, sanitizeFilename(name))
}

// NewZoneWriter opens an atomic writer for the named file.
// The caller must call Commit or Abort.
func (fm *FileManager) NewZoneWriter(name string) (*ZoneWriter, error) {
	return newZoneWriter(fm.PathFor(name), nil)
}

// NewZoneWriterWithProgress is NewZoneWriter with periodic byte-count reporting.
func (fm *FileManager) NewZoneWriterWithProgress(name string, callback ProgressCallback) (*ZoneWriter, error) {
	return newZoneWriter(fm.PathFor(name), callback)
}

// sanitizeFilename replaces invalid filename characters with underscores
func sanitizeFilename(name string) string {
	name = filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	invalid := []string{":", "*", "?", "\"", "<", ">", "|", " "}
	result := name
	for _, char := range invalid {
		result = strings.ReplaceAll(result, char, "_")
	}
	if result == "." || result == ".." || result == "/" || result == "" {
		return "_"
	}
	return result
}
