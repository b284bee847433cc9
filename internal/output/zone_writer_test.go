package output

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"com.txt.gz", "com.txt.gz"},
		{"../../etc/passwd", "passwd"},
		{`..\..\evil.txt`, "evil.txt"},
		{"my zone?.txt", "my_zone_.txt"},
		{"..", "_"},
		{"", "_"},
	}
	for _, tt := range tests {
		if got := sanitizeFilename(tt.in); got != tt.want {
			t.Errorf("sanitizeFilename(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestZoneWriterCommit(t *testing.T) {
	dir := t.TempDir()
	fm, err := NewFileManager(filepath.Join(dir, "zones"))
	if err != nil {
		t.Fatalf("NewFileManager: %v", err)
	}

	w, err := fm.NewZoneWriter("com.txt.gz")
	if err != nil {
		t.Fatalf("NewZoneWriter: %v", err)
	}
	if _, err := w.Write([]byte("zone-data")); err != nil {
		t.Fatalf("Write: %v", err)
	}

	// Not visible before commit
	if _, err := os.Stat(w.Path()); !os.IsNotExist(err) {
		t.Fatalf("final file exists before Commit: %v", err)
	}

	if err := w.Commit(); err != nil {
		t.Fatalf("Commit: %v", err)
	}
	data, err := os.ReadFile(filepath.Join(dir, "zones", "com.txt.gz"))
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if string(data) != "zone-data" {
		t.Errorf("content = %q", data)
	}
	if w.Count() != int64(len("zone-data")) {
		t.Errorf("Count() = %d", w.Count())
	}
	assertNoPartFiles(t, filepath.Join(dir, "zones"))

	if _, err := w.Write([]byte("more")); err == nil {
		t.Error("Write after Commit should fail")
	}
	// Abort after commit is a no-op
	w.Abort()
	if _, err := os.Stat(w.Path()); err != nil {
		t.Errorf("committed file removed by Abort: %v", err)
	}
}

func TestZoneWriterAbortKeepsExistingFile(t *testing.T) {
	dir := t.TempDir()
	fm, err := NewFileManager(dir)
	if err != nil {
		t.Fatalf("NewFileManager: %v", err)
	}
	if err := os.WriteFile(fm.PathFor("net.txt.gz"), []byte("old"), 0644); err != nil {
		t.Fatal(err)
	}

	w, err := fm.NewZoneWriter("net.txt.gz")
	if err != nil {
		t.Fatalf("NewZoneWriter: %v", err)
	}
	w.Write([]byte("partial"))
	w.Abort()

	data, err := os.ReadFile(fm.PathFor("net.txt.gz"))
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if string(data) != "old" {
		t.Errorf("existing file changed to %q", data)
	}
	assertNoPartFiles(t, dir)
}

func TestZoneWriterProgress(t *testing.T) {
	fm, err := NewFileManager(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileManager: %v", err)
	}

	var calls []int64
	w, err := fm.NewZoneWriterWithProgress("org.txt.gz", func(n int64) { calls = append(calls, n) })
	if err != nil {
		t.Fatalf("NewZoneWriterWithProgress: %v", err)
	}
	chunk := make([]byte, progressInterval/2)
	for n := 0; n < 3; n++ {
		w.Write(chunk)
	}
	if err := w.Commit(); err != nil {
		t.Fatalf("Commit: %v", err)
	}

	total := int64(3 * len(chunk))
	if len(calls) != 2 || calls[0] != progressInterval || calls[1] != total {
		t.Errorf("progress calls = %v, want [%d %d]", calls, progressInterval, total)
	}
}

func assertNoPartFiles(t *testing.T, dir string) {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	for _, e := range entries {
		if strings.HasSuffix(e.Name(), ".part") {
			t.Errorf("leftover temp file %s", e.Name())
		}
	}
}
