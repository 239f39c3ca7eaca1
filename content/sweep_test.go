package content

import (
	"os"
	"path/filepath"
	"testing"
)

func TestSweepOrphansRemovesStaleTempFiles(t *testing.T) {
	dir := t.TempDir()

	// A live Content's temp file, matching tempFile's own naming pattern.
	c, err := New("payload.bin", &Options{WorkDir: dir})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	orphanPath := c.Filepath()
	// Simulate the owning process dying before Close/Destroy: the file
	// is left behind, detached from any in-memory Content.

	keep := filepath.Join(dir, "not-a-temp-file.bin")
	if err := os.WriteFile(keep, []byte("keep me"), 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	removed, err := SweepOrphans(dir)
	if err != nil {
		t.Fatalf("SweepOrphans: %v", err)
	}
	if len(removed) != 1 || removed[0] != orphanPath {
		t.Fatalf("removed = %v, want [%s]", removed, orphanPath)
	}
	if _, err := os.Stat(orphanPath); !os.IsNotExist(err) {
		t.Fatalf("expected orphan temp file to be gone, stat err = %v", err)
	}
	if _, err := os.Stat(keep); err != nil {
		t.Fatalf("expected non-temp file to survive the sweep: %v", err)
	}
}

func TestSweepOrphansOnMissingDirIsNoop(t *testing.T) {
	removed, err := SweepOrphans(filepath.Join(t.TempDir(), "does-not-exist"))
	if err != nil {
		t.Fatalf("SweepOrphans on missing dir: %v", err)
	}
	if len(removed) != 0 {
		t.Fatalf("expected no removals, got %v", removed)
	}
}
