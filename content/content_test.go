package content

import (
	"bytes"
	"context"
	"crypto/rand"
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"
)

func newTestContent(t *testing.T, data []byte) *Content {
	t.Helper()
	dir := t.TempDir()
	c, err := New("payload.bin", &Options{WorkDir: dir})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, err := c.Write(data, true); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := c.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	return c
}

func randomBytes(t *testing.T, n int) []byte {
	t.Helper()
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		t.Fatalf("rand.Read: %v", err)
	}
	return b
}

func TestSplitCountAndConcat(t *testing.T) {
	data := randomBytes(t, 1024*1024) // 1 MiB
	c := newTestContent(t, data)

	children, err := c.Split(context.Background(), 512*1024, 64*1024)
	if err != nil {
		t.Fatalf("Split: %v", err)
	}
	if len(children) != 2 {
		t.Fatalf("expected 2 children, got %d", len(children))
	}
	if children[0].Part() != 1 || children[0].TotalParts() != 2 {
		t.Fatalf("child0 part/total = %d/%d", children[0].Part(), children[0].TotalParts())
	}
	if children[0].Begin() != 0 || children[0].End() != 524288 {
		t.Fatalf("child0 range = [%d,%d)", children[0].Begin(), children[0].End())
	}
	if children[1].Begin() != 524288 || children[1].End() != 1048576 {
		t.Fatalf("child1 range = [%d,%d)", children[1].Begin(), children[1].End())
	}

	joined, err := New("joined.bin", &Options{WorkDir: t.TempDir()})
	if err != nil {
		t.Fatalf("New joined: %v", err)
	}
	if err := joined.Load(context.Background(), children); err != nil {
		t.Fatalf("Load(children): %v", err)
	}
	origMD5, _ := c.MD5()
	joinedMD5, err := joined.MD5()
	if err != nil {
		t.Fatalf("MD5: %v", err)
	}
	if origMD5 != joinedMD5 {
		t.Fatalf("joined MD5 mismatch: got %s want %s", joinedMD5, origMD5)
	}
}

func TestSplitExactSize(t *testing.T) {
	data := randomBytes(t, 100)
	c := newTestContent(t, data)
	children, err := c.Split(context.Background(), 100, 16)
	if err != nil {
		t.Fatalf("Split: %v", err)
	}
	if len(children) != 1 {
		t.Fatalf("expected 1 child when part_size == len, got %d", len(children))
	}
}

func TestSplitLargerThanContent(t *testing.T) {
	data := randomBytes(t, 100)
	c := newTestContent(t, data)
	children, err := c.Split(context.Background(), 1000, 16)
	if err != nil {
		t.Fatalf("Split: %v", err)
	}
	if len(children) != 1 {
		t.Fatalf("expected 1 child when part_size > len, got %d", len(children))
	}
	if children[0].End() != 100 {
		t.Fatalf("expected end == 100, got %d", children[0].End())
	}
}

func TestSplitRejectsInvalidSizes(t *testing.T) {
	c := newTestContent(t, []byte("hello"))
	if _, err := c.Split(context.Background(), 0, 16); err == nil {
		t.Fatal("expected error for part_size=0")
	}
	if _, err := c.Split(context.Background(), 10, 0); err == nil {
		t.Fatal("expected error for mem_buf=0")
	}
}

func TestCopyIsByteExactAttachedAndOwnPath(t *testing.T) {
	data := randomBytes(t, 4096)
	c := newTestContent(t, data)
	dup, err := c.Copy(context.Background())
	if err != nil {
		t.Fatalf("Copy: %v", err)
	}
	origMD5, _ := c.MD5()
	dupMD5, _ := dup.MD5()
	if origMD5 != dupMD5 {
		t.Fatalf("copy MD5 mismatch")
	}
	if dup.Filepath() == c.Filepath() {
		t.Fatal("expected copy to have a distinct backing file")
	}
	if !dup.Attached() {
		t.Fatal("expected copy to be attached")
	}
}

func TestAttachedDestroyRemovesFile(t *testing.T) {
	c := newTestContent(t, []byte("x"))
	path := c.Filepath()
	if err := c.Destroy(); err != nil {
		t.Fatalf("Destroy: %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatalf("expected backing file removed, stat err = %v", err)
	}
}

func TestDetachedDestroyKeepsFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "keepme.bin")
	if err := ioutil.WriteFile(path, []byte("keep"), 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	c, err := Open(path, nil)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if c.Attached() {
		t.Fatal("Open() must produce a detached Content")
	}
	if err := c.Destroy(); err != nil {
		t.Fatalf("Destroy: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("expected detached backing file to survive, got %v", err)
	}
}

func TestSaveMovePromotesDetached(t *testing.T) {
	c := newTestContent(t, []byte("payload"))
	target := filepath.Join(t.TempDir(), "out.bin")
	if err := c.Save(target, false); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if c.Attached() {
		t.Fatal("expected Save(move) to detach")
	}
	got, err := ioutil.ReadFile(target)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if !bytes.Equal(got, []byte("payload")) {
		t.Fatalf("unexpected saved content: %q", got)
	}
}

func TestSortKeyOrdering(t *testing.T) {
	a, _ := New("a.txt", &Options{WorkDir: t.TempDir(), SortNo: 100, Part: 1, TotalParts: 2})
	b, _ := New("a.txt", &Options{WorkDir: t.TempDir(), SortNo: 100, Part: 2, TotalParts: 2})
	header, _ := New("a.txt", &Options{WorkDir: t.TempDir(), SortNo: 10, Part: 1, TotalParts: 1})
	if !header.Less(a) {
		t.Fatal("lower sort_no must sort first")
	}
	if !a.Less(b) {
		t.Fatal("lower part must sort first within same sort_no/filename")
	}
	if a.Less(a) {
		t.Fatal("Less must be irreflexive (spec section 9 Open Question b)")
	}
}

func TestIsDirNeverValid(t *testing.T) {
	dir := t.TempDir()
	c, err := Open(dir, nil)
	if err != nil {
		t.Fatalf("Open dir: %v", err)
	}
	if !c.IsDir() {
		t.Fatal("expected IsDir true")
	}
	if c.Valid() {
		t.Fatal("a directory Content must never be Valid")
	}
}

func TestPostIterStreamsWithoutFullBuffering(t *testing.T) {
	data := randomBytes(t, 10000)
	c := newTestContent(t, data)
	it, err := c.PostIter(4096)
	if err != nil {
		t.Fatalf("PostIter: %v", err)
	}
	var total int
	for {
		chunk, err := it.Next()
		if err != nil {
			break
		}
		if len(chunk) > 4096 {
			t.Fatalf("chunk too large: %d", len(chunk))
		}
		total += len(chunk)
	}
	if total != len(data) {
		t.Fatalf("total read = %d, want %d", total, len(data))
	}
}
