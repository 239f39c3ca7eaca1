package article

import (
	"context"
	"testing"

	"github.com/sebastian404/newsreap/content"
	"github.com/sebastian404/newsreap/yenc"
)

func newFileContent(t *testing.T, name string, data []byte) *content.Content {
	t.Helper()
	c, err := content.New(name, &content.Options{WorkDir: t.TempDir()})
	if err != nil {
		t.Fatalf("content.New: %v", err)
	}
	if _, err := c.Write(data, true); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := c.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	return c
}

func TestAddIsSortedByContentKey(t *testing.T) {
	a := New("subj", "poster@example.com")
	c1, err := content.New("a.bin", &content.Options{WorkDir: t.TempDir(), Part: 2, TotalParts: 2})
	if err != nil {
		t.Fatalf("content.New: %v", err)
	}
	c1.Close()
	c2, err := content.New("a.bin", &content.Options{WorkDir: t.TempDir(), Part: 1, TotalParts: 2})
	if err != nil {
		t.Fatalf("content.New: %v", err)
	}
	c2.Close()
	a.Add(c1)
	a.Add(c2)
	items := a.Decoded()
	if len(items) != 2 {
		t.Fatalf("expected 2 distinct contents, got %d", len(items))
	}
	if items[0].Part() != 1 || items[1].Part() != 2 {
		t.Fatalf("expected sort-key order part 1 then 2, got %d then %d", items[0].Part(), items[1].Part())
	}
}

func TestAddIgnoresDuplicateSortKey(t *testing.T) {
	a := New("subj", "poster")
	c1 := newFileContent(t, "a.bin", []byte("1"))
	c2 := newFileContent(t, "a.bin", []byte("2"))
	a.Add(c1)
	a.Add(c2)
	items := a.Decoded()
	if len(items) != 1 {
		t.Fatalf("expected duplicate sort-key add to collapse to 1, got %d", len(items))
	}
	// spec section 4.3: a duplicate sort-key insert is ignored, so the
	// first-added content must be the one that survives.
	if items[0] != c1 {
		t.Fatal("expected the first-added content to survive, not be replaced by the duplicate")
	}
}

func TestMsgidGeneratesOnceUnlessReset(t *testing.T) {
	a := New("subj", "poster")
	id1 := a.Msgid(false)
	id2 := a.Msgid(false)
	if id1 != id2 {
		t.Fatalf("expected stable message-id across calls, got %q then %q", id1, id2)
	}
	id3 := a.Msgid(true)
	if id3 == id1 {
		t.Fatal("expected a fresh message-id when reset=true")
	}
}

func TestSortKeyOrdering(t *testing.T) {
	a := New("a", "p")
	a.SetNo(5)
	a.SetMessageID("<x@y>")
	b := New("b", "p")
	b.SetNo(10)
	b.SetMessageID("<x@y>")
	if !a.Less(b) {
		t.Fatal("lower article number must sort first")
	}
}

func TestSplitDelegatesToSingleContent(t *testing.T) {
	a := New("subj", "poster")
	a.Groups().Add("alt.binaries.test")
	data := make([]byte, 1000)
	a.Add(newFileContent(t, "whole.bin", data))

	parts, err := a.Split(context.Background(), 400, 128)
	if err != nil {
		t.Fatalf("Split: %v", err)
	}
	if len(parts) != 3 {
		t.Fatalf("expected 3 parts, got %d", len(parts))
	}
	for i, p := range parts {
		if p.Subject() != "subj" || p.Poster() != "poster" {
			t.Fatalf("part %d lost subject/poster", i)
		}
		if !p.Groups().Has("alt.binaries.test") {
			t.Fatalf("part %d lost groups", i)
		}
		if len(p.Decoded()) != 1 {
			t.Fatalf("part %d expected exactly one Content, got %d", i, len(p.Decoded()))
		}
	}
}

func TestSplitRejectsMultiContentArticle(t *testing.T) {
	a := New("subj", "poster")
	a.Add(newFileContent(t, "one.bin", []byte("x")))
	a.Add(newFileContent(t, "two.bin", []byte("y")))
	if _, err := a.Split(context.Background(), 10, 16); err == nil {
		t.Fatal("expected error when decoded has more than one Content")
	}
}

func TestCopyDuplicatesContentByteExact(t *testing.T) {
	a := New("subj", "poster")
	a.Groups().Add("alt.test")
	a.Add(newFileContent(t, "f.bin", []byte("payload")))

	dup, err := a.Copy(context.Background())
	if err != nil {
		t.Fatalf("Copy: %v", err)
	}
	if len(dup.Decoded()) != 1 {
		t.Fatalf("expected 1 content in copy, got %d", len(dup.Decoded()))
	}
	origMD5, _ := a.Decoded()[0].MD5()
	dupMD5, _ := dup.Decoded()[0].MD5()
	if origMD5 != dupMD5 {
		t.Fatal("copy's content must be byte-exact")
	}
	if dup.Decoded()[0].Filepath() == a.Decoded()[0].Filepath() {
		t.Fatal("copy's content must have its own backing file")
	}
}

func TestDeobfuscatePrecedence(t *testing.T) {
	a := New(`"x" - testfile.jpeg yEnc (1/1)`, "poster")
	a.Add(newFileContent(t, "file.tmp", []byte("data")))

	if got := a.Deobfuscate(""); got != "testfile.jpeg" {
		t.Fatalf("Deobfuscate() = %q, want %q", got, "testfile.jpeg")
	}
	if got := a.Deobfuscate("", []yenc.SubjectParser{}...); got != "file.tmp" {
		t.Fatalf("Deobfuscate(codecs disabled) = %q, want %q", got, "file.tmp")
	}
	if got := a.Deobfuscate("mytest"); got != "mytest.jpeg" {
		t.Fatalf("Deobfuscate(filebase) = %q, want %q", got, "mytest.jpeg")
	}
}

func TestLoadFromArticleOverwritesOnlySuppliedFields(t *testing.T) {
	a := New("orig subject", "orig poster")
	a.SetNo(42)
	donor := &Article{subject: "new subject"}
	if err := a.Load(donor); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if a.Subject() != "new subject" {
		t.Fatalf("Subject = %q, want %q", a.Subject(), "new subject")
	}
	if a.Poster() != "orig poster" {
		t.Fatalf("Poster should be unchanged, got %q", a.Poster())
	}
	if a.No() != 42 {
		t.Fatalf("No should be unchanged, got %d", a.No())
	}
}

func TestPostIterPreconditionReturnsNilIterator(t *testing.T) {
	a := New("", "")
	it, err := a.PostIter(context.Background(), yenc.NewEncoder(nil), 4096)
	if err != nil {
		t.Fatalf("PostIter: %v", err)
	}
	if it != nil {
		t.Fatal("expected a nil iterator when subject/poster/groups are missing")
	}
}
