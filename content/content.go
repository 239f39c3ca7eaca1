// Package content implements the streaming byte payload that backs an
// Article attachment (spec section 3/4.1): a file- or memory-backed byte
// range with part metadata, attach/detach lifetime, and hashing/splitting
// support. It is the leaf of the article content core's dependency order.
package content

import (
	"bufio"
	"fmt"
	"io"
	"io/ioutil"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
	"github.com/sebastian404/newsreap/internal/trace"
	"go.uber.org/atomic"

	"github.com/sebastian404/newsreap/posix"
)

const pkgName = "github.com/sebastian404/newsreap/content"

var (
	latencyMeasure = trace.LatencyMeasure(pkgName)

	// OpenCensusViews are the predefined count/latency views for this
	// package, in the same shape every package in this module exposes.
	OpenCensusViews = trace.Views(pkgName, latencyMeasure)
)

// Mode is the filemode state a Content can be opened in.
type Mode int

const (
	// ModeClosed is the state before Open or after Close.
	ModeClosed Mode = iota
	// ModeRead opens the backing store for reading only.
	ModeRead
	// ModeWrite opens (and truncates) the backing store for writing.
	ModeWrite
	// ModeAppend opens the backing store for writing at its current end.
	ModeAppend
)

// DefaultWorkDir is used when no work directory is supplied to New.
var DefaultWorkDir = os.TempDir()

// Content is one payload: a whole file, or one part of a larger file,
// backed by a temp/permanent file on disk or (when constructed with
// NewMemory) a pure in-memory buffer.
//
// The zero value is not usable; construct with New, Open, or Load.
type Content struct {
	mu sync.Mutex

	filename string
	filepath string // absolute path of backing file, "" if pure in-memory
	workDir  string

	part       int
	totalParts int
	begin      int64
	end        int64
	totalSize  int64

	sortNo    int
	uniqueTag string

	wholeCRC32    string
	hasWholeCRC32 bool

	attached atomic.Bool
	valid    atomic.Bool
	isDir    bool

	// parent is a non-owning back-reference to the Content a split child
	// came from (spec section 9, "weak back-references"): it is never
	// used to extend the parent's lifetime, and severed explicitly when
	// the parent is destroyed so a stray query after that point is a no-op
	// rather than a dangling read.
	parent *Content

	mode  Mode
	dirty bool
	file  *os.File
	mem   *memBuf // set instead of file when pure in-memory

	severed bool // true once Destroy() has run and Parent() must stop answering
}

// Options configure a newly constructed Content.
type Options struct {
	WorkDir    string
	Part       int
	TotalParts int
	SortNo     int
	UniqueTag  string
}

func (o *Options) normalize() Options {
	out := Options{}
	if o != nil {
		out = *o
	}
	if out.WorkDir == "" {
		out.WorkDir = DefaultWorkDir
	}
	if out.Part == 0 {
		out.Part = 1
	}
	if out.TotalParts == 0 {
		out.TotalParts = 1
	}
	return out
}

// New creates an attached, empty Content with a fresh temp file under
// opts.WorkDir, ready to be written to. This is the constructor used by the
// yEnc decoder and by Content.split's children.
func New(filename string, opts *Options) (*Content, error) {
	o := opts.normalize()
	if o.Part < 1 || (o.TotalParts >= 1 && o.Part > o.TotalParts) {
		return nil, errValidation("content: invalid part %d of %d", o.Part, o.TotalParts)
	}
	f, err := tempFile(o.WorkDir, filename)
	if err != nil {
		return nil, errIO(err, "content: create temp file in %s", o.WorkDir)
	}
	c := &Content{
		filename:   filename,
		filepath:   f.Name(),
		workDir:    o.WorkDir,
		part:       o.Part,
		totalParts: o.TotalParts,
		sortNo:     o.SortNo,
		uniqueTag:  o.UniqueTag,
	}
	c.attached.Store(true)
	c.file = f
	c.mode = ModeWrite
	return c, nil
}

// NewMemory creates an attached, pure in-memory Content (no backing file):
// the "in-memory buffer" backing mode spec section 3/4.1 requires
// alongside the file-backed mode New returns, for callers synthesizing a
// small payload that never needs to touch disk (e.g. a generated test
// fixture or a fetched article body small enough to hold in RAM).
// Filepath() is "" for a Content constructed this way.
func NewMemory(filename string, opts *Options) *Content {
	o := opts.normalize()
	c := &Content{
		filename:   filename,
		workDir:    o.WorkDir,
		part:       o.Part,
		totalParts: o.TotalParts,
		sortNo:     o.SortNo,
		uniqueTag:  o.UniqueTag,
		mem:        newMemBuf(),
		mode:       ModeWrite,
	}
	c.attached.Store(true)
	return c
}

func tempFile(dir, filename string) (*os.File, error) {
	if err := os.MkdirAll(dir, 0777); err != nil {
		return nil, err
	}
	prefix := filepath.Base(filename)
	if prefix == "" || prefix == "." {
		prefix = "content"
	}
	return ioutil.TempFile(dir, prefix+".*.tmp")
}

// Open opens an existing file at path as a detached Content (lifecycle
// path (a) from spec section 3, "Content.Lifecycle"). A directory path is
// accepted too: the resulting Content has IsDir true and is never Valid.
func Open(path string, opts *Options) (*Content, error) {
	o := opts.normalize()
	info, err := os.Stat(path)
	if err != nil {
		return nil, errIO(err, "content: stat %s", path)
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	c := &Content{
		filename:   filepath.Base(path),
		filepath:   abs,
		workDir:    o.WorkDir,
		part:       o.Part,
		totalParts: o.TotalParts,
		sortNo:     o.SortNo,
		uniqueTag:  o.UniqueTag,
		isDir:      info.IsDir(),
	}
	c.attached.Store(false)
	if !c.isDir {
		c.valid.Store(true)
	}
	return c, nil
}

// Filename returns the logical name (no directory).
func (c *Content) Filename() string { return c.filename }

// Filepath returns the absolute path of the backing file, or "" if this
// Content is pure in-memory.
func (c *Content) Filepath() string { return c.filepath }

// Part returns the 1-based part index of this Content within the whole.
func (c *Content) Part() int { return c.part }

// TotalParts returns the total part count of the whole this Content belongs to.
func (c *Content) TotalParts() int { return c.totalParts }

// Begin returns the half-open byte range start within the logical whole.
func (c *Content) Begin() int64 { return c.begin }

// End returns the half-open byte range end within the logical whole.
func (c *Content) End() int64 { return c.end }

// TotalSize returns the byte length of the logical whole.
func (c *Content) TotalSize() int64 { return c.totalSize }

// Attached reports whether this Content deletes its backing file on Destroy.
func (c *Content) Attached() bool { return c.attached.Load() }

// Valid reports whether decoding completed successfully for this payload.
func (c *Content) Valid() bool { return c.valid.Load() }

// IsDir reports whether Filepath names a directory. A directory Content is
// never Valid.
func (c *Content) IsDir() bool { return c.isDir }

// SetValid marks the Content valid or invalid; used by the yEnc decoder
// once CRC reconciliation at =yend succeeds or fails.
func (c *Content) SetValid(v bool) { c.valid.Store(v) }

// SetRange records the logical byte range and whole-file size this Content
// occupies, set by the yEnc decoder from a =ypart line (or from =yend's
// size when no =ypart line was present, per the single-part tolerance).
func (c *Content) SetRange(begin, end, totalSize int64) {
	c.begin, c.end, c.totalSize = begin, end, totalSize
}

// SetWholeCRC32 records the parent/whole-file CRC32 seen in a =yend line's
// optional crc32 attribute, for verification at SegmentedPost assembly.
func (c *Content) SetWholeCRC32(crc string) {
	c.wholeCRC32, c.hasWholeCRC32 = crc, true
}

// WholeCRC32 returns the whole-file CRC32 stored by SetWholeCRC32, if any.
func (c *Content) WholeCRC32() (string, bool) { return c.wholeCRC32, c.hasWholeCRC32 }

// SortNo returns the sort tier used in the sort key.
func (c *Content) SortNo() int { return c.sortNo }

// Detach transfers backing-file ownership to the caller: the Content
// promises never to delete it again (spec section 5, "Detach transfers
// ownership").
func (c *Content) Detach() { c.attached.Store(false) }

// Parent returns the non-owning back-reference to the parent Content this
// split child came from, or nil if there is none or the parent has been
// destroyed (severed).
func (c *Content) Parent() *Content {
	if c.parent == nil || c.parent.severed {
		return nil
	}
	return c.parent
}

// SortKey returns the deterministic sort key described in spec section 3:
// "{sort_no:05}/{filename}/{part:05}{unique_tag?}".
func (c *Content) SortKey() string {
	return fmt.Sprintf("%05d/%s/%05d%s", c.sortNo, c.filename, c.part, c.uniqueTag)
}

// Less implements the corrected ordering from spec section 9's Open
// Question (b): compare against other's key, not our own.
func (c *Content) Less(other *Content) bool {
	return c.SortKey() < other.SortKey()
}

// NewUniqueTag generates a short disambiguating suffix for otherwise-equal
// sort keys, e.g. when two Contents share sort_no/filename/part. Grounded
// on google/uuid the way avogabo-EDRmount generates identifiers; see
// DESIGN.md for why this pack-sibling dependency was pulled in.
func NewUniqueTag() string {
	return "-" + uuid.NewString()[:8]
}

// SetUniqueTag sets the distinguishing suffix used in the sort key.
func (c *Content) SetUniqueTag(tag string) { c.uniqueTag = tag }

// UniqueTag returns the distinguishing suffix used in the sort key.
func (c *Content) UniqueTag() string { return c.uniqueTag }

// Open transitions the state machine per spec section 4.1: idempotent for
// the same mode (seek applied), otherwise closes then reopens. eof=true
// seeks to the end on open, otherwise to offset 0.
func (c *Content) Open(mode Mode, eof bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.openLocked(mode, eof)
}

func (c *Content) openLocked(mode Mode, eof bool) error {
	if c.isDir {
		return errValidation("content: cannot open a directory Content")
	}
	if c.mode != ModeClosed && c.mode != mode {
		if err := c.closeLocked(); err != nil {
			return err
		}
	}
	if c.mem != nil {
		c.mode = mode
		if eof {
			c.mem.seekEnd()
		} else {
			c.mem.seekStart()
		}
		return nil
	}
	if c.file == nil {
		flags := osFlagsFor(mode)
		f, err := os.OpenFile(c.filepath, flags, 0644)
		if err != nil {
			return errIO(err, "content: open %s", c.filepath)
		}
		c.file = f
	}
	c.mode = mode
	var err error
	if eof {
		_, err = c.file.Seek(0, io.SeekEnd)
	} else if mode != ModeAppend {
		_, err = c.file.Seek(0, io.SeekStart)
	}
	if err != nil {
		return errIO(err, "content: seek %s", c.filepath)
	}
	return nil
}

func osFlagsFor(mode Mode) int {
	switch mode {
	case ModeWrite:
		return os.O_RDWR | os.O_CREATE
	case ModeAppend:
		return os.O_RDWR | os.O_CREATE | os.O_APPEND
	default:
		return os.O_RDONLY
	}
}

// Close flushes and clears the dirty flag. Attached status, and thus
// whether the backing file is removed, is unaffected by Close itself;
// removal happens when the Content is destroyed (see Destroy).
func (c *Content) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closeLocked()
}

func (c *Content) closeLocked() error {
	if c.mode == ModeClosed {
		return nil
	}
	if c.file != nil {
		if err := c.file.Sync(); err != nil && !os.IsNotExist(err) {
			// best-effort: some filesystems/temp files don't support fsync
		}
		if err := c.file.Close(); err != nil {
			return errIO(err, "content: close %s", c.filepath)
		}
		c.file = nil
	}
	c.mode = ModeClosed
	c.dirty = false
	return nil
}

// Destroy releases the Content's resources, removing the backing file iff
// Attached is true (spec section 3, Lifecycle/Destroyed; section 5,
// "Global temp-file ownership"). Once severed, Parent() on any split
// children stops resolving to this Content.
func (c *Content) Destroy() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	err := c.closeLocked()
	c.severed = true
	if c.attached.Load() && c.filepath != "" {
		if rmErr := os.Remove(c.filepath); rmErr != nil && !os.IsNotExist(rmErr) {
			if err == nil {
				err = errIO(rmErr, "content: remove %s", c.filepath)
			}
		}
	}
	return err
}

// Read reads up to n bytes, like io.Reader with an explicit size. It
// requires the Content to be open for reading.
func (c *Content) Read(n int) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.mode == ModeClosed {
		return nil, errValidation("content: Read on closed Content")
	}
	buf := make([]byte, n)
	var (
		read int
		err  error
	)
	if c.mem != nil {
		read, err = c.mem.Read(buf)
	} else {
		read, err = c.file.Read(buf)
	}
	if err != nil && err != io.EOF {
		return nil, errIO(err, "content: read %s", c.filepath)
	}
	return buf[:read], err
}

// ReadLine reads a single line (CRLF or LF terminated, terminator
// stripped), for the yEnc decoder's line-oriented parsing.
func (c *Content) ReadLine() (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.mode == ModeClosed {
		return "", errValidation("content: ReadLine on closed Content")
	}
	var r io.Reader
	if c.mem != nil {
		r = c.mem
	} else {
		r = c.file
	}
	br := bufio.NewReader(r)
	line, err := br.ReadString('\n')
	if err != nil && err != io.EOF {
		return "", errIO(err, "content: readline %s", c.filepath)
	}
	// Undo bufio's internal read-ahead by seeking back the unconsumed
	// bytes so callers can keep mixing ReadLine/Read on the same Content.
	unread := br.Buffered()
	if unread > 0 {
		if err := c.seekRelative(-int64(unread)); err != nil {
			return "", err
		}
	}
	line = trimLineEnding(line)
	if line == "" && err == io.EOF {
		return "", io.EOF
	}
	return line, nil
}

func trimLineEnding(s string) string {
	if n := len(s); n > 0 && s[n-1] == '\n' {
		s = s[:n-1]
	}
	if n := len(s); n > 0 && s[n-1] == '\r' {
		s = s[:n-1]
	}
	return s
}

func (c *Content) seekRelative(delta int64) error {
	if c.mem != nil {
		c.mem.seekRelative(delta)
		return nil
	}
	_, err := c.file.Seek(delta, io.SeekCurrent)
	if err != nil {
		return errIO(err, "content: seek %s", c.filepath)
	}
	return nil
}

// Write appends p at the current position, setting the dirty flag and
// invalidating End until the next flush. If eof is true this marks the
// write as the final one for this payload (callers may use it to trigger
// immediate flush semantics); it does not close the Content.
func (c *Content) Write(p []byte, eof bool) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.mode != ModeWrite && c.mode != ModeAppend {
		return 0, errValidation("content: Write requires ModeWrite or ModeAppend")
	}
	var (
		n   int
		err error
	)
	if c.mem != nil {
		n, err = c.mem.Write(p)
	} else {
		n, err = c.file.Write(p)
	}
	if err != nil {
		if posix.IsSysErrNoSpace(err) {
			return n, errDiskFull(err)
		}
		return n, errIO(err, "content: write %s", c.filepath)
	}
	c.dirty = true
	if eof {
		if ferr := c.flushLocked(); ferr != nil {
			return n, ferr
		}
	}
	return n, nil
}

func (c *Content) flushLocked() error {
	if !c.dirty {
		return nil
	}
	if c.file != nil {
		if err := c.file.Sync(); err != nil {
			return errIO(err, "content: sync %s", c.filepath)
		}
	}
	c.dirty = false
	return nil
}

// Flush forces pending writes to be visible to Length/Tell/End.
func (c *Content) Flush() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.flushLocked()
}

// Tell returns the current stream position, flushing first as required by
// spec section 4.1.
func (c *Content) Tell() (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.flushLocked(); err != nil {
		return 0, err
	}
	if c.mem != nil {
		return c.mem.tell(), nil
	}
	if c.file == nil {
		return 0, errValidation("content: Tell on closed Content")
	}
	pos, err := c.file.Seek(0, io.SeekCurrent)
	if err != nil {
		return 0, errIO(err, "content: tell %s", c.filepath)
	}
	return pos, nil
}

// Length returns the on-disk/in-memory byte length, flushing first.
func (c *Content) Length() (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.flushLocked(); err != nil {
		return 0, err
	}
	if c.mem != nil {
		return c.mem.length(), nil
	}
	if c.filepath == "" {
		return 0, nil
	}
	info, err := os.Stat(c.filepath)
	if err != nil {
		return 0, errIO(err, "content: stat %s", c.filepath)
	}
	return info.Size(), nil
}
