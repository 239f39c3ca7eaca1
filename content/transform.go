package content

import (
	"context"
	"io"
	"math"
	"os"
	"path/filepath"

	humanize "github.com/dustin/go-humanize"
	"github.com/sebastian404/newsreap/internal/trace"
)

var transformTracer = &trace.Tracer{Package: pkgName, Provider: "content", LatencyMeasure: latencyMeasure}

// Loadable is anything Content.Load can rebind this Content to: a path
// string, another *Content, or an ordered slice of *Content.
type Loadable interface{}

// Load rebinds c to a new backing store per spec section 4.1. Any prior
// attached backing file is deleted first.
func (c *Content) Load(ctx context.Context, source Loadable) (err error) {
	ctx = transformTracer.Start(ctx, "Load")
	defer func() { transformTracer.End(ctx, err) }()

	if err := c.discardPriorBacking(); err != nil {
		return err
	}

	switch src := source.(type) {
	case string:
		return c.loadPath(src)
	case *Content:
		return c.loadFromContent(src)
	case []*Content:
		return c.loadFromParts(ctx, src)
	default:
		return errValidation("content: Load: unsupported source type %T", source)
	}
}

func (c *Content) discardPriorBacking() error {
	if c.attached.Load() && c.filepath != "" {
		if err := c.Destroy(); err != nil {
			return err
		}
		c.severed = false // this Content instance is being reused, not destroyed
	} else {
		if err := c.Close(); err != nil {
			return err
		}
	}
	return nil
}

func (c *Content) loadPath(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		// Missing source path: become unbacked, don't mutate prior state
		// further than the discard above (spec section 4.1 Failures).
		c.filepath = ""
		c.isDir = false
		c.valid.Store(false)
		return errIO(err, "content: load: stat %s", path)
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	c.filename = filepath.Base(path)
	c.filepath = abs
	c.isDir = info.IsDir()
	c.attached.Store(false)
	c.mem = nil
	c.valid.Store(!c.isDir)
	return nil
}

func (c *Content) loadFromContent(other *Content) error {
	part := c.part
	if err := c.copyBytesFrom(other); err != nil {
		return err
	}
	c.part = part
	c.totalParts = other.totalParts
	c.totalSize = other.totalSize
	c.begin = other.begin
	c.end = other.end
	c.valid.Store(other.Valid())
	return nil
}

func (c *Content) loadFromParts(ctx context.Context, parts []*Content) error {
	f, err := tempFile(c.effectiveWorkDir(), c.filename)
	if err != nil {
		return errIO(err, "content: load: create temp file")
	}
	c.filepath = f.Name()
	c.file = f
	c.mem = nil
	c.mode = ModeWrite
	c.attached.Store(true)

	if err := c.appendAll(ctx, parts); err != nil {
		return err
	}
	length, err := c.Length()
	if err != nil {
		return err
	}
	c.totalSize = length
	c.end = length
	c.valid.Store(true)
	for _, p := range parts {
		if !p.Valid() {
			c.valid.Store(false)
			break
		}
	}
	return nil
}

func (c *Content) effectiveWorkDir() string {
	if c.workDir != "" {
		return c.workDir
	}
	return DefaultWorkDir
}

// defaultMemBuf sizes Append/Copy's streaming read buffer (Split uses its
// memBuf argument instead), in
// humanize units the same way fileblob-multipart.go sizes its own copy
// buffer (humanize.MiByte).
const defaultMemBuf = 64 * humanize.KiByte

// Append copies each of others' bytes onto the end of c, in order, opening
// each source read-only and streaming it in defaultMemBuf chunks. c is left
// dirty; the backing file is opened in append mode for the duration.
func (c *Content) Append(ctx context.Context, others ...*Content) (err error) {
	ctx = transformTracer.Start(ctx, "Append")
	defer func() { transformTracer.End(ctx, err) }()
	return c.appendAll(ctx, others)
}

func (c *Content) appendAll(ctx context.Context, others []*Content) error {
	if err := c.Open(ModeAppend, true); err != nil {
		return err
	}
	for _, other := range others {
		if err := other.Open(ModeRead, false); err != nil {
			return err
		}
		buf := make([]byte, defaultMemBuf)
		for {
			n, rerr := other.readRaw(buf)
			if n > 0 {
				if _, werr := c.Write(buf[:n], false); werr != nil {
					other.Close()
					return werr
				}
			}
			if rerr == io.EOF {
				break
			}
			if rerr != nil {
				other.Close()
				return rerr
			}
		}
		if err := other.Close(); err != nil {
			return err
		}
	}
	return nil
}

// readRaw reads into buf through Read, which takes c's own lock, for the
// Append/Copy/Split loops; callers must not already hold c's lock (c is a
// different Content instance than the one being written in every caller).
func (c *Content) readRaw(buf []byte) (int, error) {
	b, err := c.Read(len(buf))
	copy(buf, b)
	return len(b), err
}

// copyBytesFrom duplicates other's bytes into a fresh temp file owned by c.
func (c *Content) copyBytesFrom(other *Content) error {
	f, err := tempFile(c.effectiveWorkDir(), other.filename)
	if err != nil {
		return errIO(err, "content: copy: create temp file")
	}
	c.filepath = f.Name()
	c.filename = other.filename
	c.file = f
	c.mem = nil
	c.mode = ModeWrite
	c.attached.Store(true)
	c.sortNo = other.sortNo

	if err := other.Open(ModeRead, false); err != nil {
		return err
	}
	defer other.Close()
	buf := make([]byte, defaultMemBuf)
	for {
		n, rerr := other.readRaw(buf)
		if n > 0 {
			if _, werr := c.Write(buf[:n], false); werr != nil {
				return werr
			}
		}
		if rerr == io.EOF {
			break
		}
		if rerr != nil {
			return rerr
		}
	}
	return c.Flush()
}

// Copy returns a new attached Content pointing at a fresh temp file that is
// a byte-exact duplicate of c, preserving filename/part/totalParts/offsets/
// sortNo (spec section 4.1, used by Article.Copy).
func (c *Content) Copy(ctx context.Context) (out *Content, err error) {
	ctx = transformTracer.Start(ctx, "Copy")
	defer func() { transformTracer.End(ctx, err) }()

	dup := &Content{
		filename:   c.filename,
		workDir:    c.effectiveWorkDir(),
		part:       c.part,
		totalParts: c.totalParts,
		begin:      c.begin,
		end:        c.end,
		totalSize:  c.totalSize,
		sortNo:     c.sortNo,
		uniqueTag:  c.uniqueTag,
	}
	dup.attached.Store(true)
	if err := dup.copyBytesFrom(c); err != nil {
		return nil, err
	}
	dup.valid.Store(c.Valid())
	return dup, nil
}

// Split produces an ordered set of attached child Contents per spec section
// 4.1: each of length partSize except possibly the last. On any I/O or
// disk-full error, already-created children are discarded and no partial
// result is returned.
func (c *Content) Split(ctx context.Context, partSize int64, memBuf int) (children []*Content, err error) {
	ctx = transformTracer.Start(ctx, "Split")
	defer func() { transformTracer.End(ctx, err) }()

	if partSize < 1 {
		return nil, errValidation("content: split: part_size must be >= 1, got %d", partSize)
	}
	if memBuf < 1 {
		return nil, errValidation("content: split: mem_buf must be >= 1, got %d", memBuf)
	}
	length, err := c.Length()
	if err != nil {
		return nil, err
	}
	total := int(math.Ceil(float64(length) / float64(partSize)))
	if total == 0 {
		total = 1
	}

	if err := c.Open(ModeRead, false); err != nil {
		return nil, err
	}
	defer c.Close()

	buf := make([]byte, memBuf)
	result := make([]*Content, 0, total)
	cleanup := func() {
		for _, ch := range result {
			_ = ch.Destroy()
		}
	}

	for i := 1; i <= total; i++ {
		begin := int64(i-1) * partSize
		end := begin + partSize
		if end > length {
			end = length
		}
		child, cerr := New(c.filename, &Options{
			WorkDir:    c.effectiveWorkDir(),
			Part:       i,
			TotalParts: total,
			SortNo:     c.sortNo,
		})
		if cerr != nil {
			cleanup()
			return nil, cerr
		}
		child.begin, child.end, child.totalSize = begin, end, length
		child.parent = c
		remaining := end - begin
		for remaining > 0 {
			toRead := int64(len(buf))
			if toRead > remaining {
				toRead = remaining
			}
			n, rerr := c.readRaw(buf[:toRead])
			if n > 0 {
				if _, werr := child.Write(buf[:n], false); werr != nil {
					child.Destroy()
					cleanup()
					return nil, werr
				}
				remaining -= int64(n)
			}
			if rerr == io.EOF {
				break
			}
			if rerr != nil {
				child.Destroy()
				cleanup()
				return nil, rerr
			}
		}
		child.valid.Store(true)
		if err := child.Close(); err != nil {
			child.Destroy()
			cleanup()
			return nil, err
		}
		result = append(result, child)
	}
	return result, nil
}

// Save moves (default) or copies the backing file to target, per spec
// section 4.1. Move promotes c to detached and retargets filepath.
func (c *Content) Save(target string, copy bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.closeLocked(); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(target), 0777); err != nil {
		return errIO(err, "content: save: mkdir %s", filepath.Dir(target))
	}
	if abs, _ := filepath.Abs(target); abs != c.filepath {
		if _, err := os.Stat(target); err == nil {
			if err := os.Remove(target); err != nil {
				return errIO(err, "content: save: remove existing %s", target)
			}
		}
	}
	if copy {
		return c.copyFileTo(target)
	}
	if err := os.Rename(c.filepath, target); err != nil {
		return errIO(err, "content: save: rename %s -> %s", c.filepath, target)
	}
	abs, err := filepath.Abs(target)
	if err != nil {
		abs = target
	}
	c.filepath = abs
	c.attached.Store(false)
	return nil
}

func (c *Content) copyFileTo(target string) error {
	src, err := os.Open(c.filepath)
	if err != nil {
		return errIO(err, "content: save: open %s", c.filepath)
	}
	defer src.Close()
	dst, err := os.Create(target)
	if err != nil {
		return errIO(err, "content: save: create %s", target)
	}
	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		return errIO(err, "content: save: copy to %s", target)
	}
	return dst.Close()
}

// ChunkIter yields successive byte blocks sized at most its block size, for
// wire transmission, mirroring blob.ListIterator's Next(ctx) shape.
type ChunkIter struct {
	c     *Content
	block int
	done  bool
}

// PostIter returns an iterator over c's bytes in chunks of at most block
// bytes, streaming with no full-file buffering (spec section 4.1).
func (c *Content) PostIter(block int) (*ChunkIter, error) {
	if block < 1 {
		return nil, errValidation("content: post_iter: block must be >= 1, got %d", block)
	}
	if err := c.Open(ModeRead, false); err != nil {
		return nil, err
	}
	return &ChunkIter{c: c, block: block}, nil
}

// Next returns the next chunk, or (nil, io.EOF) when exhausted. The caller
// must not call Next again after io.EOF; the Content is closed automatically.
func (it *ChunkIter) Next() ([]byte, error) {
	if it.done {
		return nil, io.EOF
	}
	chunk, err := it.c.Read(it.block)
	if err == io.EOF || len(chunk) == 0 {
		it.done = true
		it.c.Close()
		if len(chunk) > 0 {
			return chunk, nil
		}
		return nil, io.EOF
	}
	if err != nil {
		it.done = true
		it.c.Close()
		return nil, err
	}
	return chunk, nil
}
