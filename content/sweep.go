package content

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/sebastian404/newsreap/posix"
)

// tempFileSuffix is the suffix every temp file created by tempFile ends
// with (the pattern passed to ioutil.TempFile is "<prefix>.*.tmp").
const tempFileSuffix = ".tmp"

// SweepOrphans removes stray temp files left behind under workDir by a
// Content whose process died before Close/Destroy ran (spec section 5,
// work_dir bookkeeping). It lists workDir with posix.ReadDir, the same
// directory-listing primitive fileblob-multipart.go uses to enumerate a
// multipart upload's part files, and removes every regular file matching
// the temp-file naming convention tempFile uses.
//
// SweepOrphans makes no attempt to tell a live Content's open temp file
// apart from an orphan: callers must only run it against a workDir known
// to hold no attached Content, e.g. at process startup.
func SweepOrphans(workDir string) (removed []string, err error) {
	entries, err := posix.ReadDir(workDir)
	if err != nil {
		if err == posix.ErrFileNotFound {
			return nil, nil
		}
		return nil, errIO(err, "content: list %s", workDir)
	}
	for _, name := range entries {
		if strings.HasSuffix(name, "/") {
			continue // directory entry, never an orphaned temp file
		}
		if !strings.HasSuffix(name, tempFileSuffix) {
			continue
		}
		full := filepath.Join(workDir, name)
		if rerr := os.Remove(full); rerr != nil {
			if os.IsNotExist(rerr) {
				continue
			}
			return removed, errIO(rerr, "content: remove orphan %s", full)
		}
		removed = append(removed, full)
	}
	return removed, nil
}
