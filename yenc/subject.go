package yenc

import (
	"regexp"
	"strconv"
	"strings"
)

// Subject is the result of parsing a free-form Usenet subject line (spec
// section 4.2, "Subject parsing"). Only fields whose Has* flag is true were
// actually present in the input.
type Subject struct {
	Description string

	HasIndex bool
	Index    int
	HasCount bool
	Count    int

	HasFilename bool
	Filename    string

	HasYIndex bool
	YIndex    int
	HasYCount bool
	YCount    int

	HasSize bool
	Size    int64
}

// SubjectParser recognizes one subject dialect. Article.Deobfuscate tries a
// list of these in order (spec section 4.3, "deobfuscate(filebase?, codecs?)").
type SubjectParser interface {
	Parse(subject string) (Subject, bool)
}

// DefaultSubjectParser implements the tolerant grammar described in spec
// section 4.2: an optional `[idx/count]` segment, an optional quoted or
// bare filename, and a `yEnc (yidx/ycount)` marker with an optional
// trailing size.
type DefaultSubjectParser struct{}

var (
	reIdxCount = regexp.MustCompile(`\[\s*(\d+)\s*/\s*(\d+)\s*\]`)
	reYEnc     = regexp.MustCompile(`(?i)yenc\s*\(\s*(\d+)\s*/\s*(\d+)\s*\)`)
	reTailSize = regexp.MustCompile(`(\d{2,})\s*(?:bytes)?`)
)

// Parse implements SubjectParser.
func (DefaultSubjectParser) Parse(subject string) (Subject, bool) {
	var result Subject
	rest := subject

	if loc := reIdxCount.FindStringSubmatchIndex(rest); loc != nil {
		idx, _ := strconv.Atoi(rest[loc[2]:loc[3]])
		count, _ := strconv.Atoi(rest[loc[4]:loc[5]])
		result.HasIndex, result.Index = true, idx
		result.HasCount, result.Count = true, count
		rest = rest[:loc[0]] + rest[loc[1]:]
	}

	if loc := reYEnc.FindStringSubmatchIndex(rest); loc != nil {
		yidx, _ := strconv.Atoi(rest[loc[2]:loc[3]])
		ycount, _ := strconv.Atoi(rest[loc[4]:loc[5]])
		result.HasYIndex, result.YIndex = true, yidx
		result.HasYCount, result.YCount = true, ycount

		tail := rest[loc[1]:]
		if sm := reTailSize.FindStringSubmatch(tail); sm != nil {
			if v, err := strconv.ParseInt(sm[1], 10, 64); err == nil {
				result.HasSize, result.Size = true, v
			}
		}
		rest = rest[:loc[0]]
	}

	fields := strings.Fields(rest)
	filenameIdx := -1
	for i := len(fields) - 1; i >= 0; i-- {
		tok := strings.Trim(fields[i], `"'`)
		if tok != "." && strings.Contains(tok, ".") {
			filenameIdx = i
			result.HasFilename, result.Filename = true, tok
			break
		}
	}

	var descFields []string
	if filenameIdx >= 0 {
		descFields = append(append([]string{}, fields[:filenameIdx]...), fields[filenameIdx+1:]...)
	} else {
		descFields = fields
	}
	result.Description = cleanupDescription(strings.Join(descFields, " "))

	if !result.HasFilename && !result.HasYIndex && !result.HasIndex {
		return Subject{}, false
	}
	return result, true
}

func cleanupDescription(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimRight(s, " -")
	return strings.TrimSpace(s)
}

// DefaultSubjectParsers is the default codec list Article.Deobfuscate uses
// when the caller doesn't supply one.
var DefaultSubjectParsers = []SubjectParser{DefaultSubjectParser{}}

// ParseSubject parses subject using DefaultSubjectParser, for callers that
// don't need to customize the parser list.
func ParseSubject(subject string) (Subject, bool) {
	return DefaultSubjectParser{}.Parse(subject)
}
