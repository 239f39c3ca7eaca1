// Command newsreapcore is a smoke test exercising the article content core
// end to end: split a file into parts, round-trip each part through yEnc,
// post it through an in-memory transport, then decode and reassemble. It is
// deliberately not a CLI front end (that is out of scope for this module);
// it only proves the library's pieces wire together.
package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/sebastian404/newsreap/article"
	"github.com/sebastian404/newsreap/content"
	"github.com/sebastian404/newsreap/post/loopback"
	"github.com/sebastian404/newsreap/segmentedpost"
	"github.com/sebastian404/newsreap/yenc"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("newsreapcore: %v", err)
	}
}

func run() error {
	ctx := context.Background()
	workDir, err := os.MkdirTemp("", "newsreapcore-*")
	if err != nil {
		return err
	}
	defer os.RemoveAll(workDir)

	whole, err := content.New("demo.bin", &content.Options{WorkDir: workDir})
	if err != nil {
		return err
	}
	payload := make([]byte, 300*1024)
	for i := range payload {
		payload[i] = byte(i)
	}
	if _, err := whole.Write(payload, true); err != nil {
		return err
	}
	if err := whole.Close(); err != nil {
		return err
	}
	whole.SetValid(true)

	src := article.New(`"demo.bin" yEnc`, "smoketest@newsreap.local")
	src.Groups().Add("alt.binaries.test")
	src.Add(whole)

	parts, err := src.Split(ctx, 128*1024, 64*1024)
	if err != nil {
		return err
	}
	fmt.Printf("split into %d parts\n", len(parts))

	transport := loopback.New(nil)
	defer transport.Close()
	for _, p := range parts {
		if err := transport.Post(ctx, p); err != nil {
			return err
		}
	}
	fmt.Printf("posted %d articles\n", transport.Count())

	dec := yenc.NewDecoder(nil)
	sp := segmentedpost.New("demo.bin")
	for _, p := range parts {
		wire, ok := transport.Posted(p.Msgid(false))
		if !ok {
			return fmt.Errorf("article %s was not posted", p.Msgid(false))
		}
		wireContent, err := content.New("wire.part", &content.Options{WorkDir: workDir})
		if err != nil {
			return err
		}
		if _, err := wireContent.Write(wire, true); err != nil {
			return err
		}
		if err := wireContent.Close(); err != nil {
			return err
		}
		if err := wireContent.Open(content.ModeRead, false); err != nil {
			return err
		}
		result, err := dec.Decode(ctx, wireContent)
		wireContent.Close()
		if err != nil {
			return err
		}
		rebuilt := article.New(p.Subject(), p.Poster())
		rebuilt.SetNo(p.No())
		rebuilt.SetMessageID(p.Msgid(false))
		rebuilt.Add(result.Content)
		sp.Add(rebuilt)
	}

	if !sp.IsValid() {
		return fmt.Errorf("reassembled SegmentedPost failed validation")
	}

	target, err := content.New("demo.bin", &content.Options{WorkDir: workDir})
	if err != nil {
		return err
	}
	if err := sp.Assemble(ctx, target); err != nil {
		return err
	}
	sum, err := target.MD5()
	if err != nil {
		return err
	}
	fmt.Printf("reassembled gid=%s md5=%s\n", sp.GID(), sum)
	return nil
}
