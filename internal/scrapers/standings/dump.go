package standings

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"sync/atomic"
)

const report_dump_write = "dump.write"

var unsafeFilenameRegex = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// PageDump writes every fetched page into a directory, so that a page that failed to
// parse can be turned into a test fixture.
type PageDump struct {
	directory string
	counter   *uint64
}

// NewPageDump clears dir and recreates it.
func NewPageDump(dir string) (PageDump, error) {
	err := os.RemoveAll(dir)
	if err != nil {
		return PageDump{}, err
	}
	err = os.MkdirAll(dir, 0755)
	if err != nil {
		return PageDump{}, err
	}
	var counter uint64
	return PageDump{directory: dir, counter: &counter}, nil
}

// Filename returns the name a page fetched from pageUrl is written under, n orders the
// files by fetch.
func Filename(n uint64, pageUrl string) string {
	name := pageUrl
	parsed, err := url.Parse(pageUrl)
	if err == nil && parsed.Host != "" {
		name = parsed.Host + parsed.Path
	}
	name = unsafeFilenameRegex.ReplaceAllString(name, "_")
	return fmt.Sprintf("%03d-%s.txt", n, name)
}

func (d PageDump) Write(pageUrl, contents string) (string, error) {
	n := atomic.AddUint64(d.counter, 1)
	path := filepath.Join(d.directory, Filename(n, pageUrl))
	return path, os.WriteFile(path, []byte(contents), 0644)
}
