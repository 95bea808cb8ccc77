package importer

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/mileagekit/mileage/internal/mileagelog"
)

// Parser converts a trip CSV file into drafts ready for mileagelog.Log.Add.
type Parser interface {
	Parse(r io.Reader) ([]mileagelog.Draft, error)
	Format() string
	// Header is the first row the format writes, used for detection.
	Header() []string
}

// Registry holds named parsers.
type Registry struct {
	parsers map[string]Parser
}

// FileInfo describes a CSV file in the import directory.
type FileInfo struct {
	Name string
	Path string
	Size int64
}

// NewRegistry creates an empty parser registry.
func NewRegistry() *Registry {
	return &Registry{parsers: make(map[string]Parser)}
}

// Register adds a parser. Panics on duplicate format.
func (r *Registry) Register(p Parser) {
	key := strings.ToLower(p.Format())
	if _, ok := r.parsers[key]; ok {
		panic("duplicate parser format: " + key)
	}
	r.parsers[key] = p
}

// Get returns the parser for format, or nil.
func (r *Registry) Get(format string) Parser {
	return r.parsers[strings.ToLower(format)]
}

// Formats returns the registered format names, sorted.
func (r *Registry) Formats() []string {
	names := make([]string, 0, len(r.parsers))
	for k := range r.parsers {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// Detect returns the parser whose header matches the given first row,
// comparing names case-insensitively.
func (r *Registry) Detect(header []string) (Parser, error) {
	for _, name := range r.Formats() {
		p := r.parsers[name]
		if headerMatches(p.Header(), header) {
			return p, nil
		}
	}
	return nil, fmt.Errorf("unrecognised CSV header %q", strings.Join(header, ","))
}

func headerMatches(want, got []string) bool {
	if len(want) != len(got) {
		return false
	}
	for i := range want {
		if !strings.EqualFold(want[i], strings.TrimSpace(got[i])) {
			return false
		}
	}
	return true
}

// DefaultRegistry returns a registry with all built-in parsers.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(&NativeParser{})
	r.Register(&WebParser{})
	return r
}

// ParseFile reads path with the named format, or detects the format from
// the header when format is empty.
func (r *Registry) ParseFile(path, format string) ([]mileagelog.Draft, Parser, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	br := bufio.NewReader(f)
	var p Parser
	if format != "" {
		if p = r.Get(format); p == nil {
			return nil, nil, fmt.Errorf("unknown import format %q (available: %s)", format, strings.Join(r.Formats(), ", "))
		}
	} else {
		// A short file peeks to EOF; the header is always inside the buffer.
		line, err := br.Peek(br.Size())
		if err != nil && err != io.EOF {
			return nil, nil, fmt.Errorf("reading %s: %w", path, err)
		}
		first := string(line)
		if i := strings.IndexByte(first, '\n'); i >= 0 {
			first = strings.TrimRight(first[:i], "\r")
		}
		header, err := csv.NewReader(strings.NewReader(first)).Read()
		if err != nil {
			return nil, nil, fmt.Errorf("reading header of %s: %w", path, err)
		}
		if p, err = r.Detect(header); err != nil {
			return nil, nil, fmt.Errorf("%s: %w", path, err)
		}
	}

	drafts, err := p.Parse(br)
	if err != nil {
		return nil, nil, fmt.Errorf("parsing %s as %s: %w", path, p.Format(), err)
	}
	return drafts, p, nil
}

// processedDir is the subdirectory for processed CSVs.
const processedDir = "processed"

// Scan returns CSV files directly inside dir.
func Scan(dir string) ([]FileInfo, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading import dir: %w", err)
	}

	var files []FileInfo
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if !strings.HasSuffix(strings.ToLower(e.Name()), ".csv") {
			continue
		}
		info, err := e.Info()
		if err != nil {
			return nil, fmt.Errorf("stat %s: %w", e.Name(), err)
		}
		files = append(files, FileInfo{
			Name: e.Name(),
			Path: filepath.Join(dir, e.Name()),
			Size: info.Size(),
		})
	}
	return files, nil
}

// MarkProcessed moves a file from dir to dir/processed.
func MarkProcessed(dir, fileName string) error {
	src := filepath.Join(dir, fileName)
	dstDir := filepath.Join(dir, processedDir)

	if err := os.MkdirAll(dstDir, 0o755); err != nil {
		return fmt.Errorf("creating processed dir: %w", err)
	}

	dst := filepath.Join(dstDir, fileName)
	if err := os.Rename(src, dst); err != nil {
		return fmt.Errorf("moving %s to processed: %w", fileName, err)
	}
	return nil
}
