// Package cmudict provides a phonetic.Dictionary backed by the CMU
// Pronouncing Dictionary.
//
// Both the classic distribution format ("WORD  P1 P2", ";;;" comment lines)
// and the modern cmudict.dict format ("word p1 p2 # comment") are accepted.
// Alternate pronunciations are marked with a numeric suffix ("READ(2)") and
// are folded into the headword's pronunciation list.
//
// When the dictionary file does not exist, Entries reports
// phonetic.ErrUnavailable and Acquire downloads it from the configured URL.
package cmudict

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/MrWong99/homophoner/pkg/provider/phonetic"
)

// DefaultURL is the upstream location of the maintained cmudict.dict file.
const DefaultURL = "https://raw.githubusercontent.com/cmusphinx/cmudict/master/cmudict.dict"

var (
	_ phonetic.Dictionary = (*Dictionary)(nil)
	_ phonetic.Acquirer   = (*Dictionary)(nil)
)

// Dictionary reads CMUdict data from a local file.
type Dictionary struct {
	path       string
	url        string
	httpClient *http.Client
}

// Option is a functional option for New.
type Option func(*Dictionary)

// WithURL overrides the download URL used by Acquire.
func WithURL(url string) Option {
	return func(d *Dictionary) {
		d.url = url
	}
}

// WithHTTPClient replaces the HTTP client used by Acquire.
func WithHTTPClient(c *http.Client) Option {
	return func(d *Dictionary) {
		d.httpClient = c
	}
}

// New returns a Dictionary reading from path.
func New(path string, opts ...Option) (*Dictionary, error) {
	if path == "" {
		return nil, errors.New("cmudict: path must not be empty")
	}
	d := &Dictionary{
		path:       path,
		url:        DefaultURL,
		httpClient: &http.Client{Timeout: 2 * time.Minute},
	}
	for _, o := range opts {
		o(d)
	}
	return d, nil
}

// Path returns the local dictionary file path.
func (d *Dictionary) Path() string { return d.path }

// Entries implements phonetic.Dictionary. It parses the file on every call;
// callers are expected to build their index once and cache it.
func (d *Dictionary) Entries(_ context.Context) (map[string][][]string, error) {
	f, err := os.Open(d.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("cmudict: open %s: %w: %w", d.path, phonetic.ErrUnavailable, err)
	}
	if err != nil {
		return nil, fmt.Errorf("cmudict: open %s: %w", d.path, err)
	}
	defer f.Close()

	entries, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("cmudict: parse %s: %w", d.path, err)
	}
	return entries, nil
}

// Acquire implements phonetic.Acquirer. It downloads the dictionary to a
// temporary file next to the target and renames it into place, so a
// concurrent reader never observes a partial file.
func (d *Dictionary) Acquire(ctx context.Context) error {
	if d.url == "" {
		return errors.New("cmudict: acquire: no download URL configured")
	}
	if err := os.MkdirAll(filepath.Dir(d.path), 0o755); err != nil {
		return fmt.Errorf("cmudict: acquire: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, d.url, nil)
	if err != nil {
		return fmt.Errorf("cmudict: acquire: build request: %w", err)
	}
	resp, err := d.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("cmudict: acquire: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("cmudict: acquire: unexpected status %d from %s", resp.StatusCode, d.url)
	}

	tmp, err := os.CreateTemp(filepath.Dir(d.path), ".cmudict-*")
	if err != nil {
		return fmt.Errorf("cmudict: acquire: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, resp.Body); err != nil {
		tmp.Close()
		return fmt.Errorf("cmudict: acquire: download: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("cmudict: acquire: %w", err)
	}
	if err := os.Rename(tmp.Name(), d.path); err != nil {
		return fmt.Errorf("cmudict: acquire: %w", err)
	}
	return nil
}

// Parse reads CMUdict-formatted data. Headwords are lowercased and variant
// suffixes ("(2)") are removed. Lines without phonemes are ignored.
func Parse(r io.Reader) (map[string][][]string, error) {
	entries := make(map[string][][]string)
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		line := sc.Text()
		if strings.HasPrefix(line, ";;;") {
			continue
		}
		if i := strings.Index(line, "#"); i >= 0 {
			line = line[:i]
		}
		fields := strings.Fields(line)
		if len(fields) < 2 {
			continue
		}
		word := strings.ToLower(stripVariant(fields[0]))
		if word == "" {
			continue
		}
		phones := make([]string, len(fields)-1)
		for i, p := range fields[1:] {
			phones[i] = strings.ToUpper(p)
		}
		entries[word] = append(entries[word], phones)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return entries, nil
}

// stripVariant removes a trailing "(N)" alternate-pronunciation marker.
func stripVariant(w string) string {
	if !strings.HasSuffix(w, ")") {
		return w
	}
	i := strings.LastIndexByte(w, '(')
	if i <= 0 {
		return w
	}
	return w[:i]
}
