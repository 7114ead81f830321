// Package runfile discovers and decodes run history files.
package runfile

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"io/fs"
	"iter"
	"os"
	"path/filepath"
	"strings"
)

// DefaultExt is the extension the game uses for run history files.
const DefaultExt = ".run"

// Source walks a directory tree for run files.
type Source struct {
	// Ext filters file names; DefaultExt when empty.
	Ext string
}

// List lazily yields every run file below root. Walk errors are yielded with
// the directory path and do not stop the walk. The sequence may be iterated
// more than once; each iteration walks the tree again.
func (s Source) List(root string) iter.Seq2[string, error] {
	ext := s.Ext
	if ext == "" {
		ext = DefaultExt
	}
	return func(yield func(string, error) bool) {
		stopped := false
		walkErr := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				if !yield(path, &FileError{Path: path, Kind: ErrDiscovery, Err: err}) {
					stopped = true
					return filepath.SkipAll
				}
				if d != nil && d.IsDir() {
					return filepath.SkipDir
				}
				return nil
			}
			if d.IsDir() || !strings.EqualFold(filepath.Ext(path), ext) {
				return nil
			}
			if !yield(path, nil) {
				stopped = true
				return filepath.SkipAll
			}
			return nil
		})
		if walkErr != nil && !stopped {
			yield(root, &FileError{Path: root, Kind: ErrDiscovery, Err: walkErr})
		}
	}
}

// Parse reads and decodes one run file. Numbers are kept as json.Number so
// the normalizer can tell integers from fractions.
func (s Source) Parse(path string) (map[string]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, &FileError{Path: path, Kind: ErrNotFound, Err: err}
		}
		return nil, &FileError{Path: path, Kind: ErrIO, Err: err}
	}
	return Decode(path, data)
}

// Decode parses raw file contents into a JSON object.
func Decode(path string, data []byte) (map[string]any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var raw map[string]any
	if err := dec.Decode(&raw); err != nil {
		return nil, &FileError{Path: path, Kind: ErrDecode, Err: err}
	}
	if raw == nil {
		return nil, &FileError{Path: path, Kind: ErrDecode, Err: errors.New("top-level value is not an object")}
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return nil, &FileError{Path: path, Kind: ErrDecode, Err: errors.New("trailing data after JSON object")}
	}
	return raw, nil
}
