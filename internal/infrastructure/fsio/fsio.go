// Package fsio implements the temp-file-then-rename write discipline shared
// by the output document and the enrichment cache. A reader never observes a
// half-written file, and a failed write leaves the previous file untouched.
package fsio

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"FortuneScanner/internal/domain"
	"FortuneScanner/internal/ports"
)

// WriteJSONAtomic marshals v with two-space indent and replaces path via a
// temporary sibling file and os.Rename.
func WriteJSONAtomic(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal %s: %w", path, err)
	}
	data = append(data, '\n')

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("mkdir %s: %w", dir, err)
		}
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("rename %s: %w", tmp, err)
	}
	return nil
}

// ReadJSON loads path into v. A missing file is reported via os.ErrNotExist.
func ReadJSON(path string, v any) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	return nil
}

// DocumentFile writes output documents to a fixed path.
type DocumentFile struct {
	path string
}

var _ ports.DocumentWriter = (*DocumentFile)(nil)

// NewDocumentFile wires the output path.
func NewDocumentFile(path string) *DocumentFile {
	return &DocumentFile{path: path}
}

// Path exposes the configured output location.
func (f *DocumentFile) Path() string { return f.path }

// Write persists the document atomically.
func (f *DocumentFile) Write(doc domain.OutputDocument) error {
	if err := WriteJSONAtomic(f.path, doc); err != nil {
		return &domain.PersistenceError{Path: f.path, Err: err}
	}
	return nil
}
