// Package vfile holds the in-memory virtual file set owned by a document
// session: uploaded files plus derived section, tree, and suggestion
// artifacts.
package vfile

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/treepaper/paperedit/internal/section"
)

var (
	// ErrNameTaken means a file with that name already exists in the set.
	ErrNameTaken = errors.New("file name already exists")
	// ErrNotFound means no file with that name exists in the set.
	ErrNotFound = errors.New("file not found")
)

// File is a named in-memory text artifact.
type File struct {
	Name    string `json:"name"`
	Content string `json:"content"`
}

// Set is an ordered collection of virtual files with unique names.
type Set struct {
	files []File
}

// Add appends a new file. Uploading a name that already exists is rejected
// with no state mutation.
func (s *Set) Add(name, content string) error {
	if s.index(name) >= 0 {
		return fmt.Errorf("%w: %s", ErrNameTaken, name)
	}
	s.files = append(s.files, File{Name: name, Content: content})
	return nil
}

// Upsert replaces the content of name, or appends it. Derived artifacts
// (sections, tree, suggestion) are written through here so regeneration
// never collides.
func (s *Set) Upsert(name, content string) {
	if i := s.index(name); i >= 0 {
		s.files[i].Content = content
		return
	}
	s.files = append(s.files, File{Name: name, Content: content})
}

// Get returns the file named name.
func (s *Set) Get(name string) (File, bool) {
	if i := s.index(name); i >= 0 {
		return s.files[i], true
	}
	return File{}, false
}

// Rename changes a file's name. A collision with an existing name is
// rejected and the set is left untouched.
func (s *Set) Rename(oldName, newName string) error {
	i := s.index(oldName)
	if i < 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, oldName)
	}
	if newName != oldName && s.index(newName) >= 0 {
		return fmt.Errorf("%w: %s", ErrNameTaken, newName)
	}
	s.files[i].Name = newName
	return nil
}

// Remove deletes the file named name and reports whether it existed.
// Derived files are independent of their source: removing an upload keeps
// its sections.
func (s *Set) Remove(name string) bool {
	i := s.index(name)
	if i < 0 {
		return false
	}
	s.files = append(s.files[:i], s.files[i+1:]...)
	return true
}

// Files returns the files in insertion order.
func (s *Set) Files() []File {
	out := make([]File, len(s.files))
	copy(out, s.files)
	return out
}

// Len returns the number of files.
func (s *Set) Len() int {
	return len(s.files)
}

func (s *Set) index(name string) int {
	for i, f := range s.files {
		if f.Name == name {
			return i
		}
	}
	return -1
}

// BaseName strips the extension from a file name. "paper.pdf" -> "paper".
func BaseName(name string) string {
	return strings.TrimSuffix(name, filepath.Ext(name))
}

// SectionFileName names a derived section file. The naming conventions
// below are the only externally visible format contract and must stay
// byte-exact for round-tripping.
func SectionFileName(base string, title section.Title) string {
	return fmt.Sprintf("%s__%s.section.txt", base, title)
}

// TreeFileName names the derived tree artifact.
func TreeFileName(base string) string {
	return base + ".tree.json"
}

// SuggestionFileName names the derived suggestion artifact.
func SuggestionFileName(base string) string {
	return base + ".suggestion.txt"
}

// SectionFiles materializes one virtual file per section span of text.
// An empty result means segmentation found nothing; the caller must keep
// the original file as the selectable entry rather than discard it.
func SectionFiles(baseName, text string) []File {
	base := BaseName(baseName)
	var out []File
	for _, span := range section.Segment(text) {
		out = append(out, File{
			Name:    SectionFileName(base, span.Title),
			Content: span.Body,
		})
	}
	return out
}
