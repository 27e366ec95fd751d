package template

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

const fileExt = ".json"

// Store keeps templates as JSON documents in a directory.
type Store struct {
	Dir string
}

func NewStore(dir string) *Store { return &Store{Dir: dir} }

// List returns template file names sorted by name.
func (s *Store) List() ([]string, error) {
	entries, err := os.ReadDir(s.Dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading template dir %s: %w", s.Dir, err)
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != fileExt {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)
	return names, nil
}

// Load reads a template by file name or path.
func (s *Store) Load(name string) (*Template, error) {
	path := s.path(name)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading template %s: %w", path, err)
	}
	return Decode(filepath.Base(path), data)
}

// Save writes the template and returns the path it was written to.
func (s *Store) Save(name string, t *Template) (string, error) {
	data, err := Encode(t)
	if err != nil {
		return "", fmt.Errorf("encoding template %s: %w", name, err)
	}
	if err := os.MkdirAll(s.Dir, 0o755); err != nil {
		return "", fmt.Errorf("creating template dir: %w", err)
	}

	path := s.path(name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("writing template %s: %w", path, err)
	}
	t.Name = filepath.Base(path)
	return path, nil
}

// path resolves a bare name inside Dir and appends the extension when it
// is missing. Names containing a directory are used as given.
func (s *Store) path(name string) string {
	if !strings.HasSuffix(name, fileExt) {
		name += fileExt
	}
	if strings.ContainsRune(name, filepath.Separator) || filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(s.Dir, name)
}
