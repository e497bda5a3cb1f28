package field

import (
	"encoding/json"
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Store keeps the containers parsed from definition documents. It is safe for
// concurrent readers when treated as immutable after construction.
type Store struct {
	containers map[string]Container
}

// NewStore builds a store from containers declared in code. Duplicate or empty
// ids are rejected.
func NewStore(containers ...Container) (*Store, error) {
	store := &Store{containers: make(map[string]Container, len(containers))}
	for _, container := range containers {
		if err := store.add(container); err != nil {
			return nil, err
		}
	}
	return store, nil
}

// LoadFS walks the provided filesystem and parses JSON/YAML definition files.
// When fsys is nil or no definition files are present, the returned store is
// empty.
func LoadFS(fsys fs.FS) (*Store, error) {
	store := &Store{containers: make(map[string]Container)}
	if fsys == nil {
		return store, nil
	}

	err := fs.WalkDir(fsys, ".", func(path string, entry fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if entry.IsDir() || !isDefinitionFile(path) {
			return nil
		}

		data, err := fs.ReadFile(fsys, path)
		if err != nil {
			return fmt.Errorf("field: read %s: %w", path, err)
		}

		doc, err := parseDocument(data, path)
		if err != nil {
			return err
		}

		ids := make([]string, 0, len(doc.Containers))
		for id := range doc.Containers {
			ids = append(ids, id)
		}
		sort.Strings(ids)

		for _, rawID := range ids {
			container, err := normaliseContainer(rawID, doc.Containers[rawID], path)
			if err != nil {
				return err
			}
			if err := store.add(container); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return store, nil
}

// Container returns the container registered under id.
func (s *Store) Container(id string) (Container, bool) {
	if s == nil {
		return Container{}, false
	}
	container, ok := s.containers[strings.TrimSpace(id)]
	return container, ok
}

// IDs returns the sorted container ids.
func (s *Store) IDs() []string {
	if s == nil {
		return nil
	}
	ids := make([]string, 0, len(s.containers))
	for id := range s.containers {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Empty reports whether the store holds any containers.
func (s *Store) Empty() bool {
	return s == nil || len(s.containers) == 0
}

func (s *Store) add(container Container) error {
	id := strings.TrimSpace(container.ID)
	if id == "" {
		return fmt.Errorf("field: container id is required (source %q)", container.Source)
	}
	if _, exists := s.containers[id]; exists {
		return fmt.Errorf("field: duplicate container %q (source %q)", id, container.Source)
	}
	if err := validateFieldIDs(id, container.Fields); err != nil {
		return err
	}
	container.ID = id
	s.containers[id] = container
	return nil
}

func validateFieldIDs(containerID string, fields []Spec) error {
	seen := make(map[string]struct{}, len(fields))
	for _, spec := range fields {
		id := strings.TrimSpace(spec.ID)
		if id == "" {
			continue
		}
		if _, exists := seen[id]; exists {
			return fmt.Errorf("field: container %q declares field %q more than once", containerID, id)
		}
		seen[id] = struct{}{}
	}
	return nil
}

type documentFile struct {
	Containers map[string]containerFile `json:"containers" yaml:"containers"`
}

type containerFile struct {
	Title       string           `json:"title" yaml:"title"`
	Description string           `json:"description" yaml:"description"`
	Serialize   string           `json:"serialize" yaml:"serialize"`
	Fields      []map[string]any `json:"fields" yaml:"fields"`
}

func parseDocument(data []byte, source string) (documentFile, error) {
	var doc documentFile
	if len(strings.TrimSpace(string(data))) == 0 {
		return documentFile{}, fmt.Errorf("field: file %s is empty", source)
	}

	if err := json.Unmarshal(data, &doc); err == nil {
		return doc, nil
	}

	doc = documentFile{}
	if err := yaml.Unmarshal(data, &doc); err == nil {
		return doc, nil
	}

	return documentFile{}, fmt.Errorf("field: parse %s: invalid JSON or YAML", source)
}

func normaliseContainer(rawID string, raw containerFile, source string) (Container, error) {
	id := strings.TrimSpace(rawID)
	if id == "" {
		return Container{}, fmt.Errorf("field: file %s defines an empty container id", source)
	}
	container := Container{
		ID:          id,
		Title:       raw.Title,
		Description: raw.Description,
		Serialize:   strings.TrimSpace(raw.Serialize),
		Source:      source,
		Fields:      make([]Spec, 0, len(raw.Fields)),
	}
	for idx, entry := range raw.Fields {
		spec, err := FromMap(entry)
		if err != nil {
			return Container{}, fmt.Errorf("field: container %q field #%d (%s): %w", id, idx, source, err)
		}
		container.Fields = append(container.Fields, spec)
	}
	return container, nil
}

func isDefinitionFile(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json", ".yaml", ".yml":
		return true
	default:
		return false
	}
}
