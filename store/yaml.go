package store

import (
	"fmt"
	"io"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"midiosc/debug"
	"midiosc/mapping"
)

type yamlFile struct {
	Mappings []record `yaml:"mappings"`
}

// ExportYAML writes every mapping to w as a YAML document.
func (s *Store) ExportYAML(w io.Writer) error {
	all, err := s.All()
	if err != nil {
		return err
	}
	f := yamlFile{Mappings: make([]record, 0, len(all))}
	for _, m := range all {
		f.Mappings = append(f.Mappings, toRecord(m))
	}

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(f); err != nil {
		return fmt.Errorf("failed to export mappings: %w", err)
	}
	return enc.Close()
}

// ImportYAML reads mappings written by ExportYAML and saves them, replacing
// mappings with the same id. Entries without an id get a new one. Nothing
// is saved if any entry is invalid.
func (s *Store) ImportYAML(r io.Reader) (int, error) {
	var f yamlFile
	if err := yaml.NewDecoder(r).Decode(&f); err != nil && err != io.EOF {
		return 0, fmt.Errorf("%w: failed to parse mappings: %v", mapping.ErrValidation, err)
	}

	ms := make([]mapping.Mapping, 0, len(f.Mappings))
	for i, rec := range f.Mappings {
		if rec.ID == "" {
			rec.ID = uuid.NewString()
		}
		m, err := rec.mapping()
		if err != nil {
			return 0, fmt.Errorf("mapping %d (%s): %w", i+1, rec.Name, err)
		}
		ms = append(ms, m)
	}

	for _, m := range ms {
		if err := s.Save(m); err != nil {
			return 0, fmt.Errorf("failed to import mapping %s: %w", m.ID(), err)
		}
	}
	debug.Log("store", "imported %d mappings", len(ms))
	return len(ms), nil
}
