package field

import (
	"bytes"
	"fmt"

	"gopkg.in/yaml.v3"
)

type encodedDocument struct {
	Containers map[string]encodedContainer `yaml:"containers"`
}

type encodedContainer struct {
	Title       string `yaml:"title,omitempty"`
	Description string `yaml:"description,omitempty"`
	Serialize   string `yaml:"serialize,omitempty"`
	Fields      []Spec `yaml:"fields"`
}

// EncodeYAML writes containers in the definition file layout read by LoadFS.
func EncodeYAML(containers ...Container) ([]byte, error) {
	doc := encodedDocument{Containers: make(map[string]encodedContainer, len(containers))}
	for _, container := range containers {
		if container.ID == "" {
			return nil, fmt.Errorf("field: cannot encode container without id")
		}
		if _, exists := doc.Containers[container.ID]; exists {
			return nil, fmt.Errorf("field: duplicate container %q", container.ID)
		}
		doc.Containers[container.ID] = encodedContainer{
			Title:       container.Title,
			Description: container.Description,
			Serialize:   container.Serialize,
			Fields:      container.Fields,
		}
	}

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return nil, fmt.Errorf("field: encode yaml: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("field: encode yaml: %w", err)
	}
	return buf.Bytes(), nil
}
