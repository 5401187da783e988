package rules

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// Parse decodes a rule document and validates it. Unknown fields are
// rejected so typos in rule files surface at load time rather than
// silently matching nothing. YAML being a superset of JSON, Parse
// accepts both encodings.
func Parse(data []byte) (*RuleSet, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var set RuleSet
	if err := dec.Decode(&set); err != nil {
		if err == io.EOF {
			return nil, ValidationError{Field: "rules", Message: "document is empty"}
		}
		return nil, fmt.Errorf("failed to decode rule document: %w", err)
	}

	if err := Validate(&set); err != nil {
		return nil, err
	}

	return &set, nil
}

// LoadFile reads and parses a rule document from disk.
func LoadFile(path string) (*RuleSet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read rule file %s: %w", path, err)
	}
	return Parse(data)
}
