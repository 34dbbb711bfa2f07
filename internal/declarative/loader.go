// Package declarative loads, validates and renders template import documents.
package declarative

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// LoadOptions configures YAML loading behavior.
type LoadOptions struct {
	AllowUnknownFields bool
}

// LoadFile reads and parses the document at path.
func LoadFile(path string, opts LoadOptions) (*TemplateListDoc, error) {
	data, err := os.ReadFile(path) //nolint:gosec // intentional: reading user-specified import files
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	doc, err := Load(data, opts)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return doc, nil
}

// Load parses a TemplateList document. JSON input is accepted as YAML. Unless
// opts.AllowUnknownFields is set, fields not in the schema are an error.
func Load(data []byte, opts LoadOptions) (*TemplateListDoc, error) {
	var doc TemplateListDoc

	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(!opts.AllowUnknownFields)
	if err := decoder.Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("empty document")
		}
		return nil, fmt.Errorf("parse: %w", err)
	}

	if err := validateDocument(doc.APIVersion, doc.Kind); err != nil {
		return nil, err
	}
	return &doc, nil
}

// validateDocument checks the apiVersion and kind fields.
func validateDocument(apiVersion, kind string) error {
	if apiVersion != SupportedAPIVersion {
		return fmt.Errorf("unsupported apiVersion %q (expected %q)", apiVersion, SupportedAPIVersion)
	}
	if kind != KindTemplateList {
		return fmt.Errorf("unexpected kind %q (expected %q)", kind, KindTemplateList)
	}
	return nil
}
