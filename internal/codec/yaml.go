package codec

import (
	"fmt"
	"io"

	"ringaudit/internal/domain"

	"gopkg.in/yaml.v3"
)

// YAMLCodec handles YAML import/export
type YAMLCodec struct{}

// NewYAMLCodec creates a new YAML codec
func NewYAMLCodec() *YAMLCodec {
	return &YAMLCodec{}
}

// Format returns the codec format identifier
func (c *YAMLCodec) Format() string {
	return "yaml"
}

// Parse imports an audit from YAML
func (c *YAMLCodec) Parse(r io.Reader) (*domain.Audit, error) {
	var doc auditDoc
	decoder := yaml.NewDecoder(r)
	if err := decoder.Decode(&doc); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	return fromDoc(&doc)
}

// Export exports an audit to YAML
func (c *YAMLCodec) Export(audit *domain.Audit, w io.Writer) error {
	encoder := yaml.NewEncoder(w)
	encoder.SetIndent(2)
	defer encoder.Close()

	if err := encoder.Encode(toDoc(audit)); err != nil {
		return fmt.Errorf("failed to encode YAML: %w", err)
	}

	return nil
}
