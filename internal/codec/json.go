package codec

import (
	"encoding/json"
	"fmt"
	"io"

	"ringaudit/internal/domain"
)

// JSONCodec handles JSON import/export
type JSONCodec struct{}

// NewJSONCodec creates a new JSON codec
func NewJSONCodec() *JSONCodec {
	return &JSONCodec{}
}

// Format returns the codec format identifier
func (c *JSONCodec) Format() string {
	return "json"
}

// Parse imports an audit from JSON
func (c *JSONCodec) Parse(r io.Reader) (*domain.Audit, error) {
	var doc auditDoc
	decoder := json.NewDecoder(r)
	if err := decoder.Decode(&doc); err != nil {
		return nil, fmt.Errorf("failed to parse JSON: %w", err)
	}

	return fromDoc(&doc)
}

// Export exports an audit to JSON
func (c *JSONCodec) Export(audit *domain.Audit, w io.Writer) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")

	if err := encoder.Encode(toDoc(audit)); err != nil {
		return fmt.Errorf("failed to encode JSON: %w", err)
	}

	return nil
}
