package codec

import (
	"fmt"
	"io"

	"github.com/BurntSushi/toml"

	"flowcanvas/internal/domain"
)

// TOMLCodec handles TOML import/export
type TOMLCodec struct{}

// NewTOMLCodec creates a new TOML codec
func NewTOMLCodec() *TOMLCodec {
	return &TOMLCodec{}
}

// Format returns the codec format identifier
func (c *TOMLCodec) Format() string {
	return "toml"
}

// Parse imports a project from TOML
func (c *TOMLCodec) Parse(r io.Reader) (*domain.Project, error) {
	var doc document
	if _, err := toml.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("failed to parse TOML: %w", err)
	}

	return doc.toProject(), nil
}

// Export exports a project to TOML. Settings holding nil values are
// dropped, TOML has no null.
func (c *TOMLCodec) Export(p *domain.Project, w io.Writer) error {
	doc := toDocument(p)
	for i := range doc.Nodes {
		doc.Nodes[i].Data.Settings = withoutNil(doc.Nodes[i].Data.Settings)
	}

	if err := toml.NewEncoder(w).Encode(doc); err != nil {
		return fmt.Errorf("failed to encode TOML: %w", err)
	}

	return nil
}

func withoutNil(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		if v != nil {
			out[k] = v
		}
	}
	return out
}
