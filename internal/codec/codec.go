// Package codec reads and writes projects in the interchange formats the
// CLI and the HTTP export endpoints accept.
package codec

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"flowcanvas/internal/domain"
)

// ErrUnknownFormat is returned for a format no codec handles
var ErrUnknownFormat = errors.New("unknown format")

// Importer reads a project from a serialized form
type Importer interface {
	Parse(r io.Reader) (*domain.Project, error)
	Format() string
}

// Exporter writes a project to a serialized form
type Exporter interface {
	Export(p *domain.Project, w io.Writer) error
	Format() string
}

// Codec both reads and writes one format
type Codec interface {
	Importer
	Exporter
}

// ContentType returns the MIME type served for a format
func ContentType(format string) string {
	switch format {
	case "yaml":
		return "application/yaml"
	case "toml":
		return "application/toml"
	}
	return "application/json"
}

// ForFormat returns the codec for a format name. "yml" is accepted as yaml.
func ForFormat(format string) (Codec, error) {
	switch strings.ToLower(format) {
	case "json":
		return NewJSONCodec(), nil
	case "yaml", "yml":
		return NewYAMLCodec(), nil
	case "toml":
		return NewTOMLCodec(), nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
}

// ForPath picks a codec from a file extension
func ForPath(path string) (Codec, error) {
	ext := strings.TrimPrefix(filepath.Ext(path), ".")
	if ext == "" {
		return nil, fmt.Errorf("%w: %s has no extension", ErrUnknownFormat, path)
	}
	return ForFormat(ext)
}

// normalize fills the fields an imported document may omit
func normalize(p *domain.Project) *domain.Project {
	if p.ID == "" {
		p.ID = domain.NewProject("").ID
	}
	if p.Nodes == nil {
		p.Nodes = make([]*domain.Node, 0)
	}
	if p.Edges == nil {
		p.Edges = make([]*domain.Edge, 0)
	}
	if p.Viewport.Zoom == 0 {
		p.Viewport.Zoom = 1
	}
	for _, n := range p.Nodes {
		if n.Data.Status == "" {
			n.Data.Status = domain.NodeStatusIdle
		}
		if n.Data.Label == "" {
			n.Data.Label = domain.DefaultLabel(n.Type)
		}
	}
	for _, e := range p.Edges {
		if e.ID == "" {
			e.ID = e.GenerateID()
		}
	}
	return p
}
