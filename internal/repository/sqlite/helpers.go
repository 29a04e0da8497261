package sqlite

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"flowcanvas/internal/domain"
)

// ============================================================================
// Null Type Conversion Helpers
// ============================================================================

// nullToString safely converts sql.NullString to string
func nullToString(ns sql.NullString) string {
	if ns.Valid {
		return ns.String
	}
	return ""
}

// stringToNull safely converts string to sql.NullString
func stringToNull(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

// ============================================================================
// JSON Marshaling Helpers
// ============================================================================

// unmarshalJSONField safely unmarshals JSON from nullable string into target
func unmarshalJSONField(ns sql.NullString, target interface{}) error {
	if !ns.Valid || ns.String == "" {
		return nil
	}
	return json.Unmarshal([]byte(ns.String), target)
}

// marshalToNull marshals interface to nullable JSON string
func marshalToNull(v interface{}) (sql.NullString, error) {
	if v == nil {
		return sql.NullString{}, nil
	}

	data, err := json.Marshal(v)
	if err != nil {
		return sql.NullString{}, err
	}
	return sql.NullString{String: string(data), Valid: true}, nil
}

// ============================================================================
// Schema Evolution Guide
// ============================================================================
//
// To add a new column to the nodes table:
// 1. Add field to nodeRow struct (below)
// 2. Update scanArgs() - APPEND to end to match column order
// 3. Update nodeColumns constant - APPEND to end
// 4. Update toDomain() to map new field to domain.Node
// 5. Update nodeInsertArgs() if column should be writable
// 6. Add the column to the CREATE TABLE in migrate()
//
// CRITICAL: Column order must match between:
// - nodeColumns constant
// - scanArgs() return slice
// - All SELECT queries using nodeColumns
//
// Same pattern applies to edges and projects.

// ============================================================================
// Project Row Scanner
// ============================================================================

// projectRow holds all columns from a project query for scanning
type projectRow struct {
	ID           string
	Name         string
	ViewportX    float64
	ViewportY    float64
	ViewportZoom float64
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// scanArgs returns pointers to all fields for sql.Scan()
// MUST match projectColumns order exactly:
// id, name, viewport_x, viewport_y, viewport_zoom, created_at, updated_at
func (r *projectRow) scanArgs() []interface{} {
	return []interface{}{
		&r.ID,           // 1
		&r.Name,         // 2
		&r.ViewportX,    // 3
		&r.ViewportY,    // 4
		&r.ViewportZoom, // 5
		&r.CreatedAt,    // 6
		&r.UpdatedAt,    // 7
	}
}

// toDomain converts the scanned row to a domain.Project without its graph
func (r *projectRow) toDomain() *domain.Project {
	zoom := r.ViewportZoom
	if zoom == 0 {
		zoom = 1
	}
	return &domain.Project{
		ID:        r.ID,
		Name:      r.Name,
		Nodes:     make([]*domain.Node, 0),
		Edges:     make([]*domain.Edge, 0),
		Viewport:  domain.Viewport{X: r.ViewportX, Y: r.ViewportY, Zoom: zoom},
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
}

// projectColumns returns the SELECT column list for project queries
const projectColumns = `id, name, viewport_x, viewport_y, viewport_zoom, created_at, updated_at`

// ============================================================================
// Node Row Scanner
// ============================================================================

// nodeRow holds all columns from a node query for scanning
type nodeRow struct {
	ID       string
	Type     string
	X        float64
	Y        float64
	ParentID sql.NullString
	DataJSON sql.NullString
}

// scanArgs returns pointers to all fields for sql.Scan()
// MUST match nodeColumns order exactly:
// id, type, x, y, parent_id, data
func (r *nodeRow) scanArgs() []interface{} {
	return []interface{}{
		&r.ID,       // 1
		&r.Type,     // 2
		&r.X,        // 3
		&r.Y,        // 4
		&r.ParentID, // 5
		&r.DataJSON, // 6
	}
}

// toDomain converts the scanned row to a domain.Node
func (r *nodeRow) toDomain() (*domain.Node, error) {
	node := &domain.Node{
		ID:       r.ID,
		Type:     domain.NodeType(r.Type),
		X:        r.X,
		Y:        r.Y,
		ParentID: nullToString(r.ParentID),
	}

	if err := unmarshalJSONField(r.DataJSON, &node.Data); err != nil {
		return nil, fmt.Errorf("unmarshal data: %w", err)
	}

	// Default status if empty
	if node.Data.Status == "" {
		node.Data.Status = domain.NodeStatusIdle
	}

	return node, nil
}

// nodeColumns returns the SELECT column list for node queries
const nodeColumns = `id, type, x, y, parent_id, data`

// ============================================================================
// Edge Row Scanner
// ============================================================================

// edgeRow holds all columns from an edge query for scanning
type edgeRow struct {
	ID           string
	Source       string
	SourceHandle sql.NullString
	Target       string
	TargetHandle sql.NullString
}

// scanArgs returns pointers to all fields for sql.Scan()
// MUST match edgeColumns order exactly:
// id, source, source_handle, target, target_handle
func (r *edgeRow) scanArgs() []interface{} {
	return []interface{}{
		&r.ID,           // 1
		&r.Source,       // 2
		&r.SourceHandle, // 3
		&r.Target,       // 4
		&r.TargetHandle, // 5
	}
}

// toDomain converts the scanned row to a domain.Edge
func (r *edgeRow) toDomain() *domain.Edge {
	return &domain.Edge{
		ID:           r.ID,
		Source:       r.Source,
		SourceHandle: nullToString(r.SourceHandle),
		Target:       r.Target,
		TargetHandle: nullToString(r.TargetHandle),
	}
}

// edgeColumns returns the SELECT column list for edge queries
const edgeColumns = `id, source, source_handle, target, target_handle`

// ============================================================================
// Write Helpers
// ============================================================================

// nodeInsertArgs prepares arguments for node INSERT
// Returns: project_id, id, type, x, y, parent_id, data, ord
func nodeInsertArgs(projectID string, node *domain.Node, ord int) ([]interface{}, error) {
	dataJSON, err := marshalToNull(node.Data)
	if err != nil {
		return nil, fmt.Errorf("marshal data: %w", err)
	}

	return []interface{}{
		projectID,
		node.ID,
		string(node.Type),
		node.X,
		node.Y,
		stringToNull(node.ParentID),
		dataJSON,
		ord,
	}, nil
}

// edgeInsertArgs prepares arguments for edge INSERT
// Returns: project_id, id, source, source_handle, target, target_handle, ord
func edgeInsertArgs(projectID string, edge *domain.Edge, ord int) []interface{} {
	return []interface{}{
		projectID,
		edge.ID,
		edge.Source,
		stringToNull(edge.SourceHandle),
		edge.Target,
		stringToNull(edge.TargetHandle),
		ord,
	}
}
