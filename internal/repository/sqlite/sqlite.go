package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"flowcanvas/internal/domain"

	_ "modernc.org/sqlite"
)

// Repository implements repository.Repository using SQLite
type Repository struct {
	db *sql.DB
}

// New creates a new SQLite repository. ":memory:" opens a private
// in-memory database on a single connection.
func New(dbPath string) (*Repository, error) {
	pragmas := []string{"foreign_keys(1)", "busy_timeout(5000)"}
	memory := dbPath == ":memory:" || strings.Contains(dbPath, "mode=memory")
	if !memory {
		pragmas = append(pragmas, "journal_mode(WAL)")
	}

	sep := "?"
	if strings.Contains(dbPath, "?") {
		sep = "&"
	}
	dsn := dbPath + sep + "_pragma=" + strings.Join(pragmas, "&_pragma=")

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if memory {
		// Every pooled connection would see its own empty database
		db.SetMaxOpenConns(1)
	}

	repo := &Repository{db: db}
	if err := repo.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return repo, nil
}

func (r *Repository) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS projects (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		viewport_x REAL NOT NULL DEFAULT 0,
		viewport_y REAL NOT NULL DEFAULT 0,
		viewport_zoom REAL NOT NULL DEFAULT 1,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS nodes (
		project_id TEXT NOT NULL,
		id TEXT NOT NULL,
		type TEXT NOT NULL,
		x REAL NOT NULL,
		y REAL NOT NULL,
		parent_id TEXT,
		data JSON,
		ord INTEGER NOT NULL,
		PRIMARY KEY (project_id, id),
		FOREIGN KEY (project_id) REFERENCES projects(id) ON DELETE CASCADE
	);

	CREATE TABLE IF NOT EXISTS edges (
		project_id TEXT NOT NULL,
		id TEXT NOT NULL,
		source TEXT NOT NULL,
		source_handle TEXT,
		target TEXT NOT NULL,
		target_handle TEXT,
		ord INTEGER NOT NULL,
		PRIMARY KEY (project_id, id),
		FOREIGN KEY (project_id) REFERENCES projects(id) ON DELETE CASCADE
	);

	CREATE INDEX IF NOT EXISTS idx_nodes_project ON nodes(project_id, ord);
	CREATE INDEX IF NOT EXISTS idx_edges_project ON edges(project_id, ord);
	CREATE INDEX IF NOT EXISTS idx_projects_updated ON projects(updated_at);
	`

	_, err := r.db.Exec(schema)
	return err
}

// ListProjects returns every project, most recently updated first
func (r *Repository) ListProjects(ctx context.Context) ([]domain.ProjectSummary, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT p.id, p.name, p.updated_at,
			(SELECT COUNT(*) FROM nodes n WHERE n.project_id = p.id)
		FROM projects p
		ORDER BY p.updated_at DESC, p.id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query projects: %w", err)
	}
	defer rows.Close()

	summaries := make([]domain.ProjectSummary, 0)
	for rows.Next() {
		var s domain.ProjectSummary
		if err := rows.Scan(&s.ID, &s.Name, &s.UpdatedAt, &s.NodeCount); err != nil {
			return nil, fmt.Errorf("failed to scan project: %w", err)
		}
		summaries = append(summaries, s)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating projects: %w", err)
	}
	return summaries, nil
}

// GetProject loads a project with its nodes and edges in stored order
func (r *Repository) GetProject(ctx context.Context, id string) (*domain.Project, error) {
	var row projectRow
	err := r.db.QueryRowContext(ctx, `
		SELECT `+projectColumns+` FROM projects WHERE id = ?
	`, id).Scan(row.scanArgs()...)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query project: %w", err)
	}
	project := row.toDomain()

	// Load nodes
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+nodeColumns+` FROM nodes WHERE project_id = ? ORDER BY ord
	`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to query nodes: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var nr nodeRow
		if err := rows.Scan(nr.scanArgs()...); err != nil {
			return nil, fmt.Errorf("failed to scan node: %w", err)
		}
		node, err := nr.toDomain()
		if err != nil {
			return nil, fmt.Errorf("node %s: %w", nr.ID, err)
		}
		project.Nodes = append(project.Nodes, node)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating nodes: %w", err)
	}

	// Load edges
	edgeRows, err := r.db.QueryContext(ctx, `
		SELECT `+edgeColumns+` FROM edges WHERE project_id = ? ORDER BY ord
	`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to query edges: %w", err)
	}
	defer edgeRows.Close()

	for edgeRows.Next() {
		var er edgeRow
		if err := edgeRows.Scan(er.scanArgs()...); err != nil {
			return nil, fmt.Errorf("failed to scan edge: %w", err)
		}
		project.Edges = append(project.Edges, er.toDomain())
	}

	if err := edgeRows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating edges: %w", err)
	}

	return project, nil
}

// SaveProject upserts a project and replaces its nodes and edges
func (r *Repository) SaveProject(ctx context.Context, p *domain.Project) error {
	if p.ID == "" {
		return fmt.Errorf("project ID required")
	}
	now := time.Now().UTC()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	if p.UpdatedAt.IsZero() {
		p.UpdatedAt = now
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO projects (id, name, viewport_x, viewport_y, viewport_zoom, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			viewport_x = excluded.viewport_x,
			viewport_y = excluded.viewport_y,
			viewport_zoom = excluded.viewport_zoom,
			updated_at = excluded.updated_at
	`, p.ID, p.Name, p.Viewport.X, p.Viewport.Y, p.Viewport.Zoom, p.CreatedAt.UTC(), p.UpdatedAt.UTC()); err != nil {
		return fmt.Errorf("failed to upsert project: %w", err)
	}

	// Clear the existing graph
	if _, err := tx.ExecContext(ctx, `DELETE FROM edges WHERE project_id = ?`, p.ID); err != nil {
		return fmt.Errorf("failed to clear edges: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM nodes WHERE project_id = ?`, p.ID); err != nil {
		return fmt.Errorf("failed to clear nodes: %w", err)
	}

	// Insert nodes
	nodeStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO nodes (project_id, id, type, x, y, parent_id, data, ord)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare node statement: %w", err)
	}
	defer nodeStmt.Close()

	for i, node := range p.Nodes {
		args, err := nodeInsertArgs(p.ID, node, i)
		if err != nil {
			return fmt.Errorf("node %s: %w", node.ID, err)
		}
		if _, err := nodeStmt.ExecContext(ctx, args...); err != nil {
			return fmt.Errorf("failed to insert node %s: %w", node.ID, err)
		}
	}

	// Insert edges
	edgeStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO edges (project_id, id, source, source_handle, target, target_handle, ord)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare edge statement: %w", err)
	}
	defer edgeStmt.Close()

	for i, edge := range p.Edges {
		if _, err := edgeStmt.ExecContext(ctx, edgeInsertArgs(p.ID, edge, i)...); err != nil {
			return fmt.Errorf("failed to insert edge %s: %w", edge.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// DeleteProject removes a project with its nodes and edges
func (r *Repository) DeleteProject(ctx context.Context, id string) error {
	// Nodes and edges are deleted by CASCADE
	_, err := r.db.ExecContext(ctx, `DELETE FROM projects WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete project: %w", err)
	}
	return nil
}

// SavePositions updates the coordinates of several nodes of one project
func (r *Repository) SavePositions(ctx context.Context, projectID string, positions map[string]domain.Point) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		UPDATE nodes SET x = ?, y = ? WHERE project_id = ? AND id = ?
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for id, pos := range positions {
		if _, err := stmt.ExecContext(ctx, pos.X, pos.Y, projectID, id); err != nil {
			return fmt.Errorf("failed to update position for %s: %w", id, err)
		}
	}

	if err := touch(ctx, tx, projectID); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// SaveViewport stores the camera a project was last seen through
func (r *Repository) SaveViewport(ctx context.Context, projectID string, v domain.Viewport) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE projects SET viewport_x = ?, viewport_y = ?, viewport_zoom = ?, updated_at = ?
		WHERE id = ?
	`, v.X, v.Y, v.Zoom, time.Now().UTC(), projectID)
	if err != nil {
		return fmt.Errorf("failed to save viewport: %w", err)
	}
	return nil
}

func touch(ctx context.Context, tx *sql.Tx, projectID string) error {
	if _, err := tx.ExecContext(ctx, `UPDATE projects SET updated_at = ? WHERE id = ?`, time.Now().UTC(), projectID); err != nil {
		return fmt.Errorf("failed to touch project: %w", err)
	}
	return nil
}

// Close closes the database connection
func (r *Repository) Close() error {
	return r.db.Close()
}
