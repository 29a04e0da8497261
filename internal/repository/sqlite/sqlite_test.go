package sqlite

import (
	"context"
	"database/sql"
	"reflect"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"flowcanvas/internal/domain"
)

// ============================================================================
// Test Helpers
// ============================================================================

// newTestRepo creates an in-memory SQLite repository for testing
func newTestRepo(t *testing.T) *Repository {
	t.Helper()
	repo, err := New(":memory:")
	if err != nil {
		t.Fatalf("failed to create test repository: %v", err)
	}
	t.Cleanup(func() {
		repo.Close()
	})
	return repo
}

// assertNoError fails the test if err is not nil
func assertNoError(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

// assertEqual fails the test if expected != actual
func assertEqual(t *testing.T, expected, actual interface{}) {
	t.Helper()
	if !reflect.DeepEqual(expected, actual) {
		t.Fatalf("expected %v, got %v", expected, actual)
	}
}

func testProject(name string) *domain.Project {
	p := domain.NewProject(name)
	p.CreatedAt = time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	p.UpdatedAt = p.CreatedAt

	prompt := domain.NewNode(domain.NodeTypeTextInput, 0, 0)
	prompt.ID = "prompt"
	prompt.Data.Value = "A cat"
	img := domain.NewNode(domain.NodeTypeImageGen, 400, 0)
	img.ID = "img"
	img.Data.OutputResult = "data:image/png;base64,AAAA"
	img.Data.OutputList = []string{"data:image/png;base64,AAAA"}
	img.Data.Status = domain.NodeStatusDone

	p.Nodes = []*domain.Node{prompt, img}
	p.Edges = []*domain.Edge{domain.NewEdge("prompt", "output", "img", "prompt")}
	p.Viewport = domain.Viewport{X: 10, Y: -5, Zoom: 0.75}
	return p
}

// ============================================================================
// Helper Function Tests
// ============================================================================

func TestNullToString(t *testing.T) {
	tests := []struct {
		name     string
		input    sql.NullString
		expected string
	}{
		{"valid", sql.NullString{String: "x", Valid: true}, "x"},
		{"null", sql.NullString{}, ""},
		{"valid empty", sql.NullString{String: "", Valid: true}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assertEqual(t, tt.expected, nullToString(tt.input))
		})
	}
}

func TestStringToNull(t *testing.T) {
	assertEqual(t, sql.NullString{}, stringToNull(""))
	assertEqual(t, sql.NullString{String: "g1", Valid: true}, stringToNull("g1"))
}

func TestNodeRowToDomain(t *testing.T) {
	t.Run("defaults status", func(t *testing.T) {
		row := nodeRow{ID: "a", Type: "text_input", DataJSON: sql.NullString{String: `{"label":"Prompt"}`, Valid: true}}
		node, err := row.toDomain()
		assertNoError(t, err)
		assertEqual(t, domain.NodeStatusIdle, node.Data.Status)
		assertEqual(t, "Prompt", node.Data.Label)
	})

	t.Run("bad json", func(t *testing.T) {
		row := nodeRow{ID: "a", DataJSON: sql.NullString{String: `{`, Valid: true}}
		if _, err := row.toDomain(); err == nil {
			t.Fatal("expected unmarshal error")
		}
	})
}

// ============================================================================
// Repository Tests
// ============================================================================

func TestSaveAndGetProject(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	want := testProject("Rainy cat")
	assertNoError(t, repo.SaveProject(ctx, want))

	got, err := repo.GetProject(ctx, want.ID)
	assertNoError(t, err)
	if got == nil {
		t.Fatal("expected project")
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("project mismatch (-want +got):\n%s", diff)
	}
}

func TestGetProjectMissing(t *testing.T) {
	repo := newTestRepo(t)

	got, err := repo.GetProject(context.Background(), "nope")
	assertNoError(t, err)
	if got != nil {
		t.Errorf("expected nil project, got %+v", got)
	}
}

func TestSaveProjectReplacesGraph(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	p := testProject("Story")
	assertNoError(t, repo.SaveProject(ctx, p))

	// Drop the edge and reorder the nodes
	p.Edges = nil
	p.Nodes = []*domain.Node{p.Nodes[1], p.Nodes[0]}
	p.Name = "Story v2"
	assertNoError(t, repo.SaveProject(ctx, p))

	got, err := repo.GetProject(ctx, p.ID)
	assertNoError(t, err)
	assertEqual(t, "Story v2", got.Name)
	assertEqual(t, 0, len(got.Edges))
	assertEqual(t, []string{"img", "prompt"}, []string{got.Nodes[0].ID, got.Nodes[1].ID})
}

func TestSaveProjectRequiresID(t *testing.T) {
	repo := newTestRepo(t)
	if err := repo.SaveProject(context.Background(), &domain.Project{Name: "x"}); err == nil {
		t.Fatal("expected error for empty id")
	}
}

func TestListProjects(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	older := testProject("older")
	newer := testProject("newer")
	newer.Nodes = newer.Nodes[:1]
	newer.Edges = nil
	newer.UpdatedAt = older.UpdatedAt.Add(time.Hour)
	assertNoError(t, repo.SaveProject(ctx, older))
	assertNoError(t, repo.SaveProject(ctx, newer))

	list, err := repo.ListProjects(ctx)
	assertNoError(t, err)
	if len(list) != 2 {
		t.Fatalf("expected 2 projects, got %d", len(list))
	}
	assertEqual(t, "newer", list[0].Name)
	assertEqual(t, 1, list[0].NodeCount)
	assertEqual(t, 2, list[1].NodeCount)
}

func TestDeleteProjectCascades(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	p := testProject("doomed")
	assertNoError(t, repo.SaveProject(ctx, p))
	assertNoError(t, repo.DeleteProject(ctx, p.ID))

	got, err := repo.GetProject(ctx, p.ID)
	assertNoError(t, err)
	if got != nil {
		t.Fatal("expected project to be gone")
	}

	var count int
	assertNoError(t, repo.db.QueryRow(`SELECT COUNT(*) FROM nodes`).Scan(&count))
	assertEqual(t, 0, count)
	assertNoError(t, repo.db.QueryRow(`SELECT COUNT(*) FROM edges`).Scan(&count))
	assertEqual(t, 0, count)
}

func TestSavePositions(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	p := testProject("layout")
	assertNoError(t, repo.SaveProject(ctx, p))
	assertNoError(t, repo.SavePositions(ctx, p.ID, map[string]domain.Point{
		"img":     {X: 512, Y: 64},
		"missing": {X: 1, Y: 1},
	}))

	got, err := repo.GetProject(ctx, p.ID)
	assertNoError(t, err)
	assertEqual(t, domain.Point{X: 0, Y: 0}, got.Nodes[0].Position())
	assertEqual(t, domain.Point{X: 512, Y: 64}, got.Nodes[1].Position())
	if !got.UpdatedAt.After(p.UpdatedAt) {
		t.Errorf("expected updatedAt to advance, got %v", got.UpdatedAt)
	}
}

func TestSaveViewport(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	p := testProject("camera")
	assertNoError(t, repo.SaveProject(ctx, p))
	assertNoError(t, repo.SaveViewport(ctx, p.ID, domain.Viewport{X: -100, Y: 40, Zoom: 2}))

	got, err := repo.GetProject(ctx, p.ID)
	assertNoError(t, err)
	assertEqual(t, domain.Viewport{X: -100, Y: 40, Zoom: 2}, got.Viewport)
}
