package sqlite

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"topolab/internal/domain"
	"topolab/internal/repository"
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

// testDocument builds a small document with optional attributes set
func testDocument() *domain.Document {
	doc := domain.NewDocument()

	router := domain.Component{ID: "router-1", Type: domain.ComponentTypeRouter, Position: domain.Pt(400, 300), DisplayName: "Core Router"}
	sw := domain.Component{ID: "switch-1", Type: domain.ComponentTypeSwitch, Position: domain.Pt(600, 300), DisplayName: "Switch"}
	room := domain.Component{
		ID:          "room-1",
		Type:        domain.ComponentTypeAreaRoom,
		Position:    domain.Pt(500, 500),
		DisplayName: "Lab",
		Color:       &domain.RGB{R: 10, G: 20, B: 30},
		AreaSize:    &domain.Size{Width: 200, Height: 120},
	}
	doc.AddComponent(router)
	doc.AddComponent(sw)
	doc.AddComponent(room)

	side := domain.SideRight
	control := domain.Pt(500, 250)
	doc.AddConnection(domain.Connection{
		ID:        "conn-1",
		FromID:    router.ID,
		ToID:      sw.ID,
		Kind:      domain.ConnectionFiber,
		FromPoint: &side,
		Control:   &control,
		Curve:     domain.CurveBezier,
	})
	return doc
}

// ============================================================================
// Save / Load
// ============================================================================

func TestSaveLoadRoundTrip(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	doc := testDocument()

	changed, err := repo.Save(ctx, "lab", doc)
	assertNoError(t, err)
	assertEqual(t, true, changed)

	loaded, err := repo.Load(ctx, "lab")
	assertNoError(t, err)
	assertEqual(t, 0, len(loaded.Skipped))
	assertEqual(t, doc, loaded.Document)
}

func TestSaveUnchangedIsNoop(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	_, err := repo.Save(ctx, "lab", testDocument())
	assertNoError(t, err)

	changed, err := repo.Save(ctx, "lab", testDocument())
	assertNoError(t, err)
	assertEqual(t, false, changed)

	doc := testDocument()
	doc.Components[0].DisplayName = "Edge Router"
	changed, err = repo.Save(ctx, "lab", doc)
	assertNoError(t, err)
	assertEqual(t, true, changed)

	loaded, err := repo.Load(ctx, "lab")
	assertNoError(t, err)
	assertEqual(t, "Edge Router", loaded.Document.Components[0].DisplayName)
}

func TestSaveReplacesRecords(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	_, err := repo.Save(ctx, "lab", testDocument())
	assertNoError(t, err)

	smaller := domain.NewDocument()
	smaller.AddComponent(domain.Component{ID: "pc-1", Type: domain.ComponentTypePC, Position: domain.Pt(300, 300), DisplayName: "PC"})
	_, err = repo.Save(ctx, "lab", smaller)
	assertNoError(t, err)

	loaded, err := repo.Load(ctx, "lab")
	assertNoError(t, err)
	assertEqual(t, smaller, loaded.Document)
}

func TestSaveRejectsBadInput(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	if _, err := repo.Save(ctx, "", testDocument()); err == nil {
		t.Fatal("expected error for empty name")
	}
	if _, err := repo.Save(ctx, "lab", nil); err == nil {
		t.Fatal("expected error for nil document")
	}
}

func TestLoadSkipsCorruptRows(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	_, err := repo.Save(ctx, "lab", testDocument())
	assertNoError(t, err)

	_, err = repo.db.Exec(`UPDATE topology_components SET data = '{"id":"switch-1","type":"toaster"}' WHERE id = 'switch-1'`)
	assertNoError(t, err)
	_, err = repo.db.Exec(`UPDATE topology_connections SET data = 'not json' WHERE id = 'conn-1'`)
	assertNoError(t, err)

	loaded, err := repo.Load(ctx, "lab")
	assertNoError(t, err)

	assertEqual(t, 2, len(loaded.Document.Components))
	assertEqual(t, "router-1", loaded.Document.Components[0].ID)
	assertEqual(t, "room-1", loaded.Document.Components[1].ID)
	assertEqual(t, 0, len(loaded.Document.Connections))

	if len(loaded.Skipped) != 2 {
		t.Fatalf("expected 2 skipped records, got %d", len(loaded.Skipped))
	}
	assertEqual(t, domain.RecordComponent, loaded.Skipped[0].Kind)
	assertEqual(t, 1, loaded.Skipped[0].Index)
	assertEqual(t, "switch-1", loaded.Skipped[0].ID)
	assertEqual(t, domain.RecordConnection, loaded.Skipped[1].Kind)
	assertEqual(t, "conn-1", loaded.Skipped[1].ID)
}

func TestLoadNotFound(t *testing.T) {
	repo := newTestRepo(t)

	_, err := repo.Load(context.Background(), "missing")
	if !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

// ============================================================================
// List / Delete
// ============================================================================

func TestList(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	summaries, err := repo.List(ctx)
	assertNoError(t, err)
	assertEqual(t, 0, len(summaries))

	_, err = repo.Save(ctx, "zeta", domain.NewDocument())
	assertNoError(t, err)
	_, err = repo.Save(ctx, "alpha", testDocument())
	assertNoError(t, err)

	summaries, err = repo.List(ctx)
	assertNoError(t, err)
	if len(summaries) != 2 {
		t.Fatalf("expected 2 summaries, got %d", len(summaries))
	}
	assertEqual(t, "alpha", summaries[0].Name)
	assertEqual(t, 3, summaries[0].Components)
	assertEqual(t, 1, summaries[0].Connections)
	assertEqual(t, "zeta", summaries[1].Name)
	assertEqual(t, 0, summaries[1].Components)

	digest, err := documentDigest(testDocument())
	assertNoError(t, err)
	assertEqual(t, digest, summaries[0].Digest)
	if summaries[0].UpdatedAt.IsZero() {
		t.Fatal("expected updated_at to be set")
	}
}

func TestDelete(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	_, err := repo.Save(ctx, "lab", testDocument())
	assertNoError(t, err)
	assertNoError(t, repo.Delete(ctx, "lab"))

	_, err = repo.Load(ctx, "lab")
	if !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}

	var rows int
	assertNoError(t, repo.db.QueryRow(`SELECT COUNT(*) FROM topology_components`).Scan(&rows))
	assertEqual(t, 0, rows)

	err = repo.Delete(ctx, "lab")
	if !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected ErrNotFound deleting twice, got %v", err)
	}
}

func TestDocumentDigestStable(t *testing.T) {
	a, err := documentDigest(testDocument())
	assertNoError(t, err)
	b, err := documentDigest(testDocument())
	assertNoError(t, err)
	assertEqual(t, a, b)
	assertEqual(t, 64, len(a))

	doc := testDocument()
	doc.Components[0].Position = domain.Pt(401, 300)
	c, err := documentDigest(doc)
	assertNoError(t, err)
	if a == c {
		t.Fatal("expected digest to change with content")
	}
}
