package roadmapservice_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/starford/roadmapper/internal/apperr"
	"github.com/starford/roadmapper/internal/generator"
	"github.com/starford/roadmapper/internal/index"
	"github.com/starford/roadmapper/internal/models"
	"github.com/starford/roadmapper/internal/parser"
	"github.com/starford/roadmapper/internal/roadmapservice"
	"github.com/starford/roadmapper/internal/testutil"
)

type recorder struct {
	mu      sync.Mutex
	changes []index.Change
}

func (r *recorder) record(c index.Change) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.changes = append(r.changes, c)
}

func (r *recorder) kinds() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.changes))
	for i, c := range r.changes {
		out[i] = c.Kind
	}
	return out
}

func TestGenerate_CachesByTopic(t *testing.T) {
	gen := &testutil.CountingGenerator{Text: testutil.GoRoadmap}
	rec := &recorder{}
	svc, _, _ := testutil.TestService(t,
		roadmapservice.WithGenerator(gen),
		roadmapservice.WithChangeCallback(rec.record))
	ctx := context.Background()

	first, created, err := svc.Generate(ctx, "  Go ", false)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if !created {
		t.Error("first call should generate")
	}
	if first.Topic != "Go" || first.Source != models.SourceGenerated {
		t.Errorf("roadmap = %+v", first.Roadmap)
	}
	if first.Tree.Root.Name != "Go" || len(first.Tree.Root.Children) != 2 {
		t.Errorf("tree root = %+v", first.Tree.Root)
	}
	if first.NodeCount != 6 || first.Stats.References != 3 {
		t.Errorf("stats = %+v, node_count = %d", first.Stats, first.NodeCount)
	}

	second, created, err := svc.Generate(ctx, "go", false)
	if err != nil {
		t.Fatalf("Generate cached: %v", err)
	}
	if created || second.ID != first.ID || gen.Calls != 1 {
		t.Errorf("expected cached result: created=%v id=%s calls=%d", created, second.ID, gen.Calls)
	}

	third, created, err := svc.Generate(ctx, "Go", true)
	if err != nil {
		t.Fatalf("Generate refresh: %v", err)
	}
	if !created || third.ID != first.ID || gen.Calls != 2 {
		t.Errorf("refresh should regenerate in place: created=%v id=%s calls=%d", created, third.ID, gen.Calls)
	}
	if !third.CreatedAt.Equal(first.CreatedAt) {
		t.Errorf("created_at changed on refresh")
	}

	if got := strings.Join(rec.kinds(), ","); got != "created,updated" {
		t.Errorf("changes = %s", got)
	}
}

func TestGenerate_Errors(t *testing.T) {
	ctx := context.Background()

	svc, _, _ := testutil.TestService(t)
	if _, _, err := svc.Generate(ctx, " ", false); !errors.Is(err, apperr.ErrInvalidInput) {
		t.Errorf("blank topic err = %v", err)
	}
	if _, _, err := svc.Generate(ctx, "Go", false); !errors.Is(err, apperr.ErrGeneration) {
		t.Errorf("no generator err = %v", err)
	}

	failing := generator.Func(func(context.Context, string) (string, error) {
		return "", errors.New("upstream: boom")
	})
	svc, _, _ = testutil.TestService(t, roadmapservice.WithGenerator(failing))
	if _, _, err := svc.Generate(ctx, "Go", false); err == nil || !strings.Contains(err.Error(), "boom") {
		t.Errorf("failing generator err = %v", err)
	}

	svc, _, _ = testutil.TestService(t, roadmapservice.WithGenerator(generator.Func(func(context.Context, string) (string, error) {
		return "  \n", nil
	})))
	if _, _, err := svc.Generate(ctx, "Go", false); !errors.Is(err, apperr.ErrGeneration) {
		t.Errorf("empty text err = %v", err)
	}
}

func TestCreateGetOutline(t *testing.T) {
	svc, _, _ := testutil.TestService(t)
	ctx := context.Background()

	d, err := svc.Create(ctx, "Rust", "| Ownership\n||   Borrowing ->Ownership")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if d.Source != models.SourceManual || d.Checksum == "" {
		t.Errorf("roadmap = %+v", d.Roadmap)
	}

	got, err := svc.Get(ctx, d.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Tree.Root.Children[0].Children[0].Name != "Borrowing" {
		t.Errorf("tree = %+v", got.Tree.Root)
	}

	outline, err := svc.Outline(ctx, d.ID)
	if err != nil {
		t.Fatalf("Outline: %v", err)
	}
	if outline != "| Ownership\n|| Borrowing -> Ownership\n" {
		t.Errorf("outline = %q", outline)
	}

	if _, err := svc.Get(ctx, "missing"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("Get missing err = %v", err)
	}
	if _, err := svc.Create(ctx, "", "| A"); !errors.Is(err, apperr.ErrInvalidInput) {
		t.Errorf("Create blank topic err = %v", err)
	}
}

func TestParse_MatchMode(t *testing.T) {
	text := "| Topic A\n|| Subtopic A1\n|| Subtopic A2 -> A1"

	svc, _, _ := testutil.TestService(t)
	res := svc.Parse(context.Background(), "Root", text)
	if res.Stats.References != 1 {
		t.Errorf("suffix mode references = %d, want 1", res.Stats.References)
	}

	svc, _, _ = testutil.TestService(t, roadmapservice.WithMatchMode(parser.MatchExact))
	res = svc.Parse(context.Background(), "Root", text)
	if res.Stats.References != 0 || len(res.Tree.Diagnostics) != 1 {
		t.Errorf("exact mode: stats = %+v, diagnostics = %v", res.Stats, res.Tree.Diagnostics)
	}
}

func TestList(t *testing.T) {
	svc, _, _ := testutil.TestService(t)
	ctx := context.Background()
	for _, topic := range []string{"a", "b", "c"} {
		if _, err := svc.Create(ctx, topic, "| x"); err != nil {
			t.Fatal(err)
		}
	}
	items, total, err := svc.List(ctx, 2, 0)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if total != 3 || len(items) != 2 {
		t.Errorf("total = %d, items = %d", total, len(items))
	}
	if items[0].NodeCount != 1 {
		t.Errorf("item = %+v", items[0])
	}
}

func TestExportImportDelete(t *testing.T) {
	rec := &recorder{}
	svc, _, libDir := testutil.TestService(t, roadmapservice.WithChangeCallback(rec.record))
	ctx := context.Background()

	d, err := svc.Create(ctx, "Go Concurrency", testutil.GoRoadmap)
	if err != nil {
		t.Fatal(err)
	}
	path, err := svc.Export(ctx, d.ID)
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	if path != "go-concurrency.txt" {
		t.Errorf("path = %q", path)
	}
	data, err := os.ReadFile(filepath.Join(libDir, path))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(string(data), "# Go Concurrency\n| Basics") {
		t.Errorf("file = %q", data)
	}
	if _, err := svc.Export(ctx, d.ID); !errors.Is(err, apperr.ErrAlreadyExists) {
		t.Errorf("second export err = %v", err)
	}

	lib, err := svc.Get(ctx, index.LibraryID(path))
	if err != nil {
		t.Fatalf("Get library roadmap: %v", err)
	}
	if lib.Source != models.SourceLibrary || lib.Topic != "Go Concurrency" || lib.NodeCount != d.NodeCount {
		t.Errorf("library roadmap = %+v", lib.Roadmap)
	}
	if p, _ := svc.Export(ctx, lib.ID); p != path {
		t.Errorf("export of library roadmap = %q", p)
	}

	imported, err := svc.Import(ctx, "Python", "| Syntax", "")
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	if imported.Path != "python.txt" {
		t.Errorf("imported path = %q", imported.Path)
	}

	if err := svc.Delete(ctx, imported.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := os.Stat(filepath.Join(libDir, "python.txt")); !os.IsNotExist(err) {
		t.Error("library file should be removed")
	}
	if err := svc.Delete(ctx, imported.ID); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("second delete err = %v", err)
	}

	want := "created,created,created,deleted"
	if got := strings.Join(rec.kinds(), ","); got != want {
		t.Errorf("changes = %s, want %s", got, want)
	}
}

func TestUpload(t *testing.T) {
	svc, _, _ := testutil.TestService(t)
	ctx := context.Background()

	d, err := svc.Upload(ctx, "notes/web", []byte("# Web\n| HTML\n|| CSS"))
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}
	if d.Path != "notes/web.txt" || d.Topic != "Web" || d.NodeCount != 2 {
		t.Errorf("roadmap = %+v", d.Roadmap)
	}

	data, err := svc.ReadLibraryFile("notes/web.txt")
	if err != nil || !strings.Contains(string(data), "|| CSS") {
		t.Errorf("ReadLibraryFile = %q, %v", data, err)
	}
	if _, err := svc.ReadLibraryFile("nope.txt"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("missing file err = %v", err)
	}

	for _, bad := range []string{"../escape.txt", ".txt", ".roadmapper-tmp-x.txt"} {
		if _, err := svc.Upload(ctx, bad, []byte("| x")); !errors.Is(err, apperr.ErrInvalidInput) {
			t.Errorf("Upload(%q) err = %v", bad, err)
		}
	}
}

func TestSearch(t *testing.T) {
	svc, _, _ := testutil.TestService(t)
	ctx := context.Background()
	if _, err := svc.Create(ctx, "Databases", "| Indexes\n|| B-trees"); err != nil {
		t.Fatal(err)
	}
	results, err := svc.Search(ctx, "Indexes", 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 1 || results[0].Topic != "Databases" {
		t.Errorf("results = %+v", results)
	}
	if _, err := svc.Search(ctx, "  ", 10); !errors.Is(err, apperr.ErrInvalidInput) {
		t.Errorf("blank query err = %v", err)
	}
}

func TestIndexFile_ChangeKinds(t *testing.T) {
	rec := &recorder{}
	svc, db, _ := testutil.TestService(t, roadmapservice.WithChangeCallback(rec.record))

	if _, err := svc.IndexFile("a.txt", []byte("| one")); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.IndexFile("a.txt", []byte("| one\n| two")); err != nil {
		t.Fatal(err)
	}
	if got := strings.Join(rec.kinds(), ","); got != "created,updated" {
		t.Errorf("changes = %s", got)
	}
	r, err := db.GetRoadmap(index.LibraryID("a.txt"))
	if err != nil || r.NodeCount != 2 || r.Topic != "a" {
		t.Errorf("roadmap = %+v, %v", r, err)
	}
}

func TestIndexFile_UnchangedContentEmitsNothing(t *testing.T) {
	rec := &recorder{}
	svc, _, _ := testutil.TestService(t, roadmapservice.WithChangeCallback(rec.record))

	for range 2 {
		if _, err := svc.IndexFile("same.txt", []byte("| one")); err != nil {
			t.Fatal(err)
		}
	}
	if got := strings.Join(rec.kinds(), ","); got != "created" {
		t.Errorf("changes = %s, want created", got)
	}
}

func TestUpload_ReturnsStoredRoadmap(t *testing.T) {
	svc, _, _ := testutil.TestService(t)

	d, err := svc.Upload(context.Background(), "go", []byte("# Go\n"+testutil.GoRoadmap))
	if err != nil {
		t.Fatal(err)
	}
	if d.CreatedAt.IsZero() || d.UpdatedAt.IsZero() {
		t.Errorf("timestamps not filled: %+v", d.Roadmap)
	}
	if d.Path != "go.txt" || d.Stats.Nodes != 6 || d.Tree == nil {
		t.Errorf("detail = %+v", d)
	}
}
