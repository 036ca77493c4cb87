package mcpserver

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/starford/roadmapper/internal/generator"
	"github.com/starford/roadmapper/internal/roadmapservice"
	"github.com/starford/roadmapper/internal/testutil"
)

func testServer(t *testing.T) (*Server, string) {
	t.Helper()
	svc, _, libDir := testutil.TestService(t,
		roadmapservice.WithGenerator(generator.Static{Text: testutil.GoRoadmap}))
	return New(svc, "test"), libDir
}

func callTool(t *testing.T, srv *Server, name string, args map[string]any) *mcp.CallToolResult {
	t.Helper()
	ctx := context.Background()
	req := mcp.CallToolRequest{}
	req.Method = "tools/call"
	req.Params.Name = name
	req.Params.Arguments = args

	var result *mcp.CallToolResult
	var err error

	switch name {
	case "generate_roadmap":
		result, err = srv.generateRoadmap(ctx, req)
	case "parse_roadmap":
		result, err = srv.parseRoadmap(ctx, req)
	case "get_roadmap":
		result, err = srv.getRoadmap(ctx, req)
	case "list_roadmaps":
		result, err = srv.listRoadmaps(ctx, req)
	case "search_roadmaps":
		result, err = srv.searchRoadmaps(ctx, req)
	case "import_roadmap":
		result, err = srv.importRoadmap(ctx, req)
	case "get_roadmap_format":
		result, err = srv.getRoadmapFormat(ctx, req)
	default:
		t.Fatalf("unknown tool: %s", name)
	}

	if err != nil {
		t.Fatalf("tool %s error: %v", name, err)
	}
	return result
}

func resultText(r *mcp.CallToolResult) string {
	if len(r.Content) > 0 {
		if tc, ok := r.Content[0].(mcp.TextContent); ok {
			return tc.Text
		}
	}
	return ""
}

func decode[T any](t *testing.T, r *mcp.CallToolResult) T {
	t.Helper()
	if r.IsError {
		t.Fatalf("tool error: %s", resultText(r))
	}
	var v T
	if err := json.Unmarshal([]byte(resultText(r)), &v); err != nil {
		t.Fatalf("decode %q: %v", resultText(r), err)
	}
	return v
}

func TestGenerateAndGetRoadmap(t *testing.T) {
	srv, _ := testServer(t)

	d := decode[roadmapservice.Detail](t, callTool(t, srv, "generate_roadmap", map[string]any{"topic": "Go"}))
	if d.Topic != "Go" || d.Stats.Nodes != 6 {
		t.Errorf("generated = %+v", d.Roadmap)
	}

	again := decode[roadmapservice.Detail](t, callTool(t, srv, "generate_roadmap", map[string]any{"topic": "Go", "refresh": true}))
	if again.ID != d.ID {
		t.Errorf("refresh id = %s, want %s", again.ID, d.ID)
	}

	got := decode[roadmapservice.Detail](t, callTool(t, srv, "get_roadmap", map[string]any{"id": d.ID}))
	if got.Tree == nil || got.Tree.Root.Name != "Go" {
		t.Errorf("tree = %+v", got.Tree)
	}
}

func TestGenerateRoadmap_MissingTopic(t *testing.T) {
	srv, _ := testServer(t)
	if r := callTool(t, srv, "generate_roadmap", map[string]any{}); !r.IsError {
		t.Error("expected error for missing topic")
	}
}

func TestParseRoadmap(t *testing.T) {
	srv, _ := testServer(t)
	res := decode[roadmapservice.ParseResult](t, callTool(t, srv, "parse_roadmap", map[string]any{
		"topic": "Root",
		"text":  "| A\n||| orphan\n| B -> A",
	}))
	if res.Stats.Nodes != 2 || res.Stats.Orphans != 1 || res.Stats.References != 1 {
		t.Errorf("stats = %+v", res.Stats)
	}
	if len(res.Tree.Diagnostics) != 1 {
		t.Errorf("diagnostics = %v", res.Tree.Diagnostics)
	}
}

func TestParseRoadmap_SameLineReference(t *testing.T) {
	srv, _ := testServer(t)
	if !strings.Contains(FormatContract, "on the same line") {
		t.Errorf("format contract does not mention same-line references")
	}
	res := decode[roadmapservice.ParseResult](t, callTool(t, srv, "parse_roadmap", map[string]any{
		"topic": "Root",
		"text":  "| A -> A",
	}))
	if res.Stats.Nodes != 1 || res.Stats.References != 1 || len(res.Tree.Diagnostics) != 0 {
		t.Errorf("stats = %+v, diagnostics = %v", res.Stats, res.Tree.Diagnostics)
	}
}

func TestGetRoadmapMissing(t *testing.T) {
	srv, _ := testServer(t)
	r := callTool(t, srv, "get_roadmap", map[string]any{"id": "nope"})
	if !r.IsError {
		t.Error("expected error for missing roadmap")
	}
}

func TestImportListSearch(t *testing.T) {
	srv, libDir := testServer(t)

	d := decode[roadmapservice.Detail](t, callTool(t, srv, "import_roadmap", map[string]any{
		"topic":    "Kubernetes",
		"text":     "| Pods\n|| Containers",
		"filename": "k8s.txt",
	}))
	if d.Path != "k8s.txt" {
		t.Errorf("path = %q", d.Path)
	}
	data, err := os.ReadFile(filepath.Join(libDir, "k8s.txt"))
	if err != nil || !strings.HasPrefix(string(data), "# Kubernetes\n") {
		t.Errorf("library file = %q, %v", data, err)
	}

	if r := callTool(t, srv, "import_roadmap", map[string]any{
		"topic": "Kubernetes", "text": "| x", "filename": "k8s.txt",
	}); !r.IsError {
		t.Error("expected error importing over an existing file")
	}

	items := decode[[]roadmapservice.ListItem](t, callTool(t, srv, "list_roadmaps", map[string]any{}))
	if len(items) != 1 || items[0].ID != d.ID {
		t.Errorf("items = %+v", items)
	}

	r := callTool(t, srv, "search_roadmaps", map[string]any{"query": "Containers"})
	if !strings.Contains(resultText(r), "Kubernetes") {
		t.Errorf("search = %q", resultText(r))
	}
}

func TestGetRoadmapFormat(t *testing.T) {
	srv, _ := testServer(t)
	text := resultText(callTool(t, srv, "get_roadmap_format", nil))
	if text != FormatContract || !strings.Contains(text, "->") {
		t.Errorf("format = %q", text)
	}

	contents, err := srv.readFormatResource(context.Background(), mcp.ReadResourceRequest{})
	if err != nil || len(contents) != 1 {
		t.Fatalf("resource = %v, %v", contents, err)
	}
	if tc, ok := contents[0].(mcp.TextResourceContents); !ok || tc.URI != formatResourceURI {
		t.Errorf("resource contents = %#v", contents[0])
	}
}
