package forge

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/hazyhaar/deckforge/observability"
	"github.com/hazyhaar/deckforge/planner"
)

var testMCPImpl = &mcp.Implementation{Name: "forge-test", Version: "0.1.0"}

func mcpSession(t *testing.T, f *fixture) *mcp.ClientSession {
	t.Helper()
	srv := mcp.NewServer(testMCPImpl, nil)
	f.svc.RegisterMCP(srv)

	serverT, clientT := mcp.NewInMemoryTransports()
	ctx := context.Background()
	go func() { _ = srv.Run(ctx, serverT) }()

	client := mcp.NewClient(testMCPImpl, nil)
	session, err := client.Connect(ctx, clientT, nil)
	if err != nil {
		t.Fatalf("client connect: %v", err)
	}
	t.Cleanup(func() { session.Close() })
	return session
}

func callTool(t *testing.T, session *mcp.ClientSession, name string, args any) (string, bool) {
	t.Helper()
	result, err := session.CallTool(context.Background(), &mcp.CallToolParams{Name: name, Arguments: args})
	if err != nil {
		t.Fatalf("CallTool(%s): %v", name, err)
	}
	if len(result.Content) == 0 {
		t.Fatalf("%s: empty result content", name)
	}
	tc, ok := result.Content[0].(*mcp.TextContent)
	if !ok {
		t.Fatalf("%s: expected TextContent", name)
	}
	return tc.Text, result.IsError
}

func TestMCP_ListTools(t *testing.T) {
	session := mcpSession(t, newFixture(t))
	res, err := session.ListTools(context.Background(), nil)
	if err != nil {
		t.Fatal(err)
	}
	want := map[string]bool{
		"deck_analyze_template": true, "deck_generate": true, "deck_build": true,
		"deck_providers": true, "docpipe_extract": true, "docpipe_formats": true,
	}
	for _, tool := range res.Tools {
		delete(want, tool.Name)
	}
	for name := range want {
		t.Errorf("tool %s not registered", name)
	}
}

func TestMCP_Generate(t *testing.T) {
	f := newFixture(t)
	session := mcpSession(t, f)

	text, isErr := callTool(t, session, "deck_generate", map[string]any{
		"text":            sampleText,
		"template_base64": base64.StdEncoding.EncodeToString(templateZip(t)),
	})
	if isErr {
		t.Fatalf("tool error: %s", text)
	}
	var res packageResult
	if err := json.Unmarshal([]byte(text), &res); err != nil {
		t.Fatal(err)
	}
	if res.Filename != "Q1-Report.pptx" || res.SlideCount != 4 || !strings.HasPrefix(res.MimeType, "application/vnd.openxmlformats") {
		t.Errorf("result = %+v", res)
	}
	data, err := base64.StdEncoding.DecodeString(res.ContentBase64)
	if err != nil {
		t.Fatal(err)
	}
	openPackage(t, data)

	runs := f.runs(t)
	if len(runs) != 1 || runs[0].Transport != "mcp" || runs[0].RequestID == "" || runs[0].RunID != res.RunID {
		t.Errorf("runs = %+v", runs)
	}
}

func TestMCP_GenerateRequestKeyOverridesEnv(t *testing.T) {
	var auth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		json.NewEncoder(w).Encode(map[string]any{"error": map[string]any{"message": "bad key"}})
	}))
	defer srv.Close()

	f := newFixture(t, func(c *Config) {
		c.Providers[string(planner.OpenAI)] = ProviderConfig{BaseURL: srv.URL + "/v1", APIKey: "sk-env"}
	})
	session := mcpSession(t, f)

	text, isErr := callTool(t, session, "deck_generate", map[string]any{
		"text":     "hi",
		"provider": "openai",
		"api_key":  "sk-caller",
	})
	if auth != "Bearer sk-caller" {
		t.Errorf("Authorization = %q", auth)
	}
	if !isErr {
		t.Fatalf("expected tool error, got %s", text)
	}
	var body map[string]string
	if err := json.Unmarshal([]byte(text), &body); err != nil {
		t.Fatalf("error body is not JSON: %s", text)
	}
	if !strings.Contains(body["error"], "401") || strings.Contains(text, "sk-caller") {
		t.Errorf("error body = %s", text)
	}
}

func TestMCP_AnalyzeTemplate(t *testing.T) {
	session := mcpSession(t, newFixture(t))

	text, isErr := callTool(t, session, "deck_analyze_template", map[string]any{
		"template_base64": base64.StdEncoding.EncodeToString(templateZip(t)),
	})
	if isErr {
		t.Fatalf("tool error: %s", text)
	}
	if !strings.Contains(text, `"primary":"#0A2540"`) {
		t.Errorf("analysis = %s", text)
	}

	for name, args := range map[string]map[string]any{
		"missing": {},
		"bad b64": {"template_base64": "%%%"},
		"not zip": {"template_base64": base64.StdEncoding.EncodeToString([]byte("hello"))},
	} {
		if text, isErr := callTool(t, session, "deck_analyze_template", args); !isErr {
			t.Errorf("%s: expected tool error, got %s", name, text)
		}
	}
}

func TestMCP_Build(t *testing.T) {
	f := newFixture(t)
	session := mcpSession(t, f)

	text, isErr := callTool(t, session, "deck_build", map[string]any{
		"structure": map[string]any{
			"totalSlides": 1,
			"slides":      []map[string]any{{"slideNumber": 1, "type": "content", "title": "Only", "content": "Plain body"}},
		},
	})
	if isErr {
		t.Fatalf("tool error: %s", text)
	}
	var res packageResult
	if err := json.Unmarshal([]byte(text), &res); err != nil {
		t.Fatal(err)
	}
	if res.SlideCount != 1 || res.Filename != "Only.pptx" {
		t.Errorf("result = %+v", res)
	}

	if text, isErr := callTool(t, session, "deck_build", map[string]any{"structure": map[string]any{"slides": []any{}}}); !isErr {
		t.Errorf("empty structure: expected tool error, got %s", text)
	}

	runs := f.runs(t)
	if len(runs) != 2 || runs[0].Kind != observability.KindBuild {
		t.Errorf("runs = %+v", runs)
	}
}

func TestMCP_Providers(t *testing.T) {
	session := mcpSession(t, newFixture(t))
	text, isErr := callTool(t, session, "deck_providers", map[string]any{})
	if isErr {
		t.Fatalf("tool error: %s", text)
	}
	for _, id := range []string{"openai", "anthropic", "gemini", "ollama", "outline"} {
		if !strings.Contains(text, `"id":"`+id+`"`) {
			t.Errorf("provider %s missing from %s", id, text)
		}
	}
}
