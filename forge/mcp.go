// CLAUDE:SUMMARY MCP tools: deck_analyze_template, deck_generate, deck_build, deck_providers, plus the docpipe tools.
package forge

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/hazyhaar/deckforge/deck"
	"github.com/hazyhaar/deckforge/deckbuild"
	"github.com/hazyhaar/deckforge/idgen"
	"github.com/hazyhaar/deckforge/kit"
)

// RegisterMCP registers the deck tools and the source-document tools on srv.
func (s *Service) RegisterMCP(srv *mcp.Server) {
	s.registerAnalyzeTool(srv)
	s.registerGenerateTool(srv)
	s.registerBuildTool(srv)
	s.registerProvidersTool(srv)
	s.docs.RegisterMCP(srv)
}

// MCPHandler serves srv over stateless streamable HTTP. Mount it at /mcp
// behind the same shield stack as the REST API.
func MCPHandler(srv *mcp.Server) http.Handler {
	return mcp.NewStreamableHTTPHandler(func(*http.Request) *mcp.Server {
		return srv
	}, &mcp.StreamableHTTPOptions{Stateless: true})
}

// withRequestID tags every tool call with a fresh request id.
func withRequestID(dec kit.MCPDecoder) kit.MCPDecoder {
	return func(req *mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
		res, err := dec(req)
		if err != nil {
			return nil, err
		}
		res.EnrichCtx = func(ctx context.Context) context.Context {
			return kit.WithRequestID(ctx, idgen.Request())
		}
		return res, nil
	}
}

func (s *Service) tool(name string, ep kit.Endpoint) kit.Endpoint {
	return kit.Chain(kit.Logging(s.logger, name), kit.Timeout(s.cfg.RequestTimeout))(ep)
}

// packageResult is the MCP form of a Result.
type packageResult struct {
	RunID         string `json:"run_id"`
	Filename      string `json:"filename"`
	MimeType      string `json:"mime_type"`
	SlideCount    int    `json:"slide_count"`
	ContentBase64 string `json:"content_base64"`
	Structure     any    `json:"structure"`
}

func toPackageResult(res *Result) *packageResult {
	return &packageResult{
		RunID:         res.RunID,
		Filename:      res.Filename,
		MimeType:      deckbuild.ContentType,
		SlideCount:    len(res.Structure.Slides),
		ContentBase64: base64.StdEncoding.EncodeToString(res.Data),
		Structure:     res.Structure,
	}
}

type analyzeTemplateReq struct {
	TemplateBase64 string `json:"template_base64"`
}

func (s *Service) registerAnalyzeTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "deck_analyze_template",
		Description: "Analyze a .pptx/.potx template: theme colours and fonts, slide layouts, images. Never fails on a malformed zip; falls back to defaults.",
		InputSchema: kit.InputSchema(map[string]any{
			"template_base64": map[string]any{"type": "string", "description": "Base64-encoded template file"},
		}, "template_base64"),
	}

	endpoint := func(ctx context.Context, req any) (any, error) {
		r := req.(*analyzeTemplateReq)
		data, err := decodeBase64("template_base64", r.TemplateBase64)
		if err != nil {
			return nil, err
		}
		if data == nil {
			return nil, fmt.Errorf("%w: template_base64 is required", ErrInvalidInput)
		}
		return s.AnalyzeTemplate(ctx, data)
	}

	kit.RegisterMCPTool(srv, tool, s.tool(tool.Name, endpoint), withRequestID(kit.DecodeJSON[analyzeTemplateReq]()))
}

type generateReq struct {
	Text           string `json:"text"`
	Guidance       string `json:"guidance"`
	Provider       string `json:"provider"`
	Model          string `json:"model"`
	APIKey         string `json:"api_key"`
	TemplateBase64 string `json:"template_base64"`
}

func (s *Service) registerGenerateTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "deck_generate",
		Description: "Plan and build a slide deck from text. api_key overrides the server's provider key for this call. Returns the .pptx as base64 with the planned slide structure.",
		InputSchema: kit.InputSchema(map[string]any{
			"text":            map[string]any{"type": "string", "description": "Source text or markdown"},
			"guidance":        map[string]any{"type": "string", "description": "Optional instructions for the planner"},
			"provider":        map[string]any{"type": "string", "description": "Planner provider id (see deck_providers)"},
			"model":           map[string]any{"type": "string", "description": "Model override"},
			"api_key":         map[string]any{"type": "string", "description": "Provider API key for this call"},
			"template_base64": map[string]any{"type": "string", "description": "Optional base64-encoded template"},
		}, "text"),
	}

	endpoint := func(ctx context.Context, req any) (any, error) {
		r := req.(*generateReq)
		template, err := decodeBase64("template_base64", r.TemplateBase64)
		if err != nil {
			return nil, err
		}
		res, err := s.Generate(ctx, &GenerateRequest{
			Text:     r.Text,
			Guidance: r.Guidance,
			Provider: r.Provider,
			Model:    r.Model,
			APIKey:   r.APIKey,
			Template: template,
		})
		if err != nil {
			return nil, err
		}
		return toPackageResult(res), nil
	}

	kit.RegisterMCPTool(srv, tool, s.tool(tool.Name, endpoint), withRequestID(kit.DecodeJSON[generateReq]()))
}

type buildToolReq struct {
	Structure      *deck.SlideStructure `json:"structure"`
	TemplateBase64 string               `json:"template_base64"`
}

func (s *Service) registerBuildTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "deck_build",
		Description: "Build a .pptx from a slide structure {totalSlides, slides:[{slideNumber,type,title,content,notes}]}, optionally themed by a template. Returns the package as base64.",
		InputSchema: kit.InputSchema(map[string]any{
			"structure": map[string]any{
				"type":        "object",
				"description": "Slide structure; content is a string or an array of bullet lines",
			},
			"template_base64": map[string]any{"type": "string", "description": "Optional base64-encoded template"},
		}, "structure"),
	}

	endpoint := func(ctx context.Context, req any) (any, error) {
		r := req.(*buildToolReq)
		template, err := decodeBase64("template_base64", r.TemplateBase64)
		if err != nil {
			return nil, err
		}
		res, err := s.Build(ctx, r.Structure, template)
		if err != nil {
			return nil, err
		}
		return toPackageResult(res), nil
	}

	kit.RegisterMCPTool(srv, tool, s.tool(tool.Name, endpoint), withRequestID(kit.DecodeJSON[buildToolReq]()))
}

func (s *Service) registerProvidersTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "deck_providers",
		Description: "List the planner providers with their default models.",
		InputSchema: kit.InputSchema(map[string]any{}),
	}

	endpoint := func(_ context.Context, _ any) (any, error) {
		return map[string]any{"providers": s.Providers(), "default": s.cfg.DefaultProvider}, nil
	}

	kit.RegisterMCPTool(srv, tool, endpoint, kit.DecodeJSON[struct{}]())
}
