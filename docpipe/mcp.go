// CLAUDE:SUMMARY MCP tools for source-document extraction: docpipe_extract (base64 content) and docpipe_formats.
package docpipe

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/hazyhaar/deckforge/kit"
)

// RegisterMCP registers docpipe tools on an MCP server.
func (p *Pipeline) RegisterMCP(srv *mcp.Server) {
	p.registerExtractTool(srv)
	p.registerFormatsTool(srv)
}

type extractReq struct {
	Name    string `json:"name"`
	Content string `json:"content"`
}

func (p *Pipeline) registerExtractTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "docpipe_extract",
		Description: "Extract headings, list items and paragraphs from a source document (docx, odt, pptx, pdf, md, txt, html). Returns sections and a markdown rendering.",
		InputSchema: kit.InputSchema(map[string]any{
			"name":    map[string]any{"type": "string", "description": "File name; its extension selects the parser"},
			"content": map[string]any{"type": "string", "description": "Base64-encoded file content"},
		}, "name", "content"),
	}

	endpoint := func(ctx context.Context, req any) (any, error) {
		r := req.(*extractReq)
		if r.Name == "" {
			return nil, errors.New("name is required")
		}
		data, err := base64.StdEncoding.DecodeString(r.Content)
		if err != nil {
			return nil, fmt.Errorf("content: %w", err)
		}
		return p.Extract(ctx, r.Name, data)
	}

	kit.RegisterMCPTool(srv, tool, endpoint, kit.DecodeJSON[extractReq]())
}

func (p *Pipeline) registerFormatsTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "docpipe_formats",
		Description: "List the supported source document formats.",
		InputSchema: kit.InputSchema(map[string]any{}),
	}

	endpoint := func(_ context.Context, _ any) (any, error) {
		return map[string]any{"formats": SupportedFormats()}, nil
	}

	kit.RegisterMCPTool(srv, tool, endpoint, kit.DecodeJSON[struct{}]())
}
