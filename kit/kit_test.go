package kit

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

func TestChain_Order(t *testing.T) {
	var order []string
	mw := func(name string) Middleware {
		return func(next Endpoint) Endpoint {
			return func(ctx context.Context, req any) (any, error) {
				order = append(order, name+">")
				resp, err := next(ctx, req)
				order = append(order, "<"+name)
				return resp, err
			}
		}
	}
	base := func(_ context.Context, _ any) (any, error) {
		order = append(order, "endpoint")
		return "ok", nil
	}

	resp, err := Chain(mw("a"), mw("b"))(base)(context.Background(), nil)
	if err != nil || resp != "ok" {
		t.Fatalf("resp=%v err=%v", resp, err)
	}
	if got := strings.Join(order, " "); got != "a> b> endpoint <b <a" {
		t.Fatalf("order = %s", got)
	}
}

func TestLogging(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	errFail := errors.New("planner down")
	ep := Logging(logger, "deck_build")(func(context.Context, any) (any, error) { return nil, errFail })

	ctx := WithRequestID(WithTransport(context.Background(), "mcp"), "req_1")
	if _, err := ep(ctx, nil); !errors.Is(err, errFail) {
		t.Fatalf("err = %v", err)
	}
	for _, want := range []string{`"endpoint":"deck_build"`, `"transport":"mcp"`, `"request_id":"req_1"`, `"error":"planner down"`} {
		if !strings.Contains(buf.String(), want) {
			t.Errorf("log missing %s: %s", want, buf.String())
		}
	}
}

func TestTimeout(t *testing.T) {
	ep := Timeout(10 * time.Millisecond)(func(ctx context.Context, _ any) (any, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	})
	if _, err := ep(context.Background(), nil); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("err = %v", err)
	}

	called := false
	Timeout(0)(func(ctx context.Context, _ any) (any, error) {
		_, has := ctx.Deadline()
		called = !has
		return nil, nil
	})(context.Background(), nil)
	if !called {
		t.Error("zero timeout should leave context unbounded")
	}
}

func TestContext_Defaults(t *testing.T) {
	ctx := context.Background()
	if GetTransport(ctx) != "http" || GetRequestID(ctx) != "" || GetTraceID(ctx) != "" || GetRemoteAddr(ctx) != "" {
		t.Fatal("unexpected defaults")
	}
	ctx = WithTraceID(WithRemoteAddr(ctx, "10.0.0.1"), "tr_1")
	if GetTraceID(ctx) != "tr_1" || GetRemoteAddr(ctx) != "10.0.0.1" {
		t.Fatal("values not stored")
	}
}

type echoReq struct {
	Text string `json:"text"`
}

func TestRegisterMCPTool(t *testing.T) {
	impl := &mcp.Implementation{Name: "kit-test", Version: "0.1.0"}
	srv := mcp.NewServer(impl, nil)
	RegisterMCPTool(srv, &mcp.Tool{
		Name:        "echo",
		InputSchema: InputSchema(map[string]any{"text": map[string]any{"type": "string"}}, "text"),
	}, func(ctx context.Context, req any) (any, error) {
		r := req.(*echoReq)
		if r.Text == "fail" {
			return nil, errors.New("asked to fail")
		}
		return map[string]string{"text": r.Text, "transport": GetTransport(ctx)}, nil
	}, DecodeJSON[echoReq]())

	serverT, clientT := mcp.NewInMemoryTransports()
	ctx := context.Background()
	go func() { _ = srv.Run(ctx, serverT) }()
	session, err := mcp.NewClient(impl, nil).Connect(ctx, clientT, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer session.Close()

	res, err := session.CallTool(ctx, &mcp.CallToolParams{Name: "echo", Arguments: map[string]any{"text": "hi"}})
	if err != nil {
		t.Fatal(err)
	}
	if res.IsError {
		t.Fatalf("tool error: %+v", res.Content)
	}
	var out map[string]string
	if err := json.Unmarshal([]byte(res.Content[0].(*mcp.TextContent).Text), &out); err != nil {
		t.Fatal(err)
	}
	if out["text"] != "hi" || out["transport"] != "mcp" {
		t.Errorf("out = %v", out)
	}

	res, err = session.CallTool(ctx, &mcp.CallToolParams{Name: "echo", Arguments: map[string]any{"text": "fail"}})
	if err != nil {
		t.Fatal(err)
	}
	if !res.IsError {
		t.Fatal("expected tool error")
	}
	var failure map[string]string
	if err := json.Unmarshal([]byte(res.Content[0].(*mcp.TextContent).Text), &failure); err != nil {
		t.Fatalf("error body is not JSON: %v", err)
	}
	if failure["error"] != "asked to fail" {
		t.Errorf("error body = %v", failure)
	}
}
