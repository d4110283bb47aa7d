package lsp

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/Strob0t/codebridge/internal/domain/analysis"
	portanalysis "github.com/Strob0t/codebridge/internal/port/analysis"
)

// fakeServer is a minimal in-process language server.
type fakeServer struct {
	conn     *Conn
	replied  chan struct{} // closed when the client answers workspace/configuration
	stopped  chan struct{}
	lastText string
}

func startFake(t *testing.T, opts portanalysis.Options) (*Engine, *fakeServer) {
	t.Helper()
	clientR, serverW := io.Pipe()
	serverR, clientW := io.Pipe()

	srv := &fakeServer{
		conn:    NewConn(stdioPipe{stdin: serverW, stdout: serverR}),
		replied: make(chan struct{}),
		stopped: make(chan struct{}),
	}
	go srv.serve()

	opts.DocumentName = "main.cs"
	e := newEngine(opts, "/ws", NewConn(stdioPipe{stdin: clientW, stdout: clientR}))
	if err := e.initialize(context.Background(), "/ws"); err != nil {
		t.Fatalf("initialize: %v", err)
	}
	t.Cleanup(func() {
		_ = e.Close(context.Background())
		_ = srv.conn.Close()
	})
	return e, srv
}

func (s *fakeServer) serve() {
	defer close(s.stopped)
	for {
		msg, err := s.conn.ReadMessage()
		if err != nil {
			return
		}
		if msg.isResponse() {
			if string(msg.ID) == `"cfg-1"` {
				close(s.replied)
			}
			continue
		}

		switch msg.Method {
		case "initialize":
			_ = s.conn.write("workspace/configuration", json.RawMessage(`"cfg-1"`),
				map[string]any{"items": []any{map[string]string{"section": "x"}}})
			_ = s.conn.Reply(msg.ID, map[string]any{"capabilities": map[string]any{}}, nil)
		case "textDocument/didOpen", "textDocument/didChange":
			s.handleChange(msg)
		case "textDocument/completion":
			_ = s.conn.Reply(msg.ID, map[string]any{"items": []map[string]any{
				{"label": "WriteLine", "kind": 2, "sortText": "1"},
				{"label": "Write", "kind": 2, "sortText": "2"},
			}}, nil)
		case "textDocument/signatureHelp":
			_ = s.conn.Reply(msg.ID, json.RawMessage(`{"signatures":[{"label":"Add(int a, int b)","parameters":[{"label":"int a"},{"label":"int b"}]}],"activeSignature":0,"activeParameter":1}`), nil)
		case "textDocument/hover":
			var p struct {
				Position analysis.Position `json:"position"`
			}
			_ = json.Unmarshal(msg.Params, &p)
			if p.Position.Character == 0 {
				_ = s.conn.Reply(msg.ID, nil, nil)
				continue
			}
			_ = s.conn.Reply(msg.ID, map[string]any{"contents": map[string]string{
				"kind":  "markdown",
				"value": "```csharp\nint Add(int a, int b)\n```\n\nAdds.",
			}}, nil)
		case "shutdown":
			_ = s.conn.Reply(msg.ID, nil, nil)
		case "exit":
			return
		}
	}
}

func (s *fakeServer) handleChange(msg *message) {
	var p struct {
		TextDocument struct {
			URI     string `json:"uri"`
			Version int    `json:"version"`
			Text    string `json:"text"`
		} `json:"textDocument"`
		ContentChanges []struct {
			Text string `json:"text"`
		} `json:"contentChanges"`
	}
	_ = json.Unmarshal(msg.Params, &p)
	text := p.TextDocument.Text
	if len(p.ContentChanges) > 0 {
		text = p.ContentChanges[0].Text
	}
	s.lastText = text

	diags := []map[string]any{}
	if strings.Contains(text, "bad") {
		diags = append(diags, map[string]any{
			"range":    map[string]any{"start": map[string]int{"line": 0, "character": 0}, "end": map[string]int{"line": 0, "character": 3}},
			"severity": 1,
			"message":  "bad token",
		})
	}
	// A stale publish for the previous version must not satisfy the wait.
	if p.TextDocument.Version > 1 {
		_ = s.conn.Notify("textDocument/publishDiagnostics", map[string]any{
			"uri": p.TextDocument.URI, "version": p.TextDocument.Version - 1, "diagnostics": []any{},
		})
	}
	// "silent" documents never get a current publish.
	if strings.Contains(text, "silent") {
		return
	}
	_ = s.conn.Notify("textDocument/publishDiagnostics", map[string]any{
		"uri": p.TextDocument.URI, "version": p.TextDocument.Version, "diagnostics": diags,
	})
}

func TestEngineAnswersServerRequests(t *testing.T) {
	_, srv := startFake(t, portanalysis.Options{})
	select {
	case <-srv.replied:
	case <-time.After(2 * time.Second):
		t.Fatal("client did not answer workspace/configuration")
	}
}

func TestEngineDiagnosticsFollowVersions(t *testing.T) {
	e, _ := startFake(t, portanalysis.Options{DiagnosticsWait: 2 * time.Second})
	ctx := context.Background()

	if err := e.ReplaceText(ctx, "bad code"); err != nil {
		t.Fatal(err)
	}
	diags, err := e.Diagnostics(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(diags) != 1 || diags[0].Message != "bad token" || diags[0].Severity != analysis.SeverityError {
		t.Fatalf("diags = %+v", diags)
	}

	if err := e.ReplaceText(ctx, "good code"); err != nil {
		t.Fatal(err)
	}
	diags, err = e.Diagnostics(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(diags) != 0 {
		t.Fatalf("expected clean diagnostics, got %+v", diags)
	}
}

func TestEngineDiagnosticsWithoutCurrentPublishAreStale(t *testing.T) {
	e, _ := startFake(t, portanalysis.Options{DiagnosticsWait: 150 * time.Millisecond})
	ctx := context.Background()

	if err := e.ReplaceText(ctx, "bad code"); err != nil {
		t.Fatal(err)
	}
	if _, err := e.Diagnostics(ctx); err != nil {
		t.Fatalf("first Diagnostics: %v", err)
	}

	if err := e.ReplaceText(ctx, "silent bad code"); err != nil {
		t.Fatal(err)
	}
	start := time.Now()
	_, err := e.Diagnostics(ctx)
	if !errors.Is(err, portanalysis.ErrStaleDiagnostics) {
		t.Fatalf("Diagnostics err = %v, want ErrStaleDiagnostics", err)
	}
	if waited := time.Since(start); waited < 100*time.Millisecond {
		t.Errorf("returned after %v, want the diagnostics wait to elapse", waited)
	}
}

func TestEngineQueries(t *testing.T) {
	e, _ := startFake(t, portanalysis.Options{})
	ctx := context.Background()
	_ = e.ReplaceText(ctx, "Console.Wr")

	items, err := e.CompletionsAt(ctx, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(items) != 2 || items[0].Label != "WriteLine" || items[0].Kind != analysis.KindMethod {
		t.Fatalf("items = %+v", items)
	}

	help, err := e.ResolveCallAt(ctx, 5)
	if err != nil {
		t.Fatal(err)
	}
	if help == nil || help.ActiveParameter != 1 || len(help.Signatures[0].Parameters) != 2 {
		t.Fatalf("help = %+v", help)
	}

	sym, err := e.SymbolAt(ctx, 3)
	if err != nil {
		t.Fatal(err)
	}
	if sym == nil || sym.Signature != "int Add(int a, int b)" || sym.Documentation != "Adds." {
		t.Fatalf("sym = %+v", sym)
	}

	none, err := e.SymbolAt(ctx, 0)
	if err != nil {
		t.Fatal(err)
	}
	if none != nil {
		t.Fatalf("expected nil hover, got %+v", none)
	}
}

func TestEngineURI(t *testing.T) {
	e, _ := startFake(t, portanalysis.Options{})
	if e.URI() != "file:///ws/main.cs" {
		t.Fatalf("URI = %q", e.URI())
	}
}

func TestEngineCloseStopsServer(t *testing.T) {
	e, srv := startFake(t, portanalysis.Options{ShutdownTimeout: time.Second})
	if err := e.Close(context.Background()); err != nil {
		t.Fatal(err)
	}
	select {
	case <-srv.stopped:
	case <-time.After(2 * time.Second):
		t.Fatal("server did not receive exit")
	}
	if _, err := e.CompletionsAt(context.Background(), 0); err == nil {
		t.Fatal("expected error after Close")
	}
}

func TestStartUnknownLanguage(t *testing.T) {
	_, err := Start(context.Background(), portanalysis.Options{LanguageID: "cobol"})
	if err == nil || !strings.Contains(err.Error(), "no server command") {
		t.Fatalf("err = %v", err)
	}
}
