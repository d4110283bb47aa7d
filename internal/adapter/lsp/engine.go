// Package lsp implements the analysis engine on top of an external language
// server process, spoken to via JSON-RPC 2.0 over stdio.
package lsp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Strob0t/codebridge/internal/domain/analysis"
	"github.com/Strob0t/codebridge/internal/domain/bridge"
	portanalysis "github.com/Strob0t/codebridge/internal/port/analysis"
)

// BackendName is the registry name of this engine.
const BackendName = "lsp"

// ErrClosed is returned by calls made after the server connection ended.
var ErrClosed = errors.New("lsp: connection closed")

func init() {
	portanalysis.Register(BackendName, func(ctx context.Context, opts portanalysis.Options) (portanalysis.Engine, error) {
		return Start(ctx, opts)
	})
}

// Engine drives one language server for one virtual document.
type Engine struct {
	opts       portanalysis.Options
	log        *slog.Logger
	languageID string
	initOpts   map[string]any
	uri        string

	cmd  *exec.Cmd
	conn *Conn
	done chan struct{} // closed when readLoop exits

	nextID  atomic.Int64
	pendMu  sync.Mutex
	pending map[int64]chan *message

	diagMu      sync.Mutex
	diags       []analysis.Diagnostic
	diagSeq     uint64
	diagVersion int
	diagSignal  chan struct{}

	// Owned by the session worker.
	opened     bool
	docVersion int
	changeSeq  uint64
	index      *bridge.TextIndex
	closeOnce  sync.Once
}

// Start spawns the configured language server and performs the initialize
// handshake within opts.StartTimeout.
func Start(ctx context.Context, opts portanalysis.Options) (*Engine, error) {
	command := opts.Command
	var initOpts map[string]any
	if len(command) == 0 {
		def, ok := analysis.DefaultServers[opts.LanguageID]
		if !ok {
			return nil, fmt.Errorf("lsp: no server command for language %q", opts.LanguageID)
		}
		command, initOpts = def.Command, def.InitOpts
	}
	if _, err := exec.LookPath(command[0]); err != nil {
		return nil, fmt.Errorf("lsp: language server binary not found: %s", command[0])
	}

	workspace, err := filepath.Abs(opts.Workspace)
	if err != nil {
		return nil, fmt.Errorf("lsp: workspace: %w", err)
	}

	// The process outlives ctx; it is stopped by Close.
	cmd := exec.Command(command[0], command[1:]...) //nolint:gosec // command from trusted config
	cmd.Dir = workspace
	cmd.Stderr = os.Stderr

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("lsp: stdin pipe: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("lsp: stdout pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("lsp: start %s: %w", command[0], err)
	}

	e := newEngine(opts, workspace, NewConn(stdioPipe{stdin: stdin, stdout: stdout}))
	e.cmd = cmd
	e.initOpts = initOpts

	if err := e.initialize(ctx, workspace); err != nil {
		_ = cmd.Process.Kill()
		_ = e.conn.Close()
		<-e.done
		_ = cmd.Wait()
		return nil, fmt.Errorf("lsp: initialize: %w", err)
	}

	e.log.Info("lsp server started", "command", command[0], "pid", cmd.Process.Pid, "workspace", workspace)
	return e, nil
}

// newEngine wires an engine to an established connection and starts
// reading from it.
func newEngine(opts portanalysis.Options, workspace string, conn *Conn) *Engine {
	name := opts.DocumentName
	if name == "" {
		name = "main.go"
	}
	e := &Engine{
		opts:       opts,
		log:        opts.Log(),
		languageID: opts.LanguageID,
		uri:        "file://" + filepath.ToSlash(filepath.Join(workspace, name)),
		conn:       conn,
		done:       make(chan struct{}),
		pending:    make(map[int64]chan *message),
		diagSignal: make(chan struct{}, 1),
	}
	go e.readLoop()
	return e
}

// Name implements analysis.Engine.
func (e *Engine) Name() string { return BackendName }

// URI returns the virtual document URI.
func (e *Engine) URI() string { return e.uri }

// ReplaceText implements analysis.Engine with full-document sync.
func (e *Engine) ReplaceText(_ context.Context, text string) error {
	e.index = bridge.NewTextIndex(text)

	e.diagMu.Lock()
	e.changeSeq = e.diagSeq
	e.diagMu.Unlock()

	e.docVersion++
	if !e.opened {
		e.opened = true
		return e.conn.Notify("textDocument/didOpen", map[string]any{
			"textDocument": map[string]any{
				"uri":        e.uri,
				"languageId": e.languageID,
				"version":    e.docVersion,
				"text":       text,
			},
		})
	}
	return e.conn.Notify("textDocument/didChange", map[string]any{
		"textDocument":   map[string]any{"uri": e.uri, "version": e.docVersion},
		"contentChanges": []map[string]string{{"text": text}},
	})
}

// CompletionsAt implements analysis.Engine.
func (e *Engine) CompletionsAt(ctx context.Context, offset int) ([]analysis.CompletionItem, error) {
	raw, err := e.call(ctx, "textDocument/completion", e.positionParams(offset))
	if err != nil {
		return nil, err
	}
	return parseCompletions(raw)
}

// ResolveCallAt implements analysis.Engine.
func (e *Engine) ResolveCallAt(ctx context.Context, offset int) (*analysis.SignatureHelp, error) {
	raw, err := e.call(ctx, "textDocument/signatureHelp", e.positionParams(offset))
	if err != nil {
		return nil, err
	}
	return parseSignatureHelp(raw)
}

// SymbolAt implements analysis.Engine.
func (e *Engine) SymbolAt(ctx context.Context, offset int) (*analysis.Symbol, error) {
	raw, err := e.call(ctx, "textDocument/hover", e.positionParams(offset))
	if err != nil {
		return nil, err
	}
	return parseHover(raw)
}

// Diagnostics implements analysis.Engine. It waits up to DiagnosticsWait
// for a publish newer than the last ReplaceText. Without one it returns the
// latest set the server published together with ErrStaleDiagnostics.
func (e *Engine) Diagnostics(ctx context.Context) ([]analysis.Diagnostic, error) {
	timer := time.NewTimer(e.opts.DiagnosticsWait)
	defer timer.Stop()

	for {
		e.diagMu.Lock()
		// A publish without a version cannot be matched to a document
		// version, so any publish after the change is taken as current. A
		// late unversioned publish for the previous text is accepted too.
		fresh := e.diagSeq > e.changeSeq && (e.diagVersion == 0 || e.diagVersion >= e.docVersion)
		if fresh {
			out := append([]analysis.Diagnostic(nil), e.diags...)
			e.diagMu.Unlock()
			return out, nil
		}
		e.diagMu.Unlock()

		select {
		case <-e.diagSignal:
		case <-timer.C:
			return e.latestDiagnostics(), portanalysis.ErrStaleDiagnostics
		case <-e.done:
			return e.latestDiagnostics(), portanalysis.ErrStaleDiagnostics
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

func (e *Engine) latestDiagnostics() []analysis.Diagnostic {
	e.diagMu.Lock()
	defer e.diagMu.Unlock()
	return append([]analysis.Diagnostic(nil), e.diags...)
}

// Close performs shutdown and exit, then stops the process, waiting at most
// ShutdownTimeout before killing it.
func (e *Engine) Close(ctx context.Context) error {
	var err error
	e.closeOnce.Do(func() {
		err = e.stop(ctx)
	})
	return err
}

func (e *Engine) stop(ctx context.Context) error {
	timeout := e.opts.ShutdownTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeout)
	defer cancel()

	if _, err := e.call(shutdownCtx, "shutdown", nil); err != nil {
		e.log.Warn("lsp shutdown request failed", "error", err)
	}
	_ = e.conn.Notify("exit", nil)

	if e.cmd != nil && e.cmd.Process != nil {
		exited := make(chan error, 1)
		go func() { exited <- e.cmd.Wait() }()
		select {
		case <-exited:
		case <-shutdownCtx.Done():
			e.log.Warn("lsp server did not exit gracefully, killing")
			_ = e.cmd.Process.Kill()
			<-exited
		}
	}

	// Wait has already closed the pipes when a process was attached.
	_ = e.conn.Close()
	<-e.done
	e.log.Debug("lsp server stopped", "uri", e.uri)
	return nil
}

func (e *Engine) initialize(ctx context.Context, workspace string) error {
	if e.opts.StartTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.opts.StartTimeout)
		defer cancel()
	}

	params := map[string]any{
		"processId": os.Getpid(),
		"rootUri":   "file://" + filepath.ToSlash(workspace),
		"capabilities": map[string]any{
			"general": map[string]any{"positionEncodings": []string{"utf-16"}},
			"textDocument": map[string]any{
				"synchronization":    map[string]any{"didSave": false},
				"publishDiagnostics": map[string]any{"versionSupport": true},
				"completion":         map[string]any{"completionItem": map[string]any{"snippetSupport": false}},
				"signatureHelp": map[string]any{
					"signatureInformation": map[string]any{
						"parameterInformation":   map[string]any{"labelOffsetSupport": true},
						"activeParameterSupport": true,
					},
				},
				"hover": map[string]any{"contentFormat": []string{"markdown", "plaintext"}},
			},
		},
	}
	if e.initOpts != nil {
		params["initializationOptions"] = e.initOpts
	}

	if _, err := e.call(ctx, "initialize", params); err != nil {
		return err
	}
	return e.conn.Notify("initialized", map[string]any{})
}

func (e *Engine) positionParams(offset int) map[string]any {
	var pos analysis.Position
	if e.index != nil {
		pos = e.index.PositionAtOffset(offset)
	}
	return map[string]any{
		"textDocument": map[string]string{"uri": e.uri},
		"position":     pos,
	}
}

// call sends a request and waits for its response.
func (e *Engine) call(ctx context.Context, method string, params any) (json.RawMessage, error) {
	id := e.nextID.Add(1)
	ch := make(chan *message, 1)

	e.pendMu.Lock()
	e.pending[id] = ch
	e.pendMu.Unlock()

	defer func() {
		e.pendMu.Lock()
		delete(e.pending, id)
		e.pendMu.Unlock()
	}()

	if err := e.conn.Send(id, method, params); err != nil {
		return nil, fmt.Errorf("send %s: %w", method, err)
	}

	select {
	case msg := <-ch:
		if msg.Error != nil {
			return nil, fmt.Errorf("%s: %w", method, msg.Error)
		}
		return msg.Result, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-e.done:
		return nil, ErrClosed
	}
}

// readLoop dispatches responses to pending callers, answers server
// requests and records published diagnostics.
func (e *Engine) readLoop() {
	defer close(e.done)

	for {
		msg, err := e.conn.ReadMessage()
		if err != nil {
			return
		}

		switch {
		case msg.isResponse():
			id, ok := msg.intID()
			if !ok {
				continue
			}
			e.pendMu.Lock()
			ch, ok := e.pending[id]
			e.pendMu.Unlock()
			if ok {
				ch <- msg
			}
		case msg.isRequest():
			// Replying from the read loop could block against a server
			// that is itself blocked writing to us.
			go e.answer(msg)
		case msg.isNotification():
			if msg.Method == "textDocument/publishDiagnostics" {
				e.handlePublishDiagnostics(msg.Params)
				continue
			}
			e.log.Debug("lsp notification ignored", "method", msg.Method)
		}
	}
}

// answer replies to server-initiated requests with neutral results so the
// server never blocks on us.
func (e *Engine) answer(msg *message) {
	var result any
	if msg.Method == "workspace/configuration" {
		var params struct {
			Items []json.RawMessage `json:"items"`
		}
		_ = json.Unmarshal(msg.Params, &params)
		result = make([]any, len(params.Items))
	}
	if err := e.conn.Reply(msg.ID, result, nil); err != nil {
		e.log.Debug("lsp reply failed", "method", msg.Method, "error", err)
	}
}

func (e *Engine) handlePublishDiagnostics(raw json.RawMessage) {
	var params publishDiagnosticsParams
	if err := json.Unmarshal(raw, &params); err != nil {
		e.log.Warn("lsp: failed to unmarshal diagnostics", "error", err)
		return
	}
	if params.URI != e.uri {
		return
	}

	e.diagMu.Lock()
	e.diags = toDiagnostics(params.Diagnostics)
	e.diagSeq++
	e.diagVersion = 0
	if params.Version != nil {
		e.diagVersion = *params.Version
	}
	e.diagMu.Unlock()

	select {
	case e.diagSignal <- struct{}{}:
	default:
	}
}
