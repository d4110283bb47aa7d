package ws

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"

	_ "github.com/Strob0t/codebridge/internal/adapter/goengine"
	"github.com/Strob0t/codebridge/internal/config"
	"github.com/Strob0t/codebridge/internal/service"
)

// echoRunner writes every frame back and records how the session ended.
type echoRunner struct {
	ended chan error
}

func newEchoRunner() *echoRunner { return &echoRunner{ended: make(chan error, 1)} }

func (e *echoRunner) Serve(ctx context.Context, t service.Transport, _ string) error {
	for {
		frame, err := t.Read(ctx)
		if err != nil {
			if errors.Is(err, io.EOF) {
				err = nil
			}
			e.ended <- err
			return err
		}
		if err := t.Write(ctx, frame); err != nil {
			e.ended <- err
			return err
		}
	}
}

func dial(t *testing.T, url string) *websocket.Conn {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	c, _, err := websocket.Dial(ctx, "ws"+strings.TrimPrefix(url, "http"), nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	return c
}

func TestHubNormalCloseEndsSessionCleanly(t *testing.T) {
	runner := newEchoRunner()
	hub := NewHub(runner, 1<<20, "*")
	srv := httptest.NewServer(http.HandlerFunc(hub.HandleWS))
	defer srv.Close()

	c := dial(t, srv.URL)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := c.Write(ctx, websocket.MessageText, []byte(`hello`)); err != nil {
		t.Fatalf("write: %v", err)
	}
	_, got, err := c.Read(ctx)
	if err != nil || string(got) != "hello" {
		t.Fatalf("read = %q, %v", got, err)
	}
	if hub.ConnectionCount() != 1 {
		t.Errorf("ConnectionCount = %d, want 1", hub.ConnectionCount())
	}

	_ = c.Close(websocket.StatusNormalClosure, "")
	select {
	case err := <-runner.ended:
		if err != nil {
			t.Errorf("session error = %v, want nil for normal close", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("session did not end")
	}
}

func TestHubReadLimit(t *testing.T) {
	runner := newEchoRunner()
	hub := NewHub(runner, 16, "*")
	srv := httptest.NewServer(http.HandlerFunc(hub.HandleWS))
	defer srv.Close()

	c := dial(t, srv.URL)
	defer c.CloseNow()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_ = c.Write(ctx, websocket.MessageText, []byte(strings.Repeat("x", 64)))
	select {
	case err := <-runner.ended:
		if err == nil {
			t.Error("oversized frame accepted")
		}
	case <-time.After(5 * time.Second):
		t.Fatal("session did not end")
	}
}

func TestHubCloseAll(t *testing.T) {
	runner := newEchoRunner()
	hub := NewHub(runner, 1<<20, "*")
	srv := httptest.NewServer(http.HandlerFunc(hub.HandleWS))
	defer srv.Close()

	c := dial(t, srv.URL)
	defer c.CloseNow()

	deadline := time.Now().Add(5 * time.Second)
	for hub.ConnectionCount() == 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}

	// Keep the client reading so the close handshake completes.
	readErr := make(chan error, 1)
	go func() {
		_, _, err := c.Read(context.Background())
		readErr <- err
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	hub.CloseAll(ctx)

	if hub.ConnectionCount() != 0 {
		t.Fatalf("ConnectionCount = %d after CloseAll", hub.ConnectionCount())
	}
	if status := websocket.CloseStatus(<-readErr); status != websocket.StatusGoingAway {
		t.Errorf("client close status = %v, want StatusGoingAway", status)
	}
}

func TestSessionOverWebsocket(t *testing.T) {
	cfg := config.Defaults()
	cfg.Engine.Backend = "go"
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	sessions := service.NewSessionService(&cfg, service.NewEngineFactory(cfg.Engine, log), nil, log)

	hub := NewHub(sessions, cfg.Session.MaxMessageBytes, "*")
	srv := httptest.NewServer(http.HandlerFunc(hub.HandleWS))
	defer srv.Close()

	c := dial(t, srv.URL)
	defer c.CloseNow()
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	code := "package main\n\nfunc main() {\n\tx := 1\n}\n"
	send := func(v map[string]any) {
		t.Helper()
		data, _ := json.Marshal(v)
		if err := c.Write(ctx, websocket.MessageText, data); err != nil {
			t.Fatalf("write: %v", err)
		}
	}
	recv := func() map[string]json.RawMessage {
		t.Helper()
		_, data, err := c.Read(ctx)
		if err != nil {
			t.Fatalf("read: %v", err)
		}
		var env map[string]json.RawMessage
		if err := json.Unmarshal(data, &env); err != nil {
			t.Fatalf("unmarshal %s: %v", data, err)
		}
		return env
	}

	send(map[string]any{"kind": "update", "code": code})
	push := recv()
	if string(push["kind"]) != `"diagnosticsPush"` {
		t.Fatalf("first frame kind = %s", push["kind"])
	}
	var diags []struct {
		StartLine int `json:"startLine"`
		Severity  int `json:"severity"`
	}
	if err := json.Unmarshal(push["data"], &diags); err != nil {
		t.Fatalf("diagnostics: %v", err)
	}
	if len(diags) != 1 || diags[0].StartLine != 4 || diags[0].Severity != 4 {
		t.Fatalf("diagnostics = %+v, want unused x warning on line 4", diags)
	}

	send(map[string]any{"kind": "hover", "code": code, "position": strings.Index(code, "main()"), "correlationId": 10})
	hover := recv()
	if string(hover["kind"]) != `"hoverResult"` || string(hover["correlationId"]) != "10" {
		t.Fatalf("hover = %v", hover)
	}
}
