package lsp

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"strings"
	"testing"
)

type bufferRWC struct {
	*bytes.Buffer
}

func (bufferRWC) Close() error { return nil }

func TestConnRoundTrip(t *testing.T) {
	buf := bufferRWC{&bytes.Buffer{}}
	c := NewConn(buf)

	if err := c.Send(7, "textDocument/hover", map[string]int{"line": 1}); err != nil {
		t.Fatal(err)
	}
	if err := c.Notify("initialized", map[string]any{}); err != nil {
		t.Fatal(err)
	}
	if err := c.Reply(json.RawMessage(`"srv-1"`), []any{nil}, nil); err != nil {
		t.Fatal(err)
	}

	if !strings.HasPrefix(buf.String(), "Content-Length: ") {
		t.Fatalf("missing header: %q", buf.String())
	}

	req, err := c.ReadMessage()
	if err != nil {
		t.Fatal(err)
	}
	if !req.isRequest() || req.Method != "textDocument/hover" {
		t.Fatalf("unexpected request %+v", req)
	}
	if id, ok := req.intID(); !ok || id != 7 {
		t.Fatalf("id = %s", req.ID)
	}

	note, err := c.ReadMessage()
	if err != nil {
		t.Fatal(err)
	}
	if !note.isNotification() || note.Method != "initialized" {
		t.Fatalf("unexpected notification %+v", note)
	}

	resp, err := c.ReadMessage()
	if err != nil {
		t.Fatal(err)
	}
	if !resp.isResponse() || string(resp.ID) != `"srv-1"` || string(resp.Result) != "[null]" {
		t.Fatalf("unexpected response %+v", resp)
	}
	if _, ok := resp.intID(); ok {
		t.Fatal("string id must not parse as int")
	}

	if _, err := c.ReadMessage(); !errors.Is(err, io.EOF) {
		t.Fatalf("expected EOF, got %v", err)
	}
}

func TestConnExtraHeaders(t *testing.T) {
	body := `{"jsonrpc":"2.0","method":"window/logMessage","params":{}}`
	raw := "Content-Type: application/vscode-jsonrpc; charset=utf-8\r\n" +
		"Content-Length: " + itoa(len(body)) + "\r\n\r\n" + body

	c := NewConn(bufferRWC{bytes.NewBufferString(raw)})
	msg, err := c.ReadMessage()
	if err != nil {
		t.Fatal(err)
	}
	if msg.Method != "window/logMessage" {
		t.Fatalf("method = %q", msg.Method)
	}
}

func TestConnMissingContentLength(t *testing.T) {
	c := NewConn(bufferRWC{bytes.NewBufferString("X-Foo: 1\r\n\r\n{}")})
	if _, err := c.ReadMessage(); !errors.Is(err, ErrMissingContentLength) {
		t.Fatalf("expected ErrMissingContentLength, got %v", err)
	}
}

func TestRPCErrorMessage(t *testing.T) {
	err := &RPCError{Code: -32601, Message: "method not found"}
	if err.Error() != "jsonrpc error -32601: method not found" {
		t.Fatalf("Error() = %q", err.Error())
	}
}

func itoa(n int) string {
	b, _ := json.Marshal(n)
	return string(b)
}
