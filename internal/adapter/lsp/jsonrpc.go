package lsp

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/textproto"
	"strconv"
	"sync"
)

// message is any JSON-RPC 2.0 frame: a request (ID and Method), a response
// (ID only) or a notification (Method only). IDs stay raw because servers
// may use strings for their own requests.
type message struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id,omitempty"`
	Method  string          `json:"method,omitempty"`
	Params  json.RawMessage `json:"params,omitempty"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *RPCError       `json:"error,omitempty"`
}

func (m *message) isResponse() bool     { return len(m.ID) > 0 && m.Method == "" }
func (m *message) isRequest() bool      { return len(m.ID) > 0 && m.Method != "" }
func (m *message) isNotification() bool { return len(m.ID) == 0 && m.Method != "" }

// intID returns the numeric id of a response to one of our requests.
func (m *message) intID() (int64, bool) {
	var id int64
	if err := json.Unmarshal(m.ID, &id); err != nil {
		return 0, false
	}
	return id, true
}

// RPCError is a JSON-RPC 2.0 error object.
type RPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("jsonrpc error %d: %s", e.Code, e.Message)
}

// ErrMissingContentLength is returned for a frame without a usable
// Content-Length header.
var ErrMissingContentLength = errors.New("jsonrpc: missing Content-Length header")

// Conn speaks JSON-RPC 2.0 with Content-Length framing over a byte stream,
// typically the stdio of a language server process. Writes are serialized;
// reads must come from a single goroutine.
type Conn struct {
	rwc    io.ReadWriteCloser
	reader *textproto.Reader
	buf    *bufio.Reader
	mu     sync.Mutex
}

// NewConn wraps rwc.
func NewConn(rwc io.ReadWriteCloser) *Conn {
	buf := bufio.NewReaderSize(rwc, 64*1024)
	return &Conn{
		rwc:    rwc,
		buf:    buf,
		reader: textproto.NewReader(buf),
	}
}

// Send writes a request with a numeric id.
func (c *Conn) Send(id int64, method string, params any) error {
	rawID, _ := json.Marshal(id)
	return c.write(method, rawID, params)
}

// Notify writes a notification.
func (c *Conn) Notify(method string, params any) error {
	return c.write(method, nil, params)
}

// Reply answers a request received from the peer.
func (c *Conn) Reply(id json.RawMessage, result any, rpcErr *RPCError) error {
	msg := message{JSONRPC: "2.0", ID: id, Error: rpcErr}
	if rpcErr == nil {
		raw, err := json.Marshal(result)
		if err != nil {
			return fmt.Errorf("marshal result: %w", err)
		}
		msg.Result = raw
	}
	return c.writeFrame(msg)
}

func (c *Conn) write(method string, id json.RawMessage, params any) error {
	msg := message{JSONRPC: "2.0", ID: id, Method: method}
	if params != nil {
		raw, err := json.Marshal(params)
		if err != nil {
			return fmt.Errorf("marshal %s params: %w", method, err)
		}
		msg.Params = raw
	}
	return c.writeFrame(msg)
}

func (c *Conn) writeFrame(msg message) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	frame := make([]byte, 0, len(body)+32)
	frame = append(frame, "Content-Length: "...)
	frame = strconv.AppendInt(frame, int64(len(body)), 10)
	frame = append(frame, "\r\n\r\n"...)
	frame = append(frame, body...)
	if _, err := c.rwc.Write(frame); err != nil {
		return fmt.Errorf("write frame: %w", err)
	}
	return nil
}

// ReadMessage blocks until one full frame has been read.
func (c *Conn) ReadMessage() (*message, error) {
	header, err := c.reader.ReadMIMEHeader()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	n, err := strconv.Atoi(header.Get("Content-Length"))
	if err != nil || n < 0 {
		return nil, ErrMissingContentLength
	}

	body := make([]byte, n)
	if _, err := io.ReadFull(c.buf, body); err != nil {
		return nil, fmt.Errorf("read body (%d bytes): %w", n, err)
	}

	var msg message
	if err := json.Unmarshal(body, &msg); err != nil {
		return nil, fmt.Errorf("unmarshal message: %w", err)
	}
	return &msg, nil
}

// Close closes the underlying stream.
func (c *Conn) Close() error {
	return c.rwc.Close()
}

// stdioPipe joins a process's stdin and stdout into one stream.
type stdioPipe struct {
	stdin  io.WriteCloser
	stdout io.ReadCloser
}

func (p stdioPipe) Read(b []byte) (int, error)  { return p.stdout.Read(b) }
func (p stdioPipe) Write(b []byte) (int, error) { return p.stdin.Write(b) }
func (p stdioPipe) Close() error {
	return errors.Join(p.stdin.Close(), p.stdout.Close())
}
