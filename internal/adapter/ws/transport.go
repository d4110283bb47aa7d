package ws

import (
	"context"
	"io"

	"github.com/coder/websocket"
)

// transport adapts a websocket connection to service.Transport.
type transport struct {
	ws *websocket.Conn
}

// Read returns the next frame. A normal or going-away close from the
// peer is reported as io.EOF.
func (t *transport) Read(ctx context.Context) ([]byte, error) {
	_, data, err := t.ws.Read(ctx)
	if err != nil {
		switch websocket.CloseStatus(err) {
		case websocket.StatusNormalClosure, websocket.StatusGoingAway:
			return nil, io.EOF
		}
		return nil, err
	}
	return data, nil
}

func (t *transport) Write(ctx context.Context, frame []byte) error {
	return t.ws.Write(ctx, websocket.MessageText, frame)
}
