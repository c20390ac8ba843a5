// Package ws provides a WebSocket client for the codeloom gateway streams.
package ws

import (
	"context"
	"fmt"
	"strings"

	"github.com/coder/websocket"

	"github.com/codeloom/codeloom/internal/events"
)

// Client reads event frames from a gateway stream.
type Client struct {
	conn   *websocket.Conn
	ctx    context.Context
	cancel context.CancelFunc
}

// dial opens a stream, passing the bearer token as a query parameter since
// browser WebSocket clients cannot set headers on upgrade requests.
func dial(ctx context.Context, url, token string) (*Client, error) {
	sep := "?"
	if strings.Contains(url, "?") {
		sep = "&"
	}
	conn, _, err := websocket.Dial(ctx, url+sep+"token="+token, nil)
	if err != nil {
		return nil, fmt.Errorf("ws dial: %w", err)
	}

	clientCtx, cancel := context.WithCancel(ctx)
	return &Client{conn: conn, ctx: clientCtx, cancel: cancel}, nil
}

// DialGeneration connects to a task's generation stream.
// baseURL is the gateway root, e.g. "ws://localhost:8080".
func DialGeneration(ctx context.Context, baseURL, taskID, token string) (*Client, error) {
	return dial(ctx, strings.TrimSuffix(baseURL, "/")+"/ws/generate/"+taskID, token)
}

// DialPreview connects to a project's live preview stream.
func DialPreview(ctx context.Context, baseURL, projectID, token string) (*Client, error) {
	return dial(ctx, strings.TrimSuffix(baseURL, "/")+"/ws/preview/"+projectID, token)
}

// ReadFrame reads the next event frame from the stream.
func (c *Client) ReadFrame() (events.Frame, error) {
	_, data, err := c.conn.Read(c.ctx)
	if err != nil {
		return events.Frame{}, err
	}
	return events.UnmarshalFrame(data)
}

// Collect reads frames until the terminal end frame, inclusive.
func (c *Client) Collect() ([]events.Frame, error) {
	var frames []events.Frame
	for {
		f, err := c.ReadFrame()
		if err != nil {
			return frames, err
		}
		frames = append(frames, f)
		if f.Type == events.KindEnd {
			return frames, nil
		}
	}
}

// Ping sends a keepalive probe on a preview stream. The gateway answers with
// a literal "pong" text message.
func (c *Client) Ping() error {
	return c.conn.Write(c.ctx, websocket.MessageText, []byte("ping"))
}

// Close gracefully closes the connection.
func (c *Client) Close() error {
	c.cancel()
	return c.conn.Close(websocket.StatusNormalClosure, "bye")
}
