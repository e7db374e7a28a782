package httpapi

import (
	"bytes"
	"context"
	"net/http"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/germanamz/agentic/pkg/transcript"
)

// Stream message types sent by /ask/stream.
const (
	streamFragment = "fragment"
	streamResponse = "response"
	streamError    = "error"
)

// streamMessage is one server-to-client WebSocket message.
type streamMessage struct {
	Type     string          `json:"type"`
	Kind     transcript.Kind `json:"kind,omitempty"`
	Text     string          `json:"text,omitempty"`
	Response *string         `json:"response,omitempty"`
	Error    *apiError       `json:"error,omitempty"`
}

// askStream runs one query per connection. The client sends {"query": ...};
// the server sends a fragment message per transcript fragment, then either a
// response or an error message, and closes the connection.
func (h *handlers) askStream(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		h.log.WarnContext(r.Context(), "websocket accept failed", "error", err)
		return
	}
	defer func() { _ = conn.CloseNow() }()

	conn.SetReadLimit(h.maxBody)

	ctx := r.Context()

	_, data, err := conn.Read(ctx)
	if err != nil {
		h.log.DebugContext(ctx, "websocket read failed", "error", err)
		return
	}

	query, err := decodeAsk(bytes.NewReader(data))
	if err != nil {
		h.sendError(ctx, conn, err)
		return
	}

	// The client sends nothing more; a close from its side cancels the run.
	ctx = conn.CloseRead(ctx)

	var writeErr error
	res, err := h.svc.Ask(ctx, query, func(f transcript.Fragment) {
		if writeErr != nil {
			return
		}
		writeErr = wsjson.Write(ctx, conn, streamMessage{Type: streamFragment, Kind: f.Kind, Text: f.Text})
	})
	if err != nil {
		h.log.ErrorContext(ctx, "ask failed", "error", err)
		h.sendError(ctx, conn, err)
		return
	}
	if writeErr != nil {
		h.log.DebugContext(ctx, "websocket write failed", "error", writeErr)
		return
	}

	response := res.Response()
	if err := wsjson.Write(ctx, conn, streamMessage{Type: streamResponse, Response: &response}); err != nil {
		h.log.DebugContext(ctx, "websocket write failed", "error", err)
		return
	}

	_ = conn.Close(websocket.StatusNormalClosure, "")
}

func (h *handlers) sendError(ctx context.Context, conn *websocket.Conn, err error) {
	_, e := mapError(err)
	if werr := wsjson.Write(ctx, conn, streamMessage{Type: streamError, Error: &e}); werr != nil {
		return
	}
	_ = conn.Close(websocket.StatusNormalClosure, "")
}
