package livemap

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

// handshakeTimeout bounds the websocket opening handshake.
const handshakeTimeout = 10 * time.Second

// MessageHandler receives each text message from the push channel.
type MessageHandler func(data []byte) error

// Subscribe connects to the push channel at url and feeds every message to
// handle until ctx is cancelled or the connection drops. It does not
// reconnect.
//
// Returns:
//   - nil when ctx was cancelled or the hub closed the connection normally
//   - error: If the dial fails or the connection breaks
func Subscribe(ctx context.Context, url string, handle MessageHandler, logger Logger) error {
	if logger == nil {
		logger = noopLogger{}
	}

	dialer := websocket.Dialer{
		Proxy:            http.ProxyFromEnvironment,
		HandshakeTimeout: handshakeTimeout,
	}
	conn, resp, err := dialer.DialContext(ctx, url, nil)
	if err != nil {
		logger.Error("push channel dial failed", "url", url, "error", err)
		return fmt.Errorf("dialing %s: %w", url, err)
	}
	if resp != nil && resp.Body != nil {
		resp.Body.Close() //nolint:errcheck // Upgrade response has no body
	}
	logger.Info("push channel open", "url", url)

	stop := context.AfterFunc(ctx, func() {
		//nolint:errcheck // Best-effort close frame
		conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
		conn.Close() //nolint:errcheck // Unblocks ReadMessage
	})
	defer stop()
	defer conn.Close() //nolint:errcheck // Closing on exit

	for {
		kind, data, err := conn.ReadMessage()
		if err != nil {
			switch {
			case ctx.Err() != nil:
				logger.Info("push channel closed", "url", url)
				return nil
			case websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway):
				logger.Info("push channel closed by hub", "url", url)
				return nil
			default:
				logger.Error("push channel error", "url", url, "error", err)
				return fmt.Errorf("reading push channel: %w", err)
			}
		}
		if kind != websocket.TextMessage {
			continue
		}
		if err := handle(data); err != nil && !errors.Is(err, ErrMalformedMessage) && !errors.Is(err, ErrUnknownRoom) {
			logger.Warn("handling push message", "error", err)
		}
	}
}
