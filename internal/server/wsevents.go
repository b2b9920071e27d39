package server

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"nhooyr.io/websocket"
)

// handleGameWS streams state updates over a WebSocket. It is the same feed
// as the SSE endpoint for clients that prefer sockets.
func handleGameWS(d *deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := sessionID(r)
		sess, err := d.engine.State(r.Context(), id)
		if err != nil {
			writeEngineError(w, d.logger, err)
			return
		}

		conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			InsecureSkipVerify: true,
		})
		if err != nil {
			d.logger.Error("websocket accept failed", "error", err)
			return
		}
		defer conn.CloseNow()

		ch := d.broker.Subscribe(id)
		defer d.broker.Unsubscribe(id, ch)

		// Client messages are ignored; CloseRead cancels ctx once the peer goes away.
		ctx := conn.CloseRead(r.Context())

		initial, _ := json.Marshal(d.state(sess))
		if err := writeWS(ctx, conn, initial); err != nil {
			d.logger.Debug("websocket write failed", "error", err)
			return
		}

		ping := time.NewTicker(30 * time.Second)
		defer ping.Stop()

		for {
			select {
			case <-ctx.Done():
				conn.Close(websocket.StatusNormalClosure, "")
				return
			case data := <-ch:
				if err := writeWS(ctx, conn, data); err != nil {
					d.logger.Debug("websocket write failed", "error", err)
					return
				}
			case <-ping.C:
				pctx, cancel := context.WithTimeout(ctx, 10*time.Second)
				err := conn.Ping(pctx)
				cancel()
				if err != nil {
					d.logger.Debug("websocket ping failed", "error", err)
					return
				}
			}
		}
	}
}

func writeWS(ctx context.Context, conn *websocket.Conn, data []byte) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	return conn.Write(ctx, websocket.MessageText, data)
}
