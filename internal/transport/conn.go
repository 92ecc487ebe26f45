// Package transport wires gorilla/websocket connections into the signaling
// dispatcher's ingress queue.
package transport

import (
	"context"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/fathomrtc/signalcore/internal/logging"
	"github.com/fathomrtc/signalcore/internal/signaling"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
	sendBuffer = 256
)

// wsConn adapts a *websocket.Conn to signaling.ConnHandle. Writes are
// queued onto a buffered channel and flushed by a dedicated writePump
// goroutine, following the teacher's readPump/writePump split: the
// WebSocket connection itself is not safe for concurrent writes, so every
// write — dispatcher-originated frames, which arrive through this channel,
// and the connection's own ping frames — is made by that one goroutine.
type wsConn struct {
	conn *websocket.Conn
	send chan []byte

	closeOnce sync.Once
	closed    chan struct{}
}

func newWSConn(conn *websocket.Conn) *wsConn {
	return &wsConn{
		conn:   conn,
		send:   make(chan []byte, sendBuffer),
		closed: make(chan struct{}),
	}
}

// Send queues a frame for delivery. Non-blocking: a slow or wedged client
// cannot stall the dispatcher goroutine that calls Send.
func (w *wsConn) Send(frame []byte) error {
	select {
	case <-w.closed:
		return websocket.ErrCloseSent
	default:
	}

	select {
	case w.send <- frame:
		return nil
	default:
		logging.Warn(context.Background(), "client send buffer full, dropping connection")
		w.Close()
		return websocket.ErrCloseSent
	}
}

// Close shuts the connection down idempotently.
func (w *wsConn) Close() error {
	w.closeOnce.Do(func() {
		close(w.closed)
		_ = w.conn.Close()
	})
	return nil
}

// writePump drains the send channel onto the wire and keeps the connection
// alive with periodic pings. Runs until the connection is closed.
func (w *wsConn) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		w.Close()
	}()

	for {
		select {
		case frame, ok := <-w.send:
			_ = w.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = w.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := w.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				return
			}
		case <-ticker.C:
			_ = w.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := w.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-w.closed:
			return
		}
	}
}

// readPump blocks reading frames off the connection and feeds them to the
// dispatcher until the connection errors or closes, mirroring the
// teacher's Client.readPump. Runs on the goroutine that accepted the
// connection; writePump runs separately so a blocked write never stalls
// reads.
func (w *wsConn) readPump(d *signaling.Dispatcher) {
	defer func() {
		d.OnClosed(w)
		w.Close()
	}()

	_ = w.conn.SetReadDeadline(time.Now().Add(pongWait))
	w.conn.SetPongHandler(func(string) error {
		_ = w.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		messageType, data, err := w.conn.ReadMessage()
		if err != nil {
			return
		}
		if messageType != websocket.TextMessage {
			continue
		}
		d.OnReceived(w, data)
	}
}
