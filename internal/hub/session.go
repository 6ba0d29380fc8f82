package hub

import (
	"log"
	"time"

	"github.com/gorilla/websocket"
)

// connSession pairs a Session's ring with the live WebSocket connection
// that services it, plus the bookkeeping its two pumps need to shut
// down cleanly.
type connSession struct {
	*Session
	conn *websocket.Conn
	done chan struct{}
}

// writePump drains the session's ring and writes one text frame per
// iteration until the ring is closed or the session is torn down.
func (cs *connSession) writePump() {
	for {
		select {
		case frame, ok := <-cs.ring:
			if !ok {
				return
			}
			cs.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := cs.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				log.Printf("bridge/hub: session %s: write failed, closing: %v", cs.id, err)
				return
			}
		case <-cs.done:
			return
		}
	}
}

// readPump reads client frames and hands each one to onReceive, which
// broadcasts it to peers (and, by the documented self-echo contract, to
// the sender too) and forwards it to the outbound Kafka queue. readPump
// returns when the connection closes or a read fails.
func (cs *connSession) readPump(onReceive func(payload []byte)) {
	defer close(cs.done)

	for {
		_, payload, err := cs.conn.ReadMessage()
		if err != nil {
			return
		}
		if len(payload) == 0 {
			continue
		}
		onReceive(payload)
	}
}
