package server

import (
	"encoding/json"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/oklog/ulid/v2"
	"github.com/sirupsen/logrus"

	"github.com/moonraker-sim/moonraker-sim/sim"
)

// sendQueueDepth bounds each connection's outbound buffer. A connection that
// falls this far behind is torn down instead of delaying the tick loop.
const sendQueueDepth = 64

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	// Development server; the original accepted any origin too.
	CheckOrigin: func(*http.Request) bool { return true },
}

// Hub tracks live websocket connections for counting and shutdown.
type Hub struct {
	mu    sync.Mutex
	conns map[sim.ConnID]*wsConn
}

// NewHub builds an empty hub.
func NewHub() *Hub {
	return &Hub{conns: make(map[sim.ConnID]*wsConn)}
}

// Count returns the number of live connections.
func (h *Hub) Count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.conns)
}

// CloseAll tears down every connection, used at server shutdown.
func (h *Hub) CloseAll() {
	h.mu.Lock()
	conns := make([]*wsConn, 0, len(h.conns))
	for _, c := range h.conns {
		conns = append(conns, c)
	}
	h.mu.Unlock()
	for _, c := range conns {
		c.close()
	}
}

func (h *Hub) add(c *wsConn) {
	h.mu.Lock()
	h.conns[c.id] = c
	h.mu.Unlock()
}

func (h *Hub) remove(id sim.ConnID) {
	h.mu.Lock()
	delete(h.conns, id)
	h.mu.Unlock()
}

// wsConn is one websocket client: the socket, its bounded outbound queue, and
// the sim.Sink implementation the broadcaster pushes deltas through.
type wsConn struct {
	id   sim.ConnID
	sock *websocket.Conn
	send chan []byte

	closeOnce sync.Once
	closed    chan struct{}
}

// SendStatusUpdate implements sim.Sink. Runs on the engine loop goroutine and
// never blocks: the frame is queued, or the socket is closed and the send
// reported failed. Closing here means the client observes the disconnect; the
// engine dropping the subscription alone would leave a live connection whose
// re-subscribes are accepted but never notify.
func (c *wsConn) SendStatusUpdate(status sim.Status) error {
	frame, err := json.Marshal(NewNotify("notify_status_update", []any{status}))
	if err != nil {
		return err
	}
	if err := c.enqueue(frame); err != nil {
		c.close()
		return err
	}
	return nil
}

// enqueue places a frame on the outbound queue without blocking.
func (c *wsConn) enqueue(frame []byte) error {
	select {
	case <-c.closed:
		return sim.Errorf(sim.KindTransport, "connection %s is closed", c.id)
	default:
	}
	select {
	case c.send <- frame:
		return nil
	default:
		return sim.Errorf(sim.KindTransport, "connection %s send queue full", c.id)
	}
}

// close is idempotent and unblocks both pumps.
func (c *wsConn) close() {
	c.closeOnce.Do(func() {
		close(c.closed)
		_ = c.sock.Close()
	})
}

// writePump is the single writer for the socket. One writer per connection
// preserves tick order of notifications regardless of broadcast asynchrony.
func (c *wsConn) writePump() {
	for {
		select {
		case frame := <-c.send:
			if err := c.sock.WriteMessage(websocket.TextMessage, frame); err != nil {
				logrus.Warnf("ws %s: write failed: %v", c.id, err)
				c.close()
				return
			}
		case <-c.closed:
			return
		}
	}
}

// readPump decodes inbound frames and hands them to the dispatcher. Responses
// are enqueued through reply, inside the engine-loop step that produced them.
// Returns when the peer disconnects or the socket errors.
func (c *wsConn) readPump(disp *Dispatcher) {
	for {
		_, frame, err := c.sock.ReadMessage()
		if err != nil {
			logrus.Debugf("ws %s: read loop ending: %v", c.id, err)
			return
		}
		disp.dispatch(c.id, frame, c.reply)
		select {
		case <-c.closed:
			return
		default:
		}
	}
}

// reply marshals and enqueues one response. Runs inside the engine-loop step
// that served the request, so the response is ordered ahead of any later
// tick's notifications. A failed enqueue closes the connection.
func (c *wsConn) reply(resp *Response) {
	data, err := json.Marshal(resp)
	if err != nil {
		logrus.Errorf("ws %s: marshal response: %v", c.id, err)
		return
	}
	if err := c.enqueue(data); err != nil {
		logrus.Warnf("ws %s: dropping connection: %v", c.id, err)
		c.close()
	}
}

// WSHandler upgrades requests on the websocket endpoint and runs the
// connection until it closes. Closing always funnels through engine
// Disconnect, which is idempotent.
func WSHandler(loop *sim.Loop, disp *Dispatcher, hub *Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sock, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			logrus.Warnf("ws: upgrade failed: %v", err)
			return
		}
		conn := &wsConn{
			id:     sim.ConnID(ulid.Make().String()),
			sock:   sock,
			send:   make(chan []byte, sendQueueDepth),
			closed: make(chan struct{}),
		}
		hub.add(conn)
		logrus.Infof("ws %s: client connected", conn.id)

		if err := loop.Do(func(e *sim.Engine) { e.Connect(conn.id, conn) }); err != nil {
			logrus.Warnf("ws %s: engine unavailable: %v", conn.id, err)
			hub.remove(conn.id)
			conn.close()
			return
		}

		// Connection greeting, matching the original server's behavior.
		greeting, _ := json.Marshal(NewNotify("connected", map[string]any{
			"connection_id": string(conn.id),
		}))
		_ = conn.enqueue(greeting)

		go conn.writePump()
		conn.readPump(disp)

		conn.close()
		hub.remove(conn.id)
		_ = loop.Do(func(e *sim.Engine) { e.Disconnect(conn.id) })
		logrus.Infof("ws %s: client disconnected", conn.id)
	}
}
