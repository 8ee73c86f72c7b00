package sim

import (
	"github.com/sirupsen/logrus"
)

// Sink delivers status notifications to one connection. Implementations must
// not block the caller; buffer or fail instead (the websocket transport uses a
// bounded outbound queue).
type Sink interface {
	SendStatusUpdate(status Status) error
}

// Broadcaster tracks, per connection, the last values actually sent, and pushes
// only the fields that changed since. The side table is keyed by connection
// identity rather than embedded in the transport so delta computation is
// testable without a network connection.
type Broadcaster struct {
	sinks    map[ConnID]Sink
	lastSent map[ConnID]Status
}

// NewBroadcaster builds an empty broadcaster.
func NewBroadcaster() *Broadcaster {
	return &Broadcaster{
		sinks:    make(map[ConnID]Sink),
		lastSent: make(map[ConnID]Status),
	}
}

// Attach registers the connection's sink.
func (b *Broadcaster) Attach(conn ConnID, sink Sink) {
	b.sinks[conn] = sink
	b.lastSent[conn] = make(Status)
}

// Detach forgets the connection. Idempotent.
func (b *Broadcaster) Detach(conn ConnID) {
	delete(b.sinks, conn)
	delete(b.lastSent, conn)
}

// Seed records snapshot values as already sent to the connection. Called with
// the full snapshot returned by a subscribe, so a late subscriber's first delta
// is computed against data it has actually seen.
func (b *Broadcaster) Seed(conn ConnID, snapshot Status) {
	base, ok := b.lastSent[conn]
	if !ok {
		return
	}
	for name, fields := range snapshot {
		if base[name] == nil {
			base[name] = make(Fields, len(fields))
		}
		for field, v := range fields {
			base[name][field] = v
		}
	}
}

// Broadcast computes and sends one delta per subscribed connection, then
// advances each connection's baseline to the values just sent. Connections
// whose delta is empty receive nothing. Returns the connections whose sink
// rejected the send; the engine tears those down.
func (b *Broadcaster) Broadcast(reg *Registry, store *Store) []ConnID {
	var dead []ConnID
	for _, conn := range reg.Connections() {
		sink, ok := b.sinks[conn]
		if !ok {
			continue
		}
		filter := reg.Snapshot(conn)
		if len(filter) == 0 {
			continue
		}
		current := store.Query(map[string][]string(filter))
		delta := diffStatus(b.lastSent[conn], current)
		if len(delta) == 0 {
			continue
		}
		if err := sink.SendStatusUpdate(delta); err != nil {
			logrus.Warnf("broadcast: dropping connection %s: %v", conn, err)
			dead = append(dead, conn)
			continue
		}
		b.Seed(conn, delta)
	}
	return dead
}

// diffStatus returns the object/field pairs in cur whose value differs from
// prev. A field absent from prev counts as changed.
func diffStatus(prev, cur Status) Status {
	delta := make(Status)
	for name, fields := range cur {
		prevFields := prev[name]
		for field, v := range fields {
			old, seen := prevFields[field]
			if seen && old == v {
				continue
			}
			if delta[name] == nil {
				delta[name] = make(Fields)
			}
			delta[name][field] = v
		}
	}
	return delta
}
