package sim

import "testing"

// captureSink records status updates; fail makes every send error.
type captureSink struct {
	sent []Status
	fail bool
}

func (c *captureSink) SendStatusUpdate(status Status) error {
	if c.fail {
		return Errorf(KindTransport, "sink closed")
	}
	c.sent = append(c.sent, status)
	return nil
}

func TestBroadcaster_OnlyChangedFieldsAreSent(t *testing.T) {
	// GIVEN a subscriber seeded with the current snapshot
	s, _ := NewStore(heaterCatalog(20, 100), 10)
	r := NewRegistry()
	b := NewBroadcaster()
	sink := &captureSink{}
	b.Attach("c1", sink)
	r.Subscribe("c1", Filter{"heater_bed": nil}, s)
	b.Seed("c1", s.Query(map[string][]string{"heater_bed": nil}))

	// WHEN one tick changes the temperature
	s.Tick()
	dead := b.Broadcast(r, s)

	// THEN one notification carries only the changed field
	if len(dead) != 0 {
		t.Fatalf("dead = %v, want none", dead)
	}
	if len(sink.sent) != 1 {
		t.Fatalf("sent = %d notifications, want 1", len(sink.sent))
	}
	delta := sink.sent[0]
	if got := delta["heater_bed"]["temperature"]; got != Number(30) {
		t.Errorf("delta temperature = %v, want 30", got)
	}
	if _, ok := delta["heater_bed"]["target"]; ok {
		t.Error("unchanged target field leaked into delta")
	}
}

func TestBroadcaster_NoChangesNoNotification(t *testing.T) {
	// GIVEN a heater already at its target
	s, _ := NewStore(heaterCatalog(100, 100), 10)
	r := NewRegistry()
	b := NewBroadcaster()
	sink := &captureSink{}
	b.Attach("c1", sink)
	r.Subscribe("c1", Filter{"heater_bed": nil}, s)
	b.Seed("c1", s.Query(map[string][]string{"heater_bed": nil}))

	// WHEN several ticks produce no field changes
	for i := 0; i < 5; i++ {
		s.Tick()
		b.Broadcast(r, s)
	}

	// THEN the subscriber receives nothing, no empty notifications
	if len(sink.sent) != 0 {
		t.Errorf("sent = %d notifications, want 0", len(sink.sent))
	}
}

func TestBroadcaster_LateSubscriberGetsIndependentDeltas(t *testing.T) {
	// GIVEN c1 subscribed from the start
	s, _ := NewStore(heaterCatalog(20, 100), 10)
	r := NewRegistry()
	b := NewBroadcaster()
	first := &captureSink{}
	b.Attach("c1", first)
	r.Subscribe("c1", Filter{"heater_bed": {"temperature"}}, s)
	b.Seed("c1", s.Query(map[string][]string{"heater_bed": {"temperature"}}))

	// WHEN two ticks pass before c2 subscribes
	for i := 0; i < 2; i++ {
		s.Tick()
		b.Broadcast(r, s)
	}
	second := &captureSink{}
	b.Attach("c2", second)
	r.Subscribe("c2", Filter{"heater_bed": {"temperature"}}, s)
	b.Seed("c2", s.Query(map[string][]string{"heater_bed": {"temperature"}})) // full snapshot at 40

	s.Tick()
	b.Broadcast(r, s)

	// THEN c2's first notification is only the post-subscribe change; the
	// changes it missed arrived in its snapshot, never as a delta
	if len(second.sent) != 1 {
		t.Fatalf("late subscriber sent = %d, want 1", len(second.sent))
	}
	if got := second.sent[0]["heater_bed"]["temperature"]; got != Number(50) {
		t.Errorf("late subscriber first delta = %v, want 50", got)
	}
	if len(first.sent) != 3 {
		t.Errorf("original subscriber sent = %d, want 3", len(first.sent))
	}
}

func TestBroadcaster_FailedSendReportsConnection(t *testing.T) {
	// GIVEN one healthy and one dead subscriber
	s, _ := NewStore(heaterCatalog(20, 100), 10)
	r := NewRegistry()
	b := NewBroadcaster()
	healthy := &captureSink{}
	broken := &captureSink{fail: true}
	b.Attach("c1", healthy)
	b.Attach("c2", broken)
	r.Subscribe("c1", Filter{"heater_bed": nil}, s)
	r.Subscribe("c2", Filter{"heater_bed": nil}, s)
	b.Seed("c1", s.Snapshot())
	b.Seed("c2", s.Snapshot())

	s.Tick()
	dead := b.Broadcast(r, s)

	// THEN the dead connection is reported and the healthy one still got its
	// notification
	if len(dead) != 1 || dead[0] != "c2" {
		t.Fatalf("dead = %v, want [c2]", dead)
	}
	if len(healthy.sent) != 1 {
		t.Errorf("healthy subscriber sent = %d, want 1", len(healthy.sent))
	}
}

func TestBroadcaster_DetachIdempotent(t *testing.T) {
	b := NewBroadcaster()
	b.Attach("c1", &captureSink{})

	b.Detach("c1")
	b.Detach("c1")
}
