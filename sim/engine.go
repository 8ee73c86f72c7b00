package sim

import (
	"time"

	"github.com/sirupsen/logrus"
)

// Config carries the tunables of the simulated printer.
type Config struct {
	// Catalog is the object set built at startup. Zero value means DefaultCatalog.
	Catalog Catalog

	// TickPeriod is the interval between simulation ticks. Configuration, not a
	// protocol guarantee.
	TickPeriod time.Duration

	// HeaterStep bounds heater temperature movement per tick, in degrees.
	HeaterStep float64

	// ProgressRate is the print progress gained per printing tick.
	ProgressRate float64
}

// withDefaults fills unset fields.
func (c Config) withDefaults() Config {
	if len(c.Catalog.Objects) == 0 {
		c.Catalog = DefaultCatalog()
	}
	if c.TickPeriod <= 0 {
		c.TickPeriod = 250 * time.Millisecond
	}
	if c.HeaterStep <= 0 {
		c.HeaterStep = 5.0
	}
	if c.ProgressRate <= 0 {
		c.ProgressRate = 0.01
	}
	return c
}

// Engine is the single owner of all simulated state: the object store, the job
// machine, the subscription registry, and the broadcaster's per-connection
// baselines. It is not goroutine-safe; Loop serializes access to it.
type Engine struct {
	store *Store
	jobs  *JobMachine
	reg   *Registry
	bcast *Broadcaster

	cfg   Config
	ticks int64
}

// NewEngine builds an engine from cfg.
func NewEngine(cfg Config) (*Engine, error) {
	cfg = cfg.withDefaults()
	store, err := NewStore(cfg.Catalog, cfg.HeaterStep)
	if err != nil {
		return nil, err
	}
	e := &Engine{
		store: store,
		jobs:  NewJobMachine(cfg.ProgressRate),
		reg:   NewRegistry(),
		bcast: NewBroadcaster(),
		cfg:   cfg,
	}
	// print_stats/virtual_sdcard reflect the job machine from the start.
	e.jobs.Mirror(e.store)
	return e, nil
}

// TickPeriod returns the configured tick interval.
func (e *Engine) TickPeriod() time.Duration {
	return e.cfg.TickPeriod
}

// Eventtime is the simulated clock in seconds, ticks elapsed × tick period.
func (e *Engine) Eventtime() float64 {
	return float64(e.ticks) * e.cfg.TickPeriod.Seconds()
}

// Tick advances the whole simulation one step: the store, then the job machine
// and its mirror into the store, then the broadcast. State advancement
// completes before any delta is computed, so subscribers observe job state and
// progress together, never a transient pair.
func (e *Engine) Tick() {
	e.store.Tick()
	e.jobs.Tick(e.cfg.TickPeriod.Seconds())
	e.jobs.Mirror(e.store)
	e.ticks++
	for _, conn := range e.bcast.Broadcast(e.reg, e.store) {
		e.Disconnect(conn)
	}
}

// Connect registers a connection's notification sink.
func (e *Engine) Connect(conn ConnID, sink Sink) {
	logrus.Infof("engine: connection %s attached", conn)
	e.bcast.Attach(conn, sink)
}

// Disconnect removes the connection's subscription and baseline. Idempotent;
// closing a connection twice is harmless.
func (e *Engine) Disconnect(conn ConnID) {
	e.reg.UnsubscribeAll(conn)
	e.bcast.Detach(conn)
}

// Subscribe records the filter for the connection and returns a full snapshot
// of the requested values, which also seeds the connection's delta baseline.
// Unknown object names fail the whole call and leave the subscription unchanged.
func (e *Engine) Subscribe(conn ConnID, filter Filter) (Status, error) {
	if err := e.reg.Subscribe(conn, filter, e.store); err != nil {
		return nil, err
	}
	snapshot := e.store.Query(map[string][]string(e.reg.Snapshot(conn)))
	e.bcast.Seed(conn, snapshot)
	return snapshot, nil
}

// List returns the catalog's object names in order.
func (e *Engine) List() []string {
	return e.store.List()
}

// Query resolves object/field requests; unknown names are silently omitted.
func (e *Engine) Query(req map[string][]string) Status {
	return e.store.Query(req)
}

// StartPrint begins a new job and mirrors it into the store immediately, so
// the response and any following query observe the mutation.
func (e *Engine) StartPrint(filename string) (*Job, error) {
	job, err := e.jobs.Start(filename)
	if err != nil {
		return nil, err
	}
	e.jobs.Mirror(e.store)
	return job, nil
}

// CancelPrint cancels the active job.
func (e *Engine) CancelPrint() error {
	if err := e.jobs.Cancel(); err != nil {
		return err
	}
	e.jobs.Mirror(e.store)
	return nil
}

// PausePrint pauses the active job.
func (e *Engine) PausePrint() error {
	if err := e.jobs.Pause(); err != nil {
		return err
	}
	e.jobs.Mirror(e.store)
	return nil
}

// ResumePrint resumes a paused job.
func (e *Engine) ResumePrint() error {
	if err := e.jobs.Resume(); err != nil {
		return err
	}
	e.jobs.Mirror(e.store)
	return nil
}

// Job returns a copy of the current job, nil if none has started.
func (e *Engine) Job() *Job {
	return e.jobs.Current()
}

// JobState returns the job machine state.
func (e *Engine) JobState() JobState {
	return e.jobs.State()
}

// RunGcode applies a gcode script to the store. Writes take effect no later
// than the next tick's broadcast.
func (e *Engine) RunGcode(script string) error {
	logrus.Infof("engine: gcode script %q", script)
	return ApplyScript(e.store, script)
}
