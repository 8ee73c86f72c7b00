package sim

import (
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/sirupsen/logrus"
)

// JobState is the lifecycle state of a print job.
type JobState string

const (
	JobIdle      JobState = "idle"
	JobPrinting  JobState = "printing"
	JobPaused    JobState = "paused"
	JobComplete  JobState = "complete"
	JobCancelled JobState = "cancelled"
	JobError     JobState = "error"
)

// Terminal reports whether the state is one a new Start may supersede.
func (s JobState) Terminal() bool {
	return s == JobComplete || s == JobCancelled || s == JobError
}

// Active reports whether a job currently holds the printer.
func (s JobState) Active() bool {
	return s == JobPrinting || s == JobPaused
}

// Job is the singleton print job. A terminal job is retained until the next
// Start overwrites it.
type Job struct {
	ID        string
	Filename  string
	State     JobState
	Progress  float64
	StartedAt time.Time

	// PrintDuration counts seconds spent printing; TotalDuration also counts
	// paused time.
	PrintDuration float64
	TotalDuration float64
}

// JobMachine advances the print-job state machine. Owned by the engine loop,
// mutated only by control commands and Tick.
type JobMachine struct {
	job *Job

	// rate is the progress gained per printing tick.
	rate float64

	now func() time.Time
}

// NewJobMachine builds a machine that gains rate progress per printing tick.
func NewJobMachine(rate float64) *JobMachine {
	return &JobMachine{rate: rate, now: time.Now}
}

// State returns the current state, JobIdle when no job has ever started.
func (m *JobMachine) State() JobState {
	if m.job == nil {
		return JobIdle
	}
	return m.job.State
}

// Current returns a copy of the job, or nil if none has started.
func (m *JobMachine) Current() *Job {
	if m.job == nil {
		return nil
	}
	j := *m.job
	return &j
}

// Start begins a new print. Legal only from idle or a terminal state; a prior
// terminal job is discarded.
func (m *JobMachine) Start(filename string) (*Job, error) {
	if filename == "" {
		return nil, Errorf(KindValidation, "print start requires a filename")
	}
	if state := m.State(); state.Active() {
		return nil, Errorf(KindState, "job already active (state %s, file %q)", state, m.job.Filename)
	}
	m.job = &Job{
		ID:        ulid.Make().String(),
		Filename:  filename,
		State:     JobPrinting,
		StartedAt: m.now(),
	}
	logrus.Infof("job %s: printing %q", m.job.ID, filename)
	return m.Current(), nil
}

// Cancel stops the active job, freezing progress. Cancelling with no active
// job is a redundant no-op reported as an idempotency error, never fatal.
func (m *JobMachine) Cancel() error {
	if !m.State().Active() {
		return Errorf(KindIdempotency, "no active job to cancel")
	}
	m.job.State = JobCancelled
	logrus.Infof("job %s: cancelled at %.1f%%", m.job.ID, m.job.Progress*100)
	return nil
}

// Pause suspends a printing job.
func (m *JobMachine) Pause() error {
	if m.State() != JobPrinting {
		return Errorf(KindState, "cannot pause from state %s", m.State())
	}
	m.job.State = JobPaused
	return nil
}

// Resume continues a paused job.
func (m *JobMachine) Resume() error {
	if m.State() != JobPaused {
		return Errorf(KindState, "cannot resume from state %s", m.State())
	}
	m.job.State = JobPrinting
	return nil
}

// Fail moves an active job to the error terminal state.
func (m *JobMachine) Fail() error {
	if !m.State().Active() {
		return Errorf(KindState, "no active job to fail")
	}
	m.job.State = JobError
	return nil
}

// Tick advances the active job by one simulation step of elapsed seconds.
// Progress completing at 1.0 flips the state to complete within the same tick,
// so observers always see complete and progress=1.0 together.
func (m *JobMachine) Tick(elapsed float64) {
	if m.job == nil {
		return
	}
	switch m.job.State {
	case JobPrinting:
		m.job.PrintDuration += elapsed
		m.job.TotalDuration += elapsed
		m.job.Progress += m.rate
		if m.job.Progress >= 1.0 {
			m.job.Progress = 1.0
			m.job.State = JobComplete
			logrus.Infof("job %s: complete", m.job.ID)
		}
	case JobPaused:
		m.job.TotalDuration += elapsed
	}
}

// Mirror writes the job view into the store's print_stats and virtual_sdcard
// objects. Called within the same tick or command that mutated the job, which
// keeps the store and the machine atomic with respect to the broadcaster.
// A catalog override may omit the bookkeeping objects; the discarded Set
// errors below make the mirror a no-op for those catalogs.
func (m *JobMachine) Mirror(s *Store) {
	state := "standby"
	filename := ""
	progress := 0.0
	printDuration := 0.0
	totalDuration := 0.0
	if m.job != nil {
		state = string(m.job.State)
		filename = m.job.Filename
		progress = m.job.Progress
		printDuration = m.job.PrintDuration
		totalDuration = m.job.TotalDuration
	}
	_ = s.Set("print_stats", "state", String(state))
	_ = s.Set("print_stats", "filename", String(filename))
	_ = s.Set("print_stats", "print_duration", Number(printDuration))
	_ = s.Set("print_stats", "total_duration", Number(totalDuration))
	_ = s.Set("virtual_sdcard", "progress", Number(progress))
	_ = s.Set("virtual_sdcard", "is_active", Bool(m.State() == JobPrinting))
	_ = s.Set("virtual_sdcard", "file_path", String(filename))
}
