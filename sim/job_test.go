package sim

import (
	"testing"
	"time"
)

func newTestMachine(rate float64) *JobMachine {
	m := NewJobMachine(rate)
	m.now = func() time.Time { return time.Unix(1700000000, 0) }
	return m
}

func TestJobMachine_StartFromIdle(t *testing.T) {
	m := newTestMachine(0.1)

	job, err := m.Start("benchy.gcode")

	if err != nil {
		t.Fatalf("Start error = %v", err)
	}
	if job.State != JobPrinting {
		t.Errorf("state = %s, want %s", job.State, JobPrinting)
	}
	if job.Progress != 0 {
		t.Errorf("progress = %v, want 0", job.Progress)
	}
	if job.ID == "" {
		t.Error("job ID should be assigned")
	}
	if job.StartedAt.IsZero() {
		t.Error("start timestamp should be set")
	}
}

func TestJobMachine_StartWhileActiveIsStateError(t *testing.T) {
	// GIVEN an active print
	m := newTestMachine(0.1)
	if _, err := m.Start("a.gcode"); err != nil {
		t.Fatalf("first Start error = %v", err)
	}

	// WHEN starting again immediately
	_, err := m.Start("b.gcode")

	// THEN it fails with a state error and the original job is untouched
	if KindOf(err) != KindState {
		t.Fatalf("second Start kind = %q, want %q", KindOf(err), KindState)
	}
	job := m.Current()
	if job.State != JobPrinting || job.Filename != "a.gcode" {
		t.Errorf("job = %s %q, want printing a.gcode", job.State, job.Filename)
	}
}

func TestJobMachine_StartSupersedesTerminal(t *testing.T) {
	m := newTestMachine(0.1)
	m.Start("a.gcode")
	if err := m.Cancel(); err != nil {
		t.Fatalf("Cancel error = %v", err)
	}

	job, err := m.Start("b.gcode")

	if err != nil {
		t.Fatalf("Start after terminal error = %v", err)
	}
	if job.Filename != "b.gcode" || job.Progress != 0 {
		t.Errorf("job = %q progress %v, want b.gcode progress 0", job.Filename, job.Progress)
	}
}

func TestJobMachine_StartWithoutFilename(t *testing.T) {
	m := newTestMachine(0.1)

	_, err := m.Start("")

	if KindOf(err) != KindValidation {
		t.Errorf("Start(\"\") kind = %q, want %q", KindOf(err), KindValidation)
	}
}

func TestJobMachine_CancelFreezesProgress(t *testing.T) {
	m := newTestMachine(0.25)
	m.Start("a.gcode")
	m.Tick(0.25)
	m.Tick(0.25)

	if err := m.Cancel(); err != nil {
		t.Fatalf("Cancel error = %v", err)
	}
	// Ticks after cancellation change nothing
	m.Tick(0.25)

	job := m.Current()
	if job.State != JobCancelled {
		t.Errorf("state = %s, want %s", job.State, JobCancelled)
	}
	if job.Progress != 0.5 {
		t.Errorf("progress = %v, want 0.5 (frozen at cancel)", job.Progress)
	}
}

func TestJobMachine_CancelWithNoJobIsIdempotencyError(t *testing.T) {
	m := newTestMachine(0.1)

	err := m.Cancel()

	if KindOf(err) != KindIdempotency {
		t.Errorf("Cancel kind = %q, want %q", KindOf(err), KindIdempotency)
	}
}

func TestJobMachine_PauseResume(t *testing.T) {
	m := newTestMachine(0.25)

	// Pause before any job is a state error
	if KindOf(m.Pause()) != KindState {
		t.Error("Pause from idle should be a state error")
	}

	m.Start("a.gcode")
	if err := m.Pause(); err != nil {
		t.Fatalf("Pause error = %v", err)
	}
	// Paused ticks accrue no progress
	m.Tick(0.25)
	if got := m.Current().Progress; got != 0 {
		t.Errorf("paused progress = %v, want 0", got)
	}
	// Resume from paused only
	if KindOf(m.Pause()) != KindState {
		t.Error("Pause while paused should be a state error")
	}
	if err := m.Resume(); err != nil {
		t.Fatalf("Resume error = %v", err)
	}
	if KindOf(m.Resume()) != KindState {
		t.Error("Resume while printing should be a state error")
	}
}

func TestJobMachine_CompletesInsideTheTick(t *testing.T) {
	// GIVEN a job two ticks from completion
	m := newTestMachine(0.5)
	m.Start("a.gcode")

	m.Tick(0.25)
	if got := m.State(); got != JobPrinting {
		t.Fatalf("after tick 1: state = %s, want printing", got)
	}

	// WHEN the completing tick runs
	m.Tick(0.25)

	// THEN state and progress flip together within that tick
	job := m.Current()
	if job.State != JobComplete {
		t.Errorf("state = %s, want %s", job.State, JobComplete)
	}
	if job.Progress != 1.0 {
		t.Errorf("progress = %v, want exactly 1.0", job.Progress)
	}
}

func TestJobMachine_MirrorSkipsMissingBookkeepingObjects(t *testing.T) {
	// GIVEN a catalog without print_stats or virtual_sdcard
	s, _ := NewStore(heaterCatalog(20, 100), 10)
	m := newTestMachine(0.5)
	m.Start("a.gcode")

	m.Mirror(s)

	if s.Has("print_stats") || s.Has("virtual_sdcard") {
		t.Error("mirror must not create objects absent from the catalog")
	}
}

func TestJobMachine_MirrorWritesJobView(t *testing.T) {
	s, _ := NewStore(DefaultCatalog(), 5)
	m := newTestMachine(0.5)

	// Idle machine mirrors standby
	m.Mirror(s)
	if v, _ := s.Get("print_stats", "state"); v != String("standby") {
		t.Errorf("idle print_stats.state = %v, want standby", v)
	}

	m.Start("a.gcode")
	m.Tick(0.25)
	m.Mirror(s)

	if v, _ := s.Get("print_stats", "filename"); v != String("a.gcode") {
		t.Errorf("print_stats.filename = %v, want a.gcode", v)
	}
	if v, _ := s.Get("print_stats", "state"); v != String("printing") {
		t.Errorf("print_stats.state = %v, want printing", v)
	}
	if v, _ := s.Get("virtual_sdcard", "progress"); v != Number(0.5) {
		t.Errorf("virtual_sdcard.progress = %v, want 0.5", v)
	}
	if v, _ := s.Get("virtual_sdcard", "is_active"); v != Bool(true) {
		t.Errorf("virtual_sdcard.is_active = %v, want true", v)
	}
}
