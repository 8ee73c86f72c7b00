package sim

import "testing"

func gcodeStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(DefaultCatalog(), 5)
	if err != nil {
		t.Fatalf("NewStore error = %v", err)
	}
	return s
}

func TestApplyScript_HeaterTargets(t *testing.T) {
	s := gcodeStore(t)

	if err := ApplyScript(s, "M104 S210\nM140 S60"); err != nil {
		t.Fatalf("ApplyScript error = %v", err)
	}

	if v, _ := s.Get("extruder", "target"); v != Number(210) {
		t.Errorf("extruder target = %v, want 210", v)
	}
	if v, _ := s.Get("heater_bed", "target"); v != Number(60) {
		t.Errorf("heater_bed target = %v, want 60", v)
	}
}

func TestApplyScript_Fan(t *testing.T) {
	s := gcodeStore(t)

	if err := ApplyScript(s, "M106 S127.5"); err != nil {
		t.Fatalf("M106 error = %v", err)
	}
	if v, _ := s.Get("fan", "speed"); v != Number(0.5) {
		t.Errorf("fan speed = %v, want 0.5", v)
	}

	if err := ApplyScript(s, "M107"); err != nil {
		t.Fatalf("M107 error = %v", err)
	}
	if v, _ := s.Get("fan", "speed"); v != Number(0) {
		t.Errorf("fan speed after M107 = %v, want 0", v)
	}
}

func TestApplyScript_HomeAndMove(t *testing.T) {
	s := gcodeStore(t)

	if err := ApplyScript(s, "G28\nG1 X10 Y20.5 Z0.3 F3000"); err != nil {
		t.Fatalf("ApplyScript error = %v", err)
	}

	if v, _ := s.Get("toolhead", "homed_axes"); v != String("xyz") {
		t.Errorf("homed_axes = %v, want xyz", v)
	}
	if v, _ := s.Get("toolhead", "position_x"); v != Number(10) {
		t.Errorf("position_x = %v, want 10", v)
	}
	if v, _ := s.Get("toolhead", "position_y"); v != Number(20.5) {
		t.Errorf("position_y = %v, want 20.5", v)
	}
	if v, _ := s.Get("toolhead", "position_z"); v != Number(0.3) {
		t.Errorf("position_z = %v, want 0.3", v)
	}
}

func TestApplyScript_UnknownCommandsAreNoOpSuccess(t *testing.T) {
	s := gcodeStore(t)

	// Permissive simulator: unrecognized commands, comments, and blank lines
	// all succeed without touching state
	before := s.Snapshot()
	err := ApplyScript(s, "M115\n; a comment\n\nSET_PIN PIN=beeper VALUE=1")

	if err != nil {
		t.Fatalf("unknown commands should be no-op success, got %v", err)
	}
	after := s.Snapshot()
	for name, fields := range before {
		for field, v := range fields {
			if after[name][field] != v {
				t.Errorf("%s.%s changed by unknown command: %v -> %v", name, field, v, after[name][field])
			}
		}
	}
}

func TestApplyScript_MalformedWordIsValidationError(t *testing.T) {
	s := gcodeStore(t)

	err := ApplyScript(s, "M104 Shot")

	if KindOf(err) != KindValidation {
		t.Errorf("kind = %q, want %q", KindOf(err), KindValidation)
	}
}

func TestApplyScript_CaseInsensitive(t *testing.T) {
	s := gcodeStore(t)

	if err := ApplyScript(s, "m104 s200"); err != nil {
		t.Fatalf("ApplyScript error = %v", err)
	}
	if v, _ := s.Get("extruder", "target"); v != Number(200) {
		t.Errorf("extruder target = %v, want 200", v)
	}
}
