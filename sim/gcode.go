package sim

import (
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"
)

// ApplyScript runs a gcode script against the store, one command per line.
// The recognized subset is the minimum a client simulator needs:
//
//	M104 Sn   set extruder target temperature
//	M140 Sn   set bed target temperature
//	M106 Sn   set part fan speed (0-255, scaled to 0..1)
//	M107      part fan off
//	G28       home all axes
//	G0 / G1   move toolhead ([Xn] [Yn] [Zn])
//
// Anything else is a no-op success, matching a permissive simulator. A
// recognized command with an unparseable argument is a validation error.
func ApplyScript(store *Store, script string) error {
	for _, line := range strings.Split(script, "\n") {
		if err := applyLine(store, line); err != nil {
			return err
		}
	}
	return nil
}

func applyLine(store *Store, line string) error {
	if i := strings.IndexByte(line, ';'); i >= 0 {
		line = line[:i]
	}
	words := strings.Fields(line)
	if len(words) == 0 {
		return nil
	}
	cmd := strings.ToUpper(words[0])
	args := words[1:]

	switch cmd {
	case "M104":
		return setHeaterTarget(store, "extruder", args)
	case "M140":
		return setHeaterTarget(store, "heater_bed", args)
	case "M106":
		raw, err := argValue(args, 'S', 255)
		if err != nil {
			return err
		}
		setIfPresent(store, "fan", "speed", Number(raw/255.0))
		return nil
	case "M107":
		setIfPresent(store, "fan", "speed", Number(0.0))
		return nil
	case "G28":
		for _, axis := range []string{"position_x", "position_y", "position_z"} {
			setIfPresent(store, "toolhead", axis, Number(0.0))
		}
		setIfPresent(store, "toolhead", "homed_axes", String("xyz"))
		return nil
	case "G0", "G1":
		return moveToolhead(store, args)
	default:
		logrus.Debugf("gcode: ignoring %q", cmd)
		return nil
	}
}

// setIfPresent writes the field when the catalog has the object. Catalogs that
// omit an object turn the command into a no-op, keeping gcode permissive.
func setIfPresent(store *Store, object, field string, v Value) {
	if store.Has(object) {
		_ = store.Set(object, field, v)
	}
}

func setHeaterTarget(store *Store, object string, args []string) error {
	v, err := argValue(args, 'S', 0)
	if err != nil {
		return err
	}
	setIfPresent(store, object, "target", Number(v))
	return nil
}

func moveToolhead(store *Store, args []string) error {
	for _, arg := range args {
		if len(arg) < 2 {
			return Errorf(KindValidation, "malformed gcode word %q", arg)
		}
		axis := ""
		switch arg[0] | 0x20 { // lower-case the letter
		case 'x':
			axis = "position_x"
		case 'y':
			axis = "position_y"
		case 'z':
			axis = "position_z"
		case 'f', 'e':
			continue // feedrate and extrusion words are accepted and ignored
		default:
			continue
		}
		v, err := strconv.ParseFloat(arg[1:], 64)
		if err != nil {
			return Errorf(KindValidation, "malformed gcode word %q", arg)
		}
		setIfPresent(store, "toolhead", axis, Number(v))
	}
	return nil
}

// argValue extracts the numeric value of the word starting with letter, e.g.
// S210. Returns def when the word is absent.
func argValue(args []string, letter byte, def float64) (float64, error) {
	for _, arg := range args {
		if len(arg) >= 1 && (arg[0] == letter || arg[0] == letter|0x20) {
			v, err := strconv.ParseFloat(arg[1:], 64)
			if err != nil {
				return 0, Errorf(KindValidation, "malformed gcode word %q", arg)
			}
			return v, nil
		}
	}
	return def, nil
}
