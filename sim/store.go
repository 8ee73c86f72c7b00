package sim

import (
	"github.com/sirupsen/logrus"
)

// AmbientTemperature is where heater temperatures settle when their target is 0.
const AmbientTemperature = 25.0

// Store is the object state store. It owns every printer object and advances
// their simulated fields once per Tick. The store itself is not goroutine-safe;
// the engine loop is its single owner.
type Store struct {
	order   []string
	objects map[string]*object

	// heaterStep bounds how far a heater temperature moves per tick.
	heaterStep float64
}

type object struct {
	name   string
	heater bool
	fields Fields
}

// NewStore builds a store from the catalog. Object order follows catalog order
// and is what List returns, stable across calls.
func NewStore(cat Catalog, heaterStep float64) (*Store, error) {
	if err := cat.Validate(); err != nil {
		return nil, err
	}
	s := &Store{
		objects:    make(map[string]*object, len(cat.Objects)),
		heaterStep: heaterStep,
	}
	for _, spec := range cat.Objects {
		obj := &object{name: spec.Name, heater: spec.Heater, fields: make(Fields, len(spec.Fields))}
		for field, raw := range spec.Fields {
			v, err := DecodeValue(raw)
			if err != nil {
				return nil, err
			}
			obj.fields[field] = v
		}
		s.order = append(s.order, spec.Name)
		s.objects[spec.Name] = obj
	}
	return s, nil
}

// List returns all object names in catalog order.
func (s *Store) List() []string {
	out := make([]string, len(s.order))
	copy(out, s.order)
	return out
}

// Has reports whether the catalog contains the named object.
func (s *Store) Has(name string) bool {
	_, ok := s.objects[name]
	return ok
}

// Query resolves a request map of object name → field names (nil or empty
// meaning all fields). Unknown object names are silently omitted, matching the
// REST query semantics; subscribe is the strict path and validates separately.
func (s *Store) Query(req map[string][]string) Status {
	out := make(Status, len(req))
	for name, fields := range req {
		obj, ok := s.objects[name]
		if !ok {
			continue
		}
		if len(fields) == 0 {
			out[name] = obj.fields.Copy()
			continue
		}
		picked := make(Fields, len(fields))
		for _, field := range fields {
			if v, ok := obj.fields[field]; ok {
				picked[field] = v
			}
		}
		out[name] = picked
	}
	return out
}

// Get returns one field value.
func (s *Store) Get(name, field string) (Value, bool) {
	obj, ok := s.objects[name]
	if !ok {
		return nil, false
	}
	v, ok := obj.fields[field]
	return v, ok
}

// Set writes one field, the command-handler write path (gcode, job mirror).
// Unknown objects are rejected; fields may be created, the catalog fixes the
// object set but not every field a command may introduce.
func (s *Store) Set(name, field string, v Value) error {
	obj, ok := s.objects[name]
	if !ok {
		return Errorf(KindNotFound, "unknown printer object %q", name)
	}
	obj.fields[field] = v
	return nil
}

// Tick advances every object's simulated fields once. Heater temperatures move
// toward their target by at most heaterStep, never overshooting; a zero target
// means the heater is off and the temperature settles back to ambient. Fields
// with no target only change through Set.
func (s *Store) Tick() {
	for _, name := range s.order {
		obj := s.objects[name]
		if !obj.heater {
			continue
		}
		temp, ok := obj.fields["temperature"].(Number)
		if !ok {
			continue
		}
		target, ok := obj.fields["target"].(Number)
		if !ok {
			continue
		}
		goal := float64(target)
		if goal == 0 {
			goal = AmbientTemperature
		}
		next := converge(float64(temp), goal, s.heaterStep)
		if next != float64(temp) {
			logrus.Debugf("store: %s temperature %.2f -> %.2f (target %.2f)", name, float64(temp), next, goal)
			obj.fields["temperature"] = Number(next)
		}
		if _, ok := obj.fields["power"]; ok {
			power := Number(0.0)
			if float64(target) > 0 && next < float64(target) {
				power = 1.0
			}
			obj.fields["power"] = power
		}
	}
}

// converge moves cur toward goal by at most step. Monotonic, no overshoot.
func converge(cur, goal, step float64) float64 {
	diff := goal - cur
	if diff > step {
		diff = step
	} else if diff < -step {
		diff = -step
	}
	return cur + diff
}

// Snapshot returns a deep copy of the entire store, used to seed subscription
// baselines and serve unfiltered queries.
func (s *Store) Snapshot() Status {
	out := make(Status, len(s.order))
	for _, name := range s.order {
		out[name] = s.objects[name].fields.Copy()
	}
	return out
}
