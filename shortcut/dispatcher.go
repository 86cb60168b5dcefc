package shortcut

// Slot names one independently configurable shortcut.
type Slot string

const (
	SlotDialog    Slot = "dialog"
	SlotSidePanel Slot = "sidePanel"
)

// DefaultOrder is the priority used by the page: the in-page dialog is
// checked before the side panel.
var DefaultOrder = []Slot{SlotDialog, SlotSidePanel}

type compiledSlot struct {
	slot  Slot
	spec  Spec
	match Matcher
}

// Dispatcher tests key events against a fixed, ordered list of slots.
// It is not safe for concurrent use; callers serialise access.
type Dispatcher struct {
	slots []compiledSlot
}

// NewDispatcher creates a dispatcher whose priority follows order.
// Slots start out unbound and never match until Update is called.
func NewDispatcher(order ...Slot) *Dispatcher {
	d := &Dispatcher{slots: make([]compiledSlot, 0, len(order))}
	for _, s := range order {
		d.slots = append(d.slots, compiledSlot{slot: s})
	}
	return d
}

// Update recompiles one slot. A slot not named at construction is added at
// the lowest priority.
func (d *Dispatcher) Update(slot Slot, spec Spec) {
	compiled := compiledSlot{slot: slot, spec: spec, match: Compile(spec)}
	for i := range d.slots {
		if d.slots[i].slot == slot {
			d.slots[i] = compiled
			return
		}
	}
	d.slots = append(d.slots, compiled)
}

// Match returns the first slot, in priority order, whose shortcut matches
// ev. Later slots are not evaluated once one matches.
func (d *Dispatcher) Match(ev KeyEvent) (Slot, bool) {
	for _, s := range d.slots {
		if s.match != nil && s.match(ev) {
			return s.slot, true
		}
	}
	return "", false
}

// Spec returns the spec currently compiled for slot.
func (d *Dispatcher) Spec(slot Slot) (Spec, bool) {
	for _, s := range d.slots {
		if s.slot == slot {
			return s.spec, true
		}
	}
	return Spec{}, false
}

// Slots returns the slots in priority order.
func (d *Dispatcher) Slots() []Slot {
	out := make([]Slot, len(d.slots))
	for i, s := range d.slots {
		out[i] = s.slot
	}
	return out
}
