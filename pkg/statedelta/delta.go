// Package statedelta turns a transition between two switch states into router
// interface operations.
package statedelta

import (
	"github.com/veesix-networks/osvswitch/pkg/state"
)

type InterfaceChange struct {
	Old *state.Interface
	New *state.Interface
}

// Delta is the interface-level difference between two maps. Every list is
// ordered by interface id.
type Delta struct {
	Added   []*state.Interface
	Removed []*state.Interface
	Changed []InterfaceChange
}

func (d Delta) Empty() bool {
	return len(d.Added) == 0 && len(d.Removed) == 0 && len(d.Changed) == 0
}

// Compute diffs old against new. Interfaces present in both but not Equal
// are reported as changed. Either map may be nil.
func Compute(old, new *state.InterfaceMap) Delta {
	var d Delta

	for _, id := range old.IDs() {
		o, _ := old.Get(id)
		n, ok := new.Get(id)
		if !ok {
			d.Removed = append(d.Removed, o)
			continue
		}
		if !o.Equal(n) {
			d.Changed = append(d.Changed, InterfaceChange{Old: o, New: n})
		}
	}

	for _, id := range new.IDs() {
		if _, ok := old.Get(id); ok {
			continue
		}
		n, _ := new.Get(id)
		d.Added = append(d.Added, n)
	}

	return d
}
