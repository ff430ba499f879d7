package phy

import (
	netsim "github.com/dfg-98/netsim"
)

// Wire is one direction of a cable. It holds a voltage that decays
// after signalTime ticks and arbitrates overlapping writes: a write
// landing while the previous one has not expired turns the value into
// [netsim.BitCollision], which the next Update quiets to Null.
type Wire struct {
	value       netsim.Bit
	timeToReset int
	signalTime  int
}

// NewWire returns an idle wire whose writes persist signalTime ticks.
func NewWire(signalTime int) Wire {
	return Wire{value: netsim.BitNull, signalTime: signalTime}
}

// Value returns the voltage currently on the wire.
func (w *Wire) Value() netsim.Bit { return w.value }

// CanWrite reports whether a write now would not collide: the wire is
// idle, or was written this same tick (timeToReset still at the full
// window, i.e. the same writer re-driving its bit).
func (w *Wire) CanWrite() bool {
	return w.timeToReset == 0 || w.timeToReset == w.signalTime
}

// Busy reports whether the wire currently carries an unexpired signal.
// A decaying Null (a release after the last bit) does not count.
func (w *Wire) Busy() bool {
	return w.timeToReset != 0 && w.value != netsim.BitNull
}

// Write drives a value onto the wire. Writing over an unexpired prior
// write stores a collision instead. The reset window restarts
// unconditionally. Reports whether the stored value changed.
func (w *Wire) Write(v netsim.Bit) (changed bool) {
	old := w.value
	if !w.CanWrite() {
		w.value = netsim.BitCollision
	} else {
		w.value = v
	}
	w.timeToReset = w.signalTime
	return w.value != old
}

// forceCollision stamps the wire with a collision and restarts its
// window, regardless of arbitration state.
func (w *Wire) forceCollision() (changed bool) {
	changed = w.value != netsim.BitCollision
	w.value = netsim.BitCollision
	w.timeToReset = w.signalTime
	return changed
}

// Update advances one tick of voltage decay. A collided wire is forced
// to quiet on the next tick.
func (w *Wire) Update() {
	if w.value == netsim.BitCollision {
		w.timeToReset = 0
	} else if w.timeToReset > 0 {
		w.timeToReset--
	}
	if w.timeToReset == 0 {
		w.value = netsim.BitNull
	}
}
