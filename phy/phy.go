// Package phy models the physical medium of the simulated network:
// wires with decaying voltage and collision arbitration, full-duplex
// cables, device ports and the per-port CSMA transmit engine with
// binary exponential backoff.
//
// Time is discrete. Nothing in this package advances on its own; the
// simulation engine calls Update once per tick on transmitters and
// cables, in that order.
package phy

import "errors"

var (
	// ErrPortConnected is returned when connecting a port whose cable is already set.
	ErrPortConnected = errors.New("phy: port already connected")
	// ErrPortNotConnected is returned by operations that need a cable on the port.
	ErrPortNotConnected = errors.New("phy: port not connected")
)
