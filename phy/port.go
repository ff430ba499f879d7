package phy

import (
	netsim "github.com/dfg-98/netsim"
)

// Port is a connection endpoint owned by a device. At most one cable
// is attached at a time. The owner registers a callback that fires
// whenever the voltage the port receives changes, which is how received
// voltage reaches the device without polling.
type Port struct {
	name       string
	cable      *Cable
	onWrite    func()
	halfDuplex bool
}

func NewPort(name string) *Port {
	return &Port{name: name}
}

func (p *Port) Name() string { return p.name }

// SetWriteCallback registers the remote-write notification hook.
func (p *Port) SetWriteCallback(fn func()) { p.onWrite = fn }

func (p *Port) notifyWrite() {
	if p.onWrite != nil {
		p.onWrite()
	}
}

// SetHalfDuplex marks the port as part of a shared collision domain.
// Hubs mark their ports: any cable with a half-duplex endpoint
// collides when both directions are driven at once, which is how
// repeated traffic and a local transmission clash. Point-to-point
// links between end stations stay full duplex.
func (p *Port) SetHalfDuplex(v bool) { p.halfDuplex = v }

// HalfDuplex reports whether the port is in a shared collision domain.
func (p *Port) HalfDuplex() bool { return p.halfDuplex }

// Cable returns the attached cable, nil when disconnected.
func (p *Port) Cable() *Cable { return p.cable }

// Connected reports whether a cable is attached.
func (p *Port) Connected() bool { return p.cable != nil }

// attach is called by Cable on both endpoints.
func (p *Port) attach(c *Cable) error {
	if p.cable != nil {
		return ErrPortConnected
	}
	p.cable = c
	return nil
}

// Disconnect removes the cable, clearing the back-references on both
// endpoints. Safe to call on an already disconnected port.
func (p *Port) Disconnect() {
	if p.cable == nil {
		return
	}
	c := p.cable
	p.cable = nil
	c.detach(p)
}

// Write drives a value toward the remote endpoint.
func (p *Port) Write(v netsim.Bit) error {
	if p.cable == nil {
		return ErrPortNotConnected
	}
	p.cable.Write(p, v)
	return nil
}

// Read samples the wire the port receives on. With received=false it
// instead samples the wire the port most recently drove.
func (p *Port) Read(received bool) (netsim.Bit, error) {
	if p.cable == nil {
		return netsim.BitNull, ErrPortNotConnected
	}
	return p.cable.Read(p, received), nil
}

// CanWrite reports whether driving the outbound wire now would not
// collide with an unexpired write.
func (p *Port) CanWrite() (bool, error) {
	if p.cable == nil {
		return false, ErrPortNotConnected
	}
	return p.cable.CanWrite(p), nil
}
