package phy

import (
	netsim "github.com/dfg-98/netsim"
)

// Cable is the full-duplex medium between two ports. It owns one wire
// per direction; each port drives its own wire and receives on the
// opposite one. The cable holds non-owning references to its endpoints
// and disconnection clears both sides.
//
// On a half-duplex cable (one with a hub port at either end) the two
// directions share one collision domain: driving a data bit while the
// opposite wire still carries an unexpired signal collides the whole
// cable, and both endpoints are notified. Notifications only
// fire when a wire's stored value actually changes, which bounds the
// relay cascades hubs produce when propagating a collision.
type Cable struct {
	wireAB Wire // driven by portA, received by portB
	wireBA Wire // driven by portB, received by portA
	portA  *Port
	portB  *Port
}

// Connect attaches a new cable between two ports. It fails if either
// port already has a cable, leaving both ports untouched.
func Connect(signalTime int, a, b *Port) (*Cable, error) {
	c := &Cable{
		wireAB: NewWire(signalTime),
		wireBA: NewWire(signalTime),
		portA:  a,
		portB:  b,
	}
	if err := a.attach(c); err != nil {
		return nil, err
	}
	if err := b.attach(c); err != nil {
		a.cable = nil
		return nil, err
	}
	return c, nil
}

// Connected reports whether both endpoints are still attached.
func (c *Cable) Connected() bool { return c.portA != nil && c.portB != nil }

func (c *Cable) outbound(p *Port) *Wire {
	if p == c.portA {
		return &c.wireAB
	}
	return &c.wireBA
}

func (c *Cable) inbound(p *Port) *Wire {
	if p == c.portA {
		return &c.wireBA
	}
	return &c.wireAB
}

func (c *Cable) other(p *Port) *Port {
	if p == c.portA {
		return c.portB
	}
	return c.portA
}

// halfDuplex reports whether the cable belongs to a shared collision
// domain (either endpoint is a hub port).
func (c *Cable) halfDuplex() bool {
	return (c.portA != nil && c.portA.halfDuplex) || (c.portB != nil && c.portB.halfDuplex)
}

// Write drives v on the wire received by the opposite port. On a
// half-duplex cable, driving a data bit while the opposite direction
// is busy is an overlap: both wires collide. Endpoints whose received
// voltage changed get their write callbacks fired so owners can
// sample it.
func (c *Cable) Write(p *Port, v netsim.Bit) {
	out := c.outbound(p)
	in := c.inbound(p)
	outChanged := out.Write(v)
	inChanged := false
	if v != netsim.BitNull && c.halfDuplex() && in.Busy() {
		outChanged = out.forceCollision() || outChanged
		inChanged = in.forceCollision()
	}
	if outChanged {
		if other := c.other(p); other != nil {
			other.notifyWrite()
		}
	}
	if inChanged {
		p.notifyWrite()
	}
}

// Read returns the voltage the port receives on. With received=false
// it returns the voltage the port itself most recently drove.
func (c *Cable) Read(p *Port, received bool) netsim.Bit {
	if received {
		return c.inbound(p).Value()
	}
	return c.outbound(p).Value()
}

// CanWrite reports whether the port's outbound wire accepts a write
// without colliding.
func (c *Cable) CanWrite(p *Port) bool {
	return c.outbound(p).CanWrite()
}

// Update advances voltage decay on both wires, one tick.
func (c *Cable) Update() {
	c.wireAB.Update()
	c.wireBA.Update()
}

// detach is called by Port.Disconnect; it clears the remote endpoint's
// back-reference too, so one disconnect severs both sides.
func (c *Cable) detach(p *Port) {
	other := c.other(p)
	if other != nil && other.cable == c {
		other.cable = nil
	}
	c.portA = nil
	c.portB = nil
}
