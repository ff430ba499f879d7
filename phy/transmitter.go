package phy

import (
	netsim "github.com/dfg-98/netsim"
	"github.com/dfg-98/netsim/internal"
)

// Events is implemented by the device owning a transmitter. The three
// methods fire synchronously inside Update (or inside the remote
// writer's update, for the sampling hook), never from another
// goroutine.
type Events interface {
	// OnSend fires once per bit successfully driven onto the wire.
	OnSend(bit netsim.Bit)
	// OnReceive fires when a full accumulation window commits a bit
	// that is not Null. The bit may be Collision when the transmitter
	// was not itself sending.
	OnReceive(bit netsim.Bit)
	// OnCollision fires when a commit window ends in collision while
	// sending; backoff has already been scheduled when it fires.
	OnCollision()
}

// Transmitter is the per-port CSMA send engine. Outbound bit packets
// queue up and are serialized one bit per signalTime ticks; when a
// collision is sensed mid-transmission the packet restarts after a
// randomized backoff whose ceiling doubles on every collision.
type Transmitter struct {
	port       *Port
	events     Events
	rng        *internal.Source
	signalTime int

	queue   [][]netsim.Bit
	current []netsim.Bit
	index   int

	sendTime      int // ticks spent on current bit
	timeToSend    int // remaining backoff hold
	maxTimeToSend int // backoff ceiling, in signalTime units

	readTime      int // ticks until committing the last sampled bit
	lastSampled   netsim.Bit
	sending       bool
	timeConnected int
}

// NewTransmitter wires a transmitter to its port, registering the
// port's write callback for receive sampling.
func NewTransmitter(port *Port, events Events, signalTime int, rng *internal.Source) *Transmitter {
	t := &Transmitter{
		port:          port,
		events:        events,
		rng:           rng,
		signalTime:    signalTime,
		maxTimeToSend: signalTime,
		lastSampled:   netsim.BitNull,
	}
	port.SetWriteCallback(t.portWritten)
	return t
}

// Port returns the port the transmitter drives.
func (t *Transmitter) Port() *Port { return t.port }

// Send appends byte-aligned bit packets to the outbound queue.
func (t *Transmitter) Send(packets [][]netsim.Bit) {
	t.queue = append(t.queue, packets...)
}

// Active reports whether the transmitter is sending or holding in
// backoff, and the port still has a cable.
func (t *Transmitter) Active() bool {
	return (t.sending || t.timeToSend > 0) && t.port.Connected()
}

// TimeToSend returns the remaining backoff hold in ticks.
func (t *Transmitter) TimeToSend() int { return t.timeToSend }

// Update advances one tick.
func (t *Transmitter) Update() {
	if !t.port.Connected() {
		return
	}
	t.timeConnected++

	if t.readTime > 0 {
		t.readTime--
	}
	if t.readTime == 0 {
		sampled := t.lastSampled
		t.lastSampled = netsim.BitNull // consumed; a quiet window commits nothing
		if sampled == netsim.BitCollision && t.sending {
			t.backoff()
			t.events.OnCollision()
		} else if sampled != netsim.BitNull {
			t.events.OnReceive(sampled)
		}
		t.readTime = t.signalTime
	}

	t.loadPacket()

	if t.timeToSend > 0 {
		t.timeToSend--
	}
	if t.timeToSend > 0 {
		return
	}

	if len(t.current) > 0 {
		t.sending = true
		bit := t.current[t.index]
		if t.sendTime == 0 {
			ok, err := t.port.CanWrite()
			if err != nil {
				return
			}
			if !ok {
				t.backoff()
				return
			}
			t.port.Write(bit)
			t.events.OnSend(bit)
		}
		t.sendTime++
		if t.sendTime == t.signalTime {
			t.index++
			if t.index == len(t.current) {
				t.current = nil
			}
			t.sendTime = 0
		}
	}
}

// loadPacket pulls the next queued packet, or quiets the wire after
// the last one finishes.
func (t *Transmitter) loadPacket() {
	if len(t.current) > 0 {
		return
	}
	if len(t.queue) > 0 {
		t.current = t.queue[0]
		t.queue = t.queue[1:]
		t.maxTimeToSend = t.signalTime
		t.index = 0
		t.sendTime = 0
		t.sending = true
	} else if t.sending {
		t.sending = false
		t.port.Write(netsim.BitNull)
	}
}

// backoff schedules a randomized hold of 1..maxTimeToSend bit windows
// and doubles the ceiling. The interrupted packet restarts from its
// first bit.
func (t *Transmitter) backoff() {
	t.timeToSend = t.rng.IntRange(1, t.maxTimeToSend) * t.signalTime
	t.maxTimeToSend *= 2
	t.index = 0
	t.sendTime = 0
	t.sending = false
}

// portWritten is the remote-write hook: it opens an accumulation
// window when none is running and samples the received voltage. The
// terminal sample is committed when the window expires in Update.
func (t *Transmitter) portWritten() {
	if t.readTime == 0 {
		t.readTime = t.signalTime
	}
	if v, err := t.port.Read(true); err == nil {
		t.lastSampled = v
	}
}

// Disconnect detaches the port and resets transmission state. The
// interrupted packet is requeued at the front so it retransmits in
// full on the next connection.
func (t *Transmitter) Disconnect() {
	t.port.Disconnect()
	if len(t.current) > 0 {
		t.queue = append([][]netsim.Bit{t.current}, t.queue...)
	}
	t.current = nil
	t.index = 0
	t.sending = false
	t.sendTime = 0
	t.timeToSend = 0
	t.maxTimeToSend = t.signalTime
	t.timeConnected = 0
	t.lastSampled = netsim.BitNull
	t.readTime = 0
}
