package device

import (
	netsim "github.com/dfg-98/netsim"
	"github.com/dfg-98/netsim/link"
	"github.com/dfg-98/netsim/phy"
)

// portDevice is the shared machinery of every device with a CSMA
// transmitter per port: a per-port receive buffer continuously
// re-parsed for complete frames, and a MAC learning table. Switches,
// hosts and routers build on it; behavior differences hang off the
// hook fields instead of inheritance.
type portDevice struct {
	base
	params       Params
	transmitters map[string]*phy.Transmitter
	buffers      map[string][]netsim.Bit
	macTable     map[uint16]string

	// onFrame handles a complete, reassembled frame. Required.
	onFrame func(f link.Frame, port string)
	// onSendBit, onRecvBit and onCollision observe the per-bit
	// physical events; optional.
	onSendBit   func(port string, b netsim.Bit)
	onRecvBit   func(port string, b netsim.Bit)
	onCollision func(port string)
}

// portEvents adapts one port's physical events onto the device hooks.
type portEvents struct {
	pd   *portDevice
	port string
}

func (e portEvents) OnSend(b netsim.Bit) {
	if e.pd.onSendBit != nil {
		e.pd.onSendBit(e.port, b)
	}
}

func (e portEvents) OnReceive(b netsim.Bit) {
	if e.pd.onRecvBit != nil {
		e.pd.onRecvBit(e.port, b)
	}
	e.pd.receiveOnPort(e.port, b)
}

func (e portEvents) OnCollision() {
	if e.pd.onCollision != nil {
		e.pd.onCollision(e.port)
	}
}

func (pd *portDevice) init(name string, portsCount int, p Params) {
	pd.base.init(name, portsCount, p)
	pd.params = p
	pd.transmitters = make(map[string]*phy.Transmitter, portsCount)
	pd.buffers = make(map[string][]netsim.Bit, portsCount)
	pd.macTable = make(map[uint16]string)
	for _, pn := range pd.portNames {
		pd.transmitters[pn] = phy.NewTransmitter(pd.ports[pn], portEvents{pd: pd, port: pn}, p.SignalTime, p.Rand)
	}
}

// receiveOnPort buffers a committed bit and re-parses the buffer. A
// collision voltage aborts any frame in progress on that port, since
// the sender will restart it from scratch after backoff.
func (pd *portDevice) receiveOnPort(port string, b netsim.Bit) {
	if b == netsim.BitCollision {
		pd.buffers[port] = nil
		return
	}
	if !b.IsData() {
		return
	}
	pd.buffers[port] = append(pd.buffers[port], b)
	pd.handleBuffer(port)
}

// handleBuffer hands the buffer off as a frame once it is complete.
func (pd *portDevice) handleBuffer(port string) {
	f, err := link.ParseFrame(pd.buffers[port])
	if err != nil {
		return
	}
	pd.buffers[port] = nil
	pd.onFrame(f, port)
}

// Update advances every port's transmitter, in port order.
func (pd *portDevice) Update(time int) {
	pd.simTime = time
	for _, pn := range pd.portNames {
		pd.transmitters[pn].Update()
	}
}

// Active reports whether any port still transmits or waits to.
func (pd *portDevice) Active() bool {
	for _, pn := range pd.portNames {
		if pd.transmitters[pn].Active() {
			return true
		}
	}
	return false
}

// Disconnect detaches the port and drops its partial receive buffer.
func (pd *portDevice) Disconnect(portName string) {
	if tx, ok := pd.transmitters[portName]; ok {
		tx.Disconnect()
		pd.buffers[portName] = nil
	}
}

// send queues raw bit packets on the named port's transmitter.
func (pd *portDevice) send(port string, packets [][]netsim.Bit) {
	if tx, ok := pd.transmitters[port]; ok {
		tx.Send(packets)
	}
}
