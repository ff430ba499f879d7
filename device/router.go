package device

import (
	"github.com/dfg-98/netsim/ipv4"
	"github.com/dfg-98/netsim/link"
)

// Router forwards IP packets between its interfaces following its
// route table. Packets with no matching route are answered with an
// ICMP destination-host-unreachable back out of the incoming port.
type Router struct {
	netDevice
}

func NewRouter(name string, portsCount int, p Params) *Router {
	r := &Router{}
	r.netDevice.init(name, portsCount, p)
	r.onFrame = func(f link.Frame, port string) {
		r.log.Debug("frame", "time", r.simTime, "port", port, "frame", f.String())
		r.processFrame(f, port)
	}
	r.onPacket = func(pkt ipv4.Packet, port string, f *link.Frame) {
		if err := r.enroute(pkt, port, f); err != nil {
			r.log.Error("enroute failed", "err", err)
		}
	}
	return r
}
