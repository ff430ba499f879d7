package device

import (
	"errors"
	"fmt"

	netsim "github.com/dfg-98/netsim"
	"github.com/dfg-98/netsim/arp"
	"github.com/dfg-98/netsim/ipv4"
	"github.com/dfg-98/netsim/link"
)

var (
	errNoMAC    = errors.New("device: interface has no MAC assigned")
	errNoIP     = errors.New("device: interface has no IP assigned")
	errBadIface = errors.New("device: interface index out of range")
)

// netDevice adds the network layer shared by hosts and routers on top
// of portDevice: per-port MAC, IP and mask assignments, the learned
// IP->MAC table, the queue of packets waiting on ARP resolution, and
// the route table driving enroute decisions.
type netDevice struct {
	portDevice
	macs    map[string][]netsim.Bit
	ips     map[string]ipv4.Addr
	masks   map[string]ipv4.Addr
	ipTable map[ipv4.Addr][]netsim.Bit
	waiting map[ipv4.Addr][][]netsim.Bit
	routes  ipv4.RouteTable

	// onPacket handles an IP packet carried by a verified frame. The
	// frame is nil for locally originated sends. Required.
	onPacket func(pkt ipv4.Packet, port string, f *link.Frame)
}

func (d *netDevice) init(name string, portsCount int, p Params) {
	d.portDevice.init(name, portsCount, p)
	d.macs = make(map[string][]netsim.Bit)
	d.ips = make(map[string]ipv4.Addr)
	d.masks = make(map[string]ipv4.Addr)
	d.ipTable = make(map[ipv4.Addr][]netsim.Bit)
	d.waiting = make(map[ipv4.Addr][][]netsim.Bit)
}

func (d *netDevice) ifacePort(iface int) (string, error) {
	if iface < 1 || iface > len(d.portNames) {
		return "", fmt.Errorf("%w: %s:%d", errBadIface, d.name, iface)
	}
	return d.PortName(iface), nil
}

// SetMAC assigns a 16-bit MAC to the 1-based interface.
func (d *netDevice) SetMAC(iface int, mac []netsim.Bit) error {
	port, err := d.ifacePort(iface)
	if err != nil {
		return err
	}
	d.macs[port] = append([]netsim.Bit(nil), mac...)
	d.logRow("MAC", netsim.BitsToHex(mac))
	return nil
}

// SetIP assigns an address and mask to the 1-based interface, and
// installs the connected-subnet route so same-subnet destinations
// resolve without explicit route configuration.
func (d *netDevice) SetIP(iface int, ip, mask ipv4.Addr) error {
	port, err := d.ifacePort(iface)
	if err != nil {
		return err
	}
	d.ips[port] = ip
	d.masks[port] = mask
	d.routes.Add(ipv4.Route{Destination: ip & mask, Mask: mask, Interface: iface})
	d.logRow("IP", fmt.Sprintf("%s %s", ip, mask))
	return nil
}

// RouteTable exposes the device's routes for the route instructions.
func (d *netDevice) RouteTable() *ipv4.RouteTable { return &d.routes }

// hasIP reports whether addr is assigned to any interface.
func (d *netDevice) hasIP(addr ipv4.Addr) bool {
	for _, ip := range d.ips {
		if ip == addr {
			return true
		}
	}
	return false
}

// SendRaw queues raw bits on interface 1 as a single physical packet.
func (d *netDevice) SendRaw(data []netsim.Bit) error {
	port, err := d.ifacePort(1)
	if err != nil {
		return err
	}
	d.send(port, [][]netsim.Bit{data})
	return nil
}

// sendFrameOn builds a frame from the port's MAC and queues it.
func (d *netDevice) sendFrameOn(port string, dstMAC, payload []netsim.Bit) error {
	src, ok := d.macs[port]
	if !ok {
		return fmt.Errorf("%w: %s", errNoMAC, port)
	}
	f, err := link.Build(dstMAC, src, payload, link.BuildConfig{
		Algorithm: d.params.ErrorDetection,
		ErrorProb: d.params.ErrorProb,
		Rand:      d.params.Rand,
	})
	if err != nil {
		return err
	}
	d.log.Debug("send frame", "time", d.simTime, "port", port, "frame", f.String())
	d.send(port, [][]netsim.Bit{f.RawData()})
	return nil
}

// SendFrame sends payload to dstMAC out of interface 1.
func (d *netDevice) SendFrame(dstMAC, payload []netsim.Bit) error {
	port, err := d.ifacePort(1)
	if err != nil {
		return err
	}
	return d.sendFrameOn(port, dstMAC, payload)
}

func broadcastMAC() []netsim.Bit {
	return netsim.IntToBits(int(link.BroadcastMAC), 16)
}

// sendARPQuery broadcasts a query for addr's MAC out of port.
func (d *netDevice) sendARPQuery(port string, addr ipv4.Addr) error {
	d.logRow("ARP query", addr.String())
	return d.sendFrameOn(port, broadcastMAC(), arp.Payload(addr))
}

// respondARP answers a query, announcing the port's own IP to the
// querier's MAC.
func (d *netDevice) respondARP(port string, dstMAC []netsim.Bit) error {
	ip, ok := d.ips[port]
	if !ok {
		return fmt.Errorf("%w: %s", errNoIP, port)
	}
	d.logRow("ARP reply", ip.String())
	return d.sendFrameOn(port, dstMAC, arp.Payload(ip))
}

// sendPacketOn transmits an IP packet out of port toward nextHop. If
// the next hop's MAC is unknown the packet queues under its address
// and a single ARP query goes out; resolution flushes the queue.
func (d *netDevice) sendPacketOn(pkt ipv4.Packet, port string, nextHop ipv4.Addr) error {
	if mac, ok := d.ipTable[nextHop]; ok {
		return d.sendFrameOn(port, mac, pkt.RawData())
	}
	pending := len(d.waiting[nextHop])
	d.waiting[nextHop] = append(d.waiting[nextHop], pkt.RawData())
	if pending > 0 {
		return nil // a query for this address is already in flight
	}
	return d.sendARPQuery(port, nextHop)
}

// SendPacketTo routes an IP packet with the given payload from
// interface 1's address to dst.
func (d *netDevice) SendPacketTo(dst ipv4.Addr, payload []netsim.Bit) error {
	src, ok := d.ips[d.PortName(1)]
	if !ok {
		return fmt.Errorf("%w: %s", errNoIP, d.name)
	}
	pkt := ipv4.BuildPacket(dst, src, payload, 0, 0)
	return d.enroute(pkt, "", nil)
}

// enroute selects the longest-prefix route for the packet's
// destination and transmits it. Without a matching route, a packet
// that arrived in a frame is answered with an ICMP
// destination-host-unreachable toward its source; a locally
// originated packet is dropped.
func (d *netDevice) enroute(pkt ipv4.Packet, inPort string, f *link.Frame) error {
	route, ok := d.routes.Lookup(pkt.Destination())
	if !ok {
		if f != nil {
			src, okIP := d.ips[inPort]
			if !okIP {
				return fmt.Errorf("%w: %s", errNoIP, inPort)
			}
			d.logRow("Unreachable", pkt.Destination().String())
			un := ipv4.Unreachable(pkt.Source(), src)
			dst := append([]netsim.Bit(nil), f.SourceMACBits()...)
			return d.sendFrameOn(inPort, dst, un.RawData())
		}
		d.log.Warn("no route", "time", d.simTime, "dest", pkt.Destination().String())
		return nil
	}
	port, err := d.ifacePort(route.Interface)
	if err != nil {
		return err
	}
	nextHop := route.Gateway
	if nextHop.IsZero() {
		nextHop = pkt.Destination()
	}
	return d.sendPacketOn(pkt, port, nextHop)
}

// processFrame is the network-layer receive path: ARP queries get
// answered when they ask for a local IP, ARP replies record the
// resolution and flush the packets waiting on it, and anything else
// parsing as an IP packet goes to the packet handler.
func (d *netDevice) processFrame(f link.Frame, port string) {
	if addr, ok := arp.Parse(f.Payload()); ok {
		if f.IsBroadcast() {
			if d.hasIP(addr) {
				if err := d.respondARP(port, append([]netsim.Bit(nil), f.SourceMACBits()...)); err != nil {
					d.log.Error("arp reply failed", "err", err)
				}
			}
			return
		}
		mac := append([]netsim.Bit(nil), f.SourceMACBits()...)
		d.ipTable[addr] = mac
		for _, bits := range d.waiting[addr] {
			if err := d.sendFrameOn(port, mac, bits); err != nil {
				d.log.Error("arp flush failed", "err", err)
			}
		}
		delete(d.waiting, addr)
		return
	}
	if pkt, ok := ipv4.ParsePacket(f.Payload()); ok {
		d.onPacket(pkt, port, &f)
	}
}
