package device

import (
	netsim "github.com/dfg-98/netsim"
	"github.com/dfg-98/netsim/ipv4"
)

// FrameSender is a device with MACs that can emit raw bits and
// data-link frames: hosts and routers.
type FrameSender interface {
	Device
	SetMAC(iface int, mac []netsim.Bit) error
	SendRaw(data []netsim.Bit) error
	SendFrame(dstMAC, payload []netsim.Bit) error
}

// PacketSender is a device carrying the network layer: IP assignments,
// a route table and IP packet transmission. Hosts and routers qualify.
type PacketSender interface {
	FrameSender
	SetIP(iface int, ip, mask ipv4.Addr) error
	SendPacketTo(dst ipv4.Addr, payload []netsim.Bit) error
	RouteTable() *ipv4.RouteTable
}

var (
	_ PacketSender = (*Host)(nil)
	_ PacketSender = (*Router)(nil)
	_ Device       = (*Hub)(nil)
	_ Device       = (*Switch)(nil)
)
