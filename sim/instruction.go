package sim

import (
	"fmt"

	netsim "github.com/dfg-98/netsim"
	"github.com/dfg-98/netsim/device"
	"github.com/dfg-98/netsim/ipv4"
)

// Instruction is one scheduled operation of a scenario script. The
// engine pops instructions whose time matches the current tick and
// executes them in script order before updating devices.
type Instruction interface {
	Time() int
	Execute(s *Simulation) error
}

func frameSender(s *Simulation, name string) (device.FrameSender, error) {
	d, ok := s.Device(name)
	if !ok {
		return nil, fmt.Errorf("device %q does not exist", name)
	}
	fs, ok := d.(device.FrameSender)
	if !ok {
		return nil, fmt.Errorf("device %q cannot send frames", name)
	}
	return fs, nil
}

func packetSender(s *Simulation, name string) (device.PacketSender, error) {
	d, ok := s.Device(name)
	if !ok {
		return nil, fmt.Errorf("device %q does not exist", name)
	}
	ps, ok := d.(device.PacketSender)
	if !ok {
		return nil, fmt.Errorf("device %q has no network layer", name)
	}
	return ps, nil
}

// CreateHost creates a one-port host.
type CreateHost struct {
	At   int
	Name string
}

func (i CreateHost) Time() int { return i.At }
func (i CreateHost) Execute(s *Simulation) error {
	return s.AddDevice(device.NewHost(i.Name, s.params))
}

// CreateHub creates a hub with Ports ports.
type CreateHub struct {
	At    int
	Name  string
	Ports int
}

func (i CreateHub) Time() int { return i.At }
func (i CreateHub) Execute(s *Simulation) error {
	return s.AddDevice(device.NewHub(i.Name, i.Ports, s.params))
}

// CreateSwitch creates a learning switch with Ports ports.
type CreateSwitch struct {
	At    int
	Name  string
	Ports int
}

func (i CreateSwitch) Time() int { return i.At }
func (i CreateSwitch) Execute(s *Simulation) error {
	return s.AddDevice(device.NewSwitch(i.Name, i.Ports, s.params))
}

// CreateRouter creates a router with Ports interfaces.
type CreateRouter struct {
	At    int
	Name  string
	Ports int
}

func (i CreateRouter) Time() int { return i.At }
func (i CreateRouter) Execute(s *Simulation) error {
	return s.AddDevice(device.NewRouter(i.Name, i.Ports, s.params))
}

// Connect lays a cable between two named ports.
type Connect struct {
	At           int
	PortA, PortB string
}

func (i Connect) Time() int { return i.At }
func (i Connect) Execute(s *Simulation) error {
	return s.Connect(i.PortA, i.PortB)
}

// Disconnect removes the cable on a named port.
type Disconnect struct {
	At   int
	Port string
}

func (i Disconnect) Time() int { return i.At }
func (i Disconnect) Execute(s *Simulation) error {
	return s.DisconnectPort(i.Port)
}

// AssignMAC assigns a 16-bit MAC to a device interface.
type AssignMAC struct {
	At     int
	Device string
	Iface  int
	MAC    []netsim.Bit
}

func (i AssignMAC) Time() int { return i.At }
func (i AssignMAC) Execute(s *Simulation) error {
	fs, err := frameSender(s, i.Device)
	if err != nil {
		return err
	}
	return fs.SetMAC(i.Iface, i.MAC)
}

// AssignIP assigns an IP and mask to a device interface.
type AssignIP struct {
	At     int
	Device string
	Iface  int
	IP     ipv4.Addr
	Mask   ipv4.Addr
}

func (i AssignIP) Time() int { return i.At }
func (i AssignIP) Execute(s *Simulation) error {
	ps, err := packetSender(s, i.Device)
	if err != nil {
		return err
	}
	return ps.SetIP(i.Iface, i.IP, i.Mask)
}

// SendBits pushes raw bits into a device's physical layer.
type SendBits struct {
	At     int
	Device string
	Data   []netsim.Bit
}

func (i SendBits) Time() int { return i.At }
func (i SendBits) Execute(s *Simulation) error {
	fs, err := frameSender(s, i.Device)
	if err != nil {
		return err
	}
	return fs.SendRaw(i.Data)
}

// SendFrame builds and sends a data-link frame.
type SendFrame struct {
	At     int
	Device string
	MAC    []netsim.Bit
	Data   []netsim.Bit
}

func (i SendFrame) Time() int { return i.At }
func (i SendFrame) Execute(s *Simulation) error {
	fs, err := frameSender(s, i.Device)
	if err != nil {
		return err
	}
	return fs.SendFrame(i.MAC, i.Data)
}

// SendPacket routes an IP packet toward a destination address.
type SendPacket struct {
	At     int
	Device string
	Dest   ipv4.Addr
	Data   []netsim.Bit
}

func (i SendPacket) Time() int { return i.At }
func (i SendPacket) Execute(s *Simulation) error {
	ps, err := packetSender(s, i.Device)
	if err != nil {
		return err
	}
	return ps.SendPacketTo(i.Dest, i.Data)
}

// Ping sends one echo request toward a destination address. The
// script parser expands a ping line into four of these, 100 ticks
// apart.
type Ping struct {
	At     int
	Device string
	Dest   ipv4.Addr
}

func (i Ping) Time() int { return i.At }
func (i Ping) Execute(s *Simulation) error {
	d, ok := s.Device(i.Device)
	if !ok {
		return fmt.Errorf("device %q does not exist", i.Device)
	}
	h, ok := d.(*device.Host)
	if !ok {
		return fmt.Errorf("device %q cannot ping", i.Device)
	}
	return h.SendPing(i.Dest)
}

// RouteReset clears a device's route table.
type RouteReset struct {
	At     int
	Device string
}

func (i RouteReset) Time() int { return i.At }
func (i RouteReset) Execute(s *Simulation) error {
	ps, err := packetSender(s, i.Device)
	if err != nil {
		return err
	}
	ps.RouteTable().Reset()
	return nil
}

// RouteAdd installs a route on a device.
type RouteAdd struct {
	At     int
	Device string
	Route  ipv4.Route
}

func (i RouteAdd) Time() int { return i.At }
func (i RouteAdd) Execute(s *Simulation) error {
	ps, err := packetSender(s, i.Device)
	if err != nil {
		return err
	}
	ps.RouteTable().Add(i.Route)
	return nil
}

// RouteRemove removes a route from a device.
type RouteRemove struct {
	At     int
	Device string
	Route  ipv4.Route
}

func (i RouteRemove) Time() int { return i.At }
func (i RouteRemove) Execute(s *Simulation) error {
	ps, err := packetSender(s, i.Device)
	if err != nil {
		return err
	}
	ps.RouteTable().Remove(i.Route)
	return nil
}
