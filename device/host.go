package device

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	netsim "github.com/dfg-98/netsim"
	"github.com/dfg-98/netsim/ipv4"
	"github.com/dfg-98/netsim/link"
)

// Host is a single-port end station. It logs every physical bit it
// sends and receives, records every reassembled frame (with an ERROR
// mark when the integrity check fails) and keeps IP-level receptions
// separately. Outbound IP traffic goes through its own route table,
// so hosts reach off-subnet destinations via configured gateways.
type Host struct {
	netDevice
	receivedData    [][]string
	receivedPayload [][]string
}

func NewHost(name string, p Params) *Host {
	h := &Host{}
	h.netDevice.init(name, 1, p)
	h.onFrame = h.frameReceived
	h.onPacket = h.packetReceived
	h.onSendBit = func(_ string, b netsim.Bit) { h.logRow("Sent", b.String()) }
	h.onRecvBit = func(_ string, b netsim.Bit) { h.logRow("Received", b.String()) }
	h.onCollision = func(port string) {
		h.logRow("Collision", fmt.Sprintf("Waiting %dms to send", h.transmitters[port].TimeToSend()))
	}
	return h
}

// IP returns the address of the host's single interface.
func (h *Host) IP() (ipv4.Addr, bool) {
	ip, ok := h.ips[h.PortName(1)]
	return ip, ok
}

func (h *Host) OnConnect(portName string) {
	h.logRow("Connected", "")
}

func (h *Host) Disconnect(portName string) {
	h.netDevice.Disconnect(portName)
	h.logRow("Disconnected", "")
}

// SendPing routes one echo request to dst.
func (h *Host) SendPing(dst ipv4.Addr) error {
	src, ok := h.IP()
	if !ok {
		return fmt.Errorf("%w: %s", errNoIP, h.name)
	}
	return h.enroute(ipv4.EchoRequest(dst, src), "", nil)
}

// frameReceived verifies the frame before handing it to the network
// layer, and records it in the host's data log either way.
func (h *Host) frameReceived(f link.Frame, port string) {
	ok, err := link.Verify(h.params.ErrorDetection, f.RawData())
	row := []string{
		strconv.Itoa(h.simTime),
		netsim.BitsToHex(f.SourceMACBits()),
		netsim.BitsToHex(f.Payload()),
	}
	if err != nil || !ok {
		row = append(row, "ERROR")
		h.logRow("Frame error", netsim.BitsToHex(f.Payload()))
	} else {
		h.processFrame(f, port)
	}
	h.receivedData = append(h.receivedData, row)
}

// packetReceived drops traffic for other destinations, answers echo
// requests, and records the reception.
func (h *Host) packetReceived(pkt ipv4.Packet, port string, f *link.Frame) {
	ip, ok := h.IP()
	if !ok || pkt.Destination() != ip {
		return
	}
	row := []string{strconv.Itoa(h.simTime), pkt.Source().String()}
	if pkt.Protocol() == ipv4.ProtocolICMP {
		code := netsim.BitsToInt(pkt.Payload())
		if code == ipv4.ICMPEchoRequest {
			if err := h.enroute(ipv4.EchoReply(pkt.Source(), ip), "", nil); err != nil {
				h.log.Error("echo reply failed", "err", err)
			}
		}
		row = append(row, ipv4.ICMPMessage(code))
	} else {
		row = append(row, netsim.BitsToHex(pkt.Payload()))
	}
	h.receivedPayload = append(h.receivedPayload, row)
}

// SaveLog writes the action table plus the host's frame and payload
// reception files (<name>_data.txt, <name>_payload.txt).
func (h *Host) SaveLog(dir string) error {
	if err := h.base.SaveLog(dir); err != nil {
		return err
	}
	if err := writeLines(filepath.Join(dir, h.name+"_data.txt"), h.receivedData); err != nil {
		return err
	}
	return writeLines(filepath.Join(dir, h.name+"_payload.txt"), h.receivedPayload)
}

func writeLines(path string, rows [][]string) error {
	var sb strings.Builder
	for _, row := range rows {
		sb.WriteString(strings.Join(row, " "))
		sb.WriteByte('\n')
	}
	return os.WriteFile(path, []byte(sb.String()), 0o644)
}
