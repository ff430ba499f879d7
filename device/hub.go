package device

import (
	"os"
	"path/filepath"
	"strconv"

	"github.com/dfg-98/netsim/phy"
)

// Hub is a physical-layer repeater: whatever voltage lands on one
// port is written out of every other connected port, immediately,
// inside the writer's update. It has no higher layers and no
// transmission state of its own.
type Hub struct {
	base
	signalTime int
	readTime   int
}

func NewHub(name string, portsCount int, p Params) *Hub {
	h := &Hub{signalTime: p.SignalTime}
	h.base.init(name, portsCount, p)
	for _, pn := range h.portNames {
		port := h.ports[pn]
		port.SetHalfDuplex(true)
		port.SetWriteCallback(func() { h.portWritten(port) })
	}
	return h
}

// portWritten repeats the port's received voltage to every other
// connected port.
func (h *Hub) portWritten(written *phy.Port) {
	v, err := written.Read(true)
	if err != nil {
		return
	}
	for _, pn := range h.portNames {
		p := h.ports[pn]
		if p != written && p.Connected() {
			p.Write(v)
		}
	}
}

// Update logs one port summary row per signal window.
func (h *Hub) Update(time int) {
	h.simTime = time
	if h.readTime > 0 {
		h.readTime--
	}
	if h.readTime == 0 {
		h.logPortsRow()
		h.readTime = h.signalTime
	}
}

// Active is always false: relaying happens synchronously inside the
// senders' updates, so hubs hold no in-flight work of their own.
func (h *Hub) Active() bool { return false }

func (h *Hub) Disconnect(portName string) {
	if p, ok := h.ports[portName]; ok {
		p.Disconnect()
	}
}

func (h *Hub) logPortsRow() {
	row := make([]string, 0, len(h.portNames)+1)
	row = append(row, strconv.Itoa(h.simTime))
	for _, pn := range h.portNames {
		row = append(row, portValue(h.ports[pn]))
	}
	h.rows = append(h.rows, row)
}

// SaveLog writes the hub's per-port table to <dir>/<name>.txt.
func (h *Hub) SaveLog(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	header := make([]string, 0, len(h.portNames)+1)
	header = append(header, "Time (ms)")
	for _, pn := range h.portNames {
		header = append(header, pn+" (Rece . Sent)")
	}
	return writeTable(filepath.Join(dir, h.name+".txt"), header, h.rows)
}

// portValue renders a port's received and driven voltages for the
// per-port tables, or "---" when no cable is attached.
func portValue(p *phy.Port) string {
	if !p.Connected() {
		return "---"
	}
	recv, _ := p.Read(true)
	sent, _ := p.Read(false)
	return recv.String() + " . " + sent.String()
}
