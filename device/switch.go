package device

import (
	"os"
	"path/filepath"
	"strconv"

	netsim "github.com/dfg-98/netsim"
	"github.com/dfg-98/netsim/link"
)

// Switch is a learning bridge. It reassembles frames per port, learns
// the source MAC of every frame against its receiving port, and
// forwards: to the learned port when the destination is known, to all
// other connected ports when it is broadcast or unknown.
//
// The MAC table is append-only for the run; entries never expire.
type Switch struct {
	portDevice
	readTime int
}

func NewSwitch(name string, portsCount int, p Params) *Switch {
	s := &Switch{}
	s.portDevice.init(name, portsCount, p)
	s.onFrame = s.frameReceived
	return s
}

func (s *Switch) frameReceived(f link.Frame, port string) {
	s.macTable[f.SourceMAC()] = port
	s.log.Debug("frame", "time", s.simTime, "port", port, "frame", f.String())

	if dst := f.DestinationMAC(); !f.IsBroadcast() {
		if learned, ok := s.macTable[dst]; ok {
			s.send(learned, [][]netsim.Bit{f.RawData()})
			return
		}
	}
	s.broadcast(port, f.RawData())
}

// broadcast forwards raw frame bits to every other connected port.
func (s *Switch) broadcast(fromPort string, bits []netsim.Bit) {
	for _, pn := range s.portNames {
		if pn != fromPort && s.ports[pn].Connected() {
			s.send(pn, [][]netsim.Bit{bits})
		}
	}
}

// Update advances the transmitters and logs one port summary row per
// signal window.
func (s *Switch) Update(time int) {
	s.portDevice.Update(time)
	if s.readTime > 0 {
		s.readTime--
	}
	if s.readTime == 0 {
		row := make([]string, 0, len(s.portNames)+1)
		row = append(row, strconv.Itoa(time))
		for _, pn := range s.portNames {
			row = append(row, portValue(s.ports[pn]))
		}
		s.rows = append(s.rows, row)
		s.readTime = s.params.SignalTime
	}
}

// SaveLog writes the switch's per-port table to <dir>/<name>.txt.
func (s *Switch) SaveLog(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	header := make([]string, 0, len(s.portNames)+1)
	header = append(header, "Time (ms)")
	for _, pn := range s.portNames {
		header = append(header, pn+" (Rece . Sent)")
	}
	return writeTable(filepath.Join(dir, s.name+".txt"), header, s.rows)
}
