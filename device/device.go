// Package device implements the devices of the simulated network:
// hubs repeating at the physical layer, learning switches at the data
// link, and hosts and routers carrying the network layer with ARP
// resolution and longest-prefix routing.
//
// Devices share a lifecycle driven by the simulation engine: Reset at
// the top of every tick, Update once per tick, SaveLog on shutdown.
// Frame and packet handling differ per kind and is wired up through
// small behavior hooks rather than inheritance.
package device

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"

	"github.com/olekukonko/tablewriter"

	"github.com/dfg-98/netsim/internal"
	"github.com/dfg-98/netsim/phy"
)

// Params carries the simulation-wide settings a device needs. One
// value is shared by every device of a run.
type Params struct {
	// SignalTime is the number of ticks one bit occupies the medium.
	SignalTime int
	// ErrorDetection names the frame integrity algorithm.
	ErrorDetection string
	// ErrorProb is the probability of corrupting one payload bit per
	// built frame.
	ErrorProb float64
	// Rand is the run's pseudo random source, shared so results are
	// reproducible from one seed.
	Rand *internal.Source
	// Log receives live trace events. Device tables persisted on
	// shutdown are kept separately.
	Log *slog.Logger
}

func (p Params) logger() *slog.Logger {
	if p.Log != nil {
		return p.Log
	}
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// Device is the lifecycle every simulated device implements.
type Device interface {
	Name() string
	// PortNames returns the device's port names in creation order.
	PortNames() []string
	// Port resolves a port by its global name (<device>_<index>).
	Port(name string) (*phy.Port, bool)
	// Reset runs at the top of every simulation tick.
	Reset()
	// Update advances the device one tick.
	Update(time int)
	// Active reports whether the device still has work in flight;
	// the engine keeps running while any device is active.
	Active() bool
	// OnConnect notifies the device that a cable was attached to the
	// named port.
	OnConnect(portName string)
	// Disconnect detaches the named port's cable and resets any
	// transmission state bound to it.
	Disconnect(portName string)
	// SaveLog persists the device's log table under dir.
	SaveLog(dir string) error
}

// base carries what every device has: a name, ordered ports, the
// accumulated log rows and the current simulation time.
type base struct {
	name      string
	portNames []string
	ports     map[string]*phy.Port
	rows      [][]string
	simTime   int
	log       *slog.Logger
}

func (b *base) init(name string, portsCount int, p Params) {
	b.name = name
	b.ports = make(map[string]*phy.Port, portsCount)
	b.portNames = make([]string, 0, portsCount)
	b.log = p.logger().With("device", name)
	for i := 1; i <= portsCount; i++ {
		pn := fmt.Sprintf("%s_%d", name, i)
		b.portNames = append(b.portNames, pn)
		b.ports[pn] = phy.NewPort(pn)
	}
}

func (b *base) Name() string { return b.name }

func (b *base) PortNames() []string { return b.portNames }

// PortName returns the global name of the 1-based port index.
func (b *base) PortName(i int) string { return fmt.Sprintf("%s_%d", b.name, i) }

func (b *base) Port(name string) (*phy.Port, bool) {
	p, ok := b.ports[name]
	return p, ok
}

func (b *base) Reset() {}

func (b *base) OnConnect(portName string) {}

// logRow appends one action row to the device table and mirrors it to
// the live trace.
func (b *base) logRow(action, info string) {
	b.rows = append(b.rows, []string{strconv.Itoa(b.simTime), b.name, action, info})
	b.log.Debug(action, "time", b.simTime, "info", info)
}

// writeTable renders rows under header into path.
func writeTable(path string, header []string, rows [][]string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	t := tablewriter.NewWriter(f)
	t.SetAutoFormatHeaders(false)
	t.SetAutoWrapText(false)
	t.SetHeader(header)
	t.AppendBulk(rows)
	t.Render()
	return nil
}

// SaveLog writes the device's action table to <dir>/<name>.txt.
func (b *base) SaveLog(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	header := []string{"Time (ms)", "Device", "Action", "Info"}
	return writeTable(filepath.Join(dir, b.name+".txt"), header, b.rows)
}
