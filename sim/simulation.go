package sim

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/dfg-98/netsim/device"
	"github.com/dfg-98/netsim/internal"
	"github.com/dfg-98/netsim/phy"
)

// Simulation owns the device map, the flat port index and the cable
// list, and drives everything tick by tick. One tick is one simulated
// millisecond.
type Simulation struct {
	cfg        Config
	outputPath string
	log        *slog.Logger
	params     device.Params

	devices []device.Device
	byName  map[string]device.Device
	hosts   map[string]bool
	ports   map[string]device.Device
	cables  []*phy.Cable

	pending  []Instruction
	time     int
	endDelay int
}

// New builds an empty simulation writing device logs under outputPath.
func New(cfg Config, outputPath string, log *slog.Logger) *Simulation {
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Simulation{
		cfg:        cfg,
		outputPath: outputPath,
		log:        log,
		params: device.Params{
			SignalTime:     cfg.SignalTime,
			ErrorDetection: cfg.ErrorDetection,
			ErrorProb:      cfg.ErrorProb,
			Rand:           internal.NewSource(cfg.Seed),
			Log:            log,
		},
		byName:   make(map[string]device.Device),
		hosts:    make(map[string]bool),
		ports:    make(map[string]device.Device),
		endDelay: 2 * cfg.SignalTime,
	}
}

// Time returns the current simulation tick.
func (s *Simulation) Time() int { return s.time }

// Params returns the device parameters of this run.
func (s *Simulation) Params() device.Params { return s.params }

// AddDevice registers a device and indexes its ports.
func (s *Simulation) AddDevice(d device.Device) error {
	if _, taken := s.byName[d.Name()]; taken {
		return fmt.Errorf("sim: device name %q already taken", d.Name())
	}
	s.devices = append(s.devices, d)
	s.byName[d.Name()] = d
	for _, pn := range d.PortNames() {
		s.ports[pn] = d
	}
	if _, isHost := d.(*device.Host); isHost {
		s.hosts[d.Name()] = true
	}
	s.log.Info("device added", "device", d.Name())
	return nil
}

// Device resolves a device by name.
func (s *Simulation) Device(name string) (device.Device, bool) {
	d, ok := s.byName[name]
	return d, ok
}

func (s *Simulation) port(name string) (*phy.Port, device.Device, error) {
	owner, ok := s.ports[name]
	if !ok {
		return nil, nil, fmt.Errorf("sim: port %q does not exist", name)
	}
	p, _ := owner.Port(name)
	return p, owner, nil
}

// Connect lays a duplex cable between two ports. Connecting a port
// that already has a cable is a fatal topology error.
func (s *Simulation) Connect(portA, portB string) error {
	pa, ownerA, err := s.port(portA)
	if err != nil {
		return err
	}
	pb, ownerB, err := s.port(portB)
	if err != nil {
		return err
	}
	cable, err := phy.Connect(s.cfg.SignalTime, pa, pb)
	if err != nil {
		return fmt.Errorf("sim: connect %s %s: %w", portA, portB, err)
	}
	s.cables = append(s.cables, cable)
	ownerA.OnConnect(portA)
	ownerB.OnConnect(portB)
	s.log.Info("connected", "a", portA, "b", portB)
	return nil
}

// DisconnectPort removes the cable attached to the named port.
func (s *Simulation) DisconnectPort(portName string) error {
	_, owner, err := s.port(portName)
	if err != nil {
		return err
	}
	owner.Disconnect(portName)
	// Drop cables that lost their endpoints.
	alive := s.cables[:0]
	for _, c := range s.cables {
		if c.Connected() {
			alive = append(alive, c)
		}
	}
	s.cables = alive
	s.log.Info("disconnected", "port", portName)
	return nil
}

// Start runs the instruction list to quiescence, then persists every
// device's logs.
func (s *Simulation) Start(instructions []Instruction) error {
	s.pending = instructions
	s.time = 0
	s.endDelay = 2 * s.cfg.SignalTime
	for s.running() {
		if err := s.update(); err != nil {
			return err
		}
	}
	for _, d := range s.devices {
		if err := d.SaveLog(s.outputPath); err != nil {
			return fmt.Errorf("sim: save log for %s: %w", d.Name(), err)
		}
	}
	return nil
}

// running reports whether the simulation should advance another tick.
// Once no instructions remain and no device is active, a grace
// counter drains in-flight bits before stopping.
func (s *Simulation) running() bool {
	active := len(s.pending) > 0
	if !active {
		for _, d := range s.devices {
			if d.Active() {
				active = true
				break
			}
		}
	}
	if !active {
		s.endDelay--
	}
	return s.endDelay > 0
}

// update advances one tick: due instructions run first, then devices
// reset, hosts update, the remaining devices update, and finally the
// cables decay.
func (s *Simulation) update() error {
	for len(s.pending) > 0 && s.pending[0].Time() == s.time {
		ins := s.pending[0]
		s.pending = s.pending[1:]
		if err := ins.Execute(s); err != nil {
			return fmt.Errorf("sim: t=%d: %w", s.time, err)
		}
	}
	for _, d := range s.devices {
		d.Reset()
	}
	for _, d := range s.devices {
		if s.hosts[d.Name()] {
			d.Update(s.time)
		}
	}
	for _, d := range s.devices {
		if !s.hosts[d.Name()] {
			d.Update(s.time)
		}
	}
	for _, c := range s.cables {
		c.Update()
	}
	s.time++
	return nil
}
