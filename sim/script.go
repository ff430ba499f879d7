package sim

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"

	netsim "github.com/dfg-98/netsim"
	"github.com/dfg-98/netsim/ipv4"
)

// pingRepeats echo requests go out per ping line, pingSpacing ticks
// apart.
const (
	pingRepeats = 4
	pingSpacing = 100
)

// LoadScript reads and parses a scenario script file.
func LoadScript(path string) ([]Instruction, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ParseScript(f)
}

// ParseScript parses one instruction per line, skipping empty lines
// and lines starting with "#" or a space, and returns the
// instructions sorted by time. Script order is preserved within a
// tick.
func ParseScript(r io.Reader) ([]Instruction, error) {
	var out []Instruction
	sc := bufio.NewScanner(r)
	lineno := 0
	for sc.Scan() {
		lineno++
		line := sc.Text()
		if line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, " ") {
			continue
		}
		parsed, err := parseLine(line)
		if err != nil {
			return nil, fmt.Errorf("sim: script line %d: %w", lineno, err)
		}
		out = append(out, parsed...)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Time() < out[j].Time() })
	return out, nil
}

func parseLine(line string) ([]Instruction, error) {
	fields := strings.Fields(line)
	if len(fields) < 2 {
		return nil, fmt.Errorf("incomplete instruction %q", line)
	}
	t, err := strconv.Atoi(fields[0])
	if err != nil || t < 0 {
		return nil, fmt.Errorf("bad time %q", fields[0])
	}
	args := fields[2:]
	switch fields[1] {
	case "create":
		return parseCreate(t, args)
	case "connect":
		if len(args) != 2 {
			return nil, fmt.Errorf("connect wants 2 ports, got %d", len(args))
		}
		return []Instruction{Connect{At: t, PortA: args[0], PortB: args[1]}}, nil
	case "disconnect":
		if len(args) != 1 {
			return nil, fmt.Errorf("disconnect wants 1 port, got %d", len(args))
		}
		return []Instruction{Disconnect{At: t, Port: args[0]}}, nil
	case "mac":
		if len(args) != 2 {
			return nil, fmt.Errorf("mac wants device and address")
		}
		name, iface, err := splitIface(args[0])
		if err != nil {
			return nil, err
		}
		mac, err := netsim.HexToBits(args[1], 16)
		if err != nil {
			return nil, err
		}
		return []Instruction{AssignMAC{At: t, Device: name, Iface: iface, MAC: mac}}, nil
	case "ip":
		if len(args) != 3 {
			return nil, fmt.Errorf("ip wants device, address and mask")
		}
		name, iface, err := splitIface(args[0])
		if err != nil {
			return nil, err
		}
		ip, err := ipv4.ParseAddr(args[1])
		if err != nil {
			return nil, err
		}
		mask, err := ipv4.ParseAddr(args[2])
		if err != nil {
			return nil, err
		}
		return []Instruction{AssignIP{At: t, Device: name, Iface: iface, IP: ip, Mask: mask}}, nil
	case "send":
		if len(args) != 2 {
			return nil, fmt.Errorf("send wants device and bitstring")
		}
		data, err := netsim.ParseBits(args[1])
		if err != nil {
			return nil, err
		}
		return []Instruction{SendBits{At: t, Device: args[0], Data: data}}, nil
	case "send_frame":
		if len(args) != 3 {
			return nil, fmt.Errorf("send_frame wants device, MAC and data")
		}
		mac, err := netsim.HexToBits(args[1], 16)
		if err != nil {
			return nil, err
		}
		data, err := netsim.HexToBits(args[2], 16)
		if err != nil {
			return nil, err
		}
		return []Instruction{SendFrame{At: t, Device: args[0], MAC: mac, Data: data}}, nil
	case "send_packet":
		if len(args) != 3 {
			return nil, fmt.Errorf("send_packet wants device, IP and data")
		}
		dst, err := ipv4.ParseAddr(args[1])
		if err != nil {
			return nil, err
		}
		data, err := netsim.HexToBits(args[2], 16)
		if err != nil {
			return nil, err
		}
		return []Instruction{SendPacket{At: t, Device: args[0], Dest: dst, Data: data}}, nil
	case "ping":
		if len(args) != 2 {
			return nil, fmt.Errorf("ping wants device and IP")
		}
		dst, err := ipv4.ParseAddr(args[1])
		if err != nil {
			return nil, err
		}
		out := make([]Instruction, 0, pingRepeats)
		for k := 0; k < pingRepeats; k++ {
			out = append(out, Ping{At: t + k*pingSpacing, Device: args[0], Dest: dst})
		}
		return out, nil
	case "route":
		return parseRoute(t, args)
	}
	return nil, fmt.Errorf("unknown instruction %q", fields[1])
}

func parseCreate(t int, args []string) ([]Instruction, error) {
	if len(args) < 2 {
		return nil, fmt.Errorf("create wants kind and name")
	}
	kind, name := args[0], args[1]
	if kind == "host" {
		return []Instruction{CreateHost{At: t, Name: name}}, nil
	}
	if len(args) != 3 {
		return nil, fmt.Errorf("create %s wants a port count", kind)
	}
	ports, err := strconv.Atoi(args[2])
	if err != nil || ports < 1 {
		return nil, fmt.Errorf("bad port count %q", args[2])
	}
	switch kind {
	case "hub":
		return []Instruction{CreateHub{At: t, Name: name, Ports: ports}}, nil
	case "switch":
		return []Instruction{CreateSwitch{At: t, Name: name, Ports: ports}}, nil
	case "router":
		return []Instruction{CreateRouter{At: t, Name: name, Ports: ports}}, nil
	}
	return nil, fmt.Errorf("unknown device kind %q", kind)
}

func parseRoute(t int, args []string) ([]Instruction, error) {
	if len(args) < 2 {
		return nil, fmt.Errorf("route wants an action and device")
	}
	action := args[0]
	if action == "reset" {
		if len(args) != 2 {
			return nil, fmt.Errorf("route reset wants a device")
		}
		return []Instruction{RouteReset{At: t, Device: args[1]}}, nil
	}
	if len(args) != 6 {
		return nil, fmt.Errorf("route %s wants device, destination, mask, gateway and interface", action)
	}
	dest, err := ipv4.ParseAddr(args[2])
	if err != nil {
		return nil, err
	}
	mask, err := ipv4.ParseAddr(args[3])
	if err != nil {
		return nil, err
	}
	gw, err := ipv4.ParseAddr(args[4])
	if err != nil {
		return nil, err
	}
	iface, err := strconv.Atoi(args[5])
	if err != nil || iface < 1 {
		return nil, fmt.Errorf("bad interface %q", args[5])
	}
	route := ipv4.Route{Destination: dest, Mask: mask, Gateway: gw, Interface: iface}
	switch action {
	case "add":
		return []Instruction{RouteAdd{At: t, Device: args[1], Route: route}}, nil
	case "remove":
		return []Instruction{RouteRemove{At: t, Device: args[1], Route: route}}, nil
	}
	return nil, fmt.Errorf("unknown route action %q", action)
}

// splitIface splits "NAME[:IFACE]" defaulting to interface 1.
func splitIface(s string) (name string, iface int, err error) {
	name, suffix, found := strings.Cut(s, ":")
	if !found {
		return name, 1, nil
	}
	iface, err = strconv.Atoi(suffix)
	if err != nil || iface < 1 {
		return "", 0, fmt.Errorf("bad interface in %q", s)
	}
	return name, iface, nil
}
