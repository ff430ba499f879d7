package device

import (
	"testing"

	"github.com/stretchr/testify/require"

	netsim "github.com/dfg-98/netsim"
	"github.com/dfg-98/netsim/internal"
	"github.com/dfg-98/netsim/ipv4"
	"github.com/dfg-98/netsim/link"
	"github.com/dfg-98/netsim/phy"
)

func testParams(seed uint32) Params {
	return Params{
		SignalTime:     10,
		ErrorDetection: link.AlgorithmSimpleHash,
		ErrorProb:      0,
		Rand:           internal.NewSource(seed),
	}
}

// net drives devices with the engine's per-tick ordering: hosts
// first, then the rest, then cable decay.
type net struct {
	t      *testing.T
	hosts  []Device
	others []Device
	cables []*phy.Cable
	now    int
}

func (n *net) addHost(d Device)  { n.hosts = append(n.hosts, d) }
func (n *net) addOther(d Device) { n.others = append(n.others, d) }

func (n *net) connect(a Device, portA string, b Device, portB string) {
	n.t.Helper()
	pa, ok := a.Port(portA)
	require.True(n.t, ok, "port %s", portA)
	pb, ok := b.Port(portB)
	require.True(n.t, ok, "port %s", portB)
	cable, err := phy.Connect(10, pa, pb)
	require.NoError(n.t, err)
	n.cables = append(n.cables, cable)
	a.OnConnect(portA)
	b.OnConnect(portB)
}

func (n *net) run(ticks int) {
	for i := 0; i < ticks; i++ {
		for _, d := range n.hosts {
			d.Update(n.now)
		}
		for _, d := range n.others {
			d.Update(n.now)
		}
		for _, c := range n.cables {
			c.Update()
		}
		n.now++
	}
}

func (n *net) active() bool {
	for _, d := range append(append([]Device{}, n.hosts...), n.others...) {
		if d.Active() {
			return true
		}
	}
	return false
}

func macBits(t *testing.T, hex string) []netsim.Bit {
	t.Helper()
	v, err := netsim.HexToBits(hex, 16)
	require.NoError(t, err)
	return v
}

func mustAddr(t *testing.T, s string) ipv4.Addr {
	t.Helper()
	a, err := ipv4.ParseAddr(s)
	require.NoError(t, err)
	return a
}

func actionCount(rows [][]string, action string) int {
	count := 0
	for _, row := range rows {
		if len(row) > 2 && row[2] == action {
			count++
		}
	}
	return count
}

func TestHostToHostFrame(t *testing.T) {
	p := testParams(1)
	h1 := NewHost("H1", p)
	h2 := NewHost("H2", p)
	require.NoError(t, h1.SetMAC(1, macBits(t, "0001")))
	require.NoError(t, h2.SetMAC(1, macBits(t, "0002")))

	n := &net{t: t}
	n.addHost(h1)
	n.addHost(h2)
	n.connect(h1, "H1_1", h2, "H2_1")

	payload, err := netsim.HexToBits("ABCD", 16)
	require.NoError(t, err)
	require.NoError(t, h1.SendFrame(macBits(t, "0002"), payload))

	n.run(2000)
	require.False(t, n.active())

	require.Len(t, h2.receivedData, 1)
	row := h2.receivedData[0]
	require.Len(t, row, 3, "frame should verify clean: %v", row)
	require.Equal(t, "0001", row[1])
	require.Equal(t, "ABCD", row[2])
	require.Empty(t, h1.receivedData, "sender must not hear its own frame")
}

func TestSendFrameWithoutMACFails(t *testing.T) {
	h := NewHost("H", testParams(1))
	err := h.SendFrame(macBits(t, "0002"), nil)
	require.ErrorIs(t, err, errNoMAC)
}

func TestSwitchLearnsAndForwards(t *testing.T) {
	p := testParams(3)
	h1 := NewHost("H1", p)
	h2 := NewHost("H2", p)
	h3 := NewHost("H3", p)
	sw := NewSwitch("S", 3, p)
	require.NoError(t, h1.SetMAC(1, macBits(t, "0001")))
	require.NoError(t, h2.SetMAC(1, macBits(t, "0002")))
	require.NoError(t, h3.SetMAC(1, macBits(t, "0003")))

	n := &net{t: t}
	n.addHost(h1)
	n.addHost(h2)
	n.addHost(h3)
	n.addOther(sw)
	n.connect(h1, "H1_1", sw, "S_1")
	n.connect(h2, "H2_1", sw, "S_2")
	n.connect(h3, "H3_1", sw, "S_3")

	payload, _ := netsim.HexToBits("AA", 16)
	require.NoError(t, h1.SendFrame(macBits(t, "0002"), payload))
	n.run(4000)
	require.False(t, n.active())

	// Destination unknown: the switch floods, both H2 and H3 hear it.
	require.Len(t, h2.receivedData, 1)
	require.Len(t, h3.receivedData, 1)
	require.Equal(t, "0001", h2.receivedData[0][1])
	require.Equal(t, "S_1", sw.macTable[0x0001], "switch should have learned H1's port")

	// Now the switch knows 0001: H2's answer goes only to port 1.
	payload2, _ := netsim.HexToBits("BB", 16)
	require.NoError(t, h2.SendFrame(macBits(t, "0001"), payload2))
	n.run(4000)
	require.False(t, n.active())

	require.Len(t, h1.receivedData, 1)
	require.Equal(t, "0002", h1.receivedData[0][1])
	require.Len(t, h3.receivedData, 1, "learned destination must not be flooded")
}

func TestARPResolutionAndPing(t *testing.T) {
	p := testParams(7)
	a := NewHost("A", p)
	b := NewHost("B", p)
	require.NoError(t, a.SetMAC(1, macBits(t, "0001")))
	require.NoError(t, b.SetMAC(1, macBits(t, "0002")))
	mask := mustAddr(t, "255.255.255.0")
	require.NoError(t, a.SetIP(1, mustAddr(t, "10.0.0.1"), mask))
	require.NoError(t, b.SetIP(1, mustAddr(t, "10.0.0.2"), mask))

	n := &net{t: t}
	n.addHost(a)
	n.addHost(b)
	n.connect(a, "A_1", b, "B_1")

	require.NoError(t, a.SendPing(mustAddr(t, "10.0.0.2")))
	n.run(20000)
	require.False(t, n.active())

	require.Len(t, b.receivedPayload, 1)
	require.Equal(t, []string{b.receivedPayload[0][0], "10.0.0.1", "echo request"}, b.receivedPayload[0])
	require.Len(t, a.receivedPayload, 1)
	require.Equal(t, "echo reply", a.receivedPayload[0][2])
	require.Equal(t, "10.0.0.2", a.receivedPayload[0][1])
	require.Equal(t, 1, actionCount(a.rows, "ARP query"))

	// Resolution is cached: a second ping reuses the learned MAC and
	// emits no further query.
	require.NoError(t, a.SendPing(mustAddr(t, "10.0.0.2")))
	n.run(20000)
	require.False(t, n.active())
	require.Len(t, a.receivedPayload, 2)
	require.Equal(t, 1, actionCount(a.rows, "ARP query"))
}

func TestRouterForwardsBetweenSubnets(t *testing.T) {
	p := testParams(9)
	a := NewHost("A", p)
	b := NewHost("B", p)
	r := NewRouter("R", 2, p)
	require.NoError(t, a.SetMAC(1, macBits(t, "000A")))
	require.NoError(t, b.SetMAC(1, macBits(t, "000B")))
	require.NoError(t, r.SetMAC(1, macBits(t, "0001")))
	require.NoError(t, r.SetMAC(2, macBits(t, "0002")))

	mask := mustAddr(t, "255.255.255.0")
	require.NoError(t, a.SetIP(1, mustAddr(t, "10.0.1.2"), mask))
	require.NoError(t, b.SetIP(1, mustAddr(t, "10.0.2.2"), mask))
	require.NoError(t, r.SetIP(1, mustAddr(t, "10.0.1.1"), mask))
	require.NoError(t, r.SetIP(2, mustAddr(t, "10.0.2.1"), mask))

	// Hosts route everything off-subnet at their gateway.
	a.RouteTable().Add(ipv4.Route{Gateway: mustAddr(t, "10.0.1.1"), Interface: 1})
	b.RouteTable().Add(ipv4.Route{Gateway: mustAddr(t, "10.0.2.1"), Interface: 1})
	// Router interface routes, as route add instructions would install.
	r.RouteTable().Add(ipv4.Route{Destination: mustAddr(t, "10.0.1.0"), Mask: mask, Interface: 1})
	r.RouteTable().Add(ipv4.Route{Destination: mustAddr(t, "10.0.2.0"), Mask: mask, Interface: 2})

	n := &net{t: t}
	n.addHost(a)
	n.addHost(b)
	n.addOther(r)
	n.connect(a, "A_1", r, "R_1")
	n.connect(b, "B_1", r, "R_2")

	require.NoError(t, a.SendPing(mustAddr(t, "10.0.2.2")))
	n.run(60000)
	require.False(t, n.active())

	require.NotEmpty(t, b.receivedPayload)
	require.Equal(t, "10.0.1.2", b.receivedPayload[0][1])
	require.Equal(t, "echo request", b.receivedPayload[0][2])
	require.NotEmpty(t, a.receivedPayload)
	require.Equal(t, "10.0.2.2", a.receivedPayload[0][1])
	require.Equal(t, "echo reply", a.receivedPayload[0][2])
}

func TestRouterLongestPrefixWins(t *testing.T) {
	p := testParams(2)
	r := NewRouter("R", 2, p)
	wide := ipv4.Route{Destination: mustAddr(t, "10.0.0.0"), Mask: mustAddr(t, "255.0.0.0"), Interface: 1}
	narrow := ipv4.Route{Destination: mustAddr(t, "10.0.2.0"), Mask: mustAddr(t, "255.255.255.0"), Interface: 2}
	r.RouteTable().Add(wide)
	r.RouteTable().Add(narrow)
	got, ok := r.RouteTable().Lookup(mustAddr(t, "10.0.2.7"))
	require.True(t, ok)
	require.Equal(t, narrow, got)
}

func TestRouterUnreachable(t *testing.T) {
	p := testParams(13)
	a := NewHost("A", p)
	r := NewRouter("R", 2, p)
	require.NoError(t, a.SetMAC(1, macBits(t, "000A")))
	require.NoError(t, r.SetMAC(1, macBits(t, "0001")))
	mask := mustAddr(t, "255.255.255.0")
	require.NoError(t, a.SetIP(1, mustAddr(t, "10.0.1.2"), mask))
	require.NoError(t, r.SetIP(1, mustAddr(t, "10.0.1.1"), mask))
	a.RouteTable().Add(ipv4.Route{Gateway: mustAddr(t, "10.0.1.1"), Interface: 1})

	n := &net{t: t}
	n.addHost(a)
	n.addOther(r)
	n.connect(a, "A_1", r, "R_1")

	payload, _ := netsim.HexToBits("DEAD", 16)
	require.NoError(t, a.SendPacketTo(mustAddr(t, "9.9.9.9"), payload))
	n.run(40000)
	require.False(t, n.active())

	require.NotEmpty(t, a.receivedPayload)
	require.Equal(t, "10.0.1.1", a.receivedPayload[0][1])
	require.Equal(t, "destination host unreachable", a.receivedPayload[0][2])
}

func TestHostDropsForeignPacket(t *testing.T) {
	p := testParams(17)
	a := NewHost("A", p)
	b := NewHost("B", p)
	require.NoError(t, a.SetMAC(1, macBits(t, "0001")))
	require.NoError(t, b.SetMAC(1, macBits(t, "0002")))
	mask := mustAddr(t, "255.255.255.0")
	require.NoError(t, a.SetIP(1, mustAddr(t, "10.0.0.1"), mask))
	require.NoError(t, b.SetIP(1, mustAddr(t, "10.0.0.2"), mask))

	n := &net{t: t}
	n.addHost(a)
	n.addHost(b)
	n.connect(a, "A_1", b, "B_1")

	// Frame addressed to B's MAC carrying a packet for someone else:
	// the frame is logged but the packet silently dropped.
	pkt := ipv4.BuildPacket(mustAddr(t, "10.0.0.9"), mustAddr(t, "10.0.0.1"), nil, 0, 0)
	require.NoError(t, a.SendFrame(macBits(t, "0002"), pkt.RawData()))
	n.run(30000)
	require.False(t, n.active())

	require.Len(t, b.receivedData, 1)
	require.Empty(t, b.receivedPayload)
}

func TestHubCollisionBackoffRecovery(t *testing.T) {
	p := testParams(21)
	h1 := NewHost("H1", p)
	h2 := NewHost("H2", p)
	hub := NewHub("HUB", 2, p)
	require.NoError(t, h1.SetMAC(1, macBits(t, "0001")))
	require.NoError(t, h2.SetMAC(1, macBits(t, "0002")))

	n := &net{t: t}
	n.addHost(h1)
	n.addHost(h2)
	n.addOther(hub)
	n.connect(h1, "H1_1", hub, "HUB_1")
	n.connect(h2, "H2_1", hub, "HUB_2")

	p1, _ := netsim.HexToBits("AAAA", 16)
	p2, _ := netsim.HexToBits("5555", 16)
	require.NoError(t, h1.SendFrame(macBits(t, "0002"), p1))
	require.NoError(t, h2.SendFrame(macBits(t, "0001"), p2))

	n.run(100) // let both transmitters load and start colliding
	for i := 0; i < 400 && n.active(); i++ {
		n.run(1000)
	}
	require.False(t, n.active(), "transmitters deadlocked")

	require.Greater(t, actionCount(h1.rows, "Collision"), 0, "H1 never detected the collision")
	require.Greater(t, actionCount(h2.rows, "Collision"), 0, "H2 never detected the collision")

	cleanRows := func(rows [][]string) int {
		clean := 0
		for _, row := range rows {
			if len(row) == 3 {
				clean++
			}
		}
		return clean
	}
	// A collision landing in a sender's final bit window can go
	// unnoticed and lose that one frame; the other sender always
	// detects and retries, so at least one frame must arrive intact.
	require.Greater(t, cleanRows(h1.receivedData)+cleanRows(h2.receivedData), 0,
		"no frame survived the collision domain")
}

func TestHubRepeatsToAllPorts(t *testing.T) {
	p := testParams(5)
	h1 := NewHost("H1", p)
	h2 := NewHost("H2", p)
	h3 := NewHost("H3", p)
	hub := NewHub("HUB", 3, p)
	require.NoError(t, h1.SetMAC(1, macBits(t, "0001")))
	require.NoError(t, h2.SetMAC(1, macBits(t, "0002")))
	require.NoError(t, h3.SetMAC(1, macBits(t, "0003")))

	n := &net{t: t}
	n.addHost(h1)
	n.addHost(h2)
	n.addHost(h3)
	n.addOther(hub)
	n.connect(h1, "H1_1", hub, "HUB_1")
	n.connect(h2, "H2_1", hub, "HUB_2")
	n.connect(h3, "H3_1", hub, "HUB_3")

	payload, _ := netsim.HexToBits("ABCD", 16)
	require.NoError(t, h1.SendFrame(macBits(t, "0002"), payload))
	n.run(3000)
	require.False(t, n.active())

	// A hub floods: every other station hears the frame.
	require.Len(t, h2.receivedData, 1)
	require.Len(t, h3.receivedData, 1)
	require.Equal(t, "ABCD", h2.receivedData[0][2])
	require.Equal(t, "ABCD", h3.receivedData[0][2])
	require.Empty(t, h1.receivedData)
}

func TestFrameCorruptionLogsError(t *testing.T) {
	p := testParams(31)
	p.ErrorProb = 1 // corrupt every frame
	h1 := NewHost("H1", p)
	h2 := NewHost("H2", p)
	require.NoError(t, h1.SetMAC(1, macBits(t, "0001")))
	require.NoError(t, h2.SetMAC(1, macBits(t, "0002")))

	n := &net{t: t}
	n.addHost(h1)
	n.addHost(h2)
	n.connect(h1, "H1_1", h2, "H2_1")

	payload, _ := netsim.HexToBits("ABCD", 16)
	require.NoError(t, h1.SendFrame(macBits(t, "0002"), payload))
	n.run(2000)
	require.False(t, n.active())

	require.Len(t, h2.receivedData, 1)
	row := h2.receivedData[0]
	require.Len(t, row, 4)
	require.Equal(t, "ERROR", row[3])
	require.Empty(t, h2.receivedPayload)
}
