// Package ipv4 implements the network layer of the simulated stack:
// 32-bit addresses, IP packets carried as logical bit vectors, the
// ICMP-like echo protocol and routing tables with longest-prefix
// match.
package ipv4

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	netsim "github.com/dfg-98/netsim"
)

// Addr is a 32-bit network address. The zero value is 0.0.0.0, which
// routes use as the "directly connected" gateway marker.
type Addr uint32

var errBadAddr = errors.New("ipv4: malformed address")

// AddrFrom4 assembles an address from its four octets.
func AddrFrom4(a, b, c, d uint8) Addr {
	return Addr(a)<<24 | Addr(b)<<16 | Addr(c)<<8 | Addr(d)
}

// ParseAddr parses dotted decimal notation, e.g. "10.0.0.1".
func ParseAddr(s string) (Addr, error) {
	parts := strings.Split(s, ".")
	if len(parts) != 4 {
		return 0, errBadAddr
	}
	var addr Addr
	for _, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil || n < 0 || n > 255 {
			return 0, errBadAddr
		}
		addr = addr<<8 | Addr(n)
	}
	return addr, nil
}

// AddrFromBits decodes a 32-bit MSB-first vector.
func AddrFromBits(v []netsim.Bit) (Addr, error) {
	if len(v) != 32 {
		return 0, errBadAddr
	}
	return Addr(netsim.BitsToInt(v)), nil
}

// Bits renders the address as a 32-bit MSB-first vector.
func (a Addr) Bits() []netsim.Bit { return netsim.IntToBits(int(a), 32) }

// InSubnet reports whether the address belongs to subnet under mask.
func (a Addr) InSubnet(subnet, mask Addr) bool { return a&mask == subnet }

// IsZero reports whether the address is 0.0.0.0.
func (a Addr) IsZero() bool { return a == 0 }

func (a Addr) String() string {
	return fmt.Sprintf("%d.%d.%d.%d", uint8(a>>24), uint8(a>>16), uint8(a>>8), uint8(a))
}
