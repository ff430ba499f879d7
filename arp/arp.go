// Package arp implements the address-resolution message carried in
// data-link frames: an 8-byte payload whose first four bytes spell
// "ARPQ" in ASCII and whose last four encode the queried or announced
// IP. A frame addressed to the broadcast MAC carries a query; any
// other destination marks a reply.
package arp

import (
	netsim "github.com/dfg-98/netsim"
	"github.com/dfg-98/netsim/ipv4"
)

// PayloadBits is the exact bit length of an ARP message payload.
const PayloadBits = 64

var magic = netsim.ASCIIToBits("ARPQ")

// Payload builds the message payload announcing or querying addr.
func Payload(addr ipv4.Addr) []netsim.Bit {
	out := make([]netsim.Bit, 0, PayloadBits)
	out = append(out, magic...)
	out = append(out, addr.Bits()...)
	return out
}

// Parse recognizes an ARP message payload. ok is false unless the
// payload is exactly 8 bytes starting with the ASCII magic.
func Parse(payload []netsim.Bit) (addr ipv4.Addr, ok bool) {
	if len(payload) != PayloadBits || !netsim.BitsEqual(payload[:32], magic) {
		return 0, false
	}
	addr, err := ipv4.AddrFromBits(payload[32:])
	if err != nil {
		return 0, false
	}
	return addr, true
}
