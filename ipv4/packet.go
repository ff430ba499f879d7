package ipv4

import (
	"fmt"

	netsim "github.com/dfg-98/netsim"
)

// Packet header layout, MSB first within each field:
//
//	dest IP        32 bits
//	src IP         32 bits
//	TTL             8 bits
//	protocol        8 bits
//	payload size P  8 bits (bytes)
//	payload         8*P bits
const headerBits = 88

// Packet is a view over the raw bit vector of an IP packet.
type Packet struct {
	bits []netsim.Bit
}

// ParsePacket wraps bits as a Packet. ok is false while the vector is
// shorter than the header or the payload its size field announces;
// extra trailing bits are ignored.
func ParsePacket(bits []netsim.Bit) (Packet, bool) {
	if len(bits) < headerBits {
		return Packet{}, false
	}
	p := Packet{bits: bits}
	if len(bits) < headerBits+8*p.PayloadSize() {
		return Packet{}, false
	}
	return p, true
}

// BuildPacket assembles a packet, byte aligning the payload.
func BuildPacket(dst, src Addr, payload []netsim.Bit, ttl, protocol int) Packet {
	payload = netsim.ByteAlign(append([]netsim.Bit(nil), payload...))
	bits := make([]netsim.Bit, 0, headerBits+len(payload))
	bits = append(bits, dst.Bits()...)
	bits = append(bits, src.Bits()...)
	bits = append(bits, netsim.IntToBits(ttl, 8)...)
	bits = append(bits, netsim.IntToBits(protocol, 8)...)
	bits = append(bits, netsim.DataSize(payload)...)
	bits = append(bits, payload...)
	return Packet{bits: bits}
}

// RawData returns the packet's bit vector.
func (p Packet) RawData() []netsim.Bit { return p.bits }

// Destination returns the destination address.
func (p Packet) Destination() Addr { return Addr(netsim.BitsToInt(p.bits[0:32])) }

// Source returns the source address.
func (p Packet) Source() Addr { return Addr(netsim.BitsToInt(p.bits[32:64])) }

// TTL returns the time-to-live field. It is carried but never
// decremented by this stack.
func (p Packet) TTL() int { return netsim.BitsToInt(p.bits[64:72]) }

// Protocol returns the protocol field; [ProtocolICMP] is the only one
// the stack interprets.
func (p Packet) Protocol() int { return netsim.BitsToInt(p.bits[72:80]) }

// PayloadSize returns the payload size field in bytes.
func (p Packet) PayloadSize() int { return netsim.BitsToInt(p.bits[80:88]) }

// Payload returns the payload bits.
func (p Packet) Payload() []netsim.Bit {
	return p.bits[headerBits : headerBits+8*p.PayloadSize()]
}

func (p Packet) String() string {
	return fmt.Sprintf("%s -> %s (%s)", p.Source(), p.Destination(), netsim.BitsToHex(p.Payload()))
}
